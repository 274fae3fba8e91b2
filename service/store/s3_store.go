package store

import (
	"bytes"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	errs "github.com/lumen-media-search/v1/service/errs"
)

// S3ArtifactStore serves one bucket; the pipeline and the search engine each
// get a handle constructed once at process start.
type S3ArtifactStore struct {
	svc        *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	bucketName string
}

func NewS3ArtifactStore(sess *session.Session, bucketName string) *S3ArtifactStore {
	return &S3ArtifactStore{
		svc:        s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		bucketName: bucketName,
	}
}

func (s *S3ArtifactStore) Get(key string) ([]byte, error) {
	buf := aws.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(buf,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		})
	if isNotFound(err) {
		return []byte{}, fmt.Errorf("artifact %s: %w", key, errs.ErrNotFound)
	}
	if err != nil {
		log.Printf("error downloading artifact %s: %s", key, err)
		return []byte{}, err
	}
	return buf.Bytes(), nil
}

func (s *S3ArtifactStore) Put(key string, body []byte, contentType string) error {
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("error uploading artifact %s: %s", key, err)
	}
	return err
}

func (s *S3ArtifactStore) List(prefix string, maxKeys int64) ([]string, error) {
	resp, err := s.svc.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucketName),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(maxKeys),
	})
	if err != nil {
		log.Printf("error listing artifacts under %s: %s", prefix, err)
		return []string{}, err
	}

	keys := []string{}
	for _, item := range resp.Contents {
		keys = append(keys, *item.Key)
	}
	return keys, nil
}

func (s *S3ArtifactStore) Exists(key string) (bool, error) {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		// Eventually consistent.
		log.Printf("key missing from bucket %s: %s", s.bucketName, key)
		return false, nil
	}
	if err != nil {
		log.Printf("error checking %s existence: %s", key, err)
		return false, err
	}

	return true, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
