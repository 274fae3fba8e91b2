package clients

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
	dal "github.com/lumen-media-search/v1/dal"
	errs "github.com/lumen-media-search/v1/service/errs"
	models "github.com/lumen-media-search/v1/service/models"
)

// Transcriber turns a raw media object into transcript segments plus
// keyframe references. The processing endpoint writes the keyframe images
// under processed/{itemId}/frames/ itself; the response carries their refs.
type Transcriber interface {
	Transcribe(itemId string, bucket string, key string) (models.TranscriptArtifact, error)
}

type transcribeRequest struct {
	ItemID string `json:"itemId"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type transcribeResponse struct {
	Frames     []models.FrameRef     `json:"frames"`
	Transcript models.TranscriptBody `json:"transcript"`
}

type SageMakerTranscribeClient struct {
	svc               *sagemakerruntime.SageMakerRuntime
	endpointName      string
	maxRequestsPerMin int64
}

func NewSageMakerTranscribeClient(sess *session.Session, endpointName string, maxRequestsPerMin int64) *SageMakerTranscribeClient {
	return &SageMakerTranscribeClient{
		svc:               sagemakerruntime.New(sess),
		endpointName:      endpointName,
		maxRequestsPerMin: maxRequestsPerMin,
	}
}

func (c *SageMakerTranscribeClient) Transcribe(itemId string, bucket string, key string) (models.TranscriptArtifact, error) {
	result := models.TranscriptArtifact{ItemID: itemId}
	if !dal.IsCallable(dal.RATE_API_SAGEMAKER_TRANSCRIBE, c.maxRequestsPerMin) {
		return result, fmt.Errorf("transcribe endpoint throttled: %w", errs.ErrUpstreamUnavailable)
	}

	requestBytes, err := json.Marshal(transcribeRequest{
		ItemID: itemId,
		Bucket: bucket,
		Key:    key,
	})
	if err != nil {
		log.Printf("correlationID: %s error marshalling transcribe request: %s", itemId, err)
		return result, err
	}

	output, err := c.svc.InvokeEndpoint(&sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(c.endpointName),
		ContentType:  aws.String("application/json"),
		Accept:       aws.String("application/json"),
		Body:         requestBytes,
	})
	if err != nil {
		log.Printf("correlationID: %s error invoking transcribe endpoint %s: %s", itemId, c.endpointName, err)
		return result, fmt.Errorf("invoke %s: %s: %w", c.endpointName, err, errs.ErrUpstreamUnavailable)
	}

	var response transcribeResponse
	err = json.Unmarshal(output.Body, &response)
	if err != nil {
		log.Printf("correlationID: %s error unmarshalling transcribe response: %s", itemId, err)
		return result, fmt.Errorf("transcribe response: %w", errs.ErrMalformedResponse)
	}

	result.Frames = response.Frames
	result.Transcript = response.Transcript
	return result, nil
}
