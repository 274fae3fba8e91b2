package ingestion

import (
	"errors"
	"log"
	"net/url"
	"regexp"
	"strings"

	models "github.com/lumen-media-search/v1/service/models"
	errs "github.com/lumen-media-search/v1/service/errs"
	orchestration "github.com/lumen-media-search/v1/service/orchestration"
)

// TriggerService maps one object-created event to at most one pipeline
// execution. Keys outside the expected upload namespaces are skipped, never
// errors; duplicate delivery of the same event is a no-op.
type TriggerService struct {
	Pipeline *orchestration.PipelineService
	Images   *ImageWorkflow
}

var rawVideoKeyPattern = regexp.MustCompile(`^raw-videos/([^/]+)/`)

const rawImagePrefix = "raw-images"

func NewTriggerService(pipeline *orchestration.PipelineService, images *ImageWorkflow) *TriggerService {
	return &TriggerService{
		Pipeline: pipeline,
		Images:   images,
	}
}

func (t *TriggerService) HandleObjectCreated(record models.S3EventRecord) error {
	key, err := DecodeObjectKey(record.S3.Object.Key)
	if err != nil {
		log.Printf("unable to decode object key %s: %s", record.S3.Object.Key, err)
		return err
	}
	bucket := record.S3.Bucket.Name

	if match := rawVideoKeyPattern.FindStringSubmatch(key); match != nil {
		itemId := match[1]
		log.Printf("starting pipeline for video: %s", itemId)
		_, err := t.Pipeline.StartExecution(itemId, bucket, key, record.EventTime)
		if errors.Is(err, errs.ErrAlreadyRunning) {
			// Duplicate delivery of the same upload event.
			log.Printf("execution already started for video %s, skipping", itemId)
			return nil
		}
		return err
	}

	parts := strings.Split(key, "/")
	if parts[0] == rawImagePrefix {
		if len(parts) < 3 {
			log.Printf("unexpected image key format, skipping: %s", key)
			return nil
		}
		return t.Images.ProcessImage(parts[1], parts[2], key, record.EventTime)
	}

	log.Printf("skipping non-media key: %s", key)
	return nil
}

// S3 event notifications carry url-encoded keys with spaces as '+'.
func DecodeObjectKey(rawKey string) (string, error) {
	return url.QueryUnescape(strings.ReplaceAll(rawKey, "+", " "))
}
