package orchestration

import (
	"encoding/json"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	aws_configuration "github.com/lumen-media-search/v1/configuration"
	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
)

var snsSvc = sns.New(aws_configuration.GetAwsSession())

type Message struct {
	Default string `json:"default"`
}

// Downstream indexers subscribe to the completion topic; they re-read the
// named artifact, the notification itself carries no payload.
type PipelineCompleteNotification struct {
	ExecutionID string `json:"executionId"`
	ItemID      string `json:"itemId"`
	MediaKind   string `json:"mediaKind"`
	ArtifactKey string `json:"artifactKey"`
}

func PublishPipelineCompleteSns(execution tables.PipelineExecution) error {
	notification := PipelineCompleteNotification{
		ExecutionID: execution.ExecutionID,
		ItemID:      execution.ItemID,
		MediaKind:   string(execution.MediaKind),
		ArtifactKey: store.VectorsKey(execution.ItemID),
	}
	return publishNotification(notification)
}

func PublishImageDocumentSns(meta models.ImageDocumentMeta) error {
	notification := PipelineCompleteNotification{
		ItemID:      meta.ItemID,
		MediaKind:   string(tables.MEDIA_IMAGE),
		ArtifactKey: store.ImageTextKey(meta.ItemID),
	}
	return publishNotification(notification)
}

func publishNotification(notification PipelineCompleteNotification) error {
	notificationBytes, err := json.Marshal(notification)
	if err != nil {
		log.Printf("error marshalling completion notification: %s", err)
		return err
	}
	snsMessage := Message{
		Default: string(notificationBytes),
	}
	snsMessageBytes, err := json.Marshal(snsMessage)
	if err != nil {
		log.Printf("error marshalling completion notification wrapper: %s", err)
		return err
	}
	snsMessageWrapper := string(snsMessageBytes)
	topicArn := aws_configuration.GetEnvConfigs().PipelineCompleteSNSTopic
	_, err = snsSvc.Publish(&sns.PublishInput{
		Message:          &snsMessageWrapper,
		TopicArn:         &topicArn,
		MessageStructure: aws.String("json"),

		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"filterKey": {
				DataType:    aws.String("String"),
				StringValue: aws.String(notification.MediaKind),
			},
		},
	})
	if err != nil {
		log.Printf("failed publishing to pipeline complete topic: %s", err)
		return err
	}

	return err
}
