package ingestion

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	config "github.com/lumen-media-search/v1/configuration"
	models "github.com/lumen-media-search/v1/service/models"
)

var sqs_svc = sqs.New(config.GetAwsSession())

// Should be started as background thread.
func PollForUploadEvents(trigger *TriggerService) {
	urlResult, err := sqs_svc.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: aws.String(config.GetEnvConfigs().UploadEventsQueueName),
	})
	if err != nil {
		log.Fatalf("failed to get queue url: %s", err)
	}
	queueURL := urlResult.QueueUrl
	log.Printf("QUEUE URL: %s", *queueURL)
	for i := 0; i < config.GetEnvConfigs().MaxConsumers; i++ {
		go startConsumer(trigger, queueURL)
	}
}

func Purge() {
	urlResult, err := sqs_svc.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: aws.String(config.GetEnvConfigs().UploadEventsQueueName),
	})
	if err != nil {
		log.Fatalf("failed to get queue url: %s", err)
	}
	_, err = sqs_svc.PurgeQueue(&sqs.PurgeQueueInput{
		QueueUrl: urlResult.QueueUrl,
	})
	if err != nil {
		log.Fatalf("failed to purge queue url: %s", err)
	}
}

func startConsumer(trigger *TriggerService, queueURL *string) {
	log.Printf("started upload-event consumer")
	for {
		err := consumeMessages(trigger, queueURL)
		time.Sleep(time.Duration(config.GetEnvConfigs().PollPeriodMilli) * time.Millisecond)
		if err != nil {
			log.Printf("failed to poll queue messages: %s", err)
		}
	}
}

func consumeMessages(trigger *TriggerService, queueURL *string) error {
	msgResult, err := sqs_svc.ReceiveMessage(&sqs.ReceiveMessageInput{
		AttributeNames: []*string{
			aws.String(sqs.MessageSystemAttributeNameSentTimestamp),
		},
		MessageAttributeNames: []*string{
			aws.String(sqs.QueueAttributeNameAll),
		},
		QueueUrl:            queueURL,
		MaxNumberOfMessages: aws.Int64(config.GetEnvConfigs().MaxMessagesPerPoll), // Max size 10
		VisibilityTimeout:   aws.Int64(config.GetEnvConfigs().PollVisibilityTimeoutSec),
		WaitTimeSeconds:     aws.Int64(config.GetEnvConfigs().PollWaitSec),
	})
	if err != nil {
		return err
	}
	if len(msgResult.Messages) > 0 {
		processMessages(trigger, msgResult.Messages, queueURL)
	}
	return err
}

func processMessages(trigger *TriggerService, messages []*sqs.Message, queueUrl *string) {
	var wg sync.WaitGroup
	for _, m := range messages {
		wg.Add(1)
		go asyncProcessMessage(trigger, m, queueUrl, &wg)
	}
	wg.Wait()
}

func asyncProcessMessage(trigger *TriggerService, message *sqs.Message, queueUrl *string, wg *sync.WaitGroup) {
	defer wg.Done()
	err := handleUploadEvent(trigger, message)
	if err != nil {
		log.Printf("unable to handle upload event: %s %s", *message.MessageId, err)
		return
	}
	err = ackMessage(message, queueUrl)
	if err != nil {
		log.Printf("unable to ack event: %s %s", message.GoString(), err)
	}
}

func handleUploadEvent(trigger *TriggerService, message *sqs.Message) error {
	s3Event, err := decode(message)
	if err != nil {
		return err
	}
	if len(s3Event.Records) == 0 {
		log.Printf("empty s3 event given, no records: %s", *message.MessageId)
		return nil
	}
	for _, record := range s3Event.Records {
		err = trigger.HandleObjectCreated(record)
		if err != nil {
			return err
		}
	}
	return nil
}

func ackMessage(message *sqs.Message, queueUrl *string) error {
	_, err := sqs_svc.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      queueUrl,
		ReceiptHandle: message.ReceiptHandle,
	})
	return err
}

func decode(message *sqs.Message) (models.S3Event, error) {
	var sqsMessage models.SQSMessage
	err := json.Unmarshal([]byte(*message.Body), &sqsMessage)
	if err != nil {
		log.Printf("failed to unmarshall sqs body: %s", err)
		return models.S3Event{}, err
	}

	var s3Event models.S3Event
	err = json.Unmarshal([]byte(sqsMessage.Message), &s3Event)
	if err != nil {
		log.Printf("failed to unmarshall sqs message: %s", err)
		return models.S3Event{}, err
	}
	return s3Event, nil
}
