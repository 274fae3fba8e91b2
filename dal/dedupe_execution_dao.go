package dal

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	dynamo_configuration "github.com/lumen-media-search/v1/configuration/dynamo"

	"log"
)

type DedupeEntry struct {
	ExecutionID string
	TTL         int64
}

// ClaimExecutionID records an execution id the first time it is seen.
// Returns false when a prior delivery of the same event already claimed it.
func ClaimExecutionID(executionId string) (bool, error) {
	const threeDaysTTL = 259200
	entry := DedupeEntry{
		ExecutionID: executionId,
		TTL:         time.Now().Unix() + threeDaysTTL,
	}
	av, err := dynamodbattribute.MarshalMap(entry)
	if err != nil {
		log.Printf("got error marshalling dedupe entry: %s", err)
		return false, err
	}
	tableName := dynamo_configuration.TABLE_DEDUPE_EXECUTIONS

	input := &dynamodb.PutItemInput{
		Item:                av,
		TableName:           aws.String(tableName),
		ConditionExpression: aws.String("attribute_not_exists(ExecutionID)"),
	}
	_, err = svc.PutItem(input)
	if hasConditionalFailure(err) {
		log.Printf("correlationID: %s duplicate event delivery, skipping", executionId)
		return false, nil
	}
	if err != nil {
		log.Printf("got error calling PutItem dedupe entry: %s", err)
		return false, err
	}

	return true, nil
}

func GetDedupeEntry(executionId string) (DedupeEntry, error) {
	result, err := svc.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(dynamo_configuration.TABLE_DEDUPE_EXECUTIONS),
		Key: map[string]*dynamodb.AttributeValue{
			"ExecutionID": {
				S: aws.String(executionId),
			},
		},
	})

	resultItem := DedupeEntry{}
	if err != nil {
		log.Printf("got error calling GetItem dedupe entry: %s", err)
		return resultItem, err
	}

	err = dynamodbattribute.UnmarshalMap(result.Item, &resultItem)
	if err != nil {
		log.Printf("error unmarshalling dedupe entry: %s", err)
		return resultItem, err
	}

	return resultItem, err
}
