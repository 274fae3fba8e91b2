package dynamo

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	aws_configuration "github.com/lumen-media-search/v1/configuration"

	"log"
	"strings"
)

const TABLE_PIPELINE_EXECUTION = "PipelineExecution"
const TABLE_DEDUPE_EXECUTIONS = "DedupeExecutions"
const TABLE_RATE_LIMIT = "RateLimit"
const SYSTEM_DAEMON = "SystemDaemon"
const EXECUTION_STATUS_GSI_NAME = "ExecStatusCreatedAt" // For scanning Running executions by age.

func Init() {
	log.Printf("Initializing DynamoDB Tables")

	svc := dynamodb.New(aws_configuration.GetAwsSession())
	createPipelineExecutionTable(svc)
	createDedupeExecutionsTable(svc)
	createRateLimitTable(svc)
	createSystemDaemonTable(svc)
}

// PK: ExecutionID - deterministic <itemId>.<eventEpochMilli>.
// GSI: ExecStatus + CreatedAtEpochMilli, used by the stale-execution reaper
// to find Running executions past their deadline.
func createPipelineExecutionTable(svc *dynamodb.DynamoDB) {
	tableName := TABLE_PIPELINE_EXECUTION
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ExecutionID"),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String("ExecStatus"),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String("CreatedAtEpochMilli"),
				AttributeType: aws.String("N"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ExecutionID"),
				KeyType:       aws.String("HASH"),
			},
		},
		GlobalSecondaryIndexes: []*dynamodb.GlobalSecondaryIndex{
			{
				IndexName: aws.String(EXECUTION_STATUS_GSI_NAME),
				KeySchema: []*dynamodb.KeySchemaElement{
					{
						AttributeName: aws.String("ExecStatus"),
						KeyType:       aws.String("HASH"),
					},
					{
						AttributeName: aws.String("CreatedAtEpochMilli"),
						KeyType:       aws.String("RANGE"),
					},
				},
				Projection: &dynamodb.Projection{
					ProjectionType: aws.String(dynamodb.ProjectionTypeAll),
				},
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(tableName),
	}
	createTable(svc, input, tableName)
}

// PK: ExecutionID. Conditional puts against this table make duplicate
// delivery of the same upload event a no-op.
func createDedupeExecutionsTable(svc *dynamodb.DynamoDB) {
	tableName := TABLE_DEDUPE_EXECUTIONS
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ExecutionID"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ExecutionID"),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(tableName),
	}
	createTable(svc, input, tableName)
}

func createRateLimitTable(svc *dynamodb.DynamoDB) {
	tableName := TABLE_RATE_LIMIT
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("RateTimeKeyBucket"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("RateTimeKeyBucket"),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(tableName),
	}
	createTable(svc, input, tableName)
}

func createSystemDaemonTable(svc *dynamodb.DynamoDB) {
	tableName := SYSTEM_DAEMON
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("SystemID"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("SystemID"),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(tableName),
	}
	createTable(svc, input, tableName)
}

func createTable(svc *dynamodb.DynamoDB, input *dynamodb.CreateTableInput, tableName string) {
	_, err := svc.CreateTable(input)
	if tableAlreadyExists(err) {
		log.Println("Table already exists", tableName)
	} else if err != nil {
		log.Fatalf("Got error calling CreateTable: %s", err)
	} else {
		log.Println("Created the table", tableName)
	}
}

func tableAlreadyExists(err error) bool {
	if err != nil && strings.Contains(err.Error(), "ResourceInUseException") {
		return true
	}
	return false
}
