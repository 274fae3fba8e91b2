package dal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"bitbucket.org/creachadair/stringset"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	config "github.com/lumen-media-search/v1/configuration"
	dynamo_configuration "github.com/lumen-media-search/v1/configuration/dynamo"
	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	errs "github.com/lumen-media-search/v1/service/errs"

	"log"
)

// CreateExecution persists a fresh execution record. The conditional put is
// the substrate's duplicate-rejection: a second start with the same
// deterministic ExecutionID returns ErrAlreadyRunning.
func CreateExecution(item tables.PipelineExecution) error {
	item.ExecStatus = tables.PENDING_EXECUTION
	item.StageResultsVersion = start_version
	item.CreatedAtEpochMilli = time.Now().UnixMilli()
	item.UpdatedAtEpochMilli = item.CreatedAtEpochMilli

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		log.Printf("got error marshalling execution item: %s", err)
		return err
	}
	tableName := dynamo_configuration.TABLE_PIPELINE_EXECUTION

	input := &dynamodb.PutItemInput{
		Item:                av,
		TableName:           aws.String(tableName),
		ConditionExpression: aws.String("attribute_not_exists(ExecutionID)"),
	}
	_, err = svc.PutItem(input)
	if hasConditionalFailure(err) {
		log.Printf("correlationID: %s execution already exists", item.ExecutionID)
		return errs.ErrAlreadyRunning
	}
	if err != nil {
		log.Printf("got error calling PutItem execution item: %s", err)
		return err
	}

	return err
}

func GetExecution(executionId string) (tables.PipelineExecution, error) {
	result, err := svc.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(dynamo_configuration.TABLE_PIPELINE_EXECUTION),
		Key: map[string]*dynamodb.AttributeValue{
			"ExecutionID": {
				S: aws.String(executionId),
			},
		},
	})

	resultItem := tables.PipelineExecution{}
	if err != nil {
		log.Printf("got error calling GetItem execution item: %s", err)
		return resultItem, err
	}

	err = dynamodbattribute.UnmarshalMap(result.Item, &resultItem)
	if err != nil {
		log.Printf("error unmarshalling execution item: %s", err)
		return resultItem, err
	}

	return resultItem, err
}

// AppendStageResult appends one write-once StageResult to the audit trail.
// Optimistic versioning with exponential backoff, same as the teacher tables:
// concurrent appenders retry against the fresh record.
func AppendStageResult(executionId string, stageResult tables.StageResult) error {
	var err error
	retryCount := 0
	maxRetries := config.GetEnvConfigs().AppendStageMaxRetries
	const minSeconds = 2
	success := false
	canRetry := true
	for retryCount < maxRetries && !success && canRetry {
		err = appendStageResult(executionId, stageResult)
		retryCount++
		if err != nil && hasConditionalFailure(err) {
			time.Sleep(time.Duration(powInt(minSeconds, retryCount)) * time.Second)
		} else if err != nil {
			log.Printf("error appending stage result to execution: %s", err)
			canRetry = false
		} else {
			success = true
		}
	}

	return err
}

func appendStageResult(executionId string, stageResult tables.StageResult) error {
	executionItem, err := GetExecution(executionId)
	if err != nil {
		log.Printf("error fetching execution: %s", err)
		return err
	}

	anyExistingResults, err := executionItem.GetExistingStageResults()
	if err != nil {
		log.Printf("error fetching existing stage results: %s", err)
		return err
	}

	stageResult.RecordedAtEpochMilli = time.Now().UnixMilli()
	setResults := joinStageResultSet(anyExistingResults, stageResult)
	joinedResultsJson, err := json.Marshal(setResults)
	if err != nil {
		log.Printf("error marshalling joined stage results: %s", err)
		return err
	}

	oldVersionNumber := executionItem.StageResultsVersion
	newVersionNumber := oldVersionNumber + 1
	input := &dynamodb.UpdateItemInput{
		Key: map[string]*dynamodb.AttributeValue{
			"ExecutionID": {
				S: aws.String(executionId),
			},
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":r": {
				S: aws.String(string(joinedResultsJson)),
			},
			":v": {
				N: aws.String(strconv.FormatInt(newVersionNumber, 10)),
			},
			":ov": {
				N: aws.String(strconv.FormatInt(oldVersionNumber, 10)),
			},
			":u": {
				N: aws.String(strconv.FormatInt(time.Now().UnixMilli(), 10)),
			},
		},
		TableName:           aws.String(dynamo_configuration.TABLE_PIPELINE_EXECUTION),
		ReturnValues:        aws.String("NONE"),
		UpdateExpression:    aws.String("SET StageResults = :r, StageResultsVersion = :v, UpdatedAtEpochMilli = :u"),
		ConditionExpression: aws.String("StageResultsVersion = :ov"),
	}

	_, err = svc.UpdateItem(input)
	if err != nil && !hasConditionalFailure(err) {
		log.Printf("error calling UpdateItem for stage results: %s", err)
	}
	return err
}

// Write-once per stage: a result for an already-recorded stage name is
// dropped rather than overwritten.
func joinStageResultSet(existing []tables.StageResult, next tables.StageResult) []tables.StageResult {
	result := []tables.StageResult{}
	seenStages := stringset.New()
	for _, r := range existing {
		seenStages.Add(r.StageName)
		result = append(result, r)
	}

	if !seenStages.Contains(next.StageName) {
		result = append(result, next)
	}
	return result
}

func SetExecutionRunning(executionId string, stageName string) error {
	return setExecutionState(executionId, tables.RUNNING_EXECUTION, stageName)
}

func SetExecutionTerminal(executionId string, status tables.ExecStatus) error {
	executionItem, err := GetExecution(executionId)
	if err != nil {
		return err
	}
	return setExecutionState(executionId, status, executionItem.CurrentStage)
}

func setExecutionState(executionId string, status tables.ExecStatus, stageName string) error {
	input := &dynamodb.UpdateItemInput{
		Key: map[string]*dynamodb.AttributeValue{
			"ExecutionID": {
				S: aws.String(executionId),
			},
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":s": {
				S: aws.String(string(status)),
			},
			":c": {
				S: aws.String(stageName),
			},
			":u": {
				N: aws.String(strconv.FormatInt(time.Now().UnixMilli(), 10)),
			},
		},
		TableName:        aws.String(dynamo_configuration.TABLE_PIPELINE_EXECUTION),
		ReturnValues:     aws.String("NONE"),
		UpdateExpression: aws.String("SET ExecStatus = :s, CurrentStage = :c, UpdatedAtEpochMilli = :u"),
	}
	_, err := svc.UpdateItem(input)
	if err != nil {
		log.Printf("correlationID: %s error updating execution state to %s: %s", executionId, status, err)
	}
	return err
}

// GetStaleRunningExecutions pages through Running executions created before
// the cutoff. Consumed by the stale-execution reaper.
func GetStaleRunningExecutions(cutoffEpochMilli int64, lastPageKey string, lastPageSortKey string) ([]tables.PipelineExecution, string, string, error) {
	queryInput := &dynamodb.QueryInput{
		TableName:              aws.String(dynamo_configuration.TABLE_PIPELINE_EXECUTION),
		IndexName:              aws.String(dynamo_configuration.EXECUTION_STATUS_GSI_NAME),
		KeyConditionExpression: aws.String("ExecStatus = :s AND CreatedAtEpochMilli <= :t"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":s": {
				S: aws.String(string(tables.RUNNING_EXECUTION)),
			},
			":t": {
				N: aws.String(strconv.FormatInt(cutoffEpochMilli, 10)),
			},
		},
	}
	if lastPageKey != "" {
		queryInput.SetExclusiveStartKey(map[string]*dynamodb.AttributeValue{
			"ExecStatus": {
				S: aws.String(lastPageKey),
			},
			"CreatedAtEpochMilli": {
				N: aws.String(lastPageSortKey),
			},
		})
	}
	queryOutput, err := svc.Query(queryInput)
	if err != nil {
		log.Printf("unable to query stale executions: %s", err)
		return []tables.PipelineExecution{}, "", "", err
	}

	const pk = "ExecStatus"
	const sk = "CreatedAtEpochMilli"
	pagePk := ""
	pageSk := ""
	if _, ok := queryOutput.LastEvaluatedKey[pk]; ok {
		pagePk = *queryOutput.LastEvaluatedKey[pk].S
	}
	if _, ok := queryOutput.LastEvaluatedKey[sk]; ok {
		pageSk = *queryOutput.LastEvaluatedKey[sk].N
	}

	results := []tables.PipelineExecution{}
	for _, item := range queryOutput.Items {
		tmpItem := tables.PipelineExecution{}
		err = dynamodbattribute.UnmarshalMap(item, &tmpItem)
		if err != nil {
			log.Printf("error unmarshalling execution item: %s", err)
			return []tables.PipelineExecution{}, "", "", err
		}
		results = append(results, tmpItem)
	}

	return results, pagePk, pageSk, nil
}

func hasConditionalFailure(err error) bool {
	if err == nil {
		return false
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
	}
	return false
}

func powInt(x, y int) int {
	return int(math.Pow(float64(x), float64(y)))
}

func debugPrintExecution(item tables.PipelineExecution) {
	b, _ := json.Marshal(item)
	log.Print(fmt.Sprintf("execution: %s", string(b)))
}
