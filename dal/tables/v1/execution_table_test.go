package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveExecutionIDDeterministic(t *testing.T) {
	eventTime := time.UnixMilli(1724800000000).UTC()
	first := DeriveExecutionID("lecture-1", eventTime)
	second := DeriveExecutionID("lecture-1", eventTime)

	assert.Equal(t, "lecture-1.1724800000000", first)
	assert.Equal(t, first, second, "same event must derive the same execution id")

	later := DeriveExecutionID("lecture-1", eventTime.Add(time.Second))
	assert.NotEqual(t, first, later, "a re-upload with a new event time is a fresh attempt")
}

func TestGetExistingStageResults(t *testing.T) {
	execution := PipelineExecution{}
	results, err := execution.GetExistingStageResults()
	assert.Nil(t, err)
	assert.Empty(t, results, "empty audit trail should parse as no results")

	recorded := []StageResult{
		{StageName: "ExtractStage", Status: STAGE_SUCCESS, OutputArtifactKey: "processed/lecture-1/transcript.json"},
	}
	resultBytes, _ := json.Marshal(recorded)
	execution.StageResults = string(resultBytes)

	results, err = execution.GetExistingStageResults()
	assert.Nil(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "ExtractStage", results[0].StageName)

	execution.StageResults = "{corrupt"
	_, err = execution.GetExistingStageResults()
	assert.NotNil(t, err)
}

func TestIsTerminal(t *testing.T) {
	execution := PipelineExecution{ExecStatus: RUNNING_EXECUTION}
	assert.False(t, execution.IsTerminal())

	execution.ExecStatus = COMPLETED_EXECUTION
	assert.True(t, execution.IsTerminal())

	execution.ExecStatus = FAILED_EXECUTION
	assert.True(t, execution.IsTerminal())
}

func TestStageResultID(t *testing.T) {
	result := StageResult{StageName: "EmbedStage", Status: STAGE_SUCCESS}
	assert.Equal(t, "EmbedStage.Success", result.GetResultID(), "result id keys the write-once stage set")
}
