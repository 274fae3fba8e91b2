package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

type ExecStatus string

const (
	PENDING_EXECUTION   ExecStatus = "PENDING"
	RUNNING_EXECUTION   ExecStatus = "RUNNING"
	COMPLETED_EXECUTION ExecStatus = "COMPLETED" // Terminal, success.
	FAILED_EXECUTION    ExecStatus = "FAILED"    // Terminal, failure.
)

type MediaKind string

const (
	MEDIA_VIDEO MediaKind = "Video"
	MEDIA_IMAGE MediaKind = "Image"
)

type StageStatus string

const (
	STAGE_SUCCESS StageStatus = "Success"
	STAGE_FAILED  StageStatus = "Failed"
)

// One row per pipeline attempt. ExecutionID doubles as the system
// correlation ID in logs.
type PipelineExecution struct {
	// Required
	ExecutionID         string // <itemId>.<eventEpochMilli>, deterministic per upload event.
	ItemID              string
	ExecStatus          ExecStatus // Directional status towards terminus.
	CreatedAtEpochMilli int64

	// Optional
	MediaKind           MediaKind
	SourceBucket        string
	SourceKey           string
	CurrentStage        string
	StageResults        string // JSON-encoded []StageResult, append-only audit trail.
	StageResultsVersion int64
	UpdatedAtEpochMilli int64
}

// Write-once per stage per execution; never mutated after creation.
type StageResult struct {
	StageName            string
	Status               StageStatus
	OutputArtifactKey    string
	Error                string
	RecordedAtEpochMilli int64
}

func (s *StageResult) GetResultID() string {
	return fmt.Sprintf("%s.%s", s.StageName, s.Status)
}

// DeriveExecutionID ties one upload event to at most one execution:
// duplicate delivery of the same event derives the same id, while a
// genuine re-upload (new event time) gets a fresh attempt.
func DeriveExecutionID(itemId string, eventTime time.Time) string {
	return fmt.Sprintf("%s.%d", itemId, eventTime.UnixMilli())
}

func (p *PipelineExecution) GetExistingStageResults() ([]StageResult, error) {
	var results []StageResult
	if p.StageResults == "" {
		return results, nil
	}
	err := json.Unmarshal([]byte(p.StageResults), &results)
	return results, err
}

func (p *PipelineExecution) IsTerminal() bool {
	return p.ExecStatus == COMPLETED_EXECUTION || p.ExecStatus == FAILED_EXECUTION
}
