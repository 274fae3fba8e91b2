package orchestration

import (
	"log"
	"time"

	dal "github.com/lumen-media-search/v1/dal"
	tables "github.com/lumen-media-search/v1/dal/tables/v1"
)

// Stage is one unit of the fixed processing sequence. Run reads its upstream
// artifact(s) by key convention and writes its own output artifact,
// returning the output key. Stages never pass payloads to each other.
type Stage interface {
	GetStageName() string
	Run(execution tables.PipelineExecution) (string, error)
}

// PipelineService drives the fixed stage sequence for one media item:
// Extract -> OCR -> Chunk -> Embed. Stages run strictly in order; a stage
// failure halts the execution. Re-running a stage is safe because every
// stage overwrites its output deterministically from the same upstream
// artifact.
type PipelineService struct {
	stagesToRun []Stage
}

func NewPipelineService(stages ...Stage) *PipelineService {
	return &PipelineService{stagesToRun: stages}
}

// StartExecution persists the execution record and begins stage 1
// asynchronously. A duplicate start for the same derived execution id
// returns errs.ErrAlreadyRunning from the substrate.
func (p *PipelineService) StartExecution(itemId string, bucket string, sourceKey string, eventTime time.Time) (string, error) {
	executionId := tables.DeriveExecutionID(itemId, eventTime)
	item := tables.PipelineExecution{
		ExecutionID:  executionId,
		ItemID:       itemId,
		MediaKind:    tables.MEDIA_VIDEO,
		SourceBucket: bucket,
		SourceKey:    sourceKey,
	}
	err := dal.CreateExecution(item)
	if err != nil {
		log.Printf("correlationID: %s failed to create execution record: %s", executionId, err)
		return "", err
	}

	log.Printf("correlationID: %s starting pipeline for item %s", executionId, itemId)
	go p.runStages(item)
	return executionId, nil
}

func (p *PipelineService) runStages(execution tables.PipelineExecution) {
	for _, s := range p.stagesToRun {
		err := dal.SetExecutionRunning(execution.ExecutionID, s.GetStageName())
		if err != nil {
			log.Printf("correlationID: %s unable to mark stage %s running: %s", execution.ExecutionID, s.GetStageName(), err)
			return
		}

		log.Printf("correlationID: %s running %s", execution.ExecutionID, s.GetStageName())
		outputKey, stageErr := s.Run(execution)
		appendErr := dal.AppendStageResult(execution.ExecutionID, toStageResult(s.GetStageName(), outputKey, stageErr))
		if appendErr != nil {
			log.Printf("correlationID: %s unable to record result for %s: %s", execution.ExecutionID, s.GetStageName(), appendErr)
		}

		if stageErr != nil {
			// Later stages never run against a missing upstream artifact.
			log.Printf("correlationID: %s stage %s failed, halting execution: %s", execution.ExecutionID, s.GetStageName(), stageErr)
			dal.SetExecutionTerminal(execution.ExecutionID, tables.FAILED_EXECUTION)
			return
		}
	}

	err := dal.SetExecutionTerminal(execution.ExecutionID, tables.COMPLETED_EXECUTION)
	if err != nil {
		log.Printf("correlationID: %s unable to mark execution completed: %s", execution.ExecutionID, err)
		return
	}
	log.Printf("correlationID: %s pipeline completed for item %s", execution.ExecutionID, execution.ItemID)

	err = PublishPipelineCompleteSns(execution)
	if err != nil {
		log.Printf("correlationID: %s failed to publish completion notification: %s", execution.ExecutionID, err)
	}
}

func toStageResult(stageName string, outputKey string, stageErr error) tables.StageResult {
	result := tables.StageResult{
		StageName:         stageName,
		Status:            tables.STAGE_SUCCESS,
		OutputArtifactKey: outputKey,
	}
	if stageErr != nil {
		result.Status = tables.STAGE_FAILED
		result.Error = stageErr.Error()
	}
	return result
}
