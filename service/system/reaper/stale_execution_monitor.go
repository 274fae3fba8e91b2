package reaper

import (
	"log"
	"time"

	"github.com/google/uuid"
	config "github.com/lumen-media-search/v1/configuration"
	dal "github.com/lumen-media-search/v1/dal"
	tables "github.com/lumen-media-search/v1/dal/tables/v1"
)

// StartStaleExecutionWatch finalizes executions stuck in Running past the
// staleness threshold. It only flips status, it never restarts stages;
// re-uploading the source object is the recovery path.
func StartStaleExecutionWatch() {
	err := dal.InitDaemonEntry(dal.SYSTEM_EXECUTION_REAPER)
	if err != nil {
		log.Panic(err)
	}

	go processWatch(uuid.New().String())
}

func processWatch(processId string) {
	for { // infinite
		// Check every 3 min if can take process lock
		// if no, wait 5min
		const sixMinutes = 360000
		waitForOwnership(processId, dal.SYSTEM_EXECUTION_REAPER, sixMinutes)
		reapStaleExecutions()
		dal.TakeSystemLockOwnership(dal.SYSTEM_EXECUTION_REAPER, processId, sixMinutes)
		time.Sleep(time.Duration(5) * time.Minute)
	}
}

func reapStaleExecutions() {
	staleExecutions, err := getAllStaleExecutions()
	if err != nil {
		return
	}
	for _, e := range staleExecutions {
		if e.IsTerminal() {
			continue
		}
		log.Printf("correlationID: %s marking stale execution failed, stuck at stage %s", e.ExecutionID, e.CurrentStage)
		err = dal.SetExecutionTerminal(e.ExecutionID, tables.FAILED_EXECUTION)
		if err != nil {
			log.Printf("correlationID: %s error finalizing stale execution: %s", e.ExecutionID, err)
		}
	}
}

func getAllStaleExecutions() ([]tables.PipelineExecution, error) {
	cutoff := time.Now().UnixMilli() - config.GetEnvConfigs().ExecutionStaleMilli
	results := []tables.PipelineExecution{}
	pk := ""
	sk := ""
	var err error
	var queryResults []tables.PipelineExecution
	completedInitialCall := false
	for pk != "" || !completedInitialCall {
		queryResults, pk, sk, err = dal.GetStaleRunningExecutions(cutoff, pk, sk)
		if err != nil {
			log.Printf("error retrieving stale executions: %s", err)
			return results, err
		}
		results = append(results, queryResults...)
		completedInitialCall = true
	}

	return results, err
}

func waitForOwnership(processId string, system string, expiryMilli int64) {
	for {
		hasOwnership, err := dal.TakeSystemLockOwnership(system, processId, expiryMilli)
		if err != nil {
			log.Printf("error verifying lock ownership for system %s: %s", system, err)
		}

		if !hasOwnership {
			time.Sleep(time.Duration(3) * time.Minute)
		} else {
			break
		}
	}
}
