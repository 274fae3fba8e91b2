package orchestration

import (
	"encoding/json"
	"log"

	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	clients "github.com/lumen-media-search/v1/service/clients"
	store "github.com/lumen-media-search/v1/service/store"
)

// ExtractStage runs the transcription endpoint against the raw upload and
// persists transcript segments plus keyframe refs. The endpoint drops the
// keyframe images under processed/{itemId}/frames/ on its own.
type ExtractStage struct {
	Store       store.ArtifactStore
	Transcriber clients.Transcriber
}

func (s *ExtractStage) GetStageName() string {
	return "ExtractStage"
}

func (s *ExtractStage) Run(execution tables.PipelineExecution) (string, error) {
	transcript, err := s.Transcriber.Transcribe(execution.ItemID, execution.SourceBucket, execution.SourceKey)
	if err != nil {
		log.Printf("correlationID: %s transcription failed: %s", execution.ExecutionID, err)
		return "", err
	}
	transcript.ItemID = execution.ItemID

	if len(transcript.Transcript.Segments) == 0 {
		log.Printf("correlationID: %s transcript has zero segments", execution.ExecutionID)
	}

	outputKey := store.TranscriptKey(execution.ItemID)
	artifactBytes, err := json.Marshal(transcript)
	if err != nil {
		log.Printf("correlationID: %s error marshalling transcript artifact: %s", execution.ExecutionID, err)
		return "", err
	}
	err = s.Store.Put(outputKey, artifactBytes, "application/json")
	if err != nil {
		return "", err
	}

	log.Printf("correlationID: %s extract complete: %d segments, %d keyframes",
		execution.ExecutionID, len(transcript.Transcript.Segments), len(transcript.Frames))
	return outputKey, nil
}
