package orchestration

import (
	"encoding/json"
	"fmt"
	"log"

	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	clients "github.com/lumen-media-search/v1/service/clients"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
)

const frameMediaType = "image/jpeg"

// OcrStage enriches the transcript with on-screen text read from each
// keyframe. One frame failing OCR yields a placeholder empty-text slide;
// the stage keeps processing the remaining frames.
type OcrStage struct {
	Store  store.ArtifactStore
	Vision clients.VisionClient
}

func (s *OcrStage) GetStageName() string {
	return "OcrStage"
}

func (s *OcrStage) Run(execution tables.PipelineExecution) (string, error) {
	transcriptBytes, err := s.Store.Get(store.TranscriptKey(execution.ItemID))
	if err != nil {
		log.Printf("correlationID: %s unable to read transcript artifact: %s", execution.ExecutionID, err)
		return "", err
	}
	var transcript models.TranscriptArtifact
	err = json.Unmarshal(transcriptBytes, &transcript)
	if err != nil {
		log.Printf("correlationID: %s error unmarshalling transcript artifact: %s", execution.ExecutionID, err)
		return "", err
	}

	outputKey := store.OcrKey(execution.ItemID)
	result := models.OcrArtifact{
		ItemID: execution.ItemID,
		Slides: []models.SlideOcrResult{},
	}

	if len(transcript.Frames) == 0 {
		// Empty-but-present beats missing: downstream stages rely on the
		// artifact existing even with zero keyframes.
		log.Printf("correlationID: %s no keyframes found, writing empty ocr artifact", execution.ExecutionID)
		return outputKey, s.writeResult(outputKey, result)
	}

	log.Printf("correlationID: %s processing %d keyframes", execution.ExecutionID, len(transcript.Frames))
	for _, frame := range transcript.Frames {
		slideText, err := s.ocrFrame(execution.ItemID, frame.FrameFile)
		if err != nil {
			log.Printf("correlationID: %s ocr failed for %s: %s", execution.ExecutionID, frame.FrameFile, err)
			slideText = ""
		}
		result.Slides = append(result.Slides, models.SlideOcrResult{
			FrameFile: frame.FrameFile,
			Timestamp: frame.Timestamp,
			Text:      slideText,
		})
	}

	err = s.writeResult(outputKey, result)
	if err != nil {
		return "", err
	}
	log.Printf("correlationID: %s ocr complete: %d slides processed", execution.ExecutionID, len(result.Slides))
	return outputKey, nil
}

func (s *OcrStage) ocrFrame(itemId string, frameFile string) (string, error) {
	imageBytes, err := s.Store.Get(store.FrameKey(itemId, frameFile))
	if err != nil {
		return "", fmt.Errorf("fetching frame %s: %w", frameFile, err)
	}
	return s.Vision.ReadSlideText(imageBytes, frameMediaType)
}

func (s *OcrStage) writeResult(outputKey string, result models.OcrArtifact) error {
	artifactBytes, err := json.Marshal(result)
	if err != nil {
		log.Printf("error marshalling ocr artifact: %s", err)
		return err
	}
	return s.Store.Put(outputKey, artifactBytes, "application/json")
}
