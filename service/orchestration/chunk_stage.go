package orchestration

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"sort"
	"strings"

	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	errs "github.com/lumen-media-search/v1/service/errs"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
	"golang.org/x/text/unicode/norm"
)

// Target chunk length in seconds of media time.
const chunkDurationSec = 45.0

// ChunkStage groups transcript segments into bounded, timestamped chunks and
// folds in slide OCR text whose timestamp falls inside each chunk window.
// Chunk ids reflect temporal order; downstream neighbor-merging heuristics
// depend on that ordering.
type ChunkStage struct {
	Store store.ArtifactStore
}

func (s *ChunkStage) GetStageName() string {
	return "ChunkStage"
}

func (s *ChunkStage) Run(execution tables.PipelineExecution) (string, error) {
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

	// OCR output is an enrichment; a missing or unreadable ocr.json means
	// audio-only chunks, not a failed stage.
	slides := []models.SlideOcrResult{}
	ocrBytes, err := s.Store.Get(store.OcrKey(execution.ItemID))
	if errors.Is(err, errs.ErrNotFound) {
		log.Printf("correlationID: %s no ocr data found, proceeding with audio only", execution.ExecutionID)
	} else if err != nil {
		log.Printf("correlationID: %s ocr data read error, proceeding without: %s", execution.ExecutionID, err)
	} else {
		var ocr models.OcrArtifact
		err = json.Unmarshal(ocrBytes, &ocr)
		if err != nil {
			log.Printf("correlationID: %s ocr data unmarshal error, proceeding without: %s", execution.ExecutionID, err)
		} else {
			slides = ocr.Slides
		}
	}

	chunks := BuildChunks(transcript.Transcript.Segments, slides)
	output := models.ChunksArtifact{
		ItemID:     execution.ItemID,
		ChunkCount: len(chunks),
		Chunks:     chunks,
	}
	artifactBytes, err := json.Marshal(output)
	if err != nil {
		log.Printf("correlationID: %s error marshalling chunks artifact: %s", execution.ExecutionID, err)
		return "", err
	}

	outputKey := store.ChunksKey(execution.ItemID)
	err = s.Store.Put(outputKey, artifactBytes, "application/json")
	if err != nil {
		return "", err
	}
	log.Printf("correlationID: %s chunking complete: %d chunks", execution.ExecutionID, len(chunks))
	return outputKey, nil
}

// BuildChunks groups segments on media time until the target duration is
// reached, closing each chunk with the slide texts observed inside its
// window. Zero segments yields zero chunks.
func BuildChunks(segments []models.TranscriptSegment, slides []models.SlideOcrResult) []models.Chunk {
	chunks := []models.Chunk{}
	if len(segments) == 0 {
		return chunks
	}

	sortedSlides := make([]models.SlideOcrResult, len(slides))
	copy(sortedSlides, slides)
	sort.SliceStable(sortedSlides, func(i, j int) bool {
		return sortedSlides[i].Timestamp < sortedSlides[j].Timestamp
	})

	currentChunkId := 0
	currentTexts := []string{}
	chunkStart := segments[0].Start

	for _, seg := range segments {
		currentTexts = append(currentTexts, seg.Text)

		if seg.End-chunkStart >= chunkDurationSec {
			chunks = append(chunks, buildChunk(currentChunkId, currentTexts, sortedSlides, chunkStart, seg.End))
			currentChunkId++
			currentTexts = []string{}
			chunkStart = seg.End
		}
	}

	// Remaining segments go into a final short chunk.
	if len(currentTexts) > 0 {
		chunkEnd := segments[len(segments)-1].End
		chunks = append(chunks, buildChunk(currentChunkId, currentTexts, sortedSlides, chunkStart, chunkEnd))
	}

	return chunks
}

func buildChunk(id int, texts []string, sortedSlides []models.SlideOcrResult, start float64, end float64) models.Chunk {
	audioText := strings.Join(texts, " ")
	slideTexts := slideTextsInWindow(sortedSlides, start, end)

	chunkText := "[audio] " + audioText
	source := "audio"
	if len(slideTexts) > 0 {
		chunkText += " [slides] " + strings.Join(slideTexts, " / ")
		source = "audio+slide"
	}

	return models.Chunk{
		ID:        id,
		Text:      norm.NFC.String(chunkText),
		StartTime: roundTime(start),
		EndTime:   roundTime(end),
		Source:    source,
	}
}

func slideTextsInWindow(sortedSlides []models.SlideOcrResult, start float64, end float64) []string {
	texts := []string{}
	for _, slide := range sortedSlides {
		if slide.Timestamp >= start && slide.Timestamp < end && slide.Text != "" {
			texts = append(texts, slide.Text)
		}
	}
	return texts
}

func roundTime(t float64) float64 {
	return math.Round(t*100) / 100
}
