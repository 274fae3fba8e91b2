package models

// Persisted artifact shapes. Field names are part of the on-disk contract:
// existing artifacts in the media bucket must stay readable across deploys.

type FrameRef struct {
	FrameFile string  `json:"frameFile"`
	Timestamp float64 `json:"timestamp"`
}

type TranscriptSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type TranscriptBody struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

// processed/{itemId}/transcript.json
type TranscriptArtifact struct {
	ItemID     string         `json:"itemId"`
	Frames     []FrameRef     `json:"frames"`
	Transcript TranscriptBody `json:"transcript"`
}

type SlideOcrResult struct {
	FrameFile string  `json:"frameFile"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// processed/{itemId}/ocr.json
type OcrArtifact struct {
	ItemID string           `json:"itemId"`
	Slides []SlideOcrResult `json:"slides"`
}

type Chunk struct {
	ID        int     `json:"id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Source    string  `json:"source"`
}

// chunked/{itemId}/chunks.json
type ChunksArtifact struct {
	ItemID     string  `json:"itemId"`
	ChunkCount int     `json:"chunkCount"`
	Chunks     []Chunk `json:"chunks"`
}

type VectorChunk struct {
	Chunk
	Embedding []float64 `json:"embedding"`
}

// vectors/{itemId}.json - the unit of persistence and retrieval for search.
// Written exactly once by the embed stage, read-only afterwards.
type VectorCollection struct {
	ItemID     string        `json:"itemId"`
	ChunkCount int           `json:"chunkCount"`
	Chunks     []VectorChunk `json:"chunks"`
}

// images/{itemId}.json - structured sidecar next to the human-readable
// images/{itemId}.txt document. Readers take fields from here instead of
// re-parsing metadata lines out of the text blob.
type ImageDocumentMeta struct {
	ItemID      string `json:"itemId"`
	Filename    string `json:"filename"`
	SourceKey   string `json:"s3Key"`
	OcrText     string `json:"ocrText"`
	Description string `json:"description"`
	ProcessedAt string `json:"processedAt"`
}
