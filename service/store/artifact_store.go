package store

import "fmt"

// ArtifactStore is the only channel of data between pipeline stages. Stages
// pass keys, never payloads. Get returns errs.ErrNotFound (wrapped) for a
// missing key so callers can distinguish absent from broken.
type ArtifactStore interface {
	Get(key string) ([]byte, error)
	Put(key string, body []byte, contentType string) error
	List(prefix string, maxKeys int64) ([]string, error)
}

// Key layout. Writers and readers share these so the convention lives in
// exactly one place.
const VectorsPrefix = "vectors/"

func TranscriptKey(itemId string) string {
	return fmt.Sprintf("processed/%s/transcript.json", itemId)
}

func OcrKey(itemId string) string {
	return fmt.Sprintf("processed/%s/ocr.json", itemId)
}

func FrameKey(itemId string, frameFile string) string {
	return fmt.Sprintf("processed/%s/frames/%s", itemId, frameFile)
}

func ChunksKey(itemId string) string {
	return fmt.Sprintf("chunked/%s/chunks.json", itemId)
}

func VectorsKey(itemId string) string {
	return fmt.Sprintf("%s%s.json", VectorsPrefix, itemId)
}

func ImageTextKey(itemId string) string {
	return fmt.Sprintf("images/%s.txt", itemId)
}

func ImageMetaKey(itemId string) string {
	return fmt.Sprintf("images/%s.json", itemId)
}
