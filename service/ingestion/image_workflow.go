package ingestion

import (
	"encoding/json"
	"log"
	"path/filepath"
	"strings"
	"time"

	dal "github.com/lumen-media-search/v1/dal"
	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	clients "github.com/lumen-media-search/v1/service/clients"
	models "github.com/lumen-media-search/v1/service/models"
	orchestration "github.com/lumen-media-search/v1/service/orchestration"
	store "github.com/lumen-media-search/v1/service/store"
)

// ImageWorkflow is the single-stage image pipeline: analyze the upload with
// the vision model, then write the terminal text document plus a structured
// metadata sidecar to the data-source bucket. Readers take metadata from the
// sidecar by field; nothing is parsed back out of the text blob.
type ImageWorkflow struct {
	RawStore  store.ArtifactStore
	DataStore store.ArtifactStore
	Vision    clients.VisionClient
}

var supportedImageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

func NewImageWorkflow(rawStore store.ArtifactStore, dataStore store.ArtifactStore, vision clients.VisionClient) *ImageWorkflow {
	return &ImageWorkflow{
		RawStore:  rawStore,
		DataStore: dataStore,
		Vision:    vision,
	}
}

func (w *ImageWorkflow) ProcessImage(itemId string, filename string, key string, eventTime time.Time) error {
	mediaType, supported := ResolveMediaType(filename)
	if !supported {
		log.Printf("unsupported extension, skipping: %s", key)
		return nil
	}

	claimed, err := dal.ClaimExecutionID(tables.DeriveExecutionID(itemId, eventTime))
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	log.Printf("correlationID: %s processing image %s", itemId, filename)
	imageBytes, err := w.RawStore.Get(key)
	if err != nil {
		log.Printf("correlationID: %s unable to read raw image: %s", itemId, err)
		return err
	}

	analysis, err := w.Vision.Analyze(imageBytes, mediaType)
	if err != nil {
		log.Printf("correlationID: %s vision analysis failed: %s", itemId, err)
		return err
	}

	meta := models.ImageDocumentMeta{
		ItemID:      itemId,
		Filename:    filename,
		SourceKey:   key,
		OcrText:     analysis.OcrText,
		Description: analysis.Description,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}

	err = w.DataStore.Put(store.ImageTextKey(itemId), []byte(buildTextDocument(meta)), "text/plain; charset=utf-8")
	if err != nil {
		return err
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		log.Printf("correlationID: %s error marshalling image metadata: %s", itemId, err)
		return err
	}
	err = w.DataStore.Put(store.ImageMetaKey(itemId), metaBytes, "application/json")
	if err != nil {
		return err
	}

	log.Printf("correlationID: %s done: %s -> %s", itemId, filename, store.ImageTextKey(itemId))
	err = orchestration.PublishImageDocumentSns(meta)
	if err != nil {
		log.Printf("correlationID: %s failed to publish image document notification: %s", itemId, err)
	}
	return nil
}

func buildTextDocument(meta models.ImageDocumentMeta) string {
	ocrText := meta.OcrText
	if ocrText == "" {
		ocrText = "(no text found)"
	}
	lines := []string{
		"# Image: " + meta.Filename,
		"",
		"## OCR Text",
		ocrText,
		"",
		"## Description",
		meta.Description,
	}
	return strings.Join(lines, "\n")
}

func ResolveMediaType(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType, ok := supportedImageMediaTypes[ext]
	return mediaType, ok
}
