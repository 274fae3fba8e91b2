package orchestration

import (
	"encoding/json"
	"errors"
	"testing"

	tables "github.com/lumen-media-search/v1/dal/tables/v1"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
	"github.com/stretchr/testify/assert"
)

func storeTranscript(artifactStore *fakeStore, itemId string, frames []models.FrameRef) {
	transcript := models.TranscriptArtifact{
		ItemID: itemId,
		Frames: frames,
	}
	transcriptBytes, _ := json.Marshal(transcript)
	artifactStore.objects[store.TranscriptKey(itemId)] = transcriptBytes
}

func TestOcrStageWritesEmptyArtifactWithoutFrames(t *testing.T) {
	artifactStore := newFakeStore()
	storeTranscript(artifactStore, "item-1", nil)

	stage := &OcrStage{Store: artifactStore, Vision: &fakeVision{}}
	outputKey, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.Nil(t, err)
	assert.Equal(t, store.OcrKey("item-1"), outputKey)

	var output models.OcrArtifact
	err = json.Unmarshal(artifactStore.objects[outputKey], &output)
	assert.Nil(t, err, "empty ocr artifact should still be written")
	assert.Equal(t, "item-1", output.ItemID)
	assert.Empty(t, output.Slides)
}

func TestOcrStageFrameFailureYieldsPlaceholderSlide(t *testing.T) {
	artifactStore := newFakeStore()
	storeTranscript(artifactStore, "item-1", []models.FrameRef{
		{FrameFile: "frame_0001.jpg", Timestamp: 10},
		{FrameFile: "frame_0002.jpg", Timestamp: 20},
		{FrameFile: "frame_0003.jpg", Timestamp: 30},
	})
	artifactStore.objects[store.FrameKey("item-1", "frame_0001.jpg")] = []byte("img-1")
	// frame_0002.jpg intentionally absent from the store.
	artifactStore.objects[store.FrameKey("item-1", "frame_0003.jpg")] = []byte("img-3")

	vision := &fakeVision{textByImage: map[string]string{
		"img-1": "Slide one",
		"img-3": "Slide three",
	}}
	stage := &OcrStage{Store: artifactStore, Vision: vision}
	outputKey, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.Nil(t, err, "a single failed frame should not fail the stage")

	var output models.OcrArtifact
	json.Unmarshal(artifactStore.objects[outputKey], &output)
	assert.Len(t, output.Slides, 3, "every frame should produce a slide entry")
	assert.Equal(t, "Slide one", output.Slides[0].Text)
	assert.Equal(t, "", output.Slides[1].Text, "failed frame should carry empty text")
	assert.Equal(t, "frame_0002.jpg", output.Slides[1].FrameFile)
	assert.Equal(t, 20.0, output.Slides[1].Timestamp)
	assert.Equal(t, "Slide three", output.Slides[2].Text)
}

func TestOcrStageVisionErrorYieldsPlaceholderSlide(t *testing.T) {
	artifactStore := newFakeStore()
	storeTranscript(artifactStore, "item-1", []models.FrameRef{
		{FrameFile: "frame_0001.jpg", Timestamp: 10},
	})
	artifactStore.objects[store.FrameKey("item-1", "frame_0001.jpg")] = []byte("img-1")

	vision := &fakeVision{errByImage: map[string]error{
		"img-1": errors.New("model unavailable"),
	}}
	stage := &OcrStage{Store: artifactStore, Vision: vision}
	outputKey, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.Nil(t, err)
	var output models.OcrArtifact
	json.Unmarshal(artifactStore.objects[outputKey], &output)
	assert.Len(t, output.Slides, 1)
	assert.Equal(t, "", output.Slides[0].Text)
}

func TestOcrStageRequiresTranscript(t *testing.T) {
	stage := &OcrStage{Store: newFakeStore(), Vision: &fakeVision{}}
	_, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})
	assert.NotNil(t, err, "missing transcript artifact should fail the stage")
}
