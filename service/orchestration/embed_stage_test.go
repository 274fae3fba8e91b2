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

func storeChunks(artifactStore *fakeStore, itemId string, chunks []models.Chunk) {
	artifact := models.ChunksArtifact{
		ItemID:     itemId,
		ChunkCount: len(chunks),
		Chunks:     chunks,
	}
	artifactBytes, _ := json.Marshal(artifact)
	artifactStore.objects[store.ChunksKey(itemId)] = artifactBytes
}

func TestEmbedStageWritesVectorCollection(t *testing.T) {
	artifactStore := newFakeStore()
	storeChunks(artifactStore, "item-1", []models.Chunk{
		{ID: 0, Text: "[audio] first", StartTime: 0, EndTime: 45, Source: "audio"},
		{ID: 1, Text: "[audio] second", StartTime: 45, EndTime: 60, Source: "audio"},
	})

	embedder := &fakeEmbedder{vectorsByText: map[string][]float64{
		"[audio] first":  {0.1, 0.2},
		"[audio] second": {0.3, 0.4},
	}}
	stage := &EmbedStage{Store: artifactStore, Embedder: embedder}
	outputKey, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.Nil(t, err)
	assert.Equal(t, store.VectorsKey("item-1"), outputKey)

	var output models.VectorCollection
	err = json.Unmarshal(artifactStore.objects[outputKey], &output)
	assert.Nil(t, err)
	assert.Equal(t, 2, output.ChunkCount)
	assert.Equal(t, []float64{0.1, 0.2}, output.Chunks[0].Embedding)
	assert.Equal(t, []float64{0.3, 0.4}, output.Chunks[1].Embedding)
	assert.Equal(t, "[audio] first", output.Chunks[0].Text, "chunk fields should carry through to the vector record")
}

func TestEmbedStageFailsWhenEmbeddingFails(t *testing.T) {
	artifactStore := newFakeStore()
	storeChunks(artifactStore, "item-1", []models.Chunk{
		{ID: 0, Text: "good chunk"},
		{ID: 1, Text: "bad chunk"},
	})

	embedder := &fakeEmbedder{errByText: map[string]error{
		"bad chunk": errors.New("throttled"),
	}}
	stage := &EmbedStage{Store: artifactStore, Embedder: embedder}
	_, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.NotNil(t, err, "a failed embedding call should fail the stage")
	_, exists := artifactStore.objects[store.VectorsKey("item-1")]
	assert.False(t, exists, "no partial vector collection should be written")
}

func TestEmbedStageEmptyChunksStillWritesCollection(t *testing.T) {
	artifactStore := newFakeStore()
	storeChunks(artifactStore, "item-1", nil)

	stage := &EmbedStage{Store: artifactStore, Embedder: &fakeEmbedder{}}
	outputKey, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})

	assert.Nil(t, err)
	var output models.VectorCollection
	json.Unmarshal(artifactStore.objects[outputKey], &output)
	assert.Equal(t, 0, output.ChunkCount, "empty collection should still be persisted")
}

func TestEmbedStageRequiresChunksArtifact(t *testing.T) {
	stage := &EmbedStage{Store: newFakeStore(), Embedder: &fakeEmbedder{}}
	_, err := stage.Run(tables.PipelineExecution{ExecutionID: "item-1.1", ItemID: "item-1"})
	assert.NotNil(t, err)
}
