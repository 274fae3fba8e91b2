package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"

	errs "github.com/lumen-media-search/v1/service/errs"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Get(key string) ([]byte, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", key, errs.ErrNotFound)
	}
	return body, nil
}

func (f *fakeStore) Put(key string, body []byte, contentType string) error {
	f.objects[key] = body
	return nil
}

func (f *fakeStore) List(prefix string, maxKeys int64) ([]string, error) {
	keys := []string{}
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if int64(len(keys)) > maxKeys {
		keys = keys[:maxKeys]
	}
	return keys, nil
}

type fakeEmbedder struct {
	vector []float64
	calls  int
}

func (f *fakeEmbedder) Embed(text string) ([]float64, error) {
	f.calls++
	return f.vector, nil
}

func storeCollection(artifactStore *fakeStore, itemId string, embeddings ...[]float64) {
	chunks := []models.VectorChunk{}
	for i, embedding := range embeddings {
		chunks = append(chunks, models.VectorChunk{
			Chunk: models.Chunk{
				ID:        i,
				Text:      fmt.Sprintf("%s chunk %d", itemId, i),
				StartTime: float64(i) * 45,
				EndTime:   float64(i+1) * 45,
				Source:    "audio",
			},
			Embedding: embedding,
		})
	}
	collection := models.VectorCollection{
		ItemID:     itemId,
		ChunkCount: len(chunks),
		Chunks:     chunks,
	}
	collectionBytes, _ := json.Marshal(collection)
	artifactStore.objects[store.VectorsKey(itemId)] = collectionBytes
}

func newTestService(artifactStore *fakeStore, embedder *fakeEmbedder) *SearchService {
	return NewSearchService(artifactStore, embedder, 100, DefaultTopK)
}

func TestSearchEmptyQueryRejectedBeforeEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1, 0}}
	service := newTestService(&fakeStore{objects: map[string][]byte{}}, embedder)

	_, err := service.Search("", "", 5)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = service.Search("   ", "", 5)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument, "whitespace-only query should be rejected")
	assert.Equal(t, 0, embedder.calls, "invalid queries should never reach the embedding model")
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	artifactStore := &fakeStore{objects: map[string][]byte{}}
	storeCollection(artifactStore, "lecture-1", []float64{1, 0}, []float64{0, 1})
	service := newTestService(artifactStore, &fakeEmbedder{vector: []float64{0.9, 0.1}})

	results, err := service.Search("database indexes", "lecture-1", 5)

	assert.Nil(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "lecture-1 chunk 0", results[0].Text, "chunk aligned with the query should rank first")
	assert.InDelta(t, 0.9938, results[0].Score, 0.0001)
	assert.InDelta(t, 0.1104, results[1].Score, 0.0001)
	assert.Equal(t, "lecture-1", results[0].ItemID)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	artifactStore := &fakeStore{objects: map[string][]byte{}}
	embeddings := [][]float64{}
	for i := 0; i < 10; i++ {
		embeddings = append(embeddings, []float64{1, 0})
	}
	storeCollection(artifactStore, "lecture-1", embeddings...)
	service := newTestService(artifactStore, &fakeEmbedder{vector: []float64{1, 0}})

	results, err := service.Search("anything", "lecture-1", 3)
	assert.Nil(t, err)
	assert.Len(t, results, 3)

	results, err = service.Search("anything", "lecture-1", 0)
	assert.Nil(t, err)
	assert.Len(t, results, DefaultTopK, "non-positive k should fall back to the default")
}

func TestSearchStableTieOrder(t *testing.T) {
	artifactStore := &fakeStore{objects: map[string][]byte{}}
	storeCollection(artifactStore, "lecture-1",
		[]float64{1, 0}, []float64{1, 0}, []float64{1, 0})
	service := newTestService(artifactStore, &fakeEmbedder{vector: []float64{1, 0}})

	results, err := service.Search("anything", "lecture-1", 5)
	assert.Nil(t, err)
	assert.Equal(t, "lecture-1 chunk 0", results[0].Text, "equal scores keep discovery order")
	assert.Equal(t, "lecture-1 chunk 1", results[1].Text)
	assert.Equal(t, "lecture-1 chunk 2", results[2].Text)
}

func TestSearchMissingCollectionIsEmptySuccess(t *testing.T) {
	service := newTestService(&fakeStore{objects: map[string][]byte{}}, &fakeEmbedder{vector: []float64{1, 0}})

	results, err := service.Search("anything", "no-such-item", 5)
	assert.Nil(t, err, "missing targeted collection should not be an error")
	assert.Empty(t, results)
}

func TestSearchCorruptCollectionSkipped(t *testing.T) {
	artifactStore := &fakeStore{objects: map[string][]byte{}}
	storeCollection(artifactStore, "good-item", []float64{1, 0})
	artifactStore.objects[store.VectorsKey("bad-item")] = []byte("{not json")
	service := newTestService(artifactStore, &fakeEmbedder{vector: []float64{1, 0}})

	results, err := service.Search("anything", "", 5)
	assert.Nil(t, err)
	assert.Len(t, results, 1, "corrupt collections should be skipped, not fail the search")
	assert.Equal(t, "good-item", results[0].ItemID)

	results, err = service.Search("anything", "bad-item", 5)
	assert.Nil(t, err, "targeting a corrupt collection should yield empty results")
	assert.Empty(t, results)
}

func TestSearchAllSpansCollections(t *testing.T) {
	artifactStore := &fakeStore{objects: map[string][]byte{}}
	storeCollection(artifactStore, "item-a", []float64{1, 0})
	storeCollection(artifactStore, "item-b", []float64{0, 1})
	service := newTestService(artifactStore, &fakeEmbedder{vector: []float64{0, 1}})

	results, err := service.Search("anything", "", 5)
	assert.Nil(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "item-b", results[0].ItemID, "best match across collections should rank first")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{0.3, 0.4}, []float64{0.3, 0.4}), 1e-9, "self similarity should be 1")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), "orthogonal vectors score 0")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}), "zero-norm vector scores 0, never NaN")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{}, []float64{}), "empty vectors score 0")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 1}), "mismatched dimensions score 0")
	assert.Equal(t,
		CosineSimilarity([]float64{0.2, 0.8}, []float64{0.5, 0.5}),
		CosineSimilarity([]float64{0.5, 0.5}, []float64{0.2, 0.8}),
		"similarity should be symmetric")
}
