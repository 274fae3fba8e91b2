package search

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	clients "github.com/lumen-media-search/v1/service/clients"
	errs "github.com/lumen-media-search/v1/service/errs"
	models "github.com/lumen-media-search/v1/service/models"
	store "github.com/lumen-media-search/v1/service/store"
)

const DefaultTopK = 5

// TODO: paginate the vectors/ listing beyond the first page; the cap keeps
// the scan bounded but is a ceiling on the searchable corpus.
const defaultMaxCollectionScan = 100

type SearchResult struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	ItemID    string  `json:"itemId"`
}

// SearchService ranks stored chunks against a query embedding with a linear
// cosine scan over the persisted vector collections. It never writes
// artifacts. Swapping the scan for a real vector index would happen behind
// loadCandidates.
type SearchService struct {
	Store             store.ArtifactStore
	Embedder          clients.Embedder
	MaxCollectionScan int64
	DefaultTopK       int
}

func NewSearchService(artifactStore store.ArtifactStore, embedder clients.Embedder, maxCollectionScan int64, defaultTopK int) *SearchService {
	if maxCollectionScan <= 0 {
		maxCollectionScan = defaultMaxCollectionScan
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &SearchService{
		Store:             artifactStore,
		Embedder:          embedder,
		MaxCollectionScan: maxCollectionScan,
		DefaultTopK:       defaultTopK,
	}
}

// Search returns the top-k chunks by cosine similarity to the query. An
// empty query fails before any embedding call. A targeted itemId whose
// collection is missing or unreadable yields zero results, not an error.
func (s *SearchService) Search(query string, itemId string, k int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", errs.ErrInvalidArgument)
	}
	if k <= 0 {
		k = s.DefaultTopK
	}

	queryEmbedding, err := s.Embedder.Embed(query)
	if err != nil {
		return nil, err
	}

	candidates := s.loadCandidates(itemId)

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, SearchResult{
			Text:      c.chunk.Text,
			StartTime: c.chunk.StartTime,
			EndTime:   c.chunk.EndTime,
			Source:    c.chunk.Source,
			Score:     CosineSimilarity(queryEmbedding, c.chunk.Embedding),
			ItemID:    c.itemId,
		})
	}

	// Stable sort: equal scores keep discovery order, so identical inputs
	// rank identically.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

type candidate struct {
	itemId string
	chunk  models.VectorChunk
}

func (s *SearchService) loadCandidates(itemId string) []candidate {
	allChunks := []candidate{}

	if itemId != "" {
		collection := s.readVectorCollection(store.VectorsKey(itemId))
		if collection == nil {
			return allChunks
		}
		for _, chunk := range collection.Chunks {
			allChunks = append(allChunks, candidate{itemId: collection.ItemID, chunk: chunk})
		}
		return allChunks
	}

	keys, err := s.Store.List(store.VectorsPrefix, s.MaxCollectionScan)
	if err != nil {
		log.Printf("error listing vector collections: %s", err)
		return allChunks
	}
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		collection := s.readVectorCollection(key)
		if collection == nil {
			continue
		}
		for _, chunk := range collection.Chunks {
			allChunks = append(allChunks, candidate{itemId: collection.ItemID, chunk: chunk})
		}
	}
	return allChunks
}

// Best-effort: a missing or corrupt collection is nil, never an error.
func (s *SearchService) readVectorCollection(key string) *models.VectorCollection {
	collectionBytes, err := s.Store.Get(key)
	if err != nil {
		log.Printf("skipping unreadable vector collection %s: %s", key, err)
		return nil
	}
	var collection models.VectorCollection
	err = json.Unmarshal(collectionBytes, &collection)
	if err != nil {
		log.Printf("skipping corrupt vector collection %s: %s", key, err)
		return nil
	}
	return &collection
}

// CosineSimilarity over two vectors. A zero-norm vector (or mismatched
// dimensionality) scores 0 rather than propagating NaN into the ordering.
func CosineSimilarity(a []float64, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	dot := 0.0
	normA := 0.0
	normB := 0.0
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
