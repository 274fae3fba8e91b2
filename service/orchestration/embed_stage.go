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

// EmbedStage vectorizes every chunk and writes the item's VectorCollection,
// the terminal artifact the search engine reads. A failed embedding call
// fails the stage: a placeholder zero vector would silently corrupt ranking.
type EmbedStage struct {
	Store    store.ArtifactStore
	Embedder clients.Embedder
}

func (s *EmbedStage) GetStageName() string {
	return "EmbedStage"
}

func (s *EmbedStage) Run(execution tables.PipelineExecution) (string, error) {
	chunksBytes, err := s.Store.Get(store.ChunksKey(execution.ItemID))
	if err != nil {
		log.Printf("correlationID: %s unable to read chunks artifact: %s", execution.ExecutionID, err)
		return "", err
	}
	var chunksData models.ChunksArtifact
	err = json.Unmarshal(chunksBytes, &chunksData)
	if err != nil {
		log.Printf("correlationID: %s error unmarshalling chunks artifact: %s", execution.ExecutionID, err)
		return "", err
	}

	log.Printf("correlationID: %s embedding %d chunks", execution.ExecutionID, len(chunksData.Chunks))
	vectorChunks := []models.VectorChunk{}
	for _, chunk := range chunksData.Chunks {
		embedding, err := s.Embedder.Embed(chunk.Text)
		if err != nil {
			log.Printf("correlationID: %s embedding failed for chunk %d: %s", execution.ExecutionID, chunk.ID, err)
			return "", fmt.Errorf("embedding chunk %d: %w", chunk.ID, err)
		}
		vectorChunks = append(vectorChunks, models.VectorChunk{
			Chunk:     chunk,
			Embedding: embedding,
		})
	}

	output := models.VectorCollection{
		ItemID:     execution.ItemID,
		ChunkCount: len(vectorChunks),
		Chunks:     vectorChunks,
	}
	artifactBytes, err := json.Marshal(output)
	if err != nil {
		log.Printf("correlationID: %s error marshalling vector collection: %s", execution.ExecutionID, err)
		return "", err
	}

	outputKey := store.VectorsKey(execution.ItemID)
	err = s.Store.Put(outputKey, artifactBytes, "application/json")
	if err != nil {
		return "", err
	}
	log.Printf("correlationID: %s embedding complete: %d vectors saved", execution.ExecutionID, len(vectorChunks))
	return outputKey, nil
}
