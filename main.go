package main

import (
	"log"
	"net/http"

	config "github.com/lumen-media-search/v1/configuration"
	dynamo_configuration "github.com/lumen-media-search/v1/configuration/dynamo"
	handlers "github.com/lumen-media-search/v1/handlers"
	manifest "github.com/lumen-media-search/v1/manifest"
	clients "github.com/lumen-media-search/v1/service/clients"
	ingestion "github.com/lumen-media-search/v1/service/ingestion"
	orchestration "github.com/lumen-media-search/v1/service/orchestration"
	search "github.com/lumen-media-search/v1/service/search"
	store "github.com/lumen-media-search/v1/service/store"
	reaper "github.com/lumen-media-search/v1/service/system/reaper"
)

const route_health = "/health"
const route_search = "/v1/search"
const route_s3_events = "/v1/events/s3"

func main() {
	envConfigs := config.GetEnvConfigs()
	dynamo_configuration.Init()
	manifest.GetPromptManifest()

	sess := config.GetAwsSession()
	mediaStore := store.NewS3ArtifactStore(sess, envConfigs.MediaBucketName)
	dataSourceStore := store.NewS3ArtifactStore(sess, envConfigs.DataSourceBucketName)

	embedder := clients.NewBedrockEmbeddingClient(sess, envConfigs.EmbeddingModelID, envConfigs.MaxModelRequestsPerMin)
	vision := clients.NewBedrockVisionClient(sess, envConfigs.VisionModelID, envConfigs.MaxModelRequestsPerMin)
	transcriber := clients.NewSageMakerTranscribeClient(sess, envConfigs.TranscribeEndpointName, envConfigs.MaxModelRequestsPerMin)

	pipeline := orchestration.NewPipelineService(
		&orchestration.ExtractStage{Store: mediaStore, Transcriber: transcriber},
		&orchestration.OcrStage{Store: mediaStore, Vision: vision},
		&orchestration.ChunkStage{Store: mediaStore},
		&orchestration.EmbedStage{Store: mediaStore, Embedder: embedder},
	)
	imageWorkflow := ingestion.NewImageWorkflow(mediaStore, dataSourceStore, vision)
	trigger := ingestion.NewTriggerService(pipeline, imageWorkflow)
	searchService := search.NewSearchService(mediaStore, embedder, envConfigs.SearchMaxCollectionScan, envConfigs.SearchDefaultTopK)

	http.HandleFunc(route_health, handlers.HandlerHealthCheck)
	http.HandleFunc(route_search, handlers.HandlerSearch(searchService))
	http.HandleFunc(route_s3_events, handlers.HandlerS3Notification(trigger))

	go ingestion.PollForUploadEvents(trigger)
	reaper.StartStaleExecutionWatch()
	log.Fatal(http.ListenAndServe(":8080", nil))
}
