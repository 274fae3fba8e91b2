package configuration

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

type EnvConfigVals struct {
	MediaBucketName          string `yaml:"MediaBucketName"`
	DataSourceBucketName     string `yaml:"DataSourceBucketName"`
	UploadEventsQueueName    string `yaml:"UploadEventsQueueName"`
	PipelineCompleteSNSTopic string `yaml:"PipelineCompleteSNSTopic"`
	EmbeddingModelID         string `yaml:"EmbeddingModelID"`
	VisionModelID            string `yaml:"VisionModelID"`
	TranscribeEndpointName   string `yaml:"TranscribeEndpointName"`
	MaxModelRequestsPerMin   int64  `yaml:"MaxModelRequestsPerMin"`
	PollVisibilityTimeoutSec int64  `yaml:"PollVisibilityTimeoutSec"`
	PollWaitSec              int64  `yaml:"PollWaitSec"`
	PollPeriodMilli          int64  `yaml:"PollPeriodMilli"`
	MaxMessagesPerPoll       int64  `yaml:"MaxMessagesPerPoll"`
	MaxConsumers             int    `yaml:"MaxConsumers"`
	ExecutionStaleMilli      int64  `yaml:"ExecutionStaleMilli"`
	AppendStageMaxRetries    int    `yaml:"AppendStageMaxRetries"`
	SearchDefaultTopK        int    `yaml:"SearchDefaultTopK"`
	SearchMaxCollectionScan  int64  `yaml:"SearchMaxCollectionScan"`
}

var configSync sync.Once
var EnvConfigs *EnvConfigVals

func GetEnvConfigs() *EnvConfigVals {
	if EnvConfigs != nil {
		return EnvConfigs
	}
	configSync.Do(func() {
		var configFile []byte
		var err error
		if os.Getenv("env") == "" || os.Getenv("env") != "prod" {
			configFile, err = os.ReadFile("./configuration/env-dev.yml")
		} else {
			configFile, err = os.ReadFile("./configuration/env-prod.yml")
		}

		if err != nil {
			log.Fatalf("failed to load config file: %s", err)
		}

		var vals EnvConfigVals
		err = yaml.Unmarshal(configFile, &vals)
		if err != nil {
			log.Fatalf("failed to unmarshall config file values: %s", err)
		}
		EnvConfigs = &vals
	})
	return EnvConfigs
}
