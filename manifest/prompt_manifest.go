package manifest

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

// Model instruction texts live in yaml so prompt tuning does not require a
// recompile.
type PromptManifest struct {
	SlideOcrPrompt      string `yaml:"slideOcrPrompt"`
	ImageAnalysisPrompt string `yaml:"imageAnalysisPrompt"`
}

var manifestInstance *PromptManifest
var once sync.Once

func GetPromptManifest() *PromptManifest {
	if manifestInstance != nil {
		return manifestInstance
	}
	once.Do(func() {
		initManifest()
	})
	return manifestInstance
}

func initManifest() {
	promptFile, err := os.ReadFile("./manifest/model_prompts.yml")
	if err != nil {
		log.Fatalf("failed to load model prompt manifest: %s", err)
	}

	var prompts PromptManifest
	err = yaml.Unmarshal(promptFile, &prompts)
	if err != nil {
		log.Fatalf("failed to unmarshall model prompt manifest: %s", err)
	}
	manifestInstance = &prompts
}
