package clients

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	dal "github.com/lumen-media-search/v1/dal"
	errs "github.com/lumen-media-search/v1/service/errs"
)

// Embedder turns text into a fixed-length vector. All vectors produced by
// one configured model share the same dimensionality.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

type embeddingRequest struct {
	InputText string `json:"inputText"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type BedrockEmbeddingClient struct {
	svc               *bedrockruntime.BedrockRuntime
	modelId           string
	maxRequestsPerMin int64
}

func NewBedrockEmbeddingClient(sess *session.Session, modelId string, maxRequestsPerMin int64) *BedrockEmbeddingClient {
	return &BedrockEmbeddingClient{
		svc:               bedrockruntime.New(sess),
		modelId:           modelId,
		maxRequestsPerMin: maxRequestsPerMin,
	}
}

func (c *BedrockEmbeddingClient) Embed(text string) ([]float64, error) {
	if !dal.IsCallable(dal.RATE_API_BEDROCK_EMBED, c.maxRequestsPerMin) {
		return nil, fmt.Errorf("embed model throttled: %w", errs.ErrUpstreamUnavailable)
	}

	requestBytes, err := json.Marshal(embeddingRequest{InputText: text})
	if err != nil {
		log.Printf("error marshalling embedding request: %s", err)
		return nil, err
	}

	output, err := c.svc.InvokeModel(&bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelId),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBytes,
	})
	if err != nil {
		log.Printf("error invoking embedding model %s: %s", c.modelId, err)
		return nil, fmt.Errorf("invoke %s: %s: %w", c.modelId, err, errs.ErrUpstreamUnavailable)
	}

	var response embeddingResponse
	err = json.Unmarshal(output.Body, &response)
	if err != nil {
		log.Printf("error unmarshalling embedding response: %s", err)
		return nil, fmt.Errorf("embedding response: %w", errs.ErrMalformedResponse)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response missing vector: %w", errs.ErrMalformedResponse)
	}

	return response.Embedding, nil
}
