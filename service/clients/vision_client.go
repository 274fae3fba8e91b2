package clients

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	dal "github.com/lumen-media-search/v1/dal"
	errs "github.com/lumen-media-search/v1/service/errs"
	manifest "github.com/lumen-media-search/v1/manifest"
)

type VisionAnalysis struct {
	OcrText     string
	Description string
}

// VisionClient wraps the vision model. ReadSlideText extracts on-screen text
// from a video keyframe; Analyze produces OCR text plus a description for an
// uploaded image or PDF.
type VisionClient interface {
	ReadSlideText(imageBytes []byte, mediaType string) (string, error)
	Analyze(fileBytes []byte, mediaType string) (VisionAnalysis, error)
}

const anthropicVersion = "bedrock-2023-05-31"
const visionMaxTokens = 2048
const mediaTypePdf = "application/pdf"

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type BedrockVisionClient struct {
	svc               *bedrockruntime.BedrockRuntime
	modelId           string
	maxRequestsPerMin int64
}

func NewBedrockVisionClient(sess *session.Session, modelId string, maxRequestsPerMin int64) *BedrockVisionClient {
	return &BedrockVisionClient{
		svc:               bedrockruntime.New(sess),
		modelId:           modelId,
		maxRequestsPerMin: maxRequestsPerMin,
	}
}

func (c *BedrockVisionClient) ReadSlideText(imageBytes []byte, mediaType string) (string, error) {
	responseText, err := c.invokeWithFile(imageBytes, mediaType,
		manifest.GetPromptManifest().SlideOcrPrompt)
	if err != nil {
		return "", err
	}
	return responseText, nil
}

func (c *BedrockVisionClient) Analyze(fileBytes []byte, mediaType string) (VisionAnalysis, error) {
	responseText, err := c.invokeWithFile(fileBytes, mediaType,
		manifest.GetPromptManifest().ImageAnalysisPrompt)
	if err != nil {
		return VisionAnalysis{}, err
	}
	return ParseVisionAnalysis(responseText), nil
}

func (c *BedrockVisionClient) invokeWithFile(fileBytes []byte, mediaType string, instruction string) (string, error) {
	if !dal.IsCallable(dal.RATE_API_BEDROCK_VISION, c.maxRequestsPerMin) {
		return "", fmt.Errorf("vision model throttled: %w", errs.ErrUpstreamUnavailable)
	}

	fileContentType := "image"
	if mediaType == mediaTypePdf {
		fileContentType = "document"
	}
	request := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        visionMaxTokens,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContent{
					{
						Type: fileContentType,
						Source: &anthropicSource{
							Type:      "base64",
							MediaType: mediaType,
							Data:      base64.StdEncoding.EncodeToString(fileBytes),
						},
					},
					{
						Type: "text",
						Text: instruction,
					},
				},
			},
		},
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		log.Printf("error marshalling vision request: %s", err)
		return "", err
	}

	output, err := c.svc.InvokeModel(&bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelId),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBytes,
	})
	if err != nil {
		log.Printf("error invoking vision model %s: %s", c.modelId, err)
		return "", fmt.Errorf("invoke %s: %s: %w", c.modelId, err, errs.ErrUpstreamUnavailable)
	}

	var response anthropicResponse
	err = json.Unmarshal(output.Body, &response)
	if err != nil {
		log.Printf("error unmarshalling vision response: %s", err)
		return "", fmt.Errorf("vision response: %w", errs.ErrMalformedResponse)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("vision response missing content: %w", errs.ErrMalformedResponse)
	}
	return response.Content[0].Text, nil
}

// ParseVisionAnalysis tolerates the model wrapping its JSON answer in prose.
// The first balanced {...} substring is parsed; when none parses, the raw
// text becomes the description and OCR text stays empty.
func ParseVisionAnalysis(responseText string) VisionAnalysis {
	jsonCandidate := extractBalancedJson(responseText)
	if jsonCandidate != "" {
		var parsed struct {
			OcrText     string `json:"ocrText"`
			Description string `json:"description"`
		}
		err := json.Unmarshal([]byte(jsonCandidate), &parsed)
		if err == nil {
			return VisionAnalysis{
				OcrText:     parsed.OcrText,
				Description: parsed.Description,
			}
		}
		log.Printf("failed to parse vision analysis json: %s", err)
	}

	return VisionAnalysis{
		OcrText:     "",
		Description: responseText,
	}
}

// extractBalancedJson returns the first balanced {...} substring, tracking
// brace depth outside of quoted strings. Empty string when none exists.
func extractBalancedJson(text string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
