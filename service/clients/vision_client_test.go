package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVisionAnalysisProseWrappedJson(t *testing.T) {
	analysis := ParseVisionAnalysis(`Sure! {"ocrText":"HELLO","description":"a sign"} hope that helps`)
	assert.Equal(t, "HELLO", analysis.OcrText)
	assert.Equal(t, "a sign", analysis.Description)
}

func TestParseVisionAnalysisBareJson(t *testing.T) {
	analysis := ParseVisionAnalysis(`{"ocrText":"","description":"a beach at sunset"}`)
	assert.Equal(t, "", analysis.OcrText)
	assert.Equal(t, "a beach at sunset", analysis.Description)
}

func TestParseVisionAnalysisPlainTextFallback(t *testing.T) {
	analysis := ParseVisionAnalysis("I could not find any readable text in this image.")
	assert.Equal(t, "", analysis.OcrText)
	assert.Equal(t, "I could not find any readable text in this image.", analysis.Description,
		"unparseable responses should land in the description")
}

func TestParseVisionAnalysisBracesInsideStrings(t *testing.T) {
	analysis := ParseVisionAnalysis(`{"ocrText":"if (x) { y(); }","description":"code on a whiteboard"}`)
	assert.Equal(t, "if (x) { y(); }", analysis.OcrText, "braces inside string values should not break extraction")
	assert.Equal(t, "code on a whiteboard", analysis.Description)
}

func TestParseVisionAnalysisMalformedJsonFallsBack(t *testing.T) {
	raw := `{"ocrText": HELLO}`
	analysis := ParseVisionAnalysis(raw)
	assert.Equal(t, "", analysis.OcrText)
	assert.Equal(t, raw, analysis.Description)
}

func TestExtractBalancedJsonNested(t *testing.T) {
	extracted := extractBalancedJson(`prefix {"a":{"b":1}} suffix {"c":2}`)
	assert.Equal(t, `{"a":{"b":1}}`, extracted, "only the first balanced object should be returned")
}

func TestExtractBalancedJsonNone(t *testing.T) {
	assert.Equal(t, "", extractBalancedJson("no json here"))
	assert.Equal(t, "", extractBalancedJson("unbalanced {"))
}
