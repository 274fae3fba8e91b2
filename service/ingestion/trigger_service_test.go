package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeObjectKey(t *testing.T) {
	decoded, err := DecodeObjectKey("raw-videos/lecture-1/My+Talk+%282024%29.mp4")
	assert.Nil(t, err)
	assert.Equal(t, "raw-videos/lecture-1/My Talk (2024).mp4", decoded)

	decoded, err = DecodeObjectKey("raw-videos/lecture-1/plain.mp4")
	assert.Nil(t, err)
	assert.Equal(t, "raw-videos/lecture-1/plain.mp4", decoded, "unencoded keys pass through unchanged")
}

func TestRawVideoKeyPattern(t *testing.T) {
	match := rawVideoKeyPattern.FindStringSubmatch("raw-videos/lecture-1/talk.mp4")
	assert.NotNil(t, match)
	assert.Equal(t, "lecture-1", match[1], "item id comes from the key prefix")

	assert.Nil(t, rawVideoKeyPattern.FindStringSubmatch("raw-images/img-1/photo.jpg"))
	assert.Nil(t, rawVideoKeyPattern.FindStringSubmatch("processed/lecture-1/transcript.json"))
	assert.Nil(t, rawVideoKeyPattern.FindStringSubmatch("raw-videos/orphan.mp4"), "keys without an item id folder should not match")
}

func TestResolveMediaType(t *testing.T) {
	mediaType, supported := ResolveMediaType("photo.JPG")
	assert.True(t, supported, "extension matching is case insensitive")
	assert.Equal(t, "image/jpeg", mediaType)

	mediaType, supported = ResolveMediaType("scan.pdf")
	assert.True(t, supported)
	assert.Equal(t, "application/pdf", mediaType)

	_, supported = ResolveMediaType("archive.zip")
	assert.False(t, supported)

	_, supported = ResolveMediaType("noextension")
	assert.False(t, supported)
}
