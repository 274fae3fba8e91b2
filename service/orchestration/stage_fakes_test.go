package orchestration

import (
	"fmt"
	"sort"
	"strings"

	clients "github.com/lumen-media-search/v1/service/clients"
	errs "github.com/lumen-media-search/v1/service/errs"
)

type fakeStore struct {
	objects map[string][]byte
	getErrs map[string]error
	putErrs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string][]byte{},
		getErrs: map[string]error{},
		putErrs: map[string]error{},
	}
}

func (f *fakeStore) Get(key string) ([]byte, error) {
	if err, ok := f.getErrs[key]; ok {
		return nil, err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", key, errs.ErrNotFound)
	}
	return body, nil
}

func (f *fakeStore) Put(key string, body []byte, contentType string) error {
	if err, ok := f.putErrs[key]; ok {
		return err
	}
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

// Maps frame bytes to slide text so tests can fail specific frames.
type fakeVision struct {
	textByImage map[string]string
	errByImage  map[string]error
}

func (f *fakeVision) ReadSlideText(imageBytes []byte, mediaType string) (string, error) {
	if err, ok := f.errByImage[string(imageBytes)]; ok {
		return "", err
	}
	return f.textByImage[string(imageBytes)], nil
}

func (f *fakeVision) Analyze(fileBytes []byte, mediaType string) (clients.VisionAnalysis, error) {
	return clients.VisionAnalysis{}, nil
}

type fakeEmbedder struct {
	vectorsByText map[string][]float64
	errByText     map[string]error
	calls         []string
}

func (f *fakeEmbedder) Embed(text string) ([]float64, error) {
	f.calls = append(f.calls, text)
	if err, ok := f.errByText[text]; ok {
		return nil, err
	}
	if vector, ok := f.vectorsByText[text]; ok {
		return vector, nil
	}
	return []float64{1, 0}, nil
}
