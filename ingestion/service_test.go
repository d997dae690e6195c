package ingestion

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fabfab/ragchat/vectorstore"
)

type recordingStore struct {
	addCalled bool
	addErr    error
}

func (s *recordingStore) Add(_ context.Context, _ uuid.UUID, _ vectorstore.DocumentMeta, _ []string, _ [][]float32) error {
	s.addCalled = true
	return s.addErr
}

func (s *recordingStore) Query(_ context.Context, _ []float32, _ int, _ *uuid.UUID) ([]vectorstore.RetrievalResult, error) {
	return nil, nil
}

func (s *recordingStore) Delete(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (s *recordingStore) ListDocuments(_ context.Context) ([]vectorstore.DocumentSummary, error) {
	return nil, nil
}

func (s *recordingStore) Reset(_ context.Context) error {
	return nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (e fixedEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func TestIngestRejectsNonPDF(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, fixedEmbedder{}, nil, nil, 10)

	_, err := svc.IngestPDF(context.Background(), "notes.txt", []byte("plain text"), "default")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, store.addCalled)
}

func TestIngestRejectsMissingExtension(t *testing.T) {
	svc := NewService(&recordingStore{}, fixedEmbedder{}, nil, nil, 10)

	_, err := svc.IngestPDF(context.Background(), "document", []byte("data"), "default")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestExtensionIsCaseInsensitive(t *testing.T) {
	svc := NewService(&recordingStore{}, fixedEmbedder{}, nil, nil, 10)

	// not a real document, so extraction fails, but the extension check passed
	_, err := svc.IngestPDF(context.Background(), "REPORT.PDF", []byte("junk"), "default")
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestRejectsOversizeFile(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, fixedEmbedder{}, nil, nil, 1)

	oversized := bytes.Repeat([]byte{0x25}, 2*1024*1024)
	_, err := svc.IngestPDF(context.Background(), "big.pdf", oversized, "default")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.False(t, store.addCalled)
}
