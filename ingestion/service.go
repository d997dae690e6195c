// Package ingestion turns uploaded documents into stored, searchable chunks.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabfab/ragchat/embeddings"
	"github.com/fabfab/ragchat/vectorstore"
)

// Validation failures the API layer maps to client errors.
var (
	ErrUnsupportedFormat = errors.New("only pdf files are supported")
	ErrFileTooLarge      = errors.New("file exceeds the maximum allowed size")
)

type Service struct {
	store    vectorstore.Store
	embedder embeddings.Embedder
	chunker  *Chunker
	logger   *zap.Logger
	maxBytes int64
}

type Result struct {
	DocID      uuid.UUID
	Filename   string
	ChunkCount int
}

func NewService(store vectorstore.Store, embedder embeddings.Embedder, chunker *Chunker, logger *zap.Logger, maxUploadMB int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chunker == nil {
		chunker = NewChunker(defaultChunkSize, defaultChunkOverlap)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}

	return &Service{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// IngestPDF validates, extracts, chunks, embeds, and stores one uploaded
// document. Storage is transactional: a failure leaves no trace of the
// document in the store.
func (s *Service) IngestPDF(ctx context.Context, filename string, data []byte, conversationID string) (Result, error) {
	if s.embedder == nil {
		return Result{}, fmt.Errorf("embedder not configured")
	}
	if s.store == nil {
		return Result{}, fmt.Errorf("vector store not configured")
	}

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return Result{}, ErrUnsupportedFormat
	}
	if int64(len(data)) > s.maxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(data), s.maxBytes)
	}

	text, err := ExtractPDF(data)
	if err != nil {
		return Result{}, fmt.Errorf("extract document text: %w", err)
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("document produced no chunks")
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return Result{}, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	docID := uuid.New()
	meta := vectorstore.DocumentMeta{
		Filename:       filename,
		ConversationID: conversationID,
		UploadedAt:     time.Now().UTC(),
	}

	if err := s.store.Add(ctx, docID, meta, chunks, vectors); err != nil {
		return Result{}, fmt.Errorf("store document: %w", err)
	}

	s.logger.Info("ingested document",
		zap.String("doc_id", docID.String()),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))

	return Result{DocID: docID, Filename: filename, ChunkCount: len(chunks)}, nil
}
