// Package vectorstore persists document chunks with their embeddings and
// serves similarity queries, hybrid reranking, and the relevance gate.
package vectorstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocumentMeta is the document-level metadata stamped onto every chunk row.
type DocumentMeta struct {
	Filename       string
	ConversationID string
	UploadedAt     time.Time
}

// ChunkMetadata identifies a stored chunk and carries enough document
// metadata to reconstruct a document summary without a separate table.
type ChunkMetadata struct {
	DocID       uuid.UUID
	ChunkIndex  int
	Filename    string
	UploadedAt  time.Time
	TotalChunks int
}

// RetrievalResult is one ranked chunk from a query. Distance is cosine
// distance in [0,2]; HasDistance guards against stores that cannot report it.
type RetrievalResult struct {
	Content     string
	Metadata    ChunkMetadata
	Distance    float64
	HasDistance bool
	Score       float64
}

type DocumentSummary struct {
	DocID          uuid.UUID
	Filename       string
	ConversationID string
	UploadedAt     time.Time
	TotalChunks    int
}

type Store interface {
	Add(ctx context.Context, docID uuid.UUID, meta DocumentMeta, chunks []string, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int, docID *uuid.UUID) ([]RetrievalResult, error)
	Delete(ctx context.Context, docID uuid.UUID) (bool, error)
	ListDocuments(ctx context.Context) ([]DocumentSummary, error)
	Reset(ctx context.Context) error
}
