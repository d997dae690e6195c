package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Add stores every chunk of a document in one transaction. A failure rolls
// the whole document back so it is never left partially indexed.
func (s *PostgresStore) Add(ctx context.Context, docID uuid.UUID, meta DocumentMeta, chunks []string, vectors [][]float32) (err error) {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document has no chunks")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for idx, text := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", docID, idx)
		if _, err = tx.Exec(ctx, `
			INSERT INTO rag_chunks (id, doc_id, chunk_index, conversation_id, filename, uploaded_at, total_chunks, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, chunkID, docID, idx, meta.ConversationID, meta.Filename, meta.UploadedAt, len(chunks), text, pgvector.NewVector(vectors[idx])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *PostgresStore) Query(ctx context.Context, vector []float32, topK int, docID *uuid.UUID) ([]RetrievalResult, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT content, doc_id, chunk_index, filename, uploaded_at, total_chunks,
		       (embedding <=> $1::vector) AS distance
		FROM rag_chunks
	`
	args := []any{pgvector.NewVector(vector), topK}
	if docID != nil {
		query += " WHERE doc_id = $3"
		args = append(args, *docID)
	}
	query += " ORDER BY embedding <=> $1::vector LIMIT $2"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]RetrievalResult, 0, topK)
	for rows.Next() {
		var item RetrievalResult
		if scanErr := rows.Scan(
			&item.Content,
			&item.Metadata.DocID,
			&item.Metadata.ChunkIndex,
			&item.Metadata.Filename,
			&item.Metadata.UploadedAt,
			&item.Metadata.TotalChunks,
			&item.Distance,
		); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		item.HasDistance = true
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresStore) Delete(ctx context.Context, docID uuid.UUID) (bool, error) {
	if s.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM rag_chunks WHERE doc_id = $1", docID)
	if err != nil {
		return false, fmt.Errorf("delete document chunks: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListDocuments rebuilds one summary per distinct document from the chunk
// rows, newest upload first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (doc_id) doc_id, filename, conversation_id, uploaded_at, total_chunks
		FROM rag_chunks
		ORDER BY doc_id, chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]DocumentSummary, 0)
	for rows.Next() {
		var doc DocumentSummary
		if scanErr := rows.Scan(&doc.DocID, &doc.Filename, &doc.ConversationID, &doc.UploadedAt, &doc.TotalChunks); scanErr != nil {
			return nil, fmt.Errorf("scan document summary: %w", scanErr)
		}
		docs = append(docs, doc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	return docs, nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := s.pool.Exec(ctx, "TRUNCATE rag_chunks"); err != nil {
		return fmt.Errorf("truncate rag_chunks: %w", err)
	}

	return nil
}
