package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// The searchable copy lives in the corpus index; this table is the
// durable record used for reindexing.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkUpsert = `
	INSERT INTO filing_chunks (id, filing_id, ticker, company, filing_type, section, fiscal_year, filing_date, position, text, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		filing_id = EXCLUDED.filing_id,
		company = EXCLUDED.company,
		section = EXCLUDED.section,
		filing_date = EXCLUDED.filing_date,
		position = EXCLUDED.position,
		text = EXCLUDED.text
`

// Save creates or updates a chunk
func (s *ChunkStore) Save(ctx context.Context, chunk *domain.Chunk) error {
	_, err := s.db.ExecContext(ctx, chunkUpsert, chunkArgs(chunk)...)
	return err
}

// SaveBatch saves multiple chunks in a transaction
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, chunkUpsert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			if _, err := stmt.ExecContext(ctx, chunkArgs(chunk)...); err != nil {
				return err
			}
		}
		return nil
	})
}

func chunkArgs(chunk *domain.Chunk) []any {
	return []any{
		chunk.ID,
		chunk.FilingID,
		chunk.Ticker,
		chunk.Company,
		string(chunk.FilingType),
		chunk.Section,
		chunk.FiscalYear,
		chunk.FilingDate,
		chunk.Position,
		chunk.Text,
		chunk.CreatedAt,
	}
}

// GetByFiling retrieves all chunks for a filing, ordered by position
func (s *ChunkStore) GetByFiling(ctx context.Context, filingID string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, filing_id, ticker, company, filing_type, section, fiscal_year, filing_date, position, text, created_at
		FROM filing_chunks
		WHERE filing_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, filingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var filingType string
		err := rows.Scan(
			&chunk.ID,
			&chunk.FilingID,
			&chunk.Ticker,
			&chunk.Company,
			&filingType,
			&chunk.Section,
			&chunk.FiscalYear,
			&chunk.FilingDate,
			&chunk.Position,
			&chunk.Text,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunk.FilingType = domain.FilingType(filingType)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// Delete deletes a chunk
func (s *ChunkStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM filing_chunks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByFiling deletes all chunks for a filing
func (s *ChunkStore) DeleteByFiling(ctx context.Context, filingID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filing_chunks WHERE filing_id = $1`, filingID)
	return err
}

// DeleteByCompany deletes all chunks for a ticker
func (s *ChunkStore) DeleteByCompany(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filing_chunks WHERE ticker = $1`, ticker)
	return err
}

// Count returns total chunk count
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM filing_chunks`).Scan(&count)
	return count, err
}
