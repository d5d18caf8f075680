package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FilingStore = (*FilingStore)(nil)

// FilingStore implements driven.FilingStore using PostgreSQL
type FilingStore struct {
	db *DB
}

// NewFilingStore creates a new FilingStore
func NewFilingStore(db *DB) *FilingStore {
	return &FilingStore{db: db}
}

const filingColumns = `id, ticker, cik, filing_type, accession_no, fiscal_year, filing_date, source_url, status, chunk_count, error, created_at, updated_at`

// Save creates or updates a filing
func (s *FilingStore) Save(ctx context.Context, filing *domain.Filing) error {
	query := `
		INSERT INTO filings (` + filingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			accession_no = EXCLUDED.accession_no,
			fiscal_year = EXCLUDED.fiscal_year,
			filing_date = EXCLUDED.filing_date,
			source_url = EXCLUDED.source_url,
			status = EXCLUDED.status,
			chunk_count = EXCLUDED.chunk_count,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		filing.ID,
		filing.Ticker,
		filing.CIK,
		string(filing.Type),
		filing.AccessionNo,
		filing.FiscalYear,
		filing.FilingDate,
		filing.SourceURL,
		string(filing.Status),
		filing.ChunkCount,
		filing.Error,
		filing.CreatedAt,
		filing.UpdatedAt,
	)
	return err
}

// Get retrieves a filing by ID
func (s *FilingStore) Get(ctx context.Context, id string) (*domain.Filing, error) {
	query := `SELECT ` + filingColumns + ` FROM filings WHERE id = $1`
	return s.scanFiling(s.db.QueryRowContext(ctx, query, id))
}

// GetByAccession retrieves a filing by EDGAR accession number
func (s *FilingStore) GetByAccession(ctx context.Context, accessionNo string) (*domain.Filing, error) {
	query := `SELECT ` + filingColumns + ` FROM filings WHERE accession_no = $1`
	return s.scanFiling(s.db.QueryRowContext(ctx, query, accessionNo))
}

// ListByCompany retrieves filings for a ticker, newest first
func (s *FilingStore) ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error) {
	query := `
		SELECT ` + filingColumns + `
		FROM filings
		WHERE ticker = $1
		ORDER BY filing_date DESC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, ticker, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanFilings(rows)
}

// List retrieves all filings, newest first
func (s *FilingStore) List(ctx context.Context, limit, offset int) ([]*domain.Filing, error) {
	query := `
		SELECT ` + filingColumns + `
		FROM filings
		ORDER BY filing_date DESC, id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanFilings(rows)
}

// UpdateStatus updates the pipeline status and error message
func (s *FilingStore) UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMsg string) error {
	query := `
		UPDATE filings
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, string(status), errMsg)
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

// Delete deletes a filing
func (s *FilingStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM filings WHERE id = $1`, id)
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

// DeleteByCompany deletes all filings for a ticker
func (s *FilingStore) DeleteByCompany(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filings WHERE ticker = $1`, ticker)
	return err
}

// Count returns total filing count
func (s *FilingStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM filings`).Scan(&count)
	return count, err
}

// CountByCompany returns filing count for a ticker
func (s *FilingStore) CountByCompany(ctx context.Context, ticker string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM filings WHERE ticker = $1`, ticker).Scan(&count)
	return count, err
}

func (s *FilingStore) scanFiling(row *sql.Row) (*domain.Filing, error) {
	var filing domain.Filing
	var filingType, status string

	err := row.Scan(
		&filing.ID,
		&filing.Ticker,
		&filing.CIK,
		&filingType,
		&filing.AccessionNo,
		&filing.FiscalYear,
		&filing.FilingDate,
		&filing.SourceURL,
		&status,
		&filing.ChunkCount,
		&filing.Error,
		&filing.CreatedAt,
		&filing.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	filing.Type = domain.FilingType(filingType)
	filing.Status = domain.FilingStatus(status)
	return &filing, nil
}

func (s *FilingStore) scanFilings(rows *sql.Rows) ([]*domain.Filing, error) {
	var filings []*domain.Filing
	for rows.Next() {
		var filing domain.Filing
		var filingType, status string
		err := rows.Scan(
			&filing.ID,
			&filing.Ticker,
			&filing.CIK,
			&filingType,
			&filing.AccessionNo,
			&filing.FiscalYear,
			&filing.FilingDate,
			&filing.SourceURL,
			&status,
			&filing.ChunkCount,
			&filing.Error,
			&filing.CreatedAt,
			&filing.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		filing.Type = domain.FilingType(filingType)
		filing.Status = domain.FilingStatus(status)
		filings = append(filings, &filing)
	}
	return filings, rows.Err()
}
