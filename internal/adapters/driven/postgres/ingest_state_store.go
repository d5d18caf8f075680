package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IngestStateStore = (*IngestStateStore)(nil)

// IngestStateStore implements driven.IngestStateStore using PostgreSQL
type IngestStateStore struct {
	db *DB
}

// NewIngestStateStore creates a new IngestStateStore
func NewIngestStateStore(db *DB) *IngestStateStore {
	return &IngestStateStore{db: db}
}

// Save creates or updates ingest state
func (s *IngestStateStore) Save(ctx context.Context, state *domain.IngestState) error {
	statsJSON, err := json.Marshal(state.Stats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ingest_state (ticker, status, last_sync_at, next_sync_at, stats, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker) DO UPDATE SET
			status = EXCLUDED.status,
			last_sync_at = EXCLUDED.last_sync_at,
			next_sync_at = EXCLUDED.next_sync_at,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		state.Ticker,
		string(state.Status),
		NullTime(state.LastSyncAt),
		NullTime(state.NextSyncAt),
		statsJSON,
		state.Error,
		NullTime(state.StartedAt),
		NullTime(state.CompletedAt),
	)
	return err
}

// Get retrieves ingest state for a ticker
func (s *IngestStateStore) Get(ctx context.Context, ticker string) (*domain.IngestState, error) {
	query := `
		SELECT ticker, status, last_sync_at, next_sync_at, stats, error, started_at, completed_at
		FROM ingest_state
		WHERE ticker = $1
	`

	var state domain.IngestState
	var status string
	var statsJSON []byte
	var lastSync, nextSync, started, completed sql.NullTime

	err := s.db.QueryRowContext(ctx, query, ticker).Scan(
		&state.Ticker,
		&status,
		&lastSync,
		&nextSync,
		&statsJSON,
		&state.Error,
		&started,
		&completed,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	state.Status = domain.IngestStatus(status)
	state.LastSyncAt = TimePtr(lastSync)
	state.NextSyncAt = TimePtr(nextSync)
	state.StartedAt = TimePtr(started)
	state.CompletedAt = TimePtr(completed)
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &state.Stats); err != nil {
			return nil, err
		}
	}
	return &state, nil
}

// List retrieves ingest states for all companies
func (s *IngestStateStore) List(ctx context.Context) ([]*domain.IngestState, error) {
	query := `
		SELECT ticker, status, last_sync_at, next_sync_at, stats, error, started_at, completed_at
		FROM ingest_state
		ORDER BY ticker ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.IngestState
	for rows.Next() {
		var state domain.IngestState
		var status string
		var statsJSON []byte
		var lastSync, nextSync, started, completed sql.NullTime

		err := rows.Scan(
			&state.Ticker,
			&status,
			&lastSync,
			&nextSync,
			&statsJSON,
			&state.Error,
			&started,
			&completed,
		)
		if err != nil {
			return nil, err
		}

		state.Status = domain.IngestStatus(status)
		state.LastSyncAt = TimePtr(lastSync)
		state.NextSyncAt = TimePtr(nextSync)
		state.StartedAt = TimePtr(started)
		state.CompletedAt = TimePtr(completed)
		if len(statsJSON) > 0 {
			if err := json.Unmarshal(statsJSON, &state.Stats); err != nil {
				return nil, err
			}
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// Delete deletes ingest state for a ticker
func (s *IngestStateStore) Delete(ctx context.Context, ticker string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ingest_state WHERE ticker = $1`, ticker)
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

// UpdateStatus updates only the status field
func (s *IngestStateStore) UpdateStatus(ctx context.Context, ticker string, status domain.IngestStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE ingest_state SET status = $2 WHERE ticker = $1`,
		ticker, string(status),
	)
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
