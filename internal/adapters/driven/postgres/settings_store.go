package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore using PostgreSQL.
// Settings and AI settings are singleton rows. API keys are encrypted
// at rest when an encryptor is provided.
type SettingsStore struct {
	db        *DB
	encryptor *SecretBox
}

// NewSettingsStore creates a new SettingsStore. The encryptor may be nil,
// in which case API keys are stored in plaintext (dev deployments only).
func NewSettingsStore(db *DB, encryptor *SecretBox) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetSettings retrieves the deployment settings
// Note: AI configuration is managed via AISettings (ai_settings table), not here
func (s *SettingsStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	query := `
		SELECT max_requests, section_candidates, merge_limit, per_request_limit,
			   context_budget, max_sources, ingest_enabled, filings_per_type,
			   refresh_interval_hours, updated_at, updated_by
		FROM settings
		WHERE id = 1
	`

	var settings domain.Settings
	var updatedBy sql.NullString

	err := s.db.QueryRowContext(ctx, query).Scan(
		&settings.MaxRequests,
		&settings.SectionCandidates,
		&settings.MergeLimit,
		&settings.PerRequestLimit,
		&settings.ContextBudget,
		&settings.MaxSources,
		&settings.IngestEnabled,
		&settings.FilingsPerType,
		&settings.RefreshIntervalH,
		&settings.UpdatedAt,
		&updatedBy,
	)
	if err == sql.ErrNoRows {
		// Return default settings if not found
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}

	settings.UpdatedBy = updatedBy.String

	return &settings, nil
}

// SaveSettings persists deployment settings
// Note: AI configuration is managed via SaveAISettings, not here
func (s *SettingsStore) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	query := `
		INSERT INTO settings (id, max_requests, section_candidates, merge_limit, per_request_limit,
							  context_budget, max_sources, ingest_enabled, filings_per_type,
							  refresh_interval_hours, updated_at, updated_by)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			max_requests = EXCLUDED.max_requests,
			section_candidates = EXCLUDED.section_candidates,
			merge_limit = EXCLUDED.merge_limit,
			per_request_limit = EXCLUDED.per_request_limit,
			context_budget = EXCLUDED.context_budget,
			max_sources = EXCLUDED.max_sources,
			ingest_enabled = EXCLUDED.ingest_enabled,
			filings_per_type = EXCLUDED.filings_per_type,
			refresh_interval_hours = EXCLUDED.refresh_interval_hours,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	settings.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, query,
		settings.MaxRequests,
		settings.SectionCandidates,
		settings.MergeLimit,
		settings.PerRequestLimit,
		settings.ContextBudget,
		settings.MaxSources,
		settings.IngestEnabled,
		settings.FilingsPerType,
		settings.RefreshIntervalH,
		settings.UpdatedAt,
		settings.UpdatedBy,
	)
	return err
}

// GetAISettings retrieves AI provider settings
func (s *SettingsStore) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	query := `
		SELECT embedding_provider, embedding_model, embedding_api_key, embedding_base_url,
			   llm_provider, llm_model, llm_api_key, llm_base_url, updated_at
		FROM ai_settings
		WHERE id = 1
	`

	var settings domain.AISettings
	var embProvider, embModel, embBaseURL sql.NullString
	var llmProvider, llmModel, llmBaseURL sql.NullString
	var embAPIKey, llmAPIKey []byte

	err := s.db.QueryRowContext(ctx, query).Scan(
		&embProvider,
		&embModel,
		&embAPIKey,
		&embBaseURL,
		&llmProvider,
		&llmModel,
		&llmAPIKey,
		&llmBaseURL,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Return empty settings if not found
		return &domain.AISettings{}, nil
	}
	if err != nil {
		return nil, err
	}

	if embProvider.Valid {
		settings.Embedding.Provider = domain.AIProvider(embProvider.String)
	}
	settings.Embedding.Model = embModel.String
	settings.Embedding.BaseURL = embBaseURL.String
	settings.Embedding.APIKey, err = s.decryptKey(embAPIKey)
	if err != nil {
		return nil, err
	}

	if llmProvider.Valid {
		settings.LLM.Provider = domain.AIProvider(llmProvider.String)
	}
	settings.LLM.Model = llmModel.String
	settings.LLM.BaseURL = llmBaseURL.String
	settings.LLM.APIKey, err = s.decryptKey(llmAPIKey)
	if err != nil {
		return nil, err
	}

	return &settings, nil
}

// SaveAISettings persists AI provider settings
func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	embAPIKey, err := s.encryptKey(settings.Embedding.APIKey)
	if err != nil {
		return err
	}
	llmAPIKey, err := s.encryptKey(settings.LLM.APIKey)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ai_settings (id, embedding_provider, embedding_model, embedding_api_key, embedding_base_url,
								 llm_provider, llm_model, llm_api_key, llm_base_url, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			embedding_provider = EXCLUDED.embedding_provider,
			embedding_model = EXCLUDED.embedding_model,
			embedding_api_key = EXCLUDED.embedding_api_key,
			embedding_base_url = EXCLUDED.embedding_base_url,
			llm_provider = EXCLUDED.llm_provider,
			llm_model = EXCLUDED.llm_model,
			llm_api_key = EXCLUDED.llm_api_key,
			llm_base_url = EXCLUDED.llm_base_url,
			updated_at = EXCLUDED.updated_at
	`

	settings.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, query,
		string(settings.Embedding.Provider),
		settings.Embedding.Model,
		embAPIKey,
		settings.Embedding.BaseURL,
		string(settings.LLM.Provider),
		settings.LLM.Model,
		llmAPIKey,
		settings.LLM.BaseURL,
		settings.UpdatedAt,
	)
	return err
}

// encryptKey encrypts an API key for storage. Empty keys are stored as NULL.
func (s *SettingsStore) encryptKey(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	if s.encryptor == nil {
		return []byte(key), nil
	}
	return s.encryptor.SealString(key)
}

// decryptKey decrypts a stored API key blob
func (s *SettingsStore) decryptKey(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}
	if s.encryptor == nil {
		return string(blob), nil
	}
	return s.encryptor.OpenString(blob)
}
