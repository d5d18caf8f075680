package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
)

// Mock services

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshFn       func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	switch token {
	case "admin-token":
		return &domain.AuthContext{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}, nil
	case "analyst-token":
		return &domain.AuthContext{UserID: "analyst-1", Email: "analyst@example.com", Role: domain.RoleAnalyst}, nil
	default:
		return nil, domain.ErrInvalidCredentials
	}
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, req)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error { return nil }

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return nil
}

type mockUserService struct {
	setupFn  func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
	createFn func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, domain.ErrAlreadyExists
}

func (m *mockUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, domain.ErrInvalidInput
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *mockUserService) List(ctx context.Context) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockUserService) SetPassword(ctx context.Context, id string, password string) error {
	return nil
}

type mockResearchService struct {
	answerFn   func(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error)
	retrieveFn func(ctx context.Context, req driving.AnswerRequest) (*domain.RetrievalResult, error)
}

func (m *mockResearchService) Answer(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, req)
	}
	return nil, errors.New("not configured")
}

func (m *mockResearchService) Retrieve(ctx context.Context, req driving.AnswerRequest) (*domain.RetrievalResult, error) {
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, req)
	}
	return &domain.RetrievalResult{}, nil
}

type mockCatalogService struct {
	companiesFn func(ctx context.Context) ([]domain.Company, error)
	companyFn   func(ctx context.Context, ticker string) (*domain.Company, error)
	conceptsFn  func(ctx context.Context) ([]domain.TaxonomyEntry, error)
	conceptFn   func(ctx context.Context, tag string) (*domain.TaxonomyEntry, error)
}

func (m *mockCatalogService) Companies(ctx context.Context) ([]domain.Company, error) {
	if m.companiesFn != nil {
		return m.companiesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) Company(ctx context.Context, ticker string) (*domain.Company, error) {
	if m.companyFn != nil {
		return m.companyFn(ctx, ticker)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogService) Concepts(ctx context.Context) ([]domain.TaxonomyEntry, error) {
	if m.conceptsFn != nil {
		return m.conceptsFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) Concept(ctx context.Context, tag string) (*domain.TaxonomyEntry, error) {
	if m.conceptFn != nil {
		return m.conceptFn(ctx, tag)
	}
	return nil, domain.ErrNotFound
}

type mockFilingService struct {
	getFn           func(ctx context.Context, id string) (*domain.Filing, error)
	listByCompanyFn func(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error)
	countByCompany  func(ctx context.Context, ticker string) (int, error)
}

func (m *mockFilingService) Get(ctx context.Context, id string) (*domain.Filing, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockFilingService) GetWithChunks(ctx context.Context, id string) (*driving.FilingWithChunks, error) {
	return nil, domain.ErrNotFound
}

func (m *mockFilingService) ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error) {
	if m.listByCompanyFn != nil {
		return m.listByCompanyFn(ctx, ticker, limit, offset)
	}
	return nil, nil
}

func (m *mockFilingService) Count(ctx context.Context) (int, error) { return 0, nil }

func (m *mockFilingService) CountByCompany(ctx context.Context, ticker string) (int, error) {
	if m.countByCompany != nil {
		return m.countByCompany(ctx, ticker)
	}
	return 0, nil
}

type mockIngestService struct {
	getStateFn   func(ctx context.Context, ticker string) (*domain.IngestState, error)
	listStatesFn func(ctx context.Context) ([]*domain.IngestState, error)
}

func (m *mockIngestService) SyncCompany(ctx context.Context, ticker string) (*domain.IngestResult, error) {
	return &domain.IngestResult{}, nil
}

func (m *mockIngestService) SyncCorpus(ctx context.Context) ([]*domain.IngestResult, error) {
	return nil, nil
}

func (m *mockIngestService) IngestFiling(ctx context.Context, filingID string) error { return nil }

func (m *mockIngestService) GetState(ctx context.Context, ticker string) (*domain.IngestState, error) {
	if m.getStateFn != nil {
		return m.getStateFn(ctx, ticker)
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestService) ListStates(ctx context.Context) ([]*domain.IngestState, error) {
	if m.listStatesFn != nil {
		return m.listStatesFn(ctx)
	}
	return nil, nil
}

type mockSettingsService struct {
	getFn           func(ctx context.Context) (*domain.Settings, error)
	updateFn        func(ctx context.Context, updaterID string, req driving.UpdateSettingsRequest) (*domain.Settings, error)
	getAISettingsFn func(ctx context.Context) (*domain.AISettings, error)
	getAIStatusFn   func(ctx context.Context) (*driving.AISettingsStatus, error)
	testFn          func(ctx context.Context) error
}

func (m *mockSettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return &domain.Settings{}, nil
}

func (m *mockSettingsService) Update(ctx context.Context, updaterID string, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, updaterID, req)
	}
	return &domain.Settings{}, nil
}

func (m *mockSettingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	if m.getAISettingsFn != nil {
		return m.getAISettingsFn(ctx)
	}
	return &domain.AISettings{}, nil
}

func (m *mockSettingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	return &driving.AISettingsStatus{}, nil
}

func (m *mockSettingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	if m.getAIStatusFn != nil {
		return m.getAIStatusFn(ctx)
	}
	return &driving.AISettingsStatus{}, nil
}

func (m *mockSettingsService) TestConnection(ctx context.Context) error {
	if m.testFn != nil {
		return m.testFn(ctx)
	}
	return nil
}

type mockVespaAdminService struct {
	statusFn func(ctx context.Context) (*driving.VespaStatus, error)
	healthFn func(ctx context.Context) error
}

func (m *mockVespaAdminService) Connect(ctx context.Context, req driving.ConnectVespaRequest) (*driving.VespaStatus, error) {
	return &driving.VespaStatus{Connected: true}, nil
}

func (m *mockVespaAdminService) Status(ctx context.Context) (*driving.VespaStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return &driving.VespaStatus{}, nil
}

func (m *mockVespaAdminService) HealthCheck(ctx context.Context) error {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return nil
}

type mockQueue struct {
	enqueueFn    func(ctx context.Context, task *domain.Task) error
	getTaskFn    func(ctx context.Context, taskID string) (*domain.Task, error)
	listTasksFn  func(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error)
	cancelTaskFn func(ctx context.Context, taskID string) error
	statsFn      func(ctx context.Context) (*driven.QueueStats, error)
	pingFn       func(ctx context.Context) error

	enqueued []*domain.Task
}

func (m *mockQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	m.enqueued = append(m.enqueued, task)
	return nil
}

func (m *mockQueue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error { return nil }

func (m *mockQueue) Dequeue(ctx context.Context) (*domain.Task, error) { return nil, nil }

func (m *mockQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return nil, nil
}

func (m *mockQueue) Ack(ctx context.Context, taskID string) error { return nil }

func (m *mockQueue) Nack(ctx context.Context, taskID string, reason string) error { return nil }

func (m *mockQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if m.getTaskFn != nil {
		return m.getTaskFn(ctx, taskID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockQueue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	if m.listTasksFn != nil {
		return m.listTasksFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockQueue) CancelTask(ctx context.Context, taskID string) error {
	if m.cancelTaskFn != nil {
		return m.cancelTaskFn(ctx, taskID)
	}
	return domain.ErrNotFound
}

func (m *mockQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) { return 0, nil }

func (m *mockQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &driven.QueueStats{}, nil
}

func (m *mockQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockQueue) Close() error { return nil }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// Test fixture

type fixture struct {
	server   *Server
	auth     *mockAuthService
	users    *mockUserService
	research *mockResearchService
	catalog  *mockCatalogService
	filings  *mockFilingService
	ingest   *mockIngestService
	settings *mockSettingsService
	vespa    *mockVespaAdminService
	queue    *mockQueue
	db       *mockPinger
}

func newFixture() *fixture {
	f := &fixture{
		auth:     &mockAuthService{},
		users:    &mockUserService{},
		research: &mockResearchService{},
		catalog:  &mockCatalogService{},
		filings:  &mockFilingService{},
		ingest:   &mockIngestService{},
		settings: &mockSettingsService{},
		vespa:    &mockVespaAdminService{},
		queue:    &mockQueue{},
		db:       &mockPinger{},
	}
	f.server = NewServer(DefaultConfig(), Services{
		Auth:       f.auth,
		Users:      f.users,
		Research:   f.research,
		Catalog:    f.catalog,
		Filings:    f.filings,
		Ingest:     f.ingest,
		Settings:   f.settings,
		VespaAdmin: f.vespa,
	}, f.queue, f.db, nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.server.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

// Health

func TestHandleHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	f := newFixture()
	f.db.err = errors.New("connection refused")

	rec := f.do(t, "GET", "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleReady_QueueDown(t *testing.T) {
	f := newFixture()
	f.queue.pingFn = func(ctx context.Context) error {
		return errors.New("queue down")
	}

	rec := f.do(t, "GET", "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// Auth

func TestHandleLogin_Success(t *testing.T) {
	f := newFixture()
	f.auth.authenticateFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
		if req.Email != "admin@example.com" {
			t.Errorf("unexpected email: %s", req.Email)
		}
		return &domain.LoginResponse{Token: "jwt-token"}, nil
	}

	rec := f.do(t, "POST", "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token != "jwt-token" {
		t.Errorf("expected token in response, got %q", resp.Token)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "POST", "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandleLogin_BadBody(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSetup(t *testing.T) {
	f := newFixture()
	f.users.setupFn = func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
		return &driving.SetupResponse{
			User:    &domain.User{ID: "u1", Email: req.Email, Role: domain.RoleAdmin},
			Message: "admin created",
		}, nil
	}

	rec := f.do(t, "POST", "/api/v1/setup", "", driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "secret1234",
		Name:     "Admin",
	})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSetup_AlreadyDone(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "POST", "/api/v1/setup", "", driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "secret1234",
		Name:     "Admin",
	})

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/api/v1/companies", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/v1/companies", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid token, got %d", rec.Code)
	}
}

func TestAdminRequired(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/api/v1/users", "analyst-token", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for analyst, got %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/v1/users", "admin-token", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestHandleDeleteUser_SelfDeletion(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "DELETE", "/api/v1/users/admin-1", "admin-token", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self deletion, got %d", rec.Code)
	}
}

// Research

func TestHandleAnswer_Success(t *testing.T) {
	f := newFixture()
	f.research.answerFn = func(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
		return &domain.Answer{
			Query: req.Query,
			Text:  "Apple cited supply chain concentration as a key risk.",
			Citations: []domain.Citation{
				{Ticker: "AAPL", Company: "Apple Inc.", Section: "Risk Factors"},
			},
			ChunksUsed: 3,
		}, nil
	}

	rec := f.do(t, "POST", "/api/v1/research/answer", "analyst-token", driving.AnswerRequest{
		Query: "What are Apple's supply chain risks?",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var answer domain.Answer
	decodeBody(t, rec, &answer)
	if answer.Text == "" {
		t.Error("expected answer text")
	}
	if len(answer.Citations) != 1 {
		t.Errorf("expected 1 citation, got %d", len(answer.Citations))
	}
}

func TestHandleAnswer_EmptyQuery(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "POST", "/api/v1/research/answer", "analyst-token", driving.AnswerRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnswer_AmbiguousQuery(t *testing.T) {
	f := newFixture()
	f.research.answerFn = func(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
		return nil, &domain.AmbiguousQueryError{Token: "recently", Reason: "cannot resolve time range"}
	}

	rec := f.do(t, "POST", "/api/v1/research/answer", "analyst-token", driving.AnswerRequest{
		Query: "What happened recently?",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error == "" {
		t.Error("expected error message in response")
	}
}

func TestHandleAnswer_NoRelevantContent(t *testing.T) {
	f := newFixture()
	f.research.answerFn = func(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
		return nil, &domain.NoRelevantContentError{Query: req.Query, Requests: 4}
	}

	rec := f.do(t, "POST", "/api/v1/research/answer", "analyst-token", driving.AnswerRequest{
		Query: "Tell me about underwater basket weaving",
	})

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleAnswer_SynthesisUnavailable(t *testing.T) {
	f := newFixture()
	f.research.answerFn = func(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
		return nil, &domain.SynthesisUnavailableError{
			Result: &domain.RetrievalResult{
				Chunks: []*domain.RankedChunk{{}, {}},
			},
			Citations: []domain.Citation{
				{Ticker: "AAPL", Company: "Apple Inc.", Section: "Risk Factors"},
			},
			Attempts: 3,
			Err:      errors.New("model timeout"),
		}
	}

	rec := f.do(t, "POST", "/api/v1/research/answer", "analyst-token", driving.AnswerRequest{
		Query: "What are Apple's risks?",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 degraded, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp degradedAnswerResponse
	decodeBody(t, rec, &resp)
	if !resp.Degraded {
		t.Error("expected degraded flag")
	}
	if len(resp.Citations) != 1 {
		t.Errorf("expected 1 citation, got %d", len(resp.Citations))
	}
	if resp.ChunksUsed != 2 {
		t.Errorf("expected 2 chunks used, got %d", resp.ChunksUsed)
	}
}

func TestHandleTaxonomy(t *testing.T) {
	f := newFixture()
	f.catalog.conceptsFn = func(ctx context.Context) ([]domain.TaxonomyEntry, error) {
		return []domain.TaxonomyEntry{
			{Concept: "supply_chain", Synonyms: []string{"supply chain"}},
			{Concept: "competition"},
		}, nil
	}

	rec := f.do(t, "GET", "/api/v1/research/taxonomy", "analyst-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries []domain.TaxonomyEntry
	decodeBody(t, rec, &entries)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestHandleConcept_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/api/v1/research/taxonomy/nonexistent", "analyst-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// Companies and filings

func TestHandleGetCompany(t *testing.T) {
	f := newFixture()
	f.catalog.companyFn = func(ctx context.Context, ticker string) (*domain.Company, error) {
		if ticker == "AAPL" {
			return &domain.Company{Ticker: "AAPL", Name: "Apple Inc.", CIK: 320193}, nil
		}
		return nil, domain.ErrNotFound
	}

	rec := f.do(t, "GET", "/api/v1/companies/AAPL", "analyst-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var company domain.Company
	decodeBody(t, rec, &company)
	if company.Name != "Apple Inc." {
		t.Errorf("unexpected company: %+v", company)
	}

	rec = f.do(t, "GET", "/api/v1/companies/ZZZZ", "analyst-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleListCompanyFilings(t *testing.T) {
	f := newFixture()
	f.catalog.companyFn = func(ctx context.Context, ticker string) (*domain.Company, error) {
		return &domain.Company{Ticker: "AAPL"}, nil
	}
	f.filings.listByCompanyFn = func(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error) {
		if limit != 5 || offset != 10 {
			t.Errorf("expected limit=5 offset=10, got limit=%d offset=%d", limit, offset)
		}
		return []*domain.Filing{{ID: "f1", Ticker: "AAPL"}}, nil
	}
	f.filings.countByCompany = func(ctx context.Context, ticker string) (int, error) {
		return 42, nil
	}

	rec := f.do(t, "GET", "/api/v1/companies/AAPL/filings?limit=5&offset=10", "analyst-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp companyFilingsResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 42 {
		t.Errorf("expected total 42, got %d", resp.Total)
	}
	if len(resp.Filings) != 1 {
		t.Errorf("expected 1 filing, got %d", len(resp.Filings))
	}
}

// Ingest

func TestHandleSyncCompany(t *testing.T) {
	f := newFixture()
	f.catalog.companyFn = func(ctx context.Context, ticker string) (*domain.Company, error) {
		return &domain.Company{Ticker: "AAPL"}, nil
	}

	rec := f.do(t, "POST", "/api/v1/ingest/sync/AAPL", "analyst-token", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(f.queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(f.queue.enqueued))
	}
	task := f.queue.enqueued[0]
	if task.Type != domain.TaskTypeSyncCompany {
		t.Errorf("expected sync_company task, got %s", task.Type)
	}
	if task.Ticker() != "AAPL" {
		t.Errorf("expected AAPL in payload, got %q", task.Ticker())
	}
}

func TestHandleSyncCompany_UnknownTicker(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "POST", "/api/v1/ingest/sync/ZZZZ", "analyst-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if len(f.queue.enqueued) != 0 {
		t.Errorf("expected no enqueued tasks, got %d", len(f.queue.enqueued))
	}
}

func TestHandleSyncCorpus_AdminOnly(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "POST", "/api/v1/ingest/sync", "analyst-token", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for analyst, got %d", rec.Code)
	}

	rec = f.do(t, "POST", "/api/v1/ingest/sync", "admin-token", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 for admin, got %d", rec.Code)
	}

	if len(f.queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(f.queue.enqueued))
	}
	if f.queue.enqueued[0].Type != domain.TaskTypeSyncCorpus {
		t.Errorf("expected sync_corpus task, got %s", f.queue.enqueued[0].Type)
	}
}

// Tasks

func TestHandleTaskStats(t *testing.T) {
	f := newFixture()
	f.queue.statsFn = func(ctx context.Context) (*driven.QueueStats, error) {
		return &driven.QueueStats{PendingCount: 7}, nil
	}

	rec := f.do(t, "GET", "/api/v1/tasks/stats", "admin-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats driven.QueueStats
	decodeBody(t, rec, &stats)
	if stats.PendingCount != 7 {
		t.Errorf("expected 7 pending, got %d", stats.PendingCount)
	}
}

func TestHandleCancelTask_NotCancellable(t *testing.T) {
	f := newFixture()
	f.queue.cancelTaskFn = func(ctx context.Context, taskID string) error {
		return domain.ErrInvalidInput
	}

	rec := f.do(t, "POST", "/api/v1/tasks/t-1/cancel", "admin-token", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

// Settings

func TestHandleGetAISettings_MasksKeys(t *testing.T) {
	f := newFixture()
	f.settings.getAISettingsFn = func(ctx context.Context) (*domain.AISettings, error) {
		return &domain.AISettings{
			Embedding: domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				Model:    "text-embedding-3-small",
				APIKey:   "sk-super-secret",
			},
			LLM: domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				Model:    "gpt-4o-mini",
				APIKey:   "sk-also-secret",
			},
		}, nil
	}

	rec := f.do(t, "GET", "/api/v1/settings/ai", "admin-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if bytes.Contains(rec.Body.Bytes(), []byte("sk-super-secret")) {
		t.Error("API key leaked in response")
	}

	var resp aiSettingsResponse
	decodeBody(t, rec, &resp)
	if !resp.Embedding.HasAPIKey {
		t.Error("expected has_api_key true for embedding")
	}
	if !resp.LLM.Configured {
		t.Error("expected LLM configured")
	}
}

func TestHandleUpdateSettings(t *testing.T) {
	f := newFixture()
	var gotUpdater string
	f.settings.updateFn = func(ctx context.Context, updaterID string, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
		gotUpdater = updaterID
		return &domain.Settings{MaxRequests: 8}, nil
	}

	maxRequests := 8
	rec := f.do(t, "PUT", "/api/v1/settings", "admin-token", driving.UpdateSettingsRequest{
		MaxRequests: &maxRequests,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUpdater != "admin-1" {
		t.Errorf("expected updater admin-1, got %q", gotUpdater)
	}
}

func TestHandleTestAIConnection_Unconfigured(t *testing.T) {
	f := newFixture()
	f.settings.testFn = func(ctx context.Context) error {
		return domain.ErrServiceUnavailable
	}

	rec := f.do(t, "POST", "/api/v1/settings/ai/test", "admin-token", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// Vespa admin

func TestHandleVespaHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, "GET", "/api/v1/admin/vespa/health", "admin-token", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	f.vespa.healthFn = func(ctx context.Context) error {
		return errors.New("cluster degraded")
	}
	rec = f.do(t, "GET", "/api/v1/admin/vespa/health", "admin-token", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
