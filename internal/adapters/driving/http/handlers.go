package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
)

// Health and readiness

// handleHealth godoc
// @Summary Health check
// @Description Returns OK if the server is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary Readiness check
// @Description Returns OK if the server and its dependencies are ready
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} ErrorResponse
// @Router /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue not ready")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis not ready")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary Version info
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth

// handleLogin godoc
// @Summary Authenticate a user
// @Description Validates credentials and returns a JWT token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Login credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email and password are required")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary Refresh an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body domain.RefreshRequest true "Refresh token"
// @Success 200 {object} domain.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrTokenExpired, domain.ErrSessionNotFound, domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			writeError(w, http.StatusInternalServerError, "token refresh failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary Log out the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	if err := s.authService.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleSetup godoc
// @Summary Create the initial admin user
// @Description One-time setup. Fails once any user exists.
// @Tags setup
// @Accept json
// @Produce json
// @Param request body driving.SetupRequest true "Admin account details"
// @Success 201 {object} driving.SetupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "setup already completed")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email, password, and name are required")
		default:
			writeError(w, http.StatusInternalServerError, "setup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Users

// handleGetMe godoc
// @Summary Get the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.User
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleListUsers godoc
// @Summary List all users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.User
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.CreateUserRequest true "User details"
// @Success 201 {object} domain.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "email already in use")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid user details")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleUpdateUser godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body driving.UpdateUserRequest true "Fields to update"
// @Success 200 {object} domain.User
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req driving.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid update")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	authCtx := GetAuthContext(r.Context())
	if authCtx != nil && authCtx.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Research

// degradedAnswerResponse is returned when retrieval succeeded but
// synthesis failed after all retries. Citations are still usable.
type degradedAnswerResponse struct {
	Degraded   bool              `json:"degraded"`
	Query      string            `json:"query"`
	Citations  []domain.Citation `json:"citations"`
	ChunksUsed int               `json:"chunks_used"`
	Warnings   []string          `json:"warnings,omitempty"`
	Message    string            `json:"message"`
}

// handleAnswer godoc
// @Summary Answer a research question
// @Description Runs the full pipeline and returns a cited answer. If
// @Description synthesis is unavailable, returns a degraded result
// @Description containing citations only.
// @Tags research
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.AnswerRequest true "Research question"
// @Success 200 {object} domain.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/research/answer [post]
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req driving.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := s.researchService.Answer(r.Context(), req)
	if err != nil {
		var ambiguous *domain.AmbiguousQueryError
		if errors.As(err, &ambiguous) {
			writeError(w, http.StatusBadRequest, ambiguous.Error())
			return
		}

		var noContent *domain.NoRelevantContentError
		if errors.As(err, &noContent) {
			writeError(w, http.StatusNotFound, noContent.Error())
			return
		}

		var unavailable *domain.SynthesisUnavailableError
		if errors.As(err, &unavailable) {
			chunksUsed := 0
			var warnings []string
			if unavailable.Result != nil {
				chunksUsed = len(unavailable.Result.Chunks)
				warnings = unavailable.Result.Warnings
			}
			writeJSON(w, http.StatusOK, degradedAnswerResponse{
				Degraded:   true,
				Query:      req.Query,
				Citations:  unavailable.Citations,
				ChunksUsed: chunksUsed,
				Warnings:   warnings,
				Message:    "answer synthesis is unavailable; showing sources only",
			})
			return
		}

		writeError(w, http.StatusInternalServerError, "failed to answer query")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// handleRetrieve godoc
// @Summary Retrieve ranked chunks without synthesis
// @Description Runs decomposition and retrieval only. Useful for
// @Description inspecting retrieval scope.
// @Tags research
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.AnswerRequest true "Research question"
// @Success 200 {object} domain.RetrievalResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/research/retrieve [post]
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req driving.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.researchService.Retrieve(r.Context(), req)
	if err != nil {
		var ambiguous *domain.AmbiguousQueryError
		if errors.As(err, &ambiguous) {
			writeError(w, http.StatusBadRequest, ambiguous.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTaxonomy godoc
// @Summary List the concept taxonomy
// @Tags research
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.TaxonomyEntry
// @Router /api/v1/research/taxonomy [get]
func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalogService.Concepts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleConcept godoc
// @Summary Get one taxonomy entry
// @Tags research
// @Produce json
// @Security BearerAuth
// @Param tag path string true "Concept tag"
// @Success 200 {object} domain.TaxonomyEntry
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/research/taxonomy/{tag} [get]
func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")

	entry, err := s.catalogService.Concept(r.Context(), tag)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "concept not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load concept")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// Companies and filings

// handleListCompanies godoc
// @Summary List registered companies
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Company
// @Router /api/v1/companies [get]
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.catalogService.Companies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}

	writeJSON(w, http.StatusOK, companies)
}

// handleGetCompany godoc
// @Summary Get a company by ticker or alias
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param ticker path string true "Ticker or alias"
// @Success 200 {object} domain.Company
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/companies/{ticker} [get]
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")

	company, err := s.catalogService.Company(r.Context(), ticker)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get company")
		return
	}

	writeJSON(w, http.StatusOK, company)
}

// companyFilingsResponse wraps a filing page with its total count
type companyFilingsResponse struct {
	Filings []*domain.Filing `json:"filings"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// handleListCompanyFilings godoc
// @Summary List filings for a company
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Param ticker path string true "Ticker"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {object} companyFilingsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/companies/{ticker}/filings [get]
func (s *Server) handleListCompanyFilings(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	if _, err := s.catalogService.Company(r.Context(), ticker); err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get company")
		return
	}

	filings, err := s.filingService.ListByCompany(r.Context(), ticker, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list filings")
		return
	}

	total, err := s.filingService.CountByCompany(r.Context(), ticker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count filings")
		return
	}

	writeJSON(w, http.StatusOK, companyFilingsResponse{
		Filings: filings,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleGetFiling godoc
// @Summary Get a filing by ID
// @Tags filings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Filing ID"
// @Success 200 {object} domain.Filing
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/filings/{id} [get]
func (s *Server) handleGetFiling(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	filing, err := s.filingService.Get(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "filing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get filing")
		return
	}

	writeJSON(w, http.StatusOK, filing)
}

// handleGetFilingChunks godoc
// @Summary Get a filing with its stored chunks
// @Tags filings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Filing ID"
// @Success 200 {object} driving.FilingWithChunks
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/filings/{id}/chunks [get]
func (s *Server) handleGetFilingChunks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.filingService.GetWithChunks(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "filing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get filing chunks")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Ingest

// taskEnqueuedResponse acknowledges an async ingest trigger
type taskEnqueuedResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// handleSyncCorpus godoc
// @Summary Trigger a full corpus refresh
// @Description Enqueues a background task that syncs every registered company
// @Tags ingest
// @Produce json
// @Security BearerAuth
// @Success 202 {object} taskEnqueuedResponse
// @Router /api/v1/ingest/sync [post]
func (s *Server) handleSyncCorpus(w http.ResponseWriter, r *http.Request) {
	task := domain.NewSyncCorpusTask()
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue sync")
		return
	}

	writeJSON(w, http.StatusAccepted, taskEnqueuedResponse{
		TaskID:  task.ID,
		Message: "corpus sync enqueued",
	})
}

// handleSyncCompany godoc
// @Summary Trigger a sync for one company
// @Tags ingest
// @Produce json
// @Security BearerAuth
// @Param ticker path string true "Ticker"
// @Success 202 {object} taskEnqueuedResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/ingest/sync/{ticker} [post]
func (s *Server) handleSyncCompany(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")

	company, err := s.catalogService.Company(r.Context(), ticker)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get company")
		return
	}

	task := domain.NewSyncCompanyTask(company.Ticker)
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue sync")
		return
	}

	writeJSON(w, http.StatusAccepted, taskEnqueuedResponse{
		TaskID:  task.ID,
		Message: "company sync enqueued",
	})
}

// handleListIngestStates godoc
// @Summary List ingest states for all companies
// @Tags ingest
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.IngestState
// @Router /api/v1/ingest/states [get]
func (s *Server) handleListIngestStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.ingestService.ListStates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ingest states")
		return
	}

	writeJSON(w, http.StatusOK, states)
}

// handleGetIngestState godoc
// @Summary Get the ingest state for a company
// @Tags ingest
// @Produce json
// @Security BearerAuth
// @Param ticker path string true "Ticker"
// @Success 200 {object} domain.IngestState
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/ingest/states/{ticker} [get]
func (s *Server) handleGetIngestState(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")

	state, err := s.ingestService.GetState(r.Context(), ticker)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "no ingest state for company")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ingest state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Tasks

// handleListTasks godoc
// @Summary List background tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by task type"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {array} domain.Task
// @Router /api/v1/tasks [get]
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := driven.TaskFilter{
		Status: domain.TaskStatus(r.URL.Query().Get("status")),
		Type:   domain.TaskType(r.URL.Query().Get("type")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	tasks, err := s.taskQueue.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// handleGetTask godoc
// @Summary Get a task by ID
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} domain.Task
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	task, err := s.taskQueue.GetTask(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleCancelTask godoc
// @Summary Cancel a pending task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tasks/{id}/cancel [post]
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.taskQueue.CancelTask(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "task not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusConflict, "task is not cancellable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel task")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "task cancelled"})
}

// handleTaskStats godoc
// @Summary Get queue statistics
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} driven.QueueStats
// @Router /api/v1/tasks/stats [get]
func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Settings

// handleGetSettings godoc
// @Summary Get deployment settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Settings
// @Router /api/v1/settings [get]
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings godoc
// @Summary Update deployment settings
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.UpdateSettingsRequest true "Fields to update"
// @Success 200 {object} domain.Settings
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/settings [put]
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req driving.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := s.settingsService.Update(r.Context(), authCtx.UserID, req)
	if err != nil {
		if err == domain.ErrInvalidInput {
			writeError(w, http.StatusBadRequest, "invalid settings values")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// aiProviderInfo describes one configured AI service with the API key
// masked. Keys are write-only through the API.
type aiProviderInfo struct {
	Provider   domain.AIProvider `json:"provider,omitempty"`
	Model      string            `json:"model,omitempty"`
	BaseURL    string            `json:"base_url,omitempty"`
	Configured bool              `json:"configured"`
	HasAPIKey  bool              `json:"has_api_key"`
}

// aiSettingsResponse is the masked view of AI configuration
type aiSettingsResponse struct {
	Embedding aiProviderInfo `json:"embedding"`
	LLM       aiProviderInfo `json:"llm"`
}

// handleGetAISettings godoc
// @Summary Get AI configuration
// @Description API keys are never returned, only whether one is set
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} aiSettingsResponse
// @Router /api/v1/settings/ai [get]
func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.GetAISettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI settings")
		return
	}

	writeJSON(w, http.StatusOK, aiSettingsResponse{
		Embedding: aiProviderInfo{
			Provider:   settings.Embedding.Provider,
			Model:      settings.Embedding.Model,
			BaseURL:    settings.Embedding.BaseURL,
			Configured: settings.Embedding.IsConfigured(),
			HasAPIKey:  settings.Embedding.APIKey != "",
		},
		LLM: aiProviderInfo{
			Provider:   settings.LLM.Provider,
			Model:      settings.LLM.Model,
			BaseURL:    settings.LLM.BaseURL,
			Configured: settings.LLM.IsConfigured(),
			HasAPIKey:  settings.LLM.APIKey != "",
		},
	})
}

// handleUpdateAISettings godoc
// @Summary Update AI configuration
// @Description Reconfigures the embedding and LLM services and hot-reloads them
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.UpdateAISettingsRequest true "AI configuration"
// @Success 200 {object} driving.AISettingsStatus
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/settings/ai [put]
func (s *Server) handleUpdateAISettings(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateAISettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.settingsService.UpdateAISettings(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidProvider:
			writeError(w, http.StatusBadRequest, "unknown AI provider")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid AI configuration")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update AI settings")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleGetAIStatus godoc
// @Summary Get AI service status
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} driving.AISettingsStatus
// @Router /api/v1/settings/ai/status [get]
func (s *Server) handleGetAIStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.settingsService.GetAIStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleTestAIConnection godoc
// @Summary Test the AI provider connection
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/settings/ai/test [post]
func (s *Server) handleTestAIConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.settingsService.TestConnection(r.Context()); err != nil {
		if err == domain.ErrServiceUnavailable {
			writeError(w, http.StatusServiceUnavailable, "AI provider is not configured")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "AI provider connection failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "connection ok"})
}

// Vespa admin

// handleVespaConnect godoc
// @Summary Connect to Vespa and deploy the schema
// @Tags vespa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body driving.ConnectVespaRequest true "Connection parameters"
// @Success 200 {object} driving.VespaStatus
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/admin/vespa/connect [post]
func (s *Server) handleVespaConnect(w http.ResponseWriter, r *http.Request) {
	var req driving.ConnectVespaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.vespaAdminService.Connect(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid endpoint")
		case domain.ErrServiceUnavailable:
			writeError(w, http.StatusServiceUnavailable, "vespa is unreachable")
		default:
			writeError(w, http.StatusInternalServerError, "vespa connect failed: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleVespaStatus godoc
// @Summary Get Vespa connection status
// @Tags vespa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} driving.VespaStatus
// @Router /api/v1/admin/vespa/status [get]
func (s *Server) handleVespaStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.vespaAdminService.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get vespa status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleVespaHealth godoc
// @Summary Check Vespa cluster health
// @Tags vespa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/admin/vespa/health [get]
func (s *Server) handleVespaHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.vespaAdminService.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "vespa unhealthy: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Helpers

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
