package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure MockLLMService implements LLMService
var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService is a scriptable LLMService for testing. By default it
// echoes a canned answer referencing the first source.
type MockLLMService struct {
	mu        sync.Mutex
	response  string
	failCount int // Fail this many calls before succeeding
	delay     time.Duration
	calls     int
	lastReq   driven.CompletionRequest
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		response: "Based on the filings, revenue grew year over year [Source 1].",
	}
}

func (m *MockLLMService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastReq = req
	delay := m.delay
	if m.failCount > 0 {
		m.failCount--
		m.mu.Unlock()
		return "", context.DeadlineExceeded
	}
	resp := m.response
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return resp, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm-model"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Helper methods for testing

// SetResponse sets the text returned by Complete
func (m *MockLLMService) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
}

// SetFailCount makes the next n Complete calls fail
func (m *MockLLMService) SetFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = n
}

// SetDelay delays every Complete call (for timeout tests)
func (m *MockLLMService) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many Complete calls were made
func (m *MockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent completion request
func (m *MockLLMService) LastRequest() driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}
