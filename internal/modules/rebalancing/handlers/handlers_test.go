package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	run         *rebalancing.Run
	err         error
	lastDryRun  bool
	lastTrigger string
	lastRunID   string
	lastID      int64
}

func (f *fakeService) Generate(trigger string, dryRun bool) (*rebalancing.Run, error) {
	f.lastTrigger, f.lastDryRun = trigger, dryRun
	return f.run, f.err
}

func (f *fakeService) GetLatestRun() (*rebalancing.Run, error) { return f.run, f.err }

func (f *fakeService) GetRun(runID string) (*rebalancing.Run, error) {
	f.lastRunID = runID
	return f.run, f.err
}

func (f *fakeService) Approve(runID string, id int64) (*rebalancing.RunSuggestion, error) {
	return f.setStatus(runID, id, domain.StatusApproved)
}

func (f *fakeService) Lock(runID string, id int64) (*rebalancing.RunSuggestion, error) {
	return f.setStatus(runID, id, domain.StatusLocked)
}

func (f *fakeService) setStatus(runID string, id int64, status domain.SuggestionStatus) (*rebalancing.RunSuggestion, error) {
	f.lastRunID, f.lastID = runID, id
	if f.err != nil {
		return nil, f.err
	}
	return &rebalancing.RunSuggestion{ID: id, RunID: runID, Status: status}, nil
}

func sampleRun() *rebalancing.Run {
	return &rebalancing.Run{
		ID:          "3f1c9a9e-2b64-4c55-9d4e-1e0f6a0c8b11",
		CreatedAt:   time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC),
		Constraints: domain.DefaultConstraintSet(),
		Trigger:     rebalancing.TriggerManual,
		DriftBefore: 20,
		Suggestions: []rebalancing.RunSuggestion{{
			ID: 1, Ordinal: 1, Status: domain.StatusPending,
			Suggestion: domain.Suggestion{Action: domain.ActionSell, Ticker: "LAG.NS", Quantity: 60_000, EstValueCr: 0.6},
		}},
	}
}

func setupRouter(service RunService) *chi.Mux {
	handler := NewHandler(service, zerolog.New(nil).Level(zerolog.Disabled))
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleGenerate(t *testing.T) {
	service := &fakeService{run: sampleRun()}
	router := setupRouter(service)

	req := httptest.NewRequest("POST", "/api/rebalance/generate", bytes.NewReader([]byte(`{"dry_run": true}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.True(t, service.lastDryRun)
	assert.Equal(t, rebalancing.TriggerManual, service.lastTrigger)

	response := decode(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "3f1c9a9e-2b64-4c55-9d4e-1e0f6a0c8b11", data["run_id"])
	assert.Equal(t, 20.0, data["drift_before"])
	suggestions := data["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	first := suggestions[0].(map[string]interface{})
	assert.Equal(t, "SELL", first["action"])
	assert.Equal(t, "pending", first["status"])
	assert.Contains(t, response, "metadata")
}

func TestHandleGenerate_EmptyBody(t *testing.T) {
	service := &fakeService{run: sampleRun()}
	router := setupRouter(service)

	req := httptest.NewRequest("POST", "/api/rebalance/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, service.lastDryRun)
}

func TestHandleGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"malformed input", fmt.Errorf("holding 0: %w: Ticker failed required", domain.ErrMalformedInput), http.StatusBadRequest, "MALFORMED_INPUT"},
		{"storage failure", fmt.Errorf("failed to persist run: disk full"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&fakeService{err: tt.err})

			req := httptest.NewRequest("POST", "/api/rebalance/generate", bytes.NewReader([]byte(`{}`)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			response := decode(t, w)
			errBody := response["error"].(map[string]interface{})
			assert.Equal(t, tt.wantErr, errBody["code"])
		})
	}
}

func TestHandleGetLatest_NoRuns(t *testing.T) {
	router := setupRouter(&fakeService{err: rebalancing.ErrNoRuns})

	req := httptest.NewRequest("GET", "/api/rebalance/latest", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetRun(t *testing.T) {
	service := &fakeService{run: sampleRun()}
	router := setupRouter(service)

	req := httptest.NewRequest("GET", "/api/rebalance/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", service.lastRunID)
}

func TestHandleApproveAndLock(t *testing.T) {
	service := &fakeService{}
	router := setupRouter(service)

	for _, path := range []string{"approve", "lock"} {
		req := httptest.NewRequest("POST", "/api/rebalance/run-1/"+path, bytes.NewReader([]byte(`{"suggestion_id": 7}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "run-1", service.lastRunID)
		assert.Equal(t, int64(7), service.lastID)

		data := decode(t, w)["data"].(map[string]interface{})
		want := "approved"
		if path == "lock" {
			want = "locked"
		}
		assert.Equal(t, want, data["status"])
	}
}

func TestHandleApprove_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"missing suggestion id", `{}`, nil, http.StatusBadRequest},
		{"unknown run", `{"suggestion_id": 1}`, rebalancing.ErrRunNotFound, http.StatusNotFound},
		{"unknown suggestion", `{"suggestion_id": 1}`, rebalancing.ErrSuggestionNotFound, http.StatusNotFound},
		{"locked suggestion", `{"suggestion_id": 1}`, fmt.Errorf("transaction failed: %w", rebalancing.ErrInvalidStatusTransition), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&fakeService{err: tt.err})

			req := httptest.NewRequest("POST", "/api/rebalance/run-1/approve", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
