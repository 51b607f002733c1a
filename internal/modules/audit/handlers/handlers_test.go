package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/audit"
	testingutil "github.com/aristath/sectorpilot/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleList(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "ledger")
	defer cleanup()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := audit.NewRepository(db.Conn(), logger)
	base := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.Record("CONSTRAINT_UPDATED", "Updated 1 constraints", nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	NewHandler(repo, logger).RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/audit?page=1&limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data     []audit.Entry          `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response.Data, 2)
	assert.Equal(t, base.Add(2*time.Minute), response.Data[0].CreatedAt)
	assert.Equal(t, 2.0, response.Metadata["count"])
}

func TestHandleList_InvalidPaging(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	r := chi.NewRouter()
	NewHandler(nil, logger).RegisterRoutes(r)

	for _, query := range []string{"?page=0", "?limit=500", "?limit=abc"} {
		req := httptest.NewRequest("GET", "/audit"+query, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}
