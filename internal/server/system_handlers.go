package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/aristath/sectorpilot/internal/di"
	"github.com/aristath/sectorpilot/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// quickCheckTimeout bounds each database ping in the status endpoint
const quickCheckTimeout = 2 * time.Second

// StockCounter counts stocks in the universe
type StockCounter interface {
	Count() (int, error)
}

// HoldingCounter counts portfolio holdings
type HoldingCounter interface {
	GetCount() (int, error)
}

// SystemHandlers serves system status, database stats and manual job triggers
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	stocks      StockCounter
	holdings    HoldingCounter
	databases   []*database.DB
	jobs        map[string]scheduler.Job
	scheduler   *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance. jobs may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	stocks StockCounter,
	holdings HoldingCounter,
	jobs *di.JobInstances,
	databases ...*database.DB,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		stocks:      stocks,
		holdings:    holdings,
		jobs:        make(map[string]scheduler.Job),
	}

	for _, db := range databases {
		if db != nil {
			h.databases = append(h.databases, db)
		}
	}

	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.Rebalance, jobs.CheckCoreDatabases, jobs.WALCheckpoint} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}

	return h
}

// WithScheduler routes manual job runs through the scheduler so they share
// its overlap guard and run history. A nil scheduler runs jobs directly.
func (h *SystemHandlers) WithScheduler(s *scheduler.Scheduler) *SystemHandlers {
	h.scheduler = s
	return h
}

// DatabaseStatus is the health and size of one database
type DatabaseStatus struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	SizeBytes     int64  `json:"size_bytes"`
	WALSizeBytes  int64  `json:"wal_size_bytes"`
	PageCount     int64  `json:"page_count"`
	FreelistCount int64  `json:"freelist_count"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	Databases     []DatabaseStatus `json:"databases"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StockCount    int              `json:"stock_count"`
	HoldingCount  int              `json:"holding_count"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
	}

	for _, db := range h.databases {
		status := h.checkDatabase(r.Context(), db)
		if status.Status != "ok" {
			response.Status = "degraded"
		}
		response.Databases = append(response.Databases, status)
	}

	if h.stocks != nil {
		n, err := h.stocks.Count()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count stocks")
			response.Status = "degraded"
		}
		response.StockCount = n
	}
	if h.holdings != nil {
		n, err := h.holdings.GetCount()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count holdings")
			response.Status = "degraded"
		}
		response.HoldingCount = n
	}

	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	h.writeJSON(w, http.StatusOK, envelope(response))
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]DatabaseStatus, 0, len(h.databases))
	var total int64
	for _, db := range h.databases {
		s := h.checkDatabase(r.Context(), db)
		total += s.SizeBytes + s.WALSizeBytes
		stats = append(stats, s)
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"databases":        stats,
		"total_size_bytes": total,
	}))
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		h.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Unknown job: "+name)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	run := job.Run
	if h.scheduler != nil {
		run = func() error { return h.scheduler.RunNow(job) }
	}
	if err := run(); err != nil {
		if errors.Is(err, scheduler.ErrJobRunning) {
			h.writeError(w, http.StatusConflict, "JOB_RUNNING", err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeError(w, http.StatusInternalServerError, "JOB_FAILED", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]string{
		"status": "success",
		"job":    name,
	}))
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	history := map[string]scheduler.JobStatus{}
	if h.scheduler != nil {
		for _, st := range h.scheduler.Status() {
			history[st.Name] = st
		}
	}

	jobs := make([]scheduler.JobStatus, 0, len(names))
	for _, name := range names {
		st, ok := history[name]
		if !ok {
			st = scheduler.JobStatus{Name: name}
		}
		jobs = append(jobs, st)
	}

	h.writeJSON(w, http.StatusOK, envelope(jobs))
}

func (h *SystemHandlers) checkDatabase(ctx context.Context, db *database.DB) DatabaseStatus {
	status := DatabaseStatus{Name: db.Name(), Status: "ok"}

	ctx, cancel := context.WithTimeout(ctx, quickCheckTimeout)
	defer cancel()
	if err := db.QuickCheck(ctx); err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}

	stats, err := db.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
		return status
	}
	status.SizeBytes = stats.SizeBytes
	status.WALSizeBytes = stats.WALSizeBytes
	status.PageCount = stats.PageCount
	status.FreelistCount = stats.FreelistCount
	return status
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
