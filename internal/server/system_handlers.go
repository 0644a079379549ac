package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/amanahlabs/tazkiyah/internal/database"
)

// SystemHandlers exposes process and database health
type SystemHandlers struct {
	databases map[string]*database.DB
	started   time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(databases map[string]*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		started:   time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

type healthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Databases     map[string]string `json:"databases"`
	MemoryUsedPct float64           `json:"memory_used_pct"`
	DiskUsedPct   float64           `json:"disk_used_pct"`
	HostUptime    uint64            `json:"host_uptime_seconds"`
	Goroutines    int               `json:"goroutines"`
}

// HandleHealth reports process, host and database health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Databases:     make(map[string]string),
		Goroutines:    runtime.NumGoroutine(),
	}

	for name, db := range h.databases {
		if err := db.HealthCheck(r.Context()); err != nil {
			resp.Databases[name] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Databases[name] = "ok"
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryUsedPct = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		resp.DiskUsedPct = du.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		resp.HostUptime = uptime
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}
