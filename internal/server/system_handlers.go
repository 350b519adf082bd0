package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/eshopdash/forecaster/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	salesDB     *database.DB
	resultsDB   *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, salesDB, resultsDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		salesDB:     salesDB,
		resultsDB:   resultsDB,
	}
}

// HandleSystemStatus returns process and host resource usage
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := map[string]interface{}{
		"uptime_hours": time.Since(h.startupTime).Hours(),
		"cpu_percent":  cpuPercent,
		"ram_percent":  ramPercent,
		"goroutines":   runtime.NumGoroutine(),
		"data_dir":     h.dataDir,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// HandleDatabaseStats returns per-database health and file size
// GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	databases := make([]map[string]interface{}, 0, 2)
	for _, db := range []*database.DB{h.salesDB, h.resultsDB} {
		entry := map[string]interface{}{
			"name":    db.Name(),
			"healthy": true,
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			entry["healthy"] = false
			entry["error"] = err.Error()
		}
		entry["size_bytes"] = db.SizeBytes()
		databases = append(databases, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"databases": databases})
}

// getSystemStats calculates CPU and RAM usage percentages.
// The CPU sample uses 100ms so status requests stay fast.
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
