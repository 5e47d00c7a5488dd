package handlers

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/madhusudan785/SnapStream/internal/database"
	"github.com/madhusudan785/SnapStream/internal/repository"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *database.DB
	repo      repository.VideoRepository
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithDB sets the database connection for health checks.
func (h *HealthHandler) WithDB(db *database.DB) *HealthHandler {
	h.db = db
	return h
}

// WithRepository sets the video repository for the inventory check.
func (h *HealthHandler) WithRepository(repo repository.VideoRepository) *HealthHandler {
	h.repo = repo
	return h
}

// CPUInfo reports CPU load information.
type CPUInfo struct {
	Cores     int     `json:"cores"`
	Load1Min  float64 `json:"load_1min"`
	Load5Min  float64 `json:"load_5min"`
	Load15Min float64 `json:"load_15min"`
}

// MemoryInfo reports system memory usage.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	CPUInfo    CPUInfo           `json:"cpu_info"`
	Memory     MemoryInfo        `json:"memory"`
	Checks     map[string]string `json:"checks,omitempty"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)

	huma.Register(api, huma.Operation{
		OperationID: "getReadiness",
		Method:      "GET",
		Path:        "/api/v1/health/ready",
		Summary:     "Readiness probe",
		Description: "Reports whether the service can reach its database",
		Tags:        []string{"System"},
	}, h.GetReadiness)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	checks := map[string]string{}
	status := "healthy"
	if h.db != nil {
		dbStatus := "ok"
		if err := h.db.Ping(ctx); err != nil {
			dbStatus = "error: " + err.Error()
			status = "degraded"
		}
		checks["database"] = dbStatus
	}
	if h.repo != nil {
		if count, err := h.repo.Count(ctx); err != nil {
			checks["videos"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["videos"] = strconv.FormatInt(count, 10)
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     status,
			Timestamp:  now.UTC().Format(time.RFC3339),
			Version:    h.version,
			Uptime:     uptime.Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
			CPUInfo:    getCPUInfo(),
			Memory:     getMemoryInfo(),
			Checks:     checks,
		},
	}, nil
}

// ReadinessOutput is the output for the readiness probe.
type ReadinessOutput struct {
	Body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
}

// GetReadiness reports whether the service is ready to take traffic.
func (h *HealthHandler) GetReadiness(ctx context.Context, _ *HealthInput) (*ReadinessOutput, error) {
	out := &ReadinessOutput{}
	out.Body.Status = "ready"
	out.Body.Components = map[string]string{}

	if h.db == nil {
		out.Body.Status = "not_ready"
		out.Body.Components["database"] = "not_configured"
		return out, nil
	}
	if err := h.db.Ping(ctx); err != nil {
		out.Body.Status = "not_ready"
		out.Body.Components["database"] = "error: " + err.Error()
		return out, nil
	}
	out.Body.Components["database"] = "ok"
	return out, nil
}

func getCPUInfo() CPUInfo {
	info := CPUInfo{Cores: runtime.NumCPU()}

	loadAvg, err := load.Avg()
	if err == nil && loadAvg != nil {
		info.Load1Min = loadAvg.Load1
		info.Load5Min = loadAvg.Load5
		info.Load15Min = loadAvg.Load15
	}

	return info
}

func getMemoryInfo() MemoryInfo {
	info := MemoryInfo{}

	vmStat, err := mem.VirtualMemory()
	if err == nil && vmStat != nil {
		info.TotalMemoryMB = float64(vmStat.Total) / 1024 / 1024
		info.UsedMemoryMB = float64(vmStat.Used) / 1024 / 1024
		info.AvailableMemoryMB = float64(vmStat.Available) / 1024 / 1024
	}

	return info
}
