// Package handlers provides the tvee HTTP API handlers.
package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"gorm.io/gorm"

	"github.com/jmylchreest/tvee/internal/epg"
	"github.com/jmylchreest/tvee/internal/playback"
)

const bytesPerMB = 1024 * 1024

// PlaybackStatus reports the player snapshot.
type PlaybackStatus interface {
	Status() playback.Status
}

// GuideStats reports the guide index size.
type GuideStats interface {
	Stats() epg.Stats
}

// HealthHandler serves the health endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *gorm.DB
	player    PlaybackStatus
	guide     GuideStats
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithDB adds a database check.
func (h *HealthHandler) WithDB(db *gorm.DB) *HealthHandler {
	h.db = db
	return h
}

// WithPlayer adds the playback state.
func (h *HealthHandler) WithPlayer(player PlaybackStatus) *HealthHandler {
	h.player = player
	return h
}

// WithGuide adds guide statistics.
func (h *HealthHandler) WithGuide(guide GuideStats) *HealthHandler {
	h.guide = guide
	return h
}

// CPUInfo is host load.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo is host and process memory in megabytes.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	ProcessMemoryMB   float64 `json:"process_memory_mb"`
	GoroutineCount    int     `json:"goroutines"`
}

// DatabaseHealth is the outcome of the database ping.
type DatabaseHealth struct {
	Status            string  `json:"status"`
	ResponseTimeMS    float64 `json:"response_time_ms"`
	OpenConnections   int     `json:"open_connections"`
	ActiveConnections int     `json:"active_connections"`
}

// PlaybackHealth is the player part of the health response.
type PlaybackHealth struct {
	Resolver  playback.ResolverState `json:"resolver"`
	Health    playback.HealthState   `json:"health"`
	ChannelID int                    `json:"channel_id,omitempty"`
	Candidate playback.CandidateKind `json:"candidate,omitempty"`
}

// GuideHealth is the EPG part of the health response.
type GuideHealth struct {
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	Channels   int       `json:"channels"`
	Programmes int       `json:"programmes"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	CPU           CPUInfo         `json:"cpu"`
	Memory        MemoryInfo      `json:"memory"`
	Database      DatabaseHealth  `json:"database"`
	Playback      *PlaybackHealth `json:"playback,omitempty"`
	Guide         *GuideHealth    `json:"guide,omitempty"`
}

// HealthInput is the input for GetHealth.
type HealthInput struct{}

// HealthOutput is the output for GetHealth.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns service status, host load and memory, database and playback state",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health of the service. A failing database ping
// degrades the status but never fails the request.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       h.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		CPU:           cpuInfo(),
		Memory:        memoryInfo(),
		Database:      h.databaseHealth(ctx),
	}
	if resp.Database.Status == "error" {
		resp.Status = "degraded"
	}

	if h.player != nil {
		st := h.player.Status()
		ph := &PlaybackHealth{Resolver: st.Resolver, Health: st.Health}
		if st.Session != nil {
			ph.ChannelID = st.Session.ChannelID
			ph.Candidate = st.Session.Candidate.Kind
		}
		resp.Playback = ph
	}

	if h.guide != nil {
		gs := h.guide.Stats()
		resp.Guide = &GuideHealth{LoadedAt: gs.LoadedAt, Channels: gs.Channels, Programmes: gs.Programmes}
	}

	return &HealthOutput{Body: resp}, nil
}

func cpuInfo() CPUInfo {
	info := CPUInfo{Cores: runtime.NumCPU()}

	avg, err := load.Avg()
	if err == nil && avg != nil {
		info.Load1Min = avg.Load1
		info.Load5Min = avg.Load5
		info.Load15Min = avg.Load15
		if info.Cores > 0 {
			info.LoadPercentage1Min = avg.Load1 / float64(info.Cores) * 100
		}
	}
	return info
}

func memoryInfo() MemoryInfo {
	info := MemoryInfo{GoroutineCount: runtime.NumGoroutine()}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		info.TotalMemoryMB = float64(vm.Total) / bytesPerMB
		info.UsedMemoryMB = float64(vm.Used) / bytesPerMB
		info.AvailableMemoryMB = float64(vm.Available) / bytesPerMB
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits int32
		if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
			info.ProcessMemoryMB = float64(mi.RSS) / bytesPerMB
		}
	}
	return info
}

func (h *HealthHandler) databaseHealth(ctx context.Context) DatabaseHealth {
	if h.db == nil {
		return DatabaseHealth{Status: "not_configured"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return DatabaseHealth{Status: "error"}
	}

	stats := sqlDB.Stats()
	health := DatabaseHealth{
		Status:            "ok",
		OpenConnections:   stats.OpenConnections,
		ActiveConnections: stats.InUse,
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	health.ResponseTimeMS = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		health.Status = "error"
	}
	return health
}
