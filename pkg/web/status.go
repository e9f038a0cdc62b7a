package web

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// statusData reports agent health: the inventory fetch tri-state plus
// process resource usage.
type statusData struct {
	Version    string            `json:"version"`
	FetchState string            `json:"fetchState"`
	LastError  string            `json:"lastError,omitempty"`
	LastFetch  string            `json:"lastFetch,omitempty"`
	Query      string            `json:"query"`
	Goroutines int               `json:"goroutines"`
	Process    *processStatsData `json:"process,omitempty"`
}

type processStatsData struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
}

func (s *Server) getStatusHandler(w http.ResponseWriter, r *http.Request) {
	_, status := s.controller.View()

	data := statusData{
		Version:    s.version,
		FetchState: status.State.String(),
		LastError:  status.LastError,
		Query:      s.controller.Query(),
		Goroutines: runtime.NumGoroutine(),
	}
	if !status.LastFetch.IsZero() {
		data.LastFetch = status.LastFetch.UTC().Format(time.RFC3339)
	}
	if stats := processStats(); stats != nil {
		data.Process = stats
	}

	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: data})
}

// processStats samples the agent's own CPU and memory usage. Best
// effort; unsupported platforms just omit the block.
func processStats() *processStatsData {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}

	stats := &processStatsData{}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	return stats
}
