package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics содержит метрики процесса инспектора
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// HostStats сведения о процессе и машине для /health
type HostStats struct {
	Uptime      string  `json:"uptime"`
	Goroutines  int     `json:"goroutines"`
	HeapAlloc   string  `json:"heap_alloc"`
	CPUPercent  float64 `json:"cpu_percent"`
	HostMemUsed string  `json:"host_mem_used,omitempty"`
	HostMemPct  float64 `json:"host_mem_percent,omitempty"`
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = p
	}
	return sm
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	uptime := time.Since(sm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// Collect снимает показатели; недоступные через gopsutil поля остаются нулевыми
func (sm *ServerMetrics) Collect() HostStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := HostStats{
		Uptime:     sm.GetUptime(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  humanize.Bytes(m.HeapAlloc),
	}
	if sm.proc != nil {
		// процент с момента старта процесса, вызов не блокируется
		if pct, err := sm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostMemUsed = fmt.Sprintf("%s/%s", humanize.Bytes(vm.Used), humanize.Bytes(vm.Total))
		stats.HostMemPct = vm.UsedPercent
	}
	return stats
}
