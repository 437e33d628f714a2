package server

import (
	"math"
	"runtime"
	"time"

	"github.com/cshum/wandkit"
)

var start = time.Now()

// HealthStats runtime stats served by the /health endpoint, memory in megabytes
type HealthStats struct {
	Version          string  `json:"version"`
	Uptime           int64   `json:"uptime"`
	Goroutines       int     `json:"goroutines"`
	NumberOfCPUs     int     `json:"number_of_cpus"`
	GCCycles         uint32  `json:"gc_cycles"`
	AllocatedMemory  float64 `json:"allocated_memory"`
	TotalAllocated   float64 `json:"total_allocated_memory"`
	HeapSys          float64 `json:"heap_sys"`
	HeapAllocated    float64 `json:"heap_allocated"`
	ObjectsInUse     uint64  `json:"objects_in_use"`
	OSMemoryObtained float64 `json:"os_memory_obtained"`
}

// GetHealthStats current HealthStats
func GetHealthStats() *HealthStats {
	mem := &runtime.MemStats{}
	runtime.ReadMemStats(mem)
	return &HealthStats{
		Version:          wandkit.Version,
		Uptime:           int64(time.Since(start).Seconds()),
		Goroutines:       runtime.NumGoroutine(),
		NumberOfCPUs:     runtime.NumCPU(),
		GCCycles:         mem.NumGC,
		AllocatedMemory:  megabytes(mem.Alloc),
		TotalAllocated:   megabytes(mem.TotalAlloc),
		HeapSys:          megabytes(mem.HeapSys),
		HeapAllocated:    megabytes(mem.HeapAlloc),
		ObjectsInUse:     mem.Mallocs - mem.Frees,
		OSMemoryObtained: megabytes(mem.Sys),
	}
}

func megabytes(b uint64) float64 {
	return math.Round(float64(b)/(1<<20)*100) / 100
}
