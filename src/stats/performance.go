// Package stats keeps process-wide compression statistics.
package stats

import (
	"sync"
	"time"
)

// MaxMemorySamples bounds the recent memory-percent ring.
const MaxMemorySamples = 10

// Snapshot is a copy of the counters at one point in time.
type Snapshot struct {
	TotalOperations      int
	AverageTime          time.Duration
	MemoryUsage          []float64
	OptimizationsApplied int
	ParallelCandidates   int
	BytesIn              int64
	BytesOut             int64
}

// Performance accumulates per-invocation measurements. Safe for concurrent use.
type Performance struct {
	mu                   sync.Mutex
	totalOperations      int
	averageSeconds       float64
	memoryUsage          []float64
	optimizationsApplied int
	parallelCandidates   int
	bytesIn              int64
	bytesOut             int64
}

func NewPerformance() *Performance {
	return &Performance{memoryUsage: make([]float64, 0, MaxMemorySamples)}
}

// Record folds one invocation into the running average. A negative
// memPercent means no sample was available.
func (p *Performance) Record(elapsed time.Duration, inputSize, outputSize int, memPercent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalOperations++
	n := float64(p.totalOperations)
	p.averageSeconds = (p.averageSeconds*(n-1) + elapsed.Seconds()) / n
	p.bytesIn += int64(inputSize)
	p.bytesOut += int64(outputSize)

	if memPercent >= 0 {
		if len(p.memoryUsage) == MaxMemorySamples {
			copy(p.memoryUsage, p.memoryUsage[1:])
			p.memoryUsage = p.memoryUsage[:MaxMemorySamples-1]
		}
		p.memoryUsage = append(p.memoryUsage, memPercent)
	}
}

// MarkOptimization counts one use of a non-standard strategy.
func (p *Performance) MarkOptimization() {
	p.mu.Lock()
	p.optimizationsApplied++
	p.mu.Unlock()
}

// MarkParallelCandidate counts a heavy downscale that could be split across
// workers. No split is performed.
func (p *Performance) MarkParallelCandidate() {
	p.mu.Lock()
	p.parallelCandidates++
	p.mu.Unlock()
}

func (p *Performance) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	samples := make([]float64, len(p.memoryUsage))
	copy(samples, p.memoryUsage)
	return Snapshot{
		TotalOperations:      p.totalOperations,
		AverageTime:          time.Duration(p.averageSeconds * float64(time.Second)),
		MemoryUsage:          samples,
		OptimizationsApplied: p.optimizationsApplied,
		ParallelCandidates:   p.parallelCandidates,
		BytesIn:              p.bytesIn,
		BytesOut:             p.bytesOut,
	}
}

func (p *Performance) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalOperations = 0
	p.averageSeconds = 0
	p.memoryUsage = p.memoryUsage[:0]
	p.optimizationsApplied = 0
	p.parallelCandidates = 0
	p.bytesIn = 0
	p.bytesOut = 0
}
