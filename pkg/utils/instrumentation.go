package utils

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// Instrumentation times the phases of a run and reports progress through
// the run's logger. Everything it logs is at debug level.
type Instrumentation struct {
	logger  *slog.Logger
	verbose bool
}

// NewInstrumentation creates a new instrumentation instance
func NewInstrumentation(logger *slog.Logger, verbose bool) *Instrumentation {
	return &Instrumentation{
		logger:  logger,
		verbose: verbose,
	}
}

// TimedOperation runs operation and logs how long it took.
func (i *Instrumentation) TimedOperation(name string, operation func() error) error {
	_, err := Timed(i, name, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// Timed runs operation and logs how long it took, passing its result through.
func Timed[T any](i *Instrumentation, name string, operation func() (T, error)) (T, error) {
	start := time.Now()
	i.logger.Debug("Starting operation", "operation", name)

	result, err := operation()
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("Operation failed", "operation", name, "duration_seconds", duration.Seconds(), "error", err)
	} else {
		i.logger.Debug("Operation completed", "operation", name, "duration_seconds", duration.Seconds())
	}
	return result, err
}

// ProgressTracker logs progress through a fixed number of items. It is safe
// for concurrent use.
type ProgressTracker struct {
	name       string
	total      int
	processed  atomic.Int64
	lastUpdate atomic.Int64 // unix nanoseconds
	startTime  time.Time
	verbose    bool
	logger     *slog.Logger
}

// NewProgressTracker creates a new progress tracker
func (i *Instrumentation) NewProgressTracker(name string, total int) *ProgressTracker {
	pt := &ProgressTracker{
		name:      name,
		total:     total,
		startTime: time.Now(),
		verbose:   i.verbose,
		logger:    i.logger,
	}
	pt.lastUpdate.Store(pt.startTime.UnixNano())
	return pt
}

// Processed returns the number of items counted so far.
func (pt *ProgressTracker) Processed() int {
	return int(pt.processed.Load())
}

// Update counts increment more items. In verbose mode it logs every 25
// items or every 2 seconds, whichever comes first.
func (pt *ProgressTracker) Update(increment int) {
	processed := pt.processed.Add(int64(increment))
	if !pt.verbose {
		return
	}

	now := time.Now()
	last := pt.lastUpdate.Load()
	if processed%25 != 0 && now.Sub(time.Unix(0, last)) <= 2*time.Second {
		return
	}
	// One goroutine wins the swap and logs.
	if !pt.lastUpdate.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	elapsed := now.Sub(pt.startTime)
	var eta time.Duration
	if processed > 0 {
		eta = elapsed / time.Duration(processed) * time.Duration(int64(pt.total)-processed)
	}
	percentage := 100.0
	if pt.total > 0 {
		percentage = float64(processed) / float64(pt.total) * 100
	}

	pt.logger.Debug("Progress update",
		"operation", pt.name,
		"processed", processed,
		"total", pt.total,
		"percentage", percentage,
		"elapsed_seconds", elapsed.Seconds(),
		"eta_seconds", eta.Seconds())
}

// Complete marks the operation as finished
func (pt *ProgressTracker) Complete() {
	pt.logger.Debug("Progress tracking completed",
		"operation", pt.name,
		"processed", pt.processed.Load(),
		"total", pt.total,
		"duration_seconds", time.Since(pt.startTime).Seconds())
}

// GetMemoryUsage returns current memory usage in a human-readable format
func GetMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("%.1fMB allocated, %.1fMB system", float64(m.Alloc)/(1<<20), float64(m.Sys)/(1<<20))
}

// PhaseTracker times the consecutive phases of one operation, such as
// loading, call graph construction and profiling.
type PhaseTracker struct {
	name      string
	durations map[string]time.Duration
	order     []string
	current   string
	started   time.Time
	startTime time.Time
	logger    *slog.Logger
}

// NewPhaseTracker creates a new phase tracker
func (i *Instrumentation) NewPhaseTracker(name string) *PhaseTracker {
	i.logger.Debug("Starting operation", "operation", name)

	return &PhaseTracker{
		name:      name,
		durations: make(map[string]time.Duration),
		startTime: time.Now(),
		logger:    i.logger,
	}
}

// StartPhase ends the current phase, if any, and begins phaseName.
func (pt *PhaseTracker) StartPhase(phaseName string) {
	pt.EndPhase()
	pt.current = phaseName
	pt.started = time.Now()
	pt.logger.Debug("Starting phase", "phase", phaseName, "parent_operation", pt.name)
}

// EndPhase ends the current phase
func (pt *PhaseTracker) EndPhase() {
	if pt.current == "" {
		return
	}
	d := time.Since(pt.started)
	if _, seen := pt.durations[pt.current]; !seen {
		pt.order = append(pt.order, pt.current)
	}
	pt.durations[pt.current] += d
	pt.logger.Debug("Phase completed", "phase", pt.current, "duration_seconds", d.Seconds(), "parent_operation", pt.name)
	pt.current = ""
}

// Phases lists the completed phases in the order they first ran.
func (pt *PhaseTracker) Phases() []string {
	return append([]string(nil), pt.order...)
}

// Duration returns the total time spent in phaseName.
func (pt *PhaseTracker) Duration(phaseName string) time.Duration {
	return pt.durations[phaseName]
}

// Complete finishes the entire operation
func (pt *PhaseTracker) Complete(totalItems int) {
	pt.EndPhase()
	pt.logger.Debug("Operation completed",
		"operation", pt.name,
		"items", totalItems,
		"duration_seconds", time.Since(pt.startTime).Seconds(),
		"memory_usage", GetMemoryUsage())
}
