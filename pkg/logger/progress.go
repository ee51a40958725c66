package logger

import (
	"sync"
	"time"
)

// ProgressTracker logs periodic progress for long-running batch steps such as
// parsing large exports or recalculating thousands of schedule rows.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker for the named operation. A zero
// interval defaults to five seconds between progress lines.
func NewProgressTracker(operation string, total int64, interval time.Duration) *ProgressTracker {
	if interval == 0 {
		interval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      GetGlobalLogger().WithComponent("progress"),
		operation:   operation,
		total:       total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: interval,
	}

	tracker.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Info("Starting operation")

	return tracker
}

// Update advances the progress counter and emits a log line when the
// configured interval has elapsed.
func (p *ProgressTracker) Update(current int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current = current
	if time.Since(p.lastLogTime) < p.logInterval {
		return
	}
	p.lastLogTime = time.Now()

	fields := Fields{
		"operation": p.operation,
		"current":   p.current,
		"elapsed":   time.Since(p.startTime).Round(time.Millisecond).String(),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percent"] = float64(p.current) * 100 / float64(p.total)
	}
	p.logger.WithFields(fields).Info("Operation progress")
}

// Increment advances the counter by one.
func (p *ProgressTracker) Increment() {
	p.mutex.Lock()
	current := p.current + 1
	p.mutex.Unlock()
	p.Update(current)
}

// Done logs the final count and elapsed time.
func (p *ProgressTracker) Done() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.logger.WithFields(Fields{
		"operation": p.operation,
		"processed": p.current,
		"elapsed":   time.Since(p.startTime).Round(time.Millisecond).String(),
	}).Info("Operation complete")
}
