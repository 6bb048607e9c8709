// Package resource samples host CPU and memory and recommends whether a
// recording is processed in one pass or in fixed windows.
//
// Recommendations are advisory. A failed sample never blocks processing; it
// falls back to the most conservative mode.
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
)

// Sample is one reading of host resources.
type Sample struct {
	AvailableMemoryMB uint64
	CPUPercent        float64
}

// Sampler reads host resources.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads resources from the operating system.
type SystemSampler struct {
	// Interval is the CPU measurement window.
	Interval time.Duration
}

// Sample implements Sampler.
func (s SystemSampler) Sample(ctx context.Context) (Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("read memory: %w", err)
	}
	pct, err := cpu.PercentWithContext(ctx, s.Interval, false)
	if err != nil {
		return Sample{}, fmt.Errorf("read cpu: %w", err)
	}
	out := Sample{AvailableMemoryMB: vm.Available / (1024 * 1024)}
	if len(pct) > 0 {
		out.CPUPercent = pct[0]
	}
	return out, nil
}

// ResourceStatus is a sample judged against the configured thresholds.
type ResourceStatus struct {
	AvailableMemoryMB uint64    `json:"available_memory_mb"`
	CPUPercent        float64   `json:"cpu_percent"`
	Constrained       bool      `json:"constrained"`
	Reason            string    `json:"reason,omitempty"`
	SampledAt         time.Time `json:"sampled_at"`
}

// Recommendation is the suggested processing mode. Window is zero in
// batch mode.
type Recommendation struct {
	Mode   diarization.ProcessingMode `json:"mode"`
	Window time.Duration              `json:"window"`
	Reason string                     `json:"reason"`
}

// Monitor caches resource samples and turns them into recommendations.
type Monitor struct {
	cfg     Config
	sampler Sampler
	log     *logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	last   ResourceStatus
	cached bool
}

// NewMonitor creates a monitor. A nil sampler reads the operating system.
func NewMonitor(cfg Config, sampler Sampler, log *logger.Logger) *Monitor {
	cfg.ApplyDefaults()
	if sampler == nil {
		sampler = SystemSampler{Interval: cfg.CPUInterval}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{cfg: cfg, sampler: sampler, log: log.WithComponent("resource"), now: time.Now}
}

// Config returns the monitor's thresholds.
func (m *Monitor) Config() Config { return m.cfg }

// Check returns the current status, sampling at most once per SampleTTL.
func (m *Monitor) Check(ctx context.Context) (ResourceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cached && now.Sub(m.last.SampledAt) < m.cfg.SampleTTL {
		return m.last, nil
	}

	s, err := m.sampler.Sample(ctx)
	if err != nil {
		return ResourceStatus{}, errors.ServiceUnavailable("resource sampler").WithCause(err)
	}
	status := ResourceStatus{AvailableMemoryMB: s.AvailableMemoryMB, CPUPercent: s.CPUPercent, SampledAt: now}
	switch {
	case s.AvailableMemoryMB < m.cfg.MemoryFloorMB:
		status.Constrained = true
		status.Reason = fmt.Sprintf("available memory %dMB below %dMB", s.AvailableMemoryMB, m.cfg.MemoryFloorMB)
	case s.CPUPercent > m.cfg.CPUCeiling:
		status.Constrained = true
		status.Reason = fmt.Sprintf("cpu usage %.0f%% above %.0f%%", s.CPUPercent, m.cfg.CPUCeiling)
	}
	m.last, m.cached = status, true
	return status, nil
}

// RecommendMode recommends a processing mode for audio of the given length.
func (m *Monitor) RecommendMode(ctx context.Context, audioDuration time.Duration) Recommendation {
	status, err := m.Check(ctx)
	if err != nil {
		m.log.Warn("resource sample failed, assuming constrained", logger.Fields(logger.FieldError, err.Error()))
		return Recommendation{Mode: diarization.ModeChunked, Window: m.cfg.ConstrainedWindow, Reason: "resource sample failed"}
	}
	rec := Recommend(m.cfg, status, audioDuration)
	m.log.Debug("processing mode recommended", logger.Fields(
		"mode", string(rec.Mode),
		"window_s", rec.Window.Seconds(),
		logger.FieldReason, rec.Reason,
	))
	return rec
}

// Recommend applies the thresholds in cfg to status and audioDuration.
func Recommend(cfg Config, status ResourceStatus, audioDuration time.Duration) Recommendation {
	cfg.ApplyDefaults()
	if status.Constrained {
		return Recommendation{Mode: diarization.ModeChunked, Window: cfg.ConstrainedWindow, Reason: status.Reason}
	}
	if audioDuration > cfg.BatchLimit {
		return Recommendation{
			Mode:   diarization.ModeChunked,
			Window: cfg.NormalWindow,
			Reason: fmt.Sprintf("audio longer than %s", cfg.BatchLimit),
		}
	}
	return Recommendation{Mode: diarization.ModeBatch, Reason: "resources sufficient"}
}
