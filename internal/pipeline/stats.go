package pipeline

import (
	"slices"
	"sync"
	"time"
)

type buildSample struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// BuildStatsSnapshot aggregates the builds finished within the window.
type BuildStatsSnapshot struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
}

// BuildStats keeps build durations for a rolling window.
type BuildStats struct {
	mu      sync.Mutex
	samples []buildSample
	window  time.Duration
	now     func() time.Time
}

func NewBuildStats(window time.Duration) *BuildStats {
	if window <= 0 {
		window = time.Hour
	}
	return &BuildStats{window: window, now: time.Now}
}

// Record adds one finished build.
func (s *BuildStats) Record(d time.Duration, failed bool) {
	ms := max(d.Milliseconds(), 0)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.samples = append(s.samples, buildSample{at: now, durationMs: ms, failed: failed})
}

func (s *BuildStats) Snapshot() BuildStatsSnapshot {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return BuildStatsSnapshot{}
	}

	var (
		snap   BuildStatsSnapshot
		sum    int64
		values = make([]int64, 0, len(s.samples))
	)
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			snap.Failed++
		}
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	return snap
}

func (s *BuildStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples = kept
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
