package alerting

import (
	"sync"
	"time"
)

// maxRunRecords is the number of scheduler runs retained.
const maxRunRecords = 50

// Trigger names what started a run.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// RunRecord summarizes one alert-check cycle.
type RunRecord struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Trigger   Trigger       `json:"trigger"`
	Result    CycleResult   `json:"result"`
	Error     string        `json:"error,omitempty"`
}

// RunHistory is a bounded in-memory log of recent cycles.
type RunHistory struct {
	mu      sync.RWMutex
	records []RunRecord
	max     int
}

// NewRunHistory creates a history keeping at most max records.
func NewRunHistory(max int) *RunHistory {
	if max <= 0 {
		max = maxRunRecords
	}
	return &RunHistory{max: max}
}

// Record appends rec, evicting the oldest record when full.
func (h *RunHistory) Record(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.max {
		h.records = h.records[len(h.records)-h.max:]
	}
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (h *RunHistory) Recent(n int) []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]RunRecord, 0, n)
	for i := len(h.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.records[i])
	}
	return out
}

// Len returns the number of retained records.
func (h *RunHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
