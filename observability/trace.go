package observability

import (
	"context"
	"sync"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
)

// DefaultTraceCapacity is the number of runs a TraceStore keeps by default.
const DefaultTraceCapacity = 100

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is the trace of one top-level chain run.
type RunRecord struct {
	RunID     string                 `json:"run_id" yaml:"run_id"`
	Chain     string                 `json:"chain" yaml:"chain"`
	Status    string                 `json:"status" yaml:"status"`
	Input     any                    `json:"input,omitempty" yaml:"input,omitempty"`
	Output    any                    `json:"output,omitempty" yaml:"output,omitempty"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time              `json:"started_at" yaml:"started_at"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
	History   []modular.HistoryEntry `json:"history" yaml:"history"`
	Errors    []modular.ErrorEntry   `json:"errors" yaml:"errors"`
}

// TraceStore keeps the most recent runs in memory. It is a hook: register it
// and every top-level chain run is recorded when it ends. Nested chains that
// share their caller's context are folded into the caller's record.
type TraceStore struct {
	mu       sync.RWMutex
	capacity int
	records  []RunRecord // ring buffer, oldest first
	index    map[string]int
	active   map[string]*activeRun
}

type activeRun struct {
	depth  int
	record RunRecord
}

var (
	_ modular.ChainStartHook = (*TraceStore)(nil)
	_ modular.ChainEndHook   = (*TraceStore)(nil)
)

// NewTraceStore creates a store holding up to capacity runs.
// A non-positive capacity uses DefaultTraceCapacity.
func NewTraceStore(capacity int) *TraceStore {
	if capacity <= 0 {
		capacity = DefaultTraceCapacity
	}
	return &TraceStore{
		capacity: capacity,
		records:  make([]RunRecord, 0, capacity),
		index:    make(map[string]int),
		active:   make(map[string]*activeRun),
	}
}

func (s *TraceStore) OnChainStart(_ context.Context, execCtx *modular.ExecutionContext, e modular.ChainStartEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := execCtx.RunID()
	if run, ok := s.active[id]; ok {
		run.depth++
		return
	}
	if i, ok := s.index[id]; ok {
		// A later chain of a pipeline sharing the context continues the record.
		rec := s.records[i]
		rec.Status = StatusRunning
		s.active[id] = &activeRun{depth: 1, record: rec}
		return
	}
	s.active[id] = &activeRun{
		depth: 1,
		record: RunRecord{
			RunID:     id,
			Chain:     e.Chain,
			Status:    StatusRunning,
			Input:     e.Input,
			StartedAt: time.Now(),
		},
	}
}

func (s *TraceStore) OnChainEnd(_ context.Context, execCtx *modular.ExecutionContext, e modular.ChainEndEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := execCtx.RunID()
	run, ok := s.active[id]
	if !ok {
		return
	}
	run.depth--
	if run.depth > 0 {
		return
	}
	delete(s.active, id)

	rec := run.record
	rec.Output = e.Output
	rec.Duration = time.Since(rec.StartedAt)
	rec.History = execCtx.History()
	rec.Errors = execCtx.Errors()
	rec.Status = StatusCompleted
	if e.Err != nil {
		rec.Status = StatusFailed
		rec.Error = e.Err.Error()
	}
	s.appendLocked(rec)
}

func (s *TraceStore) appendLocked(rec RunRecord) {
	if _, exists := s.index[rec.RunID]; exists {
		s.records[s.index[rec.RunID]] = rec
		return
	}
	if len(s.records) == s.capacity {
		delete(s.index, s.records[0].RunID)
		s.records = append(s.records[:0], s.records[1:]...)
		for i, r := range s.records {
			s.index[r.RunID] = i
		}
	}
	s.records = append(s.records, rec)
	s.index[rec.RunID] = len(s.records) - 1
}

// Get returns the record for runID.
func (s *TraceStore) Get(runID string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[runID]
	if !ok {
		return RunRecord{}, false
	}
	return s.records[i], true
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (s *TraceStore) Recent(n int) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]RunRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Len returns the number of stored records.
func (s *TraceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
