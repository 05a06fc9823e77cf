package batch

import (
	"fmt"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/poiesic/docsift/core"
)

// ProgressStore holds the progress record of every item in a run.
// It is safe for concurrent use. Each item should have a single writer.
type ProgressStore struct {
	mu      sync.Mutex
	records map[string]*core.ProgressRecord
	dirty   bool
	now     func() time.Time
}

// NewProgressStore creates an empty store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[string]*core.ProgressRecord),
		now:     time.Now,
	}
}

// Track starts tracking id with the given status and zero progress.
// Tracking an existing id resets its record.
func (s *ProgressStore) Track(id string, status core.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = &core.ProgressRecord{Status: status, UpdatedAt: s.now()}
	s.dirty = true
}

// Transition moves id to a new status. A failed transition records cause as
// the item error; reaching parsed sets progress to 100.
func (s *ProgressStore) Transition(id string, to core.Status, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if err := core.ValidateTransition(rec.Status, to); err != nil {
		return err
	}
	rec.Status = to
	switch to {
	case core.StatusParsed:
		rec.Progress = 100
	case core.StatusFailed:
		if cause != nil {
			rec.Error = cause.Error()
		}
	}
	rec.UpdatedAt = s.now()
	s.dirty = true
	return nil
}

// SetProgress records the overall progress percentage of id.
func (s *ProgressStore) SetProgress(id string, progress float64) error {
	return s.update(id, func(rec *core.ProgressRecord) {
		rec.Progress = clampPercent(progress)
	})
}

// SetSubPhase records the progress of the current sub-phase of id and how
// many units it covers.
func (s *ProgressStore) SetSubPhase(id string, progress float64, count int) error {
	return s.update(id, func(rec *core.ProgressRecord) {
		rec.SubPhaseProgress = clampPercent(progress)
		rec.SubPhaseCount = count
	})
}

func (s *ProgressStore) update(id string, fn func(*core.ProgressRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if rec.Status.IsTerminal() {
		return nil
	}
	fn(rec)
	rec.UpdatedAt = s.now()
	s.dirty = true
	return nil
}

// Get returns a copy of the record for id.
func (s *ProgressStore) Get(id string) (core.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return core.ProgressRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by item id.
func (s *ProgressStore) Snapshot() map[string]core.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Flush returns a snapshot and whether anything changed since the previous
// flush. The change flag is cleared.
func (s *ProgressStore) Flush() (map[string]core.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.dirty
	s.dirty = false
	return s.snapshot(), dirty
}

// Counts returns the number of records in each status.
func (s *ProgressStore) Counts() map[core.Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[core.Status]int)
	for _, rec := range s.records {
		counts[rec.Status]++
	}
	return counts
}

func (s *ProgressStore) snapshot() map[string]core.ProgressRecord {
	out := make(map[string]core.ProgressRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = *rec
	}
	return out
}

// ItemProgress is the handle a job uses to report its own progress.
// Reports are written to the run's store and published opportunistically.
type ItemProgress struct {
	id      string
	store   *ProgressStore
	publish func()
}

// NewItemProgress creates a handle for id. publish may be nil.
func NewItemProgress(id string, store *ProgressStore, publish func()) *ItemProgress {
	return &ItemProgress{id: id, store: store, publish: publish}
}

// ID returns the item being reported on.
func (p *ItemProgress) ID() string {
	return p.id
}

// Report sets the overall progress percentage.
func (p *ItemProgress) Report(progress float64) {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.SetProgress(p.id, progress); err == nil && p.publish != nil {
		p.publish()
	}
}

// ReportSubPhase sets the current sub-phase percentage and unit count.
func (p *ItemProgress) ReportSubPhase(progress float64, count int) {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.SetSubPhase(p.id, progress, count); err == nil && p.publish != nil {
		p.publish()
	}
}

// Percent returns done/total as a percentage rounded to two decimals.
// done is capped at total and a zero total reports 100.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return round2(float64(min(done, total)) / float64(total) * 100)
}

// Records converts a snapshot into event data keyed by item id.
func Records(snapshot map[string]core.ProgressRecord) map[string]any {
	data := make(map[string]any, len(snapshot))
	for id, rec := range maps.All(snapshot) {
		data[id] = rec
	}
	return data
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
