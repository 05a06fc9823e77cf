// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docsift/core"
)

const (
	// DefaultBatchSize is the number of items started per batch.
	DefaultBatchSize = 5

	// DefaultConcurrency bounds how many items of a batch run at once.
	DefaultConcurrency = 2

	// DefaultFlushInterval is the minimum gap between item progress events.
	DefaultFlushInterval = 2 * time.Second
)

// Job is one unit of coordinated work. Run returns how many units it
// produced (chunks, Q&A pairs, pages) for the run summary.
type Job struct {
	ID  string
	Run func(ctx context.Context, progress *ItemProgress) (int, error)
}

// ItemResult is the outcome of one job.
type ItemResult struct {
	ID    string
	Units int
	Err   error
}

// Summary is the final report of a run.
type Summary struct {
	RunID      string
	Processed  int
	Failed     int
	Total      int
	TotalUnits int
	Elapsed    time.Duration
	Results    []ItemResult
}

// SuccessRate returns the processed share of all items as a percentage.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return round2(float64(s.Processed) / float64(s.Total) * 100)
}

// Data returns the terminal event payload.
func (s *Summary) Data() map[string]any {
	return map[string]any{
		"processed":      s.Processed,
		"failed":         s.Failed,
		"total":          s.Total,
		"totalUnits":     s.TotalUnits,
		"elapsedSeconds": round2(s.Elapsed.Seconds()),
		"successRate":    s.SuccessRate(),
	}
}

// ProgressSaver persists progress snapshots so a run can be inspected
// after the process exits.
type ProgressSaver interface {
	SaveProgress(ctx context.Context, runID string, records map[string]core.ProgressRecord) error
}

// Coordinator runs jobs in sequential batches. Items inside a batch run
// concurrently on a bounded pool and one failure never aborts its siblings.
type Coordinator struct {
	sink          Sink
	pool          *ants.Pool
	batchSize     int
	flushInterval time.Duration
	saver         ProgressSaver
	newID         func() string
	logger        *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithBatchSize sets how many items form one batch.
// Default is DefaultBatchSize, with a minimum of 1.
func WithBatchSize(size int) Option {
	return func(c *Coordinator) error {
		c.batchSize = max(size, 1)
		return nil
	}
}

// WithConcurrency sets how many items of a batch may run at once.
// Default is DefaultConcurrency, with a minimum of 1.
func WithConcurrency(size int) Option {
	return func(c *Coordinator) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithFlushInterval sets the minimum gap between item progress events.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Coordinator) error {
		c.flushInterval = d
		return nil
	}
}

// WithProgressSaver persists the progress map at every batch boundary.
func WithProgressSaver(saver ProgressSaver) Option {
	return func(c *Coordinator) error {
		c.saver = saver
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "coordinator")
		return nil
	}
}

// NewCoordinator creates a coordinator publishing to sink.
func NewCoordinator(sink Sink, opts ...Option) (*Coordinator, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}

	c := &Coordinator{
		sink:          sink,
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		newID:         uuid.NewString,
		logger:        slog.Default().With("component", "coordinator"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Release()
			return nil, err
		}
	}

	if c.pool == nil {
		pool, err := ants.NewPool(DefaultConcurrency)
		if err != nil {
			return nil, err
		}
		c.pool = pool
	}
	return c, nil
}

// Release frees the worker pool. The coordinator must not be used after.
func (c *Coordinator) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// Run executes jobs batch by batch and publishes progress under the event
// name. It returns an error only when the input is invalid; item failures
// are reported in the summary. When ctx is cancelled between batches the
// remaining items are marked failed and the terminal event is still sent.
func (c *Coordinator) Run(ctx context.Context, event string, jobs []Job) (*Summary, error) {
	if len(jobs) == 0 {
		return nil, ErrNoItems
	}

	r := &run{
		Coordinator: c,
		event:       event,
		store:       NewProgressStore(),
		summary: &Summary{
			RunID:   c.newID(),
			Total:   len(jobs),
			Results: make([]ItemResult, len(jobs)),
		},
	}

	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job.ID == "" {
			return nil, core.ErrMissingID
		}
		if _, dup := seen[job.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, job.ID)
		}
		seen[job.ID] = struct{}{}
		r.store.Track(job.ID, core.StatusQueued)
	}

	start := time.Now()
	r.lastFlush = start
	c.logger.Info("starting run", "event", event, "run", r.summary.RunID, "items", len(jobs), "batchSize", c.batchSize)
	r.publish(ctx, false)

	for offset := 0; offset < len(jobs); offset += c.batchSize {
		end := min(offset+c.batchSize, len(jobs))

		if err := ctx.Err(); err != nil {
			c.logger.Warn("run cancelled", "event", event, "remaining", len(jobs)-offset, "err", err)
			for i := offset; i < len(jobs); i++ {
				r.fail(i, jobs[i].ID, err)
			}
			break
		}

		r.runBatch(ctx, offset, jobs[offset:end])
		r.publish(ctx, false)
	}

	r.summary.Elapsed = time.Since(start)
	r.finish(ctx)
	return r.summary, nil
}

// Fail publishes a terminal error event for a run that could not start.
func (c *Coordinator) Fail(ctx context.Context, event string, cause error) {
	ev := Event{
		Event:     event,
		Data:      map[string]any{"error": cause.Error()},
		Completed: true,
	}
	if err := c.sink.Send(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.Warn("failed to publish error event", "event", event, "err", err)
	}
}

type run struct {
	*Coordinator
	event   string
	store   *ProgressStore
	summary *Summary

	mu        sync.Mutex
	lastFlush time.Time
}

func (r *run) runBatch(ctx context.Context, offset int, jobs []Job) {
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			r.summary.Results[offset+i] = r.runJob(ctx, job)
		})
		if err != nil {
			wg.Done()
			r.summary.Results[offset+i] = r.failJob(job.ID, fmt.Errorf("submit: %w", err))
		}
	}
	wg.Wait()

	for _, res := range r.summary.Results[offset : offset+len(jobs)] {
		if res.Err != nil {
			r.summary.Failed++
			continue
		}
		r.summary.Processed++
		r.summary.TotalUnits += res.Units
	}
}

func (r *run) runJob(ctx context.Context, job Job) (result ItemResult) {
	if err := r.store.Transition(job.ID, core.StatusProcessing, nil); err != nil {
		return r.failJob(job.ID, err)
	}

	defer func() {
		if p := recover(); p != nil {
			result = r.failJob(job.ID, fmt.Errorf("%w: %v", ErrItemPanic, p))
		}
	}()

	progress := NewItemProgress(job.ID, r.store, func() { r.maybeFlush(ctx) })
	units, err := job.Run(ctx, progress)
	if err != nil {
		return r.failJob(job.ID, err)
	}
	if err := r.store.Transition(job.ID, core.StatusParsed, nil); err != nil {
		return r.failJob(job.ID, err)
	}
	r.logger.Debug("item finished", "item", job.ID, "units", units)
	return ItemResult{ID: job.ID, Units: units}
}

func (r *run) failJob(id string, err error) ItemResult {
	r.logger.Warn("item failed", "item", id, "err", err)
	if terr := r.store.Transition(id, core.StatusFailed, err); terr != nil {
		r.logger.Debug("could not mark item failed", "item", id, "err", terr)
	}
	return ItemResult{ID: id, Err: err}
}

func (r *run) fail(i int, id string, err error) {
	r.summary.Results[i] = r.failJob(id, err)
	r.summary.Failed++
}

// maybeFlush publishes item progress at most once per flush interval.
func (r *run) maybeFlush(ctx context.Context) {
	r.mu.Lock()
	now := time.Now()
	if now.Sub(r.lastFlush) < r.flushInterval {
		r.mu.Unlock()
		return
	}
	r.lastFlush = now
	r.mu.Unlock()

	records, dirty := r.store.Flush()
	if !dirty {
		return
	}
	r.logger.Debug("flushing item progress", "event", r.event)
	r.send(ctx, Event{Event: r.event, Data: Records(records)})
}

// publish sends the batch boundary event and persists the snapshot.
func (r *run) publish(ctx context.Context, completed bool) {
	records, _ := r.store.Flush()
	r.mu.Lock()
	r.lastFlush = time.Now()
	r.mu.Unlock()

	stats := &Stats{
		Processed:  r.summary.Processed,
		Failed:     r.summary.Failed,
		Total:      r.summary.Total,
		TotalUnits: r.summary.TotalUnits,
	}
	data := Records(records)
	if completed {
		data = r.summary.Data()
	}
	r.send(ctx, Event{Event: r.event, Data: data, Stats: stats, Completed: completed})

	if r.saver != nil {
		if err := r.saver.SaveProgress(ctx, r.summary.RunID, records); err != nil {
			r.logger.Warn("failed to persist progress", "run", r.summary.RunID, "err", err)
		}
	}
}

func (r *run) finish(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.publish(ctx, true)
	r.logger.Info("run finished",
		"event", r.event,
		"processed", r.summary.Processed,
		"failed", r.summary.Failed,
		"elapsed", r.summary.Elapsed)
}

func (r *run) send(ctx context.Context, ev Event) {
	if err := r.sink.Send(ctx, ev); err != nil {
		r.logger.Warn("failed to publish progress", "event", r.event, "err", err)
	}
}
