package batch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Stats is the aggregate state of a run at a batch boundary.
type Stats struct {
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
	TotalUnits int `json:"totalUnits"`
}

// Event is one progress notification. Batch events carry per-item records in
// Data keyed by item id; the terminal event carries the run summary and has
// Completed set.
type Event struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Stats     *Stats         `json:"stats,omitempty"`
	Completed bool           `json:"completed"`
}

// Sink receives progress events. Implementations must be safe for
// concurrent use; item progress may be published from worker goroutines.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a sink logging through logger, or the default logger
// when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "progress")}
}

func (s *LogSink) Send(ctx context.Context, event Event) error {
	attrs := []any{"event", event.Event, "completed", event.Completed}
	if event.Stats != nil {
		attrs = append(attrs,
			"processed", event.Stats.Processed,
			"failed", event.Stats.Failed,
			"total", event.Stats.Total)
	}
	if event.Completed {
		attrs = append(attrs, "summary", event.Data)
		s.logger.InfoContext(ctx, "run finished", attrs...)
		return nil
	}
	s.logger.DebugContext(ctx, "progress", attrs...)
	return nil
}

// WriterSink writes each event as one line of JSON.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ Sink = (*WriterSink)(nil)

// NewWriterSink creates a JSON lines sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Send(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(event)
}

// TrackerSink renders batch boundaries as a terminal progress line.
type TrackerSink struct {
	mu      sync.Mutex
	writer  io.Writer
	tracker *Tracker
}

var _ Sink = (*TrackerSink)(nil)

// NewTrackerSink creates a sink drawing progress on w.
func NewTrackerSink(w io.Writer) *TrackerSink {
	return &TrackerSink{writer: w}
}

func (s *TrackerSink) Send(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Stats == nil {
		return nil
	}
	if s.tracker == nil {
		s.tracker = NewTracker(s.writer, event.Event, event.Stats.Total, 1)
		s.tracker.Start()
	}
	s.tracker.Update(event.Stats.Processed+event.Stats.Failed, event.Stats.Failed)
	if event.Completed {
		s.tracker.Finish()
		s.tracker = nil
	}
	return nil
}

// MultiSink fans an event out to several sinks. Every sink is called even
// when an earlier one fails; the failures are joined.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (m MultiSink) Send(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Send(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
