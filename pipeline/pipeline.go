// Package pipeline streams records into CSV, JSONL or MongoDB outputs.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-apps/metrics"
)

var (
	// ErrStreamClosed is returned when Append is called after Close.
	ErrStreamClosed = errors.New("pipeline: stream closed")
)

// Stream is a named, ordered output. Each Append reaches the writer before
// it returns so a crash never loses an acknowledged record.
type Stream struct {
	name    string
	writer  OutputWriter
	metrics *metrics.Metrics

	mu      sync.Mutex // guards everything below
	closed  bool
	err     error
	written int64
	batches int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewStream wraps writer. m may be nil.
func NewStream(name string, writer OutputWriter, m *metrics.Metrics) *Stream {
	return &Stream{
		name:     name,
		writer:   writer,
		metrics:  m,
		shutdown: make(chan struct{}),
	}
}

// Name returns the stream label used in logs and metrics.
func (s *Stream) Name() string { return s.name }

// Append writes records in order. After the first write failure the stream
// keeps returning that error.
func (s *Stream) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.closed {
		return ErrStreamClosed
	}

	if err := s.writer.Write(records); err != nil {
		s.err = fmt.Errorf("write %s: %w", s.name, err)
		return s.err
	}
	s.written += int64(len(records))
	s.batches++
	s.metrics.AddWritten(s.name, len(records))
	return nil
}

// Close closes the writer once and prevents more appends.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.closed = true
	s.signalShutdown()

	if err := s.writer.Close(); err != nil && s.err == nil {
		s.err = fmt.Errorf("close %s: %w", s.name, err)
	}
	return s.err
}

// Err returns the first error encountered.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Written returns the number of records appended so far.
func (s *Stream) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// GetMetrics returns a snapshot of the internal counters.
func (s *Stream) GetMetrics() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"stream":          s.name,
		"records_written": s.written,
		"batches":         s.batches,
	}
}

// StartMetricsReporting emits periodic progress logs until Close.
func (s *Stream) StartMetricsReporting(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 || logger == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snapshot := s.GetMetrics()
				logger.Info("output progress",
					"stream", s.name,
					"records_written", snapshot["records_written"],
					"batches", snapshot["batches"],
				)
			case <-s.shutdown:
				return
			}
		}
	}()
}

func (s *Stream) signalShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
}

// Records converts a typed slice for Append.
func Records[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
