package display

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
)

// Sink shows display text. An empty string clears the display.
type Sink interface {
	Show(text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string) error

// Show calls f.
func (f SinkFunc) Show(text string) error { return f(text) }

// Multi shows text on every sink and joins their errors.
type Multi []Sink

// Show implements Sink.
func (m Multi) Show(text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes display changes to a logger.
type LogSink struct {
	Logger *slog.Logger
}

// Show implements Sink.
func (l LogSink) Show(text string) error {
	logger := l.Logger
	if logger == nil {
		logger = log.Component("display")
	}
	if text == "" {
		logger.Info("display cleared")
		return nil
	}
	logger.Info("display", "text", text)
	return nil
}

// DefaultPollInterval is how often renderers drain the queue.
const DefaultPollInterval = 50 * time.Millisecond

// Poller drains a queue into a sink on a fixed interval. It is the
// renderer for headless runs.
type Poller struct {
	queue    *Queue
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller.
func NewPoller(q *Queue, sink Sink, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.Component("display")
	}
	return &Poller{queue: q, sink: sink, interval: interval, logger: logger}
}

// Run polls until ctx is done, then flushes what is left.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Poller) flush() {
	for _, text := range p.queue.Drain() {
		if err := p.sink.Show(text); err != nil {
			p.logger.Warn("display update failed", "error", err)
		}
	}
}
