package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Default timeouts for storage and processor calls made while serving a request.
const (
	DefaultShortTimeout  = 5 * time.Second
	DefaultMediumTimeout = 10 * time.Second
	DefaultLongTimeout   = 30 * time.Second
)

// Timeouts groups the per-operation deadlines.
//
//   - Short: single-document reads and writes
//   - Medium: list queries and aggregations
//   - Long: multi-document writes and payment processor calls
type Timeouts struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// DefaultTimeouts returns the built-in timeout values
func DefaultTimeouts() Timeouts {
	return Timeouts{Short: DefaultShortTimeout, Medium: DefaultMediumTimeout, Long: DefaultLongTimeout}
}

// WithDefaults fills zero values from DefaultTimeouts
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Short <= 0 {
		t.Short = d.Short
	}
	if t.Medium <= 0 {
		t.Medium = d.Medium
	}
	if t.Long <= 0 {
		t.Long = d.Long
	}
	return t
}

// WithTimeout derives a context with the given timeout. The returned cancel
// function logs a warning when the deadline was what ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
