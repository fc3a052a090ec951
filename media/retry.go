package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/princinho/videotube/logging"
)

type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 200 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 3 * time.Second
	}
	return p
}

func (p Policy) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * p.BaseBackoff
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

type retryStorage struct {
	next   Storage
	policy Policy
}

// WithRetry retries failed uploads and destroys with capped exponential
// backoff. Invalid files and cancelled contexts are not retried. When every
// attempt fails the error wraps ErrUnavailable.
func WithRetry(next Storage, policy Policy) Storage {
	return &retryStorage{next: next, policy: policy.withDefaults()}
}

func (r *retryStorage) Upload(ctx context.Context, folder string, f File) (Asset, error) {
	var asset Asset
	err := r.do(ctx, "upload", func() error {
		if f.Body != nil {
			if _, err := f.Body.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("%w: rewind upload: %v", ErrInvalidFile, err)
			}
		}
		var err error
		asset, err = r.next.Upload(ctx, folder, f)
		return err
	})
	return asset, err
}

func (r *retryStorage) Destroy(ctx context.Context, url string) error {
	return r.do(ctx, "destroy", func() error {
		return r.next.Destroy(ctx, url)
	})
}

func (r *retryStorage) do(ctx context.Context, op string, fn func() error) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(r.policy.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			timer.Stop()
		}

		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidFile) || ctx.Err() != nil {
			return err
		}
		lastErr = err
		logger.Warn("media call failed", "op", op, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrUnavailable, op, r.policy.MaxAttempts, lastErr)
}
