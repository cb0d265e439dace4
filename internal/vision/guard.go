package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// GuardOptions bounds each extraction.
type GuardOptions struct {
	MaxImageBytes  int64
	Timeout        time.Duration // per attempt; zero means no extra deadline
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type guarded struct {
	next   Extractor
	opts   GuardOptions
	logger *slog.Logger
}

// WithGuards wraps next with an image size check, a per-attempt timeout and
// exponential-backoff retries for ServiceUnavailable and RateLimited errors.
// Other errors are returned after the first attempt.
func WithGuards(next Extractor, opts GuardOptions, logger *slog.Logger) Extractor {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	return &guarded{next: next, opts: opts, logger: logger}
}

func (g *guarded) Extract(ctx context.Context, r io.Reader, mimeType string) (*Result, error) {
	data, err := ReadImage(r, g.opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	attempt := 0
	operation := func() (*Result, error) {
		attempt++
		actx, cancel := g.attemptContext(ctx)
		defer cancel()

		res, err := g.next.Extract(actx, bytes.NewReader(data), mimeType)
		if err == nil {
			return res, nil
		}
		var xe *ExtractionError
		if errors.As(err, &xe) && xe.Retryable() {
			g.logger.WarnContext(ctx, "extraction attempt failed",
				"attempt", attempt, "kind", xe.Kind, "error", err)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.InitialBackoff
	b.MaxInterval = g.opts.MaxBackoff

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(g.opts.MaxAttempts),
	)
	if err != nil {
		if _, ok := KindOf(err); !ok && ctx.Err() != nil {
			return nil, FromTransport("vision backend", err)
		}
		return nil, err
	}
	return res, nil
}

func (g *guarded) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.opts.Timeout)
}

// ReadImage reads the whole image, failing with InvalidImage when it is empty
// or larger than maxBytes. A maxBytes of zero disables the limit.
func ReadImage(r io.Reader, maxBytes int64) ([]byte, error) {
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, NewError(KindInvalidImage, "image is empty", nil)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, NewError(KindInvalidImage, fmt.Sprintf("image exceeds %d bytes", maxBytes), nil)
	}
	return data, nil
}
