// Package scanner drives a camera through barcode capture and resolves the
// decoded barcode to a product. Devices are reached through small interfaces
// so any camera stack can back them.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/pantrytrack/internal/products"
)

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrBusy              = errors.New("scan already in progress")
)

type State int

const (
	Idle State = iota
	RequestingPermission
	Streaming
	Detecting
	Decoded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestingPermission:
		return "requesting_permission"
	case Streaming:
		return "streaming"
	case Detecting:
		return "detecting"
	case Decoded:
		return "decoded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	FacingEnvironment = "environment"
	FacingAny         = ""
)

type Constraints struct {
	FacingMode string
}

type Track interface {
	Stop()
}

type MediaStream interface {
	Tracks() []Track
}

// MediaDevices grants camera streams. Implementations return an error
// wrapping ErrPermissionDenied when the user refuses access.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (MediaStream, error)
}

// Decoder blocks until it reads a barcode from the stream or ctx ends.
type Decoder interface {
	Decode(ctx context.Context, stream MediaStream) (string, error)
}

type Result struct {
	Barcode string
	Product *products.Product
}

type Scanner struct {
	devices MediaDevices
	decoder Decoder
	source  products.Source
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64 // bumped by every Scan and Close
	release func()
	cancel  context.CancelFunc
}

func New(devices MediaDevices, decoder Decoder, source products.Source, logger *slog.Logger) *Scanner {
	return &Scanner{devices: devices, decoder: decoder, source: source, logger: logger}
}

func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Scan acquires a camera, waits for one barcode and looks it up. The stream
// is released before Scan returns, whatever the outcome.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.state != Idle && s.state != Decoded {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.state = RequestingPermission
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	stream, err := s.acquire(ctx)
	if err != nil {
		s.finish(gen, Idle)
		return nil, err
	}

	release := stopOnce(stream)
	if !s.streaming(gen, release) {
		release()
		return nil, context.Canceled
	}
	if !s.advance(gen, Detecting) {
		release()
		return nil, context.Canceled
	}

	code, err := s.decoder.Decode(ctx, stream)
	release()
	if err != nil {
		s.finish(gen, Idle)
		return nil, fmt.Errorf("failed to decode barcode: %w", err)
	}

	s.finish(gen, Decoded)
	s.logger.InfoContext(ctx, "barcode decoded", "barcode", code)
	return &Result{
		Barcode: code,
		Product: products.Lookup(ctx, s.source, code, s.logger),
	}, nil
}

// Rescan closes any current capture and starts over.
func (s *Scanner) Rescan(ctx context.Context) (*Result, error) {
	s.Close()
	return s.Scan(ctx)
}

// Close stops any active stream and returns to Idle. It is safe to call at
// any time and more than once.
func (s *Scanner) Close() {
	s.mu.Lock()
	release, cancel := s.release, s.cancel
	s.release, s.cancel = nil, nil
	s.gen++
	s.state = Idle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
}

// streaming records the stream of scan gen. It reports false when Close
// ended that scan while the camera was being acquired.
func (s *Scanner) streaming(gen uint64, release func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.release = release
	s.state = Streaming
	return true
}

func (s *Scanner) advance(gen uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.state = state
	return true
}

// finish ends scan gen unless Close or a newer scan already took over.
func (s *Scanner) finish(gen uint64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.state = state
	s.release, s.cancel = nil, nil
}

// acquire prefers the rear camera and falls back to any camera.
func (s *Scanner) acquire(ctx context.Context) (MediaStream, error) {
	stream, err := s.devices.GetUserMedia(ctx, Constraints{FacingMode: FacingEnvironment})
	if err == nil {
		return stream, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.logger.DebugContext(ctx, "environment camera rejected, trying any camera", "error", err)

	stream, anyErr := s.devices.GetUserMedia(ctx, Constraints{FacingMode: FacingAny})
	if anyErr == nil {
		return stream, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(anyErr, ErrPermissionDenied) {
		return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, anyErr)
	}
	return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, anyErr)
}

func stopOnce(stream MediaStream) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, t := range stream.Tracks() {
				t.Stop()
			}
		})
	}
}
