package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantrytrack/internal/products"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTrack struct{ stops atomic.Int32 }

func (t *fakeTrack) Stop() { t.stops.Add(1) }

type fakeStream struct{ tracks []*fakeTrack }

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func newStream() *fakeStream {
	return &fakeStream{tracks: []*fakeTrack{{}, {}}}
}

func (s *fakeStream) assertStoppedOnce(t *testing.T) {
	t.Helper()
	for i, tr := range s.tracks {
		assert.Equal(t, int32(1), tr.stops.Load(), "track %d", i)
	}
}

// fakeDevices answers each constraint from a table.
type fakeDevices struct {
	mu        sync.Mutex
	responses map[string]error
	stream    *fakeStream
	requested []string
}

func (d *fakeDevices) GetUserMedia(_ context.Context, c Constraints) (MediaStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requested = append(d.requested, c.FacingMode)
	if err := d.responses[c.FacingMode]; err != nil {
		return nil, err
	}
	return d.stream, nil
}

type decoderFunc func(ctx context.Context, stream MediaStream) (string, error)

func (f decoderFunc) Decode(ctx context.Context, stream MediaStream) (string, error) {
	return f(ctx, stream)
}

func decodes(code string) Decoder {
	return decoderFunc(func(context.Context, MediaStream) (string, error) { return code, nil })
}

// blocks until ctx ends, signalling once it has started.
func blocks(started chan<- struct{}) Decoder {
	return decoderFunc(func(ctx context.Context, _ MediaStream) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
}

type stubSource struct {
	product *products.Product
	err     error
}

func (s stubSource) Product(context.Context, string) (*products.Product, error) {
	return s.product, s.err
}

func TestScanDecodes(t *testing.T) {
	stream := newStream()
	devices := &fakeDevices{stream: stream}
	milk := &products.Product{Barcode: "4902705001234", Name: "Milk"}
	s := New(devices, decodes("4902705001234"), stubSource{product: milk}, discard)

	res, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4902705001234", res.Barcode)
	assert.Equal(t, milk, res.Product)
	assert.Equal(t, Decoded, s.State())
	assert.Equal(t, []string{FacingEnvironment}, devices.requested)
	stream.assertStoppedOnce(t)

	s.Close()
	stream.assertStoppedOnce(t)
	assert.Equal(t, Idle, s.State())
}

func TestScanUnknownProductUsesPlaceholder(t *testing.T) {
	stream := newStream()
	s := New(&fakeDevices{stream: stream}, decodes("4900000000001"), stubSource{err: products.ErrNotFound}, discard)

	res, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Item (4900000000001)", res.Product.Name)
	assert.Equal(t, "other", res.Product.Category)
}

func TestScanFallsBackToAnyCamera(t *testing.T) {
	stream := newStream()
	devices := &fakeDevices{
		stream:    stream,
		responses: map[string]error{FacingEnvironment: errors.New("overconstrained")},
	}
	s := New(devices, decodes("4902705001234"), stubSource{err: products.ErrNotFound}, discard)

	_, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{FacingEnvironment, FacingAny}, devices.requested)
	stream.assertStoppedOnce(t)
}

func TestScanAcquireErrors(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]error
		want      error
	}{
		{
			name: "no camera",
			responses: map[string]error{
				FacingEnvironment: errors.New("not found"),
				FacingAny:         errors.New("not found"),
			},
			want: ErrCameraUnavailable,
		},
		{
			name: "permission denied",
			responses: map[string]error{
				FacingEnvironment: ErrPermissionDenied,
				FacingAny:         ErrPermissionDenied,
			},
			want: ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeDevices{responses: tt.responses}, decodes("x"), stubSource{}, discard)

			_, err := s.Scan(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Idle, s.State())
		})
	}
}

func TestScanDecodeErrorReleasesStream(t *testing.T) {
	stream := newStream()
	failing := decoderFunc(func(context.Context, MediaStream) (string, error) {
		return "", errors.New("blurry")
	})
	s := New(&fakeDevices{stream: stream}, failing, stubSource{}, discard)

	_, err := s.Scan(context.Background())
	assert.ErrorContains(t, err, "blurry")
	assert.Equal(t, Idle, s.State())
	stream.assertStoppedOnce(t)
}

func TestCloseDuringDetectingReleasesOnce(t *testing.T) {
	stream := newStream()
	started := make(chan struct{})
	s := New(&fakeDevices{stream: stream}, blocks(started), stubSource{}, discard)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background())
		errCh <- err
	}()

	<-started
	assert.Equal(t, Detecting, s.State())
	s.Close()
	s.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scan did not stop after close")
	}
	stream.assertStoppedOnce(t)
	assert.Equal(t, Idle, s.State())
}

func TestScanWhileBusy(t *testing.T) {
	started := make(chan struct{})
	s := New(&fakeDevices{stream: newStream()}, blocks(started), stubSource{}, discard)

	go func() { _, _ = s.Scan(context.Background()) }()
	<-started

	_, err := s.Scan(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	s.Close()
}

func TestRescan(t *testing.T) {
	first := newStream()
	devices := &fakeDevices{stream: first}
	s := New(devices, decodes("4902705001234"), stubSource{err: products.ErrNotFound}, discard)

	_, err := s.Scan(context.Background())
	require.NoError(t, err)

	second := newStream()
	devices.mu.Lock()
	devices.stream = second
	devices.mu.Unlock()

	res, err := s.Rescan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4902705001234", res.Barcode)
	assert.Len(t, devices.requested, 2)
	first.assertStoppedOnce(t)
	second.assertStoppedOnce(t)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "requesting_permission", RequestingPermission.String())
	assert.Equal(t, "decoded", Decoded.String())
	assert.Equal(t, "state(9)", State(9).String())
}
