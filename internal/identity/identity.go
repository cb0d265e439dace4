// Package identity supplies the owner id attached to every request. Clients
// get it from a Provider; the server reads it from the X-User-ID header.
//
// The id is a logical partition key only. Any client can claim any id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const HeaderUserID = "X-User-ID"

// Provider returns the id a client acts as.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// StaticProvider always returns the same id.
type StaticProvider string

func (p StaticProvider) UserID(context.Context) (string, error) {
	if p == "" {
		return "", errors.New("static identity is empty")
	}
	return string(p), nil
}

// FileProvider keeps one guest id in a file, creating it on first use.
type FileProvider struct {
	path string
	now  func() time.Time

	mu sync.Mutex
	id string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path, now: time.Now}
}

func (p *FileProvider) UserID(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id, nil
	}

	data, err := os.ReadFile(p.path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			p.id = id
			return id, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read identity file: %w", err)
	}

	id := NewGuestID(p.now())
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write identity file: %w", err)
	}
	p.id = id
	return id, nil
}

// NewGuestID formats guest_<unix ms>_<8 random hex chars>.
func NewGuestID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("guest_%d_%s", now.UnixMilli(), random)
}

// DefaultPath is the identity file used by command-line clients.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pantrytrack", "identity")
}
