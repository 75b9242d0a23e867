// Package testutil provides shared test helpers: loggers, pollers, storage
// fixtures and an in-memory directory.
package testutil

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/tablero/internal/kv"
	"github.com/starford/tablero/internal/storage"
)

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// TestKV opens a SQLite key-value tier in a temp dir, closed on cleanup.
func TestKV(t *testing.T, name string) *kv.SQLite {
	t.Helper()
	db, err := kv.Open(filepath.Join(t.TempDir(), name+".db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temp directory handle with access already granted.
func TestDir(t *testing.T) *storage.LocalDir {
	t.Helper()
	d, err := storage.NewLocalDir(t.TempDir(), true)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// MemDir is an in-memory storage.Directory with scriptable permission and
// failures.
type MemDir struct {
	mu         sync.Mutex
	name       string
	files      map[string][]byte
	permission storage.Permission
	grantable  bool
	failWrites int
	writeErr   error
	writes     int
	requests   int
}

// NewMemDir returns a directory in the given permission state. Requests
// grant access unless SetGrantable(false) is called.
func NewMemDir(name string, p storage.Permission) *MemDir {
	return &MemDir{name: name, files: map[string][]byte{}, permission: p, grantable: true}
}

func (d *MemDir) Name() string { return d.name }

func (d *MemDir) ReadFile(name string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("memdir: read %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (d *MemDir) WriteFile(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	if d.failWrites > 0 {
		d.failWrites--
		return d.writeErr
	}
	d.files[name] = append([]byte(nil), data...)
	return nil
}

func (d *MemDir) QueryPermission() (storage.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission, nil
}

func (d *MemDir) RequestPermission() (storage.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++
	if d.grantable {
		d.permission = storage.PermissionGranted
	} else {
		d.permission = storage.PermissionDenied
	}
	return d.permission, nil
}

// SetPermission changes the permission state.
func (d *MemDir) SetPermission(p storage.Permission) {
	d.mu.Lock()
	d.permission = p
	d.mu.Unlock()
}

// SetGrantable controls the outcome of RequestPermission.
func (d *MemDir) SetGrantable(ok bool) {
	d.mu.Lock()
	d.grantable = ok
	d.mu.Unlock()
}

// FailWrites makes the next n writes fail with err.
func (d *MemDir) FailWrites(n int, err error) {
	d.mu.Lock()
	d.failWrites = n
	d.writeErr = err
	d.mu.Unlock()
}

// Put stores a file directly.
func (d *MemDir) Put(name string, data []byte) {
	d.mu.Lock()
	d.files[name] = append([]byte(nil), data...)
	d.mu.Unlock()
}

// File returns a stored file.
func (d *MemDir) File(name string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[name]
	return data, ok
}

// Writes returns how many writes were attempted.
func (d *MemDir) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Requests returns how many times permission was requested.
func (d *MemDir) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}
