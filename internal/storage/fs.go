package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// LocalDir implements Directory over an OS directory. Access is granted
// explicitly through RequestPermission and is dropped again as soon as the
// directory stops being writable.
type LocalDir struct {
	root    string // absolute path
	granted atomic.Bool
}

// NewLocalDir returns a handle for root. granted restores a grant recorded
// by an earlier session; it is re-checked on every query.
func NewLocalDir(root string, granted bool) (*LocalDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	d := &LocalDir{root: abs}
	d.granted.Store(granted)
	return d, nil
}

// Name returns the base name of the directory.
func (d *LocalDir) Name() string { return filepath.Base(d.root) }

// safePath joins a plain file name onto the root. Names containing a path
// separator or dot segments are rejected.
func (d *LocalDir) safePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("storage: invalid file name: %q", name)
	}
	return filepath.Join(d.root, name), nil
}

// ReadFile returns the bytes of name.
func (d *LocalDir) ReadFile(name string) ([]byte, error) {
	abs, err := d.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// WriteFile atomically replaces name with data.
func (d *LocalDir) WriteFile(name string, data []byte) error {
	abs, err := d.safePath(name)
	if err != nil {
		return err
	}
	return WriteAtomic(abs, data)
}

// QueryPermission reports granted only while a recorded grant exists and the
// directory is still writable. A lost directory downgrades to prompt.
func (d *LocalDir) QueryPermission() (Permission, error) {
	if !d.granted.Load() {
		return PermissionPrompt, nil
	}
	if err := d.probe(); err != nil {
		d.granted.Store(false)
		return PermissionPrompt, nil
	}
	return PermissionGranted, nil
}

// RequestPermission grants access when the directory exists and is writable.
func (d *LocalDir) RequestPermission() (Permission, error) {
	if err := d.probe(); err != nil {
		d.granted.Store(false)
		return PermissionDenied, err
	}
	d.granted.Store(true)
	return PermissionGranted, nil
}

func (d *LocalDir) probe() error {
	info, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: root is not a directory: %s", d.root)
	}
	f, err := os.CreateTemp(d.root, ".tablero-probe-*")
	if err != nil {
		return fmt.Errorf("storage: probe: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// WriteAtomic writes content to path: tmp file, fsync, rename.
func WriteAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tablero-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// IsPermission reports whether err is an access failure rather than a
// transient IO error.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
