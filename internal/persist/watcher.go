package persist

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/storage"
)

const (
	watchDebounce = 200 * time.Millisecond
	watchRetry    = 5 * time.Second
)

// Watch follows the data file of the configured directory and passes every
// externally changed document to onReload. It re-targets when the directory
// changes and runs until ctx is cancelled.
func (c *Coordinator) Watch(ctx context.Context, onReload func(*models.Document)) error {
	for {
		path := c.DirectoryPath()
		if path == "" {
			select {
			case <-ctx.Done():
				return nil
			case <-c.dirChanged:
				continue
			}
		}

		if err := c.watchDir(ctx, path, onReload); err != nil {
			c.logger.Warn("watcher: cannot watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-c.dirChanged:
			case <-time.After(watchRetry):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// watchDir returns nil when ctx ends or the directory changes.
func (c *Coordinator) watchDir(ctx context.Context, path string, onReload func(*models.Document)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}
	c.logger.Info("watcher: started", slog.String("path", path))

	var timer *time.Timer
	var timerC <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerC = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("watcher: stopped")
			return nil

		case <-c.dirChanged:
			c.logger.Info("watcher: directory changed", slog.String("old", path))
			return nil

		case <-timerC:
			doc, changed, err := c.Refresh(ctx)
			if err != nil {
				c.logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			if changed && onReload != nil {
				c.logger.Info("watcher: data file changed externally")
				onReload(doc)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != storage.DataFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
