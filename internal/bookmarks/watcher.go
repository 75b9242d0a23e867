package bookmarks

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch calls onChange after the bookmarks file is rewritten, once per burst
// of events. The parent directory is watched because browsers replace the
// file by renaming a temporary one over it. Runs until ctx is cancelled.
func (c ChromeFile) Watch(ctx context.Context, logger *slog.Logger, onChange func()) error {
	if c.Path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, name := filepath.Split(filepath.Clean(c.Path))
	if err := w.Add(filepath.Clean(dir)); err != nil {
		logger.Warn("bookmarks: cannot watch", slog.String("path", c.Path), slog.String("error", err.Error()))
		return nil
	}
	logger.Info("bookmarks: watching", slog.String("path", c.Path))

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timerC:
			timer, timerC = nil, nil
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("bookmarks: watch error", slog.String("error", watchErr.Error()))
		}
	}
}
