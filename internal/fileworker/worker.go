// Package fileworker reads and writes the on-disk document from a single
// background goroutine.
package fileworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/storage"
)

// DefaultBackoff is the wait before each save retry.
var DefaultBackoff = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

type op int

const (
	opLoad op = iota
	opSave
)

func (o op) String() string {
	if o == opLoad {
		return "load"
	}
	return "save"
}

type request struct {
	ctx   context.Context
	op    op
	dir   storage.Directory
	doc   *models.Document
	reply chan result
}

type result struct {
	doc *models.Document
	err error
}

// Worker serves load and save requests one at a time. It keeps no state
// between requests: every request carries its directory and document.
type Worker struct {
	reqs    chan request
	logger  *slog.Logger
	backoff []time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithBackoff overrides the retry schedule. Its length is the retry count.
func WithBackoff(b []time.Duration) Option {
	return func(w *Worker) { w.backoff = b }
}

// New creates a worker. Call Run to start serving.
func New(logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		reqs:    make(chan request),
		logger:  logger,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run serves requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("fileworker: started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("fileworker: stopped")
			return nil
		case req := <-w.reqs:
			var res result
			switch req.op {
			case opLoad:
				res.doc, res.err = w.load(req.dir)
			case opSave:
				res.err = w.save(req.ctx, req.dir, req.doc)
			}
			if res.err != nil {
				w.logger.Warn("fileworker: request failed",
					slog.String("op", req.op.String()),
					slog.String("dir", req.dir.Name()),
					slog.String("error", res.err.Error()))
			}
			req.reply <- res
		}
	}
}

// LoadData reads the document from dir. A missing or empty file returns
// (nil, nil).
func (w *Worker) LoadData(ctx context.Context, dir storage.Directory) (*models.Document, error) {
	if dir == nil {
		return nil, nil
	}
	res, err := w.do(ctx, request{ctx: ctx, op: opLoad, dir: dir})
	if err != nil {
		return nil, err
	}
	return res.doc, res.err
}

// SaveData overwrites the document in dir. Transient failures are retried;
// permission failures are not and return apperr.ErrNeedsRegrant.
func (w *Worker) SaveData(ctx context.Context, dir storage.Directory, doc *models.Document) error {
	if dir == nil {
		return fmt.Errorf("fileworker: save: %w", apperr.ErrNoDirectory)
	}
	if doc == nil {
		return fmt.Errorf("fileworker: save: %w: nil document", apperr.ErrInvalid)
	}
	res, err := w.do(ctx, request{ctx: ctx, op: opSave, dir: dir, doc: doc.ForDisk()})
	if err != nil {
		return err
	}
	return res.err
}

func (w *Worker) do(ctx context.Context, req request) (result, error) {
	req.reply = make(chan result, 1)
	select {
	case w.reqs <- req:
	case <-ctx.Done():
		return result{}, fmt.Errorf("fileworker: %s: %w", req.op, ctx.Err())
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, fmt.Errorf("fileworker: %s: %w", req.op, ctx.Err())
	}
}

func (w *Worker) load(dir storage.Directory) (*models.Document, error) {
	data, err := dir.ReadFile(storage.DataFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		w.logger.Debug("fileworker: no data file yet", slog.String("dir", dir.Name()))
		return nil, nil
	case storage.IsPermission(err):
		return nil, fmt.Errorf("fileworker: load: %w: %w", apperr.ErrNeedsRegrant, err)
	case err != nil:
		return nil, fmt.Errorf("fileworker: load: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fileworker: load: decode %s: %w", storage.DataFile, err)
	}
	return &doc, nil
}

func (w *Worker) save(ctx context.Context, dir storage.Directory, doc *models.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("fileworker: save: encode: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err = dir.WriteFile(storage.DataFile, data)
		if err == nil {
			w.logger.Debug("fileworker: saved",
				slog.String("dir", dir.Name()),
				slog.Int("bytes", len(data)),
				slog.Int("attempt", attempt+1))
			return nil
		}
		if storage.IsPermission(err) {
			return fmt.Errorf("fileworker: save: %w: %w", apperr.ErrNeedsRegrant, err)
		}
		if attempt >= len(w.backoff) {
			return fmt.Errorf("fileworker: save after %d attempts: %w", attempt+1, err)
		}
		delay := w.backoff[attempt]
		w.logger.Debug("fileworker: retrying save",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("fileworker: save: %w", ctx.Err())
		}
	}
}
