package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/bookmarks"
	"github.com/starford/tablero/internal/checksum"
	"github.com/starford/tablero/internal/coalesce"
	"github.com/starford/tablero/internal/fileworker"
	"github.com/starford/tablero/internal/kv"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/storage"
)

// DefaultDebounce is the coalescing window for background file writes.
const DefaultDebounce = 300 * time.Millisecond

// DefaultEngine is stored when a document names no search engine.
const DefaultEngine = "google"

// reservedPrefix marks fast-tier keys that belong to the coordinator rather
// than the document.
const reservedPrefix = "tablero:"

const keyDirectory = reservedPrefix + "directory"

const fileWriteTimeout = 30 * time.Second

// dirRecord is the persisted directory choice.
type dirRecord struct {
	Path    string `json:"path"`
	Granted bool   `json:"granted"`
}

// DirFactory builds a directory handle from a persisted record.
type DirFactory func(path string, granted bool) (storage.Directory, error)

// FileResult reports the outcome of one file write.
type FileResult struct {
	Err    error
	At     time.Time
	Manual bool
}

// Status is a snapshot of the sync state.
type Status struct {
	Directory    string             `json:"directory,omitempty"`
	Permission   storage.Permission `json:"permission,omitempty"`
	Pending      bool               `json:"pending"`
	NeedsRegrant bool               `json:"needsRegrant"`
	LastSaved    *time.Time         `json:"lastSaved,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
}

// Loaded is the first-paint document and where it came from.
type Loaded struct {
	Doc    *models.Document
	Source string
}

// Coordinator owns the storage tiers and the directory handle. Every
// method is safe for concurrent use.
type Coordinator struct {
	fast      kv.Backend
	synced    kv.Backend
	worker    *fileworker.Worker
	bookmarks bookmarks.Source
	newDir    DirFactory
	logger    *slog.Logger
	writer    *coalesce.Writer[*models.Document]
	group     singleflight.Group
	autoSync  bool

	mu         sync.Mutex
	dir        storage.Directory
	dirPath    string
	lastSum    string
	lastSaved  time.Time
	lastErr    error
	onFile     func(FileResult)
	dirChanged chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBookmarks sets the bookmark source used on first run.
func WithBookmarks(src bookmarks.Source) Option {
	return func(c *Coordinator) { c.bookmarks = src }
}

// WithDebounce overrides the file write coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		c.writer = coalesce.New(d, c.backgroundWrite)
	}
}

// WithAutoSync sets the autoSync value of a document created on first run.
func WithAutoSync(on bool) Option {
	return func(c *Coordinator) { c.autoSync = on }
}

// WithDirFactory overrides how directory handles are built.
func WithDirFactory(f DirFactory) Option {
	return func(c *Coordinator) { c.newDir = f }
}

// WithDirectory installs a directory handle directly, bypassing the
// persisted record.
func WithDirectory(dir storage.Directory, path string) Option {
	return func(c *Coordinator) {
		c.dir = dir
		c.dirPath = path
	}
}

// NewCoordinator wires the tiers together. The worker must be running.
func NewCoordinator(fast, synced kv.Backend, worker *fileworker.Worker, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		fast:       fast,
		synced:     synced,
		worker:     worker,
		logger:     logger,
		dirChanged: make(chan struct{}, 1),
		newDir: func(path string, granted bool) (storage.Directory, error) {
			return storage.NewLocalDir(path, granted)
		},
	}
	c.writer = coalesce.New(DefaultDebounce, c.backgroundWrite)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnFileResult registers the listener told about every file write.
func (c *Coordinator) OnFileResult(fn func(FileResult)) {
	c.mu.Lock()
	c.onFile = fn
	c.mu.Unlock()
}

// Load returns the first-paint document: the fast tier when it has tiles,
// else the on-disk file when access is granted, else the synced tier, else
// a first-run import.
func (c *Coordinator) Load(ctx context.Context) (*Loaded, error) {
	if err := c.restoreDirectory(ctx); err != nil {
		c.logger.Warn("persist: restore directory failed", slog.String("error", err.Error()))
	}

	res, ok := Resolve(ctx,
		Source{Name: SourceFast, Read: c.readFast},
		Source{Name: SourceDisk, Read: c.readDisk},
		Source{Name: SourceSynced, Read: c.readSynced},
	)
	for _, err := range res.Errs {
		c.logger.Warn("persist: load source failed", slog.String("error", err.Error()))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("persist: load: %w", err)
	}

	loaded := &Loaded{Doc: res.Doc, Source: res.Source}
	if !ok {
		doc, src, err := c.firstRun(ctx, res.Base)
		if err != nil {
			return nil, err
		}
		loaded = &Loaded{Doc: doc, Source: src}
	}
	if loaded.Doc.Engine == "" {
		loaded.Doc.Engine = DefaultEngine
	}

	if loaded.Source != SourceFast {
		if err := c.setTier(ctx, c.fast, loaded.Doc); err != nil {
			return nil, fmt.Errorf("persist: cache loaded document: %w", err)
		}
	}
	c.remember(loaded.Doc)

	c.logger.Info("persist: loaded",
		slog.String("source", loaded.Source),
		slog.Int("tiles", len(loaded.Doc.Tiles)),
		slog.Int("trash", len(loaded.Doc.Trash)))
	return loaded, nil
}

// firstRun seeds tiles from bookmarks, or the starter set when there are
// none. Settings from base are kept.
func (c *Coordinator) firstRun(ctx context.Context, base *models.Document) (*models.Document, string, error) {
	doc := base
	if doc == nil {
		doc = &models.Document{AutoSync: c.autoSync, Extra: map[string]json.RawMessage{}}
	}
	src := SourceStarter
	doc.Tiles = models.StarterTiles()
	if c.bookmarks != nil {
		bms, err := c.bookmarks.GetAll(ctx)
		if err != nil {
			c.logger.Warn("persist: bookmark import failed", slog.String("error", err.Error()))
		} else if len(bms) > 0 {
			doc.Tiles = bookmarks.Tiles(bms)
			src = SourceBookmarks
		}
	}
	if doc.Trash == nil {
		doc.Trash = []models.TrashEntry{}
	}
	c.logger.Info("persist: first run", slog.String("source", src), slog.Int("tiles", len(doc.Tiles)))
	return doc, src, nil
}

// Refresh re-reads the slower source in the background: the on-disk file
// when access is granted, else the synced tier. A document differing from
// the last one saved or applied is returned with true; the caller applies
// it. Concurrent calls share one read.
func (c *Coordinator) Refresh(ctx context.Context) (*models.Document, bool, error) {
	type outcome struct {
		doc     *models.Document
		changed bool
	}
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		doc, src, err := c.readSlow(ctx)
		if err != nil {
			return nil, err
		}
		if !doc.HasTiles() {
			return outcome{}, nil
		}
		sum, err := documentSum(doc)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		same := sum == c.lastSum
		if !same {
			c.lastSum = sum
		}
		c.mu.Unlock()
		if same {
			return outcome{}, nil
		}
		if src == SourceDisk {
			if err := c.setTier(ctx, c.fast, doc); err != nil {
				return nil, err
			}
		}
		c.logger.Info("persist: refreshed", slog.String("source", src), slog.Int("tiles", len(doc.Tiles)))
		return outcome{doc: doc, changed: true}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("persist: refresh: %w", err)
	}
	out := v.(outcome)
	if !out.changed {
		return nil, false, nil
	}
	// Callers get their own copy; the shared result must stay untouched.
	return out.doc.Clone(), true, nil
}

func (c *Coordinator) readSlow(ctx context.Context) (*models.Document, string, error) {
	if c.writer.Pending() {
		return nil, "", nil
	}
	dir, granted := c.grantedDirectory()
	if granted {
		doc, err := c.worker.LoadData(ctx, dir)
		if err != nil {
			return nil, SourceDisk, err
		}
		return doc, SourceDisk, nil
	}
	doc, err := c.readSynced(ctx)
	return doc, SourceSynced, err
}

// Save writes doc to the fast tier, mirrors it to the synced tier and, when
// auto-sync is on and a directory is set, schedules a coalesced file write.
// doc must not be mutated after the call.
func (c *Coordinator) Save(ctx context.Context, doc *models.Document) error {
	if err := c.setTier(ctx, c.fast, doc); err != nil {
		return fmt.Errorf("persist: save fast tier: %w: %w", apperr.ErrUnavailable, err)
	}
	c.remember(doc)
	if err := c.setTier(ctx, c.synced, doc); err != nil {
		c.logger.Warn("persist: mirror to synced tier failed", slog.String("error", err.Error()))
	}
	if doc.AutoSync && c.hasDirectory() {
		c.writer.Schedule(doc)
	}
	return nil
}

// SaveNow writes doc to the file immediately. It runs from a user action,
// so it may request directory access. Any pending background write is
// dropped in favour of this one.
func (c *Coordinator) SaveNow(ctx context.Context, doc *models.Document) error {
	if err := c.Save(ctx, doc); err != nil {
		return err
	}
	c.writer.Cancel()

	c.mu.Lock()
	dir := c.dir
	c.mu.Unlock()
	if dir == nil {
		return fmt.Errorf("persist: save now: %w", apperr.ErrNoDirectory)
	}
	p, err := dir.RequestPermission()
	if p != storage.PermissionGranted {
		err = permissionError(p, err)
		c.report(FileResult{Err: err, At: time.Now(), Manual: true})
		return fmt.Errorf("persist: save now: %w", err)
	}
	if err := c.storeDirectoryRecord(ctx, true); err != nil {
		c.logger.Warn("persist: record grant failed", slog.String("error", err.Error()))
	}

	err = c.worker.SaveData(ctx, dir, doc)
	c.report(FileResult{Err: err, At: time.Now(), Manual: true})
	if err != nil {
		return fmt.Errorf("persist: save now: %w", err)
	}
	return nil
}

// Flush forces the pending background write, if any, and waits for it.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.writer.Flush(ctx)
}

// backgroundWrite runs from the coalescing writer. It only queries access;
// a missing grant abandons the write and is reported, never retried.
func (c *Coordinator) backgroundWrite(doc *models.Document) {
	c.mu.Lock()
	dir := c.dir
	c.mu.Unlock()
	if dir == nil {
		return
	}
	p, err := dir.QueryPermission()
	if p != storage.PermissionGranted {
		c.report(FileResult{Err: permissionError(p, err), At: time.Now()})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), fileWriteTimeout)
	defer cancel()
	c.report(FileResult{Err: c.worker.SaveData(ctx, dir, doc), At: time.Now()})
}

func permissionError(p storage.Permission, err error) error {
	base := apperr.ErrNeedsRegrant
	if p == storage.PermissionDenied {
		base = apperr.ErrPermissionDenied
	}
	if err != nil {
		return fmt.Errorf("%w: %w", base, err)
	}
	return base
}

func (c *Coordinator) report(res FileResult) {
	c.mu.Lock()
	if res.Err == nil {
		c.lastSaved = res.At
		c.lastErr = nil
	} else {
		c.lastErr = res.Err
	}
	fn := c.onFile
	c.mu.Unlock()

	if res.Err != nil {
		c.logger.Warn("persist: file write failed",
			slog.Bool("manual", res.Manual),
			slog.String("error", res.Err.Error()))
	} else {
		c.logger.Debug("persist: file written", slog.Bool("manual", res.Manual))
	}
	if fn != nil {
		fn(res)
	}
}

// Status returns the current sync state. It queries, never requests,
// directory access.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	dir, path, lastSaved, lastErr := c.dir, c.dirPath, c.lastSaved, c.lastErr
	c.mu.Unlock()

	st := Status{Pending: c.writer.Pending()}
	if dir != nil {
		st.Directory = path
		if st.Directory == "" {
			st.Directory = dir.Name()
		}
		p, _ := dir.QueryPermission()
		st.Permission = p
		st.NeedsRegrant = p != storage.PermissionGranted
	}
	if !lastSaved.IsZero() {
		st.LastSaved = &lastSaved
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
		if errors.Is(lastErr, apperr.ErrNeedsRegrant) {
			st.NeedsRegrant = true
		}
	}
	return st
}

// SelectDirectory makes path the on-disk mirror location. It runs from a
// user action and requests access. When the directory holds no document
// yet, doc is written there straight away.
func (c *Coordinator) SelectDirectory(ctx context.Context, path string, doc *models.Document) error {
	dir, err := c.newDir(path, false)
	if err != nil {
		return fmt.Errorf("persist: select directory: %w", err)
	}
	p, err := dir.RequestPermission()
	if p != storage.PermissionGranted {
		return fmt.Errorf("persist: select directory: %w", permissionError(p, err))
	}

	c.writer.Cancel()
	c.mu.Lock()
	c.dir = dir
	c.dirPath = path
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyDirChanged()

	if err := c.storeDirectoryRecord(ctx, true); err != nil {
		return fmt.Errorf("persist: select directory: %w", err)
	}

	if _, err := dir.ReadFile(storage.DataFile); errors.Is(err, fs.ErrNotExist) && doc != nil {
		err = c.worker.SaveData(ctx, dir, doc)
		c.report(FileResult{Err: err, At: time.Now(), Manual: true})
		if err != nil {
			return fmt.Errorf("persist: select directory: create data file: %w", err)
		}
	}
	c.logger.Info("persist: directory selected", slog.String("path", path))
	return nil
}

// ForgetDirectory drops the directory choice and any pending write.
func (c *Coordinator) ForgetDirectory(ctx context.Context) error {
	c.writer.Cancel()
	c.mu.Lock()
	c.dir = nil
	c.dirPath = ""
	c.lastErr = nil
	c.mu.Unlock()
	c.notifyDirChanged()

	if err := c.fast.Delete(ctx, keyDirectory); err != nil {
		return fmt.Errorf("persist: forget directory: %w", err)
	}
	c.logger.Info("persist: directory forgotten")
	return nil
}

// UseDirectory installs a directory chosen by configuration, treated as
// granted. A directory already restored from a user choice wins.
func (c *Coordinator) UseDirectory(path string) error {
	dir, err := c.newDir(path, true)
	if err != nil {
		return fmt.Errorf("persist: use directory: %w", err)
	}
	c.mu.Lock()
	if c.dir != nil {
		c.mu.Unlock()
		return nil
	}
	c.dir = dir
	c.dirPath = path
	c.mu.Unlock()
	c.notifyDirChanged()
	return nil
}

// DirectoryPath returns the configured directory path, if any.
func (c *Coordinator) DirectoryPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirPath
}

func (c *Coordinator) notifyDirChanged() {
	select {
	case c.dirChanged <- struct{}{}:
	default:
	}
}

func (c *Coordinator) hasDirectory() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir != nil
}

func (c *Coordinator) grantedDirectory() (storage.Directory, bool) {
	c.mu.Lock()
	dir := c.dir
	c.mu.Unlock()
	if dir == nil {
		return nil, false
	}
	p, err := dir.QueryPermission()
	return dir, err == nil && p == storage.PermissionGranted
}

func (c *Coordinator) restoreDirectory(ctx context.Context) error {
	c.mu.Lock()
	have := c.dir != nil
	c.mu.Unlock()
	if have {
		return nil
	}
	vals, err := c.fast.Get(ctx, keyDirectory)
	if err != nil {
		return err
	}
	raw, ok := vals[keyDirectory]
	if !ok {
		return nil
	}
	var rec dirRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode directory record: %w", err)
	}
	if rec.Path == "" {
		return nil
	}
	dir, err := c.newDir(rec.Path, rec.Granted)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.dir = dir
	c.dirPath = rec.Path
	c.mu.Unlock()
	c.notifyDirChanged()
	return nil
}

func (c *Coordinator) storeDirectoryRecord(ctx context.Context, granted bool) error {
	c.mu.Lock()
	rec := dirRecord{Path: c.dirPath, Granted: granted}
	c.mu.Unlock()
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.fast.Set(ctx, map[string]json.RawMessage{keyDirectory: raw})
}

func (c *Coordinator) readFast(ctx context.Context) (*models.Document, error) {
	return readTier(ctx, c.fast)
}

func (c *Coordinator) readSynced(ctx context.Context) (*models.Document, error) {
	return readTier(ctx, c.synced)
}

func (c *Coordinator) readDisk(ctx context.Context) (*models.Document, error) {
	dir, granted := c.grantedDirectory()
	if !granted {
		return nil, nil
	}
	return c.worker.LoadData(ctx, dir)
}

func readTier(ctx context.Context, b kv.Backend) (*models.Document, error) {
	vals, err := b.Get(ctx)
	if err != nil {
		return nil, err
	}
	for k := range vals {
		if strings.HasPrefix(k, reservedPrefix) {
			delete(vals, k)
		}
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return models.FromFields(vals)
}

func (c *Coordinator) setTier(ctx context.Context, b kv.Backend, doc *models.Document) error {
	fields, err := doc.Fields()
	if err != nil {
		return err
	}
	return b.Replace(ctx, fields, reservedPrefix)
}

func (c *Coordinator) remember(doc *models.Document) {
	sum, err := documentSum(doc)
	if err != nil {
		c.logger.Warn("persist: checksum failed", slog.String("error", err.Error()))
		return
	}
	c.mu.Lock()
	c.lastSum = sum
	c.mu.Unlock()
}

// documentSum hashes the canonical encoding of the on-disk view of doc.
func documentSum(doc *models.Document) (string, error) {
	return checksum.JSON(doc.ForDisk())
}
