package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/tadb/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultStagger = 500 * time.Millisecond

// Loader resolves a data set to its records: static file first, then the
// fallback store. Each data set is resolved at most once per Loader; the
// result (even an empty fallback read) stays cached for its lifetime.
type Loader struct {
	source domain.StaticSource // nil = no static source
	store  domain.FallbackStore
	logger *slog.Logger

	stagger time.Duration
	sleep   func(ctx context.Context, d time.Duration) error

	cache   map[domain.DataType][]domain.Record
	static  map[domain.DataType]staticResult
	cacheMu sync.RWMutex
	flight  singleflight.Group
}

// staticResult remembers the outcome of the single static attempt for a type
type staticResult struct {
	records []domain.Record
	ok      bool
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithStagger sets the delay between consecutive saves in TriggerDownloads
func WithStagger(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d >= 0 {
			l.stagger = d
		}
	}
}

// NewLoader creates a new typed-data loader
func NewLoader(source domain.StaticSource, store domain.FallbackStore, logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		source:  source,
		store:   store,
		logger:  logger,
		stagger: defaultStagger,
		sleep:   sleepContext,
		cache:   make(map[domain.DataType][]domain.Record),
		static:  make(map[domain.DataType]staticResult),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the fallback store the loader reads from
func (l *Loader) Store() domain.FallbackStore {
	return l.store
}

// LoadFromStatic fetches the static file for t. On a well-formed JSON
// array the result is cached and returned with ok=true. Every failure is
// an expected outcome and yields ok=false.
func (l *Loader) LoadFromStatic(ctx context.Context, t domain.DataType) ([]domain.Record, bool) {
	if l.source == nil || !t.Valid() {
		return nil, false
	}

	data, err := l.source.Fetch(ctx, t)
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			l.logger.Debug("no static file, using fallback store", "type", t)
		} else {
			l.logger.Warn("static source failed, using fallback store", "type", t, "error", err)
		}
		return nil, false
	}

	records, err := decodeRecords(data)
	if err != nil {
		l.logger.Warn("malformed static file, using fallback store", "type", t, "error", err)
		return nil, false
	}

	l.setCache(t, records)
	l.logger.Info("loaded from static file", "type", t, "count", len(records))
	return domain.CloneRecords(records), true
}

// StaticData returns the outcome of the static attempt for t, making the
// attempt only the first time. An attempt cut short by ctx is not
// remembered.
func (l *Loader) StaticData(ctx context.Context, t domain.DataType) ([]domain.Record, bool) {
	if r, done := l.getStatic(t); done {
		return domain.CloneRecords(r.records), r.ok
	}

	v, _, _ := l.flight.Do("static:"+string(t), func() (interface{}, error) {
		if r, done := l.getStatic(t); done {
			return r, nil
		}
		records, ok := l.LoadFromStatic(ctx, t)
		r := staticResult{records: records, ok: ok}
		if ok || ctx.Err() == nil {
			l.cacheMu.Lock()
			l.static[t] = r
			l.cacheMu.Unlock()
		}
		return r, nil
	})

	r := v.(staticResult)
	return domain.CloneRecords(r.records), r.ok
}

// LoadFromFallback reads t from the fallback store. A missing entry or
// one that fails to parse yields an empty slice.
func (l *Loader) LoadFromFallback(t domain.DataType) []domain.Record {
	records, err := l.readFallback(t)
	if err != nil {
		l.logger.Error("failed to load from fallback store", "type", t, "error", err)
		return []domain.Record{}
	}
	return records
}

func (l *Loader) readFallback(t domain.DataType) ([]domain.Record, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDataType, t)
	}
	if l.store == nil {
		return []domain.Record{}, nil
	}

	data, ok, err := l.store.Get(t.StorageKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.Record{}, nil
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded from fallback store", "type", t, "count", len(records))
	return records, nil
}

// GetData returns the records for t, resolving them on first use:
// cached slot, else static file, else fallback store. It never fails.
func (l *Loader) GetData(ctx context.Context, t domain.DataType) []domain.Record {
	if records, ok := l.getFromCache(t); ok {
		return records
	}

	// Concurrent first calls share one resolution
	v, _, _ := l.flight.Do("data:"+string(t), func() (interface{}, error) {
		if records, ok := l.getFromCache(t); ok {
			return records, nil
		}
		if records, ok := l.StaticData(ctx, t); ok {
			return records, nil
		}
		records := l.LoadFromFallback(t)
		if ctx.Err() != nil {
			// The static attempt may not have finished; leave the slot open
			return records, nil
		}
		l.setCache(t, records)
		return records, nil
	})

	return domain.CloneRecords(v.([]domain.Record))
}

// ExportFiles serializes every data set currently in the fallback store
// (not the cache or static files) as indented JSON.
func (l *Loader) ExportFiles() []domain.ExportFile {
	files := make([]domain.ExportFile, 0, len(domain.AllDataTypes))
	for _, t := range domain.AllDataTypes {
		records := l.LoadFromFallback(t)
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			l.logger.Error("failed to encode export", "type", t, "error", err)
			data = []byte("[]")
		}
		files = append(files, domain.ExportFile{
			Type:     t,
			Data:     data,
			Filename: t.FileName(),
			Size:     len(data),
		})
	}
	return files
}

// TriggerDownloads exports every data set and hands each file to saver,
// one every stagger interval. Each file's content is released once its
// save has been issued. A failed save does not stop the others.
func (l *Loader) TriggerDownloads(ctx context.Context, saver domain.Saver) ([]domain.ExportFile, error) {
	files := l.ExportFiles()

	var errs []error
	for i := range files {
		if i > 0 {
			if err := l.sleep(ctx, l.stagger); err != nil {
				errs = append(errs, err)
				break
			}
		}

		f := &files[i]
		if err := saver.Save(ctx, f.Filename, f.Data); err != nil {
			l.logger.Error("failed to save export", "file", f.Filename, "error", err)
			errs = append(errs, fmt.Errorf("save %s: %w", f.Filename, err))
		} else {
			l.logger.Info("exported data", "file", f.Filename, "bytes", f.Size)
		}
		f.Release()
	}

	// Files skipped by cancellation are released too
	for i := range files {
		files[i].Release()
	}
	return files, errors.Join(errs...)
}

// Stats resolves every data set and returns the record counts
func (l *Loader) Stats(ctx context.Context) domain.Stats {
	counts := make([]int, len(domain.AllDataTypes))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range domain.AllDataTypes {
		g.Go(func() error {
			counts[i] = len(l.GetData(gctx, t))
			return nil
		})
	}
	_ = g.Wait() // GetData never fails

	stats := domain.Stats{
		Posts:    counts[0],
		Schedule: counts[1],
		Creators: counts[2],
	}
	stats.Total = stats.Posts + stats.Schedule + stats.Creators
	return stats
}

// Reset deletes the stored data for types, or for every known data set in
// the store when types is empty, and drops their cached slots. Keys that
// do not belong to a data set are left alone.
func (l *Loader) Reset(types ...domain.DataType) ([]domain.DataType, error) {
	if l.store == nil {
		return nil, fmt.Errorf("reset: no fallback store")
	}

	if len(types) == 0 {
		keys, err := l.store.Keys()
		if err != nil {
			return nil, fmt.Errorf("list stored keys: %w", err)
		}
		for _, key := range keys {
			if t, ok := dataTypeForKey(key); ok {
				types = append(types, t)
			}
		}
	}

	var (
		removed []domain.DataType
		errs    []error
	)
	for _, t := range types {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", domain.ErrUnknownDataType, t))
			continue
		}
		if err := l.store.Delete(t.StorageKey()); err != nil {
			l.logger.Error("failed to reset data", "type", t, "error", err)
			errs = append(errs, fmt.Errorf("delete %s: %w", t, err))
			continue
		}

		l.cacheMu.Lock()
		delete(l.cache, t)
		l.cacheMu.Unlock()

		removed = append(removed, t)
		l.logger.Info("reset stored data", "type", t)
	}
	return removed, errors.Join(errs...)
}

func dataTypeForKey(key string) (domain.DataType, bool) {
	for _, t := range domain.AllDataTypes {
		if t.StorageKey() == key {
			return t, true
		}
	}
	return "", false
}

// getFromCache returns a copy of the cached slot for t
func (l *Loader) getFromCache(t domain.DataType) ([]domain.Record, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()

	records, ok := l.cache[t]
	if !ok {
		return nil, false
	}
	return domain.CloneRecords(records), true
}

func (l *Loader) getStatic(t domain.DataType) (staticResult, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()
	r, ok := l.static[t]
	return r, ok
}

func (l *Loader) setCache(t domain.DataType, records []domain.Record) {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	l.cache[t] = domain.CloneRecords(records)
}

// decodeRecords parses a JSON array into its elements. A JSON null is
// rejected: it is well-formed but is not a collection.
func decodeRecords(data []byte) ([]domain.Record, error) {
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("parse records: expected JSON array, got null")
	}
	return records, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
