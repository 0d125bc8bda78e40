package dataset

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

// Source names one input file.
type Source struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// Dataset is the normalized content of one source. Records and Tables are shared between
// callers and must not be modified.
type Dataset struct {
	Source  Source
	Records []air.Record
	Tables  []TableReport
}

type parsed struct {
	records []air.Record
	tables  []TableReport
}

// Loader reads sources and caches the result per file for the lifetime of the process.
// Concurrent loads of the same file share a single parse.
type Loader struct {
	opt     Options
	logger  *slog.Logger
	metrics *observability.Metrics

	group  singleflight.Group
	mu     sync.Mutex
	cache  map[string]*parsed
	parses atomic.Int64
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(opt Options, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if opt.SiteColumn == "" {
		opt.SiteColumn = DefaultOptions().SiteColumn
	}
	if opt.DateColumn == "" {
		opt.DateColumn = DefaultOptions().DateColumn
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Loader{opt: opt, logger: logger, metrics: metrics, cache: make(map[string]*parsed)}
}

// Load returns the normalized dataset for src, or a *SourceUnavailableError. It never returns
// a partial table: either every sub-table was read or the source is unavailable.
func (l *Loader) Load(ctx context.Context, src Source) (*Dataset, error) {
	key, err := filepath.Abs(src.Path)
	if err != nil {
		key = filepath.Clean(src.Path)
	}

	l.mu.Lock()
	p, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return &Dataset{Source: src, Records: p.records, Tables: p.tables}, nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		l.mu.Lock()
		p, ok := l.cache[key]
		l.mu.Unlock()
		if ok {
			return p, nil
		}
		return l.parse(src, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var sue *SourceUnavailableError
			if errors.As(res.Err, &sue) {
				// The shared parse may have been started under a different source name.
				cp := *sue
				cp.Source = src.Name
				return nil, &cp
			}
			return nil, res.Err
		}
		p := res.Val.(*parsed)
		return &Dataset{Source: src, Records: p.records, Tables: p.tables}, nil
	}
}

func (l *Loader) parse(src Source, key string) (*parsed, error) {
	start := time.Now()
	l.parses.Add(1)

	tables, err := ReadTables(src.Path, l.opt)
	if err != nil {
		reason := ReasonUnreadable
		switch {
		case errors.Is(err, fs.ErrNotExist):
			reason = ReasonNotFound
		case errors.Is(err, ErrUnsupported):
			reason = ReasonUnsupported
		}
		return nil, &SourceUnavailableError{Source: src.Name, Path: src.Path, Reason: reason, Err: err}
	}

	p := &parsed{}
	included := 0
	for _, t := range tables {
		recs, rep := Normalize(t, l.opt)
		p.tables = append(p.tables, rep)
		if !rep.Included {
			l.logger.Debug("sub-table skipped", "source", src.Name, "table", rep.Name, "reason", rep.SkipReason)
			continue
		}
		included++
		p.records = append(p.records, recs...)
		if rep.DroppedDates > 0 {
			l.logger.Debug("rows with unparsable dates dropped", "source", src.Name, "table", rep.Name, "count", rep.DroppedDates)
		}
	}
	if included == 0 {
		return nil, &SourceUnavailableError{Source: src.Name, Path: src.Path, Reason: ReasonNoEligibleTables}
	}

	l.mu.Lock()
	l.cache[key] = p
	l.mu.Unlock()

	elapsed := time.Since(start)
	l.metrics.ObserveLoad(src.Name, elapsed)
	l.logger.Info("source loaded",
		"source", src.Name,
		"path", src.Path,
		"subtables", len(tables),
		"included", included,
		"records", len(p.records),
		"duration", elapsed,
	)
	return p, nil
}
