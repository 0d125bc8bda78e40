// Package corpus merges the datasets of every configured source into one immutable, queryable
// set of measurement records.
package corpus

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
)

// ErrNoSources is returned when Assemble is called without any source.
var ErrNoSources = errors.New("no sources configured")

// Loader loads one source. *dataset.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, src dataset.Source) (*dataset.Dataset, error)
}

// Corpus is the read-only union of all source records. It is safe for concurrent use; none of
// its methods mutate it.
type Corpus struct {
	id       string
	loadedAt time.Time
	records  []air.Record
	datasets []*dataset.Dataset
	sites    []string
	years    []int
	bySite   map[string][]int
}

// Assemble loads every source concurrently and merges them in source order. It fails if any
// source is unavailable; there is no partial corpus.
func Assemble(ctx context.Context, loader Loader, sources []dataset.Source, clock clockwork.Clock) (*Corpus, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	datasets := make([]*dataset.Dataset, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			ds, err := loader.Load(gctx, src)
			if err != nil {
				return err
			}
			datasets[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []air.Record
	for _, ds := range datasets {
		records = append(records, ds.Records...)
	}
	c := New(records)
	c.datasets = datasets
	c.loadedAt = clock.Now()
	return c, nil
}

// New builds a corpus directly from records. The slice is copied.
func New(records []air.Record) *Corpus {
	c := &Corpus{
		id:      uuid.NewString(),
		records: append([]air.Record(nil), records...),
		bySite:  make(map[string][]int),
	}
	years := map[int]bool{}
	for i, r := range c.records {
		if _, ok := c.bySite[r.Site]; !ok {
			c.sites = append(c.sites, r.Site)
		}
		c.bySite[r.Site] = append(c.bySite[r.Site], i)
		years[r.Date.Year()] = true
	}
	sort.Strings(c.sites)
	for y := range years {
		c.years = append(c.years, y)
	}
	sort.Ints(c.years)
	return c
}

// ID identifies this assembly; it changes every time a corpus is built.
func (c *Corpus) ID() string { return c.id }

// LoadedAt is when Assemble finished. Zero for corpora built with New.
func (c *Corpus) LoadedAt() time.Time { return c.loadedAt }

// Len returns the number of records.
func (c *Corpus) Len() int { return len(c.records) }

// Records returns a copy of all records in load order.
func (c *Corpus) Records() []air.Record {
	return append([]air.Record(nil), c.records...)
}

// Datasets returns the per-source datasets the corpus was assembled from.
func (c *Corpus) Datasets() []*dataset.Dataset {
	return append([]*dataset.Dataset(nil), c.datasets...)
}

// Sites returns the distinct site names, sorted.
func (c *Corpus) Sites() []string {
	return append([]string(nil), c.sites...)
}

// HasSite reports whether any record belongs to site. Matching is exact.
func (c *Corpus) HasSite(site string) bool {
	_, ok := c.bySite[site]
	return ok
}

// Years returns the distinct calendar years present, ascending.
func (c *Corpus) Years() []int {
	return append([]int(nil), c.years...)
}

// Slice returns the records for site dated within year, in load order. The match on site is
// exact and case-sensitive.
func (c *Corpus) Slice(site string, year int) []air.Record {
	var out []air.Record
	for _, i := range c.bySite[site] {
		if r := c.records[i]; r.Date.Year() == year {
			out = append(out, r)
		}
	}
	return out
}
