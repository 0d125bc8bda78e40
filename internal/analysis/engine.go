// Package analysis answers queries over a corpus: per-pollutant averages, dated series, per-site
// summaries and linear year-end forecasts.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/corpus"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

// QueryResult is the mean of one pollutant over a site/year slice.
type QueryResult struct {
	Pollutant air.Pollutant    `json:"pollutant" yaml:"pollutant"`
	Site      string           `json:"site" yaml:"site"`
	Year      int              `json:"year" yaml:"year"`
	Mean      float64          `json:"mean" yaml:"mean"`
	Count     int              `json:"count" yaml:"count"`
	Verdict   advisory.Verdict `json:"verdict" yaml:"verdict"`
}

// Point is one dated reading.
type Point struct {
	Date  time.Time `json:"date" yaml:"date"`
	Value float64   `json:"value" yaml:"value"`
}

// Engine runs read-only queries against a corpus. It holds no mutable state and may be shared.
type Engine struct {
	corpus  *corpus.Corpus
	metrics *observability.Metrics
}

// NewEngine returns an engine over c. metrics may be nil.
func NewEngine(c *corpus.Corpus, metrics *observability.Metrics) *Engine {
	return &Engine{corpus: c, metrics: metrics}
}

// Sites lists the sites that can be queried.
func (e *Engine) Sites() []string { return e.corpus.Sites() }

// Pollutants lists the pollutants that can be queried, in display order.
func (e *Engine) Pollutants() []air.Pollutant { return air.Pollutants() }

// Years lists the years present in the corpus.
func (e *Engine) Years() []int { return e.corpus.Years() }

// Average returns the mean of p over records for site in year. Records without a reading for p
// count neither toward the sum nor the divisor. It returns air.ErrNoData when no record matches
// site and year, and air.ErrNoReadings when records match but none carries p.
func (e *Engine) Average(site string, p air.Pollutant, year int) (res QueryResult, err error) {
	defer e.observe("average", time.Now(), &err)
	if !p.Valid() {
		return QueryResult{}, fmt.Errorf("%w: %d", air.ErrUnknownPollutant, int(p))
	}
	slice := e.corpus.Slice(site, year)
	if len(slice) == 0 {
		return QueryResult{}, noData(site, year)
	}
	var sum float64
	n := 0
	for _, r := range slice {
		if v, ok := r.Readings.Get(p); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return QueryResult{}, fmt.Errorf("%w: %s at %s in %d", air.ErrNoReadings, p, site, year)
	}
	res = QueryResult{Pollutant: p, Site: site, Year: year, Mean: sum / float64(n), Count: n}
	if res.Verdict, err = advisory.Evaluate(p, res.Mean); err != nil {
		return QueryResult{}, err
	}
	return res, nil
}

// Series returns the readings of p for site in year ordered by date. Records sharing a date keep
// their load order.
func (e *Engine) Series(site string, p air.Pollutant, year int) (pts []Point, err error) {
	defer e.observe("series", time.Now(), &err)
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", air.ErrUnknownPollutant, int(p))
	}
	slice := e.corpus.Slice(site, year)
	if len(slice) == 0 {
		return nil, noData(site, year)
	}
	for _, r := range slice {
		if v, ok := r.Readings.Get(p); ok {
			pts = append(pts, Point{Date: r.Date, Value: v})
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: %s at %s in %d", air.ErrNoReadings, p, site, year)
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	return pts, nil
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	e.metrics.ObserveQuery(op, Outcome(*err), time.Since(start))
}

func noData(site string, year int) error {
	return fmt.Errorf("%w: %s in %d", air.ErrNoData, site, year)
}

// Outcome classifies a query error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, air.ErrNoData):
		return "no_data"
	case errors.Is(err, air.ErrNoReadings):
		return "no_readings"
	case errors.Is(err, air.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, air.ErrUnknownPollutant):
		return "unknown_pollutant"
	default:
		return "error"
	}
}
