package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
)

// PollutantStats describes the readings of one pollutant within a site/year slice.
type PollutantStats struct {
	QueryResult `yaml:",inline"`
	Min         float64 `json:"min" yaml:"min"`
	Median      float64 `json:"median" yaml:"median"`
	Max         float64 `json:"max" yaml:"max"`
	StdDev      float64 `json:"std_dev" yaml:"std_dev"`
}

// SiteSummary is the per-pollutant overview of one site in one year.
type SiteSummary struct {
	Site       string           `json:"site" yaml:"site"`
	Year       int              `json:"year" yaml:"year"`
	Records    int              `json:"records" yaml:"records"`
	First      time.Time        `json:"first" yaml:"first"`
	Last       time.Time        `json:"last" yaml:"last"`
	Pollutants []PollutantStats `json:"pollutants" yaml:"pollutants"`
	Missing    []string         `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Summary computes statistics for every pollutant measured at site during year. Pollutants with
// no reading are listed in Missing.
func (e *Engine) Summary(site string, year int) (sum SiteSummary, err error) {
	defer e.observe("summary", time.Now(), &err)
	slice := e.corpus.Slice(site, year)
	if len(slice) == 0 {
		return SiteSummary{}, noData(site, year)
	}
	sum = SiteSummary{Site: site, Year: year, Records: len(slice), First: slice[0].Date, Last: slice[0].Date}
	for _, r := range slice {
		if r.Date.Before(sum.First) {
			sum.First = r.Date
		}
		if r.Date.After(sum.Last) {
			sum.Last = r.Date
		}
	}
	for _, p := range air.Pollutants() {
		var vals []float64
		for _, r := range slice {
			if v, ok := r.Readings.Get(p); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			sum.Missing = append(sum.Missing, p.String())
			continue
		}
		sort.Float64s(vals)
		res := QueryResult{Pollutant: p, Site: site, Year: year, Mean: stat.Mean(vals, nil), Count: len(vals)}
		if res.Verdict, err = advisory.Evaluate(p, res.Mean); err != nil {
			return SiteSummary{}, err
		}
		ps := PollutantStats{
			QueryResult: res,
			Min:         vals[0],
			Median:      median(vals),
			Max:         vals[len(vals)-1],
		}
		if len(vals) > 1 {
			ps.StdDev = stat.StdDev(vals, nil)
		}
		sum.Pollutants = append(sum.Pollutants, ps)
	}
	return sum, nil
}

// median of sorted vals; the mean of the two middle values when the count is even.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// HighCount returns how many pollutants have a HIGH average.
func (s SiteSummary) HighCount() int {
	n := 0
	for _, p := range s.Pollutants {
		if p.Verdict.High() {
			n++
		}
	}
	return n
}

// Markdown renders a compact report suitable for standalone docs.
func (s SiteSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("[SITE SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Site: %s\n", s.Site))
	b.WriteString(fmt.Sprintf("Year: %d\n", s.Year))
	b.WriteString(fmt.Sprintf("Records: %d (%s to %s)\n\n", s.Records, s.First.Format("2006-01-02"), s.Last.Format("2006-01-02")))

	b.WriteString("[POLLUTANTS]\n")
	for _, p := range s.Pollutants {
		b.WriteString(fmt.Sprintf("- %s: mean %.2f %s (n=%d; min %.4g, median %.4g, max %.4g",
			p.Pollutant, p.Mean, air.Unit, p.Count, p.Min, p.Median, p.Max))
		if p.StdDev > 0 {
			b.WriteString(fmt.Sprintf(", std %.4g", p.StdDev))
		}
		b.WriteString(fmt.Sprintf(") threshold %.4g: %s\n", p.Verdict.Threshold, p.Verdict.Level))
	}
	if len(s.Missing) > 0 {
		b.WriteString(fmt.Sprintf("- not measured: %s\n", strings.Join(s.Missing, ", ")))
	}

	b.WriteString("\n[ADVISORY]\n")
	if s.HighCount() == 0 {
		b.WriteString("All measured pollutants are within their thresholds.\n")
		return b.String()
	}
	for _, p := range s.Pollutants {
		if p.Verdict.High() {
			b.WriteString(fmt.Sprintf("- %s\n", p.Verdict.Message))
		}
	}
	return b.String()
}
