package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/corpus"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

// XY is one observation on the trend axis: X is elapsed days since day zero.
type XY struct {
	X, Y float64
}

// Fitter fits a straight line y = intercept + slope*x.
type Fitter interface {
	Fit(points []XY) (intercept, slope float64, err error)
}

// OLS is an ordinary least-squares Fitter. It needs at least two distinct x values.
type OLS struct{}

// Fit implements Fitter.
func (OLS) Fit(points []XY) (float64, float64, error) {
	if distinctX(points) < 2 {
		return 0, 0, fmt.Errorf("%w: need two distinct days, have %d", air.ErrInsufficientData, distinctX(points))
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return 0, 0, fmt.Errorf("%w: degenerate fit", air.ErrInsufficientData)
	}
	return alpha, beta, nil
}

func distinctX(points []XY) int {
	seen := make(map[float64]struct{}, len(points))
	for _, p := range points {
		seen[p.X] = struct{}{}
	}
	return len(seen)
}

// ForecastResult is a year-end extrapolation for one site and pollutant.
type ForecastResult struct {
	Pollutant air.Pollutant    `json:"pollutant" yaml:"pollutant"`
	Site      string           `json:"site" yaml:"site"`
	Year      int              `json:"year" yaml:"year"`
	Predicted float64          `json:"predicted" yaml:"predicted"`
	BasedOn   int              `json:"based_on" yaml:"based_on"`
	DayZero   time.Time        `json:"day_zero" yaml:"day_zero"`
	TargetDay int              `json:"target_day" yaml:"target_day"`
	Intercept float64          `json:"intercept" yaml:"intercept"`
	Slope     float64          `json:"slope" yaml:"slope"`
	Verdict   advisory.Verdict `json:"verdict" yaml:"verdict"`
}

// Forecaster extrapolates a site's readings to December 31 of the queried year.
type Forecaster struct {
	corpus  *corpus.Corpus
	fitter  Fitter
	metrics *observability.Metrics
}

// NewForecaster returns a forecaster over c. A nil fitter selects OLS; metrics may be nil.
func NewForecaster(c *corpus.Corpus, fitter Fitter, metrics *observability.Metrics) *Forecaster {
	if fitter == nil {
		fitter = OLS{}
	}
	return &Forecaster{corpus: c, fitter: fitter, metrics: metrics}
}

// Forecast fits the readings of p for site in year against elapsed days and evaluates the value
// predicted for December 31. Day zero is the earliest date among the site's records in that year,
// whether or not they carry p. Fewer than two distinct days with a reading yield
// air.ErrInsufficientData.
func (f *Forecaster) Forecast(site string, p air.Pollutant, year int) (res ForecastResult, err error) {
	start := time.Now()
	defer func() { f.metrics.ObserveQuery("forecast", Outcome(err), time.Since(start)) }()

	if !p.Valid() {
		return ForecastResult{}, fmt.Errorf("%w: %d", air.ErrUnknownPollutant, int(p))
	}
	slice := f.corpus.Slice(site, year)
	if len(slice) == 0 {
		return ForecastResult{}, noData(site, year)
	}
	dayZero := slice[0].Date
	for _, r := range slice[1:] {
		if r.Date.Before(dayZero) {
			dayZero = r.Date
		}
	}
	var pts []XY
	for _, r := range slice {
		if v, ok := r.Readings.Get(p); ok {
			pts = append(pts, XY{X: float64(air.DaysBetween(dayZero, r.Date)), Y: v})
		}
	}
	if len(pts) == 0 {
		return ForecastResult{}, fmt.Errorf("%w: %s at %s in %d", air.ErrNoReadings, p, site, year)
	}
	a, b, err := f.fitter.Fit(pts)
	if err != nil {
		return ForecastResult{}, err
	}
	target := air.DaysBetween(dayZero, time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	res = ForecastResult{
		Pollutant: p,
		Site:      site,
		Year:      year,
		Predicted: a + b*float64(target),
		BasedOn:   len(pts),
		DayZero:   dayZero,
		TargetDay: target,
		Intercept: a,
		Slope:     b,
	}
	if res.Verdict, err = advisory.Evaluate(p, res.Predicted); err != nil {
		return ForecastResult{}, err
	}
	return res, nil
}
