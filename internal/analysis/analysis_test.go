package analysis

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/corpus"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

func reading(site string, date string, vals map[air.Pollutant]float64) air.Record {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	r := air.Record{Site: site, Date: d}
	for p, v := range vals {
		r.Readings.Set(p, v)
	}
	return r
}

func scenarioCorpus() *corpus.Corpus {
	return corpus.New([]air.Record{
		reading("SiteA", "2022-01-01", map[air.Pollutant]float64{air.PM25: 10}),
		reading("SiteA", "2022-06-01", map[air.Pollutant]float64{air.PM25: 20}),
	})
}

func TestAverageScenario(t *testing.T) {
	e := NewEngine(scenarioCorpus(), nil)
	res, err := e.Average("SiteA", air.PM25, 2022)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Mean)
	assert.Equal(t, 2, res.Count)
	// 15 is not above the 15 threshold.
	assert.Equal(t, advisory.Safe, res.Verdict.Level)
}

func TestForecastScenario(t *testing.T) {
	f := NewForecaster(scenarioCorpus(), nil, nil)
	res, err := f.Forecast("SiteA", air.PM25, 2022)
	require.NoError(t, err)
	assert.Equal(t, 364, res.TargetDay)
	assert.Equal(t, 2, res.BasedOn)
	assert.InDelta(t, 10.0, res.Intercept, 1e-9)
	assert.InDelta(t, 10.0/151.0, res.Slope, 1e-12)
	assert.InDelta(t, 10+10.0/151.0*364, res.Predicted, 1e-9)
	assert.Equal(t, advisory.High, res.Verdict.Level)
	assert.Contains(t, res.Verdict.Message, "34.11")
}

func TestAverageIgnoresAbsentReadings(t *testing.T) {
	c := corpus.New([]air.Record{
		reading("A", "2021-01-01", map[air.Pollutant]float64{air.NO2: 10}),
		reading("A", "2021-01-02", map[air.Pollutant]float64{air.CO: 3}),
		reading("A", "2021-01-03", map[air.Pollutant]float64{air.NO2: 30}),
		reading("A", "2021-01-03", map[air.Pollutant]float64{air.NO2: 30}),
	})
	e := NewEngine(c, nil)
	res, err := e.Average("A", air.NO2, 2021)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.InDelta(t, 70.0/3.0, res.Mean, 1e-12)

	_, err = e.Average("A", air.O3, 2021)
	assert.ErrorIs(t, err, air.ErrNoReadings)
	assert.False(t, errors.Is(err, air.ErrNoData))
}

func TestNoData(t *testing.T) {
	c := scenarioCorpus()
	e := NewEngine(c, nil)
	f := NewForecaster(c, nil, nil)

	assert.NotContains(t, e.Sites(), "Nowhere")
	_, err := e.Average("Nowhere", air.PM25, 2022)
	assert.ErrorIs(t, err, air.ErrNoData)
	_, err = e.Average("SiteA", air.PM25, 1999)
	assert.ErrorIs(t, err, air.ErrNoData)
	_, err = e.Average("sitea", air.PM25, 2022)
	assert.ErrorIs(t, err, air.ErrNoData, "site match is case-sensitive")
	_, err = f.Forecast("Nowhere", air.PM25, 2022)
	assert.ErrorIs(t, err, air.ErrNoData)
	_, err = e.Series("Nowhere", air.PM25, 2022)
	assert.ErrorIs(t, err, air.ErrNoData)
	_, err = e.Summary("Nowhere", 2022)
	assert.ErrorIs(t, err, air.ErrNoData)
}

func TestUnknownPollutant(t *testing.T) {
	c := scenarioCorpus()
	_, err := NewEngine(c, nil).Average("SiteA", air.Pollutant(42), 2022)
	assert.ErrorIs(t, err, air.ErrUnknownPollutant)
	_, err = NewForecaster(c, nil, nil).Forecast("SiteA", air.Pollutant(-1), 2022)
	assert.ErrorIs(t, err, air.ErrUnknownPollutant)
}

func TestAverageIsOrderInvariantAndIdempotent(t *testing.T) {
	var recs []air.Record
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		r := air.Record{Site: "A", Date: day.AddDate(0, 0, i%300)}
		r.Readings.Set(air.PM10, float64(i%37)+0.25)
		recs = append(recs, r)
	}
	base, err := NewEngine(corpus.New(recs), nil).Average("A", air.PM10, 2023)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		rng.Shuffle(len(recs), func(a, b int) { recs[a], recs[b] = recs[b], recs[a] })
		e := NewEngine(corpus.New(recs), nil)
		got, err := e.Average("A", air.PM10, 2023)
		require.NoError(t, err)
		assert.InDelta(t, base.Mean, got.Mean, 1e-9)
		again, _ := e.Average("A", air.PM10, 2023)
		assert.Equal(t, got, again)
	}
}

func TestForecastUsesSliceDayZero(t *testing.T) {
	recs := []air.Record{
		reading("A", "2022-03-01", map[air.Pollutant]float64{air.SO2: 5}),
		reading("A", "2022-03-11", map[air.Pollutant]float64{air.SO2: 7}),
		reading("A", "2022-03-21", map[air.Pollutant]float64{air.SO2: 9}),
	}
	before, err := NewForecaster(corpus.New(recs), nil, nil).Forecast("A", air.SO2, 2022)
	require.NoError(t, err)

	other := append([]air.Record{
		reading("A", "2021-01-01", map[air.Pollutant]float64{air.SO2: 500}),
		reading("B", "2022-01-01", map[air.Pollutant]float64{air.SO2: 500}),
	}, recs...)
	after, err := NewForecaster(corpus.New(other), nil, nil).Forecast("A", air.SO2, 2022)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), after.DayZero)
	assert.Equal(t, 305, after.TargetDay)
	assert.InDelta(t, 5+0.2*305, after.Predicted, 1e-9)
}

func TestForecastDayZeroIncludesRecordsWithoutPollutant(t *testing.T) {
	c := corpus.New([]air.Record{
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.CO: 1}),
		reading("A", "2022-01-11", map[air.Pollutant]float64{air.O3: 10}),
		reading("A", "2022-01-21", map[air.Pollutant]float64{air.O3: 20}),
	})
	res, err := NewForecaster(c, nil, nil).Forecast("A", air.O3, 2022)
	require.NoError(t, err)
	assert.Equal(t, 364, res.TargetDay)
	assert.InDelta(t, 0.0, res.Intercept, 1e-9)
	assert.InDelta(t, 364.0, res.Predicted, 1e-9)
	assert.Equal(t, advisory.High, res.Verdict.Level)
}

func TestForecastInsufficientData(t *testing.T) {
	c := corpus.New([]air.Record{
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.CO: 1}),
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.CO: 3}),
		reading("A", "2022-02-01", map[air.Pollutant]float64{air.NO2: 3}),
	})
	f := NewForecaster(c, nil, nil)
	_, err := f.Forecast("A", air.CO, 2022)
	assert.ErrorIs(t, err, air.ErrInsufficientData)
	assert.False(t, errors.Is(err, air.ErrNoData))

	_, err = f.Forecast("A", air.PM10, 2022)
	assert.ErrorIs(t, err, air.ErrNoReadings)
}

type flatFitter struct{ calls int }

func (f *flatFitter) Fit(points []XY) (float64, float64, error) {
	f.calls++
	var sum float64
	for _, p := range points {
		sum += p.Y
	}
	return sum / float64(len(points)), 0, nil
}

func TestForecastWithCustomFitter(t *testing.T) {
	ff := &flatFitter{}
	res, err := NewForecaster(scenarioCorpus(), ff, nil).Forecast("SiteA", air.PM25, 2022)
	require.NoError(t, err)
	assert.Equal(t, 1, ff.calls)
	assert.Equal(t, 15.0, res.Predicted)
	assert.Equal(t, advisory.Safe, res.Verdict.Level)
}

func TestOLS(t *testing.T) {
	a, b, err := OLS{}.Fit([]XY{{0, 1}, {1, 3}, {2, 5}, {3, 7}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a, 1e-12)
	assert.InDelta(t, 2.0, b, 1e-12)

	_, _, err = OLS{}.Fit([]XY{{4, 1}, {4, 2}})
	assert.ErrorIs(t, err, air.ErrInsufficientData)
	_, _, err = OLS{}.Fit(nil)
	assert.ErrorIs(t, err, air.ErrInsufficientData)
}

func TestSeries(t *testing.T) {
	c := corpus.New([]air.Record{
		reading("A", "2022-05-01", map[air.Pollutant]float64{air.PM10: 3}),
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.PM10: 1}),
		reading("A", "2022-03-01", map[air.Pollutant]float64{air.CO: 9}),
		reading("A", "2022-03-01", map[air.Pollutant]float64{air.PM10: 2}),
	})
	pts, err := NewEngine(c, nil).Series("A", air.PM10, 2022)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	for i, want := range []float64{1, 2, 3} {
		assert.Equal(t, want, pts[i].Value)
	}
	assert.True(t, pts[0].Date.Before(pts[1].Date))
}

func TestSummary(t *testing.T) {
	c := corpus.New([]air.Record{
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.PM25: 10, air.CO: 1}),
		reading("A", "2022-06-01", map[air.Pollutant]float64{air.PM25: 30, air.CO: 2}),
		reading("A", "2022-03-01", map[air.Pollutant]float64{air.PM25: 20}),
	})
	s, err := NewEngine(c, nil).Summary("A", 2022)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), s.First)
	assert.Equal(t, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), s.Last)
	require.Len(t, s.Pollutants, 2)
	assert.Equal(t, air.CO, s.Pollutants[0].Pollutant)
	pm := s.Pollutants[1]
	assert.Equal(t, air.PM25, pm.Pollutant)
	assert.Equal(t, 20.0, pm.Mean)
	assert.Equal(t, 10.0, pm.Min)
	assert.Equal(t, 20.0, pm.Median)
	assert.Equal(t, 30.0, pm.Max)
	assert.Equal(t, []string{"SO2", "PM10", "NO2", "O3"}, s.Missing)
	assert.Equal(t, 1, s.HighCount())

	md := s.Markdown()
	assert.True(t, strings.HasPrefix(md, "[SITE SUMMARY]\n"))
	assert.Contains(t, md, "- PM2.5: mean 20.00 µg/m³ (n=3; min 10, median 20, max 30")
	assert.Contains(t, md, "WARNING: PM2.5 levels are HIGH (20.00 µg/m³)")
	assert.Contains(t, md, "- not measured: SO2, PM10, NO2, O3")
}

func TestSummaryEvenCountMedian(t *testing.T) {
	m := observability.NewMetricsForTesting()
	c := corpus.New([]air.Record{
		reading("A", "2022-01-01", map[air.Pollutant]float64{air.PM25: 30, air.NO2: 4}),
		reading("A", "2022-02-01", map[air.Pollutant]float64{air.PM25: 10, air.NO2: 1}),
		reading("A", "2022-03-01", map[air.Pollutant]float64{air.NO2: 3}),
		reading("A", "2022-04-01", map[air.Pollutant]float64{air.NO2: 2}),
	})
	s, err := NewEngine(c, m).Summary("A", 2022)
	require.NoError(t, err)
	require.Len(t, s.Pollutants, 2)

	no2 := s.Pollutants[0]
	assert.Equal(t, air.NO2, no2.Pollutant)
	assert.Equal(t, 2.5, no2.Median)
	assert.Equal(t, 4, no2.Count)

	pm := s.Pollutants[1]
	assert.Equal(t, air.PM25, pm.Pollutant)
	assert.Equal(t, 20.0, pm.Median)
	assert.Equal(t, 20.0, pm.Mean)
	assert.Equal(t, advisory.High, pm.Verdict.Level)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("summary", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Queries.WithLabelValues("average", "ok")))
}

func TestQueriesAreCounted(t *testing.T) {
	m := observability.NewMetricsForTesting()
	c := scenarioCorpus()
	e := NewEngine(c, m)
	_, _ = e.Average("SiteA", air.PM25, 2022)
	_, _ = e.Average("SiteA", air.PM25, 2020)
	_, _ = NewForecaster(c, nil, m).Forecast("SiteA", air.PM25, 2022)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("average", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("average", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("forecast", "ok")))
}
