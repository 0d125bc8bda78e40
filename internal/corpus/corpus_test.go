package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
)

func rec(site string, y int, m time.Month, d int) air.Record {
	return air.Record{Site: site, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func TestNewIndexesSitesAndYears(t *testing.T) {
	c := New([]air.Record{
		rec("Rebero", 2021, 5, 1),
		rec("Gikomero", 2022, 1, 1),
		rec("Gikomero", 2022, 6, 1),
		rec("gikomero", 2020, 3, 3),
		rec("Gikomero", 2022, 6, 1),
	})
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"Gikomero", "Rebero", "gikomero"}, c.Sites())
	assert.Equal(t, []int{2020, 2021, 2022}, c.Years())
	assert.True(t, c.HasSite("Gikomero"))
	assert.False(t, c.HasSite("GIKOMERO"))

	// Duplicates coexist.
	assert.Len(t, c.Slice("Gikomero", 2022), 3)
	assert.Len(t, c.Slice("gikomero", 2022), 0)
	assert.Empty(t, c.Slice("Nowhere", 2022))
	assert.NotEmpty(t, c.ID())
}

func TestCorpusIsNotAliased(t *testing.T) {
	in := []air.Record{rec("A", 2022, 1, 1)}
	c := New(in)
	in[0].Site = "B"
	got := c.Records()
	got[0].Site = "C"
	sites := c.Sites()
	sites[0] = "D"
	assert.Equal(t, []string{"A"}, c.Sites())
	assert.Len(t, c.Slice("A", 2022), 1)
}

type fakeLoader struct {
	data  map[string]*dataset.Dataset
	calls atomic.Int32
}

func (f *fakeLoader) Load(_ context.Context, src dataset.Source) (*dataset.Dataset, error) {
	f.calls.Add(1)
	ds, ok := f.data[src.Path]
	if !ok {
		return nil, &dataset.SourceUnavailableError{Source: src.Name, Path: src.Path, Reason: dataset.ReasonNotFound}
	}
	return ds, nil
}

func TestAssemble(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	l := &fakeLoader{data: map[string]*dataset.Dataset{
		"city.xlsx":  {Records: []air.Record{rec("Gikomero", 2022, 1, 1)}},
		"rural.xlsx": {Records: []air.Record{rec("Nyamata", 2022, 1, 1), rec("Nyamata", 2023, 1, 1)}},
	}}
	c, err := Assemble(context.Background(), l, []dataset.Source{
		{Name: "city", Path: "city.xlsx"},
		{Name: "rural", Path: "rural.xlsx"},
	}, clock)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"Gikomero", "Nyamata"}, c.Sites())
	assert.Equal(t, clock.Now(), c.LoadedAt())
	assert.Len(t, c.Datasets(), 2)
	assert.Equal(t, "Gikomero", c.Records()[0].Site)
}

func TestAssembleFailsOnAnyUnavailableSource(t *testing.T) {
	l := &fakeLoader{data: map[string]*dataset.Dataset{
		"city.xlsx": {Records: []air.Record{rec("Gikomero", 2022, 1, 1)}},
	}}
	c, err := Assemble(context.Background(), l, []dataset.Source{
		{Name: "city", Path: "city.xlsx"},
		{Name: "rural", Path: "rural.xlsx"},
	}, nil)
	assert.Nil(t, c)
	var sue *dataset.SourceUnavailableError
	require.True(t, errors.As(err, &sue))
	assert.Equal(t, "rural", sue.Source)

	_, err = Assemble(context.Background(), l, nil, nil)
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestAssembleWithDatasetLoader(t *testing.T) {
	dir := t.TempDir()
	city := filepath.Join(dir, "city.csv")
	rural := filepath.Join(dir, "rural.csv")
	require.NoError(t, os.WriteFile(city, []byte("Site,Date,PM2.5\nGikomero,2022-01-01,10\n"), 0o644))
	require.NoError(t, os.WriteFile(rural, []byte("Site,Date,PM10,PM2.5\nNyamata,2022-01-01,30,\n"), 0o644))

	l := dataset.NewLoader(dataset.DefaultOptions(), nil, nil)
	c, err := Assemble(context.Background(), l, []dataset.Source{{Name: "city", Path: city}, {Name: "rural", Path: rural}}, clockwork.NewFakeClock())
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	ny := c.Slice("Nyamata", 2022)
	require.Len(t, ny, 1)
	_, ok := ny[0].Readings.Get(air.PM25)
	assert.False(t, ok, "missing column value must be absent")
	v, ok := ny[0].Readings.Get(air.PM10)
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)
}
