package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
	"github.com/KaramelBytes/aircheck-cli/internal/corpus"
	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

var (
	metricsOnce sync.Once
	metrics     *observability.Metrics

	loaderMu sync.Mutex
	loaders  = map[dataset.Options]*dataset.Loader{}
)

func processMetrics() *observability.Metrics {
	metricsOnce.Do(func() { metrics = observability.NewMetrics() })
	return metrics
}

// sharedLoader returns the process-wide loader for opt so every source is parsed at most once.
func sharedLoader(opt dataset.Options) *dataset.Loader {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	l, ok := loaders[opt]
	if !ok {
		l = dataset.NewLoader(opt, logger, processMetrics())
		loaders[opt] = l
	}
	return l
}

// loadCorpus validates the configuration and assembles the corpus from every configured source.
// Any unavailable source is fatal.
func loadCorpus(ctx context.Context) (*corpus.Corpus, error) {
	if cfg == nil {
		return nil, errors.New("no configuration loaded")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := corpus.Assemble(ctx, sharedLoader(cfg.DatasetOptions()), cfg.Sources, clockwork.NewRealClock())
	if err != nil {
		var sue *dataset.SourceUnavailableError
		if errors.As(err, &sue) {
			return nil, fmt.Errorf("cannot start: %w", err)
		}
		return nil, err
	}
	processMetrics().SetCorpus(c.Len(), len(c.Sites()))
	logger.Info("corpus ready", "id", c.ID(), "records", c.Len(), "sites", len(c.Sites()), "sources", len(cfg.Sources))
	return c, nil
}

// queryFlags are the site/pollutant/year selectors shared by query commands.
type queryFlags struct {
	site      string
	pollutant string
	year      int
}

func (q *queryFlags) register(cmd *cobra.Command, withPollutant bool) {
	cmd.Flags().StringVarP(&q.site, "site", "s", "", "monitoring site (exact name, see 'aircheck sites')")
	if withPollutant {
		cmd.Flags().StringVarP(&q.pollutant, "pollutant", "p", "", "pollutant: SO2|CO|PM10|NO2|O3|PM2.5")
		_ = cmd.MarkFlagRequired("pollutant")
	}
	cmd.Flags().IntVarP(&q.year, "year", "y", 0, "calendar year")
	_ = cmd.MarkFlagRequired("site")
	_ = cmd.MarkFlagRequired("year")
}

// resolve checks the selectors against the configured years and parses the pollutant.
func (q *queryFlags) resolve(withPollutant bool) (air.Pollutant, error) {
	if !cfg.AllowsYear(q.year) {
		return 0, fmt.Errorf("year %d is not offered (configured years: %v)", q.year, cfg.Years)
	}
	if !withPollutant {
		return 0, nil
	}
	return air.ParsePollutant(q.pollutant)
}

// session is a loaded corpus with its query engine and forecaster.
type session struct {
	corpus     *corpus.Corpus
	engine     *analysis.Engine
	forecaster *analysis.Forecaster
}

func openSession(ctx context.Context) (*session, error) {
	c, err := loadCorpus(ctx)
	if err != nil {
		return nil, err
	}
	m := processMetrics()
	return &session{
		corpus:     c,
		engine:     analysis.NewEngine(c, m),
		forecaster: analysis.NewForecaster(c, analysis.OLS{}, m),
	}, nil
}
