package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/aircheck-cli/internal/config"
	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	flagLogLevel string
	flagLogFmt   string
	flagSources  []string
	flagFormat   string
	flagDecimal  string
	flagThousand string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = observability.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "aircheck",
	Short: "aircheck: air-quality averages, trends and health advisories",
	Long: `aircheck loads air-quality workbooks from the monitoring network, then answers
per-site questions: yearly pollutant averages, dated series and charts, year-end
forecasts, each checked against the pollutant's safety threshold.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.aircheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFmt, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringArrayVar(&flagSources, "source", nil, "data source as name=path (repeatable; replaces configured sources)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "text", "output format: text|markdown|json|yaml")
	rootCmd.PersistentFlags().StringVar(&flagDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	rootCmd.PersistentFlags().StringVar(&flagThousand, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

// setup loads configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	return setupWith(cmd, cfgpkg.Load)
}

func setupWith(cmd *cobra.Command, load func(string) (*cfgpkg.Global, error)) error {
	c, err := load(cfgFile)
	if err != nil {
		return err
	}
	if len(flagSources) > 0 {
		srcs, err := parseSources(flagSources)
		if err != nil {
			return err
		}
		c.Sources = srcs
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if flagLogFmt != "" {
		c.LogFormat = flagLogFmt
	}
	if flagDecimal != "" {
		c.DecimalSeparator = flagDecimal
	}
	if flagThousand != "" {
		c.ThousandsSeparator = flagThousand
	}
	if debug {
		c.LogLevel = "debug"
	}
	cfg = c
	logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

// parseSources turns name=path values into sources. A bare path is named after its file and may
// be a glob, in which case every match becomes a source.
func parseSources(vals []string) ([]dataset.Source, error) {
	out := make([]dataset.Source, 0, len(vals))
	seen := map[string]struct{}{}
	add := func(name, path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, dataset.Source{Name: name, Path: path})
	}
	for _, v := range vals {
		name, path, ok := strings.Cut(v, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if ok {
			if name == "" || path == "" {
				return nil, fmt.Errorf("invalid --source %q (use name=path)", v)
			}
			add(name, path)
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("invalid --source %q (use name=path)", v)
		}
		matches, _ := filepath.Glob(name)
		if len(matches) == 0 {
			// treat as literal path; a missing file is reported when loading
			matches = []string{name}
		}
		sort.Strings(matches)
		for _, m := range matches {
			base := filepath.Base(m)
			add(strings.TrimSuffix(base, filepath.Ext(base)), m)
		}
	}
	return out, nil
}

func outputFormat() (report.Format, error) {
	return report.ParseFormat(flagFormat)
}
