package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

var (
	avgFlags      queryFlags
	forecastFlags queryFlags
	seriesFlags   queryFlags
	chartFlags    queryFlags
	summaryFlags  queryFlags
	chartOutDir   string
)

// outcome prints a recoverable query condition and swallows it; other errors are returned.
func outcome(cmd *cobra.Command, err error, site string, p air.Pollutant, year int) error {
	msg, ok := report.Describe(err, site, p, year)
	if !ok {
		return err
	}
	f, ferr := outputFormat()
	if ferr != nil {
		return ferr
	}
	handled, werr := report.Structured(cmd.OutOrStdout(), f, map[string]string{
		"outcome": analysis.Outcome(err),
		"message": msg,
	})
	if handled || werr != nil {
		return werr
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

var averageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average level of a pollutant at a site over a year, with health advice",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := avgFlags.resolve(true)
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.engine.Average(avgFlags.site, p, avgFlags.year)
		if err != nil {
			return outcome(cmd, err, avgFlags.site, p, avgFlags.year)
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, res); handled {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.AverageMessage(res))
		return nil
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Extrapolate a pollutant's trend to the end of the year",
	Long: `Fits a straight line through the site's readings for the year, measured in days from
the first record of that year, and evaluates the value it predicts for December 31.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := forecastFlags.resolve(true)
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res, err := s.forecaster.Forecast(forecastFlags.site, p, forecastFlags.year)
		if err != nil {
			return outcome(cmd, err, forecastFlags.site, p, forecastFlags.year)
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, res); handled {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.ForecastMessage(res))
		return nil
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List dated readings of a pollutant at a site for a year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := seriesFlags.resolve(true)
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		pts, err := s.engine.Series(seriesFlags.site, p, seriesFlags.year)
		if err != nil {
			return outcome(cmd, err, seriesFlags.site, p, seriesFlags.year)
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, pts); handled {
			return err
		}
		return report.Series(cmd.OutOrStdout(), seriesFlags.site, p, seriesFlags.year, pts)
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a PNG trend chart with the pollutant's threshold line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := chartFlags.resolve(true)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		pts, err := s.engine.Series(chartFlags.site, p, chartFlags.year)
		if err != nil {
			return outcome(cmd, err, chartFlags.site, p, chartFlags.year)
		}
		dir := chartOutDir
		if dir == "" {
			dir = cfg.ChartDir
		}
		path, err := report.SaveChart(dir, chartFlags.site, p, chartFlags.year, pts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote chart to %s\n", path)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize every pollutant measured at a site during a year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := summaryFlags.resolve(false); err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		sum, err := s.engine.Summary(summaryFlags.site, summaryFlags.year)
		if err != nil {
			return outcome(cmd, err, summaryFlags.site, air.Pollutant(-1), summaryFlags.year)
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, sum); handled {
			return err
		}
		return report.Summary(cmd.OutOrStdout(), f, sum)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <pollutant> <value>",
	Short: "Classify a concentration against the pollutant's threshold",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		vd, err := advisory.EvaluateSymbol(args[0], v)
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, vd); handled {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), vd)
		return nil
	},
}

func init() {
	avgFlags.register(averageCmd, true)
	forecastFlags.register(forecastCmd, true)
	seriesFlags.register(seriesCmd, true)
	chartFlags.register(chartCmd, true)
	summaryFlags.register(summaryCmd, false)
	chartCmd.Flags().StringVarP(&chartOutDir, "out-dir", "o", "", "directory for the PNG (default from config chart_dir)")

	rootCmd.AddCommand(averageCmd, forecastCmd, seriesCmd, chartCmd, summaryCmd, evaluateCmd)
}
