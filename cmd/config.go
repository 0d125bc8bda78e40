package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/aircheck-cli/internal/config"
	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set aircheck configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if handled, err := report.Structured(out, f, cfg); handled {
			return err
		}
		fmt.Fprintln(out, "sources:")
		for _, s := range cfg.Sources {
			fmt.Fprintf(out, "  - %s: %s\n", s.Name, s.Path)
		}
		fmt.Fprintf(out, "site_column: %s\n", cfg.SiteColumn)
		fmt.Fprintf(out, "date_column: %s\n", cfg.DateColumn)
		if cfg.CSVDelimiter != "" {
			fmt.Fprintf(out, "csv_delimiter: %q\n", cfg.CSVDelimiter)
		}
		fmt.Fprintf(out, "years: %v\n", cfg.Years)
		fmt.Fprintf(out, "chart_dir: %s\n", cfg.ChartDir)
		fmt.Fprintf(out, "http_addr: %s\n", cfg.HTTPAddr)
		fmt.Fprintf(out, "shutdown_timeout_sec: %d\n", cfg.ShutdownTimeoutSec)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. Lists take comma-separated values:
  sources   name=path,name=path
  years     2020,2021,2022`,
	Args: cobra.ExactArgs(2),
	// The target file may not exist yet; set creates it.
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupWith(cmd, cfgpkg.LoadOptional)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.LoadOptional(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "sources":
			srcs, err := parseSources(splitList(val))
			if err != nil {
				return err
			}
			cfg.Sources = srcs
		case "site_column":
			cfg.SiteColumn = val
		case "date_column":
			cfg.DateColumn = val
		case "csv_delimiter":
			switch val {
			case "tab", "\\t":
				val = "\t"
			case "auto":
				val = ""
			}
			cfg.CSVDelimiter = val
		case "years":
			var years []int
			for _, s := range splitList(val) {
				y, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("invalid year %q: %w", s, err)
				}
				years = append(years, y)
			}
			cfg.Years = years
		case "chart_dir":
			cfg.ChartDir = val
		case "http_addr":
			cfg.HTTPAddr = val
		case "shutdown_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for shutdown_timeout_sec: %v", val)
			}
			cfg.ShutdownTimeoutSec = i
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "log_format":
			switch strings.ToLower(val) {
			case "text", "json":
				cfg.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use text or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
