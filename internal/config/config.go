package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
	"github.com/KaramelBytes/aircheck-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	Sources      []dataset.Source `mapstructure:"sources" yaml:"sources"`
	SiteColumn   string           `mapstructure:"site_column" yaml:"site_column"`
	DateColumn   string           `mapstructure:"date_column" yaml:"date_column"`
	CSVDelimiter string           `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	// Numeric locale: "." or "comma" for decimals; ",", "." or "space" for thousands.
	// Empty auto-detects per value.
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	// Years offered to users; the engine itself answers for any year.
	Years []int `mapstructure:"years" yaml:"years"`

	ChartDir string `mapstructure:"chart_dir" yaml:"chart_dir"`

	// HTTP server
	HTTPAddr           string `mapstructure:"http_addr" yaml:"http_addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultSources are the two workbooks published by the monitoring network.
func DefaultSources() []dataset.Source {
	return []dataset.Source{
		{Name: "city", Path: "AIR POLLUTION IN KIGALI FROM 2020 TO 2024.xlsx"},
		{Name: "rural", Path: "AIR POLLUTION IN RURAL FROM 2020 TO 2024.xlsx"},
	}
}

// DefaultPath returns ~/.aircheck/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".aircheck", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.aircheck/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults. A .env file in the working
// directory is loaded into the environment first. A missing default config file is fine; a
// missing cfgFile is an error.
func Load(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

// LoadOptional is Load but falls back to defaults when cfgFile does not exist yet.
func LoadOptional(cfgFile string) (*Global, error) {
	return load(cfgFile, true)
}

func load(cfgFile string, allowMissing bool) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("AIRCHECK")
	v.AutomaticEnv()

	defaults := make([]map[string]any, 0, 2)
	for _, s := range DefaultSources() {
		defaults = append(defaults, map[string]any{"name": s.Name, "path": s.Path})
	}
	v.SetDefault("sources", defaults)
	v.SetDefault("site_column", "Site")
	v.SetDefault("date_column", "Date")
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("years", []int{2020, 2021, 2022, 2023})
	v.SetDefault("chart_dir", "charts")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("shutdown_timeout_sec", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		switch {
		case missing && (cfgFile == "" || allowMissing):
		case missing:
			return nil, fmt.Errorf("config file %s: %w", cfgFile, os.ErrNotExist)
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for i := range c.Sources {
		c.Sources[i].Path = utils.ExpandHome(c.Sources[i].Path)
	}
	c.ChartDir = utils.ExpandHome(c.ChartDir)
	return &c, nil
}

// Validate reports the first configuration problem that would stop the corpus from loading.
func (c *Global) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: at least one source is required")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("config: source %d has no name", i)
		}
		if s.Path == "" {
			return fmt.Errorf("config: source %q has no path", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
	}
	if len(c.Years) == 0 {
		return errors.New("config: years must not be empty")
	}
	if len([]rune(c.CSVDelimiter)) > 1 {
		return fmt.Errorf("config: csv_delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if _, err := decimalSeparator(c.DecimalSeparator); err != nil {
		return err
	}
	if _, err := thousandsSeparator(c.ThousandsSeparator); err != nil {
		return err
	}
	return nil
}

func decimalSeparator(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("config: unsupported decimal_separator %q (use '.'|'comma')", s)
}

func thousandsSeparator(s string) (rune, error) {
	switch strings.ToLower(s) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space", " ":
		return ' ', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("config: unsupported thousands_separator %q (use ','|'.'|'space')", s)
}

// DatasetOptions returns loader options derived from the configuration.
func (c *Global) DatasetOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	if c.SiteColumn != "" {
		opt.SiteColumn = c.SiteColumn
	}
	if c.DateColumn != "" {
		opt.DateColumn = c.DateColumn
	}
	if r := []rune(c.CSVDelimiter); len(r) == 1 {
		opt.Delimiter = r[0]
	}
	opt.DecimalSeparator, _ = decimalSeparator(c.DecimalSeparator)
	opt.ThousandsSeparator, _ = thousandsSeparator(c.ThousandsSeparator)
	return opt
}

// AllowsYear reports whether year is one of the configured years.
func (c *Global) AllowsYear(year int) bool {
	for _, y := range c.Years {
		if y == year {
			return true
		}
	}
	return false
}
