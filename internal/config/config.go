// Package config loads pagecheck settings from a config file with
// optional named profiles. Resolution order, highest priority first:
// explicit CLI flags (applied by the cmd layer), profile values,
// [settings] values from the file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const EnvAPIKey = "PAGESPEED_API_KEY"

var (
	ValidStrategies    = []string{"mobile", "desktop", "both"}
	ValidCategories    = []string{"performance", "accessibility", "best-practices", "seo"}
	ValidOutputFormats = []string{"csv", "json", "both"}
)

type Settings struct {
	APIKey        string   `mapstructure:"api_key"`
	URLsFile      string   `mapstructure:"urls_file"`
	Delay         float64  `mapstructure:"delay"` // seconds between call starts
	Strategy      string   `mapstructure:"strategy"`
	OutputFormat  string   `mapstructure:"output_format"`
	OutputDir     string   `mapstructure:"output_dir"`
	Workers       int      `mapstructure:"workers"`
	Runs          int      `mapstructure:"runs"`
	Categories    []string `mapstructure:"categories"`
	Verbose       bool     `mapstructure:"verbose"`
	Sitemap       string   `mapstructure:"sitemap"`
	SitemapLimit  int      `mapstructure:"sitemap_limit"`
	SitemapFilter string   `mapstructure:"sitemap_filter"`
	Budget        string   `mapstructure:"budget"`
	BudgetFormat  string   `mapstructure:"budget_format"`
	WebhookURL    string   `mapstructure:"webhook_url"`
	WebhookOn     string   `mapstructure:"webhook_on"`
}

func Defaults() Settings {
	return Settings{
		Delay:        1.5,
		Strategy:     "mobile",
		OutputFormat: "csv",
		OutputDir:    "./reports",
		Workers:      4,
		Runs:         1,
		Categories:   []string{"performance"},
		BudgetFormat: "text",
		WebhookOn:    "always",
	}
}

// Load reads the config file (explicit path, or "pagecheck.{yaml,toml}"
// discovered in the working directory then ~/.config/pagecheck) and
// merges [settings] plus the named profile over built-in defaults.
// A missing discovered file is fine; a missing explicit file is not.
func Load(path, profile string) (Settings, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pagecheck")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pagecheck"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			if profile != "" {
				return Settings{}, fmt.Errorf("profile %q requested but no config file found", profile)
			}
			return finish(Defaults())
		}
		return Settings{}, fmt.Errorf("reading config: %w", err)
	}

	s := Defaults()
	if sub := v.Sub("settings"); sub != nil {
		if err := sub.Unmarshal(&s); err != nil {
			return Settings{}, fmt.Errorf("parsing config settings: %w", err)
		}
	}

	if profile != "" {
		sub := v.Sub("profiles." + profile)
		if sub == nil {
			return Settings{}, fmt.Errorf("profile %q not found in config (available: %s)", profile, profileNames(v))
		}
		if err := sub.Unmarshal(&s); err != nil {
			return Settings{}, fmt.Errorf("parsing profile %q: %w", profile, err)
		}
	}

	return finish(s)
}

func finish(s Settings) (Settings, error) {
	if s.APIKey == "" {
		s.APIKey = os.Getenv(EnvAPIKey)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func profileNames(v *viper.Viper) string {
	profiles := v.GetStringMap("profiles")
	if len(profiles) == 0 {
		return "none"
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Validate checks the merged settings. Callers that layer CLI flags
// on top re-run it after applying overrides.
func (s Settings) Validate() error {
	if !contains(ValidStrategies, s.Strategy) {
		return fmt.Errorf("invalid strategy %q (valid: %s)", s.Strategy, strings.Join(ValidStrategies, ", "))
	}
	if !contains(ValidOutputFormats, s.OutputFormat) {
		return fmt.Errorf("invalid output_format %q (valid: %s)", s.OutputFormat, strings.Join(ValidOutputFormats, ", "))
	}
	for _, cat := range s.Categories {
		if !contains(ValidCategories, cat) {
			return fmt.Errorf("invalid category %q (valid: %s)", cat, strings.Join(ValidCategories, ", "))
		}
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if s.Runs < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	if s.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	switch s.WebhookOn {
	case "always", "fail":
	default:
		return fmt.Errorf("invalid webhook_on %q (valid: always, fail)", s.WebhookOn)
	}
	return nil
}

// Strategies expands the strategy setting into the list to audit.
func (s Settings) Strategies() []string {
	if s.Strategy == "both" {
		return []string{"mobile", "desktop"}
	}
	return []string{s.Strategy}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
