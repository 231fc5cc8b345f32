package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgate/pagecheck/internal/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pagecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsWhenNoConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvAPIKey, "")

	s, err := config.Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "mobile", s.Strategy)
	assert.Equal(t, 1.5, s.Delay)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 1, s.Runs)
	assert.Equal(t, []string{"performance"}, s.Categories)
	assert.Equal(t, "./reports", s.OutputDir)
}

func TestSettingsOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
settings:
  strategy: desktop
  delay: 0.5
  workers: 8
  output_dir: /tmp/out
`)
	s, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "desktop", s.Strategy)
	assert.Equal(t, 0.5, s.Delay)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, "/tmp/out", s.OutputDir)
	// untouched keys keep defaults
	assert.Equal(t, 1, s.Runs)
}

func TestProfileOverridesSettings(t *testing.T) {
	path := writeConfig(t, `
settings:
  strategy: desktop
  runs: 2
profiles:
  ci:
    strategy: both
    budget: cwv
    budget_format: github
`)
	s, err := config.Load(path, "ci")
	require.NoError(t, err)
	assert.Equal(t, "both", s.Strategy)
	assert.Equal(t, "cwv", s.Budget)
	assert.Equal(t, "github", s.BudgetFormat)
	// profile does not reset keys it doesn't mention
	assert.Equal(t, 2, s.Runs)
	assert.Equal(t, []string{"mobile", "desktop"}, s.Strategies())
}

func TestUnknownProfileListsAvailable(t *testing.T) {
	path := writeConfig(t, `
profiles:
  ci:
    strategy: desktop
  nightly:
    runs: 3
`)
	_, err := config.Load(path, "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "staging" not found`)
	assert.Contains(t, err.Error(), "ci, nightly")
}

func TestProfileWithoutConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := config.Load("", "ci")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config file found")
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.Error(t, err)
}

func TestEnvAPIKeyFallback(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "env-key")
	path := writeConfig(t, "settings:\n  workers: 2\n")
	s, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "env-key", s.APIKey)
}

func TestFileAPIKeyBeatsEnv(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "env-key")
	path := writeConfig(t, "settings:\n  api_key: file-key\n")
	s, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "file-key", s.APIKey)
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad strategy", "settings:\n  strategy: tablet\n", "invalid strategy"},
		{"bad output format", "settings:\n  output_format: xml\n", "invalid output_format"},
		{"bad category", "settings:\n  categories: [performance, pwa]\n", "invalid category"},
		{"zero workers", "settings:\n  workers: 0\n", "workers must be at least 1"},
		{"zero runs", "settings:\n  runs: 0\n", "runs must be at least 1"},
		{"negative delay", "settings:\n  delay: -1\n", "delay must not be negative"},
		{"bad webhook_on", "settings:\n  webhook_on: never\n", "invalid webhook_on"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := config.Load(path, "")
			require.Error(t, err)
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestStrategiesExpansion(t *testing.T) {
	s := config.Defaults()
	assert.Equal(t, []string{"mobile"}, s.Strategies())
	s.Strategy = "desktop"
	assert.Equal(t, []string{"desktop"}, s.Strategies())
}
