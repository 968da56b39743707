package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystats/skystats/internal/config"
	"github.com/skystats/skystats/internal/core"
	"github.com/skystats/skystats/internal/output"
	"github.com/skystats/skystats/internal/proxy"
	"github.com/skystats/skystats/internal/server/handlers"
)

func TestAppIdentity(t *testing.T) {
	identity := GetAppIdentity()
	require.NotNil(t, identity)

	assert.Equal(t, "skystats", identity.BinaryName)
	assert.True(t, strings.HasSuffix(identity.EnvPrefix, "_"), "env prefix %q should end with underscore", identity.EnvPrefix)
	assert.NotEmpty(t, identity.ConfigName)
	assert.NotEmpty(t, identity.Vendor)
}

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func TestDefaultsDecodeToProxyContract(t *testing.T) {
	cfg, err := config.FromViper(newTestViper(t))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 60, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "1m0s", cfg.RateLimit.Window.String())
	assert.Equal(t, 5, cfg.History.MaxItems)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{config.DevelopmentOrigin, config.ProductionOrigin}, cfg.AllowedOrigins())
}

func TestLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "legacy-key")
	t.Setenv("VERCEL_URL", "skystats-git-main.vercel.app")

	cfg, err := config.FromViper(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.Provider.APIKey)
	assert.Contains(t, cfg.AllowedOrigins(), "https://skystats-git-main.vercel.app")
}

func TestPrefixedEnvironmentOverrides(t *testing.T) {
	t.Setenv("SKYSTATS_PROVIDER_API_KEY", "primary-key")
	t.Setenv("WEATHER_API_KEY", "legacy-key")
	t.Setenv("SKYSTATS_RATE_LIMIT_MAX_REQUESTS", "10")
	t.Setenv("SKYSTATS_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.FromViper(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, "primary-key", cfg.Provider.APIKey)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "weather.new-york", sanitizeFilename("weather.New York"))
	assert.Equal(t, "output", sanitizeFilename("  ///  "))
	assert.Equal(t, "cache.purge", sanitizeFilename("cache.purge"))
}

func TestOutputExtension(t *testing.T) {
	assert.Equal(t, "json", outputExtension(output.FormatJSON))
	assert.Equal(t, "yaml", outputExtension(output.FormatYAML))
	assert.Equal(t, "md", outputExtension(output.FormatMarkdown))
	assert.Equal(t, "txt", outputExtension(output.FormatTable))
}

func newOutputCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	addOutputFlags(c)
	return c
}

func TestResolveOutputTargetsRejectsBoth(t *testing.T) {
	c := newOutputCommand()
	require.NoError(t, c.Flags().Set("out", "a.json"))
	require.NoError(t, c.Flags().Set("out-dir", "dir"))

	_, _, err := resolveOutputTargets(c)
	require.Error(t, err)
}

func TestWriteDocumentToOutDir(t *testing.T) {
	dir := t.TempDir()
	c := newOutputCommand()
	require.NoError(t, c.Flags().Set("output-format", "json"))
	require.NoError(t, c.Flags().Set("out-dir", dir))

	doc := output.PreferencesDocument(core.DefaultPreferences())
	require.NoError(t, writeDocument(c, "prefs", doc))

	sink, format, err := openCommandSink(c, "prefs")
	require.NoError(t, err)
	defer func() { _ = sink.close() }()
	assert.Equal(t, output.FormatJSON, format)
	assert.True(t, strings.HasSuffix(sink.path, "prefs.json"), sink.path)
}

func TestWriteDocumentToCommandOutput(t *testing.T) {
	c := newOutputCommand()
	var buf bytes.Buffer
	c.SetOut(&buf)
	require.NoError(t, c.Flags().Set("output-format", "markdown"))

	require.NoError(t, writeDocument(c, "prefs", output.PreferencesDocument(core.DefaultPreferences())))
	assert.Contains(t, buf.String(), "| theme_mode | light |")
}

func TestResolveUnit(t *testing.T) {
	unit, err := resolveUnit(context.Background(), nil, "f")
	require.NoError(t, err)
	assert.Equal(t, core.UnitFahrenheit, unit)

	unit, err = resolveUnit(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, core.UnitCelsius, unit)

	_, err = resolveUnit(context.Background(), nil, "kelvin")
	require.Error(t, err)
}

func TestWriteCachePurgeResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCachePurgeResult(output.FormatJSON, &buf, 3, 2, false))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 3, decoded["matched"])
	assert.EqualValues(t, 2, decoded["deleted"])
	assert.Equal(t, false, decoded["dry_run"])

	buf.Reset()
	require.NoError(t, writeCachePurgeResult(output.FormatTable, &buf, 4, 0, true))
	assert.Contains(t, buf.String(), "Would delete 4 entr(ies)")
}

func TestServeHealthCheckers(t *testing.T) {
	limiter := proxy.NewRateLimiter(proxy.WithMaxKeys(1), proxy.WithSweepEvery(0))
	checker := rateTableChecker{limiter: limiter, maxKeys: 1}
	require.NoError(t, checker.CheckHealth(context.Background()))

	limiter.Allow("198.51.100.1")
	err := checker.CheckHealth(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, handlers.ErrDegraded))

	err = providerChecker{client: &proxy.Client{}}.CheckHealth(context.Background())
	assert.True(t, errors.Is(err, handlers.ErrDegraded))
	assert.NoError(t, providerChecker{client: &proxy.Client{APIKey: "k"}}.CheckHealth(context.Background()))
}

func TestSameOrigins(t *testing.T) {
	assert.True(t, sameOrigins([]string{"a", "b"}, []string{"a", "b"}))
	assert.False(t, sameOrigins([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameOrigins([]string{"a", "b"}, []string{"b", "a"}))
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.4.0", "abc1234", "2026-03-01")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "skystats 1.4.0\n", buf.String())
}
