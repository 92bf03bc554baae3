package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/config"
	"github.com/sells-group/entry-report/internal/scrape"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
		Anthropic: config.AnthropicConfig{
			Key:   "sk-test",
			Model: "claude-sonnet-4-5-20250929",
		},
		Firecrawl: config.FirecrawlConfig{BaseURL: "https://api.firecrawl.dev/v1", TimeoutSecs: 30},
		Jina:      config.JinaConfig{BaseURL: "https://r.jina.ai"},
		Pipeline: config.PipelineConfig{
			MinContentChars: 200,
			MaxContentChars: 12000,
			ProviderLimit:   10,
			MatchLimit:      5,
			TimeoutSecs:     300,
		},
		Resilience: config.ResilienceConfig{
			MaxAttempts:         2,
			BreakerThreshold:    5,
			BreakerCooldownSecs: 60,
		},
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestAppEnv_Close_Nil(t *testing.T) {
	env := &appEnv{}
	assert.NotPanics(t, func() {
		env.Close()
	})
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = testConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)

	env := &appEnv{Store: st}
	require.NoError(t, st.Ping(context.Background()))
	assert.NotPanics(t, func() {
		env.Close()
	})
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestInitFetcher(t *testing.T) {
	tests := []struct {
		name      string
		firecrawl string
		jina      bool
		wantLen   int
	}{
		{name: "none", wantLen: 0},
		{name: "firecrawl only", firecrawl: "fc-key", wantLen: 1},
		{name: "jina only", jina: true, wantLen: 1},
		{name: "both", firecrawl: "fc-key", jina: true, wantLen: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = testConfig(t)
			cfg.Firecrawl.Key = tt.firecrawl
			cfg.Jina.Enabled = tt.jina

			f := initFetcher()
			if tt.wantLen == 0 {
				assert.Nil(t, f)
				return
			}
			chain, ok := f.(*scrape.Chain)
			require.True(t, ok)
			assert.Equal(t, tt.wantLen, chain.Len())
		})
	}
}

func TestInitApp_SQLite(t *testing.T) {
	cfg = testConfig(t)

	env, err := initApp(context.Background(), "generate")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Pipeline)
}

func TestInitApp_InvalidConfig(t *testing.T) {
	cfg = testConfig(t)
	cfg.Anthropic.Key = ""

	env, err := initApp(context.Background(), "serve")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestRunTimeout(t *testing.T) {
	cfg = testConfig(t)
	assert.Equal(t, "5m0s", runTimeout().String())

	cfg.Pipeline.TimeoutSecs = 0
	assert.Zero(t, runTimeout())
}
