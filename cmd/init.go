package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/pipeline"
	"github.com/sells-group/entry-report/internal/resilience"
	"github.com/sells-group/entry-report/internal/scrape"
	"github.com/sells-group/entry-report/internal/store"
	anthropicpkg "github.com/sells-group/entry-report/pkg/anthropic"
	"github.com/sells-group/entry-report/pkg/firecrawl"
	"github.com/sells-group/entry-report/pkg/jina"
)

// appEnv holds the initialized store and pipeline used by the serve and
// generate commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.MaxConns)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initFetcher builds the website extraction chain: Firecrawl first when a key
// is configured, then Jina when enabled. It returns nil when neither is
// available, which sends every intake down the fallback summary path.
func initFetcher() pipeline.Fetcher {
	breakerCfg := resilience.FromCircuitConfig(cfg.Resilience.BreakerThreshold, cfg.Resilience.BreakerCooldownSecs)
	breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		zap.L().Warn("extraction circuit changed state",
			zap.String("provider", name), zap.Stringer("from", from), zap.Stringer("to", to))
	}
	breakers := resilience.NewServiceBreakers(breakerCfg)

	var scrapers []scrape.Scraper
	if cfg.Firecrawl.Key != "" {
		client := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		adapter := scrape.NewFirecrawlAdapter(client, time.Duration(cfg.Firecrawl.TimeoutSecs)*time.Second)
		scrapers = append(scrapers, scrape.Guard(adapter, breakers.Get("firecrawl")))
	} else {
		zap.L().Debug("ENTRY_FIRECRAWL_KEY not set, firecrawl extraction disabled")
	}
	if cfg.Jina.Enabled {
		client := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		scrapers = append(scrapers, scrape.Guard(scrape.NewJinaAdapter(client), breakers.Get("jina")))
	}

	if len(scrapers) == 0 {
		zap.L().Warn("no extraction provider configured, reports will use fallback summaries")
		return nil
	}
	return scrape.NewChain(cfg.Pipeline.MinContentChars, scrapers...)
}

// initApp validates config for mode, then sets up the store, clients and
// pipeline. Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var opts []anthropicpkg.Option
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	// Retries are owned by the pipeline's resilience policy.
	opts = append(opts, anthropicpkg.WithMaxRetries(0))
	ai := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)

	fetcher := initFetcher()
	p := pipeline.New(cfg, st, ai, fetcher)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
		zap.Bool("extraction", fetcher != nil),
	)

	return &appEnv{Store: st, Pipeline: p}, nil
}

// runTimeout returns the configured per-run deadline, or zero for none.
func runTimeout() time.Duration {
	return time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second
}
