package scrape

import (
	"context"
	"time"

	"github.com/sells-group/entry-report/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	timeout time.Duration
}

// NewFirecrawlAdapter creates a FirecrawlAdapter. A positive timeout is
// forwarded to Firecrawl as its page-load budget.
func NewFirecrawlAdapter(client firecrawl.Client, timeout time.Duration) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, timeout: timeout}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Scrape fetches the main content of targetURL as markdown.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		TimeoutMs:       int(f.timeout / time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	u := resp.Data.Metadata.SourceURL
	if u == "" {
		u = targetURL
	}
	return &Result{
		Page: Page{
			URL:         u,
			Title:       resp.Data.Metadata.Title,
			Description: resp.Data.Metadata.Description,
			Markdown:    resp.Data.Markdown,
		},
		Source: f.Name(),
	}, nil
}
