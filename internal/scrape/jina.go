package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/pkg/jina"
)

// JinaAdapter wraps a Jina reader client as a Scraper.
type JinaAdapter struct {
	client jina.Client
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{client: client}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// Scrape fetches a URL via the Jina reader.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, eris.Errorf("jina: reader returned code %d", resp.Code)
	}

	u := resp.Data.URL
	if u == "" {
		u = targetURL
	}
	return &Result{
		Page: Page{
			URL:         u,
			Title:       resp.Data.Title,
			Description: resp.Data.Description,
			Markdown:    resp.Data.Content,
		},
		Source: j.Name(),
	}, nil
}
