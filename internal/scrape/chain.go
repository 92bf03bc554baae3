package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order. A result is accepted when it has at
// least minChars of content that does not look like a challenge page;
// otherwise the next scraper is tried. If no scraper produces an acceptable
// page, the longest non-blocked page seen is returned.
type Chain struct {
	scrapers []Scraper
	minChars int
}

// NewChain creates a Chain over the given scrapers.
func NewChain(minChars int, scrapers ...Scraper) *Chain {
	var ss []Scraper
	for _, s := range scrapers {
		if s != nil {
			ss = append(ss, s)
		}
	}
	return &Chain{scrapers: ss, minChars: minChars}
}

// Len returns the number of configured scrapers.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.scrapers)
}

// Scrape fetches rawURL through the chain.
func (c *Chain) Scrape(ctx context.Context, rawURL string) (*Result, error) {
	if c.Len() == 0 {
		return nil, eris.New("scrape: no scrapers configured")
	}

	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	var best *Result
	var lastErr error
	for _, s := range c.scrapers {
		res, err := s.Scrape(ctx, target)
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", target),
				zap.Error(err),
			)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if res == nil || LooksBlocked(res.Page.Markdown) {
			zap.L().Debug("scrape: empty or blocked page, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", target),
			)
			continue
		}
		if len(strings.TrimSpace(res.Page.Markdown)) >= c.minChars {
			return res, nil
		}
		if best == nil || len(res.Page.Markdown) > len(best.Page.Markdown) {
			best = res
		}
	}

	if best != nil {
		return best, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no usable content for %s", target)
}

// NormalizeURL adds an https scheme when missing and rejects values that do
// not have a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("scrape: empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: parse url %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("scrape: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" || !strings.Contains(u.Hostname(), ".") {
		return "", eris.Errorf("scrape: invalid host in %q", raw)
	}
	return u.String(), nil
}
