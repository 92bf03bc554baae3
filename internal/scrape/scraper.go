// Package scrape fetches a company's website as markdown through an ordered
// chain of extraction providers.
package scrape

import "context"

// Page is the extracted content of one URL.
type Page struct {
	URL         string
	Title       string
	Description string
	Markdown    string
}

// Result holds a scraped page with the provider that produced it.
type Result struct {
	Page   Page
	Source string // "firecrawl", "jina"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}
