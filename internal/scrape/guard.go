package scrape

import (
	"context"

	"github.com/sells-group/entry-report/internal/resilience"
)

type guarded struct {
	Scraper
	breaker *resilience.CircuitBreaker
}

// Guard puts s behind a circuit breaker. While the breaker is open the
// scraper fails fast with resilience.ErrCircuitOpen and the chain moves on.
func Guard(s Scraper, cb *resilience.CircuitBreaker) Scraper {
	if cb == nil {
		return s
	}
	return &guarded{Scraper: s, breaker: cb}
}

func (g *guarded) Scrape(ctx context.Context, url string) (*Result, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*Result, error) {
		return g.Scraper.Scrape(ctx, url)
	})
}
