package processor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ternarybob/lustro/internal/common"
	"golang.org/x/time/rate"
)

// politeness enforces the per-domain delay envelope: a rate limiter
// spaced at the minimum delay, then a random jitter up to the maximum.
// Every wait is cancellation-aware.
type politeness struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPoliteness(minDelay, maxDelay time.Duration) *politeness {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &politeness{
		minDelay: minDelay,
		maxDelay: maxDelay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// wait blocks until the URL's domain is allowed another request
func (p *politeness) wait(ctx context.Context, rawURL string) error {
	domain := common.URLHost(rawURL)
	if domain == "" {
		return nil
	}

	if p.minDelay > 0 {
		if err := p.limiterFor(domain).Wait(ctx); err != nil {
			return err
		}
	}

	if spread := p.maxDelay - p.minDelay; spread > 0 {
		jitter := time.Duration(rand.Int63n(int64(spread)))
		timer := time.NewTimer(jitter)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

func (p *politeness) limiterFor(domain string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(p.minDelay), 1)
		p.limiters[domain] = limiter
	}
	return limiter
}
