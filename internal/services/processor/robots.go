package processor

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

// robotsCache fetches and caches robots.txt decisions per host. A host
// whose robots.txt cannot be fetched or parsed is treated as
// allow-everything, matching common crawler practice.
type robotsCache struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group // scheme://host -> matched group
}

func newRobotsCache(client *http.Client, userAgent string, logger arbor.ILogger) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		groups:    map[string]*robotstxt.Group{},
	}
}

// allowed reports whether the URL may be fetched under the host's
// robots.txt rules
func (r *robotsCache) allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group := r.groupFor(ctx, u)
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (r *robotsCache) groupFor(ctx context.Context, u *url.URL) *robotstxt.Group {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	group, cached := r.groups[origin]
	r.mu.Unlock()
	if cached {
		return group
	}

	group = r.fetchGroup(ctx, origin)

	r.mu.Lock()
	r.groups[origin] = group
	r.mu.Unlock()
	return group
}

// fetchGroup retrieves and parses robots.txt for an origin. Any failure
// yields a nil group, which means allow.
func (r *robotsCache) fetchGroup(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt fetch failed; allowing")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt parse failed; allowing")
		return nil
	}

	group := robots.FindGroup(r.userAgent)
	r.logger.Debug().
		Str("origin", origin).
		Int("status", resp.StatusCode).
		Msg("robots.txt cached")
	return group
}
