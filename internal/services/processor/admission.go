package processor

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/lustro/internal/common"
)

// ErrNotCrawlable marks a URL rejected by the admission rules. The
// wrapped reason says which rule fired.
var ErrNotCrawlable = fmt.Errorf("URL is not crawlable")

// admission applies the ordered admission rules to candidate URLs. The
// in-run set guarantees a normalized URL is admitted at most once per
// run; first wins.
type admission struct {
	allowedDomains  []string
	excludePatterns []string
	referenceHost   string

	mu       sync.RWMutex
	admitted map[string]bool
}

func newAdmission(allowedDomains, excludePatterns []string) *admission {
	lowered := make([]string, 0, len(excludePatterns))
	for _, pattern := range excludePatterns {
		if pattern = strings.ToLower(strings.TrimSpace(pattern)); pattern != "" {
			lowered = append(lowered, pattern)
		}
	}
	return &admission{
		allowedDomains:  allowedDomains,
		excludePatterns: lowered,
		admitted:        make(map[string]bool),
	}
}

// setReferenceHost anchors the domain check to the first seed's host,
// used when no allowed-domains list is configured
func (a *admission) setReferenceHost(seedURL string) {
	a.referenceHost = common.URLHost(seedURL)
}

// check runs the scope rules against a raw URL and returns its normalized
// form. It does not touch the in-run set; admit does.
func (a *admission) check(rawURL string) (string, error) {
	normalized, err := common.NormalizeURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotCrawlable, err)
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotCrawlable, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrNotCrawlable, u.Scheme)
	}

	host := u.Hostname()
	if !a.hostAllowed(host) {
		return "", fmt.Errorf("%w: host %q outside crawl scope", ErrNotCrawlable, host)
	}

	lowerURL := strings.ToLower(normalized)
	for _, pattern := range a.excludePatterns {
		if strings.Contains(lowerURL, pattern) {
			return "", fmt.Errorf("%w: matches exclude pattern %q", ErrNotCrawlable, pattern)
		}
	}

	return normalized, nil
}

// admit claims the normalized URL for this run. Returns false when the
// URL was already admitted; only the first caller gets true.
func (a *admission) admit(normalized string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.admitted[normalized] {
		return false
	}
	a.admitted[normalized] = true
	return true
}

// wasAdmitted reports whether the URL has been claimed this run
func (a *admission) wasAdmitted(normalized string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.admitted[normalized]
}

// admittedCount returns the size of the in-run admission set
func (a *admission) admittedCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.admitted)
}

// hostAllowed applies the domain scope: an explicit allow-list when
// configured, otherwise the reference seed host
func (a *admission) hostAllowed(host string) bool {
	if len(a.allowedDomains) > 0 {
		for _, domain := range a.allowedDomains {
			if common.HostMatchesDomain(host, domain) {
				return true
			}
		}
		return false
	}
	if a.referenceHost == "" {
		return true
	}
	return common.HostMatchesDomain(host, a.referenceHost)
}
