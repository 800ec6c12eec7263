package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL converts a raw URL to its canonical crawl form: fragment
// stripped, scheme and host lowercased, default ports removed, and the
// trailing slash trimmed from non-root paths. Path case is preserved since
// many servers treat paths case-sensitively. The result is stable:
// normalizing an already-normalized URL returns it unchanged.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if port := u.Port(); port != "" {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = u.Hostname()
		}
	}

	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	return u.String(), nil
}

// HostMatchesDomain reports whether host equals domain or is one of its
// subdomains. Comparison is case-insensitive.
func HostMatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// URLHost returns the lowercased hostname (no port) of a URL, or "" when
// the URL cannot be parsed. Used for per-domain accounting.
func URLHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// safeNameMaxLen caps artifact base names so host+path cannot produce
// filenames that overflow filesystem limits once extensions are appended.
const safeNameMaxLen = 100

// SafeFileName converts a URL into a filesystem-safe artifact base name:
// hostname plus path, with every character outside [A-Za-z0-9._-] replaced
// by underscore, underscore runs collapsed, and the result capped at 100
// characters.
func SafeFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return sanitizeName(rawURL)
	}
	return sanitizeName(u.Hostname() + u.EscapedPath())
}

func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "page"
	}
	if len(name) > safeNameMaxLen {
		name = name[:safeNameMaxLen]
		name = strings.TrimRight(name, "_.")
	}
	return name
}
