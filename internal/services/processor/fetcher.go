package processor

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTooManyRedirects fires when a fetch crosses the redirect ceiling
var ErrTooManyRedirects = fmt.Errorf("too many redirects")

// redirectCeiling is the maximum number of redirects followed per fetch
const redirectCeiling = 5

// fetchResult is the outcome of one HTTP fetch
type fetchResult struct {
	statusCode  int
	contentType string
	body        []byte
	finalURL    string
	duration    time.Duration
}

// newHTTPClient builds the fetch client: per-request timeout, redirect
// ceiling of five, transport-level gzip handling
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > redirectCeiling {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetch issues a GET and reads the full body, capped at maxBodySize.
// A missing Content-Type header defaults to text/html.
func (s *Service) fetch(req *http.Request) (*fetchResult, error) {
	start := time.Now()

	req.Header.Set("User-Agent", s.config.Scrape.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	maxBody := int64(s.config.Scrape.MaxBodySize)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	// Strip charset and other parameters
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &fetchResult{
		statusCode:  resp.StatusCode,
		contentType: strings.ToLower(contentType),
		body:        body,
		finalURL:    finalURL,
		duration:    time.Since(start),
	}, nil
}
