package common

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "strips fragment",
			input: "https://example.com/page#section-2",
			want:  "https://example.com/page",
		},
		{
			name:  "trims trailing slash",
			input: "https://example.com/news/",
			want:  "https://example.com/news",
		},
		{
			name:  "keeps root slash",
			input: "https://example.com/",
			want:  "https://example.com/",
		},
		{
			name:  "adds root slash to bare host",
			input: "https://example.com",
			want:  "https://example.com/",
		},
		{
			name:  "lowercases scheme and host only",
			input: "HTTPS://WWW.Example.COM/About/Team",
			want:  "https://www.example.com/About/Team",
		},
		{
			name:  "drops default http port",
			input: "http://example.com:80/page",
			want:  "http://example.com/page",
		},
		{
			name:  "drops default https port",
			input: "https://example.com:443/page",
			want:  "https://example.com/page",
		},
		{
			name:  "keeps non-default port",
			input: "http://example.com:8080/page",
			want:  "http://example.com:8080/page",
		},
		{
			name:  "preserves query",
			input: "https://example.com/search?q=news&page=2",
			want:  "https://example.com/search?q=news&page=2",
		},
		{
			name:    "rejects empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "rejects relative",
			input:   "/news/page",
			wantErr: true,
		},
		{
			name:    "rejects scheme without host",
			input:   "mailto:someone@example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeURL(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeURL(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/News/",
		"http://example.com:80/a/b#frag",
		"https://example.com",
		"https://example.com/search?q=x",
	}

	for _, input := range inputs {
		once, err := NormalizeURL(input)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", input, err)
		}
		twice, err := NormalizeURL(once)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error on second pass: %v", once, err)
		}
		if once != twice {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestHostMatchesDomain(t *testing.T) {
	tests := []struct {
		host   string
		domain string
		want   bool
	}{
		{"example.com", "example.com", true},
		{"news.example.com", "example.com", true},
		{"a.b.example.com", "example.com", true},
		{"EXAMPLE.COM", "example.com", true},
		{"notexample.com", "example.com", false},
		{"example.com.evil.net", "example.com", false},
		{"example.com", "news.example.com", false},
		{"", "example.com", false},
		{"example.com", "", false},
	}

	for _, tt := range tests {
		if got := HostMatchesDomain(tt.host, tt.domain); got != tt.want {
			t.Errorf("HostMatchesDomain(%q, %q) = %v, want %v", tt.host, tt.domain, got, tt.want)
		}
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "host and path",
			input: "https://example.com/news/2024/update",
			want:  "example.com_news_2024_update",
		},
		{
			name:  "root page",
			input: "https://example.com/",
			want:  "example.com",
		},
		{
			name:  "collapses underscore runs",
			input: "https://example.com//a//b",
			want:  "example.com_a_b",
		},
		{
			name:  "keeps dots dashes and case",
			input: "https://docs.example.com/API-Guide.v2",
			want:  "docs.example.com_API-Guide.v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFileName(tt.input); got != tt.want {
				t.Errorf("SafeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeFileNameLength(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("segment/", 40)
	got := SafeFileName(long)
	if len(got) > 100 {
		t.Errorf("SafeFileName produced %d chars, cap is 100: %q", len(got), got)
	}
	if got == "" {
		t.Error("SafeFileName returned empty name for long URL")
	}
}
