package profiler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ContextSeparator joins the fetched documents into one context blob.
const ContextSeparator = "\n\n---\n\n"

// ValidateURL checks that raw is an absolute http(s) URL. Used by the HTTP
// layer to reject bad input before any network call is made.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

// Loader fetches reference documents from remote URLs and concatenates them
// into a single context text.
type Loader struct {
	client *http.Client
}

// NewLoader creates a Loader. A nil client gets a default with a 30s timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client}
}

// FromURLs fetches every URL concurrently and returns the response bodies
// joined by ContextSeparator, preserving input order. Any single failure fails
// the whole load; there are no retries and no partial results.
func (l *Loader) FromURLs(ctx context.Context, urls []string) (string, error) {
	texts := make([]string, len(urls))
	errs := make([]error, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			texts[i], errs[i] = l.fetch(ctx, u)
		}(i, u)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", err
		}
	}
	return strings.Join(texts, ContextSeparator), nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %q: %w", rawURL, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %q: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch %q: read body: %w", rawURL, err)
	}
	return string(body), nil
}
