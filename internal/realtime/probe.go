package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Prober measures round-trip latency to the backend.
type Prober interface {
	Probe(ctx context.Context) (time.Duration, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) (time.Duration, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context) (time.Duration, error) { return f(ctx) }

const probeTimeout = 5 * time.Second

// HTTPProber issues a small uncached HEAD request. Any HTTP response counts
// as reachable; only transport failures are errors.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber builds a prober for url with a bounded client timeout.
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{URL: url, Client: &http.Client{Timeout: probeTimeout}}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) (time.Duration, error) {
	if p == nil || p.URL == "" {
		return 0, fmt.Errorf("probe url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", p.URL, err)
	}
	_ = resp.Body.Close()
	return time.Since(start), nil
}
