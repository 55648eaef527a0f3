package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProber implements editor.Prober by fetching the image and decoding its
// header.
type HTTPProber struct {
	Client *http.Client
	// BaseURL resolves relative URLs.
	BaseURL string
	Timeout time.Duration
}

func NewHTTPProber(baseURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		Client:  &http.Client{},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Timeout: timeout,
	}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (int, int, error) {
	if strings.HasPrefix(url, "/") {
		url = p.BaseURL + url
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("probing %s: status %d", url, resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("probing %s: %w", url, err)
	}
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return cfg.Width, cfg.Height, nil
}
