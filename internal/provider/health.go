package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// probeClientTimeout bounds a single health probe when the caller's context
// carries no deadline.
const probeClientTimeout = 10 * time.Second

// httpProbe issues a GET against an endpoint that costs no tokens.
type httpProbe struct {
	client *http.Client
	url    string
	header http.Header
}

// HealthCheck implements HealthCheckConfig.
func (p *httpProbe) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, v := range p.header {
		req.Header[k] = v
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: health probe %s: status %d", p.url, resp.StatusCode)
	}
	return nil
}

// Probe returns a zero-cost health check for the selected backend, or nil
// when the backend exposes no such endpoint. Callers fall back to a minimal
// generation in that case.
func (c *Config) Probe() HealthCheckConfig {
	client := &http.Client{Timeout: probeClientTimeout}
	switch c.Backend {
	case BackendOllama:
		return &httpProbe{
			client: client,
			url:    strings.TrimRight(c.Ollama.Host, "/") + "/api/tags",
		}
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+c.OpenAI.APIKey)
		return &httpProbe{client: client, url: strings.TrimRight(base, "/") + "/models", header: h}
	case BackendAzure:
		h := http.Header{}
		h.Set("api-key", c.AzureOpenAI.APIKey)
		return &httpProbe{
			client: client,
			url:    strings.TrimRight(c.AzureOpenAI.Endpoint, "/") + "/openai/models?api-version=" + c.AzureOpenAI.APIVersion,
			header: h,
		}
	default:
		return nil
	}
}
