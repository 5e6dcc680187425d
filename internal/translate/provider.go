package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider translates a single text between two languages.
type Provider interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

const defaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider calls the unauthenticated Google translation endpoint used
// by the browser extension surface. No API key is needed; in exchange the
// endpoint rate limits aggressively, which the caching layer absorbs.
type GoogleProvider struct {
	endpoint   string
	httpClient *http.Client
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithEndpoint points the provider at a different base URL. Tests use this
// with httptest servers.
func WithEndpoint(endpoint string) GoogleOption {
	return func(p *GoogleProvider) { p.endpoint = endpoint }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = client }
}

func NewGoogleProvider(opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		endpoint:   defaultGoogleEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate request: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	return parseGTXResponse(body)
}

// parseGTXResponse extracts the translated text from the gtx wire shape,
// a nested array where element [0] holds segment tuples and each tuple's
// first entry is the translated segment.
func parseGTXResponse(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty translate response")
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translate response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		tuple, ok := seg.([]any)
		if !ok || len(tuple) == 0 {
			continue
		}
		if text, ok := tuple[0].(string); ok {
			b.WriteString(text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("translate response carried no text")
	}
	return b.String(), nil
}
