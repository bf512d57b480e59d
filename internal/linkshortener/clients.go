package linkshortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	userAgent    = "Arrume/1.0"
	maxBodyBytes = 64 << 10
)

// ErrEmptyResponse is returned when a provider answers without a usable URL.
var ErrEmptyResponse = errors.New("shortener returned no url")

// TinyURL shortens through GET {base}/create?url=... and reads data.tiny_url.
type TinyURL struct {
	baseURL string
	http    *http.Client
}

// NewTinyURL creates a TinyURL client. Deadlines come from the caller's context.
func NewTinyURL(baseURL string, client *http.Client) *TinyURL {
	if client == nil {
		client = http.DefaultClient
	}
	return &TinyURL{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

type tinyURLResponse struct {
	Data struct {
		TinyURL string `json:"tiny_url"`
	} `json:"data"`
}

// Name identifies the provider in logs.
func (t *TinyURL) Name() string { return "tinyurl" }

// Shorten returns the short URL for longURL.
func (t *TinyURL) Shorten(ctx context.Context, longURL string) (string, error) {
	body, err := get(ctx, t.http, t.baseURL+"/create?url="+url.QueryEscape(longURL))
	if err != nil {
		return "", fmt.Errorf("tinyurl: %w", err)
	}

	var payload tinyURLResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("tinyurl: decode response: %w", err)
	}
	short := strings.TrimSpace(payload.Data.TinyURL)
	if short == "" {
		return "", fmt.Errorf("tinyurl: %w", ErrEmptyResponse)
	}
	return short, nil
}

// IsGd shortens through GET {base}/create.php?format=simple&url=..., which
// answers with the bare short URL.
type IsGd struct {
	baseURL string
	http    *http.Client
}

// NewIsGd creates an is.gd client.
func NewIsGd(baseURL string, client *http.Client) *IsGd {
	if client == nil {
		client = http.DefaultClient
	}
	return &IsGd{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

// Name identifies the provider in logs.
func (g *IsGd) Name() string { return "isgd" }

// Shorten returns the short URL for longURL.
func (g *IsGd) Shorten(ctx context.Context, longURL string) (string, error) {
	body, err := get(ctx, g.http, g.baseURL+"/create.php?format=simple&url="+url.QueryEscape(longURL))
	if err != nil {
		return "", fmt.Errorf("isgd: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("isgd: %w", ErrEmptyResponse)
	}
	return short, nil
}

func get(ctx context.Context, client *http.Client, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	return body, nil
}
