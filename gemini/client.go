// Package gemini talks to the Gemini generateContent API: one call critiques
// a recording, another produces reference audio for a sentence.
package gemini

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"google.golang.org/genai"

	"fluent/apperr"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

type Config struct {
	APIKey         string
	BaseURL        string // empty for DefaultBaseURL
	AnalysisModel  string
	SynthesisModel string
	Voice          string
}

// generator is the part of *genai.Models this package uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg     Config
	models  generator
	http    *http.Client
	baseURL string
}

// New builds a client for the Gemini API backend. Without an API key the
// client still works but every call fails, so the caller falls through to
// its placeholder and local paths.
func New(ctx context.Context, cfg Config) (*Client, error) {
	transport := newTracedTransport()
	httpClient := &http.Client{Transport: transport}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{cfg: cfg, http: httpClient, baseURL: baseURL}
	if cfg.APIKey == "" {
		c.models = missingKey{}
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create gemini client", err)
	}
	c.models = gc.Models
	return c, nil
}

func (c *Client) Analyzer() *Analyzer {
	return &Analyzer{gen: c.models, model: c.cfg.AnalysisModel}
}

func (c *Client) Configured() bool {
	_, missing := c.models.(missingKey)
	return !missing
}

func (c *Client) BaseURL() string { return c.baseURL }

// Warm opens a connection to the API host ahead of the first request and
// returns the TLS handshake time.
func (c *Client) Warm(ctx context.Context) time.Duration {
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(_ tls.ConnectionState, _ error) { tlsDuration = time.Since(tlsStart) },
	}

	ctx = withOp(ctx, "warm", "")
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodHead, c.baseURL, nil)
	if err != nil {
		return 0
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tlsDuration
}

// Ping reports whether the API host answers at all. Any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(withOp(ctx, "ping", ""), http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Network("reach "+c.baseURL, err)
	}
	resp.Body.Close()
	return nil
}

type missingKey struct{}

func (missingKey) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, apperr.New(apperr.Validation, "GEMINI_API_KEY is not set")
}
