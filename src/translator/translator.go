// Package translator talks to a LibreTranslate-compatible /translate endpoint.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"screen-translate/src/config"
)

const DefaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of a failed response is kept for messages.
const maxErrorBody = 4 << 10

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// TargetLanguage is shared between the tray language switch and the
// worker. Last write wins; every request reads it fresh.
type TargetLanguage struct {
	mu   sync.RWMutex
	code string
}

func NewTargetLanguage(code string) *TargetLanguage {
	return &TargetLanguage{code: code}
}

func (t *TargetLanguage) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.code
}

func (t *TargetLanguage) Set(code string) {
	t.mu.Lock()
	t.code = code
	t.mu.Unlock()
}

type Options struct {
	Endpoint   string
	APIKey     string
	SourceLang string
	Target     *TargetLanguage
	Timeout    time.Duration
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	source   string
	target   *TargetLanguage
	timeout  time.Duration
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	target := opts.Target
	if target == nil {
		target = NewTargetLanguage("en")
	}
	source := opts.SourceLang
	if source == "" {
		source = "auto"
	}
	return &Client{
		http:     hc,
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		source:   source,
		target:   target,
		timeout:  timeout,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// IsLoopback reports whether the endpoint is the embedded local service.
func (c *Client) IsLoopback() bool { return config.IsLoopbackURL(c.endpoint) }

// Translate performs exactly one POST against the endpoint. Failures are
// returned as *Error.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: c.source,
		Target: c.target.Get(),
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := string(bytes.TrimSpace(raw))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return "", &Error{Kind: KindHTTPStatus, StatusCode: resp.StatusCode, Message: msg}
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", classifyTransport(err)
		}
		return "", &Error{Kind: KindDecode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.TranslatedText == nil {
		if out.Error != "" {
			return "", &Error{Kind: KindHTTPStatus, StatusCode: resp.StatusCode, Message: out.Error}
		}
		return "", &Error{Kind: KindDecode, Err: errors.New("response has no translatedText")}
	}
	return *out.TranslatedText, nil
}
