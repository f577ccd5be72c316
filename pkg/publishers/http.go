package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/checkout-connector/pkg/digest"
	"github.com/samvad-hq/checkout-connector/pkg/httpclient"
)

// SignatureHeader carries the webhook body digest when a signing secret is configured.
const SignatureHeader = "X-Checkout-Digest"

type httpPublisher struct {
	id       string
	method   string
	url      string
	headers  map[string]string
	client   *resty.Client
	typ      string
	secret   string
	digester digest.Digester
	log      Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)

	return &httpPublisher{
		id:       cfg.ID,
		typ:      TypeHTTP,
		method:   cfg.HTTP.Method,
		url:      cfg.HTTP.URL,
		headers:  cfg.HTTP.Headers,
		client:   client,
		secret:   cfg.HTTP.SigningSecret,
		digester: digest.SHA256{},
		log:      ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := h.client.R().
		SetContext(ctx).
		SetBody(payload)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")
	if h.secret != "" {
		req.SetHeader(SignatureHeader, h.digester.CreateDigest(string(payload)+h.secret))
	}

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), snippet)
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
