// Package checkout talks to the remote checkout service: it signs requests
// for a Resource, dispatches them through a Transport and maps failures onto
// typed errors.
package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samvad-hq/checkout-connector/pkg/httpclient"
)

const authorizationScheme = "Klarna"

// Connector signs, sends and interprets checkout API requests. It holds no
// per-call state and is safe for concurrent use.
type Connector struct {
	transport       Transport
	digester        Digester
	secret          string
	baseURL         string
	userAgent       string
	locationHeader  string
	successMin      int
	successMax      int
	followRedirects bool
	log             Logger
}

// NewConnector wires a connector around the transport and digester. The
// secret is fixed for the connector's lifetime.
func NewConnector(transport Transport, digester Digester, secret string, opts ...Option) *Connector {
	c := &Connector{
		transport:      transport,
		digester:       digester,
		secret:         secret,
		userAgent:      DefaultUserAgent,
		locationHeader: DefaultLocationHeader,
		successMin:     DefaultSuccessMin,
		successMax:     DefaultSuccessMax,
		log:            noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the fallback target for resources without a location.
func (c *Connector) BaseURL() string { return c.baseURL }

// Apply performs method against res. On success res is updated in place and
// returned; on failure res is left untouched. Errors coming from the
// transport are returned as is.
func (c *Connector) Apply(ctx context.Context, method string, res Resource, opts ...ApplyOption) (Resource, error) {
	if c == nil || c.transport == nil || c.digester == nil {
		return nil, errors.New("checkout: connector is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	verb, err := validateMethod(method)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: resource must not be nil", ErrInvalidArgument)
	}

	var cfg applyConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	target := firstNonEmpty(cfg.url, res.Location(), c.baseURL)
	if target == "" {
		return nil, fmt.Errorf("%w: no url for %s request", ErrInvalidArgument, verb)
	}

	var body []byte
	if carriesBody(verb) {
		if cfg.hasBody {
			body = cfg.body
		} else if body, err = res.MarshalWire(); err != nil {
			return nil, fmt.Errorf("%w: marshal resource: %v", ErrInvalidArgument, err)
		}
	}

	resp, err := c.send(ctx, verb, target, res.ContentType(), body)
	if err != nil {
		return nil, err
	}
	return c.handleResponse(ctx, verb, target, res, resp)
}

func (c *Connector) handleResponse(ctx context.Context, verb, target string, res Resource, resp httpclient.Response) (Resource, error) {
	var movedTo string
	sent := verb
	visited := map[string]struct{}{target: {}}

	for c.followRedirects && isRedirect(resp.StatusCode()) {
		next := resp.Header().Get("Location")
		if next == "" {
			break
		}
		next = resolveReference(target, next)
		if _, seen := visited[next]; seen {
			return nil, fmt.Errorf("%w: %s", ErrRedirectLoop, next)
		}
		visited[next] = struct{}{}
		if resp.StatusCode() == http.StatusMovedPermanently {
			movedTo = next
		}

		c.log.DebugObj("checkout redirect followed", "checkout_redirect", map[string]any{
			"status": resp.StatusCode(),
			"from":   target,
			"to":     next,
		})

		var err error
		target = next
		sent = http.MethodGet
		if resp, err = c.send(ctx, sent, target, res.ContentType(), nil); err != nil {
			return nil, err
		}
	}

	code := resp.StatusCode()
	if code < c.successMin || code > c.successMax {
		statusErr := newStatusError(code, resp.Body())
		c.log.WarnObj("checkout request failed", "checkout_status_error", map[string]any{
			"method":  verb,
			"url":     target,
			"status":  code,
			"message": statusErr.Message,
		})
		return nil, statusErr
	}

	if payload := resp.Body(); len(bytes.TrimSpace(payload)) > 0 {
		if err := res.UnmarshalWire(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if movedTo != "" {
		res.SetLocation(movedTo)
	}
	// Only the response to the body-carrying request itself may move the resource.
	if carriesBody(sent) {
		if loc := strings.TrimSpace(resp.Header().Get(c.locationHeader)); loc != "" {
			res.SetLocation(resolveReference(target, loc))
		}
	}
	return res, nil
}

// send builds, signs and dispatches a single request.
func (c *Connector) send(ctx context.Context, verb, target, contentType string, body []byte) (httpclient.Response, error) {
	input := c.secret
	if carriesBody(verb) {
		input = string(body) + c.secret
	}

	header := http.Header{}
	header.Set("Authorization", authorizationScheme+" "+c.digester.CreateDigest(input))
	header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		header.Set("Accept", contentType)
		if carriesBody(verb) {
			header.Set("Content-Type", contentType)
		}
	}

	c.log.DebugObj("checkout request dispatched", "checkout_request", map[string]any{
		"method": verb,
		"url":    target,
		"bytes":  len(body),
	})

	return c.transport.Do(ctx, &httpclient.Request{
		Method: verb,
		URL:    target,
		Header: header,
		Body:   body,
	})
}

// validateMethod accepts the supported verbs by exact, upper-case name.
func validateMethod(method string) (string, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return method, nil
	default:
		return "", fmt.Errorf("%w: unsupported method %q", ErrInvalidArgument, method)
	}
}

func carriesBody(verb string) bool {
	return verb == http.MethodPost || verb == http.MethodPut
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return true
	}
	return false
}

// resolveReference resolves ref against base, returning ref unchanged when
// either fails to parse.
func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
