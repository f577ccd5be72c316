package checkout

import "strings"

const (
	// DefaultUserAgent identifies this library to the checkout service.
	DefaultUserAgent = "checkout-connector-go/1.0"
	// DefaultLocationHeader carries the URI of a newly created resource.
	DefaultLocationHeader = "Location"
	// DefaultSuccessMin and DefaultSuccessMax bound the accepted status codes.
	DefaultSuccessMin = 200
	DefaultSuccessMax = 299
)

// Option configures a Connector.
type Option func(*Connector)

// WithBaseURL sets the URL used when neither the call nor the resource names one.
func WithBaseURL(u string) Option {
	return func(c *Connector) { c.baseURL = strings.TrimSpace(u) }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Connector) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithSuccessRange sets the inclusive range of status codes treated as success.
// Inverted or non-positive ranges are ignored.
func WithSuccessRange(lo, hi int) Option {
	return func(c *Connector) {
		if lo <= 0 || hi < lo {
			return
		}
		c.successMin, c.successMax = lo, hi
	}
}

// WithLocationHeader names the response header that updates the resource location.
func WithLocationHeader(name string) Option {
	return func(c *Connector) {
		if name = strings.TrimSpace(name); name != "" {
			c.locationHeader = name
		}
	}
}

// WithFollowRedirects makes Apply follow 301/302/303/307 responses with GET.
func WithFollowRedirects(follow bool) Option {
	return func(c *Connector) { c.followRedirects = follow }
}

// WithLogger attaches a structured logger.
func WithLogger(log Logger) Option {
	return func(c *Connector) { c.log = ensureLogger(log) }
}

// ApplyOption adjusts a single Apply call.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	url     string
	body    []byte
	hasBody bool
}

// WithURL sends the request to u instead of the resource location.
func WithURL(u string) ApplyOption {
	return func(a *applyConfig) { a.url = strings.TrimSpace(u) }
}

// WithBody sends body instead of the resource's own wire payload.
func WithBody(body []byte) ApplyOption {
	return func(a *applyConfig) {
		a.body = body
		a.hasBody = true
	}
}
