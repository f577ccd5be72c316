package checkout

import (
	"context"

	"github.com/samvad-hq/checkout-connector/pkg/httpclient"
)

//go:generate mockgen -source=interfaces.go -destination=mock/interfaces.go -package=mock

// Transport performs the network round trip for a prepared request.
type Transport interface {
	Do(ctx context.Context, req *httpclient.Request) (httpclient.Response, error)
}

// Digester signs the request; see package digest for implementations.
type Digester interface {
	CreateDigest(input string) string
}

// Resource is a remote checkout entity the Connector can create or fetch.
type Resource interface {
	Location() string
	SetLocation(uri string)
	ContentType() string
	MarshalWire() ([]byte, error)
	UnmarshalWire(payload []byte) error
}
