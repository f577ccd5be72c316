package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samvad-hq/checkout-connector/pkg/httpclient"
)

const testSecret = "aboogie"

// stubResponse implements httpclient.Response.
type stubResponse struct {
	code   int
	header http.Header
	body   []byte
}

func (s stubResponse) StatusCode() int { return s.code }
func (s stubResponse) Header() http.Header {
	if s.header == nil {
		return http.Header{}
	}
	return s.header
}
func (s stubResponse) Body() []byte { return s.body }

// stubTransport replays queued responses and records every request.
type stubTransport struct {
	responses []stubResponse
	requests  []*httpclient.Request
	err       error
}

func (s *stubTransport) addResponse(code int, header http.Header, payload string) {
	s.responses = append(s.responses, stubResponse{code: code, header: header, body: []byte(payload)})
}

func (s *stubTransport) Do(_ context.Context, req *httpclient.Request) (httpclient.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("stub transport: no response queued")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

// resourceStub is a minimal resource whose empty document encodes as [].
type resourceStub struct {
	location string
	data     map[string]any
}

func (r *resourceStub) Location() string       { return r.location }
func (r *resourceStub) SetLocation(uri string) { r.location = uri }
func (r *resourceStub) ContentType() string    { return "application/json" }

func (r *resourceStub) MarshalWire() ([]byte, error) {
	if len(r.data) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(r.data)
}

func (r *resourceStub) UnmarshalWire(payload []byte) error {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return err
	}
	r.data = data
	return nil
}

// fixedDigester returns the same digest for every input and records inputs.
type fixedDigester struct {
	digest string
	inputs []string
}

func (f *fixedDigester) CreateDigest(input string) string {
	f.inputs = append(f.inputs, input)
	return f.digest
}
