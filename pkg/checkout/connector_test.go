package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/samvad-hq/checkout-connector/pkg/checkout/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testOrderURL = "https://checkout.example.com/checkout/orders/ABC123"
	testDigest   = `stnaeu\eu2341aoaaoae==`
)

var responseErrorCodes = []struct {
	code    int
	message string
}{
	{400, "Bad Request"},
	{401, "Unauthorized"},
	{402, "PaymentRequired"},
	{403, "Forbidden"},
	{404, "Not Found"},
	{406, "HTTP Error"},
	{409, "HTTP Error"},
	{412, "HTTP Error"},
	{415, "HTTP Error"},
	{422, "HTTP Error"},
	{428, "HTTP Error"},
	{429, "HTTP Error"},
	{500, "Internal Server Error"},
	{502, "Service temporarily overloaded"},
	{503, "Gateway timeout"},
}

func TestApplyInvalidMethod(t *testing.T) {
	for _, method := range []string{"FLURB", "", "PATCH", "HEAD", "OPTIONS", "GET ME", "get", " POST ", "Delete"} {
		t.Run(fmt.Sprintf("method=%q", method), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// No expectations: any transport or digest call fails the test.
			transport := mock.NewMockTransport(ctrl)
			digester := mock.NewMockDigester(ctrl)

			conn := NewConnector(transport, digester, testSecret)
			res := &resourceStub{location: testOrderURL}

			result, err := conn.Apply(context.Background(), method, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Nil(t, result)
		})
	}
}

func TestApplyGetErrorCode(t *testing.T) {
	for _, tc := range responseErrorCodes {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			digester := mock.NewMockDigester(ctrl)
			digester.EXPECT().CreateDigest(testSecret).Return(testDigest).Times(1)

			transport := &stubTransport{}
			transport.addResponse(tc.code, nil, tc.message)
			res := &resourceStub{location: testOrderURL}

			conn := NewConnector(transport, digester, testSecret)
			result, err := conn.Apply(context.Background(), http.MethodGet, res)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tc.code, statusErr.Code)
			assert.Equal(t, tc.message, statusErr.Message)
			assert.Equal(t, []byte(tc.message), statusErr.Payload)
			assert.Nil(t, result)
			assert.Nil(t, res.data, "resource must stay unmodified")
			assert.Equal(t, testOrderURL, res.location)
			assert.Len(t, transport.requests, 1)
		})
	}
}

func TestApplyPostErrorCode(t *testing.T) {
	for _, tc := range responseErrorCodes {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			digester := mock.NewMockDigester(ctrl)
			digester.EXPECT().CreateDigest("[]" + testSecret).Return(testDigest).Times(1)

			transport := &stubTransport{}
			transport.addResponse(tc.code, http.Header{"Location": {"https://elsewhere.example.com"}}, tc.message)
			res := &resourceStub{location: testOrderURL}

			conn := NewConnector(transport, digester, testSecret)
			result, err := conn.Apply(context.Background(), http.MethodPost, res)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tc.code, statusErr.Code)
			assert.Equal(t, tc.message, statusErr.Message)
			assert.Nil(t, result)
			assert.Equal(t, testOrderURL, res.location, "location must not change on failure")
		})
	}
}

func TestApplyGetNotFoundPayload(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(404, nil, "Not Found")
	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)

	_, err := conn.Apply(context.Background(), "GET", &resourceStub{location: testOrderURL})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.Code)
	assert.Equal(t, "Not Found", statusErr.Message)
	assert.True(t, statusErr.IsClientError())
	assert.False(t, statusErr.IsServerError())
	assert.Equal(t, "checkout: status 404 Not Found", statusErr.Error())
}

func TestApplyStatusErrorCarriesInternalMessage(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(400, nil, `{"http_status_code":400,"http_status_message":"Bad Request","internal_message":"Bad format: purchase_country missing"}`)
	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)

	_, err := conn.Apply(context.Background(), http.MethodPost, &resourceStub{location: testOrderURL})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Bad Request", statusErr.Message)
	assert.Equal(t, "Bad format: purchase_country missing", statusErr.InternalMessage)
	assert.Contains(t, err.Error(), "purchase_country missing")
}

func TestApplyPostDigestsPayloadAndSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	digester := mock.NewMockDigester(ctrl)
	digester.EXPECT().CreateDigest(`{"purchase_country":"SE"}` + testSecret).Return(testDigest).Times(1)

	transport := &stubTransport{}
	transport.addResponse(http.StatusCreated, http.Header{"Location": {testOrderURL}}, "")
	res := &resourceStub{data: map[string]any{"purchase_country": "SE"}}

	conn := NewConnector(transport, digester, testSecret, WithBaseURL("https://checkout.example.com/checkout/orders"))
	result, err := conn.Apply(context.Background(), http.MethodPost, res)
	require.NoError(t, err)
	assert.Same(t, res, result)
	assert.Equal(t, testOrderURL, res.location)

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://checkout.example.com/checkout/orders", req.URL)
	assert.Equal(t, `{"purchase_country":"SE"}`, string(req.Body))
	assert.Equal(t, "Klarna "+testDigest, req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
}

func TestApplyGetSendsNoBody(t *testing.T) {
	digester := &fixedDigester{digest: testDigest}
	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, nil, `{"id":"ABC123"}`)

	conn := NewConnector(transport, digester, testSecret, WithUserAgent("shop/2.0"))
	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})
	require.NoError(t, err)

	assert.Equal(t, []string{testSecret}, digester.inputs)
	req := transport.requests[0]
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "shop/2.0", req.Header.Get("User-Agent"))
	assert.Equal(t, testOrderURL, req.URL)
}

func TestApplyPutAndDeleteFollowPostAndGetSigning(t *testing.T) {
	digester := &fixedDigester{digest: testDigest}
	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, nil, "")
	transport.addResponse(http.StatusNoContent, nil, "")

	conn := NewConnector(transport, digester, testSecret)
	res := &resourceStub{location: testOrderURL}

	_, err := conn.Apply(context.Background(), http.MethodPut, res)
	require.NoError(t, err)
	_, err = conn.Apply(context.Background(), http.MethodDelete, res)
	require.NoError(t, err)

	assert.Equal(t, []string{"[]" + testSecret, testSecret}, digester.inputs)
	assert.Equal(t, http.MethodPut, transport.requests[0].Method)
	assert.Equal(t, http.MethodDelete, transport.requests[1].Method)
}

func TestApplyPopulatesResourceOnSuccess(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, nil, `{"id":"ABC123","status":"checkout_incomplete","cart":{"items":[]}}`)
	res := NewOrder(testOrderURL)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	result, err := conn.Apply(context.Background(), http.MethodGet, res)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "ABC123", res.ID())
	assert.Equal(t, "checkout_incomplete", res.Status())
	cart, ok := res.Get("cart")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"items": []any{}}, cart)
}

func TestApplyIsIdempotentForIdenticalResponses(t *testing.T) {
	const payload = `{"id":"ABC123","status":"checkout_complete"}`
	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, nil, payload)
	transport.addResponse(http.StatusOK, nil, payload)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	res := NewOrder(testOrderURL)

	_, err := conn.Apply(context.Background(), http.MethodGet, res)
	require.NoError(t, err)
	first := res.Data()

	_, err = conn.Apply(context.Background(), http.MethodGet, res)
	require.NoError(t, err)

	assert.Equal(t, first, res.Data())
	assert.Equal(t, testOrderURL, res.Location())
}

func TestApplyPropagatesTransportErrorUnchanged(t *testing.T) {
	boom := errors.New("connection refused")
	ctrl := gomock.NewController(t)
	transport := mock.NewMockTransport(ctrl)
	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, boom).Times(1)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	res := &resourceStub{location: testOrderURL}
	_, err := conn.Apply(context.Background(), http.MethodGet, res)

	assert.Equal(t, boom, err)
	assert.Nil(t, res.data)
}

func TestApplyMalformedResponse(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, nil, "<html>not json</html>")
	res := NewOrder(testOrderURL)
	res.Set("status", "checkout_incomplete")

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	_, err := conn.Apply(context.Background(), http.MethodGet, res)

	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "checkout_incomplete", res.Status())
}

func TestApplyRequiresTargetURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mock.NewMockTransport(ctrl)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = conn.Apply(context.Background(), http.MethodGet, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestApplyURLPrecedence(t *testing.T) {
	transport := &stubTransport{}
	for i := 0; i < 3; i++ {
		transport.addResponse(http.StatusOK, nil, "")
	}
	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret, WithBaseURL("https://base.example.com/orders"))

	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL}, WithURL("https://override.example.com"))
	require.NoError(t, err)
	_, err = conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})
	require.NoError(t, err)
	_, err = conn.Apply(context.Background(), http.MethodGet, &resourceStub{})
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", transport.requests[0].URL)
	assert.Equal(t, testOrderURL, transport.requests[1].URL)
	assert.Equal(t, "https://base.example.com/orders", transport.requests[2].URL)
}

func TestApplyCustomSuccessRangeAndLocationHeader(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusNoContent, nil, "")
	transport.addResponse(http.StatusOK, http.Header{"X-Order-Uri": {"/checkout/orders/XYZ"}}, "")

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret,
		WithSuccessRange(200, 200),
		WithLocationHeader("X-Order-Uri"),
	)

	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNoContent, statusErr.Code)
	assert.Equal(t, "HTTP Error", statusErr.Message)

	res := &resourceStub{location: testOrderURL}
	_, err = conn.Apply(context.Background(), http.MethodPost, res)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/checkout/orders/XYZ", res.location)
}

func TestApplyRedirectsAreErrorsByDefault(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusMovedPermanently, http.Header{"Location": {"https://new.example.com/orders/1"}}, "")

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusMovedPermanently, statusErr.Code)
	assert.Len(t, transport.requests, 1)
}

func TestApplyFollowsPermanentRedirect(t *testing.T) {
	const moved = "https://new.example.com/orders/1"
	digester := &fixedDigester{digest: testDigest}
	transport := &stubTransport{}
	transport.addResponse(http.StatusMovedPermanently, http.Header{"Location": {moved}}, "")
	transport.addResponse(http.StatusOK, nil, `{"id":"1"}`)

	conn := NewConnector(transport, digester, testSecret, WithFollowRedirects(true))
	res := &resourceStub{location: testOrderURL}
	_, err := conn.Apply(context.Background(), http.MethodGet, res)
	require.NoError(t, err)

	assert.Equal(t, moved, res.location)
	assert.Equal(t, map[string]any{"id": "1"}, res.data)
	require.Len(t, transport.requests, 2)
	assert.Equal(t, moved, transport.requests[1].URL)
	assert.Equal(t, []string{testSecret, testSecret}, digester.inputs)
}

func TestApplySeeOtherAfterPostKeepsLocation(t *testing.T) {
	digester := &fixedDigester{digest: testDigest}
	transport := &stubTransport{}
	transport.addResponse(http.StatusSeeOther, http.Header{"Location": {"/checkout/orders/ABC123/confirmation"}}, "")
	transport.addResponse(http.StatusOK, nil, `{"status":"created"}`)

	conn := NewConnector(transport, digester, testSecret, WithFollowRedirects(true))
	res := &resourceStub{location: testOrderURL}
	_, err := conn.Apply(context.Background(), http.MethodPost, res)
	require.NoError(t, err)

	assert.Equal(t, testOrderURL, res.location)
	assert.Equal(t, http.MethodGet, transport.requests[1].Method)
	assert.Equal(t, "https://checkout.example.com/checkout/orders/ABC123/confirmation", transport.requests[1].URL)
	assert.Equal(t, []string{"[]" + testSecret, testSecret}, digester.inputs)
}

func TestApplySeeOtherIgnoresLocationOnFinalGet(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusSeeOther, http.Header{"Location": {"/confirm"}}, "")
	transport.addResponse(http.StatusOK, http.Header{"Location": {"/somewhere/else"}}, `{"status":"created"}`)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret, WithFollowRedirects(true))
	res := &resourceStub{location: testOrderURL}
	_, err := conn.Apply(context.Background(), http.MethodPost, res)
	require.NoError(t, err)

	assert.Equal(t, testOrderURL, res.location)
	assert.Equal(t, map[string]any{"status": "created"}, res.data)
	require.Len(t, transport.requests, 2)
	assert.Equal(t, http.MethodGet, transport.requests[1].Method)
}

func TestApplyRedirectWithoutLocationIsStatusError(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusFound, nil, "")

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret, WithFollowRedirects(true))
	res := &resourceStub{location: testOrderURL}
	result, err := conn.Apply(context.Background(), http.MethodGet, res)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusFound, statusErr.Code)
	assert.Equal(t, "HTTP Error", statusErr.Message)
	assert.Nil(t, result)
	assert.Len(t, transport.requests, 1)
	assert.Equal(t, testOrderURL, res.location)
}

func TestApplyDetectsRedirectLoop(t *testing.T) {
	transport := &stubTransport{}
	transport.addResponse(http.StatusFound, http.Header{"Location": {"https://a.example.com"}}, "")
	transport.addResponse(http.StatusTemporaryRedirect, http.Header{"Location": {testOrderURL}}, "")

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret, WithFollowRedirects(true))
	res := &resourceStub{location: testOrderURL}
	_, err := conn.Apply(context.Background(), http.MethodGet, res)

	require.ErrorIs(t, err, ErrRedirectLoop)
	assert.Equal(t, testOrderURL, res.location)
}

func TestApplyWithMockResource(t *testing.T) {
	ctrl := gomock.NewController(t)
	res := mock.NewMockResource(ctrl)
	res.EXPECT().Location().Return(testOrderURL).AnyTimes()
	res.EXPECT().ContentType().Return(OrderContentType).AnyTimes()
	res.EXPECT().MarshalWire().Return([]byte(`{"a":1}`), nil).Times(1)
	res.EXPECT().UnmarshalWire([]byte(`{"a":2}`)).Return(nil).Times(1)
	res.EXPECT().SetLocation(testOrderURL + "/v2").Times(1)

	transport := &stubTransport{}
	transport.addResponse(http.StatusOK, http.Header{"Location": {testOrderURL + "/v2"}}, `{"a":2}`)

	conn := NewConnector(transport, &fixedDigester{digest: testDigest}, testSecret)
	_, err := conn.Apply(context.Background(), http.MethodPost, res)
	require.NoError(t, err)
	assert.Equal(t, OrderContentType, transport.requests[0].Header.Get("Content-Type"))
}

func TestApplyUninitializedConnector(t *testing.T) {
	var conn *Connector
	_, err := conn.Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})
	assert.Error(t, err)

	_, err = NewConnector(nil, nil, testSecret).Apply(context.Background(), http.MethodGet, &resourceStub{location: testOrderURL})
	assert.Error(t, err)
}

func TestStatusMessageDefault(t *testing.T) {
	assert.Equal(t, "HTTP Error", StatusMessage(418))
	assert.Equal(t, "Gateway timeout", StatusMessage(503))
}
