package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// OrderContentType is the media type of aggregated checkout orders.
const OrderContentType = "application/vnd.klarna.checkout.aggregated-order-v2+json"

// Order is a checkout order held as its decoded JSON document.
type Order struct {
	location string
	data     map[string]any
}

// NewOrder returns an order bound to location, which may be empty for orders
// that have not been created yet.
func NewOrder(location string) *Order {
	return &Order{location: strings.TrimSpace(location)}
}

func (o *Order) Location() string       { return o.location }
func (o *Order) SetLocation(uri string) { o.location = strings.TrimSpace(uri) }
func (o *Order) ContentType() string    { return OrderContentType }

// MarshalWire encodes the order document; an empty order encodes as {}.
func (o *Order) MarshalWire() ([]byte, error) {
	if o.data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.data)
}

// UnmarshalWire replaces the order document with payload.
func (o *Order) UnmarshalWire(payload []byte) error {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("decode order: %w", err)
	}
	if data == nil {
		return fmt.Errorf("decode order: payload is not an object")
	}
	o.data = data
	return nil
}

// Get returns a top-level field of the order.
func (o *Order) Get(key string) (any, bool) {
	v, ok := o.data[key]
	return v, ok
}

// Set assigns a top-level field of the order.
func (o *Order) Set(key string, value any) {
	if o.data == nil {
		o.data = make(map[string]any)
	}
	o.data[key] = value
}

// Data returns a shallow copy of the order document.
func (o *Order) Data() map[string]any {
	out := make(map[string]any, len(o.data))
	for k, v := range o.data {
		out[k] = v
	}
	return out
}

// ID returns the order id from the document, falling back to the last path
// segment of the location.
func (o *Order) ID() string {
	if id, ok := o.data["id"].(string); ok && id != "" {
		return id
	}
	if o.location == "" {
		return ""
	}
	return path.Base(strings.TrimRight(o.location, "/"))
}

// Status returns the order status field, if any.
func (o *Order) Status() string {
	s, _ := o.data["status"].(string)
	return s
}

// Snippet returns the gui.snippet HTML of the order, if any.
func (o *Order) Snippet() string {
	gui, ok := o.data["gui"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := gui["snippet"].(string)
	return s
}

// Create posts data to the connector's base URL. The created order's
// location is taken from the response.
func (o *Order) Create(ctx context.Context, c *Connector, data map[string]any) error {
	body, err := marshalData(data)
	if err != nil {
		return err
	}
	_, err = c.Apply(ctx, http.MethodPost, o, WithURL(c.BaseURL()), WithBody(body))
	return err
}

// Fetch reloads the order from its location.
func (o *Order) Fetch(ctx context.Context, c *Connector) error {
	if o.location == "" {
		return fmt.Errorf("%w: order has no location", ErrInvalidArgument)
	}
	_, err := c.Apply(ctx, http.MethodGet, o)
	return err
}

// Update posts data to the order's location and loads the returned document.
func (o *Order) Update(ctx context.Context, c *Connector, data map[string]any) error {
	if o.location == "" {
		return fmt.Errorf("%w: order has no location", ErrInvalidArgument)
	}
	body, err := marshalData(data)
	if err != nil {
		return err
	}
	_, err = c.Apply(ctx, http.MethodPost, o, WithBody(body))
	return err
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order data: %v", ErrInvalidArgument, err)
	}
	return body, nil
}
