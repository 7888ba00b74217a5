package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apitypes "github.com/padrelay/padrelay/apitypes"
)

// Client wraps a Transport with typed calls.
type Client struct{ transport *Transport }

// New returns a client for the API server at addr.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithConfig returns a client with custom timeouts or password.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport wraps an existing transport, typically a mock.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the server identity and version.
func (c *Client) Ping(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// BusList returns the active virtual bus numbers.
func (c *Client) BusList(ctx context.Context) (*apitypes.BusListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusListResponse](raw)
}

// BusCreate creates bus busID.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/create", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusCreateResponse](raw)
}

// BusRemove removes bus busID together with its devices.
func (c *Client) BusRemove(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/remove", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusRemoveResponse](raw)
}

// DeviceAdd attaches a device of devType (e.g. "xbox360") to busID.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string) (*apitypes.Device, error) {
	req := apitypes.DeviceCreateRequest{Type: &devType}
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/add", req, map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Device](raw)
}

// DeviceRemove detaches device devID from busID.
func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/remove", devID, map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DeviceRemoveResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
