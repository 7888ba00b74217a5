// Package apiclient talks to a VIIPER server, which exposes virtual USB controllers
// to the host through USB-IP.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// Config controls dialing, timeouts and authentication.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Password enables the encrypted handshake when non-empty.
	Password string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Responder produces canned responses for a mock Transport.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport implements the VIIPER management protocol.
// Request: `<path>[ SP <payload>]\x00`. Response: one JSON document (optionally
// newline terminated), after which the server closes the connection.
type Transport struct {
	addr string
	cfg  Config
	mock Responder
}

// NewTransport creates a transport with default timeouts and no password.
func NewTransport(addr string) *Transport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithConfig creates a transport; a nil cfg means defaults.
func NewTransportWithConfig(addr string, cfg *Config) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport returns a transport that never touches the network.
func NewMockTransport(r Responder) *Transport {
	return &Transport{addr: "mock", cfg: defaultConfig(), mock: r}
}

// Addr returns the server address.
func (t *Transport) Addr() string { return t.addr }

// Do is DoCtx with a background context.
func (t *Transport) Do(path string, payload any, pathParams map[string]string) (string, error) {
	return t.DoCtx(context.Background(), path, payload, pathParams)
}

// DoCtx sends one request and returns the response without its trailing newline.
// Payload: []byte and string are sent verbatim, nil sends nothing, anything else
// is JSON encoded.
func (t *Transport) DoCtx(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}

	line := []byte(fillPath(path, pathParams))
	body, err := toPayloadBytes(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	if len(body) > 0 {
		line = append(append(line, ' '), body...)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(append(line, '\x00')); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// dial connects and, if a password is configured, authenticates.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	secure, err := authenticate(conn, t.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return secure, nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func toPayloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(v)
	}
}
