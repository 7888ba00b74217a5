package apiclient

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	apitypes "github.com/padrelay/padrelay/apitypes"
)

// ErrStreamClosed is returned by writes on a closed DeviceStream.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the long-lived input channel of one device.
type DeviceStream struct {
	conn  net.Conn
	BusID uint32
	DevID string

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to the stream channel of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// AddDeviceAndConnect is DeviceAdd followed by OpenStream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string) (*DeviceStream, *apitypes.Device, error) {
	dev, err := c.DeviceAdd(ctx, busID, devType)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.OpenStream(ctx, busID, dev.DevId)
	if err != nil {
		return nil, dev, err
	}
	return s, dev, nil
}

// Write sends raw device input.
func (s *DeviceStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}
	return s.conn.Write(p)
}

// Read receives device output such as rumble reports.
func (s *DeviceStream) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// WriteBinary marshals v and sends it in a single write.
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.Write(data)
	return err
}

// SetWriteDeadline bounds the next writes.
func (s *DeviceStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the connection. It is safe to call more than once.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
