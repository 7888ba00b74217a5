package apiclient_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padrelay/padrelay/apiclient"
)

func TestOpenStream_NotSupportedWithMockTransport(t *testing.T) {
	c := testClient(map[string]string{}, nil, nil)
	_, err := c.OpenStream(context.Background(), 1, "1")
	assert.ErrorContains(t, err, "not supported with mock transport")
}

type fixedMarshaler []byte

func (f fixedMarshaler) MarshalBinary() ([]byte, error) { return f, nil }

func TestStreamWrites(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	type result struct {
		path string
		data []byte
	}
	done := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		r := bufio.NewReader(conn)
		path, _ := r.ReadString('\x00')
		data := make([]byte, 6)
		_, _ = io.ReadFull(r, data)
		done <- result{path: path, data: data}
	}()

	c := apiclient.New(ln.Addr().String())
	s, err := c.OpenStream(context.Background(), 3, "1")
	require.NoError(t, err)

	_, err = s.Write([]byte{1, 2, 3})
	assert.NoError(t, err)
	assert.NoError(t, s.WriteBinary(fixedMarshaler{4, 5, 6}))

	res := <-done
	assert.Equal(t, "bus/3/1\x00", res.path)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, res.data)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	_, err = s.Write([]byte{7})
	assert.ErrorIs(t, err, apiclient.ErrStreamClosed)
}
