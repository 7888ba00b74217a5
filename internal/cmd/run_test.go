package cmd_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/internal/cmd"
	"github.com/padrelay/padrelay/internal/log"
	"github.com/padrelay/padrelay/internal/receiver"
)

type testPad struct {
	mu      sync.Mutex
	commits int
	closed  bool
}

func (p *testPad) Name() string                           { return "runtest" }
func (p *testPad) Press(device.Button) error              { return nil }
func (p *testPad) Release(device.Button) error            { return nil }
func (p *testPad) SetTrigger(device.Trigger, uint8) error { return nil }
func (p *testPad) SetDPad(device.DPad) error              { return nil }
func (p *testPad) SetSticks(device.Stick, device.Stick) error {
	return nil
}
func (p *testPad) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commits++
	return nil
}
func (p *testPad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
func (p *testPad) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var (
	registerOnce sync.Once
	lastPad      *testPad
	lastPadMu    sync.Mutex
)

func registerTestBackend() {
	registerOnce.Do(func() {
		device.Register("runtest", func(ctx context.Context, o *device.Options) (device.Controller, error) {
			p := &testPad{}
			lastPadMu.Lock()
			lastPad = p
			lastPadMu.Unlock()
			return p, nil
		})
		device.Register("runtest-broken", func(ctx context.Context, o *device.Options) (device.Controller, error) {
			return nil, &device.SetupError{Backend: "runtest-broken", Err: errors.New("no driver"), Hint: "load it"}
		})
	})
}

func freeUDPAddr(t *testing.T) string {
	t.Helper()
	c, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := c.LocalAddr().String()
	require.NoError(t, c.Close())
	return addr
}

func testRun(listen, backend string) *cmd.Run {
	return &cmd.Run{
		Config: receiver.Config{
			Listen:        listen,
			SweepInterval: time.Second,
			PollInterval:  time.Millisecond,
			ResetPause:    10 * time.Millisecond,
		},
		Backend:        backend,
		Throttle:       0,
		SessionTimeout: 10 * time.Second,
		Deadzone:       20,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServeAnswersPingAndClosesPad(t *testing.T) {
	registerTestBackend()
	addr := freeUDPAddr(t)
	r := testRun(addr, "runtest")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, discardLogger(), log.NewRaw(nil)) }()

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer client.Close()

	buf := make([]byte, 16)
	var n int
	require.Eventually(t, func() bool {
		if _, err := client.Write([]byte("ping\x00")); err != nil {
			return false
		}
		_ = client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err = client.Read(buf)
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "pong", string(buf[:n]))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	lastPadMu.Lock()
	p := lastPad
	lastPadMu.Unlock()
	require.NotNil(t, p)
	assert.True(t, p.isClosed())
}

func TestServeReportsSetupError(t *testing.T) {
	registerTestBackend()
	type testCase struct {
		name    string
		backend string
	}
	cases := []testCase{
		{"backend fails", "runtest-broken"},
		{"unknown backend", "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testRun("127.0.0.1:0", tc.backend)
			err := r.Serve(context.Background(), discardLogger(), log.NewRaw(nil))
			var se *device.SetupError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.backend, se.Backend)
		})
	}
}

func TestServeClosesPadWhenListenFails(t *testing.T) {
	registerTestBackend()
	busy, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	r := testRun(busy.LocalAddr().String(), "runtest")
	err = r.Serve(context.Background(), discardLogger(), log.NewRaw(nil))
	require.Error(t, err)

	lastPadMu.Lock()
	p := lastPad
	lastPadMu.Unlock()
	require.NotNil(t, p)
	assert.True(t, p.isClosed())
}
