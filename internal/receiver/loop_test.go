package receiver_test

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/dispatch"
	"github.com/padrelay/padrelay/internal/receiver"
	"github.com/padrelay/padrelay/session"
)

type nopPad struct {
	mu      sync.Mutex
	pressed []device.Button
}

func (p *nopPad) Name() string { return "nop" }
func (p *nopPad) Press(b device.Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = append(p.pressed, b)
	return nil
}
func (p *nopPad) Release(device.Button) error                { return nil }
func (p *nopPad) SetTrigger(device.Trigger, uint8) error     { return nil }
func (p *nopPad) SetDPad(device.DPad) error                  { return nil }
func (p *nopPad) SetSticks(left, right device.Stick) error   { return nil }
func (p *nopPad) Commit() error                              { return nil }
func (p *nopPad) Close() error                               { return nil }
func (p *nopPad) presses() []device.Button {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]device.Button(nil), p.pressed...)
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := receiver.Listen(receiver.Config{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func start(t *testing.T, l *receiver.Loop) (cancel func(), done chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done = make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return cancel, done
}

func TestLoopPingPongAndFrames(t *testing.T) {
	conn := listen(t)
	pad := &nopPad{}
	sessions := session.NewRegistry(0)
	d := dispatch.New(pad, sessions, dispatch.Config{Throttle: dispatch.DefaultThrottle}, nil, nil)
	l := receiver.New(conn, d, receiver.Config{}, nil)
	d.SetReplier(l)

	cancel, done := start(t, l)
	defer cancel()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping\x00"))
	require.NoError(t, err)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))

	time.Sleep(20 * time.Millisecond)
	frameA := make([]byte, 16)
	frameA[0] = 0x01
	_, err = client.Write(frameA)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(pad.presses()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []device.Button{device.ButtonA}, pad.presses())
	assert.Equal(t, 1, sessions.Len())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

type sweepCounter struct {
	mu     sync.Mutex
	sweeps int
}

func (s *sweepCounter) Handle([]byte, netip.AddrPort, time.Time) dispatch.Outcome {
	return dispatch.OutcomeApplied
}
func (s *sweepCounter) Sweep(time.Time) {
	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()
}
func (s *sweepCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

func TestLoopSweepsWhileIdle(t *testing.T) {
	conn := listen(t)
	h := &sweepCounter{}
	l := receiver.New(conn, h, receiver.Config{SweepInterval: 10 * time.Millisecond}, nil)

	cancel, done := start(t, l)
	defer cancel()

	assert.Eventually(t, func() bool { return h.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestLoopStopsWhenSocketCloses(t *testing.T) {
	conn := listen(t)
	l := receiver.New(conn, &sweepCounter{}, receiver.Config{}, nil)

	_, done := start(t, l)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after close")
	}
}
