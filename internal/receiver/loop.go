// Package receiver runs the UDP receive loop that feeds the dispatcher.
package receiver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/padrelay/padrelay/dispatch"
)

// maxDatagram bounds a single read; console frames are 16 bytes.
const maxDatagram = 1024

// Handler consumes datagrams. *dispatch.Dispatcher implements it.
type Handler interface {
	Handle(payload []byte, from netip.AddrPort, now time.Time) dispatch.Outcome
	Sweep(now time.Time)
}

// Loop reads datagrams one at a time and hands them to a Handler. All
// dispatcher state is touched only from Run's goroutine.
type Loop struct {
	conn    *net.UDPConn
	handler Handler
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// Listen opens the UDP socket for config.Listen.
func Listen(config Config) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", config.Listen)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", addr)
}

// New returns a Loop reading from conn. Zero durations in config take the
// command defaults.
func New(conn *net.UDPConn, handler Handler, config Config, logger *slog.Logger) *Loop {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 2 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Millisecond
	}
	if config.ResetPause <= 0 {
		config.ResetPause = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{conn: conn, handler: handler, config: config, logger: logger, now: time.Now}
}

// Reply sends payload to a console. It satisfies dispatch.Replier.
func (l *Loop) Reply(payload []byte, to netip.AddrPort) error {
	_, err := l.conn.WriteToUDPAddrPort(payload, to)
	return err
}

// Addr returns the bound local address.
func (l *Loop) Addr() net.Addr { return l.conn.LocalAddr() }

// Run processes datagrams until ctx is done or the socket is closed. It does
// not close the socket.
func (l *Loop) Run(ctx context.Context) error {
	buf := make([]byte, maxDatagram)
	lastSweep := l.now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = l.conn.SetReadDeadline(time.Now().Add(l.config.PollInterval))
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		now := l.now()

		if now.Sub(lastSweep) >= l.config.SweepInterval {
			l.handler.Sweep(now)
			lastSweep = now
		}

		if err != nil {
			switch {
			case isTimeout(err):
				sleep(ctx, l.config.PollInterval)
			case errors.Is(err, net.ErrClosed):
				return nil
			case isConnReset(err):
				l.logger.Debug("Connection reset, pausing", "error", err, "pause", l.config.ResetPause)
				sleep(ctx, l.config.ResetPause)
			default:
				l.logger.Debug("Receive error", "error", err)
				sleep(ctx, l.config.PollInterval)
			}
			continue
		}

		l.handler.Handle(buf[:n], from, now)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isConnReset matches the ICMP port-unreachable echo some stacks report on a
// UDP socket after a reply could not be delivered.
func isConnReset(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "forcibly closed")
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
