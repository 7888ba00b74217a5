package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/padrelay/padrelay/axis"
	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/dispatch"
	"github.com/padrelay/padrelay/internal/configpaths"
	"github.com/padrelay/padrelay/internal/log"
	"github.com/padrelay/padrelay/internal/monitor"
	"github.com/padrelay/padrelay/internal/receiver"
	"github.com/padrelay/padrelay/session"
)

// VIIPERConfig configures the xbox360 backend.
type VIIPERConfig struct {
	Addr     string `help:"VIIPER API server address" default:"localhost:3242" env:"PADRELAY_VIIPER_ADDR"`
	Password string `help:"VIIPER API password (read from the local VIIPER key file when empty)" env:"PADRELAY_VIIPER_PASSWORD"`
	Bus      uint32 `help:"Virtual bus to attach to; 0 reuses the lowest bus or creates one" default:"0" env:"PADRELAY_VIIPER_BUS"`
}

// UInputConfig configures the uinput backend.
type UInputConfig struct {
	Path string `help:"uinput device node" default:"/dev/uinput" env:"PADRELAY_UINPUT_PATH"`
	Name string `help:"Product name of the virtual gamepad" default:"3DS Controller" env:"PADRELAY_UINPUT_NAME"`
}

// Run is the receive command: it creates the virtual controller and relays
// console datagrams to it until interrupted.
type Run struct {
	Debug           bool `help:"Enable verbose diagnostics (same as --log.level=debug)" env:"PADRELAY_DEBUG"`
	receiver.Config `embed:""`

	Backend        string        `help:"Virtual controller backend: auto, xbox360, uinput" enum:"auto,xbox360,uinput" default:"auto" env:"PADRELAY_BACKEND"`
	Throttle       time.Duration `help:"Minimum spacing between processed datagrams" default:"10ms" env:"PADRELAY_THROTTLE"`
	SessionTimeout time.Duration `help:"Forget a console after this much silence" default:"10s" env:"PADRELAY_SESSION_TIMEOUT"`
	Deadzone       int           `help:"Stick deadzone in raw console units" default:"20" env:"PADRELAY_DEADZONE"`

	VIIPER  VIIPERConfig         `embed:"" prefix:"viiper."`
	UInput  UInputConfig         `embed:"" prefix:"uinput."`
	Monitor monitor.ServerConfig `embed:"" prefix:"monitor."`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Serve(ctx, logger, rawLogger)
}

// Serve runs until ctx is cancelled. The returned error is a *device.SetupError
// when no controller backend could be created.
func (r *Run) Serve(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	pad, err := device.Open(ctx, r.Backend, r.deviceOptions(logger))
	if err != nil {
		var se *device.SetupError
		if errors.As(err, &se) {
			logger.Error("Failed to initialize virtual controller", "backend", se.Backend, "error", se.Err, "hint", se.Hint)
		}
		return err
	}
	closePad := func() {
		if err := pad.Close(); err != nil {
			logger.Warn("Failed to close virtual controller", "error", err)
		}
	}

	conn, err := receiver.Listen(r.Config)
	if err != nil {
		closePad()
		return fmt.Errorf("listen %s: %w", r.Listen, err)
	}
	defer func() {
		closePad()
		_ = conn.Close()
	}()

	sessions := session.NewRegistry(r.SessionTimeout)
	mapper := axis.Default
	mapper.Deadzone = r.Deadzone
	d := dispatch.New(pad, sessions, dispatch.Config{Throttle: r.Throttle, Mapper: mapper}, logger, rawLogger)
	loop := receiver.New(conn, d, r.Config, logger)
	d.SetReplier(loop)

	if r.Monitor.Addr != "" {
		stopMonitor, err := r.startMonitor(ctx, d, sessions, logger)
		if err != nil {
			return err
		}
		defer stopMonitor()
	}

	r.banner(logger, loop.Addr(), pad.Name())

	err = loop.Run(ctx)
	logger.Info("Shutting down")
	return err
}

func (r *Run) deviceOptions(logger *slog.Logger) *device.Options {
	o := &device.Options{
		Name:   r.UInput.Name,
		Logger: logger,
		VIIPER: device.VIIPEROptions{
			Addr:     r.VIIPER.Addr,
			Password: r.VIIPER.Password,
			BusID:    r.VIIPER.Bus,
		},
		UInput: device.UInputOptions{Path: r.UInput.Path},
	}
	if o.VIIPER.Password == "" && isLocal(o.VIIPER.Addr) {
		if pwd, err := configpaths.ReadVIIPERPassword(); err == nil && pwd != "" {
			logger.Debug("Using password from local VIIPER key file")
			o.VIIPER.Password = pwd
		}
	}
	return o
}

func (r *Run) startMonitor(ctx context.Context, d *dispatch.Dispatcher, sessions *session.Registry, logger *slog.Logger) (func(), error) {
	hub := monitor.NewHub(logger)
	d.SetObserver(hub)
	srv := monitor.New(r.Monitor, hub, sessions, logger)

	hubCtx, cancelHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancelHub()
		return nil, fmt.Errorf("monitor: %w", err)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		cancelHub()
	}, nil
}

func (r *Run) banner(logger *slog.Logger, addr net.Addr, backend string) {
	logger.Info("3DS controller relay ready", "listen", addr.String(), "backend", backend, "os", runtime.GOOS)
	logger.Info("Point the 3DS sender at this machine's IP, port " + portOf(addr))
	if !r.Debug {
		logger.Info("Run with --debug for per-datagram diagnostics")
	}
}

func portOf(addr net.Addr) string {
	if _, port, err := net.SplitHostPort(addr.String()); err == nil {
		return port
	}
	return addr.String()
}

func isLocal(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" || host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
