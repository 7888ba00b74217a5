package xbox360

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/padrelay/padrelay/apiclient"
	"github.com/padrelay/padrelay/device"
)

const (
	// DefaultAddr is where a local VIIPER server listens by default.
	DefaultAddr = "localhost:3242"

	setupTimeout = 5 * time.Second
	maxBusTries  = 100
)

func init() {
	device.Register(BackendName, Open)
}

// Open connects to the VIIPER server, attaches an xbox360 device and returns
// a Pad streaming to it.
func Open(ctx context.Context, o *device.Options) (device.Controller, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := o.VIIPER.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	api := apiclient.NewWithConfig(addr, &apiclient.Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Password:     o.VIIPER.Password,
	})

	ping, err := api.Ping(ctx)
	if err != nil {
		return nil, &device.SetupError{
			Backend: BackendName,
			Err:     err,
			Hint:    fmt.Sprintf("is a VIIPER server running at %s?", addr),
		}
	}
	logger.Debug("VIIPER server reachable", "addr", addr, "server", ping.Server, "version", ping.Version)

	busID, createdBus, err := selectBus(ctx, api, o.VIIPER.BusID)
	if err != nil {
		return nil, &device.SetupError{Backend: BackendName, Err: err}
	}

	stream, dev, err := api.AddDeviceAndConnect(ctx, busID, DeviceType)
	if err != nil {
		if dev != nil {
			_, _ = api.DeviceRemove(context.Background(), busID, dev.DevId)
		}
		if createdBus {
			_, _ = api.BusRemove(context.Background(), busID)
		}
		return nil, &device.SetupError{Backend: BackendName, Err: err}
	}
	logger.Info("Virtual Xbox 360 controller attached", "bus", busID, "device", dev.DevId, "created_bus", createdBus)

	go drainOutput(stream, logger)

	cleanup := func() error {
		errs := []error{stream.Close()}
		cctx, ccancel := context.WithTimeout(context.Background(), setupTimeout)
		defer ccancel()
		if _, err := api.DeviceRemove(cctx, busID, dev.DevId); err != nil {
			errs = append(errs, fmt.Errorf("remove device %s: %w", dev.DevId, err))
		}
		if createdBus {
			if _, err := api.BusRemove(cctx, busID); err != nil {
				errs = append(errs, fmt.Errorf("remove bus %d: %w", busID, err))
			}
		}
		return errors.Join(errs...)
	}

	pad := NewPad(stream, cleanup)
	if err := pad.Commit(); err != nil {
		logger.Warn("failed to reset controller", "error", err)
	}
	return pad, nil
}

// selectBus returns want if set, else the lowest existing bus, else a newly
// created one.
func selectBus(ctx context.Context, api *apiclient.Client, want uint32) (uint32, bool, error) {
	if want != 0 {
		return want, false, nil
	}
	buses, err := api.BusList(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list buses: %w", err)
	}
	if len(buses.Buses) > 0 {
		return slices.Min(buses.Buses), false, nil
	}
	var createErr error
	for try := uint32(1); try <= maxBusTries; try++ {
		r, err := api.BusCreate(ctx, try)
		if err == nil {
			return r.BusID, true, nil
		}
		createErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, false, fmt.Errorf("create bus: %w", createErr)
}

// drainOutput consumes rumble reports so the server never blocks on them.
func drainOutput(r io.Reader, logger *slog.Logger) {
	buf := make([]byte, 2)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		logger.Debug("Rumble", "left", buf[0], "right", buf[1])
	}
}
