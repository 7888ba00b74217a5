package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Options carries backend settings. Each backend reads only its own section.
type Options struct {
	// Name is the product name presented to the host, where the backend supports it.
	Name   string
	Logger *slog.Logger

	VIIPER VIIPEROptions
	UInput UInputOptions
}

// VIIPEROptions configures the xbox360 backend.
type VIIPEROptions struct {
	Addr     string
	Password string
	// BusID selects the virtual bus to attach to; 0 reuses the lowest existing bus
	// or creates one.
	BusID uint32
}

// UInputOptions configures the uinput backend.
type UInputOptions struct {
	Path string
}

// Factory opens a backend. Implementations return a *SetupError on failure.
type Factory func(ctx context.Context, o *Options) (Controller, error)

// Auto asks Open to pick the backend that fits the host OS.
const Auto = "auto"

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register makes a backend available to Open. Called from backend package init().
// The name is case-insensitive.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Backends lists registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultBackend returns the backend Auto resolves to on goos.
func DefaultBackend(goos string) string {
	if goos == "linux" {
		return "uinput"
	}
	return "xbox360"
}

// Open creates the named backend; name Auto probes the host.
// Any failure is returned as a *SetupError.
func Open(ctx context.Context, name string, o *Options) (Controller, error) {
	if o == nil {
		o = &Options{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	name = strings.ToLower(name)
	if name == "" || name == Auto {
		name = DefaultBackend(runtime.GOOS)
		o.Logger.Debug("backend auto-selected", "backend", name, "os", runtime.GOOS)
	}

	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &SetupError{
			Backend: name,
			Err:     fmt.Errorf("unknown backend"),
			Hint:    "available: " + strings.Join(Backends(), ", "),
		}
	}

	c, err := f(ctx, o)
	if err != nil {
		var se *SetupError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SetupError{Backend: name, Err: err}
	}
	return c, nil
}
