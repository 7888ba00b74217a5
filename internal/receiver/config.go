package receiver

import "time"

// Config represents the receive loop settings of the run command.
type Config struct {
	Listen        string        `help:"UDP listen address for console datagrams" default:":8888" env:"PADRELAY_LISTEN"`
	SweepInterval time.Duration `help:"How often idle consoles are checked for timeout" default:"2s" env:"PADRELAY_SWEEP_INTERVAL"`
	PollInterval  time.Duration `hidden:"" default:"1ms"`
	ResetPause    time.Duration `hidden:"" default:"1s"`
}
