// Package config defines the CLI structure and configuration for padrelay.
package config

import "github.com/padrelay/padrelay/internal/cmd"

type Log struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"PADRELAY_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"PADRELAY_LOG_FILE"`
	RawFile string `help:"Write a hex dump of every datagram to this file" env:"PADRELAY_LOG_RAW_FILE"`
}

// CLI is the root command structure for Kong CLI parsing.
type CLI struct {
	Log    Log    `embed:"" prefix:"log."`
	Config string `help:"Path to a JSON, YAML or TOML config file" type:"path" env:"PADRELAY_CONFIG"`

	Run       cmd.Run           `cmd:"" default:"withargs" help:"Receive 3DS controller datagrams and drive a virtual gamepad"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
