package main

import (
	"errors"
	"os"
	"strings"

	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/internal/config"
	"github.com/padrelay/padrelay/internal/configpaths"
	"github.com/padrelay/padrelay/internal/log"

	_ "github.com/padrelay/padrelay/internal/registry" // Register all controller backends

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {

	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("padrelay"),
		kong.Description("Use a Nintendo 3DS as a wireless gamepad"),
		kong.UsageOnError(),
		// Load configuration from JSON/YAML/TOML in priority order; flags/env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	level := cli.Log.Level
	if cli.Run.Debug && !strings.EqualFold(level, "trace") {
		level = "debug"
	}

	logger, closeFiles, err := log.SetupLogger(level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	var rawLogger log.RawLogger
	if cli.Log.RawFile != "" {
		f, err := os.OpenFile(cli.Log.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cli.Log.RawFile, "error", err)
			rawLogger = log.NewRaw(nil)
		} else {
			rawLogger = log.NewRaw(f)
			closeFiles = append(closeFiles, f)
		}
	} else if strings.EqualFold(level, "trace") {
		rawLogger = log.NewRaw(os.Stdout)
	} else {
		rawLogger = log.NewRaw(nil)
	}

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	var se *device.SetupError
	if errors.As(err, &se) {
		// Already reported with its hint by the run command.
		for _, c := range closeFiles {
			_ = c.Close()
		}
		os.Exit(1)
	}
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("PADRELAY_CONFIG"); v != "" {
		return v
	}
	return ""
}
