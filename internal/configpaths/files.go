package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// VIIPERKeyFileName is the file a local VIIPER server keeps its API password in.
const VIIPERKeyFileName = "viiper.key.txt"

// DefaultConfigDir returns the platform-specific configuration directory for padrelay.
func DefaultConfigDir() (string, error) {
	return configDir("padrelay", "padrelay")
}

// VIIPERConfigDir returns the configuration directory of a local VIIPER server.
func VIIPERConfigDir() (string, error) {
	return configDir("VIIPER", "github.com/Alia5/viiper")
}

func configDir(windowsName, unixName string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, windowsName), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, unixName), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", unixName), nil
		}
		return "", errors.New("HOME not set")
	}
}

// ReadVIIPERPassword returns the API password of a VIIPER server running on
// this machine, if its key file exists.
func ReadVIIPERPassword() (string, error) {
	dir, err := VIIPERConfigDir()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(filepath.Join(dir, VIIPERKeyFileName))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// DefaultConfigPath returns the default config file path for the given format using base name "config".
func DefaultConfigPath(format string) (string, error) {
	return DefaultNamedConfigPath("config", format)
}

// DefaultNamedConfigPath returns the default config file path for the given format and base name (e.g., "run").
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	switch format {
	case "yaml", "yml":
		ext = "yaml"
	case "toml":
		ext = "toml"
	}
	return filepath.Join(dir, baseName+"."+ext), nil
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0o755)
}

// ConfigCandidatePaths builds candidate paths for config files per format.
// If userPath is provided, it is prioritized and routed to the matching loader by extension.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }
	addBase := func(dir, base string) {
		add(&jsonPaths, filepath.Join(dir, base+".json"))
		add(&yamlPaths, filepath.Join(dir, base+".yaml"))
		add(&yamlPaths, filepath.Join(dir, base+".yml"))
		add(&tomlPaths, filepath.Join(dir, base+".toml"))
	}

	if userPath != "" {
		switch ext := filepath.Ext(userPath); ext {
		case ".json":
			add(&jsonPaths, userPath)
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	// Working directory candidates
	wd, _ := os.Getwd()
	for _, base := range []string{"padrelay", "config", "run"} {
		addBase(wd, base)
	}

	// Config home
	if dir, err := DefaultConfigDir(); err == nil {
		for _, base := range []string{"config", "run"} {
			addBase(dir, base)
		}
	}

	// System-wide (unix)
	if runtime.GOOS != "windows" {
		for _, base := range []string{"config", "run"} {
			addBase("/etc/padrelay", base)
		}
	}

	return
}
