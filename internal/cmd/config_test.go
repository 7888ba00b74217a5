package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/padrelay/padrelay/internal/cmd"
)

func TestConfigInitJSON(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	c := &cmd.ConfigInit{Command: "run", Format: "json", Output: dest}
	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, ":8888", got["listen"])
	assert.Equal(t, "2s", got["sweep_interval"])
	assert.Equal(t, "auto", got["backend"])
	assert.Equal(t, "10ms", got["throttle"])
	assert.Equal(t, "10s", got["session_timeout"])
	assert.Equal(t, float64(20), got["deadzone"])
	assert.Equal(t, false, got["debug"])
	assert.NotContains(t, got, "poll_interval")
	assert.NotContains(t, got, "reset_pause")

	viiper, ok := got["viiper"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "localhost:3242", viiper["addr"])
	assert.Equal(t, float64(0), viiper["bus"])

	uinput, ok := got["uinput"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/dev/uinput", uinput["path"])
	assert.Equal(t, "3DS Controller", uinput["name"])

	assert.Contains(t, got, "monitor")
}

func TestConfigInitYAMLAndForce(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "run.yaml")
	c := &cmd.ConfigInit{Command: "run", Format: "yml", Output: dest}
	require.NoError(t, c.Run())

	err := c.Run()
	assert.ErrorContains(t, err, "--force")

	c.Force = true
	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, ":8888", got["listen"])
}

func TestConfigInitRejectsUnknown(t *testing.T) {
	type testCase struct {
		name    string
		command string
		format  string
	}
	cases := []testCase{
		{"unknown command", "server", "json"},
		{"unknown format", "run", "ini"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &cmd.ConfigInit{Command: tc.command, Format: tc.format, Output: filepath.Join(t.TempDir(), "x")}
			assert.Error(t, c.Run())
		})
	}
}
