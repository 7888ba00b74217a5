package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/padrelay/padrelay/internal/log"
)

func TestParseLevel(t *testing.T) {
	type testCase struct {
		in   string
		want slog.Level
	}

	cases := []testCase{
		{"trace", log.LevelTrace},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, log.ParseLevel(tc.in))
		})
	}
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(log.NewConsoleHandler(&buf, slog.LevelDebug, false)).With("addr", "10.0.0.2")

	logger.Info("3DS at 10.0.0.2 connected", "n", 1)
	logger.Log(context.Background(), log.LevelTrace, "hidden")

	out := buf.String()
	assert.Contains(t, out, " INFO 3DS at 10.0.0.2 connected addr=10.0.0.2 n=1\n")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\033[", "no escapes without a terminal")
}

func TestConsoleHandlerColorAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(log.NewConsoleHandler(&buf, log.LevelTrace, true))
	logger.Log(context.Background(), log.LevelTrace, "raw")
	assert.Contains(t, buf.String(), "TRACE")
	assert.Contains(t, buf.String(), "\033[35m")
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	h := log.NewMultiHandler(
		log.NewConsoleHandler(&info, slog.LevelInfo, false),
		log.NewConsoleHandler(&debug, slog.LevelDebug, false),
	)
	logger := slog.New(h)

	logger.Debug("detail")
	logger.Info("summary")

	assert.Equal(t, 1, strings.Count(info.String(), "\n"))
	assert.Equal(t, 2, strings.Count(debug.String(), "\n"))
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), log.LevelTrace))
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	raw := log.NewRaw(&buf)

	raw.Log(true, "192.168.1.50:40000", []byte{0x01, 0x00, 0xab})
	raw.Log(false, "192.168.1.50:40000", []byte("pong"))
	raw.Log(true, "x", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "C->S 192.168.1.50:40000 datagram: 3 bytes, hex: 01 00 ab")
		assert.Contains(t, lines[1], "S->C 192.168.1.50:40000 datagram: 4 bytes, hex: 70 6f 6e 67")
	}

	assert.NotPanics(t, func() { log.NewRaw(nil).Log(true, "x", []byte{1}) })
}
