package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger dumps datagrams exchanged with consoles.
type RawLogger interface {
	// Log records data; in=true means console->host, in=false host->console.
	Log(in bool, peer string, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer yields a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log emits a single line with timestamp, direction, peer and hex dump.
func (r *rawLogger) Log(in bool, peer string, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "S->C"
	if in {
		dir = "C->S"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %s datagram: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		peer,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}

