package session_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padrelay/padrelay/session"
)

var (
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	console = netip.MustParseAddr("192.168.1.50")
	other   = netip.MustParseAddr("192.168.1.51")
)

func TestTouchCreatesOnce(t *testing.T) {
	r := session.NewRegistry(0)
	assert.Equal(t, session.DefaultTimeout, r.Timeout)

	s, created := r.Touch(console, t0)
	require.True(t, created)
	assert.Equal(t, "3DS at 192.168.1.50", s.Name)
	assert.Equal(t, t0, s.LastSeen)

	again, created := r.Touch(console, t0.Add(time.Second))
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, t0.Add(time.Second), again.LastSeen)
	assert.Equal(t, 1, r.Len())
}

func TestTouchIgnoresIPv4MappedForm(t *testing.T) {
	r := session.NewRegistry(0)
	r.Touch(console, t0)
	_, created := r.Touch(netip.MustParseAddr("::ffff:192.168.1.50"), t0)
	assert.False(t, created)
	assert.Equal(t, 1, r.Len())
}

func TestSweep(t *testing.T) {
	type testCase struct {
		name      string
		touches   []time.Duration
		sweepAt   time.Duration
		wantEvict bool
	}

	cases := []testCase{
		{name: "silent for 11s", touches: []time.Duration{0}, sweepAt: 11 * time.Second, wantEvict: true},
		{name: "exactly at timeout", touches: []time.Duration{0}, sweepAt: 10 * time.Second, wantEvict: false},
		{name: "packet every 5s", touches: []time.Duration{0, 5 * time.Second, 10 * time.Second, 15 * time.Second}, sweepAt: 19 * time.Second, wantEvict: false},
		{name: "recent packet", touches: []time.Duration{0}, sweepAt: 2 * time.Second, wantEvict: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := session.NewRegistry(10 * time.Second)
			for _, d := range tc.touches {
				r.Touch(console, t0.Add(d))
			}
			gone := r.Sweep(t0.Add(tc.sweepAt))
			if tc.wantEvict {
				require.Len(t, gone, 1)
				assert.Equal(t, console, gone[0].Addr)
				assert.Zero(t, r.Len())
			} else {
				assert.Empty(t, gone)
				assert.Equal(t, 1, r.Len())
			}
		})
	}
}

func TestSweepKeepsActiveConsoles(t *testing.T) {
	r := session.NewRegistry(10 * time.Second)
	r.Touch(console, t0)
	r.Touch(other, t0.Add(9*time.Second))

	gone := r.Sweep(t0.Add(12 * time.Second))
	require.Len(t, gone, 1)
	assert.Equal(t, console, gone[0].Addr)

	_, ok := r.Get(other)
	assert.True(t, ok)
	_, ok = r.Get(console)
	assert.False(t, ok)

	// a returning console starts over
	s, created := r.Touch(console, t0.Add(13*time.Second))
	assert.True(t, created)
	assert.Zero(t, s.Prev)
}

func TestSnapshotSorted(t *testing.T) {
	r := session.NewRegistry(0)
	r.Touch(other, t0)
	r.Touch(console, t0)
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, console, snap[0].Addr)
	assert.Equal(t, other, snap[1].Addr)
}

func TestAppliedTracksButtonState(t *testing.T) {
	r := session.NewRegistry(0)
	a, _ := r.Touch(console, t0)
	b, _ := r.Touch(other, t0)

	r.Applied(a, 0x1)
	r.Applied(a, 0x3)

	got, ok := r.Get(console)
	require.True(t, ok)
	assert.Equal(t, uint32(0x3), got.Prev)
	assert.Equal(t, uint64(2), got.Frames)
	assert.Zero(t, b.Prev, "button state is per console")
	assert.Zero(t, b.Frames)
}
