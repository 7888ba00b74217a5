package uinput_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/device/uinput"
)

// recorder keeps every Write as a separate batch.
type recorder struct {
	batches [][]uinput.Event
	err     error
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.batches = append(r.batches, uinput.DecodeEvents(p))
	return len(p), nil
}

func (r *recorder) last(t *testing.T) []uinput.Event {
	t.Helper()
	require.NotEmpty(t, r.batches)
	return r.batches[len(r.batches)-1]
}

func abs(code uint16, v int32) uinput.Event {
	return uinput.Event{Type: uinput.EvAbs, Code: code, Value: v}
}

func key(code uint16, v int32) uinput.Event {
	return uinput.Event{Type: uinput.EvKey, Code: code, Value: v}
}

var syn = uinput.Event{Type: uinput.EvSyn, Code: uinput.SynReport}

func TestEventEncoding(t *testing.T) {
	e := uinput.Event{Type: uinput.EvAbs, Code: uinput.AbsHat0Y, Value: -1}
	b := uinput.AppendEvent(nil, time.Unix(10, 5000), e)
	assert.Len(t, b, uinput.EventSize)
	assert.Equal(t, []uinput.Event{e}, uinput.DecodeEvents(b))

	b = uinput.AppendEvent(b, time.Now(), syn)
	assert.Equal(t, []uinput.Event{e, syn}, uinput.DecodeEvents(b))
	assert.Empty(t, uinput.DecodeEvents(b[:uinput.EventSize-1]))
}

func TestPadCommitBatchesEvents(t *testing.T) {
	rec := &recorder{}
	p := uinput.NewPad(rec, nil)

	require.NoError(t, p.Press(device.ButtonA))
	require.NoError(t, p.SetTrigger(device.TriggerLeft, 255))
	require.NoError(t, p.SetTrigger(device.TriggerRight, 0))
	require.NoError(t, p.SetDPad(device.DPadUp|device.DPadRight))
	require.NoError(t, p.SetSticks(device.Stick{X: 0, Y: 32767}, device.Stick{X: -32768, Y: 0}))
	assert.Empty(t, rec.batches, "nothing is written before Commit")

	require.NoError(t, p.Commit())
	require.Len(t, rec.batches, 1)
	assert.Equal(t, []uinput.Event{
		key(uinput.BtnA, 1),
		abs(uinput.AbsZ, 255),
		abs(uinput.AbsRZ, 0),
		abs(uinput.AbsHat0Y, -1),
		abs(uinput.AbsHat0X, 1),
		abs(uinput.AbsX, 127),
		abs(uinput.AbsY, 255),
		abs(uinput.AbsRX, 0),
		abs(uinput.AbsRY, 127),
		syn,
	}, rec.last(t))

	require.NoError(t, p.Commit())
	assert.Len(t, rec.batches, 1, "empty commit writes nothing")
}

func TestPadButtonCodes(t *testing.T) {
	type testCase struct {
		button device.Button
		code   uint16
	}

	cases := []testCase{
		{device.ButtonA, uinput.BtnA},
		{device.ButtonB, uinput.BtnB},
		{device.ButtonX, uinput.BtnX},
		{device.ButtonY, uinput.BtnY},
		{device.ButtonL, uinput.BtnTL},
		{device.ButtonR, uinput.BtnTR},
		{device.ButtonStart, uinput.BtnStart},
		{device.ButtonSelect, uinput.BtnSelect},
	}

	for _, tc := range cases {
		t.Run(tc.button.String(), func(t *testing.T) {
			rec := &recorder{}
			p := uinput.NewPad(rec, nil)
			require.NoError(t, p.Press(tc.button))
			require.NoError(t, p.Release(tc.button))
			require.NoError(t, p.Commit())
			assert.Equal(t, []uinput.Event{key(tc.code, 1), key(tc.code, 0), syn}, rec.last(t))
		})
	}
}

func TestPadWriteError(t *testing.T) {
	cause := errors.New("no such device")
	rec := &recorder{err: cause}
	p := uinput.NewPad(rec, nil)

	require.NoError(t, p.Press(device.ButtonA))
	err := p.Commit()
	var we *device.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "uinput", we.Backend)
	assert.ErrorIs(t, err, cause)

	rec.err = nil
	require.NoError(t, p.Press(device.ButtonB))
	require.NoError(t, p.Commit())
	assert.Equal(t, []uinput.Event{key(uinput.BtnB, 1), syn}, rec.last(t), "failed batch is not replayed")
}

func TestPadClose(t *testing.T) {
	rec := &recorder{}
	closed := 0
	p := uinput.NewPad(rec, func() error {
		closed++
		return nil
	})

	require.NoError(t, p.Close())
	require.Equal(t, 1, closed)

	got := rec.last(t)
	assert.Contains(t, got, abs(uinput.AbsX, 128))
	assert.Contains(t, got, abs(uinput.AbsRY, 128))
	assert.Contains(t, got, abs(uinput.AbsZ, 0))
	assert.Contains(t, got, abs(uinput.AbsHat0X, 0))
	assert.Contains(t, got, key(uinput.BtnA, 0))
	assert.Contains(t, got, key(uinput.BtnThumbR, 0))
	assert.Equal(t, syn, got[len(got)-1])

	require.NoError(t, p.Close())
	assert.Equal(t, 1, closed)
	assert.ErrorIs(t, p.Press(device.ButtonA), device.ErrClosed)
	assert.ErrorIs(t, p.Commit(), device.ErrClosed)
}

func TestDeviceLayout(t *testing.T) {
	assert.Equal(t, "3DS Controller", uinput.DefaultName)
	assert.Len(t, uinput.Keys, 10)
	for _, a := range uinput.Axes {
		switch a.Code {
		case uinput.AbsHat0X, uinput.AbsHat0Y:
			assert.Equal(t, int32(-1), a.Min)
			assert.Equal(t, int32(1), a.Max)
		default:
			assert.Equal(t, int32(0), a.Min)
			assert.Equal(t, int32(255), a.Max)
		}
	}
}
