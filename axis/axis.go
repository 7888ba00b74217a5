// Package axis rescales the console's analog stick samples into host ranges.
package axis

// Range is an inclusive integer interval.
type Range struct {
	Min, Max int
}

// Mapper maps raw stick samples into Out with a deadzone around zero.
type Mapper struct {
	Deadzone int
	In       Range
	Out      Range
}

// Default matches the circle pad: usable travel of about ±140 and a noisy center.
var Default = Mapper{
	Deadzone: 20,
	In:       Range{Min: -140, Max: 140},
	Out:      Range{Min: -32768, Max: 32767},
}

// Map maps raw through the Default mapper.
func Map(raw int) int {
	return Default.Map(raw)
}

// Map returns 0 for samples inside the deadzone, otherwise clamps raw into m.In and
// scales it linearly into m.Out, truncating.
func (m Mapper) Map(raw int) int {
	if abs(raw) < m.Deadzone {
		return 0
	}
	v := min(max(raw, m.In.Min), m.In.Max)
	return (v-m.In.Min)*(m.Out.Max-m.Out.Min)/(m.In.Max-m.In.Min) + m.Out.Min
}

// ToByte rescales a value in the symmetric int16 range into 0..255.
func ToByte(v int) uint8 {
	v = min(max(v, -32768), 32767)
	return uint8(((v + 32768) * 255) / 65535)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
