package frame

// Diff returns the bits that differ between two button masks.
func Diff(prev, cur uint32) uint32 {
	return prev ^ cur
}

// Edge is a single button transition.
type Edge struct {
	Button  Button
	Pressed bool
}

// Changes lists the transitions of the named buttons between prev and cur, in bit
// order. Buttons held (or released) in both masks are not reported.
func Changes(prev, cur uint32) []Edge {
	changed := Diff(prev, cur) & ButtonMask
	if changed == 0 {
		return nil
	}
	var out []Edge
	for _, b := range Buttons {
		if changed&uint32(b) == 0 {
			continue
		}
		out = append(out, Edge{Button: b, Pressed: cur&uint32(b) != 0})
	}
	return out
}
