package chip8

import (
	"fmt"
	"strings"
)

// Quirks selects between behaviours that differ among CHIP-8 interpreters.
// With the zero value shifts copy VY, BNNN adds V0, FX55 and FX65 leave I
// unchanged, FX1E leaves VF alone and sprites wrap around the display edges.
// "loadstore,clip" is closest to the COSMAC VIP interpreter, though the VIP
// also clears VF after 8XY1, 8XY2 and 8XY3, which is not modelled.
type Quirks struct {
	ShiftVX       bool // 8XY6 and 8XYE shift VX in place, ignoring VY
	LoadStoreIncI bool // FX55 and FX65 leave I pointing past the last register
	JumpVX        bool // BNNN jumps to NNN plus VX rather than V0
	IndexOverflow bool // FX1E sets VF when I passes 0xFFF
	ClipSprites   bool // DXYN clips at the display edges instead of wrapping
}

var quirkNames = []struct {
	name string
	get  func(*Quirks) *bool
}{
	{"shift", func(q *Quirks) *bool { return &q.ShiftVX }},
	{"loadstore", func(q *Quirks) *bool { return &q.LoadStoreIncI }},
	{"jump", func(q *Quirks) *bool { return &q.JumpVX }},
	{"overflow", func(q *Quirks) *bool { return &q.IndexOverflow }},
	{"clip", func(q *Quirks) *bool { return &q.ClipSprites }},
}

// ParseQuirks parses a comma separated list of quirk names
// (shift, loadstore, jump, overflow, clip) and returns the Quirks with those
// behaviours enabled.
func ParseQuirks(s string) (Quirks, error) {
	var q Quirks
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		ok := false
		for _, n := range quirkNames {
			if n.name == f {
				*n.get(&q) = true
				ok = true
				break
			}
		}
		if !ok {
			return Quirks{}, fmt.Errorf("unknown quirk %q", f)
		}
	}
	return q, nil
}

func (q Quirks) String() string {
	var names []string
	for _, n := range quirkNames {
		if *n.get(&q) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}
