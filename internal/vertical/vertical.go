// Package vertical names the conference brands served by this backend and
// maps frontend domains onto them.
package vertical

import "strings"

type Vertical string

const (
	Optics    Vertical = "optics"
	Nursing   Vertical = "nursing"
	Renewable Vertical = "renewable"
	Polymers  Vertical = "polymers"
)

// search order used whenever a record has to be located across verticals
var ordered = []Vertical{Optics, Nursing, Renewable, Polymers}

// All returns every vertical in the fixed search order.
func All() []Vertical {
	out := make([]Vertical, len(ordered))
	copy(out, ordered)
	return out
}

func Parse(name string) (Vertical, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range ordered {
		if string(v) == name {
			return v, true
		}
	}
	return "", false
}

func (v Vertical) String() string {
	return string(v)
}

// Prioritize returns the search order with first moved to the front.
// Unknown or empty values leave the order unchanged.
func Prioritize(first Vertical) []Vertical {
	out := make([]Vertical, 0, len(ordered))
	if _, ok := Parse(string(first)); ok {
		out = append(out, first)
	}
	for _, v := range ordered {
		if v != first {
			out = append(out, v)
		}
	}
	return out
}
