// Package identity dispatches a panel's banner string to a Model
// descriptor carrying its memory sizes and field layout.
package identity

import "strings"

// Model describes a panel variant: buffer sizes and the counts of each
// record kind the structured decoder should emit.
type Model struct {
	Name string

	MemSize int
	IOSize  int

	Zones     int
	Users     int
	Expanders int
	Keypads   int
	Areas     int

	// Generic reports whether this descriptor is the unidentified fallback:
	// a decoder must refuse to run a field table against it.
	Generic bool
}

// Elite24 is the descriptor for Premier Elite 24 panels.
var Elite24 = Model{
	Name:      "Elite 24",
	MemSize:   0x8000,
	IOSize:    0x2000,
	Zones:     24,
	Users:     25,
	Expanders: 2,
	Keypads:   4,
	Areas:     2,
}

// Generic is the fallback descriptor for an unrecognised banner: a large
// default memory with no field table. udlclient.ReadTopics refuses to issue
// planner reads against it.
var Generic = Model{
	Name:    "generic",
	MemSize: 0x80000,
	IOSize:  0x20000,
	Generic: true,
}

// ModelFor dispatches a banner string to a Model by prefix match. A banner
// starting with "Elite 24" selects Elite24; anything else, including an
// empty banner, degrades to Generic. This degradation is deliberate and
// non-fatal (spec's "Identity error" kind): callers should still be able to
// frame traffic, just not decode it structurally.
func ModelFor(banner string) Model {
	if strings.HasPrefix(banner, "Elite 24") {
		return Elite24
	}
	return Generic
}
