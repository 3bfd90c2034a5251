// Package planner builds the ordered list of memory reads a UDL client
// should issue for a chosen set of topics, then expands that list into
// wire-sized pages via rangealg.
package planner

import "github.com/shuckc/pytexalarm/internal/rangealg"

// Topic names one of the record groups a client can request.
type Topic int

const (
	ZONES Topic = iota
	AREAS
	GLOBAL
	KEYPADS
	EXPANDERS
	OUTPUTS
	COMMS
	USERS
	LOGS
)

// commonReads are issued for every invocation regardless of requested
// topics: the unique ID, banner registers, and panel flag words. Values are
// reproduced verbatim (decimal, as given by the source) rather than
// converted to hex, since the contract is the byte sequence issued on the
// wire, not its presentation.
var commonReads = []rangealg.Range{
	{Base: 25755, Size: 16},
	{Base: 23812, Size: 16},
	{Base: 5752, Size: 1},
	{Base: 8138, Size: 7},
	{Base: 5758, Size: 1},
	{Base: 23637, Size: 2},
	{Base: 23639, Size: 2},
}

// elite24Topics maps each topic to the Elite-24 mem ranges that the
// structured decoder needs populated, one entry per contiguous field block.
//
// The retrieved source did not carry the original per-topic table (only the
// field-offset table and the explicit common-reads list survived
// distillation), so these lists are derived directly from the Elite-24
// field table: one read per contiguous array the decoder touches, sized to
// the array's full extent. OUTPUTS and LOGS have no corresponding entries
// in the field table and so plan to only the common reads; a panel that
// needs those groups populated must be read through another topic that
// happens to cover the same registers.
var elite24Topics = map[Topic][]rangealg.Range{
	ZONES: {
		{Base: 0x5400, Size: 0x300}, // name + name2, 24 zones * 32 bytes
		{Base: 0x0000, Size: 24},    // type
		{Base: 0x0030, Size: 24},    // chime
		{Base: 0x0060, Size: 24},    // area
		{Base: 0x0090, Size: 24},    // wiring
		{Base: 0x00C0, Size: 48},    // attrib1/attrib2 interleaved
	},
	USERS: {
		{Base: 0x4000, Size: 0xC8}, // name, 25 users * 8 bytes
		{Base: 0x4190, Size: 0x4B}, // pincode source block 1
		{Base: 0x630B, Size: 0x18}, // pincode source block 2
		{Base: 0x42EE, Size: 50},   // access_areas
		{Base: 0x42B6, Size: 25},   // flags0
		{Base: 0x43E8, Size: 25},   // flags1
	},
	AREAS: {
		{Base: 0x16A0, Size: 32}, // area text, 2 areas * 16 bytes
		{Base: 0x05E8, Size: 32}, // area_suites text
	},
	EXPANDERS: {
		{Base: 0x0E50, Size: 32}, // location, 2 expanders * 16 bytes
		{Base: 0x0F50, Size: 4},  // area
		{Base: 0x0F70, Size: 2},  // aux_input
		{Base: 0x0F80, Size: 2},  // sounds
		{Base: 0x0F90, Size: 2},  // speaker
	},
	KEYPADS: {
		{Base: 0x0FC0, Size: 8},  // keypad_z1_zone/keypad_z2_zone, 4 keypads
		{Base: 0x0FA0, Size: 8},  // areas
		{Base: 0x0FE0, Size: 8},  // options
		{Base: 0x1010, Size: 4},  // sounds
		{Base: 0x1000, Size: 4},  // volume
	},
	GLOBAL: {
		{Base: 0x5D04, Size: 16}, // unique_id
		{Base: 0x1100, Size: 32}, // engineer_reset
		{Base: 0x1120, Size: 32}, // anticode_reset
		{Base: 0x1140, Size: 32}, // service_message
		{Base: 0x1160, Size: 32}, // panel_location
		{Base: 0x1180, Size: 16}, // banner_message
		{Base: 0x1190, Size: 16}, // part_arm_header
		{Base: 0x1800, Size: 16}, // part_arm1_message
		{Base: 0x1810, Size: 16}, // part_arm2_message
		{Base: 0x1820, Size: 16}, // part_arm3_message
	},
	COMMS: {
		{Base: 0x1A30, Size: 16}, // sms_centre1
		{Base: 0x1A40, Size: 16}, // sms_centre2
	},
	OUTPUTS: {},
	LOGS:    {},
}

// Plan concatenates the common reads with the reads of every requested
// topic, preserving order and duplicates, then pages the result through
// rangealg.Uncompact so every entry fits in a single 64-byte transfer.
// Duplicates are intentional: the same region may need re-reading after an
// interleaved write could have invalidated an earlier observation, and
// callers must not silently dedupe them.
func Plan(topics []Topic) []rangealg.Range {
	out := append([]rangealg.Range{}, commonReads...)
	for _, topic := range topics {
		out = append(out, elite24Topics[topic]...)
	}
	return rangealg.Uncompact(out)
}
