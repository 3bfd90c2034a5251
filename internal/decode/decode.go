// Package decode implements the structured decoder (C7): a set of pure
// functions over a panel's mem/io buffers that produce a typed record,
// plus the literal enum metadata tables a viewer needs to render it.
package decode

import (
	"strings"

	"github.com/shuckc/pytexalarm/internal/panelmem"
)

// GetASCII returns the ASCII string formed by buf[off:off+n], with
// trailing NUL bytes stripped. Non-ASCII bytes pass through as their raw
// code points rather than erroring.
func GetASCII(buf []byte, off, n int) string {
	region := buf[off : off+n]
	region = []byte(strings.TrimRight(string(region), "\x00"))
	var b strings.Builder
	for _, c := range region {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// GetBCD returns a hex string formed by printing each byte's two nibbles in
// order, treating buf[off:off+n] as a packed-BCD field.
func GetBCD(buf []byte, off, n int) string {
	const hexDigits = "0123456789abcdef"
	region := buf[off : off+n]
	out := make([]byte, 0, 2*len(region))
	for _, x := range region {
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	return string(out)
}

// GetPincode takes the three bytes at pin[off:off+3], hex-encodes them, and
// strips the characters 'd', 'e', 'f' from both ends of the result (these
// encode "unused nibble" sentinels in pincode storage).
func GetPincode(pin []byte, off int) string {
	hex := GetBCD(pin, off, 3)
	return strings.Trim(hex, "def")
}

// Zone is one entry of the zones table.
type Zone struct {
	Name, Name2           string
	Type, Chime           byte
	Area, Wiring          byte
	Attrib1, Attrib2      byte
}

// User is one entry of the users table.
type User struct {
	Name         string
	Pincode      string
	AccessAreas  byte
	Flags0       string
	Flags1       string
}

// Area is one entry of the areas table.
type Area struct {
	Text string
}

// AreaSuite is one entry of the area_suites table.
type AreaSuite struct {
	Text string
}

// Expander is one entry of the expanders table.
type Expander struct {
	Location                string
	Area, AuxInput           byte
	Sounds, Speaker          byte
}

// Keypad is one entry of the keypads table.
type Keypad struct {
	KeypadZ1Zone, KeypadZ2Zone byte
	Areas, Options             byte
	Sounds, Volume             byte
}

// Config holds the ASCII/BCD config fields (§6, all within mem).
type Config struct {
	UniqueID       string
	EngineerReset  string
	AnticodeReset  string
	ServiceMessage string
	PanelLocation  string
	BannerMessage  string
	PartArmHeader  string
	PartArm1Message string
	PartArm2Message string
	PartArm3Message string
}

// Communications holds comms-related config fields.
type Communications struct {
	SMSCentre1 string
	SMSCentre2 string
}

// VirtualKeypad holds the live io-region keypad display state.
type VirtualKeypad struct {
	Screen  string
	Screen2 string
	Leds    byte
}

// Record is the full typed decode of a panel's mem/io buffers.
type Record struct {
	Zones           []Zone
	Users           []User
	Areas           []Area
	AreaSuites      []AreaSuite
	Expanders       []Expander
	Keypads         []Keypad
	Config          Config
	Communications  Communications
	VirtualKeypad   VirtualKeypad
	Enums           Enums
}

// Enums carries the literal lookup/bitmask tables a viewer uses to render
// the raw byte fields above.
type Enums struct {
	ZonesType         []string
	ZonesWiring       []string
	ZonesAccessAreas  []string
	KeypadLeds        []string
}

var enums = Enums{
	ZonesType: []string{
		"Entry/Exit 1", "Entry/Exit 2", "Guard", "Guard Access",
		"24hr Audible", "24hr Silent", "PA Audible", "PA Silent",
		"Fire", "Medical", "24hr Gas", "Auxilary", "Tamper",
		"Exit Terminator", "Moment Key", "Latch Key", "Security",
		"Omit Key", "Custom", "Conf PA Audible", "Conf PA Silent",
	},
	ZonesWiring: []string{
		"Normally Closed", "Normally Open", "Double Pole/EOL",
		"Tripple EOL", "1K/1K/(3K)", "4K7/6K8/(12K)", "2K2/4K7/(6K8)",
		"4K7/4K7", "WD Monitor",
	},
	ZonesAccessAreas: []string{"A", "B"},
	KeypadLeds:       []string{"?", "?", "Omit"},
}

// Area_suites offsets are not model-scaled in the source; Elite-24 always
// emits exactly two.
const eliteAreaSuites = 2

// Decode produces a Record from p's current mem/io buffers, according to
// p.Model's record counts. It refuses to run against the generic
// (unidentified) descriptor, since that descriptor carries no field table.
func Decode(p *panelmem.Panel) (Record, bool) {
	if p.Model.Generic {
		return Record{}, false
	}
	m, io := p.Mem, p.IO
	model := p.Model

	rec := Record{
		Enums: enums,
		Config: Config{
			UniqueID:        GetBCD(m, 0x5D04, 0x10),
			EngineerReset:   GetASCII(m, 0x1100, 32),
			AnticodeReset:   GetASCII(m, 0x1120, 32),
			ServiceMessage:  GetASCII(m, 0x1140, 32),
			PanelLocation:   GetASCII(m, 0x1160, 32),
			BannerMessage:   GetASCII(m, 0x1180, 16),
			PartArmHeader:   GetASCII(m, 0x1190, 16),
			PartArm1Message: GetASCII(m, 0x1800, 16),
			PartArm2Message: GetASCII(m, 0x1810, 16),
			PartArm3Message: GetASCII(m, 0x1820, 16),
		},
		Communications: Communications{
			SMSCentre1: GetASCII(m, 0x1A30, 16),
			SMSCentre2: GetASCII(m, 0x1A40, 16),
		},
		VirtualKeypad: VirtualKeypad{
			Screen:  GetASCII(io, 0x1196, 16),
			Screen2: GetASCII(io, 0x11A6, 16),
			Leds:    io[0x11B7],
		},
	}

	for i := 0; i < model.Zones; i++ {
		rec.Zones = append(rec.Zones, Zone{
			Name:    GetASCII(m, 0x5400+32*i, 16),
			Name2:   GetASCII(m, 0x5400+32*i+16, 16),
			Type:    m[0x0000+i],
			Chime:   m[0x0030+i],
			Area:    m[0x0060+i],
			Wiring:  m[0x0090+i],
			Attrib1: m[0x00C0+2*i],
			Attrib2: m[0x00C1+2*i],
		})
	}

	pincode := append(append([]byte{}, m[0x4190:0x4190+0x4B]...), m[0x630B:0x630B+0x18]...)
	for i := 0; i < model.Users; i++ {
		rec.Users = append(rec.Users, User{
			Name:        strings.TrimRight(GetASCII(m, 0x4000+8*i, 8), " "),
			Pincode:     GetPincode(pincode, 3*i),
			AccessAreas: m[0x42EE+2*i],
			Flags0:      GetBCD(m, 0x42B6+i, 1),
			Flags1:      GetBCD(m, 0x43E8+i, 1),
		})
	}

	for i := 0; i < model.Areas; i++ {
		rec.Areas = append(rec.Areas, Area{Text: GetASCII(m, 0x16A0+16*i, 16)})
	}

	for i := 0; i < eliteAreaSuites; i++ {
		rec.AreaSuites = append(rec.AreaSuites, AreaSuite{Text: GetASCII(m, 0x05E8+16*i, 16)})
	}

	for i := 0; i < model.Expanders; i++ {
		rec.Expanders = append(rec.Expanders, Expander{
			Location: GetASCII(m, 0x0E50+16*i, 16),
			Area:     m[0x0F50+2*i],
			AuxInput: m[0x0F70+i],
			Sounds:   m[0x0F80+i],
			Speaker:  m[0x0F90+i],
		})
	}

	for i := 0; i < model.Keypads; i++ {
		rec.Keypads = append(rec.Keypads, Keypad{
			KeypadZ1Zone: m[0x0FC0+2*i],
			KeypadZ2Zone: m[0x0FC1+2*i],
			Areas:        m[0x0FA0+2*i],
			Options:      m[0x0FE0+2*i],
			Sounds:       m[0x1010+i],
			Volume:       m[0x1000+i],
		})
	}

	return rec, true
}
