package udlserver

import "bytes"

// RTC programming arrives as a B command carrying one of two literal
// payloads the panel software sends for its two initialise phases.
// Anything else under B is logged generically and still ACKed.
var (
	rtcInitPhase1 = []byte{0x38, 0x00, 0x29, 0x01, 0x00}
	rtcInitPhase2 = []byte{0x39, 0x09, 0x29, 0x01, 0x00}
)

// rtcOpName names a recognised RTC special opcode, or "" if unrecognised.
func rtcOpName(body []byte) string {
	switch {
	case bytes.Equal(body, rtcInitPhase1):
		return "rtc_init_phase1"
	case bytes.Equal(body, rtcInitPhase2):
		return "rtc_init_phase2"
	default:
		return ""
	}
}
