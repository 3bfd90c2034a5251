package udlserver

// keyMap names the keypad codes logged on a K (keypad press) command, for
// operator-readable logs only; it has no effect on protocol behaviour.
var keyMap = map[byte]string{
	0x01: "Digit 1",
	0x02: "Digit 2",
	0x03: "Digit 3",
	0x04: "Digit 4",
	0x05: "Digit 5",
	0x06: "Digit 6",
	0x07: "Digit 7",
	0x08: "Digit 8",
	0x09: "Digit 9",
	0x0A: "Digit 0",
	0x0B: "Omit",
	0x0C: "Menu",
	0x0D: "Yes",
	0x0E: "Part",
	0x0F: "No",
	0x10: "Area",
	0x14: "Chime",
	0x15: "Reset",
	0x16: "Up",
	0x17: "Down",
}

func keyName(code byte) string {
	if name, ok := keyMap[code]; ok {
		return name
	}
	return "?"
}
