package panelmem

import (
	"bytes"
	"fmt"
	"strings"
)

// Hexdump renders buf as a classic 16-bytes-per-line hex+ASCII dump,
// starting the printed offset at off, with runs of lines carrying
// identical byte content collapsed to a single "*" the way the original
// debug dumper did (the comparison is on content, not on the printed
// offset, so a run of repeated chunks at different offsets still
// collapses).
func Hexdump(buf []byte, off int) string {
	var b strings.Builder
	var lastChunk []byte
	wroteStar := false

	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[i:end]

		if lastChunk != nil && bytes.Equal(chunk, lastChunk) {
			if !wroteStar {
				b.WriteString("*\n")
				wroteStar = true
			}
			continue
		}
		b.WriteString(formatHexLine(chunk, off+i))
		b.WriteByte('\n')
		lastChunk = chunk
		wroteStar = false
	}
	fmt.Fprintf(&b, "%08x", off+len(buf))
	return b.String()
}

func formatHexLine(chunk []byte, offset int) string {
	var lo, hi strings.Builder
	for i, x := range chunk {
		if i < 8 {
			if i > 0 {
				lo.WriteByte(' ')
			}
			fmt.Fprintf(&lo, "%02x", x)
		} else {
			if i > 8 {
				hi.WriteByte(' ')
			}
			fmt.Fprintf(&hi, "%02x", x)
		}
	}
	var ascii strings.Builder
	for _, x := range chunk {
		if x >= 32 && x < 127 {
			ascii.WriteByte(x)
		} else {
			ascii.WriteByte('.')
		}
	}
	return fmt.Sprintf("%08x  %-23s  %-23s  |%-16s|", offset, lo.String(), hi.String(), ascii.String())
}

// String renders both memory regions as labelled hexdumps, for CLI/debug
// use.
func (p *Panel) String() string {
	var b strings.Builder
	b.WriteString("mem:\n")
	b.WriteString(Hexdump(p.Mem, 0))
	b.WriteString("\nio:\n")
	b.WriteString(Hexdump(p.IO, 0))
	return b.String()
}
