// Package traceingest splits a captured duplex UDL byte stream - either a
// ser2net text log or a pcapng capture - into two direction-labelled
// streams and drives a wintex.Session per direction.
package traceingest

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/shuckc/pytexalarm/internal/wintex"
)

// Direction labels a ser2net trace line's source.
type Direction string

const (
	DirTCP  Direction = "tcp"  // client<->bridge, carries the login password
	DirTerm Direction = "term" // bridge<->panel, carries the panel's own traffic
)

// ser2net text lines are fixed-width: "YYYY/MM/DD HH:MM:SS dir hexbytes |ascii|".
const (
	dirColStart = 20
	dirColEnd   = 25
	hexColStart = 25
	hexColEnd   = 50
)

// ParseSer2NetLine extracts the direction and raw bytes from one ser2net
// trace line. It returns ok=false for lines too short to carry the fixed
// columns (blank separators, headers, etc).
func ParseSer2NetLine(line string) (dir Direction, data []byte, ok bool) {
	if len(line) < dirColEnd {
		return "", nil, false
	}
	rawDir := strings.TrimSpace(line[dirColStart:dirColEnd])
	switch rawDir {
	case string(DirTCP):
		dir = DirTCP
	case string(DirTerm):
		dir = DirTerm
	default:
		return "", nil, false
	}
	// The last line of a frame's capture may carry only 1..8 hex bytes, so
	// the hex column need not be fully present; slice only what exists.
	end := hexColEnd
	if len(line) < end {
		end = len(line)
	}
	hexStart := hexColStart
	if hexStart > end {
		hexStart = end
	}
	hexField := line[hexStart:end]
	data = decodeSpacedHex(hexField)
	return dir, data, true
}

// decodeSpacedHex decodes space-separated hex byte pairs, tolerating
// trailing whitespace and a short final group (a line need not carry a
// full 8 bytes).
func decodeSpacedHex(field string) []byte {
	fields := strings.Fields(field)
	out := make([]byte, 0, len(fields))
	for _, tok := range fields {
		b, err := hex.DecodeString(tok)
		if err != nil || len(b) != 1 {
			continue
		}
		out = append(out, b[0])
	}
	return out
}

// IngestSer2Net reads ser2net trace lines from r, feeding DirTerm bytes to
// panelSession and DirTCP bytes to passwordSession. Malformed or unrelated
// lines are skipped rather than aborting the whole ingest.
func IngestSer2Net(r io.Reader, panelSession, passwordSession *wintex.Session) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		dir, data, ok := ParseSer2NetLine(scanner.Text())
		if !ok || len(data) == 0 {
			continue
		}
		switch dir {
		case DirTerm:
			panelSession.Feed(data)
		case DirTCP:
			passwordSession.Feed(data)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("traceingest: scan ser2net trace: %w", err)
	}
	return nil
}
