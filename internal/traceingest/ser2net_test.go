package traceingest

import (
	"strings"
	"testing"

	"github.com/shuckc/pytexalarm/internal/wintex"
)

func padToColumn(s string, col int) string {
	if len(s) >= col {
		return s
	}
	return s + strings.Repeat(" ", col-len(s))
}

func buildLine(dir string, hexBytes string) string {
	prefix := padToColumn("2024/01/01 12:00:00 ", 20)
	dirField := padToColumn(dir, dirColEnd-dirColStart)
	hexField := padToColumn(hexBytes, hexColEnd-hexColStart)
	return prefix + dirField + hexField + "|....|"
}

func TestParseSer2NetLineTerm(t *testing.T) {
	line := buildLine("term", "03 06 f6")
	dir, data, ok := ParseSer2NetLine(line)
	if !ok || dir != DirTerm {
		t.Fatalf("expected term direction, got dir=%q ok=%v", dir, ok)
	}
	want := []byte{0x03, 0x06, 0xF6}
	if len(data) != len(want) {
		t.Fatalf("got %x want %x", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("byte %d: got %x want %x", i, data, want)
		}
	}
}

func TestParseSer2NetLineTCP(t *testing.T) {
	line := buildLine("tcp", "5a 31 32 33 34")
	dir, data, ok := ParseSer2NetLine(line)
	if !ok || dir != DirTCP || len(data) != 5 {
		t.Fatalf("got dir=%q data=%x ok=%v", dir, data, ok)
	}
}

func TestParseSer2NetLineUnrecognisedDirection(t *testing.T) {
	line := buildLine("xyz", "5a")
	_, _, ok := ParseSer2NetLine(line)
	if ok {
		t.Fatalf("expected unrecognised direction to be rejected")
	}
}

func TestParseSer2NetLineTooShort(t *testing.T) {
	_, _, ok := ParseSer2NetLine("too short")
	if ok {
		t.Fatalf("expected short line to be rejected")
	}
}

// TestParseSer2NetLineShortTrailingHex exercises the last line of a frame's
// capture, which may carry only 1-8 hex bytes and so fall well short of the
// full hex column width: the direction field is present and valid, but the
// line ends immediately after a single hex byte.
func TestParseSer2NetLineShortTrailingHex(t *testing.T) {
	prefix := padToColumn("2024/01/01 12:00:00 ", 20)
	dirField := padToColumn("term", dirColEnd-dirColStart)
	line := prefix + dirField + "f6"
	if len(line) >= hexColEnd {
		t.Fatalf("test line must be shorter than hexColEnd to exercise the regression, got len=%d", len(line))
	}

	dir, data, ok := ParseSer2NetLine(line)
	if !ok || dir != DirTerm {
		t.Fatalf("expected term direction, got dir=%q ok=%v", dir, ok)
	}
	want := []byte{0xF6}
	if len(data) != len(want) || data[0] != want[0] {
		t.Fatalf("got %x want %x", data, want)
	}
}

func TestIngestSer2NetDispatchesByDirection(t *testing.T) {
	var termMessages, tcpMessages []wintex.Message
	panelSession := wintex.NewSession("term", wintex.RoleObserver, func(m wintex.Message) []byte {
		termMessages = append(termMessages, m)
		return nil
	}, nil)
	passwordSession := wintex.NewSession("tcp", wintex.RoleObserver, func(m wintex.Message) []byte {
		tcpMessages = append(tcpMessages, m)
		return nil
	}, nil)

	termFrame, _ := wintex.Frame([]byte{'Z'})
	tcpFrame, _ := wintex.Frame([]byte{'Z', '1', '2', '3', '4'})

	lines := []string{
		buildLine("term", hexSpaced(termFrame)),
		buildLine("tcp", hexSpaced(tcpFrame)),
	}

	if err := IngestSer2Net(strings.NewReader(strings.Join(lines, "\n")), panelSession, passwordSession); err != nil {
		t.Fatalf("IngestSer2Net: %v", err)
	}

	if len(termMessages) != 1 || termMessages[0].Cmd != 'Z' {
		t.Fatalf("expected 1 term message, got %+v", termMessages)
	}
	if len(tcpMessages) != 1 || tcpMessages[0].Cmd != 'Z' {
		t.Fatalf("expected 1 tcp message, got %+v", tcpMessages)
	}
}

func hexSpaced(b []byte) string {
	var sb strings.Builder
	for i, x := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(padHexByte(x))
	}
	return sb.String()
}

func padHexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}
