// Package wintex implements the UDL (Upload/Download) wire protocol spoken
// by Texecom Premier/Premier-Elite panels: length-prefixed framing, the
// subtractive checksum, and the session state machine that dispatches
// framed messages to a handler and re-frames any reply.
package wintex

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shuckc/pytexalarm/internal/metrics"
)

// ErrPayloadTooLong is returned by Frame when the payload cannot be framed
// (a 253-byte ceiling keeps the 1-byte length prefix valid: 253+2 == 255).
var ErrPayloadTooLong = errors.New("wintex: payload too long to frame")

// ErrBadLength is returned by Verify when the declared length prefix does
// not match the buffer it was handed - a programmer error, not a wire error.
var ErrBadLength = errors.New("wintex: declared length does not match buffer")

// hayesReset is the Hayes modem reset string occasionally seen in raw
// captures when the serial bridge re-initialises; used to resynchronise
// after a checksum failure.
var hayesReset = []byte("ATZ\r")

// Checksum starts at 0xFF and subtracts every byte it is given once, modulo
// 256. Over the length byte plus payload it yields the checksum byte to
// append; over a complete frame including its checksum byte it yields 0
// exactly when that checksum byte is correct, which Verify relies on.
func Checksum(frame []byte) byte {
	v := 255
	for _, b := range frame {
		v -= int(b)
	}
	return byte(((v % 256) + 256) % 256)
}

// Frame builds a complete wire frame from a message payload (command byte
// plus body). It fails if the payload cannot fit under the 1-byte length
// prefix.
func Frame(payload []byte) ([]byte, error) {
	if len(payload) > 253 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}
	out := make([]byte, len(payload)+2)
	out[0] = byte(len(payload) + 2)
	copy(out[1:], payload)
	// checksum over length byte + payload; the trailing checksum byte itself
	// is computed so that summing it in closes the total to zero.
	out[len(out)-1] = Checksum(out[:len(out)-1])
	return out, nil
}

// Verify reports whether a complete frame's checksum byte closes the frame
// to zero. It requires the declared length (frame[0]) to equal len(frame);
// a caller handing it a buffer of the wrong size has a bug, not a malformed
// wire frame, so this returns an error rather than false in that case.
func Verify(frame []byte) (bool, error) {
	if len(frame) == 0 || int(frame[0]) != len(frame) {
		return false, ErrBadLength
	}
	return Checksum(frame) == 0, nil
}

// Message is a parsed, checksum-verified frame: the command byte and the
// command-specific body that followed it.
type Message struct {
	Cmd  byte
	Body []byte
}

// Framer accumulates a byte stream and extracts verified messages one frame
// at a time, resynchronising on checksum failure. It is not safe for
// concurrent use; callers own one Framer per direction per connection.
type Framer struct {
	buf       bytes.Buffer
	direction string
}

// NewFramer creates a Framer. direction is used only for log context
// ("term"/"tcp" in trace-ingest, or a connection id elsewhere).
func NewFramer(direction string) *Framer {
	return &Framer{direction: direction}
}

// compactBuffer reclaims consumed prefix capacity once the buffer has grown
// large relative to what remains unread. Mirrors the teacher's
// CompactBuffer threshold choice: skip small buffers, compact once unread
// bytes drop under a quarter of capacity.
func compactBuffer(b *bytes.Buffer) {
	data := b.Bytes()
	if len(data) < 1024 {
		return
	}
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		b.Reset()
		_, _ = b.Write(clone)
	}
}

// Feed appends bytes to the internal buffer and extracts every complete
// frame currently available, invoking onMessage for each in arrival order.
// A checksum failure triggers resynchronisation (search for "ATZ\r",
// discard up to and including it; otherwise empty the buffer) rather than
// propagating an error - framing errors are non-fatal per spec.
func (f *Framer) Feed(data []byte, onMessage func(Message)) {
	f.buf.Write(data)
	for {
		compactBuffer(&f.buf)
		raw := f.buf.Bytes()
		if len(raw) == 0 {
			return
		}
		declared := int(raw[0])
		if declared <= 2 {
			// L<=2 is malformed (no room for a command byte); resync.
			metrics.IncMalformed()
			f.resync()
			raw = f.buf.Bytes()
			if len(raw) == 0 || int(raw[0]) <= 2 {
				return
			}
			declared = int(raw[0])
		}
		if len(raw) < declared {
			return // wait for more bytes
		}
		candidate := raw[:declared]
		ok, err := Verify(candidate)
		if err != nil || !ok {
			metrics.IncChecksumBad()
			f.resync()
			continue
		}
		body := make([]byte, declared-2)
		copy(body, candidate[1:declared-1])
		f.buf.Next(declared)
		metrics.IncFramesRx()
		if len(body) == 0 {
			continue
		}
		onMessage(Message{Cmd: body[0], Body: body[1:]})
	}
}

// resync discards buffered bytes up to and including the next "ATZ\r"
// marker, or empties the buffer entirely if the marker is not present.
func (f *Framer) resync() {
	data := f.buf.Bytes()
	if idx := bytes.Index(data, hayesReset); idx >= 0 {
		f.buf.Next(idx + len(hayesReset))
		return
	}
	f.buf.Reset()
}
