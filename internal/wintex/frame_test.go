package wintex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChecksumVectors exercises the literal verify() vectors: a bare "Z"
// frame, a deliberately corrupted checksum byte, and two longer real-world
// frames (a banner response, a live I/O response).
func TestChecksumVectors(t *testing.T) {
	cases := []struct {
		name  string
		frame []byte
		want  bool
	}{
		{"Z frame", []byte{0x03, 0x5A, 0xA2}, true},
		{"Z frame corrupted checksum", []byte{0x03, 0x5A, 0xA3}, false},
		{
			"banner frame",
			[]byte{
				0x17, 0x5A, 0x45, 0x6C, 0x69, 0x74, 0x65, 0x20, 0x32, 0x34, 0x20, 0x20,
				0x20, 0x20, 0x56, 0x36, 0x2E, 0x30, 0x35, 0x2E, 0x30, 0x33, 0xE5,
			},
			true,
		},
		{"live I/O response frame", []byte{0x08, 0x49, 0x00, 0x16, 0x78, 0x01, 0x06, 0x19}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, err := Verify(c.frame)
			require.NoError(t, err)
			assert.Equal(t, c.want, ok)
		})
	}
}

// TestFrameConstructionVectors exercises the literal frame() vectors.
func TestFrameConstructionVectors(t *testing.T) {
	cases := []struct {
		payload string
		want    []byte
	}{
		{"Z", []byte{0x03, 0x5A, 0xA2}},
		{"P", []byte{0x03, 0x50, 0xAC}},
		{
			"ZElite 24    V6.05.03",
			[]byte{
				0x17, 0x5A, 0x45, 0x6C, 0x69, 0x74, 0x65, 0x20, 0x32, 0x34, 0x20, 0x20,
				0x20, 0x20, 0x56, 0x36, 0x2E, 0x30, 0x35, 0x2E, 0x30, 0x33, 0xE5,
			},
		},
	}
	for _, c := range cases {
		got, err := Frame([]byte(c.payload))
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

// TestFrameTooLongPayload checks the 253-byte ceiling.
func TestFrameTooLongPayload(t *testing.T) {
	_, err := Frame(make([]byte, 254))
	assert.ErrorIs(t, err, ErrPayloadTooLong)
}

// TestVerifyBadLength checks the declared-length invariant.
func TestVerifyBadLength(t *testing.T) {
	_, err := Verify([]byte{0x05, 0x5A, 0xA2})
	assert.ErrorIs(t, err, ErrBadLength)
}

// TestChecksumRoundTrip is the property from the checksum-round-trip
// invariant: every payload up to the 253-byte ceiling frames to something
// that verifies.
func TestChecksumRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 64, 253} {
		p := bytes.Repeat([]byte{0x5A}, n)
		framed, err := Frame(p)
		require.NoError(t, err)
		ok, err := Verify(framed)
		require.NoError(t, err)
		assert.True(t, ok, "payload length %d failed to verify", n)
	}
}

// TestFramerFeedEmitsMessage checks the straightforward single-frame path.
func TestFramerFeedEmitsMessage(t *testing.T) {
	fr := NewFramer("test")
	frame, err := Frame([]byte{'Z'})
	require.NoError(t, err)

	var got []Message
	fr.Feed(frame, func(m Message) { got = append(got, m) })

	require.Len(t, got, 1)
	assert.Equal(t, byte('Z'), got[0].Cmd)
	assert.Empty(t, got[0].Body)
}

// TestFramerFeedPartialBuffer checks that a frame split across two Feed
// calls is held until complete, not emitted early or dropped.
func TestFramerFeedPartialBuffer(t *testing.T) {
	fr := NewFramer("test")
	frame, err := Frame([]byte{'Z', 'x', 'y'})
	require.NoError(t, err)

	var got []Message
	fr.Feed(frame[:2], func(m Message) { got = append(got, m) })
	assert.Empty(t, got, "expected no message before the full frame arrives")

	fr.Feed(frame[2:], func(m Message) { got = append(got, m) })
	require.Len(t, got, 1)
	assert.Equal(t, byte('Z'), got[0].Cmd)
	assert.Equal(t, []byte("xy"), got[0].Body)
}

// TestFramerFeedResyncsOnChecksumFailure checks that a bad-checksum frame
// followed by the ATZ\r marker discards only up to and including the
// marker, then resumes parsing the good frame that follows.
func TestFramerFeedResyncsOnChecksumFailure(t *testing.T) {
	fr := NewFramer("test")
	good, err := Frame([]byte{'Z'})
	require.NoError(t, err)

	bad := append([]byte{}, good...)
	bad[len(bad)-1] ^= 0xFF // corrupt the checksum byte

	stream := append(append(bad, []byte("junk before ATZ\r")...), good...)

	var got []Message
	fr.Feed(stream, func(m Message) { got = append(got, m) })

	require.Len(t, got, 1)
	assert.Equal(t, byte('Z'), got[0].Cmd)
}

// TestFramerFeedResyncsOnMalformedDeclaredLength checks the L<=2 malformed
// path: a declared length too small to hold a command byte forces a
// resync, after which a genuine following frame is still parsed.
func TestFramerFeedResyncsOnMalformedDeclaredLength(t *testing.T) {
	fr := NewFramer("test")
	good, err := Frame([]byte{'P'})
	require.NoError(t, err)

	stream := append(append([]byte{0x02, 0x00}, []byte("ATZ\r")...), good...)

	var got []Message
	fr.Feed(stream, func(m Message) { got = append(got, m) })

	require.Len(t, got, 1)
	assert.Equal(t, byte('P'), got[0].Cmd)
}

// TestFramerFeedResyncsWithoutMarker checks that a checksum failure with no
// ATZ\r anywhere in the buffer empties it entirely rather than looping.
func TestFramerFeedResyncsWithoutMarker(t *testing.T) {
	fr := NewFramer("test")
	good, err := Frame([]byte{'Z'})
	require.NoError(t, err)

	bad := append([]byte{}, good...)
	bad[len(bad)-1] ^= 0xFF

	var got []Message
	fr.Feed(bad, func(m Message) { got = append(got, m) })
	assert.Empty(t, got)

	fr.Feed(good, func(m Message) { got = append(got, m) })
	require.Len(t, got, 1)
	assert.Equal(t, byte('Z'), got[0].Cmd)
}

// FuzzFrame ensures Frame/Verify survive arbitrary payloads without
// panicking, and that every payload short enough to frame round-trips.
// Grounded on the teacher's FuzzCodecRoundTrip (internal/cnl/codec_fuzz_test.go).
func FuzzFrame(f *testing.F) {
	seeds := [][]byte{
		[]byte("Z"),
		[]byte("P"),
		[]byte("ZElite 24    V6.05.03"),
		{},
		bytes.Repeat([]byte{0xFF}, 253),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, payload []byte) {
		framed, err := Frame(payload)
		if len(payload) > 253 {
			if err == nil {
				t.Fatalf("expected ErrPayloadTooLong for %d-byte payload", len(payload))
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error framing %d-byte payload: %v", len(payload), err)
		}
		ok, err := Verify(framed)
		if err != nil || !ok {
			t.Fatalf("framed payload failed to verify: ok=%v err=%v", ok, err)
		}
	})
}

// FuzzFeed ensures the Framer never panics on arbitrary byte streams,
// including ones assembled from concatenated well-formed frames interspersed
// with noise. Grounded on the teacher's FuzzCodecDecodeInvalid.
func FuzzFeed(f *testing.F) {
	good, _ := Frame([]byte{'Z'})
	bad := append([]byte{}, good...)
	bad[len(bad)-1] ^= 0xFF
	f.Add(append(append(bad, []byte("ATZ\r")...), good...))
	f.Add([]byte{0x02, 0x00, 0x01})
	f.Add([]byte(nil))

	f.Fuzz(func(t *testing.T, data []byte) {
		fr := NewFramer("fuzz")
		fr.Feed(data, func(Message) {})
	})
}
