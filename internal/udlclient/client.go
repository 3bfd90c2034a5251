// Package udlclient implements the UDL client (C8): connect to a panel (or
// a panel-role replay server) over TCP or serial, perform the Z/Z login
// handshake, and drive memory reads planned by internal/planner into a
// internal/panelmem model.
package udlclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/shuckc/pytexalarm/internal/identity"
	"github.com/shuckc/pytexalarm/internal/logging"
	"github.com/shuckc/pytexalarm/internal/metrics"
	"github.com/shuckc/pytexalarm/internal/panelmem"
	"github.com/shuckc/pytexalarm/internal/planner"
	"github.com/shuckc/pytexalarm/internal/serial"
	"github.com/shuckc/pytexalarm/internal/wintex"
)

// settleDelay is the fixed pause after connecting, before sending anything.
// The upstream serial-to-TCP bridge silently drops the first frames
// otherwise; this is a carrier quirk, not a protocol requirement.
const settleDelay = 2 * time.Second

// DefaultPort is the default UDL TCP port.
const DefaultPort = 10001

const (
	cmdLogin = 'Z'
	cmdRead  = 'O'
	cmdResp  = 'I'
)

// ErrUnexpectedReply is returned when a reply's command byte does not match
// what the protocol requires for the request just sent.
var ErrUnexpectedReply = errors.New("udlclient: unexpected reply command")

// ErrAddressEchoMismatch is returned when a read response doesn't echo the
// request's address/size bytes.
var ErrAddressEchoMismatch = errors.New("udlclient: address echo mismatch in read response")

// ErrPageTooLarge is returned when a caller asks ReadMem for more than 64
// bytes in one transfer; the planner is responsible for pre-paging.
var ErrPageTooLarge = errors.New("udlclient: read size exceeds 64-byte page limit")

// Conn is the minimal transport a Client needs: a byte stream, satisfied by both *net.TCPConn and the serial.Port wrapper.
type Conn interface {
	io.ReadWriteCloser
}

// Client drives one UDL session against a single panel or replay server.
type Client struct {
	conn   Conn
	Panel  *panelmem.Panel
	closed bool
}

// Dial opens a TCP connection to addr (host:port), waits the settle delay,
// then returns an unauthenticated Client. Call Login to complete the
// handshake.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		metrics.IncError(metrics.ErrTransportRead)
		return nil, fmt.Errorf("udlclient: dial %s: %w", addr, err)
	}
	return newClient(ctx, conn)
}

// NewClientWithConn wraps an already-open Conn (e.g. a serial.Port),
// applying the same settle delay as Dial.
func NewClientWithConn(ctx context.Context, conn Conn) (*Client, error) {
	return newClient(ctx, conn)
}

// DialSerial opens a direct serial connection to a panel's UDL port (no
// ser2net bridge in between), applying the same settle delay as Dial.
func DialSerial(ctx context.Context, device string, baud int, readTimeout time.Duration) (*Client, error) {
	port, err := serial.Open(device, baud, readTimeout)
	if err != nil {
		metrics.IncError(metrics.ErrTransportRead)
		return nil, fmt.Errorf("udlclient: open serial %s: %w", device, err)
	}
	return newClient(ctx, port)
}

func newClient(ctx context.Context, conn Conn) (*Client, error) {
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.closed = true
	return c.conn.Close()
}

// sendFrame frames payload and writes it to the wire.
func (c *Client) sendFrame(payload []byte) error {
	fr, err := wintex.Frame(payload)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(fr); err != nil {
		metrics.IncError(metrics.ErrTransportWrite)
		return fmt.Errorf("udlclient: write: %w", err)
	}
	metrics.AddFramesTx(1)
	return nil
}

// readFrame blocks for exactly one complete frame and returns its verified
// message. Mirrors the source's readexactly(1) then readexactly(len-1)
// shape: the length prefix tells us precisely how many more bytes to read,
// so there is no buffering or resynchronisation needed on the client side
// of a request/response exchange.
func (c *Client) readFrame() (wintex.Message, error) {
	var lenByte [1]byte
	if _, err := io.ReadFull(c.conn, lenByte[:]); err != nil {
		metrics.IncError(metrics.ErrTransportRead)
		return wintex.Message{}, fmt.Errorf("udlclient: read length: %w", err)
	}
	declared := int(lenByte[0])
	if declared <= 2 {
		return wintex.Message{}, fmt.Errorf("udlclient: %w: length %d", wintex.ErrBadLength, declared)
	}
	rest := make([]byte, declared-1)
	if _, err := io.ReadFull(c.conn, rest); err != nil {
		metrics.IncError(metrics.ErrTransportRead)
		return wintex.Message{}, fmt.Errorf("udlclient: read body: %w", err)
	}
	frame := append(lenByte[:], rest...)
	ok, err := wintex.Verify(frame)
	if err != nil {
		return wintex.Message{}, err
	}
	if !ok {
		metrics.IncChecksumBad()
		return wintex.Message{}, fmt.Errorf("udlclient: checksum failed")
	}
	metrics.IncFramesRx()
	body := frame[1 : len(frame)-1]
	return wintex.Message{Cmd: body[0], Body: body[1:]}, nil
}

// doCommand sends payload and returns the single reply message.
func (c *Client) doCommand(payload []byte) (wintex.Message, error) {
	if err := c.sendFrame(payload); err != nil {
		return wintex.Message{}, err
	}
	return c.readFrame()
}

// Login performs the two-phase Z handshake: an empty Z to receive the
// serial challenge, then Z+password to receive the 20-byte banner. It
// allocates c.Panel sized for the identified model.
func (c *Client) Login(udlpasswd string) error {
	challenge, err := c.doCommand([]byte{cmdLogin})
	if err != nil {
		metrics.IncError(metrics.ErrHandshake)
		return fmt.Errorf("udlclient: serial challenge: %w", err)
	}
	if challenge.Cmd != cmdLogin {
		return fmt.Errorf("%w: got %q awaiting serial challenge", ErrUnexpectedReply, challenge.Cmd)
	}
	serial := decodeBCDSerial(challenge.Body)

	bannerMsg, err := c.doCommand(append([]byte{cmdLogin}, []byte(udlpasswd)...))
	if err != nil {
		metrics.IncError(metrics.ErrHandshake)
		return fmt.Errorf("udlclient: banner exchange: %w", err)
	}
	if bannerMsg.Cmd != cmdLogin {
		return fmt.Errorf("%w: got %q awaiting banner", ErrUnexpectedReply, bannerMsg.Cmd)
	}
	banner := string(bannerMsg.Body)

	model := identity.ModelFor(banner)
	if model.Generic {
		logging.L().Warn("udl_unknown_banner", "banner", banner)
	}
	c.Panel = panelmem.New(model)
	if err := c.Panel.SetIdentity(panelmem.FieldSerial, serial); err != nil {
		return err
	}
	if err := c.Panel.SetIdentity(panelmem.FieldBanner, banner); err != nil {
		return err
	}
	return c.Panel.SetIdentity(panelmem.FieldUDLPasswd, udlpasswd)
}

// decodeBCDSerial drops the leading 0x05 size byte the source's serial
// challenge carries and hex-prints the remaining BCD bytes.
func decodeBCDSerial(body []byte) string {
	if len(body) < 1 {
		return ""
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 2*(len(body)-1))
	for _, b := range body[1:] {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return string(out)
}

// Heartbeat sends P and expects back P 0xFF 0xFF.
func (c *Client) Heartbeat() error {
	reply, err := c.doCommand([]byte{'P'})
	if err != nil {
		return err
	}
	if reply.Cmd != 'P' || len(reply.Body) != 2 || reply.Body[0] != 0xFF || reply.Body[1] != 0xFF {
		return fmt.Errorf("%w: heartbeat reply %q %x", ErrUnexpectedReply, reply.Cmd, reply.Body)
	}
	return nil
}

// ReadMem issues a single O request for size bytes at base and applies the
// response into c.Panel's mem region. size must not exceed 64 bytes; the
// planner is responsible for pre-paging larger logical ranges.
func (c *Client) ReadMem(base, size int) error {
	if size > 64 {
		return fmt.Errorf("%w: %d", ErrPageTooLarge, size)
	}
	addr := []byte{byte(base >> 16), byte(base >> 8), byte(base)}
	req := append([]byte{cmdRead}, addr...)
	req = append(req, byte(size))

	metrics.IncReadsIssued()
	reply, err := c.doCommand(req)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdResp {
		return fmt.Errorf("%w: got %q for O request", ErrUnexpectedReply, reply.Cmd)
	}
	if len(reply.Body) < 4 || string(reply.Body[:4]) != string(req[1:5]) {
		return fmt.Errorf("%w", ErrAddressEchoMismatch)
	}
	data := reply.Body[4:]
	if len(data) != size {
		return fmt.Errorf("udlclient: read size mismatch: requested %d got %d", size, len(data))
	}
	return c.Panel.ApplyReadResponse(panelmem.RegionMem, base, size, data)
}

// ReadTopics plans reads for topics and issues each in order, applying
// every response to c.Panel before issuing the next (no pipelining, per the
// in-order ordering guarantee: a later duplicate read must overwrite an
// earlier observation). It issues no reads and returns an error when the
// login banner selected the generic (unidentified) model, since the
// planner's tables hold Elite-24 offsets.
func (c *Client) ReadTopics(topics []planner.Topic) error {
	if c.Panel.Model.Generic {
		return fmt.Errorf("udlclient: refusing to plan reads against unidentified panel %q", c.Panel.Banner)
	}
	for _, r := range planner.Plan(topics) {
		if err := c.ReadMem(r.Base, r.Size); err != nil {
			return err
		}
	}
	return nil
}
