package wintex

import (
	"github.com/shuckc/pytexalarm/internal/logging"
)

// Role distinguishes which end of a UDL conversation a Session plays.
type Role int

const (
	// RoleObserver passively records Z/I/W traffic into a memory model and
	// never emits a reply (trace ingest, and the client side of C8 reads).
	RoleObserver Role = iota
	// RolePanel answers requests as a simulated panel would (C9).
	RolePanel
)

// CmdAck is the one-byte acknowledgement payload the panel role sends back
// for most action commands.
const CmdAck = 0x06

// Handler processes one parsed Message and optionally returns a reply
// payload (command byte plus body) to be framed and written back. A nil
// return means no wire reply is warranted.
type Handler func(msg Message) []byte

// Session pairs a Framer with a Handler and a sink for framed replies. It
// tracks the awaiting-login/identified Z-handshake tie-break for its
// direction: the first non-empty-bodied Z is a serial challenge, the second
// is the banner response; a reverse-direction session only ever sees one
// non-empty Z, carrying the UDL password.
type Session struct {
	direction string
	role      Role
	handler   Handler
	sink      func([]byte)
	framer    *Framer

	zSeen int // count of non-empty-bodied Z messages observed this session
}

// NewSession wires a Framer to a Handler. sink receives each framed reply
// the handler produces, already checksummed and length-prefixed. sink may
// be nil for a pure observer that never replies.
func NewSession(direction string, role Role, handler Handler, sink func([]byte)) *Session {
	return &Session{
		direction: direction,
		role:      role,
		handler:   handler,
		sink:      sink,
		framer:    NewFramer(direction),
	}
}

// Feed pushes newly-arrived bytes through the framer. Each extracted message
// is dispatched to the handler; a non-nil reply from a panel-role session is
// framed and handed to the sink (an observer session discards it). Framing and handler execution are synchronous: nothing here yields
// mid-frame.
func (s *Session) Feed(data []byte) {
	s.framer.Feed(data, func(msg Message) {
		if msg.Cmd == 'Z' && len(msg.Body) > 0 {
			s.zSeen++
		}
		reply := s.handler(msg)
		if reply == nil || s.sink == nil || s.role == RoleObserver {
			return
		}
		framed, err := Frame(reply)
		if err != nil {
			logging.L().Error("session_frame_reply_failed", "direction", s.direction, "error", err)
			return
		}
		s.sink(framed)
	})
}

// LoginPhase reports how many non-empty-bodied Z messages this session has
// observed so far: 0 = awaiting-login, 1 = serial challenge seen/sent,
// 2+ = banner phase complete (identified).
func (s *Session) LoginPhase() int { return s.zSeen }
