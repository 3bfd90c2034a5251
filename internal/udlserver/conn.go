package udlserver

import (
	"fmt"
	"log/slog"

	"github.com/shuckc/pytexalarm/internal/metrics"
	"github.com/shuckc/pytexalarm/internal/panelmem"
	"github.com/shuckc/pytexalarm/internal/wintex"
)

// ackPayload is a single command byte with no body; Frame()'d, it becomes
// the 3-byte ACK frame the panel-role server sends for most actions.
var ackPayload = []byte{wintex.CmdAck}

// connHandler builds the wintex.Handler for one panel-role connection: it
// closes over the connection's Panel and a logger, and dispatches each
// parsed message per the command table.
type connHandler struct {
	panel  *panelmem.Panel
	serial []byte // 7-byte BCD challenge this server presents
	log    *slog.Logger
}

func newConnHandler(panel *panelmem.Panel, serial []byte, log *slog.Logger) *connHandler {
	return &connHandler{panel: panel, serial: serial, log: log}
}

func (h *connHandler) Handle(msg wintex.Message) []byte {
	switch msg.Cmd {
	case 'Z':
		return h.handleLogin(msg.Body)
	case 'H':
		h.log.Info("udl_hangup")
		return []byte{wintex.CmdAck} // frames to the literal 03 06 F6
	case 'O':
		return h.handleMemRead(msg.Body, panelmem.RegionMem, 'I')
	case 'R':
		return h.handleMemRead(msg.Body, panelmem.RegionIO, 'W')
	case 'I':
		return h.handleMemWrite(msg.Body, panelmem.RegionMem)
	case 'W':
		return h.handleMemWrite(msg.Body, panelmem.RegionIO)
	case 'P':
		return []byte{'P', 0xFF, 0xFF}
	case 'K':
		return h.handleKeypad(msg.Body)
	case 'U':
		return h.handleSpecial(msg.Body)
	case 'A':
		h.log.Info("udl_arm_area", "area", byteOrZero(msg.Body, 0))
		return ackPayload
	case 'C':
		h.log.Info("udl_reset_area", "area", byteOrZero(msg.Body, 0))
		return ackPayload
	case 'S':
		h.log.Info("udl_part_arm_area", "area", byteOrZero(msg.Body, 0), "type", byteOrZero(msg.Body, 1))
		return ackPayload
	case 'B':
		return h.handleRTC(msg.Body)
	default:
		h.log.Info("udl_unknown_command", "cmd", string(rune(msg.Cmd)), "body", msg.Body)
		return nil
	}
}

func byteOrZero(b []byte, i int) byte {
	if i < len(b) {
		return b[i]
	}
	return 0
}

// handleLogin answers the two Z phases: an empty body is the serial
// challenge request, a non-empty body carries the UDL password and expects
// the 20-byte banner back.
func (h *connHandler) handleLogin(body []byte) []byte {
	if len(body) == 0 {
		h.log.Info("udl_serial_challenge")
		return append([]byte{'Z', 0x05}, h.serial...)
	}
	login := string(body)
	h.log.Info("udl_login", "password", login)
	banner := h.panel.Banner
	if len(banner) != 20 {
		// the panel-role banner is padded to exactly 20 bytes at
		// construction time; a mismatch here is a config bug.
		h.log.Error("udl_banner_wrong_length", "len", len(banner))
	}
	return append([]byte{'Z'}, []byte(banner)...)
}

// unpackMemProto mirrors the source's length validation: the body must be
// exactly 4 bytes (a bare read) or 4+sz bytes (a write carrying data).
func unpackMemProto(region []byte, body []byte) (base, sz int, wrData, oldData []byte, err error) {
	if len(body) < 4 {
		return 0, 0, nil, nil, fmt.Errorf("%w: body too short (%d bytes)", ErrMemProto, len(body))
	}
	base = int(body[0])<<16 | int(body[1])<<8 | int(body[2])
	sz = int(body[3])
	if len(body) != 4 && len(body) != sz+4 {
		return 0, 0, nil, nil, fmt.Errorf("%w: len %d vs sz+4 %d", ErrMemProto, len(body), sz+4)
	}
	if base < 0 || base+sz > len(region) {
		return 0, 0, nil, nil, fmt.Errorf("%w: base=%d sz=%d region=%d", ErrMemProto, base, sz, len(region))
	}
	oldData = append([]byte{}, region[base:base+sz]...)
	wrData = body[4:]
	return base, sz, wrData, oldData, nil
}

func (h *connHandler) handleMemRead(body []byte, region panelmem.Region, replyCmd byte) []byte {
	buf := h.panel.Mem
	if region == panelmem.RegionIO {
		buf = h.panel.IO
	}
	base, sz, _, oldData, err := unpackMemProto(buf, body)
	if err != nil {
		metrics.IncError(metrics.ErrDecode)
		h.log.Warn("udl_mem_proto_error", "error", err)
		return nil
	}
	h.log.Debug("udl_mem_read", "base", base, "size", sz)
	out := append([]byte{replyCmd}, body[0:4]...)
	out = append(out, oldData...)
	return out
}

func (h *connHandler) handleMemWrite(body []byte, region panelmem.Region) []byte {
	buf := h.panel.Mem
	if region == panelmem.RegionIO {
		buf = h.panel.IO
	}
	base, sz, wrData, oldData, err := unpackMemProto(buf, body)
	if err != nil {
		metrics.IncError(metrics.ErrDecode)
		h.log.Warn("udl_mem_proto_error", "error", err)
		return nil
	}
	h.logDeltas(base, oldData, wrData)
	if err := h.panel.ApplyWrite(region, base, sz, wrData); err != nil {
		metrics.IncError(metrics.ErrDecode)
		h.log.Warn("udl_mem_write_failed", "error", err)
		return nil
	}
	return ackPayload
}

func (h *connHandler) logDeltas(base int, old, new []byte) {
	for i := range old {
		if i < len(new) && old[i] != new[i] {
			h.log.Debug("udl_mem_delta", "addr", fmt.Sprintf("%06x", base+i), "old", old[i], "new", new[i])
		}
	}
}

func (h *connHandler) handleKeypad(body []byte) []byte {
	if len(body) < 2 {
		return ackPayload
	}
	h.log.Info("udl_keypad_press", "keypad", body[0], "code", body[1], "key", keyName(body[1]))
	return ackPayload
}

// handleSpecial answers U sub-opcodes: 1 commits zone/expander changes, 64
// broadcasts a message to keypads, anything else is logged with no reply.
func (h *connHandler) handleSpecial(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	switch body[0] {
	case 1:
		h.log.Info("udl_commit_zone_changes")
		return ackPayload
	case 64:
		h.log.Info("udl_broadcast_message")
		return ackPayload
	default:
		h.log.Info("udl_unknown_special_action", "opcode", body[0])
		return nil
	}
}

func (h *connHandler) handleRTC(body []byte) []byte {
	if name := rtcOpName(body); name != "" {
		h.log.Info("udl_rtc_op", "op", name)
	} else {
		h.log.Info("udl_rtc_unknown", "body", body)
	}
	return ackPayload
}
