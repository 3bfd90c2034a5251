// Package udlserver implements the UDL replay server (C9): a panel-role
// session per TCP connection that services O/R reads from buffered
// mem/io state, applies I/W as writes, and answers the login and
// heartbeat handshakes a real UDL client expects.
package udlserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/shuckc/pytexalarm/internal/identity"
	"github.com/shuckc/pytexalarm/internal/logging"
	"github.com/shuckc/pytexalarm/internal/metrics"
	"github.com/shuckc/pytexalarm/internal/panelmem"
	"github.com/shuckc/pytexalarm/internal/transport"
	"github.com/shuckc/pytexalarm/internal/wintex"
)

// txQueueDepth bounds how many framed replies may be pending a write before
// a slow client starts dropping them; a panel connection is strict
// request/response so this should never fill under normal operation.
const txQueueDepth = 8

// defaultSerial is the 7-byte BCD serial challenge presented by a
// freshly-constructed server that wasn't given one explicitly.
var defaultSerial = []byte{0x01, 0x00, 0x07, 0x09, 0x04, 0x07, 0x01}

const readBufSize = 16384

// Server owns the TCP listener and the banner, serial and password that
// each accepted connection's Panel is built from. Per spec §5, each connection owns an
// independent Panel; none of Mem/IO is shared between connections.
type Server struct {
	mu         sync.RWMutex
	addr       string
	banner     string
	udlPasswd  string
	serial     []byte
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	nextConnID uint64

	totalAccepted    atomic.Uint64
	totalConnected   atomic.Uint64
	totalDisconnected atomic.Uint64

	readyOnce sync.Once
	readyCh   chan struct{}
}

// ServerOption configures a Server built by NewServer.
type ServerOption func(*Server)

// WithListenAddr sets the TCP listen address (default ":10001").
func WithListenAddr(addr string) ServerOption { return func(s *Server) { s.addr = addr } }

// WithBanner sets the 20-byte (after padding) banner string the panel
// identifies as; this also selects the model descriptor.
func WithBanner(banner string) ServerOption {
	return func(s *Server) { s.banner = padBanner(banner) }
}

// WithUDLPassword sets the UDL password; the default implementation does
// not reject a mismatched login per spec, so this is informational only.
func WithUDLPassword(pw string) ServerOption { return func(s *Server) { s.udlPasswd = pw } }

// WithSerial overrides the 7-byte BCD serial challenge bytes.
func WithSerial(serial []byte) ServerOption { return func(s *Server) { s.serial = serial } }

// WithLogger overrides the server's logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a Server; call Serve to accept connections.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		addr:    ":10001",
		banner:  padBanner("Elite 24    V4.02.01"),
		serial:  defaultSerial,
		logger:  logging.L(),
		readyCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// padBanner right-pads/truncates to the 20 bytes the wire format requires.
func padBanner(banner string) string {
	if len(banner) >= 20 {
		return banner[:20]
	}
	out := make([]byte, 20)
	copy(out, banner)
	for i := len(banner); i < 20; i++ {
		out[i] = ' '
	}
	return string(out)
}

// Addr returns the bound listen address (useful when WithListenAddr(":0")
// was used to pick an ephemeral port, e.g. in tests).
func (s *Server) Addr() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Serve accepts connections until ctx is cancelled or a fatal listener
// error occurs.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		return wrap
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("udl_listen", "addr", s.Addr())

	go func() { <-ctx.Done(); _ = ln.Close() }()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
			}
			wrap := fmt.Errorf("%w: %v", ErrAccept, err)
			metrics.IncError(mapErrToMetric(wrap))
			return wrap
		}
		s.totalAccepted.Add(1)
		connID := atomic.AddUint64(&s.nextConnID, 1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn, connID)
		}()
	}
}

// Shutdown closes the listener; in-flight connections are cancelled via ctx
// and Serve's own wg.Wait drains them before returning.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, connID uint64) {
	defer conn.Close()
	log := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	log.Info("udl_connected")
	metrics.IncSessionStart()
	defer func() {
		s.totalDisconnected.Add(1)
		metrics.IncSessionEnd()
		log.Info("udl_disconnected")
	}()

	panel := panelmem.New(identity.ModelFor(s.banner))
	_ = panel.SetIdentity(panelmem.FieldBanner, s.banner)
	_ = panel.SetIdentity(panelmem.FieldUDLPasswd, s.udlPasswd)

	tx := transport.NewAsyncTx(ctx, txQueueDepth, func(fr []byte) error {
		_, err := conn.Write(fr)
		return err
	}, transport.Hooks{
		OnAfter: func() { metrics.AddFramesTx(1) },
		OnError: func(err error) {
			metrics.IncError(metrics.ErrTransportWrite)
			log.Warn("udl_write_failed", "error", err)
		},
		OnDrop: func() error {
			metrics.IncError(metrics.ErrTransportWrite)
			log.Warn("udl_write_queue_full")
			return transport.ErrAsyncTxClosed
		},
	})
	defer tx.Close()

	handler := newConnHandler(panel, s.serial, log)
	sess := wintex.NewSession(fmt.Sprintf("conn-%d", connID), wintex.RolePanel, handler.Handle, func(fr []byte) {
		_ = tx.SendFrame(fr)
	})

	buf := make([]byte, readBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := conn.Read(buf)
		if n > 0 {
			sess.Feed(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Debug("udl_read_ended", "error", err)
			}
			return
		}
	}
}
