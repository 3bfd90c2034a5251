// Package transport holds an asynchronous, non-blocking frame transmitter,
// used by the UDL replay server for its per-connection replies, that
// funnels writes to a possibly slow peer through a single goroutine.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// AsyncTx is a reusable asynchronous byte-frame transmitter that funnels
// writes through a single goroutine (fan-in). SendFrame is non-blocking: if
// the internal buffer is full, it invokes the configured OnDrop hook and
// returns its error (usually an overflow sentinel), so a producer never
// blocks behind a wedged serial device.
//
// Life-cycle:
//
//	a := NewAsyncTx(ctx, buf, sendFn, hooks)
//	a.SendFrame(wireBytes)
//	a.Close()
type AsyncTx struct {
	mu     sync.Mutex
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	send   func([]byte) error
	hooks  Hooks
	closed atomic.Bool
}

// Hooks customize AsyncTx behavior.
type Hooks struct {
	OnError func(error)
	OnAfter func()
	OnDrop  func() error
}

// ErrAsyncTxClosed is returned by SendFrame after Close.
var ErrAsyncTxClosed = errors.New("transport: async tx closed")

// NewAsyncTx constructs an AsyncTx with a buffered channel of size buf.
func NewAsyncTx(parent context.Context, buf int, send func([]byte) error, hooks Hooks) *AsyncTx {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx{
		ch:     make(chan []byte, buf),
		ctx:    ctx,
		cancel: cancel,
		send:   send,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx) loop() {
	defer a.wg.Done()
	for {
		select {
		case fr, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.send(fr); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter()
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// SendFrame queues a frame for asynchronous transmission, or returns the
// drop error if the buffer is full.
func (a *AsyncTx) SendFrame(fr []byte) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- fr:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for pending goroutine exit.
func (a *AsyncTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
