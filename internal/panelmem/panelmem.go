// Package panelmem owns a panel's two memory buffers (config and live
// state), its identity strings, and the log of observed read ranges used
// to reconstruct which parts of mem have actually been seen.
package panelmem

import (
	"errors"
	"fmt"

	"github.com/shuckc/pytexalarm/internal/identity"
	"github.com/shuckc/pytexalarm/internal/metrics"
	"github.com/shuckc/pytexalarm/internal/rangealg"
)

// Region selects which buffer an operation targets.
type Region int

const (
	RegionMem Region = iota
	RegionIO
)

// ErrOutOfRange is returned when a read/write would run past a buffer end.
var ErrOutOfRange = errors.New("panelmem: range exceeds buffer bounds")

// ErrSizeMismatch is returned when the supplied data length does not match
// the declared size (a fatal frame-level contract error, not a wire error).
var ErrSizeMismatch = errors.New("panelmem: data length does not match size")

// ErrAlreadySet is returned by SetIdentity when the target field is already
// non-empty; identity fields are one-shot.
var ErrAlreadySet = errors.New("panelmem: identity field already set")

// Panel holds the mutable state belonging to one identified or
// not-yet-identified panel session. It is not safe for concurrent use: per
// spec, each connection owns one Panel and all mutation happens between
// network suspension points.
type Panel struct {
	Model identity.Model

	Mem []byte
	IO  []byte

	Banner    string
	Serial    string
	UDLPasswd string

	// MemRanges logs every (base, size) observed against Mem via
	// ApplyReadResponse, in order, with duplicates retained.
	MemRanges []rangealg.Range
}

// New allocates zeroed Mem/IO buffers sized per m.
func New(m identity.Model) *Panel {
	return &Panel{
		Model: m,
		Mem:   make([]byte, m.MemSize),
		IO:    make([]byte, m.IOSize),
	}
}

func (p *Panel) bufferFor(region Region) []byte {
	if region == RegionMem {
		return p.Mem
	}
	return p.IO
}

// ApplyReadResponse overwrites region[base:base+size] with data, observed
// as the result of an O/R read. Requires len(data) == size and
// base+size <= len(region). A Mem write also appends (base, size) to
// MemRanges.
func (p *Panel) ApplyReadResponse(region Region, base, size int, data []byte) error {
	if err := p.write(region, base, size, data); err != nil {
		return err
	}
	if region == RegionMem {
		p.MemRanges = append(p.MemRanges, rangealg.Range{Base: base, Size: size})
	}
	metrics.IncReadsApplied()
	return nil
}

// ApplyWrite overwrites region[base:base+size] with data, observed as an
// I/W write. Same preconditions as ApplyReadResponse; records nothing.
func (p *Panel) ApplyWrite(region Region, base, size int, data []byte) error {
	if err := p.write(region, base, size, data); err != nil {
		return err
	}
	metrics.IncWritesApplied()
	return nil
}

func (p *Panel) write(region Region, base, size int, data []byte) error {
	if len(data) != size {
		return fmt.Errorf("%w: declared %d got %d bytes", ErrSizeMismatch, size, len(data))
	}
	buf := p.bufferFor(region)
	if base < 0 || size < 0 || base+size > len(buf) {
		return fmt.Errorf("%w: base=%d size=%d buflen=%d", ErrOutOfRange, base, size, len(buf))
	}
	copy(buf[base:base+size], data)
	return nil
}

// identityField names the three one-shot identity strings for error
// messages and the "already set" guard.
type identityField int

const (
	FieldSerial identityField = iota
	FieldBanner
	FieldUDLPasswd
)

// SetIdentity assigns one of the one-shot identity fields. It refuses to
// overwrite a field that is already non-empty.
func (p *Panel) SetIdentity(field identityField, value string) error {
	switch field {
	case FieldSerial:
		if p.Serial != "" {
			return fmt.Errorf("%w: serial", ErrAlreadySet)
		}
		p.Serial = value
	case FieldBanner:
		if p.Banner != "" {
			return fmt.Errorf("%w: banner", ErrAlreadySet)
		}
		p.Banner = value
	case FieldUDLPasswd:
		if p.UDLPasswd != "" {
			return fmt.Errorf("%w: udlpasswd", ErrAlreadySet)
		}
		p.UDLPasswd = value
	}
	return nil
}
