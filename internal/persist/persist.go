// Package persist saves and loads a panel's identity and memory buffers to
// a simple length-prefixed file format, replacing the source's
// language-specific object-graph encoding with an explicit one (§6).
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/shuckc/pytexalarm/internal/identity"
	"github.com/shuckc/pytexalarm/internal/panelmem"
)

// fileMagic and fileVersion are written verbatim at the start of every
// persisted file and checked on load.
var fileMagic = []byte("pytexalarm\n")

const fileVersion = '1'

// ErrBadMagic is returned by Load when the file does not start with the
// expected magic bytes.
var ErrBadMagic = errors.New("persist: bad magic header")

// ErrBadVersion is returned by Load when the version byte is not the one
// this package writes.
var ErrBadVersion = errors.New("persist: unsupported file version")

// Save writes banner, serial, udlpasswd, mem, and io as five
// length-prefixed fields following the magic header and version byte.
func Save(w io.Writer, p *panelmem.Panel) error {
	if _, err := w.Write(fileMagic); err != nil {
		return fmt.Errorf("persist: write magic: %w", err)
	}
	if _, err := w.Write([]byte{fileVersion}); err != nil {
		return fmt.Errorf("persist: write version: %w", err)
	}
	fields := [][]byte{
		[]byte(p.Banner),
		[]byte(p.Serial),
		[]byte(p.UDLPasswd),
		p.Mem,
		p.IO,
	}
	for _, f := range fields {
		if err := writeField(w, f); err != nil {
			return err
		}
	}
	return nil
}

func writeField(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("persist: write field length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("persist: write field data: %w", err)
	}
	return nil
}

func readField(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("persist: read field length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("persist: read field data: %w", err)
	}
	return data, nil
}

// Load reads a file written by Save and reconstructs a Panel. The model
// descriptor is derived from the loaded banner via identity.ModelFor, so a
// file persisted against one model variant decodes correctly even if the
// caller doesn't know the banner ahead of time.
func Load(r io.Reader) (*panelmem.Panel, error) {
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("persist: read magic: %w", err)
	}
	if string(magic) != string(fileMagic) {
		return nil, ErrBadMagic
	}
	var version [1]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, fmt.Errorf("persist: read version: %w", err)
	}
	if version[0] != fileVersion {
		return nil, ErrBadVersion
	}

	banner, err := readField(r)
	if err != nil {
		return nil, err
	}
	serial, err := readField(r)
	if err != nil {
		return nil, err
	}
	udlpasswd, err := readField(r)
	if err != nil {
		return nil, err
	}
	mem, err := readField(r)
	if err != nil {
		return nil, err
	}
	io2, err := readField(r)
	if err != nil {
		return nil, err
	}

	model := identity.ModelFor(string(banner))
	p := panelmem.New(model)
	p.Banner = string(banner)
	p.Serial = string(serial)
	p.UDLPasswd = string(udlpasswd)
	copy(p.Mem, mem)
	copy(p.IO, io2)
	return p, nil
}
