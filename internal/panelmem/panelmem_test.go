package panelmem

import (
	"errors"
	"testing"

	"github.com/shuckc/pytexalarm/internal/identity"
)

func TestApplyReadResponseWritesAndLogs(t *testing.T) {
	p := New(identity.Elite24)
	data := []byte{1, 2, 3, 4}
	if err := p.ApplyReadResponse(RegionMem, 100, 4, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Mem[100:104]; string(got) != string(data) {
		t.Fatalf("mem not written: got %v", got)
	}
	if len(p.MemRanges) != 1 || p.MemRanges[0].Base != 100 || p.MemRanges[0].Size != 4 {
		t.Fatalf("mem_ranges not logged: %+v", p.MemRanges)
	}
}

func TestApplyWriteDoesNotLog(t *testing.T) {
	p := New(identity.Elite24)
	if err := p.ApplyWrite(RegionMem, 0, 2, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.MemRanges) != 0 {
		t.Fatalf("expected no mem_ranges entry from a write, got %+v", p.MemRanges)
	}
}

func TestApplyReadResponseSizeMismatch(t *testing.T) {
	p := New(identity.Elite24)
	err := p.ApplyReadResponse(RegionMem, 0, 4, []byte{1, 2, 3})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestApplyReadResponseOutOfRange(t *testing.T) {
	p := New(identity.Elite24)
	err := p.ApplyReadResponse(RegionMem, p.Model.MemSize-1, 4, []byte{1, 2, 3, 4})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSetIdentityOneShot(t *testing.T) {
	p := New(identity.Elite24)
	if err := p.SetIdentity(FieldSerial, "1234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SetIdentity(FieldSerial, "7654321"); !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet on re-assignment, got %v", err)
	}
	if p.Serial != "1234567" {
		t.Fatalf("serial was overwritten: %q", p.Serial)
	}
}

func TestIORegionIndependentFromMem(t *testing.T) {
	p := New(identity.Elite24)
	if err := p.ApplyReadResponse(RegionIO, 0, 2, []byte{0x11, 0x22}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.MemRanges) != 0 {
		t.Fatalf("IO reads must not append to MemRanges, got %+v", p.MemRanges)
	}
	if p.IO[0] != 0x11 || p.IO[1] != 0x22 {
		t.Fatalf("io buffer not written: %v", p.IO[:2])
	}
}
