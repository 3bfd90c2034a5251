// Package rangealg implements the compaction/uncompaction of (base, size)
// memory-read ranges against the 64-byte UDL page constraint (spec §3/§4.3).
package rangealg

// Range is an observed or planned memory read of sz bytes starting at base.
type Range struct {
	Base int
	Size int
}

// maxPage is the largest single read/write transfer allowed on the wire.
const maxPage = 64

// Compact merges adjacent page-sized reads back into the larger logical
// range they were split from. Scanning left to right, only an entry with
// Size >= 64 can become the head of a merge chain (a stray short read is
// never the start of a longer contiguous window - short reads arrive
// whole, not as a page of a bigger one). A chain ends after its first entry
// shorter than a page, the tail of the range it was split from, so
// Uncompact of the result gives back the original pages.
func Compact(ranges []Range) []Range {
	out := make([]Range, 0, len(ranges))
	var last *Range
	for _, r := range ranges {
		if last != nil {
			if r.Base == last.Base+last.Size && last.Size%maxPage == 0 {
				last.Size += r.Size
				continue
			}
			out = append(out, *last)
			last = nil
		}
		if r.Size < maxPage {
			out = append(out, r)
		} else {
			cp := r
			last = &cp
		}
	}
	if last != nil {
		out = append(out, *last)
	}
	return out
}

// Uncompact splits every entry whose size exceeds 64 bytes into full
// 64-byte pages, keeping a possibly-short final tail.
func Uncompact(ranges []Range) []Range {
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		base, sz := r.Base, r.Size
		for sz > maxPage {
			out = append(out, Range{Base: base, Size: maxPage})
			base += maxPage
			sz -= maxPage
		}
		out = append(out, Range{Base: base, Size: sz})
	}
	return out
}
