// Package macroscan detects the temporal preprocessor macros __DATE__,
// __TIME__ and __TIMESTAMP__ in source text.
//
// Two scanners are provided: a portable Boyer-Moore-Horspool style skip
// search and a 32-byte block scanner selected when the CPU advertises wide
// vector support. Both are required to report identical flag sets for
// identical input.
package macroscan

import (
	"golang.org/x/sys/cpu"

	"github.com/cachalot-cc/cachalot/internal/buffer"
)

// Result is a bitmask of detected temporal macros.
type Result int

const (
	// OK means no temporal macro was found.
	OK Result = 0

	FoundDate      Result = 1
	FoundTime      Result = 2
	FoundTimestamp Result = 4

	// Error is distinct from any combination of the found flags. The
	// scanner itself never produces it; the hashing pipeline collapses to
	// Error when reacting to a found flag fails.
	Error Result = 8
)

// Has reports whether flag is set in r.
func (r Result) Has(flag Result) bool {
	return r&flag != 0
}

// String renders the set flags for diagnostics.
func (r Result) String() string {
	if r == OK {
		return "ok"
	}
	if r.Has(Error) {
		return "error"
	}
	s := ""
	for _, f := range []struct {
		flag Result
		name string
	}{
		{FoundDate, "__DATE__"},
		{FoundTime, "__TIME__"},
		{FoundTimestamp, "__TIMESTAMP__"},
	} {
		if r.Has(f.flag) {
			if s != "" {
				s += "|"
			}
			s += f.name
		}
	}
	return s
}

// All three macros start with two underscores and have 'E' at offset 5, so
// an 8-byte window with a two-byte pre-test covers every candidate.
const windowLen = 8

// macroSkip tells the skip scanner how far it may advance when the byte at
// the trailing edge of the current window has a given value, without risking
// skipping over a match of any macro. Pure function of the fixed pattern
// set, computed once at startup.
var macroSkip [256]byte

func init() {
	for i := range macroSkip {
		macroSkip[i] = windowLen
	}
	for _, p := range [...]string{"__DATE__", "__TIME__", "__TIMESTAMP__"} {
		for j := 0; j < windowLen-1; j++ {
			skip := byte(windowLen - 1 - j)
			if skip < macroSkip[p[j]] {
				macroSkip[p[j]] = skip
			}
		}
	}
}

// Scan searches buf for __DATE__, __TIME__ and __TIMESTAMP__ appearing as
// whole tokens and returns the corresponding flags. The capability probe is
// consulted on every call.
func Scan(buf *buffer.Buffer) Result {
	if cpu.X86.HasAVX2 {
		return scanBlock(buf)
	}
	return scanSkip(buf)
}

// scanSkip is the portable scanner. It walks an 8-byte window left to right,
// advancing by the skip table entry for the byte at the window's trailing
// edge.
func scanSkip(buf *buffer.Buffer) Result {
	var result Result
	p := buf.Padded()
	n := buf.Len()

	// The search is anchored at the end of the window, so i starts at 7.
	for i := windowLen - 1; i < n; i += int(macroSkip[p[i]]) {
		// Cheap pre-test: every macro has '_' at window offset 0 and 'E'
		// at offset 5. 'E' is less common in source text, so test it
		// first.
		if p[i-2] == 'E' && p[i-7] == '_' {
			result |= confirm(buf, i-6)
		}
	}
	return result
}

// confirm checks whether one of the macros starts at pos-1, where pos is the
// offset just after a leading underscore.
//
// Pre-condition: buf.At(pos-1) == '_'; buf.At(pos-2) and the byte after the
// longest possible match are valid reads (the buffer's sentinels guarantee
// the latter at the edges).
func confirm(buf *buffer.Buffer, pos int) Result {
	p := buf.Padded()
	remaining := buf.Len() - pos
	if remaining < windowLen-1 {
		return OK
	}

	var found Result
	matchLen := windowLen - 1
	switch {
	case string(p[pos:pos+7]) == "_DATE__":
		found = FoundDate
	case string(p[pos:pos+7]) == "_TIME__":
		found = FoundTime
	case remaining >= 12 && string(p[pos:pos+12]) == "_TIMESTAMP__":
		found = FoundTimestamp
		matchLen = 12
	default:
		return OK
	}

	// Reject matches that are substrings of a longer identifier, like
	// MY__DATE__X.
	if isIdentByte(buf.At(pos-2)) || isIdentByte(buf.At(pos+matchLen)) {
		return OK
	}
	return found
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
