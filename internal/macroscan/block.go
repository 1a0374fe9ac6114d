package macroscan

import (
	"encoding/binary"
	"math/bits"

	"github.com/cachalot-cc/cachalot/internal/buffer"
)

// The block scanner processes 32 bytes per step, in the manner of a
// SIMD substring search (<http://0x80.pl/articles/simd-strfind.html>): two
// overlapping views of each block are compared lane-wise against broadcast
// '_' and 'E' constants and the combined matches are compressed into a
// bitmask of candidate window positions.
//
// The arithmetic below is plain 64-bit SWAR, with loads fixed to
// little-endian byte order so the produced candidate masks — and therefore
// the detected flags — are identical on every architecture.

const (
	broadcastUnderscore = 0x5f5f5f5f5f5f5f5f // '_' in every lane
	broadcastE          = 0x4545454545454545 // 'E' in every lane
)

func scanBlock(buf *buffer.Buffer) Result {
	var result Result
	p := buf.Padded()
	n := buf.Len()

	for i := 0; i+windowLen <= n; i += 32 {
		// Both views stay inside the allocation: the buffer guarantees
		// 31 zero bytes past the logical end, and i+5+32 <= n+29.
		mask := candidateMask(p[i:], p[i+5:])
		for mask != 0 {
			// The candidate window position + 1, as the first byte is
			// known to be '_'.
			pos := i + bits.TrailingZeros32(mask) + 1
			mask &= mask - 1
			result |= confirm(buf, pos)
		}
	}
	return result
}

// candidateMask compares 32 bytes of a against '_' and 32 bytes of shifted
// (the same block offset by 5, the position of 'E' in all three macros)
// against 'E'. Bit k of the result means "window starting at local offset k
// is a candidate".
func candidateMask(a, shifted []byte) uint32 {
	var mask uint32
	for w := 0; w < 4; w++ {
		x := binary.LittleEndian.Uint64(a[w*8:])
		y := binary.LittleEndian.Uint64(shifted[w*8:])
		m := matchedLanes(x, broadcastUnderscore) & matchedLanes(y, broadcastE)
		mask |= uint32(laneMask(m)) << (8 * w)
	}
	return mask
}

// matchedLanes returns a word with 0x80 set in every byte of w equal to the
// corresponding byte of the broadcast pattern. The borrow in the zero-byte
// test can additionally set the bit in a lane directly above a true match;
// such spurious candidates cost one extra confirmation call and are rejected
// there. No matching lane is ever missed.
func matchedLanes(w, pattern uint64) uint64 {
	x := w ^ pattern
	return (x - 0x0101010101010101) & ^x & 0x8080808080808080
}

// laneMask compresses the high bit of each byte of w into an 8-bit mask,
// lowest byte to lowest bit.
func laneMask(w uint64) uint8 {
	return uint8((w >> 7) * 0x0102040810204080 >> 56)
}
