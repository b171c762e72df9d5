package engine

import "unicode/utf8"

// tokenBuffer reassembles raw model output units into complete UTF-8 chunks.
// A unit may end mid-sequence; the incomplete tail is retained across pushes
// and only released once the bytes completing it arrive. Concatenating every
// emitted chunk reproduces the raw byte stream exactly.
type tokenBuffer struct {
	buf []byte
}

// Push appends raw and returns the longest complete prefix, if any.
func (b *tokenBuffer) Push(raw []byte) (string, bool) {
	b.buf = append(b.buf, raw...)
	cut := 0
	for cut < len(b.buf) {
		if b.buf[cut] < utf8.RuneSelf {
			cut++
			continue
		}
		if !utf8.FullRune(b.buf[cut:]) {
			// Incomplete multi-byte sequence: wait for more units.
			break
		}
		_, size := utf8.DecodeRune(b.buf[cut:])
		cut += size
	}
	if cut == 0 {
		return "", false
	}
	chunk := string(b.buf[:cut])
	b.buf = append(b.buf[:0], b.buf[cut:]...)
	return chunk, true
}
