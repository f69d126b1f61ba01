// Package varint implements the 7-bits-per-byte, MSB-continuation packed
// integer encoding used throughout dedupcache's on-disk-free wire format:
// interned sequence numbers and entry counts are never stored as fixed-width
// fields, so a tag or value seen early in a bucket's life costs a single byte.
//
// The format matches Google's original protobuf varint encoding.
package varint

// MaxLen32 is the longest byte sequence Encode can produce for a uint32.
const MaxLen32 = 5

// Encode appends the packed encoding of v to dst and returns the result.
func Encode(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// PutUint32 writes the packed encoding of v into buf (which must have at
// least MaxLen32 bytes of room) and returns the number of bytes written.
func PutUint32(buf []byte, v uint32) int {
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	n++
	return n
}

// Size returns the number of bytes Encode would produce for v.
func Size(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Decode reads one packed uint32 from the front of b, returning the value
// and the number of bytes consumed. It does not validate well-formedness
// beyond running off the end of b (a malformed, never-terminating sequence
// is not something this codec is asked to detect — every caller in this
// module only ever decodes bytes it encoded itself).
func Decode(b []byte) (v uint32, n int) {
	var shift uint
	for {
		c := b[n]
		v |= uint32(c&0x7f) << shift
		n++
		if c&0x80 == 0 {
			return v, n
		}
		shift += 7
	}
}

// EntryLen reports the length in bytes of the canonical encoded entry at the
// front of b: a packed pair count N, followed by exactly 2*N further packed
// integers. This is the sole source of truth for an entry's length — the
// hash set and blob store never store a length prefix separately.
//
// EntryLen panics if b is too short to hold a well-formed entry; every
// caller only ever applies it to bytes produced by this package's own
// Encode/PutUint32, or to a stable pointer into the blob store, so that
// never happens in practice.
func EntryLen(b []byte) int {
	n, consumed := Decode(b)
	if n == 0 {
		return consumed
	}
	total := consumed
	for i := uint64(0); i < 2*uint64(n); i++ {
		_, c := Decode(b[total:])
		total += c
	}
	return total
}
