// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// ByteVector is a resizable, big-endian byte buffer. It backs every binary
// structure the writer assembles: the constant pool, bootstrap-method
// table, and each attribute body. Capacity doubles whenever an append would
// overflow it, mirroring the growth policy of Go's own append but kept
// explicit here because callers reach into the backing array directly via
// putByteArray.
type ByteVector struct {
	data   []byte
	length int
}

// NewByteVector returns an empty ByteVector with no pre-allocated capacity.
func NewByteVector() *ByteVector {
	return &ByteVector{}
}

// NewByteVectorSize returns an empty ByteVector pre-sized to avoid early
// reallocation, for callers that can estimate the final length.
func NewByteVectorSize(initialCapacity int) *ByteVector {
	return &ByteVector{data: make([]byte, initialCapacity)}
}

// Len returns the number of bytes written so far.
func (b *ByteVector) Len() int {
	return b.length
}

// Bytes returns the written portion of the buffer. The slice aliases the
// vector's backing array; callers must not retain it across further writes.
func (b *ByteVector) Bytes() []byte {
	return b.data[:b.length]
}

func (b *ByteVector) ensure(extra int) {
	needed := b.length + extra
	if needed <= len(b.data) {
		return
	}
	capacity := len(b.data) * 2
	if capacity < needed {
		capacity = needed
	}
	if capacity < 16 {
		capacity = 16
	}
	grown := make([]byte, capacity)
	copy(grown, b.data[:b.length])
	b.data = grown
}

// PutByte appends a single byte.
func (b *ByteVector) PutByte(v byte) *ByteVector {
	b.ensure(1)
	b.data[b.length] = v
	b.length++
	return b
}

// Put11 appends two bytes, each truncated to its low 8 bits. Used for
// instructions with two 1-byte operands (e.g. IINC var/const, or a two-
// opcode sequence).
func (b *ByteVector) Put11(v1, v2 int) *ByteVector {
	b.ensure(2)
	b.data[b.length] = byte(v1)
	b.data[b.length+1] = byte(v2)
	b.length += 2
	return b
}

// PutShort appends a big-endian u16.
func (b *ByteVector) PutShort(v int) *ByteVector {
	b.ensure(2)
	b.data[b.length] = byte(v >> 8)
	b.data[b.length+1] = byte(v)
	b.length += 2
	return b
}

// Put12 appends a byte followed by a big-endian u16, the shape of most
// single-operand instructions (e.g. opcode + constant-pool index).
func (b *ByteVector) Put12(v1, v2 int) *ByteVector {
	b.ensure(3)
	b.data[b.length] = byte(v1)
	b.data[b.length+1] = byte(v2 >> 8)
	b.data[b.length+2] = byte(v2)
	b.length += 3
	return b
}

// Put122 appends a byte followed by two big-endian u16 values, the shape of
// IINC-with-wide-index-style triples and multianewarray's opcode+type+dims.
func (b *ByteVector) Put122(v1, v2, v3 int) *ByteVector {
	b.ensure(5)
	b.data[b.length] = byte(v1)
	b.data[b.length+1] = byte(v2 >> 8)
	b.data[b.length+2] = byte(v2)
	b.data[b.length+3] = byte(v3 >> 8)
	b.data[b.length+4] = byte(v3)
	b.length += 5
	return b
}

// PutShortAt overwrites the two bytes at offset with a big-endian u16,
// used to patch count placeholders (e.g. an annotation's
// num_element_value_pairs) once the final value is known.
func (b *ByteVector) PutShortAt(offset, v int) *ByteVector {
	b.data[offset] = byte(v >> 8)
	b.data[offset+1] = byte(v)
	return b
}

// PutInt appends a big-endian u32.
func (b *ByteVector) PutInt(v int32) *ByteVector {
	b.ensure(4)
	u := uint32(v)
	b.data[b.length] = byte(u >> 24)
	b.data[b.length+1] = byte(u >> 16)
	b.data[b.length+2] = byte(u >> 8)
	b.data[b.length+3] = byte(u)
	b.length += 4
	return b
}

// PutLong appends a big-endian u64.
func (b *ByteVector) PutLong(v int64) *ByteVector {
	b.ensure(8)
	u := uint64(v)
	b.PutInt(int32(u >> 32))
	b.PutInt(int32(u))
	return b
}

// PutByteArray appends length bytes of data starting at offset; a nil
// data appends nothing.
func (b *ByteVector) PutByteArray(data []byte, offset, length int) *ByteVector {
	if data == nil {
		return b
	}
	b.ensure(length)
	copy(b.data[b.length:], data[offset:offset+length])
	b.length += length
	return b
}

// PutUTF8 appends s Modified-UTF-8 encoded, prefixed with its 2-byte
// encoded length. It fails with ErrStringTooLong if the encoded form
// exceeds 65535 bytes (JVMS 4.4.7: the length field is an unsigned u2).
func (b *ByteVector) PutUTF8(s string) (*ByteVector, error) {
	encoded, err := encodeMUTF8(s)
	if err != nil {
		return b, err
	}
	b.PutShort(len(encoded))
	b.ensure(len(encoded))
	copy(b.data[b.length:], encoded)
	b.length += len(encoded)
	return b, nil
}

// encodeMUTF8 encodes s per JVMS 4.4.7: one byte for U+0001..U+007F, two
// bytes for U+0000 and U+0080..U+07FF, three bytes otherwise (including
// surrogate pairs encoded independently, matching the JVM's CESU-8-like
// scheme rather than UTF-8's 4-byte supplementary encoding).
func encodeMUTF8(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)+(len(s)>>2)+1)
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r <= 0x7F:
			out = append(out, byte(r))
		case r <= 0x7FF:
			out = append(out,
				byte(0xC0|(r>>6)),
				byte(0x80|(r&0x3F)),
			)
		case r <= 0xFFFF:
			out = append(out,
				byte(0xE0|(r>>12)),
				byte(0x80|((r>>6)&0x3F)),
				byte(0x80|(r&0x3F)),
			)
		default:
			// Supplementary code point: encode as a surrogate pair, each
			// half as its own 3-byte MUTF-8 sequence (6 bytes total).
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			for _, half := range [2]rune{hi, lo} {
				out = append(out,
					byte(0xE0|(half>>12)),
					byte(0x80|((half>>6)&0x3F)),
					byte(0x80|(half&0x3F)),
				)
			}
		}
		if len(out) > 65535 {
			return nil, fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(out))
		}
	}
	if len(out) > 65535 {
		return nil, fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(out))
	}
	return out, nil
}
