// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteVectorPrimitives(t *testing.T) {
	tests := []struct {
		name string
		fill func(b *ByteVector)
		want []byte
	}{
		{
			name: "byte",
			fill: func(b *ByteVector) { b.PutByte(0xCA) },
			want: []byte{0xCA},
		},
		{
			name: "short",
			fill: func(b *ByteVector) { b.PutShort(0xCAFE) },
			want: []byte{0xCA, 0xFE},
		},
		{
			name: "put11",
			fill: func(b *ByteVector) { b.Put11(0x01, 0x102) },
			want: []byte{0x01, 0x02},
		},
		{
			name: "put12",
			fill: func(b *ByteVector) { b.Put12(Ldc2W, 0x1234) },
			want: []byte{20, 0x12, 0x34},
		},
		{
			name: "put122",
			fill: func(b *ByteVector) { b.Put122(Iinc, 0x0102, 0x0304) },
			want: []byte{132, 0x01, 0x02, 0x03, 0x04},
		},
		{
			name: "int",
			fill: func(b *ByteVector) { b.PutInt(-889275714) },
			want: []byte{0xCA, 0xFE, 0xBA, 0xBE},
		},
		{
			name: "long",
			fill: func(b *ByteVector) { b.PutLong(0x0102030405060708) },
			want: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewByteVector()
			tt.fill(b)
			assert.Equal(t, tt.want, b.Bytes())
		})
	}
}

func TestByteVectorGrowth(t *testing.T) {
	b := NewByteVector()
	for i := 0; i < 1000; i++ {
		b.PutByte(byte(i))
	}
	require.Equal(t, 1000, b.Len())
	assert.Equal(t, byte(999%256), b.Bytes()[999])
}

func TestByteVectorPutShortAt(t *testing.T) {
	b := NewByteVector()
	b.PutShort(0)
	b.PutByte(0xFF)
	b.PutShortAt(0, 0x1234)
	assert.Equal(t, []byte{0x12, 0x34, 0xFF}, b.Bytes())
}

func TestPutUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{
			name:  "ascii",
			input: "Ab",
			want:  []byte{0x00, 0x02, 'A', 'b'},
		},
		{
			name:  "nul is two bytes",
			input: "\x00",
			want:  []byte{0x00, 0x02, 0xC0, 0x80},
		},
		{
			name:  "two byte range",
			input: "é",
			want:  []byte{0x00, 0x02, 0xC3, 0xA9},
		},
		{
			name:  "three byte range",
			input: "世",
			want:  []byte{0x00, 0x03, 0xE4, 0xB8, 0x96},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewByteVector()
			_, err := b.PutUTF8(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Bytes())
		})
	}
}

func TestPutUTF8SupplementaryIsSurrogatePair(t *testing.T) {
	b := NewByteVector()
	_, err := b.PutUTF8("\U0001F600")
	require.NoError(t, err)
	// One supplementary code point encodes as two 3-byte halves.
	require.Equal(t, 2+6, b.Len())
	assert.Equal(t, byte(0xED), b.Bytes()[2])
}

func TestPutUTF8Boundary(t *testing.T) {
	b := NewByteVector()
	_, err := b.PutUTF8(strings.Repeat("a", 65535))
	require.NoError(t, err)

	b = NewByteVector()
	_, err = b.PutUTF8(strings.Repeat("a", 65536))
	require.ErrorIs(t, err, ErrStringTooLong)
}

func TestDecodeMUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "aéb", "世界", "x\x00y"} {
		encoded, err := encodeMUTF8(s)
		require.NoError(t, err)
		assert.Equal(t, s, decodeMUTF8(encoded), "round trip of %q", s)
	}
}
