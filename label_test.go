// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelResolvePatchesForwardReferences(t *testing.T) {
	code := NewByteVector()
	label := NewLabel()

	code.PutByte(Goto)
	label.addForwardReference(0, code.Len(), false)
	code.PutShort(-1)
	code.PutByte(Nop)

	hasAsm := label.resolve(code, code.Len())
	assert.False(t, hasAsm)
	require.True(t, label.isResolved())
	assert.Equal(t, 4, label.Offset())
	// Patched displacement is target - source instruction offset.
	assert.Equal(t, []byte{Goto, 0x00, 0x04, Nop}, code.Bytes())
}

func TestLabelResolveWideReference(t *testing.T) {
	code := NewByteVector()
	label := NewLabel()

	code.PutByte(GotoW)
	label.addForwardReference(0, code.Len(), true)
	code.PutInt(-1)

	label.resolve(code, code.Len())
	assert.Equal(t, []byte{GotoW, 0x00, 0x00, 0x00, 0x05}, code.Bytes())
}

func TestLabelResolveOverflowSwapsOpcode(t *testing.T) {
	code := NewByteVector()
	label := NewLabel()

	code.PutByte(Ifeq)
	label.addForwardReference(0, code.Len(), false)
	code.PutShort(-1)
	for i := 0; i < 40000; i++ {
		code.PutByte(Nop)
	}

	hasAsm := label.resolve(code, code.Len())
	assert.True(t, hasAsm, "a displacement beyond 32767 needs the wide-pending form")
	assert.Equal(t, byte(AsmIfeq), code.Bytes()[0])
	// The truncated displacement reads back as an unsigned u16.
	assert.Equal(t, 40003, int(code.Bytes()[1])<<8|int(code.Bytes()[2]))
}

func TestLabelCanonicalInstance(t *testing.T) {
	first := NewLabel()
	alias := NewLabel()
	alias.canonical = first
	assert.Same(t, first, alias.getCanonicalInstance())
	assert.Same(t, first, first.getCanonicalInstance())
}

func TestLabelLineNumbers(t *testing.T) {
	l := NewLabel()
	l.addLineNumber(10)
	l.addLineNumber(12)
	assert.Equal(t, []int{10, 12}, l.lineNumbers)
}

func TestEdgeChaining(t *testing.T) {
	from := NewLabel()
	a, b := NewLabel(), NewLabel()
	from.addOutgoingEdge(NewEdge(1, a))
	from.addOutgoingEdge(NewExceptionEdge(b, 7))

	e := from.outgoingEdges
	require.NotNil(t, e)
	assert.True(t, e.IsException())
	assert.Equal(t, 7, e.CaughtType)
	assert.Same(t, b, e.Successor)

	e = e.Next()
	require.NotNil(t, e)
	assert.False(t, e.IsException())
	assert.Same(t, a, e.Successor)
	assert.Nil(t, e.Next())
}
