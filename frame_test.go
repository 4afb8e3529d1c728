// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetInputFromArguments(t *testing.T) {
	st := NewSymbolTable(nil)

	f := newFrame(nil)
	f.setInputFromArguments(AccStatic, "a/A", "(IJLjava/lang/String;)V", st)
	require.Len(t, f.inputLocals, 4)
	assert.Equal(t, abstractConstant(ConstantInt), f.inputLocals[0])
	assert.Equal(t, abstractConstant(ConstantLong), f.inputLocals[1])
	assert.Equal(t, abstractConstant(ConstantTop), f.inputLocals[2])
	assert.Equal(t, kindReference, abstractKind(f.inputLocals[3]))

	f = newFrame(nil)
	f.setInputFromArguments(0, "a/A", "()V", st)
	require.Len(t, f.inputLocals, 1)
	assert.Equal(t, kindReference, abstractKind(f.inputLocals[0]))
	assert.Equal(t, "a/A", st.typeTableEntry(abstractValue(f.inputLocals[0])).Value())

	f = newFrame(nil)
	f.setInputFromArguments(AccConstructor, "a/A", "()V", st)
	assert.Equal(t, abstractConstant(ConstantUninitializedThis), f.inputLocals[0])
}

func TestMergeType(t *testing.T) {
	st := NewSymbolTable(nil)
	intType := abstractConstant(ConstantInt)
	floatType := abstractConstant(ConstantFloat)
	top := abstractConstant(ConstantTop)
	null := abstractConstant(ConstantNull)
	refA := abstractReference(st.addType("a/A"))
	refB := abstractReference(st.addType("a/B"))

	merged, changed := mergeType(intType, intType, st)
	assert.Equal(t, intType, merged)
	assert.False(t, changed)

	merged, changed = mergeType(intType, floatType, st)
	assert.Equal(t, top, merged)
	assert.True(t, changed)

	merged, changed = mergeType(refA, intType, st)
	assert.Equal(t, top, merged)
	assert.True(t, changed)

	merged, changed = mergeType(refA, null, st)
	assert.Equal(t, refA, merged)
	assert.False(t, changed)

	merged, changed = mergeType(refA, refB, st)
	assert.True(t, changed)
	require.Equal(t, kindReference, abstractKind(merged))
	assert.Equal(t, "java/lang/Object", st.typeTableEntry(abstractValue(merged)).Value())

	// Re-merging the already-merged value must reach a fixed point.
	again, changed := mergeType(merged, refB, st)
	assert.Equal(t, merged, again)
	assert.False(t, changed)
}

func TestFrameExecuteStackOps(t *testing.T) {
	st := NewSymbolTable(nil)
	f := newFrame(nil)

	f.execute(Iconst1, 0, nil, st)
	f.execute(Iconst2, 0, nil, st)
	assert.Equal(t, 2, f.relativeMax)
	f.execute(Iadd, 0, nil, st)
	assert.Equal(t, []int{abstractConstant(ConstantInt)}, f.outputStack)

	f.execute(Dup, 0, nil, st)
	assert.Len(t, f.outputStack, 2)
	assert.Equal(t, 2, f.relativeMax)
}

func TestFrameSymbolicPopUnderflow(t *testing.T) {
	st := NewSymbolTable(nil)
	f := newFrame(nil)

	// Popping below the block entry yields symbolic STACK references.
	f.execute(Pop, 0, nil, st)
	assert.Equal(t, -1, f.outputStackStart)

	f.inputStack = []int{abstractConstant(ConstantInt), abstractConstant(ConstantFloat)}
	f.inputLocals = []int{}
	succ := newFrame(nil)
	f.mergeIntoSuccessor(succ, -1, st)
	// Only the bottom input value survives the pop.
	assert.Equal(t, []int{abstractConstant(ConstantInt)}, succ.inputStack)
}

func TestUninitializedThenInit(t *testing.T) {
	st := NewSymbolTable(nil)
	st.setMajorVersionAndClassName(52, "a/Caller")

	f := newFrame(nil)
	f.inputLocals = []int{}
	f.inputStack = []int{}

	newOffset := 4
	typeSym, err := st.addConstantClass("a/T")
	require.NoError(t, err)
	f.execute(New, newOffset, typeSym, st)
	f.execute(Dup, 0, nil, st)
	f.execute(Astore, 0, nil, st)
	f.execute(Dup, 0, nil, st)

	initSym, err := st.addConstantMemberRef(ConstantMethodrefTag, "a/T", "<init>", "()V")
	require.NoError(t, err)
	f.execute(Invokespecial, 0, initSym, st)

	succ := newFrame(nil)
	f.mergeIntoSuccessor(succ, -1, st)

	// Both the remaining stack copy and the stored local become a/T once
	// <init> consumed the uninitialized value.
	require.Len(t, succ.inputStack, 1)
	require.Equal(t, kindReference, abstractKind(succ.inputStack[0]))
	assert.Equal(t, "a/T", st.typeTableEntry(abstractValue(succ.inputStack[0])).Value())

	require.Len(t, succ.inputLocals, 1)
	require.Equal(t, kindReference, abstractKind(succ.inputLocals[0]))
	assert.Equal(t, "a/T", st.typeTableEntry(abstractValue(succ.inputLocals[0])).Value())
}

func TestMergeSlotsPadsWithTop(t *testing.T) {
	st := NewSymbolTable(nil)
	dst := []int{abstractConstant(ConstantInt)}
	changed := mergeSlots(&dst, []int{abstractConstant(ConstantInt), abstractConstant(ConstantFloat)}, st)
	assert.True(t, changed)
	require.Len(t, dst, 2)
	assert.Equal(t, abstractConstant(ConstantInt), dst[0])
	assert.Equal(t, abstractConstant(ConstantTop), dst[1])
}

func TestCollapseFrameTypes(t *testing.T) {
	slots := []int{
		abstractConstant(ConstantLong), abstractConstant(ConstantTop),
		abstractConstant(ConstantInt),
	}
	assert.Equal(t, []int{abstractConstant(ConstantLong), abstractConstant(ConstantInt)}, collapseFrameTypes(slots))
}

func TestElementType(t *testing.T) {
	st := NewSymbolTable(nil)
	intArray := abstractReference(st.addType("[I"))
	assert.Equal(t, abstractConstant(ConstantInt), elementType(intArray, st))

	objArray := abstractReference(st.addType("[Ljava/lang/String;"))
	elem := elementType(objArray, st)
	assert.Equal(t, "java/lang/String", st.typeTableEntry(abstractValue(elem)).Value())

	nested := abstractReference(st.addType("[[I"))
	elem = elementType(nested, st)
	assert.Equal(t, "[I", st.typeTableEntry(abstractValue(elem)).Value())
}
