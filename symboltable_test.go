// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantPoolDedup(t *testing.T) {
	st := NewSymbolTable(nil)

	first, err := st.addConstantUtf8("hello")
	require.NoError(t, err)
	countAfterFirst := st.ConstantPoolCount()

	for i := 0; i < 5; i++ {
		again, err := st.addConstantUtf8("hello")
		require.NoError(t, err)
		assert.Same(t, first, again)
	}
	assert.Equal(t, countAfterFirst, st.ConstantPoolCount(), "pool must not grow on duplicate adds")
}

func TestConstantPoolIndices(t *testing.T) {
	st := NewSymbolTable(nil)

	utf8, err := st.addConstantUtf8("A")
	require.NoError(t, err)
	assert.Equal(t, 1, utf8.Index())

	class, err := st.addConstantClass("A")
	require.NoError(t, err)
	assert.Equal(t, 2, class.Index())
	assert.Equal(t, 3, st.ConstantPoolCount())
}

func TestLongDoubleOccupyTwoSlots(t *testing.T) {
	st := NewSymbolTable(nil)

	long, err := st.addConstantLong(42)
	require.NoError(t, err)
	assert.Equal(t, 1, long.Index())
	assert.Equal(t, 3, st.ConstantPoolCount())

	next, err := st.addConstantUtf8("after")
	require.NoError(t, err)
	assert.Equal(t, 3, next.Index())
}

func TestMemberRefDedupAcrossKinds(t *testing.T) {
	st := NewSymbolTable(nil)

	field, err := st.addConstantMemberRef(ConstantFieldrefTag, "a/B", "x", "I")
	require.NoError(t, err)
	method, err := st.addConstantMemberRef(ConstantMethodrefTag, "a/B", "x", "I")
	require.NoError(t, err)
	assert.NotEqual(t, field.Index(), method.Index(), "same fields under different tags are distinct entries")

	fieldAgain, err := st.addConstantMemberRef(ConstantFieldrefTag, "a/B", "x", "I")
	require.NoError(t, err)
	assert.Same(t, field, fieldAgain)
}

func TestAddConstantDispatch(t *testing.T) {
	st := NewSymbolTable(nil)

	tests := []struct {
		name  string
		value interface{}
		tag   int
	}{
		{"int", int32(7), ConstantIntegerTag},
		{"long", int64(7), ConstantLongTag},
		{"float", float32(1.5), ConstantFloatTag},
		{"double", float64(1.5), ConstantDoubleTag},
		{"string", "s", ConstantStringTag},
		{"class type", GetObjectType("a/B"), ConstantClassTag},
		{"method type", GetMethodType("()V"), ConstantMethodTypeTag},
		{"handle", Handle{Tag: HInvokeStatic, Owner: "a/B", Name: "m", Descriptor: "()V"}, ConstantMethodHandleTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := st.addConstant(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, sym.Tag())
		})
	}

	_, err := st.addConstant(struct{}{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBootstrapMethodDedupBySerializedForm(t *testing.T) {
	st := NewSymbolTable(nil)
	handle := Handle{Tag: HInvokeStatic, Owner: "a/B", Name: "bsm",
		Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;"}

	first, err := st.addBootstrapMethodFromHandle(handle, []interface{}{int32(1), "x"})
	require.NoError(t, err)
	second, err := st.addBootstrapMethodFromHandle(handle, []interface{}{int32(1), "x"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, st.bootstrapMethodCount)

	third, err := st.addBootstrapMethodFromHandle(handle, []interface{}{int32(2), "x"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Index(), third.Index())
	assert.Equal(t, 2, st.bootstrapMethodCount)
}

func TestInvokeDynamicDedup(t *testing.T) {
	st := NewSymbolTable(nil)
	handle := Handle{Tag: HInvokeStatic, Owner: "a/B", Name: "bsm", Descriptor: "()V"}

	first, err := st.addConstantInvokeDynamic("apply", "()V", handle, []interface{}{int32(1)})
	require.NoError(t, err)
	second, err := st.addConstantInvokeDynamic("apply", "()V", handle, []interface{}{int32(1)})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, st.bootstrapMethodCount)
}

func TestTypeTable(t *testing.T) {
	st := NewSymbolTable(nil)

	a := st.addType("a/A")
	assert.Equal(t, a, st.addType("a/A"))
	b := st.addType("a/B")
	assert.NotEqual(t, a, b)

	u := st.addUninitializedType("a/A", 12)
	assert.NotEqual(t, a, u)
	assert.Equal(t, int64(12), st.typeTableEntry(u).Data())

	// Type-table entries never reach the constant pool.
	assert.Equal(t, 1, st.ConstantPoolCount())
}

func TestCommonSuperType(t *testing.T) {
	st := NewSymbolTable(nil)
	tests := []struct {
		a, b, want string
	}{
		{"a/A", "a/A", "a/A"},
		{"a/A", "a/B", "java/lang/Object"},
		{"[I", "[J", "java/lang/Object"},
		{"[[I", "[I", "[Ljava/lang/Object;"},
		{"[La/A;", "[La/B;", "[Ljava/lang/Object;"},
		{"[La/A;", "a/A", "java/lang/Object"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, st.commonSuperType(tt.a, tt.b), "lub(%s, %s)", tt.a, tt.b)
	}
}

func TestMergedTypeMemoisation(t *testing.T) {
	st := NewSymbolTable(nil)
	a := st.addType("a/A")
	b := st.addType("a/B")

	m1 := st.addMergedType(a, b)
	m2 := st.addMergedType(b, a)
	assert.Equal(t, m1, m2, "merge is keyed order-independently")
	assert.Equal(t, "java/lang/Object", st.typeTableEntry(m1).Value())
}
