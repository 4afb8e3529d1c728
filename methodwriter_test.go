// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildClassWithMethod(t *testing.T, version, flags int, access int, name, descriptor string, body func(mv MethodVisitor)) []byte {
	t.Helper()
	w := NewWriter(WriterOptions{Flags: flags})
	w.Visit(version, AccPublic, "pkg/T", "", "java/lang/Object", nil)
	mv := w.VisitMethod(access, name, descriptor, "", nil)
	mv.VisitCode()
	body(mv)
	mv.VisitEnd()
	w.VisitEnd()
	b, err := w.ToByteArray()
	require.NoError(t, err)
	return b
}

func readBackSingleMethod(t *testing.T, b []byte, options int) *recordedMethod {
	t.Helper()
	r, err := NewReader(b)
	require.NoError(t, err)
	rc := &recordedClass{}
	require.NoError(t, r.Accept(rc, options))
	require.Len(t, rc.methods, 1)
	return rc.methods[0]
}

func TestComputeMaxsSimpleBody(t *testing.T) {
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "two", "()I", func(mv MethodVisitor) {
		mv.VisitInsn(Iconst1)
		mv.VisitInsn(Iconst2)
		mv.VisitInsn(Iadd)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0) // ignored under ComputeMaxs
	})
	m := readBackSingleMethod(t, b, 0)
	assert.Equal(t, 2, m.maxStack)
	assert.Equal(t, 0, m.maxLocals, "static method with no locals")
}

func TestComputeMaxsInstanceMethodLocals(t *testing.T) {
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic, "two", "()I", func(mv MethodVisitor) {
		mv.VisitInsn(Iconst1)
		mv.VisitInsn(Iconst2)
		mv.VisitInsn(Iadd)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0)
	})
	m := readBackSingleMethod(t, b, 0)
	assert.Equal(t, 2, m.maxStack)
	assert.Equal(t, 1, m.maxLocals, "this occupies slot 0")
}

func TestComputeMaxsAcrossBranch(t *testing.T) {
	label := NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "pick", "(I)I", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		mv.VisitInsn(Iconst2)
		mv.VisitInsn(Ireturn)
		mv.VisitLabel(label)
		mv.VisitInsn(Iconst1)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0)
	})
	m := readBackSingleMethod(t, b, 0)
	assert.Equal(t, 1, m.maxStack)
	assert.Equal(t, 1, m.maxLocals)
}

func TestComputeFramesEmitsSingleSameFrame(t *testing.T) {
	label := NewLabel()
	b := buildClassWithMethod(t, V1_8, ComputeFrames, AccPublic|AccStatic, "f", "(I)I", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		mv.VisitInsn(Iconst2)
		mv.VisitInsn(Ireturn)
		mv.VisitLabel(label)
		mv.VisitInsn(Iconst1)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0)
	})
	m := readBackSingleMethod(t, b, 0)
	require.Len(t, m.frameKinds, 1, "exactly one frame, at the else branch")
	assert.Equal(t, FSame, m.frameKinds[0])
	assert.Equal(t, 1, m.maxStack)
	assert.Equal(t, 1, m.maxLocals)
}

func TestComputeFramesAppendFrame(t *testing.T) {
	label := NewLabel()
	b := buildClassWithMethod(t, V1_8, ComputeFrames, AccPublic|AccStatic, "loop", "(I)I", func(mv MethodVisitor) {
		mv.VisitInsn(Iconst0)
		mv.VisitVarInsn(Istore, 1)
		mv.VisitLabel(label)
		mv.VisitIincInsn(1, 1)
		mv.VisitVarInsn(Iload, 1)
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(IfIcmplt, label)
		mv.VisitVarInsn(Iload, 1)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0)
	})
	m := readBackSingleMethod(t, b, 0)
	require.Len(t, m.frameKinds, 1)
	assert.Equal(t, FAppend, m.frameKinds[0], "loop header gains one int local")
	assert.Equal(t, 2, m.maxStack)
	assert.Equal(t, 2, m.maxLocals)
}

func TestLongForwardJumpResolution(t *testing.T) {
	const filler = 32769
	label := NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "far", "(I)V", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		for i := 0; i < filler; i++ {
			mv.VisitInsn(Nop)
		}
		mv.VisitLabel(label)
		mv.VisitInsn(Return)
		mv.VisitMaxs(0, 0)
	})

	m := readBackSingleMethod(t, b, 0)
	// The conditional was inverted over a GOTO_W trampoline and the
	// synthetic opcode is gone from the emitted file.
	require.Len(t, m.jumpKinds, 2)
	assert.Equal(t, Ifne, m.jumpKinds[0])
	assert.Equal(t, GotoW, m.jumpKinds[1])
	assert.Equal(t, 1, m.maxStack)

	// A second identity round trip is stable (no pending synthetic
	// opcodes remain).
	r, err := NewReader(b)
	require.NoError(t, err)
	w, err := NewWriterFromReader(r, WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Accept(w, 0))
	again, err := w.ToByteArray()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestLongForwardJumpLength(t *testing.T) {
	const filler = 32769
	label := NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "far", "(I)V", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		for i := 0; i < filler; i++ {
			mv.VisitInsn(Nop)
		}
		mv.VisitLabel(label)
		mv.VisitInsn(Return)
		mv.VisitMaxs(0, 0)
	})

	short := NewLabel()
	near := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "far", "(I)V", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, short)
		mv.VisitInsn(Nop)
		mv.VisitLabel(short)
		mv.VisitInsn(Return)
		mv.VisitMaxs(0, 0)
	})
	// Same layout modulo the NOP run: the widened form costs 5 extra
	// bytes over the naive short encoding.
	assert.Equal(t, len(near)-1+filler+5, len(b))
}

func TestDistantBackwardJumpWidenedImmediately(t *testing.T) {
	const filler = 33000
	label := NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "back", "(I)V", func(mv MethodVisitor) {
		mv.VisitLabel(label)
		for i := 0; i < filler; i++ {
			mv.VisitInsn(Nop)
		}
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		mv.VisitInsn(Return)
		mv.VisitMaxs(0, 0)
	})
	m := readBackSingleMethod(t, b, 0)
	require.Len(t, m.jumpKinds, 2)
	assert.Equal(t, Ifne, m.jumpKinds[0])
	assert.Equal(t, GotoW, m.jumpKinds[1])
}

func TestTryCatchBlockOrderPreserved(t *testing.T) {
	start, end, handler1, handler2 := NewLabel(), NewLabel(), NewLabel(), NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "guarded", "()V", func(mv MethodVisitor) {
		mv.VisitTryCatchBlock(start, end, handler1, "java/io/IOException")
		mv.VisitTryCatchBlock(start, end, handler2, "")
		mv.VisitLabel(start)
		mv.VisitInsn(Nop)
		mv.VisitLabel(end)
		mv.VisitInsn(Return)
		mv.VisitLabel(handler1)
		mv.VisitInsn(Athrow)
		mv.VisitLabel(handler2)
		mv.VisitInsn(Athrow)
		mv.VisitMaxs(0, 0)
	})

	r, err := NewReader(b)
	require.NoError(t, err)
	var order []string
	require.NoError(t, r.Accept(&tryCatchClassVisitor{mv: &tryCatchCollector{order: &order}}, 0))
	assert.Equal(t, []string{"java/io/IOException", ""}, order)
}

type tryCatchClassVisitor struct {
	ClassVisitorBase
	mv MethodVisitor
}

func (v *tryCatchClassVisitor) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	return v.mv
}

type tryCatchCollector struct {
	MethodVisitorBase
	order *[]string
}

func (c *tryCatchCollector) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	*c.order = append(*c.order, typ)
}

func TestMethodTooLarge(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_5, AccPublic, "Big", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccPublic|AccStatic, "huge", "()V", "", nil)
	mv.VisitCode()
	for i := 0; i < 70000; i++ {
		mv.VisitInsn(Nop)
	}
	mv.VisitInsn(Return)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
	w.VisitEnd()

	_, err := w.ToByteArray()
	require.ErrorIs(t, err, ErrMethodTooLarge)
}

func TestInvokeDynamicSharedEntry(t *testing.T) {
	handle := Handle{Tag: HInvokeStatic, Owner: "java/lang/invoke/LambdaMetafactory", Name: "metafactory",
		Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;"}
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "pkg/T", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccPublic|AccStatic, "indy", "()V", "", nil)
	mv.VisitCode()
	mv.VisitInvokeDynamicInsn("run", "()V", handle, []interface{}{})
	mv.VisitInvokeDynamicInsn("run", "()V", handle, []interface{}{})
	mv.VisitInsn(Return)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
	w.VisitEnd()

	require.Equal(t, 1, w.symbols.bootstrapMethodCount, "identical call sites share one BootstrapMethods row")

	b, err := w.ToByteArray()
	require.NoError(t, err)
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(&recordedClass{}, 0))
}
