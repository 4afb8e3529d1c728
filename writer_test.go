// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedClass captures the events a Reader emits, for structural
// assertions on writer output.
type recordedClass struct {
	ClassVisitorBase

	version    int
	access     int
	name       string
	superName  string
	interfaces []string
	source     string

	innerClasses [][4]interface{}

	fields  []recordedField
	methods []*recordedMethod
}

type recordedField struct {
	access           int
	name, descriptor string
	value            interface{}
}

type recordedMethod struct {
	access           int
	name, descriptor string

	opcodes    []int
	jumpKinds  []int
	frameKinds []int
	maxStack   int
	maxLocals  int
}

func (rc *recordedClass) Visit(version, access int, name, signature, superName string, interfaces []string) {
	rc.version = version
	rc.access = access
	rc.name = name
	rc.superName = superName
	rc.interfaces = interfaces
}

func (rc *recordedClass) VisitSource(source, debug string) { rc.source = source }

func (rc *recordedClass) VisitInnerClass(name, outerName, innerName string, access int) {
	rc.innerClasses = append(rc.innerClasses, [4]interface{}{name, outerName, innerName, access})
}

func (rc *recordedClass) VisitField(access int, name, descriptor, signature string, value interface{}) FieldVisitor {
	rc.fields = append(rc.fields, recordedField{access: access, name: name, descriptor: descriptor, value: value})
	return nil
}

func (rc *recordedClass) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	m := &recordedMethod{access: access, name: name, descriptor: descriptor}
	rc.methods = append(rc.methods, m)
	return &recordingMethodVisitor{method: m}
}

type recordingMethodVisitor struct {
	MethodVisitorBase
	method *recordedMethod
}

func (rm *recordingMethodVisitor) VisitInsn(opcode int) {
	rm.method.opcodes = append(rm.method.opcodes, opcode)
}

func (rm *recordingMethodVisitor) VisitVarInsn(opcode, varIndex int) {
	rm.method.opcodes = append(rm.method.opcodes, opcode)
}

func (rm *recordingMethodVisitor) VisitJumpInsn(opcode int, label *Label) {
	rm.method.opcodes = append(rm.method.opcodes, opcode)
	rm.method.jumpKinds = append(rm.method.jumpKinds, opcode)
}

func (rm *recordingMethodVisitor) VisitFrame(frameType, numLocal int, local []interface{}, numStack int, stack []interface{}) {
	rm.method.frameKinds = append(rm.method.frameKinds, frameType)
}

func (rm *recordingMethodVisitor) VisitMaxs(maxStack, maxLocals int) {
	rm.method.maxStack = maxStack
	rm.method.maxLocals = maxLocals
}

func TestEmptyClassEmission(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	assert.Equal(t, []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00, 0x34}, b[:8])
	// cp_count: Utf8 A, Class A, Utf8 Object, Class Object, plus slot 0.
	assert.Equal(t, 5, int(b[8])<<8|int(b[9]))
	// fields_count, methods_count, attributes_count all zero.
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, b[len(b)-6:])

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	assert.Equal(t, V1_8, rc.version)
	assert.Equal(t, AccPublic, rc.access)
	assert.Equal(t, "A", rc.name)
	assert.Equal(t, "java/lang/Object", rc.superName)
	assert.Empty(t, rc.fields)
	assert.Empty(t, rc.methods)
}

func TestStaticFieldEmission(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	fv := w.VisitField(AccPublic|AccStatic, "x", "I", "", nil)
	fv.VisitEnd()
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	require.Len(t, rc.fields, 1)
	assert.Equal(t, AccPublic|AccStatic, rc.fields[0].access)
	assert.Equal(t, "x", rc.fields[0].name)
	assert.Equal(t, "I", rc.fields[0].descriptor)
	assert.Nil(t, rc.fields[0].value)
}

func TestConstantValueField(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	w.VisitField(AccPublic|AccStatic|AccFinal, "N", "I", "", int32(42)).VisitEnd()
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	require.Len(t, rc.fields, 1)
	assert.Equal(t, int32(42), rc.fields[0].value)
}

func TestInnerClassDuplicateSuppression(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	w.VisitInnerClass("A$B", "A", "B", AccPublic)
	w.VisitInnerClass("A$B", "A", "B", AccPublic)
	w.VisitInnerClass("A$C", "A", "C", AccPublic)
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	require.Len(t, rc.innerClasses, 2)
	assert.Equal(t, "A$B", rc.innerClasses[0][0])
	assert.Equal(t, "A$C", rc.innerClasses[1][0])
}

func TestDeprecatedFlagRoundTrip(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic|AccDeprecated, "A", "", "java/lang/Object", nil)
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	// The Deprecated attribute folds back into the internal high bit.
	assert.NotZero(t, rc.access&AccDeprecated)
	assert.Equal(t, AccPublic, rc.access&0xFFFF)
}

func TestSignatureAndSourceEmission(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V11, AccPublic, "Box", "<T:Ljava/lang/Object;>Ljava/lang/Object;", "java/lang/Object", nil)
	w.VisitSource("Box.java", "")
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	assert.Equal(t, "Box.java", rc.source)
}

func TestRoundTripIdentityWithSeededWriter(t *testing.T) {
	src := NewWriter(WriterOptions{})
	src.Visit(V1_8, AccPublic, "pkg/Demo", "", "java/lang/Object", []string{"java/io/Serializable"})
	src.VisitSource("Demo.java", "")
	src.VisitField(AccPrivate, "count", "I", "", nil).VisitEnd()
	mv := src.VisitMethod(AccPublic|AccStatic, "add", "(II)I", "", nil)
	mv.VisitCode()
	mv.VisitVarInsn(Iload, 0)
	mv.VisitVarInsn(Iload, 1)
	mv.VisitInsn(Iadd)
	mv.VisitInsn(Ireturn)
	mv.VisitMaxs(2, 2)
	mv.VisitEnd()
	src.VisitEnd()

	original, err := src.ToByteArray()
	require.NoError(t, err)

	// Identity chain: reader into a writer seeded with it must be
	// byte-identical, with the method body going through copy-through.
	r, err := NewReader(original)
	require.NoError(t, err)
	w, err := NewWriterFromReader(r, WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Accept(w, 0))

	copied, err := w.ToByteArray()
	require.NoError(t, err)
	assert.Equal(t, original, copied)
	assert.NotNil(t, w.firstMethod.sourceBytes, "untransformed method should take the copy-through path")
}

func TestRoundTripIdentityUnseeded(t *testing.T) {
	src := NewWriter(WriterOptions{})
	src.Visit(V1_8, AccPublic, "pkg/Demo", "", "java/lang/Object", nil)
	mv := src.VisitMethod(AccPublic|AccStatic, "neg", "(I)I", "", nil)
	mv.VisitCode()
	mv.VisitVarInsn(Iload, 0)
	mv.VisitInsn(Ineg)
	mv.VisitInsn(Ireturn)
	mv.VisitMaxs(1, 1)
	mv.VisitEnd()
	src.VisitEnd()

	original, err := src.ToByteArray()
	require.NoError(t, err)

	r, err := NewReader(original)
	require.NoError(t, err)
	w := NewWriter(WriterOptions{})
	require.NoError(t, r.Accept(w, 0))
	rebuilt, err := w.ToByteArray()
	require.NoError(t, err)
	assert.Equal(t, original, rebuilt, "same event stream through a fresh writer reproduces the file")
}

func TestConstantPoolOverflow(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "Big", "", "java/lang/Object", nil)
	st := w.symbols
	var err error
	for i := 0; err == nil && i < 70000; i++ {
		_, err = st.addConstantInteger(int32(i))
	}
	require.ErrorIs(t, err, ErrClassTooLarge)
}
