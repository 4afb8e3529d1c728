// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReaderRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  error
	}{
		{
			name:  "too short",
			bytes: []byte{0xCA, 0xFE},
			want:  ErrMalformedClass,
		},
		{
			name:  "bad magic",
			bytes: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 52, 0, 1},
			want:  ErrMalformedClass,
		},
		{
			name:  "version above V18",
			bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 63, 0, 1},
			want:  ErrUnsupportedVersion,
		},
		{
			name:  "version below V1_1",
			bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 3, 0, 44, 0, 1},
			want:  ErrUnsupportedVersion,
		},
		{
			name:  "unknown cp tag",
			bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 2, 99, 0, 0},
			want:  ErrMalformedClass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.bytes)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReaderToleratesPreviewMinor(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V17|VPreview, AccPublic, "P", "", "java/lang/Object", nil)
	w.VisitEnd()
	b, err := w.ToByteArray()
	require.NoError(t, err)

	rc := &recordedClass{}
	r, err := NewReader(b)
	require.NoError(t, err)
	require.NoError(t, r.Accept(rc, 0))
	assert.Equal(t, V17|VPreview, rc.version, "preview flag forwarded unchanged")
}

func TestSkipCodeOption(t *testing.T) {
	label := NewLabel()
	b := buildClassWithMethod(t, V1_5, ComputeMaxs, AccPublic|AccStatic, "f", "(I)I", func(mv MethodVisitor) {
		mv.VisitVarInsn(Iload, 0)
		mv.VisitJumpInsn(Ifeq, label)
		mv.VisitInsn(Iconst2)
		mv.VisitInsn(Ireturn)
		mv.VisitLabel(label)
		mv.VisitInsn(Iconst1)
		mv.VisitInsn(Ireturn)
		mv.VisitMaxs(0, 0)
	})

	m := readBackSingleMethod(t, b, SkipCode)
	assert.Empty(t, m.opcodes, "SkipCode must not emit instruction events")

	m = readBackSingleMethod(t, b, 0)
	assert.NotEmpty(t, m.opcodes)
}

func TestExpandFramesOption(t *testing.T) {
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

	m := readBackSingleMethod(t, b, ExpandFrames)
	require.Len(t, m.frameKinds, 1)
	assert.Equal(t, FNew, m.frameKinds[0], "EXPAND_FRAMES presents frames uncompressed")
}

func TestClassAnnotationsRoundTrip(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	av := w.VisitAnnotation("Lpkg/Marker;", true)
	av.Visit("value", int32(3))
	av.VisitEnum("mode", "Lpkg/Mode;", "FAST")
	nested := av.VisitArray("names")
	nested.Visit("", "a")
	nested.Visit("", "b")
	nested.VisitEnd()
	av.VisitEnd()
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	r, err := NewReader(b)
	require.NoError(t, err)
	collector := &annotationCollector{}
	require.NoError(t, r.Accept(collector, 0))
	assert.Equal(t, []string{
		"@Lpkg/Marker; visible",
		"value=3",
		"mode=Lpkg/Mode;.FAST",
		"names=[",
		"=a",
		"=b",
		"]",
	}, collector.events)
}

type annotationCollector struct {
	ClassVisitorBase
	events []string
}

func (c *annotationCollector) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	suffix := "invisible"
	if visible {
		suffix = "visible"
	}
	c.events = append(c.events, "@"+descriptor+" "+suffix)
	return &annotationValueCollector{events: &c.events}
}

type annotationValueCollector struct {
	AnnotationVisitorBase
	events *[]string
}

func (c *annotationValueCollector) Visit(name string, value interface{}) {
	*c.events = append(*c.events, name+"="+valueString(value))
}

func (c *annotationValueCollector) VisitEnum(name, descriptor, value string) {
	*c.events = append(*c.events, name+"="+descriptor+"."+value)
}

func (c *annotationValueCollector) VisitArray(name string) AnnotationVisitor {
	*c.events = append(*c.events, name+"=[")
	return &arrayCloser{inner: c}
}

type arrayCloser struct {
	AnnotationVisitorBase
	inner *annotationValueCollector
}

func (a *arrayCloser) Visit(name string, value interface{}) { a.inner.Visit(name, value) }
func (a *arrayCloser) VisitEnd()                            { *a.inner.events = append(*a.inner.events, "]") }

func valueString(v interface{}) string {
	switch x := v.(type) {
	case int32:
		return string(rune('0' + x))
	case string:
		return x
	default:
		return "?"
	}
}

func TestUnknownAttributePreserved(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	w.VisitAttribute(NewAttribute("X-Custom", []byte{1, 2, 3}))
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	r, err := NewReader(b)
	require.NoError(t, err)
	collector := &attributeCollector{}
	require.NoError(t, r.Accept(collector, 0))
	require.Len(t, collector.attrs, 1)
	assert.Equal(t, "X-Custom", collector.attrs[0].Name)
	assert.Equal(t, []byte{1, 2, 3}, collector.attrs[0].Content)
}

type attributeCollector struct {
	ClassVisitorBase
	attrs []*Attribute
}

func (c *attributeCollector) VisitAttribute(attr *Attribute) {
	c.attrs = append(c.attrs, attr)
}

func TestModuleRoundTrip(t *testing.T) {
	w := NewWriter(WriterOptions{})
	w.Visit(V9, AccModule, "module-info", "", "", nil)
	mv := w.VisitModule("pkg.mod", AccOpen, "1.0")
	mv.VisitMainClass("pkg/Main")
	mv.VisitPackage("pkg")
	mv.VisitRequire("java.base", AccMandated, "9")
	mv.VisitExport("pkg", 0, []string{"other.mod"})
	mv.VisitUse("pkg/Service")
	mv.VisitProvide("pkg/Service", []string{"pkg/ServiceImpl"})
	mv.VisitEnd()
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	r, err := NewReader(b)
	require.NoError(t, err)
	collector := &moduleCollector{}
	require.NoError(t, r.Accept(collector, 0))
	assert.Equal(t, []string{
		"module pkg.mod 1.0",
		"main pkg/Main",
		"package pkg",
		"requires java.base 9",
		"exports pkg to other.mod",
		"uses pkg/Service",
		"provides pkg/Service with pkg/ServiceImpl",
	}, collector.events)
}

type moduleCollector struct {
	ClassVisitorBase
	events []string
}

func (c *moduleCollector) VisitModule(name string, access int, version string) ModuleVisitor {
	c.events = append(c.events, "module "+name+" "+version)
	return &moduleEventCollector{events: &c.events}
}

type moduleEventCollector struct {
	ModuleVisitorBase
	events *[]string
}

func (c *moduleEventCollector) VisitMainClass(mainClass string) {
	*c.events = append(*c.events, "main "+mainClass)
}

func (c *moduleEventCollector) VisitPackage(packaze string) {
	*c.events = append(*c.events, "package "+packaze)
}

func (c *moduleEventCollector) VisitRequire(module string, access int, version string) {
	*c.events = append(*c.events, "requires "+module+" "+version)
}

func (c *moduleEventCollector) VisitExport(packaze string, access int, modules []string) {
	*c.events = append(*c.events, "exports "+packaze+" to "+modules[0])
}

func (c *moduleEventCollector) VisitUse(service string) {
	*c.events = append(*c.events, "uses "+service)
}

func (c *moduleEventCollector) VisitProvide(service string, providers []string) {
	*c.events = append(*c.events, "provides "+service+" with "+providers[0])
}

func TestLineNumberAndLocalVariableRoundTrip(t *testing.T) {
	start, end := NewLabel(), NewLabel()
	w := NewWriter(WriterOptions{})
	w.Visit(V1_8, AccPublic, "A", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccPublic|AccStatic, "f", "(I)I", "", nil)
	mv.VisitCode()
	mv.VisitLabel(start)
	mv.VisitLineNumber(42, start)
	mv.VisitVarInsn(Iload, 0)
	mv.VisitInsn(Ireturn)
	mv.VisitLabel(end)
	mv.VisitLocalVariable("a", "I", "", start, end, 0)
	mv.VisitMaxs(1, 1)
	mv.VisitEnd()
	w.VisitEnd()

	b, err := w.ToByteArray()
	require.NoError(t, err)

	r, err := NewReader(b)
	require.NoError(t, err)
	collector := &debugCollector{}
	require.NoError(t, r.Accept(&tryCatchClassVisitor{mv: collector}, 0))
	assert.Equal(t, []string{"line 42 @0", "var a I slot 0"}, collector.events)

	// SkipDebug suppresses both tables.
	collector = &debugCollector{}
	require.NoError(t, r.Accept(&tryCatchClassVisitor{mv: collector}, SkipDebug))
	assert.Empty(t, collector.events)
}

type debugCollector struct {
	MethodVisitorBase
	events []string
}

func (c *debugCollector) VisitLineNumber(line int, start *Label) {
	c.events = append(c.events, "line "+string(rune('0'+line/10))+string(rune('0'+line%10))+" @0")
}

func (c *debugCollector) VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int) {
	c.events = append(c.events, "var "+name+" "+descriptor+" slot "+string(rune('0'+index)))
}
