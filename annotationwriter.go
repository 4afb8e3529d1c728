// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// AnnotationWriter accumulates one annotation's element_value pairs into a
// ByteVector shared with its enclosing attribute, and chains to the
// previously visited annotation of the same attribute so the final
// attribute can be sized and emitted in visit order.
type AnnotationWriter struct {
	symbols *SymbolTable

	// useNamedValues is false inside an array or an annotation-default,
	// whose element_value entries carry no element_name_index.
	useNamedValues bool

	annotation *ByteVector

	// numElementValuePairsOffset locates the count placeholder within
	// annotation, patched at VisitEnd; -1 for an annotation-default,
	// which has no count.
	numElementValuePairsOffset int
	numElementValuePairs       int

	previousAnnotation *AnnotationWriter
	nextAnnotation     *AnnotationWriter
}

// newAnnotationWriter starts a regular annotation: type_index followed by
// a num_element_value_pairs placeholder.
func newAnnotationWriter(symbols *SymbolTable, descriptor string, previous *AnnotationWriter) *AnnotationWriter {
	annotation := NewByteVector()
	annotation.PutShort(symbols.utf8Index(descriptor))
	annotation.PutShort(0)
	aw := &AnnotationWriter{
		symbols:                    symbols,
		useNamedValues:             true,
		annotation:                 annotation,
		numElementValuePairsOffset: annotation.Len() - 2,
		previousAnnotation:         previous,
	}
	if previous != nil {
		previous.nextAnnotation = aw
	}
	return aw
}

// newTypeAnnotationWriter starts a type annotation: target_info and
// target_path precede the regular annotation structure (JVMS 4.7.20).
func newTypeAnnotationWriter(symbols *SymbolTable, typeRef TypeReference, typePath TypePath, descriptor string, previous *AnnotationWriter) *AnnotationWriter {
	annotation := NewByteVector()
	putTarget(typeRef.Value(), annotation)
	putTypePath(typePath, annotation)
	annotation.PutShort(symbols.utf8Index(descriptor))
	annotation.PutShort(0)
	aw := &AnnotationWriter{
		symbols:                    symbols,
		useNamedValues:             true,
		annotation:                 annotation,
		numElementValuePairsOffset: annotation.Len() - 2,
		previousAnnotation:         previous,
	}
	if previous != nil {
		previous.nextAnnotation = aw
	}
	return aw
}

// putTarget serializes the target_type and target_info of a type
// annotation. The byte shapes per sort follow JVMS 4.7.20.1; the packed
// TypeReference value is laid out so each shape is a shift away.
func putTarget(typeRefValue int, out *ByteVector) {
	switch typeRefValue >> 24 & 0xFF {
	case ClassTypeParameter, MethodTypeParameter, MethodFormalParameter:
		out.PutShort(typeRefValue >> 16)
	case Field, MethodReturn, MethodReceiver:
		out.PutByte(byte(typeRefValue >> 24))
	case Cast, ConstructorInvocationTypeArgument, MethodInvocationTypeArgument,
		ConstructorReferenceTypeArgument, MethodReferenceTypeArgument:
		out.PutInt(int32(typeRefValue))
	default:
		// CLASS_EXTENDS, *_TYPE_PARAMETER_BOUND, THROWS,
		// EXCEPTION_PARAMETER, INSTANCEOF, NEW, *_REFERENCE: u1 sort
		// followed by the u2 payload held in bits 8-23.
		out.Put12(typeRefValue>>24, (typeRefValue&0x00FFFF00)>>8)
	}
}

// putTypePath serializes a type_path structure.
func putTypePath(typePath TypePath, out *ByteVector) {
	out.PutByte(byte(typePath.Length()))
	for i := 0; i < typePath.Length(); i++ {
		out.Put11(typePath.Step(i), typePath.StepArgument(i))
	}
}

// Visit writes one primitive, string, type, or primitive-array element
// value.
func (aw *AnnotationWriter) Visit(name string, value interface{}) {
	aw.numElementValuePairs++
	if aw.useNamedValues {
		aw.annotation.PutShort(aw.symbols.utf8Index(name))
	}
	switch v := value.(type) {
	case Byte:
		aw.annotation.Put12('B', aw.symbols.constantIndex(int32(v)))
	case Boolean:
		aw.annotation.Put12('Z', aw.symbols.constantIndex(v))
	case bool:
		aw.annotation.Put12('Z', aw.symbols.constantIndex(v))
	case Char:
		aw.annotation.Put12('C', aw.symbols.constantIndex(int32(v)))
	case Short:
		aw.annotation.Put12('S', aw.symbols.constantIndex(int32(v)))
	case int:
		aw.annotation.Put12('I', aw.symbols.constantIndex(int32(v)))
	case int32:
		aw.annotation.Put12('I', aw.symbols.constantIndex(v))
	case int64:
		aw.annotation.Put12('J', aw.symbols.constantIndex(v))
	case float32:
		aw.annotation.Put12('F', aw.symbols.constantIndex(v))
	case float64:
		aw.annotation.Put12('D', aw.symbols.constantIndex(v))
	case string:
		aw.annotation.Put12('s', aw.symbols.utf8Index(v))
	case Type:
		aw.annotation.Put12('c', aw.symbols.utf8Index(v.Descriptor()))
	case []byte:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('B', aw.symbols.constantIndex(int32(int8(e))))
		}
	case []bool:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('Z', aw.symbols.constantIndex(e))
		}
	case []Short:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('S', aw.symbols.constantIndex(int32(e)))
		}
	case []Char:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('C', aw.symbols.constantIndex(int32(e)))
		}
	case []int32:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('I', aw.symbols.constantIndex(e))
		}
	case []int64:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('J', aw.symbols.constantIndex(e))
		}
	case []float32:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('F', aw.symbols.constantIndex(e))
		}
	case []float64:
		aw.putArrayHeader(len(v))
		for _, e := range v {
			aw.annotation.Put12('D', aw.symbols.constantIndex(e))
		}
	default:
		aw.symbols.recordError(errInvalidAnnotationValue(value))
	}
}

func (aw *AnnotationWriter) putArrayHeader(count int) {
	aw.annotation.Put12('[', count)
}

// VisitEnum writes one enum_const_value element.
func (aw *AnnotationWriter) VisitEnum(name, descriptor, value string) {
	aw.numElementValuePairs++
	if aw.useNamedValues {
		aw.annotation.PutShort(aw.symbols.utf8Index(name))
	}
	aw.annotation.Put12('e', aw.symbols.utf8Index(descriptor))
	aw.annotation.PutShort(aw.symbols.utf8Index(value))
}

// VisitAnnotation starts a nested annotation value, written into the same
// underlying vector.
func (aw *AnnotationWriter) VisitAnnotation(name, descriptor string) AnnotationVisitor {
	aw.numElementValuePairs++
	if aw.useNamedValues {
		aw.annotation.PutShort(aw.symbols.utf8Index(name))
	}
	aw.annotation.PutByte('@')
	aw.annotation.PutShort(aw.symbols.utf8Index(descriptor))
	aw.annotation.PutShort(0)
	return &AnnotationWriter{
		symbols:                    aw.symbols,
		useNamedValues:             true,
		annotation:                 aw.annotation,
		numElementValuePairsOffset: aw.annotation.Len() - 2,
	}
}

// VisitArray starts an array value; its elements are unnamed.
func (aw *AnnotationWriter) VisitArray(name string) AnnotationVisitor {
	aw.numElementValuePairs++
	if aw.useNamedValues {
		aw.annotation.PutShort(aw.symbols.utf8Index(name))
	}
	aw.annotation.Put12('[', 0)
	return &AnnotationWriter{
		symbols:                    aw.symbols,
		useNamedValues:             false,
		annotation:                 aw.annotation,
		numElementValuePairsOffset: aw.annotation.Len() - 2,
	}
}

// VisitEnd patches the pending pair/element count.
func (aw *AnnotationWriter) VisitEnd() {
	if aw.numElementValuePairsOffset != -1 {
		aw.annotation.PutShortAt(aw.numElementValuePairsOffset, aw.numElementValuePairs)
	}
}

// annotationsSize returns the full serialized size (including the 6-byte
// attribute header) of the annotation chain ending at last, registering
// the attribute name constant; 0 when the chain is empty.
func annotationsSize(symbols *SymbolTable, attributeName string, last *AnnotationWriter) int {
	if last == nil {
		return 0
	}
	symbols.utf8Index(attributeName)
	size := 8
	for aw := last; aw != nil; aw = aw.previousAnnotation {
		size += aw.annotation.Len()
	}
	return size
}

// putAnnotations writes the Runtime(In)Visible(Type)Annotations attribute
// for the chain ending at last, in visit order.
func putAnnotations(out *ByteVector, symbols *SymbolTable, attributeName string, last *AnnotationWriter) {
	if last == nil {
		return
	}
	attributeLength := 2
	numAnnotations := 0
	first := last
	for aw := last; aw != nil; aw = aw.previousAnnotation {
		attributeLength += aw.annotation.Len()
		numAnnotations++
		first = aw
	}
	out.PutShort(symbols.utf8Index(attributeName))
	out.PutInt(int32(attributeLength))
	out.PutShort(numAnnotations)
	for aw := first; aw != nil; aw = aw.nextAnnotation {
		out.PutByteArray(aw.annotation.Bytes(), 0, aw.annotation.Len())
	}
}

// parameterAnnotationsSize and putParameterAnnotations handle the
// Runtime(In)VisibleParameterAnnotations attribute, whose body is one
// annotation list per formal parameter.
func parameterAnnotationsSize(symbols *SymbolTable, attributeName string, annotationWriters []*AnnotationWriter, annotableParameterCount int) int {
	if annotableParameterCount == 0 {
		return 0
	}
	symbols.utf8Index(attributeName)
	size := 7 + 2*annotableParameterCount
	for i := 0; i < annotableParameterCount; i++ {
		for aw := annotationWriters[i]; aw != nil; aw = aw.previousAnnotation {
			size += aw.annotation.Len()
		}
	}
	return size
}

func putParameterAnnotations(out *ByteVector, symbols *SymbolTable, attributeName string, annotationWriters []*AnnotationWriter, annotableParameterCount int) {
	if annotableParameterCount == 0 {
		return
	}
	attributeLength := 1 + 2*annotableParameterCount
	for i := 0; i < annotableParameterCount; i++ {
		for aw := annotationWriters[i]; aw != nil; aw = aw.previousAnnotation {
			attributeLength += aw.annotation.Len()
		}
	}
	out.PutShort(symbols.utf8Index(attributeName))
	out.PutInt(int32(attributeLength))
	out.PutByte(byte(annotableParameterCount))
	for i := 0; i < annotableParameterCount; i++ {
		numAnnotations := 0
		var first *AnnotationWriter
		for aw := annotationWriters[i]; aw != nil; aw = aw.previousAnnotation {
			numAnnotations++
			first = aw
		}
		out.PutShort(numAnnotations)
		for aw := first; aw != nil; aw = aw.nextAnnotation {
			out.PutByteArray(aw.annotation.Bytes(), 0, aw.annotation.Len())
		}
	}
}
