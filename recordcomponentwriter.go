// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// RecordComponentWriter assembles one record_component_info structure of
// the Record attribute (JVMS 4.7.30).
type RecordComponentWriter struct {
	symbols *SymbolTable

	nameIndex       int
	descriptorIndex int
	signatureIndex  int

	lastRuntimeVisibleAnnotation       *AnnotationWriter
	lastRuntimeInvisibleAnnotation     *AnnotationWriter
	lastRuntimeVisibleTypeAnnotation   *AnnotationWriter
	lastRuntimeInvisibleTypeAnnotation *AnnotationWriter

	attributes attributeList

	next *RecordComponentWriter
}

func newRecordComponentWriter(symbols *SymbolTable, name, descriptor, signature string) *RecordComponentWriter {
	rw := &RecordComponentWriter{
		symbols:         symbols,
		nameIndex:       symbols.utf8Index(name),
		descriptorIndex: symbols.utf8Index(descriptor),
	}
	if signature != "" {
		rw.signatureIndex = symbols.utf8Index(signature)
	}
	return rw
}

func (rw *RecordComponentWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if visible {
		rw.lastRuntimeVisibleAnnotation = newAnnotationWriter(rw.symbols, descriptor, rw.lastRuntimeVisibleAnnotation)
		return rw.lastRuntimeVisibleAnnotation
	}
	rw.lastRuntimeInvisibleAnnotation = newAnnotationWriter(rw.symbols, descriptor, rw.lastRuntimeInvisibleAnnotation)
	return rw.lastRuntimeInvisibleAnnotation
}

func (rw *RecordComponentWriter) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if visible {
		rw.lastRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(rw.symbols, typeRef, typePath, descriptor, rw.lastRuntimeVisibleTypeAnnotation)
		return rw.lastRuntimeVisibleTypeAnnotation
	}
	rw.lastRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(rw.symbols, typeRef, typePath, descriptor, rw.lastRuntimeInvisibleTypeAnnotation)
	return rw.lastRuntimeInvisibleTypeAnnotation
}

func (rw *RecordComponentWriter) VisitAttribute(attr *Attribute) {
	rw.attributes.add(attr)
}

func (rw *RecordComponentWriter) VisitEnd() {}

func (rw *RecordComponentWriter) computeRecordComponentInfoSize() int {
	size := 6
	if rw.signatureIndex != 0 {
		rw.symbols.utf8Index(AttrSignature)
		size += 8
	}
	size += annotationsSize(rw.symbols, AttrRuntimeVisibleAnnotations, rw.lastRuntimeVisibleAnnotation)
	size += annotationsSize(rw.symbols, AttrRuntimeInvisibleAnnotations, rw.lastRuntimeInvisibleAnnotation)
	size += annotationsSize(rw.symbols, AttrRuntimeVisibleTypeAnnotations, rw.lastRuntimeVisibleTypeAnnotation)
	size += annotationsSize(rw.symbols, AttrRuntimeInvisibleTypeAnnotations, rw.lastRuntimeInvisibleTypeAnnotation)
	for a := rw.attributes.head; a != nil; a = a.nextAttribute {
		rw.symbols.utf8Index(a.Name)
	}
	size += rw.attributes.computeSize()
	return size
}

func (rw *RecordComponentWriter) putRecordComponentInfo(out *ByteVector) error {
	out.PutShort(rw.nameIndex)
	out.PutShort(rw.descriptorIndex)

	attributeCount := rw.attributes.n
	if rw.signatureIndex != 0 {
		attributeCount++
	}
	if rw.lastRuntimeVisibleAnnotation != nil {
		attributeCount++
	}
	if rw.lastRuntimeInvisibleAnnotation != nil {
		attributeCount++
	}
	if rw.lastRuntimeVisibleTypeAnnotation != nil {
		attributeCount++
	}
	if rw.lastRuntimeInvisibleTypeAnnotation != nil {
		attributeCount++
	}
	out.PutShort(attributeCount)

	if rw.signatureIndex != 0 {
		out.PutShort(rw.symbols.utf8Index(AttrSignature))
		out.PutInt(2)
		out.PutShort(rw.signatureIndex)
	}
	putAnnotations(out, rw.symbols, AttrRuntimeVisibleAnnotations, rw.lastRuntimeVisibleAnnotation)
	putAnnotations(out, rw.symbols, AttrRuntimeInvisibleAnnotations, rw.lastRuntimeInvisibleAnnotation)
	putAnnotations(out, rw.symbols, AttrRuntimeVisibleTypeAnnotations, rw.lastRuntimeVisibleTypeAnnotation)
	putAnnotations(out, rw.symbols, AttrRuntimeInvisibleTypeAnnotations, rw.lastRuntimeInvisibleTypeAnnotation)
	for a := rw.attributes.head; a != nil; a = a.nextAttribute {
		if err := a.putAttribute(out, rw.symbols); err != nil {
			return err
		}
	}
	return nil
}
