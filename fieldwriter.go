// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// FieldWriter assembles one field_info structure. It is created by
// Writer.VisitField and linked into the writer's field list; its
// computeFieldInfoSize/putFieldInfo pair is driven by
// Writer.ToByteArray.
type FieldWriter struct {
	symbols *SymbolTable

	accessFlags        int
	nameIndex          int
	descriptorIndex    int
	signatureIndex     int
	constantValueIndex int

	lastRuntimeVisibleAnnotation       *AnnotationWriter
	lastRuntimeInvisibleAnnotation     *AnnotationWriter
	lastRuntimeVisibleTypeAnnotation   *AnnotationWriter
	lastRuntimeInvisibleTypeAnnotation *AnnotationWriter

	attributes attributeList

	next *FieldWriter
}

func newFieldWriter(symbols *SymbolTable, access int, name, descriptor, signature string, constantValue interface{}) *FieldWriter {
	fw := &FieldWriter{
		symbols:         symbols,
		accessFlags:     access,
		nameIndex:       symbols.utf8Index(name),
		descriptorIndex: symbols.utf8Index(descriptor),
	}
	if signature != "" {
		fw.signatureIndex = symbols.utf8Index(signature)
	}
	if constantValue != nil {
		fw.constantValueIndex = symbols.constantIndex(constantValue)
	}
	return fw
}

func (fw *FieldWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if visible {
		fw.lastRuntimeVisibleAnnotation = newAnnotationWriter(fw.symbols, descriptor, fw.lastRuntimeVisibleAnnotation)
		return fw.lastRuntimeVisibleAnnotation
	}
	fw.lastRuntimeInvisibleAnnotation = newAnnotationWriter(fw.symbols, descriptor, fw.lastRuntimeInvisibleAnnotation)
	return fw.lastRuntimeInvisibleAnnotation
}

func (fw *FieldWriter) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if visible {
		fw.lastRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(fw.symbols, typeRef, typePath, descriptor, fw.lastRuntimeVisibleTypeAnnotation)
		return fw.lastRuntimeVisibleTypeAnnotation
	}
	fw.lastRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(fw.symbols, typeRef, typePath, descriptor, fw.lastRuntimeInvisibleTypeAnnotation)
	return fw.lastRuntimeInvisibleTypeAnnotation
}

func (fw *FieldWriter) VisitAttribute(attr *Attribute) {
	fw.attributes.add(attr)
}

func (fw *FieldWriter) VisitEnd() {}

// computeFieldInfoSize returns the field_info byte size, registering the
// attribute-name constants it will need (this must run before the
// constant pool is serialized).
func (fw *FieldWriter) computeFieldInfoSize() int {
	size := 8
	if fw.constantValueIndex != 0 {
		fw.symbols.utf8Index(AttrConstantValue)
		size += 8
	}
	if fw.accessFlags&AccSynthetic != 0 && fw.symbols.majorVersion < 49 {
		fw.symbols.utf8Index(AttrSynthetic)
		size += 6
	}
	if fw.signatureIndex != 0 {
		fw.symbols.utf8Index(AttrSignature)
		size += 8
	}
	if fw.accessFlags&AccDeprecated != 0 {
		fw.symbols.utf8Index(AttrDeprecated)
		size += 6
	}
	size += annotationsSize(fw.symbols, AttrRuntimeVisibleAnnotations, fw.lastRuntimeVisibleAnnotation)
	size += annotationsSize(fw.symbols, AttrRuntimeInvisibleAnnotations, fw.lastRuntimeInvisibleAnnotation)
	size += annotationsSize(fw.symbols, AttrRuntimeVisibleTypeAnnotations, fw.lastRuntimeVisibleTypeAnnotation)
	size += annotationsSize(fw.symbols, AttrRuntimeInvisibleTypeAnnotations, fw.lastRuntimeInvisibleTypeAnnotation)
	for a := fw.attributes.head; a != nil; a = a.nextAttribute {
		fw.symbols.utf8Index(a.Name)
	}
	size += fw.attributes.computeSize()
	return size
}

func (fw *FieldWriter) putFieldInfo(out *ByteVector) error {
	useSyntheticAttribute := fw.symbols.majorVersion < 49
	mask := AccSynthetic
	if !useSyntheticAttribute {
		mask = 0
	}
	out.PutShort(fw.accessFlags &^ mask & 0xFFFF)
	out.PutShort(fw.nameIndex)
	out.PutShort(fw.descriptorIndex)

	attributeCount := fw.attributes.n
	if fw.constantValueIndex != 0 {
		attributeCount++
	}
	if fw.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		attributeCount++
	}
	if fw.signatureIndex != 0 {
		attributeCount++
	}
	if fw.accessFlags&AccDeprecated != 0 {
		attributeCount++
	}
	if fw.lastRuntimeVisibleAnnotation != nil {
		attributeCount++
	}
	if fw.lastRuntimeInvisibleAnnotation != nil {
		attributeCount++
	}
	if fw.lastRuntimeVisibleTypeAnnotation != nil {
		attributeCount++
	}
	if fw.lastRuntimeInvisibleTypeAnnotation != nil {
		attributeCount++
	}
	out.PutShort(attributeCount)

	if fw.constantValueIndex != 0 {
		out.PutShort(fw.symbols.utf8Index(AttrConstantValue))
		out.PutInt(2)
		out.PutShort(fw.constantValueIndex)
	}
	if fw.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		out.PutShort(fw.symbols.utf8Index(AttrSynthetic))
		out.PutInt(0)
	}
	if fw.signatureIndex != 0 {
		out.PutShort(fw.symbols.utf8Index(AttrSignature))
		out.PutInt(2)
		out.PutShort(fw.signatureIndex)
	}
	if fw.accessFlags&AccDeprecated != 0 {
		out.PutShort(fw.symbols.utf8Index(AttrDeprecated))
		out.PutInt(0)
	}
	putAnnotations(out, fw.symbols, AttrRuntimeVisibleAnnotations, fw.lastRuntimeVisibleAnnotation)
	putAnnotations(out, fw.symbols, AttrRuntimeInvisibleAnnotations, fw.lastRuntimeInvisibleAnnotation)
	putAnnotations(out, fw.symbols, AttrRuntimeVisibleTypeAnnotations, fw.lastRuntimeVisibleTypeAnnotation)
	putAnnotations(out, fw.symbols, AttrRuntimeInvisibleTypeAnnotations, fw.lastRuntimeInvisibleTypeAnnotation)
	for a := fw.attributes.head; a != nil; a = a.nextAttribute {
		if err := a.putAttribute(out, fw.symbols); err != nil {
			return err
		}
	}
	return nil
}
