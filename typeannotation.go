// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// localVarTargetEntry is one row of a LocalVariable/ResourceVariable
// type-annotation target's table (JVMS 4.7.20.1 localvar_target).
type localVarTargetEntry struct {
	startPc, length, index int
}

// decodedTypeAnnotation is a fully-parsed type_annotation structure (JVMS
// 4.7.20), kept distinct from pendingAnnotation because its target_info
// may carry bytecode offsets or a local-variable table that must be
// replayed against labels once the owning method's Code attribute has
// been scanned for labels.
type decodedTypeAnnotation struct {
	typeRef       TypeReference
	typePath      TypePath
	descriptor    string
	visible       bool
	hasCodeOffset bool
	codeOffset    int
	localVarTable []localVarTargetEntry
	values        []annotationElement
}

// readTypeAnnotation decodes one type_annotation structure starting at
// offset, returning the decoded record and the offset just past it.
func (r *Reader) readTypeAnnotation(offset int, visible bool) (decodedTypeAnnotation, int, error) {
	var a decodedTypeAnnotation
	a.visible = visible
	targetType := r.readByte(offset)
	o := offset + 1
	sort := targetType
	switch sort {
	case ClassTypeParameter, MethodTypeParameter:
		paramIndex := r.readByte(o)
		a.typeRef = NewTypeParameterReference(sort, paramIndex)
		o++
	case ClassExtends:
		itf := int(int16(r.readUnsignedShort(o)))
		a.typeRef = NewSuperTypeReference(itf)
		o += 2
	case ClassTypeParameterBound, MethodTypeParameterBound:
		paramIndex := r.readByte(o)
		boundIndex := r.readByte(o + 1)
		a.typeRef = NewTypeParameterBoundReference(sort, paramIndex, boundIndex)
		o += 2
	case Field, MethodReturn, MethodReceiver:
		a.typeRef = NewTypeReference(sort << 24)
	case MethodFormalParameter:
		paramIndex := r.readByte(o)
		a.typeRef = NewFormalParameterReference(paramIndex)
		o++
	case Throws:
		excIndex := r.readUnsignedShort(o)
		a.typeRef = NewExceptionReference(excIndex)
		o += 2
	case LocalVariable, ResourceVariable:
		count := r.readUnsignedShort(o)
		o += 2
		table := make([]localVarTargetEntry, count)
		for i := 0; i < count; i++ {
			table[i] = localVarTargetEntry{
				startPc: r.readUnsignedShort(o),
				length:  r.readUnsignedShort(o + 2),
				index:   r.readUnsignedShort(o + 4),
			}
			o += 6
		}
		a.typeRef = NewTypeReference(sort << 24)
		a.localVarTable = table
	case ExceptionParameter:
		idx := r.readUnsignedShort(o)
		a.typeRef = NewTryCatchReference(idx)
		o += 2
	case InstanceofTarget, NewTarget, ConstructorReference, MethodReference:
		codeOffset := r.readUnsignedShort(o)
		a.typeRef = NewTypeReference(sort << 24)
		a.hasCodeOffset = true
		a.codeOffset = codeOffset
		o += 2
	case Cast, ConstructorInvocationTypeArgument, MethodInvocationTypeArgument,
		ConstructorReferenceTypeArgument, MethodReferenceTypeArgument:
		codeOffset := r.readUnsignedShort(o)
		argIndex := r.readByte(o + 2)
		a.typeRef = NewTypeArgumentReference(sort, argIndex)
		a.hasCodeOffset = true
		a.codeOffset = codeOffset
		o += 3
	default:
		return a, 0, fmt.Errorf("%w: unknown type annotation target_type %#x", ErrMalformedClass, targetType)
	}

	pathLength := r.readByte(o)
	o++
	if pathLength > 0 {
		raw := make([]byte, pathLength*2)
		copy(raw, r.b[o:o+pathLength*2])
		a.typePath = TypePath{path: raw}
	}
	o += pathLength * 2

	a.descriptor = r.readUTF8(o)
	o += 2
	pairCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < pairCount; i++ {
		name := r.readUTF8(o)
		value, next, err := r.readElementValue(o + 2)
		if err != nil {
			return a, 0, err
		}
		a.values = append(a.values, annotationElement{name: name, value: value})
		o = next
	}
	return a, o, nil
}

// isCodeTypeAnnotation reports whether a type annotation's target lives
// inside a Code attribute (instruction offsets, a local-variable table, or
// an exception-table entry) rather than on the enclosing declaration.
func isCodeTypeAnnotation(sort int) bool {
	switch sort {
	case LocalVariable, ResourceVariable, ExceptionParameter,
		InstanceofTarget, NewTarget, ConstructorReference, MethodReference, Cast,
		ConstructorInvocationTypeArgument, MethodInvocationTypeArgument,
		ConstructorReferenceTypeArgument, MethodReferenceTypeArgument:
		return true
	default:
		return false
	}
}

// readTypeAnnotations decodes every entry of a RuntimeVisible/
// InvisibleTypeAnnotations attribute body.
func (r *Reader) readTypeAnnotations(offset int, visible bool) ([]decodedTypeAnnotation, error) {
	count := r.readUnsignedShort(offset)
	o := offset + 2
	out := make([]decodedTypeAnnotation, 0, count)
	for i := 0; i < count; i++ {
		a, next, err := r.readTypeAnnotation(o, visible)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		o = next
	}
	return out, nil
}

// replayTypeAnnotationValues replays a decoded type annotation's
// element-value pairs against av (already obtained from the owning
// VisitTypeAnnotation/VisitInsnAnnotation/... call).
func replayTypeAnnotationValues(av AnnotationVisitor, a decodedTypeAnnotation) {
	if av == nil {
		return
	}
	for _, el := range a.values {
		replayElementValue(av, el.name, el.value)
	}
	av.VisitEnd()
}
