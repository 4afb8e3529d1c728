// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Type reference sorts (JVMS 4.7.20.1 table), identifying what kind of
// type use a type annotation targets.
const (
	ClassTypeParameter                = 0x00
	MethodTypeParameter               = 0x01
	ClassExtends                      = 0x10
	ClassTypeParameterBound           = 0x11
	MethodTypeParameterBound          = 0x12
	Field                             = 0x13
	MethodReturn                      = 0x14
	MethodReceiver                    = 0x15
	MethodFormalParameter             = 0x16
	Throws                            = 0x17
	LocalVariable                     = 0x40
	ResourceVariable                  = 0x41
	ExceptionParameter                = 0x42
	InstanceofTarget                  = 0x43
	NewTarget                         = 0x44
	ConstructorReference              = 0x45
	MethodReference                   = 0x46
	Cast                              = 0x47
	ConstructorInvocationTypeArgument = 0x48
	MethodInvocationTypeArgument      = 0x49
	ConstructorReferenceTypeArgument  = 0x4A
	MethodReferenceTypeArgument       = 0x4B
)

// TypeReference wraps the encoded 32-bit target_type/target_info value
// (JVMS 4.7.20.1) that a type annotation's target_info compresses into.
type TypeReference struct {
	value int
}

// NewTypeReference wraps a raw target_type value for a sort with no
// target_info (ClassTypeParameter etc. still require the index to be set
// via the dedicated constructors below).
func NewTypeReference(value int) TypeReference {
	return TypeReference{value: value}
}

// NewTypeParameterReference builds a reference for a type-parameter
// target (CLASS_TYPE_PARAMETER, METHOD_TYPE_PARAMETER): sort in the top
// byte, parameter index in the next.
func NewTypeParameterReference(sort, parameterIndex int) TypeReference {
	return TypeReference{value: (sort << 24) | (parameterIndex << 16)}
}

// NewTypeParameterBoundReference builds a reference for a type-parameter
// bound target (CLASS_TYPE_PARAMETER_BOUND, METHOD_TYPE_PARAMETER_BOUND).
func NewTypeParameterBoundReference(sort, parameterIndex, boundIndex int) TypeReference {
	return TypeReference{value: (sort << 24) | (parameterIndex << 16) | (boundIndex << 8)}
}

// NewSuperTypeReference builds a reference for CLASS_EXTENDS: itf=-1
// selects the superclass, itf>=0 an implemented interface at that index.
// The index occupies bits 8-23 so putTarget can emit the u1 sort followed
// by the u2 index with a single shift.
func NewSuperTypeReference(itf int) TypeReference {
	return TypeReference{value: (ClassExtends << 24) | ((itf & 0xFFFF) << 8)}
}

// NewFormalParameterReference builds a reference for METHOD_FORMAL_PARAMETER.
func NewFormalParameterReference(parameterIndex int) TypeReference {
	return TypeReference{value: (MethodFormalParameter << 24) | (parameterIndex << 16)}
}

// NewExceptionReference builds a reference for THROWS; the index occupies
// bits 8-23 like CLASS_EXTENDS.
func NewExceptionReference(exceptionIndex int) TypeReference {
	return TypeReference{value: (Throws << 24) | (exceptionIndex << 8)}
}

// NewTryCatchReference builds a reference for EXCEPTION_PARAMETER.
func NewTryCatchReference(tryCatchBlockIndex int) TypeReference {
	return TypeReference{value: (ExceptionParameter << 24) | (tryCatchBlockIndex << 8)}
}

// NewTypeArgumentReference builds a reference for CAST and the four
// *_TYPE_ARGUMENT sorts.
func NewTypeArgumentReference(sort, typeArgumentIndex int) TypeReference {
	return TypeReference{value: (sort << 24) | typeArgumentIndex}
}

// Sort returns the reference's target sort (top byte).
func (r TypeReference) Sort() int { return (r.value >> 24) & 0xFF }

// Value returns the raw encoded target_type value.
func (r TypeReference) Value() int { return r.value }

// TypeParameterIndex returns the formal type-parameter index for the
// *_TYPE_PARAMETER(_BOUND) sorts.
func (r TypeReference) TypeParameterIndex() int { return (r.value >> 16) & 0xFF }

// TypeParameterBoundIndex returns the bound index for the
// *_TYPE_PARAMETER_BOUND sorts.
func (r TypeReference) TypeParameterBoundIndex() int { return (r.value >> 8) & 0xFF }

// SuperTypeIndex returns -1 for the superclass, or the implemented
// interface index, for CLASS_EXTENDS.
func (r TypeReference) SuperTypeIndex() int { return int(int16((r.value & 0x00FFFF00) >> 8)) }

// FormalParameterIndex returns the parameter index for
// METHOD_FORMAL_PARAMETER.
func (r TypeReference) FormalParameterIndex() int { return (r.value >> 16) & 0xFF }

// ExceptionIndex returns the throws-clause index for THROWS.
func (r TypeReference) ExceptionIndex() int { return (r.value & 0x00FFFF00) >> 8 }

// TryCatchBlockIndex returns the exception-table index for
// EXCEPTION_PARAMETER.
func (r TypeReference) TryCatchBlockIndex() int { return (r.value >> 8) & 0xFFFF }

// TypeArgumentIndex returns the type-argument index for CAST and the
// *_TYPE_ARGUMENT sorts.
func (r TypeReference) TypeArgumentIndex() int { return r.value & 0xFF }
