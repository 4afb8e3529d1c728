// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "strings"

// Type sorts (JVMS 4.3.2/4.3.3 descriptor grammar), ordered the way the
// descriptor's leading character space is carved up.
const (
	SortVoid    = 0
	SortBoolean = 1
	SortChar    = 2
	SortByte    = 3
	SortShort   = 4
	SortInt     = 5
	SortFloat   = 6
	SortLong    = 7
	SortDouble  = 8
	SortArray   = 9
	SortObject  = 10
	SortMethod  = 11
	SortInternal = 12 // internal name used where a descriptor is expected, e.g. NEW's operand
)

var primitiveDescriptors = "VZCBSIFJD"

// Type represents a field or method descriptor, decoded once and reused by
// the reader, writer, and frame engine.
type Type struct {
	sort       int
	descriptor string
	// valueBegin/valueEnd bound the type's own descriptor text within
	// descriptor, letting getArgumentTypes slice a method descriptor
	// without reallocating per argument.
	valueBegin int
	valueEnd   int
}

// GetType decodes a single field descriptor; a full method descriptor
// yields a SortMethod Type.
func GetType(descriptor string) Type {
	return newType(descriptor, 0, len(descriptor))
}

// GetObjectType returns the Type for an internal name, e.g. "java/lang/Object".
func GetObjectType(internalName string) Type {
	return Type{sort: SortInternal, descriptor: internalName, valueBegin: 0, valueEnd: len(internalName)}
}

// GetMethodType decodes a full "(args)ret" method descriptor.
func GetMethodType(descriptor string) Type {
	return Type{sort: SortMethod, descriptor: descriptor, valueBegin: 0, valueEnd: len(descriptor)}
}

func newType(buf string, offset, length int) Type {
	switch buf[offset] {
	case 'V':
		return Type{sort: SortVoid, descriptor: "V", valueBegin: 0, valueEnd: 1}
	case 'Z':
		return Type{sort: SortBoolean, descriptor: "Z", valueBegin: 0, valueEnd: 1}
	case 'C':
		return Type{sort: SortChar, descriptor: "C", valueBegin: 0, valueEnd: 1}
	case 'B':
		return Type{sort: SortByte, descriptor: "B", valueBegin: 0, valueEnd: 1}
	case 'S':
		return Type{sort: SortShort, descriptor: "S", valueBegin: 0, valueEnd: 1}
	case 'I':
		return Type{sort: SortInt, descriptor: "I", valueBegin: 0, valueEnd: 1}
	case 'F':
		return Type{sort: SortFloat, descriptor: "F", valueBegin: 0, valueEnd: 1}
	case 'J':
		return Type{sort: SortLong, descriptor: "J", valueBegin: 0, valueEnd: 1}
	case 'D':
		return Type{sort: SortDouble, descriptor: "D", valueBegin: 0, valueEnd: 1}
	case '[':
		end := offset + 1
		for buf[end] == '[' {
			end++
		}
		switch buf[end] {
		case 'L':
			for buf[end] != ';' {
				end++
			}
			end++
		default:
			end++
		}
		return Type{sort: SortArray, descriptor: buf[offset:end], valueBegin: 0, valueEnd: end - offset}
	case 'L':
		end := offset + 1
		for buf[end] != ';' {
			end++
		}
		return Type{sort: SortObject, descriptor: buf, valueBegin: offset + 1, valueEnd: end}
	case '(':
		end := offset
		for buf[end] != ')' {
			end++
		}
		return Type{sort: SortMethod, descriptor: buf[offset : len(buf)], valueBegin: offset, valueEnd: len(buf)}
	default:
		return Type{sort: SortInternal, descriptor: buf[offset:length], valueBegin: 0, valueEnd: length - offset}
	}
}

// Sort returns the type's SortXxx constant.
func (t Type) Sort() int { return t.sort }

// Descriptor returns the JVMS descriptor text for field/array/primitive
// and SortObject types ("L...;"), or the raw internal name for
// SortInternal.
func (t Type) Descriptor() string {
	switch t.sort {
	case SortObject:
		return "L" + t.descriptor[t.valueBegin:t.valueEnd] + ";"
	default:
		return t.descriptor
	}
}

// InternalName returns the slash-separated internal name for an object
// type, e.g. "java/lang/String".
func (t Type) InternalName() string {
	if t.sort == SortInternal {
		return t.descriptor
	}
	return t.descriptor[t.valueBegin:t.valueEnd]
}

// ClassName returns the dot-separated binary class name, e.g.
// "java.lang.String", the form used by visitInnerClass and reflection-style
// APIs.
func (t Type) ClassName() string {
	switch t.sort {
	case SortObject, SortInternal:
		return strings.ReplaceAll(t.InternalName(), "/", ".")
	case SortArray:
		return strings.ReplaceAll(t.descriptor, "/", ".")
	default:
		return primitiveClassName(t.sort)
	}
}

func primitiveClassName(sort int) string {
	switch sort {
	case SortVoid:
		return "void"
	case SortBoolean:
		return "boolean"
	case SortChar:
		return "char"
	case SortByte:
		return "byte"
	case SortShort:
		return "short"
	case SortInt:
		return "int"
	case SortFloat:
		return "float"
	case SortLong:
		return "long"
	case SortDouble:
		return "double"
	default:
		return ""
	}
}

// Size returns the number of local-variable/stack slots this type occupies:
// 2 for long/double, 1 for everything else (including void's zero is
// handled separately by callers that care).
func (t Type) Size() int {
	switch t.sort {
	case SortLong, SortDouble:
		return 2
	default:
		return 1
	}
}

// GetArgumentsAndReturnSizes computes, for a method descriptor, the
// combined argument size (including an implicit leading `this` slot) and
// the return size, packed as (argsSize << 2) | returnSize, matching the
// layout MethodWriter uses to seed max_locals before any CODE is visited.
func GetArgumentsAndReturnSizes(methodDescriptor string) int {
	argsSize := 1 // this
	i := 1        // skip '('
	for methodDescriptor[i] != ')' {
		switch methodDescriptor[i] {
		case 'J', 'D':
			argsSize += 2
			i++
		case '[':
			for methodDescriptor[i] == '[' {
				i++
			}
			if methodDescriptor[i] == 'L' {
				for methodDescriptor[i] != ';' {
					i++
				}
			}
			argsSize++
			i++
		case 'L':
			for methodDescriptor[i] != ';' {
				i++
			}
			i++
			argsSize++
		default:
			argsSize++
			i++
		}
	}
	returnDescriptor := methodDescriptor[i+1:]
	returnSize := 1
	if len(returnDescriptor) > 0 {
		switch returnDescriptor[0] {
		case 'V':
			returnSize = 0
		case 'J', 'D':
			returnSize = 2
		}
	}
	return (argsSize << 2) | returnSize
}

// isPrimitiveDescriptor reports whether c opens a primitive descriptor.
func isPrimitiveDescriptor(c byte) bool {
	return strings.IndexByte(primitiveDescriptors, c) >= 0
}
