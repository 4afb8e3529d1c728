// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/gojvm/classfile/internal/log"
)

// Options configures both Reader.Accept and the mmap-backed Open
// constructor, mirroring the teacher's pe.Options: a small struct of
// feature toggles plus a pluggable Logger.
type Options struct {
	// ParseFlags is OR'd from SkipCode, SkipDebug, SkipFrames,
	// ExpandFrames.
	ParseFlags int

	// Logger is wrapped in a log helper and kept on the Reader; no parse
	// step writes records to it. Defaults to a discarding logger when
	// nil.
	Logger log.Logger
}

// Reader parses a ClassFile byte array. Constructing one
// walks the constant pool once to index every entry's payload offset; the
// entries themselves are decoded lazily as the visitor walks them.
type Reader struct {
	b []byte

	// cpInfoOffsets[i] is the byte offset of cp entry i's payload, i.e.
	// b[cpInfoOffsets[i]-1] is the entry's tag byte. Index 0 is unused
	// (the constant pool is 1-based).
	cpInfoOffsets []int

	// constantUtf8Values memoises decoded Utf8 constants, since a single
	// Utf8 entry is frequently referenced by many other constants (every
	// Class, NameAndType, field/method name and descriptor).
	constantUtf8Values []string

	maxStringLength   int
	header            int // byte offset of access_flags, i.e. just after the constant pool
	constantPoolCount int

	// bootstrapMethodOffsets[i] is the byte offset of bootstrap method i
	// within the BootstrapMethods attribute body, precomputed once if the
	// constant pool contains any Dynamic/InvokeDynamic entry.
	bootstrapMethodOffsets []int

	mapped mmap.MMap
	file   *os.File

	parseFlags int
	helper     *log.Helper
}

// NewReader parses the constant-pool layout of b without invoking any
// visitor. b is retained, not copied.
func NewReader(b []byte) (*Reader, error) {
	return newReaderFlags(b, 0)
}

func newReaderFlags(b []byte, checkFlags int) (*Reader, error) {
	if len(b) < 10 {
		return nil, fmt.Errorf("%w: file too short", ErrMalformedClass)
	}
	if b[0] != 0xCA || b[1] != 0xFE || b[2] != 0xBA || b[3] != 0xBE {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedClass)
	}
	major := int(u16(b, 6))
	if major < MinSupportedMajor || major > MaxSupportedMajor {
		return nil, fmt.Errorf("%w: major version %d", ErrUnsupportedVersion, major)
	}

	r := &Reader{b: b}
	cpCount := int(u16(b, 8))
	r.constantPoolCount = cpCount
	r.cpInfoOffsets = make([]int, cpCount)
	r.constantUtf8Values = make([]string, cpCount)

	hasDynamic := false
	offset := 10
	for i := 1; i < cpCount; i++ {
		r.cpInfoOffsets[i] = offset + 1
		var size int
		tag := b[offset]
		switch int(tag) {
		case ConstantFieldrefTag, ConstantMethodrefTag, ConstantInterfaceMethodrefTag,
			ConstantIntegerTag, ConstantFloatTag, ConstantNameAndTypeTag,
			ConstantDynamicTag, ConstantInvokeDynamicTag:
			size = 5
			if int(tag) == ConstantDynamicTag || int(tag) == ConstantInvokeDynamicTag {
				hasDynamic = true
			}
		case ConstantLongTag, ConstantDoubleTag:
			size = 9
			i++
		case ConstantUtf8Tag:
			length := int(u16(b, offset+1))
			size = 3 + length
			if length > r.maxStringLength {
				r.maxStringLength = length
			}
		case ConstantMethodHandleTag:
			size = 4
		case ConstantClassTag, ConstantStringTag, ConstantMethodTypeTag,
			ConstantModuleTag, ConstantPackageTag:
			size = 3
		default:
			return nil, fmt.Errorf("%w: unknown constant pool tag %d at entry %d", ErrMalformedClass, tag, i)
		}
		offset += size
		if offset > len(b) {
			return nil, fmt.Errorf("%w: constant pool entry %d overruns buffer", ErrMalformedClass, i)
		}
	}
	r.header = offset
	if r.maxStringLength == 0 {
		r.maxStringLength = 1
	}
	if hasDynamic {
		if err := r.locateBootstrapMethods(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// locateBootstrapMethods walks past the class/field/method structure to
// find the class-level BootstrapMethods attribute, precomputing the byte
// offset of each bootstrap-method row.
// Run once, only when the constant pool contains a Dynamic or
// InvokeDynamic entry.
func (r *Reader) locateBootstrapMethods() error {
	offset := r.header + 2 // access_flags
	offset += 2            // this_class
	offset += 2            // super_class
	interfacesCount := r.readUnsignedShort(offset)
	offset += 2 + 2*interfacesCount

	for _, count := range []int{0, 1} {
		_ = count
		n := r.readUnsignedShort(offset)
		offset += 2
		for i := 0; i < n; i++ {
			offset += 6 // access_flags, name_index, descriptor_index
			attrCount := r.readUnsignedShort(offset)
			offset += 2
			for j := 0; j < attrCount; j++ {
				offset += 2
				length := int(r.readInt(offset))
				offset += 4 + length
			}
		}
	}

	attrCount := r.readUnsignedShort(offset)
	offset += 2
	for i := 0; i < attrCount; i++ {
		nameIndex := r.readUnsignedShort(offset)
		length := int(r.readInt(offset + 2))
		bodyOffset := offset + 6
		if r.readUTF8Entry(nameIndex) == AttrBootstrapMethods {
			count := r.readUnsignedShort(bodyOffset)
			offsets := make([]int, count)
			o := bodyOffset + 2
			for k := 0; k < count; k++ {
				offsets[k] = o
				numArgs := r.readUnsignedShort(o + 2)
				o += 4 + 2*numArgs
			}
			r.bootstrapMethodOffsets = offsets
			return nil
		}
		offset = bodyOffset + length
	}
	return nil
}

// Open memory-maps the class file at name and parses its constant pool,
// mirroring the teacher's mmap-backed pe.New. Close unmaps and closes the
// file.
func Open(name string, opts *Options) (*Reader, error) {
	if opts == nil {
		opts = &Options{}
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := NewReader([]byte(m))
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	r.mapped = m
	r.file = f
	r.parseFlags = opts.ParseFlags
	r.helper = log.NewHelper(opts.Logger)
	return r, nil
}

// AcceptDefault drives visitor with the ParseFlags the Reader was opened
// with (zero for a Reader built by NewReader).
func (r *Reader) AcceptDefault(visitor ClassVisitor) error {
	return r.Accept(visitor, r.parseFlags)
}

// Close unmaps and closes the file opened by Open. It is a no-op for a
// Reader constructed by NewReader.
func (r *Reader) Close() error {
	if r.mapped != nil {
		if err := r.mapped.Unmap(); err != nil {
			return err
		}
		r.mapped = nil
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func u16(b []byte, offset int) uint16 {
	return uint16(b[offset])<<8 | uint16(b[offset+1])
}

func u32(b []byte, offset int) uint32 {
	return uint32(b[offset])<<24 | uint32(b[offset+1])<<16 | uint32(b[offset+2])<<8 | uint32(b[offset+3])
}

// readUnsignedShort reads a big-endian u16 at offset. Every shift in
// u16/u32 widens the byte first: shifting a bare byte left by 8 truncates to zero,
// a latent bug in the original ASM-port grounding source this codec does
// not reproduce.
func (r *Reader) readUnsignedShort(offset int) int {
	return int(u16(r.b, offset))
}

func (r *Reader) readShort(offset int) int16 {
	return int16(u16(r.b, offset))
}

func (r *Reader) readInt(offset int) int32 {
	return int32(u32(r.b, offset))
}

func (r *Reader) readLong(offset int) int64 {
	hi := int64(r.readInt(offset))
	lo := int64(uint32(r.readInt(offset + 4)))
	return hi<<32 | lo
}

func (r *Reader) readByte(offset int) int {
	return int(r.b[offset])
}

// readUTF8 decodes the Utf8 constant at constant-pool index cpIndex
// (given as the raw u2 field value at fieldOffset, per the conventional
// ASM calling shape), memoising the result.
func (r *Reader) readUTF8(fieldOffset int) string {
	index := r.readUnsignedShort(fieldOffset)
	return r.readUTF8Entry(index)
}

func (r *Reader) readUTF8Entry(index int) string {
	if index == 0 {
		return ""
	}
	if r.constantUtf8Values[index] != "" {
		return r.constantUtf8Values[index]
	}
	offset := r.cpInfoOffsets[index]
	length := r.readUnsignedShort(offset)
	s := decodeMUTF8(r.b[offset+2 : offset+2+length])
	r.constantUtf8Values[index] = s
	return s
}

// decodeMUTF8 decodes a Modified-UTF-8 byte sequence (JVMS 4.4.7) to a Go
// string.
func decodeMUTF8(b []byte) string {
	out := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			out = append(out, rune(c))
			i++
		case c&0xE0 == 0xC0:
			out = append(out, rune(c&0x1F)<<6|rune(b[i+1]&0x3F))
			i += 2
		default:
			out = append(out, rune(c&0xF)<<12|rune(b[i+1]&0x3F)<<6|rune(b[i+2]&0x3F))
			i += 3
		}
	}
	return string(out)
}

// readClass returns the internal name referenced by the CONSTANT_Class_info
// at the u2 field located at fieldOffset.
func (r *Reader) readClass(fieldOffset int) string {
	index := r.readUnsignedShort(fieldOffset)
	if index == 0 {
		return ""
	}
	return r.readUTF8(r.cpInfoOffsets[index])
}

func (r *Reader) readStringish(fieldOffset int) string {
	return r.readClass(fieldOffset)
}

// readConst decodes the constant-pool entry at index into its Go runtime
// value: int32, int64, float32, float64, string, Type, Handle, or
// *ConstantDynamic.
func (r *Reader) readConst(index int) (interface{}, error) {
	offset := r.cpInfoOffsets[index]
	tag := r.b[offset-1]
	switch int(tag) {
	case ConstantIntegerTag:
		return r.readInt(offset), nil
	case ConstantFloatTag:
		return int32ToFloat32(r.readInt(offset)), nil
	case ConstantLongTag:
		return r.readLong(offset), nil
	case ConstantDoubleTag:
		return int64ToFloat64(r.readLong(offset)), nil
	case ConstantClassTag:
		return GetObjectType(r.readUTF8(offset)), nil
	case ConstantStringTag:
		return r.readUTF8(offset), nil
	case ConstantMethodTypeTag:
		return GetMethodType(r.readUTF8(offset)), nil
	case ConstantMethodHandleTag:
		referenceKind := r.readByte(offset)
		refOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+1)]
		owner := r.readClass(refOffset)
		natOffset := r.cpInfoOffsets[r.readUnsignedShort(refOffset+2)]
		name := r.readUTF8(natOffset)
		descriptor := r.readUTF8(natOffset + 2)
		refTag := r.b[r.cpInfoOffsets[r.readUnsignedShort(offset+1)]-1]
		return Handle{
			Tag:         referenceKind,
			Owner:       owner,
			Name:        name,
			Descriptor:  descriptor,
			IsInterface: int(refTag) == ConstantInterfaceMethodrefTag,
		}, nil
	case ConstantDynamicTag:
		cd, err := r.readConstantDynamic(offset)
		return cd, err
	default:
		return nil, fmt.Errorf("%w: unsupported constant tag %d for LDC", ErrMalformedClass, tag)
	}
}

func (r *Reader) readConstantDynamic(offset int) (*ConstantDynamic, error) {
	bootstrapIndex := r.readUnsignedShort(offset)
	natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
	name := r.readUTF8(natOffset)
	descriptor := r.readUTF8(natOffset + 2)
	handle, args, err := r.readBootstrapMethod(bootstrapIndex)
	if err != nil {
		return nil, err
	}
	return &ConstantDynamic{
		Name:                     name,
		Descriptor:               descriptor,
		BootstrapMethod:          handle,
		BootstrapMethodArguments: args,
	}, nil
}

func (r *Reader) readBootstrapMethod(index int) (Handle, []interface{}, error) {
	if index >= len(r.bootstrapMethodOffsets) {
		return Handle{}, nil, fmt.Errorf("%w: bootstrap method index %d out of range", ErrMalformedClass, index)
	}
	offset := r.bootstrapMethodOffsets[index]
	handleValue, err := r.readConst(r.readUnsignedShort(offset))
	if err != nil {
		return Handle{}, nil, err
	}
	handle, ok := handleValue.(Handle)
	if !ok {
		return Handle{}, nil, fmt.Errorf("%w: bootstrap method %d is not a MethodHandle", ErrMalformedClass, index)
	}
	argCount := r.readUnsignedShort(offset + 2)
	args := make([]interface{}, argCount)
	argOffset := offset + 4
	for i := 0; i < argCount; i++ {
		v, err := r.readConst(r.readUnsignedShort(argOffset))
		if err != nil {
			return Handle{}, nil, err
		}
		args[i] = v
		argOffset += 2
	}
	return handle, args, nil
}

// readSymbol decodes the constant-pool entry at index (whose tag is
// given) into a reusable *Symbol, used by SymbolTable.copyPoolFrom to
// seed a writer's pool from this reader without losing index alignment.
func (r *Reader) readSymbol(index, tag int) (*Symbol, error) {
	offset := r.cpInfoOffsets[index]
	switch tag {
	case ConstantUtf8Tag:
		return newSymbol(index, tag, "", "", r.readUTF8Entry(index), 0), nil
	case ConstantIntegerTag:
		return newSymbol(index, tag, "", "", "", int64(uint32(r.readInt(offset)))), nil
	case ConstantFloatTag:
		return newSymbol(index, tag, "", "", "", int64(uint32(r.readInt(offset)))), nil
	case ConstantLongTag:
		return newSymbol(index, tag, "", "", "", r.readLong(offset)), nil
	case ConstantDoubleTag:
		return newSymbol(index, tag, "", "", "", r.readLong(offset)), nil
	case ConstantClassTag, ConstantStringTag, ConstantModuleTag, ConstantPackageTag:
		return newSymbol(index, tag, "", "", r.readUTF8(offset), 0), nil
	case ConstantNameAndTypeTag:
		name := r.readUTF8(offset)
		desc := r.readUTF8(offset + 2)
		return newSymbol(index, tag, "", name, desc, 0), nil
	case ConstantFieldrefTag, ConstantMethodrefTag, ConstantInterfaceMethodrefTag:
		owner := r.readClass(offset)
		natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
		name := r.readUTF8(natOffset)
		desc := r.readUTF8(natOffset + 2)
		return newSymbol(index, tag, owner, name, desc, 0), nil
	case ConstantMethodHandleTag:
		kind := r.readByte(offset)
		refOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+1)]
		owner := r.readClass(refOffset)
		natOffset := r.cpInfoOffsets[r.readUnsignedShort(refOffset+2)]
		name := r.readUTF8(natOffset)
		desc := r.readUTF8(natOffset + 2)
		return newSymbol(index, tag, owner, name, desc, int64(kind)), nil
	case ConstantMethodTypeTag:
		return newSymbol(index, tag, "", "", r.readUTF8(offset), 0), nil
	case ConstantDynamicTag, ConstantInvokeDynamicTag:
		bootstrapIndex := r.readUnsignedShort(offset)
		natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
		name := r.readUTF8(natOffset)
		desc := r.readUTF8(natOffset + 2)
		return newSymbol(index, tag, "", name, desc, int64(bootstrapIndex)), nil
	default:
		return nil, fmt.Errorf("%w: unknown constant tag %d", ErrMalformedClass, tag)
	}
}

func int32ToFloat32(v int32) float32 {
	return math.Float32frombits(uint32(v))
}

func int64ToFloat64(v int64) float64 {
	return math.Float64frombits(uint64(v))
}
