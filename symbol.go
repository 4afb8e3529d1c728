// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Constant-pool tags (JVMS 4.4 Table 4.4-A), plus the three ASM-internal
// tags used only by the in-memory type table (never serialized).
const (
	ConstantUtf8Tag               = 1
	ConstantIntegerTag            = 3
	ConstantFloatTag              = 4
	ConstantLongTag               = 5
	ConstantDoubleTag             = 6
	ConstantClassTag              = 7
	ConstantStringTag             = 8
	ConstantFieldrefTag           = 9
	ConstantMethodrefTag          = 10
	ConstantInterfaceMethodrefTag = 11
	ConstantNameAndTypeTag        = 12
	ConstantMethodHandleTag       = 15
	ConstantMethodTypeTag         = 16
	ConstantDynamicTag            = 17
	ConstantInvokeDynamicTag      = 18
	ConstantModuleTag             = 19
	ConstantPackageTag            = 20

	// BootstrapMethodTag, TypeTag, UninitializedTypeTag and MergedTypeTag
	// identify rows of the bootstrap-method table and the ASM-internal
	// type table respectively. They share the Symbol record shape but
	// are never written as cp_info structures.
	BootstrapMethodTag   = 64
	TypeTag              = 128
	UninitializedTypeTag = 129
	MergedTypeTag        = 130
)

// Symbol is a tagged record for one constant-pool, bootstrap-method, or
// type-table entry. Two symbols are equal iff (tag, owner, name, value,
// data) match; info is a cache field ignored by equality.
type Symbol struct {
	index int
	tag   int
	owner string
	name  string
	value string
	data  int64

	// info caches derived data: for InnerClasses dedup, the 1-based
	// InnerClasses row index of the first visit (see
	// Writer.VisitInnerClass).
	info int
}

func newSymbol(index, tag int, owner, name, value string, data int64) *Symbol {
	return &Symbol{index: index, tag: tag, owner: owner, name: name, value: value, data: data}
}

// Index returns the symbol's constant-pool index (1-based) or type-table/
// bootstrap-method index (0-based).
func (s *Symbol) Index() int { return s.index }

// Tag returns the symbol's ConstantXxxTag.
func (s *Symbol) Tag() int { return s.tag }

// Owner returns the owner field (e.g. a Fieldref's declaring class).
func (s *Symbol) Owner() string { return s.owner }

// Name returns the name field.
func (s *Symbol) Name() string { return s.name }

// Value returns the value field (e.g. a NameAndType's descriptor, or a
// Utf8's string content).
func (s *Symbol) Value() string { return s.value }

// Data returns the 64-bit numeric payload (a Long/Double/Integer/Float's
// bits, a handle's reference kind, or a label's bytecode offset for
// UninitializedType).
func (s *Symbol) Data() int64 { return s.data }

// equalKey reports whether a candidate's identifying fields match this
// symbol's, independent of index/info.
func (s *Symbol) equalKey(tag int, owner, name, value string, data int64) bool {
	return s.tag == tag && s.data == data && s.name == name && s.owner == owner && s.value == value
}

// hashKey computes the 64-bit dedup key for a candidate symbol. Every
// identifying field is fed through xxhash so symbols differing in any
// field land in different buckets with high probability; the bucket index
// is this value modulo the table capacity.
func hashKey(tag int, owner, name, value string, data int64) uint64 {
	h := newSymbolHasher()
	h.writeInt(tag)
	h.writeString(owner)
	h.writeString(name)
	h.writeString(value)
	h.writeInt64(data)
	return h.sum()
}
