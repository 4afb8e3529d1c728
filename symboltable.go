// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// symbolHasher accumulates a symbol's identifying fields into a single
// xxhash64 digest, mirroring the role arloliu/mebo's internal/hash.ID plays
// for its own series keys: a cheap, well-distributed 64-bit key driving an
// open-addressed table instead of a cryptographic hash.
type symbolHasher struct {
	d *xxhash.Digest
}

func newSymbolHasher() *symbolHasher {
	return &symbolHasher{d: xxhash.New()}
}

func (h *symbolHasher) writeInt(v int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.d.Write(buf[:])
}

func (h *symbolHasher) writeInt64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.d.Write(buf[:])
}

func (h *symbolHasher) writeString(s string) {
	_, _ = h.d.Write([]byte{0})
	_, _ = h.d.WriteString(s)
}

func (h *symbolHasher) sum() uint64 {
	return h.d.Sum64()
}

// entry is one slot of the SymbolTable's bucket array: a symbol plus the
// next entry chained into the same bucket.
type entry struct {
	symbol *Symbol
	key    uint64
	next   *entry
}

// SymbolTable is the append-only constant-pool / bootstrap-method / type
// table behind the writer. One SymbolTable is owned by exactly one
// Writer for its lifetime; per-element sub-writers borrow it.
type SymbolTable struct {
	w *Writer

	// source is the reader this table was seeded from via copyPoolFrom,
	// or nil. A non-nil source with matching reader enables the method
	// copy-through fast path.
	source *Reader

	// className and majorVersion are the class being built, needed by
	// the frame engine to resolve UNINITIALIZED_THIS and pick frame
	// encodings.
	className    string
	majorVersion int

	// err latches the first error hit by a visitor-driven add (visitor
	// methods cannot return errors); Writer.ToByteArray surfaces it.
	err error

	buckets  []*entry
	count    int // number of live entries across all buckets
	cpCount  int // 1-based next free constant-pool index (0 is reserved)
	constantPool *ByteVector

	bootstrapMethods       *ByteVector
	bootstrapMethodCount   int
	bootstrapMethodEntries []*Symbol

	// typeTable is the ASM-specific table C5 uses for frame computation;
	// it is never serialized to the class file.
	typeTable     []*Symbol
	typeTableSize int
}

const defaultSymbolTableCapacity = 256
const symbolTableLoadFactor = 0.75

// NewSymbolTable returns an empty table attached to w.
func NewSymbolTable(w *Writer) *SymbolTable {
	return &SymbolTable{
		w:            w,
		buckets:      make([]*entry, defaultSymbolTableCapacity),
		cpCount:      1,
		constantPool: NewByteVector(),
	}
}

// ConstantPoolCount returns the cp_count a ClassFile header would declare
// (one more than the highest used index).
func (t *SymbolTable) ConstantPoolCount() int { return t.cpCount }

// setMajorVersionAndClassName records the class being assembled; called by
// Writer.Visit before any member is added.
func (t *SymbolTable) setMajorVersionAndClassName(majorVersion int, className string) {
	t.majorVersion = majorVersion
	t.className = className
}

// recordError latches the first error seen by an add performed inside a
// visitor callback.
func (t *SymbolTable) recordError(err error) {
	if t.err == nil {
		t.err = err
	}
}

// utf8Index adds (or finds) a Utf8 constant and returns its index,
// latching any error for ToByteArray to surface.
func (t *SymbolTable) utf8Index(s string) int {
	sym, err := t.addConstantUtf8(s)
	if err != nil {
		t.recordError(err)
		return 0
	}
	return sym.Index()
}

// classIndex adds (or finds) a Class constant for internalName.
func (t *SymbolTable) classIndex(internalName string) int {
	sym, err := t.addConstantClass(internalName)
	if err != nil {
		t.recordError(err)
		return 0
	}
	return sym.Index()
}

// classSymbol is classIndex returning the full symbol, used where the
// caller needs the info cache field (inner-class dedup).
func (t *SymbolTable) classSymbol(internalName string) *Symbol {
	sym, err := t.addConstantClass(internalName)
	if err != nil {
		t.recordError(err)
		return newSymbol(0, ConstantClassTag, "", "", internalName, 0)
	}
	return sym
}

// moduleIndex and packageIndex add Module/Package constants.
func (t *SymbolTable) moduleIndex(name string) int {
	sym, err := t.addConstantModule(name)
	if err != nil {
		t.recordError(err)
		return 0
	}
	return sym.Index()
}

func (t *SymbolTable) packageIndex(name string) int {
	sym, err := t.addConstantPackage(name)
	if err != nil {
		t.recordError(err)
		return 0
	}
	return sym.Index()
}

// constantIndex adds the runtime value as the matching constant-pool kind
// and returns its index.
func (t *SymbolTable) constantIndex(value interface{}) int {
	sym, err := t.addConstant(value)
	if err != nil {
		t.recordError(err)
		return 0
	}
	return sym.Index()
}

func (t *SymbolTable) rehashIfNeeded() {
	if float64(t.count) <= float64(len(t.buckets))*symbolTableLoadFactor {
		return
	}
	grown := make([]*entry, len(t.buckets)*2)
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.next
			idx := e.key % uint64(len(grown))
			e.next = grown[idx]
			grown[idx] = e
			e = next
		}
	}
	t.buckets = grown
}

func (t *SymbolTable) find(key uint64, tag int, owner, name, value string, data int64) *Symbol {
	idx := key % uint64(len(t.buckets))
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key && e.symbol.equalKey(tag, owner, name, value, data) {
			return e.symbol
		}
	}
	return nil
}

func (t *SymbolTable) insert(key uint64, s *Symbol) {
	t.rehashIfNeeded()
	idx := key % uint64(len(t.buckets))
	t.buckets[idx] = &entry{symbol: s, key: key, next: t.buckets[idx]}
	t.count++
}

// addConstantUtf8 adds (or returns the existing) CONSTANT_Utf8_info for s.
func (t *SymbolTable) addConstantUtf8(s string) (*Symbol, error) {
	key := hashKey(ConstantUtf8Tag, "", "", s, 0)
	if existing := t.find(key, ConstantUtf8Tag, "", "", s, 0); existing != nil {
		return existing, nil
	}
	sym, err := t.addConstantPoolEntry(ConstantUtf8Tag, "", "", s, 0, func(out *ByteVector) error {
		out.PutByte(ConstantUtf8Tag)
		_, err := out.PutUTF8(s)
		return err
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantClass adds a CONSTANT_Class_info naming internalName.
func (t *SymbolTable) addConstantClass(internalName string) (*Symbol, error) {
	return t.addConstantUtf8Ref(ConstantClassTag, internalName)
}

// addConstantString adds a CONSTANT_String_info.
func (t *SymbolTable) addConstantString(value string) (*Symbol, error) {
	return t.addConstantUtf8Ref(ConstantStringTag, value)
}

// addConstantModule adds a CONSTANT_Module_info.
func (t *SymbolTable) addConstantModule(name string) (*Symbol, error) {
	return t.addConstantUtf8Ref(ConstantModuleTag, name)
}

// addConstantPackage adds a CONSTANT_Package_info.
func (t *SymbolTable) addConstantPackage(name string) (*Symbol, error) {
	return t.addConstantUtf8Ref(ConstantPackageTag, name)
}

// addConstantUtf8Ref handles the four single-Utf8-ref tags (Class, String,
// Module, Package), all sharing a {u1 tag; u2 utf8_index} layout.
func (t *SymbolTable) addConstantUtf8Ref(tag int, value string) (*Symbol, error) {
	key := hashKey(tag, "", "", value, 0)
	if existing := t.find(key, tag, "", "", value, 0); existing != nil {
		return existing, nil
	}
	utf8, err := t.addConstantUtf8(value)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(tag, "", "", value, 0, func(out *ByteVector) error {
		out.PutByte(byte(tag))
		out.PutShort(utf8.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantInteger adds a CONSTANT_Integer_info.
func (t *SymbolTable) addConstantInteger(value int32) (*Symbol, error) {
	return t.addConstantIntLike(ConstantIntegerTag, int64(uint32(value)))
}

// addConstantFloat adds a CONSTANT_Float_info, keyed on the IEEE-754 bit
// pattern so +0.0/-0.0 and NaN payloads dedup bit-exactly.
func (t *SymbolTable) addConstantFloat(bits int32) (*Symbol, error) {
	return t.addConstantIntLike(ConstantFloatTag, int64(uint32(bits)))
}

func (t *SymbolTable) addConstantIntLike(tag int, bits int64) (*Symbol, error) {
	key := hashKey(tag, "", "", "", bits)
	if existing := t.find(key, tag, "", "", "", bits); existing != nil {
		return existing, nil
	}
	sym, err := t.addConstantPoolEntry(tag, "", "", "", bits, func(out *ByteVector) error {
		out.PutByte(byte(tag))
		out.PutInt(int32(uint32(bits)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantLong adds a CONSTANT_Long_info, which (per JVMS 4.4.5)
// occupies two consecutive constant-pool indices.
func (t *SymbolTable) addConstantLong(value int64) (*Symbol, error) {
	return t.addConstantWideLike(ConstantLongTag, value)
}

// addConstantDouble adds a CONSTANT_Double_info, keyed on the IEEE-754 bit
// pattern.
func (t *SymbolTable) addConstantDouble(bits int64) (*Symbol, error) {
	return t.addConstantWideLike(ConstantDoubleTag, bits)
}

func (t *SymbolTable) addConstantWideLike(tag int, bits int64) (*Symbol, error) {
	key := hashKey(tag, "", "", "", bits)
	if existing := t.find(key, tag, "", "", "", bits); existing != nil {
		return existing, nil
	}
	sym, err := t.addConstantPoolEntryWide(tag, bits, func(out *ByteVector) error {
		out.PutByte(byte(tag))
		out.PutLong(bits)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantNameAndType adds a CONSTANT_NameAndType_info.
func (t *SymbolTable) addConstantNameAndType(name, descriptor string) (*Symbol, error) {
	key := hashKey(ConstantNameAndTypeTag, "", name, descriptor, 0)
	if existing := t.find(key, ConstantNameAndTypeTag, "", name, descriptor, 0); existing != nil {
		return existing, nil
	}
	nameSym, err := t.addConstantUtf8(name)
	if err != nil {
		return nil, err
	}
	descSym, err := t.addConstantUtf8(descriptor)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(ConstantNameAndTypeTag, "", name, descriptor, 0, func(out *ByteVector) error {
		out.PutByte(ConstantNameAndTypeTag)
		out.PutShort(nameSym.Index())
		out.PutShort(descSym.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantMemberRef adds a Fieldref/Methodref/InterfaceMethodref_info.
func (t *SymbolTable) addConstantMemberRef(tag int, owner, name, descriptor string) (*Symbol, error) {
	key := hashKey(tag, owner, name, descriptor, 0)
	if existing := t.find(key, tag, owner, name, descriptor, 0); existing != nil {
		return existing, nil
	}
	classSym, err := t.addConstantClass(owner)
	if err != nil {
		return nil, err
	}
	natSym, err := t.addConstantNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(tag, owner, name, descriptor, 0, func(out *ByteVector) error {
		out.PutByte(byte(tag))
		out.PutShort(classSym.Index())
		out.PutShort(natSym.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantMethodHandle adds a CONSTANT_MethodHandle_info; data packs the
// reference kind (JVMS 4.4.8) in its low byte.
func (t *SymbolTable) addConstantMethodHandle(referenceKind int, owner, name, descriptor string, itf bool) (*Symbol, error) {
	tag := ConstantMethodrefTag
	if itf {
		tag = ConstantInterfaceMethodrefTag
	}
	data := int64(referenceKind)
	key := hashKey(ConstantMethodHandleTag, owner, name, descriptor, data)
	if existing := t.find(key, ConstantMethodHandleTag, owner, name, descriptor, data); existing != nil {
		return existing, nil
	}
	refSym, err := t.addConstantMemberRef(tag, owner, name, descriptor)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(ConstantMethodHandleTag, owner, name, descriptor, data, func(out *ByteVector) error {
		out.PutByte(ConstantMethodHandleTag)
		out.PutByte(byte(referenceKind))
		out.PutShort(refSym.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantMethodType adds a CONSTANT_MethodType_info.
func (t *SymbolTable) addConstantMethodType(methodDescriptor string) (*Symbol, error) {
	key := hashKey(ConstantMethodTypeTag, "", "", methodDescriptor, 0)
	if existing := t.find(key, ConstantMethodTypeTag, "", "", methodDescriptor, 0); existing != nil {
		return existing, nil
	}
	utf8, err := t.addConstantUtf8(methodDescriptor)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(ConstantMethodTypeTag, "", "", methodDescriptor, 0, func(out *ByteVector) error {
		out.PutByte(ConstantMethodTypeTag)
		out.PutShort(utf8.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstantDynamic adds a CONSTANT_Dynamic_info or
// CONSTANT_InvokeDynamic_info. bootstrapMethodIndex is the row returned by
// addBootstrapMethod.
func (t *SymbolTable) addConstantDynamic(tag int, name, descriptor string, bootstrapMethodIndex int) (*Symbol, error) {
	data := int64(bootstrapMethodIndex)
	key := hashKey(tag, "", name, descriptor, data)
	if existing := t.find(key, tag, "", name, descriptor, data); existing != nil {
		return existing, nil
	}
	natSym, err := t.addConstantNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	sym, err := t.addConstantPoolEntry(tag, "", name, descriptor, data, func(out *ByteVector) error {
		out.PutByte(byte(tag))
		out.PutShort(bootstrapMethodIndex)
		out.PutShort(natSym.Index())
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.insert(key, sym)
	return sym, nil
}

// addConstant dispatches value by runtime type to the matching
// addConstantXxx method: i32, i64, f32, f64, string,
// Handle, Type, or ConstantDynamic.
func (t *SymbolTable) addConstant(value interface{}) (*Symbol, error) {
	switch v := value.(type) {
	case int:
		return t.addConstantInteger(int32(v))
	case int32:
		return t.addConstantInteger(v)
	case Byte:
		return t.addConstantInteger(int32(v))
	case Char:
		return t.addConstantInteger(int32(v))
	case Short:
		return t.addConstantInteger(int32(v))
	case Boolean:
		if v {
			return t.addConstantInteger(1)
		}
		return t.addConstantInteger(0)
	case bool:
		if v {
			return t.addConstantInteger(1)
		}
		return t.addConstantInteger(0)
	case int64:
		return t.addConstantLong(v)
	case float32:
		return t.addConstantFloat(int32(math.Float32bits(v)))
	case float64:
		return t.addConstantDouble(int64(math.Float64bits(v)))
	case string:
		return t.addConstantString(v)
	case Type:
		switch v.Sort() {
		case SortObject, SortInternal, SortArray:
			return t.addConstantClass(v.InternalName())
		case SortMethod:
			return t.addConstantMethodType(v.Descriptor())
		default:
			return nil, fmt.Errorf("%w: primitive type cannot be a constant pool entry", ErrInvalidArgument)
		}
	case Handle:
		return t.addConstantMethodHandle(v.Tag, v.Owner, v.Name, v.Descriptor, v.IsInterface)
	case *ConstantDynamic:
		return t.addConstantDynamicValue(v)
	case ConstantDynamic:
		return t.addConstantDynamicValue(&v)
	default:
		return nil, fmt.Errorf("%w: value of unsupported type %T", ErrInvalidArgument, value)
	}
}

// addConstantDynamicValue adds a CONSTANT_Dynamic_info, registering the
// bootstrap method (and, recursively, any ConstantDynamic among its
// arguments) first.
func (t *SymbolTable) addConstantDynamicValue(cd *ConstantDynamic) (*Symbol, error) {
	bootstrap, err := t.addBootstrapMethodFromHandle(cd.BootstrapMethod, cd.BootstrapMethodArguments)
	if err != nil {
		return nil, err
	}
	return t.addConstantDynamic(ConstantDynamicTag, cd.Name, cd.Descriptor, bootstrap.Index())
}

// addConstantInvokeDynamic adds a CONSTANT_InvokeDynamic_info for an
// invokedynamic call site.
func (t *SymbolTable) addConstantInvokeDynamic(name, descriptor string, handle Handle, args []interface{}) (*Symbol, error) {
	bootstrap, err := t.addBootstrapMethodFromHandle(handle, args)
	if err != nil {
		return nil, err
	}
	return t.addConstantDynamic(ConstantInvokeDynamicTag, name, descriptor, bootstrap.Index())
}

// addBootstrapMethodFromHandle resolves the handle and each argument to
// constant-pool symbols and registers the bootstrap-method row.
func (t *SymbolTable) addBootstrapMethodFromHandle(handle Handle, args []interface{}) (*Symbol, error) {
	handleSym, err := t.addConstant(handle)
	if err != nil {
		return nil, err
	}
	argSymbols := make([]*Symbol, len(args))
	for i, arg := range args {
		argSymbols[i], err = t.addConstant(arg)
		if err != nil {
			return nil, err
		}
	}
	return t.addBootstrapMethod(handleSym, argSymbols)
}

func (t *SymbolTable) addConstantPoolEntry(tag int, owner, name, value string, data int64, write func(*ByteVector) error) (*Symbol, error) {
	if t.cpCount > 65535 {
		return nil, fmt.Errorf("%w: constant pool index %d", ErrClassTooLarge, t.cpCount)
	}
	if err := write(t.constantPool); err != nil {
		return nil, err
	}
	sym := newSymbol(t.cpCount, tag, owner, name, value, data)
	t.cpCount++
	return sym, nil
}

func (t *SymbolTable) addConstantPoolEntryWide(tag int, data int64, write func(*ByteVector) error) (*Symbol, error) {
	if t.cpCount+1 > 65535 {
		return nil, fmt.Errorf("%w: constant pool index %d", ErrClassTooLarge, t.cpCount)
	}
	if err := write(t.constantPool); err != nil {
		return nil, err
	}
	sym := newSymbol(t.cpCount, tag, "", "", "", data)
	t.cpCount += 2 // long/double occupy two slots; the second is unusable
	return sym, nil
}

// addBootstrapMethod adds (or returns the existing) bootstrap-method row,
// deduplicated by the serialized byte form of (handle, args) rather than
// by pointer, since args may recursively contain a ConstantDynamic whose
// own bootstrap method must compare structurally.
func (t *SymbolTable) addBootstrapMethod(handle *Symbol, argSymbols []*Symbol) (*Symbol, error) {
	if t.bootstrapMethods == nil {
		t.bootstrapMethods = NewByteVector()
	}
	row := NewByteVector()
	row.PutShort(handle.Index())
	row.PutShort(len(argSymbols))
	for _, arg := range argSymbols {
		row.PutShort(arg.Index())
	}
	serialized := string(row.Bytes())
	key := hashKey(BootstrapMethodTag, "", "", serialized, 0)
	if existing := t.find(key, BootstrapMethodTag, "", "", serialized, 0); existing != nil {
		return existing, nil
	}
	index := t.bootstrapMethodCount
	t.bootstrapMethods.PutByteArray(row.Bytes(), 0, row.Len())
	sym := newSymbol(index, BootstrapMethodTag, "", "", serialized, 0)
	t.bootstrapMethodCount++
	t.bootstrapMethodEntries = append(t.bootstrapMethodEntries, sym)
	t.insert(key, sym)
	return sym, nil
}

// addType adds an ASM-internal type-table entry for internalName, used
// only during frame computation (never serialized).
func (t *SymbolTable) addType(internalName string) int {
	key := hashKey(TypeTag, "", "", internalName, 0)
	if existing := t.find(key, TypeTag, "", "", internalName, 0); existing != nil {
		return existing.Index()
	}
	sym := newSymbol(t.typeTableSize, TypeTag, "", "", internalName, 0)
	t.typeTable = append(t.typeTable, sym)
	t.typeTableSize++
	t.insert(key, sym)
	return sym.Index()
}

// addUninitializedType adds a type-table entry for the not-yet-initialized
// result of a NEW at newInsnOffset.
func (t *SymbolTable) addUninitializedType(internalName string, newInsnOffset int) int {
	data := int64(newInsnOffset)
	key := hashKey(UninitializedTypeTag, "", "", internalName, data)
	if existing := t.find(key, UninitializedTypeTag, "", "", internalName, data); existing != nil {
		return existing.Index()
	}
	sym := newSymbol(t.typeTableSize, UninitializedTypeTag, "", "", internalName, data)
	t.typeTable = append(t.typeTable, sym)
	t.typeTableSize++
	t.insert(key, sym)
	return sym.Index()
}

// addMergedType adds (or returns) a type-table entry memoising the LUB of
// the two type-table entries type1 and type2, keyed order-independently.
// The merged name is resolved eagerly (via the writer's TypeHierarchy, or
// the java/lang/Object fallback) so frame emission can treat the entry
// like any other reference type.
func (t *SymbolTable) addMergedType(type1, type2 int) int {
	lo, hi := type1, type2
	if lo > hi {
		lo, hi = hi, lo
	}
	data := int64(lo)<<32 | int64(uint32(hi))
	key := hashKey(MergedTypeTag, "", "", "", data)
	if existing := t.find(key, MergedTypeTag, "", "", "", data); existing != nil {
		return existing.Index()
	}
	merged := t.commonSuperType(t.typeTable[lo].value, t.typeTable[hi].value)
	sym := newSymbol(t.typeTableSize, MergedTypeTag, "", "", merged, data)
	t.typeTable = append(t.typeTable, sym)
	t.typeTableSize++
	t.insert(key, sym)
	return sym.Index()
}

// commonSuperType computes the least upper bound of two internal names
//: identical names map to themselves, arrays
// LUB element-wise with dimension mismatches demoted to Object, and plain
// references resolve through getCommonSuperClass.
func (t *SymbolTable) commonSuperType(a, b string) string {
	if a == b {
		return a
	}
	da, db := arrayDims(a), arrayDims(b)
	if da == 0 && db == 0 {
		var hierarchy TypeHierarchy
		if t.w != nil {
			hierarchy = t.w.hierarchy
		}
		return resolveCommonSuperClass(a, b, hierarchy)
	}
	if da != db {
		d := da
		if db < d {
			d = db
		}
		return arrayOf("java/lang/Object", d)
	}
	ea, eb := a[da:], b[db:]
	if ea[0] == 'L' && eb[0] == 'L' {
		elem := t.commonSuperType(ea[1:len(ea)-1], eb[1:len(eb)-1])
		return arrayOf(elem, da)
	}
	// At least one primitive element type; distinct primitives share no
	// array supertype below Object.
	return arrayOf("java/lang/Object", da-1)
}

func arrayDims(internalName string) int {
	d := 0
	for d < len(internalName) && internalName[d] == '[' {
		d++
	}
	return d
}

func arrayOf(internalName string, dims int) string {
	if dims == 0 {
		return internalName
	}
	out := make([]byte, 0, dims+len(internalName)+2)
	for i := 0; i < dims; i++ {
		out = append(out, '[')
	}
	out = append(out, 'L')
	out = append(out, internalName...)
	out = append(out, ';')
	return string(out)
}

// typeTableEntry returns the type-table symbol at index.
func (t *SymbolTable) typeTableEntry(index int) *Symbol {
	return t.typeTable[index]
}

// putConstantPool writes the final cp_info sequence (preceded by
// cp_count) into out.
func (t *SymbolTable) putConstantPool(out *ByteVector) {
	out.PutShort(t.cpCount)
	out.PutByteArray(t.constantPool.Bytes(), 0, t.constantPool.Len())
}

// putBootstrapMethods writes the BootstrapMethods attribute body (the
// num_bootstrap_methods count plus each row) into out, or does nothing if
// no dynamic constant was ever added.
func (t *SymbolTable) putBootstrapMethods(out *ByteVector) {
	if t.bootstrapMethods == nil {
		return
	}
	out.PutShort(t.bootstrapMethodCount)
	out.PutByteArray(t.bootstrapMethods.Bytes(), 0, t.bootstrapMethods.Len())
}

// hasBootstrapMethods reports whether any dynamic constant was added, i.e.
// whether a BootstrapMethods attribute must be written.
func (t *SymbolTable) hasBootstrapMethods() bool {
	return t.bootstrapMethods != nil
}

// copyPoolFrom seeds this table from an already-parsed reader, preserving
// every index (including unused ones) so a copy-through writer can reuse
// constant-pool references without renumbering.
func (t *SymbolTable) copyPoolFrom(r *Reader) error {
	t.source = r
	t.constantPool = NewByteVector()
	t.cpCount = r.constantPoolCount
	if r.constantPoolCount > 1 {
		start := r.cpInfoOffsets[1] - 1
		t.constantPool.PutByteArray(r.b, start, r.header-start)
	}
	for i := 1; i < r.constantPoolCount; i++ {
		offset := r.cpInfoOffsets[i]
		if offset == 0 {
			continue
		}
		tag := int(r.b[offset-1])
		sym, err := r.readSymbol(i, tag)
		if err != nil {
			return err
		}
		key := hashKey(sym.tag, sym.owner, sym.name, sym.value, sym.data)
		t.insert(key, sym)
		if tag == ConstantLongTag || tag == ConstantDoubleTag {
			i++
		}
	}
	return t.copyBootstrapMethodsFrom(r)
}

// copyBootstrapMethodsFrom copies the reader's BootstrapMethods rows
// verbatim, indexing each row's serialized bytes so later
// addBootstrapMethod calls dedup against the copied entries.
func (t *SymbolTable) copyBootstrapMethodsFrom(r *Reader) error {
	if len(r.bootstrapMethodOffsets) == 0 {
		return nil
	}
	t.bootstrapMethods = NewByteVector()
	for i, offset := range r.bootstrapMethodOffsets {
		numArgs := r.readUnsignedShort(offset + 2)
		rowLength := 4 + 2*numArgs
		t.bootstrapMethods.PutByteArray(r.b, offset, rowLength)
		serialized := string(r.b[offset : offset+rowLength])
		key := hashKey(BootstrapMethodTag, "", "", serialized, 0)
		sym := newSymbol(i, BootstrapMethodTag, "", "", serialized, 0)
		t.bootstrapMethodEntries = append(t.bootstrapMethodEntries, sym)
		t.insert(key, sym)
	}
	t.bootstrapMethodCount = len(r.bootstrapMethodOffsets)
	return nil
}
