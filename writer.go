// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"

	"github.com/gojvm/classfile/internal/log"
)

// Writer option flags.
const (
	// ComputeMaxs makes the writer ignore user-supplied max_stack and
	// max_locals and recompute them from the bytecode.
	ComputeMaxs = 1
	// ComputeFrames makes the writer ignore user-supplied frames as well
	// and re-synthesize the StackMapTable from scratch.
	ComputeFrames = 2
)

// Internal computation modes, one of which is selected per method from
// the writer flags and the class version.
const (
	computeNothing = iota
	computeMaxStackAndLocal
	computeMaxStackAndLocalFromFrames
	computeInsertedFrames
	computeAllFrames
)

// WriterOptions configures a Writer, mirroring the teacher's pe.Options
// shape: a flags word plus pluggable collaborators.
type WriterOptions struct {
	// Flags is OR'd from ComputeMaxs and ComputeFrames.
	Flags int

	// Hierarchy resolves common-super-type queries during frame
	// synthesis. Nil falls back to DefaultTypeHierarchy,
	// which merges every reference pair to java/lang/Object.
	Hierarchy TypeHierarchy

	// Logger is wrapped in a log helper and kept on the Writer; no write
	// step sends records to it. Defaults to a discarding logger when nil.
	Logger log.Logger
}

// Writer consumes ClassVisitor events and materialises the binary
// ClassFile layout. It owns its SymbolTable for its whole
// lifetime; per-element sub-writers borrow it through their constructor.
type Writer struct {
	symbols *SymbolTable

	flags   int
	compute int

	version         int
	accessFlags     int
	thisClassIndex  int
	thisClassName   string
	superClassIndex int
	interfaceIndexes []int

	signatureIndex  int
	sourceFileIndex int
	debugExtension  *ByteVector

	enclosingClassIndex  int
	enclosingMethodIndex int
	nestHostClassIndex   int

	innerClasses         *ByteVector
	numberOfInnerClasses int

	nestMembers         *ByteVector
	numberOfNestMembers int

	permittedSubclasses         *ByteVector
	numberOfPermittedSubclasses int

	moduleWriter *ModuleWriter

	firstField *FieldWriter
	lastField  *FieldWriter

	firstMethod *MethodWriter
	lastMethod  *MethodWriter

	firstRecordComponent *RecordComponentWriter
	lastRecordComponent  *RecordComponentWriter

	lastRuntimeVisibleAnnotation       *AnnotationWriter
	lastRuntimeInvisibleAnnotation     *AnnotationWriter
	lastRuntimeVisibleTypeAnnotation   *AnnotationWriter
	lastRuntimeInvisibleTypeAnnotation *AnnotationWriter

	attributes attributeList

	hierarchy TypeHierarchy
	helper    *log.Helper

	// hasFrames and hasAsmInstructions schedule the long-branch
	// resolution round trip: when any method's label resolution had to
	// fall back to a synthetic wide-pending opcode, ToByteArray re-reads
	// its own output with ExpandAsmInsns and re-emits.
	hasFrames          bool
	hasAsmInstructions bool
}

// NewWriter returns an empty Writer.
func NewWriter(opts WriterOptions) *Writer {
	w := &Writer{
		flags:     opts.Flags,
		hierarchy: opts.Hierarchy,
		helper:    log.NewHelper(opts.Logger),
	}
	if w.hierarchy == nil {
		w.hierarchy = DefaultTypeHierarchy{}
	}
	w.symbols = NewSymbolTable(w)
	switch {
	case opts.Flags&ComputeFrames != 0:
		w.compute = computeAllFrames
	case opts.Flags&ComputeMaxs != 0:
		w.compute = computeMaxStackAndLocal
	default:
		w.compute = computeNothing
	}
	return w
}

// NewWriterFromReader returns a Writer whose constant pool and bootstrap
// methods are seeded from r, enabling index-preserving emission and the
// method copy-through fast path.
func NewWriterFromReader(r *Reader, opts WriterOptions) (*Writer, error) {
	w := NewWriter(opts)
	if err := w.symbols.copyPoolFrom(r); err != nil {
		return nil, err
	}
	return w, nil
}

// Visit begins the class.
func (w *Writer) Visit(version, access int, name, signature, superName string, interfaces []string) {
	w.version = version
	w.accessFlags = access
	w.thisClassName = name
	w.symbols.setMajorVersionAndClassName(version&0xFFFF, name)
	w.thisClassIndex = w.symbols.classIndex(name)
	if signature != "" {
		w.signatureIndex = w.symbols.utf8Index(signature)
	}
	if superName != "" {
		w.superClassIndex = w.symbols.classIndex(superName)
	}
	w.interfaceIndexes = make([]int, len(interfaces))
	for i, itf := range interfaces {
		w.interfaceIndexes[i] = w.symbols.classIndex(itf)
	}
	if w.compute == computeMaxStackAndLocal && w.symbols.majorVersion >= 51 {
		w.compute = computeMaxStackAndLocalFromFrames
	}
}

func (w *Writer) VisitSource(file, debug string) {
	if file != "" {
		w.sourceFileIndex = w.symbols.utf8Index(file)
	}
	if debug != "" {
		w.debugExtension = NewByteVector()
		encoded, err := encodeMUTF8(debug)
		if err != nil {
			// SourceDebugExtension has no length limit; encode without
			// the u2 cap by appending raw.
			encoded = []byte(debug)
		}
		w.debugExtension.PutByteArray(encoded, 0, len(encoded))
	}
}

func (w *Writer) VisitModule(name string, access int, version string) ModuleVisitor {
	w.moduleWriter = newModuleWriter(w.symbols, name, access, version)
	return w.moduleWriter
}

func (w *Writer) VisitNestHost(nestHost string) {
	w.nestHostClassIndex = w.symbols.classIndex(nestHost)
}

func (w *Writer) VisitOuterClass(owner, name, descriptor string) {
	w.enclosingClassIndex = w.symbols.classIndex(owner)
	if name != "" && descriptor != "" {
		sym, err := w.symbols.addConstantNameAndType(name, descriptor)
		if err != nil {
			w.symbols.recordError(err)
			return
		}
		w.enclosingMethodIndex = sym.Index()
	}
}

func (w *Writer) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if visible {
		w.lastRuntimeVisibleAnnotation = newAnnotationWriter(w.symbols, descriptor, w.lastRuntimeVisibleAnnotation)
		return w.lastRuntimeVisibleAnnotation
	}
	w.lastRuntimeInvisibleAnnotation = newAnnotationWriter(w.symbols, descriptor, w.lastRuntimeInvisibleAnnotation)
	return w.lastRuntimeInvisibleAnnotation
}

func (w *Writer) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if visible {
		w.lastRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(w.symbols, typeRef, typePath, descriptor, w.lastRuntimeVisibleTypeAnnotation)
		return w.lastRuntimeVisibleTypeAnnotation
	}
	w.lastRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(w.symbols, typeRef, typePath, descriptor, w.lastRuntimeInvisibleTypeAnnotation)
	return w.lastRuntimeInvisibleTypeAnnotation
}

func (w *Writer) VisitAttribute(attr *Attribute) {
	w.attributes.add(attr)
}

func (w *Writer) VisitNestMember(nestMember string) {
	if w.nestMembers == nil {
		w.nestMembers = NewByteVector()
	}
	w.nestMembers.PutShort(w.symbols.classIndex(nestMember))
	w.numberOfNestMembers++
}

func (w *Writer) VisitPermittedSubclass(permittedSubclass string) {
	if w.permittedSubclasses == nil {
		w.permittedSubclasses = NewByteVector()
	}
	w.permittedSubclasses.PutShort(w.symbols.classIndex(permittedSubclass))
	w.numberOfPermittedSubclasses++
}

// VisitInnerClass records one InnerClasses row, suppressing duplicates by
// caching the 1-based row index in the class symbol's info field; a
// second visit with the same class is a no-op.
func (w *Writer) VisitInnerClass(name, outerName, innerName string, access int) {
	if w.innerClasses == nil {
		w.innerClasses = NewByteVector()
	}
	nameSymbol := w.symbols.classSymbol(name)
	if nameSymbol.info != 0 {
		return
	}
	w.innerClasses.PutShort(nameSymbol.Index())
	if outerName == "" {
		w.innerClasses.PutShort(0)
	} else {
		w.innerClasses.PutShort(w.symbols.classIndex(outerName))
	}
	if innerName == "" {
		w.innerClasses.PutShort(0)
	} else {
		w.innerClasses.PutShort(w.symbols.utf8Index(innerName))
	}
	w.innerClasses.PutShort(access & 0xFFFF)
	w.numberOfInnerClasses++
	nameSymbol.info = w.numberOfInnerClasses
}

func (w *Writer) VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor {
	rw := newRecordComponentWriter(w.symbols, name, descriptor, signature)
	if w.firstRecordComponent == nil {
		w.firstRecordComponent = rw
	} else {
		w.lastRecordComponent.next = rw
	}
	w.lastRecordComponent = rw
	return rw
}

func (w *Writer) VisitField(access int, name, descriptor, signature string, value interface{}) FieldVisitor {
	fw := newFieldWriter(w.symbols, access, name, descriptor, signature, value)
	if w.firstField == nil {
		w.firstField = fw
	} else {
		w.lastField.next = fw
	}
	w.lastField = fw
	return fw
}

func (w *Writer) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	mw := newMethodWriter(w, access, name, descriptor, signature, exceptions, w.compute)
	if w.firstMethod == nil {
		w.firstMethod = mw
	} else {
		w.lastMethod.next = mw
	}
	w.lastMethod = mw
	return mw
}

func (w *Writer) VisitEnd() {}

// ToByteArray assembles the final class file: sizes are computed first
// (which may add attribute-name constants, so it must precede
// constant-pool serialisation), then the buffer is filled in JVMS §4
// layout order with class attributes in JVMS §4.7 order.
func (w *Writer) ToByteArray() ([]byte, error) {
	size := 24 + 2*len(w.interfaceIndexes)

	fieldsCount := 0
	for fw := w.firstField; fw != nil; fw = fw.next {
		fieldsCount++
		size += fw.computeFieldInfoSize()
	}
	methodsCount := 0
	for mw := w.firstMethod; mw != nil; mw = mw.next {
		methodsCount++
		s, err := mw.computeMethodInfoSize()
		if err != nil {
			return nil, err
		}
		size += s
	}

	attributesCount := 0
	if w.innerClasses != nil {
		attributesCount++
		w.symbols.utf8Index(AttrInnerClasses)
		size += 8 + w.innerClasses.Len()
	}
	if w.enclosingClassIndex != 0 {
		attributesCount++
		w.symbols.utf8Index(AttrEnclosingMethod)
		size += 10
	}
	useSyntheticAttribute := w.symbols.majorVersion < 49
	if w.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		attributesCount++
		w.symbols.utf8Index(AttrSynthetic)
		size += 6
	}
	if w.signatureIndex != 0 {
		attributesCount++
		w.symbols.utf8Index(AttrSignature)
		size += 8
	}
	if w.sourceFileIndex != 0 {
		attributesCount++
		w.symbols.utf8Index(AttrSourceFile)
		size += 8
	}
	if w.debugExtension != nil {
		attributesCount++
		w.symbols.utf8Index(AttrSourceDebugExtension)
		size += 6 + w.debugExtension.Len()
	}
	if w.accessFlags&AccDeprecated != 0 {
		attributesCount++
		w.symbols.utf8Index(AttrDeprecated)
		size += 6
	}
	if w.lastRuntimeVisibleAnnotation != nil {
		attributesCount++
		size += annotationsSize(w.symbols, AttrRuntimeVisibleAnnotations, w.lastRuntimeVisibleAnnotation)
	}
	if w.lastRuntimeInvisibleAnnotation != nil {
		attributesCount++
		size += annotationsSize(w.symbols, AttrRuntimeInvisibleAnnotations, w.lastRuntimeInvisibleAnnotation)
	}
	if w.lastRuntimeVisibleTypeAnnotation != nil {
		attributesCount++
		size += annotationsSize(w.symbols, AttrRuntimeVisibleTypeAnnotations, w.lastRuntimeVisibleTypeAnnotation)
	}
	if w.lastRuntimeInvisibleTypeAnnotation != nil {
		attributesCount++
		size += annotationsSize(w.symbols, AttrRuntimeInvisibleTypeAnnotations, w.lastRuntimeInvisibleTypeAnnotation)
	}
	if w.symbols.hasBootstrapMethods() {
		attributesCount++
		w.symbols.utf8Index(AttrBootstrapMethods)
		size += 8 + w.symbols.bootstrapMethods.Len()
	}
	if w.moduleWriter != nil {
		attributesCount += w.moduleWriter.attributeCount()
		size += w.moduleWriter.computeAttributesSize()
	}
	if w.nestHostClassIndex != 0 {
		attributesCount++
		w.symbols.utf8Index(AttrNestHost)
		size += 8
	}
	if w.nestMembers != nil {
		attributesCount++
		w.symbols.utf8Index(AttrNestMembers)
		size += 8 + w.nestMembers.Len()
	}
	hasRecord := w.accessFlags&AccRecord != 0 || w.firstRecordComponent != nil
	recordComponentCount := 0
	recordSize := 0
	if hasRecord {
		attributesCount++
		w.symbols.utf8Index(AttrRecord)
		for rw := w.firstRecordComponent; rw != nil; rw = rw.next {
			recordComponentCount++
			recordSize += rw.computeRecordComponentInfoSize()
		}
		size += 8 + recordSize
	}
	if w.permittedSubclasses != nil {
		attributesCount++
		w.symbols.utf8Index(AttrPermittedSubclasses)
		size += 8 + w.permittedSubclasses.Len()
	}
	if w.attributes.n > 0 {
		attributesCount += w.attributes.n
		for a := w.attributes.head; a != nil; a = a.nextAttribute {
			w.symbols.utf8Index(a.Name)
		}
		size += w.attributes.computeSize()
	}

	if w.symbols.err != nil {
		return nil, w.symbols.err
	}
	if w.symbols.cpCount > 65535 {
		return nil, fmt.Errorf("%w: %d constant pool entries", ErrClassTooLarge, w.symbols.cpCount)
	}
	size += w.symbols.constantPool.Len()

	out := NewByteVectorSize(size)
	out.PutInt(-889275714) // 0xCAFEBABE
	out.PutInt(int32(w.version))
	w.symbols.putConstantPool(out)
	mask := 0
	if useSyntheticAttribute {
		mask = AccSynthetic
	}
	out.PutShort(w.accessFlags &^ mask & 0xFFFF)
	out.PutShort(w.thisClassIndex)
	out.PutShort(w.superClassIndex)
	out.PutShort(len(w.interfaceIndexes))
	for _, itf := range w.interfaceIndexes {
		out.PutShort(itf)
	}
	out.PutShort(fieldsCount)
	for fw := w.firstField; fw != nil; fw = fw.next {
		if err := fw.putFieldInfo(out); err != nil {
			return nil, err
		}
	}
	out.PutShort(methodsCount)
	for mw := w.firstMethod; mw != nil; mw = mw.next {
		if err := mw.putMethodInfo(out); err != nil {
			return nil, err
		}
	}

	out.PutShort(attributesCount)
	if w.innerClasses != nil {
		out.PutShort(w.symbols.utf8Index(AttrInnerClasses))
		out.PutInt(int32(2 + w.innerClasses.Len()))
		out.PutShort(w.numberOfInnerClasses)
		out.PutByteArray(w.innerClasses.Bytes(), 0, w.innerClasses.Len())
	}
	if w.enclosingClassIndex != 0 {
		out.PutShort(w.symbols.utf8Index(AttrEnclosingMethod))
		out.PutInt(4)
		out.PutShort(w.enclosingClassIndex)
		out.PutShort(w.enclosingMethodIndex)
	}
	if w.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		out.PutShort(w.symbols.utf8Index(AttrSynthetic))
		out.PutInt(0)
	}
	if w.signatureIndex != 0 {
		out.PutShort(w.symbols.utf8Index(AttrSignature))
		out.PutInt(2)
		out.PutShort(w.signatureIndex)
	}
	if w.sourceFileIndex != 0 {
		out.PutShort(w.symbols.utf8Index(AttrSourceFile))
		out.PutInt(2)
		out.PutShort(w.sourceFileIndex)
	}
	if w.debugExtension != nil {
		out.PutShort(w.symbols.utf8Index(AttrSourceDebugExtension))
		out.PutInt(int32(w.debugExtension.Len()))
		out.PutByteArray(w.debugExtension.Bytes(), 0, w.debugExtension.Len())
	}
	if w.accessFlags&AccDeprecated != 0 {
		out.PutShort(w.symbols.utf8Index(AttrDeprecated))
		out.PutInt(0)
	}
	putAnnotations(out, w.symbols, AttrRuntimeVisibleAnnotations, w.lastRuntimeVisibleAnnotation)
	putAnnotations(out, w.symbols, AttrRuntimeInvisibleAnnotations, w.lastRuntimeInvisibleAnnotation)
	putAnnotations(out, w.symbols, AttrRuntimeVisibleTypeAnnotations, w.lastRuntimeVisibleTypeAnnotation)
	putAnnotations(out, w.symbols, AttrRuntimeInvisibleTypeAnnotations, w.lastRuntimeInvisibleTypeAnnotation)
	if w.symbols.hasBootstrapMethods() {
		out.PutShort(w.symbols.utf8Index(AttrBootstrapMethods))
		out.PutInt(int32(2 + w.symbols.bootstrapMethods.Len()))
		w.symbols.putBootstrapMethods(out)
	}
	if w.moduleWriter != nil {
		w.moduleWriter.putAttributes(out)
	}
	if w.nestHostClassIndex != 0 {
		out.PutShort(w.symbols.utf8Index(AttrNestHost))
		out.PutInt(2)
		out.PutShort(w.nestHostClassIndex)
	}
	if w.nestMembers != nil {
		out.PutShort(w.symbols.utf8Index(AttrNestMembers))
		out.PutInt(int32(2 + w.nestMembers.Len()))
		out.PutShort(w.numberOfNestMembers)
		out.PutByteArray(w.nestMembers.Bytes(), 0, w.nestMembers.Len())
	}
	if hasRecord {
		out.PutShort(w.symbols.utf8Index(AttrRecord))
		out.PutInt(int32(2 + recordSize))
		out.PutShort(recordComponentCount)
		for rw := w.firstRecordComponent; rw != nil; rw = rw.next {
			if err := rw.putRecordComponentInfo(out); err != nil {
				return nil, err
			}
		}
	}
	if w.permittedSubclasses != nil {
		out.PutShort(w.symbols.utf8Index(AttrPermittedSubclasses))
		out.PutInt(int32(2 + w.permittedSubclasses.Len()))
		out.PutShort(w.numberOfPermittedSubclasses)
		out.PutByteArray(w.permittedSubclasses.Bytes(), 0, w.permittedSubclasses.Len())
	}
	for a := w.attributes.head; a != nil; a = a.nextAttribute {
		if err := a.putAttribute(out, w.symbols); err != nil {
			return nil, err
		}
	}

	if w.symbols.err != nil {
		return nil, w.symbols.err
	}
	if w.hasAsmInstructions {
		return w.replaceAsmInstructions(out.Bytes())
	}
	return out.Bytes(), nil
}

// replaceAsmInstructions re-reads the just-produced class file with
// ExpandAsmInsns, which rewrites the synthetic wide-pending opcodes into
// standard GOTO_W/JSR_W (or inverted-branch trampolines) and re-emits
// through this same writer; frames are re-synthesized if any method
// carried them, since the inserted jumps start new basic blocks
//.
func (w *Writer) replaceAsmInstructions(classFile []byte) ([]byte, error) {
	hadFrames := w.hasFrames
	r, err := NewReader(classFile)
	if err != nil {
		return nil, err
	}
	w.reset()
	if hadFrames {
		w.compute = computeInsertedFrames
	} else {
		w.compute = computeNothing
	}
	parseFlags := ExpandAsmInsns
	if hadFrames {
		parseFlags |= ExpandFrames
	}
	if err := r.Accept(w, parseFlags); err != nil {
		return nil, err
	}
	return w.ToByteArray()
}

// reset clears every per-class structure so the writer can re-accept its
// own output during long-branch resolution; the symbol table is kept (its
// indices remain valid in the re-read file), but cached InnerClasses row
// indexes are cleared so re-visited entries are written again.
func (w *Writer) reset() {
	w.accessFlags = 0
	w.thisClassIndex = 0
	w.superClassIndex = 0
	w.interfaceIndexes = nil
	w.signatureIndex = 0
	w.sourceFileIndex = 0
	w.debugExtension = nil
	w.enclosingClassIndex = 0
	w.enclosingMethodIndex = 0
	w.nestHostClassIndex = 0
	w.innerClasses = nil
	w.numberOfInnerClasses = 0
	w.nestMembers = nil
	w.numberOfNestMembers = 0
	w.permittedSubclasses = nil
	w.numberOfPermittedSubclasses = 0
	w.moduleWriter = nil
	w.firstField = nil
	w.lastField = nil
	w.firstMethod = nil
	w.lastMethod = nil
	w.firstRecordComponent = nil
	w.lastRecordComponent = nil
	w.lastRuntimeVisibleAnnotation = nil
	w.lastRuntimeInvisibleAnnotation = nil
	w.lastRuntimeVisibleTypeAnnotation = nil
	w.lastRuntimeInvisibleTypeAnnotation = nil
	w.attributes = attributeList{}
	w.hasFrames = false
	w.hasAsmInstructions = false
	for _, head := range w.symbols.buckets {
		for e := head; e != nil; e = e.next {
			if e.symbol.tag == ConstantClassTag {
				e.symbol.info = 0
			}
		}
	}
}
