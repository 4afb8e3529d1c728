// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// exceptionHandler is one visitTryCatchBlock registration; the exception
// table is emitted in registration order (first-registered =
// first-matched at runtime).
type exceptionHandler struct {
	start, end, handlerPc *Label
	catchTypeIndex        int
	catchTypeName         string
}

// MethodWriter assembles one method_info structure and runs the
// method-body engine: bytecode emission, label
// resolution, max-stack/max-locals computation, stack-map synthesis and
// long-branch resolution.
type MethodWriter struct {
	w       *Writer
	symbols *SymbolTable

	accessFlags     int
	name            string
	descriptor      string
	nameIndex       int
	descriptorIndex int
	signatureIndex  int

	exceptionIndexes []int

	maxStack  int
	maxLocals int

	code *ByteVector

	handlers []exceptionHandler

	lineNumberTable       *ByteVector
	lineNumberTableLength int

	localVariableTable           *ByteVector
	localVariableTableLength     int
	localVariableTypeTable       *ByteVector
	localVariableTypeTableLength int

	stackMapTable                *ByteVector
	stackMapTableNumberOfEntries int
	previousFrameOffset          int
	previousFrame                []int

	defaultValue *ByteVector

	parameters      *ByteVector
	parametersCount int

	lastRuntimeVisibleAnnotation       *AnnotationWriter
	lastRuntimeInvisibleAnnotation     *AnnotationWriter
	lastRuntimeVisibleTypeAnnotation   *AnnotationWriter
	lastRuntimeInvisibleTypeAnnotation *AnnotationWriter

	lastCodeRuntimeVisibleTypeAnnotation   *AnnotationWriter
	lastCodeRuntimeInvisibleTypeAnnotation *AnnotationWriter

	visibleParameterAnnotations       []*AnnotationWriter
	invisibleParameterAnnotations     []*AnnotationWriter
	visibleAnnotableParameterCount    int
	invisibleAnnotableParameterCount  int

	attributes attributeList

	compute int

	firstBasicBlock   *Label
	lastBasicBlock    *Label
	currentBasicBlock *Label

	relativeStackSize    int
	maxRelativeStackSize int
	currentMaxLocals     int

	lastBytecodeOffset int

	hasAsmInstructions bool

	// Copy-through source: when set, putMethodInfo copies
	// the whole attribute block of the original method_info verbatim.
	sourceBytes  []byte
	sourceOffset int
	sourceLength int

	next *MethodWriter
}

func newMethodWriter(w *Writer, access int, name, descriptor, signature string, exceptions []string, compute int) *MethodWriter {
	symbols := w.symbols
	mw := &MethodWriter{
		w:               w,
		symbols:         symbols,
		accessFlags:     access,
		name:            name,
		descriptor:      descriptor,
		nameIndex:       symbols.utf8Index(name),
		descriptorIndex: symbols.utf8Index(descriptor),
		code:            NewByteVector(),
		compute:         compute,
	}
	if name == "<init>" {
		mw.accessFlags |= AccConstructor
	}
	if signature != "" {
		mw.signatureIndex = symbols.utf8Index(signature)
	}
	if len(exceptions) > 0 {
		mw.exceptionIndexes = make([]int, len(exceptions))
		for i, exc := range exceptions {
			mw.exceptionIndexes[i] = symbols.classIndex(exc)
		}
	}
	argSlots := GetArgumentsAndReturnSizes(descriptor) >> 2
	if access&AccStatic != 0 {
		argSlots--
	}
	mw.currentMaxLocals = argSlots
	if compute != computeNothing && compute != computeMaxStackAndLocalFromFrames {
		first := NewLabel()
		mw.visitLabelForBlocks(first)
	}
	return mw
}

// --- declarative events ---------------------------------------------------

func (m *MethodWriter) VisitParameter(name string, access int) {
	if m.parameters == nil {
		m.parameters = NewByteVector()
	}
	if name == "" {
		m.parameters.PutShort(0)
	} else {
		m.parameters.PutShort(m.symbols.utf8Index(name))
	}
	m.parameters.PutShort(access)
	m.parametersCount++
}

func (m *MethodWriter) VisitAnnotationDefault() AnnotationVisitor {
	m.defaultValue = NewByteVector()
	return &AnnotationWriter{
		symbols:                    m.symbols,
		useNamedValues:             false,
		annotation:                 m.defaultValue,
		numElementValuePairsOffset: -1,
	}
}

func (m *MethodWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if visible {
		m.lastRuntimeVisibleAnnotation = newAnnotationWriter(m.symbols, descriptor, m.lastRuntimeVisibleAnnotation)
		return m.lastRuntimeVisibleAnnotation
	}
	m.lastRuntimeInvisibleAnnotation = newAnnotationWriter(m.symbols, descriptor, m.lastRuntimeInvisibleAnnotation)
	return m.lastRuntimeInvisibleAnnotation
}

func (m *MethodWriter) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if visible {
		m.lastRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, typeRef, typePath, descriptor, m.lastRuntimeVisibleTypeAnnotation)
		return m.lastRuntimeVisibleTypeAnnotation
	}
	m.lastRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, typeRef, typePath, descriptor, m.lastRuntimeInvisibleTypeAnnotation)
	return m.lastRuntimeInvisibleTypeAnnotation
}

func (m *MethodWriter) VisitAnnotableParameterCount(parameterCount int, visible bool) {
	if visible {
		m.visibleAnnotableParameterCount = parameterCount
	} else {
		m.invisibleAnnotableParameterCount = parameterCount
	}
}

func (m *MethodWriter) VisitParameterAnnotation(parameter int, descriptor string, visible bool) AnnotationVisitor {
	argCount := len(splitArgumentDescriptors(argumentDescriptors(m.descriptor)))
	if visible {
		if m.visibleParameterAnnotations == nil {
			m.visibleParameterAnnotations = make([]*AnnotationWriter, argCount)
		}
		m.visibleParameterAnnotations[parameter] = newAnnotationWriter(m.symbols, descriptor, m.visibleParameterAnnotations[parameter])
		return m.visibleParameterAnnotations[parameter]
	}
	if m.invisibleParameterAnnotations == nil {
		m.invisibleParameterAnnotations = make([]*AnnotationWriter, argCount)
	}
	m.invisibleParameterAnnotations[parameter] = newAnnotationWriter(m.symbols, descriptor, m.invisibleParameterAnnotations[parameter])
	return m.invisibleParameterAnnotations[parameter]
}

func (m *MethodWriter) VisitAttribute(attr *Attribute) {
	m.attributes.add(attr)
}

func (m *MethodWriter) VisitCode() {}

// --- frames ---------------------------------------------------------------

// VisitFrame records a user-supplied stack map frame. Frames are ignored
// in the recomputing modes; in the pass-through modes they are compressed
// (for FNew input) or re-encoded directly.
func (m *MethodWriter) VisitFrame(frameType, numLocal int, local []interface{}, numStack int, stack []interface{}) {
	if m.compute == computeAllFrames || m.compute == computeInsertedFrames {
		return
	}
	offset := m.code.Len()
	if frameType == FNew {
		locals := make([]int, 0, numLocal)
		for i := 0; i < numLocal; i++ {
			locals = append(locals, m.abstractFromFrameItem(local[i]))
		}
		stackTypes := make([]int, 0, numStack)
		for i := 0; i < numStack; i++ {
			stackTypes = append(stackTypes, m.abstractFromFrameItem(stack[i]))
		}
		m.putFrame(offset, locals, stackTypes)
	} else {
		m.ensureStackMapTable()
		offsetDelta := offset
		if m.stackMapTableNumberOfEntries > 0 {
			offsetDelta = offset - m.previousFrameOffset - 1
		}
		st := m.stackMapTable
		switch frameType {
		case FFull:
			st.PutByte(255)
			st.PutShort(offsetDelta)
			st.PutShort(numLocal)
			locals := make([]int, 0, numLocal)
			for i := 0; i < numLocal; i++ {
				v := m.abstractFromFrameItem(local[i])
				locals = append(locals, v)
				m.putVerificationType(v)
			}
			st.PutShort(numStack)
			for i := 0; i < numStack; i++ {
				m.putVerificationType(m.abstractFromFrameItem(stack[i]))
			}
			m.previousFrame = locals
		case FAppend:
			st.PutByte(byte(251 + numLocal))
			st.PutShort(offsetDelta)
			for i := 0; i < numLocal; i++ {
				v := m.abstractFromFrameItem(local[i])
				m.previousFrame = append(m.previousFrame, v)
				m.putVerificationType(v)
			}
		case FChop:
			st.PutByte(byte(251 - numLocal))
			st.PutShort(offsetDelta)
			if numLocal <= len(m.previousFrame) {
				m.previousFrame = m.previousFrame[:len(m.previousFrame)-numLocal]
			}
		case FSame:
			if offsetDelta < 64 {
				st.PutByte(byte(offsetDelta))
			} else {
				st.PutByte(251)
				st.PutShort(offsetDelta)
			}
		case FSame1:
			if offsetDelta < 64 {
				st.PutByte(byte(64 + offsetDelta))
			} else {
				st.PutByte(247)
				st.PutShort(offsetDelta)
			}
			m.putVerificationType(m.abstractFromFrameItem(stack[0]))
		}
		m.previousFrameOffset = offset
		m.stackMapTableNumberOfEntries++
	}

	if m.compute == computeMaxStackAndLocalFromFrames {
		stackSize := 0
		for i := 0; i < numStack; i++ {
			stackSize += frameItemSize(stack[i])
		}
		m.relativeStackSize = stackSize
		if stackSize > m.maxRelativeStackSize {
			m.maxRelativeStackSize = stackSize
		}
		if frameType == FNew || frameType == FFull {
			localsSize := 0
			for i := 0; i < numLocal; i++ {
				localsSize += frameItemSize(local[i])
			}
			if localsSize > m.currentMaxLocals {
				m.currentMaxLocals = localsSize
			}
		}
	}
}

func frameItemSize(item interface{}) int {
	if tag, ok := item.(int); ok && (tag == ConstantLong || tag == ConstantDouble) {
		return 2
	}
	return 1
}

func (m *MethodWriter) abstractFromFrameItem(item interface{}) int {
	switch v := item.(type) {
	case int:
		return abstractConstant(v)
	case string:
		return abstractReference(m.symbols.addType(v))
	case *Label:
		return abstractUninitialized(m.symbols.addUninitializedType("", v.bytecodeOffset))
	default:
		m.symbols.recordError(fmt.Errorf("%w: frame item of unsupported type %T", ErrInvalidArgument, item))
		return abstractConstant(ConstantTop)
	}
}

// --- instruction events ---------------------------------------------------

func (m *MethodWriter) VisitInsn(opcode int) {
	m.lastBytecodeOffset = m.code.Len()
	m.code.PutByte(byte(opcode))
	if m.currentBasicBlock != nil {
		if m.framesMode() {
			m.currentBasicBlock.frame.execute(opcode, 0, nil, m.symbols)
		} else {
			m.applyStackDelta(stackEffectOf(opcode))
		}
		if (opcode >= Ireturn && opcode <= Return) || opcode == Athrow {
			m.endCurrentBasicBlockWithNoSuccessor()
		}
	} else if m.compute == computeMaxStackAndLocalFromFrames {
		m.applyStackDelta(stackEffectOf(opcode))
	}
}

func (m *MethodWriter) VisitIntInsn(opcode, operand int) {
	m.lastBytecodeOffset = m.code.Len()
	if opcode == Sipush {
		m.code.Put12(opcode, operand)
	} else {
		m.code.Put11(opcode, operand)
	}
	m.trackStack(opcode, operand, nil)
}

func (m *MethodWriter) VisitVarInsn(opcode, varIndex int) {
	m.lastBytecodeOffset = m.code.Len()
	switch {
	case varIndex < 4 && opcode != Ret:
		if opcode < Istore {
			m.code.PutByte(byte(Iload0 + (opcode-Iload)*4 + varIndex))
		} else {
			m.code.PutByte(byte(Istore0 + (opcode-Istore)*4 + varIndex))
		}
	case varIndex >= 256:
		m.code.PutByte(Wide)
		m.code.Put12(opcode, varIndex)
	default:
		m.code.Put11(opcode, varIndex)
	}

	limit := varIndex + 1
	if opcode == Lload || opcode == Dload || opcode == Lstore || opcode == Dstore {
		limit = varIndex + 2
	}
	if limit > m.currentMaxLocals {
		m.currentMaxLocals = limit
	}

	if m.currentBasicBlock != nil {
		if m.framesMode() {
			m.currentBasicBlock.frame.execute(opcode, varIndex, nil, m.symbols)
		} else {
			m.applyStackDelta(stackEffectOf(opcode))
		}
		if opcode == Ret {
			m.currentBasicBlock.flags |= LabelFlagSubroutineCaller
			m.endCurrentBasicBlockWithNoSuccessor()
		}
	} else if m.compute == computeMaxStackAndLocalFromFrames {
		m.applyStackDelta(stackEffectOf(opcode))
	}
}

func (m *MethodWriter) VisitTypeInsn(opcode int, typ string) {
	m.lastBytecodeOffset = m.code.Len()
	typeSymbol := m.symbols.classSymbol(typ)
	m.code.Put12(opcode, typeSymbol.Index())
	m.trackStack(opcode, m.lastBytecodeOffset, typeSymbol)
}

func (m *MethodWriter) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	m.lastBytecodeOffset = m.code.Len()
	sym, err := m.symbols.addConstantMemberRef(ConstantFieldrefTag, owner, name, descriptor)
	if err != nil {
		m.symbols.recordError(err)
		return
	}
	m.code.Put12(opcode, sym.Index())
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(opcode, 0, sym, m.symbols)
	} else {
		size := GetType(descriptor).Size()
		var delta int
		switch opcode {
		case Getstatic:
			delta = size
		case Putstatic:
			delta = -size
		case Getfield:
			delta = size - 1
		default: // Putfield
			delta = -size - 1
		}
		m.applyStackDeltaAnyMode(delta)
	}
}

func (m *MethodWriter) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	m.lastBytecodeOffset = m.code.Len()
	tag := ConstantMethodrefTag
	if isInterface {
		tag = ConstantInterfaceMethodrefTag
	}
	sym, err := m.symbols.addConstantMemberRef(tag, owner, name, descriptor)
	if err != nil {
		m.symbols.recordError(err)
		return
	}
	if opcode == Invokeinterface {
		m.code.Put12(opcode, sym.Index())
		argSlots := GetArgumentsAndReturnSizes(descriptor) >> 2
		m.code.Put11(argSlots, 0)
	} else {
		m.code.Put12(opcode, sym.Index())
	}
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(opcode, 0, sym, m.symbols)
	} else {
		sizes := GetArgumentsAndReturnSizes(descriptor)
		argSlots, retSize := sizes>>2, sizes&3
		delta := retSize - argSlots
		if opcode == Invokestatic {
			delta++
		}
		m.applyStackDeltaAnyMode(delta)
	}
}

func (m *MethodWriter) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle Handle, bootstrapMethodArguments []interface{}) {
	m.lastBytecodeOffset = m.code.Len()
	sym, err := m.symbols.addConstantInvokeDynamic(name, descriptor, bootstrapMethodHandle, bootstrapMethodArguments)
	if err != nil {
		m.symbols.recordError(err)
		return
	}
	m.code.Put12(Invokedynamic, sym.Index())
	m.code.PutShort(0)
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(Invokedynamic, 0, sym, m.symbols)
	} else {
		sizes := GetArgumentsAndReturnSizes(descriptor)
		m.applyStackDeltaAnyMode(sizes&3 - (sizes >> 2) + 1)
	}
}

func (m *MethodWriter) VisitJumpInsn(opcode int, label *Label) {
	m.lastBytecodeOffset = m.code.Len()
	baseOpcode := opcode
	if baseOpcode >= GotoW {
		baseOpcode -= WideJumpOpcodeDelta
	}

	switch {
	case opcode == GotoW || opcode == JsrW:
		insn := m.code.Len()
		m.code.PutByte(byte(opcode))
		if label.isResolved() {
			m.code.PutInt(int32(label.bytecodeOffset - insn))
		} else {
			label.addForwardReference(insn, m.code.Len(), true)
			m.code.PutInt(-1)
		}
	case label.isResolved() && label.bytecodeOffset-m.code.Len() < -32768:
		// A backward branch out of short range is widened immediately;
		// conditional branches are inverted over a GOTO_W trampoline
		//.
		switch baseOpcode {
		case Goto, Jsr:
			insn := m.code.Len()
			m.code.PutByte(byte(baseOpcode + WideJumpOpcodeDelta))
			m.code.PutInt(int32(label.bytecodeOffset - insn))
		default:
			m.code.Put12(invertCondition(baseOpcode), 8)
			insn := m.code.Len()
			m.code.PutByte(GotoW)
			m.code.PutInt(int32(label.bytecodeOffset - insn))
		}
	default:
		insn := m.code.Len()
		m.code.PutByte(byte(baseOpcode))
		if label.isResolved() {
			m.code.PutShort(label.bytecodeOffset - insn)
		} else {
			label.addForwardReference(insn, m.code.Len(), false)
			m.code.PutShort(-1)
		}
	}

	if m.currentBasicBlock != nil {
		if m.framesMode() {
			m.currentBasicBlock.frame.execute(baseOpcode, 0, nil, m.symbols)
			label.getCanonicalInstance().flags |= LabelFlagJumpTarget
			m.addSuccessor(0, label)
			if baseOpcode != Goto {
				next := NewLabel()
				m.visitLabelForBlocks(next)
			}
		} else {
			m.applyStackDelta(stackEffectOf(baseOpcode))
			m.addSuccessor(m.relativeStackSize, label)
		}
		if baseOpcode == Goto {
			m.endCurrentBasicBlockWithNoSuccessor()
		}
	} else if m.compute == computeMaxStackAndLocalFromFrames {
		m.applyStackDelta(stackEffectOf(baseOpcode))
	}
}

func (m *MethodWriter) VisitLabel(label *Label) {
	m.visitLabelForBlocks(label)
}

// visitLabelForBlocks resolves label at the current code offset and
// maintains the basic-block list for the computing modes.
func (m *MethodWriter) visitLabelForBlocks(label *Label) {
	if label.resolve(m.code, m.code.Len()) {
		m.hasAsmInstructions = true
		m.w.hasAsmInstructions = true
	}
	if label.flags&LabelFlagDebugOnly != 0 {
		return
	}
	switch m.compute {
	case computeAllFrames, computeInsertedFrames:
		if m.currentBasicBlock != nil {
			if label.bytecodeOffset == m.currentBasicBlock.bytecodeOffset {
				m.currentBasicBlock.flags |= label.flags & LabelFlagJumpTarget
				label.frame = m.currentBasicBlock.frame
				label.canonical = m.currentBasicBlock
				return
			}
			m.addSuccessor(0, label)
		}
		label.frame = newFrame(label)
		m.appendBasicBlock(label)
		m.currentBasicBlock = label
	case computeMaxStackAndLocal:
		if m.currentBasicBlock != nil {
			if label.bytecodeOffset == m.currentBasicBlock.bytecodeOffset {
				m.currentBasicBlock.flags |= label.flags & LabelFlagJumpTarget
				label.canonical = m.currentBasicBlock
				return
			}
			m.currentBasicBlock.outputStackMax = m.maxRelativeStackSize
			m.addSuccessor(m.relativeStackSize, label)
		}
		m.appendBasicBlock(label)
		m.currentBasicBlock = label
		m.relativeStackSize = 0
		m.maxRelativeStackSize = 0
	}
}

func (m *MethodWriter) appendBasicBlock(label *Label) {
	if m.firstBasicBlock == nil {
		m.firstBasicBlock = label
	} else {
		m.lastBasicBlock.nextBasicBlock = label
	}
	m.lastBasicBlock = label
}

func (m *MethodWriter) VisitLdcInsn(value interface{}) {
	m.lastBytecodeOffset = m.code.Len()
	sym, err := m.symbols.addConstant(value)
	if err != nil {
		m.symbols.recordError(err)
		return
	}
	index := sym.Index()
	wide := sym.Tag() == ConstantLongTag || sym.Tag() == ConstantDoubleTag ||
		(sym.Tag() == ConstantDynamicTag && (sym.Value() == "J" || sym.Value() == "D"))
	switch {
	case wide:
		m.code.Put12(Ldc2W, index)
	case index >= 256:
		m.code.Put12(LdcW, index)
	default:
		m.code.Put11(Ldc, index)
	}
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(Ldc, 0, sym, m.symbols)
	} else {
		delta := 1
		if wide {
			delta = 2
		}
		m.applyStackDeltaAnyMode(delta)
	}
}

func (m *MethodWriter) VisitIincInsn(varIndex, increment int) {
	m.lastBytecodeOffset = m.code.Len()
	if varIndex > 255 || increment > 127 || increment < -128 {
		m.code.PutByte(Wide)
		m.code.Put122(Iinc, varIndex, increment)
	} else {
		m.code.PutByte(Iinc)
		m.code.Put11(varIndex, increment)
	}
	if varIndex+1 > m.currentMaxLocals {
		m.currentMaxLocals = varIndex + 1
	}
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(Iinc, varIndex, nil, m.symbols)
	}
}

func (m *MethodWriter) VisitTableSwitchInsn(min, max int, dflt *Label, labels []*Label) {
	m.lastBytecodeOffset = m.code.Len()
	m.code.PutByte(Tableswitch)
	for m.code.Len()%4 != 0 {
		m.code.PutByte(0)
	}
	m.putSwitchTarget(dflt)
	m.code.PutInt(int32(min))
	m.code.PutInt(int32(max))
	for _, label := range labels {
		m.putSwitchTarget(label)
	}
	m.endSwitch(dflt, labels)
}

func (m *MethodWriter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	m.lastBytecodeOffset = m.code.Len()
	m.code.PutByte(Lookupswitch)
	for m.code.Len()%4 != 0 {
		m.code.PutByte(0)
	}
	m.putSwitchTarget(dflt)
	m.code.PutInt(int32(len(labels)))
	for i, label := range labels {
		m.code.PutInt(int32(keys[i]))
		m.putSwitchTarget(label)
	}
	m.endSwitch(dflt, labels)
}

// putSwitchTarget emits one 4-byte switch offset, as a forward reference
// if the target is not yet resolved.
func (m *MethodWriter) putSwitchTarget(label *Label) {
	if label.isResolved() {
		m.code.PutInt(int32(label.bytecodeOffset - m.lastBytecodeOffset))
	} else {
		label.addForwardReference(m.lastBytecodeOffset, m.code.Len(), true)
		m.code.PutInt(-1)
	}
}

func (m *MethodWriter) endSwitch(dflt *Label, labels []*Label) {
	if m.currentBasicBlock != nil {
		if m.framesMode() {
			m.currentBasicBlock.frame.execute(Lookupswitch, 0, nil, m.symbols)
			m.addSuccessor(0, dflt)
			dflt.getCanonicalInstance().flags |= LabelFlagJumpTarget
			for _, label := range labels {
				m.addSuccessor(0, label)
				label.getCanonicalInstance().flags |= LabelFlagJumpTarget
			}
		} else {
			m.applyStackDelta(-1)
			m.addSuccessor(m.relativeStackSize, dflt)
			for _, label := range labels {
				m.addSuccessor(m.relativeStackSize, label)
			}
		}
		m.endCurrentBasicBlockWithNoSuccessor()
	} else if m.compute == computeMaxStackAndLocalFromFrames {
		m.applyStackDelta(-1)
	}
}

func (m *MethodWriter) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	m.lastBytecodeOffset = m.code.Len()
	sym := m.symbols.classSymbol(descriptor)
	m.code.Put12(Multianewarray, sym.Index())
	m.code.PutByte(byte(numDimensions))
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(Multianewarray, numDimensions, sym, m.symbols)
	} else {
		m.applyStackDeltaAnyMode(1 - numDimensions)
	}
}

func (m *MethodWriter) VisitInsnAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	packed := NewTypeReference(typeRef.Value()&0xFF0000FF | m.lastBytecodeOffset<<8)
	if visible {
		m.lastCodeRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, packed, typePath, descriptor, m.lastCodeRuntimeVisibleTypeAnnotation)
		return m.lastCodeRuntimeVisibleTypeAnnotation
	}
	m.lastCodeRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, packed, typePath, descriptor, m.lastCodeRuntimeInvisibleTypeAnnotation)
	return m.lastCodeRuntimeInvisibleTypeAnnotation
}

func (m *MethodWriter) VisitTryCatchBlock(start, end, handlerPc *Label, typ string) {
	catchTypeIndex := 0
	if typ != "" {
		catchTypeIndex = m.symbols.classIndex(typ)
	}
	m.handlers = append(m.handlers, exceptionHandler{
		start:          start,
		end:            end,
		handlerPc:      handlerPc,
		catchTypeIndex: catchTypeIndex,
		catchTypeName:  typ,
	})
}

func (m *MethodWriter) VisitTryCatchAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if visible {
		m.lastCodeRuntimeVisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, typeRef, typePath, descriptor, m.lastCodeRuntimeVisibleTypeAnnotation)
		return m.lastCodeRuntimeVisibleTypeAnnotation
	}
	m.lastCodeRuntimeInvisibleTypeAnnotation = newTypeAnnotationWriter(m.symbols, typeRef, typePath, descriptor, m.lastCodeRuntimeInvisibleTypeAnnotation)
	return m.lastCodeRuntimeInvisibleTypeAnnotation
}

func (m *MethodWriter) VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int) {
	if signature != "" {
		if m.localVariableTypeTable == nil {
			m.localVariableTypeTable = NewByteVector()
		}
		m.putLocalVariableEntry(m.localVariableTypeTable, name, signature, start, end, index)
		m.localVariableTypeTableLength++
	}
	if m.localVariableTable == nil {
		m.localVariableTable = NewByteVector()
	}
	m.putLocalVariableEntry(m.localVariableTable, name, descriptor, start, end, index)
	m.localVariableTableLength++

	if m.compute != computeNothing {
		limit := index + 1
		if len(descriptor) == 1 && (descriptor[0] == 'J' || descriptor[0] == 'D') {
			limit = index + 2
		}
		if limit > m.currentMaxLocals {
			m.currentMaxLocals = limit
		}
	}
}

func (m *MethodWriter) putLocalVariableEntry(out *ByteVector, name, descriptor string, start, end *Label, index int) {
	out.PutShort(start.bytecodeOffset)
	out.PutShort(end.bytecodeOffset - start.bytecodeOffset)
	out.PutShort(m.symbols.utf8Index(name))
	out.PutShort(m.symbols.utf8Index(descriptor))
	out.PutShort(index)
}

func (m *MethodWriter) VisitLocalVariableAnnotation(typeRef TypeReference, typePath TypePath, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor {
	annotation := NewByteVector()
	annotation.PutByte(byte(typeRef.Value() >> 24))
	annotation.PutShort(len(start))
	for i := range start {
		annotation.PutShort(start[i].bytecodeOffset)
		annotation.PutShort(end[i].bytecodeOffset - start[i].bytecodeOffset)
		annotation.PutShort(index[i])
	}
	putTypePath(typePath, annotation)
	annotation.PutShort(m.symbols.utf8Index(descriptor))
	annotation.PutShort(0)
	var previous *AnnotationWriter
	if visible {
		previous = m.lastCodeRuntimeVisibleTypeAnnotation
	} else {
		previous = m.lastCodeRuntimeInvisibleTypeAnnotation
	}
	aw := &AnnotationWriter{
		symbols:                    m.symbols,
		useNamedValues:             true,
		annotation:                 annotation,
		numElementValuePairsOffset: annotation.Len() - 2,
		previousAnnotation:         previous,
	}
	if previous != nil {
		previous.nextAnnotation = aw
	}
	if visible {
		m.lastCodeRuntimeVisibleTypeAnnotation = aw
	} else {
		m.lastCodeRuntimeInvisibleTypeAnnotation = aw
	}
	return aw
}

func (m *MethodWriter) VisitLineNumber(line int, start *Label) {
	if m.lineNumberTable == nil {
		m.lineNumberTable = NewByteVector()
	}
	m.lineNumberTable.PutShort(start.bytecodeOffset)
	m.lineNumberTable.PutShort(line)
	m.lineNumberTableLength++
}

// --- shared instruction bookkeeping --------------------------------------

// framesMode reports whether the frame interpreter drives stack
// accounting instead of the per-opcode delta table.
func (m *MethodWriter) framesMode() bool {
	return m.compute == computeAllFrames || m.compute == computeInsertedFrames
}

// trackStack is the common bookkeeping tail for instructions whose frame
// effect needs an argument and symbol.
func (m *MethodWriter) trackStack(opcode, arg int, sym *Symbol) {
	if m.currentBasicBlock != nil && m.framesMode() {
		m.currentBasicBlock.frame.execute(opcode, arg, sym, m.symbols)
		return
	}
	m.applyStackDeltaAnyMode(stackEffectOf(opcode))
}

// applyStackDelta applies a delta within a basic block (MAXS mode) or to
// the frame-relative running size (FROM_FRAMES mode).
func (m *MethodWriter) applyStackDelta(delta int) {
	size := m.relativeStackSize + delta
	if size > m.maxRelativeStackSize {
		m.maxRelativeStackSize = size
	}
	m.relativeStackSize = size
}

// applyStackDeltaAnyMode applies a delta when the caller has not already
// dispatched on mode: a no-op for computeNothing, delta tracking
// otherwise.
func (m *MethodWriter) applyStackDeltaAnyMode(delta int) {
	if m.currentBasicBlock != nil && !m.framesMode() {
		m.applyStackDelta(delta)
	} else if m.compute == computeMaxStackAndLocalFromFrames {
		m.applyStackDelta(delta)
	}
}

func (m *MethodWriter) addSuccessor(info int, successor *Label) {
	m.currentBasicBlock.addOutgoingEdge(NewEdge(info, successor.getCanonicalInstance()))
}

// endCurrentBasicBlockWithNoSuccessor closes the block after an
// unconditional control transfer. In the frame modes a fresh block is
// opened for any (possibly dead) code that follows, so the dead-code
// replacement pass has a range to operate on.
func (m *MethodWriter) endCurrentBasicBlockWithNoSuccessor() {
	switch m.compute {
	case computeAllFrames, computeInsertedFrames:
		next := NewLabel()
		next.bytecodeOffset = m.code.Len()
		next.flags |= LabelFlagResolved
		next.frame = newFrame(next)
		m.appendBasicBlock(next)
		m.currentBasicBlock = nil
	case computeMaxStackAndLocal:
		m.currentBasicBlock.outputStackMax = m.maxRelativeStackSize
		m.currentBasicBlock = nil
	}
}

// invertCondition maps a conditional branch opcode to its negation.
func invertCondition(opcode int) int {
	if opcode >= Ifnull {
		return opcode ^ 1
	}
	return ((opcode + 1) ^ 1) - 1
}

// --- max computation and frame synthesis ----------------------------------

func (m *MethodWriter) VisitMaxs(maxStack, maxLocals int) {
	switch m.compute {
	case computeAllFrames, computeInsertedFrames:
		m.computeAllFramesPass()
	case computeMaxStackAndLocal:
		m.computeMaxStackAndLocalPass()
	case computeMaxStackAndLocalFromFrames:
		m.maxStack = m.maxRelativeStackSize
		m.maxLocals = m.currentMaxLocals
	default:
		m.maxStack = maxStack
		m.maxLocals = maxLocals
	}
}

func (m *MethodWriter) VisitEnd() {}

// computeMaxStackAndLocalPass runs the classic stack-delta computation
//: each edge carries the
// stack size at its source, each block's entry size is the maximum over
// its predecessors, and a work-list propagates sizes until stable.
func (m *MethodWriter) computeMaxStackAndLocalPass() {
	if m.currentBasicBlock != nil {
		m.currentBasicBlock.outputStackMax = m.maxRelativeStackSize
	}
	for _, h := range m.handlers {
		start := h.start.getCanonicalInstance()
		end := h.end.getCanonicalInstance()
		handlerBlock := h.handlerPc.getCanonicalInstance()
		for block := start; block != nil && block != end; block = block.nextBasicBlock {
			block.addOutgoingEdge(NewExceptionEdge(handlerBlock, -1))
		}
	}

	first := m.firstBasicBlock
	if first == nil {
		m.maxStack = m.maxRelativeStackSize
		m.maxLocals = m.currentMaxLocals
		return
	}
	maxStackSize := 0
	first.inputStackSize = 0
	first.flags |= LabelFlagReachable
	worklist := []*Label{first}
	for len(worklist) > 0 {
		block := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		input := block.inputStackSize
		if blockMax := input + block.outputStackMax; blockMax > maxStackSize {
			maxStackSize = blockMax
		}
		for e := block.outgoingEdges; e != nil; e = e.Next() {
			succ := e.Successor.getCanonicalInstance()
			newSize := input + e.Info
			if e.IsException() {
				newSize = 1
			}
			if succ.flags&LabelFlagReachable == 0 || newSize > succ.inputStackSize {
				succ.inputStackSize = newSize
				succ.flags |= LabelFlagReachable
				worklist = append(worklist, succ)
			}
		}
	}
	m.maxStack = maxStackSize
	m.maxLocals = m.currentMaxLocals
}

// computeAllFramesPass runs the full abstract interpretation: exception
// edges are added, the entry
// frame is seeded from the descriptor, a work-list merges output frames
// into successors until a fixed point, unreachable code is replaced by a
// NOP...ATHROW filler, and one compressed stack-map entry is emitted per
// jump-target block.
func (m *MethodWriter) computeAllFramesPass() {
	symbols := m.symbols
	for _, h := range m.handlers {
		catchTypeName := h.catchTypeName
		if catchTypeName == "" {
			catchTypeName = "java/lang/Throwable"
		}
		catchIndex := symbols.addType(catchTypeName)
		handlerBlock := h.handlerPc.getCanonicalInstance()
		handlerBlock.flags |= LabelFlagJumpTarget
		start := h.start.getCanonicalInstance()
		end := h.end.getCanonicalInstance()
		for block := start; block != nil && block != end; block = block.nextBasicBlock {
			block.addOutgoingEdge(NewExceptionEdge(handlerBlock, catchIndex))
		}
	}

	first := m.firstBasicBlock
	if first == nil {
		m.maxStack = 0
		m.maxLocals = m.currentMaxLocals
		return
	}
	first.frame.setInputFromArguments(m.accessFlags, symbols.className, m.descriptor, symbols)
	initialLocals := collapseFrameTypes(first.frame.inputLocals)

	maxStackSize := 0
	first.flags |= LabelFlagReachable
	worklist := []*Label{first}
	for len(worklist) > 0 {
		block := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		block.flags |= LabelFlagReachable
		if blockMax := len(block.frame.inputStack) + block.frame.relativeMax; blockMax > maxStackSize {
			maxStackSize = blockMax
		}
		for e := block.outgoingEdges; e != nil; e = e.Next() {
			succ := e.Successor.getCanonicalInstance()
			if succ.frame == nil {
				symbols.recordError(fmt.Errorf("%w: jump target label was never visited", ErrInvalidArgument))
				continue
			}
			catchType := -1
			if e.IsException() {
				catchType = e.CaughtType
			}
			if block.frame.mergeIntoSuccessor(succ.frame, catchType, symbols) {
				worklist = append(worklist, succ)
			}
		}
	}

	// Replace unreachable code by NOP...ATHROW and give each replaced
	// range a minimal frame, which keeps the emitted table verifiable
	// without knowing the dead code's types.
	for block := first; block != nil; block = block.nextBasicBlock {
		end := m.code.Len()
		if block.nextBasicBlock != nil {
			end = block.nextBasicBlock.bytecodeOffset
		}
		if block.flags&LabelFlagReachable != 0 || block.bytecodeOffset >= end {
			continue
		}
		for i := block.bytecodeOffset; i < end-1; i++ {
			m.code.data[i] = Nop
		}
		m.code.data[end-1] = Athrow
		block.frame.inputLocals = []int{}
		block.frame.inputStack = []int{abstractReference(symbols.addType("java/lang/Throwable"))}
		block.flags |= LabelFlagJumpTarget | LabelFlagReachable
		if maxStackSize < 1 {
			maxStackSize = 1
		}
	}

	m.maxStack = maxStackSize
	m.maxLocals = m.currentMaxLocals

	m.previousFrame = initialLocals
	m.previousFrameOffset = -1
	m.stackMapTableNumberOfEntries = 0
	m.stackMapTable = nil
	for block := first; block != nil; block = block.nextBasicBlock {
		if block.flags&LabelFlagJumpTarget == 0 || block.flags&LabelFlagReachable == 0 {
			continue
		}
		m.putFrame(block.bytecodeOffset,
			collapseFrameTypes(block.frame.inputLocals),
			collapseFrameTypes(block.frame.inputStack))
	}
}

// --- stack map emission ---------------------------------------------------

func (m *MethodWriter) ensureStackMapTable() {
	if m.stackMapTable == nil {
		m.stackMapTable = NewByteVector()
		m.w.hasFrames = true
	}
}

// putFrame emits one StackMapTable entry for the frame (locals, stack) at
// offset, choosing the smallest of the six compression forms against the
// previously emitted frame.
func (m *MethodWriter) putFrame(offset int, locals, stack []int) {
	m.ensureStackMapTable()
	offsetDelta := offset
	if m.stackMapTableNumberOfEntries > 0 {
		offsetDelta = offset - m.previousFrameOffset - 1
	}
	prev := m.previousFrame
	k := len(locals) - len(prev)
	common := len(locals)
	if len(prev) < common {
		common = len(prev)
	}
	prefixEqual := true
	for i := 0; i < common; i++ {
		if locals[i] != prev[i] {
			prefixEqual = false
			break
		}
	}
	st := m.stackMapTable
	switch {
	case len(stack) == 0 && k == 0 && prefixEqual:
		if offsetDelta < 64 {
			st.PutByte(byte(offsetDelta))
		} else {
			st.PutByte(251)
			st.PutShort(offsetDelta)
		}
	case len(stack) == 1 && k == 0 && prefixEqual:
		if offsetDelta < 64 {
			st.PutByte(byte(64 + offsetDelta))
		} else {
			st.PutByte(247)
			st.PutShort(offsetDelta)
		}
		m.putVerificationType(stack[0])
	case len(stack) == 0 && k > 0 && k <= 3 && prefixEqual:
		st.PutByte(byte(251 + k))
		st.PutShort(offsetDelta)
		for _, v := range locals[len(prev):] {
			m.putVerificationType(v)
		}
	case len(stack) == 0 && k < 0 && k >= -3 && prefixEqual:
		st.PutByte(byte(251 + k))
		st.PutShort(offsetDelta)
	default:
		st.PutByte(255)
		st.PutShort(offsetDelta)
		st.PutShort(len(locals))
		for _, v := range locals {
			m.putVerificationType(v)
		}
		st.PutShort(len(stack))
		for _, v := range stack {
			m.putVerificationType(v)
		}
	}
	m.previousFrame = locals
	m.previousFrameOffset = offset
	m.stackMapTableNumberOfEntries++
}

// putVerificationType writes one verification_type_info for a collapsed
// abstract type.
func (m *MethodWriter) putVerificationType(v int) {
	st := m.stackMapTable
	switch abstractKind(v) {
	case kindReference:
		name := m.symbols.typeTableEntry(abstractValue(v)).Value()
		st.Put12(7, m.symbols.classIndex(name))
	case kindUninitialized:
		st.PutByte(8)
		st.PutShort(int(m.symbols.typeTableEntry(abstractValue(v)).Data()))
	default:
		st.PutByte(byte(abstractValue(v)))
	}
}

// --- copy-through and final emission --------------------------------------

// canCopyMethodAttributes reports whether this writer may copy the
// method's raw bytes from source instead of re-assembling them: the
// symbol tables must be shared, and the synthetic/deprecated
// representation, signature index, and exceptions table must be the same
//.
func (m *MethodWriter) canCopyMethodAttributes(source *Reader, hasSyntheticAttribute, hasDeprecatedAttribute bool, signatureIndex int, exceptionIndexes []int) bool {
	if m.symbols.source != source {
		return false
	}
	if hasDeprecatedAttribute != (m.accessFlags&AccDeprecated != 0) {
		return false
	}
	wantSynthetic := m.symbols.majorVersion < 49 && m.accessFlags&AccSynthetic != 0
	if hasSyntheticAttribute != wantSynthetic {
		return false
	}
	if signatureIndex != m.signatureIndex {
		return false
	}
	if len(exceptionIndexes) != len(m.exceptionIndexes) {
		return false
	}
	for i, idx := range exceptionIndexes {
		if m.exceptionIndexes[i] != idx {
			return false
		}
	}
	return true
}

// setMethodAttributesSource records the byte range of the source
// method_info's attribute block (including its attributes_count).
func (m *MethodWriter) setMethodAttributesSource(source *Reader, offset, length int) {
	m.sourceBytes = source.b
	m.sourceOffset = offset
	m.sourceLength = length
}

func (m *MethodWriter) computeMethodInfoSize() (int, error) {
	if m.sourceBytes != nil {
		return 6 + m.sourceLength, nil
	}
	size := 8
	if m.code.Len() > 0 {
		if m.code.Len() > 65535 {
			return 0, fmt.Errorf("%w: %s%s is %d bytes", ErrMethodTooLarge, m.name, m.descriptor, m.code.Len())
		}
		m.symbols.utf8Index(AttrCode)
		size += 16 + m.code.Len() + 8*len(m.handlers)
		if m.stackMapTable != nil {
			m.symbols.utf8Index(AttrStackMapTable)
			size += 8 + m.stackMapTable.Len()
		}
		if m.lineNumberTable != nil {
			m.symbols.utf8Index(AttrLineNumberTable)
			size += 8 + m.lineNumberTable.Len()
		}
		if m.localVariableTable != nil {
			m.symbols.utf8Index(AttrLocalVariableTable)
			size += 8 + m.localVariableTable.Len()
		}
		if m.localVariableTypeTable != nil {
			m.symbols.utf8Index(AttrLocalVariableTypeTable)
			size += 8 + m.localVariableTypeTable.Len()
		}
		size += annotationsSize(m.symbols, AttrRuntimeVisibleTypeAnnotations, m.lastCodeRuntimeVisibleTypeAnnotation)
		size += annotationsSize(m.symbols, AttrRuntimeInvisibleTypeAnnotations, m.lastCodeRuntimeInvisibleTypeAnnotation)
	}
	if len(m.exceptionIndexes) > 0 {
		m.symbols.utf8Index(AttrExceptions)
		size += 8 + 2*len(m.exceptionIndexes)
	}
	if m.accessFlags&AccSynthetic != 0 && m.symbols.majorVersion < 49 {
		m.symbols.utf8Index(AttrSynthetic)
		size += 6
	}
	if m.signatureIndex != 0 {
		m.symbols.utf8Index(AttrSignature)
		size += 8
	}
	if m.accessFlags&AccDeprecated != 0 {
		m.symbols.utf8Index(AttrDeprecated)
		size += 6
	}
	size += annotationsSize(m.symbols, AttrRuntimeVisibleAnnotations, m.lastRuntimeVisibleAnnotation)
	size += annotationsSize(m.symbols, AttrRuntimeInvisibleAnnotations, m.lastRuntimeInvisibleAnnotation)
	size += annotationsSize(m.symbols, AttrRuntimeVisibleTypeAnnotations, m.lastRuntimeVisibleTypeAnnotation)
	size += annotationsSize(m.symbols, AttrRuntimeInvisibleTypeAnnotations, m.lastRuntimeInvisibleTypeAnnotation)
	if m.visibleParameterAnnotations != nil {
		count := m.visibleAnnotableParameterCount
		if count == 0 {
			count = len(m.visibleParameterAnnotations)
		}
		size += parameterAnnotationsSize(m.symbols, AttrRuntimeVisibleParameterAnnotations, m.visibleParameterAnnotations, count)
	}
	if m.invisibleParameterAnnotations != nil {
		count := m.invisibleAnnotableParameterCount
		if count == 0 {
			count = len(m.invisibleParameterAnnotations)
		}
		size += parameterAnnotationsSize(m.symbols, AttrRuntimeInvisibleParameterAnnotations, m.invisibleParameterAnnotations, count)
	}
	if m.defaultValue != nil {
		m.symbols.utf8Index(AttrAnnotationDefault)
		size += 6 + m.defaultValue.Len()
	}
	if m.parameters != nil {
		m.symbols.utf8Index(AttrMethodParameters)
		size += 7 + m.parameters.Len()
	}
	for a := m.attributes.head; a != nil; a = a.nextAttribute {
		m.symbols.utf8Index(a.Name)
	}
	size += m.attributes.computeSize()
	return size, nil
}

func (m *MethodWriter) putMethodInfo(out *ByteVector) error {
	useSyntheticAttribute := m.symbols.majorVersion < 49
	mask := 0
	if useSyntheticAttribute {
		mask = AccSynthetic
	}
	out.PutShort(m.accessFlags &^ mask &^ AccConstructor & 0xFFFF)
	out.PutShort(m.nameIndex)
	out.PutShort(m.descriptorIndex)

	if m.sourceBytes != nil {
		out.PutByteArray(m.sourceBytes, m.sourceOffset, m.sourceLength)
		return nil
	}

	attributeCount := m.attributes.n
	if m.code.Len() > 0 {
		attributeCount++
	}
	if len(m.exceptionIndexes) > 0 {
		attributeCount++
	}
	if m.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		attributeCount++
	}
	if m.signatureIndex != 0 {
		attributeCount++
	}
	if m.accessFlags&AccDeprecated != 0 {
		attributeCount++
	}
	if m.lastRuntimeVisibleAnnotation != nil {
		attributeCount++
	}
	if m.lastRuntimeInvisibleAnnotation != nil {
		attributeCount++
	}
	if m.lastRuntimeVisibleTypeAnnotation != nil {
		attributeCount++
	}
	if m.lastRuntimeInvisibleTypeAnnotation != nil {
		attributeCount++
	}
	if m.visibleParameterAnnotations != nil {
		attributeCount++
	}
	if m.invisibleParameterAnnotations != nil {
		attributeCount++
	}
	if m.defaultValue != nil {
		attributeCount++
	}
	if m.parameters != nil {
		attributeCount++
	}
	out.PutShort(attributeCount)

	if m.code.Len() > 0 {
		codeAttributeLength := 10 + m.code.Len() + 2 + 8*len(m.handlers)
		codeAttributeCount := 0
		if m.stackMapTable != nil {
			codeAttributeCount++
			codeAttributeLength += 8 + m.stackMapTable.Len()
		}
		if m.lineNumberTable != nil {
			codeAttributeCount++
			codeAttributeLength += 8 + m.lineNumberTable.Len()
		}
		if m.localVariableTable != nil {
			codeAttributeCount++
			codeAttributeLength += 8 + m.localVariableTable.Len()
		}
		if m.localVariableTypeTable != nil {
			codeAttributeCount++
			codeAttributeLength += 8 + m.localVariableTypeTable.Len()
		}
		if m.lastCodeRuntimeVisibleTypeAnnotation != nil {
			codeAttributeCount++
			codeAttributeLength += annotationsSize(m.symbols, AttrRuntimeVisibleTypeAnnotations, m.lastCodeRuntimeVisibleTypeAnnotation)
		}
		if m.lastCodeRuntimeInvisibleTypeAnnotation != nil {
			codeAttributeCount++
			codeAttributeLength += annotationsSize(m.symbols, AttrRuntimeInvisibleTypeAnnotations, m.lastCodeRuntimeInvisibleTypeAnnotation)
		}
		out.PutShort(m.symbols.utf8Index(AttrCode))
		out.PutInt(int32(codeAttributeLength))
		out.PutShort(m.maxStack)
		out.PutShort(m.maxLocals)
		out.PutInt(int32(m.code.Len()))
		out.PutByteArray(m.code.Bytes(), 0, m.code.Len())
		out.PutShort(len(m.handlers))
		for _, h := range m.handlers {
			out.PutShort(h.start.bytecodeOffset)
			out.PutShort(h.end.bytecodeOffset)
			out.PutShort(h.handlerPc.bytecodeOffset)
			out.PutShort(h.catchTypeIndex)
		}
		out.PutShort(codeAttributeCount)
		if m.stackMapTable != nil {
			out.PutShort(m.symbols.utf8Index(AttrStackMapTable))
			out.PutInt(int32(2 + m.stackMapTable.Len()))
			out.PutShort(m.stackMapTableNumberOfEntries)
			out.PutByteArray(m.stackMapTable.Bytes(), 0, m.stackMapTable.Len())
		}
		if m.lineNumberTable != nil {
			out.PutShort(m.symbols.utf8Index(AttrLineNumberTable))
			out.PutInt(int32(2 + m.lineNumberTable.Len()))
			out.PutShort(m.lineNumberTableLength)
			out.PutByteArray(m.lineNumberTable.Bytes(), 0, m.lineNumberTable.Len())
		}
		if m.localVariableTable != nil {
			out.PutShort(m.symbols.utf8Index(AttrLocalVariableTable))
			out.PutInt(int32(2 + m.localVariableTable.Len()))
			out.PutShort(m.localVariableTableLength)
			out.PutByteArray(m.localVariableTable.Bytes(), 0, m.localVariableTable.Len())
		}
		if m.localVariableTypeTable != nil {
			out.PutShort(m.symbols.utf8Index(AttrLocalVariableTypeTable))
			out.PutInt(int32(2 + m.localVariableTypeTable.Len()))
			out.PutShort(m.localVariableTypeTableLength)
			out.PutByteArray(m.localVariableTypeTable.Bytes(), 0, m.localVariableTypeTable.Len())
		}
		putAnnotations(out, m.symbols, AttrRuntimeVisibleTypeAnnotations, m.lastCodeRuntimeVisibleTypeAnnotation)
		putAnnotations(out, m.symbols, AttrRuntimeInvisibleTypeAnnotations, m.lastCodeRuntimeInvisibleTypeAnnotation)
	}
	if len(m.exceptionIndexes) > 0 {
		out.PutShort(m.symbols.utf8Index(AttrExceptions))
		out.PutInt(int32(2 + 2*len(m.exceptionIndexes)))
		out.PutShort(len(m.exceptionIndexes))
		for _, idx := range m.exceptionIndexes {
			out.PutShort(idx)
		}
	}
	if m.accessFlags&AccSynthetic != 0 && useSyntheticAttribute {
		out.PutShort(m.symbols.utf8Index(AttrSynthetic))
		out.PutInt(0)
	}
	if m.signatureIndex != 0 {
		out.PutShort(m.symbols.utf8Index(AttrSignature))
		out.PutInt(2)
		out.PutShort(m.signatureIndex)
	}
	if m.accessFlags&AccDeprecated != 0 {
		out.PutShort(m.symbols.utf8Index(AttrDeprecated))
		out.PutInt(0)
	}
	putAnnotations(out, m.symbols, AttrRuntimeVisibleAnnotations, m.lastRuntimeVisibleAnnotation)
	putAnnotations(out, m.symbols, AttrRuntimeInvisibleAnnotations, m.lastRuntimeInvisibleAnnotation)
	putAnnotations(out, m.symbols, AttrRuntimeVisibleTypeAnnotations, m.lastRuntimeVisibleTypeAnnotation)
	putAnnotations(out, m.symbols, AttrRuntimeInvisibleTypeAnnotations, m.lastRuntimeInvisibleTypeAnnotation)
	if m.visibleParameterAnnotations != nil {
		count := m.visibleAnnotableParameterCount
		if count == 0 {
			count = len(m.visibleParameterAnnotations)
		}
		putParameterAnnotations(out, m.symbols, AttrRuntimeVisibleParameterAnnotations, m.visibleParameterAnnotations, count)
	}
	if m.invisibleParameterAnnotations != nil {
		count := m.invisibleAnnotableParameterCount
		if count == 0 {
			count = len(m.invisibleParameterAnnotations)
		}
		putParameterAnnotations(out, m.symbols, AttrRuntimeInvisibleParameterAnnotations, m.invisibleParameterAnnotations, count)
	}
	if m.defaultValue != nil {
		out.PutShort(m.symbols.utf8Index(AttrAnnotationDefault))
		out.PutInt(int32(m.defaultValue.Len()))
		out.PutByteArray(m.defaultValue.Bytes(), 0, m.defaultValue.Len())
	}
	if m.parameters != nil {
		out.PutShort(m.symbols.utf8Index(AttrMethodParameters))
		out.PutInt(int32(1 + m.parameters.Len()))
		out.PutByte(byte(m.parametersCount))
		out.PutByteArray(m.parameters.Bytes(), 0, m.parameters.Len())
	}
	for a := m.attributes.head; a != nil; a = a.nextAttribute {
		if err := a.putAttribute(out, m.symbols); err != nil {
			return err
		}
	}
	return nil
}

// stackEffectOf returns the fixed operand-stack delta of an opcode; the
// descriptor-dependent instructions (field/method/ldc/multianewarray) are
// handled at their call sites.
func stackEffectOf(opcode int) int {
	switch opcode {
	case AconstNull, IconstM1, Iconst0, Iconst1, Iconst2, Iconst3, Iconst4,
		Iconst5, Fconst0, Fconst1, Fconst2, Bipush, Sipush,
		Iload, Fload, Aload, Dup, DupX1, DupX2, I2l, I2d, F2l, F2d, Jsr, JsrW, New:
		return 1
	case Lconst0, Lconst1, Dconst0, Dconst1, Lload, Dload, Dup2, Dup2X1, Dup2X2:
		return 2
	case Iaload, Faload, Aaload, Baload, Caload, Saload,
		Istore, Fstore, Astore, Pop,
		Iadd, Isub, Imul, Idiv, Irem, Ishl, Ishr, Iushr, Iand, Ior, Ixor,
		Fadd, Fsub, Fmul, Fdiv, Frem, Lshl, Lshr, Lushr,
		L2i, L2f, D2i, D2f, Fcmpl, Fcmpg,
		Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle, Ifnull, Ifnonnull,
		Tableswitch, Lookupswitch, Ireturn, Freturn, Areturn, Athrow,
		Monitorenter, Monitorexit:
		return -1
	case Lstore, Dstore, Pop2,
		Ladd, Lsub, Lmul, Ldiv, Lrem, Land, Lor, Lxor,
		Dadd, Dsub, Dmul, Ddiv, Drem,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Lreturn, Dreturn:
		return -2
	case Iastore, Fastore, Aastore, Bastore, Castore, Sastore:
		return -3
	case Lastore, Dastore:
		return -4
	case Lcmp, Dcmpl, Dcmpg:
		return -3
	default:
		// NOP, loads/stores of matching width, NEG, conversions of equal
		// width, IINC, SWAP, GOTO, RET, RETURN, NEWARRAY, ANEWARRAY,
		// ARRAYLENGTH, CHECKCAST, INSTANCEOF, GOTO_W...
		return 0
	}
}
