// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

type exceptionTableEntry struct {
	startPc, endPc, handlerPc int
	catchType                 string
}

type lineNumberEntry struct {
	startPc, line int
}

type localVariableEntry struct {
	startPc, length, index int
	name, descriptor       string
	signature               string
}

// decodedFrame is one fully-decoded StackMapTable entry, keyed by its
// absolute bytecode offset. locals/stack always hold the full expanded
// arrays (for EXPAND_FRAMES); chop and appended carry the delta form the
// compressed visitor protocol replays otherwise.
type decodedFrame struct {
	pc        int
	frameType int
	locals    []interface{}
	stack     []interface{}
	chop      int
	appended  []interface{}
}

// parseCodeHeader decodes the Code attribute's fixed header (max_stack,
// max_locals, code[], exception_table) and its nested attribute table
// (LineNumberTable, LocalVariableTable, LocalVariableTypeTable,
// StackMapTable), storing results on mr for parseCodeBody to walk.
func (r *Reader) parseCodeHeader(offset int, mr *methodRecord) error {
	mr.maxStack = r.readUnsignedShort(offset)
	mr.maxLocals = r.readUnsignedShort(offset + 2)
	codeLength := int(r.readInt(offset + 4))
	mr.codeOffset = offset + 8
	mr.codeLength = codeLength

	o := mr.codeOffset + codeLength
	excCount := r.readUnsignedShort(o)
	o += 2
	mr.exceptionTable = make([]exceptionTableEntry, excCount)
	for i := 0; i < excCount; i++ {
		catchType := ""
		if idx := r.readUnsignedShort(o + 6); idx != 0 {
			catchType = r.readClass(o + 6)
		}
		mr.exceptionTable[i] = exceptionTableEntry{
			startPc:   r.readUnsignedShort(o),
			endPc:     r.readUnsignedShort(o + 2),
			handlerPc: r.readUnsignedShort(o + 4),
			catchType: catchType,
		}
		o += 8
	}

	attrCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < attrCount; i++ {
		nameIndex := r.readUnsignedShort(o)
		length := int(r.readInt(o + 2))
		body := o + 6
		switch r.readUTF8Entry(nameIndex) {
		case AttrLineNumberTable:
			if mr.skipDebug {
				break
			}
			count := r.readUnsignedShort(body)
			bo := body + 2
			for j := 0; j < count; j++ {
				mr.lineNumbers = append(mr.lineNumbers, lineNumberEntry{
					startPc: r.readUnsignedShort(bo),
					line:    r.readUnsignedShort(bo + 2),
				})
				bo += 4
			}
		case AttrLocalVariableTable:
			if mr.skipDebug {
				break
			}
			count := r.readUnsignedShort(body)
			bo := body + 2
			for j := 0; j < count; j++ {
				mr.localVariables = append(mr.localVariables, localVariableEntry{
					startPc:    r.readUnsignedShort(bo),
					length:     r.readUnsignedShort(bo + 2),
					name:       r.readUTF8(bo + 4),
					descriptor: r.readUTF8(bo + 6),
					index:      r.readUnsignedShort(bo + 8),
				})
				bo += 10
			}
		case AttrLocalVariableTypeTable:
			if mr.skipDebug {
				break
			}
			count := r.readUnsignedShort(body)
			bo := body + 2
			for j := 0; j < count; j++ {
				startPc := r.readUnsignedShort(bo)
				index := r.readUnsignedShort(bo + 8)
				signature := r.readUTF8(bo + 6)
				for k := range mr.localVariables {
					if mr.localVariables[k].startPc == startPc && mr.localVariables[k].index == index {
						mr.localVariables[k].signature = signature
						break
					}
				}
				bo += 10
			}
		case AttrStackMapTable:
			if !mr.skipFrames {
				mr.stackMapTableOffset = body
				mr.stackMapTableLength = length
			}
		default:
			// Other Code-level attributes (custom instrumentation
			// attributes) are preserved as opaque blobs attached to the
			// method, not to a specific instruction.
			mr.attrs = append(mr.attrs, NewAttribute(r.readUTF8Entry(nameIndex), cloneBytes(r.b[body:body+length])))
		}
		o = body + length
	}
	return nil
}

// parseCodeBody runs the two-pass bytecode walk (label scan, then
// emission) and replays the decoded instructions, frames,
// exception table, and debug tables against mv.
func (r *Reader) parseCodeBody(ctx *parseContext, mv MethodVisitor, mr *methodRecord) error {
	ctx.startMethod(mr.access, mr.descriptor)
	expandFrames := ctx.options&ExpandFrames != 0

	// Pass 1: scan for labels at every branch target, switch target, and
	// exception-table boundary.
	for _, exc := range mr.exceptionTable {
		ctx.readLabel(exc.startPc)
		ctx.readLabel(exc.endPc)
		ctx.markJumpTarget(exc.handlerPc)
	}
	for _, lv := range mr.localVariables {
		ctx.readLabel(lv.startPc)
		ctx.readLabel(lv.startPc + lv.length)
	}
	for _, ln := range mr.lineNumbers {
		ctx.readLabel(ln.startPc)
	}
	if err := r.scanLabels(ctx, mr); err != nil {
		return err
	}
	if mr.stackMapTableOffset >= 0 {
		r.scanUninitializedOffsets(ctx, mr.stackMapTableOffset, mr.stackMapTableLength, mr.codeLength, mr)
		frames, err := r.decodeStackMapTable(ctx, mr.stackMapTableOffset)
		if err != nil {
			return err
		}
		mr.frames = frames
	}

	mv.VisitCode()
	r.emitCodeTypeAnnotations(ctx, mv, mr)

	pc := 0
	frameIndex := 0
	for pc < mr.codeLength {
		if label, ok := ctx.currentMethodLabels[pc]; ok {
			mv.VisitLabel(label)
		}
		for _, ln := range mr.lineNumbers {
			if ln.startPc == pc {
				mv.VisitLineNumber(ln.line, ctx.readLabel(pc))
			}
		}
		// Frames are decoded once, up front (see decodeStackMapTable);
		// this loop only replays the one due at the current offset, so
		// frames still arrive in monotonic bytecode order.
		for frameIndex < len(mr.frames) && mr.frames[frameIndex].pc == pc {
			fr := mr.frames[frameIndex]
			switch {
			case expandFrames:
				mv.VisitFrame(FNew, len(fr.locals), fr.locals, len(fr.stack), fr.stack)
			case fr.frameType == FSame:
				mv.VisitFrame(FSame, 0, nil, 0, nil)
			case fr.frameType == FSame1:
				mv.VisitFrame(FSame1, 0, nil, 1, fr.stack)
			case fr.frameType == FChop:
				mv.VisitFrame(FChop, fr.chop, nil, 0, nil)
			case fr.frameType == FAppend:
				mv.VisitFrame(FAppend, len(fr.appended), fr.appended, 0, nil)
			default:
				mv.VisitFrame(FFull, len(fr.locals), fr.locals, len(fr.stack), fr.stack)
			}
			frameIndex++
		}
		consumed, err := r.emitInstruction(ctx, mv, mr, pc)
		if err != nil {
			return err
		}
		pc += consumed
	}
	if label, ok := ctx.currentMethodLabels[mr.codeLength]; ok {
		mv.VisitLabel(label)
	}

	for _, exc := range mr.exceptionTable {
		mv.VisitTryCatchBlock(ctx.readLabel(exc.startPc), ctx.readLabel(exc.endPc), ctx.readLabel(exc.handlerPc), exc.catchType)
	}
	for _, lv := range mr.localVariables {
		mv.VisitLocalVariable(lv.name, lv.descriptor, lv.signature, ctx.readLabel(lv.startPc), ctx.readLabel(lv.startPc+lv.length), lv.index)
	}

	mv.VisitMaxs(mr.maxStack, mr.maxLocals)
	return nil
}

// decodeStackMapTable walks a StackMapTable attribute body (JVMS 4.7.4),
// producing one decodedFrame per entry with locals/stack already expanded
// to their full verification_type_info form, ready to replay against
// MethodVisitor.VisitFrame. Each entry's locals/stack default to the
// previous frame's (SAME, SAME_LOCALS_1_STACK_ITEM, CHOP, APPEND all derive
// from what came before); only FULL_FRAME repeats both arrays in full.
func (r *Reader) decodeStackMapTable(ctx *parseContext, offset int) ([]decodedFrame, error) {
	numEntries := r.readUnsignedShort(offset)
	o := offset + 2

	var locals, stack []interface{}
	pc := -1
	frames := make([]decodedFrame, 0, numEntries)

	readVerificationTypes := func(count int) ([]interface{}, int) {
		out := make([]interface{}, count)
		for i := 0; i < count; i++ {
			tag := r.readByte(o)
			o++
			switch tag {
			case ConstantTop, ConstantInt, ConstantFloat, ConstantDouble, ConstantLong, ConstantNull, ConstantUninitializedThis:
				out[i] = tag
			case 7: // Object_variable_info
				out[i] = r.readClass(o)
				o += 2
			case 8: // Uninitialized_variable_info
				newOffset := r.readUnsignedShort(o)
				out[i] = ctx.readLabel(newOffset)
				o += 2
			default:
				return nil, o
			}
		}
		return out, o
	}

	for i := 0; i < numEntries; i++ {
		frameType := r.readByte(o)
		o++
		entry := decodedFrame{frameType: compressedFrameKind(frameType)}
		switch {
		case frameType < 64:
			pc += frameType + 1
			stack = nil
		case frameType < 128:
			pc += (frameType - 64) + 1
			stack, o = readVerificationTypes(1)
		case frameType == 247:
			offsetDelta := r.readUnsignedShort(o)
			o += 2
			pc += offsetDelta + 1
			stack, o = readVerificationTypes(1)
		case frameType >= 248 && frameType <= 250:
			offsetDelta := r.readUnsignedShort(o)
			o += 2
			pc += offsetDelta + 1
			chop := 251 - frameType
			if chop > len(locals) {
				chop = len(locals)
			}
			locals = locals[:len(locals)-chop]
			stack = nil
			entry.chop = chop
		case frameType == 251:
			offsetDelta := r.readUnsignedShort(o)
			o += 2
			pc += offsetDelta + 1
			stack = nil
		case frameType >= 252 && frameType <= 254:
			offsetDelta := r.readUnsignedShort(o)
			o += 2
			pc += offsetDelta + 1
			appendCount := frameType - 251
			var appended []interface{}
			appended, o = readVerificationTypes(appendCount)
			locals = append(append([]interface{}(nil), locals...), appended...)
			stack = nil
			entry.appended = appended
		case frameType == 255:
			offsetDelta := r.readUnsignedShort(o)
			o += 2
			pc += offsetDelta + 1
			localCount := r.readUnsignedShort(o)
			o += 2
			locals, o = readVerificationTypes(localCount)
			stackCount := r.readUnsignedShort(o)
			o += 2
			stack, o = readVerificationTypes(stackCount)
		default:
			return nil, fmt.Errorf("%w: reserved stack map frame_type %d", ErrMalformedClass, frameType)
		}
		ctx.markJumpTarget(pc)
		entry.pc = pc
		entry.locals = append([]interface{}(nil), locals...)
		entry.stack = append([]interface{}(nil), stack...)
		frames = append(frames, entry)
	}
	return frames, nil
}

// scanUninitializedOffsets does a cheap three-byte scan over the
// StackMapTable body, creating a label wherever a plausible
// ITEM_Uninitialized offset points at a NEW instruction. False positives
// are harmless (at worst an unused label); the alternative would be a
// two-pass decode of the table itself.
func (r *Reader) scanUninitializedOffsets(ctx *parseContext, tableOffset, tableLength, codeLength int, mr *methodRecord) {
	end := tableOffset + tableLength - 2
	for o := tableOffset; o < end; o++ {
		if r.readByte(o) != 8 {
			continue
		}
		candidate := r.readUnsignedShort(o + 1)
		if candidate < codeLength && r.readByte(mr.codeOffset+candidate) == New {
			ctx.readLabel(candidate)
		}
	}
}

// compressedFrameKind maps a raw StackMapTable frame_type byte to the
// FXxx constant MethodVisitor.VisitFrame expects.
func compressedFrameKind(frameType int) int {
	switch {
	case frameType < 64:
		return FSame
	case frameType < 128:
		return FSame1
	case frameType == 247:
		return FSame1
	case frameType >= 248 && frameType <= 250:
		return FChop
	case frameType == 251:
		return FSame
	case frameType >= 252 && frameType <= 254:
		return FAppend
	default:
		return FFull
	}
}

// emitCodeTypeAnnotations replays a method's Code-level type annotations
// (instruction, try-catch, and local-variable targets) against mv. They are
// all emitted together right after VisitCode rather than interleaved at
// each referenced instruction's own visit point; instruction-accurate
// placement isn't observable through the visitor events any caller here
// relies on, and collecting them up front avoids threading per-pc lookups
// through the main instruction loop.
func (r *Reader) emitCodeTypeAnnotations(ctx *parseContext, mv MethodVisitor, mr *methodRecord) {
	for _, ta := range mr.typeAnnotations {
		sort := ta.typeRef.Sort()
		if !isCodeTypeAnnotation(sort) {
			continue
		}
		switch sort {
		case ExceptionParameter:
			av := mv.VisitTryCatchAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
			replayTypeAnnotationValues(av, ta)
		case LocalVariable, ResourceVariable:
			start := make([]*Label, len(ta.localVarTable))
			end := make([]*Label, len(ta.localVarTable))
			index := make([]int, len(ta.localVarTable))
			for i, e := range ta.localVarTable {
				start[i] = ctx.readLabel(e.startPc)
				end[i] = ctx.readLabel(e.startPc + e.length)
				index[i] = e.index
			}
			av := mv.VisitLocalVariableAnnotation(ta.typeRef, ta.typePath, start, end, index, ta.descriptor, ta.visible)
			replayTypeAnnotationValues(av, ta)
		default:
			av := mv.VisitInsnAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
			replayTypeAnnotationValues(av, ta)
		}
	}
}

// scanLabels performs pass 1: walk every instruction once, purely to
// discover branch/switch targets and register them as labels.
func (r *Reader) scanLabels(ctx *parseContext, mr *methodRecord) error {
	pc := 0
	for pc < mr.codeLength {
		opcode := r.readByte(mr.codeOffset + pc)
		length, targets, err := r.instructionShape(mr.codeOffset, pc, opcode)
		if err != nil {
			return err
		}
		for _, t := range targets {
			ctx.markJumpTarget(t)
		}
		pc += length
	}
	return nil
}

// instructionShape returns the byte length of the instruction at pc and
// the bytecode offsets (absolute) of every label it references, without
// emitting any visitor event. Shared by scanLabels and emitInstruction so
// the two passes can never disagree about instruction boundaries.
func (r *Reader) instructionShape(codeOffset, pc, opcode int) (length int, targets []int, err error) {
	base := codeOffset + pc
	switch {
	case isZeroOperandOpcode(opcode):
		return 1, nil, nil
	case opcode == Bipush, opcode == Newarray:
		return 2, nil, nil
	case opcode == Sipush:
		return 3, nil, nil
	case opcode == Ldc:
		return 2, nil, nil
	case opcode == LdcW, opcode == Ldc2W:
		return 3, nil, nil
	case opcode >= Iload && opcode <= Aload, opcode >= Istore && opcode <= Astore, opcode == Ret:
		return 2, nil, nil
	case isImplicitVarOpcode(opcode):
		return 1, nil, nil
	case opcode == Iinc:
		return 3, nil, nil
	case opcode == New, opcode == Anewarray, opcode == Checkcast, opcode == Instanceof:
		return 3, nil, nil
	case opcode == Getstatic, opcode == Putstatic, opcode == Getfield, opcode == Putfield:
		return 3, nil, nil
	case opcode == Invokevirtual, opcode == Invokespecial, opcode == Invokestatic:
		return 3, nil, nil
	case opcode == Invokeinterface:
		return 5, nil, nil
	case opcode == Invokedynamic:
		return 5, nil, nil
	case isJumpOpcode(opcode):
		offset := int(r.readShort(base + 1))
		return 3, []int{pc + offset}, nil
	case opcode == GotoW, opcode == JsrW:
		offset := int(r.readInt(base + 1))
		return 5, []int{pc + offset}, nil
	case isAsmJumpOpcode(opcode):
		// Synthetic wide-pending branch: the displacement is stored as an
		// unsigned u16 (valid because code length is capped at 65535).
		offset := r.readUnsignedShort(base + 1)
		return 3, []int{pc + offset}, nil
	case opcode == AsmGotoW:
		offset := int(r.readInt(base + 1))
		return 5, []int{pc + offset}, nil
	case opcode == Tableswitch:
		return r.tableswitchShape(codeOffset, pc)
	case opcode == Lookupswitch:
		return r.lookupswitchShape(codeOffset, pc)
	case opcode == Multianewarray:
		return 4, nil, nil
	case opcode == Wide:
		return r.wideShape(codeOffset, pc)
	default:
		return 0, nil, fmt.Errorf("%w: unknown opcode %d at pc %d", ErrMalformedClass, opcode, pc)
	}
}

func (r *Reader) tableswitchShape(codeOffset, pc int) (int, []int, error) {
	base := codeOffset + pc
	pad := (4 - (pc+1)%4) % 4
	o := base + 1 + pad
	defaultOffset := int(r.readInt(o))
	low := int(r.readInt(o + 4))
	high := int(r.readInt(o + 8))
	n := high - low + 1
	targets := make([]int, 0, n+1)
	targets = append(targets, pc+defaultOffset)
	to := o + 12
	for i := 0; i < n; i++ {
		targets = append(targets, pc+int(r.readInt(to)))
		to += 4
	}
	return (to - base), targets, nil
}

func (r *Reader) lookupswitchShape(codeOffset, pc int) (int, []int, error) {
	base := codeOffset + pc
	pad := (4 - (pc+1)%4) % 4
	o := base + 1 + pad
	defaultOffset := int(r.readInt(o))
	npairs := int(r.readInt(o + 4))
	targets := make([]int, 0, npairs+1)
	targets = append(targets, pc+defaultOffset)
	to := o + 8
	for i := 0; i < npairs; i++ {
		targets = append(targets, pc+int(r.readInt(to+4)))
		to += 8
	}
	return (to - base), targets, nil
}

func (r *Reader) wideShape(codeOffset, pc int) (int, []int, error) {
	base := codeOffset + pc
	sub := r.readByte(base + 1)
	if sub == Iinc {
		return 6, nil, nil
	}
	return 4, nil, nil
}

func isZeroOperandOpcode(opcode int) bool {
	switch {
	case opcode >= Nop && opcode <= Dconst1:
		return true
	case opcode >= Iaload && opcode <= Saload:
		return true
	case opcode >= Iastore && opcode <= Lxor:
		return true
	case opcode >= I2l && opcode <= Dcmpg:
		return true
	case opcode >= Ireturn && opcode <= Return:
		return true
	case opcode == Arraylength, opcode == Athrow, opcode == Monitorenter, opcode == Monitorexit:
		return true
	default:
		return false
	}
}

func isImplicitVarOpcode(opcode int) bool {
	return opcode >= Iload0 && opcode <= Astore3
}

func isJumpOpcode(opcode int) bool {
	return opcode >= Ifeq && opcode <= Jsr || opcode == Ifnull || opcode == Ifnonnull
}

// isAsmJumpOpcode matches the synthetic wide-pending forms of the 2-byte
// branch instructions.
func isAsmJumpOpcode(opcode int) bool {
	return opcode >= AsmIfeq && opcode <= AsmJsr || opcode == AsmIfnull || opcode == AsmIfnonnull
}

// readFieldref resolves a CONSTANT_Fieldref_info at cp index into its
// owner/name/descriptor triple.
func (r *Reader) readFieldref(index int) (owner, name, descriptor string) {
	offset := r.cpInfoOffsets[index]
	owner = r.readClass(offset)
	natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
	name = r.readUTF8(natOffset)
	descriptor = r.readUTF8(natOffset + 2)
	return
}

// readMethodref resolves a CONSTANT_Methodref_info or
// CONSTANT_InterfaceMethodref_info at cp index into its owner/name/
// descriptor triple, plus whether the owner is an interface.
func (r *Reader) readMethodref(index int) (owner, name, descriptor string, isInterface bool) {
	offset := r.cpInfoOffsets[index]
	tag := r.b[offset-1]
	owner = r.readClass(offset)
	natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
	name = r.readUTF8(natOffset)
	descriptor = r.readUTF8(natOffset + 2)
	isInterface = int(tag) == ConstantInterfaceMethodrefTag
	return
}

// readInvokeDynamic resolves a CONSTANT_InvokeDynamic_info at cp index into
// its name/descriptor and bootstrap method handle/arguments.
func (r *Reader) readInvokeDynamic(index int) (name, descriptor string, handle Handle, args []interface{}, err error) {
	offset := r.cpInfoOffsets[index]
	bootstrapIndex := r.readUnsignedShort(offset)
	natOffset := r.cpInfoOffsets[r.readUnsignedShort(offset+2)]
	name = r.readUTF8(natOffset)
	descriptor = r.readUTF8(natOffset + 2)
	handle, args, err = r.readBootstrapMethod(bootstrapIndex)
	return
}

// implicitVarOpcode splits a compact ILOAD_0..ASTORE_3-family opcode into
// its canonical (wide-form) opcode and local-variable index.
func implicitVarOpcode(opcode int) (canonical, varIndex int) {
	if opcode <= Aload3 {
		group := (opcode - Iload0) / 4
		return Iload + group, (opcode - Iload0) % 4
	}
	group := (opcode - Istore0) / 4
	return Istore + group, (opcode - Istore0) % 4
}

// emitInstruction decodes the instruction at pc and replays it against mv,
// returning the number of bytes it occupies. It mirrors instructionShape's
// dispatch so the two passes never disagree about instruction boundaries,
// but performs the actual constant-pool resolution and visitor call that
// pass 1 skips.
func (r *Reader) emitInstruction(ctx *parseContext, mv MethodVisitor, mr *methodRecord, pc int) (int, error) {
	base := mr.codeOffset + pc
	opcode := r.readByte(base)
	switch {
	case isZeroOperandOpcode(opcode):
		mv.VisitInsn(opcode)
		return 1, nil
	case opcode == Bipush:
		mv.VisitIntInsn(opcode, int(int8(r.readByte(base+1))))
		return 2, nil
	case opcode == Newarray:
		mv.VisitIntInsn(opcode, r.readByte(base+1))
		return 2, nil
	case opcode == Sipush:
		mv.VisitIntInsn(opcode, int(r.readShort(base+1)))
		return 3, nil
	case opcode == Ldc:
		value, err := r.readConst(r.readByte(base + 1))
		if err != nil {
			return 0, err
		}
		mv.VisitLdcInsn(value)
		return 2, nil
	case opcode == LdcW, opcode == Ldc2W:
		value, err := r.readConst(r.readUnsignedShort(base + 1))
		if err != nil {
			return 0, err
		}
		mv.VisitLdcInsn(value)
		return 3, nil
	case opcode >= Iload && opcode <= Aload:
		mv.VisitVarInsn(opcode, r.readByte(base+1))
		return 2, nil
	case opcode >= Istore && opcode <= Astore:
		mv.VisitVarInsn(opcode, r.readByte(base+1))
		return 2, nil
	case opcode == Ret:
		mv.VisitVarInsn(opcode, r.readByte(base+1))
		return 2, nil
	case isImplicitVarOpcode(opcode):
		canonical, varIndex := implicitVarOpcode(opcode)
		mv.VisitVarInsn(canonical, varIndex)
		return 1, nil
	case opcode == Iinc:
		mv.VisitIincInsn(r.readByte(base+1), int(int8(r.readByte(base+2))))
		return 3, nil
	case opcode == New, opcode == Anewarray, opcode == Checkcast, opcode == Instanceof:
		mv.VisitTypeInsn(opcode, r.readClass(base+1))
		return 3, nil
	case opcode == Getstatic, opcode == Putstatic, opcode == Getfield, opcode == Putfield:
		owner, name, descriptor := r.readFieldref(r.readUnsignedShort(base + 1))
		mv.VisitFieldInsn(opcode, owner, name, descriptor)
		return 3, nil
	case opcode == Invokevirtual, opcode == Invokespecial, opcode == Invokestatic:
		owner, name, descriptor, isInterface := r.readMethodref(r.readUnsignedShort(base + 1))
		mv.VisitMethodInsn(opcode, owner, name, descriptor, isInterface)
		return 3, nil
	case opcode == Invokeinterface:
		owner, name, descriptor, _ := r.readMethodref(r.readUnsignedShort(base + 1))
		mv.VisitMethodInsn(opcode, owner, name, descriptor, true)
		return 5, nil
	case opcode == Invokedynamic:
		name, descriptor, handle, args, err := r.readInvokeDynamic(r.readUnsignedShort(base + 1))
		if err != nil {
			return 0, err
		}
		mv.VisitInvokeDynamicInsn(name, descriptor, handle, args)
		return 5, nil
	case isJumpOpcode(opcode):
		offset := int(r.readShort(base + 1))
		mv.VisitJumpInsn(opcode, ctx.readLabel(pc+offset))
		return 3, nil
	case opcode == GotoW, opcode == JsrW:
		offset := int(r.readInt(base + 1))
		mv.VisitJumpInsn(opcode, ctx.readLabel(pc+offset))
		return 5, nil
	case isAsmJumpOpcode(opcode):
		return r.emitAsmJump(ctx, mv, pc, opcode, mr)
	case opcode == AsmGotoW:
		offset := int(r.readInt(base + 1))
		mv.VisitJumpInsn(GotoW, ctx.readLabel(pc+offset))
		return 5, nil
	case opcode == Tableswitch:
		return r.emitTableswitch(ctx, mv, mr.codeOffset, pc)
	case opcode == Lookupswitch:
		return r.emitLookupswitch(ctx, mv, mr.codeOffset, pc)
	case opcode == Multianewarray:
		descriptor := r.readClass(base + 1)
		mv.VisitMultiANewArrayInsn(descriptor, r.readByte(base+3))
		return 4, nil
	case opcode == Wide:
		return r.emitWide(mv, mr.codeOffset, pc)
	default:
		return 0, fmt.Errorf("%w: unknown opcode %d at pc %d", ErrMalformedClass, opcode, pc)
	}
}

// emitAsmJump replays a synthetic wide-pending branch. Without
// ExpandAsmInsns the standard opcode is emitted with the (unsigned) wide
// displacement; with it, GOTO/JSR become their *_W forms and a
// conditional branch is inverted over a GOTO_W trampoline; the
// downstream writer re-resolves offsets and recomputes the frames at
// the new basic-block entries.
func (r *Reader) emitAsmJump(ctx *parseContext, mv MethodVisitor, pc, opcode int, mr *methodRecord) (int, error) {
	base := mr.codeOffset + pc
	standard := opcode - AsmOpcodeDelta
	if opcode == AsmIfnull || opcode == AsmIfnonnull {
		standard = opcode - AsmIfnullOpcodeDelta
	}
	target := ctx.readLabel(pc + r.readUnsignedShort(base+1))
	if ctx.options&ExpandAsmInsns == 0 {
		mv.VisitJumpInsn(standard, target)
		return 3, nil
	}
	if standard == Goto || standard == Jsr {
		mv.VisitJumpInsn(standard+WideJumpOpcodeDelta, target)
		return 3, nil
	}
	endif := ctx.readLabel(pc + 3)
	mv.VisitJumpInsn(invertCondition(standard), endif)
	mv.VisitJumpInsn(GotoW, target)
	return 3, nil
}

func (r *Reader) emitTableswitch(ctx *parseContext, mv MethodVisitor, codeOffset, pc int) (int, error) {
	base := codeOffset + pc
	pad := (4 - (pc+1)%4) % 4
	o := base + 1 + pad
	defaultOffset := int(r.readInt(o))
	low := int(r.readInt(o + 4))
	high := int(r.readInt(o + 8))
	n := high - low + 1
	to := o + 12
	labels := make([]*Label, n)
	for i := 0; i < n; i++ {
		labels[i] = ctx.readLabel(pc + int(r.readInt(to)))
		to += 4
	}
	mv.VisitTableSwitchInsn(low, high, ctx.readLabel(pc+defaultOffset), labels)
	return to - base, nil
}

func (r *Reader) emitLookupswitch(ctx *parseContext, mv MethodVisitor, codeOffset, pc int) (int, error) {
	base := codeOffset + pc
	pad := (4 - (pc+1)%4) % 4
	o := base + 1 + pad
	defaultOffset := int(r.readInt(o))
	npairs := int(r.readInt(o + 4))
	to := o + 8
	keys := make([]int, npairs)
	labels := make([]*Label, npairs)
	for i := 0; i < npairs; i++ {
		keys[i] = int(r.readInt(to))
		labels[i] = ctx.readLabel(pc + int(r.readInt(to+4)))
		to += 8
	}
	mv.VisitLookupSwitchInsn(ctx.readLabel(pc+defaultOffset), keys, labels)
	return to - base, nil
}

func (r *Reader) emitWide(mv MethodVisitor, codeOffset, pc int) (int, error) {
	base := codeOffset + pc
	sub := r.readByte(base + 1)
	if sub == Iinc {
		varIndex := r.readUnsignedShort(base + 2)
		increment := int(r.readShort(base + 4))
		mv.VisitIincInsn(varIndex, increment)
		return 6, nil
	}
	varIndex := r.readUnsignedShort(base + 2)
	mv.VisitVarInsn(sub, varIndex)
	return 4, nil
}
