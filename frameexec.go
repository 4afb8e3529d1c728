// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// This file is the symbolic half of the method-body engine:
// Frame.execute models each instruction's effect on the block's symbolic
// output frame, and mergeIntoSuccessor concretizes that output against the
// block's input frame and folds it into a successor's input.

// getLocal returns the abstract type of local slot i as seen at the
// current point of the block: the slot's written value if any, else a
// symbolic reference to the block's input.
func (f *Frame) getLocal(i int) int {
	if i < len(f.outputLocals) && f.outputLocals[i] != 0 {
		return f.outputLocals[i]
	}
	return abstractLocal(i)
}

// setLocal records a write to local slot i.
func (f *Frame) setLocal(i, v int) {
	for len(f.outputLocals) <= i {
		f.outputLocals = append(f.outputLocals, 0)
	}
	f.outputLocals[i] = v
}

// setLocalWide records a long/double write: the value plus a TOP filler,
// and invalidates the second half of any wide value the write cuts in two.
func (f *Frame) setLocalWide(i, v int) {
	f.setLocal(i, v)
	f.setLocal(i+1, abstractConstant(ConstantTop))
	f.invalidateWidePredecessor(i)
}

// invalidateWidePredecessor demotes slot i-1 to TOP when it held the first
// half of a long/double that a write to slot i just destroyed.
func (f *Frame) invalidateWidePredecessor(i int) {
	if i == 0 {
		return
	}
	prev := f.getLocal(i - 1)
	if isWideAbstract(prev) {
		f.setLocal(i-1, abstractConstant(ConstantTop))
	}
}

// push appends a value to the symbolic output stack, tracking the block's
// maximum relative stack height.
func (f *Frame) push(v int) {
	f.outputStack = append(f.outputStack, v)
	if rel := len(f.outputStack) + f.outputStackStart; rel > f.relativeMax {
		f.relativeMax = rel
	}
}

// pop removes and returns the top symbolic stack value, falling through
// to a symbolic reference into the block's input stack on underflow.
func (f *Frame) pop() int {
	if n := len(f.outputStack); n > 0 {
		v := f.outputStack[n-1]
		f.outputStack = f.outputStack[:n-1]
		return v
	}
	f.outputStackStart--
	return abstractStack(-f.outputStackStart)
}

func (f *Frame) popCount(n int) {
	for i := 0; i < n; i++ {
		f.pop()
	}
}

// pushDescriptor pushes the abstract type(s) for a field descriptor or a
// method descriptor's return type.
func (f *Frame) pushDescriptor(descriptor string, symbols *SymbolTable) {
	if descriptor[0] == '(' {
		i := 1
		for descriptor[i] != ')' {
			i++
		}
		descriptor = descriptor[i+1:]
	}
	if descriptor == "V" {
		return
	}
	t := GetType(descriptor)
	f.push(typeToAbstract(t, symbols))
	if t.Size() == 2 {
		f.push(abstractConstant(ConstantTop))
	}
}

// popDescriptor pops the argument slots of a method descriptor (not the
// receiver).
func (f *Frame) popDescriptor(methodDescriptor string) {
	f.popCount((GetArgumentsAndReturnSizes(methodDescriptor) >> 2) - 1)
}

// addInitialization records that v (an UNINITIALIZED or
// UNINITIALIZED_THIS abstract type, possibly still symbolic) was consumed
// by an INVOKESPECIAL <init>.
func (f *Frame) addInitialization(v int) {
	f.initializations = append(f.initializations, v)
}

// initializedValue maps v to its initialized reference type if an <init>
// in this block consumed it (or an alias of it), and returns v unchanged
// otherwise.
func (f *Frame) initializedValue(v int, symbols *SymbolTable) int {
	isUninit := abstractKind(v) == kindUninitialized ||
		(abstractKind(v) == kindConstant && abstractValue(v) == ConstantUninitializedThis)
	if !isUninit {
		return v
	}
	for _, u := range f.initializations {
		ru := u
		switch abstractKind(u) {
		case kindLocal:
			if i := abstractValue(u); i < len(f.inputLocals) {
				ru = f.inputLocals[i]
			}
		case kindStack:
			if d := abstractValue(u); d <= len(f.inputStack) {
				ru = f.inputStack[len(f.inputStack)-d]
			}
		}
		if ru != v {
			continue
		}
		if abstractKind(v) == kindUninitialized {
			return abstractReference(symbols.addType(symbols.typeTableEntry(abstractValue(v)).Value()))
		}
		return abstractReference(symbols.addType(symbols.className))
	}
	return v
}

// elementType returns the abstract type of an element loaded from the
// array type v, degrading to java/lang/Object when v is NULL or not a
// known array type.
func elementType(v int, symbols *SymbolTable) int {
	if abstractKind(v) == kindReference {
		name := symbols.typeTableEntry(abstractValue(v)).Value()
		if len(name) > 0 && name[0] == '[' {
			elem := name[1:]
			if elem[0] == 'L' {
				return abstractReference(symbols.addType(elem[1 : len(elem)-1]))
			}
			if elem[0] == '[' {
				return abstractReference(symbols.addType(elem))
			}
			switch elem[0] {
			case 'Z', 'B', 'C', 'S', 'I':
				return abstractConstant(ConstantInt)
			case 'F':
				return abstractConstant(ConstantFloat)
			case 'J':
				return abstractConstant(ConstantLong)
			case 'D':
				return abstractConstant(ConstantDouble)
			}
		}
	}
	return abstractReference(symbols.addType("java/lang/Object"))
}

// execute models the effect of one instruction on the symbolic output
// frame. arg carries the instruction's immediate (local index, NEW's
// bytecode offset, newarray's atype, or multianewarray's dimension
// count); argSymbol carries the referenced constant-pool entry for
// field/method/type/ldc instructions.
func (f *Frame) execute(opcode, arg int, argSymbol *Symbol, symbols *SymbolTable) {
	switch opcode {
	case Nop, Goto, Return, Ret:
		// No stack effect.
	case AconstNull:
		f.push(abstractConstant(ConstantNull))
	case IconstM1, Iconst0, Iconst1, Iconst2, Iconst3, Iconst4, Iconst5, Bipush, Sipush:
		f.push(abstractConstant(ConstantInt))
	case Lconst0, Lconst1:
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Fconst0, Fconst1, Fconst2:
		f.push(abstractConstant(ConstantFloat))
	case Dconst0, Dconst1:
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case Iload:
		f.push(abstractConstant(ConstantInt))
	case Fload:
		f.push(abstractConstant(ConstantFloat))
	case Lload:
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Dload:
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case Aload:
		f.push(f.getLocal(arg))
	case Iaload, Baload, Caload, Saload:
		f.popCount(2)
		f.push(abstractConstant(ConstantInt))
	case Faload:
		f.popCount(2)
		f.push(abstractConstant(ConstantFloat))
	case Laload:
		f.popCount(2)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Daload:
		f.popCount(2)
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case Aaload:
		f.pop()
		arrayType := f.pop()
		f.push(elementType(arrayType, symbols))
	case Istore, Fstore, Astore:
		v := f.pop()
		f.setLocal(arg, v)
		f.invalidateWidePredecessor(arg)
	case Lstore, Dstore:
		f.pop() // TOP filler
		v := f.pop()
		f.setLocalWide(arg, v)
	case Iastore, Fastore, Aastore, Bastore, Castore, Sastore:
		f.popCount(3)
	case Lastore, Dastore:
		f.popCount(4)
	case Pop:
		f.popCount(1)
	case Pop2:
		f.popCount(2)
	case Dup:
		t1 := f.pop()
		f.push(t1)
		f.push(t1)
	case DupX1:
		t1, t2 := f.pop(), f.pop()
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case DupX2:
		t1, t2, t3 := f.pop(), f.pop(), f.pop()
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case Dup2:
		t1, t2 := f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case Dup2X1:
		t1, t2, t3 := f.pop(), f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case Dup2X2:
		t1, t2, t3, t4 := f.pop(), f.pop(), f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t4)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case Swap:
		t1, t2 := f.pop(), f.pop()
		f.push(t1)
		f.push(t2)
	case Iadd, Isub, Imul, Idiv, Irem, Iand, Ior, Ixor, Ishl, Ishr, Iushr:
		f.popCount(2)
		f.push(abstractConstant(ConstantInt))
	case Ladd, Lsub, Lmul, Ldiv, Lrem, Land, Lor, Lxor:
		f.popCount(4)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Lshl, Lshr, Lushr:
		f.popCount(3)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Fadd, Fsub, Fmul, Fdiv, Frem:
		f.popCount(2)
		f.push(abstractConstant(ConstantFloat))
	case Dadd, Dsub, Dmul, Ddiv, Drem:
		f.popCount(4)
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case Ineg, I2b, I2c, I2s, Instanceof, Arraylength:
		f.popCount(1)
		f.push(abstractConstant(ConstantInt))
	case Lneg:
		f.popCount(2)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case Fneg:
		f.popCount(1)
		f.push(abstractConstant(ConstantFloat))
	case Dneg:
		f.popCount(2)
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case Iinc:
		f.setLocal(arg, abstractConstant(ConstantInt))
	case I2l, F2l:
		f.popCount(1)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case I2f:
		f.popCount(1)
		f.push(abstractConstant(ConstantFloat))
	case I2d, F2d:
		f.popCount(1)
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case L2i:
		f.popCount(2)
		f.push(abstractConstant(ConstantInt))
	case L2f:
		f.popCount(2)
		f.push(abstractConstant(ConstantFloat))
	case L2d:
		f.popCount(2)
		f.push(abstractConstant(ConstantDouble))
		f.push(abstractConstant(ConstantTop))
	case F2i:
		f.popCount(1)
		f.push(abstractConstant(ConstantInt))
	case D2i:
		f.popCount(2)
		f.push(abstractConstant(ConstantInt))
	case D2l:
		f.popCount(2)
		f.push(abstractConstant(ConstantLong))
		f.push(abstractConstant(ConstantTop))
	case D2f:
		f.popCount(2)
		f.push(abstractConstant(ConstantFloat))
	case Lcmp, Dcmpl, Dcmpg:
		f.popCount(4)
		f.push(abstractConstant(ConstantInt))
	case Fcmpl, Fcmpg:
		f.popCount(2)
		f.push(abstractConstant(ConstantInt))
	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle, Ifnull, Ifnonnull,
		Tableswitch, Lookupswitch, Ireturn, Freturn, Areturn, Athrow,
		Monitorenter, Monitorexit:
		f.popCount(1)
	case IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne:
		f.popCount(2)
	case Lreturn, Dreturn:
		f.popCount(2)
	case Jsr:
		symbols.recordError(fmt.Errorf("%w: JSR is not supported with frame computation", ErrUnsupportedOperation))
	case Getstatic:
		f.pushDescriptor(argSymbol.value, symbols)
	case Putstatic:
		f.popCount(GetType(argSymbol.value).Size())
	case Getfield:
		f.pop()
		f.pushDescriptor(argSymbol.value, symbols)
	case Putfield:
		f.popCount(GetType(argSymbol.value).Size())
		f.pop()
	case Invokevirtual, Invokespecial, Invokestatic, Invokeinterface:
		f.popDescriptor(argSymbol.value)
		if opcode != Invokestatic {
			receiver := f.pop()
			if opcode == Invokespecial && len(argSymbol.name) > 0 && argSymbol.name[0] == '<' {
				f.addInitialization(receiver)
			}
		}
		f.pushDescriptor(argSymbol.value, symbols)
	case Invokedynamic:
		f.popDescriptor(argSymbol.value)
		f.pushDescriptor(argSymbol.value, symbols)
	case Ldc, LdcW, Ldc2W:
		switch argSymbol.tag {
		case ConstantIntegerTag:
			f.push(abstractConstant(ConstantInt))
		case ConstantFloatTag:
			f.push(abstractConstant(ConstantFloat))
		case ConstantLongTag:
			f.push(abstractConstant(ConstantLong))
			f.push(abstractConstant(ConstantTop))
		case ConstantDoubleTag:
			f.push(abstractConstant(ConstantDouble))
			f.push(abstractConstant(ConstantTop))
		case ConstantStringTag:
			f.push(abstractReference(symbols.addType("java/lang/String")))
		case ConstantClassTag:
			f.push(abstractReference(symbols.addType("java/lang/Class")))
		case ConstantMethodTypeTag:
			f.push(abstractReference(symbols.addType("java/lang/invoke/MethodType")))
		case ConstantMethodHandleTag:
			f.push(abstractReference(symbols.addType("java/lang/invoke/MethodHandle")))
		case ConstantDynamicTag:
			f.pushDescriptor(argSymbol.value, symbols)
		}
	case New:
		f.push(abstractUninitialized(symbols.addUninitializedType(argSymbol.value, arg)))
	case Newarray:
		f.pop()
		switch arg {
		case TBoolean:
			f.push(abstractReference(symbols.addType("[Z")))
		case TChar:
			f.push(abstractReference(symbols.addType("[C")))
		case TFloat:
			f.push(abstractReference(symbols.addType("[F")))
		case TDouble:
			f.push(abstractReference(symbols.addType("[D")))
		case TByte:
			f.push(abstractReference(symbols.addType("[B")))
		case TShort:
			f.push(abstractReference(symbols.addType("[S")))
		case TInt:
			f.push(abstractReference(symbols.addType("[I")))
		case TLong:
			f.push(abstractReference(symbols.addType("[J")))
		}
	case Anewarray:
		f.pop()
		name := argSymbol.value
		if name[0] == '[' {
			f.push(abstractReference(symbols.addType("[" + name)))
		} else {
			f.push(abstractReference(symbols.addType("[L" + name + ";")))
		}
	case Checkcast:
		f.pop()
		f.push(abstractReference(symbols.addType(argSymbol.value)))
	case Multianewarray:
		f.popCount(arg)
		f.push(abstractReference(symbols.addType(argSymbol.value)))
	}
}

// concreteValue resolves a symbolic output value against the block's
// input frame and applies any recorded initialization.
func (f *Frame) concreteValue(v int, symbols *SymbolTable) int {
	switch abstractKind(v) {
	case kindLocal:
		i := abstractValue(v)
		if i >= len(f.inputLocals) {
			return abstractConstant(ConstantTop)
		}
		return f.initializedValue(f.inputLocals[i], symbols)
	case kindStack:
		d := abstractValue(v)
		if d > len(f.inputStack) {
			return abstractConstant(ConstantTop)
		}
		return f.initializedValue(f.inputStack[len(f.inputStack)-d], symbols)
	default:
		return f.initializedValue(v, symbols)
	}
}

// mergeIntoSuccessor concretizes this block's output frame and merges it
// element-wise into succ's input frame; catchTypeIndex >= 0 marks an
// exception edge, whose stack is the single caught type.
// It reports whether succ changed, signalling the work-list to re-visit
// it.
func (f *Frame) mergeIntoSuccessor(succ *Frame, catchTypeIndex int, symbols *SymbolTable) bool {
	nLocal := len(f.inputLocals)
	if len(f.outputLocals) > nLocal {
		nLocal = len(f.outputLocals)
	}
	outLocals := make([]int, nLocal)
	for i := range outLocals {
		switch {
		case i < len(f.outputLocals) && f.outputLocals[i] != 0:
			outLocals[i] = f.concreteValue(f.outputLocals[i], symbols)
		case i < len(f.inputLocals):
			outLocals[i] = f.initializedValue(f.inputLocals[i], symbols)
		default:
			outLocals[i] = abstractConstant(ConstantTop)
		}
	}

	var outStack []int
	if catchTypeIndex >= 0 {
		outStack = []int{abstractReference(catchTypeIndex)}
	} else {
		keep := len(f.inputStack) + f.outputStackStart
		if keep < 0 {
			keep = 0
		}
		outStack = make([]int, 0, keep+len(f.outputStack))
		for i := 0; i < keep; i++ {
			outStack = append(outStack, f.initializedValue(f.inputStack[i], symbols))
		}
		for _, v := range f.outputStack {
			outStack = append(outStack, f.concreteValue(v, symbols))
		}
	}

	changed := mergeSlots(&succ.inputLocals, outLocals, symbols)
	if mergeSlots(&succ.inputStack, outStack, symbols) {
		changed = true
	}
	return changed
}

// mergeSlots folds src element-wise into *dst (LUB per slot), padding the
// shorter side with TOP, and reports whether *dst changed. A nil *dst is
// simply replaced by src (first merge into the block).
func mergeSlots(dst *[]int, src []int, symbols *SymbolTable) bool {
	if *dst == nil {
		*dst = append([]int(nil), src...)
		return true
	}
	changed := false
	d := *dst
	for len(d) < len(src) {
		d = append(d, abstractConstant(ConstantTop))
		changed = true
	}
	for i := range d {
		s := abstractConstant(ConstantTop)
		if i < len(src) {
			s = src[i]
		}
		merged, diff := mergeType(d[i], s, symbols)
		if diff {
			changed = true
		}
		d[i] = merged
	}
	*dst = d
	return changed
}

// collapseFrameTypes converts an expanded slot array (long/double plus
// TOP filler) into the single-entry-per-value form the StackMapTable
// encodes.
func collapseFrameTypes(slots []int) []int {
	out := make([]int, 0, len(slots))
	for i := 0; i < len(slots); i++ {
		v := slots[i]
		if v == 0 {
			v = abstractConstant(ConstantTop)
		}
		out = append(out, v)
		if isWideAbstract(v) {
			i++
		}
	}
	return out
}
