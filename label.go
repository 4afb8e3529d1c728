// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Label flags, stored in Label.flags.
const (
	// LabelFlagDebugOnly marks a label used only by debug attributes
	// (LocalVariableTable, LineNumberTable); it never starts a basic
	// block for control-flow purposes.
	LabelFlagDebugOnly = 1
	// LabelFlagJumpTarget marks a label that is the target of a jump
	// instruction or an exception handler.
	LabelFlagJumpTarget = 2
	// LabelFlagResolved marks a label whose bytecodeOffset is final.
	LabelFlagResolved = 4
	// LabelFlagReachable marks a label proven reachable by the
	// control-flow scan (used to skip dead code during frame synthesis).
	LabelFlagReachable = 8
	// LabelFlagSubroutineCaller marks a label preceding a JSR, retained
	// for legacy (pre-V1.6) subroutine support.
	LabelFlagSubroutineCaller = 16
)

// forwardReference is a pending patch: the writer recorded a 2-byte (or
// 4-byte, for *_W forms) placeholder at sourceOffset that must be
// overwritten with this label's resolved offset once known.
type forwardReference struct {
	sourceInsnBytecodeOffset int
	referenceOffset          int // byte offset of the placeholder within the Code array
	wide                     bool
}

// Label is a placeholder for a bytecode position.
// It becomes immutable after MethodVisitor.VisitEnd.
type Label struct {
	bytecodeOffset int // -1 until resolved
	flags          int

	forwardReferences []forwardReference

	// frame is the abstract interpreter state at this label's basic
	// block entry, computed during stack-map-frame synthesis (nil until
	// C5 runs).
	frame *Frame

	// outgoingEdges threads this label's control-flow successors.
	outgoingEdges *Edge

	// nextBasicBlock threads labels into the method's basic-block list
	// in bytecode order; set once the label is visited.
	nextBasicBlock *Label

	// inputStackSize and outputStackMax drive the classic max-stack
	// computation: the operand-stack height on entry to this basic block
	// and the highest height reached within it, both relative sizes
	// propagated along edges by MethodWriter's fixed-point scan.
	inputStackSize int
	outputStackMax int

	// canonical points to the first label resolved at the same bytecode
	// offset when several labels alias one position; nil for a label
	// that is its own canonical instance.
	canonical *Label

	// lineNumbers accumulates the lines recorded by addLineNumber for
	// this label (a label may carry more than one). MethodWriter's
	// VisitLineNumber writes LineNumberTable rows directly and does not
	// add to it.
	lineNumbers []int
}

// NewLabel returns an unresolved label with no assigned bytecode offset.
func NewLabel() *Label {
	return &Label{bytecodeOffset: -1}
}

// Offset returns the resolved bytecode offset, or -1 if unresolved.
func (l *Label) Offset() int {
	return l.bytecodeOffset
}

func (l *Label) isResolved() bool {
	return l.flags&LabelFlagResolved != 0
}

// resolve fixes the label's bytecode offset and patches every pending
// forward reference against code. When a 2-byte reference's displacement
// overflows a signed 16-bit offset, the source instruction's opcode is
// replaced in place with its synthetic wide-pending counterpart and the
// displacement is stored truncated (it is re-read as an unsigned u16 by
// the EXPAND_ASM_INSNS pass, which works because code length is capped at
// 65535); resolve then reports true so the writer schedules the
// long-branch resolution round trip.
func (l *Label) resolve(code *ByteVector, offset int) bool {
	l.bytecodeOffset = offset
	l.flags |= LabelFlagResolved
	hasAsmInstructions := false
	data := code.data
	for _, ref := range l.forwardReferences {
		delta := offset - ref.sourceInsnBytecodeOffset
		if ref.wide {
			data[ref.referenceOffset] = byte(delta >> 24)
			data[ref.referenceOffset+1] = byte(delta >> 16)
			data[ref.referenceOffset+2] = byte(delta >> 8)
			data[ref.referenceOffset+3] = byte(delta)
		} else {
			if delta < -32768 || delta > 32767 {
				opcode := int(data[ref.sourceInsnBytecodeOffset])
				if opcode < Ifnull {
					data[ref.sourceInsnBytecodeOffset] = byte(opcode + AsmOpcodeDelta)
				} else {
					data[ref.sourceInsnBytecodeOffset] = byte(opcode + AsmIfnullOpcodeDelta)
				}
				hasAsmInstructions = true
			}
			data[ref.referenceOffset] = byte(delta >> 8)
			data[ref.referenceOffset+1] = byte(delta)
		}
	}
	l.forwardReferences = nil
	return hasAsmInstructions
}

// addForwardReference records a placeholder at referenceOffset (an
// absolute offset into the code array) to be patched when the label
// resolves.
func (l *Label) addForwardReference(sourceInsnBytecodeOffset, referenceOffset int, wide bool) {
	l.forwardReferences = append(l.forwardReferences, forwardReference{
		sourceInsnBytecodeOffset: sourceInsnBytecodeOffset,
		referenceOffset:          referenceOffset,
		wide:                     wide,
	})
}

// addLineNumber records that source line is associated with this label's
// offset.
func (l *Label) addLineNumber(line int) {
	l.lineNumbers = append(l.lineNumbers, line)
}

// getCanonicalInstance returns the first label resolved at this label's
// bytecode offset, which is the one threaded into the basic-block list;
// all control-flow bookkeeping goes through it.
func (l *Label) getCanonicalInstance() *Label {
	if l.canonical != nil {
		return l.canonical
	}
	return l
}

// addOutgoingEdge links a new control-flow edge from l, keeping the
// existing chain as successors.
func (l *Label) addOutgoingEdge(e *Edge) {
	e.nextEdge = l.outgoingEdges
	l.outgoingEdges = e
}
