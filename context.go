// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Reader option flags, OR'd together and passed to
// Reader.Accept.
const (
	// SkipCode skips parsing of method Code attributes entirely.
	SkipCode = 1
	// SkipDebug skips LineNumberTable, LocalVariableTable,
	// LocalVariableTypeTable, MethodParameters, SourceFile, and
	// SourceDebugExtension.
	SkipDebug = 2
	// SkipFrames skips StackMapTable parsing.
	SkipFrames = 4
	// ExpandFrames always presents frames in uncompressed (FNew) form.
	ExpandFrames = 8
	// ExpandAsmInsns converts synthetic long-branch pseudo-opcodes back
	// to standard JVM opcodes when emitting events; internal, set by a
	// round-trip reader following ClassWriter's ASM_GOTO_W resolution.
	ExpandAsmInsns = 256
)

// parseContext carries per-Accept mutable state threaded through the
// reader's class-level and method-level parse, mirroring
// raskyer-asm/asm/context.go's Context type: parsing flags, a char
// buffer, and the fields that only make sense while a particular
// method's Code attribute is being walked.
type parseContext struct {
	options int

	// charBuffer is allocated by Accept, sized to the largest UTF-8
	// constant found in the initial constant-pool scan; readUTF8 decodes
	// without it.
	charBuffer []byte

	// Current-method parse state, reset by startMethod before each
	// method's Code attribute is walked.
	currentMethodAccessFlags int
	currentMethodDescriptor  string
	currentMethodLabels      map[int]*Label

	// The currentFrame fields are reset by startMethod; StackMapTable
	// decoding keeps the previous frame's locals/stack in its own local
	// variables and does not read them.
	currentFrameOffset       int
	currentFrameLocalCount   int
	currentFrameLocalTypes   []interface{}
	currentFrameStackCount   int
	currentFrameStackTypes   []interface{}
}

func newParseContext(options int) *parseContext {
	return &parseContext{options: options}
}

func (c *parseContext) startMethod(access int, descriptor string) {
	c.currentMethodAccessFlags = access
	c.currentMethodDescriptor = descriptor
	c.currentMethodLabels = make(map[int]*Label)
	c.currentFrameOffset = -1
	c.currentFrameLocalTypes = nil
	c.currentFrameStackTypes = nil
}

// readLabel returns the Label for bytecodeOffset, creating and recording
// it on first reference.
func (c *parseContext) readLabel(bytecodeOffset int) *Label {
	l, ok := c.currentMethodLabels[bytecodeOffset]
	if !ok {
		l = NewLabel()
		c.currentMethodLabels[bytecodeOffset] = l
	}
	return l
}

func (c *parseContext) markJumpTarget(bytecodeOffset int) *Label {
	l := c.readLabel(bytecodeOffset)
	l.flags |= LabelFlagJumpTarget
	return l
}
