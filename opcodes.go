// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Class file versions. The minor version occupies the 16 most significant
// bits and the major version the 16 least significant bits, per JVMS 4.1.
const (
	V1_1 = 3<<16 | 45
	V1_2 = 0<<16 | 46
	V1_3 = 0<<16 | 47
	V1_4 = 0<<16 | 48
	V1_5 = 0<<16 | 49
	V1_6 = 0<<16 | 50
	V1_7 = 0<<16 | 51
	V1_8 = 0<<16 | 52
	V9   = 0<<16 | 53
	V10  = 0<<16 | 54
	V11  = 0<<16 | 55
	V12  = 0<<16 | 56
	V13  = 0<<16 | 57
	V14  = 0<<16 | 58
	V15  = 0<<16 | 59
	V16  = 0<<16 | 60
	V17  = 0<<16 | 61
	V18  = 0<<16 | 62

	// VPreview marks a class compiled with preview features of its major
	// version; the reader tolerates it and forwards the flag unchanged.
	VPreview = 0xFFFF << 16
)

// MinSupportedMajor and MaxSupportedMajor bound the major versions this
// codec parses (JVMS 1.0.2 through Java 18).
const (
	MinSupportedMajor = 45
	MaxSupportedMajor = 62
)

// Access flags (JVMS 4.1, 4.5, 4.6, 4.7.6) shared across class, field,
// method, inner-class and module-attribute contexts.
const (
	AccPublic       = 0x0001 // class, field, method
	AccPrivate      = 0x0002 // class, field, method
	AccProtected    = 0x0004 // class, field, method
	AccStatic       = 0x0008 // field, method
	AccFinal        = 0x0010 // class, field, method, parameter
	AccSuper        = 0x0020 // class
	AccSynchronized = 0x0020 // method
	AccOpen         = 0x0020 // module
	AccTransitive   = 0x0020 // module requires
	AccVolatile     = 0x0040 // field
	AccBridge       = 0x0040 // method
	AccStaticPhase  = 0x0040 // module requires
	AccVarargs      = 0x0080 // method
	AccTransient    = 0x0080 // field
	AccNative       = 0x0100 // method
	AccInterface    = 0x0200 // class
	AccAbstract     = 0x0400 // class, method
	AccStrict       = 0x0800 // method
	AccSynthetic    = 0x1000 // class, field, method, parameter, module
	AccAnnotation   = 0x2000 // class
	AccEnum         = 0x4000 // class, field
	AccMandated     = 0x8000 // parameter, module, module *
	AccModule       = 0x8000 // class

	// AccRecord and AccDeprecated are core-internal high bits (above the
	// 16 bits stored in a class file) that are stripped before
	// serialisation.
	AccRecord     = 0x10000
	AccDeprecated = 0x20000

	// AccConstructor is an ASM-internal method access flag, never
	// serialised: the 16 least significant bits are reserved for the
	// standard flags above.
	AccConstructor = 0x40000
)

// Primitive array types for the NEWARRAY instruction (JVMS 6.5.newarray).
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

// Reference kinds for CONSTANT_MethodHandle_info (JVMS 4.4.8).
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

// Stack map frame types passed to MethodVisitor.VisitFrame.
const (
	// FNew designates an expanded frame, used when EXPAND_FRAMES is set.
	FNew = -1
	// FFull is a frame with complete local and stack arrays.
	FFull = 0
	// FAppend is a frame that adds 1-3 locals to the previous frame with
	// an empty stack.
	FAppend = 1
	// FChop is a frame that removes the last 1-3 locals of the previous
	// frame, with an empty stack.
	FChop = 2
	// FSame is a frame with the same locals as the previous one and an
	// empty stack.
	FSame = 3
	// FSame1 is a frame with the same locals as the previous one and a
	// single value on the stack.
	FSame1 = 4

	// FInsert is an ASM-internal frame type for frames synthesized at a
	// basic block inserted by long-jump resolution; it is derivable from
	// the preceding frame and the instructions since without knowledge of
	// the type hierarchy. Never written to a class file.
	FInsert = 256
)

// JVM opcodes (JVMS 6.5), tagged with the visitX method that carries them.
const (
	Nop     = 0 // visitInsn
	AconstNull = 1
	IconstM1  = 2
	Iconst0   = 3
	Iconst1   = 4
	Iconst2   = 5
	Iconst3   = 6
	Iconst4   = 7
	Iconst5   = 8
	Lconst0   = 9
	Lconst1   = 10
	Fconst0   = 11
	Fconst1   = 12
	Fconst2   = 13
	Dconst0   = 14
	Dconst1   = 15

	Bipush = 16 // visitIntInsn
	Sipush = 17
	Ldc    = 18 // visitLdcInsn
	LdcW   = 19 // internal, rewritten from Ldc when the index overflows a byte
	Ldc2W  = 20

	Iload = 21 // visitVarInsn
	Lload = 22
	Fload = 23
	Dload = 24
	Aload = 25

	Iload0 = 26 // internal compact forms
	Iload1 = 27
	Iload2 = 28
	Iload3 = 29
	Lload0 = 30
	Lload1 = 31
	Lload2 = 32
	Lload3 = 33
	Fload0 = 34
	Fload1 = 35
	Fload2 = 36
	Fload3 = 37
	Dload0 = 38
	Dload1 = 39
	Dload2 = 40
	Dload3 = 41
	Aload0 = 42
	Aload1 = 43
	Aload2 = 44
	Aload3 = 45

	Iaload = 46 // visitInsn
	Laload = 47
	Faload = 48
	Daload = 49
	Aaload = 50
	Baload = 51
	Caload = 52
	Saload = 53

	Istore = 54 // visitVarInsn
	Lstore = 55
	Fstore = 56
	Dstore = 57
	Astore = 58

	Istore0 = 59 // internal compact forms
	Istore1 = 60
	Istore2 = 61
	Istore3 = 62
	Lstore0 = 63
	Lstore1 = 64
	Lstore2 = 65
	Lstore3 = 66
	Fstore0 = 67
	Fstore1 = 68
	Fstore2 = 69
	Fstore3 = 70
	Dstore0 = 71
	Dstore1 = 72
	Dstore2 = 73
	Dstore3 = 74
	Astore0 = 75
	Astore1 = 76
	Astore2 = 77
	Astore3 = 78

	Iastore = 79 // visitInsn
	Lastore = 80
	Fastore = 81
	Dastore = 82
	Aastore = 83
	Bastore = 84
	Castore = 85
	Sastore = 86
	Pop     = 87
	Pop2    = 88
	Dup     = 89
	DupX1   = 90
	DupX2   = 91
	Dup2    = 92
	Dup2X1  = 93
	Dup2X2  = 94
	Swap    = 95
	Iadd    = 96
	Ladd    = 97
	Fadd    = 98
	Dadd    = 99
	Isub    = 100
	Lsub    = 101
	Fsub    = 102
	Dsub    = 103
	Imul    = 104
	Lmul    = 105
	Fmul    = 106
	Dmul    = 107
	Idiv    = 108
	Ldiv    = 109
	Fdiv    = 110
	Ddiv    = 111
	Irem    = 112
	Lrem    = 113
	Frem    = 114
	Drem    = 115
	Ineg    = 116
	Lneg    = 117
	Fneg    = 118
	Dneg    = 119
	Ishl    = 120
	Lshl    = 121
	Ishr    = 122
	Lshr    = 123
	Iushr   = 124
	Lushr   = 125
	Iand    = 126
	Land    = 127
	Ior     = 128
	Lor     = 129
	Ixor    = 130
	Lxor    = 131

	Iinc = 132 // visitIincInsn

	I2l = 133 // visitInsn
	I2f = 134
	I2d = 135
	L2i = 136
	L2f = 137
	L2d = 138
	F2i = 139
	F2l = 140
	F2d = 141
	D2i = 142
	D2l = 143
	D2f = 144
	I2b = 145
	I2c = 146
	I2s = 147
	Lcmp  = 148
	Fcmpl = 149
	Fcmpg = 150
	Dcmpl = 151
	Dcmpg = 152

	Ifeq      = 153 // visitJumpInsn
	Ifne      = 154
	Iflt      = 155
	Ifge      = 156
	Ifgt      = 157
	Ifle      = 158
	IfIcmpeq  = 159
	IfIcmpne  = 160
	IfIcmplt  = 161
	IfIcmpge  = 162
	IfIcmpgt  = 163
	IfIcmple  = 164
	IfAcmpeq  = 165
	IfAcmpne  = 166
	Goto      = 167
	Jsr       = 168

	Ret = 169 // visitVarInsn

	Tableswitch  = 170 // visitTableSwitchInsn
	Lookupswitch = 171 // visitLookupSwitchInsn

	Ireturn = 172 // visitInsn
	Lreturn = 173
	Freturn = 174
	Dreturn = 175
	Areturn = 176
	Return  = 177

	Getstatic = 178 // visitFieldInsn
	Putstatic = 179
	Getfield  = 180
	Putfield  = 181

	Invokevirtual   = 182 // visitMethodInsn
	Invokespecial   = 183
	Invokestatic    = 184
	Invokeinterface = 185

	Invokedynamic = 186 // visitInvokeDynamicInsn

	New        = 187 // visitTypeInsn
	Newarray   = 188 // visitIntInsn
	Anewarray  = 189 // visitTypeInsn
	Arraylength = 190 // visitInsn
	Athrow      = 191
	Checkcast   = 192 // visitTypeInsn
	Instanceof  = 193

	Monitorenter = 194 // visitInsn
	Monitorexit  = 195

	Wide          = 196 // internal, reader/writer only
	Multianewarray = 197 // visitMultiANewArrayInsn
	Ifnull        = 198 // visitJumpInsn
	Ifnonnull     = 199
	GotoW         = 200 // internal wide forms
	JsrW          = 201
)

// Delta between GOTO_W/JSR_W and their short forms, and between the ASM
// synthetic conditional-branch opcodes and their standard counterparts; used
// by the long-branch resolution pass.
const (
	WideJumpOpcodeDelta = GotoW - Goto
	AsmOpcodeDelta       = 49
	AsmIfnullOpcodeDelta = 20
)

// ASM-internal opcodes for long forward jumps: never emitted in a finished
// class file. ClassWriter substitutes these temporarily while resolving
// jump offsets that might need a GOTO_W trampoline, and a
// reader pass with EXPAND_ASM_INSNS rewrites them back to standard opcodes.
const (
	AsmIfeq     = Ifeq + AsmOpcodeDelta
	AsmIfne     = Ifne + AsmOpcodeDelta
	AsmIflt     = Iflt + AsmOpcodeDelta
	AsmIfge     = Ifge + AsmOpcodeDelta
	AsmIfgt     = Ifgt + AsmOpcodeDelta
	AsmIfle     = Ifle + AsmOpcodeDelta
	AsmIfIcmpeq = IfIcmpeq + AsmOpcodeDelta
	AsmIfIcmpne = IfIcmpne + AsmOpcodeDelta
	AsmIfIcmplt = IfIcmplt + AsmOpcodeDelta
	AsmIfIcmpge = IfIcmpge + AsmOpcodeDelta
	AsmIfIcmpgt = IfIcmpgt + AsmOpcodeDelta
	AsmIfIcmple = IfIcmple + AsmOpcodeDelta
	AsmIfAcmpeq = IfAcmpeq + AsmOpcodeDelta
	AsmIfAcmpne = IfAcmpne + AsmOpcodeDelta
	AsmGoto     = Goto + AsmOpcodeDelta
	AsmJsr      = Jsr + AsmOpcodeDelta
	AsmIfnull   = Ifnull + AsmIfnullOpcodeDelta
	AsmIfnonnull = Ifnonnull + AsmIfnullOpcodeDelta
	AsmGotoW    = 220
)
