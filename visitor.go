// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// ClassVisitor receives events describing a class file's structure in the
// order visit, visitSource, visitModule, visitNestHost, visitOuterClass,
// annotations, attributes, visitNestMember*, visitPermittedSubclass*,
// visitInnerClass*, visitRecordComponent*, visitField*, visitMethod*,
// visitEnd (JVMS 4.7 attribute order). Each visitX method may return a
// narrower visitor for the subtree it introduces, or nil to skip it.
//
// A zero-value embed of ClassVisitorBase forwards every call to an
// optional Next visitor, so implementations override only what they care
// about.
type ClassVisitor interface {
	Visit(version int, access int, name, signature, superName string, interfaces []string)
	VisitSource(source, debug string)
	VisitModule(name string, access int, version string) ModuleVisitor
	VisitNestHost(nestHost string)
	VisitOuterClass(owner, name, descriptor string)
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitNestMember(nestMember string)
	VisitPermittedSubclass(permittedSubclass string)
	VisitInnerClass(name, outerName, innerName string, access int)
	VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor
	VisitField(access int, name, descriptor, signature string, value interface{}) FieldVisitor
	VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor
	VisitEnd()
}

// MethodVisitor receives events describing one method body, in the order
// visitParameter*, visitAnnotationDefault, annotations, attributes,
// visitCode, (frames and instructions in bytecode order), visitLocalVariable*,
// visitMaxs, visitEnd.
type MethodVisitor interface {
	VisitParameter(name string, access int)
	VisitAnnotationDefault() AnnotationVisitor
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitAnnotableParameterCount(parameterCount int, visible bool)
	VisitParameterAnnotation(parameter int, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitCode()
	VisitFrame(frameType int, numLocal int, local []interface{}, numStack int, stack []interface{})
	VisitInsn(opcode int)
	VisitIntInsn(opcode, operand int)
	VisitVarInsn(opcode, varIndex int)
	VisitTypeInsn(opcode int, typ string)
	VisitFieldInsn(opcode int, owner, name, descriptor string)
	VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool)
	VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle Handle, bootstrapMethodArguments []interface{})
	VisitJumpInsn(opcode int, label *Label)
	VisitLabel(label *Label)
	VisitLdcInsn(value interface{})
	VisitIincInsn(varIndex, increment int)
	VisitTableSwitchInsn(min, max int, dflt *Label, labels []*Label)
	VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label)
	VisitMultiANewArrayInsn(descriptor string, numDimensions int)
	VisitInsnAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitTryCatchBlock(start, end, handler *Label, typ string)
	VisitTryCatchAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int)
	VisitLocalVariableAnnotation(typeRef TypeReference, typePath TypePath, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor
	VisitLineNumber(line int, start *Label)
	VisitMaxs(maxStack, maxLocals int)
	VisitEnd()
}

// FieldVisitor receives events describing one field.
type FieldVisitor interface {
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitEnd()
}

// RecordComponentVisitor receives events describing one record component.
type RecordComponentVisitor interface {
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitEnd()
}

// ModuleVisitor receives events describing a module-info class's Module
// attribute.
type ModuleVisitor interface {
	VisitMainClass(mainClass string)
	VisitPackage(packaze string)
	VisitRequire(module string, access int, version string)
	VisitExport(packaze string, access int, modules []string)
	VisitOpen(packaze string, access int, modules []string)
	VisitUse(service string)
	VisitProvide(service string, providers []string)
	VisitEnd()
}

// AnnotationVisitor receives events describing one annotation's element-
// value pairs.
type AnnotationVisitor interface {
	Visit(name string, value interface{})
	VisitEnum(name, descriptor, value string)
	VisitAnnotation(name, descriptor string) AnnotationVisitor
	VisitArray(name string) AnnotationVisitor
	VisitEnd()
}

// Handle represents a CONSTANT_MethodHandle_info value (JVMS 4.4.8): a
// reference kind plus the member it refers to.
type Handle struct {
	Tag          int
	Owner        string
	Name         string
	Descriptor   string
	IsInterface  bool
}

// ConstantDynamic represents a CONSTANT_Dynamic_info value: a name,
// descriptor, bootstrap method handle, and bootstrap arguments, any of
// which may themselves be a ConstantDynamic.
type ConstantDynamic struct {
	Name                     string
	Descriptor               string
	BootstrapMethod          Handle
	BootstrapMethodArguments []interface{}
}

// Byte, Char, Short, and Boolean wrap the annotation element-value kinds
// that share CONSTANT_Integer_info storage in the constant pool but must
// round-trip through distinct element_value tags (JVMS 4.7.16.1: B, C, S,
// Z respectively) — information a plain int32 cannot carry. AnnotationWriter
// accepts a bare Go int32/bool too, for callers constructing annotations by
// hand rather than replaying a parsed one, but defaults those to 'I'/'Z'.
type Byte int8
type Char uint16
type Short int16
type Boolean bool

// ClassVisitorBase is a default ClassVisitor forwarding every call to Next
// (which may be nil), matching the "delegate to next" shape
// raskyer-asm/asm/helper's On*-callback visitors and the root
// simplevisitor.go/event-visitor.go wrappers use.
type ClassVisitorBase struct {
	Next ClassVisitor
}

func (v *ClassVisitorBase) Visit(version, access int, name, signature, superName string, interfaces []string) {
	if v.Next != nil {
		v.Next.Visit(version, access, name, signature, superName, interfaces)
	}
}
func (v *ClassVisitorBase) VisitSource(source, debug string) {
	if v.Next != nil {
		v.Next.VisitSource(source, debug)
	}
}
func (v *ClassVisitorBase) VisitModule(name string, access int, version string) ModuleVisitor {
	if v.Next != nil {
		return v.Next.VisitModule(name, access, version)
	}
	return nil
}
func (v *ClassVisitorBase) VisitNestHost(nestHost string) {
	if v.Next != nil {
		v.Next.VisitNestHost(nestHost)
	}
}
func (v *ClassVisitorBase) VisitOuterClass(owner, name, descriptor string) {
	if v.Next != nil {
		v.Next.VisitOuterClass(owner, name, descriptor)
	}
}
func (v *ClassVisitorBase) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *ClassVisitorBase) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *ClassVisitorBase) VisitAttribute(attr *Attribute) {
	if v.Next != nil {
		v.Next.VisitAttribute(attr)
	}
}
func (v *ClassVisitorBase) VisitNestMember(nestMember string) {
	if v.Next != nil {
		v.Next.VisitNestMember(nestMember)
	}
}
func (v *ClassVisitorBase) VisitPermittedSubclass(permittedSubclass string) {
	if v.Next != nil {
		v.Next.VisitPermittedSubclass(permittedSubclass)
	}
}
func (v *ClassVisitorBase) VisitInnerClass(name, outerName, innerName string, access int) {
	if v.Next != nil {
		v.Next.VisitInnerClass(name, outerName, innerName, access)
	}
}
func (v *ClassVisitorBase) VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor {
	if v.Next != nil {
		return v.Next.VisitRecordComponent(name, descriptor, signature)
	}
	return nil
}
func (v *ClassVisitorBase) VisitField(access int, name, descriptor, signature string, value interface{}) FieldVisitor {
	if v.Next != nil {
		return v.Next.VisitField(access, name, descriptor, signature, value)
	}
	return nil
}
func (v *ClassVisitorBase) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	if v.Next != nil {
		return v.Next.VisitMethod(access, name, descriptor, signature, exceptions)
	}
	return nil
}
func (v *ClassVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// MethodVisitorBase is a default MethodVisitor forwarding every call to
// Next.
type MethodVisitorBase struct {
	Next MethodVisitor
}

func (v *MethodVisitorBase) VisitParameter(name string, access int) {
	if v.Next != nil {
		v.Next.VisitParameter(name, access)
	}
}
func (v *MethodVisitorBase) VisitAnnotationDefault() AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotationDefault()
	}
	return nil
}
func (v *MethodVisitorBase) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitAnnotableParameterCount(parameterCount int, visible bool) {
	if v.Next != nil {
		v.Next.VisitAnnotableParameterCount(parameterCount, visible)
	}
}
func (v *MethodVisitorBase) VisitParameterAnnotation(parameter int, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitParameterAnnotation(parameter, descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitAttribute(attr *Attribute) {
	if v.Next != nil {
		v.Next.VisitAttribute(attr)
	}
}
func (v *MethodVisitorBase) VisitCode() {
	if v.Next != nil {
		v.Next.VisitCode()
	}
}
func (v *MethodVisitorBase) VisitFrame(frameType, numLocal int, local []interface{}, numStack int, stack []interface{}) {
	if v.Next != nil {
		v.Next.VisitFrame(frameType, numLocal, local, numStack, stack)
	}
}
func (v *MethodVisitorBase) VisitInsn(opcode int) {
	if v.Next != nil {
		v.Next.VisitInsn(opcode)
	}
}
func (v *MethodVisitorBase) VisitIntInsn(opcode, operand int) {
	if v.Next != nil {
		v.Next.VisitIntInsn(opcode, operand)
	}
}
func (v *MethodVisitorBase) VisitVarInsn(opcode, varIndex int) {
	if v.Next != nil {
		v.Next.VisitVarInsn(opcode, varIndex)
	}
}
func (v *MethodVisitorBase) VisitTypeInsn(opcode int, typ string) {
	if v.Next != nil {
		v.Next.VisitTypeInsn(opcode, typ)
	}
}
func (v *MethodVisitorBase) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	if v.Next != nil {
		v.Next.VisitFieldInsn(opcode, owner, name, descriptor)
	}
}
func (v *MethodVisitorBase) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	if v.Next != nil {
		v.Next.VisitMethodInsn(opcode, owner, name, descriptor, isInterface)
	}
}
func (v *MethodVisitorBase) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle Handle, bootstrapMethodArguments []interface{}) {
	if v.Next != nil {
		v.Next.VisitInvokeDynamicInsn(name, descriptor, bootstrapMethodHandle, bootstrapMethodArguments)
	}
}
func (v *MethodVisitorBase) VisitJumpInsn(opcode int, label *Label) {
	if v.Next != nil {
		v.Next.VisitJumpInsn(opcode, label)
	}
}
func (v *MethodVisitorBase) VisitLabel(label *Label) {
	if v.Next != nil {
		v.Next.VisitLabel(label)
	}
}
func (v *MethodVisitorBase) VisitLdcInsn(value interface{}) {
	if v.Next != nil {
		v.Next.VisitLdcInsn(value)
	}
}
func (v *MethodVisitorBase) VisitIincInsn(varIndex, increment int) {
	if v.Next != nil {
		v.Next.VisitIincInsn(varIndex, increment)
	}
}
func (v *MethodVisitorBase) VisitTableSwitchInsn(min, max int, dflt *Label, labels []*Label) {
	if v.Next != nil {
		v.Next.VisitTableSwitchInsn(min, max, dflt, labels)
	}
}
func (v *MethodVisitorBase) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	if v.Next != nil {
		v.Next.VisitLookupSwitchInsn(dflt, keys, labels)
	}
}
func (v *MethodVisitorBase) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	if v.Next != nil {
		v.Next.VisitMultiANewArrayInsn(descriptor, numDimensions)
	}
}
func (v *MethodVisitorBase) VisitInsnAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitInsnAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	if v.Next != nil {
		v.Next.VisitTryCatchBlock(start, end, handler, typ)
	}
}
func (v *MethodVisitorBase) VisitTryCatchAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitTryCatchAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int) {
	if v.Next != nil {
		v.Next.VisitLocalVariable(name, descriptor, signature, start, end, index)
	}
}
func (v *MethodVisitorBase) VisitLocalVariableAnnotation(typeRef TypeReference, typePath TypePath, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitLocalVariableAnnotation(typeRef, typePath, start, end, index, descriptor, visible)
	}
	return nil
}
func (v *MethodVisitorBase) VisitLineNumber(line int, start *Label) {
	if v.Next != nil {
		v.Next.VisitLineNumber(line, start)
	}
}
func (v *MethodVisitorBase) VisitMaxs(maxStack, maxLocals int) {
	if v.Next != nil {
		v.Next.VisitMaxs(maxStack, maxLocals)
	}
}
func (v *MethodVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// FieldVisitorBase is a default FieldVisitor forwarding every call to Next.
type FieldVisitorBase struct {
	Next FieldVisitor
}

func (v *FieldVisitorBase) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *FieldVisitorBase) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *FieldVisitorBase) VisitAttribute(attr *Attribute) {
	if v.Next != nil {
		v.Next.VisitAttribute(attr)
	}
}
func (v *FieldVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// RecordComponentVisitorBase is a default RecordComponentVisitor
// forwarding every call to Next.
type RecordComponentVisitorBase struct {
	Next RecordComponentVisitor
}

func (v *RecordComponentVisitorBase) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *RecordComponentVisitorBase) VisitTypeAnnotation(typeRef TypeReference, typePath TypePath, descriptor string, visible bool) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *RecordComponentVisitorBase) VisitAttribute(attr *Attribute) {
	if v.Next != nil {
		v.Next.VisitAttribute(attr)
	}
}
func (v *RecordComponentVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// ModuleVisitorBase is a default ModuleVisitor forwarding every call to Next.
type ModuleVisitorBase struct {
	Next ModuleVisitor
}

func (v *ModuleVisitorBase) VisitMainClass(mainClass string) {
	if v.Next != nil {
		v.Next.VisitMainClass(mainClass)
	}
}
func (v *ModuleVisitorBase) VisitPackage(packaze string) {
	if v.Next != nil {
		v.Next.VisitPackage(packaze)
	}
}
func (v *ModuleVisitorBase) VisitRequire(module string, access int, version string) {
	if v.Next != nil {
		v.Next.VisitRequire(module, access, version)
	}
}
func (v *ModuleVisitorBase) VisitExport(packaze string, access int, modules []string) {
	if v.Next != nil {
		v.Next.VisitExport(packaze, access, modules)
	}
}
func (v *ModuleVisitorBase) VisitOpen(packaze string, access int, modules []string) {
	if v.Next != nil {
		v.Next.VisitOpen(packaze, access, modules)
	}
}
func (v *ModuleVisitorBase) VisitUse(service string) {
	if v.Next != nil {
		v.Next.VisitUse(service)
	}
}
func (v *ModuleVisitorBase) VisitProvide(service string, providers []string) {
	if v.Next != nil {
		v.Next.VisitProvide(service, providers)
	}
}
func (v *ModuleVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// AnnotationVisitorBase is a default AnnotationVisitor forwarding every
// call to Next.
type AnnotationVisitorBase struct {
	Next AnnotationVisitor
}

func (v *AnnotationVisitorBase) Visit(name string, value interface{}) {
	if v.Next != nil {
		v.Next.Visit(name, value)
	}
}
func (v *AnnotationVisitorBase) VisitEnum(name, descriptor, value string) {
	if v.Next != nil {
		v.Next.VisitEnum(name, descriptor, value)
	}
}
func (v *AnnotationVisitorBase) VisitAnnotation(name, descriptor string) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitAnnotation(name, descriptor)
	}
	return nil
}
func (v *AnnotationVisitorBase) VisitArray(name string) AnnotationVisitor {
	if v.Next != nil {
		return v.Next.VisitArray(name)
	}
	return nil
}
func (v *AnnotationVisitorBase) VisitEnd() {
	if v.Next != nil {
		v.Next.VisitEnd()
	}
}

// TypeHierarchy resolves common-supertype queries for frame computation
//. A caller without a live classloader may use
// DefaultTypeHierarchy, which always answers java/lang/Object.
type TypeHierarchy interface {
	IsAssignableFrom(internalName, candidate string) bool
	IsInterface(internalName string) bool
}

// DefaultTypeHierarchy is the fallback TypeHierarchy used when the caller
// supplies none: every reference type merges to java/lang/Object, which is
// always a valid (if imprecise) answer for stack-map frame verification.
type DefaultTypeHierarchy struct{}

func (DefaultTypeHierarchy) IsAssignableFrom(string, string) bool { return false }
func (DefaultTypeHierarchy) IsInterface(string) bool              { return false }
