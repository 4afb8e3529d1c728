// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Standard attribute names (JVMS 4.7), used by the reader to dispatch
// known attributes to dedicated parsing and by the writer to tag emitted
// attributes.
const (
	AttrConstantValue                      = "ConstantValue"
	AttrCode                                = "Code"
	AttrStackMapTable                       = "StackMapTable"
	AttrExceptions                          = "Exceptions"
	AttrInnerClasses                        = "InnerClasses"
	AttrEnclosingMethod                     = "EnclosingMethod"
	AttrSynthetic                           = "Synthetic"
	AttrSignature                           = "Signature"
	AttrSourceFile                          = "SourceFile"
	AttrSourceDebugExtension                = "SourceDebugExtension"
	AttrLineNumberTable                     = "LineNumberTable"
	AttrLocalVariableTable                  = "LocalVariableTable"
	AttrLocalVariableTypeTable              = "LocalVariableTypeTable"
	AttrDeprecated                          = "Deprecated"
	AttrRuntimeVisibleAnnotations           = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations         = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations  = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations       = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations     = "RuntimeInvisibleTypeAnnotations"
	AttrAnnotationDefault                   = "AnnotationDefault"
	AttrBootstrapMethods                    = "BootstrapMethods"
	AttrMethodParameters                    = "MethodParameters"
	AttrModule                              = "Module"
	AttrModulePackages                      = "ModulePackages"
	AttrModuleMainClass                     = "ModuleMainClass"
	AttrNestHost                            = "NestHost"
	AttrNestMembers                         = "NestMembers"
	AttrRecord                              = "Record"
	AttrPermittedSubclasses                 = "PermittedSubclasses"
)

// Attribute is a non-standard user attribute: a name, raw body, and a
// link to the next attribute in a class/field/method/record-component's
// attribute list. Unknown attributes are
// preserved as opaque blobs and re-emitted byte-for-byte.
type Attribute struct {
	Name         string
	Content      []byte
	nextAttribute *Attribute

	// labelReferences, when non-nil, is invoked by the reader so a
	// custom attribute can re-materialise the Labels its content
	// references. Most attributes leave this nil.
	labelReferences func(ctx *parseContext, offset int) error
}

// NewAttribute returns an opaque attribute with the given name and body.
func NewAttribute(name string, content []byte) *Attribute {
	return &Attribute{Name: name, Content: content}
}

// computeSize returns the bytes this attribute occupies once serialized:
// 2 (name index) + 4 (length) + len(Content).
func (a *Attribute) computeSize() int {
	return 6 + len(a.Content)
}

// putAttribute writes this attribute's {attribute_name_index,
// attribute_length, info} triple to out, allocating its name in symbols.
func (a *Attribute) putAttribute(out *ByteVector, symbols *SymbolTable) error {
	nameSym, err := symbols.addConstantUtf8(a.Name)
	if err != nil {
		return err
	}
	out.PutShort(nameSym.Index())
	out.PutInt(int32(len(a.Content)))
	out.PutByteArray(a.Content, 0, len(a.Content))
	return nil
}

// attributeList is a small linked-list helper shared by the per-element
// writers (field/method/record/module/class) to accumulate attributes in
// visit order before final emission.
type attributeList struct {
	head *Attribute
	tail *Attribute
	n    int
}

func (l *attributeList) add(a *Attribute) {
	if l.head == nil {
		l.head = a
	} else {
		l.tail.nextAttribute = a
	}
	l.tail = a
	l.n++
}

func (l *attributeList) computeSize() int {
	size := 0
	for a := l.head; a != nil; a = a.nextAttribute {
		size += a.computeSize()
	}
	return size
}

func (l *attributeList) putAll(out *ByteVector, symbols *SymbolTable) error {
	out.PutShort(l.n)
	for a := l.head; a != nil; a = a.nextAttribute {
		if err := a.putAttribute(out, symbols); err != nil {
			return err
		}
	}
	return nil
}
