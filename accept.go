// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// Accept parses the class file and drives visitor through its structure
// in JVMS §4.7 order. options is OR'd
// from SkipCode, SkipDebug, SkipFrames, ExpandFrames, ExpandAsmInsns.
func (r *Reader) Accept(visitor ClassVisitor, options int) error {
	ctx := newParseContext(options)
	ctx.charBuffer = make([]byte, r.maxStringLength)

	offset := r.header
	access := r.readUnsignedShort(offset)
	thisClass := r.readClass(offset + 2)
	superClass := r.readClass(offset + 4)
	interfacesCount := r.readUnsignedShort(offset + 6)
	interfaces := make([]string, interfacesCount)
	ifaceOffset := offset + 8
	for i := 0; i < interfacesCount; i++ {
		interfaces[i] = r.readClass(ifaceOffset)
		ifaceOffset += 2
	}
	offset = ifaceOffset

	version := r.readUnsignedShort(4)<<16 | r.readUnsignedShort(6)
	var signature, sourceFile, sourceDebugExtension string
	var nestHost, outerOwner, outerName, outerDescriptor string
	var moduleName string
	var moduleAccess int
	var moduleVersion string
	var moduleOffset, modulePackagesOffset int
	var moduleMainClass string
	var deprecated, synthetic bool
	var record bool
	var innerClasses, nestMembers, permittedSubclasses []func()
	var pendingAttrs []*Attribute
	var recordComponents []func()
	var classTypeAnnotations []decodedTypeAnnotation
	var classAnnotations []pendingAnnotation

	// JVMS §4 lays the byte layout out as fields_count/fields then
	// methods_count/methods then attributes. We parse in that byte
	// order and buffer the class-attribute-driven visit calls (source,
	// module, nest host, etc.) so they can be emitted in the JVMS §4.7
	// *visitor* order afterward.
	fieldsCount := r.readUnsignedShort(offset)
	offset += 2
	type fieldRecord struct {
		access                int
		name, descriptor      string
		constantValue         interface{}
		signature             string
		deprecated, synthetic bool
		annotations           []pendingAnnotation
		typeAnnotations       []decodedTypeAnnotation
		attrs                 []*Attribute
	}
	fields := make([]fieldRecord, fieldsCount)
	for i := 0; i < fieldsCount; i++ {
		fAccess := r.readUnsignedShort(offset)
		fName := r.readUTF8(offset + 2)
		fDesc := r.readUTF8(offset + 4)
		attrCount := r.readUnsignedShort(offset + 6)
		offset += 8
		fr := fieldRecord{access: fAccess, name: fName, descriptor: fDesc}
		for a := 0; a < attrCount; a++ {
			nameIndex := r.readUnsignedShort(offset)
			length := int(r.readInt(offset + 2))
			bodyOffset := offset + 6
			attrName := r.readUTF8Entry(nameIndex)
			switch attrName {
			case AttrConstantValue:
				v, err := r.readConst(r.readUnsignedShort(bodyOffset))
				if err != nil {
					return err
				}
				fr.constantValue = v
			case AttrSignature:
				fr.signature = r.readUTF8(bodyOffset)
			case AttrDeprecated:
				fr.deprecated = true
			case AttrSynthetic:
				fr.synthetic = true
			case AttrRuntimeVisibleAnnotations:
				anns, err := r.readAnnotations(bodyOffset, true)
				if err != nil {
					return err
				}
				fr.annotations = append(fr.annotations, anns...)
			case AttrRuntimeInvisibleAnnotations:
				anns, err := r.readAnnotations(bodyOffset, false)
				if err != nil {
					return err
				}
				fr.annotations = append(fr.annotations, anns...)
			case AttrRuntimeVisibleTypeAnnotations:
				anns, err := r.readTypeAnnotations(bodyOffset, true)
				if err != nil {
					return err
				}
				fr.typeAnnotations = append(fr.typeAnnotations, anns...)
			case AttrRuntimeInvisibleTypeAnnotations:
				anns, err := r.readTypeAnnotations(bodyOffset, false)
				if err != nil {
					return err
				}
				fr.typeAnnotations = append(fr.typeAnnotations, anns...)
			default:
				fr.attrs = append(fr.attrs, NewAttribute(attrName, cloneBytes(r.b[bodyOffset:bodyOffset+length])))
			}
			offset = bodyOffset + length
		}
		fields[i] = fr
	}

	methodsCount := r.readUnsignedShort(offset)
	offset += 2
	methods := make([]methodRecord, methodsCount)
	for i := 0; i < methodsCount; i++ {
		mAccess := r.readUnsignedShort(offset)
		mName := r.readUTF8(offset + 2)
		mDesc := r.readUTF8(offset + 4)
		attrCount := r.readUnsignedShort(offset + 6)
		attributesOffset := offset + 6
		offset += 8
		mr := methodRecord{access: mAccess, name: mName, descriptor: mDesc, stackMapTableOffset: -1, attributesOffset: attributesOffset}
		for a := 0; a < attrCount; a++ {
			nameIndex := r.readUnsignedShort(offset)
			length := int(r.readInt(offset + 2))
			bodyOffset := offset + 6
			attrName := r.readUTF8Entry(nameIndex)
			switch attrName {
			case AttrCode:
				if options&SkipCode == 0 {
					mr.hasCode = true
					mr.skipDebug = options&SkipDebug != 0
					mr.skipFrames = options&SkipFrames != 0
					if err := r.parseCodeHeader(bodyOffset, &mr); err != nil {
						return err
					}
				}
			case AttrExceptions:
				count := r.readUnsignedShort(bodyOffset)
				exc := make([]string, count)
				idx := make([]int, count)
				eo := bodyOffset + 2
				for e := 0; e < count; e++ {
					exc[e] = r.readClass(eo)
					idx[e] = r.readUnsignedShort(eo)
					eo += 2
				}
				mr.exceptions = exc
				mr.exceptionIndexes = idx
			case AttrSignature:
				mr.signature = r.readUTF8(bodyOffset)
				mr.signatureIndex = r.readUnsignedShort(bodyOffset)
			case AttrDeprecated:
				mr.deprecated = true
			case AttrSynthetic:
				mr.synthetic = true
			case AttrAnnotationDefault:
				v, _, err := r.readElementValue(bodyOffset)
				if err != nil {
					return err
				}
				mr.annotationDefault = v
			case AttrRuntimeVisibleAnnotations:
				anns, err := r.readAnnotations(bodyOffset, true)
				if err != nil {
					return err
				}
				mr.annotations = append(mr.annotations, anns...)
			case AttrRuntimeInvisibleAnnotations:
				anns, err := r.readAnnotations(bodyOffset, false)
				if err != nil {
					return err
				}
				mr.annotations = append(mr.annotations, anns...)
			case AttrRuntimeVisibleTypeAnnotations:
				anns, err := r.readTypeAnnotations(bodyOffset, true)
				if err != nil {
					return err
				}
				mr.typeAnnotations = append(mr.typeAnnotations, anns...)
			case AttrRuntimeInvisibleTypeAnnotations:
				anns, err := r.readTypeAnnotations(bodyOffset, false)
				if err != nil {
					return err
				}
				mr.typeAnnotations = append(mr.typeAnnotations, anns...)
			case AttrMethodParameters:
				if options&SkipDebug == 0 {
					count := r.readByte(bodyOffset)
					po := bodyOffset + 1
					for p := 0; p < count; p++ {
						mr.parameters = append(mr.parameters, methodParameter{
							name:   r.readUTF8(po),
							access: r.readUnsignedShort(po + 2),
						})
						po += 4
					}
				}
			default:
				mr.attrs = append(mr.attrs, NewAttribute(attrName, cloneBytes(r.b[bodyOffset:bodyOffset+length])))
			}
			offset = bodyOffset + length
		}
		mr.attributesLength = offset - mr.attributesOffset
		methods[i] = mr
	}

	classAttrCount := r.readUnsignedShort(offset)
	offset += 2
	for i := 0; i < classAttrCount; i++ {
		nameIndex := r.readUnsignedShort(offset)
		length := int(r.readInt(offset + 2))
		bodyOffset := offset + 6
		attrName := r.readUTF8Entry(nameIndex)
		switch attrName {
		case AttrSourceFile:
			sourceFile = r.readUTF8(bodyOffset)
		case AttrSourceDebugExtension:
			if options&SkipDebug == 0 {
				sourceDebugExtension = string(r.b[bodyOffset : bodyOffset+length])
			}
		case AttrSignature:
			signature = r.readUTF8(bodyOffset)
		case AttrDeprecated:
			deprecated = true
		case AttrSynthetic:
			synthetic = true
		case AttrNestHost:
			nestHost = r.readClass(bodyOffset)
		case AttrEnclosingMethod:
			outerOwner = r.readClass(bodyOffset)
			natIndex := r.readUnsignedShort(bodyOffset + 2)
			if natIndex != 0 {
				natOffset := r.cpInfoOffsets[natIndex]
				outerName = r.readUTF8(natOffset)
				outerDescriptor = r.readUTF8(natOffset + 2)
			}
		case AttrNestMembers:
			count := r.readUnsignedShort(bodyOffset)
			o := bodyOffset + 2
			for m := 0; m < count; m++ {
				member := r.readClass(o)
				nestMembers = append(nestMembers, func(member string) func() {
					return func() { visitor.VisitNestMember(member) }
				}(member))
				o += 2
			}
		case AttrPermittedSubclasses:
			count := r.readUnsignedShort(bodyOffset)
			o := bodyOffset + 2
			for m := 0; m < count; m++ {
				sub := r.readClass(o)
				permittedSubclasses = append(permittedSubclasses, func(sub string) func() {
					return func() { visitor.VisitPermittedSubclass(sub) }
				}(sub))
				o += 2
			}
		case AttrInnerClasses:
			count := r.readUnsignedShort(bodyOffset)
			o := bodyOffset + 2
			for m := 0; m < count; m++ {
				name := r.readClass(o)
				outer := r.readClass(o + 2)
				inner := r.readUTF8(o + 4)
				iAccess := r.readUnsignedShort(o + 6)
				innerClasses = append(innerClasses, func(name, outer, inner string, access int) func() {
					return func() { visitor.VisitInnerClass(name, outer, inner, access) }
				}(name, outer, inner, iAccess))
				o += 8
			}
		case AttrRecord:
			record = true
			count := r.readUnsignedShort(bodyOffset)
			o := bodyOffset + 2
			for c := 0; c < count; c++ {
				name := r.readUTF8(o)
				descriptor := r.readUTF8(o + 2)
				attrCount := r.readUnsignedShort(o + 4)
				o += 6
				var componentSignature string
				var componentAnnotations []pendingAnnotation
				var componentTypeAnnotations []decodedTypeAnnotation
				var componentAttrs []*Attribute
				for ca := 0; ca < attrCount; ca++ {
					cNameIdx := r.readUnsignedShort(o)
					cLength := int(r.readInt(o + 2))
					cBody := o + 6
					switch r.readUTF8Entry(cNameIdx) {
					case AttrSignature:
						componentSignature = r.readUTF8(cBody)
					case AttrRuntimeVisibleAnnotations:
						anns, err := r.readAnnotations(cBody, true)
						if err != nil {
							return err
						}
						componentAnnotations = append(componentAnnotations, anns...)
					case AttrRuntimeInvisibleAnnotations:
						anns, err := r.readAnnotations(cBody, false)
						if err != nil {
							return err
						}
						componentAnnotations = append(componentAnnotations, anns...)
					case AttrRuntimeVisibleTypeAnnotations:
						anns, err := r.readTypeAnnotations(cBody, true)
						if err != nil {
							return err
						}
						componentTypeAnnotations = append(componentTypeAnnotations, anns...)
					case AttrRuntimeInvisibleTypeAnnotations:
						anns, err := r.readTypeAnnotations(cBody, false)
						if err != nil {
							return err
						}
						componentTypeAnnotations = append(componentTypeAnnotations, anns...)
					default:
						componentAttrs = append(componentAttrs, NewAttribute(r.readUTF8Entry(cNameIdx), cloneBytes(r.b[cBody:cBody+cLength])))
					}
					o = cBody + cLength
				}
				recordComponents = append(recordComponents, func(name, descriptor, signature string, anns []pendingAnnotation, typeAnns []decodedTypeAnnotation, attrs []*Attribute) func() {
					return func() {
						rv := visitor.VisitRecordComponent(name, descriptor, signature)
						if rv == nil {
							return
						}
						for _, ann := range anns {
							av := rv.VisitAnnotation(ann.descriptor, ann.visible)
							if av != nil {
								replayAnnotation(av, ann)
							}
						}
						for _, ta := range typeAnns {
							av := rv.VisitTypeAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
							replayTypeAnnotationValues(av, ta)
						}
						for _, a := range attrs {
							rv.VisitAttribute(a)
						}
						rv.VisitEnd()
					}
				}(name, descriptor, componentSignature, componentAnnotations, componentTypeAnnotations, componentAttrs))
			}
		case AttrModule:
			moduleOffset = bodyOffset
			moduleName = r.readClass(bodyOffset)
			moduleAccess = r.readUnsignedShort(bodyOffset + 2)
			verIndex := r.readUnsignedShort(bodyOffset + 4)
			if verIndex != 0 {
				moduleVersion = r.readUTF8(bodyOffset + 4)
			}
		case AttrModulePackages:
			modulePackagesOffset = bodyOffset
		case AttrModuleMainClass:
			moduleMainClass = r.readClass(bodyOffset)
		case AttrBootstrapMethods:
			// Precomputed by locateBootstrapMethods.
		case AttrRuntimeVisibleTypeAnnotations:
			anns, err := r.readTypeAnnotations(bodyOffset, true)
			if err != nil {
				return err
			}
			classTypeAnnotations = append(classTypeAnnotations, anns...)
		case AttrRuntimeInvisibleTypeAnnotations:
			anns, err := r.readTypeAnnotations(bodyOffset, false)
			if err != nil {
				return err
			}
			classTypeAnnotations = append(classTypeAnnotations, anns...)
		case AttrRuntimeVisibleAnnotations:
			anns, err := r.readAnnotations(bodyOffset, true)
			if err != nil {
				return err
			}
			classAnnotations = append(classAnnotations, anns...)
		case AttrRuntimeInvisibleAnnotations:
			anns, err := r.readAnnotations(bodyOffset, false)
			if err != nil {
				return err
			}
			classAnnotations = append(classAnnotations, anns...)
		default:
			pendingAttrs = append(pendingAttrs, NewAttribute(attrName, cloneBytes(r.b[bodyOffset:bodyOffset+length])))
		}
		offset = bodyOffset + length
	}

	// Synthetic, Deprecated and Record are surfaced as the core-internal
	// high access bits rather than attribute events; the writer strips
	// them (or re-materialises the attribute form) on emit.
	if synthetic {
		access |= AccSynthetic
	}
	if deprecated {
		access |= AccDeprecated
	}
	if record {
		access |= AccRecord
	}

	visitor.Visit(version, access, thisClass, signature, superClass, interfaces)
	if sourceFile != "" || sourceDebugExtension != "" {
		visitor.VisitSource(sourceFile, sourceDebugExtension)
	}
	if moduleName != "" {
		mv := visitor.VisitModule(moduleName, moduleAccess, moduleVersion)
		if mv != nil {
			r.acceptModule(mv, moduleOffset, modulePackagesOffset, moduleMainClass)
		}
	}
	if nestHost != "" {
		visitor.VisitNestHost(nestHost)
	}
	if outerOwner != "" {
		visitor.VisitOuterClass(outerOwner, outerName, outerDescriptor)
	}
	for _, ann := range classAnnotations {
		av := visitor.VisitAnnotation(ann.descriptor, ann.visible)
		if av != nil {
			replayAnnotation(av, ann)
		}
	}
	for _, ta := range classTypeAnnotations {
		av := visitor.VisitTypeAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
		replayTypeAnnotationValues(av, ta)
	}
	for _, fn := range nestMembers {
		fn()
	}
	for _, fn := range permittedSubclasses {
		fn()
	}
	for _, fn := range innerClasses {
		fn()
	}
	if record {
		for _, fn := range recordComponents {
			fn()
		}
	}
	for _, a := range pendingAttrs {
		visitor.VisitAttribute(a)
	}

	for _, fr := range fields {
		fAccess := fr.access
		if fr.synthetic {
			fAccess |= AccSynthetic
		}
		if fr.deprecated {
			fAccess |= AccDeprecated
		}
		fv := visitor.VisitField(fAccess, fr.name, fr.descriptor, fr.signature, fr.constantValue)
		if fv == nil {
			continue
		}
		for _, ann := range fr.annotations {
			av := fv.VisitAnnotation(ann.descriptor, ann.visible)
			if av != nil {
				replayAnnotation(av, ann)
			}
		}
		for _, ta := range fr.typeAnnotations {
			av := fv.VisitTypeAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
			replayTypeAnnotationValues(av, ta)
		}
		for _, a := range fr.attrs {
			fv.VisitAttribute(a)
		}
		fv.VisitEnd()
	}

	for i := range methods {
		mr := methods[i]
		mAccess := mr.access
		if mr.synthetic {
			mAccess |= AccSynthetic
		}
		if mr.deprecated {
			mAccess |= AccDeprecated
		}
		mv := visitor.VisitMethod(mAccess, mr.name, mr.descriptor, mr.signature, mr.exceptions)
		if mv == nil {
			continue
		}
		// Copy-through fast path: when the next visitor is
		// a MethodWriter sharing this reader's constant pool and the
		// method's structural attributes survive unchanged, the whole
		// attribute block is copied verbatim and the body is not parsed.
		if mw, ok := mv.(*MethodWriter); ok &&
			mw.canCopyMethodAttributes(r, mr.synthetic, mr.deprecated, mr.signatureIndex, mr.exceptionIndexes) {
			mw.setMethodAttributesSource(r, mr.attributesOffset, mr.attributesLength)
			mv.VisitEnd()
			continue
		}
		for _, p := range mr.parameters {
			mv.VisitParameter(p.name, p.access)
		}
		if mr.annotationDefault != nil {
			dv := mv.VisitAnnotationDefault()
			if dv != nil {
				replayElementValue(dv, "", mr.annotationDefault)
				dv.VisitEnd()
			}
		}
		for _, ann := range mr.annotations {
			av := mv.VisitAnnotation(ann.descriptor, ann.visible)
			if av != nil {
				replayAnnotation(av, ann)
			}
		}
		for _, ta := range mr.typeAnnotations {
			if isCodeTypeAnnotation(ta.typeRef.Sort()) {
				continue
			}
			av := mv.VisitTypeAnnotation(ta.typeRef, ta.typePath, ta.descriptor, ta.visible)
			replayTypeAnnotationValues(av, ta)
		}
		for _, a := range mr.attrs {
			mv.VisitAttribute(a)
		}
		if mr.hasCode {
			if err := r.parseCodeBody(ctx, mv, &mr); err != nil {
				return err
			}
		}
		mv.VisitEnd()
	}

	visitor.VisitEnd()
	return nil
}

// acceptModule replays the Module attribute body (JVMS 4.7.25) plus the
// ModuleMainClass and ModulePackages adjuncts against mv, in
// ModuleVisitor event order.
func (r *Reader) acceptModule(mv ModuleVisitor, moduleOffset, packagesOffset int, mainClass string) {
	if mainClass != "" {
		mv.VisitMainClass(mainClass)
	}
	if packagesOffset != 0 {
		count := r.readUnsignedShort(packagesOffset)
		o := packagesOffset + 2
		for i := 0; i < count; i++ {
			mv.VisitPackage(r.readClass(o))
			o += 2
		}
	}

	o := moduleOffset + 6 // past name, flags, version
	requiresCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < requiresCount; i++ {
		module := r.readClass(o)
		access := r.readUnsignedShort(o + 2)
		version := ""
		if idx := r.readUnsignedShort(o + 4); idx != 0 {
			version = r.readUTF8(o + 4)
		}
		mv.VisitRequire(module, access, version)
		o += 6
	}
	exportsCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < exportsCount; i++ {
		packaze := r.readClass(o)
		access := r.readUnsignedShort(o + 2)
		toCount := r.readUnsignedShort(o + 4)
		o += 6
		var modules []string
		for j := 0; j < toCount; j++ {
			modules = append(modules, r.readClass(o))
			o += 2
		}
		mv.VisitExport(packaze, access, modules)
	}
	opensCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < opensCount; i++ {
		packaze := r.readClass(o)
		access := r.readUnsignedShort(o + 2)
		toCount := r.readUnsignedShort(o + 4)
		o += 6
		var modules []string
		for j := 0; j < toCount; j++ {
			modules = append(modules, r.readClass(o))
			o += 2
		}
		mv.VisitOpen(packaze, access, modules)
	}
	usesCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < usesCount; i++ {
		mv.VisitUse(r.readClass(o))
		o += 2
	}
	providesCount := r.readUnsignedShort(o)
	o += 2
	for i := 0; i < providesCount; i++ {
		service := r.readClass(o)
		withCount := r.readUnsignedShort(o + 2)
		o += 4
		providers := make([]string, withCount)
		for j := 0; j < withCount; j++ {
			providers[j] = r.readClass(o)
			o += 2
		}
		mv.VisitProvide(service, providers)
	}
	mv.VisitEnd()
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

type methodParameter struct {
	name   string
	access int
}

// methodRecord buffers one method_info's parsed fields between the
// structural pass (byte order: fields, methods, attributes) and the
// JVMS §4.7 visitor replay pass Accept performs afterward. codebody.go's
// parseCodeHeader/parseCodeBody fill in the Code-attribute fields.
type methodRecord struct {
	access                 int
	name, descriptor       string
	signature              string
	exceptions             []string
	deprecated, synthetic  bool
	annotations            []pendingAnnotation
	typeAnnotations        []decodedTypeAnnotation
	annotationDefault      interface{}
	attrs                  []*Attribute
	hasCode                bool
	codeOffset, codeLength int

	// signatureIndex, exceptionIndexes, and the attribute-block byte
	// range feed the copy-through eligibility check.
	signatureIndex   int
	exceptionIndexes []int
	attributesOffset int
	attributesLength int
	maxStack, maxLocals    int
	exceptionTable         []exceptionTableEntry
	lineNumbers            []lineNumberEntry
	localVariables         []localVariableEntry
	frames                 []decodedFrame
	stackMapTableOffset    int
	stackMapTableLength    int
	parameters             []methodParameter
	skipDebug              bool
	skipFrames             bool
}

type pendingAnnotation struct {
	descriptor string
	visible    bool
	values     []annotationElement
}

type annotationElement struct {
	name  string
	value interface{}
}

// readAnnotations decodes a RuntimeVisible/InvisibleAnnotations attribute
// body into structured values the caller replays against the visitor once
// the owning element (field/method/class) visitor is known.
func (r *Reader) readAnnotations(offset int, visible bool) ([]pendingAnnotation, error) {
	count := r.readUnsignedShort(offset)
	o := offset + 2
	out := make([]pendingAnnotation, 0, count)
	for i := 0; i < count; i++ {
		a, next, err := r.readAnnotation(o, visible)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		o = next
	}
	return out, nil
}

func (r *Reader) readAnnotation(offset int, visible bool) (pendingAnnotation, int, error) {
	descriptor := r.readUTF8(offset)
	pairCount := r.readUnsignedShort(offset + 2)
	o := offset + 4
	a := pendingAnnotation{descriptor: descriptor, visible: visible}
	for i := 0; i < pairCount; i++ {
		name := r.readUTF8(o)
		value, next, err := r.readElementValue(o + 2)
		if err != nil {
			return a, 0, err
		}
		a.values = append(a.values, annotationElement{name: name, value: value})
		o = next
	}
	return a, o, nil
}

// readElementValue decodes one element_value structure (JVMS 4.7.16.1),
// returning the decoded value and the offset just past it. Const values
// decode to their Go primitive; enum values to a 2-element [name,value]
// string pair wrapped in enumValue; nested annotations to pendingAnnotation;
// arrays to []interface{}.
type enumValue struct {
	typeName string
	constName string
}

func (r *Reader) readElementValue(offset int) (interface{}, int, error) {
	tag := r.b[offset]
	o := offset + 1
	switch tag {
	case 'D', 'F', 'I', 'J':
		v, err := r.readConst(r.readUnsignedShort(o))
		if err != nil {
			return nil, 0, err
		}
		return v, o + 2, nil
	case 'B', 'C', 'S', 'Z':
		// These share CONSTANT_Integer_info storage; the element_value tag
		// is the only carrier of the original kind, so each decodes to its
		// wrapper type.
		v, err := r.readConst(r.readUnsignedShort(o))
		if err != nil {
			return nil, 0, err
		}
		i, ok := v.(int32)
		if !ok {
			return nil, 0, fmt.Errorf("%w: element_value tag %q does not reference an integer constant", ErrMalformedClass, tag)
		}
		switch tag {
		case 'B':
			return Byte(i), o + 2, nil
		case 'C':
			return Char(i), o + 2, nil
		case 'S':
			return Short(i), o + 2, nil
		default:
			return Boolean(i != 0), o + 2, nil
		}
	case 's':
		return r.readUTF8(o), o + 2, nil
	case 'e':
		typeName := r.readUTF8(o)
		constName := r.readUTF8(o + 2)
		return enumValue{typeName: typeName, constName: constName}, o + 4, nil
	case 'c':
		return GetType(r.readUTF8(o)), o + 2, nil
	case '@':
		a, next, err := r.readAnnotation(o, true)
		return a, next, err
	case '[':
		count := r.readUnsignedShort(o)
		o += 2
		arr := make([]interface{}, count)
		for i := 0; i < count; i++ {
			v, next, err := r.readElementValue(o)
			if err != nil {
				return nil, 0, err
			}
			arr[i] = v
			o = next
		}
		return arr, o, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown element_value tag %q", ErrMalformedClass, tag)
	}
}

func replayAnnotation(av AnnotationVisitor, a pendingAnnotation) {
	for _, el := range a.values {
		replayElementValue(av, el.name, el.value)
	}
	av.VisitEnd()
}

func replayElementValue(av AnnotationVisitor, name string, value interface{}) {
	switch v := value.(type) {
	case enumValue:
		av.VisitEnum(name, v.typeName, v.constName)
	case pendingAnnotation:
		nested := av.VisitAnnotation(name, v.descriptor)
		if nested != nil {
			replayAnnotation(nested, v)
		}
	case []interface{}:
		arr := av.VisitArray(name)
		if arr != nil {
			for _, item := range v {
				replayElementValue(arr, "", item)
			}
			arr.VisitEnd()
		}
	default:
		av.Visit(name, value)
	}
}
