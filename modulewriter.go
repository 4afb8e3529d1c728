// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// ModuleWriter assembles the Module, ModulePackages and ModuleMainClass
// attributes of a module-info class (JVMS 4.7.25-4.7.27).
type ModuleWriter struct {
	symbols *SymbolTable

	moduleNameIndex    int
	moduleFlags        int
	moduleVersionIndex int

	requires      *ByteVector
	requiresCount int

	exports      *ByteVector
	exportsCount int

	opens      *ByteVector
	opensCount int

	uses      *ByteVector
	usesCount int

	provides      *ByteVector
	providesCount int

	packageIndexes *ByteVector
	packageCount   int

	mainClassIndex int
}

func newModuleWriter(symbols *SymbolTable, name string, access int, version string) *ModuleWriter {
	mw := &ModuleWriter{
		symbols:         symbols,
		moduleNameIndex: symbols.moduleIndex(name),
		moduleFlags:     access,
		requires:        NewByteVector(),
		exports:         NewByteVector(),
		opens:           NewByteVector(),
		uses:            NewByteVector(),
		provides:        NewByteVector(),
		packageIndexes:  NewByteVector(),
	}
	if version != "" {
		mw.moduleVersionIndex = symbols.utf8Index(version)
	}
	return mw
}

func (mw *ModuleWriter) VisitMainClass(mainClass string) {
	mw.mainClassIndex = mw.symbols.classIndex(mainClass)
}

func (mw *ModuleWriter) VisitPackage(packaze string) {
	mw.packageIndexes.PutShort(mw.symbols.packageIndex(packaze))
	mw.packageCount++
}

func (mw *ModuleWriter) VisitRequire(module string, access int, version string) {
	mw.requires.PutShort(mw.symbols.moduleIndex(module))
	mw.requires.PutShort(access)
	if version == "" {
		mw.requires.PutShort(0)
	} else {
		mw.requires.PutShort(mw.symbols.utf8Index(version))
	}
	mw.requiresCount++
}

func (mw *ModuleWriter) VisitExport(packaze string, access int, modules []string) {
	mw.exports.PutShort(mw.symbols.packageIndex(packaze))
	mw.exports.PutShort(access)
	mw.exports.PutShort(len(modules))
	for _, m := range modules {
		mw.exports.PutShort(mw.symbols.moduleIndex(m))
	}
	mw.exportsCount++
}

func (mw *ModuleWriter) VisitOpen(packaze string, access int, modules []string) {
	mw.opens.PutShort(mw.symbols.packageIndex(packaze))
	mw.opens.PutShort(access)
	mw.opens.PutShort(len(modules))
	for _, m := range modules {
		mw.opens.PutShort(mw.symbols.moduleIndex(m))
	}
	mw.opensCount++
}

func (mw *ModuleWriter) VisitUse(service string) {
	mw.uses.PutShort(mw.symbols.classIndex(service))
	mw.usesCount++
}

func (mw *ModuleWriter) VisitProvide(service string, providers []string) {
	mw.provides.PutShort(mw.symbols.classIndex(service))
	mw.provides.PutShort(len(providers))
	for _, p := range providers {
		mw.provides.PutShort(mw.symbols.classIndex(p))
	}
	mw.providesCount++
}

func (mw *ModuleWriter) VisitEnd() {}

// attributeCount returns how many class attributes this writer
// contributes (Module, plus optional ModulePackages and ModuleMainClass).
func (mw *ModuleWriter) attributeCount() int {
	count := 1
	if mw.packageCount > 0 {
		count++
	}
	if mw.mainClassIndex != 0 {
		count++
	}
	return count
}

func (mw *ModuleWriter) computeAttributesSize() int {
	mw.symbols.utf8Index(AttrModule)
	size := 22 + mw.requires.Len() + mw.exports.Len() + mw.opens.Len() + mw.uses.Len() + mw.provides.Len()
	if mw.packageCount > 0 {
		mw.symbols.utf8Index(AttrModulePackages)
		size += 8 + mw.packageIndexes.Len()
	}
	if mw.mainClassIndex != 0 {
		mw.symbols.utf8Index(AttrModuleMainClass)
		size += 8
	}
	return size
}

func (mw *ModuleWriter) putAttributes(out *ByteVector) {
	moduleAttributeLength := 16 + mw.requires.Len() + mw.exports.Len() + mw.opens.Len() + mw.uses.Len() + mw.provides.Len()
	out.PutShort(mw.symbols.utf8Index(AttrModule))
	out.PutInt(int32(moduleAttributeLength))
	out.PutShort(mw.moduleNameIndex)
	out.PutShort(mw.moduleFlags)
	out.PutShort(mw.moduleVersionIndex)
	out.PutShort(mw.requiresCount)
	out.PutByteArray(mw.requires.Bytes(), 0, mw.requires.Len())
	out.PutShort(mw.exportsCount)
	out.PutByteArray(mw.exports.Bytes(), 0, mw.exports.Len())
	out.PutShort(mw.opensCount)
	out.PutByteArray(mw.opens.Bytes(), 0, mw.opens.Len())
	out.PutShort(mw.usesCount)
	out.PutByteArray(mw.uses.Bytes(), 0, mw.uses.Len())
	out.PutShort(mw.providesCount)
	out.PutByteArray(mw.provides.Bytes(), 0, mw.provides.Len())
	if mw.packageCount > 0 {
		out.PutShort(mw.symbols.utf8Index(AttrModulePackages))
		out.PutInt(int32(2 + mw.packageIndexes.Len()))
		out.PutShort(mw.packageCount)
		out.PutByteArray(mw.packageIndexes.Bytes(), 0, mw.packageIndexes.Len())
	}
	if mw.mainClassIndex != 0 {
		out.PutShort(mw.symbols.utf8Index(AttrModuleMainClass))
		out.PutInt(2)
		out.PutShort(mw.mainClassIndex)
	}
}
