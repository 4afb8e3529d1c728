// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetType(t *testing.T) {
	tests := []struct {
		descriptor string
		sort       int
		size       int
	}{
		{"I", SortInt, 1},
		{"Z", SortBoolean, 1},
		{"J", SortLong, 2},
		{"D", SortDouble, 2},
		{"Ljava/lang/String;", SortObject, 1},
		{"[I", SortArray, 1},
		{"[[Ljava/lang/Object;", SortArray, 1},
	}
	for _, tt := range tests {
		typ := GetType(tt.descriptor)
		assert.Equal(t, tt.sort, typ.Sort(), "sort of %s", tt.descriptor)
		assert.Equal(t, tt.size, typ.Size(), "size of %s", tt.descriptor)
	}
}

func TestTypeNames(t *testing.T) {
	obj := GetType("Ljava/lang/String;")
	assert.Equal(t, "java/lang/String", obj.InternalName())
	assert.Equal(t, "java.lang.String", obj.ClassName())
	assert.Equal(t, "Ljava/lang/String;", obj.Descriptor())

	internal := GetObjectType("a/b/C")
	assert.Equal(t, "a/b/C", internal.InternalName())

	assert.Equal(t, "int", GetType("I").ClassName())
}

func TestGetArgumentsAndReturnSizes(t *testing.T) {
	tests := []struct {
		descriptor string
		argsSize   int // including the implicit this slot
		returnSize int
	}{
		{"()V", 1, 0},
		{"()I", 1, 1},
		{"(I)V", 2, 0},
		{"(JD)J", 5, 2},
		{"(Ljava/lang/String;[I)D", 3, 2},
		{"([[J[D)V", 3, 0},
	}
	for _, tt := range tests {
		packed := GetArgumentsAndReturnSizes(tt.descriptor)
		assert.Equal(t, tt.argsSize, packed>>2, "args of %s", tt.descriptor)
		assert.Equal(t, tt.returnSize, packed&3, "return of %s", tt.descriptor)
	}
}

func TestSplitArgumentDescriptors(t *testing.T) {
	args := splitArgumentDescriptors("IJLjava/lang/String;[[D")
	assert.Equal(t, []string{"I", "J", "Ljava/lang/String;", "[[D"}, args)
	assert.Nil(t, splitArgumentDescriptors(""))
}
