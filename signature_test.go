// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureRoundTrip(t *testing.T) {
	classSignatures := []string{
		"Ljava/lang/Object;",
		"Ljava/lang/Object;Ljava/io/Serializable;",
		"<T:Ljava/lang/Object;>Ljava/lang/Object;",
		"<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/util/AbstractMap<TK;TV;>;Ljava/util/Map<TK;TV;>;",
		"<T::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;",
	}
	for _, sig := range classSignatures {
		w := NewSignatureWriter()
		require.NoError(t, NewSignatureReader(sig).Accept(w), sig)
		assert.Equal(t, sig, w.String(), "class signature %s", sig)
	}
}

func TestMethodSignatureRoundTrip(t *testing.T) {
	methodSignatures := []string{
		"()V",
		"(TT;)TT;",
		"<T:Ljava/lang/Object;>(Ljava/util/List<TT;>;)TT;",
		"(Ljava/util/Map<Ljava/lang/String;+Ljava/lang/Number;>;)V^Ljava/io/IOException;",
		"(I[JLjava/lang/String;)Ljava/util/List<*>;",
	}
	for _, sig := range methodSignatures {
		w := NewSignatureWriter()
		require.NoError(t, NewSignatureReader(sig).Accept(w), sig)
		assert.Equal(t, sig, w.String(), "method signature %s", sig)
	}
}

func TestTypeSignatureRoundTrip(t *testing.T) {
	typeSignatures := []string{
		"I",
		"[[D",
		"TT;",
		"Ljava/util/List<-Ljava/lang/Number;>;",
		"Ljava/util/Map$Entry<TK;TV;>;",
		"Louter/Outer<TT;>.Inner<TS;>;",
	}
	for _, sig := range typeSignatures {
		w := NewSignatureWriter()
		require.NoError(t, NewSignatureReader(sig).AcceptType(w), sig)
		assert.Equal(t, sig, w.String(), "type signature %s", sig)
	}
}

func TestSignatureReaderRejectsGarbage(t *testing.T) {
	w := NewSignatureWriter()
	err := NewSignatureReader("Q").AcceptType(w)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = NewSignatureReader("Tunterminated").AcceptType(NewSignatureWriter())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSignatureWriterBuildsFromEvents(t *testing.T) {
	w := NewSignatureWriter()
	w.VisitFormalTypeParameter("T")
	bound := w.VisitClassBound()
	bound.VisitClassType("java/lang/Object")
	bound.VisitEnd()
	sup := w.VisitSuperclass()
	sup.VisitClassType("java/lang/Object")
	sup.VisitEnd()
	assert.Equal(t, "<T:Ljava/lang/Object;>Ljava/lang/Object;", w.String())
}
