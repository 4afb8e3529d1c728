// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Fuzz parses data as a class file and re-emits it through a writer seeded
// with the reader, mirroring the teacher's fuzz.go entry point over
// pe.NewBytes/Parse.
func Fuzz(data []byte) int {
	r, err := NewReader(data)
	if err != nil {
		return 0
	}
	w, err := NewWriterFromReader(r, WriterOptions{})
	if err != nil {
		return 0
	}
	if err := r.Accept(w, ExpandAsmInsns); err != nil {
		return 0
	}
	if _, err := w.ToByteArray(); err != nil {
		return 0
	}
	return 1
}
