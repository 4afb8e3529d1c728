// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"errors"
	"fmt"
)

// Sentinel errors for the class-file error kinds of the specification.
// Call sites wrap these with fmt.Errorf("...: %w", ErrX) so that
// errors.Is still matches while the message carries the offending detail.
var (
	// ErrMalformedClass is returned when the input is not a valid class
	// file: bad magic, an unknown constant-pool tag, a code attribute
	// whose declared length overruns the buffer, or an invalid
	// type-annotation target.
	ErrMalformedClass = errors.New("malformed class file")

	// ErrUnsupportedVersion is returned when the class major version is
	// outside the range this codec parses (45..62, i.e. up to Java 18).
	ErrUnsupportedVersion = errors.New("unsupported class file version")

	// ErrClassTooLarge is returned when the constant pool would need more
	// than 65535 entries to represent the class being written.
	ErrClassTooLarge = errors.New("class file too large: constant pool overflow")

	// ErrMethodTooLarge is returned when a method's Code attribute would
	// exceed 65535 bytes once emitted.
	ErrMethodTooLarge = errors.New("method code too large")

	// ErrStringTooLong is returned when a Modified-UTF-8 encoded string
	// would exceed 65535 bytes.
	ErrStringTooLong = errors.New("string too long for modified UTF-8 encoding")

	// ErrUnsupportedOperation is returned when the caller invokes an API
	// that requires a newer minimum supported feature set than the one
	// this reader/writer was configured with.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidArgument is returned when arguments violate a documented
	// precondition, e.g. requesting the common super type of a reference
	// and a primitive.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutsideBoundary is returned when a read would run past the end
	// of the class file buffer.
	ErrOutsideBoundary = errors.New("reading data outside class file boundary")
)

func errInvalidAnnotationValue(value interface{}) error {
	return fmt.Errorf("%w: annotation value of unsupported type %T", ErrInvalidArgument, value)
}
