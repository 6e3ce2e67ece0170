// Package vsqerr defines the sentinel error kinds shared across the codec
// packages. Callers use errors.Is/errors.As against these rather than
// matching on message text.
package vsqerr

import "errors"

var (
	// ErrIO wraps a failure reading from or writing to a byte sink/source.
	ErrIO = errors.New("vsq: io error")

	// ErrFormat marks a malformed SMF container: bad MThd, a truncated
	// chunk, an overrun VLQ, or a meta event whose length byte disagrees
	// with its payload.
	ErrFormat = errors.New("vsq: format error")

	// ErrParse marks a meta-text field that could not be parsed: a
	// non-integer where one was expected, or a line missing '='.
	ErrParse = errors.New("vsq: parse error")

	// ErrResolve marks a handle or event reference with no matching
	// block: an h#NNNN with no [h#NNNN] section, or an ID#NNNN with no
	// [ID#NNNN] section.
	ErrResolve = errors.New("vsq: unresolved reference")

	// ErrRange marks a value outside its documented domain: a negative
	// tick, a note number outside [0,127], or a BPList value outside its
	// curve's [min,max] in strict mode.
	ErrRange = errors.New("vsq: value out of range")
)
