// Package reconcile turns an inventory snapshot and a marketplace catalog into
// stock and price update lists, and splits those lists into API-sized batches.
package reconcile

import "errors"

var (
	// ErrInvalidArgument signals a caller supplied an argument the operation cannot work with.
	ErrInvalidArgument = errors.New("reconcile: invalid argument")
	// ErrValidation signals a spreadsheet field could not be coerced into the expected type.
	ErrValidation = errors.New("reconcile: validation failed")
	// ErrTypeKind signals a value of the wrong dynamic type was supplied.
	ErrTypeKind = errors.New("reconcile: unexpected value type")
)
