package lbvh

import "errors"

var (
	// ErrInvalidInput is returned by Build when the input is malformed.
	// No tree is produced.
	ErrInvalidInput = errors.New("lbvh: invalid input")

	// ErrCorruptTree is returned when decoding a serialized tree that is not structurally valid
	ErrCorruptTree = errors.New("lbvh: corrupt tree")
)
