// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import "errors"

var (
	// ErrIllegalState is returned for any operation on a terminated animator.
	ErrIllegalState = errors.New("illegal state")

	// ErrInvalidArgument is returned for non-positive sizes, unknown status
	// codes and transitions the status machine does not allow.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported is returned when resizing a fixed-size animator.
	ErrUnsupported = errors.New("unsupported operation")
)
