package clarity

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported clarity type")
	ErrMalformed       = errors.New("malformed clarity value")
	ErrOutOfRange      = errors.New("integer out of range")
	ErrInvalidAddress  = errors.New("invalid principal address")
)
