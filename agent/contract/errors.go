package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidToolArgs    = errors.New("invalid tool arguments")
	ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")
)
