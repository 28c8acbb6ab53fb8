package domain

import "errors"

// ErrValidation marks recoverable input errors: malformed IDs, unknown
// enum values, bad actor or persona identifiers. Callers test with
// errors.Is and report the wrapped message.
var ErrValidation = errors.New("validation")
