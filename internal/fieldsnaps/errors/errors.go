// Package errors holds the sentinel errors shared by the service layer and
// the transports. Callers wrap them with fmt.Errorf("%w: ...") and match with
// errors.Is.
package errors

import (
	"fmt"
)

var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicateName     = fmt.Errorf("duplicate name")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrConflict          = fmt.Errorf("conflict")
	ErrUnauthenticated   = fmt.Errorf("unauthenticated")
	ErrForbidden         = fmt.Errorf("forbidden")
	ErrPaymentRequired   = fmt.Errorf("subscription inactive")
	ErrInvalidTransition = fmt.Errorf("invalid state transition")
)
