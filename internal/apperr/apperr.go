// Package apperr declares the failure kinds shared by services and the HTTP layer.
// Services wrap these with fmt.Errorf("%w: ...") and handlers classify them with errors.Is.
package apperr

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// IsInternal reports whether err belongs to none of the known kinds
func IsInternal(err error) bool {
	for _, kind := range []error{ErrValidation, ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}
