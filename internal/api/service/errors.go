package service

import "errors"

// Error kinds. Controllers map them to status codes with errors.Is; the
// message of the returned error is meant for the client.
var (
	ErrValidation       = errors.New("validation failed")
	ErrCredentials      = errors.New("invalid credentials")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

type serviceError struct {
	kind    error
	message string
}

func (e *serviceError) Error() string { return e.message }
func (e *serviceError) Unwrap() error { return e.kind }

func newError(kind error, message string) error {
	return &serviceError{kind: kind, message: message}
}
