// Package apierr carries an HTTP status and a stable machine-readable code
// alongside a service error, so handlers can map auth and profile failures
// ("weak_password", "invalid_credentials", "profile_not_found") onto
// responses without string matching.
package apierr

import "fmt"

// Error is returned by services whose failures map directly onto an HTTP
// response. Handlers unwrap it with errors.As and fall back to 500 for
// anything else.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
