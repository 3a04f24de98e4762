// Package econerr defines the tagged errors returned to clients. Every
// rejection carries a stable Code and a short human message; handlers map
// the Kind onto an HTTP status.
package econerr

import "errors"

type Kind string

const (
	KindValidation      Kind = "validation"
	KindBusiness        Kind = "business"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindAuthorization   Kind = "authorization"
	KindUnauthenticated Kind = "unauthenticated"
	KindRateLimited     Kind = "rate_limited"
	KindExternal        Kind = "external"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Business(code, message string) *Error {
	return New(KindBusiness, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Authorization(code, message string) *Error {
	return New(KindAuthorization, code, message)
}

func External(code, message string) *Error {
	return New(KindExternal, code, message)
}

// Shared across engines.
var (
	ErrUnauthorized = New(KindUnauthenticated, "UNAUTHORIZED", "Unauthorized")
	ErrForbidden    = Authorization("FORBIDDEN", "You can only act on your own account")
	ErrAdminOnly    = Authorization("ADMIN_ONLY", "Admin only")
	ErrBusy         = New(KindConflict, "CONFLICT", "Too much activity right now. Please try again.")
)

// As extracts the tagged error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
