package commerce

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the HTTP layer can pick a status code
// without inspecting store or provider errors.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConfiguration
	KindDownstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConfiguration:
		return "configuration"
	case KindDownstream:
		return "downstream"
	default:
		return "internal"
	}
}

// Error carries a Kind and a stable snake_case Code safe to return to
// clients. Err holds the cause and is only logged.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the client-facing code for err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

const (
	CodeInvalidEmail          = "invalid_email"
	CodeInvalidVideoID        = "invalid_video_id"
	CodeVideoNotFound         = "video_not_found"
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
	CodePriceNotConfigured    = "price_not_configured"
	CodeProviderNotConfigured = "payment_provider_not_configured"
	CodeProviderUnavailable   = "payment_provider_unavailable"
	CodeStoreUnavailable      = "store_unavailable"
	CodeAccessGrantFailed     = "access_grant_failed"
	CodeOrderIncomplete       = "order_incomplete"
)
