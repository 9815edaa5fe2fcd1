package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")

	ErrDomainNotAllowed       = errors.New("email domain not allowed")
	ErrAccountAlreadyVerified = errors.New("account already verified")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired code")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrDeliveryFailed         = errors.New("verification delivery failed")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrReauthRequired         = errors.New("re-authentication required")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
