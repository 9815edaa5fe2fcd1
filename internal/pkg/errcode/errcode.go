package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrDomainNotAllowed
	ErrAccountAlreadyVerified
	ErrAccountNotFound
	ErrInvalidOrExpiredCode
	ErrInvalidCredentials
	ErrEmailNotVerified
	ErrDeliveryFailed
	ErrPersistenceUnavailable
	ErrReauthRequired
)
