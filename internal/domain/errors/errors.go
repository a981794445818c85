package errors

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrUserGone           = errors.New("user no longer exists")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("not authorized to access this route")
	ErrForbidden        = errors.New("not authorized to access this resource")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("duplicate field value entered")
	ErrBadRequest       = errors.New("invalid request data")
	ErrInternalServer   = errors.New("internal server error")

	ErrDatabaseConnection = errors.New("database connection failed")
	ErrConfigFileRead     = errors.New("failed to read config file")
	ErrConfigParse        = errors.New("failed to parse config file")

	ErrInvalidSortField = errors.New("unsupported sort field")
)
