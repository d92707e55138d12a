package models

import "errors"

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionExpired         = errors.New("session expired")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidCallbackToken   = errors.New("invalid callback token")
	ErrUnsupportedPOSSystem   = errors.New("unsupported pos system")
	ErrValidation             = errors.New("validation error")
)

var (
	ErrDecryption   = errors.New("decryption error")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrReferralSourceNotFound = errors.New("referral source not found")
)

var (
	ErrDatabaseQuery  = errors.New("database query error")
	ErrDatabaseInsert = errors.New("database insert error")
	ErrDatabaseUpdate = errors.New("database update error")
)

var (
	ErrRedisGet = errors.New("redis get error")
	ErrRedisSet = errors.New("redis set error")
)
