package service

import "errors"

var (
	ErrMissingURL         = errors.New("url is required")
	ErrInvalidURLFormat   = errors.New("url must start with http:// or https://")
	ErrInvalidCodeFormat  = errors.New("short code must be 1-10 alphanumeric characters")
	ErrCodeReserved       = errors.New("short code is reserved")
	ErrCodeTaken          = errors.New("short code is already taken")
	ErrCodeSpaceExhausted = errors.New("failed to allocate a unique short code")
)
