package chat_errors

import (
	"errors"
)

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
	ErrTooLarge           = errors.New("file too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrStoreClosed        = errors.New("store closed")
	ErrUnsupportedDriver  = errors.New("unsupported driver")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Code maps an error to the short code sent to websocket and HTTP callers.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrTooLarge):
		return "TOO_LARGE"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrStoreClosed):
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
