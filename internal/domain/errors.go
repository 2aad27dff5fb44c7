package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAuthLookup          = errors.New("user lookup failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBadRequest          = errors.New("bad request")
	ErrRateLimited         = errors.New("upstream rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrPaymentMismatch     = errors.New("payment amount mismatch")
)
