package core

import "errors"

// Error codes returned to control-plane callers.
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeAlreadyAttached = "already_attached"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeBusUnavailable  = "bus_unavailable"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrAlreadyAttached   = errors.New("connection already attached")
	ErrMalformedControl  = errors.New("malformed control message")
)
