package service

import "errors"

// Core failure classes. Handlers map these onto error envelopes with
// errors.Is; the message text is the outward-facing payload.
var (
	ErrMissingArgument    = errors.New("missing argument")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrAlreadyRegistered  = errors.New("server is already registered")
	ErrNotRegistered      = errors.New("server is not registered")
	ErrNotFound           = errors.New("not found")
	ErrTokenCollision     = errors.New("multiple servers matched one token")
	ErrTokenExhausted     = errors.New("failed to generate a unique token")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrDuplicateProxyName = errors.New("proxy name is already in use")
	ErrUnreachable        = errors.New("server is unreachable")
	ErrOffline            = errors.New("server is offline")
)
