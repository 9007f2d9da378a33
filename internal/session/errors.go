package session

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotRunning = errors.New("session is not running")
	ErrObjectNotFound    = errors.New("object not found")
	ErrConcurrencyLimit  = errors.New("concurrency limit reached")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNoLauncher        = errors.New("launching debuggees is disabled")
)
