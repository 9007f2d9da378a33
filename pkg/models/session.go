package models

import "time"

// SessionStatus represents the current state of an inspector session
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
	StatusTimedOut  SessionStatus = "TIMED_OUT"
)

// Session represents an attached debuggee
type Session struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	Runtime     string        `json:"runtime,omitempty"`
	TargetURL   string        `json:"targetUrl"`
	StartedAt   time.Time     `json:"startedAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Timeout     int           `json:"timeout"`
	ObjectGroup string        `json:"objectGroup"`
	ContainerID string        `json:"-"`
	Error       string        `json:"error,omitempty"`
}

// CreateSessionRequest is the payload for creating a new session.
// Either TargetURL (attach to a running debuggee) or Script (launch one) is required.
type CreateSessionRequest struct {
	TargetURL string `json:"targetUrl,omitempty"`
	Script    string `json:"script,omitempty"`
	Runtime   string `json:"runtime,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}
