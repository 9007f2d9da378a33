package models

import "time"

// Snapshot represents a captured heap snapshot
type Snapshot struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Size      int64     `json:"size"` // uncompressed bytes
	CreatedAt time.Time `json:"createdAt"`
	DataPath  string    `json:"-"` // Path to the gzip file (internal only)
}
