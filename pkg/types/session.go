// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Status is the lifecycle position of a conversion session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusReading    Status = "reading"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Settled reports whether no conversion is in flight. Reading and processing
// block new conversions and edits to the session inputs.
func (s Status) Settled() bool {
	return s == StatusIdle || s == StatusSuccess || s == StatusError
}

// SessionState is a point-in-time copy of a session for presentation layers.
type SessionState struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	Document     *Document         `json:"document,omitempty"`
	Format       ConversionFormat  `json:"format"`
	Instructions string            `json:"instructions"`
	Result       *ConversionResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
}
