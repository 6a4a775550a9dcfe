// Package models contains the wire and domain types shared across agentdeck.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents one transcript entry. Assistant messages grow by append
// while a turn is streaming; user messages are immutable once created.
type Message struct {
	ID      int    `json:"id"`
	Role    Role   `json:"type"`
	Content string `json:"content,omitempty"`
	// ChartOption is an opaque chart configuration produced by the backend's
	// chart agents. The client never interprets it beyond display hints.
	ChartOption json.RawMessage `json:"option,omitempty"`
	Components  UIEventList     `json:"component,omitempty"`
}

// HasChart reports whether a chart option has been attached.
func (m *Message) HasChart() bool {
	return len(m.ChartOption) > 0
}

// UIEventList unmarshals from either a JSON array of envelopes or a single
// envelope object. Persisted messages carry a single object while the live
// stream delivers arrays.
type UIEventList []UIEvent

func (l *UIEventList) UnmarshalJSON(data []byte) error {
	var list []UIEvent
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single UIEvent
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = UIEventList{single}
	return nil
}

// ChatSession mirrors one backend session row. Sessions are owned by the
// backend; the client lists and deletes them but never edits them.
type ChatSession struct {
	ID        int       `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionFile describes a file the backend holds for a session.
type SessionFile struct {
	Name       string    `json:"file_name"`
	Size       int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}
