package models

import "time"

// MessageLogEntry records one message exchanged with the clearing network.
// Entries are written once and never edited.
type MessageLogEntry struct {
	ID          string    `json:"id"`
	Direction   Direction `json:"direction"`
	MessageType string    `json:"message_type"`
	PayloadHash string    `json:"payload_hash"`
	StatusCode  *int      `json:"status_code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLogEntry describes a message to log. ID is chosen by the caller so a
// retried LogMessage does not append twice.
type NewLogEntry struct {
	ID          string
	Direction   Direction
	MessageType string
	PayloadHash string
	StatusCode  *int
}

func isPayloadHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
