package domain

import (
	"errors"
	"time"
)

// DocumentStatus represents the signing lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "PENDING"
	StatusSigned   DocumentStatus = "SIGNED"
	StatusRejected DocumentStatus = "REJECTED"
)

// validTransitions defines the allowed state machine transitions.
// Signing is one-way: once signed or rejected a document never returns
// to pending.
var validTransitions = map[DocumentStatus][]DocumentStatus{
	StatusPending: {StatusSigned, StatusRejected},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrDocumentNotFound = errors.New("document not found")

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Document is a record awaiting signature.
type Document struct {
	ID          string         `json:"id" bson:"_id,omitempty"`
	Title       string         `json:"title" bson:"title"`
	Type        string         `json:"type" bson:"type"`
	Description string         `json:"description" bson:"description"`
	Notes       string         `json:"notes,omitempty" bson:"notes,omitempty"`
	DueDate     time.Time      `json:"due_date" bson:"due_date"`
	Status      DocumentStatus `json:"status" bson:"status"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	SignedAt    *time.Time     `json:"signed_at,omitempty" bson:"signed_at,omitempty"`
}
