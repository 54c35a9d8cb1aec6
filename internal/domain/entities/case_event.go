package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// CaseEventType represents the type of case event
type CaseEventType string

const (
	CaseEventCreated  CaseEventType = "document_created"
	CaseEventUpdated  CaseEventType = "document_updated"
	CaseEventDeleted  CaseEventType = "document_deleted"
	CaseEventAnalyzed CaseEventType = "document_analyzed"
)

// CaseEvent notifies list views that a case changed and should be refetched
type CaseEvent struct {
	ID        string        `json:"id"`
	CaseID    string        `json:"case_id"`
	EventType CaseEventType `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	Summary   *CaseSummary  `json:"summary,omitempty"`
}

// NewCaseEvent creates a new case event
func NewCaseEvent(caseID string, eventType CaseEventType, summary *CaseSummary) *CaseEvent {
	return &CaseEvent{
		ID:        generateEventID(),
		CaseID:    caseID,
		EventType: eventType,
		Timestamp: time.Now(),
		Summary:   summary,
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
