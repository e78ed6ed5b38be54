package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditDecision classifies the outcome recorded for a query attempt
type AuditDecision string

const (
	DecisionAllowed  AuditDecision = "allowed"
	DecisionRejected AuditDecision = "rejected"
	DecisionError    AuditDecision = "error"
)

// AuditEvent records one query attempt and the decision made on it
type AuditEvent struct {
	ID         uuid.UUID     `json:"id"`
	Principal  string        `json:"principal"`
	Warehouse  string        `json:"warehouse,omitempty"`
	QueryText  string        `json:"query_text"`
	Decision   AuditDecision `json:"decision"`
	Kind       string        `json:"kind,omitempty"`
	Message    string        `json:"message,omitempty"`
	RowCount   int           `json:"row_count"`
	DurationMs int64         `json:"duration_ms"`
	CreatedAt  time.Time     `json:"created_at"`

	// Family names the matched signature family for security events. It
	// feeds the operator file trail and is never echoed to callers.
	Family string `json:"-"`
}

// AuditFilter narrows audit event listings
type AuditFilter struct {
	Principal string
	Decision  AuditDecision
	Limit     int
}

// AuditRepository defines the interface for audit event storage
type AuditRepository interface {
	Create(ctx context.Context, event *AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	CountByDecision(ctx context.Context, since time.Time) (map[AuditDecision]int64, error)
}
