package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/sqlguard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// auditQueryTextLimit bounds the query text persisted per event. Operators
// reviewing an attempt need the head of the statement, not megabytes of it.
const auditQueryTextLimit = 500

// AuditRecorder persists query decisions and mirrors security events to a
// separate sink so misuse attempts survive an audit store outage.
type AuditRecorder struct {
	repo     domain.AuditRepository
	security zerolog.Logger
}

// NewAuditRecorder creates an audit recorder. sink receives security events
// as JSON lines; pass io.Discard to disable the file trail.
func NewAuditRecorder(repo domain.AuditRepository, sink io.Writer) *AuditRecorder {
	return &AuditRecorder{
		repo:     repo,
		security: zerolog.New(sink).With().Timestamp().Logger(),
	}
}

// Record persists one decision. Failures are logged and swallowed: an audit
// outage must never fail the request being audited.
func (r *AuditRecorder) Record(ctx context.Context, event *domain.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.QueryText = truncateQueryText(event.QueryText, auditQueryTextLimit)

	if r.repo != nil {
		if err := r.repo.Create(ctx, event); err != nil {
			log.Error().Err(err).Msg("failed to save audit event")
		}
	}

	if isSecurityKind(event.Kind) {
		r.security.Warn().
			Str("principal", event.Principal).
			Str("warehouse", event.Warehouse).
			Str("kind", event.Kind).
			Str("family", event.Family).
			Str("message", event.Message).
			Str("query", event.QueryText).
			Msg("blocked query")
	}
}

// Recent lists the latest recorded events
func (r *AuditRecorder) Recent(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	return r.repo.List(ctx, filter)
}

// Stats counts recorded decisions since the given time
func (r *AuditRecorder) Stats(ctx context.Context, since time.Time) (map[domain.AuditDecision]int64, error) {
	return r.repo.CountByDecision(ctx, since)
}

func isSecurityKind(kind string) bool {
	return kind == string(sqlguard.KindInjection) || kind == string(sqlguard.KindSuspiciousUnicode)
}

func truncateQueryText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
