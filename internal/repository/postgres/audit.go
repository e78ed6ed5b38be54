package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rensmac/sqlgate/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AuditRepository implements domain.AuditRepository
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create inserts a new audit event
func (r *AuditRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, principal, warehouse, query_text, decision, kind, message, row_count, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Principal,
		event.Warehouse,
		event.QueryText,
		string(event.Decision),
		event.Kind,
		event.Message,
		event.RowCount,
		event.DurationMs,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

// List retrieves recent audit events, newest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	query := `
		SELECT id, principal, warehouse, query_text, decision, kind, message, row_count, duration_ms, created_at
		FROM audit_events
	`

	var conds []string
	var args []any
	if filter.Principal != "" {
		args = append(args, filter.Principal)
		conds = append(conds, fmt.Sprintf("principal = $%d", len(args)))
	}
	if filter.Decision != "" {
		args = append(args, string(filter.Decision))
		conds = append(conds, fmt.Sprintf("decision = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var decisionStr string

		if err := rows.Scan(
			&e.ID,
			&e.Principal,
			&e.Warehouse,
			&e.QueryText,
			&decisionStr,
			&e.Kind,
			&e.Message,
			&e.RowCount,
			&e.DurationMs,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Decision = domain.AuditDecision(decisionStr)
		events = append(events, e)
	}

	return events, nil
}

// CountByDecision aggregates event counts per decision since the given time
func (r *AuditRepository) CountByDecision(ctx context.Context, since time.Time) (map[domain.AuditDecision]int64, error) {
	query := `
		SELECT decision, COUNT(*)
		FROM audit_events
		WHERE created_at >= $1
		GROUP BY decision
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AuditDecision]int64)
	for rows.Next() {
		var decisionStr string
		var count int64
		if err := rows.Scan(&decisionStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[domain.AuditDecision(decisionStr)] = count
	}

	return counts, nil
}
