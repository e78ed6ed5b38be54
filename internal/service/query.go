package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/repository/redis"
	"github.com/rensmac/sqlgate/internal/sqlguard"
	"github.com/rensmac/sqlgate/internal/warehouse"
	"github.com/rs/zerolog/log"
)

const (
	// logQueryTextLimit bounds query text in operational logs.
	logQueryTextLimit = 100
	// largeResultRows marks results worth flagging in the execution log.
	largeResultRows = 5000
)

// QueryService runs caller SQL through the gate and, when accepted, against
// the active warehouse. The rewritten safe query is the only string that
// ever reaches an adapter.
type QueryService struct {
	guard          *sqlguard.Guard
	router         *warehouse.Router
	active         string
	resultCache    *redis.ResultCache
	recorder       *AuditRecorder
	defaultMaxRows int
	queryTimeout   time.Duration
	slowQuery      time.Duration
}

// NewQueryService creates a new query service
func NewQueryService(
	guard *sqlguard.Guard,
	router *warehouse.Router,
	activeWarehouse string,
	resultCache *redis.ResultCache,
	recorder *AuditRecorder,
	defaultMaxRows int,
	queryTimeout time.Duration,
	slowQuery time.Duration,
) *QueryService {
	return &QueryService{
		guard:          guard,
		router:         router,
		active:         activeWarehouse,
		resultCache:    resultCache,
		recorder:       recorder,
		defaultMaxRows: defaultMaxRows,
		queryTimeout:   queryTimeout,
		slowQuery:      slowQuery,
	}
}

// Execute validates and runs one query for a principal
func (s *QueryService) Execute(ctx context.Context, principal string, req domain.QueryRequest) (*domain.QueryExecution, error) {
	requestID := uuid.New().String()
	startTime := time.Now()
	maxRows := s.effectiveMaxRows(req.MaxRows)

	// 1. Gate admission. The in-process window is deliberately global:
	// it protects the warehouse, not individual callers.
	if err := s.guard.Admit(); err != nil {
		s.recordDecision(ctx, principal, req.SQL, 0, startTime, err)
		return nil, err
	}

	// 2. Full validation pipeline.
	res, err := s.guard.ValidateAndPrepare(req.SQL, maxRows)
	if err != nil {
		s.recordDecision(ctx, principal, req.SQL, 0, startTime, err)
		return nil, err
	}

	// 3. Result cache. A hit skips the warehouse, never the gate.
	if s.resultCache != nil {
		cached, err := s.resultCache.Get(ctx, s.active, res.SafeQuery)
		if err != nil {
			log.Error().Err(err).Msg("failed to read result cache")
		}
		if cached != nil {
			s.recordDecision(ctx, principal, req.SQL, cached.RowCount, startTime, nil)
			return s.buildExecution(requestID, res, cached, true, time.Since(startTime)), nil
		}
	}

	// 4. Execute against the active warehouse.
	adapter, err := s.router.Get(ctx, s.active)
	if err != nil {
		s.recordDecision(ctx, principal, req.SQL, 0, startTime, err)
		return nil, fmt.Errorf("failed to get warehouse adapter: %w", err)
	}

	result, err := adapter.ExecuteQuery(ctx, res.SafeQuery, warehouse.QueryOptions{
		MaxRows: maxRows,
		Timeout: s.queryTimeout,
	})
	duration := time.Since(startTime)
	if err != nil {
		s.recordDecision(ctx, principal, req.SQL, 0, startTime, err)
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("principal", principal).
			Str("query", truncateQueryText(res.SafeQuery, logQueryTextLimit)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("query execution failed")
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	if s.resultCache != nil {
		if err := s.resultCache.Set(ctx, s.active, res.SafeQuery, result); err != nil {
			log.Error().Err(err).Msg("failed to cache query result")
		}
	}

	s.recordDecision(ctx, principal, req.SQL, result.RowCount, startTime, nil)
	s.logExecution(requestID, principal, res.SafeQuery, duration, result)

	return s.buildExecution(requestID, res, result, false, duration), nil
}

// Validate runs the gate without executing. Dry runs skip the gate's
// process-wide limiter: they cost the warehouse nothing, so only the HTTP
// per-principal limiter applies.
func (s *QueryService) Validate(ctx context.Context, principal string, req domain.QueryRequest) *domain.QueryValidation {
	res, err := s.guard.ValidateAndPrepare(req.SQL, s.effectiveMaxRows(req.MaxRows))
	if err != nil {
		validation := &domain.QueryValidation{Valid: false, Message: err.Error()}

		var verr *sqlguard.ValidationError
		if errors.As(err, &verr) {
			validation.Kind = string(verr.Kind)
			// Probes through the dry-run endpoint are still misuse
			// attempts; they go to the audit trail like real ones.
			if verr.SecurityEvent() {
				s.recordDecision(ctx, principal, req.SQL, 0, time.Now(), err)
			}
		}

		return validation
	}

	return &domain.QueryValidation{
		Valid:     true,
		SafeQuery: res.SafeQuery,
		Notice:    res.Message,
	}
}

// ActiveWarehouse returns the name of the configured execution target
func (s *QueryService) ActiveWarehouse() string {
	return s.active
}

func (s *QueryService) effectiveMaxRows(requested int) int {
	if requested <= 0 {
		return s.defaultMaxRows
	}
	return requested
}

func (s *QueryService) buildExecution(requestID string, res *sqlguard.Result, result *warehouse.QueryResult, cached bool, duration time.Duration) *domain.QueryExecution {
	return &domain.QueryExecution{
		RequestID:       requestID,
		Warehouse:       s.active,
		SafeQuery:       res.SafeQuery,
		Notice:          res.Message,
		Columns:         result.Columns,
		Rows:            result.Rows,
		RowCount:        result.RowCount,
		Truncated:       result.Truncated,
		Cached:          cached,
		ExecutionTimeMs: duration.Milliseconds(),
	}
}

// recordDecision audits one attempt. A nil err means the query was allowed;
// a gate rejection is recorded with its kind, anything else as an error.
func (s *QueryService) recordDecision(ctx context.Context, principal, rawSQL string, rowCount int, startTime time.Time, err error) {
	if s.recorder == nil {
		return
	}

	event := &domain.AuditEvent{
		Principal:  principal,
		Warehouse:  s.active,
		QueryText:  rawSQL,
		Decision:   domain.DecisionAllowed,
		RowCount:   rowCount,
		DurationMs: time.Since(startTime).Milliseconds(),
	}

	if err != nil {
		var verr *sqlguard.ValidationError
		if errors.As(err, &verr) {
			event.Decision = domain.DecisionRejected
			event.Kind = string(verr.Kind)
			event.Message = verr.Message
			event.Family = verr.Family
		} else {
			event.Decision = domain.DecisionError
			event.Message = err.Error()
		}
	}

	s.recorder.Record(ctx, event)
}

func (s *QueryService) logExecution(requestID, principal, safeQuery string, duration time.Duration, result *warehouse.QueryResult) {
	evt := log.Info()
	if s.slowQuery > 0 && duration >= s.slowQuery {
		evt = log.Warn().Bool("slow_query", true)
	}
	if result.RowCount > largeResultRows {
		evt = evt.Bool("large_result", true)
	}
	evt.
		Str("request_id", requestID).
		Str("principal", principal).
		Str("warehouse", s.active).
		Str("query", truncateQueryText(safeQuery, logQueryTextLimit)).
		Int("row_count", result.RowCount).
		Bool("truncated", result.Truncated).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("query executed")
}
