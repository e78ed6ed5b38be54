package service

import (
	"context"
	"time"

	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/warehouse"
	"github.com/stretchr/testify/mock"
)

// MockAuditRepository mocks the AuditRepository interface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.AuditEvent), args.Error(1)
}

func (m *MockAuditRepository) CountByDecision(ctx context.Context, since time.Time) (map[domain.AuditDecision]int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(map[domain.AuditDecision]int64), args.Error(1)
}

// MockWarehouseAdapter mocks warehouse.Adapter
type MockWarehouseAdapter struct {
	mock.Mock
}

func (m *MockWarehouseAdapter) Kind() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockWarehouseAdapter) Connect(ctx context.Context, config warehouse.ConnectionConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockWarehouseAdapter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockWarehouseAdapter) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockWarehouseAdapter) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWarehouseAdapter) DescribeTable(ctx context.Context, tableName string) (*warehouse.TableInfo, error) {
	args := m.Called(ctx, tableName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehouse.TableInfo), args.Error(1)
}

func (m *MockWarehouseAdapter) ValidateQuery(sql string) error {
	args := m.Called(sql)
	return args.Error(0)
}

func (m *MockWarehouseAdapter) ExecuteQuery(ctx context.Context, sql string, opts warehouse.QueryOptions) (*warehouse.QueryResult, error) {
	args := m.Called(ctx, sql, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehouse.QueryResult), args.Error(1)
}

// stubLimiter is a fixed-answer gate limiter for tests
type stubLimiter struct {
	allow bool
}

func (l *stubLimiter) Admit() bool { return l.allow }
