// Package warehouse executes gate-approved SQL against configured
// analytical databases. Adapters normalize the differences between
// engines behind a single interface; the Router owns one live adapter
// per configured warehouse and recreates it when a health check fails.
//
// Nothing in this package decides whether a query is safe. That is the
// job of internal/sqlguard, which runs before any adapter sees SQL.
// Adapter-level validation exists only as a dialect-specific backstop.
package warehouse

import (
	"context"
	"time"
)

// TableInfo contains table metadata
type TableInfo struct {
	Name       string       `json:"name"`
	SchemaName string       `json:"schema_name,omitempty"`
	Columns    []ColumnInfo `json:"columns"`
	RowCount   *int64       `json:"row_count,omitempty"`
}

// ColumnInfo contains column metadata
type ColumnInfo struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Nullable    bool   `json:"nullable"`
	PrimaryKey  bool   `json:"primary_key"`
	Description string `json:"description,omitempty"`
}

// QueryResult contains query execution result
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// ConnectionConfig contains warehouse connection parameters
type ConnectionConfig struct {
	Host           string
	Port           int
	Database       string
	Schema         string
	Username       string
	Password       string
	SSLMode        string
	TimeoutSeconds int
}

// QueryTimeout returns the configured per-query timeout, or the given
// fallback when the target does not set one.
func (c ConnectionConfig) QueryTimeout(fallback time.Duration) time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return fallback
}

// QueryOptions contains query execution options
type QueryOptions struct {
	MaxRows int
	Timeout time.Duration
}

// Adapter defines the interface for warehouse adapters
type Adapter interface {
	// Kind returns the warehouse engine identifier (postgres, clickhouse, mysql, sqlite)
	Kind() string

	// Connect establishes connection to the warehouse
	Connect(ctx context.Context, config ConnectionConfig) error

	// Close closes the connection
	Close() error

	// HealthCheck verifies connection is alive
	HealthCheck(ctx context.Context) error

	// ListTables returns list of table names
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns detailed table schema
	DescribeTable(ctx context.Context, tableName string) (*TableInfo, error)

	// ValidateQuery applies the engine-specific statement backstop
	ValidateQuery(sql string) error

	// ExecuteQuery executes a read-only SQL query
	ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error)
}

// AdapterFactory creates a new adapter instance
type AdapterFactory func() Adapter
