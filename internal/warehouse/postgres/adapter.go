package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rensmac/sqlgate/internal/warehouse"
)

// Adapter implements warehouse.Adapter for PostgreSQL
type Adapter struct {
	pool   *pgxpool.Pool
	schema string
}

// NewAdapter creates a new PostgreSQL adapter
func NewAdapter() warehouse.Adapter {
	return &Adapter{}
}

// Kind returns the warehouse engine identifier
func (a *Adapter) Kind() string {
	return "postgres"
}

// Connect establishes connection to PostgreSQL
func (a *Adapter) Connect(ctx context.Context, config warehouse.ConnectionConfig) error {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	a.pool = pool
	a.schema = config.Schema
	if a.schema == "" {
		a.schema = "public"
	}
	return nil
}

// Close closes the connection
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

// HealthCheck verifies connection is alive
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("not connected")
	}
	return a.pool.Ping(ctx)
}

// ListTables returns list of table names in the configured schema
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	return tables, nil
}

// DescribeTable returns detailed table schema
func (a *Adapter) DescribeTable(ctx context.Context, tableName string) (*warehouse.TableInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as nullable,
			COALESCE(
				(SELECT true FROM information_schema.key_column_usage kcu
				 JOIN information_schema.table_constraints tc
				   ON kcu.constraint_name = tc.constraint_name
				 WHERE tc.constraint_type = 'PRIMARY KEY'
				   AND kcu.table_schema = c.table_schema
				   AND kcu.table_name = c.table_name
				   AND kcu.column_name = c.column_name
				 LIMIT 1), false
			) as primary_key,
			COALESCE(col_description(
				(SELECT oid FROM pg_class WHERE relname = c.table_name LIMIT 1),
				c.ordinal_position
			), '') as description
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := a.pool.Query(ctx, query, a.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}
	defer rows.Close()

	var columns []warehouse.ColumnInfo
	for rows.Next() {
		var col warehouse.ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.PrimaryKey, &col.Description); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table not found: %s", tableName)
	}

	// Planner estimate, good enough for catalog display
	var rowCount int64
	err = a.pool.QueryRow(ctx, `
		SELECT reltuples::bigint
		FROM pg_class
		WHERE relname = $1
	`, tableName).Scan(&rowCount)

	var rowCountPtr *int64
	if err == nil && rowCount >= 0 {
		rowCountPtr = &rowCount
	}

	return &warehouse.TableInfo{
		Name:       tableName,
		SchemaName: a.schema,
		Columns:    columns,
		RowCount:   rowCountPtr,
	}, nil
}

// ValidateQuery applies the engine-specific statement backstop
func (a *Adapter) ValidateQuery(sql string) error {
	return warehouse.ValidateStatement(sql, warehouse.PostgresBlockedPatterns)
}

// ExecuteQuery executes a read-only SQL query
func (a *Adapter) ExecuteQuery(ctx context.Context, sql string, opts warehouse.QueryOptions) (*warehouse.QueryResult, error) {
	if err := a.ValidateQuery(sql); err != nil {
		return nil, err
	}

	sql = warehouse.EnsureLimit(sql, opts.MaxRows)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rows, err := a.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	var resultRows [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to get row values: %w", err)
		}
		resultRows = append(resultRows, values)

		// One extra row tells us the limit was hit
		if len(resultRows) > opts.MaxRows {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	truncated := len(resultRows) > opts.MaxRows
	if truncated {
		resultRows = resultRows[:opts.MaxRows]
	}

	return &warehouse.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}
