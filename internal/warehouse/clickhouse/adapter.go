package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rensmac/sqlgate/internal/warehouse"
)

// Adapter implements warehouse.Adapter for ClickHouse over the HTTP
// protocol. ConnectionConfig.Schema is unused, ClickHouse scopes tables
// by database.
type Adapter struct {
	client   *HTTPClient
	database string
}

// NewAdapter creates a new ClickHouse adapter
func NewAdapter() warehouse.Adapter {
	return &Adapter{}
}

// Kind returns the warehouse engine identifier
func (a *Adapter) Kind() string {
	return "clickhouse"
}

// Connect establishes connection to ClickHouse
func (a *Adapter) Connect(ctx context.Context, config warehouse.ConnectionConfig) error {
	secure := config.SSLMode == "require" || config.SSLMode == "verify-full"
	a.client = NewHTTPClient(
		config.Host,
		config.Port,
		config.Database,
		config.Username,
		config.Password,
		secure,
	)
	a.database = config.Database

	if err := a.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	return nil
}

// Close closes the connection
func (a *Adapter) Close() error {
	if a.client != nil {
		err := a.client.Close()
		a.client = nil
		return err
	}
	return nil
}

// HealthCheck verifies connection is alive
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("not connected")
	}
	return a.client.Ping(ctx)
}

// ListTables returns list of table names
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	results, err := a.client.Query(ctx, `
		SELECT name
		FROM system.tables
		WHERE database = currentDatabase()
		  AND engine NOT IN ('View', 'MaterializedView')
		  AND name NOT LIKE '.%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var tables []string
	for _, row := range results {
		if name, ok := row["name"].(string); ok {
			tables = append(tables, name)
		}
	}

	return tables, nil
}

// DescribeTable returns detailed table schema
func (a *Adapter) DescribeTable(ctx context.Context, tableName string) (*warehouse.TableInfo, error) {
	query := fmt.Sprintf(`
		SELECT
			name,
			type,
			is_in_primary_key,
			comment
		FROM system.columns
		WHERE database = currentDatabase() AND table = '%s'
		ORDER BY position
	`, escapeSQLString(tableName))

	results, err := a.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}

	var columns []warehouse.ColumnInfo
	for _, row := range results {
		name, _ := row["name"].(string)
		dataType, _ := row["type"].(string)
		isPrimaryKey := toBool(row["is_in_primary_key"])
		comment, _ := row["comment"].(string)

		nullable := strings.HasPrefix(dataType, "Nullable(")

		columns = append(columns, warehouse.ColumnInfo{
			Name:        name,
			DataType:    dataType,
			Nullable:    nullable,
			PrimaryKey:  isPrimaryKey,
			Description: comment,
		})
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table not found: %s", tableName)
	}

	countQuery := fmt.Sprintf(`
		SELECT total_rows
		FROM system.tables
		WHERE database = currentDatabase() AND name = '%s'
	`, escapeSQLString(tableName))

	countResults, err := a.client.Query(ctx, countQuery)
	var rowCountPtr *int64
	if err == nil && len(countResults) > 0 {
		if count, ok := countResults[0]["total_rows"]; ok {
			var rowCount int64
			switch v := count.(type) {
			case float64:
				rowCount = int64(v)
			case int64:
				rowCount = v
			}
			if rowCount >= 0 {
				rowCountPtr = &rowCount
			}
		}
	}

	return &warehouse.TableInfo{
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCountPtr,
	}, nil
}

// ValidateQuery applies the engine-specific statement backstop
func (a *Adapter) ValidateQuery(sql string) error {
	return warehouse.ValidateStatement(sql, warehouse.ClickhouseBlockedPatterns)
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

	results, err := a.client.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	// JSONEachRow gives a map per row with no column order. Sort the keys
	// so the grid shape is stable between runs.
	var columns []string
	var resultRows [][]any

	if len(results) > 0 {
		for key := range results[0] {
			columns = append(columns, key)
		}
		sort.Strings(columns)

		for i, row := range results {
			if i >= opts.MaxRows {
				break
			}
			values := make([]any, len(columns))
			for j, col := range columns {
				values[j] = row[col]
			}
			resultRows = append(resultRows, values)
		}
	}

	truncated := len(results) > opts.MaxRows

	return &warehouse.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func toBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		return val == "1" || val == "true"
	default:
		return false
	}
}
