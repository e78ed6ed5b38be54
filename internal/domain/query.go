package domain

// QueryRequest represents a SQL execution request against the active warehouse
type QueryRequest struct {
	SQL     string `json:"sql" validate:"required"`
	MaxRows int    `json:"max_rows" validate:"omitempty,min=1"`
}

// QueryExecution represents the outcome of an executed query
type QueryExecution struct {
	RequestID       string   `json:"request_id"`
	Warehouse       string   `json:"warehouse"`
	SafeQuery       string   `json:"safe_query"`
	Notice          string   `json:"notice,omitempty"`
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"row_count"`
	Truncated       bool     `json:"truncated"`
	Cached          bool     `json:"cached"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// QueryValidation represents a dry-run gate decision without execution
type QueryValidation struct {
	Valid     bool   `json:"valid"`
	SafeQuery string `json:"safe_query,omitempty"`
	Notice    string `json:"notice,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
}
