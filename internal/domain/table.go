package domain

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

// TableCatalog lists the tables visible through the active warehouse
type TableCatalog struct {
	Warehouse string      `json:"warehouse"`
	Kind      string      `json:"kind"`
	Tables    []TableInfo `json:"tables"`
}

// TablePreview contains a bounded sample of rows from one table
type TablePreview struct {
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}
