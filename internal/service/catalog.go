package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/sqlguard"
	"github.com/rensmac/sqlgate/internal/warehouse"
)

const (
	defaultPreviewRows = 100
	maxPreviewRows     = 1000
)

// ErrTableNotFound is returned when a preview names no catalog entry
var ErrTableNotFound = errors.New("table not found")

// CatalogService serves table metadata, bounded previews and the canned
// query library for dashboard pages.
type CatalogService struct {
	guard        *sqlguard.Guard
	router       *warehouse.Router
	active       string
	queryTimeout time.Duration
}

// NewCatalogService creates a new catalog service
func NewCatalogService(guard *sqlguard.Guard, router *warehouse.Router, activeWarehouse string, queryTimeout time.Duration) *CatalogService {
	return &CatalogService{
		guard:        guard,
		router:       router,
		active:       activeWarehouse,
		queryTimeout: queryTimeout,
	}
}

// ListTables describes every table visible through the active warehouse
func (s *CatalogService) ListTables(ctx context.Context) (*domain.TableCatalog, error) {
	adapter, err := s.router.Get(ctx, s.active)
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse adapter: %w", err)
	}

	names, err := adapter.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var tables []domain.TableInfo
	for _, name := range names {
		info, err := adapter.DescribeTable(ctx, name)
		if err != nil {
			continue // Skip tables we can't describe
		}

		columns := make([]domain.ColumnInfo, len(info.Columns))
		for i, col := range info.Columns {
			columns[i] = domain.ColumnInfo{
				Name:        col.Name,
				DataType:    col.DataType,
				Nullable:    col.Nullable,
				PrimaryKey:  col.PrimaryKey,
				Description: col.Description,
			}
		}

		tables = append(tables, domain.TableInfo{
			Name:       info.Name,
			SchemaName: info.SchemaName,
			Columns:    columns,
			RowCount:   info.RowCount,
		})
	}

	return &domain.TableCatalog{
		Warehouse: s.active,
		Kind:      adapter.Kind(),
		Tables:    tables,
	}, nil
}

// PreviewTable returns a bounded sample of rows from one catalog table
func (s *CatalogService) PreviewTable(ctx context.Context, table string, rows int) (*domain.TablePreview, error) {
	if rows <= 0 {
		rows = defaultPreviewRows
	}
	if rows > maxPreviewRows {
		rows = maxPreviewRows
	}

	adapter, err := s.router.Get(ctx, s.active)
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse adapter: %w", err)
	}

	names, err := adapter.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	// The preview target must be a catalog entry, and the catalog's own
	// spelling goes into the statement, never the caller's.
	var target string
	for _, name := range names {
		if strings.EqualFold(name, table) {
			target = name
			break
		}
	}
	if target == "" {
		return nil, ErrTableNotFound
	}

	// Previews take the same road as user SQL: only the gate's rewritten
	// form of the statement is executed.
	res, err := s.guard.ValidateAndPrepare(fmt.Sprintf("SELECT * FROM %s LIMIT %d", target, rows), rows)
	if err != nil {
		return nil, fmt.Errorf("preview query rejected: %w", err)
	}

	result, err := adapter.ExecuteQuery(ctx, res.SafeQuery, warehouse.QueryOptions{
		MaxRows: rows,
		Timeout: s.queryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute preview: %w", err)
	}

	return &domain.TablePreview{
		Table:    target,
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.RowCount,
	}, nil
}

// SampleQueries returns the curated analytics library dashboard pages offer
// as one-click reports
func (s *CatalogService) SampleQueries() []domain.SampleQuery {
	return sampleQueries
}

var sampleQueries = []domain.SampleQuery{
	{
		ID:          "top-customers",
		Page:        "exploration",
		Title:       "Top 10 Customers by Revenue",
		Description: "Analyze highest value customers",
		SQL: `SELECT
    c.C_NAME as customer_name,
    c.C_MKTSEGMENT as market_segment,
    ROUND(SUM(o.O_TOTALPRICE), 2) as total_revenue,
    COUNT(o.O_ORDERKEY) as order_count
FROM snowflake_sample_data.tpch_sf10.customer c
JOIN snowflake_sample_data.tpch_sf10.orders o ON c.C_CUSTKEY = o.O_CUSTKEY
GROUP BY c.C_CUSTKEY, c.C_NAME, c.C_MKTSEGMENT
ORDER BY total_revenue DESC
LIMIT 10;`,
	},
	{
		ID:          "sales-region",
		Page:        "exploration",
		Title:       "Sales by Region",
		Description: "Regional sales performance",
		SQL: `SELECT
    r.R_NAME as region,
    n.N_NAME as nation,
    COUNT(DISTINCT o.O_ORDERKEY) as total_orders,
    ROUND(SUM(o.O_TOTALPRICE), 2) as total_revenue,
    ROUND(AVG(o.O_TOTALPRICE), 2) as avg_order_value
FROM snowflake_sample_data.tpch_sf10.region r
JOIN snowflake_sample_data.tpch_sf10.nation n ON r.R_REGIONKEY = n.N_REGIONKEY
JOIN snowflake_sample_data.tpch_sf10.customer c ON n.N_NATIONKEY = c.C_NATIONKEY
JOIN snowflake_sample_data.tpch_sf10.orders o ON c.C_CUSTKEY = o.O_CUSTKEY
GROUP BY r.R_REGIONKEY, r.R_NAME, n.N_NATIONKEY, n.N_NAME
ORDER BY total_revenue DESC;`,
	},
	{
		ID:          "product-performance",
		Page:        "exploration",
		Title:       "Product Performance",
		Description: "Top selling products analysis",
		SQL: `SELECT
    p.P_NAME as product_name,
    p.P_TYPE as product_type,
    p.P_BRAND as brand,
    COUNT(DISTINCT l.L_ORDERKEY) as orders_containing_product,
    ROUND(SUM(l.L_EXTENDEDPRICE), 2) as total_revenue,
    ROUND(AVG(l.L_EXTENDEDPRICE), 2) as avg_line_value,
    SUM(l.L_QUANTITY) as total_quantity_sold
FROM snowflake_sample_data.tpch_sf10.part p
JOIN snowflake_sample_data.tpch_sf10.lineitem l ON p.P_PARTKEY = l.L_PARTKEY
GROUP BY p.P_PARTKEY, p.P_NAME, p.P_TYPE, p.P_BRAND
ORDER BY total_revenue DESC
LIMIT 20;`,
	},
	{
		ID:          "monthly-trends",
		Page:        "analytics",
		Title:       "Monthly Sales Trends",
		Description: "Time-based sales analysis",
		SQL: `SELECT
    YEAR(o.O_ORDERDATE) as order_year,
    MONTH(o.O_ORDERDATE) as order_month,
    COUNT(DISTINCT o.O_ORDERKEY) as total_orders,
    ROUND(SUM(o.O_TOTALPRICE), 2) as monthly_revenue,
    ROUND(AVG(o.O_TOTALPRICE), 2) as avg_order_value,
    COUNT(DISTINCT o.O_CUSTKEY) as unique_customers
FROM snowflake_sample_data.tpch_sf10.orders o
WHERE o.O_ORDERDATE >= '1995-01-01'
    AND o.O_ORDERDATE < '1997-01-01'
GROUP BY YEAR(o.O_ORDERDATE), MONTH(o.O_ORDERDATE)
ORDER BY order_year, order_month;`,
	},
	{
		ID:          "customer-ltv",
		Page:        "analytics",
		Title:       "Customer Lifetime Value",
		Description: "Customer value analysis",
		SQL: `SELECT
    c.C_MKTSEGMENT as market_segment,
    COUNT(DISTINCT c.C_CUSTKEY) as customer_count,
    ROUND(AVG(customer_totals.lifetime_value), 2) as avg_lifetime_value,
    ROUND(MIN(customer_totals.lifetime_value), 2) as min_lifetime_value,
    ROUND(MAX(customer_totals.lifetime_value), 2) as max_lifetime_value,
    ROUND(AVG(customer_totals.order_count), 1) as avg_orders_per_customer
FROM (
    SELECT
        c.C_CUSTKEY,
        c.C_MKTSEGMENT,
        SUM(o.O_TOTALPRICE) as lifetime_value,
        COUNT(o.O_ORDERKEY) as order_count
    FROM snowflake_sample_data.tpch_sf10.customer c
    JOIN snowflake_sample_data.tpch_sf10.orders o ON c.C_CUSTKEY = o.O_CUSTKEY
    GROUP BY c.C_CUSTKEY, c.C_MKTSEGMENT
) customer_totals
JOIN snowflake_sample_data.tpch_sf10.customer c ON customer_totals.C_CUSTKEY = c.C_CUSTKEY
GROUP BY c.C_MKTSEGMENT
ORDER BY avg_lifetime_value DESC;`,
	},
	{
		ID:          "order-frequency",
		Page:        "analytics",
		Title:       "Order Frequency Analysis",
		Description: "Customer ordering patterns",
		SQL: `SELECT
    order_frequency_bucket,
    COUNT(*) as customer_count,
    ROUND(AVG(total_spent), 2) as avg_total_spent,
    ROUND(AVG(avg_order_value), 2) as avg_order_value
FROM (
    SELECT
        c.C_CUSTKEY,
        COUNT(o.O_ORDERKEY) as order_count,
        SUM(o.O_TOTALPRICE) as total_spent,
        AVG(o.O_TOTALPRICE) as avg_order_value,
        CASE
            WHEN COUNT(o.O_ORDERKEY) = 1 THEN '1 Order'
            WHEN COUNT(o.O_ORDERKEY) BETWEEN 2 AND 5 THEN '2-5 Orders'
            WHEN COUNT(o.O_ORDERKEY) BETWEEN 6 AND 10 THEN '6-10 Orders'
            ELSE '10+ Orders'
        END as order_frequency_bucket
    FROM snowflake_sample_data.tpch_sf10.customer c
    JOIN snowflake_sample_data.tpch_sf10.orders o ON c.C_CUSTKEY = o.O_CUSTKEY
    GROUP BY c.C_CUSTKEY
) customer_analysis
GROUP BY order_frequency_bucket
ORDER BY
    CASE order_frequency_bucket
        WHEN '1 Order' THEN 1
        WHEN '2-5 Orders' THEN 2
        WHEN '6-10 Orders' THEN 3
        ELSE 4
    END;`,
	},
	{
		ID:          "browse-customers",
		Page:        "sample-data",
		Title:       "Browse Customer Table",
		Description: "View customer data structure",
		SQL: `SELECT
    C_CUSTKEY as customer_key,
    C_NAME as customer_name,
    C_ADDRESS as address,
    C_NATIONKEY as nation_key,
    C_PHONE as phone,
    C_ACCTBAL as account_balance,
    C_MKTSEGMENT as market_segment,
    C_COMMENT as comment
FROM snowflake_sample_data.tpch_sf10.customer
ORDER BY C_CUSTKEY
LIMIT 50;`,
	},
	{
		ID:          "browse-orders",
		Page:        "sample-data",
		Title:       "Browse Orders Table",
		Description: "View orders data structure",
		SQL: `SELECT
    O_ORDERKEY as order_key,
    O_CUSTKEY as customer_key,
    O_ORDERSTATUS as order_status,
    O_TOTALPRICE as total_price,
    O_ORDERDATE as order_date,
    O_ORDERPRIORITY as order_priority,
    O_CLERK as clerk,
    O_SHIPPRIORITY as ship_priority
FROM snowflake_sample_data.tpch_sf10.orders
ORDER BY O_ORDERDATE DESC
LIMIT 50;`,
	},
	{
		ID:          "table-info",
		Page:        "sample-data",
		Title:       "Table Information",
		Description: "Get metadata about tables",
		SQL: `SELECT
    table_schema,
    table_name,
    table_type,
    row_count,
    bytes,
    created
FROM snowflake_sample_data.information_schema.tables
WHERE table_schema = 'TPCH_SF10'
    AND table_type = 'BASE TABLE'
ORDER BY table_name;`,
	},
}
