package sqlguard_test

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rensmac/sqlgate/internal/sqlguard"
)

type fixedLimiter bool

func (f fixedLimiter) Admit() bool { return bool(f) }

func TestValidateAndPrepare_AcceptsAnalyticsQueries(t *testing.T) {
	guard := sqlguard.New(nil)

	tests := []struct {
		name        string
		sql         string
		maxRows     int
		wantSafe    string
		wantMessage string
	}{
		{
			"bare select",
			"SELECT * FROM CUSTOMER",
			10000,
			"SELECT * FROM CUSTOMER LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"qualified table with filter",
			"SELECT C_NAME, C_ACCTBAL FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.CUSTOMER WHERE C_ACCTBAL > 1000",
			500,
			"SELECT C_NAME, C_ACCTBAL FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.CUSTOMER WHERE C_ACCTBAL > 1000 LIMIT 500",
			"Added LIMIT 500 for safety",
		},
		{
			"aggregate with group and order",
			"SELECT R_NAME, COUNT(*) FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION GROUP BY R_NAME ORDER BY R_NAME",
			10000,
			"SELECT R_NAME, COUNT(*) FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION GROUP BY R_NAME ORDER BY R_NAME LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"subquery in IN clause",
			"SELECT N_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.NATION WHERE N_REGIONKEY IN (SELECT R_REGIONKEY FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION WHERE R_NAME = 'EUROPE')",
			10000,
			"SELECT N_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.NATION WHERE N_REGIONKEY IN (SELECT R_REGIONKEY FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION WHERE R_NAME = 'EUROPE') LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"five joins allowed",
			"SELECT A.X FROM A JOIN B ON A.K = B.K JOIN C ON B.K = C.K JOIN D ON C.K = D.K JOIN E ON D.K = E.K JOIN F ON E.K = F.K",
			10000,
			"SELECT A.X FROM A JOIN B ON A.K = B.K JOIN C ON B.K = C.K JOIN D ON C.K = D.K JOIN E ON D.K = E.K JOIN F ON E.K = F.K LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"existing limit under cap kept",
			"SELECT O_ORDERDATE, SUM(O_TOTALPRICE) FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.ORDERS GROUP BY O_ORDERDATE ORDER BY O_ORDERDATE LIMIT 100",
			10000,
			"SELECT O_ORDERDATE, SUM(O_TOTALPRICE) FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.ORDERS GROUP BY O_ORDERDATE ORDER BY O_ORDERDATE LIMIT 100",
			"Query is safe",
		},
		{
			"lowercase query",
			"select c_name from snowflake_sample_data.tpch_sf1.customer where c_mktsegment = 'BUILDING'",
			200,
			"select c_name from snowflake_sample_data.tpch_sf1.customer where c_mktsegment = 'BUILDING' LIMIT 200",
			"Added LIMIT 200 for safety",
		},
		{
			"leading line comment stripped",
			"-- top regions\nSELECT R_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION",
			10000,
			"SELECT R_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.REGION LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"inline block comment stripped",
			"SELECT /* projection */ N_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.NATION",
			10000,
			"SELECT N_NAME FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.NATION LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"no from clause",
			"SELECT CURRENT_DATE",
			10000,
			"SELECT CURRENT_DATE LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"information schema allowed",
			"SELECT * FROM INFORMATION_SCHEMA.TABLES LIMIT 50",
			10000,
			"SELECT * FROM INFORMATION_SCHEMA.TABLES LIMIT 50",
			"Query is safe",
		},
		{
			"max rows clamped to hard cap",
			"SELECT * FROM CUSTOMER",
			50000,
			"SELECT * FROM CUSTOMER LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"trailing semicolon dropped before append",
			"SELECT * FROM LINEITEM;",
			10000,
			"SELECT * FROM LINEITEM LIMIT 10000",
			"Added LIMIT 10000 for safety",
		},
		{
			"oversized limit reduced",
			"SELECT * FROM ORDERS LIMIT 99999",
			10000,
			"SELECT * FROM ORDERS LIMIT 10000",
			"Query limit reduced from 99999 to 10000 for safety",
		},
		{
			"limit reduced to caller max",
			"SELECT * FROM ORDERS LIMIT 500",
			100,
			"SELECT * FROM ORDERS LIMIT 100",
			"Query limit reduced from 500 to 100 for safety",
		},
		{
			"every limit clause rewritten",
			"SELECT * FROM (SELECT * FROM ORDERS LIMIT 50000) LIMIT 60000",
			10000,
			"SELECT * FROM (SELECT * FROM ORDERS LIMIT 10000) LIMIT 10000",
			"Query limit reduced from 50000 to 10000 for safety",
		},
	}

	limitValue := regexp.MustCompile(`\bLIMIT\s+(\d+)\b`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.ValidateAndPrepare(tt.sql, tt.maxRows)
			if err != nil {
				t.Fatalf("ValidateAndPrepare() error = %v, want accept", err)
			}
			if got.SafeQuery != tt.wantSafe {
				t.Errorf("SafeQuery = %q, want %q", got.SafeQuery, tt.wantSafe)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}

			// Every accepted query carries a LIMIT no larger than the
			// effective cap.
			rowCap := tt.maxRows
			if rowCap > sqlguard.HardRowCap {
				rowCap = sqlguard.HardRowCap
			}
			m := limitValue.FindStringSubmatch(strings.ToUpper(got.SafeQuery))
			if m == nil {
				t.Fatalf("SafeQuery %q has no LIMIT clause", got.SafeQuery)
			}
			n, convErr := strconv.Atoi(m[1])
			if convErr != nil || n > rowCap {
				t.Errorf("SafeQuery limit = %s, want <= %d", m[1], rowCap)
			}
		})
	}
}

func TestValidateAndPrepare_Idempotent(t *testing.T) {
	guard := sqlguard.New(nil)

	first, err := guard.ValidateAndPrepare("SELECT * FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.PART", 300)
	if err != nil {
		t.Fatalf("first pass error = %v", err)
	}
	second, err := guard.ValidateAndPrepare(first.SafeQuery, 300)
	if err != nil {
		t.Fatalf("second pass error = %v", err)
	}
	if second.SafeQuery != first.SafeQuery {
		t.Errorf("second pass changed query: %q -> %q", first.SafeQuery, second.SafeQuery)
	}
	if second.Message != "Query is safe" {
		t.Errorf("second pass message = %q, want %q", second.Message, "Query is safe")
	}
}

func TestValidateAndPrepare_FalsePositivePrevention(t *testing.T) {
	guard := sqlguard.New(nil)

	// Real analytics SQL that merely resembles something dangerous. Each
	// query must come back unchanged aside from the appended limit.
	queries := []string{
		"SELECT union_membership FROM employees",
		"SELECT order_by_priority FROM tasks",
		"SELECT drop_off_location FROM deliveries",
		"SELECT insert_date FROM audit_log",
		"SELECT select_options FROM survey_questions",
		"SELECT table_number FROM reservations",

		`SELECT "group", "order" FROM "reserved words table"`,
		"SELECT `order id`, `customer id` FROM `order table`",

		"SELECT customer_id, order_total, CUME_DIST() OVER (ORDER BY order_total) AS cumulative_distribution FROM orders",
		"SELECT product_id, price, PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY price) OVER (PARTITION BY category) AS median_price FROM products",
		"SELECT store_id, daily_sales, AVG(daily_sales) OVER (ORDER BY sales_date ROWS BETWEEN 6 PRECEDING AND CURRENT ROW) AS weekly_avg FROM store_sales",

		"SELECT name, CASE WHEN age < 18 THEN 'Minor' ELSE 'Adult' END AS age_group FROM users",
		"SELECT region, SUM(CASE WHEN status = 'complete' THEN amount ELSE 0 END) AS completed_revenue FROM orders GROUP BY region",

		"SELECT product_id FROM products ORDER BY 1",
		"SELECT customer_id, preferences:email_notifications::boolean AS email_pref FROM user_preferences",
		`SELECT CASE WHEN email RLIKE '^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$' THEN 'valid' ELSE 'invalid' END AS email_status, COUNT(*) FROM users GROUP BY email_status`,
		"SELECT location_id, ST_DISTANCE(point1, point2) AS distance FROM locations",
		"SELECT delivery_id, ST_DWITHIN(pickup_point, delivery_point, 1000) AS nearby_delivery FROM deliveries",
	}

	for _, sql := range queries {
		got, err := guard.ValidateAndPrepare(sql, 10000)
		if err != nil {
			t.Errorf("ValidateAndPrepare(%q) error = %v, want accept", sql, err)
			continue
		}
		if want := sql + " LIMIT 10000"; got.SafeQuery != want {
			t.Errorf("SafeQuery = %q, want %q", got.SafeQuery, want)
		}
		if got.Message != "Added LIMIT 10000 for safety" {
			t.Errorf("Message = %q for %q", got.Message, sql)
		}
	}
}

func TestValidateAndPrepare_RejectsByKind(t *testing.T) {
	guard := sqlguard.New(nil)

	tests := []struct {
		name string
		sql  string
		kind sqlguard.Kind
	}{
		{"empty", "", sqlguard.KindEmptyQuery},
		{"whitespace only", "   \n\t", sqlguard.KindEmptyQuery},

		{"insert", "INSERT INTO T VALUES (1)", sqlguard.KindForbiddenKeyword},
		{"update", "UPDATE T SET A = 1", sqlguard.KindForbiddenKeyword},
		{"delete", "DELETE FROM T", sqlguard.KindForbiddenKeyword},
		{"drop behind select", "SELECT * FROM T; DROP TABLE U", sqlguard.KindForbiddenKeyword},
		{"keyword inside comment", "-- set limits\nSELECT 1 FROM T", sqlguard.KindForbiddenKeyword},
		{"show grants", "SHOW GRANTS ON ACCOUNT", sqlguard.KindForbiddenKeyword},
		{"system function", "SELECT SYSTEM$WHITELIST()", sqlguard.KindForbiddenKeyword},
		{"current_user", "SELECT CURRENT_USER", sqlguard.KindForbiddenKeyword},

		{"explain", "EXPLAIN SELECT 1", sqlguard.KindWrongShape},
		{"cte", "WITH R AS (SELECT 1) SELECT * FROM R", sqlguard.KindWrongShape},
		{"not sql", "HELLO", sqlguard.KindWrongShape},

		{"tautology", "SELECT * FROM T WHERE 1=1", sqlguard.KindInjection},
		{"quoted tautology", "SELECT * FROM T WHERE A = 'X' OR '1'='1'", sqlguard.KindInjection},
		{"union select", "SELECT A FROM T UNION SELECT B FROM U", sqlguard.KindInjection},
		{"sleep", "SELECT SLEEP(10)", sqlguard.KindInjection},
		{"waitfor", "SELECT * FROM T WAITFOR DELAY '00:00:05'", sqlguard.KindInjection},
		{"quote semicolon", "SELECT * FROM T WHERE N = 'X'; SELECT 1", sqlguard.KindInjection},
		{"quote dashdash", "SELECT * FROM T WHERE N = 'X'--", sqlguard.KindInjection},
		{"exists probe", "SELECT * FROM T WHERE EXISTS (SELECT 1 FROM U)", sqlguard.KindInjection},
		{"concat", "SELECT CONCAT(A, B) FROM T", sqlguard.KindInjection},
		{"char encoding", "SELECT CHAR(65) FROM T", sqlguard.KindInjection},
		{"varchar cast caught by char pattern", "SELECT CAST(C_PHONE AS VARCHAR(20)) FROM CUSTOMER", sqlguard.KindInjection},
		{"grantee probe", "SELECT GRANTEE FROM INFORMATION_SCHEMA.APPLICABLE_ROLES", sqlguard.KindInjection},
		{"cross join", "SELECT * FROM A CROSS JOIN B", sqlguard.KindInjection},
		{"split union", "SELECT * FROM T UNI/**/ON SELECT 1 FROM U", sqlguard.KindInjection},
		{"split drop", "SELECT * FROM T WHERE X = DR/**/OP", sqlguard.KindInjection},

		{"fullwidth letter", "SELECT Ｕ FROM T", sqlguard.KindSuspiciousUnicode},
		{"cyrillic literal", "SELECT * FROM T WHERE NAME = 'Привет'", sqlguard.KindSuspiciousUnicode},
		{"cherokee literal", "SELECT * FROM T WHERE TAG = 'Ꭰ'", sqlguard.KindSuspiciousUnicode},
		{"lookalike union", "SELECT * FROM T UNIᴼN SELECT 1 FROM U", sqlguard.KindSuspiciousUnicode},

		{"connect by", "SELECT * FROM T CONNECT BY LEVEL < 5", sqlguard.KindTooComplex},
		{"pivot", "SELECT * FROM T PIVOT (SUM(V) FOR K IN ('A'))", sqlguard.KindTooComplex},

		{"foreign schema", "SELECT * FROM PRODUCTION.USERS", sqlguard.KindSchemaNotAllowed},
		{"quoted lowercase schema", `select * from "production".users`, sqlguard.KindSchemaNotAllowed},
		{"stage reference", "SELECT * FROM @STG", sqlguard.KindSchemaNotAllowed},
		{"url reference", "SELECT * FROM T WHERE LINK = 'HTTPS://EXAMPLE.COM'", sqlguard.KindSchemaNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidateAndPrepare(tt.sql, 10000)
			if err == nil {
				t.Fatalf("ValidateAndPrepare() accepted %q, want reject", tt.sql)
			}
			var ve *sqlguard.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if ve.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", ve.Kind, tt.kind)
			}
		})
	}
}

func TestValidateAndPrepare_Messages(t *testing.T) {
	guard := sqlguard.New(nil)

	tests := []struct {
		name    string
		sql     string
		want    string
	}{
		{"empty", "", "Empty query provided"},
		{"forbidden keyword", "DELETE FROM T", "Query contains forbidden keyword: DELETE. Only SELECT statements are allowed."},
		{"wrong shape", "EXPLAIN SELECT 1", "Query must start with SELECT. Data modification statements are not allowed."},
		{"injection generic", "SELECT * FROM T WHERE 1=1", "Query contains potentially malicious pattern. SQL injection attempts are not allowed."},
		{"suspicious unicode", "SELECT Ｕ FROM T", "Query contains suspicious Unicode characters that may be attempts to bypass security. ASCII-only SQL keywords are required."},
		{"split keyword", "SELECT * FROM T UNI/**/ON SELECT 1 FROM U", "Query appears to use comments to split dangerous keyword 'UNION'. This is not allowed."},
		{"restricted feature", "SELECT * FROM T CONNECT BY LEVEL < 5", "Query contains restricted SQL feature. Complex operations are not allowed."},
		{"foreign schema", "SELECT * FROM PRODUCTION.USERS", `Access to schema "PRODUCTION" is not allowed. Only SNOWFLAKE_SAMPLE_DATA, INFORMATION_SCHEMA are permitted.`},
		{"file operations", "SELECT * FROM @STG", "File operations and external references are not allowed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidateAndPrepare(tt.sql, 10000)
			if err == nil {
				t.Fatalf("ValidateAndPrepare() accepted %q, want reject", tt.sql)
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateAndPrepare_Boundaries(t *testing.T) {
	guard := sqlguard.New(nil)

	depth := func(n int) string {
		return "SELECT " + strings.Repeat("(", n) + "1" + strings.Repeat(")", n) + " FROM T"
	}
	joins := func(n int) string {
		var b strings.Builder
		b.WriteString("SELECT A.X FROM A")
		prev := "A"
		for i := 0; i < n; i++ {
			alias := string(rune('B' + i))
			b.WriteString(" JOIN " + alias + " ON " + prev + ".K = " + alias + ".K")
			prev = alias
		}
		return b.String()
	}
	length := func(total int) string {
		// "SELECT " and " FROM T" contribute 14 characters.
		return "SELECT " + strings.Repeat("A", total-14) + " FROM T"
	}

	accepts := []struct {
		name string
		sql  string
	}{
		{"nesting at bound", depth(10)},
		{"joins at bound", joins(5)},
		{"length at bound", length(10000)},
	}
	for _, tt := range accepts {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := guard.ValidateAndPrepare(tt.sql, 10000); err != nil {
				t.Errorf("ValidateAndPrepare() error = %v, want accept", err)
			}
		})
	}

	rejects := []struct {
		name string
		sql  string
		want string
	}{
		{"nesting past bound", depth(11), "Query has too many nested parentheses. Maximum nesting depth is 10."},
		{"joins past bound", joins(6), "Query has too many JOINs (6). Maximum allowed is 5."},
		{"length past bound", length(10001), "Query is too long. Maximum query length is 10,000 characters."},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidateAndPrepare(tt.sql, 10000)
			if err == nil {
				t.Fatal("ValidateAndPrepare() accepted, want reject")
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateAndPrepare_PathologicalInputLatency(t *testing.T) {
	guard := sqlguard.New(nil)

	inputs := []string{
		"SELECT * FROM users WHERE email LIKE '" + strings.Repeat("a", 10000) + "X'",
		"SELECT * FROM users WHERE " + strings.Repeat("(", 100) + "a" + strings.Repeat(")", 100),
		"SELECT * FROM users WHERE data = '" + strings.Repeat(`\'`, 1000) + "'",
		"SELECT *" + strings.Repeat(" FROM SNOWFLAKE_SAMPLE_DATA.T", 300),
	}

	for _, sql := range inputs {
		start := time.Now()
		_, err := guard.ValidateAndPrepare(sql, 10000)
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("validation took %v on %d-char input, want under a second", elapsed, len(sql))
		}
		if err != nil {
			var ve *sqlguard.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error type = %T, want *ValidationError", err)
			}
		}
	}
}

func TestValidationError_SecurityEvent(t *testing.T) {
	guard := sqlguard.New(nil)

	_, err := guard.ValidateAndPrepare("SELECT * FROM T WHERE 1=1", 10000)
	var ve *sqlguard.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if !ve.SecurityEvent() {
		t.Error("injection rejection should be a security event")
	}
	if ve.Family != "tautology" {
		t.Errorf("Family = %q, want %q", ve.Family, "tautology")
	}
	if strings.Contains(ve.Message, ve.Family) {
		t.Error("signature family must not leak into the caller-facing message")
	}

	_, err = guard.ValidateAndPrepare("SELECT * FROM PRODUCTION.USERS", 10000)
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if ve.SecurityEvent() {
		t.Error("schema rejection should not be a security event")
	}
}

func TestGuard_Admit(t *testing.T) {
	if err := sqlguard.New(fixedLimiter(true)).Admit(); err != nil {
		t.Errorf("Admit() error = %v, want nil", err)
	}

	err := sqlguard.New(fixedLimiter(false)).Admit()
	if err == nil {
		t.Fatal("Admit() = nil, want rate limit error")
	}
	var ve *sqlguard.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if ve.Kind != sqlguard.KindRateLimited {
		t.Errorf("Kind = %q, want %q", ve.Kind, sqlguard.KindRateLimited)
	}
	want := "Rate limit exceeded. Maximum 30 queries per minute allowed."
	if ve.Message != want {
		t.Errorf("message = %q, want %q", ve.Message, want)
	}
}
