package sqlguard_test

import (
	"reflect"
	"testing"

	"github.com/rensmac/sqlgate/internal/sqlguard"
)

func TestExtractFromReferences(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"bare table", "SELECT * FROM CUSTOMER", []string{"CUSTOMER"}},
		{"qualified table", "SELECT * FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.LINEITEM WHERE X > 1", []string{"SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.LINEITEM"}},
		{"two from clauses", "SELECT * FROM A WHERE X IN (SELECT Y FROM B)", []string{"A", "B"}},
		{"break at comma", "SELECT * FROM A, B", []string{"A"}},
		{"target at end", "SELECT * FROM ORDERS", []string{"ORDERS"}},
		{"no from", "SELECT 1", nil},
		{"quoted identifier", `SELECT * FROM "MY SCHEMA".T`, []string{`"MY SCHEMA".T`}},
		{"quoted with spaced dot", `SELECT * FROM "ABC" . DEF`, []string{`"ABC".`}},
		{"quoted without suffix", `SELECT * FROM "ABC" WHERE X = 1`, []string{`"ABC"`}},
		{"unterminated quote", `SELECT * FROM "ABC DEF`, []string{`"ABC`}},
		{"backtick quoted", "SELECT * FROM `PROD`.USERS", []string{"`PROD`.USERS"}},
		{"mismatched smart quotes", "SELECT * FROM ‘PROD’.USERS", []string{"‘PROD’.USERS"}},
		{"matched smart quotes", "SELECT * FROM ‘PROD‘.USERS", []string{"‘PROD‘.USERS"}},
		{"stage target", "SELECT * FROM @STG", []string{"@STG"}},
		{"subquery target", "SELECT * FROM (SELECT 1) X", []string{"(SELECT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqlguard.ExtractFromReferences(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractFromReferences(%q) = %#v, want %#v", tt.sql, got, tt.want)
			}
		})
	}
}

func TestValidateAndPrepare_SchemaAllowlist(t *testing.T) {
	guard := sqlguard.New(nil)

	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"sample data schema", "SELECT * FROM SNOWFLAKE_SAMPLE_DATA.TPCH_SF1.NATION", false},
		{"information schema", "SELECT * FROM INFORMATION_SCHEMA.VIEWS", false},
		{"unqualified table", "SELECT * FROM REGION", false},
		{"lowercase allowed schema", "select * from snowflake_sample_data.tpch_sf1.part", false},

		{"production schema", "SELECT * FROM PRODUCTION.USERS", true},
		{"lowercase denied schema", "select * from production.users", true},
		{"double quoted denied schema", `SELECT * FROM "PRODUCTION".USERS`, true},
		{"single quoted denied schema", "SELECT * FROM 'PRODUCTION'.USERS", true},
		{"backtick denied schema", "SELECT * FROM `PRODUCTION`.USERS", true},
		{"smart quoted denied schema", "SELECT * FROM ‘PRODUCTION’.USERS", true},
		{"smart quoted lowercase denied schema", "select * from ‘production’.users", true},
		{"denied schema in subquery", "SELECT * FROM REGION WHERE R_KEY IN (SELECT K FROM SECRETDB.T)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidateAndPrepare(tt.sql, 10000)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAndPrepare() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
