package main

import "testing"

func TestMapType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BLOB(1048576)", "bytea"},
		{"BLOB", "bytea"},
		{"CLOB(500)", "varchar(500)"},
		{"CLOB", "text"},
		{"DOUBLE", "double precision"},
		{"LONG VARCHAR", "text"},
		{"INTEGER", "integer"},
		{"VARCHAR(200)", "varchar(200)"},
		{"DECIMAL(10,2)", "decimal(10,2)"},
		{"TIMESTAMP", "timestamp"},
	}
	for _, tt := range tests {
		if got := mapType(tt.in); got != tt.want {
			t.Errorf("mapType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImplicitDefault(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"INTEGER", "0", false},
		{"DECIMAL(10,2)", "0", false},
		{"DOUBLE", "0", false},
		{"VARCHAR(20)", "''", false},
		{"CHARACTER(1)", "''", false},
		{"CLOB(500)", "''", false},
		{"DATE", "CURRENT_DATE", false},
		{"TIME", "CURRENT_TIME", false},
		{"TIMESTAMP", "CURRENT_TIMESTAMP", false},
		{"XML", "", true},
	}
	for _, tt := range tests {
		got, err := implicitDefault(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("implicitDefault(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("implicitDefault(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("implicitDefault(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRewriteExpression(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"current timestamp", "CURRENT TIMESTAMP", "CURRENT_TIMESTAMP", true},
		{"current date", "current date", "CURRENT_DATE", true},
		{"current time not eaten by timestamp", "CURRENT TIME", "CURRENT_TIME", true},
		{"year extraction", "YEAR(HIRE_DATE)", "EXTRACT(YEAR FROM HIRE_DATE)", true},
		{"ucase", "UCASE(NAME)", "UPPER(NAME)", true},
		{"lcase", "LCASE(NAME)", "LOWER(NAME)", true},
		{"char cast", "CHAR(SALARY)", "(SALARY)::text", true},
		{"empty blob", "EMPTY_BLOB()", "''", true},
		{"row movement stripped", "AS SELECT 1 WITH ROW MOVEMENT", "AS SELECT 1", true},
		{"plain literal untouched", "'hello'", "'hello'", false},
		{"number untouched", "42", "42", false},
		{"whitespace collapse alone is not a change", "a   =\n  b", "a = b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := rewriteExpression(tt.in)
			if got != tt.want {
				t.Errorf("rewriteExpression(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if changed != tt.changed {
				t.Errorf("rewriteExpression(%q) changed = %v, want %v", tt.in, changed, tt.changed)
			}
		})
	}
}
