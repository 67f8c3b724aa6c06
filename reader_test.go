package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readAll(t *testing.T, input string) [][]string {
	t.Helper()
	sr := NewStatementReader(strings.NewReader(input))
	var stmts [][]string
	for {
		stmt, err := sr.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if stmt == nil {
			return stmts
		}
		stmts = append(stmts, stmt)
	}
}

func TestStatementReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			"two simple statements",
			"CONNECT TO SAMPLE;\nCREATE ROLE \"OPS\";\n",
			[][]string{{"CONNECT TO SAMPLE"}, {"CREATE ROLE \"OPS\""}},
		},
		{
			"multi-line statement",
			"CREATE TABLE \"S\".\"T\"  (\n\t\t  \"ID\" INTEGER NOT NULL )\n\t\t IN \"TS1\" ;\n",
			[][]string{{
				"CREATE TABLE \"S\".\"T\"  (",
				"\t\t  \"ID\" INTEGER NOT NULL )",
				"\t\t IN \"TS1\" ",
			}},
		},
		{
			"trailing comment stripped",
			"CREATE ROLE \"OPS\"; -- created by db2look\n",
			[][]string{{"CREATE ROLE \"OPS\""}},
		},
		{
			"comment marker inside a literal survives",
			"COMMENT ON TABLE \"S\".\"T\" IS 'a--b';\n",
			[][]string{{"COMMENT ON TABLE \"S\".\"T\" IS 'a--b'"}},
		},
		{
			"blank and comment-only lines skipped",
			"\n-- db2look banner\n\nCOMMIT WORK;\n",
			[][]string{{"COMMIT WORK"}},
		},
		{
			"atomic body semicolons do not terminate",
			strings.Join([]string{
				"CREATE FUNCTION \"APP\".\"NEXT_ID\" ()",
				"  RETURNS INTEGER",
				"  LANGUAGE SQL",
				"  BEGIN ATOMIC",
				"    DECLARE V INTEGER;",
				"    SET V = 1;",
				"    RETURN V;",
				"  END;",
				"COMMIT WORK;",
				"",
			}, "\n"),
			[][]string{
				{
					"CREATE FUNCTION \"APP\".\"NEXT_ID\" ()",
					"  RETURNS INTEGER",
					"  LANGUAGE SQL",
					"  BEGIN ATOMIC",
					"    DECLARE V INTEGER;",
					"    SET V = 1;",
					"    RETURN V;",
					"  END",
				},
				{"COMMIT WORK"},
			},
		},
		{
			"single-line atomic function",
			"CREATE FUNCTION F() RETURNS INT LANGUAGE SQL BEGIN ATOMIC RETURN 1; END;\n",
			[][]string{{"CREATE FUNCTION F() RETURNS INT LANGUAGE SQL BEGIN ATOMIC RETURN 1; END"}},
		},
		{
			"control flow terminators stay inside the body",
			strings.Join([]string{
				"CREATE FUNCTION \"APP\".\"CLAMP\" (V INTEGER)",
				"  RETURNS INTEGER",
				"  LANGUAGE SQL",
				"  BEGIN ATOMIC",
				"    IF V < 0 THEN",
				"      SET V = 0;",
				"    END IF;",
				"    WHILE V > 100 DO",
				"      SET V = V - 1;",
				"    END WHILE;",
				"    RETURN V;",
				"  END;",
				"COMMIT WORK;",
				"",
			}, "\n"),
			[][]string{
				{
					"CREATE FUNCTION \"APP\".\"CLAMP\" (V INTEGER)",
					"  RETURNS INTEGER",
					"  LANGUAGE SQL",
					"  BEGIN ATOMIC",
					"    IF V < 0 THEN",
					"      SET V = 0;",
					"    END IF;",
					"    WHILE V > 100 DO",
					"      SET V = V - 1;",
					"    END WHILE;",
					"    RETURN V;",
					"  END",
				},
				{"COMMIT WORK"},
			},
		},
		{
			"case statement closed by end case",
			strings.Join([]string{
				"CREATE PROCEDURE \"APP\".\"ROUTE\" (V INTEGER)",
				"  LANGUAGE SQL",
				"  BEGIN",
				"    CASE V",
				"      WHEN 1 THEN SET V = 10;",
				"      ELSE SET V = 0;",
				"    END CASE;",
				"  END;",
				"",
			}, "\n"),
			[][]string{{
				"CREATE PROCEDURE \"APP\".\"ROUTE\" (V INTEGER)",
				"  LANGUAGE SQL",
				"  BEGIN",
				"    CASE V",
				"      WHEN 1 THEN SET V = 10;",
				"      ELSE SET V = 0;",
				"    END CASE;",
				"  END",
			}},
		},
		{
			"case expression and literal inside the body",
			strings.Join([]string{
				"CREATE PROCEDURE \"APP\".\"TAG\" ()",
				"  LANGUAGE SQL",
				"  BEGIN",
				"    SET FLAG = CASE WHEN 1 = 1 THEN 'THE END' ELSE 'GO' END;",
				"  END;",
				"",
			}, "\n"),
			[][]string{{
				"CREATE PROCEDURE \"APP\".\"TAG\" ()",
				"  LANGUAGE SQL",
				"  BEGIN",
				"    SET FLAG = CASE WHEN 1 = 1 THEN 'THE END' ELSE 'GO' END;",
				"  END",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("statements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatementReaderUnterminated(t *testing.T) {
	sr := NewStatementReader(strings.NewReader("CREATE ROLE \"OPS\"\n"))
	_, err := sr.Next()
	if err == nil || !strings.Contains(err.Error(), "unterminated") {
		t.Fatalf("Next() error = %v, want unterminated trailing statement", err)
	}
}

func TestStatementReaderEOF(t *testing.T) {
	sr := NewStatementReader(strings.NewReader(""))
	stmt, err := sr.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if stmt != nil {
		t.Errorf("Next() on empty input = %v, want nil", stmt)
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CREATE ROLE X; -- note", "CREATE ROLE X; "},
		{"IS 'a--b'; -- real comment", "IS 'a--b'; "},
		{"no comment here", "no comment here"},
		{"-- whole line", ""},
	}
	for _, tt := range tests {
		if got := stripLineComment(tt.in); got != tt.want {
			t.Errorf("stripLineComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
