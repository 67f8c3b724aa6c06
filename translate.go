package main

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	blobTypeRe  = regexp.MustCompile(`(?i)^BLOB\s*\(\s*\d+\s*\)$`)
	clobTypeRe  = regexp.MustCompile(`(?i)^CLOB\s*\(\s*(\d+)\s*\)$`)
	typeSizedRe = regexp.MustCompile(`(?i)^([A-Z ]+?)\s*\(`)
)

// mapType returns the PostgreSQL type for a DB2 column type. The table
// is deliberately small: only types with no direct PostgreSQL spelling
// are rewritten, everything else passes through (lowercased, since the
// target folds unquoted keywords anyway).
func mapType(db2Type string) string {
	t := strings.TrimSpace(db2Type)
	upper := strings.ToUpper(t)

	switch {
	case blobTypeRe.MatchString(t), upper == "BLOB":
		// Sized binary objects have no bounded target form.
		return "bytea"
	case clobTypeRe.MatchString(t):
		m := clobTypeRe.FindStringSubmatch(t)
		return fmt.Sprintf("varchar(%s)", m[1])
	case upper == "CLOB":
		return "text"
	case upper == "DOUBLE":
		return "double precision"
	case upper == "LONG VARCHAR":
		return "text"
	default:
		return strings.ToLower(t)
	}
}

// typeFamily buckets a DB2 type for implicit-default selection.
func typeFamily(db2Type string) string {
	upper := strings.ToUpper(strings.TrimSpace(db2Type))
	// "VARCHAR(20)" → "VARCHAR", "LONG VARCHAR" stays whole.
	if m := typeSizedRe.FindStringSubmatch(upper); m != nil {
		upper = strings.TrimSpace(m[1])
	}
	return upper
}

// implicitDefault supplies the literal DB2 applies to a WITH DEFAULT
// clause that names no value. The mapping is intentionally
// non-exhaustive: a type outside these families is an error rather
// than a silently wrong default.
func implicitDefault(db2Type string) (string, error) {
	switch typeFamily(db2Type) {
	case "SMALLINT", "INTEGER", "INT", "BIGINT",
		"DECIMAL", "DEC", "NUMERIC", "NUM", "DECFLOAT",
		"REAL", "FLOAT", "DOUBLE":
		return "0", nil
	case "CHARACTER", "CHAR", "VARCHAR", "LONG VARCHAR",
		"GRAPHIC", "VARGRAPHIC", "CLOB", "DBCLOB", "BLOB":
		return "''", nil
	case "DATE":
		return "CURRENT_DATE", nil
	case "TIME":
		return "CURRENT_TIME", nil
	case "TIMESTAMP":
		return "CURRENT_TIMESTAMP", nil
	default:
		return "", fmt.Errorf("no implicit default known for type %q", db2Type)
	}
}

var (
	currentTimestampRe = regexp.MustCompile(`(?i)\bCURRENT\s+TIMESTAMP\b`)
	currentDateRe      = regexp.MustCompile(`(?i)\bCURRENT\s+DATE\b`)
	currentTimeRe      = regexp.MustCompile(`(?i)\bCURRENT\s+TIME\b`)
	yearCallRe         = regexp.MustCompile(`(?i)\bYEAR\s*\(([^)]*)\)`)
	ucaseCallRe        = regexp.MustCompile(`(?i)\bUCASE\s*\(`)
	lcaseCallRe        = regexp.MustCompile(`(?i)\bLCASE\s*\(`)
	charCastRe         = regexp.MustCompile(`(?i)\bCHAR\s*\(([^)]*)\)`)
	emptyBlobRe        = regexp.MustCompile(`(?i)\bEMPTY_BLOB\s*\(\s*\)`)
	rowMovementRe      = regexp.MustCompile(`(?i)\s*WITH\s+(NO\s+)?ROW\s+MOVEMENT\b`)
)

// rewriteExpression best-effort-translates a DB2 expression (a default
// literal or a view body) into something PostgreSQL has a chance of
// accepting. Purely textual substitutions; the result is untrusted and
// callers route it to the operator when changed is true.
func rewriteExpression(expr string) (out string, changed bool) {
	out = strings.Join(strings.Fields(strings.ReplaceAll(expr, "\n", " ")), " ")

	// Longest phrase first so CURRENT TIME does not eat CURRENT TIMESTAMP.
	out = currentTimestampRe.ReplaceAllString(out, "CURRENT_TIMESTAMP")
	out = currentDateRe.ReplaceAllString(out, "CURRENT_DATE")
	out = currentTimeRe.ReplaceAllString(out, "CURRENT_TIME")
	out = yearCallRe.ReplaceAllString(out, "EXTRACT(YEAR FROM $1)")
	out = ucaseCallRe.ReplaceAllString(out, "UPPER(")
	out = lcaseCallRe.ReplaceAllString(out, "LOWER(")
	out = emptyBlobRe.ReplaceAllString(out, "''")
	out = charCastRe.ReplaceAllString(out, "($1)::text")
	out = rowMovementRe.ReplaceAllString(out, "")

	squashed := strings.Join(strings.Fields(strings.ReplaceAll(expr, "\n", " ")), " ")
	return out, out != squashed
}
