package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// StatementReader turns a decoded db2look dump into a sequence of logical
// statements, each a slice of raw lines with trailing comments stripped
// and the final terminator removed.
//
// A statement normally ends at the first line ending in ';'. Routine
// bodies are the exception: BEGIN ... END blocks in functions, procedures
// and triggers legitimately contain semicolons mid-body, so for routine
// statements the reader tracks block nesting and ignores terminators
// while any block is open. END IF, END WHILE and friends close their own
// control statement rather than a block, and CASE expressions close with
// a bare END, so both feed the same depth count.
type StatementReader struct {
	scanner *bufio.Scanner
}

var (
	routineStartRe = regexp.MustCompile(`(?i)^\s*CREATE\s+(OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE|TRIGGER)\b`)
	bodyTokenRe    = regexp.MustCompile(`(?i)\b(BEGIN|CASE|END)\b(?:\s+(IF|WHILE|FOR|CASE|LOOP|REPEAT))?`)
	quotedTextRe   = regexp.MustCompile(`'[^']*'`)
)

// NewStatementReader wraps an already-decoded text stream.
func NewStatementReader(r io.Reader) *StatementReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StatementReader{scanner: sc}
}

// Next returns the next statement, or (nil, nil) when the input is
// exhausted.
func (sr *StatementReader) Next() ([]string, error) {
	var (
		stmt      []string
		isRoutine bool
		inBody    bool
		depth     int
	)

	for sr.scanner.Scan() {
		line := stripLineComment(sr.scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}

		stmt = append(stmt, line)
		if len(stmt) == 1 {
			isRoutine = routineStartRe.MatchString(line)
		}
		if isRoutine {
			// Literals are masked so an END inside a string cannot
			// close a block.
			masked := quotedTextRe.ReplaceAllString(line, "''")
			for _, m := range bodyTokenRe.FindAllStringSubmatch(masked, -1) {
				switch {
				case strings.EqualFold(m[1], "END"):
					// END CASE closes a counted CASE block; the other
					// suffixed forms close control statements that were
					// never counted.
					closes := m[2] == "" || strings.EqualFold(m[2], "CASE")
					if closes && depth > 0 {
						depth--
					}
				case strings.EqualFold(m[1], "BEGIN"):
					inBody = true
					depth++
				default: // CASE expression or statement
					if inBody {
						depth++
					}
				}
			}
		}

		trimmed := strings.TrimRight(line, " \t")
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}
		if inBody && depth > 0 {
			continue // terminator inside the routine body
		}

		stmt[len(stmt)-1] = strings.TrimSuffix(trimmed, ";")
		return stmt, nil
	}
	if err := sr.scanner.Err(); err != nil {
		return nil, err
	}
	if len(stmt) > 0 {
		return nil, fmt.Errorf("unterminated trailing statement: %q", strings.TrimSpace(stmt[0]))
	}
	return nil, nil
}

// stripLineComment removes a trailing "--" comment, ignoring markers
// inside single-quoted strings.
func stripLineComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\'':
			inQuote = !inQuote
		case !inQuote && line[i] == '-' && i+1 < len(line) && line[i+1] == '-':
			return line[:i]
		}
	}
	return line
}
