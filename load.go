package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
)

// tableColumns groups manifest entries per table, in manifest order.
type tableColumns struct {
	Schema  string
	Table   string
	Columns []string
}

// groupManifest folds manifest rows into per-table column lists,
// keeping the manifest's table order.
func groupManifest(cols []ManifestColumn) []tableColumns {
	var tables []tableColumns
	index := make(map[string]int)
	for _, c := range cols {
		key := c.Schema + "." + c.Table
		i, ok := index[key]
		if !ok {
			i = len(tables)
			index[key] = i
			tables = append(tables, tableColumns{Schema: c.Schema, Table: c.Table})
		}
		tables[i].Columns = append(tables[i].Columns, c.Column)
	}
	return tables
}

// runLoad bulk-loads the per-table DEL export files into PostgreSQL,
// driven by the column manifest written during conversion.
func runLoad(ctx context.Context, cfg *Config, manifestPath, dataDir string) error {
	mf, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	cols, err := readManifest(mf)
	mf.Close()
	if err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	tables := groupManifest(cols)
	if len(tables) == 0 {
		return fmt.Errorf("manifest %s lists no columns", manifestPath)
	}

	conn, err := pgx.Connect(ctx, cfg.Load.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	for _, t := range tables {
		path := filepath.Join(dataDir, fmt.Sprintf("%s.%s.del", t.Schema, t.Table))
		if err := loadTable(ctx, conn, t, path); err != nil {
			if cfg.Load.OnError == "continue" {
				log.Printf("  WARN: %s.%s skipped: %v", t.Schema, t.Table, err)
				continue
			}
			return fmt.Errorf("load %s.%s: %w", t.Schema, t.Table, err)
		}
	}
	return nil
}

func loadTable(ctx context.Context, conn *pgx.Conn, t tableColumns, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = pgName(c)
	}
	src := newDELSource(f, len(t.Columns))

	n, err := conn.CopyFrom(ctx,
		pgx.Identifier{pgName(t.Schema), pgName(t.Table)}, names, src)
	if err != nil {
		return err
	}
	log.Printf("  loaded %s.%s: %d rows", t.Schema, t.Table, n)
	return nil
}

// delSource streams a DB2 DEL export file as a pgx.CopyFromSource.
// DEL is nearly CSV, with one distinction worth preserving: an
// unquoted empty field is NULL, a quoted empty field is ''.
type delSource struct {
	sc    *bufio.Scanner
	ncols int
	row   []any
	err   error
}

func newDELSource(r io.Reader, ncols int) *delSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &delSource{sc: sc, ncols: ncols}
}

func (d *delSource) Next() bool {
	if d.err != nil {
		return false
	}
	var record string
	started := false
	for d.sc.Scan() {
		line := d.sc.Text()
		if !started {
			if strings.TrimSpace(line) == "" {
				continue
			}
			record = line
			started = true
		} else {
			// quoted field continues across the line break
			record += "\n" + line
		}
		fields, complete := parseDELRecord(record)
		if !complete {
			continue
		}
		if len(fields) != d.ncols {
			d.err = fmt.Errorf("record has %d fields, expected %d: %q", len(fields), d.ncols, record)
			return false
		}
		d.row = fields
		return true
	}
	if err := d.sc.Err(); err != nil {
		d.err = err
	} else if started {
		d.err = fmt.Errorf("unterminated quoted field at end of input")
	}
	return false
}

func (d *delSource) Values() ([]any, error) { return d.row, d.err }
func (d *delSource) Err() error             { return d.err }

// parseDELRecord splits one DEL record into field values (string or
// nil). complete is false when a quoted field is still open, meaning
// the record continues on the next line.
func parseDELRecord(s string) (fields []any, complete bool) {
	i := 0
	for {
		if i < len(s) && s[i] == '"' {
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '"' {
					if i+1 < len(s) && s[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, false
			}
			fields = append(fields, b.String())
			// skip anything up to the next separator
			for i < len(s) && s[i] != ',' {
				i++
			}
			if i >= len(s) {
				return fields, true
			}
			i++
			continue
		}

		j := strings.IndexByte(s[i:], ',')
		if j < 0 {
			fields = append(fields, rawDELValue(s[i:]))
			return fields, true
		}
		fields = append(fields, rawDELValue(s[i:i+j]))
		i += j + 1
	}
}

// rawDELValue interprets an unquoted DEL field: empty means NULL.
func rawDELValue(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return t
}
