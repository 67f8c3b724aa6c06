package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// The column manifest is the contract between the schema conversion and
// the data-loading helper: one line per column, in declared order,
//
//	schema;table;column;original DB2 type;Y|N (nullable)
//
// Identifiers are the source spellings; the loader maps them to target
// names itself. The format is stable, downstream tooling parses it.

// ManifestColumn is one parsed manifest line.
type ManifestColumn struct {
	Schema   string
	Table    string
	Column   string
	OrigType string
	Nullable bool
}

// writeManifest writes the manifest for every table in the catalog,
// tables sorted by schema and name, columns in declared order.
func writeManifest(w io.Writer, catalog *Catalog) error {
	for _, schemaName := range sortedNames(catalog.Schemas) {
		schema := catalog.Schemas[schemaName]
		for _, tableName := range sortedNames(schema.Tables) {
			for _, col := range schema.Tables[tableName].Columns {
				nullable := "Y"
				if col.NotNull {
					nullable = "N"
				}
				if _, err := fmt.Fprintf(w, "%s;%s;%s;%s;%s\n",
					schemaName, tableName, col.Name, col.OrigType, nullable); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// readManifest parses a manifest stream back into column records,
// preserving line order.
func readManifest(r io.Reader) ([]ManifestColumn, error) {
	var cols []ManifestColumn
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) != 5 {
			return nil, fmt.Errorf("manifest line %d: expected 5 fields, got %d", lineNo, len(parts))
		}
		nullable := false
		switch parts[4] {
		case "Y":
			nullable = true
		case "N":
		default:
			return nil, fmt.Errorf("manifest line %d: bad nullability flag %q", lineNo, parts[4])
		}
		cols = append(cols, ManifestColumn{
			Schema:   parts[0],
			Table:    parts[1],
			Column:   parts[2],
			OrigType: parts[3],
			Nullable: nullable,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}
