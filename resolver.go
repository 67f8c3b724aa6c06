package main

import (
	"fmt"
)

// Renamer flattens DB2's per-table namespaces (indexes and constraints
// are named per table in the source) into PostgreSQL's shared per-schema
// namespace, deterministically renaming on collision.
//
// Resolution order is part of the contract: the same sequence of
// requests always yields the same names, so callers resolve in a fixed
// (sorted) order.
type Renamer struct {
	catalog *Catalog
	seeded  bool
	// (schema, chosen name) → object kind
	taken map[renameKey]string
	// Renames collects operator-visible notices for every non-identity
	// resolution, in request order.
	Renames []string
}

type renameKey struct {
	schema string
	name   string
}

// NewRenamer returns a Renamer over a fully built catalog.
func NewRenamer(catalog *Catalog) *Renamer {
	return &Renamer{catalog: catalog, taken: make(map[renameKey]string)}
}

// seed registers every table name in every schema. Tables anchor the
// new shared namespace and are never renamed, so they must be in place
// before any other object is resolved.
func (r *Renamer) seed() {
	for schemaName, schema := range r.catalog.Schemas {
		for tableName := range schema.Tables {
			r.taken[renameKey{schemaName, pgName(tableName)}] = "table"
		}
	}
	r.seeded = true
}

// Resolve returns a unique name for (schema, desired, kind), registering
// the choice so later calls observe it. Preference order: the desired
// name itself, then desired_kind, then desiredN for the smallest unused
// positive N.
func (r *Renamer) Resolve(schema, desired, kind string) string {
	if !r.seeded {
		r.seed()
	}
	desired = pgName(desired)

	if _, used := r.taken[renameKey{schema, desired}]; !used {
		r.taken[renameKey{schema, desired}] = kind
		return desired
	}

	chosen := desired + "_" + kind
	if _, used := r.taken[renameKey{schema, chosen}]; used {
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s%d", desired, n)
			if _, used := r.taken[renameKey{schema, candidate}]; !used {
				chosen = candidate
				break
			}
		}
	}

	r.taken[renameKey{schema, chosen}] = kind
	r.Renames = append(r.Renames,
		fmt.Sprintf("%s %s.%s renamed to %s.%s (name already in use)",
			kind, schema, desired, schema, chosen))
	return chosen
}
