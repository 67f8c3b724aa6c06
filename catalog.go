package main

// ConstraintKind discriminates the closed set of table constraint variants.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "pkey"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "fkey"
	ConstraintCheck      ConstraintKind = "check"
)

// Identity holds the attributes of a DB2 identity column.
type Identity struct {
	Always    bool // GENERATED ALWAYS (vs BY DEFAULT)
	Start     int64
	Increment int64
	MinValue  int64
	MaxValue  int64
	Cache     int64
	Cycle     bool
	Order     bool
}

// Column is a single table column in declared order.
type Column struct {
	Name     string
	Type     string // translated PostgreSQL type
	OrigType string // DB2 type as declared, kept for the column manifest
	Position int    // declared position, 1-based
	NotNull  bool
	// HasDefault is set for WITH DEFAULT clauses; Default is nil when the
	// clause carried no literal (DB2's type-dependent implicit default).
	HasDefault bool
	Default    *string
	Identity   *Identity
	Comment    string
}

// Constraint is a tagged variant over the closed constraint kinds.
// Name may be empty when the source omitted it.
type Constraint struct {
	Kind    ConstraintKind
	Name    string
	Columns []string // PK/Unique/FK local columns, in declared order

	// Foreign key fields
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
	Enforced   bool

	// Check condition, raw text
	Condition string
}

// IndexColumn is one key column of an index, with an optional direction.
type IndexColumn struct {
	Name string
	Desc bool
}

// Index is a DB2 index; Include lists covering (non-key) columns.
type Index struct {
	Name    string
	Columns []IndexColumn
	Unique  bool
	Include []string
}

// Table owns its columns (ordered), constraints and indexes.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *Constraint
	Constraints []Constraint
	Indexes     map[string]*Index
	Tablespace  string
	Comment     string
}

// Column returns the table's column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Sequence holds DB2 sequence attributes. Restart, when set, is the
// ALTER SEQUENCE RESTART WITH override.
type Sequence struct {
	Name      string
	Increment int64
	MinValue  int64
	MaxValue  int64
	Start     int64
	Cache     int64
	Cycle     bool
	Restart   *int64
}

// Domain is a single-base-type alias (DB2 CREATE DISTINCT TYPE).
type Domain struct {
	Name string
	Base string
}

// SQLObject is an unparsed view, trigger or function kept verbatim,
// along with the session context active when it was declared. The
// target's name resolution differs, so the emitter reconstructs that
// context explicitly.
type SQLObject struct {
	Name          string
	Schema        string
	Body          []string
	CurrentSchema string
	CurrentPath   string
	Comment       string
}

// Role is a database role plus any COMMENT ON ROLE text.
type Role struct {
	Name    string
	Comment string
}

// Tablespace records a source tablespace and its container clause.
type Tablespace struct {
	Name       string
	Containers string
}

// Schema owns all objects declared under one DB2 schema.
type Schema struct {
	Name          string
	Authorization string
	Sequences     map[string]*Sequence
	Domains       map[string]*Domain
	Tables        map[string]*Table
	Triggers      map[string]*SQLObject
	Functions     map[string]*SQLObject
}

// Catalog is the root of the in-memory model, built in one forward pass
// over the dump and read-only during emission.
//
// Views live at the catalog level rather than under a schema: the dump
// declares them positionally, under whatever CURRENT SCHEMA was active,
// and that context is captured per view instead.
type Catalog struct {
	Schemas     map[string]*Schema
	Roles       []*Role
	Tablespaces []*Tablespace
	Views       []*SQLObject

	// DefaultSchema is the first CURRENT SCHEMA directive seen in the
	// dump, used to reconstruct a default search path on emission.
	DefaultSchema string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{Schemas: make(map[string]*Schema)}
}

// SchemaByName returns the named schema, creating it on first use.
// db2look dumps reference schemas implicitly (a table creation may
// precede or replace any CREATE SCHEMA), so lookups always vivify.
func (c *Catalog) SchemaByName(name string) *Schema {
	s, ok := c.Schemas[name]
	if !ok {
		s = &Schema{
			Name:      name,
			Sequences: make(map[string]*Sequence),
			Domains:   make(map[string]*Domain),
			Tables:    make(map[string]*Table),
			Triggers:  make(map[string]*SQLObject),
			Functions: make(map[string]*SQLObject),
		}
		c.Schemas[name] = s
	}
	return s
}

// RoleByName returns the named role, creating it on first use.
func (c *Catalog) RoleByName(name string) *Role {
	for _, r := range c.Roles {
		if r.Name == name {
			return r
		}
	}
	r := &Role{Name: name}
	c.Roles = append(c.Roles, r)
	return r
}
