package relational

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
)

// TableID identifies a table. Only Name is required; Database is a logical
// connection name and never appears in SQL.
type TableID struct {
	Database string
	Catalog  string
	Schema   string
	Name     string
}

// String joins the non-empty parts with dots.
func (id TableID) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{id.Database, id.Catalog, id.Schema, id.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Table is a relational table: columns, at most one primary key, and named
// unique and foreign keys. Key names share one namespace per table.
type Table struct {
	id          TableID
	quote       bool
	columns     map[string]*Column
	primaryKey  *Key
	uniqueKeys  map[string]*Key
	foreignKeys map[string]*Key
}

// NewTable creates an empty table. Identifiers are quoted by default.
func NewTable(id TableID) (*Table, error) {
	if id.Name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table name must not be empty")
	}
	return &Table{
		id:          id,
		quote:       true,
		columns:     make(map[string]*Column),
		uniqueKeys:  make(map[string]*Key),
		foreignKeys: make(map[string]*Key),
	}, nil
}

func (t *Table) ID() TableID      { return t.id }
func (t *Table) Name() string     { return t.id.Name }
func (t *Table) Database() string { return t.id.Database }
func (t *Table) Catalog() string  { return t.id.Catalog }
func (t *Table) Schema() string   { return t.id.Schema }

// QuoteIdentifiers reports whether generated SQL quotes this table's
// identifiers.
func (t *Table) QuoteIdentifiers() bool     { return t.quote }
func (t *Table) SetQuoteIdentifiers(q bool) { t.quote = q }

// --- columns ---

// AddColumn attaches col to t. It fails if the name is taken or the column
// already belongs to a table.
func (t *Table) AddColumn(col *Column) error {
	if col == nil {
		return errs.New(errs.ErrKindInvalidInput, "column must not be nil")
	}
	if col.table != nil {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s already belongs to table %s", col.name, col.table.id)
	}
	if _, ok := t.columns[col.name]; ok {
		return errs.Newf(errs.ErrKindConflict, "table %s already has a column %s", t.id, col.name)
	}
	col.table = t
	col.index = len(t.columns)
	t.columns[col.name] = col
	return nil
}

// CreateColumn returns the column called name, creating it if needed.
func (t *Table) CreateColumn(name string) (*Column, error) {
	if c, ok := t.columns[name]; ok {
		return c, nil
	}
	c, err := NewColumn(name)
	if err != nil {
		return nil, err
	}
	if err := t.AddColumn(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Table) Column(name string) *Column { return t.columns[name] }

// Columns returns all columns in row-buffer order.
func (t *Table) Columns() []*Column {
	out := slices.Collect(maps.Values(t.columns))
	slices.SortFunc(out, func(a, b *Column) int { return cmp.Compare(a.index, b.index) })
	return out
}

// --- keys ---

func (t *Table) keyNamed(name string) *Key {
	if t.primaryKey != nil && t.primaryKey.name == name {
		return t.primaryKey
	}
	if k, ok := t.uniqueKeys[name]; ok {
		return k
	}
	return t.foreignKeys[name]
}

// createKey implements create-or-get for all three key kinds.
func (t *Table) createKey(name string, kind KeyKind) (*Key, error) {
	if name == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s: key name must not be empty", t.id)
	}
	if k := t.keyNamed(name); k != nil {
		if k.kind != kind {
			return nil, errs.Newf(errs.ErrKindConflict, "table %s: key %s is a %s key, not a %s key", t.id, name, k.kind, kind)
		}
		return k, nil
	}
	k := &Key{name: name, kind: kind, table: t}
	switch kind {
	case PrimaryKey:
		if t.primaryKey != nil {
			return nil, errs.Newf(errs.ErrKindConflict, "table %s already has primary key %s", t.id, t.primaryKey.name)
		}
		t.primaryKey = k
	case UniqueKey:
		t.uniqueKeys[name] = k
	case ForeignKey:
		t.foreignKeys[name] = k
	}
	return k, nil
}

// CreatePrimaryKey returns the primary key called name, creating it if the
// table has none. A table with a differently named primary key conflicts.
func (t *Table) CreatePrimaryKey(name string) (*Key, error) { return t.createKey(name, PrimaryKey) }

// CreateUniqueKey returns the unique key called name, creating it if needed.
func (t *Table) CreateUniqueKey(name string) (*Key, error) { return t.createKey(name, UniqueKey) }

// CreateForeignKey returns the foreign key called name, creating it if needed.
func (t *Table) CreateForeignKey(name string) (*Key, error) { return t.createKey(name, ForeignKey) }

func (t *Table) PrimaryKey() *Key            { return t.primaryKey }
func (t *Table) UniqueKey(name string) *Key  { return t.uniqueKeys[name] }
func (t *Table) ForeignKey(name string) *Key { return t.foreignKeys[name] }

// CandidateKey returns the primary or unique key called name.
func (t *Table) CandidateKey(name string) *Key {
	if t.primaryKey != nil && t.primaryKey.name == name {
		return t.primaryKey
	}
	return t.uniqueKeys[name]
}

// UniqueKeys returns the unique keys sorted by name.
func (t *Table) UniqueKeys() []*Key { return sortedKeys(t.uniqueKeys) }

// ForeignKeys returns the foreign keys sorted by name.
func (t *Table) ForeignKeys() []*Key { return sortedKeys(t.foreignKeys) }

// OwnsKey reports whether k is literally one of t's registered keys.
func (t *Table) OwnsKey(k *Key) bool {
	if k == nil || k.table != t {
		return false
	}
	return t.keyNamed(k.name) == k
}

func sortedKeys(m map[string]*Key) []*Key {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b *Key) int { return strings.Compare(a.name, b.name) })
	return out
}
