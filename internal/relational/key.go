package relational

import "github.com/koustreak/xmldbms/internal/errs"

// KeyKind distinguishes candidate keys from foreign keys.
type KeyKind int

const (
	PrimaryKey KeyKind = iota + 1
	UniqueKey
	ForeignKey
)

func (k KeyKind) String() string {
	switch k {
	case PrimaryKey:
		return "primary"
	case UniqueKey:
		return "unique"
	case ForeignKey:
		return "foreign"
	default:
		return "unknown"
	}
}

// KeyGeneration says where the values of a primary or unique key come from.
type KeyGeneration int

const (
	// FromDocument: key values are read from the document.
	FromDocument KeyGeneration = iota
	// FromGenerator: key values come from a named application generator.
	FromGenerator
	// FromDatabase: the database assigns key values (identity, serial, ...).
	FromDatabase
)

func (g KeyGeneration) String() string {
	switch g {
	case FromGenerator:
		return "generator"
	case FromDatabase:
		return "database"
	default:
		return "document"
	}
}

// Key is a primary, unique or foreign key of a Table. Column order is
// significant: multi-column keys are compared position by position.
type Key struct {
	name    string
	kind    KeyKind
	table   *Table
	columns []*Column

	// primary / unique only
	generation    KeyGeneration
	generatorName string

	// foreign only; references, not ownership
	remoteTable *Table
	remoteKey   *Key
}

func (k *Key) Name() string  { return k.name }
func (k *Key) Kind() KeyKind { return k.kind }

// Table returns the table that owns the key.
func (k *Key) Table() *Table { return k.table }

// IsCandidate reports whether k is a primary or unique key.
func (k *Key) IsCandidate() bool { return k.kind == PrimaryKey || k.kind == UniqueKey }

// Columns returns the key columns in key order.
func (k *Key) Columns() []*Column {
	out := make([]*Column, len(k.columns))
	copy(out, k.columns)
	return out
}

// SetColumns replaces the key columns. Every column must belong to the
// key's own table and appear once.
func (k *Key) SetColumns(cols ...*Column) error {
	if len(cols) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: at least one column is required", k.name)
	}
	seen := make(map[*Column]bool, len(cols))
	for _, c := range cols {
		if c == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "key %s: nil column", k.name)
		}
		if c.table != k.table {
			return errs.Newf(errs.ErrKindInvalidInput, "key %s: column %s does not belong to table %s", k.name, c.name, k.table.id)
		}
		if seen[c] {
			return errs.Newf(errs.ErrKindInvalidInput, "key %s: column %s listed twice", k.name, c.name)
		}
		seen[c] = true
	}
	if k.remoteKey != nil && len(k.remoteKey.columns) > 0 && len(k.remoteKey.columns) != len(cols) {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: %d columns do not match %d columns of remote key %s",
			k.name, len(cols), len(k.remoteKey.columns), k.remoteKey.name)
	}
	k.columns = append(k.columns[:0:0], cols...)
	return nil
}

func (k *Key) Generation() KeyGeneration { return k.generation }

// GeneratorName is the logical generator for FromGenerator keys.
func (k *Key) GeneratorName() string { return k.generatorName }

// SetGeneration records where key values come from. generator must be
// non-empty for FromGenerator and empty otherwise.
func (k *Key) SetGeneration(mode KeyGeneration, generator string) error {
	if !k.IsCandidate() {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: only primary and unique keys have a generation mode", k.name)
	}
	switch mode {
	case FromGenerator:
		if generator == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "key %s: generator name required", k.name)
		}
	case FromDocument, FromDatabase:
		if generator != "" {
			return errs.Newf(errs.ErrKindInvalidInput, "key %s: generator name only allowed with generator mode", k.name)
		}
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: unknown generation mode %d", k.name, mode)
	}
	k.generation = mode
	k.generatorName = generator
	return nil
}

// RemoteTable is the table referenced by a foreign key.
func (k *Key) RemoteTable() *Table { return k.remoteTable }

// RemoteKey is the candidate key referenced by a foreign key.
func (k *Key) RemoteKey() *Key { return k.remoteKey }

// SetRemoteKey points a foreign key at a candidate key of table. The key
// must be the very key object registered on table; a structurally equal
// copy is rejected.
func (k *Key) SetRemoteKey(table *Table, key *Key) error {
	if k.kind != ForeignKey {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: only foreign keys reference a remote key", k.name)
	}
	if table == nil || key == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: remote table and key are required", k.name)
	}
	if !key.IsCandidate() {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: remote key %s is not a primary or unique key", k.name, key.name)
	}
	if !table.OwnsKey(key) {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: key %s is not registered on table %s", k.name, key.name, table.id)
	}
	if len(k.columns) > 0 && len(key.columns) > 0 && len(k.columns) != len(key.columns) {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: %d columns do not match %d columns of remote key %s",
			k.name, len(k.columns), len(key.columns), key.name)
	}
	k.remoteTable = table
	k.remoteKey = key
	return nil
}
