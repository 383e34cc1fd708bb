package schema

import (
	"fmt"

	"github.com/koustreak/xmldbms/internal/relational"
)

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name         string
	DataType     string // as information_schema reports it: integer, varchar, ...
	IsNullable   bool
	IsPrimaryKey bool
	MaxLength    *int // nil for non-char types
}

// TableInfo describes a table and its columns
type TableInfo struct {
	ID      relational.TableID
	Columns []ColumnInfo
}

// Column returns the named column, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// DriftKind classifies a difference between a mapped table and the live one.
type DriftKind int

const (
	MissingTable DriftKind = iota
	MissingColumn
	ExtraColumn
	NullabilityMismatch
	LengthMismatch
	PrimaryKeyMismatch
)

func (k DriftKind) String() string {
	switch k {
	case MissingTable:
		return "missing table"
	case MissingColumn:
		return "missing column"
	case ExtraColumn:
		return "extra column"
	case NullabilityMismatch:
		return "nullability"
	case LengthMismatch:
		return "length"
	case PrimaryKeyMismatch:
		return "primary key"
	default:
		return "unknown"
	}
}

// Drift is one difference found by Compare. Column is empty for
// table-level differences.
type Drift struct {
	Kind   DriftKind
	Table  relational.TableID
	Column string
	Detail string
}

func (d Drift) String() string {
	where := d.Table.String()
	if d.Column != "" {
		where += "." + d.Column
	}
	if d.Detail == "" {
		return fmt.Sprintf("%s: %s", where, d.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", where, d.Kind, d.Detail)
}
