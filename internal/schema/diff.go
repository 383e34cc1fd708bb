package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Compare inspects every table in tables and reports how the live
// definitions differ from the mapped ones. Column types are not compared:
// names reported by information_schema rarely match dialect type names.
func Compare(ctx context.Context, r Reader, tables []*relational.Table) ([]Drift, error) {
	var drifts []Drift
	for _, t := range tables {
		live, err := r.InspectTable(ctx, t.ID())
		if errs.IsNotFound(err) {
			drifts = append(drifts, Drift{Kind: MissingTable, Table: t.ID()})
			continue
		}
		if err != nil {
			return nil, err
		}
		drifts = append(drifts, compareTable(t, live)...)
	}
	return drifts, nil
}

func compareTable(t *relational.Table, live *TableInfo) []Drift {
	var out []Drift
	add := func(kind DriftKind, column, detail string) {
		out = append(out, Drift{Kind: kind, Table: t.ID(), Column: column, Detail: detail})
	}

	for _, c := range t.Columns() {
		lc := live.Column(c.Name())
		if lc == nil {
			add(MissingColumn, c.Name(), "")
			continue
		}
		switch c.Nullability() {
		case relational.Nullable:
			if !lc.IsNullable {
				add(NullabilityMismatch, c.Name(), "mapped nullable, database NOT NULL")
			}
		case relational.NotNullable:
			if lc.IsNullable {
				add(NullabilityMismatch, c.Name(), "mapped NOT NULL, database nullable")
			}
		}
		if n, ok := c.Length(); ok && lc.MaxLength != nil && *lc.MaxLength != n {
			add(LengthMismatch, c.Name(), fmt.Sprintf("mapped %d, database %d", n, *lc.MaxLength))
		}
	}

	for _, lc := range live.Columns {
		if t.Column(lc.Name) == nil {
			add(ExtraColumn, lc.Name, "")
		}
	}

	var mapped, actual []string
	if pk := t.PrimaryKey(); pk != nil {
		for _, c := range pk.Columns() {
			mapped = append(mapped, c.Name())
		}
	}
	for _, lc := range live.Columns {
		if lc.IsPrimaryKey {
			actual = append(actual, lc.Name)
		}
	}
	slices.Sort(mapped)
	slices.Sort(actual)
	if !slices.Equal(mapped, actual) {
		add(PrimaryKeyMismatch, "", fmt.Sprintf("mapped (%s), database (%s)", strings.Join(mapped, ", "), strings.Join(actual, ", ")))
	}
	return out
}
