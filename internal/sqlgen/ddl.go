// Package sqlgen turns the relational graph of a map into SQL text for a
// dialect.Descriptor. It reads only tables, keys and columns.
package sqlgen

import (
	"strconv"
	"strings"

	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/relational"
)

// TableSource provides the tables to create. *mapping.Map implements it.
type TableSource interface {
	Tables() []*relational.Table
}

// DDLGenerator writes CREATE TABLE statements.
type DDLGenerator struct {
	d   *dialect.Descriptor
	log *logger.Logger
}

// NewDDLGenerator returns a generator for d. A nil d means dialect.Default();
// a nil log discards warnings.
func NewDDLGenerator(d *dialect.Descriptor, log *logger.Logger) *DDLGenerator {
	if d == nil {
		d = dialect.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DDLGenerator{d: d, log: log.Component("ddl")}
}

// StatementsForAllTables returns one CREATE TABLE per table of src, with
// referenced tables first.
func (g *DDLGenerator) StatementsForAllTables(src TableSource) ([]string, error) {
	if src == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "table source must not be nil")
	}
	tables := orderByDependency(src.Tables())
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		stmt, err := g.CreateTable(t)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// CreateTable returns the CREATE TABLE statement for t:
//
//	CREATE TABLE name (col type[(params)] [NOT] NULL, ..., CONSTRAINT ...)
func (g *DDLGenerator) CreateTable(t *relational.Table) (string, error) {
	if t == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	q := t.QuoteIdentifiers()

	var defs []string
	for _, c := range t.Columns() {
		defs = append(defs, g.columnDef(c))
	}

	if pk := t.PrimaryKey(); pk != nil {
		def, err := g.keyConstraint(pk, "PRIMARY KEY", q)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	for _, uk := range t.UniqueKeys() {
		def, err := g.keyConstraint(uk, "UNIQUE", q)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	for _, fk := range t.ForeignKeys() {
		def, err := g.foreignKeyConstraint(fk, q)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "table %s has no columns", t.ID())
	}
	return "CREATE TABLE " + g.d.QualifiedName(t) + " (" + strings.Join(defs, ", ") + ")", nil
}

func (g *DDLGenerator) columnDef(c *relational.Column) string {
	var b strings.Builder
	b.WriteString(g.d.ColumnName(c))

	if typ := c.Type(); typ.IsSet() {
		b.WriteString(" ")
		b.WriteString(g.typeClause(c))
	} else {
		g.log.Warnf("column %s.%s has no type", c.Table().ID(), c.Name())
	}

	switch c.Nullability() {
	case relational.NotNullable:
		b.WriteString(" NOT NULL")
	case relational.Nullable:
		b.WriteString(" NULL")
	}
	return b.String()
}

// typeClause renders the dialect's type name followed by the parameters
// the type takes and the column has set, in the dialect's order.
func (g *DDLGenerator) typeClause(c *relational.Column) string {
	ti, ok := g.d.TypeInfo(c.Type())
	if !ok {
		g.log.Warnf("dialect has no name for %s, using the standard name for column %s.%s",
			c.Type(), c.Table().ID(), c.Name())
		ti = dialect.TypeInfo{Name: c.Type().String()}
	}

	var params []string
	for _, p := range ti.Params() {
		var v int
		var set bool
		switch p {
		case dialect.ParamLength:
			v, set = c.Length()
		case dialect.ParamPrecision:
			v, set = c.Precision()
		case dialect.ParamScale:
			v, set = c.Scale()
		}
		if set {
			params = append(params, strconv.Itoa(v))
		}
	}
	if len(params) == 0 {
		return ti.Name
	}
	return ti.Name + "(" + strings.Join(params, ",") + ")"
}

func (g *DDLGenerator) keyConstraint(k *relational.Key, kind string, quote bool) (string, error) {
	cols := k.Columns()
	if len(cols) == 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "key %s of table %s has no columns", k.Name(), k.Table().ID())
	}
	return "CONSTRAINT " + g.d.QuoteIdent(k.Name(), quote) + " " + kind + " (" + g.columnList(cols) + ")", nil
}

func (g *DDLGenerator) foreignKeyConstraint(fk *relational.Key, quote bool) (string, error) {
	def, err := g.keyConstraint(fk, "FOREIGN KEY", quote)
	if err != nil {
		return "", err
	}
	remote := fk.RemoteKey()
	if remote == nil {
		return "", errs.Newf(errs.ErrKindInvalidInput, "foreign key %s of table %s references no key", fk.Name(), fk.Table().ID())
	}
	return def + " REFERENCES " + g.d.QualifiedName(fk.RemoteTable()) + " (" + g.columnList(remote.Columns()) + ")", nil
}

func (g *DDLGenerator) columnList(cols []*relational.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = g.d.ColumnName(c)
	}
	return strings.Join(names, ", ")
}
