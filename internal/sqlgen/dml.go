package sqlgen

import (
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// DMLGenerator writes parameterized INSERT, SELECT, UPDATE and DELETE
// statements. Parameters follow column order; no values are inlined.
type DMLGenerator struct {
	d *dialect.Descriptor
}

// NewDMLGenerator returns a generator for d; nil means dialect.Default().
func NewDMLGenerator(d *dialect.Descriptor) *DMLGenerator {
	if d == nil {
		d = dialect.Default()
	}
	return &DMLGenerator{d: d}
}

// params numbers placeholders across one statement.
type params struct {
	d *dialect.Descriptor
	n int
}

func (p *params) next() string {
	p.n++
	return p.d.Param(p.n)
}

// Insert returns an INSERT of every column of t.
func (g *DMLGenerator) Insert(t *relational.Table) (string, error) {
	if t == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	return g.InsertColumns(t, t.Columns()...)
}

// InsertColumns returns an INSERT of the given columns of t.
func (g *DMLGenerator) InsertColumns(t *relational.Table, cols ...*relational.Column) (string, error) {
	if err := checkColumns(t, cols, "insert"); err != nil {
		return "", err
	}
	p := &params{d: g.d}
	values := make([]string, len(cols))
	for i := range cols {
		values[i] = p.next()
	}
	return "INSERT INTO " + g.d.QualifiedName(t) + " (" + g.columnList(cols) + ") VALUES (" + strings.Join(values, ", ") + ")", nil
}

// Select returns a SELECT of valueCols (every column when nil) from t
// where each key column equals a parameter. Only a column order adds an
// ORDER BY; descending order appends DESC.
func (g *DMLGenerator) Select(t *relational.Table, keyCols, valueCols []*relational.Column, order *relational.OrderInfo) (string, error) {
	if t == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	if valueCols == nil {
		valueCols = t.Columns()
	}
	if err := checkColumns(t, valueCols, "select"); err != nil {
		return "", err
	}
	if len(keyCols) > 0 {
		if err := checkColumns(t, keyCols, "select"); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(g.columnList(valueCols))
	b.WriteString(" FROM ")
	b.WriteString(g.d.QualifiedName(t))
	p := &params{d: g.d}
	g.where(&b, keyCols, p)

	if order != nil && !order.IsFixed() {
		col := order.Column()
		if col == nil {
			return "", errs.New(errs.ErrKindInvalidInput, "order info has neither a value nor a column")
		}
		if col.Table() != t {
			return "", errs.Newf(errs.ErrKindInvalidInput, "order column %s is not in table %s", col.Name(), t.ID())
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(g.d.ColumnName(col))
		if !order.IsAscending() {
			b.WriteString(" DESC")
		}
	}
	return b.String(), nil
}

// Update returns an UPDATE of cols (every non-key column when nil) in the
// row identified by key.
func (g *DMLGenerator) Update(t *relational.Table, key *relational.Key, cols []*relational.Column) (string, error) {
	if err := checkKey(t, key); err != nil {
		return "", err
	}
	keyCols := key.Columns()
	if cols == nil {
		for _, c := range t.Columns() {
			if !slices.Contains(keyCols, c) {
				cols = append(cols, c)
			}
		}
	}
	if err := checkColumns(t, cols, "update"); err != nil {
		return "", err
	}

	p := &params{d: g.d}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = g.d.ColumnName(c) + " = " + p.next()
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(g.d.QualifiedName(t))
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	g.where(&b, keyCols, p)
	return b.String(), nil
}

// Delete returns a DELETE of the row identified by key.
func (g *DMLGenerator) Delete(t *relational.Table, key *relational.Key) (string, error) {
	if err := checkKey(t, key); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(g.d.QualifiedName(t))
	g.where(&b, key.Columns(), &params{d: g.d})
	return b.String(), nil
}

func (g *DMLGenerator) where(b *strings.Builder, keyCols []*relational.Column, p *params) {
	if len(keyCols) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	for i, c := range keyCols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(g.d.ColumnName(c))
		b.WriteString(" = ")
		b.WriteString(p.next())
	}
}

func (g *DMLGenerator) columnList(cols []*relational.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = g.d.ColumnName(c)
	}
	return strings.Join(names, ", ")
}

func checkColumns(t *relational.Table, cols []*relational.Column, op string) error {
	if t == nil {
		return errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	if len(cols) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "%s on table %s needs at least one column", op, t.ID())
	}
	for _, c := range cols {
		if c == nil || c.Table() != t {
			return errs.Newf(errs.ErrKindInvalidInput, "%s: column is not in table %s", op, t.ID())
		}
	}
	return nil
}

func checkKey(t *relational.Table, key *relational.Key) error {
	if t == nil {
		return errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	if !t.OwnsKey(key) {
		return errs.Newf(errs.ErrKindInvalidInput, "key is not registered on table %s", t.ID())
	}
	if len(key.Columns()) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s of table %s has no columns", key.Name(), t.ID())
	}
	return nil
}

// TableStatements is the DML for one table, keyed by its primary key.
// Statements that need a key are empty when the table has none.
type TableStatements struct {
	Insert string `json:"insert"`
	Select string `json:"select"`
	Update string `json:"update,omitempty"`
	Delete string `json:"delete,omitempty"`
}

// StatementsFor returns the INSERT, SELECT, UPDATE and DELETE of t.
func (g *DMLGenerator) StatementsFor(t *relational.Table) (*TableStatements, error) {
	var (
		out TableStatements
		err error
	)
	if out.Insert, err = g.Insert(t); err != nil {
		return nil, err
	}
	pk := t.PrimaryKey()
	var keyCols []*relational.Column
	if pk != nil {
		keyCols = pk.Columns()
	}
	if out.Select, err = g.Select(t, keyCols, nil, nil); err != nil {
		return nil, err
	}
	if pk == nil {
		return &out, nil
	}
	if len(t.Columns()) > len(keyCols) {
		if out.Update, err = g.Update(t, pk, nil); err != nil {
			return nil, err
		}
	}
	if out.Delete, err = g.Delete(t, pk); err != nil {
		return nil, err
	}
	return &out, nil
}
