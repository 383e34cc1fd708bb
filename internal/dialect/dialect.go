// Package dialect describes the SQL conventions of a target database:
// identifier quoting, where the catalog goes in a qualified name, how
// parameters are written, and what each SQL type is called and which
// parameters it takes in a CREATE TABLE.
//
// A Descriptor comes from Default, or from FromCatalog with a live
// database, and can be adjusted with Overrides from configuration.
package dialect

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/koustreak/xmldbms/internal/relational"
)

// Placeholder is the positional parameter syntax.
type Placeholder int

const (
	// PlaceholderQuestion writes every parameter as "?".
	PlaceholderQuestion Placeholder = iota
	// PlaceholderDollar writes parameters as "$1", "$2", ...
	PlaceholderDollar
)

func (p Placeholder) String() string {
	if p == PlaceholderDollar {
		return "dollar"
	}
	return "question"
}

// ParsePlaceholder accepts "question", "?", "dollar" and "$".
func ParsePlaceholder(s string) (Placeholder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "question", "?":
		return PlaceholderQuestion, true
	case "dollar", "$":
		return PlaceholderDollar, true
	}
	return PlaceholderQuestion, false
}

// Param is a type parameter that may appear in a CREATE TABLE column type.
type Param int

const (
	ParamLength Param = iota + 1
	ParamPrecision
	ParamScale
)

func (p Param) String() string {
	switch p {
	case ParamLength:
		return "length"
	case ParamPrecision:
		return "precision"
	case ParamScale:
		return "scale"
	}
	return "unknown"
}

// TypeInfo is the dialect's name for a SQL type and the parameters it
// accepts, written the way database catalogs report them, for example
// "length" or "precision,scale".
type TypeInfo struct {
	Name         string
	CreateParams string
}

// Params returns the parameters named in CreateParams in the order they
// appear there.
func (ti TypeInfo) Params() []Param {
	spec := strings.ToLower(ti.CreateParams)
	type hit struct {
		param Param
		pos   int
	}
	var hits []hit
	for _, p := range []Param{ParamLength, ParamPrecision, ParamScale} {
		if pos := strings.Index(spec, p.String()); pos >= 0 {
			hits = append(hits, hit{p, pos})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int { return cmp.Compare(a.pos, b.pos) })

	out := make([]Param, len(hits))
	for i, h := range hits {
		out[i] = h.param
	}
	return out
}

// Descriptor is the set of conventions SQL generation needs.
type Descriptor struct {
	// IdentifierQuote wraps identifiers. Empty or " " disables quoting.
	IdentifierQuote string
	// CatalogAtStart puts the catalog before the schema; otherwise it
	// goes after the table name.
	CatalogAtStart   bool
	CatalogSeparator string
	Placeholder      Placeholder
	Types            map[relational.SQLType]TypeInfo
}

// Default returns ANSI conventions: double-quoted identifiers, catalog
// first separated by ".", "?" parameters and the standard type names.
func Default() *Descriptor {
	return &Descriptor{
		IdentifierQuote:  `"`,
		CatalogAtStart:   true,
		CatalogSeparator: ".",
		Placeholder:      PlaceholderQuestion,
		Types:            defaultTypes(),
	}
}

func defaultTypes() map[relational.SQLType]TypeInfo {
	types := make(map[relational.SQLType]TypeInfo)
	for _, t := range relational.AllSQLTypes() {
		types[t] = TypeInfo{Name: t.String()}
	}
	for _, t := range []relational.SQLType{relational.TypeChar, relational.TypeVarChar, relational.TypeBinary, relational.TypeVarBinary} {
		types[t] = TypeInfo{Name: t.String(), CreateParams: "length"}
	}
	for _, t := range []relational.SQLType{relational.TypeNumeric, relational.TypeDecimal} {
		types[t] = TypeInfo{Name: t.String(), CreateParams: "precision,scale"}
	}
	types[relational.TypeFloat] = TypeInfo{Name: "FLOAT", CreateParams: "precision"}
	types[relational.TypeDouble] = TypeInfo{Name: "DOUBLE PRECISION"}
	types[relational.TypeLongVarChar] = TypeInfo{Name: "CLOB"}
	types[relational.TypeLongVarBinary] = TypeInfo{Name: "BLOB"}
	return types
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Types = maps.Clone(d.Types)
	return &c
}

// TypeInfo returns the dialect's entry for t.
func (d *Descriptor) TypeInfo(t relational.SQLType) (TypeInfo, bool) {
	ti, ok := d.Types[t]
	return ti, ok
}

func (d *Descriptor) quotes() bool {
	return d.IdentifierQuote != "" && d.IdentifierQuote != " "
}

// QuoteIdent quotes s when quote is set and the dialect quotes at all.
// Embedded quote strings are doubled.
func (d *Descriptor) QuoteIdent(s string, quote bool) string {
	if !quote || !d.quotes() {
		return s
	}
	q := d.IdentifierQuote
	return q + strings.ReplaceAll(s, q, q+q) + q
}

// ColumnName quotes a column per its table's quoting flag.
func (d *Descriptor) ColumnName(c *relational.Column) string {
	quote := true
	if t := c.Table(); t != nil {
		quote = t.QuoteIdentifiers()
	}
	return d.QuoteIdent(c.Name(), quote)
}

// QualifiedName renders t's catalog, schema and name. The logical
// database name never appears in SQL.
func (d *Descriptor) QualifiedName(t *relational.Table) string {
	q := t.QuoteIdentifiers()
	var b strings.Builder
	if t.Catalog() != "" && d.CatalogAtStart {
		b.WriteString(d.QuoteIdent(t.Catalog(), q))
		b.WriteString(d.CatalogSeparator)
	}
	if t.Schema() != "" {
		b.WriteString(d.QuoteIdent(t.Schema(), q))
		b.WriteString(".")
	}
	b.WriteString(d.QuoteIdent(t.Name(), q))
	if t.Catalog() != "" && !d.CatalogAtStart {
		b.WriteString(d.CatalogSeparator)
		b.WriteString(d.QuoteIdent(t.Catalog(), q))
	}
	return b.String()
}

// Param returns the placeholder for the n-th parameter, counting from 1.
func (d *Descriptor) Param(n int) string {
	if d.Placeholder == PlaceholderDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
