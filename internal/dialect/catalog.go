package dialect

import (
	"context"
	"fmt"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Capabilities are the identifier and parameter conventions a live
// database reports.
type Capabilities struct {
	IdentifierQuote  string
	CatalogAtStart   bool
	CatalogSeparator string
	Placeholder      Placeholder
}

// CatalogType is one row of a database's type catalog.
type CatalogType struct {
	Name         string
	SQLType      relational.SQLType
	CreateParams string
}

// Catalog is implemented by database drivers that can describe themselves.
type Catalog interface {
	Capabilities(ctx context.Context) (Capabilities, error)
	Types(ctx context.Context) ([]CatalogType, error)
}

// FromCatalog builds a descriptor from what c reports. When several
// database types map to one SQL type, the first reported wins. SQL types
// the database does not report are left out.
func FromCatalog(ctx context.Context, c Catalog) (*Descriptor, error) {
	if c == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "catalog must not be nil")
	}
	caps, err := c.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("read capabilities: %w", err)
	}
	types, err := c.Types(ctx)
	if err != nil {
		return nil, fmt.Errorf("read type catalog: %w", err)
	}

	d := &Descriptor{
		IdentifierQuote:  caps.IdentifierQuote,
		CatalogAtStart:   caps.CatalogAtStart,
		CatalogSeparator: caps.CatalogSeparator,
		Placeholder:      caps.Placeholder,
		Types:            make(map[relational.SQLType]TypeInfo),
	}
	if d.CatalogSeparator == "" {
		d.CatalogSeparator = "."
	}
	for _, ct := range types {
		if !ct.SQLType.IsSet() || ct.Name == "" {
			continue
		}
		if _, seen := d.Types[ct.SQLType]; seen {
			continue
		}
		d.Types[ct.SQLType] = TypeInfo{Name: ct.Name, CreateParams: ct.CreateParams}
	}
	return d, nil
}

// Overrides adjust a descriptor from configuration. Nil fields keep the
// descriptor's value.
type Overrides struct {
	IdentifierQuote  *string                 `yaml:"identifier_quote"`
	CatalogAtStart   *bool                   `yaml:"catalog_at_start"`
	CatalogSeparator *string                 `yaml:"catalog_separator"`
	Placeholder      string                  `yaml:"placeholder"`
	Types            map[string]TypeOverride `yaml:"types"`
}

// TypeOverride replaces the dialect entry for the SQL type named by its key.
type TypeOverride struct {
	Name   string `yaml:"name"`
	Params string `yaml:"params"`
}

// Apply writes o onto d.
func (d *Descriptor) Apply(o Overrides) error {
	if o.IdentifierQuote != nil {
		d.IdentifierQuote = *o.IdentifierQuote
	}
	if o.CatalogAtStart != nil {
		d.CatalogAtStart = *o.CatalogAtStart
	}
	if o.CatalogSeparator != nil {
		d.CatalogSeparator = *o.CatalogSeparator
	}
	if o.Placeholder != "" {
		p, ok := ParsePlaceholder(o.Placeholder)
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown placeholder style %q", o.Placeholder)
		}
		d.Placeholder = p
	}
	for typeName, to := range o.Types {
		t, ok := relational.ParseSQLType(typeName)
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown SQL type %q in dialect overrides", typeName)
		}
		if to.Name == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "dialect override for %s needs a name", t)
		}
		if d.Types == nil {
			d.Types = make(map[relational.SQLType]TypeInfo)
		}
		d.Types[t] = TypeInfo{Name: to.Name, CreateParams: to.Params}
	}
	return nil
}
