package mapping

import (
	"encoding/xml"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// PropertyKind says which part of the document a property value comes from.
type PropertyKind int

const (
	AttributeProperty PropertyKind = iota + 1
	PCDATAProperty
	ElementProperty
)

func (k PropertyKind) String() string {
	switch k {
	case AttributeProperty:
		return "attribute"
	case PCDATAProperty:
		return "pcdata"
	case ElementProperty:
		return "element"
	default:
		return "unknown"
	}
}

// propertyInfo is the scalar description shared by PropertyMap, ColumnMap
// and PropertyTableMap. The inverter copies it verbatim between views.
type propertyInfo struct {
	name           xml.Name
	kind           PropertyKind
	tokenList      bool
	tokenListOrder *relational.OrderInfo
	order          *relational.OrderInfo
	containsXML    bool
}

func newPropertyInfo(name xml.Name, kind PropertyKind) (propertyInfo, error) {
	switch kind {
	case AttributeProperty, ElementProperty:
		if name.Local == "" {
			return propertyInfo{}, errs.Newf(errs.ErrKindInvalidInput, "%s property requires a name", kind)
		}
	case PCDATAProperty:
		name = xml.Name{}
	default:
		return propertyInfo{}, errs.Newf(errs.ErrKindInvalidInput, "unknown property kind %d", kind)
	}
	return propertyInfo{name: name, kind: kind}, nil
}

// Name is the attribute or element name; zero for PCDATA.
func (p *propertyInfo) Name() xml.Name     { return p.name }
func (p *propertyInfo) Kind() PropertyKind { return p.kind }

// IsTokenList reports whether the value is a whitespace-separated list
// stored one token per row.
func (p *propertyInfo) IsTokenList() bool { return p.tokenList }

// TokenListOrderInfo orders the tokens of a token list.
func (p *propertyInfo) TokenListOrderInfo() *relational.OrderInfo { return p.tokenListOrder }

// SetTokenList marks the property as a token list. order may be nil.
func (p *propertyInfo) SetTokenList(isTokenList bool, order *relational.OrderInfo) {
	p.tokenList = isTokenList
	if !isTokenList {
		order = nil
	}
	p.tokenListOrder = order
}

// OrderInfo orders the property among its siblings.
func (p *propertyInfo) OrderInfo() *relational.OrderInfo { return p.order }

// SetOrderInfo sets the sibling order. Attributes are unordered.
func (p *propertyInfo) SetOrderInfo(o *relational.OrderInfo) error {
	if p.kind == AttributeProperty && o != nil {
		return errs.Newf(errs.ErrKindInvalidInput, "attribute %s cannot have order information", p.name.Local)
	}
	p.order = o
	return nil
}

// ContainsXML reports whether an element property's value is stored as
// markup rather than text.
func (p *propertyInfo) ContainsXML() bool { return p.containsXML }

// SetContainsXML is only valid for element properties.
func (p *propertyInfo) SetContainsXML(b bool) error {
	if b && p.kind != ElementProperty {
		return errs.Newf(errs.ErrKindInvalidInput, "only element properties can contain markup, not %s", p.kind)
	}
	p.containsXML = b
	return nil
}

// Traits are the scalar flags and order information every property node
// carries, in either view.
type Traits struct {
	TokenList      bool
	TokenListOrder *relational.OrderInfo
	Order          *relational.OrderInfo
	ContainsXML    bool
}

func (p *propertyInfo) Traits() Traits {
	return Traits{
		TokenList:      p.tokenList,
		TokenListOrder: p.tokenListOrder,
		Order:          p.order,
		ContainsXML:    p.containsXML,
	}
}

// SetTraits applies t with the same checks as the individual setters.
func (p *propertyInfo) SetTraits(t Traits) error {
	if err := p.SetOrderInfo(t.Order); err != nil {
		return err
	}
	if err := p.SetContainsXML(t.ContainsXML); err != nil {
		return err
	}
	p.SetTokenList(t.TokenList, t.TokenListOrder)
	return nil
}

// PropertyMap maps an attribute, PCDATA or child element to a column,
// either in the class's own table or in a separate property table.
type PropertyMap struct {
	propertyInfo
	column *relational.Column
	table  *relational.Table
	link   *relational.LinkInfo
}

// NewPropertyMap creates an unmapped property. PCDATA properties ignore name.
func NewPropertyMap(name xml.Name, kind PropertyKind) (*PropertyMap, error) {
	info, err := newPropertyInfo(name, kind)
	if err != nil {
		return nil, err
	}
	return &PropertyMap{propertyInfo: info}, nil
}

func (p *PropertyMap) Column() *relational.Column { return p.column }

// SetColumn sets the column holding the value. When a property table is
// set, the column must belong to it.
func (p *PropertyMap) SetColumn(col *relational.Column) error {
	if col == nil {
		return errs.New(errs.ErrKindInvalidInput, "property column must not be nil")
	}
	if p.table != nil && col.Table() != p.table {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s is not in property table %s", col.Name(), p.table.ID())
	}
	p.column = col
	return nil
}

// Table is the separate property table, or nil when the value lives in
// the owning class's table.
func (p *PropertyMap) Table() *relational.Table      { return p.table }
func (p *PropertyMap) LinkInfo() *relational.LinkInfo { return p.link }

// IsPropertyTable reports whether the value lives in a separate table.
func (p *PropertyMap) IsPropertyTable() bool { return p.table != nil }

// SetTable stores the property in table t, joined to the class table by
// link. One side of the link must belong to t.
func (p *PropertyMap) SetTable(t *relational.Table, link *relational.LinkInfo) error {
	if t == nil || link == nil {
		return errs.New(errs.ErrKindInvalidInput, "property table and link are both required")
	}
	if link.ParentKey().Table() != t && link.ChildKey().Table() != t {
		return errs.Newf(errs.ErrKindInvalidInput, "link does not join property table %s", t.ID())
	}
	if p.column != nil && p.column.Table() != t {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s is not in property table %s", p.column.Name(), t.ID())
	}
	p.table = t
	p.link = link
	return nil
}
