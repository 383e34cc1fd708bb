package mapping

import (
	"encoding/xml"
	"maps"
	"slices"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// ChildKind is the shape of a child element mapping.
type ChildKind int

const (
	ChildProperty ChildKind = iota + 1
	ChildRelatedClass
	ChildInlineClass
)

func (k ChildKind) String() string {
	switch k {
	case ChildProperty:
		return "property"
	case ChildRelatedClass:
		return "related class"
	case ChildInlineClass:
		return "inline class"
	default:
		return "unknown"
	}
}

// Child is the mapping of one child element: exactly one of a property
// map, a related class map or an inline class map, selected by Kind.
type Child struct {
	kind     ChildKind
	property *PropertyMap
	related  *RelatedClassMap
	inline   *InlineClassMap
}

func (c Child) Kind() ChildKind { return c.kind }

// Name is the child element name.
func (c Child) Name() xml.Name {
	switch c.kind {
	case ChildProperty:
		return c.property.Name()
	case ChildRelatedClass:
		return c.related.Name()
	case ChildInlineClass:
		return c.inline.Name()
	}
	return xml.Name{}
}

// PropertyMap is non-nil only for ChildProperty.
func (c Child) PropertyMap() *PropertyMap { return c.property }

// RelatedClassMap is non-nil only for ChildRelatedClass.
func (c Child) RelatedClassMap() *RelatedClassMap { return c.related }

// InlineClassMap is non-nil only for ChildInlineClass.
func (c Child) InlineClassMap() *InlineClassMap { return c.inline }

// ElementContainer is implemented by ClassMap and InlineClassMap.
type ElementContainer interface {
	AttributeMaps() []*PropertyMap
	PCDATAMap() *PropertyMap
	Children() []Child
}

// elementContent holds the attribute, PCDATA and child maps shared by
// ClassMap and InlineClassMap.
type elementContent struct {
	attributes map[xml.Name]*PropertyMap
	pcdata     *PropertyMap
	children   map[xml.Name]Child
}

func newElementContent() elementContent {
	return elementContent{
		attributes: make(map[xml.Name]*PropertyMap),
		children:   make(map[xml.Name]Child),
	}
}

// --- attributes ---

// CreateAttributeMap returns the attribute map for name, creating it if needed.
func (e *elementContent) CreateAttributeMap(name xml.Name) (*PropertyMap, error) {
	if pm, ok := e.attributes[name]; ok {
		return pm, nil
	}
	pm, err := NewPropertyMap(name, AttributeProperty)
	if err != nil {
		return nil, err
	}
	e.attributes[name] = pm
	return pm, nil
}

// AddAttributeMap adds pm; it fails if the attribute is already mapped.
func (e *elementContent) AddAttributeMap(pm *PropertyMap) error {
	if pm == nil || pm.Kind() != AttributeProperty {
		return errs.New(errs.ErrKindInvalidInput, "attribute map required")
	}
	if _, ok := e.attributes[pm.Name()]; ok {
		return errs.Newf(errs.ErrKindConflict, "attribute %s is already mapped", pm.Name().Local)
	}
	e.attributes[pm.Name()] = pm
	return nil
}

func (e *elementContent) AttributeMap(name xml.Name) *PropertyMap { return e.attributes[name] }

// AttributeMaps returns the attribute maps sorted by name.
func (e *elementContent) AttributeMaps() []*PropertyMap {
	out := slices.Collect(maps.Values(e.attributes))
	slices.SortFunc(out, func(a, b *PropertyMap) int { return CompareNames(a.Name(), b.Name()) })
	return out
}

// --- PCDATA ---

// CreatePCDATAMap returns the PCDATA map, creating it if needed.
func (e *elementContent) CreatePCDATAMap() (*PropertyMap, error) {
	if e.pcdata != nil {
		return e.pcdata, nil
	}
	pm, err := NewPropertyMap(xml.Name{}, PCDATAProperty)
	if err != nil {
		return nil, err
	}
	e.pcdata = pm
	return pm, nil
}

// SetPCDATAMap sets the PCDATA map; it fails if one is already set.
func (e *elementContent) SetPCDATAMap(pm *PropertyMap) error {
	if pm == nil || pm.Kind() != PCDATAProperty {
		return errs.New(errs.ErrKindInvalidInput, "PCDATA map required")
	}
	if e.pcdata != nil {
		return errs.New(errs.ErrKindConflict, "PCDATA is already mapped")
	}
	e.pcdata = pm
	return nil
}

func (e *elementContent) PCDATAMap() *PropertyMap { return e.pcdata }

// --- child elements ---

func (e *elementContent) Child(name xml.Name) (Child, bool) {
	c, ok := e.children[name]
	return c, ok
}

// Children returns the child mappings sorted by element name.
func (e *elementContent) Children() []Child {
	out := slices.Collect(maps.Values(e.children))
	slices.SortFunc(out, func(a, b Child) int { return CompareNames(a.Name(), b.Name()) })
	return out
}

func shapeConflict(name xml.Name, have, want ChildKind) error {
	return errs.Newf(errs.ErrKindConflict, "child %s is already mapped as a %s, cannot map it as a %s", name.Local, have, want)
}

// CreateChildPropertyMap returns the property map for child element name,
// creating it if needed. A child mapped with another shape is a conflict.
func (e *elementContent) CreateChildPropertyMap(name xml.Name) (*PropertyMap, error) {
	if c, ok := e.children[name]; ok {
		if c.kind != ChildProperty {
			return nil, shapeConflict(name, c.kind, ChildProperty)
		}
		return c.property, nil
	}
	pm, err := NewPropertyMap(name, ElementProperty)
	if err != nil {
		return nil, err
	}
	e.children[name] = Child{kind: ChildProperty, property: pm}
	return pm, nil
}

// CreateRelatedClassMap returns the related class map for cm's element,
// creating it if needed.
func (e *elementContent) CreateRelatedClassMap(cm *ClassMap) (*RelatedClassMap, error) {
	if cm == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "related class map requires a class map")
	}
	if c, ok := e.children[cm.Name()]; ok {
		if c.kind != ChildRelatedClass {
			return nil, shapeConflict(cm.Name(), c.kind, ChildRelatedClass)
		}
		if c.related.classMap != cm {
			return nil, errs.Newf(errs.ErrKindConflict, "child %s already relates to a different class map", cm.Name().Local)
		}
		return c.related, nil
	}
	rcm, err := NewRelatedClassMap(cm)
	if err != nil {
		return nil, err
	}
	e.children[cm.Name()] = Child{kind: ChildRelatedClass, related: rcm}
	return rcm, nil
}

// CreateInlineClassMap returns the inline class map for child element
// name, creating it if needed.
func (e *elementContent) CreateInlineClassMap(name xml.Name) (*InlineClassMap, error) {
	if c, ok := e.children[name]; ok {
		if c.kind != ChildInlineClass {
			return nil, shapeConflict(name, c.kind, ChildInlineClass)
		}
		return c.inline, nil
	}
	icm, err := NewInlineClassMap(name)
	if err != nil {
		return nil, err
	}
	e.children[name] = Child{kind: ChildInlineClass, inline: icm}
	return icm, nil
}

func (e *elementContent) addChild(c Child) error {
	name := c.Name()
	if have, ok := e.children[name]; ok {
		return errs.Newf(errs.ErrKindConflict, "child %s is already mapped as a %s", name.Local, have.kind)
	}
	e.children[name] = c
	return nil
}

// AddChildPropertyMap adds an element property; the name must be free.
func (e *elementContent) AddChildPropertyMap(pm *PropertyMap) error {
	if pm == nil || pm.Kind() != ElementProperty {
		return errs.New(errs.ErrKindInvalidInput, "element property map required")
	}
	return e.addChild(Child{kind: ChildProperty, property: pm})
}

// AddRelatedClassMap adds a related class map; the name must be free.
func (e *elementContent) AddRelatedClassMap(rcm *RelatedClassMap) error {
	if rcm == nil {
		return errs.New(errs.ErrKindInvalidInput, "related class map required")
	}
	return e.addChild(Child{kind: ChildRelatedClass, related: rcm})
}

// AddInlineClassMap adds an inline class map; the name must be free.
func (e *elementContent) AddInlineClassMap(icm *InlineClassMap) error {
	if icm == nil {
		return errs.New(errs.ErrKindInvalidInput, "inline class map required")
	}
	return e.addChild(Child{kind: ChildInlineClass, inline: icm})
}

// ClassMap maps an element type to a table. A class map either owns a
// table or redirects to another class map with UseClassMap.
type ClassMap struct {
	name     xml.Name
	table    *relational.Table
	base     *ClassMap
	baseLink *relational.LinkInfo
	used     *ClassMap
	elementContent
}

// NewClassMap creates an empty class map for element type name.
func NewClassMap(name xml.Name) (*ClassMap, error) {
	if name.Local == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "class map requires an element type name")
	}
	return &ClassMap{name: name, elementContent: newElementContent()}, nil
}

func (c *ClassMap) Name() xml.Name            { return c.name }
func (c *ClassMap) Table() *relational.Table { return c.table }

// SetTable maps the class to t. Redirecting class maps have no table.
func (c *ClassMap) SetTable(t *relational.Table) error {
	if t == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "class %s: table must not be nil", c.name.Local)
	}
	if c.used != nil {
		return errs.Newf(errs.ErrKindConflict, "class %s uses class %s and cannot have its own table", c.name.Local, c.used.name.Local)
	}
	c.table = t
	return nil
}

// BaseClassMap is the class whose table this class extends, or nil.
func (c *ClassMap) BaseClassMap() *ClassMap             { return c.base }
func (c *ClassMap) BaseLinkInfo() *relational.LinkInfo { return c.baseLink }

// SetBaseClassMap makes c extend base, joined by link. Inheritance chains
// must be acyclic.
func (c *ClassMap) SetBaseClassMap(base *ClassMap, link *relational.LinkInfo) error {
	if base == nil || link == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "class %s: base class map and link are both required", c.name.Local)
	}
	for b := base; b != nil; b = b.base {
		if b == c {
			return errs.Newf(errs.ErrKindInvalidInput, "class %s: base class %s would create a cycle", c.name.Local, base.name.Local)
		}
	}
	c.base = base
	c.baseLink = link
	return nil
}

// UsedClassMap is the class map c redirects to, or nil.
func (c *ClassMap) UsedClassMap() *ClassMap { return c.used }

// UseClassMap redirects c to other: elements of c's type are mapped with
// other's table and content. Redirect chains must be acyclic.
func (c *ClassMap) UseClassMap(other *ClassMap) error {
	if other == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "class %s: used class map must not be nil", c.name.Local)
	}
	if c.table != nil {
		return errs.Newf(errs.ErrKindConflict, "class %s is mapped to table %s and cannot use another class", c.name.Local, c.table.ID())
	}
	for u := other; u != nil; u = u.used {
		if u == c {
			return errs.Newf(errs.ErrKindInvalidInput, "class %s: using class %s would create a cycle", c.name.Local, other.name.Local)
		}
	}
	c.used = other
	return nil
}

// Resolve follows UseClassMap redirects to the class map that owns the table.
func (c *ClassMap) Resolve() *ClassMap {
	r := c
	for r.used != nil {
		r = r.used
	}
	return r
}

// InlineClassMap maps a wrapper element whose content is stored in the
// parent class's table. It contributes no table of its own.
type InlineClassMap struct {
	name  xml.Name
	order *relational.OrderInfo
	elementContent
}

// NewInlineClassMap creates an empty inline class map.
func NewInlineClassMap(name xml.Name) (*InlineClassMap, error) {
	if name.Local == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "inline class map requires an element type name")
	}
	return &InlineClassMap{name: name, elementContent: newElementContent()}, nil
}

func (i *InlineClassMap) Name() xml.Name                       { return i.name }
func (i *InlineClassMap) OrderInfo() *relational.OrderInfo     { return i.order }
func (i *InlineClassMap) SetOrderInfo(o *relational.OrderInfo) { i.order = o }

// RelatedClassMap maps a child element to a class stored in another table,
// joined by a link.
type RelatedClassMap struct {
	classMap *ClassMap
	link     *relational.LinkInfo
	order    *relational.OrderInfo
}

// NewRelatedClassMap creates a related class map referencing cm.
func NewRelatedClassMap(cm *ClassMap) (*RelatedClassMap, error) {
	if cm == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "related class map requires a class map")
	}
	return &RelatedClassMap{classMap: cm}, nil
}

// Name is the referencing element name.
func (r *RelatedClassMap) Name() xml.Name { return r.classMap.name }

// ClassMap is the referenced class map, which may itself redirect.
func (r *RelatedClassMap) ClassMap() *ClassMap { return r.classMap }

func (r *RelatedClassMap) LinkInfo() *relational.LinkInfo { return r.link }

// SetLinkInfo sets the link between the parent and related class tables.
func (r *RelatedClassMap) SetLinkInfo(link *relational.LinkInfo) error {
	if link == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "related class %s: link must not be nil", r.classMap.name.Local)
	}
	r.link = link
	return nil
}

func (r *RelatedClassMap) OrderInfo() *relational.OrderInfo     { return r.order }
func (r *RelatedClassMap) SetOrderInfo(o *relational.OrderInfo) { r.order = o }
