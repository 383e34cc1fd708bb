package mapping

import (
	"cmp"
	"encoding/xml"
	"maps"
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// ColumnMap maps a column of the class table to a property.
type ColumnMap struct {
	propertyInfo
	column    *relational.Column
	insertion *ElementInsertionList
}

// NewColumnMap creates a column map for a property called name of the given kind.
func NewColumnMap(col *relational.Column, name xml.Name, kind PropertyKind) (*ColumnMap, error) {
	if col == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "column map requires a column")
	}
	info, err := newPropertyInfo(name, kind)
	if err != nil {
		return nil, err
	}
	return &ColumnMap{propertyInfo: info, column: col}, nil
}

func (c *ColumnMap) Column() *relational.Column { return c.column }

// ElementInsertionList is nil when no wrapper elements are needed.
func (c *ColumnMap) ElementInsertionList() *ElementInsertionList     { return c.insertion }
func (c *ColumnMap) SetElementInsertionList(l *ElementInsertionList) { c.insertion = l }

// PropertyTableMap maps a property stored in a separate table.
type PropertyTableMap struct {
	propertyInfo
	table     *relational.Table
	column    *relational.Column
	link      *relational.LinkInfo
	insertion *ElementInsertionList
}

// NewPropertyTableMap creates a property table map. col must belong to t.
func NewPropertyTableMap(t *relational.Table, col *relational.Column, link *relational.LinkInfo, name xml.Name, kind PropertyKind) (*PropertyTableMap, error) {
	if t == nil || col == nil || link == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "property table map requires a table, a column and a link")
	}
	if col.Table() != t {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "column %s is not in property table %s", col.Name(), t.ID())
	}
	info, err := newPropertyInfo(name, kind)
	if err != nil {
		return nil, err
	}
	return &PropertyTableMap{propertyInfo: info, table: t, column: col, link: link}, nil
}

func (p *PropertyTableMap) Table() *relational.Table                        { return p.table }
func (p *PropertyTableMap) Column() *relational.Column                      { return p.column }
func (p *PropertyTableMap) LinkInfo() *relational.LinkInfo                  { return p.link }
func (p *PropertyTableMap) ElementInsertionList() *ElementInsertionList     { return p.insertion }
func (p *PropertyTableMap) SetElementInsertionList(l *ElementInsertionList) { p.insertion = l }

// RelatedClassTableMap links the class table to the table of a related
// class. Name is the referencing element name, which may differ from the
// related ClassTableMap's own name.
type RelatedClassTableMap struct {
	name          xml.Name
	classTableMap *ClassTableMap
	link          *relational.LinkInfo
	order         *relational.OrderInfo
	insertion     *ElementInsertionList
}

// NewRelatedClassTableMap creates a related class table map.
func NewRelatedClassTableMap(name xml.Name, target *ClassTableMap, link *relational.LinkInfo) (*RelatedClassTableMap, error) {
	if name.Local == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "related class table map requires an element name")
	}
	if target == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "related class %s requires a class table map", name.Local)
	}
	return &RelatedClassTableMap{name: name, classTableMap: target, link: link}, nil
}

func (r *RelatedClassTableMap) Name() xml.Name                                  { return r.name }
func (r *RelatedClassTableMap) ClassTableMap() *ClassTableMap                   { return r.classTableMap }
func (r *RelatedClassTableMap) LinkInfo() *relational.LinkInfo                  { return r.link }
func (r *RelatedClassTableMap) OrderInfo() *relational.OrderInfo                { return r.order }
func (r *RelatedClassTableMap) SetOrderInfo(o *relational.OrderInfo)            { r.order = o }
func (r *RelatedClassTableMap) ElementInsertionList() *ElementInsertionList     { return r.insertion }
func (r *RelatedClassTableMap) SetElementInsertionList(l *ElementInsertionList) { r.insertion = l }

// TableChildKind is the shape of a table-view child.
type TableChildKind int

const (
	TableChildColumn TableChildKind = iota + 1
	TableChildPropertyTable
	TableChildRelatedClass
)

func (k TableChildKind) String() string {
	switch k {
	case TableChildColumn:
		return "column"
	case TableChildPropertyTable:
		return "property table"
	case TableChildRelatedClass:
		return "related class table"
	default:
		return "unknown"
	}
}

// TableChild is exactly one of a ColumnMap, PropertyTableMap or
// RelatedClassTableMap, selected by Kind.
type TableChild struct {
	kind          TableChildKind
	column        *ColumnMap
	propertyTable *PropertyTableMap
	related       *RelatedClassTableMap
}

func (c TableChild) Kind() TableChildKind                        { return c.kind }
func (c TableChild) ColumnMap() *ColumnMap                       { return c.column }
func (c TableChild) PropertyTableMap() *PropertyTableMap         { return c.propertyTable }
func (c TableChild) RelatedClassTableMap() *RelatedClassTableMap { return c.related }

// ElementInsertionList returns the wrapper path of whichever node is set.
func (c TableChild) ElementInsertionList() *ElementInsertionList {
	switch c.kind {
	case TableChildColumn:
		return c.column.insertion
	case TableChildPropertyTable:
		return c.propertyTable.insertion
	case TableChildRelatedClass:
		return c.related.insertion
	}
	return nil
}

// ClassTableMap describes a table as a class: the element type its rows
// become, an optional base table, and the children built from its columns,
// property tables and related tables.
type ClassTableMap struct {
	table     *relational.Table
	name      xml.Name
	baseTable *relational.Table
	baseLink  *relational.LinkInfo

	columnMaps   map[string]*ColumnMap
	propertyMaps map[propertyKey]*PropertyTableMap
	relatedMaps  map[relatedKey]*RelatedClassTableMap
}

// Property tables and related classes are unique per wrapper path, so the
// same element may appear directly and inside an inlined wrapper.
type propertyKey struct {
	path  string
	table relational.TableID
}

type relatedKey struct {
	path string
	name xml.Name
}

// NewClassTableMap creates an empty class table map for t.
func NewClassTableMap(t *relational.Table) (*ClassTableMap, error) {
	if t == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "class table map requires a table")
	}
	return &ClassTableMap{
		table:        t,
		columnMaps:   make(map[string]*ColumnMap),
		propertyMaps: make(map[propertyKey]*PropertyTableMap),
		relatedMaps:  make(map[relatedKey]*RelatedClassTableMap),
	}, nil
}

func (c *ClassTableMap) Table() *relational.Table { return c.table }

// ElementTypeName is the element type rows of this table become.
func (c *ClassTableMap) ElementTypeName() xml.Name     { return c.name }
func (c *ClassTableMap) SetElementTypeName(n xml.Name) { c.name = n }

func (c *ClassTableMap) BaseTable() *relational.Table       { return c.baseTable }
func (c *ClassTableMap) BaseLinkInfo() *relational.LinkInfo { return c.baseLink }

// SetBaseTable records the table this class extends.
func (c *ClassTableMap) SetBaseTable(t *relational.Table, link *relational.LinkInfo) error {
	if t == nil || link == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "class table %s: base table and link are both required", c.table.ID())
	}
	if t == c.table {
		return errs.Newf(errs.ErrKindInvalidInput, "class table %s cannot extend itself", c.table.ID())
	}
	c.baseTable = t
	c.baseLink = link
	return nil
}

// AddColumnMap adds cm; its column must belong to the class table and be unmapped.
func (c *ClassTableMap) AddColumnMap(cm *ColumnMap) error {
	if cm == nil {
		return errs.New(errs.ErrKindInvalidInput, "column map must not be nil")
	}
	if cm.column.Table() != c.table {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s is not in class table %s", cm.column.Name(), c.table.ID())
	}
	if _, ok := c.columnMaps[cm.column.Name()]; ok {
		return errs.Newf(errs.ErrKindConflict, "class table %s: column %s is already mapped", c.table.ID(), cm.column.Name())
	}
	c.columnMaps[cm.column.Name()] = cm
	return nil
}

// AddPropertyTableMap adds pm; its table must not already be mapped under
// the same wrapper path. The insertion list must be set before adding.
func (c *ClassTableMap) AddPropertyTableMap(pm *PropertyTableMap) error {
	if pm == nil {
		return errs.New(errs.ErrKindInvalidInput, "property table map must not be nil")
	}
	k := propertyKey{path: pm.insertion.key(), table: pm.table.ID()}
	if _, ok := c.propertyMaps[k]; ok {
		return errs.Newf(errs.ErrKindConflict, "class table %s: property table %s is already mapped%s",
			c.table.ID(), k.table, pm.insertion.under())
	}
	c.propertyMaps[k] = pm
	return nil
}

// AddRelatedClassTableMap adds rm; its element name must be free under the
// same wrapper path. The insertion list must be set before adding.
func (c *ClassTableMap) AddRelatedClassTableMap(rm *RelatedClassTableMap) error {
	if rm == nil {
		return errs.New(errs.ErrKindInvalidInput, "related class table map must not be nil")
	}
	k := relatedKey{path: rm.insertion.key(), name: rm.name}
	if _, ok := c.relatedMaps[k]; ok {
		return errs.Newf(errs.ErrKindConflict, "class table %s: related class %s is already mapped%s",
			c.table.ID(), rm.name.Local, rm.insertion.under())
	}
	c.relatedMaps[k] = rm
	return nil
}

func (c *ClassTableMap) ColumnMap(column string) *ColumnMap { return c.columnMaps[column] }

// PropertyTableMap looks up a property table by table and wrapper path,
// outermost wrapper first. No wrappers means a direct child.
func (c *ClassTableMap) PropertyTableMap(id relational.TableID, wrappers ...xml.Name) *PropertyTableMap {
	return c.propertyMaps[propertyKey{path: pathKey(wrappers), table: id}]
}

// RelatedClassTableMap looks up a related class by element name and
// wrapper path, outermost wrapper first.
func (c *ClassTableMap) RelatedClassTableMap(name xml.Name, wrappers ...xml.Name) *RelatedClassTableMap {
	return c.relatedMaps[relatedKey{path: pathKey(wrappers), name: name}]
}

// ColumnMaps returns the column maps in column index order.
func (c *ClassTableMap) ColumnMaps() []*ColumnMap {
	out := slices.Collect(maps.Values(c.columnMaps))
	slices.SortFunc(out, func(a, b *ColumnMap) int { return cmp.Compare(a.column.Index(), b.column.Index()) })
	return out
}

// PropertyTableMaps returns the property table maps sorted by table, then path.
func (c *ClassTableMap) PropertyTableMaps() []*PropertyTableMap {
	out := slices.Collect(maps.Values(c.propertyMaps))
	slices.SortFunc(out, func(a, b *PropertyTableMap) int {
		return cmp.Or(
			strings.Compare(a.table.ID().String(), b.table.ID().String()),
			strings.Compare(a.insertion.key(), b.insertion.key()),
		)
	})
	return out
}

// RelatedClassTableMaps returns the related class table maps sorted by element name, then path.
func (c *ClassTableMap) RelatedClassTableMaps() []*RelatedClassTableMap {
	out := slices.Collect(maps.Values(c.relatedMaps))
	slices.SortFunc(out, func(a, b *RelatedClassTableMap) int {
		return cmp.Or(CompareNames(a.name, b.name), strings.Compare(a.insertion.key(), b.insertion.key()))
	})
	return out
}

// Children returns every child as a tagged variant: column maps first,
// then property tables, then related classes.
func (c *ClassTableMap) Children() []TableChild {
	out := make([]TableChild, 0, len(c.columnMaps)+len(c.propertyMaps)+len(c.relatedMaps))
	for _, cm := range c.ColumnMaps() {
		out = append(out, TableChild{kind: TableChildColumn, column: cm})
	}
	for _, pm := range c.PropertyTableMaps() {
		out = append(out, TableChild{kind: TableChildPropertyTable, propertyTable: pm})
	}
	for _, rm := range c.RelatedClassTableMaps() {
		out = append(out, TableChild{kind: TableChildRelatedClass, related: rm})
	}
	return out
}
