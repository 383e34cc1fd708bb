// Package mapping holds the two views of an XML-to-relational mapping: the
// document-centric view (ClassMap, PropertyMap, RelatedClassMap,
// InlineClassMap) and the table-centric view (ClassTableMap, ColumnMap,
// PropertyTableMap, RelatedClassTableMap), plus the Map aggregate that owns
// both.
//
// A Map is built by one goroutine. Once built it is read-only and safe to
// share.
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

// CompareNames orders names by namespace, then local name.
func CompareNames(a, b xml.Name) int {
	if c := cmp.Compare(a.Space, b.Space); c != 0 {
		return c
	}
	return cmp.Compare(a.Local, b.Local)
}

// Map is the root of a compiled mapping.
type Map struct {
	classMaps      map[xml.Name]*ClassMap
	classTableMaps map[relational.TableID]*ClassTableMap
	tables         map[relational.TableID]*relational.Table

	prefixToURI map[string]string
	uriToPrefix map[string]string

	defaultFormatters map[relational.SQLType]relational.Formatter
	formatters        map[string]relational.Formatter
}

// New returns an empty map with the built-in formatter for every SQL type.
func New() *Map {
	m := &Map{
		classMaps:         make(map[xml.Name]*ClassMap),
		classTableMaps:    make(map[relational.TableID]*ClassTableMap),
		tables:            make(map[relational.TableID]*relational.Table),
		prefixToURI:       make(map[string]string),
		uriToPrefix:       make(map[string]string),
		defaultFormatters: make(map[relational.SQLType]relational.Formatter),
		formatters:        make(map[string]relational.Formatter),
	}
	for _, t := range relational.AllSQLTypes() {
		m.defaultFormatters[t] = relational.DefaultFormatter(t)
	}
	return m
}

// --- class maps ---

// CreateClassMap returns the class map for name, creating it if needed.
func (m *Map) CreateClassMap(name xml.Name) (*ClassMap, error) {
	if cm, ok := m.classMaps[name]; ok {
		return cm, nil
	}
	cm, err := NewClassMap(name)
	if err != nil {
		return nil, err
	}
	m.classMaps[name] = cm
	return cm, nil
}

// AddClassMap registers cm; the element type must not be mapped yet.
func (m *Map) AddClassMap(cm *ClassMap) error {
	if cm == nil {
		return errs.New(errs.ErrKindInvalidInput, "class map must not be nil")
	}
	if _, ok := m.classMaps[cm.name]; ok {
		return errs.Newf(errs.ErrKindConflict, "element type %s is already mapped", m.QualifiedName(cm.name))
	}
	m.classMaps[cm.name] = cm
	return nil
}

func (m *Map) ClassMap(name xml.Name) *ClassMap { return m.classMaps[name] }

// ClassMaps returns all class maps sorted by element type name.
func (m *Map) ClassMaps() []*ClassMap {
	out := slices.Collect(maps.Values(m.classMaps))
	slices.SortFunc(out, func(a, b *ClassMap) int { return CompareNames(a.name, b.name) })
	return out
}

// RemoveAllClassMaps clears the document-centric view.
func (m *Map) RemoveAllClassMaps() { clear(m.classMaps) }

// --- class table maps ---

// CreateClassTableMap returns the class table map for t, creating it if needed.
func (m *Map) CreateClassTableMap(t *relational.Table) (*ClassTableMap, error) {
	if t == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	if ctm, ok := m.classTableMaps[t.ID()]; ok {
		if ctm.table != t {
			return nil, errs.Newf(errs.ErrKindConflict, "table %s is mapped through a different table object", t.ID())
		}
		return ctm, nil
	}
	ctm, err := NewClassTableMap(t)
	if err != nil {
		return nil, err
	}
	m.classTableMaps[t.ID()] = ctm
	return ctm, nil
}

// AddClassTableMap registers ctm; its table must not be mapped yet.
func (m *Map) AddClassTableMap(ctm *ClassTableMap) error {
	if ctm == nil {
		return errs.New(errs.ErrKindInvalidInput, "class table map must not be nil")
	}
	id := ctm.table.ID()
	if _, ok := m.classTableMaps[id]; ok {
		return errs.Newf(errs.ErrKindConflict, "table %s is already mapped as a class", id)
	}
	m.classTableMaps[id] = ctm
	return nil
}

func (m *Map) ClassTableMap(id relational.TableID) *ClassTableMap { return m.classTableMaps[id] }

// ClassTableMaps returns all class table maps sorted by table.
func (m *Map) ClassTableMaps() []*ClassTableMap {
	out := slices.Collect(maps.Values(m.classTableMaps))
	slices.SortFunc(out, func(a, b *ClassTableMap) int {
		return strings.Compare(a.table.ID().String(), b.table.ID().String())
	})
	return out
}

// RemoveAllClassTableMaps clears the table-centric view.
func (m *Map) RemoveAllClassTableMaps() { clear(m.classTableMaps) }

// --- tables ---

// CreateTable returns the table for id, creating it if needed.
func (m *Map) CreateTable(id relational.TableID) (*relational.Table, error) {
	if t, ok := m.tables[id]; ok {
		return t, nil
	}
	t, err := relational.NewTable(id)
	if err != nil {
		return nil, err
	}
	m.tables[id] = t
	return t, nil
}

// AddTable registers t; its identity must be free.
func (m *Map) AddTable(t *relational.Table) error {
	if t == nil {
		return errs.New(errs.ErrKindInvalidInput, "table must not be nil")
	}
	if _, ok := m.tables[t.ID()]; ok {
		return errs.Newf(errs.ErrKindConflict, "table %s already exists", t.ID())
	}
	m.tables[t.ID()] = t
	return nil
}

func (m *Map) Table(id relational.TableID) *relational.Table { return m.tables[id] }

// Tables returns all tables sorted by qualified name.
func (m *Map) Tables() []*relational.Table {
	out := slices.Collect(maps.Values(m.tables))
	slices.SortFunc(out, func(a, b *relational.Table) int {
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

// --- namespaces ---

// AddNamespace binds prefix to uri. Prefixes and URIs are one-to-one; the
// empty prefix is the default namespace.
func (m *Map) AddNamespace(prefix, uri string) error {
	if uri == "" {
		return errs.Newf(errs.ErrKindInvalidInput, "namespace prefix %q requires a URI", prefix)
	}
	if have, ok := m.prefixToURI[prefix]; ok {
		if have == uri {
			return nil
		}
		return errs.Newf(errs.ErrKindConflict, "prefix %q is already bound to %s", prefix, have)
	}
	if have, ok := m.uriToPrefix[uri]; ok {
		return errs.Newf(errs.ErrKindConflict, "namespace %s is already bound to prefix %q", uri, have)
	}
	m.prefixToURI[prefix] = uri
	m.uriToPrefix[uri] = prefix
	return nil
}

func (m *Map) NamespaceURI(prefix string) (string, bool) {
	uri, ok := m.prefixToURI[prefix]
	return uri, ok
}

func (m *Map) NamespacePrefix(uri string) (string, bool) {
	p, ok := m.uriToPrefix[uri]
	return p, ok
}

// Namespaces returns a copy of the prefix to URI table.
func (m *Map) Namespaces() map[string]string { return maps.Clone(m.prefixToURI) }

// QualifiedName renders name as "prefix:local", or "{uri}local" when the
// namespace has no prefix.
func (m *Map) QualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	p, ok := m.uriToPrefix[name.Space]
	switch {
	case !ok:
		return "{" + name.Space + "}" + name.Local
	case p == "":
		return name.Local
	default:
		return p + ":" + name.Local
	}
}

// ParseQualifiedName is the inverse of QualifiedName. An unprefixed name
// takes the default namespace, if one is bound.
func (m *Map) ParseQualifiedName(s string) (xml.Name, error) {
	if s == "" {
		return xml.Name{}, errs.New(errs.ErrKindInvalidInput, "empty element name")
	}
	if strings.HasPrefix(s, "{") {
		uri, local, ok := strings.Cut(s[1:], "}")
		if !ok || local == "" {
			return xml.Name{}, errs.Newf(errs.ErrKindInvalidInput, "malformed name %q", s)
		}
		return xml.Name{Space: uri, Local: local}, nil
	}
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return xml.Name{Space: m.prefixToURI[""], Local: s}, nil
	}
	uri, bound := m.prefixToURI[prefix]
	if !bound {
		return xml.Name{}, errs.Newf(errs.ErrKindInvalidInput, "unknown namespace prefix %q in %q", prefix, s)
	}
	if local == "" {
		return xml.Name{}, errs.Newf(errs.ErrKindInvalidInput, "malformed name %q", s)
	}
	return xml.Name{Space: uri, Local: local}, nil
}

// --- formatters ---

// DefaultFormatter returns the formatter used for columns of type t that
// have none of their own.
func (m *Map) DefaultFormatter(t relational.SQLType) relational.Formatter {
	return m.defaultFormatters[t]
}

// SetDefaultFormatter replaces the default formatter for t.
func (m *Map) SetDefaultFormatter(t relational.SQLType, f relational.Formatter) error {
	if f == nil {
		return errs.New(errs.ErrKindInvalidInput, "formatter must not be nil")
	}
	if t.IsSet() && !f.CanConvert(t) {
		return errs.Newf(errs.ErrKindInvalidInput, "formatter cannot convert %s values", t)
	}
	m.defaultFormatters[t] = f
	return nil
}

// AddFormatter registers a named formatter; names are unique.
func (m *Map) AddFormatter(name string, f relational.Formatter) error {
	if name == "" || f == nil {
		return errs.New(errs.ErrKindInvalidInput, "named formatter requires a name and a formatter")
	}
	if _, ok := m.formatters[name]; ok {
		return errs.Newf(errs.ErrKindConflict, "formatter %s already exists", name)
	}
	m.formatters[name] = f
	return nil
}

func (m *Map) Formatter(name string) relational.Formatter { return m.formatters[name] }

// FormatterFor returns the column's own formatter or the default for its type.
func (m *Map) FormatterFor(col *relational.Column) relational.Formatter {
	if f := col.Formatter(); f != nil {
		return f
	}
	if f, ok := m.defaultFormatters[col.Type()]; ok {
		return f
	}
	return relational.CharFormatter{}
}
