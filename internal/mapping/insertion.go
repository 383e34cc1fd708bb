package mapping

import (
	"encoding/xml"
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// ElementInsertionMap is one wrapper element that must be synthesized when
// a table-view node is turned back into a document.
type ElementInsertionMap struct {
	name  xml.Name
	order *relational.OrderInfo
}

// NewElementInsertionMap creates a wrapper element entry.
func NewElementInsertionMap(name xml.Name, order *relational.OrderInfo) (*ElementInsertionMap, error) {
	if name.Local == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "element insertion map requires an element name")
	}
	return &ElementInsertionMap{name: name, order: order}, nil
}

func (e *ElementInsertionMap) Name() xml.Name                   { return e.name }
func (e *ElementInsertionMap) OrderInfo() *relational.OrderInfo { return e.order }

// ElementInsertionList is the ordered chain of wrapper elements, outermost
// first. It is immutable once built.
type ElementInsertionList struct {
	maps []*ElementInsertionMap
}

// NewElementInsertionList copies maps into a new list. An empty input
// yields nil.
func NewElementInsertionList(maps ...*ElementInsertionMap) *ElementInsertionList {
	if len(maps) == 0 {
		return nil
	}
	return &ElementInsertionList{maps: slices.Clone(maps)}
}

// Len is safe on a nil list.
func (l *ElementInsertionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.maps)
}

func (l *ElementInsertionList) At(i int) *ElementInsertionMap { return l.maps[i] }

// Maps returns a copy of the entries, outermost first.
func (l *ElementInsertionList) Maps() []*ElementInsertionMap {
	if l == nil {
		return nil
	}
	return slices.Clone(l.maps)
}

// String renders the path as "a/b/c" using local names.
func (l *ElementInsertionList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(l.maps))
	for i, m := range l.maps {
		parts[i] = m.name.Local
	}
	return strings.Join(parts, "/")
}

// key identifies the path including namespaces. Nil yields "".
func (l *ElementInsertionList) key() string {
	if l == nil {
		return ""
	}
	names := make([]xml.Name, len(l.maps))
	for i, m := range l.maps {
		names[i] = m.name
	}
	return pathKey(names)
}

// under renders " under a/b" for error messages, or "" for a direct child.
func (l *ElementInsertionList) under() string {
	if l.Len() == 0 {
		return ""
	}
	return " under " + l.String()
}

func pathKey(names []xml.Name) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("/{")
		b.WriteString(n.Space)
		b.WriteString("}")
		b.WriteString(n.Local)
	}
	return b.String()
}
