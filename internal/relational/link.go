package relational

import "github.com/koustreak/xmldbms/internal/errs"

// LinkInfo joins two tables: a parent key and a child key, one of which is
// a candidate (primary or unique) key and the other a foreign key.
// ParentKeyIsUnique says which side is the candidate key.
type LinkInfo struct {
	parentKey         *Key
	childKey          *Key
	parentKeyIsUnique bool
}

// NewLinkInfo validates and builds a link.
func NewLinkInfo(parentKey, childKey *Key, parentKeyIsUnique bool) (*LinkInfo, error) {
	if parentKey == nil || childKey == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "link requires both a parent key and a child key")
	}
	unique, foreign := parentKey, childKey
	if !parentKeyIsUnique {
		unique, foreign = childKey, parentKey
	}
	if !unique.IsCandidate() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "link: key %s must be a primary or unique key", unique.name)
	}
	if foreign.kind != ForeignKey {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "link: key %s must be a foreign key", foreign.name)
	}
	if len(unique.columns) != len(foreign.columns) {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "link: keys %s and %s have different column counts (%d vs %d)",
			unique.name, foreign.name, len(unique.columns), len(foreign.columns))
	}
	return &LinkInfo{parentKey: parentKey, childKey: childKey, parentKeyIsUnique: parentKeyIsUnique}, nil
}

func (l *LinkInfo) ParentKey() *Key         { return l.parentKey }
func (l *LinkInfo) ChildKey() *Key          { return l.childKey }
func (l *LinkInfo) ParentKeyIsUnique() bool { return l.parentKeyIsUnique }

// CandidateKey returns whichever side is the primary or unique key.
func (l *LinkInfo) CandidateKey() *Key {
	if l.parentKeyIsUnique {
		return l.parentKey
	}
	return l.childKey
}

// ForeignKey returns whichever side is the foreign key.
func (l *LinkInfo) ForeignKey() *Key {
	if l.parentKeyIsUnique {
		return l.childKey
	}
	return l.parentKey
}

// OrderInfo describes how sibling values are ordered: either a fixed
// literal order value, or an order column with a direction and a flag
// saying whether order values are generated on insert.
type OrderInfo struct {
	fixed      bool
	fixedValue int64
	column     *Column
	ascending  bool
	generate   bool
}

// FixedOrder creates an OrderInfo with a literal order value.
func FixedOrder(value int64) *OrderInfo {
	return &OrderInfo{fixed: true, fixedValue: value}
}

// ColumnOrder creates an OrderInfo that orders by col.
func ColumnOrder(col *Column, ascending, generate bool) (*OrderInfo, error) {
	if col == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "order column must not be nil")
	}
	return &OrderInfo{column: col, ascending: ascending, generate: generate}, nil
}

// IsFixed reports whether the order is a literal value.
func (o *OrderInfo) IsFixed() bool { return o.fixed }

// FixedValue returns the literal order value; ok is false for column orders.
func (o *OrderInfo) FixedValue() (value int64, ok bool) { return o.fixedValue, o.fixed }

// Column returns the order column, or nil for a fixed order.
func (o *OrderInfo) Column() *Column { return o.column }

func (o *OrderInfo) IsAscending() bool { return o.ascending }

// GenerateOrder reports whether order values are generated automatically.
func (o *OrderInfo) GenerateOrder() bool { return o.generate }
