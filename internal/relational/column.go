package relational

import "github.com/koustreak/xmldbms/internal/errs"

// Nullability records what is known about a column's NULL constraint.
type Nullability int

const (
	NullabilityUnknown Nullability = iota
	Nullable
	NotNullable
)

// optInt is an integer that distinguishes "not set" from zero.
type optInt struct {
	value int
	set   bool
}

// Column is a single column of a Table. A column belongs to exactly one
// table; the table assigns its row-buffer index when the column is added.
type Column struct {
	name      string
	sqlType   SQLType
	nullable  Nullability
	length    optInt
	precision optInt
	scale     optInt
	formatter Formatter
	index     int
	table     *Table
}

// NewColumn creates an unattached column.
func NewColumn(name string) (*Column, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "column name must not be empty")
	}
	return &Column{name: name, index: -1}, nil
}

func (c *Column) Name() string { return c.name }

// Table returns the owning table, or nil for an unattached column.
func (c *Column) Table() *Table { return c.table }

func (c *Column) Type() SQLType     { return c.sqlType }
func (c *Column) SetType(t SQLType) { c.sqlType = t }

func (c *Column) Nullability() Nullability     { return c.nullable }
func (c *Column) SetNullability(n Nullability) { c.nullable = n }

// Length returns the declared length and whether one was set.
func (c *Column) Length() (int, bool) { return c.length.value, c.length.set }
func (c *Column) IsLengthSet() bool   { return c.length.set }

// SetLength sets the declared length. Lengths must be positive.
func (c *Column) SetLength(n int) error {
	if n <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s: length must be positive, got %d", c.name, n)
	}
	c.length = optInt{value: n, set: true}
	return nil
}

func (c *Column) UnsetLength() { c.length = optInt{} }

// Precision returns the declared precision and whether one was set.
func (c *Column) Precision() (int, bool) { return c.precision.value, c.precision.set }
func (c *Column) IsPrecisionSet() bool   { return c.precision.set }

// SetPrecision sets the declared precision. Precisions must be positive.
func (c *Column) SetPrecision(n int) error {
	if n <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s: precision must be positive, got %d", c.name, n)
	}
	c.precision = optInt{value: n, set: true}
	return nil
}

func (c *Column) UnsetPrecision() { c.precision = optInt{} }

// Scale returns the declared scale and whether one was set. Zero is a
// valid scale and is distinct from "not set".
func (c *Column) Scale() (int, bool) { return c.scale.value, c.scale.set }
func (c *Column) IsScaleSet() bool   { return c.scale.set }

// SetScale sets the declared scale.
func (c *Column) SetScale(n int) error {
	if n < 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s: scale must not be negative, got %d", c.name, n)
	}
	c.scale = optInt{value: n, set: true}
	return nil
}

func (c *Column) UnsetScale() { c.scale = optInt{} }

func (c *Column) Formatter() Formatter { return c.formatter }

// SetFormatter assigns the value formatter. A formatter that cannot handle
// the column's type is rejected.
func (c *Column) SetFormatter(f Formatter) error {
	if f == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s: formatter must not be nil", c.name)
	}
	if c.sqlType.IsSet() && !f.CanConvert(c.sqlType) {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s: formatter %T cannot convert %s", c.name, f, c.sqlType)
	}
	c.formatter = f
	return nil
}

// Index is the column's position in a flat row buffer for its table.
func (c *Column) Index() int { return c.index }
