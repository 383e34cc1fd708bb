package relational

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/errs"
)

func newTable(t *testing.T, name string, cols ...string) *Table {
	t.Helper()
	tbl, err := NewTable(TableID{Name: name})
	require.NoError(t, err)
	for _, c := range cols {
		_, err := tbl.CreateColumn(c)
		require.NoError(t, err)
	}
	return tbl
}

func TestNewTable_RequiresName(t *testing.T) {
	_, err := NewTable(TableID{Schema: "public"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestTableID_String(t *testing.T) {
	assert.Equal(t, "Orders", TableID{Name: "Orders"}.String())
	assert.Equal(t, "db.cat.sales.Orders", TableID{Database: "db", Catalog: "cat", Schema: "sales", Name: "Orders"}.String())
}

func TestTable_Columns(t *testing.T) {
	tbl := newTable(t, "Orders", "id", "date", "total")

	t.Run("row buffer order", func(t *testing.T) {
		cols := tbl.Columns()
		require.Len(t, cols, 3)
		for i, c := range cols {
			assert.Equal(t, i, c.Index())
			assert.Same(t, tbl, c.Table())
		}
		assert.Equal(t, "total", cols[2].Name())
	})

	t.Run("create is idempotent", func(t *testing.T) {
		c, err := tbl.CreateColumn("date")
		require.NoError(t, err)
		assert.Same(t, tbl.Column("date"), c)
		assert.Len(t, tbl.Columns(), 3)
	})

	t.Run("add rejects duplicates", func(t *testing.T) {
		c, err := NewColumn("id")
		require.NoError(t, err)
		assert.True(t, errs.IsConflict(tbl.AddColumn(c)))
		assert.Nil(t, c.Table())
	})

	t.Run("add rejects owned column", func(t *testing.T) {
		other := newTable(t, "Other")
		assert.True(t, errs.IsInvalidInput(other.AddColumn(tbl.Column("id"))))
	})
}

func TestColumn_NotSetIsNotZero(t *testing.T) {
	c, err := NewColumn("price")
	require.NoError(t, err)

	_, ok := c.Scale()
	assert.False(t, ok)

	require.NoError(t, c.SetScale(0))
	v, ok := c.Scale()
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	c.UnsetScale()
	assert.False(t, c.IsScaleSet())

	assert.True(t, errs.IsInvalidInput(c.SetLength(0)))
	assert.False(t, c.IsLengthSet())
	assert.True(t, errs.IsInvalidInput(c.SetPrecision(-1)))
}

func TestColumn_Formatter(t *testing.T) {
	c, err := NewColumn("when")
	require.NoError(t, err)
	c.SetType(TypeDate)

	assert.True(t, errs.IsInvalidInput(c.SetFormatter(NumberFormatter{})))
	require.NoError(t, c.SetFormatter(DefaultFormatter(TypeDate)))
}

func TestKeys_CreateOrGet(t *testing.T) {
	tbl := newTable(t, "Orders", "id", "code")

	pk, err := tbl.CreatePrimaryKey("pk_orders")
	require.NoError(t, err)
	again, err := tbl.CreatePrimaryKey("pk_orders")
	require.NoError(t, err)
	assert.Same(t, pk, again)

	_, err = tbl.CreatePrimaryKey("pk_other")
	assert.True(t, errs.IsConflict(err), "second primary key")

	_, err = tbl.CreateUniqueKey("pk_orders")
	assert.True(t, errs.IsConflict(err), "name shared across key kinds")

	uk, err := tbl.CreateUniqueKey("uk_code")
	require.NoError(t, err)
	assert.Same(t, uk, tbl.CandidateKey("uk_code"))
	assert.Same(t, pk, tbl.CandidateKey("pk_orders"))
}

func TestKey_SetColumns(t *testing.T) {
	orders := newTable(t, "Orders", "id", "code")
	lines := newTable(t, "Lines", "order_id")

	pk, err := orders.CreatePrimaryKey("pk")
	require.NoError(t, err)

	assert.True(t, errs.IsInvalidInput(pk.SetColumns()))
	assert.True(t, errs.IsInvalidInput(pk.SetColumns(lines.Column("order_id"))), "foreign column")
	assert.True(t, errs.IsInvalidInput(pk.SetColumns(orders.Column("id"), orders.Column("id"))))

	require.NoError(t, pk.SetColumns(orders.Column("code"), orders.Column("id")))
	cols := pk.Columns()
	assert.Equal(t, "code", cols[0].Name())
	assert.Equal(t, "id", cols[1].Name())
}

func TestKey_SetGeneration(t *testing.T) {
	tbl := newTable(t, "Orders", "id")
	pk, _ := tbl.CreatePrimaryKey("pk")
	fk, _ := tbl.CreateForeignKey("fk")

	assert.True(t, errs.IsInvalidInput(pk.SetGeneration(FromGenerator, "")))
	assert.True(t, errs.IsInvalidInput(pk.SetGeneration(FromDatabase, "seq")))
	assert.True(t, errs.IsInvalidInput(fk.SetGeneration(FromDatabase, "")))

	require.NoError(t, pk.SetGeneration(FromGenerator, "orderIds"))
	assert.Equal(t, FromGenerator, pk.Generation())
	assert.Equal(t, "orderIds", pk.GeneratorName())
}

func TestKey_SetRemoteKey(t *testing.T) {
	orders := newTable(t, "Orders", "id")
	lines := newTable(t, "Lines", "order_id")

	pk, _ := orders.CreatePrimaryKey("pk_orders")
	require.NoError(t, pk.SetColumns(orders.Column("id")))
	fk, _ := lines.CreateForeignKey("fk_lines_orders")
	require.NoError(t, fk.SetColumns(lines.Column("order_id")))

	t.Run("registered key accepted", func(t *testing.T) {
		require.NoError(t, fk.SetRemoteKey(orders, pk))
		assert.Same(t, orders, fk.RemoteTable())
		assert.Same(t, pk, fk.RemoteKey())
	})

	t.Run("structurally equal copy rejected", func(t *testing.T) {
		dup := *pk
		err := fk.SetRemoteKey(orders, &dup)
		assert.True(t, errs.IsInvalidInput(err))
		assert.Same(t, pk, fk.RemoteKey(), "previous reference kept")
	})

	t.Run("key of another table rejected", func(t *testing.T) {
		assert.True(t, errs.IsInvalidInput(fk.SetRemoteKey(lines, pk)))
	})

	t.Run("only foreign keys", func(t *testing.T) {
		assert.True(t, errs.IsInvalidInput(pk.SetRemoteKey(orders, pk)))
	})

	t.Run("remote must be candidate", func(t *testing.T) {
		other, _ := lines.CreateForeignKey("fk_other")
		assert.True(t, errs.IsInvalidInput(fk.SetRemoteKey(lines, other)))
	})
}

func TestLinkInfo(t *testing.T) {
	orders := newTable(t, "Orders", "id")
	lines := newTable(t, "Lines", "order_id", "a", "b")

	pk, _ := orders.CreatePrimaryKey("pk")
	require.NoError(t, pk.SetColumns(orders.Column("id")))
	fk, _ := lines.CreateForeignKey("fk")
	require.NoError(t, fk.SetColumns(lines.Column("order_id")))

	link, err := NewLinkInfo(pk, fk, true)
	require.NoError(t, err)
	assert.Same(t, pk, link.CandidateKey())
	assert.Same(t, fk, link.ForeignKey())

	reversed, err := NewLinkInfo(fk, pk, false)
	require.NoError(t, err)
	assert.Same(t, pk, reversed.CandidateKey())
	assert.Same(t, fk, reversed.ForeignKey())

	_, err = NewLinkInfo(pk, fk, false)
	assert.True(t, errs.IsInvalidInput(err), "unique side must be a candidate key")

	wide, _ := lines.CreateForeignKey("fk_wide")
	require.NoError(t, wide.SetColumns(lines.Column("a"), lines.Column("b")))
	_, err = NewLinkInfo(pk, wide, true)
	assert.True(t, errs.IsInvalidInput(err), "column counts differ")

	_, err = NewLinkInfo(nil, fk, true)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOrderInfo(t *testing.T) {
	o := FixedOrder(3)
	v, ok := o.FixedValue()
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
	assert.Nil(t, o.Column())

	tbl := newTable(t, "Lines", "seq")
	co, err := ColumnOrder(tbl.Column("seq"), false, true)
	require.NoError(t, err)
	assert.False(t, co.IsFixed())
	assert.False(t, co.IsAscending())
	assert.True(t, co.GenerateOrder())
	_, ok = co.FixedValue()
	assert.False(t, ok)

	_, err = ColumnOrder(nil, true, false)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSQLType(t *testing.T) {
	typ, ok := ParseSQLType("varchar")
	assert.True(t, ok)
	assert.Equal(t, TypeVarChar, typ)
	assert.Equal(t, "VARCHAR", typ.String())

	typ, ok = ParseSQLType("int")
	assert.True(t, ok)
	assert.Equal(t, TypeInteger, typ)

	_, ok = ParseSQLType("geometry")
	assert.False(t, ok)
	assert.False(t, TypeUnknown.IsSet())
}

func TestFormatters(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		f := DefaultFormatter(TypeDecimal)
		v, err := f.Parse("12.50", TypeDecimal)
		require.NoError(t, err)
		assert.Equal(t, 0, v.(*big.Rat).Cmp(big.NewRat(25, 2)))
		s, err := f.Format(v)
		require.NoError(t, err)
		assert.Equal(t, "12.5", s)

		n, err := f.Parse(" 42 ", TypeInteger)
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)

		_, err = f.Parse("forty", TypeInteger)
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("boolean", func(t *testing.T) {
		f := BooleanFormatter{True: "yes", False: "no"}
		v, err := f.Parse("yes", TypeBoolean)
		require.NoError(t, err)
		assert.Equal(t, true, v)
		s, err := f.Format(false)
		require.NoError(t, err)
		assert.Equal(t, "no", s)
	})

	t.Run("date", func(t *testing.T) {
		f := DefaultFormatter(TypeDate)
		v, err := f.Parse("2024-02-29", TypeDate)
		require.NoError(t, err)
		assert.Equal(t, time.February, v.(time.Time).Month())
		s, err := f.Format(v)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", s)
	})

	t.Run("base64", func(t *testing.T) {
		f := DefaultFormatter(TypeBlob)
		v, err := f.Parse("aGk=", TypeBlob)
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), v)
	})

	t.Run("char", func(t *testing.T) {
		s, err := DefaultFormatter(TypeVarChar).Format([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, "abc", s)
	})
}
