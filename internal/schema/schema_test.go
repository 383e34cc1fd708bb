package schema

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// fakeDB answers every Query with the same rows and records the arguments.
type fakeDB struct {
	database.DB
	rows [][]any
	args []any
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	f.args = args
	return &fakeRows{rows: f.rows, i: -1}, nil
}

type fakeRows struct {
	rows [][]any
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i < len(r.rows) }
func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Scan(dest ...any) error {
	for i, v := range r.rows[r.i] {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func length(n int64) *int64 { return &n }

func TestPgIntrospector_InspectTable(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"id", "integer", false, (*int64)(nil), true},
		{"city", "character varying", true, length(40), false},
	}}
	id := relational.TableID{Schema: "sales", Name: "Orders"}

	info, err := NewPgIntrospector(db).InspectTable(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []any{"sales", "Orders"}, db.args)
	assert.Equal(t, id, info.ID)
	require.Len(t, info.Columns, 2)
	assert.True(t, info.Columns[0].IsPrimaryKey)
	assert.Nil(t, info.Columns[0].MaxLength)
	assert.Equal(t, 40, *info.Column("city").MaxLength)
	assert.Nil(t, info.Column("nope"))
}

func TestMySQLIntrospector_UsesCatalog(t *testing.T) {
	db := &fakeDB{}
	_, err := NewMySQLIntrospector(db).InspectTable(context.Background(), relational.TableID{Catalog: "shop", Name: "Orders"})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err), "no columns means no table")
	assert.Equal(t, []any{"shop", "Orders"}, db.args)
}

func TestNewReader(t *testing.T) {
	r, err := NewReader(database.DriverPostgres, &fakeDB{})
	require.NoError(t, err)
	assert.IsType(t, &PgIntrospector{}, r)

	r, err = NewReader(database.DriverMySQL, &fakeDB{})
	require.NoError(t, err)
	assert.IsType(t, &MySQLIntrospector{}, r)

	_, err = NewReader("oracle", &fakeDB{})
	assert.True(t, errs.IsInvalidInput(err))
}

type fakeReader map[string]*TableInfo

func (f fakeReader) InspectTable(ctx context.Context, id relational.TableID) (*TableInfo, error) {
	if info, ok := f[id.String()]; ok {
		return info, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "table %s not found", id)
}

func mappedOrders(t *testing.T) *relational.Table {
	t.Helper()
	tbl, err := relational.NewTable(relational.TableID{Name: "Orders"})
	require.NoError(t, err)

	id, err := tbl.CreateColumn("id")
	require.NoError(t, err)
	id.SetNullability(relational.NotNullable)
	city, err := tbl.CreateColumn("city")
	require.NoError(t, err)
	require.NoError(t, city.SetLength(40))
	rush, err := tbl.CreateColumn("rush")
	require.NoError(t, err)
	rush.SetNullability(relational.NotNullable)

	pk, err := tbl.CreatePrimaryKey("pk_orders")
	require.NoError(t, err)
	require.NoError(t, pk.SetColumns(id))
	return tbl
}

func TestCompare(t *testing.T) {
	orders := mappedOrders(t)
	lines, err := relational.NewTable(relational.TableID{Name: "Lines"})
	require.NoError(t, err)

	t.Run("in sync", func(t *testing.T) {
		r := fakeReader{"Orders": {ID: orders.ID(), Columns: []ColumnInfo{
			{Name: "id", IsPrimaryKey: true},
			{Name: "city", IsNullable: true, MaxLength: ptr(40)},
			{Name: "rush"},
		}}}
		drifts, err := Compare(context.Background(), r, []*relational.Table{orders})
		require.NoError(t, err)
		assert.Empty(t, drifts)
	})

	t.Run("differences", func(t *testing.T) {
		r := fakeReader{"Orders": {ID: orders.ID(), Columns: []ColumnInfo{
			{Name: "id"},
			{Name: "city", MaxLength: ptr(80)},
			{Name: "rush", IsNullable: true},
			{Name: "created_at"},
		}}}
		drifts, err := Compare(context.Background(), r, []*relational.Table{orders, lines})
		require.NoError(t, err)

		var got []string
		for _, d := range drifts {
			got = append(got, d.String())
		}
		assert.Equal(t, []string{
			"Orders.city: length (mapped 40, database 80)",
			"Orders.rush: nullability (mapped NOT NULL, database nullable)",
			"Orders.created_at: extra column",
			"Orders: primary key (mapped (id), database ())",
			"Lines: missing table",
		}, got)
	})

	t.Run("missing column", func(t *testing.T) {
		r := fakeReader{"Orders": {ID: orders.ID(), Columns: []ColumnInfo{{Name: "id", IsPrimaryKey: true}}}}
		drifts, err := Compare(context.Background(), r, []*relational.Table{orders})
		require.NoError(t, err)
		require.Len(t, drifts, 2)
		assert.Equal(t, MissingColumn, drifts[0].Kind)
		assert.Equal(t, "city", drifts[0].Column)
		assert.Equal(t, "rush", drifts[1].Column)
	})
}

func ptr(n int) *int { return &n }
