package mapdef

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/inverter"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/relational"
)

const ns = "urn:example:orders"

func qname(local string) xml.Name { return xml.Name{Space: ns, Local: local} }

func TestLoadFile(t *testing.T) {
	m, err := LoadFile("testdata/orders.yaml")
	require.NoError(t, err)

	uri, ok := m.NamespaceURI("ord")
	require.True(t, ok)
	assert.Equal(t, ns, uri)
	assert.Len(t, m.Tables(), 3)

	orders := m.Table(relational.TableID{Name: "Orders"})
	require.NotNil(t, orders)
	assert.Equal(t, relational.FromDatabase, orders.PrimaryKey().Generation())
	assert.Equal(t, relational.NotNullable, orders.Column("id").Nullability())
	assert.Equal(t, relational.NullabilityUnknown, orders.Column("date").Nullability())
	n, ok := orders.Column("street").Length()
	assert.True(t, ok)
	assert.Equal(t, 80, n)
	assert.IsType(t, relational.DateTimeFormatter{}, m.FormatterFor(orders.Column("date")))
	assert.Equal(t, relational.BooleanFormatter{True: "yes", False: "no"}, m.FormatterFor(orders.Column("rush")))

	lines := m.Table(relational.TableID{Name: "Lines"})
	assert.Equal(t, "pk_Lines", lines.PrimaryKey().Name())
	fk := lines.ForeignKey("fk_lines_orders")
	assert.Same(t, orders.PrimaryKey(), fk.RemoteKey())
	assert.False(t, m.Table(relational.TableID{Name: "Notes"}).QuoteIdentifiers())

	order := m.ClassMap(qname("Order"))
	require.NotNil(t, order)
	assert.Same(t, orders, order.Table())
	id := order.AttributeMap(xml.Name{Local: "id"})
	require.NotNil(t, id, "unprefixed attributes are outside the namespace")
	assert.Same(t, orders.Column("id"), id.Column())

	child, ok := order.Child(qname("Shipping"))
	require.True(t, ok)
	require.Equal(t, mapping.ChildInlineClass, child.Kind())
	v, _ := child.InlineClassMap().OrderInfo().FixedValue()
	assert.Equal(t, int64(2), v)
	addr, ok := child.InlineClassMap().Child(qname("Address"))
	require.True(t, ok)
	assert.Len(t, addr.InlineClassMap().Children(), 2)

	child, ok = order.Child(qname("Line"))
	require.True(t, ok)
	rcm := child.RelatedClassMap()
	assert.Same(t, m.ClassMap(qname("Line")), rcm.ClassMap())
	assert.Same(t, orders.PrimaryKey(), rcm.LinkInfo().ParentKey())
	assert.True(t, rcm.LinkInfo().ParentKeyIsUnique())
	assert.True(t, rcm.OrderInfo().IsAscending())
	assert.True(t, rcm.OrderInfo().GenerateOrder())

	child, ok = order.Child(qname("Note"))
	require.True(t, ok)
	note := child.PropertyMap()
	assert.True(t, note.IsPropertyTable())
	assert.True(t, note.IsTokenList())
	assert.True(t, note.ContainsXML())
}

func TestLoad_InvertsCleanly(t *testing.T) {
	m, err := LoadFile("testdata/orders.yaml")
	require.NoError(t, err)

	report, err := inverter.New(nil).CreateDatabaseView(m)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ClassTableMaps)

	ctm := m.ClassTableMap(relational.TableID{Name: "Orders"})
	require.NotNil(t, ctm)
	assert.Equal(t, "Shipping/Address", ctm.ColumnMap("street").ElementInsertionList().String())
}

func TestOrder_DefaultsToDescending(t *testing.T) {
	m, err := Load([]byte(`
tables:
  - name: T
    columns: [{name: id}, {name: seq}]
classes:
  - element: A
    table: T
    children:
      - element: b
        column: id
        order: {column: seq}
`))
	require.NoError(t, err)
	c, ok := m.ClassMap(xml.Name{Local: "A"}).Child(xml.Name{Local: "b"})
	require.True(t, ok)
	o := c.PropertyMap().OrderInfo()
	assert.False(t, o.IsAscending())
	assert.Same(t, m.Table(relational.TableID{Name: "T"}).Column("seq"), o.Column())
}

func TestUsesAndBase(t *testing.T) {
	m, err := Load([]byte(`
tables:
  - name: Parts
    columns: [{name: id}]
    primary_key: {columns: [id]}
  - name: Bolts
    columns: [{name: part_id}, {name: size}]
    foreign_keys: [{name: fk_part, columns: [part_id], references: {table: Parts}}]
classes:
  - element: Alias
    uses: Bolt
  - element: Bolt
    table: Bolts
    base:
      class: Part
      link: {parent: {table: Parts}, child: {table: Bolts, key: fk_part}}
    attributes: [{name: size, column: size}]
  - element: Part
    table: Parts
`), WithNamespaces(map[string]string{"p": "urn:parts"}))
	require.NoError(t, err)

	bolt := m.ClassMap(xml.Name{Local: "Bolt"})
	assert.Same(t, bolt, m.ClassMap(xml.Name{Local: "Alias"}).UsedClassMap())
	assert.Same(t, m.ClassMap(xml.Name{Local: "Part"}), bolt.BaseClassMap())
	_, ok := m.NamespaceURI("p")
	assert.True(t, ok)
}

func TestLoad_ClassOrderIndependent(t *testing.T) {
	const tables = `
tables:
  - name: Orders
    columns: [{name: id}]
    primary_key: {columns: [id]}
  - name: Lines
    columns: [{name: order_id}, {name: line_no}, {name: qty}]
    foreign_keys: [{name: fk_order, columns: [order_id], references: {table: Orders}}]
classes:
`
	order := `
  - element: Order
    table: Orders
    children:
      - class: Item
        link: {parent: {table: Orders}, child: {table: Lines, key: fk_order}}
        order: {column: line_no}
`
	item := `
  - element: Item
    uses: Line
`
	line := `
  - element: Line
    table: Lines
    pcdata: {column: qty}
`
	for name, classes := range map[string]string{
		"redirect first": item + line + order,
		"redirect last":  order + item + line,
		"target last":    order + line + item,
	} {
		t.Run(name, func(t *testing.T) {
			m, err := Load([]byte(tables + classes))
			require.NoError(t, err)

			ch, ok := m.ClassMap(xml.Name{Local: "Order"}).Child(xml.Name{Local: "Item"})
			require.True(t, ok)
			rcm := ch.RelatedClassMap()
			require.NotNil(t, rcm)
			assert.Equal(t, "line_no", rcm.OrderInfo().Column().Name())
			assert.Same(t, m.ClassMap(xml.Name{Local: "Line"}), rcm.ClassMap().Resolve())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   func(error) bool
	}{
		{"unknown field", "tabels: []\n", errs.IsInvalidInput},
		{"duplicate table", "tables: [{name: T}, {name: T}]\n", errs.IsConflict},
		{"duplicate column", "tables: [{name: T, columns: [{name: a}, {name: a}]}]\n", errs.IsConflict},
		{"unknown type", "tables: [{name: T, columns: [{name: a, type: VARCHAR2}]}]\n", errs.IsInvalidInput},
		{"unknown key column", "tables: [{name: T, primary_key: {columns: [x]}}]\n", errs.IsInvalidInput},
		{"dangling reference", "tables: [{name: T, columns: [{name: a}], foreign_keys: [{name: f, columns: [a], references: {table: U}}]}]\n", errs.IsInvalidInput},
		{"unknown formatter kind", "formatters: {f: {kind: roman}}\n", errs.IsInvalidInput},
		{"class without table", "classes: [{element: A}]\n", errs.IsInvalidInput},
		{"table and uses", "tables: [{name: T}]\nclasses: [{element: A, table: T, uses: B}, {element: B, table: T}]\n", errs.IsInvalidInput},
		{"duplicate class", "tables: [{name: T}]\nclasses: [{element: A, table: T}, {element: A, table: T}]\n", errs.IsConflict},
		{"unknown prefix", "tables: [{name: T}]\nclasses: [{element: x:A, table: T}]\n", errs.IsInvalidInput},
		{"unknown column", "tables: [{name: T}]\nclasses: [{element: A, table: T, attributes: [{name: a, column: nope}]}]\n", errs.IsInvalidInput},
		{"two child kinds", "tables: [{name: T, columns: [{name: a}]}]\nclasses: [{element: A, table: T, children: [{element: b, inline: c, column: a}]}]\n", errs.IsInvalidInput},
		{"child mapped twice", "tables: [{name: T, columns: [{name: a}]}]\nclasses: [{element: A, table: T, children: [{element: b, column: a}, {element: b, column: a}]}]\n", errs.IsConflict},
		{"shape conflict", "tables: [{name: T, columns: [{name: a}]}]\nclasses: [{element: A, table: T, children: [{element: b, column: a}, {inline: b}]}]\n", errs.IsConflict},
		{"ordered attribute", "tables: [{name: T, columns: [{name: a}]}]\nclasses: [{element: A, table: T, attributes: [{name: a, column: a, order: {value: 1}}]}]\n", errs.IsInvalidInput},
		{"uses cycle", "classes: [{element: A, uses: B}, {element: B, uses: A}]\n", errs.IsInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, tt.is(err), "got %v", err)
		})
	}
}

type dirStore string

func (d dirStore) Ping(context.Context) error { return nil }
func (d dirStore) Close() error               { return nil }
func (d dirStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f, err := os.Open(string(d) + "/" + key)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindNotFound, "no object", err)
	}
	return f, nil
}

func TestLoadFromStore(t *testing.T) {
	m, err := LoadFromStore(context.Background(), dirStore("testdata"), "maps", "orders.yaml")
	require.NoError(t, err)
	assert.NotNil(t, m.ClassMap(qname("Order")))

	_, err = LoadFromStore(context.Background(), dirStore("testdata"), "maps", "absent.yaml")
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, strings.Contains(err.Error(), "absent.yaml"))
}
