package mapping

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

func name(local string) xml.Name { return xml.Name{Local: local} }

func TestElementContent_NameCollisionKeepsOriginal(t *testing.T) {
	order, err := NewClassMap(name("Order"))
	require.NoError(t, err)
	customer, err := NewClassMap(name("Customer"))
	require.NoError(t, err)

	pm, err := order.CreateChildPropertyMap(name("Customer"))
	require.NoError(t, err)

	_, err = order.CreateRelatedClassMap(customer)
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))

	child, ok := order.Child(name("Customer"))
	require.True(t, ok)
	assert.Equal(t, ChildProperty, child.Kind())
	assert.Same(t, pm, child.PropertyMap())
	assert.Nil(t, child.RelatedClassMap())
}

func TestElementContent_CreateOrGet(t *testing.T) {
	cm, err := NewClassMap(name("Order"))
	require.NoError(t, err)

	t.Run("attribute", func(t *testing.T) {
		a, err := cm.CreateAttributeMap(name("id"))
		require.NoError(t, err)
		b, err := cm.CreateAttributeMap(name("id"))
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, AttributeProperty, a.Kind())
	})

	t.Run("pcdata", func(t *testing.T) {
		a, err := cm.CreatePCDATAMap()
		require.NoError(t, err)
		b, err := cm.CreatePCDATAMap()
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, xml.Name{}, a.Name())
	})

	t.Run("inline", func(t *testing.T) {
		a, err := cm.CreateInlineClassMap(name("Shipping"))
		require.NoError(t, err)
		b, err := cm.CreateInlineClassMap(name("Shipping"))
		require.NoError(t, err)
		assert.Same(t, a, b)

		_, err = cm.CreateChildPropertyMap(name("Shipping"))
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("related to a different class", func(t *testing.T) {
		lineA, _ := NewClassMap(name("Line"))
		lineB, _ := NewClassMap(name("Line"))
		_, err := cm.CreateRelatedClassMap(lineA)
		require.NoError(t, err)
		_, err = cm.CreateRelatedClassMap(lineB)
		assert.True(t, errs.IsConflict(err))
	})
}

func TestElementContent_AddOnly(t *testing.T) {
	cm, _ := NewClassMap(name("Order"))

	pm, _ := NewPropertyMap(name("date"), ElementProperty)
	require.NoError(t, cm.AddChildPropertyMap(pm))

	dup, _ := NewPropertyMap(name("date"), ElementProperty)
	assert.True(t, errs.IsConflict(cm.AddChildPropertyMap(dup)))

	icm, _ := NewInlineClassMap(name("date"))
	assert.True(t, errs.IsConflict(cm.AddInlineClassMap(icm)))

	attr, _ := NewPropertyMap(name("id"), AttributeProperty)
	require.NoError(t, cm.AddAttributeMap(attr))
	assert.True(t, errs.IsConflict(cm.AddAttributeMap(attr)))
	assert.True(t, errs.IsInvalidInput(cm.AddChildPropertyMap(attr)), "attribute is not an element property")

	text, _ := NewPropertyMap(xml.Name{}, PCDATAProperty)
	require.NoError(t, cm.SetPCDATAMap(text))
	assert.True(t, errs.IsConflict(cm.SetPCDATAMap(text)))
}

func TestElementContent_ChildrenSorted(t *testing.T) {
	cm, _ := NewClassMap(name("Order"))
	_, _ = cm.CreateChildPropertyMap(name("zeta"))
	_, _ = cm.CreateInlineClassMap(name("alpha"))
	_, _ = cm.CreateChildPropertyMap(xml.Name{Space: "urn:a", Local: "beta"})

	var got []string
	for _, c := range cm.Children() {
		got = append(got, c.Name().Local)
	}
	assert.Equal(t, []string{"alpha", "zeta", "beta"}, got)
}

func TestPropertyMap(t *testing.T) {
	_, err := NewPropertyMap(xml.Name{}, AttributeProperty)
	assert.True(t, errs.IsInvalidInput(err))

	attr, _ := NewPropertyMap(name("id"), AttributeProperty)
	assert.True(t, errs.IsInvalidInput(attr.SetOrderInfo(relational.FixedOrder(1))))
	assert.True(t, errs.IsInvalidInput(attr.SetContainsXML(true)))

	elem, _ := NewPropertyMap(name("note"), ElementProperty)
	require.NoError(t, elem.SetContainsXML(true))
	elem.SetTokenList(true, relational.FixedOrder(2))
	assert.NotNil(t, elem.TokenListOrderInfo())
	elem.SetTokenList(false, relational.FixedOrder(2))
	assert.Nil(t, elem.TokenListOrderInfo())
}

func TestPropertyMap_PropertyTable(t *testing.T) {
	orders, _ := relational.NewTable(relational.TableID{Name: "Orders"})
	notes, _ := relational.NewTable(relational.TableID{Name: "Notes"})
	id, _ := orders.CreateColumn("id")
	orderID, _ := notes.CreateColumn("order_id")
	text, _ := notes.CreateColumn("text")

	pk, _ := orders.CreatePrimaryKey("pk")
	require.NoError(t, pk.SetColumns(id))
	fk, _ := notes.CreateForeignKey("fk")
	require.NoError(t, fk.SetColumns(orderID))
	link, err := relational.NewLinkInfo(pk, fk, true)
	require.NoError(t, err)

	pm, _ := NewPropertyMap(name("note"), ElementProperty)
	require.NoError(t, pm.SetTable(notes, link))
	assert.True(t, pm.IsPropertyTable())
	assert.True(t, errs.IsInvalidInput(pm.SetColumn(id)), "column outside property table")
	require.NoError(t, pm.SetColumn(text))

	other, _ := relational.NewTable(relational.TableID{Name: "Other"})
	assert.True(t, errs.IsInvalidInput(pm.SetTable(other, link)))
}

func TestClassMap_UseClassMap(t *testing.T) {
	a, _ := NewClassMap(name("A"))
	b, _ := NewClassMap(name("B"))
	c, _ := NewClassMap(name("C"))
	tbl, _ := relational.NewTable(relational.TableID{Name: "T"})

	require.NoError(t, c.SetTable(tbl))
	require.NoError(t, a.UseClassMap(b))
	require.NoError(t, b.UseClassMap(c))
	assert.Same(t, c, a.Resolve())

	x, _ := NewClassMap(name("X"))
	require.NoError(t, x.UseClassMap(a))
	assert.True(t, errs.IsInvalidInput(a.UseClassMap(x)), "cycle")
	assert.True(t, errs.IsConflict(c.UseClassMap(b)), "class with a table")
	assert.True(t, errs.IsConflict(a.SetTable(tbl)), "redirected class")
}

func TestClassMap_BaseCycle(t *testing.T) {
	a, _ := NewClassMap(name("A"))
	b, _ := NewClassMap(name("B"))
	link := &relational.LinkInfo{}

	require.NoError(t, b.SetBaseClassMap(a, link))
	assert.True(t, errs.IsInvalidInput(a.SetBaseClassMap(b, link)))
	assert.True(t, errs.IsInvalidInput(a.SetBaseClassMap(a, link)))
}

func TestElementInsertionList(t *testing.T) {
	var empty *ElementInsertionList
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, NewElementInsertionList())

	a, _ := NewElementInsertionMap(name("A"), nil)
	b, _ := NewElementInsertionMap(name("B"), relational.FixedOrder(1))
	src := []*ElementInsertionMap{a, b}
	l := NewElementInsertionList(src...)
	src[0] = b

	require.Equal(t, 2, l.Len())
	assert.Same(t, a, l.At(0))
	assert.Equal(t, "A/B", l.String())
}

func TestClassTableMap(t *testing.T) {
	orders, _ := relational.NewTable(relational.TableID{Name: "Orders"})
	lines, _ := relational.NewTable(relational.TableID{Name: "Lines"})
	date, _ := orders.CreateColumn("date")
	id, _ := orders.CreateColumn("id")
	qty, _ := lines.CreateColumn("qty")

	ctm, err := NewClassTableMap(orders)
	require.NoError(t, err)

	idMap, _ := NewColumnMap(id, name("id"), AttributeProperty)
	dateMap, _ := NewColumnMap(date, name("date"), ElementProperty)
	require.NoError(t, ctm.AddColumnMap(idMap))
	require.NoError(t, ctm.AddColumnMap(dateMap))
	assert.True(t, errs.IsConflict(ctm.AddColumnMap(dateMap)))

	foreign, _ := NewColumnMap(qty, name("qty"), ElementProperty)
	assert.True(t, errs.IsInvalidInput(ctm.AddColumnMap(foreign)))

	lineCTM, _ := NewClassTableMap(lines)
	rm, err := NewRelatedClassTableMap(name("Line"), lineCTM, nil)
	require.NoError(t, err)
	require.NoError(t, ctm.AddRelatedClassTableMap(rm))
	assert.True(t, errs.IsConflict(ctm.AddRelatedClassTableMap(rm)))

	wrap, _ := NewElementInsertionMap(name("Wrap"), nil)
	wrapped, _ := NewRelatedClassTableMap(name("Line"), lineCTM, nil)
	wrapped.SetElementInsertionList(NewElementInsertionList(wrap))
	require.NoError(t, ctm.AddRelatedClassTableMap(wrapped), "same name under a wrapper")
	assert.Same(t, rm, ctm.RelatedClassTableMap(name("Line")))
	assert.Same(t, wrapped, ctm.RelatedClassTableMap(name("Line"), name("Wrap")))
	assert.Nil(t, ctm.RelatedClassTableMap(name("Line"), name("Other")))

	children := ctm.Children()
	require.Len(t, children, 4)
	assert.Same(t, rm, children[2].RelatedClassTableMap(), "direct child sorts first")
	assert.Same(t, wrapped, children[3].RelatedClassTableMap())
	assert.Same(t, dateMap, children[0].ColumnMap(), "column index order")
	assert.Equal(t, TableChildRelatedClass, children[2].Kind())

	assert.True(t, errs.IsInvalidInput(ctm.SetBaseTable(orders, &relational.LinkInfo{})))
}

func TestMap_Collections(t *testing.T) {
	m := New()

	t.Run("tables", func(t *testing.T) {
		a, err := m.CreateTable(relational.TableID{Name: "B"})
		require.NoError(t, err)
		b, err := m.CreateTable(relational.TableID{Name: "B"})
		require.NoError(t, err)
		assert.Same(t, a, b)

		dup, _ := relational.NewTable(relational.TableID{Name: "B"})
		assert.True(t, errs.IsConflict(m.AddTable(dup)))
		_, _ = m.CreateTable(relational.TableID{Name: "A"})
		assert.Equal(t, "A", m.Tables()[0].Name())
	})

	t.Run("class maps", func(t *testing.T) {
		cm, err := m.CreateClassMap(name("Order"))
		require.NoError(t, err)
		again, _ := m.CreateClassMap(name("Order"))
		assert.Same(t, cm, again)

		other, _ := NewClassMap(name("Order"))
		assert.True(t, errs.IsConflict(m.AddClassMap(other)))

		m.RemoveAllClassMaps()
		assert.Empty(t, m.ClassMaps())
	})

	t.Run("class table maps", func(t *testing.T) {
		tbl := m.Table(relational.TableID{Name: "B"})
		ctm, err := m.CreateClassTableMap(tbl)
		require.NoError(t, err)
		again, _ := m.CreateClassTableMap(tbl)
		assert.Same(t, ctm, again)
		assert.Same(t, ctm, m.ClassTableMap(tbl.ID()))

		m.RemoveAllClassTableMaps()
		assert.Nil(t, m.ClassTableMap(tbl.ID()))
	})
}

func TestMap_Namespaces(t *testing.T) {
	m := New()
	require.NoError(t, m.AddNamespace("o", "urn:orders"))
	require.NoError(t, m.AddNamespace("o", "urn:orders"), "same binding twice")
	assert.True(t, errs.IsConflict(m.AddNamespace("o", "urn:other")))
	assert.True(t, errs.IsConflict(m.AddNamespace("x", "urn:orders")))

	n := xml.Name{Space: "urn:orders", Local: "Order"}
	assert.Equal(t, "o:Order", m.QualifiedName(n))
	assert.Equal(t, "{urn:unbound}Order", m.QualifiedName(xml.Name{Space: "urn:unbound", Local: "Order"}))

	tests := []struct {
		in   string
		want xml.Name
		err  bool
	}{
		{in: "o:Order", want: n},
		{in: "{urn:x}Item", want: xml.Name{Space: "urn:x", Local: "Item"}},
		{in: "Plain", want: name("Plain")},
		{in: "q:Order", err: true},
		{in: "o:", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := m.ParseQualifiedName(tt.in)
			if tt.err {
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap_Formatters(t *testing.T) {
	m := New()
	assert.IsType(t, relational.NumberFormatter{}, m.DefaultFormatter(relational.TypeInteger))

	yesNo := relational.BooleanFormatter{True: "yes", False: "no"}
	require.NoError(t, m.SetDefaultFormatter(relational.TypeBoolean, yesNo))
	assert.True(t, errs.IsInvalidInput(m.SetDefaultFormatter(relational.TypeDate, yesNo)))

	require.NoError(t, m.AddFormatter("yesno", yesNo))
	assert.True(t, errs.IsConflict(m.AddFormatter("yesno", yesNo)))
	assert.Equal(t, yesNo, m.Formatter("yesno"))

	tbl, _ := relational.NewTable(relational.TableID{Name: "T"})
	col, _ := tbl.CreateColumn("flag")
	col.SetType(relational.TypeBoolean)
	assert.Equal(t, yesNo, m.FormatterFor(col))
}
