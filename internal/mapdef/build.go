package mapdef

import (
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/relational"
)

// content is the part of ClassMap and InlineClassMap the builder fills.
type content interface {
	AttributeMap(name xml.Name) *mapping.PropertyMap
	CreateAttributeMap(name xml.Name) (*mapping.PropertyMap, error)
	PCDATAMap() *mapping.PropertyMap
	CreatePCDATAMap() (*mapping.PropertyMap, error)
	Child(name xml.Name) (mapping.Child, bool)
	CreateChildPropertyMap(name xml.Name) (*mapping.PropertyMap, error)
	CreateRelatedClassMap(cm *mapping.ClassMap) (*mapping.RelatedClassMap, error)
	CreateInlineClassMap(name xml.Name) (*mapping.InlineClassMap, error)
}

type builder struct {
	m      *mapping.Map
	log    *logger.Logger
	tables map[string]*relational.Table
}

// Build creates the map described by d. Tables are built before class
// maps, and every class map is declared before any content refers to it,
// so definitions may appear in any order.
func (d *Definition) Build(opts ...Option) (*mapping.Map, error) {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	b := &builder{
		m:      mapping.New(),
		log:    o.log.Component("mapdef"),
		tables: make(map[string]*relational.Table),
	}

	for _, ns := range []map[string]string{o.namespaces, d.Namespaces} {
		for _, prefix := range slices.Sorted(maps.Keys(ns)) {
			if err := b.m.AddNamespace(prefix, ns[prefix]); err != nil {
				return nil, err
			}
		}
	}
	if err := b.formatters(d); err != nil {
		return nil, err
	}

	for _, td := range d.Tables {
		if err := b.table(td); err != nil {
			return nil, fmt.Errorf("table %s: %w", td.Name, err)
		}
	}
	for _, td := range d.Tables {
		if err := b.foreignKeys(td); err != nil {
			return nil, fmt.Errorf("table %s: %w", td.Name, err)
		}
	}

	classes := make([]*mapping.ClassMap, len(d.Classes))
	for i, cd := range d.Classes {
		cm, err := b.declare(cd)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", cd.Element, err)
		}
		classes[i] = cm
	}
	for i, cd := range d.Classes {
		if err := b.relations(classes[i], cd); err != nil {
			return nil, fmt.Errorf("class %s: %w", cd.Element, err)
		}
	}
	for i, cd := range d.Classes {
		if cd.Uses != "" {
			continue
		}
		if err := b.content(classes[i], cd.Content, classes[i].Table()); err != nil {
			return nil, fmt.Errorf("class %s: %w", cd.Element, err)
		}
	}

	b.log.InfoWith("map definition built", map[string]interface{}{
		"tables":  len(d.Tables),
		"classes": len(d.Classes),
	})
	return b.m, nil
}

// --- formatters ---

func (b *builder) formatters(d *Definition) error {
	for _, name := range slices.Sorted(maps.Keys(d.Formatters)) {
		f, err := newFormatter(d.Formatters[name])
		if err != nil {
			return fmt.Errorf("formatter %s: %w", name, err)
		}
		if err := b.m.AddFormatter(name, f); err != nil {
			return err
		}
	}
	for _, typeName := range slices.Sorted(maps.Keys(d.DefaultFormatters)) {
		t, ok := relational.ParseSQLType(typeName)
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "default formatter for unknown SQL type %q", typeName)
		}
		name := d.DefaultFormatters[typeName]
		f := b.m.Formatter(name)
		if f == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "default formatter for %s names unknown formatter %q", t, name)
		}
		if err := b.m.SetDefaultFormatter(t, f); err != nil {
			return err
		}
	}
	return nil
}

func newFormatter(fd FormatterDef) (relational.Formatter, error) {
	switch fd.Kind {
	case "number":
		return relational.NumberFormatter{}, nil
	case "boolean":
		return relational.BooleanFormatter{True: fd.True, False: fd.False}, nil
	case "datetime":
		if fd.Layout == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, "datetime formatter requires a layout")
		}
		return relational.DateTimeFormatter{Layout: fd.Layout}, nil
	case "char":
		return relational.CharFormatter{}, nil
	case "base64":
		return relational.Base64Formatter{}, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown formatter kind %q", fd.Kind)
	}
}

// --- tables ---

func (b *builder) table(td TableDef) error {
	if td.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "table name is required")
	}
	id := tableID(td)
	if b.m.Table(id) != nil {
		return errs.Newf(errs.ErrKindConflict, "table %s is defined twice", id)
	}
	t, err := b.m.CreateTable(id)
	if err != nil {
		return err
	}
	b.tables[id.String()] = t
	if td.Quote != nil {
		t.SetQuoteIdentifiers(*td.Quote)
	}

	for _, cd := range td.Columns {
		if err := b.column(t, cd); err != nil {
			return fmt.Errorf("column %s: %w", cd.Name, err)
		}
	}

	if pk := td.PrimaryKey; pk != nil {
		name := pk.Name
		if name == "" {
			name = "pk_" + td.Name
		}
		k, err := t.CreatePrimaryKey(name)
		if err != nil {
			return err
		}
		if err := b.candidateKey(t, k, *pk); err != nil {
			return err
		}
	}
	for _, kd := range td.UniqueKeys {
		if t.UniqueKey(kd.Name) != nil {
			return errs.Newf(errs.ErrKindConflict, "unique key %s is defined twice", kd.Name)
		}
		k, err := t.CreateUniqueKey(kd.Name)
		if err != nil {
			return err
		}
		if err := b.candidateKey(t, k, kd); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) column(t *relational.Table, cd ColumnDef) error {
	if t.Column(cd.Name) != nil {
		return errs.New(errs.ErrKindConflict, "column is defined twice")
	}
	col, err := t.CreateColumn(cd.Name)
	if err != nil {
		return err
	}
	if cd.Type != "" {
		st, ok := relational.ParseSQLType(cd.Type)
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown SQL type %q", cd.Type)
		}
		col.SetType(st)
	}
	switch {
	case cd.Nullable == nil:
	case *cd.Nullable:
		col.SetNullability(relational.Nullable)
	default:
		col.SetNullability(relational.NotNullable)
	}
	if cd.Length != nil {
		if err := col.SetLength(*cd.Length); err != nil {
			return err
		}
	}
	if cd.Precision != nil {
		if err := col.SetPrecision(*cd.Precision); err != nil {
			return err
		}
	}
	if cd.Scale != nil {
		if err := col.SetScale(*cd.Scale); err != nil {
			return err
		}
	}
	if cd.Formatter != "" {
		f := b.m.Formatter(cd.Formatter)
		if f == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown formatter %q", cd.Formatter)
		}
		if err := col.SetFormatter(f); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) keyColumns(t *relational.Table, names []string) ([]*relational.Column, error) {
	cols := make([]*relational.Column, len(names))
	for i, n := range names {
		cols[i] = t.Column(n)
		if cols[i] == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown column %q", n)
		}
	}
	return cols, nil
}

func (b *builder) candidateKey(t *relational.Table, k *relational.Key, kd KeyDef) error {
	cols, err := b.keyColumns(t, kd.Columns)
	if err != nil {
		return fmt.Errorf("key %s: %w", k.Name(), err)
	}
	if err := k.SetColumns(cols...); err != nil {
		return err
	}
	if kd.References != nil {
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: only foreign keys reference other tables", k.Name())
	}
	if kd.Generate == "" && kd.Generator == "" {
		return nil
	}
	var mode relational.KeyGeneration
	switch kd.Generate {
	case "", "document":
		mode = relational.FromDocument
	case "database":
		mode = relational.FromDatabase
	case "generator":
		mode = relational.FromGenerator
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "key %s: unknown generation %q", k.Name(), kd.Generate)
	}
	return k.SetGeneration(mode, kd.Generator)
}

// foreignKeys runs after every table exists so keys may point forward.
func (b *builder) foreignKeys(td TableDef) error {
	t := b.tables[tableID(td).String()]
	for _, kd := range td.ForeignKeys {
		if t.ForeignKey(kd.Name) != nil {
			return errs.Newf(errs.ErrKindConflict, "foreign key %s is defined twice", kd.Name)
		}
		fk, err := t.CreateForeignKey(kd.Name)
		if err != nil {
			return err
		}
		cols, err := b.keyColumns(t, kd.Columns)
		if err != nil {
			return fmt.Errorf("key %s: %w", kd.Name, err)
		}
		if err := fk.SetColumns(cols...); err != nil {
			return err
		}
		if kd.References == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "foreign key %s needs references", kd.Name)
		}
		remote, err := b.key(*kd.References)
		if err != nil {
			return fmt.Errorf("foreign key %s: %w", kd.Name, err)
		}
		if err := fk.SetRemoteKey(remote.Table(), remote); err != nil {
			return err
		}
	}
	return nil
}

func tableID(td TableDef) relational.TableID {
	return relational.TableID{Database: td.Database, Catalog: td.Catalog, Schema: td.Schema, Name: td.Name}
}

func (b *builder) tableRef(ref string) (*relational.Table, error) {
	t, ok := b.tables[ref]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown table %q", ref)
	}
	return t, nil
}

func (b *builder) key(ref KeyRef) (*relational.Key, error) {
	t, err := b.tableRef(ref.Table)
	if err != nil {
		return nil, err
	}
	if ref.Key == "" {
		if t.PrimaryKey() == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s has no primary key", ref.Table)
		}
		return t.PrimaryKey(), nil
	}
	if k := t.CandidateKey(ref.Key); k != nil {
		return k, nil
	}
	if k := t.ForeignKey(ref.Key); k != nil {
		return k, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s has no key %q", ref.Table, ref.Key)
}

// link infers the unique side from the key kinds.
func (b *builder) link(ld *LinkDef) (*relational.LinkInfo, error) {
	if ld == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "link is required")
	}
	parent, err := b.key(ld.Parent)
	if err != nil {
		return nil, fmt.Errorf("link parent: %w", err)
	}
	child, err := b.key(ld.Child)
	if err != nil {
		return nil, fmt.Errorf("link child: %w", err)
	}
	return relational.NewLinkInfo(parent, child, parent.IsCandidate())
}

func (b *builder) order(od *OrderDef, t *relational.Table) (*relational.OrderInfo, error) {
	if od == nil {
		return nil, nil
	}
	switch {
	case od.Value != nil && od.Column != "":
		return nil, errs.New(errs.ErrKindInvalidInput, "order has both a value and a column")
	case od.Value != nil:
		return relational.FixedOrder(*od.Value), nil
	case od.Column == "":
		return nil, errs.New(errs.ErrKindInvalidInput, "order needs a value or a column")
	}

	if od.Table != "" {
		var err error
		if t, err = b.tableRef(od.Table); err != nil {
			return nil, err
		}
	}
	if t == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "order column %s has no table", od.Column)
	}
	col := t.Column(od.Column)
	if col == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "order column %s is not in table %s", od.Column, t.ID())
	}

	var ascending bool
	switch od.Direction {
	case "", "descending":
	case "ascending":
		ascending = true
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown order direction %q", od.Direction)
	}
	return relational.ColumnOrder(col, ascending, od.Generate)
}

// --- class maps ---

func (b *builder) declare(cd ClassDef) (*mapping.ClassMap, error) {
	name, err := b.m.ParseQualifiedName(cd.Element)
	if err != nil {
		return nil, err
	}
	if b.m.ClassMap(name) != nil {
		return nil, errs.New(errs.ErrKindConflict, "class is defined twice")
	}
	cm, err := b.m.CreateClassMap(name)
	if err != nil {
		return nil, err
	}
	switch {
	case cd.Table != "" && cd.Uses != "":
		return nil, errs.New(errs.ErrKindInvalidInput, "a class has either a table or uses another class")
	case cd.Table != "":
		t, err := b.tableRef(cd.Table)
		if err != nil {
			return nil, err
		}
		if err := cm.SetTable(t); err != nil {
			return nil, err
		}
	case cd.Uses == "":
		return nil, errs.New(errs.ErrKindInvalidInput, "a class needs a table or uses another class")
	}
	return cm, nil
}

func (b *builder) classRef(s string) (*mapping.ClassMap, error) {
	name, err := b.m.ParseQualifiedName(s)
	if err != nil {
		return nil, err
	}
	cm := b.m.ClassMap(name)
	if cm == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown class %q", s)
	}
	return cm, nil
}

// relations applies uses redirects and base classes. It runs for every
// class before any content so that children resolve redirects declared
// later in the file.
func (b *builder) relations(cm *mapping.ClassMap, cd ClassDef) error {
	if cd.Uses != "" {
		used, err := b.classRef(cd.Uses)
		if err != nil {
			return err
		}
		if cd.Base != nil || !cd.Content.empty() {
			return errs.New(errs.ErrKindInvalidInput, "a class that uses another class has no base or content of its own")
		}
		return cm.UseClassMap(used)
	}

	if cd.Base != nil {
		base, err := b.classRef(cd.Base.Class)
		if err != nil {
			return fmt.Errorf("base: %w", err)
		}
		link, err := b.link(&cd.Base.Link)
		if err != nil {
			return fmt.Errorf("base: %w", err)
		}
		if err := cm.SetBaseClassMap(base, link); err != nil {
			return err
		}
	}
	return nil
}

func (c Content) empty() bool {
	return len(c.Attributes) == 0 && c.PCDATA == nil && len(c.Children) == 0
}

func (b *builder) content(c content, cd Content, t *relational.Table) error {
	for _, ad := range cd.Attributes {
		name, err := parseAttributeName(b.m, ad.Name)
		if err != nil {
			return err
		}
		if c.AttributeMap(name) != nil {
			return errs.Newf(errs.ErrKindConflict, "attribute %s is mapped twice", ad.Name)
		}
		pm, err := c.CreateAttributeMap(name)
		if err != nil {
			return err
		}
		if err := b.property(pm, ad, t); err != nil {
			return fmt.Errorf("attribute %s: %w", ad.Name, err)
		}
	}

	if cd.PCDATA != nil {
		if c.PCDATAMap() != nil {
			return errs.New(errs.ErrKindConflict, "PCDATA is mapped twice")
		}
		pm, err := c.CreatePCDATAMap()
		if err != nil {
			return err
		}
		if err := b.property(pm, *cd.PCDATA, t); err != nil {
			return fmt.Errorf("pcdata: %w", err)
		}
	}

	for _, ch := range cd.Children {
		if err := b.child(c, ch, t); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) child(c content, ch ChildDef, t *relational.Table) error {
	set := 0
	for _, s := range []string{ch.Element, ch.Class, ch.Inline} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return errs.New(errs.ErrKindInvalidInput, "a child sets exactly one of element, class and inline")
	}

	switch {
	case ch.Element != "":
		name, err := b.m.ParseQualifiedName(ch.Element)
		if err != nil {
			return err
		}
		if _, ok := c.Child(name); ok {
			return errs.Newf(errs.ErrKindConflict, "child %s is mapped twice", ch.Element)
		}
		if !ch.Content.empty() {
			return errs.Newf(errs.ErrKindInvalidInput, "property %s cannot have content", ch.Element)
		}
		pm, err := c.CreateChildPropertyMap(name)
		if err != nil {
			return err
		}
		if err := b.property(pm, ch.property(), t); err != nil {
			return fmt.Errorf("element %s: %w", ch.Element, err)
		}

	case ch.Class != "":
		cm, err := b.classRef(ch.Class)
		if err != nil {
			return err
		}
		if _, ok := c.Child(cm.Name()); ok {
			return errs.Newf(errs.ErrKindConflict, "child %s is mapped twice", ch.Class)
		}
		rcm, err := c.CreateRelatedClassMap(cm)
		if err != nil {
			return err
		}
		link, err := b.link(ch.Link)
		if err != nil {
			return fmt.Errorf("class %s: %w", ch.Class, err)
		}
		if err := rcm.SetLinkInfo(link); err != nil {
			return err
		}
		order, err := b.order(ch.Order, cm.Resolve().Table())
		if err != nil {
			return fmt.Errorf("class %s: %w", ch.Class, err)
		}
		rcm.SetOrderInfo(order)

	default:
		name, err := b.m.ParseQualifiedName(ch.Inline)
		if err != nil {
			return err
		}
		icm, err := c.CreateInlineClassMap(name)
		if err != nil {
			return err
		}
		if ch.Order != nil {
			order, err := b.order(ch.Order, t)
			if err != nil {
				return fmt.Errorf("inline %s: %w", ch.Inline, err)
			}
			icm.SetOrderInfo(order)
		}
		if err := b.content(icm, ch.Content, t); err != nil {
			return fmt.Errorf("inline %s: %w", ch.Inline, err)
		}
	}
	return nil
}

func (b *builder) property(pm *mapping.PropertyMap, pd PropertyDef, t *relational.Table) error {
	if pd.Table != "" {
		pt, err := b.tableRef(pd.Table)
		if err != nil {
			return err
		}
		link, err := b.link(pd.Link)
		if err != nil {
			return err
		}
		if err := pm.SetTable(pt, link); err != nil {
			return err
		}
		t = pt
	} else if pd.Link != nil {
		return errs.New(errs.ErrKindInvalidInput, "link is only used with a property table")
	}

	if pd.Column == "" {
		return errs.New(errs.ErrKindInvalidInput, "column is required")
	}
	if t == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s has no table", pd.Column)
	}
	col := t.Column(pd.Column)
	if col == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "column %s is not in table %s", pd.Column, t.ID())
	}
	if err := pm.SetColumn(col); err != nil {
		return err
	}

	order, err := b.order(pd.Order, t)
	if err != nil {
		return err
	}
	tokenOrder, err := b.order(pd.TokenListOrder, t)
	if err != nil {
		return err
	}
	return pm.SetTraits(mapping.Traits{
		TokenList:      pd.TokenList,
		TokenListOrder: tokenOrder,
		Order:          order,
		ContainsXML:    pd.ContainsXML,
	})
}

// parseAttributeName leaves unprefixed attributes outside any namespace;
// the default namespace does not apply to attributes.
func parseAttributeName(m *mapping.Map, s string) (xml.Name, error) {
	if s != "" && !strings.ContainsAny(s, ":{") {
		return xml.Name{Local: s}, nil
	}
	return m.ParseQualifiedName(s)
}
