package mapdef

// Definition is the YAML form of a map: tables first, then class maps
// referring to them by table and column name.
type Definition struct {
	Namespaces        map[string]string       `yaml:"namespaces"`
	Formatters        map[string]FormatterDef `yaml:"formatters"`
	DefaultFormatters map[string]string       `yaml:"default_formatters"`
	Tables            []TableDef              `yaml:"tables"`
	Classes           []ClassDef              `yaml:"classes"`
}

// FormatterDef configures one of the built-in value formatters.
type FormatterDef struct {
	Kind   string `yaml:"kind"` // number, boolean, datetime, char, base64
	True   string `yaml:"true"`
	False  string `yaml:"false"`
	Layout string `yaml:"layout"`
}

// TableDef describes a table. References to it elsewhere use its dotted
// identifier, e.g. "sales.Orders" for schema sales.
type TableDef struct {
	Database    string      `yaml:"database"`
	Catalog     string      `yaml:"catalog"`
	Schema      string      `yaml:"schema"`
	Name        string      `yaml:"name"`
	Quote       *bool       `yaml:"quote"`
	Columns     []ColumnDef `yaml:"columns"`
	PrimaryKey  *KeyDef     `yaml:"primary_key"`
	UniqueKeys  []KeyDef    `yaml:"unique_keys"`
	ForeignKeys []KeyDef    `yaml:"foreign_keys"`
}

type ColumnDef struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Nullable  *bool  `yaml:"nullable"`
	Length    *int   `yaml:"length"`
	Precision *int   `yaml:"precision"`
	Scale     *int   `yaml:"scale"`
	Formatter string `yaml:"formatter"`
}

// KeyDef describes a primary, unique or foreign key. Generate applies to
// candidate keys and References to foreign keys.
type KeyDef struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	Generate   string   `yaml:"generate"` // document, database, generator
	Generator  string   `yaml:"generator"`
	References *KeyRef  `yaml:"references"`
}

// KeyRef names a key of a table. An empty Key means the primary key.
type KeyRef struct {
	Table string `yaml:"table"`
	Key   string `yaml:"key"`
}

// LinkDef joins two tables. Exactly one side must be a candidate key; it
// decides which side is unique.
type LinkDef struct {
	Parent KeyRef `yaml:"parent"`
	Child  KeyRef `yaml:"child"`
}

// OrderDef is either a fixed Value or a Column order. Direction defaults
// to descending.
type OrderDef struct {
	Value     *int64 `yaml:"value"`
	Table     string `yaml:"table"`
	Column    string `yaml:"column"`
	Direction string `yaml:"direction"` // ascending, descending
	Generate  bool   `yaml:"generate"`
}

// ClassDef maps an element type to a table, or redirects it with Uses.
type ClassDef struct {
	Element string   `yaml:"element"`
	Table   string   `yaml:"table"`
	Uses    string   `yaml:"uses"`
	Base    *BaseDef `yaml:"base"`
	Content `yaml:",inline"`
}

type BaseDef struct {
	Class string  `yaml:"class"`
	Link  LinkDef `yaml:"link"`
}

// Content is what an element maps: its attributes, PCDATA and children.
type Content struct {
	Attributes []PropertyDef `yaml:"attributes"`
	PCDATA     *PropertyDef  `yaml:"pcdata"`
	Children   []ChildDef    `yaml:"children"`
}

// PropertyDef maps one value to a column. Setting Table stores it in a
// property table joined by Link.
type PropertyDef struct {
	Name           string    `yaml:"name"`
	Column         string    `yaml:"column"`
	Table          string    `yaml:"table"`
	Link           *LinkDef  `yaml:"link"`
	Order          *OrderDef `yaml:"order"`
	TokenList      bool      `yaml:"token_list"`
	TokenListOrder *OrderDef `yaml:"token_list_order"`
	ContainsXML    bool      `yaml:"contains_xml"`
}

// ChildDef is one child element. Exactly one of Element, Class and Inline
// is set: a property, a related class or an inline class.
type ChildDef struct {
	Element string `yaml:"element"`
	Class   string `yaml:"class"`
	Inline  string `yaml:"inline"`

	Column         string    `yaml:"column"`
	Table          string    `yaml:"table"`
	Link           *LinkDef  `yaml:"link"`
	Order          *OrderDef `yaml:"order"`
	TokenList      bool      `yaml:"token_list"`
	TokenListOrder *OrderDef `yaml:"token_list_order"`
	ContainsXML    bool      `yaml:"contains_xml"`

	Content `yaml:",inline"`
}

func (c ChildDef) property() PropertyDef {
	return PropertyDef{
		Name:           c.Element,
		Column:         c.Column,
		Table:          c.Table,
		Link:           c.Link,
		Order:          c.Order,
		TokenList:      c.TokenList,
		TokenListOrder: c.TokenListOrder,
		ContainsXML:    c.ContainsXML,
	}
}
