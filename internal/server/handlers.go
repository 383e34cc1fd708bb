package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/relational"
)

type tableView struct {
	ID          string       `json:"id"`
	Columns     []columnView `json:"columns"`
	PrimaryKey  *keyView     `json:"primary_key,omitempty"`
	UniqueKeys  []keyView    `json:"unique_keys,omitempty"`
	ForeignKeys []keyView    `json:"foreign_keys,omitempty"`
}

type columnView struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Nullable  *bool  `json:"nullable,omitempty"`
	Length    *int   `json:"length,omitempty"`
	Precision *int   `json:"precision,omitempty"`
	Scale     *int   `json:"scale,omitempty"`
}

type keyView struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	Generation string   `json:"generation,omitempty"`
	References string   `json:"references,omitempty"`
}

type classView struct {
	Element string `json:"element"`
	Table   string `json:"table,omitempty"`
	Uses    string `json:"uses,omitempty"`
	Base    string `json:"base,omitempty"`
	contentView
}

type contentView struct {
	Attributes []propertyView `json:"attributes,omitempty"`
	PCDATA     *propertyView  `json:"pcdata,omitempty"`
	Children   []childView    `json:"children,omitempty"`
}

type propertyView struct {
	Name        string `json:"name,omitempty"`
	Column      string `json:"column"`
	Table       string `json:"table,omitempty"`
	TokenList   bool   `json:"token_list,omitempty"`
	ContainsXML bool   `json:"contains_xml,omitempty"`
}

type childView struct {
	Kind     string        `json:"kind"`
	Element  string        `json:"element"`
	Property *propertyView `json:"property,omitempty"`
	Class    string        `json:"class,omitempty"`
	*contentView
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables := s.m.Tables()
	out := make([]tableView, len(tables))
	for i, t := range tables {
		out[i] = viewTable(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	classes := s.m.ClassMaps()
	out := make([]classView, len(classes))
	for i, cm := range classes {
		cv := classView{Element: s.m.QualifiedName(cm.Name()), contentView: s.viewContent(cm)}
		if t := cm.Table(); t != nil {
			cv.Table = t.ID().String()
		}
		if u := cm.UsedClassMap(); u != nil {
			cv.Uses = s.m.QualifiedName(u.Name())
		}
		if b := cm.BaseClassMap(); b != nil {
			cv.Base = s.m.QualifiedName(b.Name())
		}
		out[i] = cv
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createStatements(w http.ResponseWriter, r *http.Request) {
	stmts, err := s.ddl.StatementsForAllTables(s.m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"statements": stmts})
}

func (s *Server) tableStatements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "table")
	var table *relational.Table
	for _, t := range s.m.Tables() {
		if t.ID().String() == id {
			table = t
			break
		}
	}
	if table == nil {
		writeError(w, r, errs.Newf(errs.ErrKindNotFound, "table %q is not in the map", id))
		return
	}
	st, err := s.dml.StatementsFor(table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- views ---

func viewTable(t *relational.Table) tableView {
	tv := tableView{ID: t.ID().String()}
	for _, c := range t.Columns() {
		cv := columnView{Name: c.Name()}
		if c.Type().IsSet() {
			cv.Type = c.Type().String()
		}
		switch c.Nullability() {
		case relational.Nullable:
			cv.Nullable = ptr(true)
		case relational.NotNullable:
			cv.Nullable = ptr(false)
		}
		if n, ok := c.Length(); ok {
			cv.Length = ptr(n)
		}
		if n, ok := c.Precision(); ok {
			cv.Precision = ptr(n)
		}
		if n, ok := c.Scale(); ok {
			cv.Scale = ptr(n)
		}
		tv.Columns = append(tv.Columns, cv)
	}
	if pk := t.PrimaryKey(); pk != nil {
		kv := viewKey(pk)
		tv.PrimaryKey = &kv
	}
	for _, k := range t.UniqueKeys() {
		tv.UniqueKeys = append(tv.UniqueKeys, viewKey(k))
	}
	for _, k := range t.ForeignKeys() {
		tv.ForeignKeys = append(tv.ForeignKeys, viewKey(k))
	}
	return tv
}

func viewKey(k *relational.Key) keyView {
	kv := keyView{Name: k.Name(), Columns: []string{}}
	for _, c := range k.Columns() {
		kv.Columns = append(kv.Columns, c.Name())
	}
	if k.IsCandidate() {
		kv.Generation = k.Generation().String()
	}
	if rt := k.RemoteTable(); rt != nil {
		kv.References = rt.ID().String() + "." + k.RemoteKey().Name()
	}
	return kv
}

func (s *Server) viewContent(c mapping.ElementContainer) contentView {
	var cv contentView
	for _, pm := range c.AttributeMaps() {
		cv.Attributes = append(cv.Attributes, s.viewProperty(pm))
	}
	if pm := c.PCDATAMap(); pm != nil {
		pv := s.viewProperty(pm)
		cv.PCDATA = &pv
	}
	for _, ch := range c.Children() {
		chv := childView{Kind: ch.Kind().String(), Element: s.m.QualifiedName(ch.Name())}
		switch ch.Kind() {
		case mapping.ChildProperty:
			pv := s.viewProperty(ch.PropertyMap())
			chv.Property = &pv
		case mapping.ChildRelatedClass:
			chv.Class = s.m.QualifiedName(ch.RelatedClassMap().ClassMap().Resolve().Name())
		case mapping.ChildInlineClass:
			inner := s.viewContent(ch.InlineClassMap())
			chv.contentView = &inner
		}
		cv.Children = append(cv.Children, chv)
	}
	return cv
}

func (s *Server) viewProperty(pm *mapping.PropertyMap) propertyView {
	pv := propertyView{
		TokenList:   pm.IsTokenList(),
		ContainsXML: pm.ContainsXML(),
	}
	if pm.Kind() != mapping.PCDATAProperty {
		pv.Name = s.m.QualifiedName(pm.Name())
	}
	if col := pm.Column(); col != nil {
		pv.Column = col.Name()
	}
	if pm.IsPropertyTable() {
		pv.Table = pm.Table().ID().String()
	}
	return pv
}

func ptr[T any](v T) *T { return &v }
