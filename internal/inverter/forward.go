package inverter

import (
	"encoding/xml"
	"strings"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/relational"
)

// forward carries the state of one CreateDatabaseView run.
type forward struct {
	m      *mapping.Map
	log    *logger.Logger
	report *Report
	// owners records which class map each processed table came from.
	owners map[relational.TableID]xml.Name
}

func (f *forward) classMap(cm *mapping.ClassMap) error {
	if used := cm.UsedClassMap(); used != nil {
		f.report.Skipped = append(f.report.Skipped, cm.Name())
		f.log.Debugf("skipping class %s: uses class %s", f.m.QualifiedName(cm.Name()), f.m.QualifiedName(used.Name()))
		return nil
	}
	if cm.Table() == nil {
		return errs.Newf(errs.ErrKindMapping, "class %s has no table", f.m.QualifiedName(cm.Name()))
	}
	id := cm.Table().ID()
	if prev, ok := f.owners[id]; ok {
		return errs.Newf(errs.ErrKindConflict, "table %s is mapped by both class %s and class %s",
			id, f.m.QualifiedName(prev), f.m.QualifiedName(cm.Name()))
	}
	f.owners[id] = cm.Name()

	ctm, err := f.classTableMapFor(cm)
	if err != nil {
		return err
	}

	if base := cm.BaseClassMap(); base != nil {
		if base.Table() == nil || f.m.ClassMap(base.Name()) != base {
			return errs.Newf(errs.ErrKindMapping, "class %s extends class %s, which is not mapped to a table in this map",
				f.m.QualifiedName(cm.Name()), f.m.QualifiedName(base.Name()))
		}
		if err := ctm.SetBaseTable(base.Table(), cm.BaseLinkInfo()); err != nil {
			return err
		}
	}

	_, err = f.content(ctm, cm, nil, cm.Name().Local)
	return err
}

// classTableMapFor returns the class table map for cm's table, creating
// it if needed. cm must own a table registered in the map.
func (f *forward) classTableMapFor(cm *mapping.ClassMap) (*mapping.ClassTableMap, error) {
	t := cm.Table()
	if f.m.Table(t.ID()) != t {
		return nil, errs.Newf(errs.ErrKindMapping, "table %s of class %s is not registered in the map",
			t.ID(), f.m.QualifiedName(cm.Name()))
	}
	ctm, err := f.m.CreateClassTableMap(t)
	if err != nil {
		return nil, err
	}
	switch have := ctm.ElementTypeName(); {
	case have.Local == "":
		ctm.SetElementTypeName(cm.Name())
	case have != cm.Name():
		return nil, errs.Newf(errs.ErrKindConflict, "table %s is mapped by both class %s and class %s",
			t.ID(), f.m.QualifiedName(have), f.m.QualifiedName(cm.Name()))
	}
	return ctm, nil
}

// content converts the attributes, PCDATA and children of c. acc is the
// chain of inline ancestors; it is never appended to in place so sibling
// subtrees cannot see each other's entries. It returns the number of
// table-view nodes produced.
func (f *forward) content(ctm *mapping.ClassTableMap, c mapping.ElementContainer, acc []*mapping.ElementInsertionMap, path string) (int, error) {
	n := 0
	for _, pm := range c.AttributeMaps() {
		if err := f.property(ctm, pm, acc); err != nil {
			return n, err
		}
		n++
	}
	if pm := c.PCDATAMap(); pm != nil {
		if err := f.property(ctm, pm, acc); err != nil {
			return n, err
		}
		n++
	}
	for _, child := range c.Children() {
		switch child.Kind() {
		case mapping.ChildProperty:
			if err := f.property(ctm, child.PropertyMap(), acc); err != nil {
				return n, err
			}
			n++
		case mapping.ChildRelatedClass:
			if err := f.related(ctm, child.RelatedClassMap(), acc); err != nil {
				return n, err
			}
			n++
		case mapping.ChildInlineClass:
			icm := child.InlineClassMap()
			entry, err := mapping.NewElementInsertionMap(icm.Name(), icm.OrderInfo())
			if err != nil {
				return n, err
			}
			childPath := path + "/" + icm.Name().Local
			got, err := f.content(ctm, icm, append(acc[:len(acc):len(acc)], entry), childPath)
			if err != nil {
				return n, err
			}
			if got == 0 {
				f.report.EmptyInlines = append(f.report.EmptyInlines, childPath)
				f.log.Debugf("inline class %s has no content and is dropped", childPath)
			}
			n += got
		}
	}
	return n, nil
}

func (f *forward) property(ctm *mapping.ClassTableMap, pm *mapping.PropertyMap, acc []*mapping.ElementInsertionMap) error {
	label := describeProperty(f.m, pm)
	if pm.Column() == nil {
		return errs.Newf(errs.ErrKindMapping, "%s of class table %s has no column", label, ctm.Table().ID())
	}
	list := mapping.NewElementInsertionList(acc...)

	if pm.IsPropertyTable() {
		if f.m.Table(pm.Table().ID()) != pm.Table() {
			return errs.Newf(errs.ErrKindMapping, "%s is stored in table %s, which is not registered in the map", label, pm.Table().ID())
		}
		ptm, err := mapping.NewPropertyTableMap(pm.Table(), pm.Column(), pm.LinkInfo(), pm.Name(), pm.Kind())
		if err != nil {
			return err
		}
		if err := ptm.SetTraits(pm.Traits()); err != nil {
			return err
		}
		ptm.SetElementInsertionList(list)
		return ctm.AddPropertyTableMap(ptm)
	}

	if pm.Column().Table() != ctm.Table() {
		return errs.Newf(errs.ErrKindMapping, "%s maps to column %s.%s, not a column of class table %s",
			label, pm.Column().Table().ID(), pm.Column().Name(), ctm.Table().ID())
	}
	cm, err := mapping.NewColumnMap(pm.Column(), pm.Name(), pm.Kind())
	if err != nil {
		return err
	}
	if err := cm.SetTraits(pm.Traits()); err != nil {
		return err
	}
	cm.SetElementInsertionList(list)
	return ctm.AddColumnMap(cm)
}

func (f *forward) related(ctm *mapping.ClassTableMap, rcm *mapping.RelatedClassMap, acc []*mapping.ElementInsertionMap) error {
	used := rcm.ClassMap().Resolve()
	if used.Table() == nil || f.m.ClassMap(used.Name()) != used {
		return errs.Newf(errs.ErrKindMapping, "related class %s resolves to class %s, which is not mapped to a table in this map",
			f.m.QualifiedName(rcm.Name()), f.m.QualifiedName(used.Name()))
	}
	if rcm.LinkInfo() == nil {
		return errs.Newf(errs.ErrKindMapping, "related class %s has no link", f.m.QualifiedName(rcm.Name()))
	}
	target, err := f.classTableMapFor(used)
	if err != nil {
		return err
	}
	rtm, err := mapping.NewRelatedClassTableMap(rcm.Name(), target, rcm.LinkInfo())
	if err != nil {
		return err
	}
	rtm.SetOrderInfo(rcm.OrderInfo())
	rtm.SetElementInsertionList(mapping.NewElementInsertionList(acc...))
	return ctm.AddRelatedClassTableMap(rtm)
}

func describeProperty(m *mapping.Map, pm *mapping.PropertyMap) string {
	var b strings.Builder
	b.WriteString(pm.Kind().String())
	if pm.Kind() != mapping.PCDATAProperty {
		b.WriteString(" ")
		b.WriteString(m.QualifiedName(pm.Name()))
	}
	return b.String()
}
