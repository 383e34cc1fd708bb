package inverter

import (
	"encoding/xml"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/mapping"
)

// container is the mutating side of ClassMap and InlineClassMap.
type container interface {
	AddAttributeMap(pm *mapping.PropertyMap) error
	SetPCDATAMap(pm *mapping.PropertyMap) error
	AddChildPropertyMap(pm *mapping.PropertyMap) error
	AddRelatedClassMap(rcm *mapping.RelatedClassMap) error
	CreateInlineClassMap(name xml.Name) (*mapping.InlineClassMap, error)
}

// reverse carries the state of one CreateXMLView run.
type reverse struct {
	m *mapping.Map
}

// declare creates the class map for ctm so that base classes and related
// classes can be resolved regardless of visiting order.
func (r *reverse) declare(ctm *mapping.ClassTableMap) error {
	t := ctm.Table()
	if ctm.ElementTypeName().Local == "" {
		return errs.Newf(errs.ErrKindMapping, "class table %s has no element type name", t.ID())
	}
	if r.m.Table(t.ID()) != t {
		return errs.Newf(errs.ErrKindMapping, "class table %s is not registered in the map", t.ID())
	}
	cm, err := mapping.NewClassMap(ctm.ElementTypeName())
	if err != nil {
		return err
	}
	if err := r.m.AddClassMap(cm); err != nil {
		return err
	}
	return cm.SetTable(t)
}

func (r *reverse) classTableMap(ctm *mapping.ClassTableMap) error {
	cm := r.m.ClassMap(ctm.ElementTypeName())

	if bt := ctm.BaseTable(); bt != nil {
		base := r.m.ClassTableMap(bt.ID())
		if base == nil || base.Table() != bt {
			return errs.Newf(errs.ErrKindMapping, "class table %s extends table %s, which has no class table map",
				ctm.Table().ID(), bt.ID())
		}
		if err := cm.SetBaseClassMap(r.m.ClassMap(base.ElementTypeName()), ctm.BaseLinkInfo()); err != nil {
			return err
		}
	}

	for _, child := range ctm.Children() {
		target, err := r.inlineChain(cm, child.ElementInsertionList())
		if err != nil {
			return err
		}
		switch child.Kind() {
		case mapping.TableChildColumn:
			c := child.ColumnMap()
			pm, err := r.newProperty(c.Name(), c.Kind(), c.Traits())
			if err != nil {
				return err
			}
			if err := pm.SetColumn(c.Column()); err != nil {
				return err
			}
			if err := place(target, pm); err != nil {
				return err
			}
		case mapping.TableChildPropertyTable:
			p := child.PropertyTableMap()
			pm, err := r.newProperty(p.Name(), p.Kind(), p.Traits())
			if err != nil {
				return err
			}
			if err := pm.SetTable(p.Table(), p.LinkInfo()); err != nil {
				return err
			}
			if err := pm.SetColumn(p.Column()); err != nil {
				return err
			}
			if err := place(target, pm); err != nil {
				return err
			}
		case mapping.TableChildRelatedClass:
			if err := r.related(target, child.RelatedClassTableMap()); err != nil {
				return err
			}
		}
	}
	return nil
}

// inlineChain walks (and builds where missing) the inline class maps named
// by list, starting at cm. Siblings with a common prefix share the same
// inline class map nodes.
func (r *reverse) inlineChain(cm *mapping.ClassMap, list *mapping.ElementInsertionList) (container, error) {
	var cur container = cm
	for _, e := range list.Maps() {
		icm, err := cur.CreateInlineClassMap(e.Name())
		if err != nil {
			return nil, err
		}
		if icm.OrderInfo() == nil {
			icm.SetOrderInfo(e.OrderInfo())
		}
		cur = icm
	}
	return cur, nil
}

func (r *reverse) newProperty(name xml.Name, kind mapping.PropertyKind, traits mapping.Traits) (*mapping.PropertyMap, error) {
	pm, err := mapping.NewPropertyMap(name, kind)
	if err != nil {
		return nil, err
	}
	if err := pm.SetTraits(traits); err != nil {
		return nil, err
	}
	return pm, nil
}

func place(c container, pm *mapping.PropertyMap) error {
	switch pm.Kind() {
	case mapping.AttributeProperty:
		return c.AddAttributeMap(pm)
	case mapping.PCDATAProperty:
		return c.SetPCDATAMap(pm)
	default:
		return c.AddChildPropertyMap(pm)
	}
}

// related rebuilds a related class map. The used class is the one mapped
// to the pointed-to table; when the referencing element name differs, the
// referencing class map is recreated as a redirect to it.
func (r *reverse) related(c container, rtm *mapping.RelatedClassTableMap) error {
	target := rtm.ClassTableMap()
	if r.m.ClassTableMap(target.Table().ID()) != target {
		return errs.Newf(errs.ErrKindMapping, "related class %s points to table %s, which has no class table map in this map",
			r.m.QualifiedName(rtm.Name()), target.Table().ID())
	}
	used := r.m.ClassMap(target.ElementTypeName())

	ref := used
	if rtm.Name() != used.Name() {
		var err error
		ref, err = r.m.CreateClassMap(rtm.Name())
		if err != nil {
			return err
		}
		switch {
		case ref.UsedClassMap() == used:
		case ref.Table() != nil || ref.UsedClassMap() != nil:
			return errs.Newf(errs.ErrKindMapping, "element %s refers to class %s but is already mapped differently",
				r.m.QualifiedName(rtm.Name()), r.m.QualifiedName(used.Name()))
		default:
			if err := ref.UseClassMap(used); err != nil {
				return err
			}
		}
	}

	rcm, err := mapping.NewRelatedClassMap(ref)
	if err != nil {
		return err
	}
	if rtm.LinkInfo() != nil {
		if err := rcm.SetLinkInfo(rtm.LinkInfo()); err != nil {
			return err
		}
	}
	rcm.SetOrderInfo(rtm.OrderInfo())
	return c.AddRelatedClassMap(rcm)
}
