// Package inverter derives one view of a mapping.Map from the other.
//
// CreateDatabaseView rebuilds the table-centric view (ClassTableMaps) from
// the document-centric view (ClassMaps). CreateXMLView does the reverse.
// Each call clears the target view first and never modifies the source.
// A failed call restores the target view it started with.
//
// Class maps that redirect to another class map are not invertible. The
// forward direction skips them and lists them in Report.Skipped.
package inverter

import (
	"encoding/xml"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapping"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Report describes one inversion run.
type Report struct {
	// Skipped lists class maps left out of the table view because they
	// redirect to another class map.
	Skipped []xml.Name
	// EmptyInlines lists inline class maps with no mapped content, as
	// slash-separated element paths. They have no table-view form.
	EmptyInlines []string
	// ClassTableMaps and ClassMaps count the nodes in each view afterwards.
	ClassTableMaps int
	ClassMaps      int
}

// Inverter runs inversions. It holds no per-run state.
type Inverter struct {
	log *logger.Logger
}

// New returns an inverter that logs to log, or discards logs when log is nil.
func New(log *logger.Logger) *Inverter {
	if log == nil {
		log = logger.Nop()
	}
	return &Inverter{log: log.Component("inverter")}
}

// CreateDatabaseView replaces m's class table maps with ones derived from
// its class maps.
func (inv *Inverter) CreateDatabaseView(m *mapping.Map) (_ *Report, err error) {
	if m == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "map must not be nil")
	}
	prev := m.ClassTableMaps()
	m.RemoveAllClassTableMaps()
	defer func() {
		if err != nil {
			inv.log.Debugf("database view failed, restoring %d class table maps", len(prev))
			m.RemoveAllClassTableMaps()
			for _, ctm := range prev {
				_ = m.AddClassTableMap(ctm)
			}
		}
	}()

	f := &forward{m: m, log: inv.log, report: &Report{}, owners: make(map[relational.TableID]xml.Name)}
	for _, cm := range m.ClassMaps() {
		if err := f.classMap(cm); err != nil {
			return nil, err
		}
	}
	f.report.ClassTableMaps = len(m.ClassTableMaps())
	f.report.ClassMaps = len(m.ClassMaps())

	inv.log.InfoWith("database view created", map[string]interface{}{
		"class_table_maps": f.report.ClassTableMaps,
		"skipped":          len(f.report.Skipped),
		"empty_inlines":    len(f.report.EmptyInlines),
	})
	return f.report, nil
}

// CreateXMLView replaces m's class maps with ones derived from its class
// table maps.
func (inv *Inverter) CreateXMLView(m *mapping.Map) (_ *Report, err error) {
	if m == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "map must not be nil")
	}
	prev := m.ClassMaps()
	m.RemoveAllClassMaps()
	defer func() {
		if err != nil {
			inv.log.Debugf("xml view failed, restoring %d class maps", len(prev))
			m.RemoveAllClassMaps()
			for _, cm := range prev {
				_ = m.AddClassMap(cm)
			}
		}
	}()

	r := &reverse{m: m}
	ctms := m.ClassTableMaps()
	for _, ctm := range ctms {
		if err := r.declare(ctm); err != nil {
			return nil, err
		}
	}
	for _, ctm := range ctms {
		if err := r.classTableMap(ctm); err != nil {
			return nil, err
		}
	}

	report := &Report{ClassTableMaps: len(ctms), ClassMaps: len(m.ClassMaps())}
	inv.log.InfoWith("xml view created", map[string]interface{}{
		"class_maps": report.ClassMaps,
	})
	return report, nil
}
