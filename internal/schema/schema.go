// Package schema reads table definitions back from a live database and
// compares them with the tables a map declares.
package schema

import (
	"context"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Reader is the interface for introspecting a database schema
type Reader interface {
	// InspectTable returns the columns of a table in ordinal order. It
	// returns a NotFound error when the table does not exist.
	InspectTable(ctx context.Context, id relational.TableID) (*TableInfo, error)
}

// NewReader returns the introspector for driver.
func NewReader(driver database.Driver, db database.DB) (Reader, error) {
	switch driver {
	case database.DriverPostgres:
		return NewPgIntrospector(db), nil
	case database.DriverMySQL:
		return NewMySQLIntrospector(db), nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "no schema reader for driver %q", driver)
	}
}
