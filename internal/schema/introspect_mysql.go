package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/relational"
)

// MySQLIntrospector implements Reader for MySQL using information_schema
type MySQLIntrospector struct {
	db database.DB
}

// NewMySQLIntrospector creates a new MySQL schema introspector
func NewMySQLIntrospector(db database.DB) *MySQLIntrospector {
	return &MySQLIntrospector{db: db}
}

// InspectTable returns column details for a single table. MySQL keeps
// tables directly in a database, so the table's catalog names it; an
// empty catalog means DATABASE().
func (m *MySQLIntrospector) InspectTable(ctx context.Context, id relational.TableID) (*TableInfo, error) {
	const q = `
		SELECT
			column_name,
			data_type,
			is_nullable = 'YES',
			character_maximum_length,
			column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := m.db.Query(ctx, q, id.Catalog, id.Name)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", id, err)
	}
	return scanTable(id, rows)
}
