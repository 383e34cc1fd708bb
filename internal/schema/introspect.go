package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// PgIntrospector implements Reader for PostgreSQL using information_schema
type PgIntrospector struct {
	db database.DB
}

// NewPgIntrospector creates a new Postgres schema introspector
func NewPgIntrospector(db database.DB) *PgIntrospector {
	return &PgIntrospector{db: db}
}

// InspectTable returns column details for a single table. An empty schema
// means current_schema().
func (p *PgIntrospector) InspectTable(ctx context.Context, id relational.TableID) (*TableInfo, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'              AS is_nullable,
			c.character_maximum_length,
			pk.column_name IS NOT NULL         AS is_primary_key
		FROM information_schema.columns c

		-- Primary key check
		LEFT JOIN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = COALESCE(NULLIF($1, ''), current_schema())
			  AND tc.table_name   = $2
		) pk ON pk.column_name = c.column_name

		WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := p.db.Query(ctx, q, id.Schema, id.Name)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", id, err)
	}
	return scanTable(id, rows)
}

// scanTable reads name, data type, nullability, max length and primary
// key membership from each row.
func scanTable(id relational.TableID, rows database.Rows) (*TableInfo, error) {
	defer rows.Close()

	info := &TableInfo{ID: id}
	for rows.Next() {
		var col ColumnInfo
		var maxLen *int64

		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.IsNullable,
			&maxLen,
			&col.IsPrimaryKey,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if maxLen != nil {
			n := int(*maxLen)
			col.MaxLength = &n
		}
		info.Columns = append(info.Columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s not found or has no columns", id)
	}
	return info, nil
}
