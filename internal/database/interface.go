package database

import (
	"context"

	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/relational"
)

// DB is the contract the CLI and server use to talk to a live database.
// xmldbms never writes: a live connection is only used to derive the SQL
// dialect and to see which mapped tables already exist.
type DB interface {
	dialect.Catalog

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// TableExists reports whether the table exists. An empty schema means
	// the connection's current schema.
	TableExists(ctx context.Context, id relational.TableID) (bool, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// ExistingTables returns the tables of ts that already exist in db.
func ExistingTables(ctx context.Context, db DB, ts []*relational.Table) (map[relational.TableID]bool, error) {
	out := make(map[relational.TableID]bool, len(ts))
	for _, t := range ts {
		ok, err := db.TableExists(ctx, t.ID())
		if err != nil {
			return nil, err
		}
		if ok {
			out[t.ID()] = true
		}
	}
	return out, nil
}
