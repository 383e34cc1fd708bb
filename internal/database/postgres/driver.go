package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
	cfg  *database.Config
}

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: pool, cfg: cfg}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// withTimeout applies the configured per-query deadline.
func (d *Driver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg == nil || d.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.QueryTimeout)
}

// --- database.DB implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a SQL statement that returns multiple rows.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	row := d.pool.QueryRow(ctx, sql, args...)
	return &pgxRow{row: row}, nil
}

// TableExists reports whether the table exists. An empty schema means
// current_schema().
func (d *Driver) TableExists(ctx context.Context, id relational.TableID) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = $2`

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var exists int
	err := d.pool.QueryRow(ctx, q, id.Schema, id.Name).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

// --- dialect.Catalog implementation ---

// Capabilities reports PostgreSQL's conventions: double-quoted
// identifiers, catalog first, and $n parameters so generated DML runs
// unchanged on pgx.
func (d *Driver) Capabilities(ctx context.Context) (dialect.Capabilities, error) {
	return dialect.Capabilities{
		IdentifierQuote:  `"`,
		CatalogAtStart:   true,
		CatalogSeparator: ".",
		Placeholder:      dialect.PlaceholderDollar,
	}, nil
}

// Types reads which of the built-in types this server has from pg_type and
// reports them with their SQL names.
func (d *Driver) Types(ctx context.Context) ([]dialect.CatalogType, error) {
	const q = `
		SELECT t.typname
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = 'pg_catalog'
		  AND t.typname = ANY($1)`

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.pool.Query(ctx, q, knownTypeNames())
	if err != nil {
		return nil, mapError(err, "failed to read pg_type")
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan type name")
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating pg_type")
	}
	return catalogTypes(present), nil
}

// pgType maps an internal type name to the SQL name used in DDL and the
// SQL types it serves, most specific first.
type pgType struct {
	typname string
	sqlName string
	params  string
	serves  []relational.SQLType
}

var pgTypes = []pgType{
	{"bool", "BOOLEAN", "", []relational.SQLType{relational.TypeBoolean, relational.TypeBit}},
	{"int2", "SMALLINT", "", []relational.SQLType{relational.TypeSmallInt, relational.TypeTinyInt}},
	{"int4", "INTEGER", "", []relational.SQLType{relational.TypeInteger}},
	{"int8", "BIGINT", "", []relational.SQLType{relational.TypeBigInt}},
	{"float4", "REAL", "", []relational.SQLType{relational.TypeReal}},
	{"float8", "DOUBLE PRECISION", "", []relational.SQLType{relational.TypeDouble, relational.TypeFloat}},
	{"numeric", "NUMERIC", "precision,scale", []relational.SQLType{relational.TypeNumeric, relational.TypeDecimal}},
	{"bpchar", "CHAR", "length", []relational.SQLType{relational.TypeChar}},
	{"varchar", "VARCHAR", "length", []relational.SQLType{relational.TypeVarChar}},
	{"text", "TEXT", "", []relational.SQLType{relational.TypeLongVarChar, relational.TypeClob, relational.TypeOther}},
	{"date", "DATE", "", []relational.SQLType{relational.TypeDate}},
	{"time", "TIME", "precision", []relational.SQLType{relational.TypeTime}},
	{"timestamp", "TIMESTAMP", "precision", []relational.SQLType{relational.TypeTimestamp}},
	{"bytea", "BYTEA", "", []relational.SQLType{relational.TypeBinary, relational.TypeVarBinary, relational.TypeLongVarBinary, relational.TypeBlob}},
}

func knownTypeNames() []string {
	names := make([]string, len(pgTypes))
	for i, t := range pgTypes {
		names[i] = t.typname
	}
	return names
}

// catalogTypes lists the entries of pgTypes the server reported.
func catalogTypes(present map[string]bool) []dialect.CatalogType {
	var out []dialect.CatalogType
	for _, t := range pgTypes {
		if !present[t.typname] {
			continue
		}
		for _, st := range t.serves {
			out = append(out, dialect.CatalogType{Name: t.sqlName, SQLType: st, CreateParams: t.params})
		}
	}
	return out
}

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error { return r.row.Scan(dest...) }

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// No rows
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code to an ErrKind by class.
func classifySQLState(code string) errs.ErrKind {
	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch code[:2] {
	case "08": // connection exception
		return errs.ErrKindConnectionFailed
	case "28": // invalid authorization
		return errs.ErrKindConnectionFailed
	case "42":
		if code == "42501" { // insufficient_privilege
			return errs.ErrKindPermissionDenied
		}
		return errs.ErrKindQueryFailed
	case "57":
		if code == "57014" { // query_canceled
			return errs.ErrKindTimeout
		}
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
