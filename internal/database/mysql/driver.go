package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db  *sql.DB
	cfg *database.Config
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, cfg: cfg}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Driver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg == nil || d.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.QueryTimeout)
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	row := d.db.QueryRowContext(ctx, query, args...)
	return &mysqlRow{row: row}, nil
}

// TableExists looks the table up in its catalog, or in DATABASE() when the
// table names none. MySQL has no schema level below the database.
func (d *Driver) TableExists(ctx context.Context, id relational.TableID) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = ?`

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var exists int
	err := d.db.QueryRowContext(ctx, q, id.Catalog, id.Name).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

// --- dialect.Catalog implementation ---

// Capabilities reads the session sql_mode; ANSI_QUOTES switches identifier
// quoting from backticks to double quotes.
func (d *Driver) Capabilities(ctx context.Context) (dialect.Capabilities, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var mode string
	if err := d.db.QueryRowContext(ctx, "SELECT @@SESSION.sql_mode").Scan(&mode); err != nil {
		return dialect.Capabilities{}, mapError(err, "failed to read sql_mode")
	}
	return capabilitiesFor(mode), nil
}

func capabilitiesFor(sqlMode string) dialect.Capabilities {
	caps := dialect.Capabilities{
		IdentifierQuote:  "`",
		CatalogAtStart:   true,
		CatalogSeparator: ".",
		Placeholder:      dialect.PlaceholderQuestion,
	}
	for _, m := range strings.Split(sqlMode, ",") {
		if strings.EqualFold(strings.TrimSpace(m), "ANSI_QUOTES") {
			caps.IdentifierQuote = `"`
			break
		}
	}
	return caps
}

// Types reports MySQL's built-in types. MySQL exposes no type catalog
// comparable to pg_type, so the list is fixed.
func (d *Driver) Types(ctx context.Context) ([]dialect.CatalogType, error) {
	return mysqlTypes, nil
}

var mysqlTypes = []dialect.CatalogType{
	{Name: "BIT", SQLType: relational.TypeBit, CreateParams: "length"},
	{Name: "TINYINT", SQLType: relational.TypeTinyInt},
	{Name: "BOOLEAN", SQLType: relational.TypeBoolean},
	{Name: "SMALLINT", SQLType: relational.TypeSmallInt},
	{Name: "INT", SQLType: relational.TypeInteger},
	{Name: "BIGINT", SQLType: relational.TypeBigInt},
	{Name: "FLOAT", SQLType: relational.TypeReal},
	{Name: "DOUBLE", SQLType: relational.TypeDouble},
	{Name: "DOUBLE", SQLType: relational.TypeFloat},
	{Name: "DECIMAL", SQLType: relational.TypeDecimal, CreateParams: "precision,scale"},
	{Name: "DECIMAL", SQLType: relational.TypeNumeric, CreateParams: "precision,scale"},
	{Name: "CHAR", SQLType: relational.TypeChar, CreateParams: "length"},
	{Name: "VARCHAR", SQLType: relational.TypeVarChar, CreateParams: "length"},
	{Name: "LONGTEXT", SQLType: relational.TypeLongVarChar},
	{Name: "LONGTEXT", SQLType: relational.TypeClob},
	{Name: "DATE", SQLType: relational.TypeDate},
	{Name: "TIME", SQLType: relational.TypeTime, CreateParams: "precision"},
	{Name: "DATETIME", SQLType: relational.TypeTimestamp, CreateParams: "precision"},
	{Name: "BINARY", SQLType: relational.TypeBinary, CreateParams: "length"},
	{Name: "VARBINARY", SQLType: relational.TypeVarBinary, CreateParams: "length"},
	{Name: "LONGBLOB", SQLType: relational.TypeLongVarBinary},
	{Name: "LONGBLOB", SQLType: relational.TypeBlob},
	{Name: "TEXT", SQLType: relational.TypeOther},
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool             { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *mysqlRows) Close()                 { _ = r.rows.Close() }
func (r *mysqlRows) Err() error             { return r.rows.Err() }

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error { return r.row.Scan(dest...) }

// --- error mapping ---

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1142, 1143:
		return errs.ErrKindPermissionDenied
	case 1040, 1046, 1049, 1203:
		return errs.ErrKindConnectionFailed
	case 1317, 3024:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
