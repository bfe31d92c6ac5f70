// Package dbconn builds per-database SQL connections. The chat pipeline
// opens a fresh connection per statement batch and closes it before
// returning, so the factory hands out plain *sql.DB handles and leaves
// pooling to database/sql defaults.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/dqassist/dqassist/internal/config"
)

const (
	DriverPgx    = "pgx"
	DriverDuckDB = "duckdb"
)

type Factory struct {
	cfg config.DatabaseConfig
}

func NewFactory(cfg config.DatabaseConfig) (*Factory, error) {
	switch cfg.Driver {
	case DriverPgx, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
	return &Factory{cfg: cfg}, nil
}

func (f *Factory) DefaultDatabase() string {
	return f.cfg.DefaultDatabase
}

// SchemaName is the namespace information_schema queries filter on:
// "public" for PostgreSQL, "main" for DuckDB.
func (f *Factory) SchemaName() string {
	if f.cfg.Driver == DriverDuckDB {
		return "main"
	}
	return "public"
}

// Open returns a connection scoped to the named database. The caller
// owns the handle and must close it.
func (f *Factory) Open(ctx context.Context, database string) (*sql.DB, error) {
	if strings.TrimSpace(database) == "" {
		return nil, fmt.Errorf("database name is required")
	}
	switch f.cfg.Driver {
	case DriverDuckDB:
		path := filepath.Join(f.cfg.DataDir, database+".db")
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database %q not found: %w", database, err)
		}
		return f.open(ctx, DriverDuckDB, path)
	default:
		return f.open(ctx, DriverPgx, f.postgresDSN(database))
	}
}

// OpenAdmin returns a connection with no target database selected, for
// administrative operations like enumerating databases.
func (f *Factory) OpenAdmin(ctx context.Context) (*sql.DB, error) {
	if f.cfg.Driver == DriverDuckDB {
		// In-memory instance; duckdb has no server to administer.
		return f.open(ctx, DriverDuckDB, "")
	}
	return f.open(ctx, DriverPgx, f.postgresDSN(f.cfg.AdminDatabase))
}

func (f *Factory) ListDatabases(ctx context.Context) ([]string, error) {
	if f.cfg.Driver == DriverDuckDB {
		return f.listDuckDBFiles()
	}

	db, err := f.OpenAdmin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `SELECT datname FROM pg_database WHERE NOT datistemplate AND datallowconn`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}
	return names, nil
}

// ListTables enumerates tables in the named database in the order the
// backend reports them.
func (f *Factory) ListTables(ctx context.Context, database string) ([]string, error) {
	db, err := f.Open(ctx, database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return TablesOf(ctx, db, f.SchemaName())
}

// TablesOf runs the table enumeration query against an already-open
// connection.
func TablesOf(ctx context.Context, db *sql.DB, schemaName string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`,
		schemaName,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func (f *Factory) open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}

	timeout := f.cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (f *Factory) postgresDSN(database string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port),
		Path:   "/" + database,
	}
	if f.cfg.User != "" {
		if f.cfg.Password != "" {
			u.User = url.UserPassword(f.cfg.User, f.cfg.Password)
		} else {
			u.User = url.User(f.cfg.User)
		}
	}
	query := url.Values{}
	if f.cfg.SSLMode != "" {
		query.Set("sslmode", f.cfg.SSLMode)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func (f *Factory) listDuckDBFiles() ([]string, error) {
	entries, err := os.ReadDir(f.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".db"))
	}
	return names, nil
}
