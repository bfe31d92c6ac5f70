// Package schema renders a database's tables and columns as a compact
// text block for injection into the assistant's system prompt.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dqassist/dqassist/internal/dbconn"
)

// Connector is the slice of dbconn.Factory the introspector needs.
type Connector interface {
	Open(ctx context.Context, database string) (*sql.DB, error)
	SchemaName() string
}

type Introspector struct {
	conn   Connector
	logger *slog.Logger
}

func NewIntrospector(conn Connector, logger *slog.Logger) *Introspector {
	return &Introspector{conn: conn, logger: logger}
}

// Describe returns one line per table in backend-reported order:
//
//	Table 'users': id (integer), name (text)
//
// Failures never propagate; a degraded description is returned instead
// so prompt construction can proceed without the schema.
func (in *Introspector) Describe(ctx context.Context, database string) string {
	description, err := in.describe(ctx, database)
	if err != nil {
		if in.logger != nil {
			in.logger.WarnContext(ctx, "schema introspection failed",
				slog.String("database", database),
				slog.Any("error", err),
			)
		}
		return fmt.Sprintf("Unable to retrieve schema for database %s: %v", database, err)
	}
	return description
}

func (in *Introspector) describe(ctx context.Context, database string) (string, error) {
	db, err := in.conn.Open(ctx, database)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	tables, err := dbconn.TablesOf(ctx, db, in.conn.SchemaName())
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "No tables found in this database.", nil
	}

	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		columns, err := columnsOf(ctx, db, in.conn.SchemaName(), table)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("Table '%s': %s", table, strings.Join(columns, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

func columnsOf(ctx context.Context, db *sql.DB, schemaName, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		schemaName, table,
	)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, fmt.Sprintf("%s (%s)", name, dataType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	return columns, nil
}
