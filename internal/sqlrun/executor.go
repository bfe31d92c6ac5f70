// Package sqlrun executes model-emitted SQL statements against a named
// database. Statements run verbatim: the assistant's output is the sole
// authority on what gets executed, and failures are captured per
// statement rather than raised.
package sqlrun

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/dqassist/dqassist/internal/observability"
)

// Connector opens a connection scoped to the named database.
type Connector interface {
	Open(ctx context.Context, database string) (*sql.DB, error)
}

type Executor struct {
	conn   Connector
	logger *slog.Logger
}

func NewExecutor(conn Connector, logger *slog.Logger) *Executor {
	return &Executor{conn: conn, logger: logger}
}

// Execute runs a single statement. It never returns an error: failures
// of any sort become an ERROR result carrying the message and the
// trimmed SQL text. The connection is opened for this statement and
// closed before returning.
func (e *Executor) Execute(ctx context.Context, sqlText, database string) ExecutionResult {
	trimmed := strings.TrimSpace(sqlText)
	start := time.Now()
	result := e.execute(ctx, trimmed, database)
	observability.ObserveSQLStatement(metricClass(result), time.Since(start))

	if e.logger != nil {
		if result.Kind == KindError {
			e.logger.WarnContext(ctx, "sql execution failed",
				slog.String("database", database),
				slog.String("sql", trimmed),
				slog.String("error", result.Error),
			)
		} else {
			e.logger.InfoContext(ctx, "sql executed",
				slog.String("database", database),
				slog.String("kind", result.Kind),
			)
		}
	}
	return result
}

// ExecuteBatch applies Execute to each statement independently in
// order. One statement's failure never suppresses its siblings. A nil
// result distinguishes "no SQL to run" from a batch that ran and failed.
func (e *Executor) ExecuteBatch(ctx context.Context, statements []string, database string) []ExecutionResult {
	if len(statements) == 0 {
		return nil
	}
	results := make([]ExecutionResult, 0, len(statements))
	for _, statement := range statements {
		results = append(results, e.Execute(ctx, statement, database))
	}
	return results
}

func (e *Executor) execute(ctx context.Context, trimmed, database string) ExecutionResult {
	db, err := e.conn.Open(ctx, database)
	if err != nil {
		return errorResult(trimmed, database, err)
	}
	defer func() { _ = db.Close() }()

	if leadingVerb(trimmed) == KindSelect {
		return e.query(ctx, db, trimmed, database)
	}
	return e.exec(ctx, db, trimmed, database)
}

func (e *Executor) query(ctx context.Context, db *sql.DB, trimmed, database string) ExecutionResult {
	rows, err := db.QueryContext(ctx, trimmed)
	if err != nil {
		return errorResult(trimmed, database, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return errorResult(trimmed, database, err)
	}

	collected := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return errorResult(trimmed, database, err)
		}
		for i, value := range values {
			if b, ok := value.([]byte); ok {
				values[i] = string(b)
			}
		}
		collected = append(collected, values)
	}
	if err := rows.Err(); err != nil {
		return errorResult(trimmed, database, err)
	}

	return ExecutionResult{
		Kind:     KindSelect,
		Columns:  columns,
		Rows:     collected,
		Count:    len(collected),
		SQL:      trimmed,
		Database: database,
	}
}

func (e *Executor) exec(ctx context.Context, db *sql.DB, trimmed, database string) ExecutionResult {
	result, err := db.ExecContext(ctx, trimmed)
	if err != nil {
		return errorResult(trimmed, database, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count for DDL; the statement
		// itself still succeeded.
		affected = 0
	}
	return ExecutionResult{
		Kind:         leadingVerb(trimmed),
		RowsAffected: affected,
		Status:       "success",
		SQL:          trimmed,
		Database:     database,
	}
}

func errorResult(trimmed, database string, err error) ExecutionResult {
	return ExecutionResult{
		Kind:     KindError,
		Error:    err.Error(),
		SQL:      trimmed,
		Database: database,
	}
}

// leadingVerb returns the first whitespace-delimited token upper-cased,
// which classifies the statement.
func leadingVerb(trimmed string) string {
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func metricClass(result ExecutionResult) string {
	switch result.Kind {
	case KindError:
		return "error"
	case KindSelect:
		return "select"
	default:
		return "mutation"
	}
}
