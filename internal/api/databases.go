package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dqassist/dqassist/internal/config"
)

// The discovery endpoints degrade in the body rather than the status
// line: callers poll them from the UI and treat {"status": "error"} as
// a displayable condition, not a transport failure.

func handleListDatabases(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Databases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "database catalog is not configured", false, nil)
		return
	}

	databases, err := deps.Databases.ListDatabases(r.Context())
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "database discovery failed", slog.Any("error", err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": err.Error()})
		return
	}
	if databases == nil {
		databases = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "databases": databases})
}

type testDBRequest struct {
	Database string `json:"database"`
}

func handleTestDB(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Databases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "database catalog is not configured", false, nil)
		return
	}

	var request testDBRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid test_db request body", false, map[string]any{"details": err.Error()})
		return
	}
	database := strings.TrimSpace(request.Database)
	if database == "" {
		database = cfg.Database.DefaultDatabase
	}

	tables, err := deps.Databases.ListTables(r.Context(), database)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "database probe failed",
				slog.String("database", database),
				slog.Any("error", err),
			)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": err.Error()})
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"connection": "OK",
		"database":   database,
		"tables":     tables,
	})
}
