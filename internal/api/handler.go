// Package api exposes the chat pipeline over JSON HTTP. Endpoint paths
// and payload shapes are the service's public contract; everything
// interesting happens in the injected collaborators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dqassist/dqassist/internal/chat"
	"github.com/dqassist/dqassist/internal/config"
	"github.com/dqassist/dqassist/internal/conversation"
	"github.com/dqassist/dqassist/internal/observability"
	"github.com/dqassist/dqassist/internal/session"
)

type ReadinessCheck func(ctx context.Context) error

// ChatService handles one conversation turn against a session store.
type ChatService interface {
	HandleMessage(ctx context.Context, store *conversation.Store, userMessage, database string) chat.Reply
}

// DatabaseCatalog answers the administrative discovery endpoints.
type DatabaseCatalog interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, database string) ([]string, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Sessions          *session.Manager
	Chat              ChatService
	Databases         DatabaseCatalog
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		handleProcess(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(cfg, deps, w, r)
	})
	mux.HandleFunc("POST /clear_history", func(w http.ResponseWriter, r *http.Request) {
		handleClearHistory(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /list_databases", func(w http.ResponseWriter, r *http.Request) {
		handleListDatabases(deps, w, r)
	})
	mux.HandleFunc("POST /test_db", func(w http.ResponseWriter, r *http.Request) {
		handleTestDB(cfg, deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckDatabaseCatalog reports readiness by listing databases through
// the administrative connection.
func CheckDatabaseCatalog(catalog DatabaseCatalog) ReadinessCheck {
	return func(ctx context.Context) error {
		if catalog == nil {
			return errors.New("database catalog is not configured")
		}
		_, err := catalog.ListDatabases(ctx)
		return err
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// sessionStore resolves the caller's conversation store from the
// session cookie, minting a new session when none is presented.
func sessionStore(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) *conversation.Store {
	cookieName := cfg.Session.CookieName
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return deps.Sessions.Store(cookie.Value)
	}

	id := deps.Sessions.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return deps.Sessions.Store(id)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
