package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dqassist/dqassist/internal/config"
)

type processRequest struct {
	Message  string `json:"message"`
	Database string `json:"database"`
}

func handleProcess(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil || deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	var request processRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid process request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}
	database := strings.TrimSpace(request.Database)
	if database == "" {
		database = cfg.Database.DefaultDatabase
	}

	store := sessionStore(cfg, deps, w, r)
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "processing user message",
			slog.String("database", database),
		)
	}

	reply := deps.Chat.HandleMessage(r.Context(), store, request.Message, database)
	writeJSON(w, http.StatusOK, reply)
}

func handleHistory(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session manager is not configured", false, nil)
		return
	}
	store := sessionStore(cfg, deps, w, r)
	writeJSON(w, http.StatusOK, store.All())
}

func handleClearHistory(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session manager is not configured", false, nil)
		return
	}
	store := sessionStore(cfg, deps, w, r)
	store.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "History cleared"})
}
