package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("dqassist-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != "pgx" {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DefaultDatabase != "DataQuality" {
		t.Fatalf("Database.DefaultDatabase = %q", cfg.Database.DefaultDatabase)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("Database.SSLMode = %q", cfg.Database.SSLMode)
	}
	if cfg.AI.Enabled {
		t.Fatal("AI.Enabled should default to false")
	}
	if cfg.AI.Model != "llama3-70b-8192" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.7 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.TopP != 0.9 {
		t.Fatalf("AI.TopP = %f", cfg.AI.TopP)
	}
	if cfg.Session.CookieName != "dqassist_session" {
		t.Fatalf("Session.CookieName = %q", cfg.Session.CookieName)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"DQASSIST_PROFILE": "prod"})
	cfg, err := Load("dqassist-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.SSLMode != "require" {
		t.Fatalf("Database.SSLMode = %q", cfg.Database.SSLMode)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"DQASSIST_PROFILE":             "test",
		"DQASSIST_SERVICE_NAME":        "dqassist-custom",
		"DQASSIST_HTTP_ADDR":           ":9999",
		"DQASSIST_HTTP_READ_TIMEOUT":   "2s",
		"DQASSIST_HTTP_WRITE_TIMEOUT":  "3s",
		"DQASSIST_LOG_LEVEL":           "error",
		"DQASSIST_DB_DRIVER":           "duckdb",
		"DQASSIST_DB_DATA_DIR":         "/tmp/dq-data",
		"DQASSIST_DB_DEFAULT_DATABASE": "Warehouse",
		"DQASSIST_DB_PORT":             "15432",
		"DQASSIST_DB_USER":             "qa_bot",
		"DQASSIST_DB_PASSWORD":         "hunter2",
		"DQASSIST_DB_ADMIN_DATABASE":   "template1",
		"DQASSIST_AI_ENABLED":          "true",
		"DQASSIST_AI_BASE_URL":         "https://api.example.com",
		"DQASSIST_AI_API_KEY":          "secret-key",
		"DQASSIST_AI_MODEL":            "llama3-8b-8192",
		"DQASSIST_AI_TEMPERATURE":      "0.3",
		"DQASSIST_AI_TOP_P":            "0.5",
		"DQASSIST_AI_TIMEOUT":          "21s",
		"DQASSIST_SESSION_COOKIE":      "chat_sid",
		"DQASSIST_SESSION_TTL":         "45m",
	})
	cfg, err := Load("dqassist-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "dqassist-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DataDir != "/tmp/dq-data" {
		t.Fatalf("Database.DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.Database.DefaultDatabase != "Warehouse" {
		t.Fatalf("Database.DefaultDatabase = %q", cfg.Database.DefaultDatabase)
	}
	if cfg.Database.Port != 15432 {
		t.Fatalf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.Database.User != "qa_bot" {
		t.Fatalf("Database.User = %q", cfg.Database.User)
	}
	if cfg.Database.Password != "hunter2" {
		t.Fatalf("Database.Password = %q", cfg.Database.Password)
	}
	if cfg.Database.AdminDatabase != "template1" {
		t.Fatalf("Database.AdminDatabase = %q", cfg.Database.AdminDatabase)
	}
	if !cfg.AI.Enabled {
		t.Fatal("AI.Enabled = false, want true")
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "llama3-8b-8192" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.TopP != 0.5 {
		t.Fatalf("AI.TopP = %f", cfg.AI.TopP)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Session.CookieName != "chat_sid" {
		t.Fatalf("Session.CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 45*time.Minute {
		t.Fatalf("Session.TTL = %s", cfg.Session.TTL)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"DQASSIST_PROFILE": "oops"},
		{"DQASSIST_HTTP_READ_TIMEOUT": "NaN"},
		{"DQASSIST_DB_PORT": "oops"},
		{"DQASSIST_DB_DRIVER": "oracle"},
		{"DQASSIST_AI_TEMPERATURE": "bad"},
		{"DQASSIST_AI_ENABLED": "not-bool"},
		{"DQASSIST_AI_ENABLED": "true"}, // enabled without api key
		{"DQASSIST_LOG_LEVEL": "verbose"},
		{"DQASSIST_SESSION_TTL": "soon"},
	}
	for _, env := range tests {
		_, err := Load("dqassist-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
