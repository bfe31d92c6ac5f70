package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dqassist/dqassist/internal/chat"
	"github.com/dqassist/dqassist/internal/config"
	"github.com/dqassist/dqassist/internal/conversation"
	"github.com/dqassist/dqassist/internal/session"
	"github.com/dqassist/dqassist/internal/sqlrun"
)

type fakeChat struct {
	lastMessage  string
	lastDatabase string
	calls        int
}

func (f *fakeChat) HandleMessage(_ context.Context, store *conversation.Store, userMessage, database string) chat.Reply {
	f.calls++
	f.lastMessage = userMessage
	f.lastDatabase = database
	store.Append(conversation.Turn{Role: conversation.RoleUser, Content: userMessage, Database: database})
	response := "Sure. <SQL>INSERT INTO users (name) VALUES ('Ada')</SQL>"
	result := []sqlrun.ExecutionResult{{
		Kind: "INSERT", RowsAffected: 1, Status: "success", Database: database,
	}}
	store.Append(conversation.Turn{Role: conversation.RoleAssistant, Content: response, Database: database, Result: result})
	return chat.Reply{Response: response, Result: result, History: store.All()}
}

type fakeCatalog struct {
	databases []string
	tables    []string
	err       error
}

func (f *fakeCatalog) ListDatabases(_ context.Context) ([]string, error) {
	return f.databases, f.err
}

func (f *fakeCatalog) ListTables(_ context.Context, _ string) ([]string, error) {
	return f.tables, f.err
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("dqassist-api", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Readiness: func(context.Context) error { return errors.New("dependency down") },
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestProcessRunsTurnAndSetsSessionCookie(t *testing.T) {
	cfg := testConfig(t)
	svc := &fakeChat{}
	h := NewHandler(cfg, Dependencies{
		Sessions: session.NewManager(time.Hour),
		Chat:     svc,
	})

	body := strings.NewReader(`{"message": "add a row to users"}`)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if svc.lastMessage != "add a row to users" {
		t.Fatalf("message = %q", svc.lastMessage)
	}
	if svc.lastDatabase != "DataQuality" {
		t.Fatalf("database = %q, want config default", svc.lastDatabase)
	}

	var payload struct {
		Response string           `json:"response"`
		Result   []map[string]any `json:"result"`
		History  []map[string]any `json:"history"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Result) != 1 || payload.Result[0]["type"] != "INSERT" {
		t.Fatalf("result = %#v", payload.Result)
	}
	if payload.Result[0]["rows_affected"] != float64(1) {
		t.Fatalf("rows_affected = %#v", payload.Result[0]["rows_affected"])
	}
	if len(payload.History) != 2 {
		t.Fatalf("history = %#v", payload.History)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cfg.Session.CookieName || cookies[0].Value == "" {
		t.Fatalf("cookies = %#v", cookies)
	}
}

func TestProcessRejectsBlankMessage(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Sessions: session.NewManager(time.Hour),
		Chat:     &fakeChat{},
	})

	for _, body := range []string{`{}`, `{"message": "   "}`, `not json`} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d for body %q", rr.Code, body)
		}
	}
}

func TestProcessHonorsExplicitDatabase(t *testing.T) {
	svc := &fakeChat{}
	h := NewHandler(testConfig(t), Dependencies{
		Sessions: session.NewManager(time.Hour),
		Chat:     svc,
	})

	body := strings.NewReader(`{"message": "hello", "database": "Sales"}`)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process", body))

	if svc.lastDatabase != "Sales" {
		t.Fatalf("database = %q", svc.lastDatabase)
	}
}

func TestHistoryAndClearShareSessionViaCookie(t *testing.T) {
	cfg := testConfig(t)
	h := NewHandler(cfg, Dependencies{
		Sessions: session.NewManager(time.Hour),
		Chat:     &fakeChat{},
	})

	processResp := httptest.NewRecorder()
	h.ServeHTTP(processResp, httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"message": "hi"}`)))
	cookies := processResp.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %#v", cookies)
	}

	historyReq := httptest.NewRequest(http.MethodGet, "/history", nil)
	historyReq.AddCookie(cookies[0])
	historyResp := httptest.NewRecorder()
	h.ServeHTTP(historyResp, historyReq)

	var turns []map[string]any
	if err := json.Unmarshal(historyResp.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("history = %#v", turns)
	}

	clearReq := httptest.NewRequest(http.MethodPost, "/clear_history", nil)
	clearReq.AddCookie(cookies[0])
	clearResp := httptest.NewRecorder()
	h.ServeHTTP(clearResp, clearReq)
	if clearResp.Code != http.StatusOK {
		t.Fatalf("clear status = %d", clearResp.Code)
	}
	var ack map[string]any
	if err := json.Unmarshal(clearResp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode clear ack: %v", err)
	}
	if ack["status"] != "success" || ack["message"] != "History cleared" {
		t.Fatalf("ack = %#v", ack)
	}

	verifyReq := httptest.NewRequest(http.MethodGet, "/history", nil)
	verifyReq.AddCookie(cookies[0])
	verifyResp := httptest.NewRecorder()
	h.ServeHTTP(verifyResp, verifyReq)
	if err := json.Unmarshal(verifyResp.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode history after clear: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("history after clear = %#v", turns)
	}
}

func TestListDatabases(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Databases: &fakeCatalog{databases: []string{"DataQuality", "Sales"}},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/list_databases", nil))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "success" {
		t.Fatalf("body = %#v", body)
	}
	databases, ok := body["databases"].([]any)
	if !ok || len(databases) != 2 {
		t.Fatalf("databases = %#v", body["databases"])
	}
}

func TestListDatabasesDegradesInBody(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Databases: &fakeCatalog{err: errors.New("connection refused")},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/list_databases", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "error" || !strings.Contains(body["message"].(string), "connection refused") {
		t.Fatalf("body = %#v", body)
	}
}

func TestTestDBProbesNamedDatabase(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Databases: &fakeCatalog{tables: []string{"users", "orders"}},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/test_db", strings.NewReader(`{"database": "Sales"}`)))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "success" || body["connection"] != "OK" || body["database"] != "Sales" {
		t.Fatalf("body = %#v", body)
	}
	tables, ok := body["tables"].([]any)
	if !ok || len(tables) != 2 {
		t.Fatalf("tables = %#v", body["tables"])
	}
}

func TestTestDBDefaultsDatabaseAndDegradesInBody(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Databases: &fakeCatalog{err: errors.New("database \"DataQuality\" not found")},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/test_db", strings.NewReader(`{}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "error" {
		t.Fatalf("body = %#v", body)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	if err := combined(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}
