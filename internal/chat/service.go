// Package chat drives one conversation turn end to end: record the
// user message, consult the LLM (or short-circuit for history recall),
// execute any SQL the model embedded, and record the assistant reply.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dqassist/dqassist/internal/conversation"
	"github.com/dqassist/dqassist/internal/llm"
	"github.com/dqassist/dqassist/internal/observability"
	"github.com/dqassist/dqassist/internal/prompt"
	"github.com/dqassist/dqassist/internal/sqlextract"
	"github.com/dqassist/dqassist/internal/sqlrun"
)

const timestampLayout = "2006-01-02 15:04:05"

const unavailableMessage = "I'm sorry, but the AI service is currently unavailable. Please check the service configuration and try again."

const noOperationsMessage = "I haven't executed any SQL operations yet in this session."

// Executor runs extracted statements; nil result means nothing ran.
type Executor interface {
	ExecuteBatch(ctx context.Context, statements []string, database string) []sqlrun.ExecutionResult
}

// SchemaDescriber renders a database description for the prompt. It is
// expected to degrade to text, never fail.
type SchemaDescriber interface {
	Describe(ctx context.Context, database string) string
}

type Service struct {
	llm      llm.Client
	executor Executor
	schema   SchemaDescriber
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the orchestrator. A nil llm client is valid and
// puts every non-recall turn on the degraded path.
func NewService(client llm.Client, executor Executor, schema SchemaDescriber, logger *slog.Logger) *Service {
	return &Service{
		llm:      client,
		executor: executor,
		schema:   schema,
		logger:   logger,
		now:      time.Now,
	}
}

// Reply is the combined payload returned to the boundary layer after a
// turn completes. Result is nil when no SQL was executed.
type Reply struct {
	Response string                   `json:"response"`
	Result   []sqlrun.ExecutionResult `json:"result"`
	History  []conversation.Turn      `json:"history"`
}

// HandleMessage processes one user message against the session's store.
// The store must only be touched by this single in-flight request;
// serializing concurrent requests for one session is the caller's job.
func (s *Service) HandleMessage(ctx context.Context, store *conversation.Store, userMessage, database string) Reply {
	store.Append(conversation.Turn{
		Role:      conversation.RoleUser,
		Content:   userMessage,
		Timestamp: s.timestamp(),
		Database:  database,
	})

	lowered := strings.ToLower(userMessage)
	if strings.Contains(lowered, "what is the code") || strings.Contains(lowered, "show me the sql") {
		observability.ObserveChatTurn(observability.TurnOutcomeHistoryRecall)
		return s.recallHistory(store, database)
	}

	response, degraded := s.askModel(ctx, store, userMessage, database)
	if degraded {
		observability.ObserveChatTurn(observability.TurnOutcomeLLMFailed)
		store.Append(conversation.Turn{
			Role:      conversation.RoleAssistant,
			Content:   response,
			Timestamp: s.timestamp(),
			Database:  database,
		})
		return Reply{Response: response, History: store.All()}
	}

	statements := sqlextract.Extract(response)
	results := s.executor.ExecuteBatch(ctx, statements, database)

	store.Append(conversation.Turn{
		Role:      conversation.RoleAssistant,
		Content:   response,
		Timestamp: s.timestamp(),
		Database:  database,
		Result:    results,
	})
	observability.ObserveChatTurn(observability.TurnOutcomeAnswered)
	return Reply{Response: response, Result: results, History: store.All()}
}

// askModel returns the assistant text and whether the turn is degraded.
// A degraded reply is still recorded but never scanned for SQL.
func (s *Service) askModel(ctx context.Context, store *conversation.Store, userMessage, database string) (string, bool) {
	if s.llm == nil {
		return unavailableMessage, true
	}

	schemaDescription := s.schema.Describe(ctx, database)
	messages := prompt.Compose(store.All(), userMessage, database, schemaDescription)

	response, err := s.llm.Complete(ctx, messages)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "chat completion failed", slog.Any("error", err))
		}
		return fmt.Sprintf("Error connecting to AI service: %v", err), true
	}
	return response, false
}

// recallHistory answers "show me the sql" directly from the stored
// transcript, with no LLM call and no execution.
func (s *Service) recallHistory(store *conversation.Store, database string) Reply {
	type operation struct {
		sql       string
		timestamp string
		database  string
	}

	var operations []operation
	for _, turn := range store.All() {
		if turn.Role != conversation.RoleAssistant {
			continue
		}
		for _, statement := range sqlextract.Extract(turn.Content) {
			operations = append(operations, operation{
				sql:       statement,
				timestamp: turn.Timestamp,
				database:  turn.Database,
			})
		}
	}

	response := noOperationsMessage
	if len(operations) > 0 {
		var sb strings.Builder
		sb.WriteString("Here are the SQL operations I've executed in this session:\n\n")
		for i, op := range operations {
			fmt.Fprintf(&sb, "%d. At %s on database %s:\n<SQL>%s</SQL>\n\n", i+1, op.timestamp, op.database, op.sql)
		}
		response = sb.String()
	}

	store.Append(conversation.Turn{
		Role:      conversation.RoleAssistant,
		Content:   response,
		Timestamp: s.timestamp(),
		Database:  database,
	})
	return Reply{Response: response, History: store.All()}
}

func (s *Service) timestamp() string {
	return s.now().Format(timestampLayout)
}
