// Package prompt builds the ordered message list sent to the LLM for
// one conversation turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dqassist/dqassist/internal/conversation"
	"github.com/dqassist/dqassist/internal/llm"
	"github.com/dqassist/dqassist/internal/sqlextract"
)

// historyWindow bounds how many stored turns are replayed into the
// prompt. Fixed at 15 to limit token cost and context growth.
const historyWindow = 15

const systemTemplate = `You are a friendly, conversational data quality assistant that helps with database operations while also engaging in normal conversation. You can discuss any topic while specializing in data quality concepts.

DATABASE CONTEXT:
You are currently working with database: %s
The database contains these tables: %s

DATA QUALITY EXPERTISE:
You understand these data quality dimensions:
- Completeness: Ensuring data has no missing values
- Accuracy: Data correctly represents real-world entities
- Consistency: Data values don't contradict each other
- Timeliness: Data is up-to-date
- Validity: Data conforms to defined formats and ranges
- Uniqueness: No unexpected duplicates exist

WHEN HANDLING SQL AND DATABASE OPERATIONS:
1. Be EXTREMELY precise with table names - never guess or abbreviate table names
2. Always verify the exact table name exists before suggesting operations
3. Format SQL commands within tags like this: <SQL>your SQL here</SQL>
4. Include the actual SQL command for any data operation

CONVERSATION MEMORY:
- Refer to past operations and maintain context throughout the conversation
- If you've previously executed operations on specific tables, reference them by exact name

DUAL CAPABILITIES:
- For database requests: Provide accurate SQL and explanations
- For general questions: Respond conversationally like a helpful assistant

Always prioritize data safety and accuracy in your responses.`

// Compose assembles the prompt: one system message carrying the
// persona, the current database and its schema description, then a
// second system message summarizing prior SQL operations when any
// exist in the window, then the windowed transcript, then the new user
// message. Pure function: the caller supplies the schema description.
func Compose(history []conversation.Turn, userMessage, database, schemaDescription string) []llm.Message {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	messages := []llm.Message{{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemTemplate, database, schemaDescription),
	}}

	if digest, ok := operationDigest(window, database); ok {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: digest})
	}

	for _, turn := range window {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
}

// operationDigest numbers every SQL statement previously embedded in
// assistant turns within the window. This digest is the model's only
// memory of what it has already executed.
func operationDigest(window []conversation.Turn, database string) (string, bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Previous SQL operations in this conversation (on database %s):\n", database)

	count := 0
	for _, turn := range window {
		if turn.Role != conversation.RoleAssistant {
			continue
		}
		for _, statement := range sqlextract.Extract(turn.Content) {
			count++
			fmt.Fprintf(&sb, "%d. %s\n", count, statement)
		}
	}
	if count == 0 {
		return "", false
	}
	return sb.String(), true
}
