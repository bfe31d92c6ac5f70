package sqlrun

import "encoding/json"

const (
	KindSelect = "SELECT"
	KindError  = "ERROR"
)

// ExecutionResult is the outcome of running one SQL statement. Kind is
// "SELECT" for row-returning queries, the upper-cased leading verb for
// mutations, or "ERROR". Results are immutable once produced.
type ExecutionResult struct {
	Kind         string
	Columns      []string
	Rows         [][]any
	Count        int
	RowsAffected int64
	Status       string
	Error        string
	SQL          string
	Database     string
}

// MarshalJSON emits only the fields that belong to the result's kind,
// matching the wire shape consumed by clients.
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindError:
		return json.Marshal(struct {
			Kind     string `json:"type"`
			Error    string `json:"error"`
			SQL      string `json:"sql"`
			Database string `json:"database"`
		}{r.Kind, r.Error, r.SQL, r.Database})
	case KindSelect:
		rows := r.Rows
		if rows == nil {
			rows = [][]any{}
		}
		columns := r.Columns
		if columns == nil {
			columns = []string{}
		}
		return json.Marshal(struct {
			Kind     string   `json:"type"`
			Columns  []string `json:"columns"`
			Rows     [][]any  `json:"rows"`
			Count    int      `json:"count"`
			Database string   `json:"database"`
		}{r.Kind, columns, rows, r.Count, r.Database})
	default:
		return json.Marshal(struct {
			Kind         string `json:"type"`
			RowsAffected int64  `json:"rows_affected"`
			Status       string `json:"status"`
			Database     string `json:"database"`
		}{r.Kind, r.RowsAffected, r.Status, r.Database})
	}
}
