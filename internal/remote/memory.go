package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Call records one request made against a MemoryBackend.
type Call struct {
	Op    string
	Table string
	ID    string
}

// FailFunc decides whether a call should fail. Returning nil lets it through.
type FailFunc func(c Call) error

// MemoryBackend is an in-process Backend. It backs tests and offline demos.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string]map[string]Row
	calls  []Call
	fail   FailFunc
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]map[string]Row)}
}

// SetFailure installs fn to inject failures. Pass nil to clear.
func (m *MemoryBackend) SetFailure(fn FailFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fn
}

// Calls returns every call made so far, including failed ones.
func (m *MemoryBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Put stores a row directly, bypassing call recording.
func (m *MemoryBackend) Put(table string, row Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _ := row["id"].(string)
	m.table(table)[id] = cloneRow(row)
}

// Get returns a copy of a stored row.
func (m *MemoryBackend) Get(table, id string) (Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tables[table][id]
	if !ok {
		return nil, false
	}
	return cloneRow(row), true
}

// Len returns the number of rows in table.
func (m *MemoryBackend) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *MemoryBackend) table(name string) map[string]Row {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]Row)
		m.tables[name] = t
	}
	return t
}

// begin records the call and applies failure injection. Caller holds m.mu.
func (m *MemoryBackend) begin(ctx context.Context, c Call) error {
	m.calls = append(m.calls, c)
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fail != nil {
		return m.fail(c)
	}
	return nil
}

// Select implements Backend.
func (m *MemoryBackend) Select(ctx context.Context, table, id string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, Call{Op: "select", Table: table, ID: id}); err != nil {
		return nil, err
	}
	row, ok := m.tables[table][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRow(row), nil
}

// Insert implements Backend.
func (m *MemoryBackend) Insert(ctx context.Context, table string, payload json.RawMessage) error {
	row, err := decodeRow("insert", table, payload)
	if err != nil {
		return err
	}
	id, _ := row["id"].(string)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, Call{Op: "insert", Table: table, ID: id}); err != nil {
		return err
	}
	if id == "" {
		return &Error{Op: "insert", Table: table, StatusCode: http.StatusBadRequest, Message: "missing id"}
	}
	merge(m.table(table), id, row)
	return nil
}

// Update implements Backend.
func (m *MemoryBackend) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	row, err := decodeRow("update", table, payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, Call{Op: "update", Table: table, ID: id}); err != nil {
		return err
	}
	t := m.table(table)
	if _, ok := t[id]; !ok {
		return &Error{Op: "update", Table: table, StatusCode: http.StatusNotFound, Message: "no row with id " + id}
	}
	merge(t, id, row)
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, Call{Op: "delete", Table: table, ID: id}); err != nil {
		return err
	}
	delete(m.table(table), id)
	return nil
}

func decodeRow(op, table string, payload json.RawMessage) (Row, error) {
	var row Row
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, &Error{Op: op, Table: table, StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("invalid payload: %v", err)}
	}
	return row, nil
}

func merge(t map[string]Row, id string, fields Row) {
	row, ok := t[id]
	if !ok {
		row = make(Row, len(fields))
		t[id] = row
	}
	for k, v := range fields {
		row[k] = v
	}
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
