// Package remote talks to the cloud backend: a row-level REST API addressed
// per table, used only while draining the sync queue.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Backend applies queued mutations to the remote datastore.
// Payloads are partial rows; the backend merges whatever fields are present.
type Backend interface {
	// Select returns the row with id, or ErrNotFound.
	Select(ctx context.Context, table, id string) (Row, error)
	// Insert creates the row, or merges into it if it already exists.
	Insert(ctx context.Context, table string, payload json.RawMessage) error
	// Update merges payload into the row with id. A missing row is ErrNotFound.
	Update(ctx context.Context, table, id string, payload json.RawMessage) error
	// Delete removes the row with id. Deleting a missing row succeeds.
	Delete(ctx context.Context, table, id string) error
}

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("remote row not found")

// Row is a decoded remote row.
type Row map[string]any

// UpdatedAt returns the row's updated_at column, if present and parseable.
func (r Row) UpdatedAt() (time.Time, bool) {
	s, ok := r["updated_at"].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Kind classifies a remote failure for retry policy.
type Kind int

const (
	// KindTransient failures are retried with backoff.
	KindTransient Kind = iota
	// KindPermanent failures will never succeed as sent.
	KindPermanent
	// KindConflict means the backend rejected the write as conflicting.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindPermanent:
		return "permanent"
	case KindConflict:
		return "conflict"
	}
	return "transient"
}

// Error is a non-2xx response from the backend.
type Error struct {
	Op         string
	Table      string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.Table, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Op, e.Table, e.StatusCode, e.Message)
}

// Kind classifies the response status.
func (e *Error) Kind() Kind {
	switch e.StatusCode {
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed,
		http.StatusNotAcceptable, http.StatusUnprocessableEntity:
		return KindPermanent
	}
	return KindTransient
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Classify returns the retry class of err. Unknown errors (network, timeouts)
// are transient.
func Classify(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind()
	}
	if errors.Is(err, ErrNotFound) {
		return KindPermanent
	}
	return KindTransient
}
