package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/farrierly/internal/testutil"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*RESTBackend, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	b, err := NewRESTBackend(Config{
		URL:         srv.URL,
		APIKey:      "anon-key",
		AccessToken: "user-jwt",
		RateLimit:   6000,
	})
	require.NoError(t, err)
	return b, &reqs
}

func TestNewRESTBackend_RequiresURL(t *testing.T) {
	_, err := NewRESTBackend(Config{})
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestRESTBackend_Insert(t *testing.T) {
	b, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	err := b.Insert(context.Background(), "clients", json.RawMessage(`{"id":"c-1","name":"Ada"}`))
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/clients", req.Path)
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer user-jwt", req.Header.Get("Authorization"))
	assert.Contains(t, req.Header.Get("Prefer"), "merge-duplicates")
	assert.JSONEq(t, `{"id":"c-1","name":"Ada"}`, req.Body)
}

func TestRESTBackend_Update(t *testing.T) {
	b, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"h-1"}]`))
	})

	err := b.Update(context.Background(), "horses", "h-1", json.RawMessage(`{"id":"h-1","is_active":false}`))
	require.NoError(t, err)

	req := (*reqs)[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/rest/v1/horses", req.Path)
	assert.Equal(t, "id=eq.h-1", req.Query)
}

func TestRESTBackend_UpdateMissingRow(t *testing.T) {
	b, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	err := b.Update(context.Background(), "horses", "h-404", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindPermanent, Classify(err))
}

func TestRESTBackend_Delete(t *testing.T) {
	b, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, b.Delete(context.Background(), "invoices", "i-1"))
	req := (*reqs)[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "id=eq.i-1", req.Query)
}

func TestRESTBackend_Select(t *testing.T) {
	b, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.c-1" {
			_, _ = w.Write([]byte(`[{"id":"c-1","updated_at":"2026-03-01T10:30:00+00:00"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	row, err := b.Select(context.Background(), "clients", "c-1")
	require.NoError(t, err)
	ts, ok := row.UpdatedAt()
	require.True(t, ok)
	assert.Equal(t, 2026, ts.Year())

	_, err = b.Select(context.Background(), "clients", "c-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRESTBackend_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusConflict, KindConflict},
		{http.StatusBadRequest, KindPermanent},
		{http.StatusUnprocessableEntity, KindPermanent},
		{http.StatusNotFound, KindPermanent},
		{http.StatusUnauthorized, KindTransient},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			b, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"rejected","details":"by test"}`))
			})

			err := b.Insert(context.Background(), "clients", json.RawMessage(`{"id":"c-1"}`))
			require.Error(t, err)

			var re *Error
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, "rejected: by test", re.Message)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestClassify_NetworkErrorsAreTransient(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(errors.New("dial tcp: connection refused")))
	assert.Equal(t, KindTransient, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindPermanent, Classify(ErrNotFound))
}

func TestRESTBackend_Live(t *testing.T) {
	testutil.SkipRemoteTests(t)

	b, err := NewRESTBackend(Config{
		URL:         os.Getenv("FARRIERLY_REMOTE_URL"),
		APIKey:      os.Getenv("FARRIERLY_API_KEY"),
		AccessToken: os.Getenv("FARRIERLY_ACCESS_TOKEN"),
	})
	require.NoError(t, err)

	_, err = b.Select(context.Background(), "users", "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
