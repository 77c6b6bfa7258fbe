package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSupabase(srv *httptest.Server) *Supabase {
	c := NewSupabase(srv.URL, "service-key", zap.NewNop())
	c.HTTPClient = srv.Client()
	return c
}

func TestSupabaseCreateUser(t *testing.T) {
	var (
		gotPath   string
		gotPrefer string
		gotAPIKey string
		gotAuth   string
		gotBody   map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrefer = r.Header.Get("Prefer")
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"u-1","name":"Alice","phone":"+15551234567","has_resume":false,"created_at":"2026-08-01T10:00:00Z"}]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	user, err := c.CreateUser(context.Background(), "Alice", "+15551234567")
	require.NoError(t, err)

	require.Equal(t, "/rest/v1/users", gotPath)
	require.Equal(t, "return=representation", gotPrefer)
	require.Equal(t, "service-key", gotAPIKey)
	require.Equal(t, "Bearer service-key", gotAuth)
	require.Equal(t, "Alice", gotBody["name"])
	require.Equal(t, "+15551234567", gotBody["phone"])

	require.Equal(t, "u-1", user.ID)
	require.Equal(t, "Alice", user.Name)
	require.False(t, user.HasResume)
}

func TestSupabaseGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u-1","name":"Alice","phone":"+15551234567","connection_requests":["golang mentor"]}]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	user, err := c.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)
	require.Equal(t, []string{"golang mentor"}, user.ConnectionRequests)
}

func TestSupabaseGetUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	_, err := c.GetUser(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSupabaseUpdateResume(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u-1","name":"Alice","phone":"+15551234567","resume_text":"Go developer","category":"engineering","has_resume":true}]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	user, err := c.UpdateResume(context.Background(), "u-1", "local:///tmp/r.txt", "Go developer", "engineering")
	require.NoError(t, err)

	require.Equal(t, "Go developer", gotBody["resume_text"])
	require.Equal(t, true, gotBody["has_resume"])
	require.True(t, user.HasResume)
	require.Equal(t, "engineering", user.Category)
}

func TestSupabaseListAllOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// id tiebreak keeps equal-created_at rows in one order across calls.
		require.Equal(t, "created_at.asc,id.asc", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u-1","name":"Alice","phone":"1"},{"id":"u-2","name":"Bob","phone":"2"}]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	users, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, users.Len())
	require.Equal(t, []string{"Alice", "Bob"}, users.Names())
}

func TestSupabaseListByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eq.data-science", r.URL.Query().Get("category"))
		require.Equal(t, "created_at.asc,id.asc", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u-1","name":"Alice","phone":"1","category":"data-science"}]`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	users, err := c.ListByCategory(context.Background(), "data-science")
	require.NoError(t, err)
	require.Equal(t, 1, users.Len())
}

func TestSupabaseBadStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"JWT expired"}`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad status")
	require.Contains(t, err.Error(), "JWT expired")
}

func TestSupabaseMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := newTestSupabase(srv)

	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse rows")
}
