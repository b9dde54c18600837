package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/build-warden/internal/core"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGitHubClient(gh, server.Client(), 0, logger), server
}

func TestGetJobLog(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/repos/rust-lang/rust/actions/jobs/42/logs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, serverURL+"/blob/42.txt", http.StatusFound)
	})
	mux.HandleFunc("/blob/42.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "line one\nerror: boom\n")
	})
	mux.HandleFunc("/repos/rust-lang/rust/actions/jobs/404/logs", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	client, server := newTestClient(t, mux)
	serverURL = server.URL

	log, err := client.GetJobLog(context.Background(), "rust-lang", "rust", 42)
	require.NoError(t, err)
	assert.Equal(t, "line one\nerror: boom\n", log)

	_, err = client.GetJobLog(context.Background(), "rust-lang", "rust", 404)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.False(t, core.IsFatal(err))
}

func TestCreateComment(t *testing.T) {
	var got github.IssueComment
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/123/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	})
	mux.HandleFunc("/repos/owner/repo/issues/7/comments", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	})
	mux.HandleFunc("/repos/owner/repo/issues/8/comments", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Validation Failed"}`, http.StatusUnprocessableEntity)
	})
	mux.HandleFunc("/repos/owner/repo/issues/9/comments", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Unable to create comment because issue is locked."}`, http.StatusForbidden)
	})

	client, _ := newTestClient(t, mux)

	require.NoError(t, client.CreateComment(context.Background(), "owner", "repo", 123, "hello"))
	assert.Equal(t, "hello", got.GetBody())

	err := client.CreateComment(context.Background(), "owner", "repo", 7, "hello")
	assert.True(t, core.IsFatal(err), "bad credentials must be fatal")

	err = client.CreateComment(context.Background(), "owner", "repo", 8, "hello")
	require.Error(t, err)
	assert.False(t, core.IsFatal(err))

	err = client.CreateComment(context.Background(), "owner", "repo", 9, "hello")
	require.Error(t, err)
	assert.False(t, core.IsFatal(err), "a locked issue only affects its own event")
	assert.Contains(t, err.Error(), "locked")
}
