package sink_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
	"github.com/sfedu-digital/campus-assistant/internal/sink"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newFileSink(t *testing.T, forwardURL string) (*sink.Sink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := sink.New(sink.Config{FilePath: path, ForwardURL: forwardURL}, logger.NewNoop())
	return s, path
}

func TestPersistWritesSnapshot(t *testing.T) {
	s, path := newFileSink(t, "")

	require.NoError(t, s.Persist(testPayload{Name: "Новость", Count: 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got testPayload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, testPayload{Name: "Новость", Count: 3}, got)

	// Cyrillic stays readable and the file is indented.
	assert.Contains(t, string(data), "Новость")
	assert.Contains(t, string(data), "    ")
}

func TestPersistOverwritesPriorContent(t *testing.T) {
	s, path := newFileSink(t, "")

	require.NoError(t, s.Persist(testPayload{Name: "first", Count: 1}))
	require.NoError(t, s.Persist(testPayload{Name: "second", Count: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestPersistIdenticalPayloadsIdenticalBytes(t *testing.T) {
	s, path := newFileSink(t, "")
	payload := testPayload{Name: "stable", Count: 7}

	require.NoError(t, s.Persist(payload))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Persist(payload))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestForwardPostsJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, _ := newFileSink(t, server.URL)
	require.NoError(t, s.Forward(context.Background(), testPayload{Name: "n", Count: 1}))

	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"name":"n","count":1}`, string(gotBody))
}

func TestForwardNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s, _ := newFileSink(t, server.URL)
	err := s.Forward(context.Background(), testPayload{})
	assert.ErrorContains(t, err, "500")
}

func TestForwardDisabledWithoutURL(t *testing.T) {
	s, _ := newFileSink(t, "")
	assert.NoError(t, s.Forward(context.Background(), testPayload{}))
}

func TestPersistAndForwardSwallowsForwardFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s, path := newFileSink(t, server.URL)

	// The local write succeeded, so the failed forward is not an error.
	require.NoError(t, s.PersistAndForward(context.Background(), testPayload{Name: "kept", Count: 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
}

func TestPersistAndForwardReturnsPersistFailure(t *testing.T) {
	dir := t.TempDir()
	s := sink.New(sink.Config{
		FilePath: filepath.Join(dir, "missing", "snapshot.json"),
	}, logger.NewNoop())

	assert.Error(t, s.PersistAndForward(context.Background(), testPayload{}))
}
