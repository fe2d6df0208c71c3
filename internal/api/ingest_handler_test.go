package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfedu-digital/campus-assistant/internal/api"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// jsonDecode decodes a response body into v.
func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

// mockWriter implements api.SnapshotWriter.
type mockWriter struct {
	payloads []any
	err      error
}

func (m *mockWriter) Persist(payload any) error {
	m.payloads = append(m.payloads, payload)
	return m.err
}

func newIngestServer(newsWriter, seatsWriter *mockWriter) *httptest.Server {
	gin.SetMode(gin.TestMode)
	log := logger.NewNoop()
	assistantHandler := api.NewAssistantHandler(&mockStore{}, &mockCompleter{reply: "ok"}, "", log)
	ingestHandler := api.NewIngestHandler(newsWriter, seatsWriter, log)
	router := api.SetupRouter(log, assistantHandler, ingestHandler)
	return httptest.NewServer(router)
}

func TestSaveParsedNewsPersistsPayload(t *testing.T) {
	newsWriter := &mockWriter{}
	server := newIngestServer(newsWriter, &mockWriter{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/parsed-news",
		`{"actual_news": {"id": 77181, "title": "Заголовок", "content": "Текст"}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Parsed news saved successfully.", decodeBody(t, resp)["message"])

	require.Len(t, newsWriter.payloads, 1)
	payload, ok := newsWriter.payloads[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "actual_news")
}

func TestSaveFreePlacesPersistsPayload(t *testing.T) {
	seatsWriter := &mockWriter{}
	server := newIngestServer(&mockWriter{}, seatsWriter)
	defer server.Close()

	resp := postJSON(t, server.URL+"/free-places",
		`[{"category": "Бакалавриат", "name": "Математика", "free_places": "10 / 5", "city": "Ростов-на-Дону"}]`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Free places saved successfully.", decodeBody(t, resp)["message"])
	require.Len(t, seatsWriter.payloads, 1)
}

func TestIngestEndpointsAreIndependent(t *testing.T) {
	newsWriter := &mockWriter{}
	seatsWriter := &mockWriter{}
	server := newIngestServer(newsWriter, seatsWriter)
	defer server.Close()

	postJSON(t, server.URL+"/parsed-news", `{"error": "page load failed"}`)

	assert.Len(t, newsWriter.payloads, 1)
	assert.Empty(t, seatsWriter.payloads)
}

func TestIngestPersistFailureIs500(t *testing.T) {
	newsWriter := &mockWriter{err: errors.New("disk full")}
	server := newIngestServer(newsWriter, &mockWriter{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/parsed-news", `{"any": "payload"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestIngestInvalidJSONIs400(t *testing.T) {
	newsWriter := &mockWriter{}
	server := newIngestServer(newsWriter, &mockWriter{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/parsed-news", `{broken`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, newsWriter.payloads)
}
