package extract_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfedu-digital/campus-assistant/internal/extract"
)

func newHTMLServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFieldsResolvesSelectors(t *testing.T) {
	server := newHTMLServer(t, `
		<html><body>
			<h1>  Заголовок новости  </h1>
			<div class="content">Текст статьи</div>
		</body></html>`)

	e := extract.New(extract.Config{})
	fields, err := e.Fields(context.Background(), server.URL, []string{"h1", ".content"})

	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Заголовок новости", fields[0])
	assert.Equal(t, "Текст статьи", fields[1])
}

func TestFieldsMissingSelectorYieldsEmpty(t *testing.T) {
	server := newHTMLServer(t, `<html><body><h1>Только заголовок</h1></body></html>`)

	e := extract.New(extract.Config{})
	fields, err := e.Fields(context.Background(), server.URL, []string{"h1", ".content"})

	require.NoError(t, err)
	assert.Equal(t, "Только заголовок", fields[0])
	assert.Equal(t, "", fields[1])
}

func TestFieldsTakesFirstMatch(t *testing.T) {
	server := newHTMLServer(t, `<html><body><p class="x">first</p><p class="x">second</p></body></html>`)

	e := extract.New(extract.Config{})
	fields, err := e.Fields(context.Background(), server.URL, []string{".x"})

	require.NoError(t, err)
	assert.Equal(t, "first", fields[0])
}

func TestFieldsServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := extract.New(extract.Config{})
	_, err := e.Fields(context.Background(), server.URL, []string{"h1"})
	assert.Error(t, err)
}

func TestFieldsUnreachableHostFails(t *testing.T) {
	e := extract.New(extract.Config{})
	_, err := e.Fields(context.Background(), "http://127.0.0.1:1", []string{"h1"})
	assert.Error(t, err)
}

func TestRowsResolvesCellsPerRow(t *testing.T) {
	server := newHTMLServer(t, `
		<html><body><table><tbody itemprop="priemKolTarget">
			<tr>
				<td class="city">Ростов-на-Дону</td>
				<td class="name">Математика</td>
				<td class="places">10</td>
			</tr>
			<tr>
				<td class="city">Таганрог</td>
				<td class="name">Физика</td>
			</tr>
		</tbody></table></body></html>`)

	e := extract.New(extract.Config{})
	rows, err := e.Rows(
		context.Background(),
		server.URL,
		`tbody[itemprop="priemKolTarget"] tr`,
		[]string{"td.city", "td.name", "td.places"},
	)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ростов-на-Дону", "Математика", "10"}, rows[0])
	assert.Equal(t, []string{"Таганрог", "Физика", ""}, rows[1])
}

func TestRowsNoMatchesYieldsNoRows(t *testing.T) {
	server := newHTMLServer(t, `<html><body><p>нет таблицы</p></body></html>`)

	e := extract.New(extract.Config{})
	rows, err := e.Rows(context.Background(), server.URL, "tbody tr", []string{"td"})

	require.NoError(t, err)
	assert.Empty(t, rows)
}
