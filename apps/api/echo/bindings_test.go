package echoapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func bindOrdering(t *testing.T, rawOrdering string, sortable ...string) []core.DBOrdering {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?ordering="+url.QueryEscape(rawOrdering), nil)
	ctx := e.NewContext(req, httptest.NewRecorder())

	ord := new(Ordering)
	ord.Bind(ctx, sortable...)
	return ord.Orderings
}

func Test_Ordering_Bind(t *testing.T) {
	got := bindOrdering(t, "-name,email", "name", "email", "created_at")
	require.Len(t, got, 2)
	assert.Equal(t, core.DBOrdering{Field: "name", Ascending: false}, got[0])
	assert.Equal(t, core.DBOrdering{Field: "email", Ascending: true}, got[1])
}

func Test_Ordering_BindDropsUnsortableFields(t *testing.T) {
	// anything outside the sortable set never reaches an ORDER BY clause
	got := bindOrdering(t,
		"-name,(CASE WHEN (SELECT password_hash FROM \"user\" LIMIT 1) > '' THEN id END),email; DROP TABLE resource",
		"name", "email", "created_at")
	require.Len(t, got, 1)
	assert.Equal(t, core.DBOrdering{Field: "name", Ascending: false}, got[0])

	got = bindOrdering(t, "-name,email")
	assert.Empty(t, got, "no sortable set means nothing is sortable")
}

func Test_api_queryFilterBindError(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Binder", "binderuser", "binderuser@test.cd", "", []string{user.RoleStudent}, true)

	// a malformed filter is an error, not an empty result
	req, rec := newAuthRequest(http.MethodGet, "/v1/sessions?from=not-a-time", getToken(t, usr))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, readBody(t, rec))

	req, rec = newAuthRequest(http.MethodGet, "/v1/sessions", getToken(t, usr))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
