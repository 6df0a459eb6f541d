package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_api_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+conf.AppName+" API!", readBody(t, rec))
}

func Test_api_authRequired(t *testing.T) {
	paths := []string{"/v1/users", "/v1/resources", "/v1/cohorts", "/v1/sessions", "/v1/invoices"}
	for _, path := range paths {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		var body httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), path)
		assert.Equal(t, errMissingToken, body, path)
	}
}

func Test_api_login(t *testing.T) {
	testutil.CreateUser(t, usrRepo, "Login User", "loginuser", "login@test.cd", "LePassword", []string{user.RoleStudent}, true)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"valid credentials", `{"username": "loginuser", "password": "LePassword"}`, http.StatusOK, ""},
		{"valid by email", `{"username": "login@test.cd", "password": "LePassword"}`, http.StatusOK, ""},
		{"wrong password", `{"username": "loginuser", "password": "nope"}`, http.StatusBadRequest, "authentication failed"},
		{"unknown user", `{"username": "ghost", "password": "nope"}`, http.StatusBadRequest, "authentication failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", []byte(tt.body))
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, readBody(t, rec))
			if tt.wantErr != "" {
				var body httpErr
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantErr, body.Error)
				return
			}
			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Token)
		})
	}
}

func Test_api_loginDeactivated(t *testing.T) {
	testutil.CreateUser(t, usrRepo, "Gone", "goneuser", "gone@test.cd", "LePassword", []string{user.RoleStudent}, false)

	req, rec := newRequest(http.MethodPost, "/v1/users/login", []byte(`{"username": "goneuser", "password": "LePassword"}`))
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "account deactivated", body.Error)
}

func Test_api_userListAdminOnly(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Student", "liststudent", "liststudent@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "listadmin", "listadmin@test.cd", "", []string{user.RoleAdmin}, true)

	// students are turned away
	req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	var body httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "permission denied", body.Error)

	// admins get the list
	req, rec = newAuthRequest(http.MethodGet, "/v1/users", getToken(t, admin))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))
	var users []user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.GreaterOrEqual(t, len(users), 2)
}

func Test_api_userRetrieve(t *testing.T) {
	alice := testutil.CreateUser(t, usrRepo, "Alice", "aliceuser", "alice@test.cd", "", []string{user.RoleStudent}, true)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bobuser", "bob@test.cd", "", []string{user.RoleStudent}, true)

	// own profile is visible
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+alice.ID, getToken(t, alice))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var got user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, alice.ID, got.ID)
	assert.Empty(t, got.PasswordHash, "the password hash never leaves the API")

	// someone else's is a 404, not a 403, to avoid leaking existence
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+bob.ID, getToken(t, alice))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_api_userRegisterRoleEscalation(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Admin", "regadmin", "regadmin@test.cd", "", []string{user.RoleAdmin}, true)

	// a plain admin cannot mint an owner
	data := `{"name": "Evil Owner", "username": "evilowner", "email": "owner@test.cd", "roles": ["admin:owner"],
		"password": "LePassword", "password_confirm": "LePassword"}`
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), []byte(data))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, readBody(t, rec))
	var fields map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	assert.Equal(t, errNoPermsToSetRoles, fields["roles"])
}

func Test_api_userRoles(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Admin", "rolesadmin", "rolesadmin@test.cd", "", []string{user.RoleAdmin}, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, admin))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var roles []user.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	assert.Len(t, roles, len(user.Roles))
}

func Test_api_tokenRefresh(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Refresher", "refresher", "refresher@test.cd", "", []string{user.RoleStudent}, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}
