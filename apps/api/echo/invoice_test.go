package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/invoice"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_api_invoiceAdminOnly(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "invteacher", "invteacher@test.cd", "", []string{user.RoleTeacher}, true)

	// billing is off-limits even to teachers
	req, rec := newAuthRequest(http.MethodGet, "/v1/invoices", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_api_invoiceLifecycle(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Admin", "invadmin", "invadmin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "invstudent", "invstudent@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, admin)

	data, err := json.Marshal(invoice.NewInvoice{
		UserID:      student.ID,
		Description: "Tuition",
		AmountCents: 120_00,
		Currency:    "USD",
		DueAt:       time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPost, "/v1/invoices", token, data)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, readBody(t, rec))

	var inv invoice.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.True(t, strings.HasPrefix(inv.Number, "INV-"), inv.Number)
	assert.Equal(t, invoice.StatusDraft, inv.Status)

	req, rec = newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/send", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, invoice.StatusSent, inv.Status)
	assert.False(t, inv.IssuedAt.IsZero())

	// sent invoices are immutable
	req, rec = newAuthRequest(http.MethodPut, "/v1/invoices/"+inv.ID, token, []byte(`{"description": "Changed"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/pay", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, invoice.StatusPaid, inv.Status)

	// paid invoices cannot be voided
	req, rec = newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/void", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_api_invoiceUnknownUser(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Admin", "invadmin2", "invadmin2@test.cd", "", []string{user.RoleAdmin}, true)

	data, err := json.Marshal(invoice.NewInvoice{
		UserID:      "86e219b9-2f4d-4e4e-a33d-c637fe4d9228",
		Description: "Tuition",
		AmountCents: 120_00,
		Currency:    "USD",
		DueAt:       time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPost, "/v1/invoices", getToken(t, admin), data)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
