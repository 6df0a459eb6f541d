package invoice_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invoice"
	"github.com/darasahq/darasa/core/user"
	appfs "github.com/darasahq/darasa/fs"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

var conf = testutil.NewConfig()

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(appfs.EmailTemplates, appfs.EmailTemplatesRoot, conf, testutil.NopLogger{})
	os.Exit(m.Run())
}

func setup(t *testing.T) (*invoice.Service, user.User) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	svc := invoice.NewService(inmemdb.NewInvoiceRepository(db), usrSvc, mailSvc, conf)

	student := testutil.CreateUser(t, usrRepo, "Student", "student1", "student@test.cd", "", []string{user.RoleStudent}, true)
	emailsvc.ClearSentMessages()
	return svc, student
}

func newInvoice(userID string) invoice.NewInvoice {
	return invoice.NewInvoice{
		UserID:      userID,
		Description: "Tuition",
		AmountCents: 120_00,
		Currency:    "USD",
		DueAt:       time.Now().Add(30 * 24 * time.Hour),
	}
}

func Test_invoice_numbering(t *testing.T) {
	svc, student := setup(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	inv1, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)
	inv2, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("INV-%d-0001", year), inv1.Number)
	assert.Equal(t, fmt.Sprintf("INV-%d-0002", year), inv2.Number)
	assert.Equal(t, invoice.StatusDraft, inv1.Status)
	assert.True(t, inv1.IssuedAt.IsZero(), "drafts are not issued yet")
}

func Test_invoice_createUnknownUser(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Create(context.Background(), newInvoice("86e219b9-2f4d-4e4e-a33d-c637fe4d9228"))
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
}

func Test_invoice_lifecycle(t *testing.T) {
	svc, student := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)

	// draft -> sent, emails the recipient
	inv, err = svc.Send(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSent, inv.Status)
	assert.False(t, inv.IssuedAt.IsZero())
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, student.Email, emailsvc.SentMessages[0].To[0].Address)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, inv.Number)

	// sent invoices are immutable
	cents := int64(99_00)
	_, err = svc.Update(ctx, inv.ID, invoice.UpdateInvoice{AmountCents: &cents})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))

	// sent -> paid
	inv, err = svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
	assert.False(t, inv.PaidAt.IsZero())

	// paid invoices cannot be re-sent, re-paid or voided
	_, err = svc.Send(ctx, inv.ID)
	assert.True(t, errors.As(err, &verr))
	_, err = svc.MarkPaid(ctx, inv.ID)
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Void(ctx, inv.ID)
	assert.True(t, errors.As(err, &verr))
}

func Test_invoice_updateDraft(t *testing.T) {
	svc, student := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)

	cents := int64(150_00)
	due := time.Now().Add(60 * 24 * time.Hour)
	got, err := svc.Update(ctx, inv.ID, invoice.UpdateInvoice{
		Description: "Tuition + materials",
		AmountCents: &cents,
		DueAt:       &due,
	})
	require.NoError(t, err)

	assert.Equal(t, "Tuition + materials", got.Description)
	assert.Equal(t, cents, got.AmountCents)
	assert.Equal(t, inv.Number, got.Number, "the number never changes")
}

func Test_invoice_void(t *testing.T) {
	svc, student := setup(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)
	draft, err = svc.Void(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, draft.Status)

	sent, err := svc.Create(ctx, newInvoice(student.ID))
	require.NoError(t, err)
	sent, err = svc.Send(ctx, sent.ID)
	require.NoError(t, err)
	sent, err = svc.Void(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, sent.Status)
}

func Test_invoice_amount(t *testing.T) {
	inv := invoice.Invoice{Currency: "USD", AmountCents: 120_05}
	assert.Equal(t, "USD 120.05", inv.Amount())
}
