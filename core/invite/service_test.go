package invite_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invite"
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

func setup(t *testing.T) (*invite.Service, *user.Service, user.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	svc := invite.NewService(inmemdb.NewInviteRepository(db), usrSvc, mailSvc, conf)

	emailsvc.ClearSentMessages()
	return svc, usrSvc, usrRepo
}

var admin = user.User{ID: "b7b5dcd2-80c2-4fd4-8fbb-4bd11a2f19a5", Name: "Admin"}

func Test_invite_createSendsEmail(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, invite.NewInvite{
		Email: "new@test.cd",
		Name:  "Newbie",
		Roles: []string{user.RoleStudent},
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, invite.StatusPending, inv.Status)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, admin.ID, inv.InvitedBy)
	assert.WithinDuration(t, time.Now().Add(conf.InviteExpirationDelta), inv.ExpiresAt, time.Minute)

	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "new@test.cd", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, inv.Token)
}

func Test_invite_checkEmailAvailable(t *testing.T) {
	svc, _, usrRepo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, usrRepo, "Taken", "takenuser", "taken@test.cd", "", nil, true)
	err := svc.CheckEmailAvailable("taken@test.cd")
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = svc.Create(ctx, invite.NewInvite{Email: "new@test.cd", Name: "N", Roles: []string{user.RoleStudent}}, admin)
	require.NoError(t, err)
	err = svc.CheckEmailAvailable("new@test.cd")
	require.True(t, errors.As(err, &verr), "a pending invite blocks a second one")

	assert.NoError(t, svc.CheckEmailAvailable("free@test.cd"))
}

func Test_invite_accept(t *testing.T) {
	svc, usrSvc, _ := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, invite.NewInvite{
		Email: "new@test.cd",
		Name:  "Newbie",
		Roles: []string{user.RoleStudent},
	}, admin)
	require.NoError(t, err)

	usr, err := svc.Accept(ctx, invite.AcceptInvite{
		Token:           inv.Token,
		Username:        "newbie01",
		Password:        "s3cr3t!pass",
		PasswordConfirm: "s3cr3t!pass",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@test.cd", usr.Email)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("s3cr3t!pass"))

	got, err := svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invite.StatusAccepted, got.Status)

	// a consumed token cannot be replayed
	_, err = svc.Accept(ctx, invite.AcceptInvite{Token: inv.Token, Password: "x", PasswordConfirm: "x"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = usrSvc.GetByEmail(ctx, "new@test.cd")
	assert.NoError(t, err)
}

func Test_invite_acceptExpired(t *testing.T) {
	expConf := testutil.NewConfig()
	expConf.InviteExpirationDelta = -time.Hour // already expired on creation

	db, err := inmemdb.Open()
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(expConf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, expConf)
	svc := invite.NewService(inmemdb.NewInviteRepository(db), usrSvc, mailSvc, expConf)

	inv, err := svc.Create(context.Background(), invite.NewInvite{
		Email: "late@test.cd",
		Name:  "Late",
		Roles: []string{user.RoleStudent},
	}, admin)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), invite.AcceptInvite{Token: inv.Token, Password: "x", PasswordConfirm: "x"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
}

func Test_invite_revoke(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, invite.NewInvite{Email: "r@test.cd", Name: "R", Roles: []string{user.RoleStudent}}, admin)
	require.NoError(t, err)

	inv, err = svc.Revoke(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invite.StatusRevoked, inv.Status)

	// a revoked invite can be neither accepted nor re-revoked
	_, err = svc.Accept(ctx, invite.AcceptInvite{Token: inv.Token, Password: "x", PasswordConfirm: "x"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
	_, err = svc.Revoke(ctx, inv.ID)
	assert.True(t, errors.As(err, &verr))
}

func Test_invite_resend(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, invite.NewInvite{Email: "r@test.cd", Name: "R", Roles: []string{user.RoleStudent}}, admin)
	require.NoError(t, err)
	oldToken := inv.Token

	resent, err := svc.Resend(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, resent.Token, "resend must rotate the token")
	assert.Len(t, emailsvc.SentMessages, 2)

	// the old token is dead
	_, err = svc.Accept(ctx, invite.AcceptInvite{Token: oldToken, Password: "x", PasswordConfirm: "x"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}
