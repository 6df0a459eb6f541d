package user_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
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

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	repo := inmemdb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf)
	emailsvc.ClearSentMessages()
	return svc, repo
}

func Test_user_create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:     "Jane Doe",
		Username: "janedoe",
		Email:    "jane@test.cd",
		Password: "LePassword",
		Roles:    []string{user.RoleStudent},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("LePassword"))
	assert.Error(t, usr.CheckPassword("nope"))
}

func Test_user_checkUniqueness(t *testing.T) {
	svc, repo := setup(t)

	taken := testutil.CreateUser(t, repo, "Taken", "takenuser", "taken@test.cd", "", nil, true)

	var verr *core.ValidationError
	err := svc.CheckUniqueness("takenuser", "free@test.cd")
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "username", verr.Fields[0].Field)

	err = svc.CheckUniqueness("freeuser", "taken@test.cd")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)

	// the owner is excluded when updating their own account
	assert.NoError(t, svc.CheckUniqueness("takenuser", "taken@test.cd", taken))
	assert.NoError(t, svc.CheckUniqueness("freeuser", "free@test.cd"))
}

func Test_user_getByUsernameOrEmail(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "Jane", "janedoe", "jane@test.cd", "", nil, true)

	usr, err := svc.GetByUsernameOrEmail(ctx, "JaneDoe") // case-insensitive
	require.NoError(t, err)
	assert.Equal(t, "jane@test.cd", usr.Email)

	usr, err = svc.GetByUsernameOrEmail(ctx, "jane@test.cd")
	require.NoError(t, err)
	assert.Equal(t, "janedoe", usr.Username)

	_, err = svc.GetByUsernameOrEmail(ctx, "ghost")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func Test_user_passwordReset(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Jane", "janedoe", "jane@test.cd", "OldPassword", nil, true)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@test.cd"))
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, usr.Email, msg.To[0].Address)

	// the emailed link carries /password-reset/<uid>/<token>
	idx := strings.Index(msg.TextContent, "/password-reset/")
	require.GreaterOrEqual(t, idx, 0, "reset URL missing from email")
	parts := strings.Fields(msg.TextContent[idx:])
	segs := strings.Split(strings.TrimPrefix(parts[0], "/password-reset/"), "/")
	require.Len(t, segs, 2)
	uid, token := segs[0], segs[1]

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             uid,
		Token:           token,
		Password:        "NewPassword",
		PasswordConfirm: "NewPassword",
	}))

	usr, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("NewPassword"))
	assert.Error(t, usr.CheckPassword("OldPassword"))

	// a used token is dead: the password change rotated the signature input
	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             uid,
		Token:           token,
		Password:        "AnotherPassword",
		PasswordConfirm: "AnotherPassword",
	})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func Test_user_passwordResetUnknownEmail(t *testing.T) {
	svc, _ := setup(t)

	err := svc.RequestPasswordReset(context.Background(), "ghost@test.cd")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	assert.Empty(t, emailsvc.SentMessages)
}

func Test_user_delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, repo, "One", "oneuser", "one@test.cd", "", nil, true)
	u2 := testutil.CreateUser(t, repo, "Two", "twouser", "two@test.cd", "", nil, true)

	require.NoError(t, svc.Delete(ctx, u1.ID, u2.ID))
	_, err := svc.GetByID(ctx, u1.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = svc.GetByID(ctx, u2.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
