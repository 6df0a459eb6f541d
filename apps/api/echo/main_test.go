package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/invite"
	"github.com/darasahq/darasa/core/invoice"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	appfs "github.com/darasahq/darasa/fs"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	"github.com/darasahq/darasa/storage/object"
	testutil "github.com/darasahq/darasa/tests"
)

var (
	conf  *core.Config
	app   Server
	store *object.MemStore

	usrRepo     user.Repository
	catalogRepo catalog.Repository

	usrSvc      *user.Service
	inviteSvc   *invite.Service
	resourceSvc *resource.Service
)

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	conf.Debug = false // exercise the production error handler

	db, _ := inmemdb.Open()
	store = object.NewMemStore("http://storage.local", conf.Storage.UploadGrantTTL)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrRepo = inmemdb.NewUserRepository(db)
	catalogRepo = inmemdb.NewCatalogRepository(db)

	usrSvc = user.NewService(usrRepo, mailSvc, conf)
	inviteSvc = invite.NewService(inmemdb.NewInviteRepository(db), usrSvc, mailSvc, conf)
	catalogSvc := catalog.NewService(catalogRepo)
	resourceSvc = resource.NewService(inmemdb.NewResourceRepository(db), store, testutil.NopLogger{})
	invoiceSvc := invoice.NewService(inmemdb.NewInvoiceRepository(db), usrSvc, mailSvc, conf)
	sessionSvc := session.NewService(inmemdb.NewSessionRepository(db))

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	invite.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.EmailTemplates, appfs.EmailTemplatesRoot, conf, testutil.NopLogger{})

	app = NewServer(ServerDeps{
		Conf:        conf,
		Logger:      testutil.NopLogger{},
		UserSvc:     usrSvc,
		InviteSvc:   inviteSvc,
		CatalogSvc:  catalogSvc,
		ResourceSvc: resourceSvc,
		InvoiceSvc:  invoiceSvc,
		SessionSvc:  sessionSvc,
		Validate:    validate,
		Translator:  translator,
	})

	os.Exit(m.Run())
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func readBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	data, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("readBody(): %v", err)
	}
	return strings.TrimSpace(string(data))
}

func createTestCohort(t *testing.T, name string) catalog.Cohort {
	t.Helper()
	return testutil.CreateCohort(t, catalogRepo, name, time.Now(), time.Now().Add(90*24*time.Hour))
}
