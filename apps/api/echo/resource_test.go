package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
	"github.com/darasahq/darasa/uploader"
)

const testModuleID = "0c2cdd78-9a65-4f05-9da6-a1a243b9be9e"

func createTeacher(t *testing.T, uname string) user.User {
	t.Helper()
	return testutil.CreateUser(t, usrRepo, "Teacher", uname, uname+"@test.cd", "", []string{user.RoleTeacher}, true)
}

func Test_api_resourceUploadURL(t *testing.T) {
	teacher := createTeacher(t, "uploadteacher")
	student := testutil.CreateUser(t, usrRepo, "Student", "uploadstudent", "uploadstudent@test.cd", "", []string{user.RoleStudent}, true)

	data := fmt.Sprintf(`{"filename": "lecture one.pdf", "file_size": %d, "content_type": "application/pdf", "module_id": %q}`,
		10<<20, testModuleID)

	// uploads are staff-only
	req, rec := newAuthRequest(http.MethodPost, "/v1/resources/upload-url", getToken(t, student), []byte(data))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/resources/upload-url", getToken(t, teacher), []byte(data))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))

	var grant struct {
		UploadURL string `json:"upload_url"`
		FilePath  string `json:"file_path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	assert.NotEmpty(t, grant.UploadURL)
	assert.True(t, strings.HasSuffix(grant.FilePath, "/lecture_one.pdf"), grant.FilePath)
}

func Test_api_resourceUploadURLTooLarge(t *testing.T) {
	teacher := createTeacher(t, "ceilteacher")

	data := fmt.Sprintf(`{"filename": "huge.bin", "file_size": %d, "content_type": "application/octet-stream", "module_id": %q}`,
		resource.MaxFileSize+1, testModuleID)
	req, rec := newAuthRequest(http.MethodPost, "/v1/resources/upload-url", getToken(t, teacher), []byte(data))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var body httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, resource.ErrFileTooLarge.Error(), body.Error)
}

func Test_api_resourceUploadURLScope(t *testing.T) {
	teacher := createTeacher(t, "scopeteacher")

	// both scopes set: refused
	data := fmt.Sprintf(`{"filename": "f.pdf", "file_size": 10, "content_type": "application/pdf", "module_id": %q, "cohort_id": %q}`,
		testModuleID, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	req, rec := newAuthRequest(http.MethodPost, "/v1/resources/upload-url", getToken(t, teacher), []byte(data))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	assert.Contains(t, fields, "module_id")
	assert.Contains(t, fields, "cohort_id")
}

func Test_api_resourceConfirmWithoutBlob(t *testing.T) {
	teacher := createTeacher(t, "confteacher")

	data := fmt.Sprintf(`{"file_path": "resources/modules/%s/none/f.pdf", "title": "F", "content_type": "application/pdf", "module_id": %q}`,
		testModuleID, testModuleID)
	req, rec := newAuthRequest(http.MethodPost, "/v1/resources/confirm-upload", getToken(t, teacher), []byte(data))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	assert.Equal(t, resource.ErrBlobMissing.Error(), fields["file_path"])
}

// Test_api_resourceUploadEndToEnd drives the real client through the whole
// 3-step protocol against the server and a fake storage endpoint.
func Test_api_resourceUploadEndToEnd(t *testing.T) {
	teacher := createTeacher(t, "e2eteacher")

	apiSrv := httptest.NewServer(app)
	defer apiSrv.Close()
	storageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/")
		if err := store.Save(r.Context(), key, r.Header.Get("Content-Type"), r.Body, r.ContentLength); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer storageSrv.Close()

	oldBase := store.BaseURL
	store.BaseURL = storageSrv.URL
	defer func() { store.BaseURL = oldBase }()

	content := bytes.Repeat([]byte("a"), resource.DirectSizeLimit+1)
	client := uploader.NewClient(apiSrv.URL, getToken(t, teacher))

	var states []uploader.State
	res, err := client.Upload(context.Background(), uploader.FileSpec{
		Name:        "big lecture.mp4",
		Size:        int64(len(content)),
		ContentType: "video/mp4",
		Content:     bytes.NewReader(content),
		Title:       "Big Lecture",
		ModuleID:    testModuleID,
	}, uploader.OnState(func(s uploader.State) { states = append(states, s) }))
	require.NoError(t, err)

	assert.Equal(t, []uploader.State{
		uploader.StateRequestingURL,
		uploader.StateUploading,
		uploader.StateConfirming,
		uploader.StateComplete,
	}, states)
	assert.Equal(t, int64(len(content)), res.FileSize)
	assert.Equal(t, teacher.ID, res.CreatedBy)
	_, ok := store.Open(res.FilePath)
	assert.True(t, ok, "the blob must be in storage")

	// the record is retrievable through the API
	req, rec := newAuthRequest(http.MethodGet, "/v1/resources/"+res.ID, getToken(t, teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_api_resourceDirectEndToEnd(t *testing.T) {
	teacher := createTeacher(t, "directteacher")

	apiSrv := httptest.NewServer(app)
	defer apiSrv.Close()

	content := []byte("small file body")
	client := uploader.NewClient(apiSrv.URL, getToken(t, teacher))

	var states []uploader.State
	res, err := client.Upload(context.Background(), uploader.FileSpec{
		Name:        "notes.txt",
		Size:        int64(len(content)),
		ContentType: "text/plain",
		Content:     bytes.NewReader(content),
		Title:       "Notes",
		ModuleID:    testModuleID,
	}, uploader.OnState(func(s uploader.State) { states = append(states, s) }))
	require.NoError(t, err)

	// small files never touch the pre-signed protocol
	assert.Equal(t, []uploader.State{uploader.StateUploading, uploader.StateComplete}, states)
	assert.Equal(t, int64(len(content)), res.FileSize)
	assert.NotEmpty(t, res.ID)
}

func Test_api_resourceUpdate(t *testing.T) {
	teacher := createTeacher(t, "updteacher")

	res, err := resourceSvc.CreateDirect(context.Background(), resource.NewDirectResource{
		Filename:    "syllabus.pdf",
		Title:       "Syllabus",
		ContentType: "application/pdf",
		ModuleID:    testModuleID,
	}, strings.NewReader("x"), 1, teacher)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPut, "/v1/resources/"+res.ID, getToken(t, teacher), []byte(`{"title": "Syllabus v2"}`))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))
	var got resource.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Syllabus v2", got.Title)
	assert.Equal(t, res.Position, got.Position, "unset fields keep their values")

	req, rec = newAuthRequest(http.MethodPut, "/v1/resources/86e219b9-2f4d-4e4e-a33d-c637fe4d9228", getToken(t, teacher), []byte(`{"title": "X"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
