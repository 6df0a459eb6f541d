package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

const sessionCohortID = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"

func createTestSession(t *testing.T, token string) session.Session {
	t.Helper()
	data, err := json.Marshal(session.NewSession{
		CohortID: sessionCohortID,
		Title:    "Weekly sync",
		Location: "Room 2",
		StartsAt: time.Now().Add(24 * time.Hour),
		EndsAt:   time.Now().Add(25 * time.Hour),
	})
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", token, data)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, readBody(t, rec))

	var s session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func Test_api_sessionCreate(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "sessteacher", "sessteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "sessstudent", "sessstudent@test.cd", "", []string{user.RoleStudent}, true)

	// students cannot schedule sessions
	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", getToken(t, student), []byte(`{}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	s := createTestSession(t, getToken(t, teacher))
	assert.Equal(t, session.StatusScheduled, s.Status)
	assert.Equal(t, teacher.ID, s.CreatedBy)
}

func Test_api_sessionRSVP(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "rsvpteacher", "rsvpteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "rsvpstudent", "rsvpstudent@test.cd", "", []string{user.RoleStudent}, true)
	s := createTestSession(t, getToken(t, teacher))
	studentToken := getToken(t, student)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/rsvp", studentToken, []byte(`{"status": "going"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, readBody(t, rec))

	var rsvp session.RSVP
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsvp))
	assert.Equal(t, session.RSVPGoing, rsvp.Status)
	assert.Equal(t, student.ID, rsvp.UserID)

	// changing one's mind replaces the previous answer
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/rsvp", studentToken, []byte(`{"status": "declined"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/sessions/"+s.ID+"/rsvps", studentToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var rsvps []session.RSVP
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsvps))
	require.Len(t, rsvps, 1)
	assert.Equal(t, session.RSVPDeclined, rsvps[0].Status)

	// unknown status is refused
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/rsvp", studentToken, []byte(`{"status": "maybe-later"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_api_sessionCancel(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "cancelteacher", "cancelteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "cancelstudent", "cancelstudent@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := getToken(t, teacher)
	s := createTestSession(t, teacherToken)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/cancel", teacherToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var got session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.StatusCancelled, got.Status)

	// cancelled sessions no longer take responses
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/rsvp", getToken(t, student), []byte(`{"status": "going"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
