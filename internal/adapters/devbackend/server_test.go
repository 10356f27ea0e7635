package devbackend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/adapters/backend"
	"signup/internal/adapters/http/perf"
	"signup/internal/adapters/storage"
	storeActivity "signup/internal/adapters/storage/activity"
	"signup/internal/domain/activity"
)

const (
	testAdmin    = "admin"
	testPassword = "s3cret"
)

func newTestBackend(t *testing.T, seed ...activity.Activity) *httptest.Server {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storeActivity.NewSQLiteStore(db)
	_, err = Seed(context.Background(), store, seed)
	require.NoError(t, err)

	auth, err := NewAuth(testAdmin, testPassword, "test-secret", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(store, auth, perf.NewCollector(100), false).Router())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *backend.Client {
	t.Helper()
	c, err := backend.NewClient(srv.URL)
	require.NoError(t, err)
	return c
}

func requireAPIError(t *testing.T, err error, status int, detail string) {
	t.Helper()
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, detail, apiErr.Detail)
}

func TestActivities_SeedOrder(t *testing.T) {
	srv := newTestBackend(t, SeedActivities...)
	c := newClient(t, srv)

	coll, err := c.ListActivities(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(SeedActivities), coll.Len())
	for i, a := range SeedActivities {
		assert.Equal(t, a.Name, coll.Activities[i].Name)
		assert.Equal(t, a.Participants, coll.Activities[i].Participants)
	}
}

func TestLoginSession(t *testing.T) {
	srv := newTestBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	ok, err := c.Me(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Login(ctx, testAdmin, "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, DetailInvalidLogin)
	_, err = c.Login(ctx, "someone", testPassword)
	requireAPIError(t, err, http.StatusUnauthorized, DetailInvalidLogin)

	res, err := c.Login(ctx, testAdmin, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Logged in as admin", res.Message)

	ok, err = c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = c.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Logged out", res.Message)

	ok, err = c.Me(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionsAreIsolatedPerClient(t *testing.T) {
	srv := newTestBackend(t)
	admin := newClient(t, srv)
	other := newClient(t, srv)
	ctx := context.Background()

	_, err := admin.Login(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	ok, err := other.Me(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignupRules(t *testing.T) {
	srv := newTestBackend(t,
		activity.Activity{Name: "Chess Club", MaxParticipants: 3, Participants: []string{"a@x.com"}},
		activity.Activity{Name: "Tiny", MaxParticipants: 1, Participants: []string{"t@x.com"}},
		activity.Activity{Name: "Art/Design & 100%", MaxParticipants: 5},
	)
	c := newClient(t, srv)
	ctx := context.Background()

	_, err := c.Signup(ctx, "Chess Club", "b@x.com")
	requireAPIError(t, err, http.StatusUnauthorized, DetailLoginRequired)

	_, err = c.Login(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	res, err := c.Signup(ctx, "Chess Club", "b+tag@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Signed up b+tag@x.com for Chess Club", res.Message)

	_, err = c.Signup(ctx, "Chess Club", "a@x.com")
	requireAPIError(t, err, http.StatusBadRequest, DetailAlreadySigned)

	_, err = c.Signup(ctx, "Tiny", "b@x.com")
	requireAPIError(t, err, http.StatusBadRequest, DetailFull)

	_, err = c.Signup(ctx, "Nope", "b@x.com")
	requireAPIError(t, err, http.StatusNotFound, DetailNotFound)

	res, err = c.Signup(ctx, "Art/Design & 100%", "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Signed up c@x.com for Art/Design & 100%", res.Message)

	coll, err := c.ListActivities(ctx)
	require.NoError(t, err)
	chess, ok := coll.Find("Chess Club")
	require.True(t, ok)
	assert.Equal(t, []string{"a@x.com", "b+tag@x.com"}, chess.Participants)
}

func TestUnregisterRules(t *testing.T) {
	srv := newTestBackend(t,
		activity.Activity{Name: "Chess Club", MaxParticipants: 3, Participants: []string{"a@x.com", "b@x.com"}},
	)
	c := newClient(t, srv)
	ctx := context.Background()

	_, err := c.Unregister(ctx, "Chess Club", "a@x.com")
	requireAPIError(t, err, http.StatusUnauthorized, DetailLoginRequired)

	_, err = c.Login(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	res, err := c.Unregister(ctx, "Chess Club", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Unregistered a@x.com from Chess Club", res.Message)

	_, err = c.Unregister(ctx, "Chess Club", "a@x.com")
	requireAPIError(t, err, http.StatusBadRequest, DetailNotSignedUp)

	_, err = c.Unregister(ctx, "Nope", "a@x.com")
	requireAPIError(t, err, http.StatusNotFound, DetailNotFound)
}

func TestTamperedSessionRejected(t *testing.T) {
	srv := newTestBackend(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not.a.jwt"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Authenticated)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestBackend(t)
	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
