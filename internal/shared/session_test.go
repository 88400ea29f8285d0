package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSessionSubjectRoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	sub := &Subject{ID: "7", Username: "alice", Token: "tok", Grants: []string{"GUEST", "BUILDER"}}
	sess.SetSubject(sub)

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	cookie := sessionCookie(t, res, sm.CookieName())

	// A second request carrying the cookie sees the same snapshot.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	restored, err := sm.Load(ctx, req2)
	require.NoError(t, err)

	got := restored.Subject()
	require.NotNil(t, got)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, sub.Username, got.Username)
	assert.Equal(t, sub.Token, got.Token)
	assert.Equal(t, sub.Grants, got.Grants)
}

func TestSessionGrantsChangeSurvivesCommit(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetSubject(&Subject{ID: "7", Username: "alice", Grants: []string{"GUEST"}})
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	cookie := sessionCookie(t, res, sm.CookieName())

	// Grant mutation mid-request, committed before the response.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	sess2, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	sess2.SetSubject(&Subject{ID: "7", Username: "alice", Grants: []string{"GUEST", "ADMINISTRATOR"}})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req2, sess2))

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	sess3, err := sm.Load(ctx, req3)
	require.NoError(t, err)
	assert.Equal(t, []string{"GUEST", "ADMINISTRATOR"}, sess3.Subject().Grants)
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetSubject(&Subject{ID: "7", Username: "alice"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	assert.False(t, mr.Exists("session:"+sess.ID))
	cookie := sessionCookie(t, res, sm.CookieName())
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Empty(t, cookie.Value)
}

func TestSessionMalformedPayloadYieldsFreshSession(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:broken", "{not json"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "broken"})

	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, sess.Subject())
}

func TestSessionClearKeepsSessionAlive(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetSubject(&Subject{ID: "7"})
	sess.Clear()
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	assert.True(t, mr.Exists("session:"+sess.ID))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	restored, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	assert.Nil(t, restored.Subject())
}
