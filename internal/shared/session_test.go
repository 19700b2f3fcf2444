package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegis-admin/aegis/internal/shared"
	_ "github.com/aegis-admin/aegis/testing"
)

func newManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func commitSession(t *testing.T, sm *shared.SessionManager, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, req, sess))
	return res
}

func TestCommitIndexesUserSessions(t *testing.T) {
	sm, mr := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")
	commitSession(t, sm, sess)

	members, err := mr.SMembers("user_sessions:42")
	require.NoError(t, err)
	require.Equal(t, []string{sess.ID}, members)
	require.True(t, mr.Exists("session:"+sess.ID))
}

func TestRevokeUserDeletesEverySession(t *testing.T) {
	sm, mr := newManager(t)

	var ids []string
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		sess, err := sm.Load(context.Background(), req)
		require.NoError(t, err)
		sess.SetUser("42")
		commitSession(t, sm, sess)
		ids = append(ids, sess.ID)
	}

	require.NoError(t, sm.RevokeUser(context.Background(), "42"))

	for _, id := range ids {
		require.False(t, mr.Exists("session:"+id), "expected session %s revoked", id)
	}
	require.False(t, mr.Exists("user_sessions:42"))
}

func TestRevokeUserNoSessionsIsNoop(t *testing.T) {
	sm, _ := newManager(t)
	require.NoError(t, sm.RevokeUser(context.Background(), "99"))
	require.NoError(t, sm.RevokeUser(context.Background(), ""))
}

func TestDestroyClearsCookieAndIndex(t *testing.T) {
	sm, mr := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")
	commitSession(t, sm, sess)

	sm.Destroy(sess)
	res := commitSession(t, sm, sess)

	require.False(t, mr.Exists("session:"+sess.ID))
	members, _ := mr.SMembers("user_sessions:42")
	require.Empty(t, members)

	cleared := false
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == "test_session" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == "test_session" {
			return cookie
		}
	}
	t.Fatal("no session cookie written")
	return nil
}

func TestLoadRoundTripsValues(t *testing.T) {
	sm, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.Set("theme", "dark")
	sess.SetUser("7")
	res := commitSession(t, sm, sess)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(sessionCookie(t, res))
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "dark", loaded.Get("theme"))
	require.Equal(t, "7", loaded.User())
}

func TestLoadRejectsTamperedCookie(t *testing.T) {
	sm, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("7")
	res := commitSession(t, sm, sess)
	signed := sessionCookie(t, res)

	for _, value := range []string{
		sess.ID,
		sess.ID + ".forged",
		"other-id." + strings.SplitN(signed.Value, ".", 2)[1],
	} {
		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(&http.Cookie{Name: "test_session", Value: value})
		loaded, err := sm.Load(context.Background(), next)
		require.NoError(t, err)
		require.True(t, loaded != nil && loaded.User() == "", "value %q must start a fresh session", value)
	}
}
