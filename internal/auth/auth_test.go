package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alliancehq/alliance-manager/internal/logger"
)

// bcrypt.MinCost keeps the tests fast.
func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	s, err := NewService(Config{
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		SessionSecret:     "0123456789abcdef0123456789abcdef",
	}, logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))
	require.NoError(t, err)
	return s
}

func login(t *testing.T, s *Service, user, pass string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", http.NoBody)
	return rec, s.Login(rec, req, "10.0.0.1", user, pass)
}

func withCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/alerts", http.NoBody)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestService_LoginSetsSession(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	rec, err := login(t, s, "admin", "s3cret")
	require.NoError(t, err)

	user, ok := s.CurrentUser(withCookies(rec))
	assert.True(t, ok)
	assert.Equal(t, "admin", user)

	_, ok = s.CurrentUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.False(t, ok)
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	_, err := login(t, s, "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = login(t, s, "root", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	for range maxFailedAttempts {
		_, err := login(t, s, "admin", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := login(t, s, "admin", "s3cret")
	require.ErrorIs(t, err, ErrTooManyAttempts, "correct password is refused while locked out")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", http.NoBody)
	require.NoError(t, s.Login(rec, req, "10.0.0.2", "admin", "s3cret"), "other clients are not affected")
}

func TestService_Logout(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	rec, err := login(t, s, "admin", "s3cret")
	require.NoError(t, err)

	out := httptest.NewRecorder()
	require.NoError(t, s.Logout(out, withCookies(rec)))

	cookies := out.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestService_LoginDisabledWithoutHash(t *testing.T) {
	t.Parallel()
	s, err := NewService(Config{AdminUser: "admin"}, nil)
	require.NoError(t, err)

	_, err = login(t, s, "admin", "")
	require.ErrorIs(t, err, ErrLoginDisabled)
}

func TestHashPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}
