// Package auth provides session authentication for the admin API.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

const (
	sessionName    = "alliance_session"
	sessionUserKey = "user"
	sessionMaxAge  = 7 * 24 * 3600

	// maxFailedAttempts failed logins from one client lock it out for
	// lockoutWindow.
	maxFailedAttempts = 5
	lockoutWindow     = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.NewStd("invalid username or password")
	ErrTooManyAttempts    = errors.NewStd("too many failed login attempts")
	ErrLoginDisabled      = errors.NewStd("admin login is not configured")
)

// Config holds the admin credentials and cookie settings.
type Config struct {
	AdminUser         string
	AdminPasswordHash string
	SessionSecret     string
	SecureCookies     bool
}

// Service authenticates the admin user and tracks sessions in signed cookies.
type Service struct {
	user     string
	hash     []byte
	store    *sessions.CookieStore
	attempts *cache.Cache
	log      logger.Logger
}

// NewService creates the service. Without a session secret a random key is
// used, so sessions do not survive a restart.
func NewService(cfg Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	log = log.Module("auth")

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.New(err).
				Component("auth").
				Category(errors.CategoryConfiguration).
				Build()
		}
		log.Warn("no session secret configured, sessions will not survive a restart")
	}
	if cfg.AdminPasswordHash == "" {
		log.Warn("no admin password hash configured, admin login is disabled")
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	return &Service{
		user:     cfg.AdminUser,
		hash:     []byte(cfg.AdminPasswordHash),
		store:    store,
		attempts: cache.New(lockoutWindow, 2*lockoutWindow),
		log:      log,
	}, nil
}

// HashPassword returns the bcrypt hash stored in webserver.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the credentials and, on success, writes the session cookie.
// clientID identifies the caller for lockout, usually its IP address.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, clientID, username, password string) error {
	if len(s.hash) == 0 {
		return ErrLoginDisabled
	}
	if failures, found := s.attempts.Get(clientID); found && failures.(int) >= maxFailedAttempts {
		s.log.Warn("login rejected, client locked out", logger.String("client", clientID))
		return ErrTooManyAttempts
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	if !userOK || !passOK {
		s.recordFailure(clientID)
		return ErrInvalidCredentials
	}
	s.attempts.Delete(clientID)

	session, _ := s.store.Get(r, sessionName)
	session.Values[sessionUserKey] = username
	if err := session.Save(r, w); err != nil {
		return errors.New(err).
			Component("auth").
			Category(errors.CategoryGeneric).
			Build()
	}
	s.log.Info("admin logged in", logger.String("client", clientID))
	return nil
}

// Logout expires the session cookie.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	delete(session.Values, sessionUserKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser returns the user of a valid session.
func (s *Service) CurrentUser(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	user, ok := session.Values[sessionUserKey].(string)
	if !ok || user == "" {
		return "", false
	}
	return user, true
}

func (s *Service) recordFailure(clientID string) {
	if _, err := s.attempts.IncrementInt(clientID, 1); err != nil {
		s.attempts.Set(clientID, 1, cache.DefaultExpiration)
	}
	s.log.Warn("failed admin login", logger.String("client", clientID))
}
