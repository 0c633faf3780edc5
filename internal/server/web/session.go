package web

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	sessionName = "cotton_session"

	keyUserID         = "user_id"
	keyUserName       = "user_name"
	keyPendingUserID  = "pending_user_id"
	keyNewUserID      = "new_user_id"
	keyNewBackupCodes = "new_backup_codes"
)

// Flash kinds map onto alert styles in the layout.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

type Flash struct {
	Kind    string
	Message string
}

// sessionKey derives a fixed-size key from a configured secret.
func sessionKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// NewSessionStore returns an authenticated and encrypted cookie store.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(sessionKey(secret), sessionKey(secret+"encryption"))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) session(c echo.Context) *sessions.Session {
	// A cookie that fails to decode yields a fresh session.
	sess, _ := s.store.Get(c.Request(), sessionName)
	return sess
}

func (s *Server) save(c echo.Context, sess *sessions.Session) {
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		s.log.Error(c.Request().Context(), "session save failed", "error", err)
	}
}

func getString(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

func (s *Server) currentUserID(c echo.Context) string {
	return getString(s.session(c), keyUserID)
}

func (s *Server) flash(c echo.Context, kind, msg string) {
	sess := s.session(c)
	sess.AddFlash(kind + "|" + msg)
	s.save(c, sess)
}

// flashes drains pending flash messages.
func (s *Server) flashes(c echo.Context) []Flash {
	sess := s.session(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	s.save(c, sess)

	out := make([]Flash, 0, len(raw))
	for _, r := range raw {
		str, ok := r.(string)
		if !ok {
			continue
		}
		kind, msg, found := strings.Cut(str, "|")
		if !found {
			kind, msg = FlashInfo, str
		}
		out = append(out, Flash{Kind: kind, Message: msg})
	}
	return out
}

func (s *Server) redirectWith(c echo.Context, to, kind, msg string) error {
	s.flash(c, kind, msg)
	return c.Redirect(http.StatusSeeOther, to)
}

// login promotes a verified user to a full session.
func (s *Server) login(c echo.Context, userID, name string) {
	sess := s.session(c)
	delete(sess.Values, keyPendingUserID)
	delete(sess.Values, keyNewUserID)
	delete(sess.Values, keyNewBackupCodes)
	sess.Values[keyUserID] = userID
	sess.Values[keyUserName] = name
	s.save(c, sess)
}

func (s *Server) clearSession(c echo.Context) {
	sess := s.session(c)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	s.save(c, sess)
}
