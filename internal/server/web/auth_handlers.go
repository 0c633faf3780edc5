package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/markbates/goth/gothic"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/validation"
)

// Replaced in tests.
var (
	beginAuth        = gothic.BeginAuthHandler
	completeUserAuth = gothic.CompleteUserAuth
)

const googleProvider = "google"

func (s *Server) handleHome(c echo.Context) error {
	if s.currentUserID(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return s.render(c, "index", "Cotton Yield Advisor", nil)
}

type signupView struct {
	Form          services.SignupInput
	GoogleEnabled bool
}

func (s *Server) handleSignupForm(c echo.Context) error {
	if s.currentUserID(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return s.render(c, "signup", "Sign Up", signupView{GoogleEnabled: s.google})
}

func (s *Server) handleSignup(c echo.Context) error {
	in := services.SignupInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		Confirm:  c.FormValue("confirm_password"),
		Location: c.FormValue("location"),
		Phone:    c.FormValue("phone"),
	}

	u, codes, err := s.accounts.Signup(c.Request().Context(), in)
	if err != nil {
		in.Password, in.Confirm = "", ""
		view := signupView{Form: in, GoogleEnabled: s.google}
		switch {
		case errors.Is(err, common.ErrValidation):
			for _, m := range validation.Messages(err) {
				s.flash(c, FlashError, m)
			}
		case errors.Is(err, common.ErrEmailExists):
			s.flash(c, FlashError, "Email already exists.")
		default:
			return err
		}
		return s.render(c, "signup", "Sign Up", view)
	}

	s.startMFASetup(c, u.ID, codes)
	return s.redirectWith(c, "/setup-mfa-new-user", FlashSuccess, "Account created! Please set up your Two-Factor Authentication.")
}

// startMFASetup parks a freshly created account in the session until its
// first authenticator code is confirmed.
func (s *Server) startMFASetup(c echo.Context, userID string, codes []string) {
	sess := s.session(c)
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyPendingUserID)
	sess.Values[keyNewUserID] = userID
	sess.Values[keyNewBackupCodes] = strings.Join(codes, ",")
	s.save(c, sess)
}

type setupView struct {
	Secret      string
	URL         string
	QRCode      template.URL // data: URI
	BackupCodes []string
}

func (s *Server) handleSetupNewUserMFA(c echo.Context) error {
	sess := s.session(c)
	userID := getString(sess, keyNewUserID)
	if userID == "" {
		return s.redirectWith(c, "/signup", FlashError, "Session expired. Please sign up again.")
	}

	p, err := s.accounts.MFASetup(c.Request().Context(), userID)
	if err != nil {
		s.log.Error(c.Request().Context(), "mfa setup failed", "user_id", userID, "error", err)
		return s.redirectWith(c, "/signup", FlashError, "MFA setup failed. Please sign up again.")
	}

	var codes []string
	if raw := getString(sess, keyNewBackupCodes); raw != "" {
		codes = strings.Split(raw, ",")
	}
	return s.render(c, "setup_mfa", "Set Up Two-Factor Authentication", setupView{
		Secret:      p.Secret,
		URL:         p.URL,
		QRCode:      template.URL(p.QRCode),
		BackupCodes: codes,
	})
}

func (s *Server) handleVerifyNewUserMFA(c echo.Context) error {
	userID := getString(s.session(c), keyNewUserID)
	if userID == "" {
		return s.redirectWith(c, "/signup", FlashError, "Session expired. Please sign up again.")
	}

	u, err := s.accounts.VerifyNewUserMFA(c.Request().Context(), userID, c.FormValue("token"))
	if err != nil {
		if errors.Is(err, common.ErrInvalidMFACode) {
			return s.redirectWith(c, "/setup-mfa-new-user", FlashError, "Invalid authentication code. Please try again.")
		}
		if errors.Is(err, common.ErrorNotFound) {
			return s.redirectWith(c, "/signup", FlashError, "MFA setup failed. Please sign up again.")
		}
		return err
	}

	s.login(c, u.ID, u.Name)
	return s.redirectWith(c, "/dashboard", FlashSuccess,
		fmt.Sprintf("Welcome, %s! Your account is now set up with Two-Factor Authentication.", u.Name))
}

type loginView struct {
	Email         string
	GoogleEnabled bool
}

func (s *Server) handleLoginForm(c echo.Context) error {
	if s.currentUserID(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return s.render(c, "login", "Log In", loginView{GoogleEnabled: s.google})
}

func (s *Server) handleLogin(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")
	view := loginView{Email: email, GoogleEnabled: s.google}

	if email == "" || password == "" {
		s.flash(c, FlashError, "Please enter both email and password.")
		return s.render(c, "login", "Log In", view)
	}

	u, err := s.accounts.Login(c.Request().Context(), email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.flash(c, FlashError, "Invalid email or password.")
			return s.render(c, "login", "Log In", view)
		}
		return err
	}

	sess := s.session(c)
	delete(sess.Values, keyUserID)
	sess.Values[keyPendingUserID] = u.ID
	s.save(c, sess)
	return c.Redirect(http.StatusSeeOther, "/verify-mfa")
}

func (s *Server) handleVerifyMFAForm(c echo.Context) error {
	if getString(s.session(c), keyPendingUserID) == "" {
		return s.redirectWith(c, "/login", FlashError, "Session expired. Please log in again.")
	}
	return s.render(c, "verify_mfa", "Two-Factor Authentication", nil)
}

func (s *Server) handleVerifyMFA(c echo.Context) error {
	userID := getString(s.session(c), keyPendingUserID)
	if userID == "" {
		return s.redirectWith(c, "/login", FlashError, "Session expired. Please log in again.")
	}

	u, err := s.accounts.VerifyMFA(c.Request().Context(), userID, c.FormValue("token"), c.FormValue("backup_code"))
	if err != nil {
		if errors.Is(err, common.ErrInvalidMFACode) {
			return s.redirectWith(c, "/verify-mfa", FlashError, "Invalid authentication code or backup code.")
		}
		if errors.Is(err, common.ErrorNotFound) {
			s.clearSession(c)
			return s.redirectWith(c, "/login", FlashError, "Session expired. Please log in again.")
		}
		return err
	}

	s.login(c, u.ID, u.Name)
	return s.redirectWith(c, "/dashboard", FlashSuccess, fmt.Sprintf("Welcome back, %s!", u.Name))
}

func (s *Server) handleLogout(c echo.Context) error {
	name := getString(s.session(c), keyUserName)
	if name == "" {
		name = "User"
	}
	s.clearSession(c)
	return s.redirectWith(c, "/", FlashInfo, fmt.Sprintf("Goodbye, %s!", name))
}

func withProvider(c echo.Context) *http.Request {
	r := c.Request()
	q := r.URL.Query()
	q.Set("provider", googleProvider)
	r.URL.RawQuery = q.Encode()
	return r
}

func (s *Server) handleGoogleBegin(c echo.Context) error {
	if !s.google {
		return s.redirectWith(c, "/login", FlashError, "Google sign-in is not configured.")
	}
	beginAuth(c.Response(), withProvider(c))
	return nil
}

func (s *Server) handleGoogleCallback(c echo.Context) error {
	if !s.google {
		return s.redirectWith(c, "/login", FlashError, "Google sign-in is not configured.")
	}
	ctx := c.Request().Context()

	gu, err := completeUserAuth(c.Response(), withProvider(c))
	if err != nil {
		s.log.Warn(ctx, "google sign-in failed", "error", err)
		return s.redirectWith(c, "/login", FlashError, "Google authentication failed.")
	}

	u, codes, err := s.accounts.GoogleLogin(ctx, services.GoogleProfile{ID: gu.UserID, Email: gu.Email, Name: gu.Name})
	if err != nil {
		s.log.Warn(ctx, "google account lookup failed", "error", err)
		return s.redirectWith(c, "/login", FlashError, "Google authentication failed. Please try again.")
	}

	if codes != nil {
		s.startMFASetup(c, u.ID, codes)
		return s.redirectWith(c, "/setup-mfa-new-user", FlashSuccess, "Account created! Please set up your Two-Factor Authentication.")
	}

	sess := s.session(c)
	delete(sess.Values, keyUserID)
	sess.Values[keyPendingUserID] = u.ID
	s.save(c, sess)
	return c.Redirect(http.StatusSeeOther, "/verify-mfa")
}
