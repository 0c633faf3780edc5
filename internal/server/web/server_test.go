package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.pinger.err = errors.New("connection refused")
	resp = env.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unavailable", body["status"])
}

func TestRequireLogin_RedirectsWithFlash(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	d := doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Please log in to access this page."}, alerts(d, "warning"))

	// Flashes are shown once.
	d = doc(t, env.get(t, "/login"))
	assert.Empty(t, alerts(d, "warning"))
}

func TestRequireLogin_XHRGetsJSON(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.xhr(t, "/predict", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestSignup_ValidationMessages(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.post(t, "/signup", url.Values{"name": {"A"}, "email": {"new@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := doc(t, resp)
	assert.Equal(t, []string{"Name must be at least 2 characters long."}, alerts(d, "error"))
	v, _ := d.Find(`input[name="email"]`).Attr("value")
	assert.Equal(t, "new@example.com", v)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.post(t, "/signup", url.Values{"name": {"Asha"}, "email": {"asha@example.com"}})
	d := doc(t, resp)
	assert.Equal(t, []string{"Email already exists."}, alerts(d, "error"))
}

func TestSignup_SetupAndVerify(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.post(t, "/signup", url.Values{"name": {"Baraka"}, "email": {"baraka@example.com"}})
	require.Equal(t, "/setup-mfa-new-user", resp.Header.Get("Location"))

	d := doc(t, env.follow(t, resp))
	src, ok := d.Find("#mfa-qr").Attr("src")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(src, "data:image/png;base64,"), src)
	assert.Equal(t, "SECRET", d.Find("#mfa-secret").Text())
	assert.Equal(t, 2, d.Find("#backup-codes code").Length())

	resp = env.post(t, "/verify-mfa-new-user", url.Values{"token": {"000000"}})
	assert.Equal(t, "/setup-mfa-new-user", resp.Header.Get("Location"))
	d = doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Invalid authentication code. Please try again."}, alerts(d, "error"))

	resp = env.post(t, "/verify-mfa-new-user", url.Values{"token": {goodCode}})
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	d = doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Welcome, Baraka! Your account is now set up with Two-Factor Authentication."}, alerts(d, "success"))
}

func TestSetupMFA_WithoutSignup(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/setup-mfa-new-user")
	assert.Equal(t, "/signup", resp.Header.Get("Location"))
	d := doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Session expired. Please sign up again."}, alerts(d, "error"))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantFlag string
	}{
		{"missing password", url.Values{"email": {"asha@example.com"}}, "Please enter both email and password."},
		{"wrong password", url.Values{"email": {"asha@example.com"}, "password": {"nope"}}, "Invalid email or password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			resp := env.post(t, "/login", tt.form)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{tt.wantFlag}, alerts(doc(t, resp), "error"))
		})
	}
}

func TestLogin_PasswordOnlyIsNotEnough(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.post(t, "/login", url.Values{"email": {"asha@example.com"}, "password": {goodPassword}})
	require.Equal(t, "/verify-mfa", resp.Header.Get("Location"))

	resp = env.get(t, "/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestVerifyMFA(t *testing.T) {
	t.Run("no pending login", func(t *testing.T) {
		env := newTestEnv(t, false)
		resp := env.post(t, "/verify-mfa", url.Values{"token": {goodCode}})
		assert.Equal(t, "/login", resp.Header.Get("Location"))
		d := doc(t, env.follow(t, resp))
		assert.Equal(t, []string{"Session expired. Please log in again."}, alerts(d, "error"))
	})

	t.Run("wrong code", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.post(t, "/login", url.Values{"email": {"asha@example.com"}, "password": {goodPassword}})
		resp := env.post(t, "/verify-mfa", url.Values{"token": {"999999"}})
		assert.Equal(t, "/verify-mfa", resp.Header.Get("Location"))
		d := doc(t, env.follow(t, resp))
		assert.Equal(t, []string{"Invalid authentication code or backup code."}, alerts(d, "error"))
	})

	t.Run("backup code", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.post(t, "/login", url.Values{"email": {"asha@example.com"}, "password": {goodPassword}})
		resp := env.post(t, "/verify-mfa", url.Values{"backup_code": {strings.ToLower(goodBackup)}})
		require.Equal(t, "/dashboard", resp.Header.Get("Location"))
		d := doc(t, env.follow(t, resp))
		assert.Equal(t, []string{"Welcome back, Asha!"}, alerts(d, "success"))
		assert.Equal(t, "3", d.Find("#total-predictions").Text())
		assert.Equal(t, "2", d.Find("#farms-count").Text())
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, false)
	env.loginAs(t)

	resp := env.get(t, "/logout")
	require.Equal(t, "/", resp.Header.Get("Location"))
	d := doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Goodbye, Asha!"}, alerts(d, "info"))

	resp = env.get(t, "/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestHome_RedirectsSignedIn(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, http.StatusOK, env.get(t, "/").StatusCode)

	env.loginAs(t)
	resp := env.get(t, "/")
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestGoogle_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/auth/google")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	d := doc(t, env.follow(t, resp))
	assert.Equal(t, []string{"Google sign-in is not configured."}, alerts(d, "error"))
	assert.Zero(t, d.Find("#google-signin").Length())
}

func stubGoogle(t *testing.T, u goth.User, err error) {
	t.Helper()
	orig := completeUserAuth
	completeUserAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return u, err
	}
	t.Cleanup(func() { completeUserAuth = orig })
}

func TestGoogleCallback(t *testing.T) {
	t.Run("new account sets up MFA", func(t *testing.T) {
		stubGoogle(t, goth.User{UserID: "g-1", Email: "wanjiru@example.com", Name: "Wanjiru"}, nil)
		env := newTestEnv(t, true)

		resp := env.get(t, "/auth/google/callback")
		require.Equal(t, "/setup-mfa-new-user", resp.Header.Get("Location"))
		d := doc(t, env.follow(t, resp))
		assert.Equal(t, "CCCC3333", d.Find("#backup-codes code").Text())
	})

	t.Run("existing account goes to MFA", func(t *testing.T) {
		stubGoogle(t, goth.User{UserID: "g-2", Email: "asha@example.com", Name: "Asha"}, nil)
		env := newTestEnv(t, true)

		resp := env.get(t, "/auth/google/callback")
		assert.Equal(t, "/verify-mfa", resp.Header.Get("Location"))
		resp = env.post(t, "/verify-mfa", url.Values{"token": {goodCode}})
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	t.Run("provider error", func(t *testing.T) {
		stubGoogle(t, goth.User{}, errors.New("state mismatch"))
		env := newTestEnv(t, true)

		resp := env.get(t, "/auth/google/callback")
		assert.Equal(t, "/login", resp.Header.Get("Location"))
		d := doc(t, env.follow(t, resp))
		assert.Equal(t, []string{"Google authentication failed."}, alerts(d, "error"))
		assert.Equal(t, 1, d.Find("#google-signin").Length())
	})
}

func TestNotFound_RendersErrorPage(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/no-such-page", "/geographic/no-such-page", "/season/nope/deeper"} {
		resp := env.get(t, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Empty(t, resp.Header.Get("Location"), path)
		d := doc(t, resp)
		assert.Equal(t, "404", d.Find("#error-code").Text(), path)
		assert.Equal(t, "Not Found", d.Find("#error-message").Text(), path)
	}

	resp := env.get(t, "/geographic/history")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	env.loginAs(t)
	resp = env.get(t, "/no-such-page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginAs_ConsumesWelcomeFlash(t *testing.T) {
	env := newTestEnv(t, false)
	env.loginAs(t)

	d := doc(t, env.get(t, "/profile"))
	assert.Empty(t, alerts(d, "success"))
}

func TestDistricts(t *testing.T) {
	env := newTestEnv(t, false)

	var body map[string][]string
	resp := env.get(t, "/api/districts/Maharashtra")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Akola", "Nagpur"}, body["districts"])

	resp = env.get(t, "/api/districts/Atlantis")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotNil(t, body["districts"])
	assert.Empty(t, body["districts"])
}

func TestRequestIDIsUUID(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.get(t, "/healthz")

	_, err := uuid.Parse(resp.Header.Get(echo.HeaderXRequestID))
	assert.NoError(t, err)
}
