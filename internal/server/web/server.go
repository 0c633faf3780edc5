// Package web serves the browser interface: account pages with two-factor
// login, the prediction forms and their history pages.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/auth"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/weather"
)

// Accounts is the account service used by the handlers.
type Accounts interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, []string, error)
	MFASetup(ctx context.Context, userID string) (*auth.Provisioning, error)
	VerifyNewUserMFA(ctx context.Context, userID, code string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	VerifyMFA(ctx context.Context, userID, code, backupCode string) (*models.User, error)
	GoogleLogin(ctx context.Context, p services.GoogleProfile) (*models.User, []string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error)
	BackupCodesRemaining(ctx context.Context, userID string) (int, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID string, in services.ChangePasswordInput) error
	DeleteAccount(ctx context.Context, userID string) error
}

// Advisor runs predictions and lists their history.
type Advisor interface {
	ModelInfo() services.ModelInfo
	Catalog() *catalog.Catalog
	Quick(ctx context.Context, userID string, c agronomy.FieldConditions) (*models.Prediction, error)
	QuickHistory(ctx context.Context, userID string) ([]models.Prediction, error)
	QuickStats(ctx context.Context, userID string) (*services.QuickStats, error)
	Geographic(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.GeographicEstimate, error)
	GeographicHistory(ctx context.Context, userID string) ([]models.GeographicPrediction, error)
	Dashboard(ctx context.Context, userID string) (*services.Dashboard, error)
	OptimalPlanting(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.PlantingScan, error)
	Season(ctx context.Context, userID string, q services.SeasonQuery) (*services.SeasonOutcome, error)
	SeasonHistory(ctx context.Context, userID string) ([]models.SeasonPrediction, error)
	PlantingWindows(ctx context.Context, userID string, q services.SeasonQuery) (*agronomy.WindowPlan, error)
	Recommendations(ctx context.Context, userID string) ([]models.PlantingRecommendation, error)
}

// Examples supplies pre-filled geographic forms.
type Examples interface {
	BuildExample(ctx context.Context, key string) weather.Example
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HTTPObserver records request metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

type Options struct {
	Accounts      Accounts
	Advisor       Advisor
	Examples      Examples
	DB            Pinger
	Store         sessions.Store
	Metrics       HTTPObserver
	MetricsPath   http.Handler
	GoogleEnabled bool
	// ReportErrors forwards unexpected handler errors to Sentry.
	ReportErrors bool
	// AuthRateLimit caps auth form submissions per client per second.
	AuthRateLimit float64
}

type Server struct {
	echo     *echo.Echo
	accounts Accounts
	advisor  Advisor
	examples Examples
	db       Pinger
	store    sessions.Store
	metrics  HTTPObserver
	google   bool
	sentry   bool
	log      logging.Logger
}

func NewServer(opts Options, log logging.Logger) (*Server, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		echo:     echo.New(),
		accounts: opts.Accounts,
		advisor:  opts.Advisor,
		examples: opts.Examples,
		db:       opts.DB,
		store:    opts.Store,
		metrics:  opts.Metrics,
		google:   opts.GoogleEnabled,
		sentry:   opts.ReportErrors,
		log:      log,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Renderer = r
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.echo.Use(s.logContext)
	s.echo.Use(s.requestLogger())
	if s.metrics != nil {
		s.echo.Use(s.observe)
	}

	limit := opts.AuthRateLimit
	if limit <= 0 {
		limit = 10
	}
	s.routes(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(limit))))

	if opts.MetricsPath != nil {
		s.echo.GET("/metrics", echo.WrapHandler(opts.MetricsPath))
	}
	return s, nil
}

func (s *Server) routes(limiter echo.MiddlewareFunc) {
	e := s.echo
	e.GET("/", s.handleHome)
	e.GET("/healthz", s.handleHealth)

	e.GET("/signup", s.handleSignupForm)
	e.POST("/signup", s.handleSignup, limiter)
	e.GET("/setup-mfa-new-user", s.handleSetupNewUserMFA)
	e.POST("/verify-mfa-new-user", s.handleVerifyNewUserMFA, limiter)
	e.GET("/login", s.handleLoginForm)
	e.POST("/login", s.handleLogin, limiter)
	e.GET("/verify-mfa", s.handleVerifyMFAForm)
	e.POST("/verify-mfa", s.handleVerifyMFA, limiter)
	e.GET("/logout", s.handleLogout)
	e.GET("/auth/google", s.handleGoogleBegin)
	e.GET("/auth/google/callback", s.handleGoogleCallback)
	e.GET("/api/districts/:state", s.handleDistricts)

	// requireLogin is attached per route: a group-level Use would also wrap
	// the not-found catch-all and send anonymous 404s to /login.
	auth := s.requireLogin
	e.GET("/dashboard", s.handleDashboard, auth)
	e.POST("/predict", s.handleQuickPredict, auth)
	e.GET("/prediction_history", s.handleQuickHistory, auth)
	e.GET("/profile", s.handleProfile, auth)
	e.POST("/profile", s.handleUpdateProfile, auth)
	e.POST("/change_password", s.handleChangePassword, auth)
	e.POST("/regenerate_backup_codes", s.handleRegenerateCodes, auth)
	e.POST("/delete_account", s.handleDeleteAccount, auth)
	e.GET("/recommendations", s.handleRecommendations, auth)

	e.GET("/geographic/predict-form", s.handleGeographicForm, auth)
	e.POST("/geographic/predict", s.handleGeographicPredict, auth)
	e.GET("/geographic/history", s.handleGeographicHistory, auth)
	e.GET("/geographic/about", s.handleAbout, auth)
	e.GET("/geographic/examples/:name", s.handleExample, auth)
	e.GET("/geographic/optimal-planting-form", s.handlePlantingForm, auth)
	e.POST("/geographic/optimal-planting", s.handleOptimalPlanting, auth)

	e.GET("/season/predict", s.handleSeasonForm, auth)
	e.POST("/season/predict", s.handleSeasonPredict, auth)
	e.GET("/season/planting-windows", s.handleWindowsForm, auth)
	e.POST("/season/planting-windows", s.handlePlantingWindows, auth)
	e.GET("/season/history", s.handleSeasonHistory, auth)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info(context.Background(), "web server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Warn(ctx, "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
