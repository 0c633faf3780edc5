// Package server wires configuration, storage, models and the web and gRPC
// front ends into a running application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/metrics"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/web"
	"github.com/dmitrijs2005/cottonadvisor/internal/weather"

	gs "github.com/dmitrijs2005/cottonadvisor/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	web        *web.Server
	grpc       *gs.GRPCServer
	sentryOn   bool
	cancelFunc context.CancelFunc
}

// ModelSource picks the S3 bucket when one is configured and the local model
// directory otherwise.
func ModelSource(ctx context.Context, c *config.Config) (forest.Source, error) {
	if c.ModelBucket == "" {
		return forest.DirSource{Dir: c.ModelDir}, nil
	}
	return forest.NewS3Source(ctx, forest.S3Config{
		Bucket:       c.ModelBucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
	})
}

func initSentry(c *config.Config) (bool, error) {
	if c.SentryDSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              c.SentryDSN,
		AttachStacktrace: true,
	})
	return err == nil, err
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	sentryOn, err := initSentry(c)
	if err != nil {
		logger.Warn(ctx, "sentry disabled", "error", err)
	}

	db, err := dbx.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	src, err := ModelSource(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("model source: %w", err)
	}
	bundle := forest.LoadBundle(ctx, src, logger.With("module", "models"))

	cat, err := catalog.Load(c.CatalogPath)
	if err != nil {
		logger.Warn(ctx, "catalog unreadable, starting with an empty one", "path", c.CatalogPath, "error", err)
		cat = catalog.New(nil)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	weatherClient := weather.NewClient(weather.Config{
		BaseURL:  c.WeatherBaseURL,
		Timeout:  c.WeatherTimeout,
		Years:    c.WeatherYears,
		Timezone: c.WeatherTimezone,
	}, logger.With("module", "weather"), weather.WithRecorder(m))

	users := services.NewUserService(db, rm, c, logger.With("module", "users"))
	advisor := services.NewPredictionService(db, rm, bundle, cat, m, logger.With("module", "predictions"))

	store := web.NewSessionStore(c.SessionSecret, strings.HasPrefix(c.GoogleRedirectURL, "https://"))
	if c.GoogleEnabled() {
		gothic.Store = store
		goth.UseProviders(google.New(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL, "email", "profile"))
	}

	ws, err := web.NewServer(web.Options{
		Accounts:      users,
		Advisor:       advisor,
		Examples:      weatherClient,
		DB:            db,
		Store:         store,
		Metrics:       m,
		MetricsPath:   m.Handler(),
		GoogleEnabled: c.GoogleEnabled(),
		ReportErrors:  sentryOn,
	}, logger.With("module", "web"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("web init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		web:      ws,
		grpc:     gs.NewGRPCServer(c.GRPCAddr, logger, users, advisor),
		sentryOn: sentryOn,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		app.cancelFunc()
	}
}

func (app *App) startWebServer(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.web.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "web shutdown failed", "error", err)
		}
	}()

	if err := app.web.Start(app.config.HTTPAddr); err != nil {
		app.logger.Error(ctx, "web server failed", "error", err)
		app.cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, app.cancelFunc = context.WithCancel(ctx)
	defer app.cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(app.cancelFunc)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startWebServer(ctx)
	}()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "closing database", "error", err)
	}
	if app.sentryOn {
		sentry.Flush(2 * time.Second)
	}
	app.logger.Info(context.Background(), "Stopped")
}
