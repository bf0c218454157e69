package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/labstack/echo/v4"
	sloggorm "github.com/orandin/slog-gorm"
	"github.com/sethvargo/go-retry"
	otellib "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	servermiddleware "github.com/hackcomp/grading-api/cmd/server/internal/middleware"
	"github.com/hackcomp/grading-api/cmd/server/internal/migrations"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/routes"
	routesv1 "github.com/hackcomp/grading-api/cmd/server/internal/routes/v1"
	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/config"
	"github.com/hackcomp/grading-api/internal/grading"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/otel"
	"github.com/hackcomp/grading-api/internal/sandbox"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/upload"
	"github.com/hackcomp/grading-api/internal/weights"
)

const name string = "github.com/hackcomp/grading-api/cmd/server"

var tracer = otellib.Tracer(name)

type server struct {
	router       *echo.Echo
	config       *config.Config
	db           *gorm.DB
	otelShutdown func(context.Context) error
}

func initServer(ctx context.Context) (*server, error) {
	server := new(server)

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server config: %w", err)
	}
	server.config = cfg

	shutdownOTel, err := otel.SetupOTelSDK(ctx, cfg.Logging.UseOTLP)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OTEL SDK: %w", err)
	}
	defer func() {
		// Something failed to initialize, make sure everything gets flushed to the server
		if server.otelShutdown == nil {
			otelShutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				time.Second*time.Duration(cfg.GracefulShutdownSecs),
			)
			defer cancel()

			if err = shutdownOTel(otelShutdownCtx); err != nil {
				logger.Logger.Error("failed to flush otel data", "error", err)
			}
		}
	}()

	ctx, span := tracer.Start(ctx, "initServer")
	defer span.End()

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))
	gormLogger := slog.New(logger.Handler)

	sg := sloggorm.New(
		sloggorm.WithHandler(gormLogger.Handler()),
		sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(cfg.Logging.Gorm.Level)),
	)
	if cfg.Logging.Gorm.TraceQueries {
		sg = sloggorm.New(
			sloggorm.WithHandler(gormLogger.Handler()),
			sloggorm.WithTraceAll(),
			sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(cfg.Logging.Gorm.Level)),
		)
	}

	span.AddEvent("initialized gorm logging")

	db, err := gorm.Open(
		postgres.Open(cfg.PostgresDSN()),
		&gorm.Config{Logger: sg, TranslateError: true},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire underlying database connection")
		return nil, fmt.Errorf("failed to acquire underlying database connection: %w", err)
	}

	// Configure db connection pool
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnectionTTL)

	span.AddEvent("initialized database connection")

	err = db.Use(gormtracing.NewPlugin())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add otel plugin to gorm")
		return nil, fmt.Errorf("failed to add otel plugin to gorm: %w", err)
	}

	span.AddEvent("added the otel plugin to gorm")

	err = migrations.Up(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to perform database migrations")
		return nil, fmt.Errorf("failed to perform database migrations: %w", err)
	}

	span.AddEvent("migrated database to latest version")

	if err = models.LoadTeamsFromConfig(ctx, db, cfg.Teams); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load roster from config")
		return nil, fmt.Errorf("failed to load roster from config: %w", err)
	}

	span.AddEvent("loaded roster from config")

	submissions := store.NewSubmissionStore(cfg.Paths.Submissions)
	problems := store.NewProblemStore(cfg.Paths.Problems, cfg.Paths.ProblemTemplate)
	weightScanner := weights.NewScanner(problems, nil)
	packager := bundle.NewPackager(cfg.Paths.Utils, problems, submissions)

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Sandbox.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	sandboxClient := sandbox.NewClient(
		retryClient.StandardClient(),
		cfg.Sandbox.URL,
		cfg.Sandbox.LanguageID,
		cfg.Sandbox.Timeout,
	)

	span.AddEvent("initialized sandbox client")

	var archiver grading.BundleArchiver
	if cfg.S3Archive != nil && cfg.S3Archive.Enabled {
		minioUploader, err := upload.NewMinioUploader(
			cfg.S3Archive.Endpoint,
			cfg.S3Archive.AccessKeyID,
			cfg.S3Archive.SecretAccessKey,
			cfg.S3Archive.SSLEnabled,
			cfg.S3Archive.BucketName,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to construct archiver")
			return nil, err
		}

		backoff := func() retry.Backoff {
			b := retry.NewFibonacci(time.Millisecond * 25)
			b = retry.WithMaxRetries(3, b)
			return b
		}
		archiver = upload.NewBundleArchive(
			upload.NewRetryUploaderBackoff(minioUploader, backoff),
		)

		span.AddEvent("initialized bundle archiver")
	} else {
		logger.Logger.Warn("not configured to archive dispatched bundles")
	}

	aggregator := grading.NewAggregator(
		packager,
		sandboxClient,
		weightScanner,
		archiver,
		cfg.Grading.Concurrency,
	)

	middlewareHandler := servermiddleware.Handler{DB: db}
	v1Handler := routesv1.NewHandler(
		db,
		cfg,
		submissions,
		problems,
		packager,
		sandboxClient,
		aggregator,
		archiver,
	)

	e, err := routes.BuildEcho(logger.Logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error building router")
		return nil, fmt.Errorf("error building router: %w", err)
	}

	span.AddEvent("created echo router")

	v1Handler.AddRoutes(e, &middlewareHandler)

	server.otelShutdown = shutdownOTel
	server.router = e
	server.db = db

	return server, nil
}

func (s *server) Start(_ context.Context) error {
	logger.Logger.Info("Starting services...")

	err := s.router.Start(s.config.ListenAddress)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *server) Shutdown() error {
	var errs error

	ctx, cancelTimeout := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(s.config.GracefulShutdownSecs),
	)
	defer cancelTimeout()

	if err := s.router.Shutdown(ctx); err != nil {
		errs = errors.Join(errs, err)
	}

	if s.otelShutdown != nil {
		errs = errors.Join(errs, s.otelShutdown(ctx))
	}

	return errs
}

func main() {
	ctx, cancelSignal := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	logger.InitSlog()

	server, err := initServer(ctx)
	if err != nil {
		logger.Logger.Error(err.Error())
		cancelSignal()
		os.Exit(1)
	}

	errch := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Got shutdown signal!")
		errch <- server.Shutdown()
		close(errch)
	}()

	if err := server.Start(ctx); err != nil {
		logger.Logger.Error(err.Error())
		cancelSignal()
		os.Exit(1)
	}

	if err := <-errch; err != nil {
		logger.Logger.Error("Error shutting down server", "error", err)
	}

	cancelSignal()
}
