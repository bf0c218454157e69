package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	srverr "github.com/hackcomp/grading-api/cmd/server/internal/error"
	servermiddleware "github.com/hackcomp/grading-api/cmd/server/internal/middleware"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/ratelimit"
	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/config"
	"github.com/hackcomp/grading-api/internal/grading"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/store"
)

const name = "github.com/hackcomp/grading-api/cmd/server/internal/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB          *gorm.DB
	config      *config.Config
	submissions *store.SubmissionStore
	problems    *store.ProblemStore
	packager    *bundle.Packager
	runner      grading.Runner
	aggregator  *grading.Aggregator
	// If not nil dispatched bundles are archived.
	archiver grading.BundleArchiver
}

func NewRedisLimiter(
	redisHost string,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	l := logger.Logger
	var store middleware.RateLimiterStore

	redisAddr := redisHost + ":6379"
	l.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	rdConf := &ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	}
	store = ratelimit.NewRedisLimitStore(*rdConf)

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	return middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			team, ok := c.Get("team").(*models.Team)
			if !ok {
				return "", srverr.ErrTypeAssertMismatch
			}
			return team.ID.String(), nil
		},
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func NewHandler(
	db *gorm.DB,
	cfg *config.Config,
	submissions *store.SubmissionStore,
	problems *store.ProblemStore,
	packager *bundle.Packager,
	runner grading.Runner,
	aggregator *grading.Aggregator,
	archiver grading.BundleArchiver,
) Handler {
	return Handler{
		DB:          db,
		config:      cfg,
		submissions: submissions,
		problems:    problems,
		packager:    packager,
		runner:      runner,
		aggregator:  aggregator,
		archiver:    archiver,
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1", middleware.BasicAuth(middlewareHandler.BasicAuthValidator))

	if h.config.RateLimit != nil && h.config.RateLimit.GlobalPerMinute > 0 {
		v1Group.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"global",
					h.config.RateLimit.GlobalPerMinute,
					h.config.RateLimit.FailOpen,
					nil,
				),
			),
		)
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	v1Group.GET("/ping/", h.Ping)
	v1Group.GET("/problems/", h.ListProblems)
	v1Group.GET(
		"/problems/:problem/",
		h.GetProblem,
		servermiddleware.ProblemParam(h.problems, "problem", "problem"),
	)

	submissionGroup := v1Group.Group(
		"/submissions/:problem",
		servermiddleware.ProblemParam(h.problems, "problem", "problem"),
	)

	if h.config.RateLimit != nil && h.config.RateLimit.SubmitPerMinute > 0 {
		post := http.MethodPost

		submissionGroup.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"submit",
					h.config.RateLimit.SubmitPerMinute,
					h.config.RateLimit.FailOpen,
					&post,
				),
			),
		)
	} else {
		l.Warn("not configured to have a submit rate limit")
	}

	submissionGroup.POST("/", h.Submit)
	submissionGroup.GET("/", h.GetSubmission)

	v1Group.GET("/scores/", h.Scores, servermiddleware.RequireAdmin("team"))
}
