package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/types"
)

// Team on `teamKey` must carry the admin flag
func RequireAdmin(teamKey string) echo.MiddlewareFunc {
	l := logger.Logger.With("teamKey", teamKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "RequireAdmin", trace.WithAttributes(
				attribute.String("teamKey", teamKey),
			))
			defer span.End()

			l.DebugContext(ctx, "getting team object")
			team, ok := c.Get(teamKey).(*models.Team)
			if !ok {
				l.WarnContext(ctx, "failed to get team object")
				span.RecordError(nil)
				span.SetStatus(codes.Error, "failed to get team object")
				return echo.NewHTTPError(http.StatusUnauthorized, types.StringError("Unauthorized"))
			}

			if !team.Admin {
				l.DebugContext(ctx, "team is not an admin")
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "unauthorized")
				return echo.NewHTTPError(http.StatusUnauthorized, types.StringError("Unauthorized"))
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "checked admin flag")
			return next(c)
		}
	}
}
