package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/hackcomp/grading-api/cmd/server/internal/error"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/response"
	"github.com/hackcomp/grading-api/internal/types"
)

func (h *Handler) Ping(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "Ping")
	defer span.End()

	team, ok := c.Get("team").(*models.Team)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("team: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("team.name", team.Name),
		attribute.String("team.id", team.ID.String()),
	)

	span.AddEvent("received ping")

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, types.PingResponse{Status: "ready"})
}
