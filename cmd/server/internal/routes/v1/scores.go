package v1

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/hackcomp/grading-api/cmd/server/internal/error"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/response"
	"github.com/hackcomp/grading-api/internal/audit"
	"github.com/hackcomp/grading-api/internal/grading"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/types"
)

// ListProblems returns the problem numbers currently on disk.
func (h *Handler) ListProblems(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ListProblems")
	defer span.End()

	numbers, err := h.problems.Numbers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list problems")
		return response.InternalServerError
	}

	span.SetAttributes(attribute.Int("problems", len(numbers)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed problems")
	return c.JSON(http.StatusOK, types.ProblemListResponse{Problems: numbers})
}

// Scores runs official grading across the full roster and streams back the
// ledger as CSV. Admin only; this hits the sandbox once per (team, problem).
func (h *Handler) Scores(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Scores")
	defer span.End()

	team, ok := c.Get("team").(*models.Team)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("team: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("team.name", team.Name))

	db := h.DB.WithContext(ctx)

	teams, err := models.ActiveTeamNames(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list active teams")
		return response.InternalServerError
	}

	submitters, err := h.submissions.Teams(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list submitters")
		return response.InternalServerError
	}

	if missing := grading.MissingFromRoster(teams, submitters); len(missing) > 0 {
		// Their stored work is skipped; the run covers the roster only.
		logger.Logger.WarnContext(ctx, "submissions from teams outside the active roster",
			"teams", missing,
		)
		span.SetAttributes(attribute.StringSlice("roster.unknown_submitters", missing))
	}

	problemCount, err := h.problems.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count problems")
		return response.InternalServerError
	}

	audit.LogGradingRunStarted(audit.Context{Team: &team.Name}, len(teams), problemCount)

	ledger, err := h.aggregator.GradeAll(ctx, teams, problemCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading run failed")
		return response.InternalServerError
	}

	audit.LogGradingRunCompleted(
		audit.Context{Team: &team.Name},
		len(ledger.Rows),
		ledger.Summary.MissingSubmissions,
		ledger.Summary.InfrastructureFailures,
	)

	var buf bytes.Buffer
	if err := grading.WriteLedgerCSV(&buf, ledger); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render ledger")
		return response.InternalServerError
	}

	span.SetAttributes(attribute.Int("rows", len(ledger.Rows)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded full roster")
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
