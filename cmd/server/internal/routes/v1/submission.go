package v1

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	srverr "github.com/hackcomp/grading-api/cmd/server/internal/error"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/response"
	"github.com/hackcomp/grading-api/internal/audit"
	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/interpret"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
	"github.com/hackcomp/grading-api/internal/validator"
)

// Submit stores a solution and runs it against the practice tests, returning
// the rendered transcript. The stored file is what official grading later
// picks up; the practice run is feedback only.
func (h *Handler) Submit(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Submit")
	defer span.End()

	span.AddEvent("received submission request")

	team, ok := c.Get("team").(*models.Team)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("team: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	problem, ok := c.Get("problem").(int)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("problem: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	requestTime, ok := c.Get("time").(time.Time)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("team.name", team.Name),
		attribute.Int("problem", problem),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	var rdata types.SubmissionRequest

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	span.AddEvent("validating submission is within size limit")
	if !validator.ValidateSubmissionSize(len(rdata.FileContents)) {
		span.SetStatus(codes.Ok, "submission was too large")
		span.RecordError(nil)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.Error{Message: "validation error", Fields: &map[string]string{
				"file_contents": "must be <= 512kb",
			}},
		)
	}

	span.AddEvent("storing submission")
	err = h.submissions.Write(ctx, team.Name, problem, []byte(rdata.FileContents))
	if err != nil {
		span.SetStatus(codes.Error, "failed to store submission")
		span.RecordError(err)
		return response.InternalServerError
	}

	auditCtx := audit.Context{Team: &team.Name}
	audit.LogSubmissionReceived(auditCtx, problem, int64(len(rdata.FileContents)))

	span.AddEvent("packaging practice bundle")
	encoded, err := h.packager.Package(ctx, team.Name, problem, types.ModePractice)
	if err != nil {
		span.RecordError(err)

		var noTests bundle.NoTestContentError
		if errors.As(err, &noTests) {
			span.SetStatus(codes.Ok, "problem has no practice tests")
			return echo.NewHTTPError(
				http.StatusNotFound,
				types.StringError("problem has no practice tests"),
			)
		}

		span.SetStatus(codes.Error, "failed to package practice bundle")
		return response.InternalServerError
	}

	if h.archiver != nil {
		h.archiver.ArchiveBundle(ctx, team.Name, problem, encoded)
	}

	span.AddEvent("dispatching practice bundle")
	outcomes, err := h.runner.Run(ctx, encoded)
	if err != nil {
		// The submission is stored either way. There is no aggregation layer
		// here to downgrade the failure into a zero row, so the caller gets
		// the error, not a transcript that looks graded.
		span.RecordError(err)
		span.SetStatus(codes.Error, "practice dispatch failed")

		audit.LogPracticeRun(auditCtx, problem, 0, 0, false)
		return echo.NewHTTPError(
			http.StatusBadGateway,
			types.StringError("failed to run practice tests"),
		)
	}

	passed, failed := 0, 0
	for _, outcome := range outcomes {
		if outcome.Status == types.TestStatusPassed {
			passed++
		} else {
			failed++
		}
	}

	span.SetAttributes(
		attribute.Int("tests.passed", passed),
		attribute.Int("tests.failed", failed),
	)
	span.AddEvent("rendered transcript", trace.WithAttributes(
		attribute.Int("tests", len(outcomes)),
	))

	audit.LogPracticeRun(auditCtx, problem, passed, failed, true)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded practice submission")
	return c.JSON(http.StatusOK, types.SubmissionResponse{
		Console: interpret.Console(outcomes),
		Problem: problem,
	})
}

// GetSubmission returns the team's stored solution for a problem.
func (h *Handler) GetSubmission(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "GetSubmission")
	defer span.End()

	team, ok := c.Get("team").(*models.Team)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("team: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	problem, ok := c.Get("problem").(int)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("problem: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("team.name", team.Name),
		attribute.Int("problem", problem),
	)

	span.AddEvent("reading submission")
	contents, err := h.submissions.Read(ctx, team.Name, problem)
	if err != nil {
		span.RecordError(err)

		if errors.Is(err, store.ErrNotFound) {
			span.SetStatus(codes.Ok, "no submission stored")
			return response.NotFoundError
		}

		span.SetStatus(codes.Error, "failed to read submission")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read submission")
	return c.JSON(http.StatusOK, types.SubmissionSource{
		FileContents: string(contents),
		Problem:      problem,
	})
}
