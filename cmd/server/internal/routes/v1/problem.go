package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/hackcomp/grading-api/cmd/server/internal/error"
	"github.com/hackcomp/grading-api/cmd/server/internal/response"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
)

// GetProblem returns the student-facing material for one problem: title from
// the manifest, prompt, and starter code. Test sources are never served.
func (h *Handler) GetProblem(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "GetProblem")
	defer span.End()

	problem, ok := c.Get("problem").(int)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("problem: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.Int("problem", problem))

	manifest, err := h.problems.Manifest(ctx, problem)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read problem manifest")
		return response.InternalServerError
	}

	prompt, err := h.problems.ReadFile(ctx, problem, store.PromptFile)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read problem prompt")
		return response.InternalServerError
	}

	starter, err := h.problems.ReadFile(ctx, problem, store.StarterFile)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read problem starter")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read problem material")
	return c.JSON(http.StatusOK, types.ProblemDetailResponse{
		Problem: problem,
		Title:   manifest.Title,
		Prompt:  string(prompt),
		Starter: string(starter),
	})
}
