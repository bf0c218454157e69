package middleware

import (
	"context"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackcomp/grading-api/cmd/server/internal/response"
)

type ProblemLister interface {
	Numbers(ctx context.Context) ([]int, error)
}

// Parses the problem number in `paramName` and checks it against the problem
// store before handing it to the route
func ProblemParam(problems ProblemLister, paramName, contextName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "ProblemParam")
			defer span.End()

			rawProblem := c.Param(paramName)

			span.SetAttributes(
				attribute.String("paramName", paramName),
				attribute.String("contextName", contextName),
				attribute.String("problem.raw", rawProblem),
			)

			span.AddEvent("parsing problem number")
			problem, err := strconv.Atoi(rawProblem)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to parse problem number")
				return response.NotFoundError
			}

			span.SetAttributes(attribute.Int("problem.parsed", problem))

			span.AddEvent("checking problem exists")
			numbers, err := problems.Numbers(ctx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to list problems")
				return response.InternalServerError
			}

			if !slices.Contains(numbers, problem) {
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "problem does not exist")
				return response.NotFoundError
			}

			c.Set(contextName, problem)

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "validated problem number")
			return next(c)
		}
	}
}
