package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custommiddleware "github.com/hackcomp/grading-api/cmd/server/internal/middleware"
	"github.com/hackcomp/grading-api/cmd/server/internal/models"
)

type fakeProblems struct {
	numbers []int
	err     error
}

func (f *fakeProblems) Numbers(_ context.Context) ([]int, error) {
	return f.numbers, f.err
}

func problemContext(t *testing.T, param string) echo.Context {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("problem")
	c.SetParamValues(param)
	return c
}

func TestProblemParam(t *testing.T) {
	t.Run("ValidProblem", func(t *testing.T) {
		c := problemContext(t, "2")

		var got any
		handler := custommiddleware.ProblemParam(&fakeProblems{numbers: []int{1, 2, 3}}, "problem", "problemNumber")(
			func(c echo.Context) error {
				got = c.Get("problemNumber")
				return c.NoContent(http.StatusOK)
			},
		)

		require.NoError(t, handler(c), "failed to pass a valid problem through")

		assert.Equal(t, 2, got, "not matching problem number in context")
	})

	t.Run("NotANumber", func(t *testing.T) {
		c := problemContext(t, "two")

		handler := custommiddleware.ProblemParam(&fakeProblems{numbers: []int{1}}, "problem", "problemNumber")(
			func(_ echo.Context) error {
				t.Fatal("handler should not run")
				return nil
			},
		)

		err := handler(c)
		require.Error(t, err, "somehow accepted a non-numeric problem")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusNotFound, httpErr.Code, "not matching status")
	})

	t.Run("UnknownProblem", func(t *testing.T) {
		c := problemContext(t, "9")

		handler := custommiddleware.ProblemParam(&fakeProblems{numbers: []int{1, 2}}, "problem", "problemNumber")(
			func(_ echo.Context) error {
				t.Fatal("handler should not run")
				return nil
			},
		)

		err := handler(c)
		require.Error(t, err, "somehow accepted an unknown problem")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusNotFound, httpErr.Code, "not matching status")
	})

	t.Run("ListerError", func(t *testing.T) {
		c := problemContext(t, "1")

		handler := custommiddleware.ProblemParam(&fakeProblems{err: errors.New("expected error")}, "problem", "problemNumber")(
			func(_ echo.Context) error {
				t.Fatal("handler should not run")
				return nil
			},
		)

		err := handler(c)
		require.Error(t, err, "somehow passed through a broken lister")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusInternalServerError, httpErr.Code, "not matching status")
	})
}

func TestRequireAdmin(t *testing.T) {
	newContext := func(t *testing.T) echo.Context {
		t.Helper()
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return e.NewContext(req, httptest.NewRecorder())
	}

	t.Run("Admin", func(t *testing.T) {
		c := newContext(t)
		c.Set("team", &models.Team{Name: "staff", Admin: true})

		ran := false
		handler := custommiddleware.RequireAdmin("team")(func(c echo.Context) error {
			ran = true
			return c.NoContent(http.StatusOK)
		})

		require.NoError(t, handler(c), "failed to pass an admin through")
		assert.True(t, ran, "handler should run for admins")
	})

	t.Run("NotAdmin", func(t *testing.T) {
		c := newContext(t)
		c.Set("team", &models.Team{Name: "A1"})

		handler := custommiddleware.RequireAdmin("team")(func(_ echo.Context) error {
			t.Fatal("handler should not run")
			return nil
		})

		err := handler(c)
		require.Error(t, err, "somehow passed a non-admin through")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code, "not matching status")
	})

	t.Run("MissingTeam", func(t *testing.T) {
		c := newContext(t)

		handler := custommiddleware.RequireAdmin("team")(func(_ echo.Context) error {
			t.Fatal("handler should not run")
			return nil
		})

		err := handler(c)
		require.Error(t, err, "somehow passed through without a team")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code, "not matching status")
	})
}
