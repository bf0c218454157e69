package v1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
	"github.com/hackcomp/grading-api/internal/validator"
)

type stubRunner struct {
	outcomes []types.TestOutcome
	err      error
}

func (s *stubRunner) Run(_ context.Context, _ []byte) ([]types.TestOutcome, error) {
	return s.outcomes, s.err
}

func newSubmitHandler(t *testing.T, runner *stubRunner) *Handler {
	t.Helper()

	root := t.TempDir()

	utilsDir := filepath.Join(root, "utils")
	require.NoError(t, os.MkdirAll(utilsDir, 0o755), "failed to create utils dir")
	require.NoError(
		t,
		os.WriteFile(filepath.Join(utilsDir, "decorators.py"), []byte("def weight(w): ...\n"), 0o644),
		"failed to write utility file",
	)

	q1 := filepath.Join(root, "problems", "q1")
	require.NoError(t, os.MkdirAll(q1, 0o755), "failed to create problem dir")
	require.NoError(
		t,
		os.WriteFile(filepath.Join(q1, store.PracticeTestFile), []byte("# demo\n"), 0o644),
		"failed to write practice tests",
	)

	submissions := store.NewSubmissionStore(filepath.Join(root, "submissions"))
	problems := store.NewProblemStore(filepath.Join(root, "problems"), "")

	return &Handler{
		submissions: submissions,
		problems:    problems,
		packager:    bundle.NewPackager(utilsDir, problems, submissions),
		runner:      runner,
	}
}

func submitContext(t *testing.T, problem int) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	validate := validator.Create()
	e.Validator = &validate

	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/submissions/1/",
		strings.NewReader(`{"file_contents": "def solve(): return 1\n"}`),
	)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.Set("team", &models.Team{Name: "A1"})
	c.Set("problem", problem)
	c.Set("time", time.Now())
	return c, rec
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("NoError", func(t *testing.T) {
		runner := &stubRunner{outcomes: []types.TestOutcome{
			{Name: "test_add (test_cases.Test)", Status: types.TestStatusPassed},
		}}
		h := newSubmitHandler(t, runner)
		c, rec := submitContext(t, 1)

		require.NoError(t, h.Submit(c), "failed to submit")

		assert.Equal(t, http.StatusOK, rec.Code, "not matching status")
		assert.Contains(t, rec.Body.String(), "test_add passed!", "missing transcript line")

		stored, err := h.submissions.Read(ctx, "A1", 1)
		require.NoError(t, err, "submission was not stored")
		assert.Equal(t, []byte("def solve(): return 1\n"), stored, "not matching stored submission")
	})

	t.Run("DispatchFailurePropagates", func(t *testing.T) {
		runner := &stubRunner{err: errors.New("sandbox returned status 503, expected 201")}
		h := newSubmitHandler(t, runner)
		c, _ := submitContext(t, 1)

		err := h.Submit(c)
		require.Error(t, err, "a failed dispatch should not produce a transcript")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusBadGateway, httpErr.Code, "not matching status")

		// The submission is stored before dispatch and stays stored.
		stored, err := h.submissions.Read(ctx, "A1", 1)
		require.NoError(t, err, "submission was not stored")
		assert.NotEmpty(t, stored, "stored submission is empty")
	})

	t.Run("NoPracticeTests", func(t *testing.T) {
		runner := &stubRunner{}
		h := newSubmitHandler(t, runner)
		c, _ := submitContext(t, 2)

		err := h.Submit(c)
		require.Error(t, err, "somehow dispatched a problem without practice tests")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "not an http error")
		assert.Equal(t, http.StatusNotFound, httpErr.Code, "not matching status")
	})
}
