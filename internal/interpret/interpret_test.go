package interpret_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/interpret"
	"github.com/hackcomp/grading-api/internal/types"
)

func ptr(f float64) *float64 {
	return &f
}

func TestConsole(t *testing.T) {
	t.Run("AllPassed", func(t *testing.T) {
		outcomes := []types.TestOutcome{
			{Name: "test_add (test_cases.Test)", Status: types.TestStatusPassed},
			{Name: "test_sub (test_cases.Test)", Status: types.TestStatusPassed},
		}

		console := interpret.Console(outcomes)

		assert.Equal(
			t,
			interpret.ConsoleDisclaimer+"test_add passed!\ntest_sub passed!",
			console,
			"not matching transcript",
		)
	})

	t.Run("GenericFailure", func(t *testing.T) {
		outcomes := []types.TestOutcome{
			{
				Name:   "test_div (test_cases.Test)",
				Status: types.TestStatusFailed,
				Output: "AssertionError: 1 != 2\n",
			},
		}

		console := interpret.Console(outcomes)

		assert.Equal(
			t,
			interpret.ConsoleDisclaimer+"test_div AssertionError: 1 != 2",
			console,
			"not matching transcript",
		)
	})

	t.Run("SyntaxErrorTruncatesTraceback", func(t *testing.T) {
		traceback := strings.Join([]string{
			"Traceback (most recent call last):",
			`  File "submission.py", line 3`,
			"  frame two",
			"  frame three",
			"  frame four",
			"  frame five",
			"  frame six",
			"  frame seven",
			"    def broken(",
			"               ^",
			"SyntaxError: invalid syntax",
			"",
			"",
		}, "\n")

		outcomes := []types.TestOutcome{
			{Name: "test_any (test_cases.Test)", Status: types.TestStatusFailed, Output: traceback},
		}

		console := interpret.Console(outcomes)

		assert.Contains(t, console, "Running tests failed due to a syntax error.", "missing syntax error banner")
		assert.Contains(t, console, `  File "submission.py", line 3`, "missing offending file line")
		assert.Contains(t, console, "    def broken(", "missing offending source line")
		assert.Contains(t, console, "               ^", "missing caret line")
		assert.Contains(t, console, "SyntaxError: invalid syntax", "missing error class line")
		assert.NotContains(t, console, "frame two", "interpreter frames should be dropped")
		assert.NotContains(t, console, "Traceback (most recent call last):", "traceback header should be dropped")
	})

	t.Run("Empty", func(t *testing.T) {
		console := interpret.Console(nil)

		assert.Equal(
			t,
			strings.TrimSuffix(interpret.ConsoleDisclaimer, "\n"),
			console,
			"empty run should still carry the disclaimer",
		)
	})
}

func TestScores(t *testing.T) {
	t.Run("Passed", func(t *testing.T) {
		outcomes := []types.TestOutcome{
			{
				Name:     "test_add (test_cases.Test)",
				Status:   types.TestStatusPassed,
				Score:    ptr(2),
				MaxScore: ptr(2),
			},
		}

		scored := interpret.Scores(outcomes, 1, 5)

		require.Len(t, scored, 1, "unexpected record count")
		assert.Equal(t, "Passed", scored[0].ConsoleLog, "not matching console log")
		assert.Equal(t, "test_add (test_cases.Test)", scored[0].TestName, "not matching test name")
		assert.Equal(t, 1, scored[0].QuestionNum, "not matching question number")
		assert.InDelta(t, 2.0, scored[0].Score, 1e-9, "not matching score")
		assert.InDelta(t, 2.0, scored[0].MaxScore, 1e-9, "not matching max score")
	})

	t.Run("FailedGraded", func(t *testing.T) {
		outcomes := []types.TestOutcome{
			{
				Name:     "test_sub (test_cases.Test)",
				Status:   types.TestStatusFailed,
				Output:   "AssertionError: 1 != 2\n",
				Score:    ptr(0.5),
				MaxScore: ptr(2),
			},
		}

		scored := interpret.Scores(outcomes, 2, 5)

		require.Len(t, scored, 1, "unexpected record count")
		assert.Equal(t, "AssertionError: 1 != 2\n", scored[0].ConsoleLog, "not matching console log")
		assert.InDelta(t, 0.5, scored[0].Score, 1e-9, "failed graded test should keep its own score")
		assert.InDelta(t, 2.0, scored[0].MaxScore, 1e-9, "failed graded test should keep its own ceiling")
	})

	t.Run("FailedUngraded", func(t *testing.T) {
		outcomes := []types.TestOutcome{
			{
				Name:   "test_cases (unittest.loader._FailedTest)",
				Status: types.TestStatusFailed,
				Output: "SyntaxError: invalid syntax\n\n",
			},
		}

		scored := interpret.Scores(outcomes, 3, 7.5)

		require.Len(t, scored, 1, "unexpected record count")
		assert.Zero(t, scored[0].Score, "ungraded failure should score zero")
		assert.InDelta(t, 7.5, scored[0].MaxScore, 1e-9, "ungraded failure should count against the static ceiling")
	})
}
