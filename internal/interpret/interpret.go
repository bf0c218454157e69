// Package interpret turns raw sandbox test outcomes into the two views the
// rest of the system consumes: a student-facing console transcript and
// normalized scoring records.
package interpret

import (
	"fmt"
	"strings"

	"github.com/hackcomp/grading-api/internal/types"
)

// ConsoleDisclaimer leads every practice transcript. Practice runs execute the
// demo tests, not the hidden grading tests.
const ConsoleDisclaimer = "Note: These tests may or may not be used in final score calculation.\n"

// syntaxErrorSuffix identifies the one failure shape that gets its traceback
// truncated before students see it.
const syntaxErrorSuffix = "invalid syntax\n\n"

// syntaxErrorLines are the line indices kept from a syntax-error traceback:
// the offending file, the offending line, the caret marker, and the error
// class. The rest of the interpreter traceback is noise for students. The
// indices are part of the output contract with the sandbox harness.
var syntaxErrorLines = []int{1, 8, 9, 10, 11}

// Console renders outcomes as the interactive practice transcript.
func Console(outcomes []types.TestOutcome) string {
	var b strings.Builder
	b.WriteString(ConsoleDisclaimer)

	for _, outcome := range outcomes {
		name := firstToken(outcome.Name)

		if outcome.Status != types.TestStatusFailed {
			fmt.Fprintf(&b, "%s passed!\n", name)
			continue
		}

		if strings.HasSuffix(outcome.Output, syntaxErrorSuffix) {
			b.WriteString("Running tests failed due to a syntax error.\n")
			b.WriteString(strings.Join(pickLines(outcome.Output, syntaxErrorLines), "\n"))
			b.WriteString("\n")
			continue
		}

		// Runtime errors and assertion output read fine as-is.
		fmt.Fprintf(&b, "%s %s", name, outcome.Output)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Scores renders outcomes as scoring records for problem number `problem`.
// maxPoints is the problem's statically derived ceiling; it backs the zero
// row emitted for ungraded failures so a submission that never ran still
// lands in the ledger.
func Scores(outcomes []types.TestOutcome, problem int, maxPoints float64) []types.ScoredTest {
	scored := make([]types.ScoredTest, 0, len(outcomes))

	for _, outcome := range outcomes {
		switch {
		case outcome.Status == types.TestStatusPassed:
			scored = append(scored, types.ScoredTest{
				ConsoleLog:  "Passed",
				TestName:    outcome.Name,
				QuestionNum: problem,
				Score:       deref(outcome.Score),
				MaxScore:    deref(outcome.MaxScore),
			})
		case outcome.Graded():
			// Failed but individually graded, e.g. partial credit.
			scored = append(scored, types.ScoredTest{
				ConsoleLog:  outcome.Output,
				TestName:    outcome.Name,
				QuestionNum: problem,
				Score:       *outcome.Score,
				MaxScore:    *outcome.MaxScore,
			})
		default:
			// Suite-level failure, typically a syntax error that kept any
			// test from running. Zero against the problem's static ceiling.
			scored = append(scored, types.ScoredTest{
				ConsoleLog:  outcome.Output,
				TestName:    outcome.Name,
				QuestionNum: problem,
				Score:       0,
				MaxScore:    maxPoints,
			})
		}
	}

	return scored
}

func firstToken(name string) string {
	return strings.SplitN(name, " ", 2)[0]
}

func pickLines(output string, indices []int) []string {
	lines := strings.Split(output, "\n")
	picked := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(lines) {
			picked = append(picked, lines[i])
		}
	}
	return picked
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
