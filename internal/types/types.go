package types

// Mode selects which test-source variant gets bundled for a grading run.
type Mode string

const (
	// ModeOfficial bundles the hidden grading tests.
	ModeOfficial Mode = "official"
	// ModePractice bundles the student-facing demo tests.
	ModePractice Mode = "practice"
)

type TestStatus string

const (
	TestStatusPassed TestStatus = "passed"
	TestStatusFailed TestStatus = "failed"
)

// TestOutcome is one test result exactly as the sandbox reports it.
// Score and MaxScore are absent on suite-level failures (for example a
// submission that never compiled), which is why they are pointers.
type TestOutcome struct {
	Score    *float64   `json:"score,omitempty"`
	MaxScore *float64   `json:"max_score,omitempty"`
	Name     string     `json:"name"`
	Status   TestStatus `json:"status"`
	Output   string     `json:"output,omitempty"`
}

// Graded returns the outcome's own score pair when the sandbox attached one.
func (o *TestOutcome) Graded() bool {
	return o.Score != nil && o.MaxScore != nil
}

// ScoredTest is the normalized grading record, one per (team, problem, test).
// ConsoleLog is the literal "Passed" on success and the raw sandbox output
// otherwise.
type ScoredTest struct {
	TestName    string
	ConsoleLog  string
	QuestionNum int
	Score       float64
	MaxScore    float64
}
