// Package grading drives the package→dispatch→interpret pipeline across the
// full team × problem matrix and aggregates the results into the exportable
// ledger and scoreboard.
package grading

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/interpret"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/types"
)

var tracer = otel.Tracer("github.com/hackcomp/grading-api/internal/grading")

type Packager interface {
	Package(ctx context.Context, team string, problem int, mode types.Mode) ([]byte, error)
}

type Runner interface {
	Run(ctx context.Context, encodedArchive []byte) ([]types.TestOutcome, error)
}

type MaxPointer interface {
	MaxPoints(ctx context.Context, problem int) (float64, error)
}

// BundleArchiver keeps an audit copy of every dispatched bundle. Best effort:
// failures are logged, never fatal for the grading run.
type BundleArchiver interface {
	ArchiveBundle(ctx context.Context, team string, problem int, encoded []byte)
}

// LedgerRow is one scored test for one team. The ledger holds one row per
// (team, problem, test).
type LedgerRow struct {
	Team string
	Test types.ScoredTest
}

// RunSummary tallies the failure classes that were downgraded to zero rows.
// Missing submissions are expected; infrastructure failures also become zero
// rows (so a run always completes) but a non-zero count here means the zeros
// may be hiding an outage, not a team's choice.
type RunSummary struct {
	MissingSubmissions     int
	InfrastructureFailures int
}

// Ledger is the output of one full grading run. Rows are ordered by roster
// position, then problem number, then sandbox report order, so an unchanged
// world regrades to a byte-identical export.
type Ledger struct {
	Rows    []LedgerRow
	Summary RunSummary
}

// TeamTotal is one scoreboard line: summed score and ceiling for a team.
type TeamTotal struct {
	Team     string
	Score    float64
	MaxScore float64
}

// Rollup groups rows by team, preserving roster order.
func (l *Ledger) Rollup() []TeamTotal {
	index := map[string]int{}
	var totals []TeamTotal

	for _, row := range l.Rows {
		i, ok := index[row.Team]
		if !ok {
			i = len(totals)
			index[row.Team] = i
			totals = append(totals, TeamTotal{Team: row.Team})
		}
		totals[i].Score += row.Test.Score
		totals[i].MaxScore += row.Test.MaxScore
	}

	return totals
}

// MissingFromRoster returns the submitters that are not on the roster,
// preserving submitter order. A non-empty result means stored work exists for
// teams a grading run over the roster would never touch.
func MissingFromRoster(roster, submitters []string) []string {
	known := make(map[string]bool, len(roster))
	for _, team := range roster {
		known[team] = true
	}

	var missing []string
	for _, team := range submitters {
		if !known[team] {
			missing = append(missing, team)
		}
	}

	return missing
}

// Aggregator fans the pipeline out over (team, problem) pairs with a bounded
// worker pool. Each pair is independent; the only shared state is the weight
// scanner's memo, which is safe for concurrent use.
type Aggregator struct {
	packager    Packager
	runner      Runner
	weights     MaxPointer
	archiver    BundleArchiver
	concurrency int
}

func NewAggregator(
	packager Packager,
	runner Runner,
	weights MaxPointer,
	archiver BundleArchiver,
	concurrency int,
) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		packager:    packager,
		runner:      runner,
		weights:     weights,
		archiver:    archiver,
		concurrency: concurrency,
	}
}

type pairResult struct {
	rows    []types.ScoredTest
	summary RunSummary
}

// GradeAll regrades every team against problems 1 through problemCount. A
// team that skipped a problem contributes a single zero row for that pair;
// so does a pair hit by an infrastructure fault, with the distinction kept in
// the summary. Only setup-level failures (an unreadable weight file, a
// cancelled context) abort the run.
func (a *Aggregator) GradeAll(ctx context.Context, teams []string, problemCount int) (*Ledger, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.GradeAll", trace.WithAttributes(
		attribute.Int("teams", len(teams)),
		attribute.Int("problems", problemCount),
		attribute.Int("concurrency", a.concurrency),
	))
	defer span.End()

	results := make([]pairResult, len(teams)*problemCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for ti, team := range teams {
		for problem := 1; problem <= problemCount; problem++ {
			slot := ti*problemCount + problem - 1
			g.Go(func() error {
				// Cancellation is between pairs; an in-flight dispatch is
				// left to finish or time out on its own.
				if err := gctx.Err(); err != nil {
					return err
				}

				res, err := a.gradePair(gctx, team, problem)
				if err != nil {
					return err
				}

				results[slot] = *res
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading run aborted")
		return nil, err
	}

	ledger := &Ledger{}
	for ti, team := range teams {
		for problem := 1; problem <= problemCount; problem++ {
			res := results[ti*problemCount+problem-1]
			for _, test := range res.rows {
				ledger.Rows = append(ledger.Rows, LedgerRow{Team: team, Test: test})
			}
			ledger.Summary.MissingSubmissions += res.summary.MissingSubmissions
			ledger.Summary.InfrastructureFailures += res.summary.InfrastructureFailures
		}
	}

	span.SetAttributes(
		attribute.Int("rows", len(ledger.Rows)),
		attribute.Int("missing_submissions", ledger.Summary.MissingSubmissions),
		attribute.Int("infrastructure_failures", ledger.Summary.InfrastructureFailures),
	)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded full roster")
	return ledger, nil
}

func (a *Aggregator) gradePair(ctx context.Context, team string, problem int) (*pairResult, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.gradePair", trace.WithAttributes(
		attribute.String("team", team),
		attribute.Int("problem", problem),
	))
	defer span.End()

	var outcomes []types.TestOutcome

	encoded, err := a.packager.Package(ctx, team, problem, types.ModeOfficial)
	if err == nil {
		if a.archiver != nil {
			a.archiver.ArchiveBundle(ctx, team, problem, encoded)
		}
		outcomes, err = a.runner.Run(ctx, encoded)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Don't mask a cancelled run as a zero score.
			return nil, ctx.Err()
		}
		return a.downgrade(ctx, span, team, problem, err)
	}

	maxPoints, err := a.weights.MaxPoints(ctx, problem)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute problem ceiling")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded pair")
	return &pairResult{rows: interpret.Scores(outcomes, problem, maxPoints)}, nil
}

// downgrade converts a pipeline failure into the single zero row that keeps
// the pair visible in the scoreboard.
func (a *Aggregator) downgrade(
	ctx context.Context,
	span trace.Span,
	team string,
	problem int,
	cause error,
) (*pairResult, error) {
	maxPoints, err := a.weights.MaxPoints(ctx, problem)
	if err != nil {
		// The weight file being unreadable means the grading environment
		// itself is broken; this one stays fatal.
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute problem ceiling")
		return nil, err
	}

	res := &pairResult{
		rows: []types.ScoredTest{{
			ConsoleLog:  fmt.Sprintf("Failed to Run Grader: %s", cause),
			TestName:    fmt.Sprintf("Question %d Tests", problem),
			QuestionNum: problem,
			Score:       0,
			MaxScore:    maxPoints,
		}},
	}

	var missing bundle.MissingSubmissionError
	if errors.As(cause, &missing) {
		res.summary.MissingSubmissions = 1
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "team did not submit, zero row emitted")
		return res, nil
	}

	res.summary.InfrastructureFailures = 1
	logger.Logger.ErrorContext(ctx, "grading pair failed for a non-submission reason, emitting zero row",
		"team", team,
		"problem", problem,
		"error", cause,
	)
	span.RecordError(cause)
	span.SetStatus(codes.Error, "infrastructure failure downgraded to zero row")
	return res, nil
}
