package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hackcomp/grading-api/internal/store")

// SubmissionStore persists one source blob per (problem, team) under
// <root>/q<problem>/<team>.py. Resubmitting overwrites; grading only reads.
type SubmissionStore struct {
	root string
}

func NewSubmissionStore(root string) *SubmissionStore {
	return &SubmissionStore{root: root}
}

func (s *SubmissionStore) path(team string, problem int) string {
	return filepath.Join(s.root, fmt.Sprintf("q%d", problem), team+".py")
}

// Write stores the submission, creating the per-problem directory on first use.
func (s *SubmissionStore) Write(ctx context.Context, team string, problem int, contents []byte) error {
	_, span := tracer.Start(ctx, "SubmissionStore.Write", trace.WithAttributes(
		attribute.String("team", team),
		attribute.Int("problem", problem),
	))
	defer span.End()

	path := s.path(team, problem)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create submission directory")
		return fmt.Errorf("failed to create submission directory: %w", err)
	}

	if err := os.WriteFile(path, contents, 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write submission")
		return fmt.Errorf("failed to write submission for team %s problem %d: %w", team, problem, err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote submission")
	return nil
}

// Read returns the stored submission or ErrNotFound.
func (s *SubmissionStore) Read(ctx context.Context, team string, problem int) ([]byte, error) {
	_, span := tracer.Start(ctx, "SubmissionStore.Read", trace.WithAttributes(
		attribute.String("team", team),
		attribute.Int("problem", problem),
	))
	defer span.End()

	data, err := os.ReadFile(s.path(team, problem))
	if err != nil {
		if os.IsNotExist(err) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission does not exist")
			return nil, ErrNotFound
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read submission")
		return nil, fmt.Errorf("failed to read submission for team %s problem %d: %w", team, problem, err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read submission")
	return data, nil
}

// Teams lists every team that has at least one stored submission. The
// scoreboard path compares this against the active roster and warns about
// submitters that a roster-driven run would skip.
func (s *SubmissionStore) Teams(ctx context.Context) ([]string, error) {
	_, span := tracer.Start(ctx, "SubmissionStore.Teams")
	defer span.End()

	dirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list submission root")
		return nil, fmt.Errorf("failed to list submission root: %w", err)
	}

	seen := map[string]bool{}
	var teams []string
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, dir.Name()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list problem directory")
			return nil, fmt.Errorf("failed to list problem directory %s: %w", dir.Name(), err)
		}
		for _, f := range files {
			name := f.Name()
			if filepath.Ext(name) != ".py" {
				continue
			}
			team := name[:len(name)-len(".py")]
			if !seen[team] {
				seen[team] = true
				teams = append(teams, team)
			}
		}
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed submitting teams")
	return teams, nil
}
