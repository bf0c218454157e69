package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	cp "github.com/otiai10/copy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v2"

	"github.com/hackcomp/grading-api/internal/types"
)

const (
	OfficialTestFile = "test_cases.py"
	PracticeTestFile = "demo_cases.py"
	PromptFile       = "prompt.md"
	StarterFile      = "starter.py"
	manifestFile     = "problem.yaml"
)

var problemDirPattern = regexp.MustCompile(`^q([0-9]+)$`)

// Manifest is the optional problem.yaml sitting next to a problem's test
// sources. Everything in it is informational; grading works without it.
type Manifest struct {
	Title      string `yaml:"title"`
	LanguageID *int   `yaml:"language_id"`
}

// ProblemStore serves per-problem content from <root>/q<N>/. Problem numbers
// are stable, assigned once at creation, never reused.
type ProblemStore struct {
	root        string
	templateDir string
}

func NewProblemStore(root, templateDir string) *ProblemStore {
	return &ProblemStore{root: root, templateDir: templateDir}
}

func (p *ProblemStore) dir(problem int) string {
	return filepath.Join(p.root, fmt.Sprintf("q%d", problem))
}

func testFileName(mode types.Mode) string {
	if mode == types.ModePractice {
		return PracticeTestFile
	}
	return OfficialTestFile
}

// TestSource returns the test-source variant for the mode, or ErrNotFound.
func (p *ProblemStore) TestSource(ctx context.Context, problem int, mode types.Mode) ([]byte, error) {
	_, span := tracer.Start(ctx, "ProblemStore.TestSource", trace.WithAttributes(
		attribute.Int("problem", problem),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	data, err := os.ReadFile(filepath.Join(p.dir(problem), testFileName(mode)))
	if err != nil {
		if os.IsNotExist(err) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "test source does not exist")
			return nil, ErrNotFound
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read test source")
		return nil, fmt.Errorf("failed to read test source for problem %d: %w", problem, err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read test source")
	return data, nil
}

// ReadFile reads a named file (prompt, starter, doc_*) from the problem's
// directory, or ErrNotFound.
func (p *ProblemStore) ReadFile(ctx context.Context, problem int, name string) ([]byte, error) {
	_, span := tracer.Start(ctx, "ProblemStore.ReadFile", trace.WithAttributes(
		attribute.Int("problem", problem),
		attribute.String("name", name),
	))
	defer span.End()

	data, err := os.ReadFile(filepath.Join(p.dir(problem), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read problem file")
		return nil, fmt.Errorf("failed to read %s for problem %d: %w", name, problem, err)
	}

	return data, nil
}

// Numbers lists existing problem numbers in ascending order.
func (p *ProblemStore) Numbers(ctx context.Context) ([]int, error) {
	_, span := tracer.Start(ctx, "ProblemStore.Numbers")
	defer span.End()

	entries, err := os.ReadDir(p.root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list problem root")
		return nil, fmt.Errorf("failed to list problem root: %w", err)
	}

	var numbers []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := problemDirPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed problems")
	return numbers, nil
}

// Count is the number of problems in the store. The grading roster iterates
// problems 1 through Count.
func (p *ProblemStore) Count(ctx context.Context) (int, error) {
	numbers, err := p.Numbers(ctx)
	if err != nil {
		return 0, err
	}
	return len(numbers), nil
}

// Create allocates the next problem number and seeds its directory from the
// template directory when one is configured, otherwise with empty defaults.
func (p *ProblemStore) Create(ctx context.Context) (int, error) {
	_, span := tracer.Start(ctx, "ProblemStore.Create")
	defer span.End()

	next := 1
	for {
		if _, err := os.Stat(p.dir(next)); os.IsNotExist(err) {
			break
		}
		next++
	}

	span.SetAttributes(attribute.Int("problem", next))

	dir := p.dir(next)
	if p.templateDir != "" {
		if err := cp.Copy(p.templateDir, dir); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to seed problem from template")
			return 0, fmt.Errorf("failed to seed problem %d from template: %w", next, err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "created problem from template")
		return next, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create problem directory")
		return 0, fmt.Errorf("failed to create problem directory: %w", err)
	}
	for _, name := range []string{PromptFile, StarterFile, OfficialTestFile, PracticeTestFile} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create default problem file")
			return 0, fmt.Errorf("failed to create default %s for problem %d: %w", name, next, err)
		}
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created blank problem")
	return next, nil
}

// Manifest parses the optional problem.yaml. A missing manifest is not an
// error; callers get a zero-valued one.
func (p *ProblemStore) Manifest(ctx context.Context, problem int) (*Manifest, error) {
	_, span := tracer.Start(ctx, "ProblemStore.Manifest", trace.WithAttributes(
		attribute.Int("problem", problem),
	))
	defer span.End()

	data, err := os.ReadFile(filepath.Join(p.dir(problem), manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read problem manifest")
		return nil, fmt.Errorf("failed to read manifest for problem %d: %w", problem, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse problem manifest")
		return nil, fmt.Errorf("failed to parse manifest for problem %d: %w", problem, err)
	}

	return &m, nil
}
