package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
)

var tracer = otel.Tracer("github.com/hackcomp/grading-api/internal/bundle")

// Canonical entry names inside the archive. The sandbox harness keys on these,
// so they never vary with mode or with the team's own file name.
const (
	TestEntryName       = "test_cases.py"
	SubmissionEntryName = "submission.py"
)

// ErrMissingUtils means the grading-utilities directory is absent. That is a
// deployment problem, not a per-submission one.
var ErrMissingUtils = errors.New("missing grading utilities")

// NoTestContentError means the problem has no test source for the requested
// mode. Operator-facing: the problem definition is incomplete.
type NoTestContentError struct {
	Problem int
	Mode    types.Mode
}

func (e NoTestContentError) Error() string {
	return fmt.Sprintf("problem %d has no test content for mode %s", e.Problem, e.Mode)
}

// MissingSubmissionError means the team never submitted the problem. The most
// common packaging failure by far; callers render it team-facing and the
// aggregator downgrades it to a zero-scored row.
type MissingSubmissionError struct {
	Team    string
	Problem int
}

func (e MissingSubmissionError) Error() string {
	return fmt.Sprintf("team %s did not submit problem %d", e.Team, e.Problem)
}

type SubmissionReader interface {
	Read(ctx context.Context, team string, problem int) ([]byte, error)
}

type TestSourceReader interface {
	TestSource(ctx context.Context, problem int, mode types.Mode) ([]byte, error)
}

// Packager assembles the self-contained execution bundle the sandbox runs:
// every file from the grading-utilities directory, the mode's test source
// under the canonical test name, and the team's submission under the
// canonical submission name.
type Packager struct {
	submissions SubmissionReader
	problems    TestSourceReader
	utilsDir    string
}

func NewPackager(utilsDir string, problems TestSourceReader, submissions SubmissionReader) *Packager {
	return &Packager{
		utilsDir:    utilsDir,
		problems:    problems,
		submissions: submissions,
	}
}

// Package builds the zip archive and returns it base64-encoded, which is the
// transport encoding the sandbox expects. Encoding here rather than in the
// dispatcher lets callers log or archive the exact payload without another
// round through the packager.
func (p *Packager) Package(ctx context.Context, team string, problem int, mode types.Mode) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Packager.Package", trace.WithAttributes(
		attribute.String("team", team),
		attribute.Int("problem", problem),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	utils, err := os.ReadDir(p.utilsDir)
	if err != nil {
		if os.IsNotExist(err) {
			span.RecordError(ErrMissingUtils)
			span.SetStatus(codes.Error, "grading utilities directory does not exist")
			return nil, ErrMissingUtils
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list grading utilities")
		return nil, fmt.Errorf("failed to list grading utilities: %w", err)
	}

	testSource, err := p.problems.TestSource(ctx, problem, mode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = NoTestContentError{Problem: problem, Mode: mode}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read test source")
		return nil, err
	}

	submission, err := p.submissions.Read(ctx, team, problem)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = MissingSubmissionError{Team: team, Problem: problem}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read submission")
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, util := range utils {
		if util.IsDir() {
			continue
		}

		contents, err := os.ReadFile(filepath.Join(p.utilsDir, util.Name()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read grading utility")
			return nil, fmt.Errorf("failed to read grading utility %s: %w", util.Name(), err)
		}
		if err := addEntry(zw, util.Name(), contents); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to archive grading utility")
			return nil, err
		}
	}

	if err := addEntry(zw, TestEntryName, testSource); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive test source")
		return nil, err
	}

	if err := addEntry(zw, SubmissionEntryName, submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive submission")
		return nil, err
	}

	if err := zw.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to finalize archive")
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(encoded, buf.Bytes())

	span.SetAttributes(attribute.Int("archive.encoded_len", len(encoded)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "packaged bundle")
	return encoded, nil
}

func addEntry(zw *zip.Writer, name string, contents []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}
