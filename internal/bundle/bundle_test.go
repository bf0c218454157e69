package bundle_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
)

func writeFixture(t *testing.T, dir, name string, contents []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755), "failed to create fixture directory")
	require.NoError(
		t,
		os.WriteFile(filepath.Join(dir, name), contents, 0o644),
		"failed to write fixture file",
	)
}

func decodeArchive(t *testing.T, encoded []byte) map[string][]byte {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	require.NoError(t, err, "bundle is not valid base64")

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err, "bundle is not a valid zip archive")

	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err, "failed to open archive entry")
		contents, err := io.ReadAll(rc)
		require.NoError(t, err, "failed to read archive entry")
		require.NoError(t, rc.Close(), "failed to close archive entry")
		entries[f.Name] = contents
	}
	return entries
}

func TestPackage(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	utilsDir := filepath.Join(root, "utils")
	writeFixture(t, utilsDir, "grading_harness.py", []byte("print('harness')\n"))
	writeFixture(t, utilsDir, "decorators.py", []byte("def weight(w): ...\n"))
	require.NoError(t, os.MkdirAll(filepath.Join(utilsDir, "nested"), 0o755), "failed to create nested dir")

	problemsDir := filepath.Join(root, "problems")
	writeFixture(t, filepath.Join(problemsDir, "q1"), store.OfficialTestFile, []byte("@weight(1)\n"))
	writeFixture(t, filepath.Join(problemsDir, "q1"), store.PracticeTestFile, []byte("# demo\n"))

	submissionsDir := filepath.Join(root, "submissions")
	writeFixture(t, filepath.Join(submissionsDir, "q1"), "A1.py", []byte("def solve(): return 1\n"))

	problems := store.NewProblemStore(problemsDir, "")
	submissions := store.NewSubmissionStore(submissionsDir)
	packager := bundle.NewPackager(utilsDir, problems, submissions)

	t.Run("OfficialMode", func(t *testing.T) {
		encoded, err := packager.Package(ctx, "A1", 1, types.ModeOfficial)

		require.NoError(t, err, "failed to package bundle")

		entries := decodeArchive(t, encoded)
		assert.Len(t, entries, 4, "unexpected archive entry count")
		assert.Equal(t, []byte("print('harness')\n"), entries["grading_harness.py"], "not matching utility contents")
		assert.Equal(t, []byte("@weight(1)\n"), entries[bundle.TestEntryName], "not matching test source")
		assert.Equal(
			t,
			[]byte("def solve(): return 1\n"),
			entries[bundle.SubmissionEntryName],
			"not matching submission contents",
		)
	})

	t.Run("PracticeModeKeepsCanonicalTestName", func(t *testing.T) {
		encoded, err := packager.Package(ctx, "A1", 1, types.ModePractice)

		require.NoError(t, err, "failed to package bundle")

		entries := decodeArchive(t, encoded)
		assert.Equal(t, []byte("# demo\n"), entries[bundle.TestEntryName], "practice source should sit under the canonical test name")
		assert.NotContains(t, entries, store.PracticeTestFile, "practice file name should not leak into the archive")
	})

	t.Run("MissingSubmission", func(t *testing.T) {
		_, err := packager.Package(ctx, "A2", 1, types.ModeOfficial)

		require.Error(t, err, "somehow packaged a bundle without a submission")

		var missing bundle.MissingSubmissionError
		require.ErrorAs(t, err, &missing, "not a missing submission error")
		assert.Equal(t, "A2", missing.Team, "not matching team")
		assert.Equal(t, 1, missing.Problem, "not matching problem")
	})

	t.Run("MissingTestContent", func(t *testing.T) {
		_, err := packager.Package(ctx, "A1", 2, types.ModeOfficial)

		require.Error(t, err, "somehow packaged a bundle without test content")

		var noTests bundle.NoTestContentError
		require.ErrorAs(t, err, &noTests, "not a test content error")
		assert.Equal(t, 2, noTests.Problem, "not matching problem")
		assert.Equal(t, types.ModeOfficial, noTests.Mode, "not matching mode")
	})

	t.Run("MissingUtilsDir", func(t *testing.T) {
		broken := bundle.NewPackager(filepath.Join(root, "nope"), problems, submissions)
		_, err := broken.Package(ctx, "A1", 1, types.ModeOfficial)

		require.Error(t, err, "somehow packaged a bundle without utilities")
		assert.True(t, errors.Is(err, bundle.ErrMissingUtils), "not the missing utilities error")
	})
}
