package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/types"
)

func seedProblem(t *testing.T, root string, problem int, files map[string][]byte) {
	t.Helper()

	dir := filepath.Join(root, fmt.Sprintf("q%d", problem))
	require.NoError(t, os.MkdirAll(dir, 0o755), "failed to create problem directory")
	for name, contents := range files {
		require.NoError(
			t,
			os.WriteFile(filepath.Join(dir, name), contents, 0o644),
			"failed to write problem file",
		)
	}
}

func TestProblemStore(t *testing.T) {
	ctx := context.Background()

	t.Run("TestSourcePerMode", func(t *testing.T) {
		root := t.TempDir()
		seedProblem(t, root, 1, map[string][]byte{
			store.OfficialTestFile: []byte("@weight(1)\n"),
			store.PracticeTestFile: []byte("# demo\n"),
		})

		p := store.NewProblemStore(root, "")

		official, err := p.TestSource(ctx, 1, types.ModeOfficial)
		require.NoError(t, err, "failed to read official source")
		assert.Equal(t, []byte("@weight(1)\n"), official, "not matching official source")

		practice, err := p.TestSource(ctx, 1, types.ModePractice)
		require.NoError(t, err, "failed to read practice source")
		assert.Equal(t, []byte("# demo\n"), practice, "not matching practice source")
	})

	t.Run("TestSourceMissing", func(t *testing.T) {
		p := store.NewProblemStore(t.TempDir(), "")

		_, err := p.TestSource(ctx, 1, types.ModeOfficial)

		require.Error(t, err, "somehow read a source that does not exist")
		assert.ErrorIs(t, err, store.ErrNotFound, "not the not found error")
	})

	t.Run("NumbersSortedAndFiltered", func(t *testing.T) {
		root := t.TempDir()
		seedProblem(t, root, 3, nil)
		seedProblem(t, root, 1, nil)
		require.NoError(t, os.MkdirAll(filepath.Join(root, "scratch"), 0o755), "failed to create decoy dir")
		require.NoError(t, os.WriteFile(filepath.Join(root, "q9.txt"), nil, 0o644), "failed to create decoy file")

		p := store.NewProblemStore(root, "")

		numbers, err := p.Numbers(ctx)
		require.NoError(t, err, "failed to list problems")

		assert.Equal(t, []int{1, 3}, numbers, "not matching numbers")

		count, err := p.Count(ctx)
		require.NoError(t, err, "failed to count problems")
		assert.Equal(t, 2, count, "not matching count")
	})

	t.Run("CreateBlank", func(t *testing.T) {
		root := t.TempDir()
		p := store.NewProblemStore(root, "")

		first, err := p.Create(ctx)
		require.NoError(t, err, "failed to create problem")
		assert.Equal(t, 1, first, "first problem should be 1")

		second, err := p.Create(ctx)
		require.NoError(t, err, "failed to create second problem")
		assert.Equal(t, 2, second, "numbers should be sequential")

		for _, name := range []string{
			store.PromptFile,
			store.StarterFile,
			store.OfficialTestFile,
			store.PracticeTestFile,
		} {
			assert.FileExists(t, filepath.Join(root, "q1", name), "missing default file")
		}
	})

	t.Run("CreateFromTemplate", func(t *testing.T) {
		template := t.TempDir()
		require.NoError(
			t,
			os.WriteFile(filepath.Join(template, store.OfficialTestFile), []byte("@weight(1)\n"), 0o644),
			"failed to write template file",
		)

		root := t.TempDir()
		p := store.NewProblemStore(root, template)

		problem, err := p.Create(ctx)
		require.NoError(t, err, "failed to create problem from template")

		contents, err := p.TestSource(ctx, problem, types.ModeOfficial)
		require.NoError(t, err, "failed to read seeded source")
		assert.Equal(t, []byte("@weight(1)\n"), contents, "not matching template contents")
	})

	t.Run("Manifest", func(t *testing.T) {
		root := t.TempDir()
		seedProblem(t, root, 1, map[string][]byte{
			"problem.yaml": []byte("title: Two Sum\nlanguage_id: 71\n"),
		})
		seedProblem(t, root, 2, nil)

		p := store.NewProblemStore(root, "")

		m, err := p.Manifest(ctx, 1)
		require.NoError(t, err, "failed to read manifest")
		assert.Equal(t, "Two Sum", m.Title, "not matching title")
		require.NotNil(t, m.LanguageID, "missing language override")
		assert.Equal(t, 71, *m.LanguageID, "not matching language override")

		missing, err := p.Manifest(ctx, 2)
		require.NoError(t, err, "an absent manifest should not be an error")
		assert.Empty(t, missing.Title, "absent manifest should be zero valued")
		assert.Nil(t, missing.LanguageID, "absent manifest should be zero valued")
	})
}
