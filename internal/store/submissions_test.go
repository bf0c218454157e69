package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/store"
)

func TestSubmissionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		s := store.NewSubmissionStore(t.TempDir())

		require.NoError(
			t,
			s.Write(ctx, "A1", 1, []byte("def solve(): return 1\n")),
			"failed to write submission",
		)

		contents, err := s.Read(ctx, "A1", 1)
		require.NoError(t, err, "failed to read submission")

		assert.Equal(t, []byte("def solve(): return 1\n"), contents, "not matching contents")
	})

	t.Run("ResubmitOverwrites", func(t *testing.T) {
		s := store.NewSubmissionStore(t.TempDir())

		require.NoError(t, s.Write(ctx, "A1", 1, []byte("v1\n")), "failed to write submission")
		require.NoError(t, s.Write(ctx, "A1", 1, []byte("v2\n")), "failed to resubmit")

		contents, err := s.Read(ctx, "A1", 1)
		require.NoError(t, err, "failed to read submission")

		assert.Equal(t, []byte("v2\n"), contents, "resubmission should replace the stored blob")
	})

	t.Run("ReadMissing", func(t *testing.T) {
		s := store.NewSubmissionStore(t.TempDir())

		_, err := s.Read(ctx, "A1", 1)

		require.Error(t, err, "somehow read a submission that was never written")
		assert.ErrorIs(t, err, store.ErrNotFound, "not the not found error")
	})

	t.Run("Teams", func(t *testing.T) {
		s := store.NewSubmissionStore(t.TempDir())

		require.NoError(t, s.Write(ctx, "A1", 1, []byte("x")), "failed to write submission")
		require.NoError(t, s.Write(ctx, "A2", 1, []byte("x")), "failed to write submission")
		require.NoError(t, s.Write(ctx, "A1", 2, []byte("x")), "failed to write submission")

		teams, err := s.Teams(ctx)
		require.NoError(t, err, "failed to list teams")

		assert.ElementsMatch(t, []string{"A1", "A2"}, teams, "not matching teams")
	})

	t.Run("TeamsEmptyRoot", func(t *testing.T) {
		s := store.NewSubmissionStore(t.TempDir() + "/unused")

		teams, err := s.Teams(ctx)
		require.NoError(t, err, "an unused root should not be an error")

		assert.Empty(t, teams, "not matching teams")
	})
}
