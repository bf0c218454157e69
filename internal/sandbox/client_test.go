package sandbox_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/sandbox"
	"github.com/hackcomp/grading-api/internal/types"
)

func reportBody(t *testing.T, stdout string) string {
	t.Helper()
	body, err := json.Marshal(map[string]string{"stdout": stdout})
	require.NoError(t, err, "failed to marshal response fixture")
	return string(body)
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("NoError", func(t *testing.T) {
		stdout := `{"tests": [` +
			`{"name": "test_add (test_cases.Test)", "status": "passed", "score": 1, "max_score": 1},` +
			`{"name": "test_sub (test_cases.Test)", "status": "failed", "output": "boom\n"}` +
			`]}`

		var gotPath, gotQuery string
		var gotRequest struct {
			AdditionalFiles string `json:"additional_files"`
			LanguageID      int    `json:"language_id"`
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query().Get("wait")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest), "failed to decode request")

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(reportBody(t, stdout)))
		}))
		defer server.Close()

		client := sandbox.NewClient(server.Client(), server.URL, 89, time.Minute)
		outcomes, err := client.Run(ctx, []byte("ZmFrZSBhcmNoaXZl"))

		require.NoError(t, err, "failed to run bundle")

		assert.Equal(t, "/submissions", gotPath, "not matching path")
		assert.Equal(t, "true", gotQuery, "missing wait flag")
		assert.Equal(t, "ZmFrZSBhcmNoaXZl", gotRequest.AdditionalFiles, "not matching archive payload")
		assert.Equal(t, 89, gotRequest.LanguageID, "not matching language id")

		require.Len(t, outcomes, 2, "unexpected outcome count")
		assert.Equal(t, types.TestStatusPassed, outcomes[0].Status, "not matching status")
		require.NotNil(t, outcomes[0].Score, "passed test should carry a score")
		assert.InDelta(t, 1.0, *outcomes[0].Score, 1e-9, "not matching score")
		assert.Equal(t, types.TestStatusFailed, outcomes[1].Status, "not matching status")
		assert.Equal(t, "boom\n", outcomes[1].Output, "not matching output")
	})

	t.Run("UnexpectedStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := sandbox.NewClient(server.Client(), server.URL, 89, time.Minute)
		_, err := client.Run(ctx, []byte("ZmFrZQ=="))

		require.Error(t, err, "somehow ran against an unavailable sandbox")

		var statusErr sandbox.StatusError
		require.ErrorAs(t, err, &statusErr, "not a status error")
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status, "not matching status")
	})

	t.Run("StdoutNotJSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(reportBody(t, "Traceback (most recent call last):\n")))
		}))
		defer server.Close()

		client := sandbox.NewClient(server.Client(), server.URL, 89, time.Minute)
		_, err := client.Run(ctx, []byte("ZmFrZQ=="))

		require.Error(t, err, "somehow parsed non-JSON stdout")
		assert.ErrorIs(t, err, sandbox.ErrBadReport, "not the bad report error")
	})

	t.Run("StdoutFailsSchema", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(reportBody(t, `{"tests": [{"name": "t", "status": "exploded"}]}`)))
		}))
		defer server.Close()

		client := sandbox.NewClient(server.Client(), server.URL, 89, time.Minute)
		_, err := client.Run(ctx, []byte("ZmFrZQ=="))

		require.Error(t, err, "somehow accepted an unknown test status")
		assert.ErrorIs(t, err, sandbox.ErrBadReport, "not the bad report error")
	})
}

func TestParseReport(t *testing.T) {
	t.Run("EmptyTests", func(t *testing.T) {
		outcomes, err := sandbox.ParseReport([]byte(`{"tests": []}`))

		require.NoError(t, err, "failed to parse empty report")

		assert.Empty(t, outcomes, "not matching outcomes")
	})

	t.Run("MissingTests", func(t *testing.T) {
		_, err := sandbox.ParseReport([]byte(`{"schema_version": 1}`))

		require.Error(t, err, "somehow parsed a report without tests")
		assert.ErrorIs(t, err, sandbox.ErrBadReport, "not the bad report error")
	})
}
