package grading_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackcomp/grading-api/internal/grading"
	"github.com/hackcomp/grading-api/internal/types"
)

func TestWriteLedgerCSV(t *testing.T) {
	ledger := &grading.Ledger{Rows: []grading.LedgerRow{
		{Team: "A1", Test: types.ScoredTest{
			TestName:    "test_add (test_cases.Test)",
			ConsoleLog:  "Passed",
			QuestionNum: 1,
			Score:       1,
			MaxScore:    1,
		}},
		{Team: "A2", Test: types.ScoredTest{
			TestName:    "Question 1 Tests",
			ConsoleLog:  "Failed to Run Grader: team A2 did not submit problem 1",
			QuestionNum: 1,
			Score:       0,
			MaxScore:    2.5,
		}},
	}}

	var buf bytes.Buffer
	require.NoError(t, grading.WriteLedgerCSV(&buf, ledger), "failed to write ledger")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err, "export is not valid CSV")

	require.Len(t, records, 3, "unexpected record count")
	assert.Equal(
		t,
		[]string{"Team Number", "Question Number", "Test Name", "Score", "Max Score", "Test Output"},
		records[0],
		"not matching header",
	)
	assert.Equal(
		t,
		[]string{"A1", "1", "test_add (test_cases.Test)", "1", "1", "Passed"},
		records[1],
		"not matching passed row",
	)
	assert.Equal(
		t,
		[]string{
			"A2",
			"1",
			"Question 1 Tests",
			"0",
			"2.5",
			"Failed to Run Grader: team A2 did not submit problem 1",
		},
		records[2],
		"not matching zero row",
	)
}

func TestWriteTotalsCSV(t *testing.T) {
	totals := []grading.TeamTotal{
		{Team: "A1", Score: 2, MaxScore: 4},
		{Team: "A2", Score: 0.5, MaxScore: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, grading.WriteTotalsCSV(&buf, totals), "failed to write totals")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err, "export is not valid CSV")

	require.Len(t, records, 3, "unexpected record count")
	assert.Equal(t, []string{"Team Number", "Score", "Max Score"}, records[0], "not matching header")
	assert.Equal(t, []string{"A1", "2", "4"}, records[1], "not matching row")
	assert.Equal(t, []string{"A2", "0.5", "4"}, records[2], "not matching row")
}
