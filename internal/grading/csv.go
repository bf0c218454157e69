package grading

import (
	"encoding/csv"
	"io"
	"strconv"
)

var ledgerHeader = []string{"Team Number", "Question Number", "Test Name", "Score", "Max Score", "Test Output"}

var totalsHeader = []string{"Team Number", "Score", "Max Score"}

// WriteLedgerCSV exports the per-test ledger. Column names and order are a
// downstream contract; consumers join on them.
func WriteLedgerCSV(w io.Writer, ledger *Ledger) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}

	for _, row := range ledger.Rows {
		record := []string{
			row.Team,
			strconv.Itoa(row.Test.QuestionNum),
			row.Test.TestName,
			formatScore(row.Test.Score),
			formatScore(row.Test.MaxScore),
			row.Test.ConsoleLog,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTotalsCSV exports one scoreboard line per team.
func WriteTotalsCSV(w io.Writer, totals []TeamTotal) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(totalsHeader); err != nil {
		return err
	}

	for _, total := range totals {
		record := []string{
			total.Team,
			formatScore(total.Score),
			formatScore(total.MaxScore),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
