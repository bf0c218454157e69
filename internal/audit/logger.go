// Package audit emits competition audit events as single line JSON records on
// stdout, separate from the diagnostic slog stream on stderr.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/types"
)

type Context struct {
	Team *string
}

func fill(m *Message, c Context, t EventType, disp Disposition) {
	m.Type = t
	m.LogContext = logContext
	m.SchemaVersion = schemaVersion
	m.Timestamp = types.UnixMilli(time.Now().UTC().UnixMilli())
	m.Team = c.Team
	m.Disposition = disp
}

func emit(event any, eventType EventType) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize audit event", "eventType", eventType)
		return
	}

	fmt.Println(string(evtStr))
}

func LogSubmissionReceived(c Context, problem int, size int64) {
	event := SubmissionReceived{}
	fill(&event.Message, c, EvtSubmissionReceived, DispositionNeutral)

	event.Event.Problem = problem
	event.Event.Size = size

	emit(event, EvtSubmissionReceived)
}

func LogPracticeRun(c Context, problem, passed, failed int, graded bool) {
	disp := DispositionGood
	if failed > 0 || !graded {
		disp = DispositionBad
	}

	event := PracticeRun{}
	fill(&event.Message, c, EvtPracticeRun, disp)

	event.Event.Problem = problem
	event.Event.Passed = passed
	event.Event.Failed = failed
	event.Event.Graded = graded

	emit(event, EvtPracticeRun)
}

func LogGradingRunStarted(c Context, teams, problems int) {
	event := GradingRunStarted{}
	fill(&event.Message, c, EvtGradingRunStarted, DispositionNeutral)

	event.Event.Teams = teams
	event.Event.Problems = problems

	emit(event, EvtGradingRunStarted)
}

func LogGradingRunCompleted(c Context, rows, missingSubmissions, infrastructureFailures int) {
	disp := DispositionGood
	if infrastructureFailures > 0 {
		disp = DispositionBad
	}

	event := GradingRunCompleted{}
	fill(&event.Message, c, EvtGradingRunCompleted, disp)

	event.Event.Rows = rows
	event.Event.MissingSubmissions = missingSubmissions
	event.Event.InfrastructureFailures = infrastructureFailures

	emit(event, EvtGradingRunCompleted)
}

func LogFileArchived(c Context, bucketName, objectName, kind string) {
	event := FileArchived{}
	fill(&event.Message, c, EvtFileArchived, DispositionNeutral)

	event.Event.BucketName = bucketName
	event.Event.ObjectName = objectName
	event.Event.Kind = kind

	emit(event, EvtFileArchived)
}
