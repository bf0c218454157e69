package audit

import (
	"github.com/hackcomp/grading-api/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtSubmissionReceived  EventType = "submission_received"
	EvtPracticeRun         EventType = "practice_run"
	EvtGradingRunStarted   EventType = "grading_run_started"
	EvtGradingRunCompleted EventType = "grading_run_completed"
	EvtFileArchived        EventType = "file_archived"
)

type Message struct {
	Team          *string     `json:"team"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type SubmissionReceivedEvent struct {
	Problem int   `json:"problem"    validate:"required"`
	Size    int64 `json:"size_bytes" validate:"required"`
}

type SubmissionReceived struct {
	Event SubmissionReceivedEvent `json:"event" validate:"required"`
	Message
}

type PracticeRunEvent struct {
	Problem int  `json:"problem" validate:"required"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
	Graded  bool `json:"graded"`
}

type PracticeRun struct {
	Event PracticeRunEvent `json:"event" validate:"required"`
	Message
}

type GradingRunStartedEvent struct {
	Teams    int `json:"teams"    validate:"required"`
	Problems int `json:"problems" validate:"required"`
}

type GradingRunStarted struct {
	Event GradingRunStartedEvent `json:"event" validate:"required"`
	Message
}

type GradingRunCompletedEvent struct {
	Rows                   int `json:"rows"`
	MissingSubmissions     int `json:"missing_submissions"`
	InfrastructureFailures int `json:"infrastructure_failures"`
}

type GradingRunCompleted struct {
	Event GradingRunCompletedEvent `json:"event" validate:"required"`
	Message
}

type FileArchivedEvent struct {
	BucketName string `json:"bucket_name" validate:"required"`
	ObjectName string `json:"object_name" validate:"required"`
	Kind       string `json:"kind"        validate:"required"`
}

type FileArchived struct {
	Event FileArchivedEvent `json:"event" validate:"required"`
	Message
}
