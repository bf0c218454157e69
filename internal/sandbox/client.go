package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackcomp/grading-api/internal/types"
)

var tracer = otel.Tracer("github.com/hackcomp/grading-api/internal/sandbox")

// ErrBadReport means the sandbox answered but its stdout was not a
// well-formed test report. Infrastructure fault, never a team fault.
var ErrBadReport = errors.New("malformed sandbox test report")

// StatusError is a non-201 answer from the sandbox.
type StatusError struct {
	Body   string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("sandbox returned status %d, expected 201", e.Status)
}

// reportSchema pins the sandbox's stdout convention as an explicit wire
// contract instead of ad hoc field probing. Bump schema_version alongside any
// shape change on the sandbox harness.
const reportSchema = `{
  "type": "object",
  "required": ["tests"],
  "properties": {
    "schema_version": {"type": "integer"},
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "status"],
        "properties": {
          "name": {"type": "string"},
          "status": {"enum": ["passed", "failed"]},
          "output": {"type": "string"},
          "score": {"type": "number"},
          "max_score": {"type": "number"}
        }
      }
    }
  }
}`

var compiledReportSchema = jsonschema.MustCompileString("report.json", reportSchema)

type submissionRequest struct {
	AdditionalFiles string `json:"additional_files"`
	LanguageID      int    `json:"language_id"`
}

type submissionResponse struct {
	Stdout string `json:"stdout"`
}

type report struct {
	Tests []types.TestOutcome `json:"tests"`
}

// Client performs the one synchronous call to the remote execution service.
// It never retries; retry policy, if any, lives in the http.Client the caller
// injects. A per-call timeout bounds how long a hung sandbox can stall a
// grading run.
type Client struct {
	httpClient *http.Client
	baseURL    string
	languageID int
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, baseURL string, languageID int, timeout time.Duration) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		languageID: languageID,
		timeout:    timeout,
	}
}

// Run submits the encoded archive for synchronous execution and returns the
// parsed per-test outcomes from the sandbox's stdout report.
func (c *Client) Run(ctx context.Context, encodedArchive []byte) ([]types.TestOutcome, error) {
	ctx, span := tracer.Start(ctx, "Client.Run", trace.WithAttributes(
		attribute.Int("archive.encoded_len", len(encodedArchive)),
		attribute.Int("language_id", c.languageID),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(submissionRequest{
		AdditionalFiles: string(encodedArchive),
		LanguageID:      c.languageID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal submission request")
		return nil, fmt.Errorf("failed to marshal submission request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/submissions?wait=true",
		bytes.NewReader(body),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, fmt.Errorf("failed to construct sandbox request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sandbox request failed")
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read sandbox response")
		return nil, fmt.Errorf("failed to read sandbox response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		err := StatusError{Status: resp.StatusCode, Body: string(respBody)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "sandbox returned unexpected status")
		return nil, err
	}

	var envelope submissionResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode sandbox response envelope")
		return nil, fmt.Errorf("%w: bad response envelope: %v", ErrBadReport, err)
	}

	outcomes, err := ParseReport([]byte(envelope.Stdout))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse sandbox report")
		return nil, err
	}

	span.SetAttributes(attribute.Int("tests", len(outcomes)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "ran bundle in sandbox")
	return outcomes, nil
}

// ParseReport validates the stdout document against the report schema and
// decodes its tests array.
func ParseReport(stdout []byte) ([]types.TestOutcome, error) {
	var raw any
	if err := json.Unmarshal(stdout, &raw); err != nil {
		return nil, fmt.Errorf("%w: stdout is not JSON: %v", ErrBadReport, err)
	}

	if err := compiledReportSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReport, err)
	}

	var r report
	if err := json.Unmarshal(stdout, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReport, err)
	}
	if r.Tests == nil {
		return nil, fmt.Errorf("%w: missing tests array", ErrBadReport)
	}

	return r.Tests, nil
}
