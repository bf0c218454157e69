package types

type PingResponse struct {
	Status string `json:"status" validate:"required"`
}

// SubmissionRequest is the body for handing in a solution to one problem.
type SubmissionRequest struct {
	FileContents string `json:"file_contents" validate:"required"`
}

// SubmissionResponse carries the practice run transcript back to the team.
type SubmissionResponse struct {
	Console string `json:"console"`
	Problem int    `json:"problem"`
}

// SubmissionSource is a stored solution as last handed in.
type SubmissionSource struct {
	FileContents string `json:"file_contents"`
	Problem      int    `json:"problem"`
}

type ProblemListResponse struct {
	Problems []int `json:"problems"`
}

// ProblemDetailResponse is the student-facing material for one problem.
type ProblemDetailResponse struct {
	Title   string `json:"title,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Starter string `json:"starter,omitempty"`
	Problem int    `json:"problem"`
}
