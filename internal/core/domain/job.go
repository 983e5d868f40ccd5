package domain

import "time"

// SubJobStatus is the lifecycle state of one generation sub-job.
type SubJobStatus string

const (
	// SubJobProcessing means the sub-job is queued or running.
	SubJobProcessing SubJobStatus = "processing"

	// SubJobCompleted means the sub-job finished and its results are final.
	SubJobCompleted SubJobStatus = "completed"

	// SubJobFailed means the sub-job's work returned an error. The
	// failure is recorded on the sub-job only and never aborts siblings.
	SubJobFailed SubJobStatus = "failed"

	// SubJobCancelled means the batch was cancelled before the sub-job
	// started. In-flight sub-jobs are never cancelled mid-run.
	SubJobCancelled SubJobStatus = "cancelled"
)

// SubJobInput is the material one generation sub-job works on,
// typically one specification page.
type SubJobInput struct {
	// SourceID identifies the page or document the input came from.
	SourceID string `json:"source_id"`

	// SourceName is the human-readable source title.
	SourceName string `json:"source_name,omitempty"`

	// SpecText is the change specification text to generate from.
	SpecText string `json:"spec_text"`

	// Requirements are the parsed requirement records, when available.
	Requirements []Requirement `json:"requirements,omitempty"`
}

// SubJob is one independent generation task within a batch. A sub-job
// is mutated only by the worker that owns it and by the scheduler on
// completion; two workers never share a sub-job.
type SubJob struct {
	ID         string       `json:"id"`
	BatchID    string       `json:"batch_id"`
	Status     SubJobStatus `json:"status"`
	Input      SubJobInput  `json:"input"`
	Results    []Scenario   `json:"results,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at,omitzero"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

// BatchState is the lifecycle state of a batch job.
type BatchState string

const (
	// BatchProcessing means sub-jobs are still pending or running.
	BatchProcessing BatchState = "processing"

	// BatchCompleted means every sub-job completed.
	BatchCompleted BatchState = "completed"

	// BatchFailed means every sub-job failed, or a fatal pipeline error
	// occurred outside per-job scope.
	BatchFailed BatchState = "failed"

	// BatchPartial means some sub-jobs completed and some failed.
	// Partial success is a first-class terminal state.
	BatchPartial BatchState = "partial"
)

// AggregationResult is the outcome of one aggregation level
// (module or project).
type AggregationResult struct {
	// Level is "page", "module" or "project".
	Level string `json:"level"`

	// TargetID identifies the module or project that was aggregated.
	TargetID string `json:"target_id,omitempty"`

	// TotalScenarios is len(Scenarios). Zero with a completed status is
	// valid: it means the provider produced nothing usable.
	TotalScenarios int `json:"total_scenarios"`

	// Scenarios are the generated cross-cutting scenarios.
	Scenarios []Scenario `json:"scenarios"`

	// SourceCount is how many deduplicated source scenarios fed the
	// generation request.
	SourceCount int `json:"source_count"`

	// DuplicatesRemoved is how many near-duplicate sources were
	// collapsed before generation.
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// BatchJob owns a set of sub-jobs plus the optional aggregation output.
// Lifecycle: processing -> {completed | failed | partial}; terminal once
// all sub-jobs resolve or a fatal error occurs.
type BatchJob struct {
	ID                 string              `json:"id"`
	SubJobIDs          []string            `json:"sub_job_ids"`
	Status             BatchState          `json:"status"`
	Error              string              `json:"error,omitempty"`
	AggregationResults []AggregationResult `json:"aggregation_results,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// BatchProgress summarises sub-job states for status reporting.
type BatchProgress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"in_progress"`
}

// BatchStatus is the consumer-facing view of a batch.
type BatchStatus struct {
	BatchID            string              `json:"batch_id"`
	Status             BatchState          `json:"status"`
	Progress           BatchProgress       `json:"progress"`
	SubJobs            []SubJob            `json:"sub_jobs"`
	AggregationResults []AggregationResult `json:"aggregation_results,omitempty"`
}
