package pipeline

import (
	"time"

	"github.com/deploymenttheory/go-gtm-composer/internal/schema"
)

// State tracks the run through its fixed phase ordering. Failed is
// reachable only before the first resource creation: authentication and
// workspace creation are fatal, per-item failures are not.
type State string

const (
	StateIdle             State = "IDLE"
	StateAuthenticated    State = "AUTHENTICATED"
	StateWorkspaceCreated State = "WORKSPACE_CREATED"
	StateVariablesDone    State = "VARIABLES_DONE"
	StateTriggersDone     State = "TRIGGERS_DONE"
	StateTagsDone         State = "TAGS_DONE"
	StateFinalized        State = "FINALIZED"
	StateFailed           State = "FAILED"
)

// Status is the aggregate outcome of a run.
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusPartial          Status = "PARTIAL"
	StatusFailed           Status = "FAILED"
	StatusDryRun           Status = "DRY_RUN"
	StatusValidationFailed Status = "VALIDATION_FAILED"
)

// Outcome is the per-item result kind.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ItemResult records what happened to one descriptor. Exactly one of ID,
// Reason and Err is meaningful, selected by Outcome.
type ItemResult struct {
	Kind    string // "variable", "trigger" or "tag"
	Name    string
	Outcome Outcome
	ID      string // server-assigned id when created
	Reason  string // human-readable reason when skipped
	Err     error  // creation error when failed
}

// InputCounts are the parsed descriptor counts per resource kind.
type InputCounts struct {
	Variables int
	Triggers  int
	Tags      int
}

// Result accumulates everything one pipeline run produced. It is built
// incrementally by Run, immutable once the run finishes, and consumed by
// the reporter.
type Result struct {
	RunID  string
	State  State
	Status Status

	WorkspaceName string
	WorkspaceID   string
	WorkspaceURL  string

	Input     InputCounts
	Variables []ItemResult
	Triggers  []ItemResult
	Tags      []ItemResult

	// FatalErr is set when the run never reached resource creation.
	FatalErr error

	// ValidationErrors is populated instead of any remote activity when
	// the input failed validation.
	ValidationErrors []schema.ValidationError

	StartedAt time.Time
	Duration  time.Duration
}

// CountOutcomes tallies created/skipped/failed across one item list.
func CountOutcomes(items []ItemResult) (created, skipped, failed int) {
	for _, item := range items {
		switch item.Outcome {
		case OutcomeCreated:
			created++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return created, skipped, failed
}

// Totals tallies outcomes across all three resource kinds.
func (r *Result) Totals() (created, skipped, failed int) {
	for _, items := range [][]ItemResult{r.Variables, r.Triggers, r.Tags} {
		c, s, f := CountOutcomes(items)
		created += c
		skipped += s
		failed += f
	}
	return created, skipped, failed
}
