package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-gtm-composer/internal/schema"
)

func sampleResult() *Result {
	r := &Result{
		RunID:         "run-1",
		State:         StateFinalized,
		Status:        StatusPartial,
		WorkspaceName: "AutoGen_20240101_000000",
		WorkspaceID:   "7",
		WorkspaceURL:  "https://tagmanager.google.com/#/container/accounts/1/containers/2/workspaces/7",
		Duration:      1500 * time.Millisecond,
		Variables: []ItemResult{
			{Kind: "variable", Name: "GA ID", Outcome: OutcomeCreated, ID: "1"},
		},
		Triggers: []ItemResult{
			{Kind: "trigger", Name: "All Pages", Outcome: OutcomeCreated, ID: "2"},
			{Kind: "trigger", Name: "Purchase", Outcome: OutcomeFailed, Err: errors.New("invalid trigger")},
		},
		Tags: []ItemResult{
			{Kind: "tag", Name: "T1", Outcome: OutcomeCreated, ID: "3"},
			{Kind: "tag", Name: "T2", Outcome: OutcomeSkipped, Reason: "missing trigger: Purchase"},
		},
	}
	r.Input.Variables, r.Input.Triggers, r.Input.Tags = 1, 2, 2
	return r
}

func TestReportPartialRun(t *testing.T) {
	out := Report(sampleResult())

	assert.Contains(t, out, "Status: PARTIAL")
	assert.Contains(t, out, "Variables => created: 1, skipped: 0, failed: 0")
	assert.Contains(t, out, "Triggers  => created: 1, skipped: 0, failed: 1")
	assert.Contains(t, out, "Tags      => created: 1, skipped: 1, failed: 0")
	assert.Contains(t, out, "Workspace => AutoGen_20240101_000000 (ID: 7)")
	assert.Contains(t, out, "Problems: 2")
	assert.Contains(t, out, `failed trigger "Purchase": invalid trigger`)
	assert.Contains(t, out, `skipped tag "T2": missing trigger: Purchase`)
}

func TestReportValidationFailure(t *testing.T) {
	r := &Result{
		Status: StatusValidationFailed,
		ValidationErrors: []schema.ValidationError{
			{Kind: "tag", Name: "Orphan", Field: "firingTriggerNames", Message: `references non-existent trigger "Ghost"`},
		},
	}
	out := Report(r)

	assert.Contains(t, out, "Status: VALIDATION_FAILED")
	assert.Contains(t, out, "Validation errors: 1")
	assert.Contains(t, out, "Ghost")
	assert.NotContains(t, out, "Variables =>")
}

func TestReportDryRun(t *testing.T) {
	r := &Result{Status: StatusDryRun}
	r.Input.Variables, r.Input.Triggers, r.Input.Tags = 2, 3, 4
	out := Report(r)

	assert.Contains(t, out, "Parsed => Variables: 2, Triggers: 3, Tags: 4")
	assert.Contains(t, out, "no resources created")
}

func TestReportFatalError(t *testing.T) {
	r := &Result{
		Status:   StatusFailed,
		State:    StateFailed,
		FatalErr: errors.New("authentication: bad credentials"),
	}
	out := Report(r)

	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "Fatal error: authentication: bad credentials")
}

func TestStepLinesOrder(t *testing.T) {
	lines := StepLines(sampleResult())
	require.Len(t, lines, 8)

	assert.Equal(t, `workspace "AutoGen_20240101_000000" ready (ID 7)`, lines[0])
	assert.Equal(t, `created variable "GA ID" (ID 1)`, lines[1])
	assert.Equal(t, `created trigger "All Pages" (ID 2)`, lines[2])
	assert.Equal(t, `failed trigger "Purchase": invalid trigger`, lines[3])
	assert.Equal(t, `created tag "T1" (ID 3)`, lines[4])
	assert.Equal(t, `skipped tag "T2": missing trigger: Purchase`, lines[5])
	assert.Equal(t, "status: PARTIAL", lines[6])
	assert.Equal(t, sampleResult().WorkspaceURL, lines[7])
}

func TestStepLinesFatal(t *testing.T) {
	r := &Result{Status: StatusFailed, FatalErr: errors.New("boom")}
	lines := StepLines(r)
	require.Len(t, lines, 1)
	assert.Equal(t, "fatal: boom", lines[0])
}
