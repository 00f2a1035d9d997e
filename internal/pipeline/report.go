package pipeline

import (
	"fmt"
	"strings"
)

// Report formats a finished run into the human-readable summary printed
// by the CLI. Pure formatting; everything it shows was computed by Run.
func Report(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s (took %.2fs)\n", r.Status, r.Duration.Seconds())

	if r.Status == StatusValidationFailed {
		fmt.Fprintf(&b, "Validation errors: %d\n", len(r.ValidationErrors))
		for _, err := range r.ValidationErrors {
			fmt.Fprintf(&b, "  - %s\n", err.Error())
		}
		return b.String()
	}

	if r.Status == StatusDryRun {
		fmt.Fprintf(&b, "Parsed => Variables: %d, Triggers: %d, Tags: %d\n",
			r.Input.Variables, r.Input.Triggers, r.Input.Tags)
		b.WriteString("Dry run completed - no resources created\n")
		return b.String()
	}

	vc, vs, vf := CountOutcomes(r.Variables)
	tc, ts, tf := CountOutcomes(r.Triggers)
	gc, gs, gf := CountOutcomes(r.Tags)
	fmt.Fprintf(&b, "Variables => created: %d, skipped: %d, failed: %d\n", vc, vs, vf)
	fmt.Fprintf(&b, "Triggers  => created: %d, skipped: %d, failed: %d\n", tc, ts, tf)
	fmt.Fprintf(&b, "Tags      => created: %d, skipped: %d, failed: %d\n", gc, gs, gf)

	if r.WorkspaceName != "" {
		fmt.Fprintf(&b, "Workspace => %s (ID: %s)\n", r.WorkspaceName, r.WorkspaceID)
	}
	if r.WorkspaceURL != "" {
		fmt.Fprintf(&b, "Workspace URL: %s\n", r.WorkspaceURL)
	}

	if r.FatalErr != nil {
		fmt.Fprintf(&b, "Fatal error: %s\n", r.FatalErr.Error())
	}

	if failures := failureLines(r); len(failures) > 0 {
		fmt.Fprintf(&b, "Problems: %d\n", len(failures))
		for _, line := range failures {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}

	return b.String()
}

// StepLines flattens a run into one line per event, in execution order.
// The upload API returns these verbatim; URLs appear as bare lines so a
// frontend can render them as links.
func StepLines(r *Result) []string {
	var lines []string

	switch r.Status {
	case StatusValidationFailed:
		for _, err := range r.ValidationErrors {
			lines = append(lines, "validation error: "+err.Error())
		}
		return lines
	case StatusDryRun:
		lines = append(lines, fmt.Sprintf("parsed %d variable(s), %d trigger(s), %d tag(s)",
			r.Input.Variables, r.Input.Triggers, r.Input.Tags))
		lines = append(lines, "dry run completed - no resources created")
		return lines
	}

	if r.FatalErr != nil {
		lines = append(lines, "fatal: "+r.FatalErr.Error())
		return lines
	}

	if r.WorkspaceName != "" {
		lines = append(lines, fmt.Sprintf("workspace %q ready (ID %s)", r.WorkspaceName, r.WorkspaceID))
	}
	for _, items := range [][]ItemResult{r.Variables, r.Triggers, r.Tags} {
		for _, item := range items {
			lines = append(lines, itemLine(item))
		}
	}
	lines = append(lines, "status: "+string(r.Status))
	if r.WorkspaceURL != "" {
		lines = append(lines, r.WorkspaceURL)
	}
	return lines
}

func itemLine(item ItemResult) string {
	switch item.Outcome {
	case OutcomeCreated:
		return fmt.Sprintf("created %s %q (ID %s)", item.Kind, item.Name, item.ID)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped %s %q: %s", item.Kind, item.Name, item.Reason)
	default:
		return fmt.Sprintf("failed %s %q: %s", item.Kind, item.Name, item.Err.Error())
	}
}

// failureLines collects every non-created outcome for the summary.
func failureLines(r *Result) []string {
	var lines []string
	for _, items := range [][]ItemResult{r.Variables, r.Triggers, r.Tags} {
		for _, item := range items {
			if item.Outcome != OutcomeCreated {
				lines = append(lines, itemLine(item))
			}
		}
	}
	return lines
}
