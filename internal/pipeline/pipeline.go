// Package pipeline drives one batch-creation run against a Tag Manager
// workspace: create the workspace, then variables, then triggers (building
// the trigger name->id map), then tags with their trigger references
// resolved through that map. Individual resource failures never abort a
// run; authentication and workspace creation do.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtm"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
)

// ResourceClient is the slice of the GTM client the orchestrator needs.
type ResourceClient interface {
	CreateWorkspace(ctx context.Context, name, description string) (*gtm.Workspace, error)
	GetOrCreateWorkspace(ctx context.Context, name, description string) (*gtm.Workspace, error)
	ClearWorkspace(ctx context.Context) error
	CreateVariable(ctx context.Context, d parser.Descriptor) (string, error)
	CreateTrigger(ctx context.Context, d parser.Descriptor) (string, error)
	CreateTag(ctx context.Context, d parser.Descriptor, firingIDs, blockingIDs []string) (string, error)
	WorkspaceURL() string
}

// ClientFactory authenticates and returns a ready client. It is invoked
// exactly once per run, after validation and never during a dry run.
type ClientFactory func(ctx context.Context) (ResourceClient, error)

// Options configure one run.
type Options struct {
	// WorkspaceName selects an existing workspace by name (creating it if
	// absent) and clears it before replay. When empty a fresh workspace
	// named <prefix>_<timestamp> is created instead.
	WorkspaceName   string
	WorkspacePrefix string
	Description     string
}

// GenerateWorkspaceName builds the timestamped name used when no explicit
// workspace is requested. Second granularity keeps names collision-free
// across sequential runs.
func GenerateWorkspaceName(prefix string) string {
	if prefix == "" {
		prefix = "AutoGen"
	}
	return prefix + "_" + time.Now().Format("20060102_150405")
}

// Run executes the batch-creation state machine over a validated input.
// The returned Result always reflects how far the run got; Run itself
// never returns an error because every failure mode is a first-class
// outcome on the Result.
func Run(ctx context.Context, connect ClientFactory, in *parser.ParsedInput, opts Options) *Result {
	result := &Result{
		RunID:     uuid.NewString(),
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	result.Input.Variables, result.Input.Triggers, result.Input.Tags = in.Counts()

	log := logger.WithField("run_id", result.RunID)
	log.Infow("Starting batch creation",
		"variables", result.Input.Variables,
		"triggers", result.Input.Triggers,
		"tags", result.Input.Tags,
	)

	defer func() {
		result.Duration = time.Since(result.StartedAt)
	}()

	// Idle -> Authenticated
	client, err := connect(ctx)
	if err != nil {
		return fail(result, log, fmt.Errorf("authentication: %w", err))
	}
	result.State = StateAuthenticated

	// Authenticated -> WorkspaceCreated
	var workspace *gtm.Workspace
	if opts.WorkspaceName != "" {
		workspace, err = client.GetOrCreateWorkspace(ctx, opts.WorkspaceName, opts.Description)
		if err == nil {
			err = client.ClearWorkspace(ctx)
		}
	} else {
		workspace, err = client.CreateWorkspace(ctx, GenerateWorkspaceName(opts.WorkspacePrefix), opts.Description)
	}
	if err != nil {
		return fail(result, log, err)
	}
	result.State = StateWorkspaceCreated
	result.WorkspaceName = workspace.Name
	result.WorkspaceID = workspace.WorkspaceID
	result.WorkspaceURL = client.WorkspaceURL()

	// WorkspaceCreated -> VariablesDone
	for _, d := range in.Variables {
		d := d
		result.Variables = append(result.Variables, createItem(log, "variable", d, func() (string, error) {
			return client.CreateVariable(ctx, d)
		}))
	}
	result.State = StateVariablesDone

	// VariablesDone -> TriggersDone. The name->id map is populated only
	// from successful creates so later tag resolution reports missing
	// triggers instead of using absent ids.
	triggerIDs := make(map[string]string, len(in.Triggers))
	for _, d := range in.Triggers {
		d := d
		item := createItem(log, "trigger", d, func() (string, error) {
			return client.CreateTrigger(ctx, d)
		})
		if item.Outcome == OutcomeCreated {
			triggerIDs[d.Name] = item.ID
		}
		result.Triggers = append(result.Triggers, item)
	}
	result.State = StateTriggersDone

	// TriggersDone -> TagsDone. A tag with any unresolvable trigger
	// reference is skipped outright; it must never be created with a
	// partial trigger binding.
	for _, d := range in.Tags {
		firingIDs, missing := resolveTriggerNames(d.FiringTriggerNames, triggerIDs)
		blockingIDs, alsoMissing := resolveTriggerNames(d.BlockingTriggerNames, triggerIDs)
		missing = append(missing, alsoMissing...)

		if len(missing) > 0 {
			reason := "missing trigger: " + strings.Join(missing, ", ")
			log.Warnw("Skipping tag", "tag", d.Name, "reason", reason)
			result.Tags = append(result.Tags, ItemResult{
				Kind: "tag", Name: d.Name, Outcome: OutcomeSkipped, Reason: reason,
			})
			continue
		}

		d := d
		result.Tags = append(result.Tags, createItem(log, "tag", d, func() (string, error) {
			return client.CreateTag(ctx, d, firingIDs, blockingIDs)
		}))
	}
	result.State = StateTagsDone

	// TagsDone -> Finalized
	created, skipped, failed := result.Totals()
	switch {
	case failed == 0 && skipped == 0:
		result.Status = StatusSuccess
	case created > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusFailed
	}
	result.State = StateFinalized

	log.Infow("Batch creation finished",
		"status", string(result.Status),
		"created", created,
		"skipped", skipped,
		"failed", failed,
	)
	return result
}

// fail records a fatal error: the run stops before any resource list is
// attempted and the result reports zero creations.
func fail(result *Result, log *zap.SugaredLogger, err error) *Result {
	result.State = StateFailed
	result.Status = StatusFailed
	result.FatalErr = err
	log.Errorw("Run aborted", "error", err.Error())
	return result
}

// createItem attempts one resource creation and folds the outcome into an
// ItemResult. Failures are recorded, never propagated.
func createItem(log *zap.SugaredLogger, kind string, d parser.Descriptor, create func() (string, error)) ItemResult {
	id, err := create()
	if err != nil {
		log.Errorw("Failed to create "+kind, "name", d.Name, "error", err.Error())
		return ItemResult{Kind: kind, Name: d.Name, Outcome: OutcomeFailed, Err: err}
	}
	log.Debugw("Created "+kind, "name", d.Name, "id", id)
	return ItemResult{Kind: kind, Name: d.Name, Outcome: OutcomeCreated, ID: id}
}

// resolveTriggerNames maps trigger names through the id map, collecting
// any names with no created trigger.
func resolveTriggerNames(names []string, ids map[string]string) (resolved, missing []string) {
	for _, name := range names {
		if id, ok := ids[name]; ok {
			resolved = append(resolved, id)
		} else {
			missing = append(missing, name)
		}
	}
	return resolved, missing
}
