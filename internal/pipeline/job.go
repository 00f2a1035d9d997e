package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtm"
	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
	"github.com/deploymenttheory/go-gtm-composer/internal/schema"
)

// JobOptions describe one end-to-end invocation: parse, validate, then
// (unless DryRun) authenticate and replay. Shared by the CLI and the
// upload API.
type JobOptions struct {
	InputPath    string
	TemplateType string // when set, only resources of this type are replayed
	DryRun       bool

	AccountID          string
	ContainerID        string // numeric id or GTM-XXXXXXX public id
	ServiceAccountFile string
	BaseURL            string

	WorkspaceName   string // reuse-by-name mode; empty means fresh workspace
	WorkspacePrefix string
	Description     string

	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int

	// Connect overrides client construction. Nil selects the real GTM
	// client built from the fields above.
	Connect ClientFactory
}

// ExecuteJob runs the whole pipeline. The error return covers failures
// before the batch run exists (parse, validation, missing configuration);
// once a Result is produced, every later failure lives on the Result.
func ExecuteJob(ctx context.Context, opts JobOptions) (*Result, error) {
	in, err := parser.Parse(opts.InputPath)
	if err != nil {
		return nil, err
	}

	if opts.TemplateType != "" {
		logger.LogInfo("Filtering input by template type", map[string]interface{}{
			"template_type": opts.TemplateType,
		})
		in = in.FilterByType(opts.TemplateType)
	}

	variables, triggers, tags := in.Counts()
	logger.LogInfo("Input file parsed", map[string]interface{}{
		"file":      opts.InputPath,
		"variables": variables,
		"triggers":  triggers,
		"tags":      tags,
	})

	if errs := schema.Validate(in); len(errs) > 0 {
		result := &Result{
			Status:           StatusValidationFailed,
			State:            StateIdle,
			ValidationErrors: errs,
		}
		result.Input.Variables, result.Input.Triggers, result.Input.Tags = in.Counts()
		return result, fmt.Errorf("%w: %d error(s)", gtmerr.ErrValidation, len(errs))
	}

	if opts.DryRun {
		result := &Result{Status: StatusDryRun, State: StateFinalized}
		result.Input.Variables, result.Input.Triggers, result.Input.Tags = in.Counts()
		return result, nil
	}

	connect := opts.Connect
	if connect == nil {
		if opts.ContainerID == "" && opts.AccountID == "" {
			return nil, fmt.Errorf("%w: no GTM container id provided; pass --container-id or set gtm.container_id",
				gtmerr.ErrConfigInvalid)
		}
		connect = gtmClientFactory(opts)
	}

	return Run(ctx, connect, in, Options{
		WorkspaceName:   opts.WorkspaceName,
		WorkspacePrefix: opts.WorkspacePrefix,
		Description:     opts.Description,
	}), nil
}

// gtmClientFactory authenticates against the Tag Manager API and, when no
// account id is configured, resolves it from the container identifier.
func gtmClientFactory(opts JobOptions) ClientFactory {
	return func(ctx context.Context) (ResourceClient, error) {
		client, err := gtm.NewClient(ctx, gtm.ClientConfig{
			ServiceAccountFile: opts.ServiceAccountFile,
			AccountID:          opts.AccountID,
			ContainerID:        opts.ContainerID,
			BaseURL:            opts.BaseURL,
			MaxRetries:         opts.MaxRetries,
			RetryDelay:         opts.RetryDelay,
			RequestsPerMinute:  opts.RequestsPerMinute,
		})
		if err != nil {
			return nil, err
		}

		if opts.AccountID == "" {
			if _, _, err := client.ResolveContainer(ctx, opts.ContainerID); err != nil {
				return nil, err
			}
		}
		return client, nil
	}
}
