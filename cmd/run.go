package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/deploymenttheory/go-gtm-composer/internal/config"
	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/pipeline"
	"github.com/spf13/cobra"
)

// Process exit codes. Scripts key off these to tell a clean run from a
// run that created some resources but not all of them.
const (
	exitSuccess    = 0
	exitFatal      = 1
	exitPartial    = 2
	exitValidation = 3
	exitParse      = 4
)

var (
	inputFile     string
	workspaceName string
	accountID     string
	containerID   string
	templateType  string
	dryRun        bool
	verbose       bool
)

// runCmd replays a definition file into a Tag Manager container
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create the resources from a definition file in a GTM workspace",
	Long: `Parse a JSON or spreadsheet definition file, validate it, and create
its variables, triggers and tags in a Google Tag Manager workspace.

With --dry-run the file is parsed and validated but nothing is sent to
the API. With --workspace the named workspace is reused (created if
absent) and cleared first; otherwise a fresh timestamped workspace is
created for the run.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = runBatch(cmd)
	},
}

func runBatch(cmd *cobra.Command) int {
	cfg := config.Instance

	if containerID == "" {
		containerID = cfg.GTM.ContainerID
	}
	if accountID == "" {
		accountID = cfg.GTM.AccountID
	}

	if verbose {
		logger.LogInfo("Verbose output enabled", nil)
	}

	// Dry runs never touch the API, so missing credentials are fine there.
	if !dryRun {
		if err := config.ValidateCredentials(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFatal
		}
	}

	opts := pipeline.JobOptions{
		InputPath:          inputFile,
		TemplateType:       templateType,
		DryRun:             dryRun,
		AccountID:          accountID,
		ContainerID:        containerID,
		ServiceAccountFile: cfg.GTM.ServiceAccountFile,
		BaseURL:            cfg.GTM.BaseURL,
		WorkspaceName:      workspaceName,
		WorkspacePrefix:    cfg.GTM.WorkspacePrefix,
		MaxRetries:         cfg.Client.MaxRetries,
		RetryDelay:         cfg.Client.RetryDelay,
		RequestsPerMinute:  cfg.Client.RequestsPerMinute,
	}

	result, err := pipeline.ExecuteJob(cmd.Context(), opts)
	if result != nil {
		cmd.Print(pipeline.Report(result))
		if verbose {
			for _, line := range pipeline.StepLines(result) {
				cmd.Println("  " + line)
			}
		}
		return exitCodeFor(result)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, gtmerr.ErrFileNotFound),
		errors.Is(err, gtmerr.ErrUnsupportedFormat),
		errors.Is(err, gtmerr.ErrParse):
		return exitParse
	default:
		return exitFatal
	}
}

func exitCodeFor(r *pipeline.Result) int {
	switch r.Status {
	case pipeline.StatusSuccess, pipeline.StatusDryRun:
		return exitSuccess
	case pipeline.StatusPartial:
		return exitPartial
	case pipeline.StatusValidationFailed:
		return exitValidation
	default:
		return exitFatal
	}
}

func init() {
	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "definition file to replay (.json, .xlsx; optionally .gz/.bz2/.xz)")
	runCmd.Flags().StringVarP(&workspaceName, "workspace", "w", "", "reuse this workspace by name, clearing it first")
	runCmd.Flags().StringVar(&accountID, "account-id", "", "GTM account id (resolved from the container when omitted)")
	runCmd.Flags().StringVar(&containerID, "container-id", "", "GTM container id or GTM-XXXXXXX public id")
	runCmd.Flags().StringVar(&templateType, "template-type", "", "only create resources of this type")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without calling the API")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a per-resource step log")
	runCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
}
