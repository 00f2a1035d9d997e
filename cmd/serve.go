package cmd

import (
	"github.com/deploymenttheory/go-gtm-composer/internal/config"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd runs the upload API so a web frontend can post definition
// files instead of shelling out to the CLI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP API that accepts definition file uploads",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Instance

		addr := serveAddr
		if addr == "" {
			addr = cfg.Serve.Addr
		}

		srv := server.New(server.Options{
			Addr:               addr,
			MaxUploadMB:        cfg.Serve.MaxUploadMB,
			AccountID:          cfg.GTM.AccountID,
			ContainerID:        cfg.GTM.ContainerID,
			ServiceAccountFile: cfg.GTM.ServiceAccountFile,
			BaseURL:            cfg.GTM.BaseURL,
			WorkspacePrefix:    cfg.GTM.WorkspacePrefix,
			MaxRetries:         cfg.Client.MaxRetries,
			RetryDelay:         cfg.Client.RetryDelay,
			RequestsPerMinute:  cfg.Client.RequestsPerMinute,
		})

		if err := srv.ListenAndServe(cmd.Context()); err != nil {
			logger.LogError("Upload API stopped", err, nil)
			exitCode = exitFatal
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")

	rootCmd.AddCommand(serveCmd)
}
