package main

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-gtm-composer/cmd"
	"github.com/deploymenttheory/go-gtm-composer/internal/config"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
)

func main() {
	// Get app configuration file from environment if specified
	configFile := os.Getenv("GTM_COMPOSER_CONFIG")

	// 1. Initialize application configuration
	if err := config.Initialize(configFile); err != nil {
		// Config errors are fatal since nothing downstream can run
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logging based on application configuration
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	code := cmd.Execute()

	// Ensure logs are flushed before exit
	logger.Sync()
	os.Exit(code)
}

// initLogging initializes the logger based on configuration settings
func initLogging() error {
	logConfig := logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}

	return logger.InitLogger(logConfig)
}
