package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "gtm-composer"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "GTM_COMPOSER"

	// TagManagerScope is the OAuth scope required to edit container workspaces
	TagManagerScope = "https://www.googleapis.com/auth/tagmanager.edit.containers"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// GTM settings
	GTM struct {
		AccountID          string `mapstructure:"account_id"`
		ContainerID        string `mapstructure:"container_id"`
		ServiceAccountFile string `mapstructure:"service_account_file"`
		WorkspacePrefix    string `mapstructure:"workspace_prefix"`
		BaseURL            string `mapstructure:"base_url"`
	} `mapstructure:"gtm"`

	// Client settings
	Client struct {
		MaxRetries        int           `mapstructure:"max_retries"`
		RetryDelay        time.Duration `mapstructure:"retry_delay"`
		RequestsPerMinute int           `mapstructure:"requests_per_minute"`
		RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"client"`

	// Serve settings for the upload API
	Serve struct {
		Addr        string `mapstructure:"addr"`
		MaxUploadMB int64  `mapstructure:"max_upload_mb"`
	} `mapstructure:"serve"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		v = viper.New()

		setDefaults(v)

		// Load configuration from file if specified
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")
			addSearchPaths(v)
		}

		// Set up environment variables
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		// Read configuration file
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				// Only capture error if the config file was found but couldn't be read
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			// Config file not found, using defaults and environment variables
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		// Unmarshal config into struct
		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
			return
		}
	})

	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	// GTM defaults
	v.SetDefault("gtm.account_id", "")
	v.SetDefault("gtm.container_id", "")
	v.SetDefault("gtm.service_account_file", "config/service_account.json")
	v.SetDefault("gtm.workspace_prefix", "AutoGen")
	v.SetDefault("gtm.base_url", "https://tagmanager.googleapis.com/tagmanager/v2")

	// Client defaults; the Tag Manager API enforces a per-container quota
	// of roughly 15 requests per minute
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.retry_delay", 5*time.Second)
	v.SetDefault("client.requests_per_minute", 15)
	v.SetDefault("client.request_timeout", 30*time.Second)

	// Serve defaults
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.max_upload_mb", 16)
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	// Add user config directory
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(userConfigDir, AppName))
	}

	// Add system-wide config directory
	v.AddConfigPath("/etc/" + AppName)
}

// ValidateCredentials checks that the service account file is in place.
// Account and container ids can instead arrive on the command line or be
// resolved from a container public id, so they are validated separately.
func ValidateCredentials() error {
	if Instance.GTM.ServiceAccountFile == "" {
		return fmt.Errorf("%w: gtm.service_account_file is not set", gtmerr.ErrConfigInvalid)
	}
	if _, err := os.Stat(Instance.GTM.ServiceAccountFile); err != nil {
		return fmt.Errorf("%w: service account file not found: %s",
			gtmerr.ErrConfigInvalid, Instance.GTM.ServiceAccountFile)
	}
	return nil
}
