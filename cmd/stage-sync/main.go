// Command stage-sync synchronizes a remote stage collection and renders,
// publishes or serves the result.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/client"
	"github.com/Sternrassler/stage-sync/pkg/logging"
	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const envPrefix = "STAGESYNC"

func newRootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stage-sync",
		Short: "Stage catalog synchronizer",
		Long: `Synchronize a stage catalog stored in a remote database collection.

Every record of the collection is resolved into a stage (number, title and
tags) and the result is printed, published to Redis or kept fresh by serve.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v); err != nil {
				return err
			}
			return setupLogging(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.stage-sync.yaml)")
	flags.StringP("token", "t", "", "integration token")
	flags.String("base-url", client.DefaultBaseURL, "API base URL")
	flags.Int("concurrency", stages.DefaultMaxConcurrency, "max records resolving in parallel")
	flags.Int("page-size", 0, "collection query page size (0 uses the server default)")
	flags.Duration("timeout", 30*time.Second, "per request timeout")
	flags.String("field-id", "", "property id of the stage number (default \"ID\")")
	flags.String("field-title", "", "property id of the stage title (default \"Name\")")
	flags.String("field-tags", "", "property id of the stage tags (default \"Tags\")")
	flags.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error, disabled)")
	flags.Bool("log-pretty", false, "human readable log output")

	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(newSyncCommand(v))
	rootCmd.AddCommand(newServeCommand(v))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			// Flags and environment still apply without a home directory
			return nil
		}

		// Search config in ~/.stage-sync.yaml
		v.AddConfigPath(home)
		v.SetConfigName(".stage-sync")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func setupLogging(v *viper.Viper) error {
	level, err := logging.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = v.GetBool("log-pretty")
	logging.Setup(cfg)
	return nil
}

// syncerConfig builds the engine configuration from flags, env and config file.
func syncerConfig(v *viper.Viper, token string) stages.Config {
	cfg := stages.DefaultConfig(token)
	if baseURL := v.GetString("base-url"); baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	if timeout := v.GetDuration("timeout"); timeout > 0 {
		cfg.Client.Timeout = timeout
		cfg.Pagination.Timeout = timeout
	}
	cfg.Pagination.PageSize = v.GetInt("page-size")
	cfg.MaxConcurrency = v.GetInt("concurrency")
	cfg.Fields = stages.FieldIDs{
		ID:    v.GetString("field-id"),
		Title: v.GetString("field-title"),
		Tags:  v.GetString("field-tags"),
	}
	return cfg
}

func main() {
	if err := newRootCommand(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
