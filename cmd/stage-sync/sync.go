package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/Sternrassler/stage-sync/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// stdin is read for the token prompt.
var stdin = os.Stdin

var errNoToken = errors.New("no token configured (use --token, STAGESYNC_TOKEN or the config file)")

func newSyncCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync COLLECTION_ID",
		Short: "Synchronize a collection once",
		Long: `Fetch every record of the collection, resolve it into a stage and print
the list in collection order. With --redis the list is also published as a
snapshot for other services.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID := args[0]

			format := v.GetString("output")
			if !validOutput(format) {
				return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
			}

			token, err := resolveToken(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			syncer, err := stages.New(syncerConfig(v, token))
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			list, err := syncer.Sync(cmd.Context(), collectionID)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			if addr := v.GetString("redis"); addr != "" {
				if err := publishOnce(cmd.Context(), addr, collectionID, list, v.GetDuration("ttl")); err != nil {
					return err
				}
			}

			return renderStages(cmd.OutOrStdout(), format, list)
		},
	}

	cmd.Flags().StringP("output", "o", OutputFormatTable, "output format (table, json, yaml)")
	cmd.Flags().String("redis", "", "publish the result to this Redis address")
	cmd.Flags().Duration("ttl", 0, "snapshot expiry (0 keeps it until replaced)")

	return cmd
}

// resolveToken returns the configured token, prompting for it without echo
// when none is configured and stdin is a terminal.
func resolveToken(v *viper.Viper, prompt io.Writer) (string, error) {
	if token := v.GetString("token"); token != "" {
		return token, nil
	}

	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoToken
	}

	fmt.Fprint(prompt, "Token: ")
	tokenBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

func newRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return redisClient, nil
}

func publishOnce(ctx context.Context, addr, collectionID string, list []stages.Stage, ttl time.Duration) error {
	redisClient, err := newRedisClient(ctx, addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if err := store.NewManager(redisClient).Publish(ctx, collectionID, list, ttl); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}
