package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/redis"
)

// NewPublishCommand creates the publish command, which sends a payload to
// the configured Redis so running streams emit it.
func NewPublishCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish CHANNEL PAYLOAD",
		Short: "Publish a payload to a stream channel over Redis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return errors.Validation("redis.enabled must be true to publish")
			}

			client, err := redis.New(cfg.Redis, log)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.Publish(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published to %s (%d receivers)\n", args[0], n)
			return err
		},
	}
}
