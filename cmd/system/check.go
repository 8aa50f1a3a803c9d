package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/pkg/backend"
	redispkg "github.com/Alijeyrad/assessflow/pkg/redis"
)

func NewCheckCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and check Redis and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			fmt.Println("config: ok")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rdb, err := redispkg.NewRedisFromCentral(ctx, cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rdb.Close()
			fmt.Printf("redis: ok (%s)\n", cfg.Redis.Addr)

			api, err := backend.NewFromCentral(cfg.Backend)
			if err != nil {
				return fmt.Errorf("backend: %w", err)
			}
			if err := api.Ping(ctx); err != nil {
				return fmt.Errorf("backend: %w", err)
			}
			fmt.Printf("backend: ok (%s)\n", cfg.Backend.BaseURL)

			fmt.Printf("flow store: %s\n", cfg.FlowStore())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Maximum time to wait for each dependency")

	return cmd
}
