package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rankontop/backend/internal/cache/redis"
	"github.com/rankontop/backend/internal/providers/pagespeed"
	"github.com/rankontop/backend/internal/providers/serp"
	"github.com/rankontop/backend/pkg/config"
)

func CacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the provider response cache",
	}
	cmd.AddCommand(cacheClearCmd())
	return cmd
}

func cacheClearCmd() *cobra.Command {
	var (
		configPath string
		namespaces []string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached PageSpeed and SerpAPI responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis cache is disabled in config")
			}

			rc, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer rc.Close()

			for _, ns := range namespaces {
				deleted, err := rc.Invalidate(cmd.Context(), ns)
				if err != nil {
					return fmt.Errorf("failed to clear %s: %w", ns, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", ns, deleted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: ./config.yaml if present)")
	cmd.Flags().StringSliceVar(&namespaces, "namespace",
		[]string{pagespeed.CacheNamespace, serp.CacheNamespace}, "Cache namespaces to clear")
	return cmd
}
