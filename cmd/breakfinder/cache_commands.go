package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the locate result cache",
	}

	cacheCmd.AddCommand(newCachePurgeCommand(ctx))

	return cacheCmd
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop every cached locate result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.Cache.Dir == "" {
				fmt.Fprintln(out, "Result cache is disabled (cache.dir is empty)")
				return nil
			}

			c, err := cache.Open(cfg.Cache.Dir, cfg.CacheTTL())
			if err != nil {
				return err
			}
			if err := c.Purge(); err != nil {
				c.Close()
				return fmt.Errorf("purge cache: %w", err)
			}
			if err := c.Close(); err != nil {
				return fmt.Errorf("close cache: %w", err)
			}

			fmt.Fprintf(out, "Purged result cache at %s\n", cfg.Cache.Dir)
			return nil
		},
	}
}
