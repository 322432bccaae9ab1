package main

import (
	"github.com/spf13/cobra"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
)

const banner = `
 ___              _   ___ _         _
| _ )_ _ ___ __ _| |_| __(_)_ _  __| |___ _ _
| _ \ '_/ -_) _' | / / _|| | ' \/ _' / -_) '_|
|___/_| \___\__,_|_\_\_| |_|_||_\__,_\___|_|

      Podcast commercial break finder
`

func newRootCommand(newService serviceFactory) *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags, newService)

	rootCmd := &cobra.Command{
		Use:           "breakfinder",
		Short:         "Find commercial breaks in podcast episodes",
		Long:          banner,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.db, "db", "", "Path to the SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newEpisodesCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// serviceFactory is breakfinder.NewService, replaced in tests.
type serviceFactory func(opts ...breakfinder.Option) (breakfinder.Service, error)
