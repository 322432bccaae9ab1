package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:     "episodes",
		Aliases: []string{"episode", "ep"},
		Short:   "Inspect stored analyses",
	}

	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodesShowCommand(ctx))
	episodesCmd.AddCommand(newEpisodesDeleteCommand(ctx))

	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List analyzed episodes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, nil, func(svc breakfinder.Service) error {
				episodes, err := svc.ListEpisodes()
				if err != nil {
					return fmt.Errorf("failed to list episodes: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(out, "No episodes in database")
					return nil
				}

				rows := make([][]string, len(episodes))
				for i, ep := range episodes {
					number := ""
					if ep.Number > 0 {
						number = fmt.Sprintf("%d", ep.Number)
					}
					rows[i] = []string{
						ep.ID,
						number,
						ep.Title,
						formatClock(ep.LengthSeconds),
						fmt.Sprintf("%.2fs", ep.CommercialSeconds),
						humanize.Time(ep.CreatedAt),
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "No.", "Title", "Length", "Commercials", "Analyzed"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d episode(s)\n", len(episodes))
				return nil
			})
		},
	}
}

func newEpisodesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the commercial breaks of a stored episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, nil, func(svc breakfinder.Service) error {
				ep, commercials, err := svc.GetEpisode(args[0])
				if errors.Is(err, breakfinder.ErrEpisodeNotFound) {
					return fmt.Errorf("episode %s not found", args[0])
				}
				if err != nil {
					return fmt.Errorf("failed to load episode: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Episode: %s\n", ep.Title)
				fmt.Fprintf(out, "ID:      %s\n", ep.ID)
				if ep.Number > 0 {
					fmt.Fprintf(out, "Number:  %d\n", ep.Number)
				}
				if ep.GUID != "" {
					fmt.Fprintf(out, "GUID:    %s\n", ep.GUID)
				}
				fmt.Fprintf(out, "Source:  %s\n", ep.URL)
				fmt.Fprintf(out, "Length:  %s (analyzed at %d Hz, %s)\n",
					formatClock(ep.LengthSeconds), ep.SampleRate, humanize.Time(ep.CreatedAt))
				fmt.Fprintln(out)

				if len(commercials) == 0 {
					fmt.Fprintln(out, "No commercial breaks recorded")
					return nil
				}

				rows := make([][]string, len(commercials))
				for i, c := range commercials {
					rows[i] = []string{
						fmt.Sprintf("%d", i+1),
						formatClock(c.Start),
						formatClock(c.End),
						fmt.Sprintf("%.2fs", c.Length),
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Start", "End", "Length"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))
				fmt.Fprintf(out, "Total commercial time: %.2fs\n", ep.CommercialSeconds)
				return nil
			})
		},
	}
}

func newEpisodesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored episode and its commercials",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, nil, func(svc breakfinder.Service) error {
				err := svc.DeleteEpisode(args[0])
				if errors.Is(err, breakfinder.ErrEpisodeNotFound) {
					return fmt.Errorf("episode %s not found", args[0])
				}
				if err != nil {
					return fmt.Errorf("failed to delete episode: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted episode %s\n", args[0])
				return nil
			})
		},
	}
}
