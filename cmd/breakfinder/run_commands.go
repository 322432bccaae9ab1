package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/models"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download the newest episode from the feed and find its commercials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, nil, func(svc breakfinder.Service) error {
				analysis, err := svc.Run(cmd.Context())
				if err != nil {
					return err
				}
				return printAnalysis(cmd.OutOrStdout(), analysis, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the newest episode from the feed without analyzing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, nil, func(svc breakfinder.Service) error {
				meta, path, err := svc.FetchLatest(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Downloaded %q\n", meta.Title)
				if info, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "   File: %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
				} else {
					fmt.Fprintf(out, "   File: %s\n", path)
				}
				if meta.Number > 0 {
					fmt.Fprintf(out, "   Episode: #%d\n", meta.Number)
				}
				fmt.Fprintf(out, "   Source: %s\n", meta.URL)
				return nil
			})
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		title     string
		guid      string
		number    int
		startPath string
		endPath   string
		threshold float64
		noStore   bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <episode>",
		Short: "Find commercials in a local audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []breakfinder.Option
			if startPath != "" || endPath != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				start, end := cfg.Media.StartJingle, cfg.Media.EndJingle
				if startPath != "" {
					start = startPath
				}
				if endPath != "" {
					end = endPath
				}
				extra = append(extra, breakfinder.WithJingles(start, end))
			}
			if cmd.Flags().Changed("threshold") {
				extra = append(extra, breakfinder.WithThreshold(threshold))
			}
			if noStore {
				extra = append(extra, breakfinder.WithoutStorage())
			}

			var meta *models.EpisodeMeta
			if title != "" || guid != "" || number > 0 {
				meta = &models.EpisodeMeta{Title: title, GUID: guid, URL: args[0], Number: number}
			}

			return ctx.withService(cmd, extra, func(svc breakfinder.Service) error {
				analysis, err := svc.Analyze(cmd.Context(), args[0], meta)
				if err != nil {
					return err
				}
				return printAnalysis(cmd.OutOrStdout(), analysis, asJSON)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Episode title (defaults to the file's tags or name)")
	cmd.Flags().StringVar(&guid, "guid", "", "Feed GUID to store the analysis under")
	cmd.Flags().IntVar(&number, "number", 0, "Episode number")
	cmd.Flags().StringVar(&startPath, "start-jingle", "", "Start jingle file (overrides config)")
	cmd.Flags().StringVar(&endPath, "end-jingle", "", "End jingle file (overrides config)")
	cmd.Flags().Float64Var(&threshold, "threshold", breakfinder.DefaultThreshold, "Correlation threshold (overrides config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not save the analysis to the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func printAnalysis(out io.Writer, a *models.Analysis, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	title := a.Episode.Title
	if title == "" {
		title = a.Episode.URL
	}
	fmt.Fprintf(out, "Episode: %s\n", title)
	fmt.Fprintf(out, "Length:  %s (analyzed at %d Hz)\n", formatClock(a.LengthSeconds), a.SampleRate)
	if a.EpisodeID != "" {
		fmt.Fprintf(out, "ID:      %s\n", a.EpisodeID)
	}
	if a.Cached {
		fmt.Fprintln(out, "Jingle positions loaded from cache")
	}
	fmt.Fprintf(out, "Start jingles: %s\n", formatTimestamps(a.Starts))
	fmt.Fprintf(out, "End jingles:   %s\n", formatTimestamps(a.Ends))
	fmt.Fprintln(out)

	if len(a.Intervals) == 0 {
		fmt.Fprintln(out, "No commercial breaks found")
		return nil
	}

	rows := make([][]string, len(a.Intervals))
	for i, iv := range a.Intervals {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			formatClock(iv.Start),
			formatClock(iv.End),
			fmt.Sprintf("%.2fs", iv.Length()),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Start", "End", "Length"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))

	share := 0.0
	if a.LengthSeconds > 0 {
		share = 100 * a.CommercialSeconds / a.LengthSeconds
	}
	fmt.Fprintf(out, "Total commercial time: %.2fs (%.1f%% of the episode)\n", a.CommercialSeconds, share)
	return nil
}

// formatClock renders seconds as h:mm:ss.ss, dropping the hour when it is zero.
func formatClock(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%05.2f", sign, h, m, s)
	}
	return fmt.Sprintf("%s%d:%05.2f", sign, m, s)
}

func formatTimestamps(ts []float64) string {
	if len(ts) == 0 {
		return "none"
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = formatClock(t)
	}
	return strings.Join(parts, ", ")
}
