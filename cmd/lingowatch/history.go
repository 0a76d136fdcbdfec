package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lingowatch/internal/history"
)

var (
	flagPlaylist  string
	flagCleanDays int
	flagOutFile   string
	flagFeedLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain the archive of processed videos",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived videos, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyManager()
		if err != nil {
			return err
		}
		records, err := m.List(flagPlaylist)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No archived videos found")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Playlist", "Title", "Processed", "Files"})
		for _, record := range records {
			processedAt := "unknown"
			if t := record.ProcessedAt(); !t.IsZero() {
				processedAt = t.Format("2006-01-02 15:04")
			}
			names := make([]string, 0, len(record.Files))
			for _, f := range record.Files {
				names = append(names, f.Name)
			}
			tw.AppendRow(table.Row{record.Playlist, record.Title(), processedAt, strings.Join(names, ", ")})
		}
		tw.Render()
		return nil
	},
}

var historyInfoCmd = &cobra.Command{
	Use:   "info <playlist> <folder>",
	Short: "Show details of one archived video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyManager()
		if err != nil {
			return err
		}
		record, err := m.Get(args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Title:     %s\n", record.Title())
		if record.Info != nil {
			fmt.Fprintf(out, "Video ID:  %s\n", record.Info.VideoID)
			fmt.Fprintf(out, "Playlist:  %s\n", record.Info.PlaylistName)
			fmt.Fprintf(out, "Processed: %s\n", record.Info.ProcessTime)
			fmt.Fprintf(out, "Mode:      %s\n", record.Info.PlaylistConfig.Mode)
		}
		fmt.Fprintln(out, "Files:")
		for _, f := range record.Files {
			fmt.Fprintf(out, "  %s (%.1f MB)\n", f.Name, float64(f.Size)/(1024*1024))
		}
		return nil
	},
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove archive records older than the given number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyManager()
		if err != nil {
			return err
		}
		removed, err := m.Clean(flagCleanDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d archive records older than %d days\n", removed, flagCleanDays)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a JSON summary of the whole archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyManager()
		if err != nil {
			return err
		}
		out := flagOutFile
		if out == "" {
			out = "history_summary.json"
		}
		summary, err := m.Export(out)
		if err != nil {
			return err
		}
		total := 0
		for _, ps := range summary.Playlists {
			total += ps.TotalCount
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", total, out)
		return nil
	},
}

var historyFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Write an RSS feed of recently archived videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyManager()
		if err != nil {
			return err
		}
		out := flagOutFile
		if out == "" {
			out = "archive.xml"
		}
		start := time.Now()
		if err := m.WriteFeed(out, flagFeedLimit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Feed written to %s in %s\n", out, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func historyManager() (*history.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.NewManager(cfg.Paths.HistoryDir), nil
}

func init() {
	historyListCmd.Flags().StringVar(&flagPlaylist, "playlist", "", "limit to one playlist")
	historyCleanCmd.Flags().IntVar(&flagCleanDays, "days", 30, "remove records older than this many days")
	historyExportCmd.Flags().StringVar(&flagOutFile, "out", "", "output file")
	historyFeedCmd.Flags().StringVar(&flagOutFile, "out", "", "output file")
	historyFeedCmd.Flags().IntVar(&flagFeedLimit, "limit", 50, "maximum feed entries")

	historyCmd.AddCommand(historyListCmd, historyInfoCmd, historyCleanCmd, historyExportCmd, historyFeedCmd)
	rootCmd.AddCommand(historyCmd)
}
