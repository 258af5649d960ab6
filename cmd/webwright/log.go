package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webwright/webwright/internal/core"
)

var (
	logCount int
	logLevel string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the conversation log and webwright's own error log",
}

var logRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recent conversation entries, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		log, err := rt.Memory(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := log.Recent(cmd.Context(), logCount)
		if err != nil {
			return err
		}
		total, err := log.Count(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d entries (embedder %s)\n",
			len(entries), total, log.Embedder().Name())
		return nil
	},
}

var logRangeCmd = &cobra.Command{
	Use:   "range <start> [end]",
	Short: "Print the entries between two dates or timestamps, inclusive",
	Long: `Print the entries between two bounds. A bound is a date (2024-01-31) or an
ISO-8601 timestamp; a date used as the end covers that whole day.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		log, err := rt.Memory(cmd.Context())
		if err != nil {
			return err
		}
		end := ""
		if len(args) == 2 {
			end = args[1]
		}
		entries, err := log.Range(cmd.Context(), args[0], end)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
		}
		return nil
	},
}

var logSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the entries most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		log, err := rt.Memory(cmd.Context())
		if err != nil {
			return err
		}
		matches, err := log.SimilaritySearch(cmd.Context(), strings.Join(args, " "), logCount)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintf(cmd.OutOrStdout(), "%.3f %s\n", m.Score, formatEntry(m.Entry))
			if m.Adjacent != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", formatEntry(*m.Adjacent))
			}
		}
		return nil
	},
}

var logErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Print recent warnings and errors logged by webwright",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		logs, err := rt.SystemLogs.GetLogs(logLevel, "", logCount)
		if err != nil {
			return err
		}
		for _, l := range logs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-5s %-10s %s\n",
				core.FormatTimestamp(l.Timestamp), l.Level, l.Component, l.Message)
		}
		return nil
	},
}

func init() {
	logCmd.PersistentFlags().IntVarP(&logCount, "count", "n", 10, "number of entries")
	logErrorsCmd.Flags().StringVar(&logLevel, "level", "", `"warn" or "error"; empty for both`)
	logCmd.AddCommand(logRecentCmd, logRangeCmd, logSearchCmd, logErrorsCmd)
}

func formatEntry(e core.Entry) string {
	content, ok := e.Text()
	if !ok {
		raw, err := json.Marshal(e.Content)
		if err != nil {
			content = fmt.Sprint(e.Content)
		} else {
			content = string(raw)
		}
	}
	return fmt.Sprintf("%s [%s] %s", e.Timestamp, e.Type, content)
}
