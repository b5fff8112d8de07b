package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aconic-ni/customsclass-r/internal/app"
	"github.com/aconic-ni/customsclass-r/internal/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, export or clear a user's classification history",
	}
	cmd.AddCommand(
		newHistoryListCmd(opts),
		newHistoryExportCmd(opts),
		newHistoryClearCmd(opts),
		newHistoryInspectCmd(),
	)
	return cmd
}

func requireUser(opts *rootOptions) error {
	if opts.userID == "" {
		return errors.New("--user is required")
	}
	return nil
}

func newHistoryListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the user's history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, app.Options{SkipProvider: true})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			items, err := a.History.List(ctx, opts.userID)
			if err != nil {
				return err
			}
			printItems(cmd, items)
			return nil
		},
	}
}

func newHistoryExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the user's history as a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, app.Options{SkipProvider: true})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			items, err := a.History.List(ctx, opts.userID)
			if err != nil {
				return err
			}
			payload, err := history.Export(items)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(append(payload, '\n'))
				return err
			}
			if output == "" {
				output = history.ExportFilename(time.Now().UTC())
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(output, payload, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d item(s) to %s\n", len(items), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: timestamped name, - for stdout)")
	return cmd
}

func newHistoryClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history item of the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts); err != nil {
				return err
			}
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, app.Options{SkipProvider: true})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			deleted, err := a.History.Clear(ctx, opts.userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d item(s)\n", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newHistoryInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print the items of an exported history file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			items, err := history.ParseExport(data)
			if err != nil {
				return err
			}
			printItems(cmd, items)
			return nil
		},
	}
}

func printItems(cmd *cobra.Command, items []history.Item) {
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no history")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tHS CODE\tBRAND\tDESCRIPTION")
	for _, item := range items {
		brand := item.Brand
		if brand == "" {
			brand = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			item.Timestamp.Local().Format("2006-01-02 15:04"),
			item.Result.Prediction.HSCode,
			brand,
			truncate(item.Description, 60),
		)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
