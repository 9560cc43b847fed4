package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/kernel6/internal/config"
	"github.com/user/kernel6/internal/messages"
	"github.com/user/kernel6/internal/state"
	"github.com/user/kernel6/internal/types"
)

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsDeleteCmd)
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect and manage stored reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	Long:  "List reports, newest first. Read only: a missing record document is not created.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store, err := openStore(cmd.Context(), cfg, accessRead)
		if err != nil {
			return err
		}
		return printReports(store.List())
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a report by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.StoreMode() == config.BackendMemory {
			return fmt.Errorf("store backend %q has nothing to delete", config.BackendMemory)
		}
		store, err := openStore(cmd.Context(), cfg, accessWrite)
		if err != nil {
			return err
		}
		return deleteReport(cmd.Context(), store, types.ReportID(args[0]))
	},
}

func printReports(reports []*types.Report) error {
	if len(reports) == 0 {
		fmt.Println("No reports found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tTITLE\tSTATUS\tPHOTO\tCREATED")
	for _, r := range reports {
		photo := "no"
		if r.HasPhoto() {
			photo = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Category,
			r.Title,
			r.Status,
			photo,
			messages.FormatDate(r.CreatedAt),
		)
	}
	return w.Flush()
}

func deleteReport(ctx context.Context, store *state.RecordStore, id types.ReportID) error {
	removed, err := store.Remove(ctx, id)
	if !removed {
		return fmt.Errorf("report %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("report %s removed locally but not persisted: %w", id, err)
	}
	fmt.Printf("Report %s deleted.\n", id)
	return nil
}
