package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
)

var engineerCmd = &cobra.Command{
	Use:   "engineer",
	Short: "Engineer capacity reports",
}

var engineerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List engineers with today's allocation",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		engineers, err := store.Users().ListByRole(ctx, models.RoleEngineer)
		if err != nil {
			return fmt.Errorf("list engineers: %w", err)
		}

		svc := staffing.NewService(store)
		reports := make([]*staffing.CapacityReport, 0, len(engineers))
		for _, e := range engineers {
			report, err := svc.Capacity(ctx, e.ID)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, reports)
		}

		fmt.Fprintf(out, "\n%-36s  %-24s  %8s  %9s  %9s\n", "ID", "NAME", "MAX", "ALLOCATED", "AVAILABLE")
		fmt.Fprintln(out, strings.Repeat("-", 94))
		for _, r := range reports {
			fmt.Fprintf(out, "%-36s  %-24s  %7d%%  %8d%%  %8d%%\n",
				r.EngineerID, r.Name, r.MaxCapacity, r.Allocated, r.Available)
		}
		fmt.Fprintf(out, "\nTotal: %d engineer(s)\n", len(reports))
		return nil
	},
}

var engineerCapacityCmd = &cobra.Command{
	Use:   "capacity <engineer-id>",
	Short: "Show an engineer's allocation today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := staffing.NewService(store).Capacity(context.Background(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, report)
		}
		fmt.Fprintf(out, "Engineer:    %s (%s)\n", report.Name, report.EngineerID)
		fmt.Fprintf(out, "Max:         %d%%\n", report.MaxCapacity)
		fmt.Fprintf(out, "Allocated:   %d%%\n", report.Allocated)
		fmt.Fprintf(out, "Available:   %d%%\n", report.Available)
		fmt.Fprintf(out, "Assignments: %d active\n", report.ActiveAssignments)
		return nil
	},
}

var engineerAvailabilityCmd = &cobra.Command{
	Use:   "availability <engineer-id>",
	Short: "Show when an engineer next has free capacity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		avail, err := staffing.NewService(store).NextAvailableDate(context.Background(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, avail)
		}
		if avail.AvailableNow {
			fmt.Fprintf(out, "Available now (%d%% of %d%% allocated)\n", avail.AllocatedNow, avail.MaxCapacity)
			return nil
		}
		fmt.Fprintf(out, "Fully allocated (%d%% of %d%%); available from %s\n",
			avail.AllocatedNow, avail.MaxCapacity, models.FormatDate(avail.AvailableFrom))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(engineerCmd)
	engineerCmd.AddCommand(engineerListCmd)
	engineerCmd.AddCommand(engineerCapacityCmd)
	engineerCmd.AddCommand(engineerAvailabilityCmd)
}
