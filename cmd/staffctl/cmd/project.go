package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project reports",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		projects, err := store.Projects().List(context.Background())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, projects)
		}
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}

		fmt.Fprintf(out, "\n%-36s  %-20s  %-9s  %-10s  %-10s  %s\n", "ID", "NAME", "STATUS", "START", "END", "SKILLS")
		fmt.Fprintln(out, strings.Repeat("-", 120))
		for _, p := range projects {
			fmt.Fprintf(out, "%-36s  %-20s  %-9s  %-10s  %-10s  %s\n",
				p.ID, p.Name, p.Status,
				models.FormatDate(p.StartDate), models.FormatDate(p.EndDate),
				strings.Join(p.RequiredSkills, ", "))
		}
		fmt.Fprintf(out, "\nTotal: %d project(s)\n", len(projects))
		return nil
	},
}

var projectSkillGapCmd = &cobra.Command{
	Use:   "skill-gap <project-id>",
	Short: "Show required skills no assigned engineer has",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := staffing.NewService(store).SkillGap(context.Background(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, report)
		}
		if len(report.MissingSkills) == 0 {
			fmt.Fprintln(out, "No missing skills.")
			return nil
		}
		fmt.Fprintf(out, "Missing skills: %s\n", strings.Join(report.MissingSkills, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectSkillGapCmd)
}
