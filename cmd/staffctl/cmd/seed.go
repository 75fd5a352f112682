package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/staffplan/internal/seed"
)

var (
	seedReset    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demonstration data set",
	Long: `Load two managers, three engineers, three projects and five
assignments. Assignments are written without capacity checks, so one
engineer ends up booked at 150%.

The database file and schema are created when missing. Every seeded
account gets the same password (--password, or the built-in default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := createDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := seed.Run(context.Background(), store, seed.Options{
			Password: seedPassword,
			Reset:    seedReset,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Seeded %d users, %d projects, %d assignments into %s\n",
			res.Users, res.Projects, res.Assignments, dbPath)
		if seedPassword == "" {
			fmt.Fprintf(out, "Password for all accounts: %s\n", seed.DefaultPassword)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "delete existing users, projects and assignments first")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password for every seeded account")
}
