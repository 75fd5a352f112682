package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/api/users"
	"github.com/good-yellow-bee/staffplan/internal/models"
)

var (
	userEmail      string
	userName       string
	userRole       string
	userDepartment string
	userSkills     []string
	userSeniority  string
	userCapacity   int
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing staffplan users.

These commands operate directly on the database file and are intended
for administrators to manage accounts outside of the API.

Examples:
  # List all users
  staffctl user list

  # Create a manager
  staffctl user create --email lead@example.com --name "Team Lead" --role manager --department Engineering

  # Create a part-time engineer
  staffctl user create --email dev@example.com --name Dev --role engineer \
    --department Backend --seniority mid --capacity 50 --skills Go,PostgreSQL

  # Change a user's password
  staffctl user passwd --email lead@example.com`,
}

// userListCmd lists all users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		userList, err := store.Users().List(context.Background())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, userList)
		}
		if len(userList) == 0 {
			fmt.Fprintln(out, "No users found.")
			return nil
		}

		fmt.Fprintf(out, "\n%-36s  %-24s  %-30s  %-9s  %-9s  %s\n",
			"ID", "NAME", "EMAIL", "ROLE", "SENIORITY", "CAPACITY")
		fmt.Fprintln(out, strings.Repeat("-", 125))

		for _, u := range userList {
			capacity := "-"
			if u.IsEngineer() {
				capacity = fmt.Sprintf("%d%%", u.MaxCapacity)
			}
			fmt.Fprintf(out, "%-36s  %-24s  %-30s  %-9s  %-9s  %s\n",
				u.ID, u.Name, u.Email, u.Role, orDash(string(u.Seniority)), capacity)
		}
		fmt.Fprintf(out, "\nTotal: %d user(s)\n", len(userList))

		return nil
	},
}

// userCreateCmd creates a new user
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new user in the database.

The password will be prompted interactively for security reasons
(to avoid exposing it in shell history).

Password requirements:
  - Minimum 12 characters
  - At least 1 uppercase letter (A-Z)
  - At least 1 lowercase letter (a-z)
  - At least 1 digit (0-9)
  - At least 1 special character (!@#$%^&*...)

Engineers need --seniority (junior, mid, senior) and --capacity (50 or 100).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := users.ValidateEmail(userEmail); err != nil {
			return fmt.Errorf("invalid email: %w", err)
		}
		role, err := users.ValidateRole(userRole)
		if err != nil {
			return fmt.Errorf("invalid role: %w", err)
		}
		seniority, err := users.ValidateSeniority(userSeniority)
		if err != nil {
			return fmt.Errorf("invalid seniority: %w", err)
		}

		user := models.NewUser(strings.ToLower(strings.TrimSpace(userEmail)), strings.TrimSpace(userName), role)
		user.ID = uuid.New().String()
		user.Department = strings.TrimSpace(userDepartment)
		user.Skills = models.UniqueStrings(userSkills)
		user.Seniority = seniority
		if role == models.RoleEngineer {
			user.MaxCapacity = userCapacity
		}
		if err := user.Validate(); err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}

		password, err := promptNewPassword("Enter password: ", "Confirm password: ")
		if err != nil {
			return err
		}

		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		existing, err := store.Users().GetByEmail(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("email '%s' already exists", user.Email)
		}

		user.PasswordHash, err = auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		if err := store.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nUser created successfully:\n")
		fmt.Fprintf(out, "  ID:    %s\n", user.ID)
		fmt.Fprintf(out, "  Name:  %s\n", user.Name)
		fmt.Fprintf(out, "  Email: %s\n", user.Email)
		fmt.Fprintf(out, "  Role:  %s\n", user.Role)

		return nil
	},
}

// userPasswdCmd changes a user's password
var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change a user's password",
	Long: `Change the password for an existing user. The new password is
prompted interactively and every refresh token of the user is revoked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		user, err := store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(userEmail)))
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", userEmail)
		}

		password, err := promptNewPassword("Enter new password: ", "Confirm new password: ")
		if err != nil {
			return err
		}

		user.PasswordHash, err = auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.UpdatedAt = time.Now()

		if err := store.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		// Force re-login everywhere
		if err := store.Tokens().RevokeAllForUser(ctx, user.ID); err != nil {
			PrintVerbose("Warning: could not revoke existing sessions: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nPassword changed successfully for '%s'.\n", user.Email)
		fmt.Fprintln(cmd.OutOrStdout(), "All existing sessions have been revoked.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPasswdCmd)

	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email for the new user (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "engineer", "role: engineer or manager")
	userCreateCmd.Flags().StringVar(&userDepartment, "department", "", "department (required)")
	userCreateCmd.Flags().StringSliceVar(&userSkills, "skills", nil, "comma-separated skills (engineers)")
	userCreateCmd.Flags().StringVar(&userSeniority, "seniority", "", "junior, mid or senior (engineers)")
	userCreateCmd.Flags().IntVar(&userCapacity, "capacity", models.CapacityFullTime, "max capacity: 50 or 100 (engineers)")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("name")
	userCreateCmd.MarkFlagRequired("department")

	userPasswdCmd.Flags().StringVar(&userEmail, "email", "", "email of the user to update (required)")
	userPasswdCmd.MarkFlagRequired("email")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// promptNewPassword reads a password and its confirmation and checks the
// password policy.
func promptNewPassword(prompt, confirmPrompt string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if err := auth.ValidatePasswordOrError(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	confirm, err := promptPassword(confirmPrompt)
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
