package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/devroom/internal/api/auth"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

var userEmail string

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Account management commands",
	Long: `Commands for managing devroom accounts.

Examples:
  # List all accounts
  devctl user list

  # Create an account (the password is prompted)
  devctl user create --email alice@example.com`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		userList, err := store.Users().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(userList)
		}

		if len(userList) == 0 {
			fmt.Fprintln(out, "No users found.")
			return nil
		}

		fmt.Fprintf(out, "\n%-36s  %-40s  %s\n", "ID", "EMAIL", "CREATED")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, u := range userList {
			fmt.Fprintf(out, "%-36s  %-40s  %s\n",
				u.ID,
				truncate(u.Email, 40),
				u.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		total, err := store.Users().Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		fmt.Fprintf(out, "\nTotal: %d user(s)\n", total)
		return nil
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Create an account in the database.

The password is prompted interactively to keep it out of shell history.
It must be at least 6 characters.

Example:
  devctl user create --email alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := models.NormalizeEmail(userEmail)
		if fe := auth.ValidateEmail(email); fe != nil {
			return fmt.Errorf("invalid email: %s", fe.Message)
		}

		prompt := newPasswordPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
		password, err := prompt.read("Enter password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if err := auth.ValidatePassword(password); err != nil {
			return fmt.Errorf("invalid password: %w", err)
		}
		confirm, err := prompt.read("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password confirmation: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		user := models.NewUser(email)
		user.ID = uuid.New().String()
		user.PasswordHash = hash

		if err := store.Users().Create(cmd.Context(), user); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("email '%s' already exists", email)
			}
			return fmt.Errorf("create user: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nUser created successfully:\n")
		fmt.Fprintf(out, "  ID:    %s\n", user.ID)
		fmt.Fprintf(out, "  Email: %s\n", user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email for the new account (required)")
	userCreateCmd.MarkFlagRequired("email")
}

// passwordPrompt reads passwords without echo on a terminal and line by line otherwise.
type passwordPrompt struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPasswordPrompt(in io.Reader, out io.Writer) *passwordPrompt {
	return &passwordPrompt{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *passwordPrompt) read(label string) (string, error) {
	fmt.Fprint(p.out, label)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	// Piped input
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
