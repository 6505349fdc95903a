package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

var (
	projectID       string
	projectEmail    string
	projectMessages int
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project inspection commands",
	Long: `Commands for inspecting devroom projects and their member sets.

Examples:
  # List the projects an account belongs to
  devctl project list --email alice@example.com

  # Show members, files and the last 20 messages of a project
  devctl project show --id <project-id> --messages 20

  # Add an account to a project
  devctl project add-member --id <project-id> --email bob@example.com`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the projects an account belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		user, err := findUser(ctx, store, projectEmail)
		if err != nil {
			return err
		}

		projects, err := store.Projects().ListForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(projects)
		}

		if len(projects) == 0 {
			fmt.Fprintf(out, "No projects found for %s.\n", user.Email)
			return nil
		}

		fmt.Fprintf(out, "\n%-36s  %-30s  %-8s  %-6s  %s\n", "ID", "NAME", "MEMBERS", "FILES", "CREATED")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, p := range projects {
			fmt.Fprintf(out, "%-36s  %-30s  %-8d  %-6d  %s\n",
				p.ID,
				truncate(p.Name, 30),
				len(p.Members),
				len(p.Files),
				p.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Fprintf(out, "\nTotal: %d project(s)\n", len(projects))
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a project's members, files and recent messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.ValidID(projectID) {
			return fmt.Errorf("invalid project id: %q", projectID)
		}

		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		project, err := store.Projects().GetByID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			return fmt.Errorf("project %s not found", projectID)
		}

		members, err := store.Projects().GetMembers(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("get members: %w", err)
		}
		messages, err := store.Messages().ListByProject(ctx, project.ID, projectMessages)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		printVerbose(cmd, "loaded %d member(s) and %d message(s)", len(members), len(messages))

		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"project":  project,
				"members":  members,
				"messages": messages,
			})
		}

		fmt.Fprintf(out, "Project: %s\n", project.Name)
		fmt.Fprintf(out, "  ID:      %s\n", project.ID)
		fmt.Fprintf(out, "  Created: %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))

		fmt.Fprintf(out, "\nMembers (%d):\n", len(members))
		for _, m := range members {
			fmt.Fprintf(out, "  %-36s  %s\n", m.ID, m.Email)
		}

		fmt.Fprintf(out, "\nFiles (%d):\n", len(project.Files))
		for _, f := range project.Files {
			fmt.Fprintf(out, "  %-40s  %-10s  %d bytes\n", truncate(f.Name, 40), f.Language, len(f.Content))
		}

		fmt.Fprintf(out, "\nMessages (%d):\n", len(messages))
		for _, m := range messages {
			fmt.Fprintf(out, "  [%s] %s: %s\n",
				m.Timestamp.Format("2006-01-02 15:04:05"),
				m.Sender.Email,
				truncate(summarize(m.Payload), 60),
			)
		}
		return nil
	},
}

var projectAddMemberCmd = &cobra.Command{
	Use:   "add-member",
	Short: "Add an account to a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.ValidID(projectID) {
			return fmt.Errorf("invalid project id: %q", projectID)
		}

		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		project, err := store.Projects().GetByID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			return fmt.Errorf("project %s not found", projectID)
		}
		user, err := findUser(ctx, store, projectEmail)
		if err != nil {
			return err
		}

		member, err := store.Projects().IsMember(ctx, project.ID, user.ID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already a member of %s.\n", user.Email, project.Name)
			return nil
		}
		if err := store.Projects().AddMembers(ctx, project.ID, []string{user.ID}); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s.\n", user.Email, project.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectAddMemberCmd)

	projectListCmd.Flags().StringVar(&projectEmail, "email", "", "account email (required)")
	projectListCmd.MarkFlagRequired("email")

	projectShowCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectShowCmd.Flags().IntVar(&projectMessages, "messages", 10, "number of recent messages to show (0 for all)")
	projectShowCmd.MarkFlagRequired("id")

	projectAddMemberCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectAddMemberCmd.Flags().StringVar(&projectEmail, "email", "", "account email (required)")
	projectAddMemberCmd.MarkFlagRequired("id")
	projectAddMemberCmd.MarkFlagRequired("email")
}

func findUser(ctx context.Context, store storage.Storage, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	user, err := store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user '%s' not found", email)
	}
	return user, nil
}

// summarize renders a message payload on one line.
func summarize(p models.Payload) string {
	switch p.Kind {
	case models.PayloadText:
		return strings.Join(strings.Fields(p.Text), " ")
	case models.PayloadGenerated:
		if p.Reply == nil {
			return "(empty reply)"
		}
		if p.Reply.Error != "" {
			return "error: " + p.Reply.Error
		}
		return fmt.Sprintf("%s (%d file(s))", strings.Join(strings.Fields(p.Reply.Theory), " "), len(p.Reply.Files))
	}
	return ""
}
