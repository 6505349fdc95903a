package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

func seedDatabase(t *testing.T) (string, *models.Project) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "devctl.db")
	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	owner := models.NewUser("owner@example.com")
	owner.ID = uuid.New().String()
	owner.PasswordHash = "hash"
	if err := store.Users().Create(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	project := models.NewProject("Pairing", owner.ID)
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	msg := &models.Message{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Sender:    owner.Identity(),
		Payload:   models.TextPayload("first   message\nof the day"),
	}
	if err := store.Messages().Append(ctx, msg); err != nil {
		t.Fatalf("append message: %v", err)
	}
	return path, project
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestUserAndProjectCommands(t *testing.T) {
	db, project := seedDatabase(t)

	out, err := run(t, "secret-pass\nsecret-pass\n", "user", "create", "--db", db, "-o", "table", "--email", " Bob@Example.com ")
	if err != nil {
		t.Fatalf("user create: %v\n%s", err, out)
	}
	if !strings.Contains(out, "bob@example.com") {
		t.Errorf("create output = %s", out)
	}

	if _, err := run(t, "secret-pass\nsecret-pass\n", "user", "create", "--db", db, "-o", "table", "--email", "bob@example.com"); err == nil {
		t.Error("duplicate email accepted")
	}

	out, err = run(t, "", "user", "list", "--db", db, "-o", "table")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	if !strings.Contains(out, "Total: 2 user(s)") {
		t.Errorf("list output = %s", out)
	}

	out, err = run(t, "", "project", "add-member", "--db", db, "-o", "table", "--id", project.ID, "--email", "bob@example.com")
	if err != nil || !strings.Contains(out, "Added bob@example.com") {
		t.Fatalf("add-member: %v\n%s", err, out)
	}
	out, _ = run(t, "", "project", "add-member", "--db", db, "-o", "table", "--id", project.ID, "--email", "bob@example.com")
	if !strings.Contains(out, "already a member") {
		t.Errorf("second add-member output = %s", out)
	}

	out, err = run(t, "", "project", "list", "--db", db, "-o", "table", "--email", "bob@example.com")
	if err != nil || !strings.Contains(out, "Pairing") {
		t.Fatalf("project list: %v\n%s", err, out)
	}

	out, err = run(t, "", "project", "show", "--db", db, "-o", "table", "--id", project.ID, "--messages", "5")
	if err != nil {
		t.Fatalf("project show: %v", err)
	}
	for _, want := range []string{"Members (2)", "owner@example.com: first message of the day"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestUserCreate_Rejects(t *testing.T) {
	db, _ := seedDatabase(t)

	tests := []struct {
		name  string
		stdin string
		email string
	}{
		{"bad email", "secret-pass\nsecret-pass\n", "not-an-email"},
		{"short password", "abc\nabc\n", "carol@example.com"},
		{"mismatch", "secret-pass\nother-pass\n", "carol@example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := run(t, tc.stdin, "user", "create", "--db", db, "-o", "table", "--email", tc.email); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProjectShow_InvalidID(t *testing.T) {
	db, _ := seedDatabase(t)
	if _, err := run(t, "", "project", "show", "--db", db, "-o", "table", "--id", "nope"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		payload models.Payload
		want    string
	}{
		{models.TextPayload("  hi\n there "), "hi there"},
		{models.ErrorPayload("boom"), "error: boom"},
		{models.GeneratedPayload(&models.StructuredReply{Theory: "loops", Files: []models.GeneratedFile{{Name: "a.py"}}}), "loops (1 file(s))"},
	}
	for _, tc := range tests {
		if got := summarize(tc.payload); got != tc.want {
			t.Errorf("summarize = %q, want %q", got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "ab.." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
