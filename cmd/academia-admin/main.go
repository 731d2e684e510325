// Package main is the entry point for the Academia admin CLI.
// This tool provides maintenance commands for users, profiles, sessions and the subject catalogue.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/prn-tf/academia/internal/app"
	"github.com/prn-tf/academia/internal/config"
	"github.com/prn-tf/academia/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// systemActor is the actor id recorded for actions taken from the CLI.
const systemActor int64 = 0

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"sync-profiles":         syncProfiles,
	"sync-faculty-subjects": syncFacultySubjects,
	"clear-sessions":        clearSessions,
	"load-subjects":         loadSubjects,
	"import-subjects":       importSubjects,
	"export-subjects":       exportSubjects,
	"createsuperuser":       createSuperuser,
	"approve":               approve,
	"reject":                reject,
	"pending":               listPending,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]

	switch name {
	case "version":
		fmt.Printf("Academia Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return

	case "help", "-h", "--help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := run(cmd, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd command, args []string) error {
	configPath := os.Getenv("ACADEMIA_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return cmd(ctx, a, args)
}

// =============================================================================
// Maintenance Commands
// =============================================================================

func syncProfiles(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync-profiles", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report missing domain profiles without creating them")
	_ = fs.Parse(args)

	var result service.ReconcileResult
	if *dryRun {
		result = a.Reconciler.RunDry(ctx)
	} else {
		result = a.Reconciler.RunOnce(ctx)
	}
	if result.Skipped {
		return errors.New("another reconciliation is running")
	}

	for _, inc := range result.Inconsistencies {
		fmt.Printf("  %s (id %d): missing %s profile\n", inc.Username, inc.UserID, strings.ToLower(inc.Role.String()))
	}
	if result.DryRun {
		fmt.Printf("Dry run: %d missing, %d would be created\n", result.Found, result.Repaired)
		return nil
	}
	fmt.Printf("Created %d domain profiles (%d missing, %d errors)\n", result.Repaired, result.Found, result.Errors)
	if result.Errors > 0 {
		return fmt.Errorf("%d profiles could not be repaired", result.Errors)
	}
	return nil
}

func syncFacultySubjects(ctx context.Context, a *app.App, _ []string) error {
	result, err := a.Subjects.SyncFacultySubjects(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Assigned %d of %d unassigned subjects\n", result.Assigned, result.Unassigned)
	if len(result.Uncovered) > 0 {
		fmt.Printf("No faculty available for: %s\n", strings.Join(result.Uncovered, ", "))
	}
	return nil
}

func clearSessions(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("clear-sessions", flag.ExitOnError)
	all := fs.Bool("all", false, "delete every session, not only expired ones")
	_ = fs.Parse(args)

	if !a.SharedSessions {
		fmt.Println("Redis is disabled: sessions live in the server process and are cleared on restart")
		return nil
	}

	if *all {
		n, err := a.Sessions.ClearAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d sessions\n", n)
		return nil
	}

	n, err := a.Sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d expired sessions\n", n)
	return nil
}

// =============================================================================
// Subject Catalogue Commands
// =============================================================================

func loadSubjects(ctx context.Context, a *app.App, _ []string) error {
	result, err := a.Subjects.LoadCatalogue(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d subjects (%d created, %d updated)\n", result.Total, result.Created, result.Updated)
	return nil
}

func importSubjects(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("import-subjects", flag.ExitOnError)
	path := fs.String("file", "", "spreadsheet to import (.xlsx)")
	_ = fs.Parse(args)
	if *path == "" {
		return errors.New("--file is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := a.Subjects.ImportExcel(ctx, f)
	if err != nil {
		return err
	}

	for _, rowErr := range result.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Message)
	}
	fmt.Printf("Imported %d subjects (%d created, %d updated, %d rows skipped)\n",
		result.Total, result.Created, result.Updated, len(result.Errors))
	return nil
}

func exportSubjects(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("export-subjects", flag.ExitOnError)
	path := fs.String("file", "", "spreadsheet to write (.xlsx)")
	_ = fs.Parse(args)
	if *path == "" {
		return errors.New("--file is required")
	}

	f, err := os.Create(*path)
	if err != nil {
		return err
	}

	n, err := a.Subjects.ExportExcel(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d subjects to %s\n", n, *path)
	return nil
}

// =============================================================================
// User Commands
// =============================================================================

func createSuperuser(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	username := fs.String("username", "", "superuser username")
	email := fs.String("email", "", "superuser email")
	_ = fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)
	if *username == "" {
		*username = prompt(reader, "Username: ")
	}
	if *email == "" {
		*email = prompt(reader, "Email address: ")
	}

	password, err := readPassword(reader)
	if err != nil {
		return err
	}

	user, err := a.Users.CreateSuperuser(ctx, *username, *email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Superuser %s created (id %d)\n", user.Username, user.ID)
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword asks twice without echo on a terminal, or reads one line from piped input.
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		password := prompt(reader, "")
		if password == "" {
			return "", errors.New("empty password on stdin")
		}
		return password, nil
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("Password (again): ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords didn't match")
	}
	if len(first) == 0 {
		return "", errors.New("blank passwords aren't allowed")
	}
	return string(first), nil
}

func userIDFlag(name string, args []string) (int64, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "user id")
	_ = fs.Parse(args)
	if *id <= 0 {
		return 0, errors.New("--id is required")
	}
	return *id, nil
}

func approve(ctx context.Context, a *app.App, args []string) error {
	id, err := userIDFlag("approve", args)
	if err != nil {
		return err
	}

	out, err := a.Registration.Approve(ctx, systemActor, id)
	if err != nil {
		return err
	}

	fmt.Printf("Approved %s as %s", out.User.Username, out.Profile.Role)
	if out.Provisioned != nil && out.Provisioned.Identifier != "" {
		fmt.Printf(" (%s)", out.Provisioned.Identifier)
	}
	fmt.Println()
	return nil
}

func reject(ctx context.Context, a *app.App, args []string) error {
	id, err := userIDFlag("reject", args)
	if err != nil {
		return err
	}

	user, err := a.Registration.Reject(ctx, systemActor, id)
	if err != nil {
		return err
	}
	fmt.Printf("Rejected and deleted %s\n", user.Username)
	return nil
}

func listPending(ctx context.Context, a *app.App, _ []string) error {
	pending, err := a.Registration.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending users")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tREGISTERED")
	for _, p := range pending {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.User.ID, p.User.Username, p.User.Email, p.Profile.Role, p.User.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func printUsage() {
	fmt.Println(`Academia Admin CLI

Usage:
  academia-admin <command> [arguments]

Commands:
  sync-profiles          Create missing faculty/student profiles for approved users
  sync-faculty-subjects  Assign unassigned subjects to faculty of their department
  clear-sessions         Purge expired sessions (--all deletes every session)
  load-subjects          Load the built-in subject catalogue
  import-subjects        Import subjects from a spreadsheet
  export-subjects        Export subjects to a spreadsheet
  createsuperuser        Create an administrator account
  approve                Approve a pending user
  reject                 Reject and delete a pending user
  pending                List users awaiting approval
  version                Print version information
  help                   Show this help message

Examples:
  academia-admin sync-profiles --dry-run
  academia-admin import-subjects --file subjects.xlsx
  academia-admin createsuperuser --username admin --email admin@example.com
  academia-admin approve --id 42

Environment Variables:
  ACADEMIA_CONFIG    Path to the configuration file`)
}
