// Package main is the entry point for the Meridian Accounts admin CLI.
// This tool provides administrative commands for managing users without
// going through the HTTP API. All commands run with superuser privilege.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/prn-tf/meridian-accounts/internal/bootstrap"
	"github.com/prn-tf/meridian-accounts/internal/config"
	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/lock"
	"github.com/prn-tf/meridian-accounts/internal/pkg/crypto"
	"github.com/prn-tf/meridian-accounts/internal/repository"
	"github.com/prn-tf/meridian-accounts/internal/repository/postgres"
	"github.com/prn-tf/meridian-accounts/internal/repository/sqlite"
	"github.com/prn-tf/meridian-accounts/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Meridian Accounts Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "bootstrap":
		runBootstrap(os.Args[2:])

	case "user":
		runUser(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Meridian Accounts Admin CLI

Usage:
  meridian-admin <command> [arguments]

Commands:
  bootstrap   Seed the initial superuser on an empty database
  user        Manage users (create, list, delete)
  version     Print version information
  help        Show this help message

Examples:
  meridian-admin bootstrap --username admin
  meridian-admin user create --username jsmith --superuser
  meridian-admin user list
  meridian-admin user delete --username jsmith

Use "meridian-admin <command> --help" for more information about a command.`)
}

// cliEnv bundles what every subcommand needs.
type cliEnv struct {
	cfg    *config.Config
	users  repository.UserRepository
	groups repository.GroupRepository
	tx     repository.TxManager
	hasher domain.Hasher
	logger zerolog.Logger
	close  func()
}

func setup(configPath string) (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Quiet logger; CLI output goes to stdout.
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	ctx := context.Background()
	env := &cliEnv{
		cfg:    cfg,
		hasher: crypto.NewBcryptHasher(cfg.Auth.BcryptCost),
		logger: logger,
	}

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		env.users = sqlite.NewUserRepository(db)
		env.groups = sqlite.NewGroupRepository(db)
		env.tx = db
		env.close = func() { db.Close() }

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		env.users = postgres.NewUserRepository(db)
		env.groups = postgres.NewGroupRepository(db)
		env.tx = db
		env.close = func() { db.Close() }

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return env, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// readPassword prompts for a password twice, without echo when attached to
// a terminal.
func readPassword() (string, error) {
	read := func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		if term.IsTerminal(int(syscall.Stdin)) {
			b, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			return string(b), err
		}
		var s string
		_, err := fmt.Scanln(&s)
		return s, err
	}

	p1, err := read("Password: ")
	if err != nil {
		return "", err
	}
	p2, err := read("Password (again): ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", fmt.Errorf("passwords do not match")
	}
	if p1 == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return p1, nil
}

func runBootstrap(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "admin", "initial superuser username")
	_ = fs.Parse(args)

	env, err := setup(*configPath)
	if err != nil {
		fatal(err)
	}
	defer env.close()

	ctx := context.Background()

	count, err := env.users.Count(ctx)
	if err != nil {
		fatal(err)
	}
	if count > 0 {
		fmt.Println("Users already exist; nothing to do.")
		return
	}

	password, err := readPassword()
	if err != nil {
		fatal(err)
	}

	seeder := bootstrap.NewSeeder(env.users, env.tx, env.hasher, lock.NewMemoryLocker(), env.logger)
	if err := seeder.EnsureAdmin(ctx, *username, password); err != nil {
		fatal(err)
	}

	fmt.Printf("Superuser %q created.\n", *username)
}

func runUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meridian-admin user <create|list|delete> [flags]")
		os.Exit(1)
	}

	switch args[0] {
	case "create":
		runUserCreate(args[1:])
	case "list":
		runUserList(args[1:])
	case "delete":
		runUserDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown user subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// systemCaller is the implicit superuser identity for CLI operations.
// CLI access implies host access, which outranks any API privilege.
func systemCaller() domain.Caller {
	return domain.Caller{
		Username:        "system",
		IsAuthenticated: true,
		IsActive:        true,
		IsSuperuser:     true,
	}
}

func runUserCreate(args []string) {
	fs := flag.NewFlagSet("user create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "", "username (required)")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	superuser := fs.Bool("superuser", false, "grant superuser privilege")
	inactive := fs.Bool("inactive", false, "create the account deactivated")
	_ = fs.Parse(args)

	if *username == "" {
		fatal(fmt.Errorf("--username is required"))
	}

	env, err := setup(*configPath)
	if err != nil {
		fatal(err)
	}
	defer env.close()

	password, err := readPassword()
	if err != nil {
		fatal(err)
	}

	admin := service.NewAdminService(env.users, env.groups, env.tx, env.hasher, env.logger)
	out, err := admin.CreateUser(context.Background(), systemCaller(), service.CreateUserInput{
		Username:    *username,
		FirstName:   *firstName,
		LastName:    *lastName,
		Password1:   password,
		Password2:   password,
		IsActive:    !*inactive,
		IsSuperuser: *superuser,
	})
	if err != nil {
		fatal(err)
	}

	fmt.Printf("User %q created (id %d).\n", out.User.Username, out.User.ID)
}

func runUserList(args []string) {
	fs := flag.NewFlagSet("user list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	env, err := setup(*configPath)
	if err != nil {
		fatal(err)
	}
	defer env.close()

	admin := service.NewAdminService(env.users, env.groups, env.tx, env.hasher, env.logger)
	out, err := admin.ListUsers(context.Background(), systemCaller(), service.ListUsersInput{Limit: 1000})
	if err != nil {
		fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tACTIVE\tSUPERUSER\tLAST LOGIN")
	for _, u := range out.Users {
		lastLogin := "never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Format(time.RFC3339)
		}
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\n", u.ID, u.Username, name, u.IsActive, u.IsSuperuser, lastLogin)
	}
	w.Flush()
	fmt.Printf("\n%d user(s)\n", out.Total)
}

func runUserDelete(args []string) {
	fs := flag.NewFlagSet("user delete", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "", "username (required)")
	_ = fs.Parse(args)

	if *username == "" {
		fatal(fmt.Errorf("--username is required"))
	}

	env, err := setup(*configPath)
	if err != nil {
		fatal(err)
	}
	defer env.close()

	admin := service.NewAdminService(env.users, env.groups, env.tx, env.hasher, env.logger)
	if err := admin.DeleteUser(context.Background(), systemCaller(), service.DeleteUserInput{Username: *username}); err != nil {
		fatal(err)
	}

	fmt.Printf("User %q deleted.\n", *username)
}
