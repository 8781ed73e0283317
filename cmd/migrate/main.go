package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/tradelink-backend/internal/bootstrap"
	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/migrate"
)

var dbCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"redo":    true,
	"status":  true,
	"version": true,
}

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	proc := bootstrap.Must("migrate")
	defer proc.Close()
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.Context()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})

	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	default:
		if !dbCommands[*cmd] {
			fail("unknown -cmd value: %s", *cmd)
		}
	}
	var target int64
	if *cmd == "version" {
		var err error
		if target, err = strconv.ParseInt(*version, 10, 64); err != nil {
			fail("-version must be a YYYYMMDDHHMMSS migration version")
		}
	}

	// Opened directly: the auto-migrate hook in proc.Database must not run
	// ahead of an explicit command.
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap database", err)
	}
	proc.OnClose("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		proc.Fatal(ctx, "failed to get sql handle", err)
	}

	var fsys fs.FS
	if *dir != migrate.DefaultDir {
		fsys = os.DirFS(*dir)
	}
	runner, err := migrate.NewRunner(sqlDB, goose.DialectPostgres, fsys, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to build goose provider", err)
	}

	switch *cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "redo":
		err = runner.Redo(ctx)
	case "version":
		err = runner.To(ctx, target)
	case "status":
		err = printStatus(ctx, runner)
	}
	if err != nil {
		proc.Fatal(ctx, "migration failed", err)
	}
	logg.Info(ctx, "migration complete")
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	statuses, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		applied := "pending"
		if st.Applied {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-16d %-25s %s\n", st.Version, applied, st.Path)
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
