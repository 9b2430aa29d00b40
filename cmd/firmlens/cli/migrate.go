package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	// Registers the pgx database/sql driver used by goose.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/firmlens/firmlens/db/migrations"
)

// MigrateOptions defines inputs for the migrate command.
type MigrateOptions struct {
	DSN     string
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
}

// MigrateCommand runs the embedded schema migrations against the configured
// database and returns a process exit code.
func MigrateCommand(ctx context.Context, opts MigrateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	switch opts.Command {
	case "up", "down", "status", "version":
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: unknown command %q (expected up, down, status or version)\n", opts.Command)
		return 1
	}
	if opts.DSN == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "migrate: database DSN is required")
		return 1
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{out: opts.Stdout})
	if err := goose.SetDialect("postgres"); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: set dialect: %v\n", err)
		return 1
	}

	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: open database: %v\n", err)
		return 1
	}
	defer func() {
		_ = db.Close()
	}()

	switch opts.Command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		var version int64
		version, err = goose.GetDBVersionContext(ctx, db)
		if err == nil {
			_, _ = fmt.Fprintf(opts.Stdout, "schema version: %d\n", version)
		}
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate %s: %v\n", opts.Command, err)
		return 1
	}
	return 0
}

// gooseLogger routes goose output onto the command writer instead of the
// process-global logger.
type gooseLogger struct {
	out io.Writer
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	_, _ = fmt.Fprintf(l.out, format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	_, _ = fmt.Fprintf(l.out, format, v...)
}
