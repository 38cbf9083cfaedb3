package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

const (
	DefaultProbeTimeout   = 30 * time.Second
	DefaultDumpTimeout    = 3600 * time.Second
	DefaultRestoreTimeout = 7200 * time.Second

	maintenanceDatabase = "postgres"
)

type Timeouts struct {
	Probe   time.Duration
	Dump    time.Duration
	Restore time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Probe: DefaultProbeTimeout, Dump: DefaultDumpTimeout, Restore: DefaultRestoreTimeout}
}

// PostgreSQL drives the PostgreSQL client tools (psql, pg_dump, pg_restore).
type PostgreSQL struct {
	runner   Runner
	timeouts Timeouts
}

func NewPostgreSQL(runner Runner, timeouts Timeouts) *PostgreSQL {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PostgreSQL{runner: runner, timeouts: timeouts}
}

func (p *PostgreSQL) Ping(ctx context.Context, target domain.DatabaseTarget) error {
	args := append(connArgs(target.Conn), "-d", target.Name, "-c", "SELECT 1;")
	cmd := Command{Name: "psql", Args: args, Env: passwordEnv(target.Conn), Timeout: p.timeouts.Probe}

	if _, err := p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %s (timeout %s): %w", domain.ErrUnreachable, target.Name, p.timeouts.Probe, err)
	}
	return nil
}

func (p *PostgreSQL) Dump(ctx context.Context, target domain.DatabaseTarget, format domain.Format, outputPath string) error {
	formatFlag := "c"
	if format == domain.FormatSQL {
		formatFlag = "p"
	}
	args := append(connArgs(target.Conn), "-d", target.Name, "-F", formatFlag, "-f", outputPath)
	cmd := Command{Name: "pg_dump", Args: args, Env: passwordEnv(target.Conn), Timeout: p.timeouts.Dump}

	if _, err := p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("pg_dump %s (%s, timeout %s): %w", target.Name, format, p.timeouts.Dump, err)
	}
	return nil
}

// CreateDatabase creates target.Name, treating an existing database as success.
func (p *PostgreSQL) CreateDatabase(ctx context.Context, target domain.DatabaseTarget) error {
	stmt := fmt.Sprintf("CREATE DATABASE %s;", quoteIdent(target.Name))
	args := append(connArgs(target.Conn), "-d", maintenanceDatabase, "-c", stmt)
	cmd := Command{Name: "psql", Args: args, Env: passwordEnv(target.Conn), Timeout: p.timeouts.Probe}

	res, err := p.runner.Run(ctx, cmd)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrToolFailed) && strings.Contains(res.Stderr, "already exists") {
		return nil
	}
	return fmt.Errorf("create database %s: %w", target.Name, err)
}

// Restore replays path into target.Name with pg_restore (custom format) or psql (plain).
// The tool's result is returned even when err is non-nil so callers can classify it.
func (p *PostgreSQL) Restore(ctx context.Context, target domain.DatabaseTarget, format domain.Format, path string, opts domain.RestoreOptions) (domain.ToolResult, error) {
	var cmd Command
	if format == domain.FormatDump {
		args := append(connArgs(target.Conn), "-d", target.Name, "-v")
		if opts.Clean {
			args = append(args, "-c")
		}
		if opts.DataOnly {
			args = append(args, "-a")
		} else if opts.SchemaOnly {
			args = append(args, "-s")
		}
		args = append(args, path)
		cmd = Command{Name: "pg_restore", Args: args}
	} else {
		args := append(connArgs(target.Conn), "-d", target.Name, "-f", path)
		cmd = Command{Name: "psql", Args: args}
	}
	cmd.Env = passwordEnv(target.Conn)
	cmd.Timeout = p.timeouts.Restore

	res, err := p.runner.Run(ctx, cmd)
	return domain.ToolResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, err
}

func connArgs(conn domain.Connection) []string {
	return []string{"-h", conn.Host, "-p", strconv.Itoa(conn.Port), "-U", conn.User}
}

func passwordEnv(conn domain.Connection) []string {
	return []string{"PGPASSWORD=" + conn.Password}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
