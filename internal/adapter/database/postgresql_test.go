package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type fakeRunner struct {
	calls   []Command
	results []Result
	errs    []error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (Result, error) {
	i := len(f.calls)
	f.calls = append(f.calls, cmd)
	var res Result
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func testTarget(name string) domain.DatabaseTarget {
	return domain.DatabaseTarget{
		Name: name,
		Conn: domain.Connection{Host: "db.local", Port: 5433, User: "admin", Password: "s3cret"},
	}
}

func TestPostgreSQL(t *testing.T) {
	Convey("Given a PostgreSQL adapter with a fake runner", t, func() {
		runner := &fakeRunner{}
		pg := NewPostgreSQL(runner, DefaultTimeouts())
		ctx := context.Background()

		Convey("Ping runs SELECT 1 through psql with the probe timeout", func() {
			So(pg.Ping(ctx, testTarget("app")), ShouldBeNil)
			So(len(runner.calls), ShouldEqual, 1)

			call := runner.calls[0]
			So(call.Name, ShouldEqual, "psql")
			So(call.Args, ShouldResemble, []string{"-h", "db.local", "-p", "5433", "-U", "admin", "-d", "app", "-c", "SELECT 1;"})
			So(call.Env, ShouldResemble, []string{"PGPASSWORD=s3cret"})
			So(call.Timeout, ShouldEqual, 30*time.Second)
			So(call.String(), ShouldNotContainSubstring, "s3cret")
		})

		Convey("Ping failure is reported as unreachable", func() {
			runner.errs = []error{fmt.Errorf("%w: refused", domain.ErrToolFailed)}
			err := pg.Ping(ctx, testTarget("app"))
			So(errors.Is(err, domain.ErrUnreachable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "30s")
		})

		Convey("Dump selects the pg_dump format flag", func() {
			So(pg.Dump(ctx, testTarget("app"), domain.FormatDump, "/tmp/a.dump"), ShouldBeNil)
			So(pg.Dump(ctx, testTarget("app"), domain.FormatSQL, "/tmp/a.sql"), ShouldBeNil)

			So(runner.calls[0].Name, ShouldEqual, "pg_dump")
			So(runner.calls[0].Args[6:], ShouldResemble, []string{"-d", "app", "-F", "c", "-f", "/tmp/a.dump"})
			So(runner.calls[1].Args[6:], ShouldResemble, []string{"-d", "app", "-F", "p", "-f", "/tmp/a.sql"})
			So(runner.calls[0].Timeout, ShouldEqual, time.Hour)
		})

		Convey("Dump failure keeps the tool error", func() {
			runner.errs = []error{fmt.Errorf("%w: boom", domain.ErrTimeout)}
			err := pg.Dump(ctx, testTarget("app"), domain.FormatDump, "/tmp/a.dump")
			So(errors.Is(err, domain.ErrTimeout), ShouldBeTrue)
		})

		Convey("CreateDatabase", func() {
			Convey("issues a quoted CREATE DATABASE against the maintenance database", func() {
				So(pg.CreateDatabase(ctx, testTarget(`we"ird`)), ShouldBeNil)
				args := runner.calls[0].Args
				So(args[7], ShouldEqual, "postgres")
				So(args[9], ShouldEqual, `CREATE DATABASE "we""ird";`)
			})

			Convey("treats an already existing database as success", func() {
				runner.results = []Result{{ExitCode: 1, Stderr: `ERROR:  database "app" already exists`}}
				runner.errs = []error{fmt.Errorf("%w: exit 1", domain.ErrToolFailed)}
				So(pg.CreateDatabase(ctx, testTarget("app")), ShouldBeNil)
			})

			Convey("reports any other failure", func() {
				runner.results = []Result{{ExitCode: 2, Stderr: "connection refused"}}
				runner.errs = []error{fmt.Errorf("%w: exit 2", domain.ErrToolFailed)}
				err := pg.CreateDatabase(ctx, testTarget("app"))
				So(errors.Is(err, domain.ErrToolFailed), ShouldBeTrue)
			})
		})

		Convey("Restore", func() {
			Convey("uses pg_restore with mode flags for the custom format", func() {
				_, err := pg.Restore(ctx, testTarget("app"), domain.FormatDump, "/b/a.dump", domain.RestoreOptions{Clean: true, SchemaOnly: true})
				So(err, ShouldBeNil)
				call := runner.calls[0]
				So(call.Name, ShouldEqual, "pg_restore")
				So(call.Args[6:], ShouldResemble, []string{"-d", "app", "-v", "-c", "-s", "/b/a.dump"})
				So(call.Timeout, ShouldEqual, 2*time.Hour)
			})

			Convey("passes -a for data-only", func() {
				_, _ = pg.Restore(ctx, testTarget("app"), domain.FormatDump, "/b/a.dump", domain.RestoreOptions{DataOnly: true})
				So(runner.calls[0].Args[6:], ShouldResemble, []string{"-d", "app", "-v", "-a", "/b/a.dump"})
			})

			Convey("replays plain SQL through psql", func() {
				_, _ = pg.Restore(ctx, testTarget("app"), domain.FormatSQL, "/b/a.sql", domain.RestoreOptions{Clean: true})
				call := runner.calls[0]
				So(call.Name, ShouldEqual, "psql")
				So(call.Args[6:], ShouldResemble, []string{"-d", "app", "-f", "/b/a.sql"})
			})

			Convey("returns the tool output alongside the error", func() {
				runner.results = []Result{{ExitCode: 1, Stderr: "pg_restore: warning: errors ignored on restore: 1"}}
				runner.errs = []error{fmt.Errorf("%w: exit 1", domain.ErrToolFailed)}
				res, err := pg.Restore(ctx, testTarget("app"), domain.FormatDump, "/b/a.dump", domain.RestoreOptions{})
				So(err, ShouldNotBeNil)
				So(res.ExitCode, ShouldEqual, 1)
				So(res.Stderr, ShouldContainSubstring, "errors ignored")
			})
		})
	})
}

func TestExecRunner(t *testing.T) {
	Convey("Given the ExecRunner", t, func() {
		runner := ExecRunner{}
		ctx := context.Background()

		Convey("A successful command captures stdout", func() {
			res, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo hello"}})
			So(err, ShouldBeNil)
			So(res.ExitCode, ShouldEqual, 0)
			So(res.Stdout, ShouldEqual, "hello\n")
		})

		Convey("A nonzero exit reports the code and stderr", func() {
			res, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo warn >&2; exit 2"}})
			So(errors.Is(err, domain.ErrToolFailed), ShouldBeTrue)
			So(res.ExitCode, ShouldEqual, 2)
			So(res.Stderr, ShouldEqual, "warn\n")
		})

		Convey("Extra environment reaches the tool", func() {
			res, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "printf %s \"$PGPASSWORD\""}, Env: []string{"PGPASSWORD=pw"}})
			So(err, ShouldBeNil)
			So(res.Stdout, ShouldEqual, "pw")
		})

		Convey("A command exceeding its timeout is reported as a timeout", func() {
			_, err := runner.Run(ctx, Command{Name: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond})
			So(errors.Is(err, domain.ErrTimeout), ShouldBeTrue)
		})

		Convey("A missing binary is reported as not found", func() {
			_, err := runner.Run(ctx, Command{Name: "pg_definitely_missing_tool"})
			So(errors.Is(err, domain.ErrToolNotFound), ShouldBeTrue)
		})
	})
}
