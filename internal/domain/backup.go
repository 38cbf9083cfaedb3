package domain

import (
	"strings"
	"time"
)

type Format string

const (
	FormatDump Format = "dump"
	FormatSQL  Format = "sql"
)

// Extension returns the file extension used for artifacts of this format.
func (f Format) Extension() string {
	return "." + string(f)
}

type FormatSelection string

const (
	SelectBoth FormatSelection = "both"
	SelectDump FormatSelection = "dump"
	SelectSQL  FormatSelection = "sql"
)

// Formats expands a selection into the formats to produce, dump first.
func (s FormatSelection) Formats() []Format {
	switch s {
	case SelectDump:
		return []Format{FormatDump}
	case SelectSQL:
		return []Format{FormatSQL}
	default:
		return []Format{FormatDump, FormatSQL}
	}
}

type Connection struct {
	Host     string
	Port     int
	User     string
	Password string
}

type DatabaseTarget struct {
	Name string
	Conn Connection
}

// Targets builds one target per database name, all sharing conn.
func Targets(names []string, conn Connection) []DatabaseTarget {
	targets := make([]DatabaseTarget, 0, len(names))
	for _, name := range names {
		targets = append(targets, DatabaseTarget{Name: strings.TrimSpace(name), Conn: conn})
	}
	return targets
}

// RunConfig is read once per run and never mutated while the run is active.
type RunConfig struct {
	DataRoot         string
	LogRoot          string
	RetentionDays    int
	LogRetentionDays int
	Compress         bool
	Formats          FormatSelection
}

type Artifact struct {
	Path       string
	Database   string
	Format     Format
	Compressed bool
	Size       int64
	CreatedAt  time.Time
}

type DatabaseOutcome struct {
	Database  string
	Artifacts []Artifact
	Errors    []error
}

type BackupRun struct {
	StartedAt time.Time
	EndedAt   time.Time
	Outcomes  []DatabaseOutcome
	Artifacts []Artifact
}

// Succeeded reports whether the run produced at least one artifact.
func (r *BackupRun) Succeeded() bool {
	return len(r.Artifacts) > 0
}

// Failures counts the per-database and per-format failures of the run.
func (r *BackupRun) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Errors)
	}
	return n
}
