package domain

import "errors"

var (
	ErrUnreachable      = errors.New("database unreachable")
	ErrToolFailed       = errors.New("tool invocation failed")
	ErrToolNotFound     = errors.New("tool not found")
	ErrTimeout          = errors.New("tool timed out")
	ErrCompression      = errors.New("compression failed")
	ErrNoArtifacts      = errors.New("no database was backed up")
	ErrConflictingModes = errors.New("data-only and schema-only are mutually exclusive")
	ErrInvalidSchedule  = errors.New("unsupported schedule")
	ErrInvalidFormat    = errors.New("unsupported backup format")
	ErrArtifactNotFound = errors.New("backup file does not exist")
)
