package domain

import (
	"context"
	"time"
)

type RestoreRequest struct {
	ArtifactPath string
	Database     string
	Clean        bool
	DataOnly     bool
	SchemaOnly   bool
}

func (r RestoreRequest) Validate() error {
	if r.ArtifactPath == "" {
		return ErrArtifactNotFound
	}
	if r.DataOnly && r.SchemaOnly {
		return ErrConflictingModes
	}
	return nil
}

func (r RestoreRequest) Options() RestoreOptions {
	return RestoreOptions{Clean: r.Clean, DataOnly: r.DataOnly, SchemaOnly: r.SchemaOnly}
}

type RestoreResult struct {
	ArtifactPath string
	Database     string
	Format       Format
	StartedAt    time.Time
	EndedAt      time.Time
	Success      bool
	Warnings     string
}

func (r *RestoreResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}
