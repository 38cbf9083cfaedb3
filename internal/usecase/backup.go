package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Sweeper interface {
	Sweep(ctx context.Context, root string, days int) (SweepResult, error)
}

// Backup runs one backup pass over a list of databases.
type Backup struct {
	db         domain.Database
	compressor domain.Compressor
	sweeper    Sweeper
	logger     Logger
	now        func() time.Time
}

func NewBackup(
	db domain.Database,
	compressor domain.Compressor,
	sweeper Sweeper,
	logger Logger,
) *Backup {
	return &Backup{
		db:         db,
		compressor: compressor,
		sweeper:    sweeper,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute dumps every target in order. Per-database failures are recorded and
// the run continues; the run fails only when no artifact was produced or the
// data directories cannot be created.
func (uc *Backup) Execute(ctx context.Context, cfg domain.RunConfig, targets []domain.DatabaseTarget) (*domain.BackupRun, error) {
	run := &domain.BackupRun{StartedAt: uc.now()}
	defer func() { run.EndedAt = uc.now() }()

	uc.logger.Infof("Starting backup of %d database(s), format: %s, compression: %t",
		len(targets), cfg.Formats, cfg.Compress)

	if err := os.MkdirAll(cfg.DataRoot, 0755); err != nil {
		return run, fmt.Errorf("create backup root %s: %w", cfg.DataRoot, err)
	}
	dir := domain.DatedDir(cfg.DataRoot, run.StartedAt)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return run, fmt.Errorf("create backup directory %s: %w", dir, err)
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		name := strings.TrimSpace(target.Name)
		if name == "" {
			continue
		}
		target.Name = name

		outcome := uc.backupDatabase(ctx, cfg, dir, target)
		run.Outcomes = append(run.Outcomes, outcome)
		run.Artifacts = append(run.Artifacts, outcome.Artifacts...)
	}
	run.EndedAt = uc.now()

	if !run.Succeeded() {
		err := domain.ErrNoArtifacts
		for _, o := range run.Outcomes {
			err = multierr.Append(err, multierr.Combine(o.Errors...))
		}
		uc.logger.Errorf("Backup failed: no database was backed up")
		return run, err
	}

	uc.logger.Infof("Backup completed in %s: %d artifact(s), %d failure(s)",
		run.EndedAt.Sub(run.StartedAt).Round(time.Second), len(run.Artifacts), run.Failures())

	uc.sweep(ctx, cfg.DataRoot, cfg.RetentionDays)
	uc.sweep(ctx, cfg.LogRoot, cfg.LogRetentionDays)

	return run, nil
}

func (uc *Backup) backupDatabase(ctx context.Context, cfg domain.RunConfig, dir string, target domain.DatabaseTarget) domain.DatabaseOutcome {
	outcome := domain.DatabaseOutcome{Database: target.Name}
	uc.logger.Infof("[%s] Starting backup...", target.Name)

	if err := uc.db.Ping(ctx, target); err != nil {
		uc.logger.Errorf("[%s] Connection failed: %v", target.Name, err)
		outcome.Errors = append(outcome.Errors, err)
		return outcome
	}

	for _, format := range cfg.Formats.Formats() {
		artifact, err := uc.dump(ctx, cfg, dir, target, format)
		if err != nil {
			uc.logger.Errorf("[%s] %s backup failed: %v", target.Name, format, err)
			outcome.Errors = append(outcome.Errors, err)
			continue
		}
		outcome.Artifacts = append(outcome.Artifacts, artifact)
	}

	uc.logger.Infof("[%s] Finished: %d artifact(s), %d failure(s)",
		target.Name, len(outcome.Artifacts), len(outcome.Errors))
	return outcome
}

func (uc *Backup) dump(ctx context.Context, cfg domain.RunConfig, dir string, target domain.DatabaseTarget, format domain.Format) (domain.Artifact, error) {
	createdAt := uc.now()
	path := filepath.Join(dir, domain.ArtifactName(target.Name, createdAt, format))

	uc.logger.Infof("[%s] Creating %s backup: %s", target.Name, format, path)
	if err := uc.db.Dump(ctx, target, format, path); err != nil {
		_ = os.Remove(path)
		return domain.Artifact{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("stat backup file: %w", err)
	}

	artifact := domain.Artifact{
		Path:      path,
		Database:  target.Name,
		Format:    format,
		Size:      info.Size(),
		CreatedAt: createdAt,
	}
	uc.logger.Infof("[%s] Backup created, size: %.2f MB", target.Name, float64(artifact.Size)/(1024*1024))

	if cfg.Compress {
		uc.compress(&artifact)
	}
	return artifact, nil
}

// compress keeps the uncompressed artifact when compression fails.
func (uc *Backup) compress(artifact *domain.Artifact) {
	originalSize := artifact.Size

	compressedPath, err := uc.compressor.Compress(artifact.Path)
	if err != nil {
		uc.logger.Warnf("[%s] Compression failed, keeping %s: %v", artifact.Database, artifact.Path, err)
		return
	}

	artifact.Path = compressedPath
	artifact.Compressed = true
	if info, err := os.Stat(compressedPath); err == nil {
		artifact.Size = info.Size()
	}

	ratio := 0.0
	if originalSize > 0 {
		ratio = float64(artifact.Size) / float64(originalSize) * 100
	}
	uc.logger.Infof("[%s] Compression complete, size: %.2f MB (%.1f%% of original)",
		artifact.Database, float64(artifact.Size)/(1024*1024), ratio)
}

func (uc *Backup) sweep(ctx context.Context, root string, days int) {
	if uc.sweeper == nil || root == "" {
		return
	}
	if _, err := uc.sweeper.Sweep(ctx, root, days); err != nil {
		uc.logger.Warnf("Cleanup of %s interrupted: %v", root, err)
	}
}
