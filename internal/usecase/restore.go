package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

var customFormatMagic = []byte("PGDMP")

// Markers in tool stderr that turn a nonzero exit into a failure.
var errorMarkers = []string{"ERROR", "FATAL", "error:"}

type Restore struct {
	db         domain.RestoreDatabase
	compressor domain.Compressor
	logger     Logger
	now        func() time.Time
}

func NewRestore(db domain.RestoreDatabase, compressor domain.Compressor, logger Logger) *Restore {
	return &Restore{
		db:         db,
		compressor: compressor,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute restores req.ArtifactPath into req.Database on the server described by conn.
// The returned result is always populated; err is non-nil exactly when the restore failed.
func (uc *Restore) Execute(ctx context.Context, conn domain.Connection, req domain.RestoreRequest) (*domain.RestoreResult, error) {
	result := &domain.RestoreResult{
		ArtifactPath: req.ArtifactPath,
		Database:     req.Database,
		StartedAt:    uc.now(),
	}

	err := uc.restore(ctx, conn, req, result)
	result.EndedAt = uc.now()
	result.Success = err == nil

	for _, line := range strings.Split(RestoreSummary(result), "\n") {
		uc.logger.Infof("%s", line)
	}
	return result, err
}

func (uc *Restore) restore(ctx context.Context, conn domain.Connection, req domain.RestoreRequest, result *domain.RestoreResult) error {
	if err := req.Validate(); err != nil {
		uc.logger.Errorf("Invalid restore request: %v", err)
		return err
	}
	if strings.TrimSpace(req.Database) == "" {
		return fmt.Errorf("no target database given")
	}

	uc.logger.Infof("Restoring %s into %s", req.ArtifactPath, req.Database)

	if _, err := os.Stat(req.ArtifactPath); err != nil {
		uc.logger.Errorf("Backup file does not exist: %s", req.ArtifactPath)
		return fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, req.ArtifactPath)
	}

	path := req.ArtifactPath
	if strings.HasSuffix(path, domain.CompressedExtension) {
		decompressed, err := uc.decompress(path)
		if err != nil {
			uc.logger.Errorf("Decompression failed: %v", err)
			return err
		}
		defer func() {
			if err := os.Remove(decompressed); err != nil {
				uc.logger.Warnf("Failed to remove temporary file %s: %v", decompressed, err)
				return
			}
			uc.logger.Infof("Removed temporary file %s", decompressed)
		}()
		path = decompressed
	}

	format := DetectFormat(path)
	result.Format = format
	uc.logger.Infof("Detected backup format: %s", format)

	target := domain.DatabaseTarget{Name: req.Database, Conn: conn}
	if err := uc.db.CreateDatabase(ctx, target); err != nil {
		uc.logger.Errorf("Cannot create or reach target database: %v", err)
		return err
	}
	if err := uc.db.Ping(ctx, target); err != nil {
		uc.logger.Errorf("Connection test failed: %v", err)
		return err
	}

	res, err := uc.db.Restore(ctx, target, format, path, req.Options())
	warnings, err := ClassifyOutcome(res, err)
	result.Warnings = warnings
	if err != nil {
		uc.logger.Errorf("Restore failed: %v", err)
		return err
	}
	if warnings != "" {
		uc.logger.Warnf("Restore finished with warnings: %s", warnings)
	} else {
		uc.logger.Infof("Restore tool finished successfully")
	}
	return nil
}

// decompress writes path without its .gz suffix next to the archive. An
// existing file of that name is left alone and a unique sibling is used instead.
func (uc *Restore) decompress(path string) (string, error) {
	dest := strings.TrimSuffix(path, domain.CompressedExtension)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		tmp, err := os.CreateTemp(filepath.Dir(dest), strings.TrimSuffix(filepath.Base(dest), ext)+".restore-*"+ext)
		if err != nil {
			return "", fmt.Errorf("create temporary file: %w", err)
		}
		dest = tmp.Name()
		_ = tmp.Close()
	}

	uc.logger.Infof("Decompressing %s -> %s", path, dest)
	if err := uc.compressor.Decompress(path, dest); err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// DetectFormat picks the restore tool for path: by extension first, then by
// the custom-format magic header, falling back to plain SQL.
func DetectFormat(path string) domain.Format {
	switch {
	case strings.HasSuffix(path, domain.FormatDump.Extension()):
		return domain.FormatDump
	case strings.HasSuffix(path, domain.FormatSQL.Extension()):
		return domain.FormatSQL
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.FormatSQL
	}
	defer f.Close()

	header := make([]byte, len(customFormatMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return domain.FormatSQL
	}
	if bytes.Equal(header, customFormatMagic) {
		return domain.FormatDump
	}
	return domain.FormatSQL
}

// ClassifyOutcome decides whether a restore tool run succeeded. A nonzero exit
// without an error marker in stderr is a success with warnings; timeouts and
// missing tools always fail.
func ClassifyOutcome(res domain.ToolResult, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, domain.ErrToolFailed) || res.ExitCode <= 0 {
		return "", err
	}
	for _, marker := range errorMarkers {
		if strings.Contains(res.Stderr, marker) {
			return "", err
		}
	}
	return strings.TrimSpace(res.Stderr), nil
}
