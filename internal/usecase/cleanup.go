package usecase

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type SweepResult struct {
	Deleted int
	Pruned  int
	Failed  int
}

// Cleanup ages out files under a root and prunes the directories left empty.
type Cleanup struct {
	logger Logger
	now    func() time.Time
}

func NewCleanup(logger Logger) *Cleanup {
	return &Cleanup{
		logger: logger,
		now:    time.Now,
	}
}

// Sweep deletes every file under root whose age exceeds days*24h, then removes
// empty directories deepest first. The root itself is never removed.
// Failures are logged and counted; a missing root is a no-op.
func (uc *Cleanup) Sweep(ctx context.Context, root string, days int) (SweepResult, error) {
	var result SweepResult

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		uc.logger.Infof("Cleanup skipped, %s does not exist", root)
		return result, nil
	}

	uc.logger.Infof("Starting cleanup of %s, retention: %d days", root, days)
	maxAge := time.Duration(days) * 24 * time.Hour
	now := uc.now()

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			uc.logger.Warnf("Cannot access %s: %v", path, walkErr)
			result.Failed++
			return nil
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			uc.logger.Warnf("Cannot stat %s: %v", path, err)
			result.Failed++
			return nil
		}
		if now.Sub(fi.ModTime()) <= maxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			uc.logger.Errorf("Failed to delete %s: %v", path, err)
			result.Failed++
			return nil
		}
		uc.logger.Infof("Deleted old file: %s", path)
		result.Deleted++
		return nil
	})
	if err != nil {
		return result, err
	}

	// Deepest first so a parent is only checked after its children are gone.
	sort.SliceStable(dirs, func(i, j int) bool {
		return depth(dirs[i]) > depth(dirs[j])
	})
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			uc.logger.Warnf("Cannot read %s: %v", dir, err)
			result.Failed++
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			uc.logger.Errorf("Failed to remove empty directory %s: %v", dir, err)
			result.Failed++
			continue
		}
		result.Pruned++
	}

	uc.logger.Infof("Cleanup of %s completed: %d file(s) deleted, %d director(ies) pruned, %d failure(s)",
		root, result.Deleted, result.Pruned, result.Failed)
	return result, nil
}

func depth(path string) int {
	n := 0
	for _, r := range filepath.ToSlash(path) {
		if r == '/' {
			n++
		}
	}
	return n
}
