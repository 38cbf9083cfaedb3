package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	DateDirLayout   = "20060102"
	TimestampLayout = "20060102_150405"
)

// ArtifactName is <database>_<YYYYMMDD_HHMMSS>.<ext>.
func ArtifactName(database string, when time.Time, format Format) string {
	return fmt.Sprintf("%s_%s%s", database, when.Format(TimestampLayout), format.Extension())
}

// DatedDir is <root>/<YYYYMMDD>.
func DatedDir(root string, when time.Time) string {
	return filepath.Join(root, when.Format(DateDirLayout))
}

// RunLogName is backup_<YYYYMMDD_HHMMSS>.log.
func RunLogName(when time.Time) string {
	return "backup_" + when.Format(TimestampLayout) + ".log"
}
