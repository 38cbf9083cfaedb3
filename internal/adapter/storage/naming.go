package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

var artifactSuffixes = []string{".dump", ".sql", ".dump.gz", ".sql.gz"}

func IsArtifactName(name string) bool {
	for _, suffix := range artifactSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ParseArtifactName recovers the database name and timestamp from an artifact file name.
func ParseArtifactName(filename string) (string, time.Time, error) {
	name := strings.TrimSuffix(filename, domain.CompressedExtension)
	name = strings.TrimSuffix(name, domain.FormatSQL.Extension())
	name = strings.TrimSuffix(name, domain.FormatDump.Extension())

	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return "", time.Time{}, fmt.Errorf("invalid artifact name %q", filename)
	}

	dateStr := parts[len(parts)-2]
	timeStr := parts[len(parts)-1]
	ts, err := time.ParseInLocation(domain.TimestampLayout, dateStr+"_"+timeStr, time.Local)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid artifact timestamp in %q: %w", filename, err)
	}

	return strings.Join(parts[:len(parts)-2], "_"), ts, nil
}
