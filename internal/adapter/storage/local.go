package storage

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	LogTailLines    = 100
)

type Entry struct {
	Path       string    `json:"-"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"created_at"`
	Database   string    `json:"database,omitempty"`
	Format     string    `json:"format"`
	Compressed bool      `json:"compressed"`
}

type Page struct {
	Items      []Entry `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// LocalStorage is a read-only view over a directory tree populated by backup runs.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// Healthy reports whether the base directory exists.
func (l *LocalStorage) Healthy() error {
	info, err := os.Stat(l.basePath)
	if err != nil {
		return fmt.Errorf("backup directory not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("backup directory %s is not a directory", l.basePath)
	}
	return nil
}

// List returns every backup artifact below the base path, newest first.
func (l *LocalStorage) List(ctx context.Context) ([]Entry, error) {
	if err := l.Healthy(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !IsArtifactName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, newEntry(path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", l.basePath, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Page returns one page of List. A missing base directory yields an empty page.
func (l *LocalStorage) Page(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var entries []Entry
	if l.Healthy() == nil {
		var err error
		if entries, err = l.List(ctx); err != nil {
			return Page{}, err
		}
	}

	total := len(entries)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := entries[start:end]
	if items == nil {
		items = []Entry{}
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// TailLogs returns the last n lines of every run log below the base path,
// in file name order. A missing base directory yields no lines.
func (l *LocalStorage) TailLogs(ctx context.Context, n int) ([]string, error) {
	if l.Healthy() != nil {
		return []string{}, nil
	}

	var files []string
	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, "backup_") && strings.HasSuffix(name, ".log") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", l.basePath, err)
	}
	sort.Strings(files)

	lines := []string{}
	for _, file := range files {
		tail, err := tailFile(file, n)
		if err != nil {
			return nil, err
		}
		lines = append(lines, tail...)
	}
	return lines, nil
}

func tailFile(path string, n int) ([]string, error) {
	if n <= 0 {
		n = LogTailLines
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[1:], scanner.Text())
			continue
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return ring, nil
}

func newEntry(path string, info fs.FileInfo) Entry {
	name := info.Name()
	compressed := strings.HasSuffix(name, domain.CompressedExtension)
	base := strings.TrimSuffix(name, domain.CompressedExtension)

	format := string(domain.FormatSQL)
	if strings.HasSuffix(base, domain.FormatDump.Extension()) {
		format = string(domain.FormatDump)
	}

	entry := Entry{
		Path:       path,
		Name:       name,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		Format:     format,
		Compressed: compressed,
	}
	if db, _, err := ParseArtifactName(name); err == nil {
		entry.Database = db
	}
	return entry
}
