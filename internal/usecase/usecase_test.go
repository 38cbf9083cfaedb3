package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Infof(template string, args ...interface{}) {
	l.record("INFO", template, args...)
}

func (l *recordingLogger) Errorf(template string, args ...interface{}) {
	l.record("ERROR", template, args...)
}

func (l *recordingLogger) Warnf(template string, args ...interface{}) {
	l.record("WARN", template, args...)
}

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if len(line) > len(level) && line[:len(level)] == level {
			n++
		}
	}
	return n
}

// fakeDatabase writes a small file per dump. Databases in unreachable fail
// Ping; formats in failDump fail Dump after leaving a partial file behind.
type fakeDatabase struct {
	unreachable map[string]bool
	failDump    map[domain.Format]bool
	pinged      []string
	dumped      []string
}

func (f *fakeDatabase) Ping(_ context.Context, target domain.DatabaseTarget) error {
	f.pinged = append(f.pinged, target.Name)
	if f.unreachable[target.Name] {
		return fmt.Errorf("%w: %s", domain.ErrUnreachable, target.Name)
	}
	return nil
}

func (f *fakeDatabase) Dump(_ context.Context, target domain.DatabaseTarget, format domain.Format, outputPath string) error {
	f.dumped = append(f.dumped, outputPath)
	if f.failDump[format] {
		_ = os.WriteFile(outputPath, []byte("partial"), 0644)
		return fmt.Errorf("%w: pg_dump exited with code 1", domain.ErrToolFailed)
	}
	return os.WriteFile(outputPath, []byte("-- dump of "+target.Name+"\n"), 0644)
}

type fakeCompressor struct {
	err error
}

func (f *fakeCompressor) Compress(path string) (string, error) {
	if f.err != nil {
		return path, f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return path, err
	}
	dest := path + domain.CompressedExtension
	if err := os.WriteFile(dest, append([]byte("gz:"), data...), 0644); err != nil {
		return path, err
	}
	return dest, os.Remove(path)
}

func (f *fakeCompressor) Decompress(sourcePath, destPath string) error {
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data[len("gz:"):], 0644)
}

type sweepCall struct {
	root string
	days int
}

type fakeSweeper struct {
	calls []sweepCall
}

func (f *fakeSweeper) Sweep(_ context.Context, root string, days int) (SweepResult, error) {
	f.calls = append(f.calls, sweepCall{root: root, days: days})
	return SweepResult{}, nil
}
