package compressor

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type GzipCompressor struct {
	level int
}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{level: gzip.DefaultCompression}
}

// Compress writes path.gz, verifies it, and only then removes path.
// On any failure the partial archive is removed and path is returned unchanged.
func (g *GzipCompressor) Compress(path string) (string, error) {
	destPath := path + domain.CompressedExtension

	if err := g.write(path, destPath); err != nil {
		return path, fmt.Errorf("%w: %w", domain.ErrCompression, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		_ = os.Remove(destPath)
		return path, fmt.Errorf("%w: verify %s: %w", domain.ErrCompression, destPath, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(destPath)
		return path, fmt.Errorf("%w: %s is empty", domain.ErrCompression, destPath)
	}

	if err := os.Remove(path); err != nil {
		return destPath, fmt.Errorf("failed to remove original %s: %w", path, err)
	}
	return destPath, nil
}

// write removes destPath again if it fails after creating it.
func (g *GzipCompressor) write(sourcePath, destPath string) (err error) {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer func() {
		_ = destFile.Close()
		if err != nil {
			_ = os.Remove(destPath)
		}
	}()

	gzipWriter, err := gzip.NewWriterLevel(destFile, g.level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := io.Copy(gzipWriter, sourceFile); err != nil {
		_ = gzipWriter.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync dest file: %w", err)
	}
	return destFile.Close()
}

// Decompress streams sourcePath into destPath. A partially written destPath is removed.
func (g *GzipCompressor) Decompress(sourcePath, destPath string) (err error) {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	gzipReader, err := gzip.NewReader(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer func() {
		_ = destFile.Close()
		if err != nil {
			_ = os.Remove(destPath)
		}
	}()

	if _, err := io.Copy(destFile, gzipReader); err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}

	return destFile.Close()
}
