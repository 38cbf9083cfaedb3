package domain

const CompressedExtension = ".gz"

type Compressor interface {
	// Compress replaces path with a verified compressed copy and returns the new path.
	// On failure the original path is returned untouched.
	Compress(path string) (string, error)
	Decompress(sourcePath, destPath string) error
}
