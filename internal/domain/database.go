package domain

import "context"

type Database interface {
	Ping(ctx context.Context, target DatabaseTarget) error
	Dump(ctx context.Context, target DatabaseTarget, format Format, outputPath string) error
}

type RestoreOptions struct {
	Clean      bool
	DataOnly   bool
	SchemaOnly bool
}

// ToolResult is what a restore tool reported back.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type RestoreDatabase interface {
	Ping(ctx context.Context, target DatabaseTarget) error
	CreateDatabase(ctx context.Context, target DatabaseTarget) error
	Restore(ctx context.Context, target DatabaseTarget, format Format, path string, opts RestoreOptions) (ToolResult, error)
}
