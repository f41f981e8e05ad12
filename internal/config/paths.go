package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations: everything is
// anchored at the executable directory, never the current working
// directory, so the server behaves the same no matter where it is
// launched from.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string

	// Well-known files
	DatasetCSV string
}

// GetPaths returns the application paths relative to the executable location.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location.
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("resolve executable symlinks: %w", err)
	}

	exeDir := filepath.Dir(exe)

	// Directory structure:
	//   <exe dir>/
	//     ├── data/
	//     │   ├── complaints.csv   (source dataset)
	//     │   └── exports/         (generated CSV/XLSX reports)
	//     └── logs/
	dataDir := filepath.Join(exeDir, "data")

	return &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		LogsDir:       filepath.Join(exeDir, "logs"),
		DatasetCSV:    filepath.Join(dataDir, "complaints.csv"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// GetDataPath returns the path for a file in the data directory
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// GetExportPath returns the path for a generated export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution writes the resolved paths at startup for debugging
// misplaced-dataset reports.
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}
	wd, _ := os.Getwd()
	logger.Info("resolved application paths",
		slog.Group("paths",
			slog.String("executable_dir", p.ExecutableDir),
			slog.String("data_dir", p.DataDir),
			slog.String("exports_dir", p.ExportsDir),
			slog.String("logs_dir", p.LogsDir),
			slog.String("dataset_csv", p.DatasetCSV),
		),
		slog.Group("environment",
			slog.String("working_dir", wd),
		),
		slog.Bool("dataset_exists", FileExists(p.DatasetCSV)),
	)
}
