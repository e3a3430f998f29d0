package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoWorkbook is returned when a source directory holds no workbook
var ErrNoWorkbook = errors.New("no workbook found")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds workbooks relative to a base path
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// Abs resolves path against the base path
func (d *Discovery) Abs(path string) string {
	if filepath.IsAbs(path) || d.basePath == "" {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// IsDir reports whether source names an existing directory
func (d *Discovery) IsDir(source string) bool {
	info, err := os.Stat(d.Abs(source))
	return err == nil && info.IsDir()
}

// FindWorkbooks lists the .xlsx files in dir, oldest first
func (d *Discovery) FindWorkbooks(dir string) ([]FileInfo, error) {
	fullPath := d.Abs(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// ResolveWorkbook turns a configured source into a workbook path.
// Files are returned as-is (existence is checked later); directories
// resolve to their newest workbook.
func (d *Discovery) ResolveWorkbook(source string) (string, error) {
	fullPath := d.Abs(source)

	info, err := os.Stat(fullPath)
	if err != nil || !info.IsDir() {
		return fullPath, nil
	}

	files, err := d.FindWorkbooks(fullPath)
	if err != nil {
		return "", err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return "", fmt.Errorf("%w in %s", ErrNoWorkbook, fullPath)
	}
	return latest.Path, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
