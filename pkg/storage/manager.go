package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// mediaExtensions are the file types counted as downloaded media
var mediaExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".mp4":  true,
}

// Manager handles file storage operations and duplicate detection
type Manager struct {
	outputDir  string
	downloaded map[string]bool
	mu         sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir:  outputDir,
		downloaded: make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// MediaFileName names the index-th (1-based) media file of a post
func MediaFileName(shortcode string, index int, isVideo bool) string {
	ext := ".jpg"
	if isVideo {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s_%02d%s", shortcode, index, ext)
}

// scanExistingFiles records media files already present in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && mediaExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			m.downloaded[entry.Name()] = true
		}
	}

	return nil
}

// IsDownloaded checks if a file with the given name is already stored
func (m *Manager) IsDownloaded(name string) bool {
	m.mu.RLock()
	known := m.downloaded[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	// the file may have been written by another process since the scan
	if _, err := os.Stat(m.Path(name)); err != nil {
		return false
	}

	m.mu.Lock()
	m.downloaded[name] = true
	m.mu.Unlock()
	return true
}

// Path returns the full path of name inside the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// SaveMedia writes r to name atomically and returns the final path
func (m *Manager) SaveMedia(r io.Reader, name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	filename := m.Path(name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save media data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.downloaded[name] = true
	m.mu.Unlock()

	return filename, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetDownloadedCount returns the number of stored media files
func (m *Manager) GetDownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.downloaded)
}
