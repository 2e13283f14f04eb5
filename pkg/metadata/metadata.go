package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"igpost/pkg/instagram"
)

// Supported encodings
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// PostMetadata is the sidecar written next to downloaded media
type PostMetadata struct {
	Shortcode    string            `json:"shortcode" yaml:"shortcode"`
	SourceURL    string            `json:"source_url" yaml:"source_url"`
	DownloadedAt time.Time         `json:"downloaded_at" yaml:"downloaded_at"`
	Files        []File            `json:"files" yaml:"files"`
	Post         *instagram.Result `json:"post" yaml:"post"`
}

// File describes one stored media file
type File struct {
	Index       int    `json:"index" yaml:"index"`
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Size        int64  `json:"size" yaml:"size"`
	AspectRatio string `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// New creates the metadata for a post looked up from sourceURL
func New(shortcode, sourceURL string, result *instagram.Result) *PostMetadata {
	return &PostMetadata{
		Shortcode:    shortcode,
		SourceURL:    sourceURL,
		DownloadedAt: time.Now().UTC(),
		Files:        []File{},
		Post:         result,
	}
}

// AddFile records a stored media file for the index-th item (1-based)
func (m *PostMetadata) AddFile(index int, name string, size int64) {
	file := File{Index: index, Name: name, Size: size, AspectRatio: "unknown"}
	if m.Post != nil && index >= 1 && index <= len(m.Post.Media) {
		item := m.Post.Media[index-1]
		file.Type = item.Type
		file.AspectRatio = GetAspectRatio(item.Dimensions)
	}
	m.Files = append(m.Files, file)
}

// Encode writes v to w as JSON (indented) or YAML
func Encode(w io.Writer, v interface{}, format string) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// FileName returns the sidecar file name for a shortcode
func FileName(shortcode, format string) string {
	if strings.ToLower(format) == FormatYAML {
		return shortcode + ".yaml"
	}
	return shortcode + ".json"
}

// Save writes the metadata into dir and returns the file path
func (m *PostMetadata) Save(dir, format string) (string, error) {
	path := filepath.Join(dir, FileName(m.Shortcode, format))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := Encode(file, m, format); err != nil {
		file.Close()
		return "", err
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}

	return path, nil
}

// Load reads a metadata file written by Save. The format follows the file
// extension.
func Load(path string) (*PostMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta PostMetadata
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &meta)
	default:
		err = json.Unmarshal(data, &meta)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &meta, nil
}

// MetadataExists checks if a metadata file exists for a shortcode in dir
func MetadataExists(dir, shortcode string) bool {
	for _, format := range []string{FormatJSON, FormatYAML} {
		if _, err := os.Stat(filepath.Join(dir, FileName(shortcode, format))); err == nil {
			return true
		}
	}
	return false
}

// GetFormattedCaption returns a single-line caption truncated to maxLength
// runes for display
func GetFormattedCaption(caption string, maxLength int) string {
	if caption == "" {
		return ""
	}

	caption = strings.Join(strings.Fields(caption), " ")
	runes := []rune(caption)
	if maxLength > 3 && len(runes) > maxLength {
		caption = string(runes[:maxLength-3]) + "..."
	}

	return caption
}

// GetAspectRatio returns the aspect ratio as a string
func GetAspectRatio(d instagram.Dimensions) string {
	if d.Height == 0 || d.Width == 0 {
		return "unknown"
	}

	ratio := float64(d.Width) / float64(d.Height)

	// Common aspect ratios
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.79 && ratio < 0.81:
		return "4:5"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}
