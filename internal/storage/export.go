package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ExportWriter persists admin data exports as timestamped JSON snapshots on
// local disk. Writes go through a temp file and rename so a crashed export
// never leaves a half-written snapshot behind.
type ExportWriter struct {
	mu      sync.Mutex
	dataDir string
}

func NewExportWriter(dataDir string) (*ExportWriter, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &ExportWriter{dataDir: dataDir}, nil
}

// Write stores the snapshot and returns the file path it landed at.
func (w *ExportWriter) Write(name string, data interface{}, now time.Time) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	filename := fmt.Sprintf("%s-%s.json", name, now.UTC().Format("20060102-150405"))
	finalPath := filepath.Join(w.dataDir, filename)
	tempPath := finalPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", err
	}
	return finalPath, nil
}

// List returns the snapshot files currently on disk, newest name last.
func (w *ExportWriter) List() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.dataDir)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
