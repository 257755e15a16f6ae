package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage keeps result files under a base directory
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

func (s *LocalStorage) Write(ctx context.Context, path string, data []byte) error {
	fullPath := filepath.Join(s.baseDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

// WriteJSON stores data as indented JSON
func (s *LocalStorage) WriteJSON(ctx context.Context, path string, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return s.Write(ctx, path, append(b, '\n'))
}

func (s *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.baseDir, path))
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.baseDir, path))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// WriteLines writes one entry per line. Empty input writes nothing.
func (s *LocalStorage) WriteLines(ctx context.Context, path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return s.Write(ctx, path, []byte(strings.Join(lines, "\n")+"\n"))
}

// ResultFile is the on-disk envelope for one invocation's output.
type ResultFile struct {
	Meta ResultMeta  `json:"meta"`
	Data interface{} `json:"data"`
}

type ResultMeta struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Target    string    `json:"target"`
	Command   string    `json:"command"`
	StartTime time.Time `json:"start_time"`
	Duration  string    `json:"duration"`
	Status    string    `json:"status"` // "completed" or "failed"
	Error     string    `json:"error,omitempty"`
	Version   string    `json:"version"`
}

// ResultPath is where an invocation's JSON lands: <tool>/<id>.json
func ResultPath(tool, id string) string {
	return filepath.Join(tool, id+".json")
}

// NewID returns a fresh invocation identifier.
func NewID() string {
	return uuid.New().String()
}
