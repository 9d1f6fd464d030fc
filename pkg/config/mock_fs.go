package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem for tests.
// Relative paths are resolved against Cwd.
type MockFileSystem struct {
	mu      sync.RWMutex
	Files   map[string][]byte
	HomeDir string
	Cwd     string
}

// NewMockFileSystem creates an empty mock filesystem
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:   make(map[string][]byte),
		HomeDir: "/home/testuser",
		Cwd:     "/work",
	}
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.Files[m.abs(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (m *MockFileSystem) Stat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.Files[m.abs(path)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
	}
	return &mockFileInfo{name: filepath.Base(path), size: int64(len(data))}, nil
}

func (m *MockFileSystem) Abs(path string) (string, error) {
	return m.abs(path), nil
}

func (m *MockFileSystem) UserHomeDir() (string, error) {
	return m.HomeDir, nil
}

// AddFile adds a file to the mock filesystem
func (m *MockFileSystem) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[m.abs(path)] = content
}

func (m *MockFileSystem) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(m.Cwd, path)
}

type mockFileInfo struct {
	name string
	size int64
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }
