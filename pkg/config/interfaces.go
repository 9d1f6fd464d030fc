package config

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem abstracts filesystem operations for testing
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	UserHomeDir() (string, error)
}

// LookupEnv reports the value of an environment variable
type LookupEnv func(key string) (string, bool)

// RealFileSystem implements FileSystem using actual OS calls
type RealFileSystem struct{}

func (r *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *RealFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (r *RealFileSystem) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (r *RealFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// Loader resolves settings from a config file and the environment
type Loader struct {
	fs  FileSystem
	env LookupEnv
}

// NewLoader creates a Loader with the given filesystem and environment
func NewLoader(fs FileSystem, env LookupEnv) *Loader {
	if env == nil {
		env = func(string) (string, bool) { return "", false }
	}
	return &Loader{fs: fs, env: env}
}

// NewDefaultLoader creates a Loader with real filesystem operations and os environment
func NewDefaultLoader() *Loader {
	return &Loader{fs: &RealFileSystem{}, env: os.LookupEnv}
}

// FS returns the filesystem the loader reads through
func (l *Loader) FS() FileSystem {
	return l.fs
}

// DefaultPath returns ~/.annotator/config.yaml
func (l *Loader) DefaultPath() (string, error) {
	home, err := l.fs.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".annotator", "config.yaml"), nil
}
