// Package output writes annotated copies of processed sample files.
package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wouteroostervld/annotator/pkg/batch"
)

// Suffix is appended to the sample file stem
const Suffix = "_annotated.py"

// Writer renders file summaries into OutputDir
type Writer struct {
	dir string
}

// New creates the output directory and returns a writer for it
func New(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// PathFor returns the annotated output path for a sample file name
func (w *Writer) PathFor(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	return filepath.Join(w.dir, stem+Suffix)
}

// Render builds the annotated file: a header docstring, then every function
// in file order, preceded by its annotation when one was generated.
func Render(summary *batch.FileSummary) string {
	parts := make([]string, 0, len(summary.Records)+1)
	parts = append(parts, fmt.Sprintf(`"""Auto-generated function annotations: %s"""`, summary.FileName)+"\n")
	for _, rec := range summary.Records {
		if rec.Success && rec.Result != nil {
			parts = append(parts, rec.Result.Text+"\n"+rec.Source+"\n")
		} else {
			parts = append(parts, rec.Source+"\n")
		}
	}
	return strings.Join(parts, "\n")
}

// Write atomically replaces the annotated output for summary.
// Files that failed extraction are skipped.
func (w *Writer) Write(ctx context.Context, summary *batch.FileSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if summary.ExtractionError != "" {
		return nil
	}
	return writeAtomic(w.PathFor(summary.FileName), Render(summary))
}

func writeAtomic(dest, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if _, err := bw.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	return nil
}

// Ensure Writer implements batch.Writer
var _ batch.Writer = (*Writer)(nil)
