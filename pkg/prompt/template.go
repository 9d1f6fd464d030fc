package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Placeholder is replaced by the function source when a template is rendered
const Placeholder = "{function_code}"

// DefaultTemplate is used when no template file is configured or found
const DefaultTemplate = "Please generate annotation for the following Python function.\n" +
	"The annotation must include 3 parts:\n" +
	"1. Input: description of input parameters\n" +
	"2. Processing: specific operation steps\n" +
	"3. Output: description of return value\n\n" +
	"Requirements:\n" +
	"- Use English only\n" +
	"- Plain text format (no Markdown/code blocks)\n" +
	"- No extra content\n" +
	"- Keep concise\n\n" +
	Placeholder

// ErrPlaceholder is returned for templates without exactly one placeholder
var ErrPlaceholder = errors.New("template must contain exactly one " + Placeholder + " placeholder")

// FileReader is the part of the filesystem the template loader needs
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// ValidateTemplate checks that tmpl contains the placeholder exactly once
func ValidateTemplate(tmpl string) error {
	if n := strings.Count(tmpl, Placeholder); n != 1 {
		return fmt.Errorf("%w (found %d)", ErrPlaceholder, n)
	}
	return nil
}

// LoadTemplate reads the template at path, trimmed of surrounding whitespace.
// An empty path or a file that does not exist yields DefaultTemplate.
func LoadTemplate(fsys FileReader, path string) (string, error) {
	if path == "" {
		return DefaultTemplate, nil
	}

	if _, err := fsys.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultTemplate, nil
		}
		return "", fmt.Errorf("failed to stat template: %w", err)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	tmpl := strings.TrimSpace(string(data))
	if err := ValidateTemplate(tmpl); err != nil {
		return "", fmt.Errorf("invalid template %s: %w", path, err)
	}
	return tmpl, nil
}

// Render substitutes source into the template verbatim
func Render(tmpl, source string) string {
	return strings.Replace(tmpl, Placeholder, source, 1)
}
