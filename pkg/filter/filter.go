// Package filter discovers sample files and applies blacklist/whitelist rules.
package filter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Rules holds compiled blacklist and whitelist patterns.
// Patterns are regular expressions matched against absolute paths.
type Rules struct {
	blacklist []*regexp.Regexp
	whitelist []*regexp.Regexp
	excluded  []string // File name suffixes rejected regardless of whitelist
}

// Compile builds Rules, failing on the first invalid pattern
func Compile(blacklist, whitelist []string) (*Rules, error) {
	r := &Rules{}
	for _, p := range blacklist {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid blacklist pattern %q: %w", p, err)
		}
		r.blacklist = append(r.blacklist, re)
	}
	for _, p := range whitelist {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern %q: %w", p, err)
		}
		r.whitelist = append(r.whitelist, re)
	}
	return r, nil
}

// ExcludeSuffix rejects every file whose name ends in one of suffixes,
// such as generated outputs sharing the samples directory
func (r *Rules) ExcludeSuffix(suffixes ...string) *Rules {
	r.excluded = append(r.excluded, suffixes...)
	return r
}

// Allow reports whether path should be processed.
// A file is rejected if it has an excluded suffix, or matches the blacklist
// and no whitelist pattern.
func (r *Rules) Allow(path string) bool {
	if r == nil {
		return true
	}
	for _, suffix := range r.excluded {
		if strings.HasSuffix(filepath.Base(path), suffix) {
			slog.Debug("Rejecting file", "path", path, "excluded_suffix", suffix)
			return false
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	rejectedBy := ""
	for _, re := range r.blacklist {
		if re.MatchString(absPath) {
			rejectedBy = re.String()
			break
		}
	}
	if rejectedBy == "" {
		return true
	}

	for _, re := range r.whitelist {
		if re.MatchString(absPath) {
			slog.Debug("Whitelist exception matched - allowing file", "pattern", re.String(), "path", absPath)
			return true
		}
	}

	slog.Debug("Rejecting file", "path", absPath, "blacklist_pattern", rejectedBy)
	return false
}

// ShouldProcessFile compiles the patterns and applies them to a single path
func ShouldProcessFile(path string, blacklist, whitelist []string) (bool, error) {
	r, err := Compile(blacklist, whitelist)
	if err != nil {
		return false, err
	}
	return r.Allow(path), nil
}

// MatchesPattern reports whether the base name of path matches a glob pattern
func MatchesPattern(path, pattern string) bool {
	matched, err := filepath.Match(pattern, filepath.Base(path))
	return err == nil && matched
}

// Discover returns the regular files in dir whose names match the glob
// pattern and that pass rules, sorted by path.
func Discover(dir, pattern string, rules *Rules) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid sample pattern %q: %w", pattern, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("samples path %s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to glob samples: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if !rules.Allow(path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
