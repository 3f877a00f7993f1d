// Package resolve locates files declared in a catalog document.
package resolve

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a path does not exist under any resolution
// strategy.
var ErrNotFound = errors.New("file not found")

// Path resolves path to an existing regular file. A leading "~" is expanded
// first. The path is then tried as given (absolute or relative to the
// working directory) and, failing that, relative to configDir.
func Path(path, configDir string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}

	if IsFile(expanded) {
		return expanded, nil
	}

	if configDir != "" && !filepath.IsAbs(expanded) {
		relative := filepath.Join(configDir, expanded)
		if IsFile(relative) {
			return relative, nil
		}
	}

	return "", fmt.Errorf("%w: could not find file %q", ErrNotFound, path)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// IsFile reports whether path exists and is not a directory.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// List reads a newline-delimited list of identifiers. Every line is
// stripped of surrounding whitespace; blank lines are kept as empty strings.
func List(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return lines, nil
}
