// Package registry provides the sources of today's active player names.
package registry

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Source lists the names of the players taking part in a session.
type Source interface {
	ActiveNames(ctx context.Context) ([]string, error)
}

// Normalize trims names, drops empty ones and keeps the first occurrence of
// each duplicate.
func Normalize(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// StaticSource serves a fixed list of names.
type StaticSource struct {
	names []string
}

// NewStaticSource returns a Source over names.
func NewStaticSource(names []string) *StaticSource {
	return &StaticSource{names: append([]string(nil), names...)}
}

func (s *StaticSource) ActiveNames(_ context.Context) ([]string, error) {
	return Normalize(s.names), nil
}

// FileSource reads one name per line. Blank lines and lines starting with #
// are skipped.
type FileSource struct {
	path string
}

// NewFileSource returns a Source reading path on every call.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) ActiveNames(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open active list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read active list %s: %w", s.path, err)
	}
	return Normalize(names), nil
}
