// Package roster reads and writes the rated player roster.
//
// A roster is a YAML document with a top-level players list. Each entry has a
// name and any number of numeric attributes:
//
//	players:
//	  - name: Alice
//	    tech: 7
//	    phy: 6
//	    vis: 8
//	    goal: 4
package roster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/pkg/logger"
	"gopkg.in/yaml.v3"
)

const filePermission = 0o644

type document struct {
	Players []record `yaml:"players"`
}

type record struct {
	Name       string             `yaml:"name"`
	Attributes map[string]float64 `yaml:",inline"`
}

// LoadFile reads the roster at path.
func LoadFile(ctx context.Context, path string) ([]model.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer func() { _ = f.Close() }()

	players, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Get().Debug(ctx, "roster loaded",
		logger.String("path", path),
		logger.Int("players", len(players)))
	return players, nil
}

// Decode parses a roster document. Names are trimmed and must be unique;
// ratings must be finite.
func Decode(r io.Reader) ([]model.Player, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRoster)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}

	players := make([]model.Player, 0, len(doc.Players))
	seen := make(map[string]struct{}, len(doc.Players))
	for i, rec := range doc.Players {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidRoster, i+1)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayer, name)
		}
		seen[name] = struct{}{}
		for _, attr := range slices.Sorted(maps.Keys(rec.Attributes)) {
			if v := rec.Attributes[attr]; math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: player %q has non-finite %s %v", ErrInvalidRoster, name, attr, v)
			}
		}
		players = append(players, model.NewPlayer(name, rec.Attributes))
	}
	return players, nil
}

// Encode writes players as a roster document.
func Encode(w io.Writer, players []model.Player) error {
	doc := document{Players: make([]record, len(players))}
	for i, p := range players {
		doc.Players[i] = record{Name: p.Name, Attributes: p.Attributes}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	return enc.Close()
}

// WriteFile writes players to path, replacing any existing file.
func WriteFile(path string, players []model.Player) error {
	var buf bytes.Buffer
	if err := Encode(&buf, players); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), filePermission); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}
