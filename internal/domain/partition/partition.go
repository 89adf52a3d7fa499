// Package partition draws random equal-size partitions of a player set.
package partition

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/teamsplit/internal/domain/model"
)

// Generator produces partitions of a fixed player set into NumTeams teams of
// TeamSize players. It is safe for concurrent use as long as every goroutine
// passes its own random source.
type Generator struct {
	players  []model.Player
	numTeams int
	teamSize int
}

// Capacity returns the number of players numTeams teams of teamSize hold.
// Both counts must be positive and their product must fit in an int.
func Capacity(numTeams, teamSize int) (int, error) {
	if numTeams <= 0 || teamSize <= 0 {
		return 0, fmt.Errorf("%w: %d teams of %d", ErrInvalidLayout, numTeams, teamSize)
	}
	if numTeams > math.MaxInt/teamSize {
		return 0, fmt.Errorf("%w: %d teams of %d", ErrLayoutTooLarge, numTeams, teamSize)
	}
	return numTeams * teamSize, nil
}

// NewGenerator checks the layout against the player count.
func NewGenerator(players []model.Player, numTeams, teamSize int) (*Generator, error) {
	want, err := Capacity(numTeams, teamSize)
	if err != nil {
		return nil, err
	}
	if len(players) != want {
		return nil, fmt.Errorf("%w: have %d players, need %d", ErrSizeMismatch, len(players), want)
	}
	cp := make([]model.Player, len(players))
	copy(cp, players)
	return &Generator{players: cp, numTeams: numTeams, teamSize: teamSize}, nil
}

// NumTeams returns the number of teams per partition.
func (g *Generator) NumTeams() int { return g.numTeams }

// TeamSize returns the number of players per team.
func (g *Generator) TeamSize() int { return g.teamSize }

// Generate shuffles the players uniformly and deals them round-robin: the
// player at shuffled position i joins team i mod NumTeams.
func (g *Generator) Generate(r *rand.Rand) model.Partition {
	order := make([]int, len(g.players))
	for i := range order {
		order[i] = i
	}
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	part := make(model.Partition, g.numTeams)
	for i := range part {
		part[i] = make(model.Team, 0, g.teamSize)
	}
	for pos, idx := range order {
		t := pos % g.numTeams
		part[t] = append(part[t], g.players[idx])
	}
	return part
}
