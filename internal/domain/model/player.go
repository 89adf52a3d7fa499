// Package model contains domain models passed between layers.
package model

// Player is a rated roster entry. Build it with NewPlayer and treat it as
// read-only afterwards; partitions share Player values across trials.
type Player struct {
	Name       string
	Attributes map[string]float64
}

// NewPlayer copies attrs so later changes by the caller cannot leak in.
func NewPlayer(name string, attrs map[string]float64) Player {
	cp := make(map[string]float64, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return Player{Name: name, Attributes: cp}
}

// Attr returns the named attribute, or 0 when the player has no rating for it.
func (p Player) Attr(name string) float64 {
	return p.Attributes[name]
}

// Team is an unordered group of players.
type Team []Player

// Names returns player names in team order.
func (t Team) Names() []string {
	names := make([]string, len(t))
	for i, p := range t {
		names[i] = p.Name
	}
	return names
}

// Partition assigns every active player to exactly one team.
type Partition []Team

// Size returns the number of players across all teams.
func (p Partition) Size() int {
	n := 0
	for _, t := range p {
		n += len(t)
	}
	return n
}
