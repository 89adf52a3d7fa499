// Package scoring computes player and team scores from rated attributes.
//
// A Schema assigns roles to attribute names: additive attributes are summed
// into a score, the divided attribute contributes its value divided by the
// team size, and profile attributes are averaged per team for cross-team
// comparison. All functions are pure.
package scoring

import (
	"fmt"

	"github.com/okian/teamsplit/internal/domain/model"
)

// Default attribute names of the roster format.
const (
	AttrTechnical = "tech"
	AttrPhysical  = "phy"
	AttrVision    = "vis"
	AttrGoal      = "goal"
)

// Schema assigns scoring roles to attribute names.
type Schema struct {
	Additive []string
	Divided  string
	Profile  []string
}

// DefaultSchema mirrors the futsal roster: technique and physique count
// fully, goalkeeping is shared by the team, vision only shapes the profile.
func DefaultSchema() Schema {
	return Schema{
		Additive: []string{AttrTechnical, AttrPhysical},
		Divided:  AttrGoal,
		Profile:  []string{AttrTechnical, AttrPhysical, AttrVision},
	}
}

// Validate reports schema defects.
func (s Schema) Validate() error {
	if s.Divided == "" {
		return fmt.Errorf("%w: divided attribute must be set", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Additive))
	for _, a := range s.Additive {
		if a == "" {
			return fmt.Errorf("%w: empty additive attribute name", ErrInvalidSchema)
		}
		if a == s.Divided {
			return fmt.Errorf("%w: %q is both additive and divided", ErrInvalidSchema, a)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: additive attribute %q listed twice", ErrInvalidSchema, a)
		}
		seen[a] = struct{}{}
	}
	seen = make(map[string]struct{}, len(s.Profile))
	for _, a := range s.Profile {
		if a == "" {
			return fmt.Errorf("%w: empty profile attribute name", ErrInvalidSchema)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: profile attribute %q listed twice", ErrInvalidSchema, a)
		}
		seen[a] = struct{}{}
	}
	return nil
}

// Attributes returns every attribute name the schema reads, without duplicates.
func (s Schema) Attributes() []string {
	out := make([]string, 0, len(s.Additive)+len(s.Profile)+1)
	seen := make(map[string]struct{})
	add := func(a string) {
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, a := range s.Additive {
		add(a)
	}
	add(s.Divided)
	for _, a := range s.Profile {
		add(a)
	}
	return out
}

// PlayerScore is the sum of additive attributes plus divided/teamSize.
func (s Schema) PlayerScore(p model.Player, teamSize int) (float64, error) {
	if teamSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTeamSize, teamSize)
	}
	return s.additive(p) + p.Attr(s.Divided)/float64(teamSize), nil
}

// TeamScore sums additive attributes over the team and adds the team's
// divided total divided by teamSize.
func (s Schema) TeamScore(t model.Team, teamSize int) (float64, error) {
	if teamSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTeamSize, teamSize)
	}
	var sum, divided float64
	for _, p := range t {
		sum += s.additive(p)
		divided += p.Attr(s.Divided)
	}
	return sum + divided/float64(teamSize), nil
}

// TeamVariance is the population variance of the players' PlayerScore.
func (s Schema) TeamVariance(t model.Team, teamSize int) (float64, error) {
	if teamSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTeamSize, teamSize)
	}
	if len(t) <= 1 {
		return 0, nil
	}

	scores := make([]float64, len(t))
	allEqual := true
	var mean float64
	for i, p := range t {
		scores[i], _ = s.PlayerScore(p, teamSize)
		mean += scores[i]
		if scores[i] != scores[0] {
			allEqual = false
		}
	}
	if allEqual {
		return 0, nil
	}
	mean /= float64(len(t))

	var sq float64
	for _, v := range scores {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(t)), nil
}

// TeamProfile returns the mean of each profile attribute, in schema order.
// An empty team yields a zero vector.
func (s Schema) TeamProfile(t model.Team) []float64 {
	profile := make([]float64, len(s.Profile))
	if len(t) == 0 {
		return profile
	}
	for i, a := range s.Profile {
		profile[i] = AttributeMean(t, a)
	}
	return profile
}

// AttributeMean is the plain per-player mean of attr across the team.
func AttributeMean(t model.Team, attr string) float64 {
	if len(t) == 0 {
		return 0
	}
	var sum float64
	for _, p := range t {
		sum += p.Attr(attr)
	}
	return sum / float64(len(t))
}

func (s Schema) additive(p model.Player) float64 {
	var sum float64
	for _, a := range s.Additive {
		sum += p.Attr(a)
	}
	return sum
}
