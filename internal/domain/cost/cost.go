// Package cost turns a partition into a single scalar the search minimizes.
package cost

import (
	"fmt"
	"math"

	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/internal/domain/scoring"
)

// Default criterion weights.
const (
	DefaultBalanceWeight  = 0.3
	DefaultVarianceWeight = 0.2
	DefaultProfileWeight  = 0.5
	defaultAttrWeight     = 1.0
)

// Weights scale the three criteria of the cost. Attributes optionally scales
// single profile attributes inside the profile difference; missing entries
// weigh 1.
type Weights struct {
	Balance    float64
	Variance   float64
	Profile    float64
	Attributes map[string]float64
}

// DefaultWeights returns 0.3 balance, 0.2 variance, 0.5 profile.
func DefaultWeights() Weights {
	return Weights{
		Balance:  DefaultBalanceWeight,
		Variance: DefaultVarianceWeight,
		Profile:  DefaultProfileWeight,
	}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, name, v)
		}
		return nil
	}
	if err := check("balance", w.Balance); err != nil {
		return err
	}
	if err := check("variance", w.Variance); err != nil {
		return err
	}
	if err := check("profile", w.Profile); err != nil {
		return err
	}
	for attr, v := range w.Attributes {
		if err := check("attributes."+attr, v); err != nil {
			return err
		}
	}
	return nil
}

// Function evaluates partitions for a fixed schema, weight set and team size.
type Function struct {
	schema      scoring.Schema
	weights     Weights
	attrWeights []float64 // aligned with schema.Profile
	teamSize    int
}

// New builds a cost function. Attribute weights must name profile attributes.
func New(schema scoring.Schema, weights Weights, teamSize int) (*Function, error) {
	if teamSize <= 0 {
		return nil, fmt.Errorf("%w: %d", scoring.ErrInvalidTeamSize, teamSize)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(schema.Profile))
	attrWeights := make([]float64, len(schema.Profile))
	for i, a := range schema.Profile {
		index[a] = i
		attrWeights[i] = defaultAttrWeight
	}
	for attr, w := range weights.Attributes {
		i, ok := index[attr]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, attr)
		}
		attrWeights[i] = w
	}

	return &Function{
		schema:      schema,
		weights:     weights,
		attrWeights: attrWeights,
		teamSize:    teamSize,
	}, nil
}

// Schema returns the scoring schema the function evaluates with.
func (f *Function) Schema() scoring.Schema { return f.schema }

// Weights returns the configured weights.
func (f *Function) Weights() Weights { return f.weights }

// Evaluate computes the full metrics of a partition:
//
//	balance       = max(team score) - min(team score)
//	variance      = sum of team variances
//	profile diff  = sum over team pairs of the weighted L1 profile distance
//	cost          = wb*balance + wv*variance + wp*profile diff
func (f *Function) Evaluate(p model.Partition) model.Metrics {
	m := model.Metrics{
		Scores:    make([]float64, len(p)),
		Variances: make([]float64, len(p)),
		Profiles:  make([][]float64, len(p)),
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, team := range p {
		// teamSize was validated in New.
		m.Scores[i], _ = f.schema.TeamScore(team, f.teamSize)
		m.Variances[i], _ = f.schema.TeamVariance(team, f.teamSize)
		m.Profiles[i] = f.schema.TeamProfile(team)

		m.TotalVariance += m.Variances[i]
		lo = math.Min(lo, m.Scores[i])
		hi = math.Max(hi, m.Scores[i])
	}
	if len(p) > 0 {
		m.Balance = hi - lo
	}
	m.ProfileDifference = f.profileDifference(m.Profiles)
	m.Cost = f.weights.Balance*m.Balance +
		f.weights.Variance*m.TotalVariance +
		f.weights.Profile*m.ProfileDifference
	return m
}

// ProfileDifference sums the weighted L1 distance over all unordered pairs
// of profile vectors.
func (f *Function) ProfileDifference(profiles [][]float64) float64 {
	return f.profileDifference(profiles)
}

func (f *Function) profileDifference(profiles [][]float64) float64 {
	var total float64
	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			for k, w := range f.attrWeights {
				total += math.Abs(profiles[i][k]-profiles[j][k]) * w
			}
		}
	}
	return total
}
