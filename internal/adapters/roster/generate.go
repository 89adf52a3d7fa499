package roster

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/okian/teamsplit/internal/domain/model"
)

// Rating bands used by Generate. Most players land in the average band.
const (
	ratingMax        = 10.0
	avgRatingMin     = 3.0
	avgRatingRange   = 4.0
	highRatingMin    = 7.0
	highRatingRange  = 2.0
	lowRatingMin     = 0.5
	lowRatingRange   = 2.5
	eliteRatingMin   = 9.0
	eliteRatingRange = 1.0
	ratingBands      = 8
)

// Generate returns n synthetic players rated on attrs. The same seed yields
// the same roster.
func Generate(n int, attrs []string, seed uint64) ([]model.Player, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: player count must be positive, got %d", ErrInvalidRoster, n)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: no attributes to rate", ErrInvalidRoster)
	}

	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	r := rand.New(src)

	players := make([]model.Player, 0, n)
	for range n {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return nil, fmt.Errorf("generate player id: %w", err)
		}
		ratings := make(map[string]float64, len(attrs))
		for _, a := range attrs {
			ratings[a] = rating(r)
		}
		players = append(players, model.NewPlayer("player-"+id.String()[:8], ratings))
	}
	return players, nil
}

// rating draws a rating in [0, 10] rounded to one decimal.
func rating(r *rand.Rand) float64 {
	var v float64
	switch r.IntN(ratingBands) {
	case 0, 1, 2, 3:
		v = avgRatingMin + r.Float64()*avgRatingRange
	case 4, 5:
		v = highRatingMin + r.Float64()*highRatingRange
	case 6:
		v = lowRatingMin + r.Float64()*lowRatingRange
	default:
		v = eliteRatingMin + r.Float64()*eliteRatingRange
	}
	return math.Min(ratingMax, math.Round(v*10)/10)
}
