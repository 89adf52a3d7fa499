package model

// Metrics are the derived values of one partition.
// Per-team slices are indexed like the partition's teams; Profiles[i] is
// ordered like the scoring schema's profile attributes.
type Metrics struct {
	Scores            []float64
	Variances         []float64
	Profiles          [][]float64
	Balance           float64
	TotalVariance     float64
	ProfileDifference float64
	Cost              float64
}

// Shard is a contiguous range of trial indices evaluated by one worker.
type Shard struct {
	Index      int
	FirstTrial int
	Trials     int
}

// End returns the exclusive upper trial index of the shard.
func (s Shard) End() int {
	return s.FirstTrial + s.Trials
}

// Candidate is a partition found at a given trial together with its metrics.
type Candidate struct {
	Trial     int
	Partition Partition
	Metrics   Metrics
}

// ShardResult is the local best of a shard.
type ShardResult struct {
	Shard        Shard
	Best         Candidate
	Improvements int
}
