package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	service "github.com/okian/teamsplit/internal/app"
	"github.com/okian/teamsplit/internal/domain/cost"
	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/internal/domain/partition"
	"github.com/okian/teamsplit/internal/domain/search"
	"github.com/okian/teamsplit/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithOutput(io.Discard))
	if err != nil {
		panic(err)
	}
}

func player(name string, tech, phy, vis, goal float64) model.Player {
	return model.NewPlayer(name, map[string]float64{"tech": tech, "phy": phy, "vis": vis, "goal": goal})
}

// fourPlayers has exactly one perfectly balanced split: {Alice, Bob} vs {Carol, Dave}.
func fourPlayers() []model.Player {
	return []model.Player{
		player("Alice", 8, 8, 5, 0),
		player("Bob", 2, 2, 5, 0),
		player("Carol", 6, 6, 5, 0),
		player("Dave", 4, 4, 5, 0),
	}
}

func tenPlayers() []model.Player {
	out := make([]model.Player, 10)
	for i := range out {
		f := float64(i)
		out[i] = player(fmt.Sprintf("P%02d", i), 3+f/2, 9-f/2, float64((i*7)%10), float64((i*3)%10))
	}
	return out
}

func names(ps []model.Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func teamOf(res *service.Result, name string) int {
	for i, t := range res.Teams {
		for _, n := range t.Players {
			if n == name {
				return i
			}
		}
	}
	return -1
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should be created", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_PlanInputErrors(t *testing.T) {
	Convey("Given a service and a four-player roster", t, func() {
		svc := service.New(service.WithIterations(100), service.WithWorkers(1))
		roster := fourPlayers()
		ctx := context.Background()

		Convey("When active names are missing from the roster", func() {
			res, err := svc.Plan(ctx, roster, []string{"Alice", "Zed", "Bob", "Yan"}, 2, 2)

			Convey("Then every missing name should be reported", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, service.ErrMissingPlayers), ShouldBeTrue)

				var missing *service.MissingPlayersError
				So(errors.As(err, &missing), ShouldBeTrue)
				So(missing.Names, ShouldResemble, []string{"Zed", "Yan"})
				So(err.Error(), ShouldContainSubstring, "Zed, Yan")
				So(service.IsInputError(err), ShouldBeTrue)
			})
		})

		Convey("When the active count does not fill the layout", func() {
			_, err := svc.Plan(ctx, roster, []string{"Alice", "Bob", "Carol"}, 2, 2)

			Convey("Then a player count error should state both numbers", func() {
				So(errors.Is(err, service.ErrPlayerCount), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "have 3")
				So(err.Error(), ShouldContainSubstring, "need 4")
			})
		})

		Convey("When active names repeat", func() {
			_, err := svc.Plan(ctx, roster, []string{"Alice", " Alice", "Bob", "Carol", "Dave"}, 2, 2)

			Convey("Then duplicates should count once", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the weights are invalid", func() {
			bad := service.New(service.WithWorkers(1), service.WithWeights(cost.Weights{Balance: -1}))
			_, err := bad.Plan(ctx, roster, names(roster), 2, 2)

			Convey("Then the plan should be rejected", func() {
				So(errors.Is(err, cost.ErrInvalidWeight), ShouldBeTrue)
			})
		})
	})
}

func TestService_Plan(t *testing.T) {
	Convey("Given four players with a single balanced split", t, func() {
		roster := fourPlayers()
		ctx := context.Background()

		for _, workers := range []int{1, 3} {
			Convey(fmt.Sprintf("When planning 2 teams of 2 with %d worker(s)", workers), func() {
				svc := service.New(
					service.WithIterations(1000),
					service.WithWorkers(workers),
					service.WithShardSize(100),
					service.WithSeed(11),
				)
				res, err := svc.Plan(ctx, roster, names(roster), 2, 2)

				Convey("Then the balanced split should win", func() {
					So(err, ShouldBeNil)
					So(res.Teams, ShouldHaveLength, 2)
					So(teamOf(res, "Alice"), ShouldEqual, teamOf(res, "Bob"))
					So(teamOf(res, "Carol"), ShouldEqual, teamOf(res, "Dave"))
					So(res.Balance, ShouldEqual, 0)
					So(res.ProfileDifference, ShouldEqual, 0)
					So(res.TotalVariance, ShouldAlmostEqual, 40, 1e-9)
					So(res.Cost, ShouldAlmostEqual, 8, 1e-9)
				})

				Convey("Then the result should describe the run", func() {
					So(res.RunID, ShouldNotBeEmpty)
					So(res.Seed, ShouldEqual, uint64(11))
					So(res.Trials, ShouldEqual, 1000)
					So(res.Improvements, ShouldBeGreaterThanOrEqualTo, 1)
					So(res.ProfileAttributes, ShouldResemble, []string{"tech", "phy", "vis"})
					So(res.DividedAttribute, ShouldEqual, "goal")
					for _, team := range res.Teams {
						So(team.Players, ShouldHaveLength, 2)
						So(team.Score, ShouldEqual, 20)
						So(team.Profile, ShouldResemble, []float64{5, 5, 5})
						So(team.DividedMean, ShouldEqual, 0)
					}
				})
			})
		}
	})
}

func TestService_PlanDeterminism(t *testing.T) {
	Convey("Given ten players and a fixed seed", t, func() {
		roster := tenPlayers()
		ctx := context.Background()
		plan := func(workers int) *service.Result {
			svc := service.New(
				service.WithIterations(3000),
				service.WithWorkers(workers),
				service.WithShardSize(128),
				service.WithSeed(2024),
			)
			res, err := svc.Plan(ctx, roster, names(roster), 2, 5)
			So(err, ShouldBeNil)
			return res
		}

		Convey("When planning sequentially and in parallel", func() {
			seq := plan(1)
			par := plan(4)

			Convey("Then both should pick the same partition", func() {
				So(par.BestTrial, ShouldEqual, seq.BestTrial)
				So(par.Cost, ShouldEqual, seq.Cost)
				So(par.Teams, ShouldResemble, seq.Teams)
				So(par.Trials, ShouldEqual, seq.Trials)
			})
		})

		Convey("When planning twice with the same worker count", func() {
			a := plan(2)
			b := plan(2)

			Convey("Then the results should match", func() {
				So(a.Teams, ShouldResemble, b.Teams)
				So(a.RunID, ShouldNotEqual, b.RunID)
			})
		})
	})
}

func TestService_PlanSeedAndCancel(t *testing.T) {
	Convey("Given ten players", t, func() {
		roster := tenPlayers()

		Convey("When no seed is configured", func() {
			svc := service.New(service.WithIterations(50), service.WithWorkers(1))
			res, err := svc.Plan(context.Background(), roster, names(roster), 5, 2)

			Convey("Then a seed should be chosen and reported", func() {
				So(err, ShouldBeNil)
				So(res.Seed, ShouldNotEqual, uint64(0))
				So(res.Teams, ShouldHaveLength, 5)
			})
		})

		for _, workers := range []int{1, 4} {
			Convey(fmt.Sprintf("When the context is cancelled with %d worker(s)", workers), func() {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				svc := service.New(service.WithWorkers(workers), service.WithSeed(3))
				res, err := svc.Plan(ctx, roster, names(roster), 2, 5)

				Convey("Then the plan should be interrupted without a result", func() {
					So(res, ShouldBeNil)
					So(errors.Is(err, service.ErrInterrupted), ShouldBeTrue)
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
				})
			})
		}

		Convey("When the context is cancelled while workers are busy", func() {
			ctx, cancel := context.WithCancel(context.Background())
			svc := service.New(
				service.WithIterations(50_000_000),
				service.WithWorkers(4),
				service.WithShardSize(100_000),
				service.WithSeed(5),
			)
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			res, err := svc.Plan(ctx, roster, names(roster), 2, 5)

			Convey("Then the pool is shut down and the plan returns promptly", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, service.ErrInterrupted), ShouldBeTrue)
				So(time.Since(start) < 10*time.Second, ShouldBeTrue)
			})
		})
	})
}

func TestService_Resolve(t *testing.T) {
	Convey("Given a four-player roster", t, func() {
		svc := service.New()
		roster := fourPlayers()

		Convey("When resolving active names", func() {
			players, err := svc.Resolve(roster, []string{"Dave", " Alice ", "", "Carol", "Bob", "Dave"}, 2, 2)

			Convey("Then roster entries should follow the active order", func() {
				So(err, ShouldBeNil)
				So(names(players), ShouldResemble, []string{"Dave", "Alice", "Carol", "Bob"})
				So(players[0].Attr("tech"), ShouldEqual, 4)
			})
		})

		Convey("When the layout is not positive", func() {
			_, err := svc.Resolve(roster, names(roster), 0, 4)

			Convey("Then it should be rejected as a count mismatch", func() {
				So(errors.Is(err, service.ErrPlayerCount), ShouldBeTrue)
			})
		})

		Convey("When teams times team size overflows", func() {
			_, err := svc.Resolve(roster, nil, 1<<62, 2)

			Convey("Then it should be rejected before any partition is drawn", func() {
				So(errors.Is(err, service.ErrPlayerCount), ShouldBeTrue)
				So(errors.Is(err, partition.ErrLayoutTooLarge), ShouldBeTrue)
				So(service.IsInputError(err), ShouldBeTrue)
			})
		})
	})
}

func TestService_PlanNonFiniteRating(t *testing.T) {
	Convey("Given a roster with a NaN rating", t, func() {
		roster := fourPlayers()
		roster[2] = player("Carol", math.NaN(), 6, 5, 0)

		for _, workers := range []int{1, 3} {
			Convey(fmt.Sprintf("When planning with %d workers", workers), func() {
				svc := service.New(
					service.WithIterations(100),
					service.WithWorkers(workers),
					service.WithShardSize(10),
					service.WithSeed(1),
				)
				res, err := svc.Plan(context.Background(), roster, names(roster), 2, 2)

				Convey("Then the plan fails rather than returning no teams", func() {
					So(res, ShouldBeNil)
					So(errors.Is(err, search.ErrNoCandidate), ShouldBeTrue)
				})
			})
		}
	})
}
