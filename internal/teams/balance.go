// Package teams splits a set of rated players into three teams of similar
// total rating.
//
// Balance is a greedy partition: players are taken strongest first and each
// one joins the team with the smallest running total. The lowest team index
// wins ties, so for a given input order the result is fully deterministic.
// Balance does no I/O and holds no state; callers may run it concurrently.
package teams

import (
	"math/rand"
	"sort"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// Count is the number of teams produced by Balance.
const Count = 3

// Names and colors of the teams, by index.
var (
	Names  = [Count]string{"Team A", "Team B", "Team C"}
	Colors = [Count]string{"blue", "red", "green"}
)

type options struct {
	shuffle bool
	seed    int64
}

// Option configures Balance.
type Option func(*options)

// WithTieShuffle permutes players of equal rating with a generator seeded by
// seed before assignment. The same seed always gives the same teams.
func WithTieShuffle(seed int64) Option {
	return func(o *options) {
		o.shuffle = true
		o.seed = seed
	}
}

// Balance partitions players into three teams. The input slice is not
// modified. Empty input yields three empty teams with average 0.
func Balance(players []models.Player, opts ...Option) [Count]models.Team {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sorted := make([]models.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})
	if o.shuffle {
		shuffleTies(sorted, rand.New(rand.NewSource(o.seed)))
	}

	var result [Count]models.Team
	for i := range result {
		result[i] = models.Team{Name: Names[i], Color: Colors[i], Members: []models.Player{}}
	}

	for _, p := range sorted {
		idx := 0
		for i := 1; i < Count; i++ {
			if result[i].Total < result[idx].Total {
				idx = i
			}
		}
		result[idx].Members = append(result[idx].Members, p)
		result[idx].Total += p.Rating
	}

	for i := range result {
		if n := len(result[i].Members); n > 0 {
			result[i].Average = models.RoundDiv(result[i].Total, n)
		}
	}
	return result
}

// shuffleTies permutes each run of equal ratings in a slice already sorted
// by rating.
func shuffleTies(players []models.Player, rng *rand.Rand) {
	for start := 0; start < len(players); {
		end := start + 1
		for end < len(players) && players[end].Rating == players[start].Rating {
			end++
		}
		run := players[start:end]
		rng.Shuffle(len(run), func(i, j int) { run[i], run[j] = run[j], run[i] })
		start = end
	}
}

// Spread is the difference between the largest and smallest team total.
func Spread(teams [Count]models.Team) int {
	lo, hi := teams[0].Total, teams[0].Total
	for _, t := range teams[1:] {
		if t.Total < lo {
			lo = t.Total
		}
		if t.Total > hi {
			hi = t.Total
		}
	}
	return hi - lo
}
