package downtime

import (
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// DefaultSeed reproduces the reference unscheduled downtime table
const DefaultSeed int64 = 1640995200

// severity is one class of the failure cascade
type severity struct {
	probability float64
	duration    int
	skip        int
	activity    string
}

// cascade is evaluated in order; the first class whose draw wins ends the night
var cascade = []severity{
	{2.74e-4, 14, 15, "catastrophic event"},
	{1.37e-3, 7, 8, "major event"},
	{5.48e-3, 3, 4, "intermediate event"},
	{1.37e-2, 1, 1, "minor event"},
}

// Unscheduled is the stochastic failure model
type Unscheduled struct {
	queue
	seed int64
	log  *slog.Logger
}

// NewUnscheduled creates an empty generator
func NewUnscheduled(log *slog.Logger) *Unscheduled {
	return &Unscheduled{seed: DefaultSeed, log: logger.OrDefault(log)}
}

// Seed is the seed used by the last Initialize
func (u *Unscheduled) Seed() int64 {
	return u.seed
}

// Initialize generates downtime for nights [0, surveyLength). With
// useRandomSeed the seed is taken from the wall clock.
func (u *Unscheduled) Initialize(useRandomSeed bool, seed int64, surveyLength int) {
	if useRandomSeed {
		seed = time.Now().Unix()
	}
	u.seed = seed
	u.reset(Generate(utils.NewMTRandSource(seed), surveyLength))
	u.log.Info("generated unscheduled downtime", "seed", seed, "entries", u.Len())
}

// Generate runs the per-night failure cascade
func Generate(rng *utils.RandSource, surveyLength int) []models.DowntimeEntry {
	var entries []models.DowntimeEntry
	night := 0
	for night < surveyLength {
		skip := 1
		for _, s := range cascade {
			if rng.BernoulliBool(s.probability) {
				entries = append(entries, models.DowntimeEntry{Night: night, Duration: s.duration, Activity: s.activity})
				skip = s.skip
				break
			}
		}
		night += skip
	}
	return entries
}
