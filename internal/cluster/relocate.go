package cluster

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geocluster/internal/logging"
	"geocluster/internal/photo"
)

// ErrInvalidWindow is returned for a negative relocation window.
var ErrInvalidWindow = errors.New("relocation window must not be negative")

// Relocation records one item moved out of the unclassified bucket.
type Relocation struct {
	Item    photo.Item
	Cluster int
	Score   float64
}

// Reliability scores how well a capture time fits a cluster: the number of
// located, timestamped members strictly within window of ts divided by the
// total member count. Position-less members count toward the denominator
// only, which discounts small clusters.
func Reliability(c *Cluster, ts time.Time, window time.Duration) float64 {
	if c.Len() == 0 {
		return 0
	}
	matches := 0
	for _, member := range c.Items {
		if !member.Located() {
			continue
		}
		mt, ok := member.Timestamp()
		if !ok {
			continue
		}
		if absDuration(ts.Sub(mt)) < window {
			matches++
		}
	}
	return float64(matches) / float64(len(c.Items))
}

// Relocate performs a single front-to-back sweep over the unclassified
// bucket. Each timestamped item moves to the cluster with the strictly
// highest reliability score, the earliest cluster winning ties; a best score
// of zero leaves it in place. Moves are applied immediately, so later
// candidates see the enlarged clusters. The input set is not modified.
func Relocate(s Set, window time.Duration, logger *slog.Logger) (Set, []Relocation, error) {
	if window < 0 {
		return Set{}, nil, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}
	logger = logging.NewComponentLogger(logger, "relocate")

	out := s.Clone()
	pending := out.Unclassified.Items
	kept := make([]photo.Item, 0, len(pending))
	var moves []Relocation

	for _, item := range pending {
		ts, ok := item.Timestamp()
		if !ok {
			kept = append(kept, item)
			continue
		}
		best, bestScore := -1, 0.0
		for idx, c := range out.Clusters {
			if score := Reliability(c, ts, window); score > bestScore {
				best, bestScore = idx, score
			}
		}
		if best < 0 {
			kept = append(kept, item)
			continue
		}
		target := out.Clusters[best]
		target.Items = append(target.Items, item)
		moves = append(moves, Relocation{Item: item, Cluster: best, Score: bestScore})
		anchor, _ := target.Anchor()
		logger.Debug("relocated item",
			logging.Item(item.ID()),
			logging.Coordinate("anchor", anchor),
			logging.Float64("reliability", bestScore),
		)
	}

	out.Unclassified.Items = kept
	return out, moves, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
