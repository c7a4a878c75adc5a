package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"geocluster/internal/geo"
	"geocluster/internal/logging"
	"geocluster/internal/photo"
)

// ErrInvalidThreshold is returned for a threshold that is not a positive,
// finite number of meters.
var ErrInvalidThreshold = errors.New("cluster threshold must be a positive number of meters")

// Clusterer grows a Set one item at a time using first-fit assignment.
type Clusterer struct {
	threshold float64
	logger    *slog.Logger
	set       Set
	skipped   int
}

// NewClusterer returns an empty clusterer for the given radius in meters.
func NewClusterer(threshold float64, logger *slog.Logger) (*Clusterer, error) {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Clusterer{
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "cluster"),
		set:       Set{Unclassified: NewUnclassified()},
	}, nil
}

// Add assigns a single item. Position-less items go to the unclassified
// bucket; located items join the first cluster whose anchor is within the
// threshold, otherwise they seed a new cluster.
func (c *Clusterer) Add(item photo.Item) {
	coord, ok := item.Coordinate()
	if !ok {
		c.set.Unclassified.Items = append(c.set.Unclassified.Items, item)
		return
	}
	for idx, cl := range c.set.Clusters {
		inside, err := geo.Within(cl.anchor, coord, c.threshold)
		if err != nil {
			c.skipped++
			c.logger.Debug("skipping cluster comparison",
				logging.Item(item.ID()),
				logging.Int("cluster", idx),
				logging.Error(err),
			)
			continue
		}
		if inside {
			cl.Items = append(cl.Items, item)
			return
		}
	}
	c.set.Clusters = append(c.set.Clusters, newCluster(coord, item))
}

// Snapshot returns a copy of the current state.
func (c *Clusterer) Snapshot() Set {
	return c.set.Clone()
}

// SkippedComparisons reports how many anchor comparisons failed and were
// ignored.
func (c *Clusterer) SkippedComparisons() int {
	return c.skipped
}

// Assign clusters items in order. The context is checked between insertions.
func Assign(ctx context.Context, items []photo.Item, threshold float64, logger *slog.Logger) (Set, error) {
	clusterer, err := NewClusterer(threshold, logger)
	if err != nil {
		return Set{}, err
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}
		clusterer.Add(item)
	}
	clusterer.logger.Debug("clustering complete",
		logging.Int("items", len(items)),
		logging.Int("clusters", len(clusterer.set.Clusters)),
		logging.Int("unclassified", clusterer.set.Unclassified.Len()),
		logging.Int("skipped_comparisons", clusterer.skipped),
	)
	return clusterer.set, nil
}
