package naming

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"geocluster/internal/cluster"
	"geocluster/internal/geo"
	"geocluster/internal/logging"
	"geocluster/internal/services"
	"geocluster/internal/services/geocode"
	"geocluster/internal/textutil"
)

// Unclassified names the bucket of items without a usable position.
const Unclassified = "UNCLASSIFIED"

// Namer produces a folder name for a cluster. Implementations never fail;
// they degrade to a literal name instead.
type Namer interface {
	Name(ctx context.Context, c *cluster.Cluster) string
}

// LiteralNamer names clusters after their anchor coordinate.
type LiteralNamer struct{}

// Name returns "<lat>_<lon>" in shortest decimal form.
func (LiteralNamer) Name(_ context.Context, c *cluster.Cluster) string {
	anchor, ok := c.Anchor()
	if !ok || !c.IsClassified() {
		return Unclassified
	}
	return geo.FormatOrdinate(anchor.Lat) + "_" + geo.FormatOrdinate(anchor.Lon)
}

// Reverser resolves a coordinate to a place. *geocode.Client satisfies it.
type Reverser interface {
	Reverse(ctx context.Context, coord geo.Coordinate) (geocode.Place, error)
}

// GeocodingNamer names clusters after the place their anchor resolves to.
type GeocodingNamer struct {
	client  Reverser
	timeout time.Duration
	logger  *slog.Logger
	literal LiteralNamer

	mu    sync.Mutex
	cache map[*cluster.Cluster]string
}

// NewGeocodingNamer wraps client. A non-positive timeout leaves per-call
// deadlines to the client.
func NewGeocodingNamer(client Reverser, timeout time.Duration, logger *slog.Logger) *GeocodingNamer {
	return &GeocodingNamer{
		client:  client,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "naming"),
		cache:   make(map[*cluster.Cluster]string),
	}
}

// Name resolves c once and reuses the answer on later calls.
func (n *GeocodingNamer) Name(ctx context.Context, c *cluster.Cluster) string {
	if !c.IsClassified() {
		return Unclassified
	}
	n.mu.Lock()
	if name, ok := n.cache[c]; ok {
		n.mu.Unlock()
		return name
	}
	n.mu.Unlock()

	name := n.resolve(ctx, c)

	n.mu.Lock()
	defer n.mu.Unlock()
	if cached, ok := n.cache[c]; ok {
		return cached
	}
	n.cache[c] = name
	return name
}

func (n *GeocodingNamer) resolve(ctx context.Context, c *cluster.Cluster) string {
	anchor, _ := c.Anchor()
	literal := n.literal.Name(ctx, c)

	lookupCtx := ctx
	if n.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	place, err := n.client.Reverse(lookupCtx, anchor)
	if err != nil {
		err = services.Wrap(services.ErrNaming, "naming", "reverse geocode", anchor.String(), err)
		n.logger.Warn("reverse geocoding failed; using coordinates",
			logging.Coordinate("anchor", anchor),
			logging.String("fallback", literal),
			logging.Error(err),
		)
		return literal
	}
	name := textutil.FolderName(place.Label())
	if name == "" {
		n.logger.Warn("reverse geocoding returned no usable label; using coordinates",
			logging.Coordinate("anchor", anchor),
			logging.String("display_name", place.DisplayName),
			logging.String("fallback", literal),
		)
		return literal
	}
	n.logger.Debug("cluster named",
		logging.Coordinate("anchor", anchor),
		logging.String("name", name),
	)
	return name
}

// NameAll names clusters with at most limit concurrent lookups and returns
// names aligned with the input. Duplicate names get "_2", "_3", ... suffixes
// in input order; UNCLASSIFIED is reserved for the bucket.
func NameAll(ctx context.Context, namer Namer, clusters []*cluster.Cluster, limit int) []string {
	names := make([]string, len(clusters))
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, c := range clusters {
		g.Go(func() error {
			names[i] = namer.Name(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return dedupe(names, clusters)
}

func dedupe(names []string, clusters []*cluster.Cluster) []string {
	taken := make(map[string]struct{}, len(names))
	for i, c := range clusters {
		if !c.IsClassified() {
			taken[foldKey(names[i])] = struct{}{}
		}
	}
	for i, c := range clusters {
		if !c.IsClassified() {
			continue
		}
		base := names[i]
		candidate := base
		for n := 2; ; n++ {
			if _, exists := taken[foldKey(candidate)]; !exists {
				break
			}
			candidate = fmt.Sprintf("%s_%d", base, n)
		}
		taken[foldKey(candidate)] = struct{}{}
		names[i] = candidate
	}
	return names
}

// foldKey compares names case-insensitively so folders stay distinct on
// case-insensitive filesystems.
func foldKey(name string) string {
	return strings.ToLower(name)
}
