package cluster

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"geocluster/internal/geo"
	"geocluster/internal/photo"
)

// Merger post-processes a clustering result.
type Merger interface {
	Merge(Set) Set
}

// IdentityMerger leaves the clustering untouched.
type IdentityMerger struct{}

// Merge returns a copy of the input with membership unchanged.
func (IdentityMerger) Merge(s Set) Set { return s.Clone() }

// ProximityMerger unions clusters whose anchors lie within Threshold meters of
// each other, transitively. Each merged cluster is anchored at the centroid
// of its constituent anchors and lists members source cluster by source
// cluster, in creation order.
type ProximityMerger struct {
	Threshold float64
}

// Merge folds anchor-proximate clusters. Comparisons that fail to compute a
// distance leave the pair unconnected.
func (m ProximityMerger) Merge(s Set) Set {
	n := len(s.Clusters)
	if n < 2 {
		return s.Clone()
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Keep the earliest cluster as root so component order follows
		// creation order.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			inside, err := geo.Within(s.Clusters[i].anchor, s.Clusters[j].anchor, m.Threshold)
			if err != nil || !inside {
				continue
			}
			union(i, j)
		}
	}

	var roots []int
	members := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		r := find(i)
		if _, seen := members[r]; !seen {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	out := Set{Unclassified: s.Unclassified.clone()}
	if out.Unclassified == nil {
		out.Unclassified = NewUnclassified()
	}
	for _, r := range roots {
		group := members[r]
		if len(group) == 1 {
			out.Clusters = append(out.Clusters, s.Clusters[group[0]].clone())
			continue
		}
		points := make([]geo.Coordinate, 0, len(group))
		var items []photo.Item
		for _, idx := range group {
			src := s.Clusters[idx]
			points = append(points, src.anchor)
			items = append(items, src.Items...)
		}
		out.Clusters = append(out.Clusters, &Cluster{
			anchor:   centroid(points),
			anchored: true,
			Items:    items,
		})
	}
	return out
}

// centroid averages the anchors as unit vectors on the sphere, so groups
// straddling the antimeridian stay on it.
func centroid(points []geo.Coordinate) geo.Coordinate {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		lat, lon := p.Lat*math.Pi/180, p.Lon*math.Pi/180
		xs[i] = math.Cos(lat) * math.Cos(lon)
		ys[i] = math.Cos(lat) * math.Sin(lon)
		zs[i] = math.Sin(lat)
	}
	x, y, z := stat.Mean(xs, nil), stat.Mean(ys, nil), stat.Mean(zs, nil)
	lat := math.Atan2(z, math.Hypot(x, y)) * 180 / math.Pi
	lon := math.Atan2(y, x) * 180 / math.Pi
	return geo.New(lat, lon)
}

// MergerFor returns the merger registered under name. Unknown names and the
// empty string select the identity merger.
func MergerFor(name string, threshold float64) Merger {
	switch name {
	case MergeProximity:
		return ProximityMerger{Threshold: threshold}
	default:
		return IdentityMerger{}
	}
}

// Merge policy names accepted by MergerFor.
const (
	MergeNone      = "none"
	MergeProximity = "proximity"
)
