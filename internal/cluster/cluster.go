package cluster

import (
	"geocluster/internal/geo"
	"geocluster/internal/photo"
)

// Cluster is an anchor plus the items assigned to it in insertion order. The
// unclassified bucket is a Cluster without an anchor.
type Cluster struct {
	anchor   geo.Coordinate
	anchored bool
	Items    []photo.Item
}

func newCluster(anchor geo.Coordinate, first photo.Item) *Cluster {
	return &Cluster{anchor: anchor, anchored: true, Items: []photo.Item{first}}
}

// NewUnclassified returns an empty bucket for items lacking a position.
func NewUnclassified() *Cluster {
	return &Cluster{}
}

// Anchor returns the coordinate fixed at creation and whether the cluster has
// one.
func (c *Cluster) Anchor() (geo.Coordinate, bool) {
	return c.anchor, c.anchored
}

// IsClassified reports whether the cluster carries a usable anchor.
func (c *Cluster) IsClassified() bool {
	return c != nil && c.anchored && c.anchor.Usable()
}

// Len returns the number of members.
func (c *Cluster) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Cluster) clone() *Cluster {
	if c == nil {
		return nil
	}
	out := &Cluster{anchor: c.anchor, anchored: c.anchored}
	if len(c.Items) > 0 {
		out.Items = make([]photo.Item, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// Set is a snapshot of the clustering state passed between stages.
type Set struct {
	Clusters     []*Cluster
	Unclassified *Cluster
}

// Clone returns a deep copy; items are values so only the containers are
// duplicated.
func (s Set) Clone() Set {
	out := Set{Unclassified: s.Unclassified.clone()}
	if out.Unclassified == nil {
		out.Unclassified = NewUnclassified()
	}
	if len(s.Clusters) > 0 {
		out.Clusters = make([]*Cluster, len(s.Clusters))
		for i, c := range s.Clusters {
			out.Clusters[i] = c.clone()
		}
	}
	return out
}

// All returns the classified clusters followed by the unclassified bucket when
// it holds any items.
func (s Set) All() []*Cluster {
	all := make([]*Cluster, 0, len(s.Clusters)+1)
	all = append(all, s.Clusters...)
	if s.Unclassified.Len() > 0 {
		all = append(all, s.Unclassified)
	}
	return all
}

// ItemCount returns the total number of items across clusters and bucket.
func (s Set) ItemCount() int {
	n := s.Unclassified.Len()
	for _, c := range s.Clusters {
		n += c.Len()
	}
	return n
}
