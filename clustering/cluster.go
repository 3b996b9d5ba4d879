package clustering

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Cluster is one part of the partition: an id, its centroid and the records
// assigned to it. Clusters are immutable once returned.
type Cluster struct {
	ID       int
	Centroid []float32

	members   *roaring.Bitmap
	memberIDs []string
}

// NewCluster assembles a cluster from its parts. ordinals and memberIDs must
// describe the same records in the same (ascending ordinal) order.
// The slices are copied.
func NewCluster(id int, centroid []float32, ordinals []uint32, memberIDs []string) *Cluster {
	return &Cluster{
		ID:        id,
		Centroid:  slices.Clone(centroid),
		members:   roaring.BitmapOf(ordinals...),
		memberIDs: slices.Clone(memberIDs),
	}
}

// Size returns the number of members.
func (c *Cluster) Size() int {
	return len(c.memberIDs)
}

// MemberIDs returns the member record ids in index order.
func (c *Cluster) MemberIDs() []string {
	return slices.Clone(c.memberIDs)
}

// Contains reports whether the record at ordinal is a member.
func (c *Cluster) Contains(ordinal int) bool {
	if ordinal < 0 {
		return false
	}
	return c.members.Contains(uint32(ordinal))
}

// Ordinals returns a copy of the member ordinal set.
func (c *Cluster) Ordinals() *roaring.Bitmap {
	return c.members.Clone()
}

// ForEachOrdinal calls fn for every member ordinal in ascending order until
// fn returns false.
func (c *Cluster) ForEachOrdinal(fn func(ordinal int) bool) {
	it := c.members.Iterator()
	for it.HasNext() {
		if !fn(int(it.Next())) {
			return
		}
	}
}
