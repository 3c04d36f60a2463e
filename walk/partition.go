package walk

// PartitionMap splits a [0, MaxIndex) range into ParallelDegree contiguous
// buckets with at most one element of imbalance. It shards the
// active-particle index range across intra-process workers and, in
// package walk's distributed mode, shards globally-owned particle indices
// across simulated ranks.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	buckets        [][2]int
}

func NewPartitionMap(parallelDegree, maxIndex int) *PartitionMap {
	if parallelDegree < 1 {
		parallelDegree = 1
	}
	pm := &PartitionMap{MaxIndex: maxIndex, ParallelDegree: parallelDegree, buckets: make([][2]int, parallelDegree)}
	npart := maxIndex / parallelDegree
	remainder := maxIndex % parallelDegree
	for n := 0; n < parallelDegree; n++ {
		var startAdd, endAdd int
		if remainder != 0 {
			if n+1 > remainder {
				startAdd, endAdd = remainder, 0
			} else {
				startAdd, endAdd = n, 1
			}
		}
		lo := n*npart + startAdd
		hi := lo + npart + endAdd
		pm.buckets[n] = [2]int{lo, hi}
	}
	return pm
}

// Range returns [lo, hi) for bucket n.
func (pm *PartitionMap) Range(n int) (lo, hi int) {
	b := pm.buckets[n]
	return b[0], b[1]
}

// BucketOf returns the bucket index owning global index k.
func (pm *PartitionMap) BucketOf(k int) int {
	for n, b := range pm.buckets {
		if k >= b[0] && k < b[1] {
			return n
		}
	}
	return -1
}
