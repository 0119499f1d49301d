package consensus

import (
	"errors"
	"math"
	"sort"
)

// ErrNoCluster is returned when no two values of a signal are close enough to cluster
var ErrNoCluster = errors.New("consensus: no cluster found")

// disjointSet is a union-find forest over indices 0..n-1
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// ShallowSlopeClusters groups indices whose values are linked, directly or
// through other indices, by pairwise differences no larger than cutoff.
// Only indices with at least one link are clustered. Clusters are ordered by
// the last linked pair (i, j), i < j, they contain, latest pair first.
// Members are in ascending order.
func ShallowSlopeClusters(values []float64, cutoff float64) ([][]int, error) {
	ds := newDisjointSet(len(values))
	linked := make([]bool, len(values))
	var edges [][2]int
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			if math.Abs(values[i]-values[j]) <= cutoff {
				ds.union(i, j)
				linked[i], linked[j] = true, true
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	if len(edges) == 0 {
		return nil, ErrNoCluster
	}

	byRoot := make(map[int]int)
	var clusters [][]int
	for i := range values {
		if !linked[i] {
			continue
		}
		root := ds.find(i)
		k, ok := byRoot[root]
		if !ok {
			k = len(clusters)
			byRoot[root] = k
			clusters = append(clusters, nil)
		}
		clusters[k] = append(clusters[k], i)
	}

	// edges are in lexicographic order, so the last one seen per cluster is its latest pair
	last := make([][2]int, len(clusters))
	for _, e := range edges {
		last[byRoot[ds.find(e[0])]] = e
	}
	order := make([]int, len(clusters))
	for k := range order {
		order[k] = k
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := last[order[a]], last[order[b]]
		if pa[0] != pb[0] {
			return pa[0] > pb[0]
		}
		return pa[1] > pb[1]
	})
	sorted := make([][]int, len(clusters))
	for k, idx := range order {
		sorted[k] = clusters[idx]
	}
	return sorted, nil
}

// ClusterShallowSlopes returns the modal shallow-slope cluster of values and
// the remaining clusters, which are treated as outliers. The modal cluster is
// the first of the largest in ShallowSlopeClusters order.
func ClusterShallowSlopes(values []float64, cutoff float64) (modal []int, outliers [][]int, err error) {
	clusters, err := ShallowSlopeClusters(values, cutoff)
	if err != nil {
		return nil, nil, err
	}
	best := 0
	for k, c := range clusters {
		if len(c) > len(clusters[best]) {
			best = k
		}
	}
	outliers = append(append(outliers, clusters[:best]...), clusters[best+1:]...)
	return clusters[best], outliers, nil
}

// ClusterBreaks cuts the index range of data into contiguous clusters,
// starting a new cluster wherever the difference between neighbours exceeds
// cutoff in absolute value
func ClusterBreaks(data []float64, cutoff float64) [][]int {
	if len(data) == 0 {
		return nil
	}
	clusters := [][]int{}
	cur := []int{0}
	for i := 1; i < len(data); i++ {
		if math.Abs(data[i-1]-data[i]) <= cutoff {
			cur = append(cur, i)
			continue
		}
		clusters = append(clusters, cur)
		cur = []int{i}
	}
	return append(clusters, cur)
}

// Largest returns the first of the longest clusters
func Largest(clusters [][]int) []int {
	var best []int
	for _, c := range clusters {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// IsDegenerate reports whether a modal breakpoint cluster is the single
// first index, meaning no two neighbouring values were close enough to fit
func IsDegenerate(cluster []int) bool {
	return len(cluster) == 1 && cluster[0] == 0
}
