package gallery

import (
	"math"

	"facewatch/internal/service/vision"

	"github.com/coder/hnsw"
)

const (
	hnswMaxNeighbors = 16
	hnswEfSearch     = 64
	hnswCandidates   = 4
)

// index finds the closest enrolled descriptor.
type index interface {
	nearest(q vision.Descriptor) (int, float64)
}

// linearIndex is an exact argmin over all descriptors.
type linearIndex []vision.Descriptor

func (l linearIndex) nearest(q vision.Descriptor) (int, float64) {
	best := -1
	bestDistance := math.MaxFloat64
	for i, d := range l {
		if distance := vision.Distance(q, d); distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	return best, bestDistance
}

// hnswIndex searches an HNSW graph for large galleries and re-ranks the candidates exactly.
type hnswIndex struct {
	graph       *hnsw.Graph[int]
	descriptors []vision.Descriptor
}

func newHNSWIndex(descriptors []vision.Descriptor) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.EuclideanDistance

	for i := range descriptors {
		vec := make([]float32, len(descriptors[i]))
		copy(vec, descriptors[i][:])
		g.Add(hnsw.MakeNode(i, vec))
	}
	return &hnswIndex{graph: g, descriptors: descriptors}
}

func (h *hnswIndex) nearest(q vision.Descriptor) (int, float64) {
	query := make([]float32, len(q))
	copy(query, q[:])

	best := -1
	bestDistance := math.MaxFloat64
	for _, n := range h.graph.Search(query, hnswCandidates) {
		if n.Key < 0 || n.Key >= len(h.descriptors) {
			continue
		}
		if distance := vision.Distance(q, h.descriptors[n.Key]); distance < bestDistance {
			best = n.Key
			bestDistance = distance
		}
	}
	return best, bestDistance
}
