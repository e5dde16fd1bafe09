// Package topic models topic clusters produced by an unsupervised model.
// Labels are never predefined; they emerge after training and may be absent.
package topic

import (
	"fmt"
	"math"
	"strings"
)

// Descriptor describes one topic cluster learned by the model.
type Descriptor struct {
	// ClusterID is the integer ID assigned by the clustering algorithm.
	ClusterID int `json:"cluster_id"`

	// TopKeywords is the ranked list of most representative terms.
	TopKeywords []string `json:"top_keywords"`

	// Coherence measures cluster tightness (0.0 = loose, 1.0 = tight).
	Coherence float64 `json:"coherence"`

	// Label is the emerged human-readable label, empty until assigned.
	Label string `json:"label,omitempty"`

	// Embedding is the centroid vector of the cluster, nil if not computed.
	Embedding []float64 `json:"embedding,omitempty"`

	// DocumentCount is the number of documents assigned to this cluster.
	DocumentCount int `json:"document_count"`
}

// New creates a Descriptor with clamped coherence and normalized keywords
// (trimmed, lowercased, deduplicated, order preserved).
func New(clusterID int, topKeywords []string, coherence float64, label string) Descriptor {
	seen := make(map[string]struct{}, len(topKeywords))
	clean := make([]string, 0, len(topKeywords))
	for _, kw := range topKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		clean = append(clean, kw)
	}

	return Descriptor{
		ClusterID:   clusterID,
		TopKeywords: clean,
		Coherence:   clamp01(coherence),
		Label:       label,
	}
}

// HasLabel reports whether the model has assigned a label.
func (d Descriptor) HasLabel() bool {
	return d.Label != ""
}

// IsCoherent reports whether the cluster is considered coherent (>= 0.5).
func (d Descriptor) IsCoherent() bool {
	return d.Coherence >= 0.5
}

// TopKeyword returns the most representative keyword, or "" if none.
func (d Descriptor) TopKeyword() string {
	if len(d.TopKeywords) == 0 {
		return ""
	}
	return d.TopKeywords[0]
}

// CosineSimilarity computes the cosine similarity between cluster centroids.
// It returns false when either descriptor has no embedding.
func (d Descriptor) CosineSimilarity(other Descriptor) (float64, bool, error) {
	if d.Embedding == nil || other.Embedding == nil {
		return 0, false, nil
	}
	if len(d.Embedding) != len(other.Embedding) {
		return 0, false, fmt.Errorf("topic: embedding dimensions differ: %d vs %d", len(d.Embedding), len(other.Embedding))
	}

	var dot, normA, normB float64
	for i := range d.Embedding {
		dot += d.Embedding[i] * other.Embedding[i]
		normA += d.Embedding[i] * d.Embedding[i]
		normB += other.Embedding[i] * other.Embedding[i]
	}
	if normA == 0 || normB == 0 {
		return 0, true, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true, nil
}

// KeywordOverlap computes the Jaccard overlap of top keywords.
// Returns 0 when both keyword lists are empty.
func (d Descriptor) KeywordOverlap(other Descriptor) float64 {
	a := make(map[string]struct{}, len(d.TopKeywords))
	for _, kw := range d.TopKeywords {
		a[kw] = struct{}{}
	}
	union := len(a)
	inter := 0
	for _, kw := range other.TopKeywords {
		if _, ok := a[kw]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
