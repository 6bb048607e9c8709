// Package voiceprint turns speaker embeddings into coarse one-way digests
// and compares them. A digest is a 64-bit SimHash over quantized embedding
// dimensions, so nearby embeddings produce digests with a small Hamming
// distance while the raw vector cannot be recovered.
package voiceprint

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"

	"github.com/go-dedup/simhash"
)

// HashBits is the digest width.
const HashBits = 64

// embeddingFeatures implements simhash.FeatureSet over one embedding.
type embeddingFeatures struct {
	vector []float64
}

// GetFeatures emits two tokens per dimension: the sign and a half-unit
// bucket of the scaled value. Small drifts keep the sign token stable.
func (e embeddingFeatures) GetFeatures() []simhash.Feature {
	norm := 0.0
	for _, v := range e.vector {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}
	scale := math.Sqrt(float64(len(e.vector))) / norm

	features := make([]simhash.Feature, 0, 2*len(e.vector))
	for i, v := range e.vector {
		scaled := v * scale
		sign := "+"
		if scaled < 0 {
			sign = "-"
		}
		bucket := int(math.Round(scaled * 2))
		features = append(features,
			simhash.NewFeature([]byte(fmt.Sprintf("d%d:%s", i, sign))),
			simhash.NewFeature([]byte(fmt.Sprintf("d%d:b%d", i, bucket))),
		)
	}
	return features
}

// Hash returns the hex digest of an embedding, or "" when the embedding is
// empty or all zeros.
func Hash(embedding []float64) string {
	fs := embeddingFeatures{vector: embedding}
	if len(fs.GetFeatures()) == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", simhash.NewSimhash().GetSimhash(fs))
}

// Distance returns the Hamming distance between two digests.
func Distance(a, b string) (int, error) {
	ha, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return HashBits, fmt.Errorf("parse digest %q: %w", a, err)
	}
	hb, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return HashBits, fmt.Errorf("parse digest %q: %w", b, err)
	}
	return bits.OnesCount64(ha ^ hb), nil
}

// Similarity maps the Hamming distance onto [0,1]. Missing or malformed
// digests are never similar.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	d, err := Distance(a, b)
	if err != nil {
		return 0
	}
	return 1 - float64(d)/HashBits
}
