package engine

import (
	"fmt"
	"math"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

// window is one slice of the recording in seconds.
type window struct {
	offset   float64
	duration float64
}

// windows splits total seconds into consecutive windows of size seconds.
// The last window may be shorter.
func windows(total, size float64) []window {
	if total <= 0 || size <= 0 {
		return nil
	}
	var out []window
	for off := 0.0; off < total; off += size {
		out = append(out, window{offset: off, duration: math.Min(size, total-off)})
	}
	return out
}

type trackedLabel struct {
	label string
	hash  string
}

// labelTracker assigns meeting-wide labels to chunk-local speakers by
// voiceprint similarity. A speaker whose voice drifts past the threshold
// gets a second label.
type labelTracker struct {
	threshold float64
	known     []trackedLabel
}

func newLabelTracker(threshold float64) *labelTracker {
	return &labelTracker{threshold: threshold}
}

// assign returns the label for a speaker with the given voiceprint. Labels
// in claimed are already taken by another speaker of the same chunk.
func (t *labelTracker) assign(hash string, claimed map[string]bool) string {
	best, bestSim := -1, 0.0
	if hash != "" {
		for i, k := range t.known {
			if claimed[k.label] || k.hash == "" {
				continue
			}
			if sim := voiceprint.Similarity(k.hash, hash); sim >= t.threshold && sim > bestSim {
				best, bestSim = i, sim
			}
		}
	}
	if best >= 0 {
		t.known[best].hash = hash
		return t.known[best].label
	}
	label := fmt.Sprintf("SPEAKER_%02d", len(t.known))
	t.known = append(t.known, trackedLabel{label: label, hash: hash})
	return label
}

// relabelChunk shifts a chunk's segments to meeting time and renames its
// speakers to meeting-wide labels.
func (t *labelTracker) relabelChunk(raw []diarization.RawSegment, offset float64) []diarization.RawSegment {
	var order []string
	embeddings := make(map[string][][]float64)
	for _, r := range raw {
		if _, ok := embeddings[r.Speaker]; !ok {
			order = append(order, r.Speaker)
			embeddings[r.Speaker] = nil
		}
		if len(r.Embedding) > 0 {
			embeddings[r.Speaker] = append(embeddings[r.Speaker], r.Embedding)
		}
	}

	names := make(map[string]string, len(order))
	claimed := make(map[string]bool, len(order))
	for _, local := range order {
		global := t.assign(voiceprint.Hash(meanEmbedding(embeddings[local])), claimed)
		names[local] = global
		claimed[global] = true
	}

	out := make([]diarization.RawSegment, len(raw))
	for i, r := range raw {
		r.Speaker = names[r.Speaker]
		r.Start += offset
		r.End += offset
		out[i] = r
	}
	return out
}

// meanEmbedding averages vectors of equal length; mismatched vectors are
// skipped.
func meanEmbedding(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	n := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += x
		}
		n++
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum
}
