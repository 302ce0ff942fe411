package index

import "math"

// BM25 tuning constants. Standard defaults, not derived from the corpus:
// k1 controls term-frequency saturation, b controls length normalisation.
const (
	k1 = 1.5
	b  = 0.75
)

// score accumulates BM25 contributions per document for the given query
// terms. Documents containing none of the terms never enter the map, so they
// are excluded rather than ranked last. Repeated query terms contribute once
// per occurrence.
func (st *state) score(queryTerms []string) map[string]float64 {
	scores := make(map[string]float64)
	for _, term := range queryTerms {
		posting, ok := st.postings[term]
		if !ok {
			continue
		}
		df := len(posting)
		idf := computeIDF(st.n, df)
		for docID, tf := range posting {
			scores[docID] += idf * tfNorm(float64(tf), float64(st.docLengths[docID]), st.avgdl)
		}
	}
	return scores
}

// computeIDF uses the +1 smoothing variant, which keeps idf non-negative
// even when df approaches n.
func computeIDF(n, df int) float64 {
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

func tfNorm(tf, docLength, avgdl float64) float64 {
	if avgdl == 0 {
		return 0
	}
	norm := 1 - b + b*(docLength/avgdl)
	return (tf * (k1 + 1)) / (tf + k1*norm)
}
