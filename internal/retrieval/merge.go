package retrieval

import (
	"sort"

	"github.com/caselens/caselens/internal/corpus"
)

// Result is one entry of a merged, possibly content-enriched search result.
type Result struct {
	DocID         string  `json:"doc_id"`
	Filename      string  `json:"filename"`
	Category      string  `json:"category,omitempty"`
	Preview       string  `json:"preview,omitempty"`
	Content       string  `json:"content,omitempty"`
	Score         float64 `json:"score"`
	BM25Score     float64 `json:"bm25_score"`
	VectorScore   float64 `json:"vector_score"`
	Rank          int     `json:"rank"`
	FullPDFLoaded bool    `json:"full_pdf_loaded,omitempty"`
}

// fuse merges the keyword and vector channels into one ranked list. Raw
// channel scores are on incomparable scales, so each channel contributes a
// rank-based score (listLength - position) / listLength instead; a document
// missing from a channel gets 0 for it. Combined score is the weighted sum,
// sorted descending with ascending doc ID as the tie-break, and entries are
// assigned a 1-based rank.
func fuse(keyword, vector []corpus.RankedDocument, keywordWeight, vectorWeight float64) []Result {
	type channelScores struct {
		doc    corpus.RankedDocument
		bm25   float64
		vector float64
	}
	scores := make(map[string]*channelScores, len(keyword)+len(vector))

	for i, doc := range keyword {
		scores[doc.DocID] = &channelScores{
			doc:  doc,
			bm25: float64(len(keyword)-i) / float64(len(keyword)),
		}
	}
	for i, doc := range vector {
		rankScore := float64(len(vector)-i) / float64(len(vector))
		if cs, ok := scores[doc.DocID]; ok {
			cs.vector = rankScore
		} else {
			scores[doc.DocID] = &channelScores{doc: doc, vector: rankScore}
		}
	}

	merged := make([]Result, 0, len(scores))
	for docID, cs := range scores {
		merged = append(merged, Result{
			DocID:       docID,
			Filename:    cs.doc.Filename,
			Category:    cs.doc.Category,
			Preview:     cs.doc.Preview,
			Score:       keywordWeight*cs.bm25 + vectorWeight*cs.vector,
			BM25Score:   cs.bm25,
			VectorScore: cs.vector,
		})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].DocID < merged[j].DocID
	})
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}
