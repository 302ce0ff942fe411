// Package benchmark contains Go benchmarks for the tokenizer, the BM25
// ranking index, and the duplicate detector, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/index"
	"github.com/caselens/caselens/internal/index/tokenizer"
)

var terms = []string{"settlement", "witness", "invoice", "adjudication", "disclosure", "retention", "indemnity", "demurrage"}

// refWord spells a document number as a letter-only reference so every
// synthetic document carries distinct index terms and dedup vectors.
func refWord(i int) string {
	digits := fmt.Sprintf("%05d", i)
	word := make([]byte, len(digits))
	for j := 0; j < len(digits); j++ {
		word[j] = 'a' + digits[j] - '0'
	}
	return "ref" + string(word)
}

func syntheticCorpus(n int) []corpus.Document {
	docs := make([]corpus.Document, n)
	for i := range docs {
		docs[i] = corpus.Document{
			DocID:    fmt.Sprintf("doc-%05d", i),
			Filename: fmt.Sprintf("doc-%05d.pdf", i),
			// The reference word repeats so each document's term-frequency
			// vector stays distinct from its neighbours.
			Content: fmt.Sprintf(
				"correspondence %s concerning the %s and the related %s claim, with schedules covering %s obligations across numbered appendices in detail",
				strings.Repeat(refWord(i)+" ", 10), terms[i%len(terms)], terms[(i+1)%len(terms)], terms[(i+3)%len(terms)],
			),
		}
	}
	return docs
}

// BenchmarkTokenize measures tokenization throughput on a representative
// paragraph.
func BenchmarkTokenize(b *testing.B) {
	text := "The Claimant seeks summary judgment on the unpaid invoices together with interest, relying on the adjudicator's decision dated 14 March and the witness statement of the project director."
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tokenizer.Tokenize(text)
	}
}

// BenchmarkIndexBuild measures full rebuild cost at various corpus sizes.
func BenchmarkIndexBuild(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			docs := syntheticCorpus(size)
			ri := index.New()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ri.Build(docs)
			}
		})
	}
}

// BenchmarkIndexSearch measures ranked query latency over 10 000 documents.
func BenchmarkIndexSearch(b *testing.B) {
	ri := index.New()
	ri.Build(syntheticCorpus(10000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ri.Search(terms[i%len(terms)], 20)
	}
}

// BenchmarkIndexSearchParallel measures concurrent read throughput.
func BenchmarkIndexSearchParallel(b *testing.B) {
	ri := index.New()
	ri.Build(syntheticCorpus(10000))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = ri.Search(terms[i%len(terms)], 20)
			i++
		}
	})
}

// BenchmarkDedupCheck measures per-document duplicate detection cost as the
// registered set grows. The semantic stage scans every registered vector, so
// cost rises with preload size.
func BenchmarkDedupCheck(b *testing.B) {
	for _, preload := range []int{100, 1000} {
		b.Run(fmt.Sprintf("registered_%d", preload), func(b *testing.B) {
			d := dedup.New(dedup.Config{})
			for i, doc := range syntheticCorpus(preload) {
				d.Check(doc.Content, fmt.Sprintf("preload-%d", i))
			}
			candidates := syntheticCorpus(preload + b.N)[preload:]
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.Check(candidates[i].Content, fmt.Sprintf("bench-%d", i))
			}
		})
	}
}
