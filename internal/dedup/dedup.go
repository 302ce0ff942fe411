// Package dedup detects duplicate and near-duplicate case documents as they
// are registered one at a time. Detection runs in three stages: a SHA-256
// hash of the normalised text catches exact duplicates, a hash of the leading
// portion catches documents that only diverge later (appended signature
// blocks, exhibit stamps), and a term-frequency cosine comparison catches
// reworded variants.
//
// The semantic stage compares the candidate against every previously
// registered vector, so each Check costs O(registered documents). That holds
// up at ingestion time for session-scale corpora; it is not a per-query cost
// and is the known scalability ceiling of this detector.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
)

// Duplicate verdict reasons returned by Check.
const (
	ReasonTooShort    = "too_short"
	ReasonExact       = "exact_duplicate"
	ReasonFuzzyPrefix = "fuzzy_duplicate_prefix"
	ReasonUnique      = "unique"
)

const minContentLength = 100

// Config controls detector sensitivity.
type Config struct {
	// SimilarityThreshold is the cosine similarity at or above which two
	// documents are judged semantic duplicates.
	SimilarityThreshold float64
	// PrefixChars is how many leading characters of normalised text feed the
	// fuzzy prefix hash, approximating "the first few pages".
	PrefixChars int
	// DisableSemantic switches the third stage off. The zero value keeps it
	// on, so the stage runs by default.
	DisableSemantic bool
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		PrefixChars:         10000,
	}
}

// Stats reports detector counters. The four outcome counters are mutually
// exclusive per Check call; too-short inputs count toward TotalChecked only.
type Stats struct {
	TotalChecked       int64   `json:"total_checked"`
	ExactDuplicates    int64   `json:"exact_duplicates"`
	FuzzyDuplicates    int64   `json:"fuzzy_duplicates"`
	SemanticDuplicates int64   `json:"semantic_duplicates"`
	UniqueDocuments    int64   `json:"unique_documents"`
	DeduplicationRate  float64 `json:"deduplication_rate"`
	UniqueRate         float64 `json:"unique_rate"`
}

// Deduplicator is a stateful duplicate detector. Callers own the instance's
// lifetime, typically one per analysis session. All methods are safe for
// concurrent use; registration is serialised behind a single mutex so that
// semantic comparisons always see a consistent, monotonically growing
// vector set.
type Deduplicator struct {
	cfg    Config
	logger *slog.Logger

	mu               sync.Mutex
	seenHashes       map[string]struct{}
	seenPrefixHashes map[string]struct{}
	vectors          map[string]map[string]float64
	registered       []string // registration order, for deterministic stage-3 scans

	totalChecked       int64
	exactDuplicates    int64
	fuzzyDuplicates    int64
	semanticDuplicates int64
	uniqueDocuments    int64
}

// New creates a Deduplicator. Zero-valued Config fields fall back to the
// defaults.
func New(cfg Config) *Deduplicator {
	defaults := DefaultConfig()
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.PrefixChars <= 0 {
		cfg.PrefixChars = defaults.PrefixChars
	}
	return &Deduplicator{
		cfg:              cfg,
		logger:           slog.Default().With("component", "dedup"),
		seenHashes:       make(map[string]struct{}),
		seenPrefixHashes: make(map[string]struct{}),
		vectors:          make(map[string]map[string]float64),
	}
}

// Page-number artefacts and boilerplate markers stripped before comparison,
// so that reprints of the same document with different stamps still hash
// equal.
var (
	pageOfRe      = regexp.MustCompile(`page \d+( of \d+)?`)
	bracketPageRe = regexp.MustCompile(`\[page \d+\]`)
	boilerplateRe = regexp.MustCompile(`(?i)confidential|without prejudice`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Check decides whether the document is a duplicate of one already seen and
// classifies why. Non-duplicates are registered into all three stage
// structures atomically; a duplicate verdict never mutates state. Inputs
// shorter than 100 characters after trimming are never treated as duplicates
// and are not registered either: there is too little evidence to compare.
func (d *Deduplicator) Check(content, docID string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalChecked++

	if len(strings.TrimSpace(content)) < minContentLength {
		return false, ReasonTooShort
	}

	clean := normalize(content)

	contentHash := hashText(clean)
	if _, seen := d.seenHashes[contentHash]; seen {
		d.exactDuplicates++
		return true, ReasonExact
	}

	prefixHash := hashText(leadingChars(clean, d.cfg.PrefixChars))
	if _, seen := d.seenPrefixHashes[prefixHash]; seen {
		d.fuzzyDuplicates++
		return true, ReasonFuzzyPrefix
	}

	var vector map[string]float64
	if !d.cfg.DisableSemantic {
		vector = vectorize(clean)
		for _, seenID := range d.registered {
			similarity := cosineSimilarity(vector, d.vectors[seenID])
			if similarity >= d.cfg.SimilarityThreshold {
				d.semanticDuplicates++
				d.logger.Debug("semantic duplicate detected",
					"doc_id", docID,
					"matches", seenID,
					"similarity", similarity,
				)
				return true, fmt.Sprintf("semantic_duplicate_of_%s", seenID)
			}
		}
	}

	d.seenHashes[contentHash] = struct{}{}
	d.seenPrefixHashes[prefixHash] = struct{}{}
	if !d.cfg.DisableSemantic {
		// A re-registered doc ID replaces its vector but keeps a single
		// scan-order entry, so stage 3 never compares one vector twice.
		if _, exists := d.vectors[docID]; !exists {
			d.registered = append(d.registered, docID)
		}
		d.vectors[docID] = vector
	}
	d.uniqueDocuments++
	return false, ReasonUnique
}

// Reset clears all registered state and counters.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seenHashes = make(map[string]struct{})
	d.seenPrefixHashes = make(map[string]struct{})
	d.vectors = make(map[string]map[string]float64)
	d.registered = nil
	d.totalChecked = 0
	d.exactDuplicates = 0
	d.fuzzyDuplicates = 0
	d.semanticDuplicates = 0
	d.uniqueDocuments = 0
}

// Stats returns a copy of the detector counters with derived rates.
func (d *Deduplicator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		TotalChecked:       d.totalChecked,
		ExactDuplicates:    d.exactDuplicates,
		FuzzyDuplicates:    d.fuzzyDuplicates,
		SemanticDuplicates: d.semanticDuplicates,
		UniqueDocuments:    d.uniqueDocuments,
	}
	checked := d.totalChecked
	if checked < 1 {
		checked = 1
	}
	duplicates := d.exactDuplicates + d.fuzzyDuplicates + d.semanticDuplicates
	s.DeduplicationRate = float64(duplicates) / float64(checked)
	s.UniqueRate = float64(d.uniqueDocuments) / float64(checked)
	return s
}

// normalize prepares text for comparison: lowercase, strip page-number
// artefacts and boilerplate markers, collapse whitespace.
func normalize(text string) string {
	text = strings.ToLower(text)
	text = pageOfRe.ReplaceAllString(text, "")
	text = bracketPageRe.ReplaceAllString(text, "")
	text = boilerplateRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// leadingChars returns the first n characters (runes, not bytes) of s.
func leadingChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Stop-words excluded from term-frequency vectors. Smaller than the index
// tokenizer's list: vectors only need common function words gone.
var vectorStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "with": {}, "was": {}, "this": {}, "that": {}, "from": {},
	"have": {}, "has": {}, "had": {}, "been": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "must": {},
}

var vectorTermRe = regexp.MustCompile(`\b[a-z]{3,}\b`)

// vectorize builds a length-normalised term-frequency vector over lowercase
// alphabetic runs of three or more characters.
func vectorize(text string) map[string]float64 {
	words := vectorTermRe.FindAllString(text, -1)
	counts := make(map[string]float64)
	total := 0
	for _, w := range words {
		if _, stop := vectorStopWords[w]; stop {
			continue
		}
		counts[w]++
		total++
	}
	if total == 0 {
		return map[string]float64{}
	}
	for w := range counts {
		counts[w] /= float64(total)
	}
	return counts
}

// cosineSimilarity computes the cosine of two term-frequency vectors: the
// dot product over shared terms divided by the product of magnitudes.
// Either vector being empty or all-zero yields 0.
func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for term, va := range a {
		magA += va * va
		if vb, ok := b[term]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		magB += vb * vb
	}
	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}
