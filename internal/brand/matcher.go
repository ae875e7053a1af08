// Package brand fuzzy-matches free text against the merged brand
// corpus (static reference list plus user-contributed entries).
package brand

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/normalize"
)

const (
	// MinQueryLen is the shortest canonical query that can match at all.
	MinQueryLen = 2

	// containmentMinRatio gates the containment tier: the shorter side
	// must cover at least this share of the longer side.
	containmentMinRatio = 0.7

	// containmentConfidence is reported for any accepted containment
	// match, independent of the exact ratio.
	containmentConfidence = 0.95

	// DefaultSuggestThreshold is the looser edit-distance threshold used
	// by autocomplete call sites.
	DefaultSuggestThreshold = 0.6

	// DefaultResolveThreshold is the stricter edit-distance threshold
	// used when resolving a scan to a single brand.
	DefaultResolveThreshold = 0.7
)

// Matcher holds one queryable snapshot of the merged brand corpus.
// Reload builds a new immutable snapshot and swaps it atomically, so
// in-flight queries always see a consistent corpus.
type Matcher struct {
	snap atomic.Pointer[corpus]
}

// NewMatcher builds a matcher over the merged static and user lists.
func NewMatcher(static, user []string) *Matcher {
	m := &Matcher{}
	m.snap.Store(buildCorpus(static, user))
	return m
}

// Reload replaces the corpus snapshot.
func (m *Matcher) Reload(static, user []string) {
	m.snap.Store(buildCorpus(static, user))
}

// Size returns the number of distinct corpus entries.
func (m *Matcher) Size() int {
	return len(m.snap.Load().entries)
}

// FindBestMatch scores text against the corpus using three tiers, first
// success wins: exact canonical equality (confidence 1.0), bidirectional
// containment (confidence 0.95), then whole-corpus Levenshtein
// similarity against the caller-supplied threshold. Returns nil when
// nothing clears the bar or the query is shorter than two characters.
func (m *Matcher) FindBestMatch(text string, threshold float64) *model.BrandMatch {
	q := normalize.Brand(text)
	if len(q) < MinQueryLen {
		return nil
	}
	c := m.snap.Load()

	if i, ok := c.byNorm[q]; ok {
		return &model.BrandMatch{Brand: c.entries[i].name, Confidence: 1.0, IsExactMatch: true}
	}

	if e, ok := bestContainment(c, q); ok {
		return &model.BrandMatch{Brand: e.name, Confidence: containmentConfidence}
	}

	bestSim := 0.0
	bestIdx := -1
	for i, e := range c.entries {
		if sim := normalize.Similarity(q, e.norm); sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestSim < threshold {
		return nil
	}
	return &model.BrandMatch{Brand: c.entries[bestIdx].name, Confidence: bestSim}
}

// bestContainment returns the containment-tier winner: the entry where
// either side contains the other and the length ratio is highest, if
// that ratio clears containmentMinRatio. Ties keep the first entry in
// corpus order.
func bestContainment(c *corpus, q string) (entry, bool) {
	qLen := len([]rune(q))
	bestRatio := 0.0
	bestIdx := -1
	for i, e := range c.entries {
		if !normalize.ContainsEither(q, e.norm) {
			continue
		}
		eLen := len([]rune(e.norm))
		shorter, longer := qLen, eLen
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if ratio := float64(shorter) / float64(longer); ratio > bestRatio {
			bestRatio = ratio
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestRatio < containmentMinRatio {
		return entry{}, false
	}
	return c.entries[bestIdx], true
}

// FindTopMatches returns up to limit corpus entries whose Levenshtein
// similarity to text clears threshold, sorted by descending similarity.
// Ties keep corpus order, so results are stable across calls.
func (m *Matcher) FindTopMatches(text string, limit int, threshold float64) []model.BrandMatch {
	q := normalize.Brand(text)
	if len(q) < MinQueryLen || limit <= 0 {
		return nil
	}
	c := m.snap.Load()

	var matches []model.BrandMatch
	for _, e := range c.entries {
		sim := normalize.Similarity(q, e.norm)
		if sim < threshold {
			continue
		}
		matches = append(matches, model.BrandMatch{
			Brand:        e.name,
			Confidence:   sim,
			IsExactMatch: e.norm == q,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ExtractBrandsFromText matches every line of a multi-line OCR block
// independently and deduplicates by brand, keeping the highest
// confidence occurrence.
func (m *Matcher) ExtractBrandsFromText(text string, threshold float64) []model.BrandMatch {
	best := make(map[string]model.BrandMatch)
	var order []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := m.FindBestMatch(line, threshold)
		if match == nil {
			continue
		}
		prev, seen := best[match.Brand]
		if !seen {
			order = append(order, match.Brand)
		}
		if !seen || match.Confidence > prev.Confidence {
			best[match.Brand] = *match
		}
	}

	matches := make([]model.BrandMatch, 0, len(order))
	for _, name := range order {
		matches = append(matches, best[name])
	}
	return matches
}
