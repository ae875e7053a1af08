// Package recall decides whether scanned products are subject to a
// recall. Two call paths exist on purpose: the immediate camera-time
// check (exact brand, containment-only lots, first hit wins) and the
// authoritative persisted resolution (brand ignored when lots match,
// fuzzy brand otherwise). Both are instances of one MatchingPolicy so
// the strictness levels cannot drift apart independently.
package recall

import (
	"math"
	"strings"

	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/normalize"
)

// BrandStrategy selects how a recall's brand is compared to the scan's.
type BrandStrategy int

const (
	// BrandExact requires case-insensitive equality of the raw brand
	// strings before any lot is even considered.
	BrandExact BrandStrategy = iota
	// BrandFuzzy gives lots precedence: a lot hit applies regardless of
	// brand, and the brand predicate is consulted only for recalls that
	// list no lot numbers at all.
	BrandFuzzy
)

// LotStrategy selects how lot numbers are compared.
type LotStrategy int

const (
	// LotContainment accepts equality or bidirectional containment of
	// the canonical lots.
	LotContainment LotStrategy = iota
	// LotLenient additionally accepts near-misses: length difference
	// and edit distance both at most two.
	LotLenient
)

// MatchingPolicy parameterizes one recall-matching path.
type MatchingPolicy struct {
	Brand        BrandStrategy
	Lot          LotStrategy
	ShortCircuit bool
}

// ImmediatePolicy is the camera-time path: conservative about brand so
// mid-capture alerts stay precise, at the cost of missing recalls filed
// under a differently spelled brand.
var ImmediatePolicy = MatchingPolicy{Brand: BrandExact, Lot: LotContainment, ShortCircuit: true}

// AuthoritativePolicy is the persisted path: lot numbers are the more
// reliable identifier, so a lot hit is never discarded for a brand
// mismatch. The full corpus is scanned so multiple relevant recalls can
// be logged; the reference still goes to the first in corpus order.
var AuthoritativePolicy = MatchingPolicy{Brand: BrandFuzzy, Lot: LotLenient, ShortCircuit: false}

const (
	lenientMaxLenDiff  = 2
	lenientMaxDistance = 2

	// brandFuzzyDistanceFactor scales the Levenshtein allowance for the
	// fuzzy brand predicate: distance <= ceil(0.3 * max(len)).
	brandFuzzyDistanceFactor = 0.3
)

// lotMatches compares one product lot (or OCR candidate) to one recall
// lot under the given strategy. Empty canonical sides never match.
func lotMatches(strategy LotStrategy, productLot, recallLot string) bool {
	a := normalize.Lot(productLot)
	b := normalize.Lot(recallLot)
	if a == "" || b == "" {
		return false
	}
	if a == b || normalize.ContainsEither(a, b) {
		return true
	}
	if strategy == LotContainment {
		return false
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return diff <= lenientMaxLenDiff && normalize.Distance(a, b) <= lenientMaxDistance
}

// LotsMatch reports whether any of the recall's lot numbers matches the
// product lot under the authoritative (lenient) strategy.
func LotsMatch(productLot string, rec model.Recall) bool {
	for _, rl := range rec.LotNumbers {
		if lotMatches(LotLenient, productLot, rl) {
			return true
		}
	}
	return false
}

// BrandsMatch is the authoritative fuzzy brand predicate. An empty side
// matches everything: a missing or placeholder brand (canonicalized to
// "" upstream) must never block a match. Otherwise canonical equality,
// bidirectional containment, or a bounded edit distance all pass.
func BrandsMatch(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return true
	}
	na := normalize.Brand(a)
	nb := normalize.Brand(b)
	if na == "" || nb == "" {
		return true
	}
	if na == nb || normalize.ContainsEither(na, nb) {
		return true
	}
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	limit := int(math.Ceil(brandFuzzyDistanceFactor * float64(maxLen)))
	return normalize.Distance(na, nb) <= limit
}

// applies reports whether a recall is relevant to a (brand, lot) pair
// under the given policy.
func applies(pol MatchingPolicy, brandName, lot string, rec *model.Recall) bool {
	if pol.Brand == BrandExact && !strings.EqualFold(rec.Brand, brandName) {
		return false
	}
	for _, rl := range rec.LotNumbers {
		if lotMatches(pol.Lot, lot, rl) {
			return true
		}
	}
	if pol.Brand == BrandFuzzy && len(rec.LotNumbers) == 0 {
		return BrandsMatch(brandName, rec.Brand)
	}
	return false
}
