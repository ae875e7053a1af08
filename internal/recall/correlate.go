package recall

import (
	"strings"

	"github.com/safescan/recall-cli/internal/model"
)

// CandidateResult is the outcome of the immediate-alert check.
type CandidateResult struct {
	HasRecall        bool          `json:"has_recall"`
	MatchedCandidate string        `json:"matched_candidate,omitempty"`
	MatchedRecall    *model.Recall `json:"matched_recall,omitempty"`
}

// Correlator is the low-latency path shown while the user is still
// looking at the camera: several OCR candidate strings for one physical
// lot are checked against the recall corpus for an exactly-named brand.
type Correlator struct {
	policy MatchingPolicy
}

// NewCorrelator returns a correlator on the immediate policy.
func NewCorrelator() *Correlator {
	return &Correlator{policy: ImmediatePolicy}
}

// CheckAllCandidates tries every (candidate, recall lot) pair for
// recalls whose brand equals brandName case-insensitively, within the
// given country slice of the corpus. The first hit ends the search.
func (c *Correlator) CheckAllCandidates(candidates []string, brandName, country string, corpus []model.Recall) CandidateResult {
	for _, cand := range candidates {
		for i := range corpus {
			rec := &corpus[i]
			if country != "" && !strings.EqualFold(rec.Country, country) {
				continue
			}
			if !applies(c.policy, brandName, cand, rec) {
				continue
			}
			return CandidateResult{
				HasRecall:        true,
				MatchedCandidate: cand,
				MatchedRecall:    rec,
			}
		}
	}
	return CandidateResult{}
}
