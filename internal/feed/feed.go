// Package feed loads recall and brand corpora from files. It is the
// ingestion boundary: locale placeholder brands are canonicalized here so
// the matching core only ever sees the empty string for "no brand".
package feed

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/safescan/recall-cli/internal/model"
)

// brandSentinels are placeholder values some recall authorities publish
// when a product has no usable brand. They are folded to "" on load.
var brandSentinels = map[string]struct{}{
	"UNKNOWN":     {},
	"INCONNU":     {},
	"INCONNUE":    {},
	"SANS MARQUE": {},
	"NO BRAND":    {},
	"N/A":         {},
	"NA":          {},
	"-":           {},
}

// CanonicalBrand maps placeholder brand values to the empty string and
// trims surrounding whitespace from everything else.
func CanonicalBrand(s string) string {
	trimmed := strings.TrimSpace(s)
	if _, ok := brandSentinels[strings.ToUpper(trimmed)]; ok {
		return ""
	}
	return trimmed
}

// recallFile is the on-disk shape of a recall corpus file.
type recallFile struct {
	Country string         `json:"country"`
	Recalls []model.Recall `json:"recalls"`
}

// LoadRecalls reads a recall corpus JSON file. Each recall inherits the
// file-level country when its own is empty, and brand placeholders are
// canonicalized.
func LoadRecalls(path string) ([]model.Recall, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: read recalls %s", path)
	}

	var file recallFile
	if err := json.Unmarshal(data, &file); err != nil {
		// Also accept a bare top-level array.
		if arrErr := json.Unmarshal(data, &file.Recalls); arrErr != nil {
			return nil, eris.Wrapf(err, "feed: parse recalls %s", path)
		}
	}

	for i := range file.Recalls {
		r := &file.Recalls[i]
		if r.Country == "" {
			r.Country = file.Country
		}
		r.Brand = CanonicalBrand(r.Brand)
		for j, lot := range r.LotNumbers {
			r.LotNumbers[j] = strings.TrimSpace(lot)
		}
	}
	return file.Recalls, nil
}

// brandFile is the on-disk shape of a brand corpus file.
type brandFile struct {
	Brands []string `yaml:"brands"`
}

// LoadBrands reads a brand corpus YAML file. Placeholder and empty
// entries are dropped.
func LoadBrands(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: read brands %s", path)
	}

	var file brandFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "feed: parse brands %s", path)
	}

	brands := make([]string, 0, len(file.Brands))
	for _, b := range file.Brands {
		if canon := CanonicalBrand(b); canon != "" {
			brands = append(brands, canon)
		}
	}
	return brands, nil
}

// ReadCandidates reads newline-separated OCR candidates, trimming each
// line and dropping blanks.
func ReadCandidates(r io.Reader) ([]string, error) {
	var candidates []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			candidates = append(candidates, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "feed: read candidates")
	}
	return candidates, nil
}
