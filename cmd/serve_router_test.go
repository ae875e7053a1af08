package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/brand"
	"github.com/safescan/recall-cli/internal/config"
	"github.com/safescan/recall-cli/internal/lotpattern"
	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/recall"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakePatternStore keeps lot patterns in memory for handler tests.
type fakePatternStore struct {
	patterns map[string][]model.LotPattern
}

func (f *fakePatternStore) UpsertLotPattern(ctx context.Context, brandKey, template, regex, exampleLot string) (*model.LotPattern, error) {
	p := model.LotPattern{Brand: brandKey, Template: template, Regex: regex, ExampleLot: exampleLot, Count: 1}
	f.patterns[brandKey] = append(f.patterns[brandKey], p)
	return &p, nil
}

func (f *fakePatternStore) ListLotPatterns(ctx context.Context, brandKey string) ([]model.LotPattern, error) {
	return f.patterns[brandKey], nil
}

func newTestEnv() *appEnv {
	return &appEnv{
		Matcher:    brand.NewMatcher([]string{"Danone", "Nestlé", "Barilla"}, nil),
		Patterns:   lotpattern.NewService(&fakePatternStore{patterns: map[string][]model.LotPattern{}}),
		Correlator: recall.NewCorrelator(),
		Resolver:   recall.NewResolver(),
		Corpus: []model.Recall{
			{ID: "fr-1", Country: "FR", Brand: "Danone", LotNumbers: []string{"L1234"}},
		},
	}
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{Port: 8080}
}

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{SuggestThreshold: 0.6, ResolveThreshold: 0.7, MaxSuggestions: 5}
}

func TestRouter_Health(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Check_Hit(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	payload, _ := json.Marshal(map[string]any{
		"candidates": []string{"XX99", "L1234"},
		"brand":      "Danone",
		"country":    "FR",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var result recall.CandidateResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.HasRecall)
	assert.Equal(t, "L1234", result.MatchedCandidate)
	require.NotNil(t, result.MatchedRecall)
	assert.Equal(t, "fr-1", result.MatchedRecall.ID)
}

func TestRouter_Check_MissingCandidates(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader([]byte(`{"brand":"Danone"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "candidates is required")
}

func TestRouter_Check_InvalidBody(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Resolve(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	payload, _ := json.Marshal(map[string]string{
		"brand":   "Danone",
		"lot":     "L1234",
		"country": "FR",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var det model.RecallDetermination
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &det))
	assert.Equal(t, model.RecallStatusRecalled, det.Status)
	assert.Equal(t, "fr-1", det.RecallReference)
}

func TestRouter_Resolve_MissingLot(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", bytes.NewReader([]byte(`{"brand":"Danone"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "lot is required")
}

func TestRouter_BrandSuggest(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/brands/suggest?q=danon", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var matches []model.BrandMatch
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matches))
	require.NotEmpty(t, matches)
	assert.Equal(t, "Danone", matches[0].Brand)
}

func TestRouter_BrandSuggest_MissingQuery(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/brands/suggest", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_PatternsValidate_UnknownBrand(t *testing.T) {
	router := buildRouter(newTestEnv(), testServerConfig(), testMatchingConfig())

	payload, _ := json.Marshal(map[string]string{"brand": "Danone", "lot": "L1234"})
	req := httptest.NewRequest(http.MethodPost, "/v1/patterns/validate", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var v model.PatternValidation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	// No learned patterns yet: the lot is accepted with zero confidence.
	assert.True(t, v.IsValid)
	assert.Zero(t, v.Confidence)
}

func TestRouter_RateLimit(t *testing.T) {
	srvCfg := testServerConfig()
	srvCfg.RatePerSecond = 1
	srvCfg.RateBurst = 1
	router := buildRouter(newTestEnv(), srvCfg, testMatchingConfig())

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srvCfg := testServerConfig()
	srvCfg.AllowedOrigins = []string{"https://app.example.com"}
	router := buildRouter(newTestEnv(), srvCfg, testMatchingConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/check", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
