// Package analysis turns free-text disaster reports into structured data
// using an AI completion provider. Every operation degrades to safe defaults
// instead of failing: location extraction falls back to a sentinel, analysis
// to neutral medium-severity values, and image verification fails closed.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// NoLocationFound is the sentinel returned when the text names no location.
const NoLocationFound = "No location found"

// maxImageBytes bounds the image download for verification.
const maxImageBytes = 8 << 20

// AIClient is the completion provider behind the resolver.
type AIClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt string, image []byte) (string, error)
}

// Resolver is the cached analysis front end.
type Resolver struct {
	client     AIClient
	cache      *cache.Cache
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResolver builds an analysis resolver over an AI client.
func NewResolver(client AIClient, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:     client,
		cache:      c,
		cacheTTL:   ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// ExtractLocation pulls a location name out of free text. The second return
// is the source tag: "ai" on success, "error" when the provider failed and
// the sentinel is returned.
func (r *Resolver) ExtractLocation(ctx context.Context, text string) (string, string) {
	type extraction struct {
		Location string `json:"location"`
		Source   string `json:"source"`
	}

	key := digestKey("extract_location", text)
	var cached extraction
	if r.cache.Get(ctx, key, &cached) {
		return cached.Location, cached.Source
	}

	prompt := fmt.Sprintf(`Extract the specific location name from the following text. Return only the location name in a clear format (e.g., "Manhattan, NYC" or "Lower East Side, New York"). If no location is found, return "No location found".

Text: %q

Location:`, text)

	raw, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("location extraction failed", "error", err)
		return NoLocationFound, "error"
	}

	location := strings.TrimSpace(raw)
	if location == "" {
		location = NoLocationFound
	}

	r.cache.Set(ctx, key, extraction{Location: location, Source: "ai"}, r.cacheTTL)
	return location, "ai"
}

// AnalyzeDescription extracts severity, type, urgency, affected areas, and
// needs from a disaster description. Identical descriptions within the cache
// TTL are answered from cache without calling the provider.
func (r *Resolver) AnalyzeDescription(ctx context.Context, description string) domain.AnalysisResult {
	key := digestKey("analysis", description)
	var cached domain.AnalysisResult
	if r.cache.Get(ctx, key, &cached) {
		return cached
	}

	prompt := fmt.Sprintf(`Analyze this disaster description and extract key information:

Description: %q

Provide a structured analysis with:
- severity_level (low/medium/high/critical)
- disaster_type (flood, earthquake, fire, hurricane, etc.)
- urgency_indicator (true/false)
- affected_areas (list of mentioned areas)
- key_needs (list of mentioned needs)

Format your response as valid JSON.`, description)

	raw, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("description analysis failed", "error", err)
		return domain.DefaultAnalysisResult()
	}

	result := parseAnalysis(raw)
	r.cache.Set(ctx, key, result, r.cacheTTL)
	return result
}

// VerifyImage checks a report image for authenticity against the disaster
// context. An image that cannot be fetched or analyzed is reported as
// suspicious, never as authentic.
func (r *Resolver) VerifyImage(ctx context.Context, imageURL, disasterContext string) domain.VerificationResult {
	key := digestKey("verify_image", imageURL)
	var cached domain.VerificationResult
	if r.cache.Get(ctx, key, &cached) {
		return cached
	}

	image, err := r.fetchImage(ctx, imageURL)
	if err != nil {
		r.logger.Warn("image fetch failed", "url", imageURL, "error", err)
		return domain.FailedVerification(imageURL, "failed to fetch image for verification")
	}

	prompt := fmt.Sprintf(`Analyze this image for authenticity and disaster context. Consider the following:

1. Does the image appear to be authentic (not obviously manipulated or AI-generated)?
2. Does the image content match the disaster context: %q?
3. Are there any signs of digital manipulation or inconsistencies?
4. Does the image show realistic disaster conditions?

Provide a structured response with:
- authenticity_score (0-100)
- manipulation_detected (true/false)
- context_match (true/false)
- confidence_level (low/medium/high)
- reasoning (brief explanation)

Format your response as valid JSON.`, disasterContext)

	raw, err := r.client.CompleteWithImage(ctx, prompt, image)
	if err != nil {
		r.logger.Warn("image verification failed", "url", imageURL, "error", err)
		return domain.FailedVerification(imageURL, "verification failed due to provider error")
	}

	result := parseVerification(raw)
	result.ImageURL = imageURL
	result.VerifiedAt = domain.Now()
	result.Source = "ai"

	r.cache.Set(ctx, key, result, r.cacheTTL)
	return result
}

func (r *Resolver) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// parseAnalysis decodes the model's JSON. A response that is not valid JSON
// still succeeds with neutral defaults carrying the raw text, since the
// provider itself answered.
func parseAnalysis(raw string) domain.AnalysisResult {
	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		result = domain.DefaultAnalysisResult()
		result.Source = "ai"
		return result
	}
	if result.SeverityLevel == "" {
		result.SeverityLevel = domain.SeverityMedium
	}
	if result.DisasterType == "" {
		result.DisasterType = "unknown"
	}
	if result.AffectedAreas == nil {
		result.AffectedAreas = []string{}
	}
	if result.KeyNeeds == nil {
		result.KeyNeeds = []string{}
	}
	result.Source = "ai"
	return result
}

// parseVerification decodes the model's JSON verdict. Unparseable answers
// get a neutral middle score with the raw text kept as reasoning.
func parseVerification(raw string) domain.VerificationResult {
	var result domain.VerificationResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return domain.VerificationResult{
			AuthenticityScore:    50,
			ManipulationDetected: false,
			ContextMatch:         true,
			ConfidenceLevel:      domain.ConfidenceMedium,
			Reasoning:            strings.TrimSpace(raw),
		}
	}
	if result.ConfidenceLevel == "" {
		result.ConfidenceLevel = domain.ConfidenceMedium
	}
	return result
}

// stripFences removes a markdown code fence around a JSON payload. Models
// often wrap structured answers in ```json blocks.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func digestKey(prefix, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
