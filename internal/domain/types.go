package domain

import "time"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeocodeResult is the normalized output of the geocoding chain.
// Coordinates is nil only when Source is "failed"; the "mock" source still
// carries usable substitute coordinates.
type GeocodeResult struct {
	LocationName string       `json:"location_name"`
	Coordinates  *Coordinates `json:"coordinates"`
	Source       string       `json:"source"`
	GeocodedAt   time.Time    `json:"geocoded_at"`
}

// ReverseGeocodeResult maps coordinates back to a human-readable address.
type ReverseGeocodeResult struct {
	Coordinates       Coordinates `json:"coordinates"`
	Address           string      `json:"address"`
	Source            string      `json:"source"`
	ReverseGeocodedAt time.Time   `json:"reverse_geocoded_at"`
}

// Severity levels for disaster descriptions.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnalysisResult is the structured analysis of a free-text disaster
// description. On provider or parse failure the Source is "error" and the
// remaining fields hold safe defaults (medium/unknown/false/empty).
type AnalysisResult struct {
	SeverityLevel    Severity `json:"severity_level"`
	DisasterType     string   `json:"disaster_type"`
	UrgencyIndicator bool     `json:"urgency_indicator"`
	AffectedAreas    []string `json:"affected_areas"`
	KeyNeeds         []string `json:"key_needs"`
	Source           string   `json:"source"`
}

// DefaultAnalysisResult returns the safe-default analysis used when the AI
// provider fails or its output cannot be parsed.
func DefaultAnalysisResult() AnalysisResult {
	return AnalysisResult{
		SeverityLevel:    SeverityMedium,
		DisasterType:     "unknown",
		UrgencyIndicator: false,
		AffectedAreas:    []string{},
		KeyNeeds:         []string{},
		Source:           "error",
	}
}

// Confidence levels for image verification.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// VerificationResult is the outcome of image authenticity verification.
type VerificationResult struct {
	AuthenticityScore    int        `json:"authenticity_score"`
	ManipulationDetected bool       `json:"manipulation_detected"`
	ContextMatch         bool       `json:"context_match"`
	ConfidenceLevel      Confidence `json:"confidence_level"`
	Reasoning            string     `json:"reasoning"`
	ImageURL             string     `json:"image_url"`
	VerifiedAt           time.Time  `json:"verified_at"`
	Source               string     `json:"source"`
}

// FailedVerification returns the fail-closed verification defaults: an
// unverifiable image is treated as suspicious, never as authentic.
func FailedVerification(imageURL, reason string) VerificationResult {
	return VerificationResult{
		AuthenticityScore:    0,
		ManipulationDetected: true,
		ContextMatch:         false,
		ConfidenceLevel:      ConfidenceLow,
		Reasoning:            reason,
		ImageURL:             imageURL,
		VerifiedAt:           clock.Now(),
		Source:               "error",
	}
}

// Engagement holds provider-reported interaction counters for a social post.
type Engagement struct {
	Reposts int `json:"reposts"`
	Likes   int `json:"likes"`
}

// Total is the combined engagement used for priority thresholds.
func (e Engagement) Total() int { return e.Reposts + e.Likes }

// SocialSignal is a normalized social-media post relevant to a disaster.
// Priority is always recomputed locally, regardless of platform.
type SocialSignal struct {
	ID        string     `json:"id"`
	Platform  string     `json:"platform"`
	Content   string     `json:"content"`
	Author    string     `json:"author"`
	URL       string     `json:"url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Priority  Priority   `json:"priority"`
	Metrics   Engagement `json:"metrics"`
}

// OfficialUpdate is a normalized update from an official agency source.
// IDs are prefixed per source (e.g. "fema_3"); no cross-source deduplication
// is performed beyond that.
type OfficialUpdate struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Severity    string    `json:"severity,omitempty"`
}

// Disaster is the persisted record produced by the creation flow.
type Disaster struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	LocationName string          `json:"location_name"`
	Coordinates  *Coordinates    `json:"coordinates,omitempty"`
	Description  string          `json:"description"`
	Tags         []string        `json:"tags,omitempty"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
	OwnerID      string          `json:"owner_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Resource is a field resource (shelter, supply point) tied to a disaster.
type Resource struct {
	ID           string       `json:"id"`
	DisasterID   string       `json:"disaster_id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	LocationName string       `json:"location_name,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
