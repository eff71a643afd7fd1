// Package domain models disaster-response data aggregated from external
// providers: geocoders, generative-AI analyzers, social feeds, and official
// agency sources.
//
// # Source Tagging
//
// Every aggregated result carries a Source field naming the provider that
// produced it. Two sentinel values exist:
//
//	"mock"  : all real providers failed and a deterministic substitute was
//	          returned. Substitute data is always usable (plottable
//	          coordinates, well-formed updates) so callers never branch on
//	          provider outages.
//	"error" : the operation could not produce a meaningful result even as a
//	          substitute (reverse geocoding, AI analysis). The payload holds
//	          safe defaults instead.
//
// # Priority Classification
//
// Social signal priority is derived here, never taken from a provider, so a
// Twitter post and a Bluesky post with the same content classify identically:
//
//	urgent : content contains an urgent keyword (urgent, emergency, sos,
//	         immediate, critical, help)
//	high   : content contains a needs keyword (need, assistance, shelter,
//	         medical, food, water), or total engagement > 100
//	medium : total engagement > 50
//	low    : everything else
//
// Keyword match always dominates engagement. The thresholds (100/50) and the
// keyword lists are operational constants carried over from the platform's
// moderation rules; they are configurable but have no documented derivation.
//
// # Coordinates
//
// Latitude is bounded to [-90, 90] and longitude to [-180, 180]. Validation
// happens before any distance computation; out-of-range values are the one
// error class surfaced to callers (ErrInvalidCoordinates) rather than
// substituted.
package domain
