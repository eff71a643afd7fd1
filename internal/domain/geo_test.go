package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat      float64
		lon      float64
		expected bool
	}{
		{"origin", 0, 0, true},
		{"new york", 40.7128, -74.0060, true},
		{"lat upper bound", 90, 0, true},
		{"lat lower bound", -90, 0, true},
		{"lon upper bound", 0, 180, true},
		{"lon lower bound", 0, -180, true},
		{"lat too high", 90.0001, 0, false},
		{"lat too low", -90.0001, 0, false},
		{"lon too high", 0, 180.0001, false},
		{"lon too low", 0, -180.0001, false},
		{"both invalid", 120, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidCoordinates(tt.lat, tt.lon))
		})
	}
}

func TestDistance_Identity(t *testing.T) {
	assert.Equal(t, 0.0, Distance(40.7128, -74.0060, 40.7128, -74.0060))
}

func TestDistance_Symmetry(t *testing.T) {
	ab := Distance(40.7128, -74.0060, 34.0522, -118.2437)
	ba := Distance(34.0522, -118.2437, 40.7128, -74.0060)
	assert.InDelta(t, ab, ba, 1e-6)
}

func TestDistance_NewYorkToLosAngeles(t *testing.T) {
	// Known great-circle reference: ~3936 km.
	d := Distance(40.7128, -74.0060, 34.0522, -118.2437)
	assert.InDelta(t, 3936, d, 20)
}

func TestDistance_ShortRange(t *testing.T) {
	// Manhattan to Brooklyn, a few kilometers.
	d := Distance(40.7831, -73.9712, 40.6782, -73.9442)
	assert.Greater(t, d, 5.0)
	assert.Less(t, d, 20.0)
	assert.False(t, math.IsNaN(d))
}
