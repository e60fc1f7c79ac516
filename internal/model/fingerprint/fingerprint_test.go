package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"yukifiles/internal/model/fingerprint"
)

func sample() *fingerprint.Device {
	return &fingerprint.Device{
		UserAgent:     "Mozilla/5.0",
		Screen:        "1920x1080",
		Timezone:      "Europe/Berlin",
		Language:      "en-US",
		Platform:      "Linux x86_64",
		CookieEnabled: true,
		DoNotTrack:    "1",
		Canvas:        "c4nv4s",
		WebGL:         "Mesa",
	}
}

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, fingerprint.Similarity(sample(), sample()))
}

func TestSimilarity_OneFieldDiffers(t *testing.T) {
	other := sample()
	other.Screen = "1280x720"

	// all fields equal except one: (N-1)/N
	assert.InDelta(t, 8.0/9.0, fingerprint.Similarity(sample(), other), 1e-9)
}

func TestSimilarity_Disjoint(t *testing.T) {
	other := &fingerprint.Device{
		UserAgent:     "curl/8.0",
		Screen:        "none",
		Timezone:      "UTC",
		Language:      "ru",
		Platform:      "FreeBSD",
		CookieEnabled: false,
		DoNotTrack:    "0",
		Canvas:        "other",
		WebGL:         "other",
	}
	assert.Equal(t, 0.0, fingerprint.Similarity(sample(), other))
}

func TestSimilarity_Nil(t *testing.T) {
	assert.Equal(t, 0.0, fingerprint.Similarity(nil, sample()))
	assert.Equal(t, 0.0, fingerprint.Similarity(sample(), nil))
}
