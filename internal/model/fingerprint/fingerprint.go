// Package fingerprint holds the client-supplied device signals and the
// similarity measure used by the risk scorer. The naive equal-field ratio is
// a placeholder heuristic, not a security boundary; keeping it here lets a
// weighted distance replace it without touching the scorer's control flow.
package fingerprint

// Device is the structured record of browser/environment signals sent by the
// client at registration and login.
type Device struct {
	UserAgent     string `json:"userAgent"`
	Screen        string `json:"screen"`
	Timezone      string `json:"timezone"`
	Language      string `json:"language"`
	Platform      string `json:"platform"`
	CookieEnabled bool   `json:"cookieEnabled"`
	DoNotTrack    string `json:"doNotTrack"`
	Canvas        string `json:"canvas"`
	WebGL         string `json:"webgl"`
}

func (d *Device) fields() []any {
	return []any{
		d.UserAgent,
		d.Screen,
		d.Timezone,
		d.Language,
		d.Platform,
		d.CookieEnabled,
		d.DoNotTrack,
		d.Canvas,
		d.WebGL,
	}
}

// Similarity is the fraction of exactly-equal fields between two records,
// in [0, 1].
func Similarity(a, b *Device) float64 {
	if a == nil || b == nil {
		return 0
	}
	af, bf := a.fields(), b.fields()
	matches := 0
	for i := range af {
		if af[i] == bf[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(af))
}
