package enrich

import "strings"

// ConfidenceInput captures the evidence behind one directory-enriched row.
type ConfidenceInput struct {
	DirectoryHit      bool
	Website           string
	Phone             string
	Email             string
	AddressMatch      bool
	AddressNormalized bool
	LLMOK             bool
}

// Confidence scores the evidence. A directory listing is the strongest
// signal; each reported contact channel, a confirmed address match and a
// successfully normalized website address add to it. The score is capped
// at 100.
func Confidence(in ConfidenceInput) int {
	score := 0
	if in.DirectoryHit {
		score += 40
	}
	if reported(in.Website) {
		score += 15
	}
	if reported(in.Phone) {
		score += 15
	}
	if reported(in.Email) {
		score += 15
	}
	if in.AddressMatch {
		score += 15
	}
	if in.AddressNormalized {
		score += 10
	}
	if in.LLMOK {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}

// reported tells whether a field carries real data rather than the
// "Unreported" placeholder.
func reported(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "unreported")
}

// joinedAddress renders address fields as a single lowercased string for
// whole-address comparison.
func joinedAddress(fields ...string) string {
	return strings.ToLower(strings.Join(fields, " "))
}

// addressesMatch compares two joined addresses. Equality is exact on the
// full joined string; two blank addresses do not match.
func addressesMatch(a, b string) bool {
	return strings.TrimSpace(a) != "" && a == b
}
