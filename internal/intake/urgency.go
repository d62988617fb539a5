package intake

import "strings"

// UrgencyTier is the coarse priority bucket derived from the caller's
// 1-5 rating.
type UrgencyTier string

const (
	TierStandard UrgencyTier = "standard"
	TierHigh     UrgencyTier = "high"
)

// DefaultUrgency is applied when the caller's input is missing or invalid.
// Forward progress is deliberately preferred over blocking the call on
// stricter validation.
const DefaultUrgency = 3

// highUrgencyThreshold: ratings at or above this are same-day work.
const highUrgencyThreshold = 4

// ClassifyUrgency maps raw DTMF input to an urgency level and tier.
// Exactly one digit in 1-5 maps directly; anything else (empty input,
// multiple digits, out-of-range, letters) falls back to DefaultUrgency.
func ClassifyUrgency(raw string) (int, UrgencyTier) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 1 || raw[0] < '1' || raw[0] > '5' {
		return DefaultUrgency, TierStandard
	}
	n := int(raw[0] - '0')
	if n >= highUrgencyThreshold {
		return n, TierHigh
	}
	return n, TierStandard
}
