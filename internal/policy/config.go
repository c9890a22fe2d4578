package policy

// Version identifies the rule table shipped with this build; it is stamped
// onto every issued refund for audit.
const Version = "2026-05"

// Config holds the adjudication thresholds. Zero values fall back to the
// published defaults.
type Config struct {
	FullRefundBufferRatio   float64
	HalfRefundBufferRatio   float64
	FullRefundDowntimeRatio float64
	HalfRefundDowntimeRatio float64

	MinWatchMsForFraudGate int64

	FatalErrorsForFullRefund     int64
	MaxWatchMsForFullRefundFatal int64
	MaxWatchMsForHalfRefundFatal int64

	ExcessiveBufferEventThreshold int64
	PartialRefundFraction         float64
}

// DefaultConfig returns the published adjudication thresholds.
func DefaultConfig() Config {
	return Config{
		FullRefundBufferRatio:         0.20,
		HalfRefundBufferRatio:         0.10,
		FullRefundDowntimeRatio:       0.20,
		HalfRefundDowntimeRatio:       0.10,
		MinWatchMsForFraudGate:        30_000,
		FatalErrorsForFullRefund:      3,
		MaxWatchMsForFullRefundFatal:  5 * 60_000,
		MaxWatchMsForHalfRefundFatal:  2 * 60_000,
		ExcessiveBufferEventThreshold: 10,
		PartialRefundFraction:         0.25,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.FullRefundBufferRatio <= 0 {
		c.FullRefundBufferRatio = defaults.FullRefundBufferRatio
	}
	if c.HalfRefundBufferRatio <= 0 {
		c.HalfRefundBufferRatio = defaults.HalfRefundBufferRatio
	}
	if c.FullRefundDowntimeRatio <= 0 {
		c.FullRefundDowntimeRatio = defaults.FullRefundDowntimeRatio
	}
	if c.HalfRefundDowntimeRatio <= 0 {
		c.HalfRefundDowntimeRatio = defaults.HalfRefundDowntimeRatio
	}
	if c.MinWatchMsForFraudGate <= 0 {
		c.MinWatchMsForFraudGate = defaults.MinWatchMsForFraudGate
	}
	if c.FatalErrorsForFullRefund <= 0 {
		c.FatalErrorsForFullRefund = defaults.FatalErrorsForFullRefund
	}
	if c.MaxWatchMsForFullRefundFatal <= 0 {
		c.MaxWatchMsForFullRefundFatal = defaults.MaxWatchMsForFullRefundFatal
	}
	if c.MaxWatchMsForHalfRefundFatal <= 0 {
		c.MaxWatchMsForHalfRefundFatal = defaults.MaxWatchMsForHalfRefundFatal
	}
	if c.ExcessiveBufferEventThreshold <= 0 {
		c.ExcessiveBufferEventThreshold = defaults.ExcessiveBufferEventThreshold
	}
	if c.PartialRefundFraction <= 0 {
		c.PartialRefundFraction = defaults.PartialRefundFraction
	}
	return c
}
