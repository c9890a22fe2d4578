// Package policy decides refund eligibility from aggregated playback
// telemetry. Evaluation is pure: identical inputs always yield the identical
// decision.
package policy

import (
	"math"

	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
)

// Reason is the closed set of adjudication outcomes.
type Reason string

const (
	ReasonNotEligible Reason = "not_eligible"

	ReasonFullBufferRatioHigh     Reason = "full_refund_buffer_ratio_high"
	ReasonFullDowntimeRatioHigh   Reason = "full_refund_downtime_ratio_high"
	ReasonFullFatalErrorsMultiple Reason = "full_refund_fatal_errors_multiple"

	ReasonHalfBufferRatioMedium      Reason = "half_refund_buffer_ratio_medium"
	ReasonHalfDowntimeRatioMedium    Reason = "half_refund_downtime_ratio_medium"
	ReasonHalfFatalErrorMinimalWatch Reason = "half_refund_fatal_error_minimal_watch"

	ReasonPartialExcessiveBuffering Reason = "partial_refund_excessive_buffering"
)

// Decision is the adjudication result. BufferRatio and DowntimeRatio are
// echoed for observability and audit.
type Decision struct {
	Eligible      bool    `json:"eligible"`
	AmountCents   int64   `json:"amount_cents"`
	ReasonCode    Reason  `json:"reason_code"`
	AppliedRule   Reason  `json:"applied_rule"`
	BufferRatio   float64 `json:"buffer_ratio"`
	DowntimeRatio float64 `json:"downtime_ratio"`
}

type ruleInput struct {
	telemetry     telemetrydomain.Summary
	bufferRatio   float64
	downtimeRatio float64
}

// tierRule pairs a predicate with its outcome. The slice order in rules is
// the tie-break contract: the first matching rule wins and short-circuits, so
// a half-tier match always beats a simultaneously-true partial condition.
type tierRule struct {
	reason   Reason
	fraction float64
	matches  func(cfg Config, in ruleInput) bool
}

var rules = []tierRule{
	{
		reason:   ReasonFullBufferRatioHigh,
		fraction: 1,
		matches: func(cfg Config, in ruleInput) bool {
			return in.bufferRatio > cfg.FullRefundBufferRatio
		},
	},
	{
		reason:   ReasonFullDowntimeRatioHigh,
		fraction: 1,
		matches: func(cfg Config, in ruleInput) bool {
			return in.downtimeRatio > cfg.FullRefundDowntimeRatio
		},
	},
	{
		reason:   ReasonFullFatalErrorsMultiple,
		fraction: 1,
		matches: func(cfg Config, in ruleInput) bool {
			return in.telemetry.FatalErrors >= cfg.FatalErrorsForFullRefund &&
				in.telemetry.TotalWatchMs < cfg.MaxWatchMsForFullRefundFatal
		},
	},
	{
		reason:   ReasonHalfBufferRatioMedium,
		fraction: 0.5,
		matches: func(cfg Config, in ruleInput) bool {
			return in.bufferRatio > cfg.HalfRefundBufferRatio
		},
	},
	{
		reason:   ReasonHalfDowntimeRatioMedium,
		fraction: 0.5,
		matches: func(cfg Config, in ruleInput) bool {
			return in.downtimeRatio > cfg.HalfRefundDowntimeRatio
		},
	},
	{
		reason:   ReasonHalfFatalErrorMinimalWatch,
		fraction: 0.5,
		matches: func(cfg Config, in ruleInput) bool {
			return in.telemetry.FatalErrors >= 1 &&
				in.telemetry.TotalWatchMs < cfg.MaxWatchMsForHalfRefundFatal
		},
	},
	{
		reason:   ReasonPartialExcessiveBuffering,
		fraction: 0, // resolved from cfg.PartialRefundFraction
		matches: func(cfg Config, in ruleInput) bool {
			return in.telemetry.BufferEvents > cfg.ExcessiveBufferEventThreshold
		},
	},
}

// Evaluate adjudicates a purchase against the rule table. The fraud gate runs
// first: under the minimum watch time no quality signal can produce a refund.
func Evaluate(purchaseAmountCents int64, telemetry telemetrydomain.Summary, expectedDurationMs int64, cfg Config) Decision {
	cfg = cfg.withDefaults()

	in := ruleInput{
		telemetry:     telemetry,
		bufferRatio:   ratio(telemetry.TotalBufferMs, telemetry.TotalWatchMs),
		downtimeRatio: ratio(telemetry.StreamDownMs, expectedDurationMs),
	}

	notEligible := Decision{
		Eligible:      false,
		AmountCents:   0,
		ReasonCode:    ReasonNotEligible,
		AppliedRule:   ReasonNotEligible,
		BufferRatio:   in.bufferRatio,
		DowntimeRatio: in.downtimeRatio,
	}

	if telemetry.TotalWatchMs < cfg.MinWatchMsForFraudGate {
		return notEligible
	}

	for _, rule := range rules {
		if !rule.matches(cfg, in) {
			continue
		}
		fraction := rule.fraction
		if fraction == 0 {
			fraction = cfg.PartialRefundFraction
		}
		return Decision{
			Eligible:      true,
			AmountCents:   refundAmount(purchaseAmountCents, fraction),
			ReasonCode:    rule.reason,
			AppliedRule:   rule.reason,
			BufferRatio:   in.bufferRatio,
			DowntimeRatio: in.downtimeRatio,
		}
	}

	return notEligible
}

// refundAmount rounds half-up on cents and never exceeds the purchase amount.
func refundAmount(purchaseAmountCents int64, fraction float64) int64 {
	if purchaseAmountCents <= 0 {
		return 0
	}
	if fraction >= 1 {
		return purchaseAmountCents
	}
	amount := int64(math.Round(float64(purchaseAmountCents) * fraction))
	if amount > purchaseAmountCents {
		amount = purchaseAmountCents
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
