// Package aggregate folds ordered playback events into a session summary.
//
// The fold is pure and total: any event sequence, including an empty one,
// produces a summary with non-negative fields.
package aggregate

import (
	"github.com/fieldview/arbiter/internal/telemetry/domain"
)

type accumulator struct {
	playStartMs     int64
	playActive      bool
	startupRecorded bool
	summary         domain.Summary
}

// Summarize folds events into a summary without an explicit end boundary.
// Session start is the reference point for startup latency.
func Summarize(events []domain.PlaybackEvent, sessionStartedAtMs int64) domain.Summary {
	acc := accumulator{}
	for _, ev := range events {
		acc = acc.fold(ev, sessionStartedAtMs)
	}
	return acc.summary
}

// SummarizeEnded folds events and then treats the session end as an implicit
// pause, so a final uninterrupted play segment is credited.
func SummarizeEnded(events []domain.PlaybackEvent, sessionStartedAtMs, endedAtMs int64) domain.Summary {
	acc := accumulator{}
	for _, ev := range events {
		acc = acc.fold(ev, sessionStartedAtMs)
	}
	acc = acc.flush(endedAtMs)
	return acc.summary
}

func (a accumulator) fold(ev domain.PlaybackEvent, sessionStartedAtMs int64) accumulator {
	switch ev.Kind {
	case domain.EventKindPlay:
		if !a.startupRecorded {
			latency := nonNegative(ev.TimestampMs - sessionStartedAtMs)
			a.summary.StartupLatencyMs = &latency
			a.startupRecorded = true
		}
		// A play always opens a fresh segment. Watch time accrued since a
		// prior play that never reached a pause is discarded: the segment was
		// interrupted and its partial watch time is not trusted viewing.
		a.playStartMs = ev.TimestampMs
		a.playActive = true
	case domain.EventKindPause:
		a = a.flush(ev.TimestampMs)
	case domain.EventKindBuffer:
		// Pass-through with respect to the watch-time state machine.
		a.summary.TotalBufferMs += nonNegative(durationOf(ev))
		a.summary.BufferEvents++
	case domain.EventKindError:
		var code string
		if ev.ErrorCode != nil {
			code = *ev.ErrorCode
		}
		if domain.IsFatalErrorCode(code) {
			a.summary.FatalErrors++
		}
		if code == domain.ErrorCodeStreamDown {
			a.summary.StreamDownMs += nonNegative(durationOf(ev))
		}
	}
	// Unknown kinds are ignored so the fold stays total.
	return a
}

func (a accumulator) flush(atMs int64) accumulator {
	if a.playActive {
		a.summary.TotalWatchMs += nonNegative(atMs - a.playStartMs)
		a.playActive = false
	}
	return a
}

func durationOf(ev domain.PlaybackEvent) int64 {
	if ev.DurationMs == nil {
		return 0
	}
	return *ev.DurationMs
}

func nonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
