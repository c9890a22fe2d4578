package aggregate

import (
	"testing"

	"github.com/fieldview/arbiter/internal/telemetry/domain"
)

func ev(kind string, ts int64) domain.PlaybackEvent {
	return domain.PlaybackEvent{Kind: kind, TimestampMs: ts}
}

func evDur(kind string, ts, dur int64) domain.PlaybackEvent {
	return domain.PlaybackEvent{Kind: kind, TimestampMs: ts, DurationMs: &dur}
}

func evErr(ts int64, code string, dur *int64) domain.PlaybackEvent {
	return domain.PlaybackEvent{Kind: domain.EventKindError, TimestampMs: ts, ErrorCode: &code, DurationMs: dur}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, 0)
	if got != (domain.Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
	if got.StartupLatencyMs != nil {
		t.Fatalf("expected no startup latency without a play event")
	}
}

func TestSummarizeTypicalSession(t *testing.T) {
	const start = 1_700_000_000_000
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, start+2000),
		evDur(domain.EventKindBuffer, start+10000, 5000),
		ev(domain.EventKindPlay, start+15000),
		ev(domain.EventKindPause, start+60000),
		evErr(start+65000, domain.ErrorCodeFatalStream, nil),
	}

	got := Summarize(events, start)

	if got.StartupLatencyMs == nil || *got.StartupLatencyMs != 2000 {
		t.Fatalf("expected startup latency 2000, got %v", got.StartupLatencyMs)
	}
	if got.TotalBufferMs != 5000 {
		t.Fatalf("expected buffer 5000, got %d", got.TotalBufferMs)
	}
	if got.TotalWatchMs != 45000 {
		t.Fatalf("expected watch 45000, got %d", got.TotalWatchMs)
	}
	if got.BufferEvents != 1 {
		t.Fatalf("expected 1 buffer event, got %d", got.BufferEvents)
	}
	if got.FatalErrors != 1 {
		t.Fatalf("expected 1 fatal error, got %d", got.FatalErrors)
	}
}

// A play after an interrupted segment discards the interrupted segment's
// watch time: only segments that cleanly reach a pause are credited.
func TestSummarizePlayResetsWithoutFlush(t *testing.T) {
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, 0),
		evDur(domain.EventKindBuffer, 1000, 5000),
		ev(domain.EventKindPlay, 2000),
		ev(domain.EventKindPause, 3000),
	}

	got := Summarize(events, 0)

	if got.TotalWatchMs != 1000 {
		t.Fatalf("expected interrupted segment dropped, watch 1000, got %d", got.TotalWatchMs)
	}
	if got.TotalBufferMs != 5000 {
		t.Fatalf("expected buffer 5000, got %d", got.TotalBufferMs)
	}
}

func TestSummarizeMultipleBuffers(t *testing.T) {
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, 0),
		evDur(domain.EventKindBuffer, 1000, 2000),
		ev(domain.EventKindPause, 5000),
		ev(domain.EventKindPlay, 6000),
		evDur(domain.EventKindBuffer, 7000, 3000),
		ev(domain.EventKindPause, 9000),
	}

	got := Summarize(events, 0)

	if got.TotalBufferMs != 5000 {
		t.Fatalf("expected buffer 5000, got %d", got.TotalBufferMs)
	}
	if got.BufferEvents != 2 {
		t.Fatalf("expected 2 buffer events, got %d", got.BufferEvents)
	}
	if got.TotalWatchMs != 8000 {
		t.Fatalf("expected watch 8000, got %d", got.TotalWatchMs)
	}
}

func TestSummarizeStartupLatencyFromFirstPlayOnly(t *testing.T) {
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, 3000),
		ev(domain.EventKindPause, 4000),
		ev(domain.EventKindPlay, 9000),
		ev(domain.EventKindPause, 10000),
	}

	got := Summarize(events, 0)

	if got.StartupLatencyMs == nil || *got.StartupLatencyMs != 3000 {
		t.Fatalf("expected startup latency from first play (3000), got %v", got.StartupLatencyMs)
	}
}

func TestSummarizeStreamDown(t *testing.T) {
	down := int64(30000)
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, 0),
		evErr(5000, domain.ErrorCodeStreamDown, &down),
		ev(domain.EventKindPause, 60000),
	}

	got := Summarize(events, 0)

	if got.StreamDownMs != 30000 {
		t.Fatalf("expected stream down 30000, got %d", got.StreamDownMs)
	}
	if got.FatalErrors != 0 {
		t.Fatalf("stream_down is not a fatal error code, got %d fatals", got.FatalErrors)
	}
	// Errors do not flush the play segment.
	if got.TotalWatchMs != 60000 {
		t.Fatalf("expected watch 60000, got %d", got.TotalWatchMs)
	}
}

func TestSummarizeEndedFlushesFinalSegment(t *testing.T) {
	events := []domain.PlaybackEvent{
		ev(domain.EventKindPlay, 1000),
	}

	got := SummarizeEnded(events, 0, 31000)

	if got.TotalWatchMs != 30000 {
		t.Fatalf("expected session end to flush final segment, watch 30000, got %d", got.TotalWatchMs)
	}
}

func TestSummarizeNeverNegative(t *testing.T) {
	neg := int64(-5000)
	sequences := [][]domain.PlaybackEvent{
		{ev(domain.EventKindPause, 0)},
		{ev(domain.EventKindPlay, 5000), ev(domain.EventKindPause, 1000)},
		{evDur(domain.EventKindBuffer, 0, -100)},
		{evErr(0, domain.ErrorCodeStreamDown, &neg)},
		{ev(domain.EventKindPlay, -100)},
		{{Kind: "seek", TimestampMs: 100}},
	}
	for i, events := range sequences {
		got := Summarize(events, 0)
		if got.TotalWatchMs < 0 || got.TotalBufferMs < 0 || got.BufferEvents < 0 ||
			got.FatalErrors < 0 || got.StreamDownMs < 0 {
			t.Fatalf("sequence %d produced negative fields: %+v", i, got)
		}
		if got.StartupLatencyMs != nil && *got.StartupLatencyMs < 0 {
			t.Fatalf("sequence %d produced negative startup latency", i)
		}
	}
}
