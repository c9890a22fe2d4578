package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/clock"
	entitlementrepo "github.com/fieldview/arbiter/internal/entitlement/repository"
	"github.com/fieldview/arbiter/internal/events"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	telemetryrepo "github.com/fieldview/arbiter/internal/telemetry/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var sessionStart = time.Date(2026, 6, 14, 19, 0, 0, 0, time.UTC)

type harness struct {
	db    *gorm.DB
	svc   telemetrydomain.Service
	genID *snowflake.Node
	now   time.Time
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	db := setupTelemetryTestDB(t)

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := sessionStart.Add(time.Hour)
	svc := NewService(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clock.Fixed{At: now},
		Repo:            telemetryrepo.Provide(),
		EntitlementRepo: entitlementrepo.Provide(),
		Outbox:          events.NewOutbox(db, node),
	})

	return &harness{db: db, svc: svc, genID: node, now: now}
}

func setupTelemetryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS playback_sessions (
			id BIGINT PRIMARY KEY,
			entitlement_id BIGINT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			total_watch_ms BIGINT NOT NULL DEFAULT 0,
			total_buffer_ms BIGINT NOT NULL DEFAULT 0,
			buffer_events BIGINT NOT NULL DEFAULT 0,
			fatal_errors BIGINT NOT NULL DEFAULT 0,
			stream_down_ms BIGINT NOT NULL DEFAULT 0,
			startup_latency_ms BIGINT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS playback_events (
			id BIGINT PRIMARY KEY,
			session_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			timestamp_ms BIGINT NOT NULL,
			duration_ms BIGINT,
			error_code TEXT,
			idempotency_key TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE (session_id, idempotency_key)
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id BIGINT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func (h *harness) insertSession(t *testing.T) snowflake.ID {
	t.Helper()
	id := h.genID.Generate()
	err := h.db.Exec(
		`INSERT INTO playback_sessions (id, entitlement_id, started_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, h.genID.Generate(), sessionStart, sessionStart, sessionStart,
	).Error
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return id
}

func ptr[T any](v T) *T { return &v }

func (h *harness) ingest(t *testing.T, sessionID snowflake.ID, kind string, atMs int64, mutate func(*telemetrydomain.IngestEventRequest)) *telemetrydomain.PlaybackEvent {
	t.Helper()
	req := telemetrydomain.IngestEventRequest{
		SessionID:   sessionID.String(),
		Kind:        kind,
		TimestampMs: atMs,
	}
	if mutate != nil {
		mutate(&req)
	}
	event, err := h.svc.IngestEvent(context.Background(), req)
	if err != nil {
		t.Fatalf("ingest %s at %d: %v", kind, atMs, err)
	}
	return event
}

func TestIngestEventRejectsUnknownSession(t *testing.T) {
	h := setupHarness(t)

	_, err := h.svc.IngestEvent(context.Background(), telemetrydomain.IngestEventRequest{
		SessionID:   "123456789",
		Kind:        telemetrydomain.EventKindPlay,
		TimestampMs: 0,
	})
	if !errors.Is(err, telemetrydomain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestIngestEventRejectsBadKind(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)

	_, err := h.svc.IngestEvent(context.Background(), telemetrydomain.IngestEventRequest{
		SessionID:   sessionID.String(),
		Kind:        "seek",
		TimestampMs: 0,
	})
	if !errors.Is(err, telemetrydomain.ErrInvalidEventKind) {
		t.Fatalf("expected ErrInvalidEventKind, got %v", err)
	}
}

func TestIngestEventRejectsOutOfOrder(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)
	startMs := sessionStart.UnixMilli()

	h.ingest(t, sessionID, telemetrydomain.EventKindPlay, startMs+5000, nil)

	_, err := h.svc.IngestEvent(context.Background(), telemetrydomain.IngestEventRequest{
		SessionID:   sessionID.String(),
		Kind:        telemetrydomain.EventKindPause,
		TimestampMs: startMs + 1000,
	})
	if !errors.Is(err, telemetrydomain.ErrOutOfOrderEvent) {
		t.Fatalf("expected ErrOutOfOrderEvent, got %v", err)
	}
}

func TestIngestEventRejectsNegativeDuration(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)

	_, err := h.svc.IngestEvent(context.Background(), telemetrydomain.IngestEventRequest{
		SessionID:   sessionID.String(),
		Kind:        telemetrydomain.EventKindBuffer,
		TimestampMs: sessionStart.UnixMilli(),
		DurationMs:  ptr(int64(-100)),
	})
	if !errors.Is(err, telemetrydomain.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestIngestEventIdempotencyKeyDeduplicates(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)
	startMs := sessionStart.UnixMilli()

	first := h.ingest(t, sessionID, telemetrydomain.EventKindBuffer, startMs+1000, func(req *telemetrydomain.IngestEventRequest) {
		req.DurationMs = ptr(int64(2500))
		req.IdempotencyKey = ptr("evt-a1")
	})
	second := h.ingest(t, sessionID, telemetrydomain.EventKindBuffer, startMs+1000, func(req *telemetrydomain.IngestEventRequest) {
		req.DurationMs = ptr(int64(2500))
		req.IdempotencyKey = ptr("evt-a1")
	})
	if first.ID != second.ID {
		t.Fatalf("expected duplicate delivery to return the stored event, got %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := h.db.Raw(`SELECT COUNT(*) FROM playback_events`).Scan(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored event, got %d", count)
	}
}

func TestEndSessionStampsSummary(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)
	startMs := sessionStart.UnixMilli()

	h.ingest(t, sessionID, telemetrydomain.EventKindPlay, startMs+2000, nil)
	h.ingest(t, sessionID, telemetrydomain.EventKindBuffer, startMs+10000, func(req *telemetrydomain.IngestEventRequest) {
		req.DurationMs = ptr(int64(5000))
	})
	h.ingest(t, sessionID, telemetrydomain.EventKindError, startMs+20000, func(req *telemetrydomain.IngestEventRequest) {
		req.ErrorCode = ptr(telemetrydomain.ErrorCodeFatalStream)
	})
	h.ingest(t, sessionID, telemetrydomain.EventKindPause, startMs+47000, nil)

	summary, err := h.svc.EndSession(context.Background(), sessionID.String())
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if summary.TotalWatchMs != 45000 {
		t.Fatalf("expected watch 45000, got %d", summary.TotalWatchMs)
	}
	if summary.TotalBufferMs != 5000 || summary.BufferEvents != 1 {
		t.Fatalf("unexpected buffer rollup %+v", summary)
	}
	if summary.FatalErrors != 1 {
		t.Fatalf("expected 1 fatal error, got %d", summary.FatalErrors)
	}
	if summary.StartupLatencyMs == nil || *summary.StartupLatencyMs != 2000 {
		t.Fatalf("unexpected startup latency %v", summary.StartupLatencyMs)
	}

	var endedAt *time.Time
	if err := h.db.Raw(`SELECT ended_at FROM playback_sessions WHERE id = ?`, sessionID).Scan(&endedAt).Error; err != nil {
		t.Fatalf("load ended_at: %v", err)
	}
	if endedAt == nil {
		t.Fatal("expected ended_at to be stamped")
	}

	var outboxCount int64
	if err := h.db.Raw(
		`SELECT COUNT(*) FROM outbox_events WHERE event_type = ?`, events.EventSessionEnded,
	).Scan(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected 1 session_ended event, got %d", outboxCount)
	}
}

func TestEndSessionCreditsFinalPlaySegment(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)
	startMs := sessionStart.UnixMilli()

	// Play with no closing pause: the end boundary flushes the segment at
	// the last reported timestamp.
	h.ingest(t, sessionID, telemetrydomain.EventKindPlay, startMs+1000, nil)
	h.ingest(t, sessionID, telemetrydomain.EventKindBuffer, startMs+31000, func(req *telemetrydomain.IngestEventRequest) {
		req.DurationMs = ptr(int64(1000))
	})

	summary, err := h.svc.EndSession(context.Background(), sessionID.String())
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if summary.TotalWatchMs < 30000 {
		t.Fatalf("expected final segment credited, got watch %d", summary.TotalWatchMs)
	}
}

func TestEndSessionTwice(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)

	if _, err := h.svc.EndSession(context.Background(), sessionID.String()); err != nil {
		t.Fatalf("first end: %v", err)
	}
	_, err := h.svc.EndSession(context.Background(), sessionID.String())
	if !errors.Is(err, telemetrydomain.ErrSessionAlreadyEnded) {
		t.Fatalf("expected ErrSessionAlreadyEnded, got %v", err)
	}
}

func TestEndSessionRejectsIngestAfterwards(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)

	if _, err := h.svc.EndSession(context.Background(), sessionID.String()); err != nil {
		t.Fatalf("end session: %v", err)
	}

	_, err := h.svc.IngestEvent(context.Background(), telemetrydomain.IngestEventRequest{
		SessionID:   sessionID.String(),
		Kind:        telemetrydomain.EventKindPlay,
		TimestampMs: sessionStart.UnixMilli(),
	})
	if !errors.Is(err, telemetrydomain.ErrSessionAlreadyEnded) {
		t.Fatalf("expected ErrSessionAlreadyEnded, got %v", err)
	}
}

func TestEndSessionRejectsBufferExceedingWatch(t *testing.T) {
	h := setupHarness(t)
	sessionID := h.insertSession(t)
	startMs := sessionStart.UnixMilli()

	// Interrupted play segments discard their watch time while buffering
	// still accrues, so the rollup can claim more buffering than viewing.
	// Such telemetry is rejected instead of clamped.
	h.ingest(t, sessionID, telemetrydomain.EventKindPlay, startMs, nil)
	h.ingest(t, sessionID, telemetrydomain.EventKindBuffer, startMs+1000, func(req *telemetrydomain.IngestEventRequest) {
		req.DurationMs = ptr(int64(60000))
	})
	h.ingest(t, sessionID, telemetrydomain.EventKindPlay, startMs+61000, nil)
	h.ingest(t, sessionID, telemetrydomain.EventKindPause, startMs+62000, nil)

	_, err := h.svc.EndSession(context.Background(), sessionID.String())
	if !errors.Is(err, telemetrydomain.ErrInvalidTelemetry) {
		t.Fatalf("expected ErrInvalidTelemetry, got %v", err)
	}

	var endedAt *time.Time
	if err := h.db.Raw(`SELECT ended_at FROM playback_sessions WHERE id = ?`, sessionID).Row().Scan(&endedAt); err != nil {
		t.Fatalf("load ended_at: %v", err)
	}
	if endedAt != nil {
		t.Fatal("rejected telemetry must leave the session open")
	}
}
