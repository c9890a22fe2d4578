package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/clock"
	entitlementdomain "github.com/fieldview/arbiter/internal/entitlement/domain"
	"github.com/fieldview/arbiter/internal/events"
	"github.com/fieldview/arbiter/internal/telemetry/aggregate"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validEventKinds = map[string]struct{}{
	telemetrydomain.EventKindPlay:   {},
	telemetrydomain.EventKindPause:  {},
	telemetrydomain.EventKindBuffer: {},
	telemetrydomain.EventKindError:  {},
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            telemetrydomain.Repository
	EntitlementRepo entitlementdomain.Repository
	Outbox          *events.Outbox
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            telemetrydomain.Repository
	entitlementRepo entitlementdomain.Repository
	outbox          *events.Outbox
}

func NewService(p Params) telemetrydomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("telemetry.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		entitlementRepo: p.EntitlementRepo,
		outbox:          p.Outbox,
	}
}

func (s *Service) IngestEvent(ctx context.Context, req telemetrydomain.IngestEventRequest) (*telemetrydomain.PlaybackEvent, error) {
	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.entitlementRepo.FindSessionByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, telemetrydomain.ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return nil, telemetrydomain.ErrSessionAlreadyEnded
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if _, ok := validEventKinds[kind]; !ok {
		return nil, telemetrydomain.ErrInvalidEventKind
	}
	if req.TimestampMs < 0 {
		return nil, telemetrydomain.ErrInvalidTimestamp
	}
	if req.DurationMs != nil && *req.DurationMs < 0 {
		return nil, telemetrydomain.ErrInvalidDuration
	}

	// Events must arrive in non-decreasing timestamp order per session.
	last, err := s.repo.MaxTimestampMs(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if req.TimestampMs < last {
		return nil, telemetrydomain.ErrOutOfOrderEvent
	}

	event := &telemetrydomain.PlaybackEvent{
		ID:          s.genID.Generate(),
		SessionID:   sessionID,
		Kind:        kind,
		TimestampMs: req.TimestampMs,
		DurationMs:  req.DurationMs,
		CreatedAt:   s.clock.Now(),
	}
	if req.ErrorCode != nil {
		code := strings.TrimSpace(*req.ErrorCode)
		if code != "" {
			event.ErrorCode = &code
		}
	}
	if req.IdempotencyKey != nil {
		key := strings.TrimSpace(*req.IdempotencyKey)
		if key != "" {
			event.IdempotencyKey = &key
		}
	}
	if len(req.Metadata) > 0 {
		metadata := datatypes.JSONMap{}
		for key, value := range req.Metadata {
			if strings.TrimSpace(key) == "" {
				continue
			}
			metadata[key] = value
		}
		event.Metadata = metadata
	}

	inserted, err := s.repo.Insert(ctx, s.db, event)
	if err != nil {
		return nil, err
	}
	if !inserted && event.IdempotencyKey != nil {
		// Duplicate delivery of a known event. Return the stored row.
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, sessionID, *event.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	return event, nil
}

func (s *Service) EndSession(ctx context.Context, rawSessionID string) (*telemetrydomain.Summary, error) {
	sessionID, err := parseSessionID(rawSessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.entitlementRepo.FindSessionByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, telemetrydomain.ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return nil, telemetrydomain.ErrSessionAlreadyEnded
	}

	eventRows, err := s.repo.ListBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}

	endedAt := s.clock.Now()
	startedMs := session.StartedAt.UnixMilli()
	endedMs := endedAt.UnixMilli()
	if len(eventRows) > 0 {
		// Clients report timestamps on their own clock. Closing at the last
		// reported instant keeps the implicit final segment on that clock
		// instead of mixing in server time.
		if lastMs := eventRows[len(eventRows)-1].TimestampMs; lastMs > endedMs {
			endedMs = lastMs
		}
	}

	summary := aggregate.SummarizeEnded(eventRows, startedMs, endedMs)
	if err := summary.Validate(); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.entitlementRepo.EndSession(ctx, tx, sessionID, endedAt, summary)
		if err != nil {
			return err
		}
		if !ok {
			return telemetrydomain.ErrSessionAlreadyEnded
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventSessionEnded,
			DedupeKey: "session_ended_" + sessionID.String(),
			Payload: events.SessionEndedPayload{
				SessionID:     sessionID.String(),
				EntitlementID: session.EntitlementID.String(),
				TotalWatchMs:  summary.TotalWatchMs,
			}.ToMap(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("playback session ended",
		zap.String("session_id", sessionID.String()),
		zap.Int64("total_watch_ms", summary.TotalWatchMs),
		zap.Int64("total_buffer_ms", summary.TotalBufferMs),
		zap.Int64("fatal_errors", summary.FatalErrors),
	)
	return &summary, nil
}

func parseSessionID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, telemetrydomain.ErrInvalidSession
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, telemetrydomain.ErrInvalidSession
	}
	return id, nil
}
