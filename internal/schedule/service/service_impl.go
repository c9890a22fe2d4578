package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/cache"
	"github.com/fieldview/arbiter/internal/config"
	scheduledomain "github.com/fieldview/arbiter/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cacheTTL time.Duration
	cache    *cache.TTLCache[snowflake.ID, int64]
}

func NewService(p Params) scheduledomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("schedule.service"),
		cacheTTL: p.Cfg.ScheduleCacheTTL,
		cache:    cache.NewTTLCache[snowflake.ID, int64](),
	}
}

// ExpectedDurationMs returns the scheduled program length. Fixture schedules
// are effectively immutable once published, so results are cached briefly.
func (s *Service) ExpectedDurationMs(ctx context.Context, fixtureID snowflake.ID) (int64, error) {
	if fixtureID == 0 {
		return 0, scheduledomain.ErrFixtureNotFound
	}
	if cached, ok := s.cache.Get(fixtureID); ok {
		return cached, nil
	}

	var row scheduledomain.Fixture
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, title, scheduled_start_at, scheduled_end_at, created_at
		 FROM fixtures
		 WHERE id = ?`,
		fixtureID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID == 0 {
		return 0, scheduledomain.ErrFixtureNotFound
	}
	if !row.ScheduledEndAt.After(row.ScheduledStartAt) {
		return 0, scheduledomain.ErrInvalidSchedule
	}

	duration := row.ScheduledEndAt.Sub(row.ScheduledStartAt).Milliseconds()
	s.cache.Set(fixtureID, duration, s.cacheTTL)
	return duration, nil
}
