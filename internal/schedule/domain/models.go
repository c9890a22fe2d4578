// Package domain contains the fixture schedule read model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Fixture is a scheduled program (match, race, card) viewers buy access to.
type Fixture struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"type:text;not null" json:"title"`
	ScheduledStartAt time.Time    `gorm:"not null" json:"scheduled_start_at"`
	ScheduledEndAt   time.Time    `gorm:"not null" json:"scheduled_end_at"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Fixture) TableName() string { return "fixtures" }

var (
	ErrFixtureNotFound = errors.New("fixture_not_found")
	ErrInvalidSchedule = errors.New("invalid_schedule")
)

// Service resolves the expected program duration used for downtime ratios.
type Service interface {
	ExpectedDurationMs(ctx context.Context, fixtureID snowflake.ID) (int64, error)
}
