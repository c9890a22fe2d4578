package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldview/arbiter/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

func (s *Service) AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return errors.New("missing_audit_action")
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		return errors.New("missing_audit_target_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	return s.db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, action, target_type, target_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.genID.Generate(),
		action,
		targetType,
		targetID,
		payload,
		time.Now().UTC(),
	).Error
}
