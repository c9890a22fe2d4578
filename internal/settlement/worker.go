// Package settlement retries processor settlement for issued refunds until
// each one lands. There is no terminal failure state: a refund that keeps
// failing stays in the backlog and surfaces through the backlog gauge.
package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/fieldview/arbiter/internal/observability/metrics"
	refunddomain "github.com/fieldview/arbiter/internal/refund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      refunddomain.Repository
	RefundSvc refunddomain.Service
	Metrics   *metrics.RefundMetrics `optional:"true"`
	Config    Config                 `optional:"true"`
}

type Worker struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      refunddomain.Repository
	refundSvc refunddomain.Service
	metrics   *metrics.RefundMetrics
	cfg       Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:        p.DB,
		log:       p.Log.Named("settlement.worker"),
		repo:      p.Repo,
		refundSvc: p.RefundSvc,
		metrics:   p.Metrics,
		cfg:       p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("settlement run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce settles one batch of unsettled refunds. A refund whose settlement
// fails is logged and left for the next poll; one bad refund never blocks
// the rest of the batch.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	if w.db == nil || w.repo == nil || w.refundSvc == nil {
		return 0, errors.New("settlement_worker_unavailable")
	}

	unsettled, err := w.repo.ListUnsettled(ctx, w.db, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	w.metrics.SetUnsettledBacklog(len(unsettled))

	settled := 0
	for _, refund := range unsettled {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		if _, err := w.refundSvc.SettleWithProcessor(ctx, refund.ID); err != nil {
			w.log.Warn("settlement attempt failed",
				zap.String("refund_id", refund.ID.String()),
				zap.Error(err),
			)
			continue
		}
		settled++
	}

	if settled > 0 {
		w.metrics.SetUnsettledBacklog(len(unsettled) - settled)
	}
	return settled, nil
}
