package settlement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	refunddomain "github.com/fieldview/arbiter/internal/refund/domain"
	refundrepo "github.com/fieldview/arbiter/internal/refund/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubRefundService struct {
	db       *gorm.DB
	repo     refunddomain.Repository
	failFor  map[snowflake.ID]error
	settled  []snowflake.ID
	attempts int
}

func (s *stubRefundService) EvaluateEligibility(context.Context, snowflake.ID) (*refunddomain.Evaluation, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRefundService) IssueRefund(context.Context, snowflake.ID) (*refunddomain.Refund, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRefundService) SettleWithProcessor(ctx context.Context, refundID snowflake.ID) (*refunddomain.Refund, error) {
	s.attempts++
	if err, ok := s.failFor[refundID]; ok {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := s.repo.MarkProcessed(ctx, s.db, refundID, now, "re_stub"); err != nil {
		return nil, err
	}
	s.settled = append(s.settled, refundID)
	return s.repo.FindByID(ctx, s.db, refundID)
}

func (s *stubRefundService) GetRefund(ctx context.Context, refundID snowflake.ID) (*refunddomain.Refund, error) {
	return s.repo.FindByID(ctx, s.db, refundID)
}

func setupWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS refunds (
			id BIGINT PRIMARY KEY,
			purchase_id BIGINT NOT NULL UNIQUE,
			amount_cents BIGINT NOT NULL,
			currency TEXT NOT NULL,
			reason_code TEXT NOT NULL,
			policy_version TEXT NOT NULL,
			provider_refund_id TEXT,
			processed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create refunds: %v", err)
	}
	return db
}

func insertRefund(t *testing.T, db *gorm.DB, node *snowflake.Node, createdAt time.Time) snowflake.ID {
	t.Helper()
	id := node.Generate()
	err := db.Exec(
		`INSERT INTO refunds (id, purchase_id, amount_cents, currency, reason_code,
		                      policy_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, node.Generate(), 1000, "USD", "half_refund_buffer_ratio_medium", "2026-05",
		createdAt, createdAt,
	).Error
	if err != nil {
		t.Fatalf("insert refund: %v", err)
	}
	return id
}

func TestRunOnceSettlesBacklog(t *testing.T) {
	db := setupWorkerTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := refundrepo.Provide()
	now := time.Now().UTC()

	first := insertRefund(t, db, node, now.Add(-2*time.Minute))
	second := insertRefund(t, db, node, now.Add(-time.Minute))

	svc := &stubRefundService{db: db, repo: repo}
	worker := NewWorker(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repo,
		RefundSvc: svc,
	})

	settled, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if settled != 2 {
		t.Fatalf("expected 2 settled, got %d", settled)
	}
	if len(svc.settled) != 2 || svc.settled[0] != first || svc.settled[1] != second {
		t.Fatalf("expected oldest-first settlement of %d then %d, got %v", first, second, svc.settled)
	}

	remaining, err := repo.ListUnsettled(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("list unsettled: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(remaining))
	}
}

func TestRunOnceSkipsFailingRefund(t *testing.T) {
	db := setupWorkerTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := refundrepo.Provide()
	now := time.Now().UTC()

	failing := insertRefund(t, db, node, now.Add(-2*time.Minute))
	healthy := insertRefund(t, db, node, now.Add(-time.Minute))

	svc := &stubRefundService{
		db:      db,
		repo:    repo,
		failFor: map[snowflake.ID]error{failing: errors.New("processor down")},
	}
	worker := NewWorker(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repo,
		RefundSvc: svc,
	})

	settled, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if settled != 1 {
		t.Fatalf("expected 1 settled, got %d", settled)
	}
	if len(svc.settled) != 1 || svc.settled[0] != healthy {
		t.Fatalf("expected only %d settled, got %v", healthy, svc.settled)
	}

	// The failing refund stays in the backlog for the next poll.
	remaining, err := repo.ListUnsettled(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("list unsettled: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != failing {
		t.Fatalf("expected %d still unsettled, got %v", failing, remaining)
	}

	// A second run retries it.
	svc.failFor = nil
	if _, err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	remaining, err = repo.ListUnsettled(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("list unsettled: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty backlog after retry, got %d", len(remaining))
	}
}

func TestRunOnceBatchLimit(t *testing.T) {
	db := setupWorkerTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := refundrepo.Provide()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		insertRefund(t, db, node, now.Add(time.Duration(i)*time.Second))
	}

	svc := &stubRefundService{db: db, repo: repo}
	worker := NewWorker(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repo,
		RefundSvc: svc,
		Config:    Config{BatchSize: 2, PollInterval: time.Second},
	})

	settled, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if settled != 2 {
		t.Fatalf("expected batch of 2, got %d", settled)
	}
}
