package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldview/arbiter/internal/observability/logger"
)

func parseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrBadRequest
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrBadRequest
	}
	return id, nil
}

// EvaluateRefund adjudicates a purchase without issuing anything.
func (s *Server) EvaluateRefund(c *gin.Context) {
	purchaseID, err := parseID(c.Param("purchase_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	eval, err := s.refundSvc.EvaluateEligibility(c.Request.Context(), purchaseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, eval)
}

// IssueRefund adjudicates and records the refund when eligible.
func (s *Server) IssueRefund(c *gin.Context) {
	purchaseID, err := parseID(c.Param("purchase_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refund, err := s.refundSvc.IssueRefund(c.Request.Context(), purchaseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("refund issued",
		zap.String("refund_id", refund.ID.String()),
		zap.String("purchase_id", purchaseID.String()),
		zap.Int64("amount_cents", refund.AmountCents),
		zap.String("reason_code", refund.ReasonCode),
	)
	c.JSON(http.StatusCreated, refund)
}

// SettleRefund pushes an issued refund to the payment processor.
func (s *Server) SettleRefund(c *gin.Context) {
	refundID, err := parseID(c.Param("refund_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refund, err := s.refundSvc.SettleWithProcessor(c.Request.Context(), refundID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}

// GetRefund loads a refund by ID.
func (s *Server) GetRefund(c *gin.Context) {
	refundID, err := parseID(c.Param("refund_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refund, err := s.refundSvc.GetRefund(c.Request.Context(), refundID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}
