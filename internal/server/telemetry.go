package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
)

type ingestEventBody struct {
	Kind           string         `json:"kind" binding:"required"`
	TimestampMs    int64          `json:"timestamp_ms"`
	DurationMs     *int64         `json:"duration_ms"`
	ErrorCode      *string        `json:"error_code"`
	IdempotencyKey *string        `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
}

// IngestPlaybackEvent records one client-reported playback event.
func (s *Server) IngestPlaybackEvent(c *gin.Context) {
	var body ingestEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrBadRequest)
		return
	}

	event, err := s.telemetrySvc.IngestEvent(c.Request.Context(), telemetrydomain.IngestEventRequest{
		SessionID:      c.Param("session_id"),
		Kind:           body.Kind,
		TimestampMs:    body.TimestampMs,
		DurationMs:     body.DurationMs,
		ErrorCode:      body.ErrorCode,
		IdempotencyKey: body.IdempotencyKey,
		Metadata:       body.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, event)
}

// EndPlaybackSession closes a session and returns its telemetry summary.
func (s *Server) EndPlaybackSession(c *gin.Context) {
	summary, err := s.telemetrySvc.EndSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
