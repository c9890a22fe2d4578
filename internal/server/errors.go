package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	entitlementdomain "github.com/fieldview/arbiter/internal/entitlement/domain"
	processordomain "github.com/fieldview/arbiter/internal/processor/domain"
	purchasedomain "github.com/fieldview/arbiter/internal/purchase/domain"
	refunddomain "github.com/fieldview/arbiter/internal/refund/domain"
	scheduledomain "github.com/fieldview/arbiter/internal/schedule/domain"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
)

var ErrBadRequest = errors.New("bad_request")

// statusFor maps domain errors onto HTTP statuses. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, telemetrydomain.ErrInvalidSession),
		errors.Is(err, telemetrydomain.ErrInvalidEventKind),
		errors.Is(err, telemetrydomain.ErrInvalidTimestamp),
		errors.Is(err, telemetrydomain.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, telemetrydomain.ErrOutOfOrderEvent),
		errors.Is(err, telemetrydomain.ErrInvalidTelemetry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, telemetrydomain.ErrSessionNotFound),
		errors.Is(err, refunddomain.ErrPurchaseNotFound),
		errors.Is(err, refunddomain.ErrEntitlementNotFound),
		errors.Is(err, refunddomain.ErrRefundNotFound),
		errors.Is(err, purchasedomain.ErrNotFound),
		errors.Is(err, entitlementdomain.ErrEntitlementNotFound),
		errors.Is(err, entitlementdomain.ErrSessionNotFound),
		errors.Is(err, scheduledomain.ErrFixtureNotFound):
		return http.StatusNotFound
	case errors.Is(err, telemetrydomain.ErrSessionAlreadyEnded),
		errors.Is(err, refunddomain.ErrAlreadyRefunded):
		return http.StatusConflict
	case errors.Is(err, refunddomain.ErrNotEligible),
		errors.Is(err, processordomain.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, processordomain.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes a JSON error envelope for a domain error. Internal
// errors are not echoed to the client.
func AbortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal_error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
