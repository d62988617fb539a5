package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"intake-platform/internal/auth"
	"intake-platform/internal/events"
	"intake-platform/internal/intake"
	"intake-platform/internal/reporting"
	"intake-platform/internal/review"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

// CallDirectory is the read side of the call store the API needs. Both the
// Postgres and the in-memory store satisfy it.
type CallDirectory interface {
	Get(ctx context.Context, callID string) (intake.CallRecord, error)
	ListNotificationFailures(ctx context.Context) ([]intake.CallRecord, error)
}

type Handlers struct {
	Auth    *auth.Manager
	Calls   CallDirectory
	Events  *events.Service
	Reports *reporting.Service
	Reviews *review.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

// GetCall returns one call record with its lifecycle trail.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	rec, err := h.Calls.Get(c.Request.Context(), callID)
	if errors.Is(err, intake.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}

	resp := gin.H{"call": rec}
	if h.Events != nil {
		if trail, err := h.Events.ListByCall(c.Request.Context(), callID); err == nil {
			resp["events"] = trail
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListFollowUps returns calls whose confirmation SMS failed, for manual follow-up.
func (h Handlers) ListFollowUps(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store not configured"})
		return
	}
	rows, err := h.Calls.ListNotificationFailures(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "follow-up lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}

// --- Reports ---

// IntakeReport aggregates call dispositions over ?from=...&to=... (RFC 3339).
func (h Handlers) IntakeReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
		return
	}

	sum, err := h.Reports.IntakeSummary(c.Request.Context(), reporting.IntakeSummaryRequest{
		Range: reporting.TimeRange{From: from, To: to},
	})
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Review links (public) ---

// reviewResponse is the customer-facing view of a call record. No caller
// phone, no internal status detail.
type reviewResponse struct {
	Fields    intake.CustomerFields `json:"fields"`
	Urgency   int                   `json:"urgency,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// ResolveReview serves GET /r/:token for the link sent by SMS.
func (h Handlers) ResolveReview(c *gin.Context) {
	if h.Reviews == nil || h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reviews not configured"})
		return
	}
	callID, err := h.Reviews.Resolve(c.Request.Context(), c.Param("token"))
	if errors.Is(err, review.ErrTokenNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "link expired or unknown"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "review lookup failed"})
		return
	}

	rec, err := h.Calls.Get(c.Request.Context(), callID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, reviewResponse{
		Fields:    rec.CustomerFields,
		Urgency:   rec.Urgency,
		CreatedAt: rec.CreatedAt,
	})
}
