package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"intake-platform/internal/auth"
	"intake-platform/internal/config"
	"intake-platform/internal/events"
	"intake-platform/internal/intake"
	"intake-platform/internal/reporting"
	"intake-platform/internal/review"
	"intake-platform/internal/store"

	"github.com/gin-gonic/gin"
)

func newFixture(t *testing.T) (Handlers, *store.Memory, *review.Service) {
	t.Helper()
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	st := store.NewMemory()
	reviews := review.NewService(review.NewMemoryKV(), "https://intake.example.com", time.Hour)
	return Handlers{
		Auth:    m,
		Calls:   st,
		Events:  events.NewService(events.NewMemoryRepo(), nil),
		Reports: reporting.NewService(st),
		Reviews: reviews,
	}, st, reviews
}

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/auth/login", h.Login)
	r.GET("/v1/calls/follow-ups", h.ListFollowUps)
	r.GET("/v1/calls/:call_id", h.GetCall)
	r.GET("/v1/reports/intake", h.IntakeReport)
	r.GET("/r/:token", h.ResolveReview)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLogin_IssuesTokens(t *testing.T) {
	h, _, _ := newFixture(t)
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"user_id":"u1","role":"owner"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("login: code=%d body=%s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["access_token"] == "" || body["refresh_token"] == "" {
		t.Fatalf("missing tokens: %v", body)
	}
}

func TestLogin_RejectsMissingFields(t *testing.T) {
	h, _, _ := newFixture(t)
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"user_id":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetCall_ReturnsRecordWithTrail(t *testing.T) {
	h, st, _ := newFixture(t)
	r := newRouter(h)
	ctx := context.Background()

	st.Create(ctx, "c1", "+15551230000", "CA1")
	h.Events.Record(ctx, "c1", "call_started", "")

	w := get(r, "/v1/calls/c1")
	if w.Code != 200 {
		t.Fatalf("get call: code=%d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Call   intake.CallRecord `json:"call"`
		Events []events.Event    `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Call.CallID != "c1" || len(body.Events) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetCall_UnknownIs404(t *testing.T) {
	h, _, _ := newFixture(t)
	r := newRouter(h)
	if w := get(r, "/v1/calls/nope"); w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListFollowUps(t *testing.T) {
	h, st, _ := newFixture(t)
	r := newRouter(h)
	ctx := context.Background()

	st.Create(ctx, "c1", "p1", "CA1")
	st.Create(ctx, "c2", "p2", "CA2")
	st.SetNotificationStatus(ctx, "c1", intake.NotificationFailed)

	w := get(r, "/v1/calls/follow-ups")
	if w.Code != 200 {
		t.Fatalf("follow-ups: code=%d", w.Code)
	}
	var body struct {
		Calls []intake.CallRecord `json:"calls"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Calls) != 1 || body.Calls[0].CallID != "c1" {
		t.Fatalf("unexpected follow-ups: %+v", body.Calls)
	}
}

func TestIntakeReport_ValidatesRange(t *testing.T) {
	h, _, _ := newFixture(t)
	r := newRouter(h)

	if w := get(r, "/v1/reports/intake"); w.Code != 400 {
		t.Fatalf("expected 400 for missing range, got %d", w.Code)
	}
	if w := get(r, "/v1/reports/intake?from=2026-01-01T00:00:00Z&to=bogus"); w.Code != 400 {
		t.Fatalf("expected 400 for bad to, got %d", w.Code)
	}
	if w := get(r, "/v1/reports/intake?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z"); w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestResolveReview_ServesSanitizedRecord(t *testing.T) {
	h, st, reviews := newFixture(t)
	r := newRouter(h)
	ctx := context.Background()

	st.Create(ctx, "c1", "+15551230000", "CA1")
	st.MergeFields(ctx, "c1", intake.CustomerFields{FirstName: "Sam", ProblemDescription: "flat tire"})

	link, err := reviews.Link(ctx, "c1")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	token := link[strings.LastIndex(link, "/")+1:]

	w := get(r, "/r/"+token)
	if w.Code != 200 {
		t.Fatalf("resolve: code=%d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "+15551230000") {
		t.Fatalf("caller phone leaked into review response: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "flat tire") {
		t.Fatalf("fields missing from review response: %s", w.Body.String())
	}
}

func TestResolveReview_UnknownToken404(t *testing.T) {
	h, _, _ := newFixture(t)
	r := newRouter(h)
	if w := get(r, "/r/nope"); w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
