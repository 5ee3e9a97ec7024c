package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social-prospector/internal/analytics"
	"social-prospector/internal/auth"
	"social-prospector/internal/classify"
	"social-prospector/internal/config"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/history"
	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
	"social-prospector/internal/sequence"

	"github.com/gin-gonic/gin"
)

var testNow = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

type fixedClassifier struct {
	result classify.Result
	err    error
}

func (f *fixedClassifier) Classify(ctx context.Context, req classify.Request) (classify.Result, error) {
	return f.result, f.err
}

type memActors struct{ *quota.MemoryActorRepo }

func (m memActors) PutActor(ctx context.Context, a quota.Actor) error {
	m.Put(a)
	return nil
}

type testServer struct {
	router     *gin.Engine
	classifier *fixedClassifier
	handlers   Handlers
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := func() time.Time { return testNow }
	catalog := goals.Default()

	usage := quota.NewMemoryUsageRepo()
	guard := quota.NewGuard(plans.Default(), usage, quota.Options{}).WithClock(clock)
	actors := memActors{quota.NewMemoryActorRepo(
		quota.Actor{ID: "actor-1", Tier: plans.TierFree},
		quota.Actor{ID: "actor-2", Tier: plans.TierAgency},
	)}
	people := contacts.NewMemoryRepo(
		contacts.Contact{ID: "42", ActorID: "actor-1", Name: "Ana"},
		contacts.Contact{ID: "99", ActorID: "actor-2", Name: "Zed"},
	)
	cls := &fixedClassifier{result: classify.Result{Category: classify.CategoryMeetingRequest, Confidence: 0.9, Strategy: classify.StrategyAdvance}}
	engine, err := sequence.NewEngine(sequence.Deps{
		Catalog:    catalog,
		Classifier: cls,
		History:    history.NewService(history.NewMemoryRepo()).WithClock(clock),
		Store:      sequence.NewMemoryStore(),
		Contacts:   people,
		Analytics:  analytics.NewService(analytics.NewMemoryRepo(), catalog).WithClock(clock),
		Usage:      guard,
	}, sequence.Options{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.WithClock(clock)

	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	h := Handlers{
		Auth:      mgr,
		Goals:     catalog,
		Quota:     guard,
		Actors:    actors,
		Contacts:  contacts.NewService(people, guard),
		Sequences: engine,
		Analytics: analytics.NewService(analytics.NewMemoryRepo(), catalog).WithClock(clock),
		Now:       clock,
	}

	r := gin.New()
	r.POST("/v1/auth/login", h.Login)
	v1 := r.Group("/v1")
	v1.Use(func(c *gin.Context) {
		id := auth.Identity{UserID: "u", ActorID: c.GetHeader("X-Actor"), Role: "member"}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	})
	v1.GET("/goals", h.ListGoals)
	v1.POST("/quota/authorize", h.Authorize)
	v1.POST("/contacts", quota.RequireQuota(guard, actors, plans.ActionContactImport), h.ImportContact)
	v1.POST("/sequences", h.StartSequence)
	v1.POST("/sequences/:contact_id/outbound", quota.RequireQuota(guard, actors, plans.ActionOutreachSend), h.RecordOutbound)
	v1.POST("/sequences/:contact_id/inbound", quota.RequireQuota(guard, actors, plans.ActionReplyAnalysis), h.RecordInbound)
	v1.POST("/sequences/:contact_id/advance", h.Advance)
	v1.POST("/sequences/:contact_id/complete", h.Complete)
	v1.GET("/sequences/:contact_id", h.GetSequence)
	v1.GET("/sequences/:contact_id/history", h.History)
	v1.POST("/sequences/:contact_id/draft", quota.RequireQuota(guard, actors, plans.ActionMessageDraft), h.Draft)
	v1.GET("/analytics/summary", h.AnalyticsSummary)

	return &testServer{router: r, classifier: cls, handlers: h}
}

func (s *testServer) do(t *testing.T, method, path, actor string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", actor)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestSequenceFlow(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "call"})
	if w.Code != http.StatusCreated || body["current_stage"] != float64(1) || body["status"] != "in_progress" {
		t.Fatalf("start: %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodPost, "/v1/sequences/42/outbound", "actor-1", gin.H{"content": "hi", "stage": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("outbound: %d %v", w.Code, body)
	}
	if st := body["state"].(map[string]any); st["status"] != "waiting_response" {
		t.Fatalf("expected waiting_response, got %v", st)
	}

	w, body = s.do(t, http.MethodPost, "/v1/sequences/42/inbound", "actor-1", gin.H{"text": "yes let's talk"})
	if w.Code != http.StatusCreated {
		t.Fatalf("inbound: %d %v", w.Code, body)
	}
	if body["suggested_stage"] != float64(2) {
		t.Fatalf("expected suggested stage 2, got %v", body)
	}
	if st := body["state"].(map[string]any); st["current_stage"] != float64(2) || st["status"] != "in_progress" {
		t.Fatalf("unexpected state: %v", st)
	}

	w, body = s.do(t, http.MethodGet, "/v1/sequences/42", "actor-1", nil)
	if w.Code != http.StatusOK || body["stage_count"] != float64(3) {
		t.Fatalf("get: %d %v", w.Code, body)
	}
	w, body = s.do(t, http.MethodPost, "/v1/sequences/42/draft", "actor-1", nil)
	if stage, _ := body["stage"].(map[string]any); w.Code != http.StatusOK || stage["number"] != float64(2) {
		t.Fatalf("draft: %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodGet, "/v1/sequences/42/history", "actor-1", nil)
	if w.Code != http.StatusOK || len(body["entries"].([]any)) != 2 {
		t.Fatalf("history: %d %v", w.Code, body)
	}

	w, _ = s.do(t, http.MethodPost, "/v1/sequences/42/complete", "actor-1", gin.H{"outcome": "achieved"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/v1/sequences/42/advance", "actor-1", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("advance after complete: expected 409, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	if w, _ := s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "nope"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown goal: expected 400, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "99", "goal_id": "call"}); w.Code != http.StatusForbidden {
		t.Fatalf("foreign contact: expected 403, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/sequences/42/advance", "actor-1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no sequence: expected 404, got %d", w.Code)
	}
	_, _ = s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "call"})
	w, body := s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "link"})
	if w.Code != http.StatusConflict || body["state"] == nil {
		t.Fatalf("active sequence: expected 409 with state, got %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/sequences/42/outbound", "actor-1", gin.H{"content": "hi", "stage": 9}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid stage: expected 400, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/v1/analytics/summary?from=2024-13", "actor-1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad month: expected 400, got %d", w.Code)
	}
}

func TestOutboundQuotaDenied(t *testing.T) {
	s := newTestServer(t)
	_, _ = s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "call"})

	for i := 0; i < 3; i++ {
		if w, body := s.do(t, http.MethodPost, "/v1/sequences/42/outbound", "actor-1", gin.H{"content": "hi"}); w.Code != http.StatusCreated {
			t.Fatalf("send %d: %d %v", i, w.Code, body)
		}
	}
	w, body := s.do(t, http.MethodPost, "/v1/sequences/42/outbound", "actor-1", gin.H{"content": "hi"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %v", w.Code, body)
	}
	if body["window"] != "hour" || body["ceiling"] != float64(3) || body["current"] != float64(3) {
		t.Fatalf("unexpected denial: %v", body)
	}
	if w.Header().Get("Retry-After") != "1800" {
		t.Fatalf("expected Retry-After 1800, got %q", w.Header().Get("Retry-After"))
	}

	w, body = s.do(t, http.MethodPost, "/v1/quota/authorize", "actor-1", gin.H{"action": "outreach_send"})
	if w.Code != http.StatusOK || body["authorized"] != false {
		t.Fatalf("authorize: %d %v", w.Code, body)
	}
}

func TestInboundClassifierTimeoutStillSaves(t *testing.T) {
	s := newTestServer(t)
	_, _ = s.do(t, http.MethodPost, "/v1/sequences", "actor-1", gin.H{"contact_id": "42", "goal_id": "call"})
	s.classifier.err = classify.ErrClassifierTimeout

	w, body := s.do(t, http.MethodPost, "/v1/sequences/42/inbound", "actor-1", gin.H{"text": "maybe later"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", w.Code, body)
	}
	if body["classification_error"] != "classifier_timeout" || body["classification"] != nil {
		t.Fatalf("unexpected body: %v", body)
	}
	if st := body["state"].(map[string]any); st["current_stage"] != float64(1) {
		t.Fatalf("stage must be unchanged: %v", st)
	}
}

func TestImportContact(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodPost, "/v1/contacts", "actor-1", gin.H{"name": "Bea", "company": "Beta"})
	if w.Code != http.StatusCreated || body["actor_id"] != "actor-1" || body["id"] == "" {
		t.Fatalf("import: %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/contacts", "actor-1", gin.H{"name": " "}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"user_id": "u1", "actor_id": "actor-1", "role": "owner"})
	if w.Code != http.StatusOK || body["access_token"] == "" {
		t.Fatalf("login: %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"user_id": "u1", "actor_id": "ghost", "role": "owner"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown actor: expected 404, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"user_id": "u1", "actor_id": "actor-1", "role": "root"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: expected 400, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{sequence.ErrInvalidStage, http.StatusBadRequest},
		{sequence.ErrContactNotOwned, http.StatusForbidden},
		{sequence.ErrNoActiveSequence, http.StatusNotFound},
		{sequence.ErrAlreadyTerminal, http.StatusConflict},
		{&quota.DeniedError{}, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
