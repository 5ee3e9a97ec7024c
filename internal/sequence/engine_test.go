package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"social-prospector/internal/analytics"
	"social-prospector/internal/classify"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/history"
	"social-prospector/internal/plans"
)

type stubClassifier struct {
	mu     sync.Mutex
	result classify.Result
	err    error
	block  bool
	calls  int
	last   classify.Request
}

func (s *stubClassifier) Classify(ctx context.Context, req classify.Request) (classify.Result, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	block, res, err := s.block, s.result, s.err
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return classify.Result{}, ctx.Err()
	}
	return res, err
}

func (s *stubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type usageLog struct {
	mu      sync.Mutex
	actions []plans.ActionKind
}

func (u *usageLog) Record(ctx context.Context, actorID string, action plans.ActionKind) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.actions = append(u.actions, action)
	return nil
}

func (u *usageLog) count(a plans.ActionKind) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, v := range u.actions {
		if v == a {
			n++
		}
	}
	return n
}

type fixture struct {
	engine     *Engine
	classifier *stubClassifier
	store      *MemoryStore
	history    *history.MemoryRepo
	analytics  *analytics.MemoryRepo
	usage      *usageLog
	month      analytics.Month
}

var fixedNow = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, extraGoals ...goals.Goal) *fixture {
	t.Helper()
	catalog := goals.Default()
	if len(extraGoals) > 0 {
		var err error
		catalog, err = goals.NewCatalog(append(goals.Default().List(), extraGoals...)...)
		if err != nil {
			t.Fatalf("catalog: %v", err)
		}
	}
	clock := func() time.Time { return fixedNow }

	f := &fixture{
		classifier: &stubClassifier{result: classify.Result{Category: classify.CategoryNeutral, Confidence: 0.8, Strategy: classify.StrategyContinue}},
		store:      NewMemoryStore(),
		history:    history.NewMemoryRepo(),
		analytics:  analytics.NewMemoryRepo(),
		usage:      &usageLog{},
		month:      analytics.MonthOf(fixedNow),
	}
	people := contacts.NewMemoryRepo(
		contacts.Contact{ID: "42", ActorID: "actor-1", Name: "Ana", Company: "Acme"},
		contacts.Contact{ID: "43", ActorID: "actor-1", Name: "Ben"},
		contacts.Contact{ID: "99", ActorID: "actor-2", Name: "Zed"},
	)
	e, err := NewEngine(Deps{
		Catalog:    catalog,
		Classifier: f.classifier,
		History:    history.NewService(f.history).WithClock(clock),
		Store:      f.store,
		Contacts:   people,
		Analytics:  analytics.NewService(f.analytics, catalog).WithClock(clock),
		Usage:      f.usage,
	}, Options{ClassifierTimeout: 50 * time.Millisecond, ContextTurns: 4})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	f.engine = e.WithClock(clock)
	return f
}

func TestScenario_BookACall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "linkedin_dm")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.CurrentStage != 1 || st.Status != StatusInProgress {
		t.Fatalf("unexpected start state: %+v", st)
	}

	_, st, err = f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 1)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if st.Status != StatusWaitingResponse || st.LastOutboundAt == nil {
		t.Fatalf("unexpected outbound state: %+v", st)
	}

	f.classifier.result = classify.Result{Category: classify.CategoryMeetingRequest, Confidence: 0.9, Strategy: classify.StrategyAdvance}
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "yes let's talk"})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if res.Classification == nil || res.Classification.Category != classify.CategoryMeetingRequest {
		t.Fatalf("unexpected classification: %+v", res.Classification)
	}
	if res.SuggestedStage != 2 || res.StageInfo == nil || res.StageInfo.Number != 2 {
		t.Fatalf("expected suggested stage 2, got %d %+v", res.SuggestedStage, res.StageInfo)
	}
	if res.State.CurrentStage != 2 || res.State.Status != StatusInProgress || res.State.LastInboundText != "yes let's talk" {
		t.Fatalf("unexpected state: %+v", res.State)
	}
	if res.CategoryInfo == nil || res.CategoryInfo.Priority != 1 {
		t.Fatalf("expected triage info, got %+v", res.CategoryInfo)
	}

	// The classifier saw the outbound turn and the contact.
	if len(f.classifier.last.Context) != 1 || f.classifier.last.Context[0].Content != "hi" {
		t.Fatalf("unexpected classifier context: %+v", f.classifier.last.Context)
	}
	if f.classifier.last.Contact.Company != "Acme" {
		t.Fatalf("expected contact meta passed to classifier")
	}

	if got := f.analytics.Value("actor-1", goals.GoalCall, f.month, analytics.MetricSent, 1); got != 1 {
		t.Fatalf("expected 1 sent at stage 1, got %d", got)
	}
	if got := f.analytics.Value("actor-1", goals.GoalCall, f.month, analytics.MetricResponse, 1); got != 1 {
		t.Fatalf("expected 1 response at stage 1, got %d", got)
	}
	if f.usage.count(plans.ActionOutreachSend) != 1 || f.usage.count(plans.ActionReplyAnalysis) != 1 {
		t.Fatalf("unexpected usage: %+v", f.usage.actions)
	}

	entries, _ := f.engine.History(ctx, "actor-1", "42")
	if len(entries) != 2 || entries[0].Direction != history.DirectionOutbound || entries[1].Classification == nil {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestStart_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, "actor-1", "42", "nope", ""); !errors.Is(err, ErrUnknownGoal) {
		t.Fatalf("expected ErrUnknownGoal, got %v", err)
	}
	if _, err := f.engine.Start(ctx, "actor-1", "99", goals.GoalCall, ""); !errors.Is(err, ErrContactNotOwned) {
		t.Fatalf("expected ErrContactNotOwned, got %v", err)
	}
	if _, err := f.engine.Start(ctx, "actor-1", "missing", goals.GoalCall, ""); !errors.Is(err, ErrContactNotOwned) {
		t.Fatalf("expected ErrContactNotOwned for unknown contact, got %v", err)
	}
	if _, err := f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.engine.Start(ctx, "actor-1", "42", goals.GoalLink, ""); !errors.Is(err, ErrSequenceActive) {
		t.Fatalf("expected ErrSequenceActive, got %v", err)
	}
}

func TestNoActiveSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 1); !errors.Is(err, ErrNoActiveSequence) {
		t.Fatalf("expected ErrNoActiveSequence, got %v", err)
	}
	if _, err := f.engine.Advance(ctx, "actor-1", "42"); !errors.Is(err, ErrNoActiveSequence) {
		t.Fatalf("expected ErrNoActiveSequence, got %v", err)
	}
	if _, err := f.engine.Complete(ctx, "actor-1", "42", OutcomeAchieved); !errors.Is(err, ErrNoActiveSequence) {
		t.Fatalf("expected ErrNoActiveSequence, got %v", err)
	}
	if f.usage.count(plans.ActionOutreachSend) != 0 {
		t.Fatalf("failed outbound must not record usage")
	}
}

func TestComplete_IsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	st, err := f.engine.Complete(ctx, "actor-1", "42", OutcomeAchieved)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if st.Status != StatusGoalAchieved || st.CompletedAt == nil {
		t.Fatalf("unexpected state: %+v", st)
	}
	if got := f.analytics.Value("actor-1", goals.GoalCall, f.month, analytics.MetricAchieved, 0); got != 1 {
		t.Fatalf("expected achieved recorded, got %d", got)
	}

	if _, err := f.engine.Advance(ctx, "actor-1", "42"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("advance: expected ErrAlreadyTerminal, got %v", err)
	}
	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 1); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("outbound: expected ErrAlreadyTerminal, got %v", err)
	}
	if _, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "hello?"}); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("inbound: expected ErrAlreadyTerminal, got %v", err)
	}
	if _, err := f.engine.Complete(ctx, "actor-1", "42", OutcomeAbandoned); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("complete: expected ErrAlreadyTerminal, got %v", err)
	}

	// A fresh sequence can be started; the terminal row is kept.
	st2, err := f.engine.Start(ctx, "actor-1", "42", goals.GoalNetwork, "")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if st2.ID == st.ID || f.store.Rows() != 2 {
		t.Fatalf("expected a new state row, rows=%d", f.store.Rows())
	}
}

func TestComplete_RejectsUnknownOutcome(t *testing.T) {
	f := newFixture(t)
	_, _ = f.engine.Start(context.Background(), "actor-1", "42", goals.GoalCall, "")
	if _, err := f.engine.Complete(context.Background(), "actor-1", "42", "maybe"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAdvance_IdempotentAtCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalQualify, "")

	var st State
	for i := 0; i < 5; i++ {
		var err error
		st, err = f.engine.Advance(ctx, "actor-1", "42")
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if st.CurrentStage > 3 {
			t.Fatalf("stage exceeded stage count: %d", st.CurrentStage)
		}
	}
	if st.CurrentStage != 3 {
		t.Fatalf("expected stage 3, got %d", st.CurrentStage)
	}
}

func TestRecordOutbound_StageRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 4); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "  ", 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	_, st, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "jumping ahead", 3)
	if err != nil || st.CurrentStage != 3 {
		t.Fatalf("expected stage 3, got %d %v", st.CurrentStage, err)
	}
	entry, st, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "going back", 1)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if st.CurrentStage != 3 || entry.Stage != 1 {
		t.Fatalf("stage must not decrease: state %d entry %d", st.CurrentStage, entry.Stage)
	}
	entry, _, _ = f.engine.RecordOutbound(ctx, "actor-1", "42", "current", 0)
	if entry.Stage != 3 {
		t.Fatalf("stage 0 should use current stage, got %d", entry.Stage)
	}
}

func TestRecordInbound_ClassifierTimeoutKeepsReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")
	_, _, _ = f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 1)

	f.classifier.block = true
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "sounds good, when?"})
	if err != nil {
		t.Fatalf("timeout must not fail the call: %v", err)
	}
	if !errors.Is(res.ClassificationErr, classify.ErrClassifierTimeout) {
		t.Fatalf("expected ErrClassifierTimeout, got %v", res.ClassificationErr)
	}
	if res.Classification != nil || res.SuggestedStage != 0 {
		t.Fatalf("expected no classification, got %+v", res)
	}
	if res.Entry.Content != "sounds good, when?" || res.Entry.Classification != nil {
		t.Fatalf("reply must be saved intact: %+v", res.Entry)
	}
	st, _ := f.engine.Get(ctx, "actor-1", "42")
	if st.CurrentStage != 1 {
		t.Fatalf("stage must be unchanged, got %d", st.CurrentStage)
	}
	if f.usage.count(plans.ActionReplyAnalysis) != 0 {
		t.Fatalf("failed classification must not count as analysis")
	}
}

func TestRecordInbound_UnavailableClassifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	f.classifier.err = classify.ErrClassifierUnavailable
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "ok"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !errors.Is(res.ClassificationErr, classify.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", res.ClassificationErr)
	}
	if len(f.history.Entries()) != 1 {
		t.Fatalf("expected reply saved")
	}
}

func TestRecordInbound_GenericClassifierErrorIsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	f.classifier.err = context.Canceled
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "ok"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !errors.Is(res.ClassificationErr, classify.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", res.ClassificationErr)
	}
	if errors.Is(res.ClassificationErr, classify.ErrClassifierTimeout) {
		t.Fatalf("cancellation is not a timeout")
	}
}

func TestRecordInbound_UntrustedConfidenceFallsBack(t *testing.T) {
	for _, conf := range []float64{1.7, -0.2, 0.05} {
		f := newFixture(t)
		ctx := context.Background()
		_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

		f.classifier.result = classify.Result{Category: classify.CategoryMeetingRequest, Confidence: conf, Strategy: classify.StrategyAdvance}
		res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "sure"})
		if err != nil {
			t.Fatalf("conf %v: inbound: %v", conf, err)
		}
		c := res.Classification
		if c == nil || !c.Fallback || c.Category != classify.CategoryNeutral || c.Confidence < 0 || c.Confidence > 1 {
			t.Fatalf("conf %v: expected neutral fallback, got %+v", conf, c)
		}
		if res.State.CurrentStage != 1 {
			t.Fatalf("conf %v: untrusted result must not advance, stage %d", conf, res.State.CurrentStage)
		}
		if stored := f.history.Entries()[0].Classification; stored == nil || stored.Confidence != c.Confidence {
			t.Fatalf("conf %v: stored classification %+v", conf, stored)
		}
	}
}

func TestRecordInbound_UnknownStrategyUsesCategoryDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	f.classifier.result = classify.Result{Category: classify.CategoryMeetingRequest, Confidence: 0.9, Strategy: "wait_and_see"}
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "let's talk"})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	want := classify.Info(classify.CategoryMeetingRequest).DefaultStrategy
	if res.Classification.Fallback || res.Classification.Category != classify.CategoryMeetingRequest || res.Classification.Strategy != want {
		t.Fatalf("expected category kept with default strategy %s, got %+v", want, res.Classification)
	}
}

func TestRecordInbound_ResponseCreditedToAnsweredStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "pitch", 2); err != nil {
		t.Fatalf("outbound 2: %v", err)
	}
	_, st, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "resend intro", 1)
	if err != nil {
		t.Fatalf("outbound 1: %v", err)
	}
	if st.CurrentStage != 2 || st.LastOutboundStage != 1 {
		t.Fatalf("unexpected state after lower-stage send: %+v", st)
	}

	if _, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "hi again"}); err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if got := f.analytics.Value("actor-1", goals.GoalCall, f.month, analytics.MetricResponse, 1); got != 1 {
		t.Fatalf("expected response at stage 1, got %d", got)
	}
	if got := f.analytics.Value("actor-1", goals.GoalCall, f.month, analytics.MetricResponse, 2); got != 0 {
		t.Fatalf("expected no response at stage 2, got %d", got)
	}
}

func TestRecordInbound_AbandonDoesNotTerminate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	f.classifier.result = classify.Result{Category: classify.CategoryNotInterested, Confidence: 0.95, Strategy: classify.StrategyAbandon}
	res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "not interested"})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if res.State.Status.Terminal() || res.State.CurrentStage != 1 || res.SuggestedStage != 1 {
		t.Fatalf("abandon must not auto-terminate: %+v", res.State)
	}
	if _, err := f.engine.Complete(ctx, "actor-1", "42", OutcomeAbandoned); err != nil {
		t.Fatalf("explicit complete: %v", err)
	}
}

func TestRecordInbound_UnsequencedClassifiesOnly(t *testing.T) {
	f := newFixture(t)
	f.classifier.result = classify.Result{Category: classify.CategoryQuestion, Confidence: 0.7, Strategy: classify.StrategyAnswerThenAdvance}

	res, err := f.engine.RecordInbound(context.Background(), "actor-1", "43", InboundMessage{Text: "what do you do?"})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if res.Sequenced || res.State != nil || res.SuggestedStage != 0 {
		t.Fatalf("expected classification only, got %+v", res)
	}
	if res.Classification == nil || res.Classification.Category != classify.CategoryQuestion {
		t.Fatalf("expected classification, got %+v", res.Classification)
	}
	if f.store.Rows() != 0 {
		t.Fatalf("no state must be created")
	}
}

func TestRecordInbound_DuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")
	f.classifier.result = classify.Result{Category: classify.CategoryHotLead, Confidence: 0.9, Strategy: classify.StrategyAdvance}

	var wg sync.WaitGroup
	results := make([]InboundResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.engine.RecordInbound(ctx, "actor-1", "42", InboundMessage{Text: "love it", ExternalID: "wamid-1"})
			if err != nil {
				t.Errorf("inbound: %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	if f.classifier.Calls() != 1 {
		t.Fatalf("expected one classification, got %d", f.classifier.Calls())
	}
	if len(f.history.Entries()) != 1 {
		t.Fatalf("expected one history entry, got %d", len(f.history.Entries()))
	}
	if results[0].Duplicate == results[1].Duplicate {
		t.Fatalf("expected exactly one duplicate")
	}
	st, _ := f.engine.Get(ctx, "actor-1", "42")
	if st.CurrentStage != 2 {
		t.Fatalf("expected a single advance, got stage %d", st.CurrentStage)
	}
}

func TestConcurrentAdvance_NoLostUpdates(t *testing.T) {
	long := goals.Goal{ID: "long", Name: "Long", Stages: make([]goals.Stage, 20)}
	for i := range long.Stages {
		long.Stages[i].Label = "step"
	}
	f := newFixture(t, long)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", "long", "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Advance(ctx, "actor-1", "42"); err != nil {
				t.Errorf("advance: %v", err)
			}
		}()
	}
	wg.Wait()

	st, _ := f.engine.Get(ctx, "actor-1", "42")
	if st.CurrentStage != 11 {
		t.Fatalf("expected stage 11, got %d", st.CurrentStage)
	}
}

func TestAnalyticsFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.analytics.IncrementErr = errors.New("disk full")
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	if _, _, err := f.engine.RecordOutbound(ctx, "actor-1", "42", "hi", 1); err != nil {
		t.Fatalf("analytics failure must not fail outbound: %v", err)
	}
	if _, err := f.engine.Complete(ctx, "actor-1", "42", OutcomeAchieved); err != nil {
		t.Fatalf("analytics failure must not fail complete: %v", err)
	}
}

func TestStateWriteFailurePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")
	f.store.UpsertErr = errors.New("db down")

	if _, err := f.engine.Advance(ctx, "actor-1", "42"); err == nil {
		t.Fatalf("expected write failure to propagate")
	}
}

func TestOwnershipOnReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.engine.Start(ctx, "actor-1", "42", goals.GoalCall, "")

	if _, err := f.engine.Get(ctx, "actor-2", "42"); !errors.Is(err, ErrContactNotOwned) {
		t.Fatalf("expected ErrContactNotOwned, got %v", err)
	}
	if _, err := f.engine.History(ctx, "actor-2", "42"); !errors.Is(err, ErrContactNotOwned) {
		t.Fatalf("expected ErrContactNotOwned, got %v", err)
	}
}

func TestSuggestStage(t *testing.T) {
	g, _ := goals.Default().Get(goals.GoalCall)
	cases := []struct {
		current  int
		strategy classify.Strategy
		want     int
	}{
		{1, classify.StrategyAdvance, 2},
		{3, classify.StrategyAdvance, 3},
		{2, classify.StrategyAnswerThenAdvance, 2},
		{2, classify.StrategyHandleObjection, 2},
		{2, classify.StrategyReassure, 2},
		{2, classify.StrategyContinue, 2},
		{2, classify.StrategyAbandon, 2},
	}
	for _, tc := range cases {
		if got := SuggestStage(g, tc.current, tc.strategy); got != tc.want {
			t.Fatalf("%s from %d: expected %d, got %d", tc.strategy, tc.current, tc.want, got)
		}
	}
}
