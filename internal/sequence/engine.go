package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"social-prospector/internal/analytics"
	"social-prospector/internal/classify"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/history"
	"social-prospector/internal/metrics"
	"social-prospector/internal/plans"
	"social-prospector/pkg/logger"

	"github.com/google/uuid"
)

// Store persists sequence state. GetState returns the most recently started state for the contact.
type Store interface {
	GetState(ctx context.Context, contactID string) (State, bool, error)
	UpsertState(ctx context.Context, s State) error
}

// ContactLookup resolves contacts for ownership checks and classifier context.
type ContactLookup interface {
	GetContact(ctx context.Context, contactID string) (contacts.Contact, error)
}

// AnalyticsRecorder receives funnel events after state changes are committed.
type AnalyticsRecorder interface {
	RecordSent(ctx context.Context, actorID, goalID string, stage int) error
	RecordResponse(ctx context.Context, actorID, goalID string, stage int) error
	RecordOutcome(ctx context.Context, actorID, goalID string, outcome analytics.Outcome) error
}

// UsageRecorder records performed quota-gated actions.
type UsageRecorder interface {
	Record(ctx context.Context, actorID string, action plans.ActionKind) error
}

type Deps struct {
	Catalog    *goals.Catalog
	Classifier classify.Classifier
	History    *history.Service
	Store      Store
	Contacts   ContactLookup
	Locker     Locker
	Analytics  AnalyticsRecorder
	Usage      UsageRecorder
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

type Options struct {
	// ClassifierTimeout bounds each classification call.
	ClassifierTimeout time.Duration
	// ContextTurns is how many prior history entries are passed to the classifier.
	ContextTurns int
	// MinConfidence is the floor below which a classification is replaced by the neutral fallback.
	MinConfidence float64
}

// Engine is the conversation state machine. All mutations of one contact's state
// run under that contact's lock.
type Engine struct {
	catalog    *goals.Catalog
	classifier classify.Classifier
	history    *history.Service
	store      Store
	contacts   ContactLookup
	locker     Locker
	analytics  AnalyticsRecorder
	usage      UsageRecorder
	log        *slog.Logger
	metrics    *metrics.Metrics

	classifierTimeout time.Duration
	contextTurns      int
	minConfidence     float64
	clock             func() time.Time
}

func NewEngine(d Deps, opts Options) (*Engine, error) {
	if d.Catalog == nil || d.History == nil || d.Store == nil || d.Contacts == nil {
		return nil, errors.New("sequence: catalog, history, store and contacts are required")
	}
	e := &Engine{
		catalog:           d.Catalog,
		classifier:        d.Classifier,
		history:           d.History,
		store:             d.Store,
		contacts:          d.Contacts,
		locker:            d.Locker,
		analytics:         d.Analytics,
		usage:             d.Usage,
		log:               d.Logger,
		metrics:           d.Metrics,
		classifierTimeout: opts.ClassifierTimeout,
		contextTurns:      opts.ContextTurns,
		minConfidence:     opts.MinConfidence,
		clock:             time.Now,
	}
	if e.locker == nil {
		e.locker = NewKeyedMutex()
	}
	e.log = logger.Component(e.log, "sequence")
	if e.classifierTimeout <= 0 {
		e.classifierTimeout = 8 * time.Second
	}
	if e.contextTurns < 0 {
		e.contextTurns = 0
	}
	if e.minConfidence <= 0 {
		e.minConfidence = classify.DefaultMinConfidence
	}
	return e, nil
}

// WithClock overrides the time source.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

func (e *Engine) now() time.Time { return e.clock().UTC() }

// owned loads the contact and verifies it belongs to actorID. Unknown contacts are
// reported as not owned.
func (e *Engine) owned(ctx context.Context, actorID, contactID string) (contacts.Contact, error) {
	if actorID == "" || contactID == "" {
		return contacts.Contact{}, fmt.Errorf("%w: actor and contact required", ErrInvalidArgument)
	}
	c, err := e.contacts.GetContact(ctx, contactID)
	if errors.Is(err, contacts.ErrNotFound) {
		return contacts.Contact{}, ErrContactNotOwned
	}
	if err != nil {
		return contacts.Contact{}, err
	}
	if c.ActorID != actorID {
		return contacts.Contact{}, ErrContactNotOwned
	}
	return c, nil
}

// active loads the current non-terminal state.
func (e *Engine) active(ctx context.Context, contactID string) (State, goals.Goal, error) {
	st, ok, err := e.store.GetState(ctx, contactID)
	if err != nil {
		return State{}, goals.Goal{}, err
	}
	if !ok {
		return State{}, goals.Goal{}, ErrNoActiveSequence
	}
	if st.Status.Terminal() {
		return st, goals.Goal{}, ErrAlreadyTerminal
	}
	g, err := e.catalog.Get(st.GoalID)
	if err != nil {
		return State{}, goals.Goal{}, err
	}
	return st, g, nil
}

func (e *Engine) lock(ctx context.Context, contactID string) (func(), error) {
	unlock, err := e.locker.Lock(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("sequence: lock contact %s: %w", contactID, err)
	}
	return unlock, nil
}

// Start begins a sequence at stage 1. A contact may have only one non-terminal sequence;
// starting again after a terminal outcome creates a new state.
func (e *Engine) Start(ctx context.Context, actorID, contactID, goalID, approachMethod string) (State, error) {
	g, err := e.catalog.Get(goalID)
	if err != nil {
		return State{}, err
	}
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return State{}, err
	}

	unlock, err := e.lock(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	existing, ok, err := e.store.GetState(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	if ok && !existing.Status.Terminal() {
		return existing, ErrSequenceActive
	}

	now := e.now()
	st := State{
		ID:             uuid.NewString(),
		ContactID:      contactID,
		ActorID:        actorID,
		GoalID:         g.ID,
		ApproachMethod: strings.TrimSpace(approachMethod),
		CurrentStage:   1,
		Status:         StatusInProgress,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.UpsertState(ctx, st); err != nil {
		return State{}, err
	}
	e.metrics.Transition("start", string(st.Status))
	return st, nil
}

// RecordOutbound appends an outbound turn and marks the sequence waiting for a response.
// stage 0 means the current stage. The current stage becomes max(current, stage).
func (e *Engine) RecordOutbound(ctx context.Context, actorID, contactID, content string, stage int) (history.Entry, State, error) {
	if strings.TrimSpace(content) == "" {
		return history.Entry{}, State{}, fmt.Errorf("%w: content required", ErrInvalidArgument)
	}
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return history.Entry{}, State{}, err
	}

	unlock, err := e.lock(ctx, contactID)
	if err != nil {
		return history.Entry{}, State{}, err
	}
	defer unlock()

	st, g, err := e.active(ctx, contactID)
	if err != nil {
		return history.Entry{}, State{}, err
	}
	if stage == 0 {
		stage = st.CurrentStage
	}
	if _, ok := g.Stage(stage); !ok {
		return history.Entry{}, State{}, fmt.Errorf("%w: goal %s has %d stages, got %d", ErrInvalidStage, g.ID, g.StageCount(), stage)
	}

	// The usage event is written first so a failure here leaves nothing else behind.
	if e.usage != nil {
		if err := e.usage.Record(ctx, actorID, plans.ActionOutreachSend); err != nil {
			return history.Entry{}, State{}, fmt.Errorf("sequence: record usage: %w", err)
		}
	}

	now := e.now()
	entry, err := e.history.Append(ctx, history.Entry{
		ContactID: contactID,
		ActorID:   actorID,
		Direction: history.DirectionOutbound,
		GoalID:    g.ID,
		Stage:     stage,
		Content:   content,
		CreatedAt: now,
	})
	if err != nil {
		return history.Entry{}, State{}, err
	}

	st.CurrentStage = max(st.CurrentStage, stage)
	st.Status = StatusWaitingResponse
	st.LastOutboundAt = &now
	st.LastOutboundStage = stage
	st.UpdatedAt = now
	if err := e.store.UpsertState(ctx, st); err != nil {
		return entry, State{}, err
	}
	e.metrics.Transition("outbound", string(st.Status))

	if e.analytics != nil {
		e.record("sent", func() error { return e.analytics.RecordSent(ctx, actorID, g.ID, stage) })
	}
	return entry, st, nil
}

// RecordInbound appends an inbound turn, classifies it and applies the suggested stage.
//
// Without an active sequence the reply is still saved and classified but no state changes.
// If classification fails the reply is saved without a classification, the stage is left
// as is, and the failure is reported in InboundResult.ClassificationErr rather than as an error.
func (e *Engine) RecordInbound(ctx context.Context, actorID, contactID string, msg InboundMessage) (InboundResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return InboundResult{}, fmt.Errorf("%w: text required", ErrInvalidArgument)
	}
	contact, err := e.owned(ctx, actorID, contactID)
	if err != nil {
		return InboundResult{}, err
	}

	unlock, err := e.lock(ctx, contactID)
	if err != nil {
		return InboundResult{}, err
	}
	defer unlock()

	st, sequenced, err := e.store.GetState(ctx, contactID)
	if err != nil {
		return InboundResult{}, err
	}
	if sequenced && st.Status.Terminal() {
		return InboundResult{}, ErrAlreadyTerminal
	}
	var g goals.Goal
	if sequenced {
		if g, err = e.catalog.Get(st.GoalID); err != nil {
			return InboundResult{}, err
		}
	}

	if dup, found, err := e.history.FindByExternalID(ctx, contactID, msg.ExternalID); err != nil {
		return InboundResult{}, err
	} else if found {
		res := InboundResult{Entry: dup, Classification: dup.Classification, Sequenced: sequenced, Duplicate: true}
		if sequenced {
			res.State = &st
		}
		return res, nil
	}

	cls, clsErr := e.classify(ctx, contact, msg)

	now := e.now()
	entry := history.Entry{
		ContactID:      contactID,
		ActorID:        actorID,
		Direction:      history.DirectionInbound,
		Content:        msg.Text,
		Classification: cls,
		ExternalID:     msg.ExternalID,
		CreatedAt:      now,
	}
	if sequenced {
		entry.GoalID = g.ID
		entry.Stage = st.CurrentStage
	}
	entry, err = e.history.Append(ctx, entry)
	if err != nil {
		return InboundResult{}, err
	}

	res := InboundResult{Entry: entry, Classification: cls, Sequenced: sequenced, ClassificationErr: clsErr}
	if cls != nil {
		info := classify.Info(cls.Category)
		res.CategoryInfo = &info
		if e.usage != nil {
			e.record("usage", func() error { return e.usage.Record(ctx, actorID, plans.ActionReplyAnalysis) })
		}
	}
	if !sequenced {
		return res, nil
	}

	respondedStage := st.LastOutboundStage
	if respondedStage == 0 {
		respondedStage = st.CurrentStage
	}
	wasWaiting := st.Status == StatusWaitingResponse

	st.Status = StatusInProgress
	st.LastInboundAt = &now
	st.LastInboundText = msg.Text
	st.UpdatedAt = now
	if cls != nil {
		res.SuggestedStage = SuggestStage(g, st.CurrentStage, cls.Strategy)
		st.CurrentStage = res.SuggestedStage
		if s, ok := g.Stage(res.SuggestedStage); ok {
			res.StageInfo = &s
		}
	}
	if err := e.store.UpsertState(ctx, st); err != nil {
		return res, err
	}
	e.metrics.Transition("inbound", string(st.Status))
	res.State = &st

	if wasWaiting && e.analytics != nil {
		e.record("response", func() error { return e.analytics.RecordResponse(ctx, actorID, g.ID, respondedStage) })
	}
	return res, nil
}

// SuggestStage maps a strategy to the next stage. Only advance moves forward, capped at the
// goal's last stage. abandon does not terminate; the caller must Complete explicitly.
func SuggestStage(g goals.Goal, current int, s classify.Strategy) int {
	if s == classify.StrategyAdvance {
		return g.ClampStage(current + 1)
	}
	return g.ClampStage(current)
}

func (e *Engine) classify(ctx context.Context, contact contacts.Contact, msg InboundMessage) (*classify.Result, error) {
	if e.classifier == nil {
		e.metrics.Classification("unavailable", 0)
		return nil, fmt.Errorf("%w: no classifier configured", classify.ErrClassifierUnavailable)
	}

	var turns []classify.Turn
	if e.contextTurns > 0 {
		recent, err := e.history.Recent(ctx, contact.ID, e.contextTurns)
		if err != nil {
			e.log.Warn("history context unavailable", "contact_id", contact.ID, "err", err)
		} else {
			turns = history.Turns(recent)
		}
	}
	meta := contact.Meta()
	if v := msg.Contact; v != (classify.ContactMeta{}) {
		if v.Name != "" {
			meta.Name = v.Name
		}
		if v.Headline != "" {
			meta.Headline = v.Headline
		}
		if v.Company != "" {
			meta.Company = v.Company
		}
		if v.Platform != "" {
			meta.Platform = v.Platform
		}
	}

	cctx, cancel := context.WithTimeout(ctx, e.classifierTimeout)
	defer cancel()
	start := time.Now()
	res, err := e.classifier.Classify(cctx, classify.Request{Text: msg.Text, Context: turns, Contact: meta})
	dur := time.Since(start)
	if err != nil {
		switch {
		case errors.Is(err, classify.ErrClassifierTimeout), errors.Is(err, classify.ErrClassifierUnavailable):
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %v", classify.ErrClassifierTimeout, err)
		default:
			err = fmt.Errorf("%w: %v", classify.ErrClassifierUnavailable, err)
		}
		status := "unavailable"
		if errors.Is(err, classify.ErrClassifierTimeout) {
			status = "timeout"
		}
		e.metrics.Classification(status, dur)
		e.log.Warn("classification failed, saving reply without it", "contact_id", contact.ID, "err", err)
		return nil, err
	}
	res = classify.Validate(res, e.minConfidence)
	status := "ok"
	if res.Fallback {
		status = "fallback"
	}
	e.metrics.Classification(status, dur)
	return &res, nil
}

// Advance moves to the next stage. At the last stage it is a no-op.
func (e *Engine) Advance(ctx context.Context, actorID, contactID string) (State, error) {
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return State{}, err
	}
	unlock, err := e.lock(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	st, g, err := e.active(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	next := g.ClampStage(st.CurrentStage + 1)
	if next == st.CurrentStage {
		return st, nil
	}
	st.CurrentStage = next
	st.UpdatedAt = e.now()
	if err := e.store.UpsertState(ctx, st); err != nil {
		return State{}, err
	}
	e.metrics.Transition("advance", string(st.Status))
	return st, nil
}

// Complete terminates the sequence. Terminal transitions are one-way.
func (e *Engine) Complete(ctx context.Context, actorID, contactID string, outcome Outcome) (State, error) {
	status, ok := outcome.status()
	if !ok {
		return State{}, fmt.Errorf("%w: outcome %q", ErrInvalidArgument, outcome)
	}
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return State{}, err
	}
	unlock, err := e.lock(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	st, g, err := e.active(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	now := e.now()
	st.Status = status
	st.UpdatedAt = now
	st.CompletedAt = &now
	if err := e.store.UpsertState(ctx, st); err != nil {
		return State{}, err
	}
	e.metrics.Transition("complete", string(st.Status))

	if e.analytics != nil {
		e.record("outcome", func() error { return e.analytics.RecordOutcome(ctx, actorID, g.ID, analytics.Outcome(outcome)) })
	}
	return st, nil
}

// Get returns the latest state for the contact, terminal or not.
func (e *Engine) Get(ctx context.Context, actorID, contactID string) (State, error) {
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return State{}, err
	}
	st, ok, err := e.store.GetState(ctx, contactID)
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, ErrNoActiveSequence
	}
	return st, nil
}

// History returns every turn for the contact in order.
func (e *Engine) History(ctx context.Context, actorID, contactID string) ([]history.Entry, error) {
	if _, err := e.owned(ctx, actorID, contactID); err != nil {
		return nil, err
	}
	return e.history.List(ctx, contactID)
}

// record runs a write that follows an already committed state change. Failures are logged
// and counted, never returned.
func (e *Engine) record(kind string, fn func() error) {
	if err := fn(); err != nil {
		e.metrics.Error("sequence_" + kind)
		e.log.Error("post-commit write failed", "kind", kind, "err", err)
	}
}
