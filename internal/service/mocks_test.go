package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/database"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store honoring the same error and
// atomicity contracts as the postgres adapter.
type mockStore struct {
	mu          sync.Mutex
	claims      map[string]*claim.Claim
	transitions []claim.TransitionRecord
	denials     map[string]*denial.Event
	decisions   map[string]*decision.AgentDecision
	outcomes    map[string]*outcome.Record // keyed by decision id

	failCreateClaim error
	failUpdate      error
}

func newMockStore() *mockStore {
	return &mockStore{
		claims:    make(map[string]*claim.Claim),
		denials:   make(map[string]*denial.Event),
		decisions: make(map[string]*decision.AgentDecision),
		outcomes:  make(map[string]*outcome.Record),
	}
}

func (m *mockStore) CreateClaim(_ context.Context, c *claim.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateClaim != nil {
		return m.failCreateClaim
	}
	cp := *c
	m.claims[c.ID] = &cp
	return nil
}

func (m *mockStore) GetClaim(_ context.Context, id string) (*claim.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) UpdateClaimStatus(_ context.Context, c *claim.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	stored, ok := m.claims[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrConflict
	}
	cp := *c
	cp.Version++
	m.claims[c.ID] = &cp
	c.Version = cp.Version
	return nil
}

func (m *mockStore) AppendTransition(_ context.Context, rec *claim.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, *rec)
	return nil
}

func (m *mockStore) ListTransitions(_ context.Context, claimID string) ([]claim.TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []claim.TransitionRecord
	for _, rec := range m.transitions {
		if rec.ClaimID == claimID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockStore) CreateDenial(_ context.Context, ev *denial.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.denials[ev.ID] = &cp
	return nil
}

func (m *mockStore) GetDenial(_ context.Context, id string) (*denial.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.denials[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *mockStore) SaveDecision(_ context.Context, d *decision.AgentDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.decisions[d.ID] = &cp
	return nil
}

func (m *mockStore) GetDecision(_ context.Context, id string) (*decision.AgentDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockStore) ListDecisionsByClaim(_ context.Context, claimID string) ([]decision.AgentDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []decision.AgentDecision
	for _, d := range m.decisions {
		if d.ClaimID == claimID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) MarkDecisionExecuted(_ context.Context, id string, action decision.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.ExecutionStatus != decision.ExecutionPending {
		return domain.ErrAlreadyExecuted
	}
	d.ExecutionStatus = decision.ExecutionExecuted
	d.ExecutedAction = action
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockStore) AnnotateOverride(_ context.Context, id string, ov decision.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.ExecutionStatus != decision.ExecutionPending {
		return domain.ErrAlreadyExecuted
	}
	d.ExecutionStatus = decision.ExecutionOverridden
	d.ExecutedAction = ov.Action
	d.Override = &ov
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockStore) SaveOutcome(_ context.Context, rec *outcome.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.outcomes[rec.DecisionID]; ok && existing.Finalized() {
		return nil
	}
	cp := *rec
	m.outcomes[rec.DecisionID] = &cp
	return nil
}

func (m *mockStore) GetOutcomeByDecision(_ context.Context, decisionID string) (*outcome.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.outcomes[decisionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStore) ListOutcomes(_ context.Context, f database.OutcomeFilter) ([]outcome.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outcome.Record
	for _, rec := range m.outcomes {
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Action != "" && rec.Action != f.Action {
			continue
		}
		if f.ClaimID != "" && rec.ClaimID != f.ClaimID {
			continue
		}
		if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// mockEvents is an in-memory eventstore.Store.
type mockEvents struct {
	mu     sync.Mutex
	events []event.ClaimEvent
}

func (m *mockEvents) Append(_ context.Context, ev *event.ClaimEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockEvents) ListByClaim(_ context.Context, claimID string) ([]event.ClaimEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.ClaimEvent
	for _, ev := range m.events {
		if ev.ClaimID == claimID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockEvents) typesFor(claimID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		if ev.ClaimID == claimID {
			out = append(out, string(ev.Type))
		}
	}
	return out
}

// mockQueue records published messages without delivering them.
type mockQueue struct {
	mu        sync.Mutex
	published []publishedMsg
	handlers  map[string]messagequeue.Handler
}

type publishedMsg struct {
	subject string
	data    []byte
}

func newMockQueue() *mockQueue {
	return &mockQueue{handlers: make(map[string]messagequeue.Handler)}
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[subject] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, subject)
	}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func (m *mockQueue) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.published {
		out = append(out, p.subject)
	}
	return out
}

func (m *mockQueue) publishedTo(subject string) bool {
	for _, s := range m.subjects() {
		if s == subject {
			return true
		}
	}
	return false
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
