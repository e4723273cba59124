package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joebrashear31/RCM-Automation-Project/internal/config"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/messagequeue"
)

type pipelineFixture struct {
	store    *mockStore
	events   *mockEvents
	queue    *mockQueue
	claims   *ClaimService
	outcomes *OutcomeService
	orch     *Orchestrator
}

func newPipeline(t *testing.T, cfg config.Orchestrator) *pipelineFixture {
	t.Helper()
	store := newMockStore()
	events := &mockEvents{}
	queue := newMockQueue()
	claims := NewClaimService(store, events, queue)
	outcomes := NewOutcomeService(store, nil, 90, time.Minute, nil)
	orch := NewOrchestrator(store, events, queue, claims, outcomes, cfg, nil)
	return &pipelineFixture{store: store, events: events, queue: queue, claims: claims, outcomes: outcomes, orch: orch}
}

func defaultPolicy() config.Orchestrator {
	return config.Orchestrator{
		ConfidenceThreshold: 0.7,
		AutoExecute:         false,
		ConfidenceFloor:     0.6,
		HighValueAmount:     10000,
		HistoryWeight:       0.3,
	}
}

func autoPolicy() config.Orchestrator {
	cfg := defaultPolicy()
	cfg.AutoExecute = true
	return cfg
}

// seedOutcomes records finalized history for a (category, action) pair.
func seedOutcomes(t *testing.T, store *mockStore, category denial.Category, action decision.Action, successes, failures int) {
	t.Helper()
	now := time.Now().UTC()
	add := func(result outcome.Result, n int) {
		for i := 0; i < n; i++ {
			resolved := now
			rec := &outcome.Record{
				ID:         uuid.NewString(),
				DecisionID: uuid.NewString(),
				ClaimID:    uuid.NewString(),
				Category:   category,
				Action:     action,
				Result:     result,
				ResolvedAt: &resolved,
				CreatedAt:  now,
			}
			if err := store.SaveOutcome(context.Background(), rec); err != nil {
				t.Fatalf("seed outcome: %v", err)
			}
		}
	}
	add(outcome.ResultSuccess, successes)
	add(outcome.ResultFailure, failures)
}

func TestRecordDenial(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, err := p.orch.RecordDenial(context.Background(), DenialRequest{
		ClaimID:    c.ID,
		ReasonCode: "CO-50",
		ReasonText: "These are non-covered services",
	})
	if err != nil {
		t.Fatalf("RecordDenial() error = %v", err)
	}
	if ev.Category != denial.CategoryCodingError {
		t.Errorf("category = %s, want CODING_ERROR", ev.Category)
	}

	got, _ := p.claims.Get(context.Background(), c.ID)
	if got.Status != claim.StatusDenied {
		t.Errorf("claim status = %s, want DENIED", got.Status)
	}
	if !hasType(p.events.typesFor(c.ID), string(event.TypeClaimDenied)) {
		t.Error("expected CLAIM_DENIED event")
	}
	if !p.queue.publishedTo(messagequeue.SubjectDenialProcess) {
		t.Errorf("expected publish to %s", messagequeue.SubjectDenialProcess)
	}
}

func TestRecordDenialInvalidState(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusCreated, 500)

	_, err := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("RecordDenial() error = %v, want ErrInvalidTransition", err)
	}
}

func TestProcessDenialAutoExecutes(t *testing.T) {
	p := newPipeline(t, autoPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, err := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	if err != nil {
		t.Fatalf("RecordDenial() error = %v", err)
	}

	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}
	if dec.Decision != decision.ActionResubmit {
		t.Errorf("decision = %s, want RESUBMIT", dec.Decision)
	}
	if math.Abs(dec.Confidence-0.75) > 1e-9 {
		t.Errorf("confidence = %.4f, want 0.75", dec.Confidence)
	}

	// Auto-execution should have run the resubmit.
	got, _ := p.orch.GetDecision(context.Background(), dec.ID)
	if got.ExecutionStatus != decision.ExecutionExecuted {
		t.Errorf("execution status = %s, want executed", got.ExecutionStatus)
	}
	updated, _ := p.claims.Get(context.Background(), c.ID)
	if updated.Status != claim.StatusResubmitted {
		t.Errorf("claim status = %s, want RESUBMITTED", updated.Status)
	}

	types := p.events.typesFor(c.ID)
	if !hasType(types, string(event.TypeAgentDecision)) || !hasType(types, string(event.TypeWorkflowExecuted)) {
		t.Errorf("missing pipeline events, got %v", types)
	}

	rec, err := p.store.GetOutcomeByDecision(context.Background(), dec.ID)
	if err != nil {
		t.Fatalf("expected outcome record: %v", err)
	}
	if rec.Result != outcome.ResultPending {
		t.Errorf("outcome result = %s, want PENDING", rec.Result)
	}
}

func TestProcessDenialDefaultPolicyHolds(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}

	if dec.ExecutionStatus != decision.ExecutionPending {
		t.Errorf("execution status = %s, want pending under default policy", dec.ExecutionStatus)
	}
	got, _ := p.claims.Get(context.Background(), c.ID)
	if got.Status != claim.StatusDenied {
		t.Errorf("claim status = %s, want DENIED", got.Status)
	}
}

func TestProcessDenialPoorHistoryFlagsHighValueClaim(t *testing.T) {
	p := newPipeline(t, autoPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 15000)
	c.ClinicalNotes = "attached operative report"
	c.AppealAttempts = 1
	p.store.mu.Lock()
	p.store.claims[c.ID].ClinicalNotes = c.ClinicalNotes
	p.store.claims[c.ID].AppealAttempts = c.AppealAttempts
	p.store.mu.Unlock()

	// 30% historical appeal success for medical necessity denials.
	seedOutcomes(t, p.store, denial.CategoryMedicalNecessity, decision.ActionAppeal, 3, 7)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{
		ClaimID:    c.ID,
		ReasonCode: "CO-55",
		ReasonText: "not medically necessary",
	})
	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}

	// 0.75 - 0.3*0.2 (history) - 0.1 (high value) = 0.59, below the floor.
	if dec.Decision != decision.ActionFlagForHuman {
		t.Errorf("decision = %s, want FLAG_FOR_HUMAN", dec.Decision)
	}
	if math.Abs(dec.Confidence-0.59) > 1e-9 {
		t.Errorf("confidence = %.4f, want 0.59", dec.Confidence)
	}
	if dec.ExecutionStatus != decision.ExecutionPending {
		t.Errorf("FLAG_FOR_HUMAN must never auto-execute, status = %s", dec.ExecutionStatus)
	}
}

func TestProcessDenialMissingInfoBlocksAutoExecution(t *testing.T) {
	p := newPipeline(t, autoPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)
	// No authorization number on the claim.

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{
		ClaimID:    c.ID,
		ReasonCode: "CO-29",
		ReasonText: "prior authorization required",
	})
	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}

	if dec.Decision != decision.ActionRequestAuth {
		t.Errorf("decision = %s, want REQUEST_AUTH", dec.Decision)
	}
	if dec.Confidence >= 0.7 {
		t.Errorf("confidence = %.4f, must be capped below threshold by missing info", dec.Confidence)
	}
	if len(dec.MissingInfo) == 0 || dec.MissingInfo[0] != "prior_authorization_number" {
		t.Errorf("missing info = %v, want prior_authorization_number", dec.MissingInfo)
	}
	if dec.ExecutionStatus != decision.ExecutionPending {
		t.Errorf("capped decision must stay pending, status = %s", dec.ExecutionStatus)
	}
}

func TestProcessDenialCodingDisputeNeedsAudit(t *testing.T) {
	p := newPipeline(t, autoPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)
	// Coding has not been reviewed on the claim.

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{
		ClaimID:    c.ID,
		ReasonCode: "CO-50",
		ReasonText: "procedure code invalid for date of service",
	})
	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}

	if dec.Decision != decision.ActionResubmit {
		t.Errorf("decision = %s, want RESUBMIT", dec.Decision)
	}
	if len(dec.MissingInfo) == 0 || dec.MissingInfo[0] != "coding_audit" {
		t.Errorf("missing info = %v, want coding_audit", dec.MissingInfo)
	}
	if dec.Confidence >= 0.7 {
		t.Errorf("confidence = %.4f, must be capped below threshold pending audit", dec.Confidence)
	}
	if dec.ExecutionStatus != decision.ExecutionPending {
		t.Errorf("unaudited coding dispute must stay pending, status = %s", dec.ExecutionStatus)
	}
}

func TestProcessDenialUnknownCategory(t *testing.T) {
	p := newPipeline(t, autoPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{
		ClaimID:    c.ID,
		ReasonCode: "XX-999",
		ReasonText: "unintelligible remittance remark",
	})
	dec, err := p.orch.ProcessDenial(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("ProcessDenial() error = %v", err)
	}

	if dec.Category != denial.CategoryUnknown {
		t.Errorf("category = %s, want UNKNOWN", dec.Category)
	}
	if dec.Decision != decision.ActionFlagForHuman {
		t.Errorf("decision = %s, want FLAG_FOR_HUMAN", dec.Decision)
	}
}

func TestExecuteIsExactlyOnce(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	dec, _ := p.orch.ProcessDenial(context.Background(), ev.ID)

	executed, err := p.orch.Execute(context.Background(), dec.ID)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if executed.ExecutionStatus != decision.ExecutionExecuted || executed.ExecutedAction != decision.ActionResubmit {
		t.Errorf("unexpected decision state after execute: %+v", executed)
	}

	if _, err := p.orch.Execute(context.Background(), dec.ID); !errors.Is(err, domain.ErrAlreadyExecuted) {
		t.Fatalf("second Execute() error = %v, want ErrAlreadyExecuted", err)
	}
}

func TestExecuteUnknownDecision(t *testing.T) {
	p := newPipeline(t, defaultPolicy())

	_, err := p.orch.Execute(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUnknownDecision) {
		t.Fatalf("Execute() error = %v, want ErrUnknownDecision", err)
	}
}

func TestExecuteRequestAuthPublishesWorkflow(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-29"})
	dec, _ := p.orch.ProcessDenial(context.Background(), ev.ID)
	if dec.Decision != decision.ActionRequestAuth {
		t.Fatalf("decision = %s, want REQUEST_AUTH", dec.Decision)
	}

	if _, err := p.orch.Execute(context.Background(), dec.ID); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !p.queue.publishedTo(messagequeue.SubjectAuthRequest) {
		t.Errorf("expected publish to %s", messagequeue.SubjectAuthRequest)
	}
	// Auth requests keep the claim in DENIED while the workflow runs.
	got, _ := p.claims.Get(context.Background(), c.ID)
	if got.Status != claim.StatusDenied {
		t.Errorf("claim status = %s, want DENIED", got.Status)
	}
}

func TestOverridePreservesAgentDecision(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	dec, _ := p.orch.ProcessDenial(context.Background(), ev.ID)

	got, err := p.orch.Override(context.Background(), dec.ID, decision.ActionWriteOff, "j.alvarez", "payer contract excludes this code")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}

	if got.ExecutionStatus != decision.ExecutionOverridden {
		t.Errorf("execution status = %s, want overridden", got.ExecutionStatus)
	}
	if got.Decision != decision.ActionResubmit {
		t.Errorf("original agent decision was mutated: %s", got.Decision)
	}
	if got.Override == nil || got.Override.Action != decision.ActionWriteOff || got.Override.Reviewer != "j.alvarez" {
		t.Errorf("override annotation = %+v", got.Override)
	}

	updated, _ := p.claims.Get(context.Background(), c.ID)
	if updated.Status != claim.StatusWriteOff {
		t.Errorf("claim status = %s, want WRITE_OFF", updated.Status)
	}
	if !hasType(p.events.typesFor(c.ID), string(event.TypeHumanOverride)) {
		t.Error("expected HUMAN_OVERRIDE event")
	}

	// A write-off settles its outcome immediately.
	rec, err := p.store.GetOutcomeByDecision(context.Background(), dec.ID)
	if err != nil {
		t.Fatalf("expected outcome record: %v", err)
	}
	if rec.Result != outcome.ResultFailure || rec.RecoveredRevenue != 0 {
		t.Errorf("outcome = %+v, want immediate FAILURE with zero recovery", rec)
	}
}

func TestOverrideAfterExecuteFails(t *testing.T) {
	p := newPipeline(t, defaultPolicy())
	c := seedClaim(t, p.store, claim.StatusSubmitted, 500)

	ev, _ := p.orch.RecordDenial(context.Background(), DenialRequest{ClaimID: c.ID, ReasonCode: "CO-50"})
	dec, _ := p.orch.ProcessDenial(context.Background(), ev.ID)

	if _, err := p.orch.Execute(context.Background(), dec.ID); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := p.orch.Override(context.Background(), dec.ID, decision.ActionAppeal, "j.alvarez", ""); !errors.Is(err, domain.ErrAlreadyExecuted) {
		t.Fatalf("Override() after execute error = %v, want ErrAlreadyExecuted", err)
	}
}
