package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joebrashear31/RCM-Automation-Project/internal/config"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/database"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/eventstore"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/messagequeue"
)

// PipelineMetrics receives counters from the denial pipeline. Implemented
// by the otel adapter; a nil value disables instrumentation.
type PipelineMetrics interface {
	DecisionMade(ctx context.Context, category denial.Category, action decision.Action, confidence float64)
	DecisionExecuted(ctx context.Context, action decision.Action, auto bool)
	OutcomeMetrics
}

// DenialRequest carries a payer denial into the pipeline.
type DenialRequest struct {
	ClaimID    string          `json:"claim_id"`
	ReasonCode string          `json:"reason_code"`
	ReasonText string          `json:"reason_text"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Orchestrator drives the denial pipeline: it records payer denials,
// classifies and scores them, applies the auto-execution policy, and
// executes or routes decisions for human review. Decision scoring itself
// lives in the domain engine; the orchestrator owns all side effects.
type Orchestrator struct {
	store    database.Store
	events   eventstore.Store
	queue    messagequeue.Queue
	claims   *ClaimService
	outcomes *OutcomeService
	cfg      config.Orchestrator
	metrics  PipelineMetrics
}

// NewOrchestrator creates an Orchestrator. metrics may be nil.
func NewOrchestrator(
	store database.Store,
	events eventstore.Store,
	queue messagequeue.Queue,
	claims *ClaimService,
	outcomes *OutcomeService,
	cfg config.Orchestrator,
	metrics PipelineMetrics,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		events:   events,
		queue:    queue,
		claims:   claims,
		outcomes: outcomes,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// RecordDenial registers a payer denial against a claim, transitioning it
// to DENIED if it is not there already, and queues the classification
// pass. The denial event is persisted before processing so a processing
// crash never loses the payer's response.
func (o *Orchestrator) RecordDenial(ctx context.Context, req DenialRequest) (*denial.Event, error) {
	c, err := o.claims.Get(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}

	if c.Status != claim.StatusDenied {
		if _, err := o.claims.Transition(ctx, c.ID, claim.StatusDenied, "payer denial "+req.ReasonCode); err != nil {
			return nil, err
		}
	}

	cls := denial.Classify(req.ReasonCode, req.ReasonText)
	ev := &denial.Event{
		ID:         uuid.NewString(),
		ClaimID:    req.ClaimID,
		ReasonCode: req.ReasonCode,
		ReasonText: req.ReasonText,
		Payload:    req.Payload,
		Category:   cls.Category,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.store.CreateDenial(ctx, ev); err != nil {
		return nil, fmt.Errorf("create denial for claim %s: %w", req.ClaimID, err)
	}

	o.publish(ctx, messagequeue.SubjectDenialProcess, denialMessage{DenialID: ev.ID})

	slog.Info("denial recorded",
		"claim_id", req.ClaimID,
		"denial_id", ev.ID,
		"reason_code", req.ReasonCode,
		"category", cls.Category,
	)
	return ev, nil
}

// ProcessDenial runs the full decision pass over a recorded denial:
// classify, look up the rule baseline and historical success rate, score,
// persist the decision, and apply the auto-execution policy. Safe to
// re-run on queue redelivery; each pass produces a new decision but
// execution remains gated per decision.
func (o *Orchestrator) ProcessDenial(ctx context.Context, denialID string) (*decision.AgentDecision, error) {
	dn, err := o.store.GetDenial(ctx, denialID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("denial %s: %w", denialID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get denial %s: %w", denialID, err)
	}

	c, err := o.claims.Get(ctx, dn.ClaimID)
	if err != nil {
		return nil, err
	}

	cls := denial.Classify(dn.ReasonCode, dn.ReasonText)
	ruleAction := decision.RecommendActionFor(cls.Category)
	rate := o.successRateFor(ctx, cls.Category, ruleAction)
	missing := decision.IdentifyMissing(c, cls.Category, dn.ReasonText)

	res := decision.Decide(decision.Input{
		Claim:       c,
		Category:    cls.Category,
		RuleAction:  ruleAction,
		SuccessRate: rate,
		MissingInfo: missing,
	}, o.engineConfig())

	now := time.Now().UTC()
	dec := &decision.AgentDecision{
		ID:              uuid.NewString(),
		ClaimID:         c.ID,
		DenialEventID:   dn.ID,
		Decision:        res.Decision,
		Confidence:      res.Confidence,
		Rationale:       res.Rationale,
		MissingInfo:     res.MissingInfo,
		Category:        cls.Category,
		RuleAction:      ruleAction,
		SuccessRate:     rate,
		ExecutionStatus: decision.ExecutionPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.store.SaveDecision(ctx, dec); err != nil {
		return nil, fmt.Errorf("save decision for claim %s: %w", c.ID, err)
	}

	o.appendEvent(ctx, c.ID, event.TypeAgentDecision, dec.Payload(), cls.Detail)
	if o.metrics != nil {
		o.metrics.DecisionMade(ctx, cls.Category, res.Decision, res.Confidence)
	}

	slog.Info("decision made",
		"claim_id", c.ID,
		"decision_id", dec.ID,
		"category", cls.Category,
		"decision", res.Decision,
		"confidence", res.Confidence,
	)

	if o.shouldAutoExecute(dec) {
		if err := o.executeDecision(ctx, dec, c, dec.Decision, true); err != nil {
			slog.Error("auto-execution failed", "decision_id", dec.ID, "error", err)
			return dec, nil
		}
	}

	return dec, nil
}

// Execute runs a pending decision's recommended action. Exactly one
// execution ever succeeds per decision; a second call returns
// domain.ErrAlreadyExecuted.
func (o *Orchestrator) Execute(ctx context.Context, decisionID string) (*decision.AgentDecision, error) {
	dec, err := o.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if dec.ExecutionStatus != decision.ExecutionPending {
		return nil, fmt.Errorf("decision %s: %w", decisionID, domain.ErrAlreadyExecuted)
	}

	c, err := o.claims.Get(ctx, dec.ClaimID)
	if err != nil {
		return nil, err
	}

	if err := o.executeDecision(ctx, dec, c, dec.Decision, false); err != nil {
		return nil, err
	}
	return o.GetDecision(ctx, decisionID)
}

// Override attaches a human reviewer's decision to a pending agent
// decision and executes the reviewer's action instead. The original
// agent decision is preserved unmodified alongside the override.
func (o *Orchestrator) Override(ctx context.Context, decisionID string, action decision.Action, reviewer, notes string) (*decision.AgentDecision, error) {
	dec, err := o.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	c, err := o.claims.Get(ctx, dec.ClaimID)
	if err != nil {
		return nil, err
	}

	ov := decision.Override{
		Action:   action,
		Reviewer: reviewer,
		Notes:    notes,
		At:       time.Now().UTC(),
	}
	if err := o.store.AnnotateOverride(ctx, decisionID, ov); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("decision %s: %w", decisionID, domain.ErrUnknownDecision)
		}
		return nil, fmt.Errorf("override decision %s: %w", decisionID, err)
	}

	o.appendEvent(ctx, c.ID, event.TypeHumanOverride, ov,
		fmt.Sprintf("reviewer %s overrode %s with %s", reviewer, dec.Decision, action))
	if o.metrics != nil {
		o.metrics.DecisionExecuted(ctx, action, false)
	}

	if err := o.performAction(ctx, decisionID, c, action); err != nil {
		return nil, err
	}

	slog.Info("decision overridden",
		"decision_id", decisionID,
		"claim_id", c.ID,
		"agent_action", dec.Decision,
		"override_action", action,
		"reviewer", reviewer,
	)
	return o.GetDecision(ctx, decisionID)
}

// GetDecision returns a decision by id.
func (o *Orchestrator) GetDecision(ctx context.Context, id string) (*decision.AgentDecision, error) {
	dec, err := o.store.GetDecision(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("decision %s: %w", id, domain.ErrUnknownDecision)
		}
		return nil, fmt.Errorf("get decision %s: %w", id, err)
	}
	return dec, nil
}

// DecisionsForClaim returns a claim's decisions, newest first.
func (o *Orchestrator) DecisionsForClaim(ctx context.Context, claimID string) ([]decision.AgentDecision, error) {
	if _, err := o.claims.Get(ctx, claimID); err != nil {
		return nil, err
	}
	return o.store.ListDecisionsByClaim(ctx, claimID)
}

// shouldAutoExecute applies the execution policy: auto-execution must be
// enabled, confidence must meet the threshold, and the action must be
// automatable. FLAG_FOR_HUMAN is never auto-executed.
func (o *Orchestrator) shouldAutoExecute(dec *decision.AgentDecision) bool {
	return o.cfg.AutoExecute &&
		dec.Confidence >= o.cfg.ConfidenceThreshold &&
		dec.Decision != decision.ActionFlagForHuman
}

// executeDecision atomically claims execution of the decision, then
// performs the action's side effects. The gate comes first so a queue
// redelivery or concurrent caller can never double-execute.
func (o *Orchestrator) executeDecision(ctx context.Context, dec *decision.AgentDecision, c *claim.Claim, action decision.Action, auto bool) error {
	if err := o.store.MarkDecisionExecuted(ctx, dec.ID, action); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("decision %s: %w", dec.ID, domain.ErrUnknownDecision)
		}
		return fmt.Errorf("mark decision %s executed: %w", dec.ID, err)
	}

	if o.metrics != nil {
		o.metrics.DecisionExecuted(ctx, action, auto)
	}

	return o.performAction(ctx, dec.ID, c, action)
}

// performAction carries out an action's side effects: lifecycle
// transition, workflow dispatch, the WORKFLOW_EXECUTED audit event, and
// the outcome record that the learning loop later resolves.
func (o *Orchestrator) performAction(ctx context.Context, decisionID string, c *claim.Claim, action decision.Action) error {
	var target claim.Status
	switch action {
	case decision.ActionAppeal:
		target = claim.StatusAppealPending
	case decision.ActionResubmit:
		target = claim.StatusResubmitted
	case decision.ActionWriteOff:
		target = claim.StatusWriteOff
	case decision.ActionRequestAuth:
		o.publish(ctx, messagequeue.SubjectAuthRequest, authMessage{
			ClaimID:    c.ID,
			DecisionID: decisionID,
			PayerID:    c.PayerID,
		})
	case decision.ActionNoAction, decision.ActionFlagForHuman:
		// No lifecycle movement; the claim stays DENIED.
	}

	if target != "" {
		if _, err := o.claims.Transition(ctx, c.ID, target, "decision "+decisionID); err != nil {
			return fmt.Errorf("execute %s for claim %s: %w", action, c.ID, err)
		}
	}

	o.appendEvent(ctx, c.ID, event.TypeWorkflowExecuted, executedPayload{
		DecisionID: decisionID,
		Action:     action,
	}, "executed "+string(action))

	return o.recordInitialOutcome(ctx, decisionID, c, action)
}

// recordInitialOutcome opens the learning-loop record for an executed
// action. Write-offs settle immediately as failures; actions that wait on
// the payer open as PENDING and resolve when the claim settles.
func (o *Orchestrator) recordInitialOutcome(ctx context.Context, decisionID string, c *claim.Claim, action decision.Action) error {
	var result outcome.Result
	switch action {
	case decision.ActionAppeal, decision.ActionResubmit, decision.ActionRequestAuth:
		result = outcome.ResultPending
	case decision.ActionWriteOff:
		result = outcome.ResultFailure
	default:
		return nil
	}

	dec, err := o.GetDecision(ctx, decisionID)
	if err != nil {
		return err
	}

	rec := &outcome.Record{
		DecisionID: decisionID,
		ClaimID:    c.ID,
		Category:   dec.Category,
		Action:     action,
		Result:     result,
	}
	return o.outcomes.Record(ctx, rec)
}

// successRateFor looks up the historical rate for the concrete action a
// rule recommendation resolves to. Recommendations with no single
// concrete action score against the neutral midpoint.
func (o *Orchestrator) successRateFor(ctx context.Context, category denial.Category, ruleAction decision.RecommendedAction) float64 {
	action, ok := concreteAction(ruleAction)
	if !ok {
		return NeutralSuccessRate
	}
	rate, err := o.outcomes.SuccessRate(ctx, category, action)
	if err != nil {
		slog.Warn("success rate lookup failed, using neutral", "category", category, "action", action, "error", err)
		return NeutralSuccessRate
	}
	return rate
}

// concreteAction maps a rule recommendation to the action whose history
// is consulted. WRITE_OFF_OR_COLLECT tracks write-off history;
// FLAG_FOR_HUMAN has no automatable history.
func concreteAction(ra decision.RecommendedAction) (decision.Action, bool) {
	switch ra {
	case decision.RecommendAppeal:
		return decision.ActionAppeal, true
	case decision.RecommendResubmit:
		return decision.ActionResubmit, true
	case decision.RecommendWriteOff, decision.RecommendWriteOffOrCollect:
		return decision.ActionWriteOff, true
	case decision.RecommendRequestAuth:
		return decision.ActionRequestAuth, true
	case decision.RecommendNoAction:
		return decision.ActionNoAction, true
	default:
		return "", false
	}
}

func (o *Orchestrator) engineConfig() decision.EngineConfig {
	return decision.EngineConfig{
		ConfidenceThreshold: o.cfg.ConfidenceThreshold,
		ConfidenceFloor:     o.cfg.ConfidenceFloor,
		HighValueAmount:     o.cfg.HighValueAmount,
		HistoryWeight:       o.cfg.HistoryWeight,
	}
}

// denialMessage is the queue payload for denials.process.
type denialMessage struct {
	DenialID string `json:"denial_id"`
}

// authMessage is the queue payload for workflows.auth.
type authMessage struct {
	ClaimID    string `json:"claim_id"`
	DecisionID string `json:"decision_id"`
	PayerID    string `json:"payer_id"`
}

// executedPayload is the audit payload for WORKFLOW_EXECUTED events.
type executedPayload struct {
	DecisionID string          `json:"decision_id"`
	Action     decision.Action `json:"action"`
}

// StartSubscribers registers the orchestrator's queue consumers:
// denials.process feeds ProcessDenial and outcomes.resolve feeds the
// learning loop. Returned cancels unsubscribe; handlers log and swallow
// errors so redelivery can retry.
func (o *Orchestrator) StartSubscribers(ctx context.Context) ([]func(), error) {
	var cancels []func()

	cancel, err := o.queue.Subscribe(ctx, messagequeue.SubjectDenialProcess, func(ctx context.Context, subject string, data []byte) error {
		var msg denialMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Error("bad denial message", "subject", subject, "error", err)
			return nil
		}
		if _, err := o.ProcessDenial(ctx, msg.DenialID); err != nil {
			slog.Error("denial processing failed", "denial_id", msg.DenialID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectDenialProcess, err)
	}
	cancels = append(cancels, cancel)

	cancel, err = o.queue.Subscribe(ctx, messagequeue.SubjectOutcomeResolve, func(ctx context.Context, subject string, data []byte) error {
		var msg claimMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Error("bad outcome message", "subject", subject, "error", err)
			return nil
		}
		c, err := o.claims.Get(ctx, msg.ClaimID)
		if err != nil {
			slog.Error("outcome resolution failed", "claim_id", msg.ClaimID, "error", err)
			return err
		}
		return o.outcomes.ResolveForClaim(ctx, c)
	})
	if err != nil {
		for _, c := range cancels {
			c()
		}
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectOutcomeResolve, err)
	}
	cancels = append(cancels, cancel)

	return cancels, nil
}

// appendEvent writes to the audit log. Failures are logged, not
// propagated: the primary write already succeeded.
func (o *Orchestrator) appendEvent(ctx context.Context, claimID string, typ event.Type, payload any, description string) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event payload marshal failed", "claim_id", claimID, "type", typ, "error", err)
		data = nil
	}
	ev := &event.ClaimEvent{
		ID:          uuid.NewString(),
		ClaimID:     claimID,
		Type:        typ,
		Payload:     data,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.events.Append(ctx, ev); err != nil {
		slog.Error("event append failed", "claim_id", claimID, "type", typ, "error", err)
	}
}

// publish sends a fire-and-forget queue message. Failures are logged,
// not propagated.
func (o *Orchestrator) publish(ctx context.Context, subject string, msg any) {
	if o.queue == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("queue payload marshal failed", "subject", subject, "error", err)
		return
	}
	if err := o.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("queue publish failed", "subject", subject, "error", err)
	}
}
