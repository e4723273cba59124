package http

import (
	"encoding/json"
	"net/http"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/messagequeue"
	"github.com/joebrashear31/RCM-Automation-Project/internal/service"
)

// Handlers bundles the services behind the REST API.
type Handlers struct {
	Claims   *service.ClaimService
	Pipeline *service.Orchestrator
	Outcomes *service.OutcomeService
	Queue    messagequeue.Queue
}

// NewHandlers creates the handler set.
func NewHandlers(claims *service.ClaimService, pipeline *service.Orchestrator, outcomes *service.OutcomeService, queue messagequeue.Queue) *Handlers {
	return &Handlers{Claims: claims, Pipeline: pipeline, Outcomes: outcomes, Queue: queue}
}

// --- Claims ---

func (h *Handlers) CreateClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[claim.CreateRequest](w, r)
	if !ok {
		return
	}

	c, err := h.Claims.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) GetClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.Claims.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) GetNextStates(w http.ResponseWriter, r *http.Request) {
	next, err := h.Claims.NextStates(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]claim.Status{"valid_next_states": next})
}

type transitionRequest struct {
	ToStatus string `json:"to_status"`
	Reason   string `json:"reason,omitempty"`
}

func (h *Handlers) TransitionClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[transitionRequest](w, r)
	if !ok {
		return
	}
	target, err := claim.ParseStatus(req.ToStatus)
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}

	c, err := h.Claims.Transition(r.Context(), urlParam(r, "id"), target, req.Reason)
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) ListTransitions(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Claims.Transitions(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Claims.Events(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// --- Denials ---

type denialRequest struct {
	ReasonCode string          `json:"reason_code"`
	ReasonText string          `json:"reason_text,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (h *Handlers) DenyClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[denialRequest](w, r)
	if !ok {
		return
	}
	if req.ReasonCode == "" && req.ReasonText == "" {
		writeError(w, http.StatusBadRequest, "reason_code or reason_text is required")
		return
	}

	ev, err := h.Pipeline.RecordDenial(r.Context(), service.DenialRequest{
		ClaimID:    urlParam(r, "id"),
		ReasonCode: req.ReasonCode,
		ReasonText: req.ReasonText,
		Payload:    req.Payload,
	})
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusAccepted, ev)
}

// ProcessDenial runs the decision pass synchronously, bypassing the
// queue. Useful for reprocessing and for deployments without NATS.
func (h *Handlers) ProcessDenial(w http.ResponseWriter, r *http.Request) {
	dec, err := h.Pipeline.ProcessDenial(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "denial not found")
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

// --- Decisions ---

func (h *Handlers) GetDecision(w http.ResponseWriter, r *http.Request) {
	dec, err := h.Pipeline.GetDecision(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

func (h *Handlers) ListClaimDecisions(w http.ResponseWriter, r *http.Request) {
	decs, err := h.Pipeline.DecisionsForClaim(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, decs)
}

func (h *Handlers) ExecuteDecision(w http.ResponseWriter, r *http.Request) {
	dec, err := h.Pipeline.Execute(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

type overrideRequest struct {
	Action   string `json:"action"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes,omitempty"`
}

func (h *Handlers) OverrideDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[overrideRequest](w, r)
	if !ok {
		return
	}
	if req.Reviewer == "" {
		writeError(w, http.StatusBadRequest, "reviewer is required")
		return
	}
	action, err := decision.ParseAction(req.Action)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}

	dec, err := h.Pipeline.Override(r.Context(), urlParam(r, "id"), action, req.Reviewer, req.Notes)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

func (h *Handlers) GetDecisionOutcome(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Outcomes.OutcomeByDecision(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "outcome not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// --- Analytics ---

type successRateResponse struct {
	Category    string  `json:"category"`
	Action      string  `json:"action"`
	SuccessRate float64 `json:"success_rate"`
}

func (h *Handlers) GetSuccessRate(w http.ResponseWriter, r *http.Request) {
	categoryParam := r.URL.Query().Get("category")
	actionParam := r.URL.Query().Get("action")

	category, err := denial.ParseCategory(categoryParam)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	action, err := decision.ParseAction(actionParam)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	rate, err := h.Outcomes.SuccessRate(r.Context(), category, action)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, successRateResponse{
		Category:    categoryParam,
		Action:      actionParam,
		SuccessRate: rate,
	})
}

func (h *Handlers) GetRevenue(w http.ResponseWriter, r *http.Request) {
	m, err := h.Outcomes.Revenue(r.Context())
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status": "ok",
		"queue":  h.Queue != nil && h.Queue.IsConnected(),
	}
	writeJSON(w, http.StatusOK, status)
}
