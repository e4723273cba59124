// Package service implements the claim pipeline's business logic over
// the repository, event log, queue, and cache ports.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/cache"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/database"
)

// NeutralSuccessRate is returned when a (category, action) pair has no
// finalized history, so the decision engine is never biased by absence
// of data and never divides by zero.
const NeutralSuccessRate = 0.5

// OutcomeMetrics receives a counter update whenever an outcome
// finalizes. Implemented by the otel adapter; a nil value disables
// instrumentation.
type OutcomeMetrics interface {
	OutcomeRecorded(ctx context.Context, result outcome.Result, recovered float64)
}

// OutcomeService records execution outcomes and aggregates them into the
// historical success rates that feed back into decision scoring. It is
// the learning loop's only write path.
type OutcomeService struct {
	store      database.Store
	cache      cache.Cache
	windowDays int
	cacheTTL   time.Duration
	metrics    OutcomeMetrics
}

// NewOutcomeService creates an OutcomeService. cache and metrics may be
// nil; without a cache, aggregates are recomputed on every call.
func NewOutcomeService(store database.Store, c cache.Cache, windowDays int, cacheTTL time.Duration, metrics OutcomeMetrics) *OutcomeService {
	return &OutcomeService{store: store, cache: c, windowDays: windowDays, cacheTTL: cacheTTL, metrics: metrics}
}

// Record persists an outcome for an executed decision. Recording is
// idempotent per decision id: redelivered results for an already
// finalized outcome are dropped by the store.
func (s *OutcomeService) Record(ctx context.Context, rec *outcome.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Finalized() && rec.ResolvedAt == nil {
		now := time.Now().UTC()
		rec.ResolvedAt = &now
	}

	if err := s.store.SaveOutcome(ctx, rec); err != nil {
		return fmt.Errorf("save outcome for decision %s: %w", rec.DecisionID, err)
	}

	if s.metrics != nil && rec.Finalized() {
		s.metrics.OutcomeRecorded(ctx, rec.Result, rec.RecoveredRevenue)
	}
	s.invalidate(ctx, rec.Category, rec.Action)
	return nil
}

// SuccessRate returns count(SUCCESS)/count(SUCCESS+FAILURE) for the
// (category, action) pair over the trailing window, excluding PENDING
// records. An empty sample returns NeutralSuccessRate.
func (s *OutcomeService) SuccessRate(ctx context.Context, category denial.Category, action decision.Action) (float64, error) {
	key := rateKey(category, action)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			if rate, err := strconv.ParseFloat(string(data), 64); err == nil {
				return rate, nil
			}
		}
	}

	records, err := s.store.ListOutcomes(ctx, database.OutcomeFilter{
		Category: category,
		Action:   action,
		Since:    s.windowStart(),
	})
	if err != nil {
		return 0, fmt.Errorf("list outcomes for %s/%s: %w", category, action, err)
	}

	var success, failure int
	for i := range records {
		switch records[i].Result {
		case outcome.ResultSuccess:
			success++
		case outcome.ResultFailure:
			failure++
		}
	}

	rate := NeutralSuccessRate
	if success+failure > 0 {
		rate = float64(success) / float64(success+failure)
	}

	if s.cache != nil {
		value := strconv.FormatFloat(rate, 'f', -1, 64)
		if err := s.cache.Set(ctx, key, []byte(value), s.cacheTTL); err != nil {
			slog.Warn("success rate cache set failed", "key", key, "error", err)
		}
	}

	return rate, nil
}

// OutcomeByDecision returns the outcome record for a decision, if any.
func (s *OutcomeService) OutcomeByDecision(ctx context.Context, decisionID string) (*outcome.Record, error) {
	rec, err := s.store.GetOutcomeByDecision(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("get outcome for decision %s: %w", decisionID, err)
	}
	return rec, nil
}

// RevenueMetrics aggregates recovered revenue over the trailing window.
type RevenueMetrics struct {
	TotalRecovered    float64 `json:"total_recovered"`
	ResolvedCount     int     `json:"resolved_count"`
	SuccessCount      int     `json:"success_count"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
	WindowDays        int     `json:"window_days"`
}

// Revenue returns recovery metrics over the trailing window.
func (s *OutcomeService) Revenue(ctx context.Context) (*RevenueMetrics, error) {
	records, err := s.store.ListOutcomes(ctx, database.OutcomeFilter{Since: s.windowStart()})
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	m := &RevenueMetrics{WindowDays: s.windowDays}
	var totalDays int
	for i := range records {
		rec := &records[i]
		if !rec.Finalized() {
			continue
		}
		m.ResolvedCount++
		totalDays += rec.ResolutionDays
		if rec.Result == outcome.ResultSuccess {
			m.SuccessCount++
			m.TotalRecovered += rec.RecoveredRevenue
		}
	}
	if m.ResolvedCount > 0 {
		m.AvgResolutionDays = float64(totalDays) / float64(m.ResolvedCount)
	}
	return m, nil
}

// ResolveForClaim finalizes the claim's pending outcomes based on the
// state the claim has reached. Safe to call repeatedly: finalized
// outcomes are immutable and replays become no-ops.
func (s *OutcomeService) ResolveForClaim(ctx context.Context, c *claim.Claim) error {
	records, err := s.store.ListOutcomes(ctx, database.OutcomeFilter{ClaimID: c.ID})
	if err != nil {
		return fmt.Errorf("list outcomes for claim %s: %w", c.ID, err)
	}

	for i := range records {
		rec := records[i]
		if rec.Finalized() {
			continue
		}

		result, recovered, ok := resolveResult(c, rec.Action)
		if !ok {
			continue
		}

		rec.Result = result
		rec.RecoveredRevenue = recovered
		rec.ResolutionDays = resolutionDays(c, rec.CreatedAt)
		if err := s.Record(ctx, &rec); err != nil {
			return err
		}
		slog.Info("outcome resolved",
			"claim_id", c.ID,
			"decision_id", rec.DecisionID,
			"action", rec.Action,
			"result", result,
			"recovered", recovered,
		)
	}
	return nil
}

// resolveResult maps a claim's current status to the outcome of a
// pending action, or reports that the outcome is still undetermined.
func resolveResult(c *claim.Claim, action decision.Action) (outcome.Result, float64, bool) {
	switch c.Status {
	case claim.StatusPaid:
		recovered := c.PaidAmount
		if recovered == 0 {
			recovered = c.Amount
		}
		return outcome.ResultSuccess, recovered, true
	case claim.StatusWriteOff:
		return outcome.ResultFailure, 0, true
	case claim.StatusDenied, claim.StatusRejected:
		// A second denial after resubmission settles that attempt.
		if action == decision.ActionResubmit {
			return outcome.ResultFailure, 0, true
		}
	}
	return "", 0, false
}

func resolutionDays(c *claim.Claim, since time.Time) int {
	end := c.UpdatedAt
	if c.PaidAt != nil {
		end = *c.PaidAt
	}
	if end.Before(since) {
		return 0
	}
	return int(end.Sub(since).Hours() / 24)
}

func (s *OutcomeService) windowStart() time.Time {
	return time.Now().UTC().AddDate(0, 0, -s.windowDays)
}

func (s *OutcomeService) invalidate(ctx context.Context, category denial.Category, action decision.Action) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, rateKey(category, action)); err != nil {
		slog.Warn("success rate cache invalidation failed", "error", err)
	}
}

func rateKey(category denial.Category, action decision.Action) string {
	return "success_rate:" + string(category) + ":" + string(action)
}
