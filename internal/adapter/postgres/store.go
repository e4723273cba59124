package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const claimColumns = `id, status, amount, paid_amount, cpt_codes, icd_codes, service_start, service_end,
	provider_id, payer_id, authorization_number, clinical_notes, coding_reviewed, appeal_attempts,
	submitted_at, responded_at, paid_at, version, created_at, updated_at`

// --- Claims ---

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claims (id, status, amount, paid_amount, cpt_codes, icd_codes, service_start, service_end,
		 provider_id, payer_id, authorization_number, clinical_notes, coding_reviewed, appeal_attempts,
		 version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, string(c.Status), c.Amount, c.PaidAmount, c.CPTCodes, c.ICDCodes, c.ServiceStart, c.ServiceEnd,
		c.ProviderID, c.PayerID, c.AuthorizationNumber, c.ClinicalNotes, c.CodingReviewed, c.AppealAttempts,
		c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, id string) (*claim.Claim, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)

	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get claim %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get claim %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) UpdateClaimStatus(ctx context.Context, c *claim.Claim) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE claims SET status = $2, paid_amount = $3, appeal_attempts = $4,
		 submitted_at = $5, responded_at = $6, paid_at = $7, updated_at = $8, version = version + 1
		 WHERE id = $1 AND version = $9`,
		c.ID, string(c.Status), c.PaidAmount, c.AppealAttempts,
		c.SubmittedAt, c.RespondedAt, c.PaidAt, c.UpdatedAt, c.Version)
	if err != nil {
		return fmt.Errorf("update claim %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update claim %s: %w", c.ID, domain.ErrConflict)
	}
	c.Version++
	return nil
}

func (s *Store) AppendTransition(ctx context.Context, rec *claim.TransitionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claim_transitions (id, claim_id, from_status, to_status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ClaimID, string(rec.From), string(rec.To), rec.Reason, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

func (s *Store) ListTransitions(ctx context.Context, claimID string) ([]claim.TransitionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, claim_id, from_status, to_status, reason, created_at
		 FROM claim_transitions WHERE claim_id = $1 ORDER BY created_at ASC`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var recs []claim.TransitionRecord
	for rows.Next() {
		var rec claim.TransitionRecord
		if err := rows.Scan(&rec.ID, &rec.ClaimID, &rec.From, &rec.To, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Denials ---

func (s *Store) CreateDenial(ctx context.Context, ev *denial.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO denial_events (id, claim_id, reason_code, reason_text, payload, category, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.ClaimID, ev.ReasonCode, ev.ReasonText, ev.Payload, string(ev.Category), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create denial: %w", err)
	}
	return nil
}

func (s *Store) GetDenial(ctx context.Context, id string) (*denial.Event, error) {
	var ev denial.Event
	err := s.pool.QueryRow(ctx,
		`SELECT id, claim_id, reason_code, reason_text, payload, category, created_at
		 FROM denial_events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.ClaimID, &ev.ReasonCode, &ev.ReasonText, &ev.Payload, &ev.Category, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get denial %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get denial %s: %w", id, err)
	}
	return &ev, nil
}

// --- Decisions ---

const decisionColumns = `id, claim_id, denial_event_id, decision, confidence, rationale, missing_info,
	category, rule_action, success_rate, execution_status, executed_action, override,
	version, created_at, updated_at`

func (s *Store) SaveDecision(ctx context.Context, d *decision.AgentDecision) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_decisions (id, claim_id, denial_event_id, decision, confidence, rationale,
		 missing_info, category, rule_action, success_rate, execution_status, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.ClaimID, d.DenialEventID, string(d.Decision), d.Confidence, d.Rationale,
		nonNilStrings(d.MissingInfo), string(d.Category), string(d.RuleAction), d.SuccessRate,
		string(d.ExecutionStatus), d.Version, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, id string) (*decision.AgentDecision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM agent_decisions WHERE id = $1`, id)

	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get decision %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get decision %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) ListDecisionsByClaim(ctx context.Context, claimID string) ([]decision.AgentDecision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+decisionColumns+` FROM agent_decisions WHERE claim_id = $1 ORDER BY created_at DESC`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []decision.AgentDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// MarkDecisionExecuted flips pending -> executed with a single guarded
// UPDATE, so concurrent executors race on the row and exactly one wins.
func (s *Store) MarkDecisionExecuted(ctx context.Context, id string, action decision.Action) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_decisions
		 SET execution_status = $2, executed_action = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND execution_status = $4`,
		id, string(decision.ExecutionExecuted), string(action), string(decision.ExecutionPending))
	if err != nil {
		return fmt.Errorf("mark decision executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.decisionGateError(ctx, id)
	}
	return nil
}

// AnnotateOverride flips pending -> overridden under the same guard as
// MarkDecisionExecuted; the agent's original fields are left untouched.
func (s *Store) AnnotateOverride(ctx context.Context, id string, ov decision.Override) error {
	ovJSON, err := json.Marshal(ov)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_decisions
		 SET execution_status = $2, executed_action = $3, override = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND execution_status = $5`,
		id, string(decision.ExecutionOverridden), string(ov.Action), ovJSON, string(decision.ExecutionPending))
	if err != nil {
		return fmt.Errorf("annotate override %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.decisionGateError(ctx, id)
	}
	return nil
}

// decisionGateError distinguishes a missing decision from one that has
// already left the pending state.
func (s *Store) decisionGateError(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agent_decisions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check decision %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("decision %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("decision %s: %w", id, domain.ErrAlreadyExecuted)
}

// --- Outcomes ---

// SaveOutcome upserts by decision id. The WHERE guard makes finalized
// records immutable: replays against a settled outcome update nothing.
func (s *Store) SaveOutcome(ctx context.Context, rec *outcome.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outcome_records (id, decision_id, claim_id, category, action, result,
		 recovered_revenue, resolution_days, resolved_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (decision_id) DO UPDATE SET
		   result = EXCLUDED.result,
		   recovered_revenue = EXCLUDED.recovered_revenue,
		   resolution_days = EXCLUDED.resolution_days,
		   resolved_at = EXCLUDED.resolved_at
		 WHERE outcome_records.result = $11`,
		rec.ID, rec.DecisionID, rec.ClaimID, string(rec.Category), string(rec.Action), string(rec.Result),
		rec.RecoveredRevenue, rec.ResolutionDays, rec.ResolvedAt, rec.CreatedAt,
		string(outcome.ResultPending))
	if err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

func (s *Store) GetOutcomeByDecision(ctx context.Context, decisionID string) (*outcome.Record, error) {
	var rec outcome.Record
	err := s.pool.QueryRow(ctx,
		`SELECT id, decision_id, claim_id, category, action, result, recovered_revenue, resolution_days, resolved_at, created_at
		 FROM outcome_records WHERE decision_id = $1`, decisionID,
	).Scan(&rec.ID, &rec.DecisionID, &rec.ClaimID, &rec.Category, &rec.Action, &rec.Result,
		&rec.RecoveredRevenue, &rec.ResolutionDays, &rec.ResolvedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get outcome for decision %s: %w", decisionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get outcome for decision %s: %w", decisionID, err)
	}
	return &rec, nil
}

func (s *Store) ListOutcomes(ctx context.Context, f database.OutcomeFilter) ([]outcome.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, decision_id, claim_id, category, action, result, recovered_revenue, resolution_days, resolved_at, created_at
		 FROM outcome_records
		 WHERE ($1 = '' OR category = $1)
		   AND ($2 = '' OR action = $2)
		   AND ($3 = '' OR claim_id::text = $3)
		   AND ($4::timestamptz IS NULL OR created_at >= $4)
		 ORDER BY created_at DESC`,
		string(f.Category), string(f.Action), f.ClaimID, nullIfZeroTime(f.Since))
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var recs []outcome.Record
	for rows.Next() {
		var rec outcome.Record
		if err := rows.Scan(&rec.ID, &rec.DecisionID, &rec.ClaimID, &rec.Category, &rec.Action, &rec.Result,
			&rec.RecoveredRevenue, &rec.ResolutionDays, &rec.ResolvedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanClaim(row scannable) (claim.Claim, error) {
	var c claim.Claim
	err := row.Scan(
		&c.ID, &c.Status, &c.Amount, &c.PaidAmount, &c.CPTCodes, &c.ICDCodes, &c.ServiceStart, &c.ServiceEnd,
		&c.ProviderID, &c.PayerID, &c.AuthorizationNumber, &c.ClinicalNotes, &c.CodingReviewed, &c.AppealAttempts,
		&c.SubmittedAt, &c.RespondedAt, &c.PaidAt, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func scanDecision(row scannable) (decision.AgentDecision, error) {
	var d decision.AgentDecision
	var overrideJSON []byte
	err := row.Scan(
		&d.ID, &d.ClaimID, &d.DenialEventID, &d.Decision, &d.Confidence, &d.Rationale, &d.MissingInfo,
		&d.Category, &d.RuleAction, &d.SuccessRate, &d.ExecutionStatus, &d.ExecutedAction, &overrideJSON,
		&d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}
	if overrideJSON != nil {
		var ov decision.Override
		if err := json.Unmarshal(overrideJSON, &ov); err != nil {
			return d, fmt.Errorf("unmarshal override: %w", err)
		}
		d.Override = &ov
	}
	return d, nil
}

func nullIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// nonNilStrings coalesces a nil slice to an empty one. pgx encodes a nil
// []string as SQL NULL, which a NOT NULL array column rejects.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
