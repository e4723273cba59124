package claim

import (
	"errors"
	"testing"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
)

func allStatuses() []Status {
	return []Status{
		StatusCreated, StatusValidated, StatusSubmitted, StatusRejected,
		StatusAccepted, StatusDenied, StatusAppealPending, StatusResubmitted,
		StatusPaid, StatusWriteOff,
	}
}

func newClaim(status Status) *Claim {
	now := time.Now().UTC()
	return &Claim{
		ID:        "claim-1",
		Status:    status,
		Amount:    100,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEdgeSet(t *testing.T) {
	allowed := map[Status][]Status{
		StatusCreated:       {StatusValidated},
		StatusValidated:     {StatusSubmitted},
		StatusSubmitted:     {StatusRejected, StatusAccepted, StatusDenied},
		StatusRejected:      {StatusResubmitted},
		StatusDenied:        {StatusAppealPending, StatusResubmitted, StatusWriteOff},
		StatusAppealPending: {StatusAccepted, StatusDenied, StatusWriteOff},
		StatusResubmitted:   {StatusAccepted, StatusDenied, StatusRejected},
		StatusAccepted:      {StatusPaid, StatusWriteOff},
	}

	for _, from := range allStatuses() {
		want := allowed[from]
		for _, to := range allStatuses() {
			shouldPass := false
			for _, w := range want {
				if w == to {
					shouldPass = true
				}
			}
			if got := CanTransition(from, to); got != shouldPass {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, shouldPass)
			}
		}
	}
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	for _, s := range []Status{StatusPaid, StatusWriteOff} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
		if next := ValidNextStates(s); len(next) != 0 {
			t.Errorf("ValidNextStates(%s) = %v, want empty", s, next)
		}
	}
}

func TestApplyTransitionValidEdge(t *testing.T) {
	c := newClaim(StatusSubmitted)

	rec, err := c.ApplyTransition(StatusDenied, "payer denial CO-50")
	if err != nil {
		t.Fatalf("ApplyTransition() error = %v", err)
	}
	if c.Status != StatusDenied {
		t.Errorf("status = %s, want DENIED", c.Status)
	}
	if rec.From != StatusSubmitted || rec.To != StatusDenied || rec.Reason != "payer denial CO-50" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if c.RespondedAt == nil {
		t.Error("RespondedAt not stamped on DENIED")
	}
}

func TestApplyTransitionInvalidEdgeLeavesClaimUnchanged(t *testing.T) {
	c := newClaim(StatusCreated)
	before := *c

	_, err := c.ApplyTransition(StatusPaid, "")
	if err == nil {
		t.Fatal("expected error for CREATED -> PAID")
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("error type = %T, want *InvalidTransitionError", err)
	}
	if ite.From != StatusCreated || ite.To != StatusPaid {
		t.Errorf("error fields = %s -> %s", ite.From, ite.To)
	}
	if len(ite.ValidNext) != 1 || ite.ValidNext[0] != StatusValidated {
		t.Errorf("ValidNext = %v, want [VALIDATED]", ite.ValidNext)
	}

	if c.Status != before.Status || !c.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("claim mutated by rejected transition")
	}
}

func TestApplyTransitionTimestamps(t *testing.T) {
	tests := []struct {
		from, to Status
		check    func(*Claim) bool
		field    string
	}{
		{StatusValidated, StatusSubmitted, func(c *Claim) bool { return c.SubmittedAt != nil }, "SubmittedAt"},
		{StatusDenied, StatusResubmitted, func(c *Claim) bool { return c.SubmittedAt != nil }, "SubmittedAt"},
		{StatusSubmitted, StatusAccepted, func(c *Claim) bool { return c.RespondedAt != nil }, "RespondedAt"},
		{StatusSubmitted, StatusRejected, func(c *Claim) bool { return c.RespondedAt != nil }, "RespondedAt"},
		{StatusAccepted, StatusPaid, func(c *Claim) bool { return c.PaidAt != nil }, "PaidAt"},
	}

	for _, tt := range tests {
		c := newClaim(tt.from)
		if _, err := c.ApplyTransition(tt.to, ""); err != nil {
			t.Fatalf("ApplyTransition(%s -> %s) error = %v", tt.from, tt.to, err)
		}
		if !tt.check(c) {
			t.Errorf("%s -> %s: %s not stamped", tt.from, tt.to, tt.field)
		}
	}
}

func TestAppealCycle(t *testing.T) {
	// DENIED -> APPEAL_PENDING -> DENIED -> RESUBMITTED -> DENIED -> WRITE_OFF
	c := newClaim(StatusDenied)
	steps := []Status{StatusAppealPending, StatusDenied, StatusResubmitted, StatusDenied, StatusWriteOff}
	for _, target := range steps {
		if _, err := c.ApplyTransition(target, ""); err != nil {
			t.Fatalf("ApplyTransition(%s) error = %v", target, err)
		}
	}
	if !c.Status.Terminal() {
		t.Errorf("claim did not reach a terminal state: %s", c.Status)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("DENIED"); err != nil {
		t.Errorf("ParseStatus(DENIED) error = %v", err)
	}
	if _, err := ParseStatus("denied"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ParseStatus(denied) error = %v, want ErrValidation", err)
	}
	if _, err := ParseStatus("LIMBO"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ParseStatus(LIMBO) error = %v, want ErrValidation", err)
	}
}
