package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
)

const meterName = "claims"

// Metrics holds the denial pipeline's metric instruments and implements
// the service layer's PipelineMetrics interface.
type Metrics struct {
	DecisionsMade      metric.Int64Counter
	DecisionsExecuted  metric.Int64Counter
	OutcomesRecorded   metric.Int64Counter
	DecisionConfidence metric.Float64Histogram
	RevenueRecovered   metric.Float64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DecisionsMade, err = meter.Int64Counter("claims.decisions.made",
		metric.WithDescription("Number of agent decisions produced"))
	if err != nil {
		return nil, err
	}

	m.DecisionsExecuted, err = meter.Int64Counter("claims.decisions.executed",
		metric.WithDescription("Number of decisions executed"))
	if err != nil {
		return nil, err
	}

	m.OutcomesRecorded, err = meter.Int64Counter("claims.outcomes.recorded",
		metric.WithDescription("Number of finalized outcomes recorded"))
	if err != nil {
		return nil, err
	}

	m.DecisionConfidence, err = meter.Float64Histogram("claims.decision.confidence",
		metric.WithDescription("Confidence score distribution of agent decisions"))
	if err != nil {
		return nil, err
	}

	m.RevenueRecovered, err = meter.Float64Counter("claims.revenue.recovered_usd",
		metric.WithDescription("Revenue recovered by successful actions in USD"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// DecisionMade records a scored decision.
func (m *Metrics) DecisionMade(ctx context.Context, category denial.Category, action decision.Action, confidence float64) {
	attrs := metric.WithAttributes(
		attribute.String("category", string(category)),
		attribute.String("action", string(action)),
	)
	m.DecisionsMade.Add(ctx, 1, attrs)
	m.DecisionConfidence.Record(ctx, confidence, attrs)
}

// DecisionExecuted records an executed or overridden decision.
func (m *Metrics) DecisionExecuted(ctx context.Context, action decision.Action, auto bool) {
	m.DecisionsExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(action)),
		attribute.Bool("auto", auto),
	))
}

// OutcomeRecorded records a finalized outcome.
func (m *Metrics) OutcomeRecorded(ctx context.Context, result outcome.Result, recovered float64) {
	m.OutcomesRecorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", string(result)),
	))
	if result == outcome.ResultSuccess && recovered > 0 {
		m.RevenueRecovered.Add(ctx, recovered)
	}
}
