package services

import (
	"context"
	"fmt"

	"autofint/internal/core"
	"autofint/internal/ports"
)

// ReportService answers aggregation queries. Totals are computed by the
// store so large ledgers never travel to the caller.
type ReportService struct {
	agg ports.Aggregator
}

func NewReportService(agg ports.Aggregator) *ReportService {
	return &ReportService{agg: agg}
}

// Summarize totals income, non-savings expense and savings for f. Limit is
// ignored.
func (s *ReportService) Summarize(ctx context.Context, f core.Filter) (core.Summary, error) {
	if err := f.Validate(); err != nil {
		return core.Summary{}, err
	}
	sum, err := s.agg.SumTotals(ctx, f.WithoutLimit())
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return sum, nil
}

// CategoryBreakdown splits the expenses matching f by category.
func (s *ReportService) CategoryBreakdown(ctx context.Context, f core.Filter) (core.Breakdown, error) {
	if err := f.Validate(); err != nil {
		return core.Breakdown{}, err
	}
	amounts, err := s.agg.SumExpensesByCategory(ctx, f.WithoutLimit())
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("category breakdown: %w", err)
	}
	return core.NewBreakdown(amounts), nil
}

// Runway spreads the net cash of f until target. Precondition failures are
// returned as core.ErrInvalidTarget or core.ErrInsufficientFunds alongside
// the partially filled Runway.
func (s *ReportService) Runway(ctx context.Context, f core.Filter, target, today core.Date) (core.Runway, error) {
	sum, err := s.Summarize(ctx, f)
	if err != nil {
		return core.Runway{}, err
	}
	return core.Simulate(sum.NetCash(), target, today)
}
