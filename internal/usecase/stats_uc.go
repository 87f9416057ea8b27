package usecase

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the admin overview of listings, payments and buyer engagement.
type Stats struct {
	ListingsByState map[model.ListingState]int  `json:"listings_by_state"`
	PaymentsByState map[model.PaymentStatus]int `json:"payments_by_status"`
	RevenueWeek     int64                       `json:"revenue_week"`
	RevenueMonth    int64                       `json:"revenue_month"`
	RevenueYear     int64                       `json:"revenue_year"`
	SuccessRate     float64                     `json:"success_rate"`
	Plans           []repository.PlanStat       `json:"plans"`
	Currency        string                      `json:"currency"`
	Engagement      model.Engagement            `json:"engagement"`
	OpenReports     int                         `json:"open_reports"`
}

type StatsUseCase interface {
	Overview(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	listings   repository.ListingRepository
	payments   repository.PaymentRepository
	engagement repository.EngagementRepository
	reports    repository.ReportRepository
	currency   string
	clock      adapter.Clock

	log *zerolog.Logger
}

func NewStatsUseCase(
	listings repository.ListingRepository,
	payments repository.PaymentRepository,
	engagement repository.EngagementRepository,
	reports repository.ReportRepository,
	currency string,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *statsUC {
	return &statsUC{listings: listings, payments: payments, engagement: engagement, reports: reports, currency: currency, clock: clock, log: logger}
}

func (s *statsUC) Overview(ctx context.Context) (*Stats, error) {
	byState, err := s.listings.CountByState(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	st := &Stats{ListingsByState: byState, PaymentsByState: byStatus, Currency: s.currency}
	for _, r := range []struct {
		dst  *int64
		days int
	}{{&st.RevenueWeek, 7}, {&st.RevenueMonth, 30}, {&st.RevenueYear, 365}} {
		v, err := s.payments.SumSucceededSince(ctx, repository.NoTX, now.AddDate(0, 0, -r.days))
		if err != nil {
			return nil, err
		}
		*r.dst = v
	}
	st.Plans, err = s.payments.PlanBreakdown(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	if st.Engagement, err = s.engagement.Totals(ctx, repository.NoTX); err != nil {
		return nil, err
	}
	if st.OpenReports, err = s.reports.CountOpen(ctx, repository.NoTX); err != nil {
		return nil, err
	}

	ok, failed := byStatus[model.PaymentStatusSucceeded], byStatus[model.PaymentStatusFailed]
	if ok+failed > 0 {
		st.SuccessRate = float64(ok) / float64(ok+failed)
	}
	return st, nil
}
