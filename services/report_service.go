package services

import (
	"context"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/repository"
	"loyalty-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const topCouponsLimit = 4

// ShopReport summarizes a shop's loyalty activity. Points figures count
// finalized redemptions only.
type ShopReport struct {
	CurrentMonthPoints   int64                    `json:"current_month_points"`
	MonthGrowth          float64                  `json:"month_growth"`
	CurrentQuarterPoints int64                    `json:"current_quarter_points"`
	QuarterGrowth        float64                  `json:"quarter_growth"`
	CurrentYearPoints    int64                    `json:"current_year_points"`
	YearGrowth           float64                  `json:"year_growth"`
	TopCoupons           []repository.CouponUsage `json:"top_coupons"`
	Redemptions          map[string]int64         `json:"redemptions"`
	QuickStats           QuickStats               `json:"quick_stats"`
}

type QuickStats struct {
	ActiveCoupons      int64   `json:"active_coupons"`
	RedeemingCustomers int64   `json:"redeeming_customers"`
	UsedRedemptions    int64   `json:"used_redemptions"`
	AvgPointsPerUse    float64 `json:"avg_points_per_use"`
}

type ReportService interface {
	ShopSummary(ctx context.Context, shopID uuid.UUID) (*ShopReport, error)
}

type reportServiceImpl struct {
	reports repository.ReportRepository
	now     func() time.Time
	logger  *zap.Logger
}

// NewReportService builds a ReportService; a nil now means time.Now.
func NewReportService(reports repository.ReportRepository, now func() time.Time, logger *zap.Logger) ReportService {
	if now == nil {
		now = time.Now
	}
	return &reportServiceImpl{reports: reports, now: now, logger: logger}
}

func (s *reportServiceImpl) ShopSummary(ctx context.Context, shopID uuid.UUID) (*ShopReport, error) {
	now := s.now().UTC()
	report := &ShopReport{Redemptions: make(map[string]int64)}

	monthStart := utils.BeginningOfMonth(now)
	quarterStart := utils.BeginningOfQuarter(now)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	var err error
	if report.CurrentMonthPoints, report.MonthGrowth, err = s.periodPoints(ctx, shopID, monthStart, monthStart.AddDate(0, 1, 0), monthStart.AddDate(0, -1, 0)); err != nil {
		return nil, s.fail(shopID, "month", err)
	}
	if report.CurrentQuarterPoints, report.QuarterGrowth, err = s.periodPoints(ctx, shopID, quarterStart, quarterStart.AddDate(0, 3, 0), quarterStart.AddDate(0, -3, 0)); err != nil {
		return nil, s.fail(shopID, "quarter", err)
	}
	if report.CurrentYearPoints, report.YearGrowth, err = s.periodPoints(ctx, shopID, yearStart, yearStart.AddDate(1, 0, 0), yearStart.AddDate(-1, 0, 0)); err != nil {
		return nil, s.fail(shopID, "year", err)
	}

	if report.TopCoupons, err = s.reports.TopCoupons(ctx, shopID, monthStart, monthStart.AddDate(0, 1, 0), topCouponsLimit); err != nil {
		return nil, s.fail(shopID, "top coupons", err)
	}
	if report.TopCoupons == nil {
		report.TopCoupons = []repository.CouponUsage{}
	}

	counts, err := s.reports.StatusCounts(ctx, shopID)
	if err != nil {
		return nil, s.fail(shopID, "status counts", err)
	}
	for _, status := range []models.RedemptionStatus{models.RedemptionActive, models.RedemptionUsed, models.RedemptionExpired, models.RedemptionCancelled} {
		report.Redemptions[string(status)] = 0
	}
	for _, c := range counts {
		report.Redemptions[string(c.Status)] = c.Count
	}

	if report.QuickStats.ActiveCoupons, err = s.reports.ActiveCoupons(ctx, shopID); err != nil {
		return nil, s.fail(shopID, "active coupons", err)
	}
	if report.QuickStats.RedeemingCustomers, err = s.reports.DistinctCustomers(ctx, shopID); err != nil {
		return nil, s.fail(shopID, "customers", err)
	}
	report.QuickStats.UsedRedemptions = report.Redemptions[string(models.RedemptionUsed)]
	if report.QuickStats.UsedRedemptions > 0 {
		allTime, err := s.reports.PointsRedeemed(ctx, shopID, time.Unix(0, 0).UTC(), now.Add(time.Second))
		if err != nil {
			return nil, s.fail(shopID, "all-time points", err)
		}
		report.QuickStats.AvgPointsPerUse = float64(allTime) / float64(report.QuickStats.UsedRedemptions)
	}

	return report, nil
}

// periodPoints returns the points redeemed in [start, end) and the growth
// against the equally long period starting at prevStart.
func (s *reportServiceImpl) periodPoints(ctx context.Context, shopID uuid.UUID, start, end, prevStart time.Time) (int64, float64, error) {
	current, err := s.reports.PointsRedeemed(ctx, shopID, start, end)
	if err != nil {
		return 0, 0, err
	}
	previous, err := s.reports.PointsRedeemed(ctx, shopID, prevStart, start)
	if err != nil {
		return 0, 0, err
	}
	return current, growthPercentage(float64(current), float64(previous)), nil
}

func (s *reportServiceImpl) fail(shopID uuid.UUID, part string, err error) error {
	s.logger.Error("Failed to build shop report",
		zap.String("shop_id", shopID.String()),
		zap.String("part", part),
		zap.Error(err),
	)
	return err
}

func growthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / previous) * 100
}
