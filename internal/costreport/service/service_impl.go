package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/config"
	"github.com/mesaops/comanda/internal/costreport/domain"
	ledgerdomain "github.com/mesaops/comanda/internal/ledger/domain"
	"github.com/mesaops/comanda/internal/observability/metrics"
	"github.com/mesaops/comanda/internal/tenantctx"
	"github.com/mesaops/comanda/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Modes       *config.ModesConfigHolder
	Reports     domain.Repository
	Orders      ledgerdomain.OrderLedger
	Consumption ledgerdomain.ConsumptionLedger
	Labor       ledgerdomain.LaborLedger
	Expenses    ledgerdomain.ExpenseLedger
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	modes       *config.ModesConfigHolder
	reports     domain.Repository
	orders      ledgerdomain.OrderLedger
	consumption ledgerdomain.ConsumptionLedger
	labor       ledgerdomain.LaborLedger
	expenses    ledgerdomain.ExpenseLedger
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("costreport.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		modes:       p.Modes,
		reports:     p.Reports,
		orders:      p.Orders,
		consumption: p.Consumption,
		labor:       p.Labor,
		expenses:    p.Expenses,
	}
}

// Generate recomputes the report for one calendar day from the four ledgers
// and replaces whatever was stored for that day. The write is a single
// upsert, so a failed generation never leaves a partial report behind.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.DailyCostReport, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.DailyCostReport{}, domain.ErrInvalidTenant
	}

	loc := s.modes.Get().Location()
	day, err := time.ParseInLocation(domain.DateLayout, req.Date, loc)
	if err != nil {
		return domain.DailyCostReport{}, fmt.Errorf("%w: %s", domain.ErrInvalidDate, req.Date)
	}
	from := day
	to := day.AddDate(0, 0, 1)

	started := time.Now()
	report, err := s.compute(ctx, tenantID, req.Date, from, to)
	metrics.Modes().ObserveReportGeneration(time.Since(started))
	if err != nil {
		if ctx.Err() != nil {
			metrics.Modes().IncReportGeneration(metrics.ReportGenerationStatusCanceled)
		} else {
			metrics.Modes().IncReportGeneration(metrics.ReportGenerationStatusError)
		}
		return domain.DailyCostReport{}, err
	}

	prior, err := s.reports.Find(ctx, s.db, tenantID, req.Date)
	if err != nil {
		metrics.Modes().IncReportGeneration(metrics.ReportGenerationStatusError)
		return domain.DailyCostReport{}, err
	}
	if prior != nil {
		report.ID = prior.ID
		report.CreatedAt = prior.CreatedAt
	}

	if err := s.reports.Upsert(ctx, s.db, &report); err != nil {
		metrics.Modes().IncReportGeneration(metrics.ReportGenerationStatusError)
		return domain.DailyCostReport{}, err
	}
	metrics.Modes().IncReportGeneration(metrics.ReportGenerationStatusOK)

	s.log.Info("daily cost report generated",
		zap.Int64("tenant_id", int64(tenantID)),
		zap.String("report_date", req.Date),
		zap.Int64("total_sales", report.TotalSales),
		zap.Int64("net_profit", report.NetProfit),
		zap.Int64("orders_count", report.OrdersCount),
	)
	return report, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.DailyCostReport, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.DailyCostReport{}, domain.ErrInvalidTenant
	}
	if _, err := time.Parse(domain.DateLayout, req.Date); err != nil {
		return domain.DailyCostReport{}, fmt.Errorf("%w: %s", domain.ErrInvalidDate, req.Date)
	}

	report, err := s.reports.Find(ctx, s.db, tenantID, req.Date)
	if err != nil {
		return domain.DailyCostReport{}, err
	}
	if report == nil {
		return domain.DailyCostReport{}, domain.ErrNotFound
	}
	return *report, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidTenant
	}
	for _, date := range []string{req.From, req.To} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			return domain.ListResponse{}, fmt.Errorf("%w: %s", domain.ErrInvalidDate, date)
		}
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	rows, err := s.reports.List(ctx, s.db, tenantID, domain.ListFilter{From: req.From, To: req.To}, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(req.PageSize), func(r *domain.DailyCostReport) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ReportDate})
		return token
	})
	if len(rows) > req.PageSize {
		rows = rows[:req.PageSize]
	}

	reports := make([]domain.DailyCostReport, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, *r)
	}
	return domain.ListResponse{PageInfo: *pageInfo, Reports: reports}, nil
}

// compute reads the four ledgers for the half-open window [from, to) and
// folds them into a report. The context is checked between ledger reads so
// a canceled generation stops before touching the next table.
func (s *Service) compute(ctx context.Context, tenantID snowflake.ID, date string, from, to time.Time) (domain.DailyCostReport, error) {
	orders, err := s.orders.ListForDateRange(ctx, s.db, tenantID, from, to)
	if err != nil {
		return domain.DailyCostReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DailyCostReport{}, err
	}

	consumption, err := s.consumption.ListForDateRange(ctx, s.db, tenantID, from, to)
	if err != nil {
		return domain.DailyCostReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DailyCostReport{}, err
	}

	labor, err := s.labor.ListForDateRange(ctx, s.db, tenantID, from, to)
	if err != nil {
		return domain.DailyCostReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DailyCostReport{}, err
	}

	expenses, err := s.expenses.ListForDateRange(ctx, s.db, tenantID, from, to)
	if err != nil {
		return domain.DailyCostReport{}, err
	}

	report := domain.DailyCostReport{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		ReportDate:  date,
		GeneratedAt: s.clock.Now(),
		CreatedAt:   s.clock.Now(),
		UpdatedAt:   s.clock.Now(),
	}

	for _, o := range orders {
		report.TotalSales += o.Amount
	}
	report.OrdersCount = int64(len(orders))

	for _, c := range consumption {
		if c.Waste {
			report.WasteCost += c.Cost()
		} else {
			report.IngredientCost += c.Cost()
		}
	}
	for _, l := range labor {
		report.LaborCost += l.Cost()
		report.HoursWorked += l.HoursWorked
	}
	for _, e := range expenses {
		report.TotalExpenses += e.Amount
	}

	report.TotalCost = report.IngredientCost + report.LaborCost + report.WasteCost + report.TotalExpenses
	report.NetProfit = report.TotalSales - report.TotalCost
	if report.TotalSales > 0 {
		report.Profitability = float64(report.NetProfit) / float64(report.TotalSales) * 100
	}
	if report.OrdersCount > 0 {
		report.AverageTicket = report.TotalSales / report.OrdersCount
	}
	return report, nil
}
