package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/costreport/domain"
	"github.com/mesaops/comanda/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, date string) (*domain.DailyCostReport, error) {
	var report domain.DailyCostReport
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, report_date, total_sales, total_expenses, ingredient_cost, labor_cost,
		        waste_cost, total_cost, net_profit, profitability, hours_worked, orders_count,
		        average_ticket, generated_at, created_at, updated_at
		 FROM daily_cost_reports WHERE tenant_id = ? AND report_date = ?`,
		tenantID,
		date,
	).Scan(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == 0 {
		return nil, nil
	}
	return &report, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, report *domain.DailyCostReport) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO daily_cost_reports (id, tenant_id, report_date, total_sales, total_expenses,
		   ingredient_cost, labor_cost, waste_cost, total_cost, net_profit, profitability,
		   hours_worked, orders_count, average_ticket, generated_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, report_date) DO UPDATE SET
		   total_sales = EXCLUDED.total_sales,
		   total_expenses = EXCLUDED.total_expenses,
		   ingredient_cost = EXCLUDED.ingredient_cost,
		   labor_cost = EXCLUDED.labor_cost,
		   waste_cost = EXCLUDED.waste_cost,
		   total_cost = EXCLUDED.total_cost,
		   net_profit = EXCLUDED.net_profit,
		   profitability = EXCLUDED.profitability,
		   hours_worked = EXCLUDED.hours_worked,
		   orders_count = EXCLUDED.orders_count,
		   average_ticket = EXCLUDED.average_ticket,
		   generated_at = EXCLUDED.generated_at,
		   updated_at = EXCLUDED.updated_at`,
		report.ID,
		report.TenantID,
		report.ReportDate,
		report.TotalSales,
		report.TotalExpenses,
		report.IngredientCost,
		report.LaborCost,
		report.WasteCost,
		report.TotalCost,
		report.NetProfit,
		report.Profitability,
		report.HoursWorked,
		report.OrdersCount,
		report.AverageTicket,
		report.GeneratedAt,
		report.CreatedAt,
		report.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.DailyCostReport, error) {
	query := `SELECT id, tenant_id, report_date, total_sales, total_expenses, ingredient_cost, labor_cost,
	          waste_cost, total_cost, net_profit, profitability, hours_worked, orders_count,
	          average_ticket, generated_at, created_at, updated_at
	          FROM daily_cost_reports WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.From != "" {
		query += ` AND report_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND report_date <= ?`
		args = append(args, filter.To)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		query += ` AND report_date < ?`
		args = append(args, cursor.ID)
	}

	// Fetch one extra row to detect whether another page exists.
	query += ` ORDER BY report_date DESC LIMIT ?`
	args = append(args, page.PageSize+1)

	var reports []*domain.DailyCostReport
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
