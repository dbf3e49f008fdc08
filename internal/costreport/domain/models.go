package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DateLayout is the canonical calendar-date key format.
const DateLayout = "2006-01-02"

// DailyCostReport is the settled cost/profitability picture for one tenant
// and one calendar day. Amounts are cents. A report is immutable once
// generated; regenerating replaces the whole row for the (tenant, date) key.
type DailyCostReport struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;uniqueIndex:ux_daily_cost_reports_tenant_date" json:"tenant_id"`
	ReportDate string       `gorm:"not null;uniqueIndex:ux_daily_cost_reports_tenant_date" json:"report_date"`

	TotalSales     int64   `gorm:"not null" json:"total_sales"`
	TotalExpenses  int64   `gorm:"not null" json:"total_expenses"`
	IngredientCost int64   `gorm:"not null" json:"ingredient_cost"`
	LaborCost      int64   `gorm:"not null" json:"labor_cost"`
	WasteCost      int64   `gorm:"not null" json:"waste_cost"`
	TotalCost      int64   `gorm:"not null" json:"total_cost"`
	NetProfit      int64   `gorm:"not null" json:"net_profit"`
	Profitability  float64 `gorm:"not null" json:"profitability"`
	HoursWorked    float64 `gorm:"not null" json:"hours_worked"`
	OrdersCount    int64   `gorm:"not null" json:"orders_count"`
	AverageTicket  int64   `gorm:"not null" json:"average_ticket"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DailyCostReport) TableName() string {
	return "daily_cost_reports"
}
