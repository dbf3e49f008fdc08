package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Monetary amounts are integer minor units (cents). Quantities and hours are
// decimals; derived costs are rounded to the nearest cent at aggregation
// time, not at ingest.

// OrderRecord is one settled order.
type OrderRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID `gorm:"not null;index:ix_orders_tenant_placed" json:"tenant_id"`
	Amount        int64        `gorm:"not null" json:"amount"`
	PaymentMethod string       `gorm:"not null" json:"payment_method"`
	PlacedAt      time.Time    `gorm:"not null;index:ix_orders_tenant_placed" json:"placed_at"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OrderRecord) TableName() string {
	return "order_records"
}

// ConsumptionRecord is ingredient usage drawn from stock. Waste rows count
// toward waste cost instead of ingredient cost.
type ConsumptionRecord struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID `gorm:"not null;index:ix_consumption_tenant_recorded" json:"tenant_id"`
	IngredientID string       `gorm:"not null" json:"ingredient_id"`
	Quantity     float64      `gorm:"not null" json:"quantity"`
	UnitCost     int64        `gorm:"not null" json:"unit_cost"`
	Waste        bool         `gorm:"not null;default:false" json:"waste"`
	RecordedAt   time.Time    `gorm:"not null;index:ix_consumption_tenant_recorded" json:"recorded_at"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ConsumptionRecord) TableName() string {
	return "consumption_records"
}

// Cost is the record's monetary value in cents.
func (c ConsumptionRecord) Cost() int64 {
	return int64(c.Quantity*float64(c.UnitCost) + 0.5)
}

// LaborRecord is one time-tracking entry.
type LaborRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;index:ix_labor_tenant_worked" json:"tenant_id"`
	EmployeeID  string       `gorm:"not null" json:"employee_id"`
	HoursWorked float64      `gorm:"not null" json:"hours_worked"`
	HourlyRate  int64        `gorm:"not null" json:"hourly_rate"`
	WorkedAt    time.Time    `gorm:"not null;index:ix_labor_tenant_worked" json:"worked_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LaborRecord) TableName() string {
	return "labor_records"
}

func (l LaborRecord) Cost() int64 {
	return int64(l.HoursWorked*float64(l.HourlyRate) + 0.5)
}

// ExpenseRecord is a miscellaneous operating expense.
type ExpenseRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;index:ix_expenses_tenant_incurred" json:"tenant_id"`
	Amount      int64        `gorm:"not null" json:"amount"`
	Description string       `gorm:"not null" json:"description"`
	IncurredAt  time.Time    `gorm:"not null;index:ix_expenses_tenant_incurred" json:"incurred_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ExpenseRecord) TableName() string {
	return "expense_records"
}
