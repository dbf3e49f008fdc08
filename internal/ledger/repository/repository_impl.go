package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/ledger/domain"
	"gorm.io/gorm"
)

type orderLedger struct{}

func ProvideOrderLedger() domain.OrderLedger {
	return &orderLedger{}
}

func (r *orderLedger) Insert(ctx context.Context, db *gorm.DB, record *domain.OrderRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_records (id, tenant_id, amount, payment_method, placed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.Amount,
		record.PaymentMethod,
		record.PlacedAt,
		record.CreatedAt,
	).Error
}

func (r *orderLedger) ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]domain.OrderRecord, error) {
	var records []domain.OrderRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, amount, payment_method, placed_at, created_at
		 FROM order_records
		 WHERE tenant_id = ? AND placed_at >= ? AND placed_at < ?
		 ORDER BY placed_at, id`,
		tenantID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

type consumptionLedger struct{}

func ProvideConsumptionLedger() domain.ConsumptionLedger {
	return &consumptionLedger{}
}

func (r *consumptionLedger) Insert(ctx context.Context, db *gorm.DB, record *domain.ConsumptionRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO consumption_records (id, tenant_id, ingredient_id, quantity, unit_cost, waste, recorded_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.IngredientID,
		record.Quantity,
		record.UnitCost,
		record.Waste,
		record.RecordedAt,
		record.CreatedAt,
	).Error
}

func (r *consumptionLedger) ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]domain.ConsumptionRecord, error) {
	var records []domain.ConsumptionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, ingredient_id, quantity, unit_cost, waste, recorded_at, created_at
		 FROM consumption_records
		 WHERE tenant_id = ? AND recorded_at >= ? AND recorded_at < ?
		 ORDER BY recorded_at, id`,
		tenantID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

type laborLedger struct{}

func ProvideLaborLedger() domain.LaborLedger {
	return &laborLedger{}
}

func (r *laborLedger) Insert(ctx context.Context, db *gorm.DB, record *domain.LaborRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO labor_records (id, tenant_id, employee_id, hours_worked, hourly_rate, worked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.EmployeeID,
		record.HoursWorked,
		record.HourlyRate,
		record.WorkedAt,
		record.CreatedAt,
	).Error
}

func (r *laborLedger) ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]domain.LaborRecord, error) {
	var records []domain.LaborRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, employee_id, hours_worked, hourly_rate, worked_at, created_at
		 FROM labor_records
		 WHERE tenant_id = ? AND worked_at >= ? AND worked_at < ?
		 ORDER BY worked_at, id`,
		tenantID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

type expenseLedger struct{}

func ProvideExpenseLedger() domain.ExpenseLedger {
	return &expenseLedger{}
}

func (r *expenseLedger) Insert(ctx context.Context, db *gorm.DB, record *domain.ExpenseRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO expense_records (id, tenant_id, amount, description, incurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.Amount,
		record.Description,
		record.IncurredAt,
		record.CreatedAt,
	).Error
}

func (r *expenseLedger) ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]domain.ExpenseRecord, error) {
	var records []domain.ExpenseRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, amount, description, incurred_at, created_at
		 FROM expense_records
		 WHERE tenant_id = ? AND incurred_at >= ? AND incurred_at < ?
		 ORDER BY incurred_at, id`,
		tenantID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
