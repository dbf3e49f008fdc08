package domain

import (
	"context"
	"errors"
	"time"
)

type RecordOrderRequest struct {
	Amount        int64
	PaymentMethod string
	PlacedAt      time.Time
}

type RecordConsumptionRequest struct {
	IngredientID string
	Quantity     float64
	UnitCost     int64
	Waste        bool
	RecordedAt   time.Time
}

type RecordLaborRequest struct {
	EmployeeID  string
	HoursWorked float64
	HourlyRate  int64
	WorkedAt    time.Time
}

type RecordExpenseRequest struct {
	Amount      int64
	Description string
	IncurredAt  time.Time
}

// Service ingests settled records. The cost engine never writes through
// here; it only reads the ledgers.
type Service interface {
	RecordOrder(ctx context.Context, req RecordOrderRequest) (OrderRecord, error)
	RecordConsumption(ctx context.Context, req RecordConsumptionRequest) (ConsumptionRecord, error)
	RecordLabor(ctx context.Context, req RecordLaborRequest) (LaborRecord, error)
	RecordExpense(ctx context.Context, req RecordExpenseRequest) (ExpenseRecord, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidRecord = errors.New("invalid_record")
)
