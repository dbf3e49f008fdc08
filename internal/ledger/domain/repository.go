package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// The four ledgers are append-only from this service's point of view. Range
// queries are half-open: [from, to).

type OrderLedger interface {
	Insert(ctx context.Context, db *gorm.DB, record *OrderRecord) error
	ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]OrderRecord, error)
}

type ConsumptionLedger interface {
	Insert(ctx context.Context, db *gorm.DB, record *ConsumptionRecord) error
	ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]ConsumptionRecord, error)
}

type LaborLedger interface {
	Insert(ctx context.Context, db *gorm.DB, record *LaborRecord) error
	ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]LaborRecord, error)
}

type ExpenseLedger interface {
	Insert(ctx context.Context, db *gorm.DB, record *ExpenseRecord) error
	ListForDateRange(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]ExpenseRecord, error)
}
