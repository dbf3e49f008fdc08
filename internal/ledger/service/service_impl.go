package service

import (
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/ledger/domain"
	"github.com/mesaops/comanda/internal/tenantctx"
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
	Orders      domain.OrderLedger
	Consumption domain.ConsumptionLedger
	Labor       domain.LaborLedger
	Expenses    domain.ExpenseLedger
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	orders      domain.OrderLedger
	consumption domain.ConsumptionLedger
	labor       domain.LaborLedger
	expenses    domain.ExpenseLedger
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		orders:      p.Orders,
		consumption: p.Consumption,
		labor:       p.Labor,
		expenses:    p.Expenses,
	}
}

func (s *Service) RecordOrder(ctx context.Context, req domain.RecordOrderRequest) (domain.OrderRecord, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.OrderRecord{}, domain.ErrInvalidTenant
	}
	if req.Amount < 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidRecord)
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return domain.OrderRecord{}, fmt.Errorf("%w: payment_method is required", domain.ErrInvalidRecord)
	}

	record := domain.OrderRecord{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		Amount:        req.Amount,
		PaymentMethod: method,
		PlacedAt:      orDefault(req.PlacedAt, s.clock.Now()),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.orders.Insert(ctx, s.db, &record); err != nil {
		return domain.OrderRecord{}, err
	}
	return record, nil
}

func (s *Service) RecordConsumption(ctx context.Context, req domain.RecordConsumptionRequest) (domain.ConsumptionRecord, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ConsumptionRecord{}, domain.ErrInvalidTenant
	}
	if strings.TrimSpace(req.IngredientID) == "" {
		return domain.ConsumptionRecord{}, fmt.Errorf("%w: ingredient_id is required", domain.ErrInvalidRecord)
	}
	if req.Quantity <= 0 {
		return domain.ConsumptionRecord{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidRecord)
	}
	if req.UnitCost < 0 {
		return domain.ConsumptionRecord{}, fmt.Errorf("%w: unit_cost must not be negative", domain.ErrInvalidRecord)
	}

	record := domain.ConsumptionRecord{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		IngredientID: strings.TrimSpace(req.IngredientID),
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		Waste:        req.Waste,
		RecordedAt:   orDefault(req.RecordedAt, s.clock.Now()),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.consumption.Insert(ctx, s.db, &record); err != nil {
		return domain.ConsumptionRecord{}, err
	}
	return record, nil
}

func (s *Service) RecordLabor(ctx context.Context, req domain.RecordLaborRequest) (domain.LaborRecord, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.LaborRecord{}, domain.ErrInvalidTenant
	}
	if strings.TrimSpace(req.EmployeeID) == "" {
		return domain.LaborRecord{}, fmt.Errorf("%w: employee_id is required", domain.ErrInvalidRecord)
	}
	if req.HoursWorked <= 0 {
		return domain.LaborRecord{}, fmt.Errorf("%w: hours_worked must be positive", domain.ErrInvalidRecord)
	}
	if req.HourlyRate < 0 {
		return domain.LaborRecord{}, fmt.Errorf("%w: hourly_rate must not be negative", domain.ErrInvalidRecord)
	}

	record := domain.LaborRecord{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		EmployeeID:  strings.TrimSpace(req.EmployeeID),
		HoursWorked: req.HoursWorked,
		HourlyRate:  req.HourlyRate,
		WorkedAt:    orDefault(req.WorkedAt, s.clock.Now()),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.labor.Insert(ctx, s.db, &record); err != nil {
		return domain.LaborRecord{}, err
	}
	return record, nil
}

func (s *Service) RecordExpense(ctx context.Context, req domain.RecordExpenseRequest) (domain.ExpenseRecord, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ExpenseRecord{}, domain.ErrInvalidTenant
	}
	if req.Amount < 0 {
		return domain.ExpenseRecord{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidRecord)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.ExpenseRecord{}, fmt.Errorf("%w: description is required", domain.ErrInvalidRecord)
	}

	record := domain.ExpenseRecord{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Amount:      req.Amount,
		Description: description,
		IncurredAt:  orDefault(req.IncurredAt, s.clock.Now()),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.expenses.Insert(ctx, s.db, &record); err != nil {
		return domain.ExpenseRecord{}, err
	}
	return record, nil
}

func orDefault(t, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t
}
