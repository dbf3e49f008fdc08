package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/mesaops/comanda/internal/ledger/domain"
)

type recordOrderRequest struct {
	Amount        int64     `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PlacedAt      time.Time `json:"placed_at"`
}

type recordConsumptionRequest struct {
	IngredientID string    `json:"ingredient_id"`
	Quantity     float64   `json:"quantity"`
	UnitCost     int64     `json:"unit_cost"`
	Waste        bool      `json:"waste"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type recordLaborRequest struct {
	EmployeeID  string    `json:"employee_id"`
	HoursWorked float64   `json:"hours_worked"`
	HourlyRate  int64     `json:"hourly_rate"`
	WorkedAt    time.Time `json:"worked_at"`
}

type recordExpenseRequest struct {
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	IncurredAt  time.Time `json:"incurred_at"`
}

func (s *Server) RecordOrder(c *gin.Context) {
	var req recordOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.ledgerSvc.RecordOrder(c.Request.Context(), ledgerdomain.RecordOrderRequest{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PlacedAt:      req.PlacedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) RecordConsumption(c *gin.Context) {
	var req recordConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.ledgerSvc.RecordConsumption(c.Request.Context(), ledgerdomain.RecordConsumptionRequest{
		IngredientID: req.IngredientID,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		Waste:        req.Waste,
		RecordedAt:   req.RecordedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) RecordLabor(c *gin.Context) {
	var req recordLaborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.ledgerSvc.RecordLabor(c.Request.Context(), ledgerdomain.RecordLaborRequest{
		EmployeeID:  req.EmployeeID,
		HoursWorked: req.HoursWorked,
		HourlyRate:  req.HourlyRate,
		WorkedAt:    req.WorkedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) RecordExpense(c *gin.Context) {
	var req recordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.ledgerSvc.RecordExpense(c.Request.Context(), ledgerdomain.RecordExpenseRequest{
		Amount:      req.Amount,
		Description: req.Description,
		IncurredAt:  req.IncurredAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}
