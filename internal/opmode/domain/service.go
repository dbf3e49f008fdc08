package domain

import (
	"context"
	"errors"
)

type ActivateRequest struct {
	Kind ModeKind

	// Exactly one of the following must be set, matching Kind.
	PeakDemand   *PeakDemandConfig
	SpecialHours *SpecialHoursConfig

	// TTLMinutes overrides the configured peak demand TTL for this
	// activation. Ignored for special hours, whose window is always the
	// rest of the current day.
	TTLMinutes *int
}

// UpdateRequest merges the supplied fields into the currently active config.
// Unset pointers leave the stored value untouched.
type UpdateRequest struct {
	Kind ModeKind

	PeakDemand   *PeakDemandPatch
	SpecialHours *SpecialHoursPatch
}

type PeakDemandPatch struct {
	EtaDeltaMinutes    *int     `json:"eta_delta_minutes,omitempty"`
	MaxOrdersPerHour   *int     `json:"max_orders_per_hour,omitempty"`
	PriceMultiplier    *float64 `json:"price_multiplier,omitempty"`
	DisabledProductIDs []string `json:"disabled_product_ids,omitempty"`
}

type SpecialHoursPatch struct {
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

type GetRequest struct {
	Kind ModeKind
}

type DeactivateRequest struct {
	Kind ModeKind
}

// Service is the operational-mode store. Every operation is scoped to the
// tenant carried in ctx and applies lazy expiry before acting: no caller can
// ever observe a state that is active past its expiry.
type Service interface {
	Activate(ctx context.Context, req ActivateRequest) (ModeState, error)
	Update(ctx context.Context, req UpdateRequest) (ModeState, error)
	Deactivate(ctx context.Context, req DeactivateRequest) error
	Get(ctx context.Context, req GetRequest) (ModeState, error)
	List(ctx context.Context) ([]ModeState, error)

	// SweepExpired flips states that are active past expiry, across all
	// tenants, and returns the transitioned states. Purely observational;
	// lazy expiry already guarantees correctness without it.
	SweepExpired(ctx context.Context, limit int) ([]ModeState, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidKind   = errors.New("invalid_kind")
	ErrInvalidConfig = errors.New("invalid_config")
	ErrNotActive     = errors.New("not_active")
)
