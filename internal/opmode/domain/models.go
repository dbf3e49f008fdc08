package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ModeKind identifies a time-bound operational mode. New kinds extend this
// enum without touching the store.
type ModeKind string

const (
	KindPeakDemand   ModeKind = "peak_demand"
	KindSpecialHours ModeKind = "special_hours"
)

// AllKinds lists every known mode kind, in resolution order.
func AllKinds() []ModeKind {
	return []ModeKind{KindPeakDemand, KindSpecialHours}
}

func ParseKind(raw string) (ModeKind, error) {
	kind := ModeKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllKinds() {
		if kind == known {
			return kind, nil
		}
	}
	return "", ErrInvalidKind
}

// ModeState is the stored state for one (tenant, kind) pair. Config holds
// the kind-specific JSON document and is cleared whenever the mode goes
// inactive. A row with Active set and ExpiresAt in the past must never leave
// the service layer; lazy expiry resolves it to inactive first.
type ModeState struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID   `gorm:"not null;uniqueIndex:ux_mode_states_tenant_kind" json:"tenant_id"`
	Kind        ModeKind       `gorm:"not null;uniqueIndex:ux_mode_states_tenant_kind" json:"kind"`
	Active      bool           `gorm:"not null;default:false" json:"active"`
	Config      datatypes.JSON `gorm:"type:jsonb" json:"config,omitempty"`
	ActivatedAt *time.Time     `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ModeState) TableName() string {
	return "mode_states"
}

// PeakDemandConfig returns the typed config for an active peak demand state.
func (s ModeState) PeakDemandConfig() (PeakDemandConfig, error) {
	var cfg PeakDemandConfig
	if s.Kind != KindPeakDemand || len(s.Config) == 0 {
		return cfg, ErrInvalidKind
	}
	if err := json.Unmarshal(s.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("decode peak demand config: %w", err)
	}
	return cfg, nil
}

// SpecialHoursConfig returns the typed config for an active special hours state.
func (s ModeState) SpecialHoursConfig() (SpecialHoursConfig, error) {
	var cfg SpecialHoursConfig
	if s.Kind != KindSpecialHours || len(s.Config) == 0 {
		return cfg, ErrInvalidKind
	}
	if err := json.Unmarshal(s.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("decode special hours config: %w", err)
	}
	return cfg, nil
}

const (
	MaxEtaDeltaMinutes = 120
	MinPriceMultiplier = 1.0
	MaxPriceMultiplier = 2.0
)

// PeakDemandConfig raises quoted ETAs and prices while the kitchen is
// saturated, optionally capping order intake and hiding slow products.
type PeakDemandConfig struct {
	EtaDeltaMinutes    int      `json:"eta_delta_minutes"`
	MaxOrdersPerHour   *int     `json:"max_orders_per_hour,omitempty"`
	PriceMultiplier    float64  `json:"price_multiplier"`
	DisabledProductIDs []string `json:"disabled_product_ids"`
}

func (c PeakDemandConfig) Validate() error {
	if c.EtaDeltaMinutes < 0 || c.EtaDeltaMinutes > MaxEtaDeltaMinutes {
		return fmt.Errorf("%w: eta_delta_minutes must be within [0, %d]", ErrInvalidConfig, MaxEtaDeltaMinutes)
	}
	if c.PriceMultiplier < MinPriceMultiplier || c.PriceMultiplier > MaxPriceMultiplier {
		return fmt.Errorf("%w: price_multiplier must be within [%.1f, %.1f]", ErrInvalidConfig, MinPriceMultiplier, MaxPriceMultiplier)
	}
	if c.MaxOrdersPerHour != nil && *c.MaxOrdersPerHour <= 0 {
		return fmt.Errorf("%w: max_orders_per_hour must be positive", ErrInvalidConfig)
	}
	for _, id := range c.DisabledProductIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: disabled_product_ids must not contain blank ids", ErrInvalidConfig)
		}
	}
	return nil
}

// SpecialHoursConfig overrides the advertised operating hours for the rest
// of the current day. EndTime numerically before StartTime means the window
// crosses midnight (e.g. 18:00-00:00); expiry is end of day either way.
type SpecialHoursConfig struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

const timeOfDayLayout = "15:04"

func (c SpecialHoursConfig) Validate() error {
	start, err := time.Parse(timeOfDayLayout, strings.TrimSpace(c.StartTime))
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidConfig)
	}
	end, err := time.Parse(timeOfDayLayout, strings.TrimSpace(c.EndTime))
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidConfig)
	}
	if start.Equal(end) {
		return fmt.Errorf("%w: start_time and end_time must differ", ErrInvalidConfig)
	}
	return nil
}
