package effect

import (
	"context"

	obsmetrics "github.com/mesaops/comanda/internal/observability/metrics"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Snapshot is the resolved union of all active modes for a tenant at a point
// in time. It is recomputed on every call and must not be cached beyond a
// single quote by the order pipeline.
type Snapshot struct {
	EtaDeltaMinutes    int      `json:"eta_delta_minutes"`
	PriceMultiplier    float64  `json:"price_multiplier"`
	OrderRateCeiling   *int     `json:"order_rate_ceiling,omitempty"`
	DisabledProductIDs []string `json:"disabled_product_ids"`

	// SpecialHoursWindow only overrides the advertised operating hours; it
	// never alters price or ETA. The order pipeline decides what to do with
	// it.
	SpecialHoursWindow *Window `json:"special_hours_window,omitempty"`
}

type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NeutralSnapshot is the effect of having no active modes at all.
func NeutralSnapshot() Snapshot {
	return Snapshot{
		PriceMultiplier:    1.0,
		DisabledProductIDs: []string{},
	}
}

type Params struct {
	fx.In

	Log   *zap.Logger
	Modes opmodedomain.Service
}

type Resolver struct {
	log   *zap.Logger
	modes opmodedomain.Service
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:   p.Log.Named("effect.resolver"),
		modes: p.Modes,
	}
}

// contributor folds one mode kind into the snapshot. Each kind owns its own
// snapshot fields, so adding a kind means adding a contributor, not touching
// the existing ones. The two reads are deliberately independent: observing
// one freshly expired mode next to one still-active mode is a consistent
// outcome, not a race.
type contributor func(ctx context.Context, modes opmodedomain.Service, snap *Snapshot) error

var contributors = []contributor{
	applyPeakDemand,
	applySpecialHours,
}

// Resolve computes the net effect of the tenant's active modes. The order
// pipeline calls this before quoting price and ETA to a customer.
func (r *Resolver) Resolve(ctx context.Context) (Snapshot, error) {
	snap := NeutralSnapshot()
	for _, apply := range contributors {
		if err := apply(ctx, r.modes, &snap); err != nil {
			return Snapshot{}, err
		}
	}
	obsmetrics.Modes().IncEffectResolution()
	return snap, nil
}

func applyPeakDemand(ctx context.Context, modes opmodedomain.Service, snap *Snapshot) error {
	state, err := modes.Get(ctx, opmodedomain.GetRequest{Kind: opmodedomain.KindPeakDemand})
	if err != nil {
		return err
	}
	if !state.Active {
		return nil
	}

	cfg, err := state.PeakDemandConfig()
	if err != nil {
		return err
	}
	snap.EtaDeltaMinutes = cfg.EtaDeltaMinutes
	snap.PriceMultiplier = cfg.PriceMultiplier
	snap.OrderRateCeiling = cfg.MaxOrdersPerHour
	if cfg.DisabledProductIDs != nil {
		snap.DisabledProductIDs = cfg.DisabledProductIDs
	}
	return nil
}

func applySpecialHours(ctx context.Context, modes opmodedomain.Service, snap *Snapshot) error {
	state, err := modes.Get(ctx, opmodedomain.GetRequest{Kind: opmodedomain.KindSpecialHours})
	if err != nil {
		return err
	}
	if !state.Active {
		return nil
	}

	cfg, err := state.SpecialHoursConfig()
	if err != nil {
		return err
	}
	snap.SpecialHoursWindow = &Window{
		Start: cfg.StartTime,
		End:   cfg.EndTime,
	}
	return nil
}
