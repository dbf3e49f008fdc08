package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/config"
	obsmetrics "github.com/mesaops/comanda/internal/observability/metrics"
	"github.com/mesaops/comanda/internal/opmode/domain"
	"github.com/mesaops/comanda/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockStripes = 64

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Modes *config.ModesConfigHolder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
	modes *config.ModesConfigHolder

	// Mutations for a (tenant, kind) key are serialized through a striped
	// mutex so concurrent activations can never interleave into a mixed
	// config. Keys never share a stripe with themselves across tenants
	// in a way that affects correctness, only contention.
	locks [lockStripes]sync.Mutex
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("opmode.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
		modes: p.Modes,
	}
}

func (s *Service) lockFor(tenantID snowflake.ID, kind domain.ModeKind) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", tenantID, kind)
	return &s.locks[h.Sum32()%lockStripes]
}

func (s *Service) Activate(ctx context.Context, req domain.ActivateRequest) (domain.ModeState, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ModeState{}, domain.ErrInvalidTenant
	}

	kind, err := domain.ParseKind(string(req.Kind))
	if err != nil {
		return domain.ModeState{}, err
	}

	now := s.clock.Now()
	rawConfig, expiresAt, err := s.buildActivation(kind, req, now)
	if err != nil {
		return domain.ModeState{}, err
	}

	mu := s.lockFor(tenantID, kind)
	mu.Lock()
	defer mu.Unlock()

	prior, err := s.repo.Find(ctx, s.db, tenantID, kind)
	if err != nil {
		return domain.ModeState{}, err
	}

	state := domain.ModeState{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Kind:        kind,
		Active:      true,
		Config:      rawConfig,
		ActivatedAt: &now,
		ExpiresAt:   &expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if prior != nil {
		state.ID = prior.ID
		state.CreatedAt = prior.CreatedAt
	}

	if err := s.repo.Upsert(ctx, s.db, &state); err != nil {
		return domain.ModeState{}, err
	}

	obsmetrics.Modes().IncModeTransition(string(kind), obsmetrics.ModeTransitionActivated)
	s.log.Info("mode activated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", string(kind)),
		zap.Time("expires_at", expiresAt),
	)
	return state, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.ModeState, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ModeState{}, domain.ErrInvalidTenant
	}

	kind, err := domain.ParseKind(string(req.Kind))
	if err != nil {
		return domain.ModeState{}, err
	}

	mu := s.lockFor(tenantID, kind)
	mu.Lock()
	defer mu.Unlock()

	now := s.clock.Now()
	state, err := s.freshened(ctx, tenantID, kind, now)
	if err != nil {
		return domain.ModeState{}, err
	}
	if state == nil || !state.Active {
		return domain.ModeState{}, domain.ErrNotActive
	}

	merged, err := mergeConfig(*state, req)
	if err != nil {
		return domain.ModeState{}, err
	}

	state.Config = merged
	state.UpdatedAt = now
	if err := s.repo.Upsert(ctx, s.db, state); err != nil {
		return domain.ModeState{}, err
	}

	obsmetrics.Modes().IncModeTransition(string(kind), obsmetrics.ModeTransitionUpdated)
	return *state, nil
}

func (s *Service) Deactivate(ctx context.Context, req domain.DeactivateRequest) error {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}

	kind, err := domain.ParseKind(string(req.Kind))
	if err != nil {
		return err
	}

	mu := s.lockFor(tenantID, kind)
	mu.Lock()
	defer mu.Unlock()

	now := s.clock.Now()
	state, err := s.repo.Find(ctx, s.db, tenantID, kind)
	if err != nil {
		return err
	}
	if state == nil || !state.Active {
		// Deactivating an inactive or unknown mode is a no-op, never an error.
		return nil
	}

	if err := s.repo.MarkInactive(ctx, s.db, tenantID, kind, now); err != nil {
		return err
	}

	obsmetrics.Modes().IncModeTransition(string(kind), obsmetrics.ModeTransitionDeactivated)
	s.log.Info("mode deactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", string(kind)),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.ModeState, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return domain.ModeState{}, domain.ErrInvalidTenant
	}

	kind, err := domain.ParseKind(string(req.Kind))
	if err != nil {
		return domain.ModeState{}, err
	}

	state, err := s.freshened(ctx, tenantID, kind, s.clock.Now())
	if err != nil {
		return domain.ModeState{}, err
	}
	if state == nil {
		// Never activated: report the inactive zero state rather than an error.
		return domain.ModeState{TenantID: tenantID, Kind: kind}, nil
	}
	return *state, nil
}

func (s *Service) List(ctx context.Context) ([]domain.ModeState, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}

	now := s.clock.Now()
	stored, err := s.repo.FindAll(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	byKind := make(map[domain.ModeKind]*domain.ModeState, len(stored))
	for _, state := range stored {
		if state == nil {
			continue
		}
		if err := s.applyLazyExpiry(ctx, state, now); err != nil {
			return nil, err
		}
		byKind[state.Kind] = state
	}

	states := make([]domain.ModeState, 0, len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		if state, ok := byKind[kind]; ok {
			states = append(states, *state)
			continue
		}
		states = append(states, domain.ModeState{TenantID: tenantID, Kind: kind})
	}
	return states, nil
}

func (s *Service) SweepExpired(ctx context.Context, limit int) ([]domain.ModeState, error) {
	if limit <= 0 {
		limit = 100
	}

	now := s.clock.Now()
	candidates, err := s.repo.FindActiveExpired(ctx, s.db, now, limit)
	if err != nil {
		return nil, err
	}

	var swept []domain.ModeState
	for _, state := range candidates {
		if state == nil {
			continue
		}
		mu := s.lockFor(state.TenantID, state.Kind)
		mu.Lock()
		expired, err := s.repo.MarkExpired(ctx, s.db, state.TenantID, state.Kind, now)
		mu.Unlock()
		if err != nil {
			return swept, err
		}
		// Rows re-activated or deactivated since the scan fail the guard.
		if !expired {
			continue
		}

		state.Active = false
		state.Config = nil
		state.UpdatedAt = now
		swept = append(swept, *state)

		obsmetrics.Modes().IncModeTransition(string(state.Kind), obsmetrics.ModeTransitionExpired)
		obsmetrics.Modes().IncSweepExpired(string(state.Kind))
		s.log.Info("mode expired",
			zap.String("tenant_id", state.TenantID.String()),
			zap.String("kind", string(state.Kind)),
			zap.Timep("expired_at", state.ExpiresAt),
		)
	}
	return swept, nil
}

// freshened loads the state and applies lazy expiry. Every read path goes
// through here so no two call sites can disagree about liveness.
func (s *Service) freshened(ctx context.Context, tenantID snowflake.ID, kind domain.ModeKind, now time.Time) (*domain.ModeState, error) {
	state, err := s.repo.Find(ctx, s.db, tenantID, kind)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	if err := s.applyLazyExpiry(ctx, state, now); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) applyLazyExpiry(ctx context.Context, state *domain.ModeState, now time.Time) error {
	if !state.Active || state.ExpiresAt == nil || state.ExpiresAt.After(now) {
		return nil
	}
	// MarkExpired is guarded: if the row was re-activated since this state
	// was loaded, the write is a no-op and the fresh activation stands. The
	// caller still sees the expired view it read.
	expired, err := s.repo.MarkExpired(ctx, s.db, state.TenantID, state.Kind, now)
	if err != nil {
		return err
	}
	state.Active = false
	state.Config = nil
	state.UpdatedAt = now
	if expired {
		obsmetrics.Modes().IncModeTransition(string(state.Kind), obsmetrics.ModeTransitionExpired)
	}
	return nil
}

func (s *Service) buildActivation(kind domain.ModeKind, req domain.ActivateRequest, now time.Time) (datatypes.JSON, time.Time, error) {
	modesCfg := s.modes.Get()

	switch kind {
	case domain.KindPeakDemand:
		if req.PeakDemand == nil {
			return nil, time.Time{}, fmt.Errorf("%w: peak demand config is required", domain.ErrInvalidConfig)
		}
		cfg := *req.PeakDemand
		if cfg.DisabledProductIDs == nil {
			cfg.DisabledProductIDs = []string{}
		}
		if err := cfg.Validate(); err != nil {
			return nil, time.Time{}, err
		}

		ttl := modesCfg.PeakDemandTTL()
		if req.TTLMinutes != nil {
			if *req.TTLMinutes <= 0 {
				return nil, time.Time{}, fmt.Errorf("%w: ttl_minutes must be positive", domain.ErrInvalidConfig)
			}
			ttl = time.Duration(*req.TTLMinutes) * time.Minute
		}

		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, time.Time{}, err
		}
		return datatypes.JSON(raw), now.Add(ttl), nil

	case domain.KindSpecialHours:
		if req.SpecialHours == nil {
			return nil, time.Time{}, fmt.Errorf("%w: special hours config is required", domain.ErrInvalidConfig)
		}
		cfg := *req.SpecialHours
		if err := cfg.Validate(); err != nil {
			return nil, time.Time{}, err
		}

		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, time.Time{}, err
		}
		return datatypes.JSON(raw), endOfDay(now, modesCfg.Location()), nil

	default:
		return nil, time.Time{}, domain.ErrInvalidKind
	}
}

// endOfDay is midnight after now in the tenant's local time. Special hours
// are a same-day override: the configured end time never moves expiry.
func endOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

func mergeConfig(state domain.ModeState, req domain.UpdateRequest) (datatypes.JSON, error) {
	switch state.Kind {
	case domain.KindPeakDemand:
		if req.PeakDemand == nil {
			return nil, fmt.Errorf("%w: peak demand patch is required", domain.ErrInvalidConfig)
		}
		cfg, err := state.PeakDemandConfig()
		if err != nil {
			return nil, err
		}
		patch := req.PeakDemand
		if patch.EtaDeltaMinutes != nil {
			cfg.EtaDeltaMinutes = *patch.EtaDeltaMinutes
		}
		if patch.MaxOrdersPerHour != nil {
			cfg.MaxOrdersPerHour = patch.MaxOrdersPerHour
		}
		if patch.PriceMultiplier != nil {
			cfg.PriceMultiplier = *patch.PriceMultiplier
		}
		if patch.DisabledProductIDs != nil {
			cfg.DisabledProductIDs = patch.DisabledProductIDs
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(cfg)
		return datatypes.JSON(raw), err

	case domain.KindSpecialHours:
		if req.SpecialHours == nil {
			return nil, fmt.Errorf("%w: special hours patch is required", domain.ErrInvalidConfig)
		}
		cfg, err := state.SpecialHoursConfig()
		if err != nil {
			return nil, err
		}
		patch := req.SpecialHours
		if patch.StartTime != nil {
			cfg.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			cfg.EndTime = *patch.EndTime
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(cfg)
		return datatypes.JSON(raw), err

	default:
		return nil, domain.ErrInvalidKind
	}
}
