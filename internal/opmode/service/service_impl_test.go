package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/config"
	"github.com/mesaops/comanda/internal/opmode/domain"
	"github.com/mesaops/comanda/internal/opmode/repository"
	"github.com/mesaops/comanda/internal/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupModeService(t *testing.T, node *snowflake.Node, clk clock.Clock, modesCfg config.ModesConfig) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(&domain.ModeState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
		Modes: config.NewStaticModesConfigHolder(modesCfg),
	})
	return svc, db
}

func testModesConfig() config.ModesConfig {
	return config.ModesConfig{
		PeakDemandTTLMinutes: 60,
		Timezone:             "UTC",
	}
}

func peakConfig() *domain.PeakDemandConfig {
	max := 10
	return &domain.PeakDemandConfig{
		EtaDeltaMinutes:    20,
		MaxOrdersPerHour:   &max,
		PriceMultiplier:    1.15,
		DisabledProductIDs: []string{"prod-1"},
	}
}

func TestActivateAndGetPeakDemand(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	activated, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.Active {
		t.Fatal("expected activated state to be active")
	}
	if activated.ExpiresAt == nil || !activated.ExpiresAt.Equal(clk.Now().Add(60*time.Minute)) {
		t.Fatalf("expected expiry at now+60m, got %v", activated.ExpiresAt)
	}

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cfg, err := got.PeakDemandConfig()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.EtaDeltaMinutes != 20 || cfg.PriceMultiplier != 1.15 {
		t.Fatalf("config did not round-trip: %+v", cfg)
	}
	if cfg.MaxOrdersPerHour == nil || *cfg.MaxOrdersPerHour != 10 {
		t.Fatalf("expected max orders 10, got %v", cfg.MaxOrdersPerHour)
	}
}

func TestActivateTTLOverride(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	ttl := 15
	state, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
		TTLMinutes: &ttl,
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if state.ExpiresAt == nil || !state.ExpiresAt.Equal(clk.Now().Add(15*time.Minute)) {
		t.Fatalf("expected expiry at now+15m, got %v", state.ExpiresAt)
	}

	bad := -1
	_, err = svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
		TTLMinutes: &bad,
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for negative ttl, got %v", err)
	}
}

func TestLazyExpiry(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	if _, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	clk.Advance(61 * time.Minute)

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got.Active {
		t.Fatal("expected mode to be inactive past expiry")
	}
	if len(got.Config) != 0 {
		t.Fatalf("expected config cleared on expiry, got %s", got.Config)
	}

	// A second read of the already-settled state must be identical.
	again, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again.Active {
		t.Fatal("expected settled state to stay inactive")
	}
}

func TestStaleExpiryWriteKeepsReactivation(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, db := setupModeService(t, node, clk, testModesConfig())
	impl := svc.(*Service)
	tenantID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	if _, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	clk.Advance(61 * time.Minute)

	// A slow reader loads the expired row before the admin re-activates.
	stale, err := impl.repo.Find(ctx, db, tenantID, domain.KindPeakDemand)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stale == nil || !stale.Active {
		t.Fatal("expected stored row still active before any expiry write")
	}

	fresh, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	// The reader's expiry write lands after the re-activation.
	if err := impl.applyLazyExpiry(ctx, stale, clk.Now()); err != nil {
		t.Fatalf("lazy expiry: %v", err)
	}
	if stale.Active {
		t.Fatal("expected the reader to report its expired view")
	}

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Active {
		t.Fatal("expected the re-activation to survive the stale expiry write")
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*fresh.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", fresh.ExpiresAt, got.ExpiresAt)
	}
	if got.Config == nil {
		t.Fatal("expected the re-activation config to survive")
	}
}

func TestGetNeverActivated(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindSpecialHours})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("expected inactive zero state")
	}
	if got.Kind != domain.KindSpecialHours {
		t.Fatalf("expected kind echoed, got %s", got.Kind)
	}
}

func TestDeactivateIdempotent(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	// Deactivating a mode that never existed is a no-op.
	if err := svc.Deactivate(ctx, domain.DeactivateRequest{Kind: domain.KindPeakDemand}); err != nil {
		t.Fatalf("deactivate absent: %v", err)
	}

	if _, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := svc.Deactivate(ctx, domain.DeactivateRequest{Kind: domain.KindPeakDemand}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.Deactivate(ctx, domain.DeactivateRequest{Kind: domain.KindPeakDemand}); err != nil {
		t.Fatalf("deactivate twice: %v", err)
	}

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("expected mode inactive after deactivate")
	}
}

func TestUpdateInactiveFails(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	eta := 30
	_, err := svc.Update(ctx, domain.UpdateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: &domain.PeakDemandPatch{EtaDeltaMinutes: &eta},
	})
	if !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestUpdatePartialMerge(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	activated, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	eta := 45
	updated, err := svc.Update(ctx, domain.UpdateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: &domain.PeakDemandPatch{EtaDeltaMinutes: &eta},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	cfg, err := updated.PeakDemandConfig()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.EtaDeltaMinutes != 45 {
		t.Fatalf("expected eta 45, got %d", cfg.EtaDeltaMinutes)
	}
	if cfg.PriceMultiplier != 1.15 {
		t.Fatalf("expected untouched multiplier 1.15, got %v", cfg.PriceMultiplier)
	}
	if cfg.MaxOrdersPerHour == nil || *cfg.MaxOrdersPerHour != 10 {
		t.Fatalf("expected untouched max orders, got %v", cfg.MaxOrdersPerHour)
	}

	// Updating must never extend the activation window.
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(*activated.ExpiresAt) {
		t.Fatalf("expected expiry unchanged, got %v vs %v", updated.ExpiresAt, activated.ExpiresAt)
	}
}

func TestActivateInvalidConfig(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	cases := []domain.ActivateRequest{
		{Kind: domain.KindPeakDemand},
		{Kind: domain.KindPeakDemand, PeakDemand: &domain.PeakDemandConfig{EtaDeltaMinutes: 200, PriceMultiplier: 1.1}},
		{Kind: domain.KindPeakDemand, PeakDemand: &domain.PeakDemandConfig{EtaDeltaMinutes: 10, PriceMultiplier: 2.5}},
		{Kind: domain.KindSpecialHours, SpecialHours: &domain.SpecialHoursConfig{StartTime: "25:00", EndTime: "18:00"}},
		{Kind: domain.KindSpecialHours, SpecialHours: &domain.SpecialHoursConfig{StartTime: "10:00", EndTime: "10:00"}},
	}
	for i, req := range cases {
		if _, err := svc.Activate(ctx, req); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}

	if _, err := svc.Activate(ctx, domain.ActivateRequest{Kind: "happy_hour"}); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestSpecialHoursExpiresAtEndOfDay(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	state, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:         domain.KindSpecialHours,
		SpecialHours: &domain.SpecialHoursConfig{StartTime: "18:00", EndTime: "02:00"},
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if state.ExpiresAt == nil || !state.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, state.ExpiresAt)
	}
}

func TestReactivateReplacesConfig(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	first, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	})
	if err != nil {
		t.Fatalf("first activate: %v", err)
	}

	second, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: &domain.PeakDemandConfig{EtaDeltaMinutes: 5, PriceMultiplier: 1.5},
	})
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected stable row identity, got %s vs %s", first.ID, second.ID)
	}
	cfg, err := second.PeakDemandConfig()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.EtaDeltaMinutes != 5 || cfg.PriceMultiplier != 1.5 {
		t.Fatalf("expected replaced config, got %+v", cfg)
	}
}

func TestListFillsMissingKinds(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	if _, err := svc.Activate(ctx, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	states, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != len(domain.AllKinds()) {
		t.Fatalf("expected one entry per kind, got %d", len(states))
	}

	byKind := make(map[domain.ModeKind]domain.ModeState, len(states))
	for _, state := range states {
		byKind[state.Kind] = state
	}
	if !byKind[domain.KindPeakDemand].Active {
		t.Fatal("expected peak demand active")
	}
	if byKind[domain.KindSpecialHours].Active {
		t.Fatal("expected special hours inactive")
	}
}

func TestConcurrentActivationsNeverMixConfigs(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())

	configA := domain.PeakDemandConfig{EtaDeltaMinutes: 10, PriceMultiplier: 1.1}
	configB := domain.PeakDemandConfig{EtaDeltaMinutes: 90, PriceMultiplier: 1.9}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		cfg := configA
		if i%2 == 1 {
			cfg = configB
		}
		wg.Add(1)
		go func(cfg domain.PeakDemandConfig) {
			defer wg.Done()
			_, err := svc.Activate(ctx, domain.ActivateRequest{
				Kind:       domain.KindPeakDemand,
				PeakDemand: &cfg,
			})
			errs <- err
		}(cfg)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent activate: %v", err)
		}
	}

	got, err := svc.Get(ctx, domain.GetRequest{Kind: domain.KindPeakDemand})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var final domain.PeakDemandConfig
	if err := json.Unmarshal(got.Config, &final); err != nil {
		t.Fatalf("decode final config: %v", err)
	}

	matchesA := final.EtaDeltaMinutes == configA.EtaDeltaMinutes && final.PriceMultiplier == configA.PriceMultiplier
	matchesB := final.EtaDeltaMinutes == configB.EtaDeltaMinutes && final.PriceMultiplier == configB.PriceMultiplier
	if !matchesA && !matchesB {
		t.Fatalf("final config is a mix of writers: %+v", final)
	}
}

func TestSweepExpiredSettlesStates(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())

	tenantA := node.Generate()
	tenantB := node.Generate()
	ctxA := tenantctx.WithTenantID(context.Background(), tenantA)
	ctxB := tenantctx.WithTenantID(context.Background(), tenantB)

	if _, err := svc.Activate(ctxA, domain.ActivateRequest{
		Kind:       domain.KindPeakDemand,
		PeakDemand: peakConfig(),
	}); err != nil {
		t.Fatalf("activate tenant A: %v", err)
	}
	if _, err := svc.Activate(ctxB, domain.ActivateRequest{
		Kind:         domain.KindSpecialHours,
		SpecialHours: &domain.SpecialHoursConfig{StartTime: "09:00", EndTime: "17:00"},
	}); err != nil {
		t.Fatalf("activate tenant B: %v", err)
	}

	clk.Advance(13 * time.Hour)

	swept, err := svc.SweepExpired(context.Background(), 100)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(swept) != 2 {
		t.Fatalf("expected 2 swept states, got %d", len(swept))
	}
	for _, state := range swept {
		if state.Active {
			t.Fatalf("swept state still active: %+v", state)
		}
	}

	// Sweeping again finds nothing.
	again, err := svc.SweepExpired(context.Background(), 100)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected empty second sweep, got %d", len(again))
	}
}

func TestMissingTenantRejected(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	svc, _ := setupModeService(t, node, clk, testModesConfig())

	_, err := svc.Get(context.Background(), domain.GetRequest{Kind: domain.KindPeakDemand})
	if !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}
