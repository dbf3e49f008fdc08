package effect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/config"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	opmoderepository "github.com/mesaops/comanda/internal/opmode/repository"
	opmodeservice "github.com/mesaops/comanda/internal/opmode/service"
	"github.com/mesaops/comanda/internal/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupResolver(t *testing.T, clk clock.Clock) (*Resolver, opmodedomain.Service, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, db.AutoMigrate(&opmodedomain.ModeState{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	modes := opmodeservice.New(opmodeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  opmoderepository.Provide(),
		Clock: clk,
		Modes: config.NewStaticModesConfigHolder(config.ModesConfig{
			PeakDemandTTLMinutes: 60,
			Timezone:             "UTC",
		}),
	})
	resolver := NewResolver(Params{Log: zap.NewNop(), Modes: modes})
	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())
	return resolver, modes, ctx
}

func TestResolveNoActiveModes(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	resolver, _, ctx := setupResolver(t, clk)

	snap, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeutralSnapshot(), snap)
	assert.Equal(t, 1.0, snap.PriceMultiplier)
	assert.Empty(t, snap.DisabledProductIDs)
	assert.Nil(t, snap.OrderRateCeiling)
	assert.Nil(t, snap.SpecialHoursWindow)
}

func TestResolvePeakDemand(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	resolver, modes, ctx := setupResolver(t, clk)

	max := 10
	_, err := modes.Activate(ctx, opmodedomain.ActivateRequest{
		Kind: opmodedomain.KindPeakDemand,
		PeakDemand: &opmodedomain.PeakDemandConfig{
			EtaDeltaMinutes:    20,
			MaxOrdersPerHour:   &max,
			PriceMultiplier:    1.15,
			DisabledProductIDs: []string{"p1"},
		},
	})
	require.NoError(t, err)

	snap, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, snap.EtaDeltaMinutes)
	assert.Equal(t, 1.15, snap.PriceMultiplier)
	require.NotNil(t, snap.OrderRateCeiling)
	assert.Equal(t, 10, *snap.OrderRateCeiling)
	assert.Equal(t, []string{"p1"}, snap.DisabledProductIDs)
	assert.Nil(t, snap.SpecialHoursWindow)
}

func TestResolveSpecialHoursOnlySetsWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	resolver, modes, ctx := setupResolver(t, clk)

	_, err := modes.Activate(ctx, opmodedomain.ActivateRequest{
		Kind:         opmodedomain.KindSpecialHours,
		SpecialHours: &opmodedomain.SpecialHoursConfig{StartTime: "18:00", EndTime: "23:00"},
	})
	require.NoError(t, err)

	snap, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.SpecialHoursWindow)
	assert.Equal(t, "18:00", snap.SpecialHoursWindow.Start)
	assert.Equal(t, "23:00", snap.SpecialHoursWindow.End)

	// Window never bleeds into pricing or ETA.
	assert.Equal(t, 0, snap.EtaDeltaMinutes)
	assert.Equal(t, 1.0, snap.PriceMultiplier)
}

func TestResolveAfterExpiryIsNeutral(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	resolver, modes, ctx := setupResolver(t, clk)

	_, err := modes.Activate(ctx, opmodedomain.ActivateRequest{
		Kind:       opmodedomain.KindPeakDemand,
		PeakDemand: &opmodedomain.PeakDemandConfig{EtaDeltaMinutes: 15, PriceMultiplier: 1.2},
	})
	require.NoError(t, err)

	clk.Advance(61 * time.Minute)

	snap, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeutralSnapshot(), snap)
}

func TestResolveCombinesBothModes(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	resolver, modes, ctx := setupResolver(t, clk)

	_, err := modes.Activate(ctx, opmodedomain.ActivateRequest{
		Kind:       opmodedomain.KindPeakDemand,
		PeakDemand: &opmodedomain.PeakDemandConfig{EtaDeltaMinutes: 25, PriceMultiplier: 1.3},
	})
	require.NoError(t, err)
	_, err = modes.Activate(ctx, opmodedomain.ActivateRequest{
		Kind:         opmodedomain.KindSpecialHours,
		SpecialHours: &opmodedomain.SpecialHoursConfig{StartTime: "11:00", EndTime: "22:00"},
	})
	require.NoError(t, err)

	snap, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, snap.EtaDeltaMinutes)
	assert.Equal(t, 1.3, snap.PriceMultiplier)
	require.NotNil(t, snap.SpecialHoursWindow)
	assert.Equal(t, "11:00", snap.SpecialHoursWindow.Start)
}
