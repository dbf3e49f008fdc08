package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mesaops/comanda/internal/clock"
	"github.com/mesaops/comanda/internal/config"
	costreportdomain "github.com/mesaops/comanda/internal/costreport/domain"
	costreportrepository "github.com/mesaops/comanda/internal/costreport/repository"
	costreportservice "github.com/mesaops/comanda/internal/costreport/service"
	"github.com/mesaops/comanda/internal/effect"
	ledgerdomain "github.com/mesaops/comanda/internal/ledger/domain"
	ledgerrepository "github.com/mesaops/comanda/internal/ledger/repository"
	ledgerservice "github.com/mesaops/comanda/internal/ledger/service"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	opmoderepository "github.com/mesaops/comanda/internal/opmode/repository"
	opmodeservice "github.com/mesaops/comanda/internal/opmode/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestServer(t *testing.T) (*Server, *clock.FakeClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, db.AutoMigrate(
		&opmodedomain.ModeState{},
		&ledgerdomain.OrderRecord{},
		&ledgerdomain.ConsumptionRecord{},
		&ledgerdomain.LaborRecord{},
		&ledgerdomain.ExpenseRecord{},
		&costreportdomain.DailyCostReport{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticModesConfigHolder(config.ModesConfig{
		PeakDemandTTLMinutes: 60,
		Timezone:             "UTC",
	})

	modeSvc := opmodeservice.New(opmodeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  opmoderepository.Provide(),
		Clock: clk,
		Modes: holder,
	})
	resolver := effect.NewResolver(effect.Params{Log: zap.NewNop(), Modes: modeSvc})

	orders := ledgerrepository.ProvideOrderLedger()
	consumption := ledgerrepository.ProvideConsumptionLedger()
	labor := ledgerrepository.ProvideLaborLedger()
	expenses := ledgerrepository.ProvideExpenseLedger()

	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Orders:      orders,
		Consumption: consumption,
		Labor:       labor,
		Expenses:    expenses,
	})
	reportSvc := costreportservice.New(costreportservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Modes:       holder,
		Reports:     costreportrepository.Provide(),
		Orders:      orders,
		Consumption: consumption,
		Labor:       labor,
		Expenses:    expenses,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{HTTPAddr: ":0"},
		GenID:     node,
		ModeSvc:   modeSvc,
		Resolver:  resolver,
		LedgerSvc: ledgerSvc,
		ReportSvc: reportSvc,
	})
	return srv, clk
}

func doRequest(t *testing.T, srv *Server, method, path, tenant, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestMissingTenantHeader(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/modes", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_tenant")
}

func TestActivateAndGetModeOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	body := `{"peak_demand":{"eta_delta_minutes":20,"price_multiplier":1.15,"max_orders_per_hour":10}}`
	rec := doRequest(t, srv, http.MethodPost, "/v1/modes/peak_demand/activate", "42", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/v1/modes/peak_demand", "42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data opmodedomain.ModeState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Active)
	assert.Equal(t, opmodedomain.KindPeakDemand, resp.Data.Kind)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	body := `{"peak_demand":{"eta_delta_minutes":20,"price_multiplier":1.15}}`
	rec := doRequest(t, srv, http.MethodPost, "/v1/modes/peak_demand/activate", "42", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/modes/peak_demand", "43", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data opmodedomain.ModeState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Active)
}

func TestInvalidKindOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/modes/happy_hour", "42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_kind")
}

func TestUpdateInactiveConflict(t *testing.T) {
	srv, _ := setupTestServer(t)

	body := `{"peak_demand":{"eta_delta_minutes":30}}`
	rec := doRequest(t, srv, http.MethodPatch, "/v1/modes/peak_demand", "42", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeactivateNoContent(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodDelete, "/v1/modes/peak_demand", "42", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResolveEffectsOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/effects", "42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data effect.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, resp.Data.PriceMultiplier)
}

func TestReportNotFoundOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/reports/daily/2026-08-30", "42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerIngestAndReportOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/v1/ledgers/orders", "42",
		`{"amount":2500,"payment_method":"card","placed_at":"2026-08-31T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPost, "/v1/reports/daily/2026-08-31/generate", "42", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data costreportdomain.DailyCostReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2500), resp.Data.TotalSales)
	assert.Equal(t, int64(1), resp.Data.OrdersCount)

	rec = doRequest(t, srv, http.MethodGet, "/v1/reports/daily/2026-08-31", "42", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLedgerValidationOverHTTP(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/v1/ledgers/orders", "42",
		`{"amount":-5,"payment_method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_record")
}
