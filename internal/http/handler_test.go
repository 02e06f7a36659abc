package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parking-service/internal/auth"
	"parking-service/internal/http/middleware"
	"parking-service/internal/hub"
	"parking-service/internal/model"
	"parking-service/internal/repository"
	"parking-service/internal/service"
)

const testSecret = "test-secret"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type env struct {
	router *gin.Engine
	clock  *fakeClock
	index  *repository.AvailableSpotsIndex
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fees := make(service.FeeStructure)
	for _, spotType := range model.AllSpotTypes() {
		fees[spotType] = service.FeePolicy{BaseFee: 2.0, PerMinute: 0.5}
	}

	levels := []model.Level{{
		Name: "L1",
		Rows: []model.Row{{
			Name: "A",
			Spots: []*model.Spot{
				model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A"),
				model.NewSpot("A2", model.SpotTypeCycle, "L1", "A"),
			},
		}},
	}}

	index := repository.NewAvailableSpotsIndex()
	history := repository.NewHistoryStore()

	lot, err := service.NewParkingLot(service.ParkingLotParams{
		Name:          "test-lot",
		SpotLocations: model.FlattenLevels(levels),
		Fees:          fees,
		Gates: []service.Gate{
			{ID: "entry-1", Direction: service.GateDirectionEntry},
			{ID: "exit-1", Direction: service.GateDirectionExit},
		},
		Index: index,
	})
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	manager := service.NewTicketManager(
		fees,
		clock,
		service.NewIndexAvailabilityObserver(index),
		service.NewStoreHistoryObserver(history),
		nil,
	)

	hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.MinCost)
	require.NoError(t, err)

	issuer := auth.NewIssuer(testSecret, time.Hour)
	authService := service.NewAuthService([]service.Operator{
		{Username: "gatekeeper", PasswordHash: string(hash), Role: model.OperatorRoleAttendant},
	}, issuer)

	log := zerolog.Nop()
	handler := NewHandler(manager, lot, index, history, authService, log)
	wsHandler := NewWSHandler(hub.New(log), 8)
	router := NewRouter(handler, wsHandler, middleware.Auth(auth.NewParser(testSecret)), "test")

	return &env{router: router, clock: clock, index: index}
}

func token(t *testing.T, role model.OperatorRole) string {
	t.Helper()
	tok, err := auth.NewIssuer(testSecret, time.Hour).Issue("tester", role)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "gatekeeper",
		"password": "pass123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, dataField(t, rec)["access_token"])

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "gatekeeper",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntryExitFlow(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleAttendant)

	rec := e.do(t, http.MethodPost, "/api/v1/gates/entry/entry-1/tickets", tok, gin.H{
		"plate":        "KA-01",
		"vehicle_type": "regular_vehicle",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	data := dataField(t, rec)
	ticketID := data["id"].(string)
	assert.Equal(t, "KA01", data["plate"])
	assert.Equal(t, "A1", data["spot_name"])

	// The spot is gone from availability while occupied.
	rec = e.do(t, http.MethodGet, "/api/v1/availability/regular_vehicle", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), dataField(t, rec)["count"])

	// Where-is-my-vehicle lookup.
	rec = e.do(t, http.MethodGet, "/api/v1/tickets/active/ka-01", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ticketID, dataField(t, rec)["id"])

	e.clock.Advance(120 * time.Second)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/gates/exit/exit-1/tickets/%s", ticketID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	receipt := dataField(t, rec)
	assert.Equal(t, 3.0, receipt["fee"])
	assert.Equal(t, float64(120), receipt["duration_seconds"])

	rec = e.do(t, http.MethodGet, "/api/v1/availability/regular_vehicle", tok, nil)
	assert.Equal(t, float64(1), dataField(t, rec)["count"])
}

func TestEntryGateValidation(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleAttendant)

	rec := e.do(t, http.MethodPost, "/api/v1/gates/entry/no-such-gate/tickets", tok, gin.H{
		"plate":        "KA-01",
		"vehicle_type": "regular_vehicle",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/gates/entry/exit-1/tickets", tok, gin.H{
		"plate":        "KA-01",
		"vehicle_type": "regular_vehicle",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryTypeMismatch(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleAttendant)

	rec := e.do(t, http.MethodPost, "/api/v1/gates/entry/entry-1/tickets", tok, gin.H{
		"plate":        "KA-01",
		"vehicle_type": "cycle",
		"spot_name":    "A1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryConflictWhenFull(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleAttendant)

	rec := e.do(t, http.MethodPost, "/api/v1/gates/entry/entry-1/tickets", tok, gin.H{
		"plate":        "KA-01",
		"vehicle_type": "regular_vehicle",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The only regular spot is occupied now.
	rec = e.do(t, http.MethodPost, "/api/v1/gates/entry/entry-1/tickets", tok, gin.H{
		"plate":        "KA-02",
		"vehicle_type": "regular_vehicle",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHistoryRequiresSupervisor(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/history", token(t, model.OperatorRoleAttendant), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/history", token(t, model.OperatorRoleSupervisor), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHistoryQueryValidation(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleSupervisor)

	for _, query := range []string{
		"spot_type=hovercraft",
		"open=maybe",
		"date_from=yesterday",
		"limit=abc",
		"offset=1.5",
	} {
		rec := e.do(t, http.MethodGet, "/api/v1/history?"+query, tok, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	rec := e.do(t, http.MethodGet, "/api/v1/history?limit=1&offset=0", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLotStatus(t *testing.T) {
	e := newEnv(t)
	tok := token(t, model.OperatorRoleAttendant)

	rec := e.do(t, http.MethodGet, "/api/v1/status", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := dataField(t, rec)
	assert.Equal(t, "test-lot", status["name"])
	assert.Equal(t, float64(2), status["spots"])
}
