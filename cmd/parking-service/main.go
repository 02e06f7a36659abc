package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"parking-service/internal/auth"
	"parking-service/internal/config"
	httphandler "parking-service/internal/http"
	"parking-service/internal/http/middleware"
	"parking-service/internal/hub"
	"parking-service/internal/logger"
	"parking-service/internal/model"
	"parking-service/internal/repository"
	"parking-service/internal/service"
	"parking-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	lotFile, err := config.LoadLot(cfg.LotConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load lot config")
	}

	locations, err := buildTopology(lotFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid lot topology")
	}
	fees, err := buildFees(lotFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fee table")
	}
	gates := buildGates(lotFile)
	operators, err := buildOperators(lotFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid operator accounts")
	}

	index := repository.NewAvailableSpotsIndex()
	history := repository.NewHistoryStore()

	// Fee/topology consistency is checked here once; a failure keeps the
	// lot out of service.
	lot, err := service.NewParkingLot(service.ParkingLotParams{
		Name:          lotFile.Name,
		Location:      lotFile.Location,
		SpotLocations: locations,
		Fees:          fees,
		Gates:         gates,
		Index:         index,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct parking lot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventHub := hub.New(log)
	go eventHub.Run(ctx)

	var tickets service.TicketService = service.NewTicketManager(
		fees,
		service.SystemClock(),
		service.NewIndexAvailabilityObserver(index),
		service.NewStoreHistoryObserver(history),
		service.NewSinkEventObserver(eventHub),
	)

	var provider *telemetry.Provider
	if cfg.Telemetry.Enabled {
		provider, err = telemetry.NewProvider()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init telemetry")
		}
		tickets, err = telemetry.NewInstrumentedTicketManager(tickets, provider)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to instrument ticket manager")
		}
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	tokenIssuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(operators, tokenIssuer)

	handler := httphandler.NewHandler(tickets, lot, index, history, authService, log)
	wsHandler := httphandler.NewWSHandler(eventHub, cfg.Hub.ClientBufferSize)

	var extra []gin.HandlerFunc
	if cfg.Telemetry.Enabled {
		extra = append(extra, otelgin.Middleware(lotFile.Name))
	}
	router := httphandler.NewRouter(handler, wsHandler, middleware.Auth(tokenParser), cfg.Environment, extra...)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("lot", lot.Name()).
			Int("levels", lot.Levels()).
			Int("rows", lot.Rows()).
			Int("spots", lot.Spots()).
			Msg("starting parking service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if provider != nil {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}
}

func buildTopology(lotFile *config.LotFile) ([]model.SpotLocation, error) {
	var levels []model.Level
	for _, level := range lotFile.Levels {
		var rows []model.Row
		for _, row := range level.Rows {
			var spots []*model.Spot
			for _, spot := range row.Spots {
				spotType, err := model.ParseSpotType(spot.Type)
				if err != nil {
					return nil, fmt.Errorf("spot %q: %w", spot.Name, err)
				}
				spots = append(spots, model.NewSpot(spot.Name, spotType, level.Name, row.Name))
			}
			rows = append(rows, model.Row{Name: row.Name, Spots: spots})
		}
		levels = append(levels, model.Level{Name: level.Name, Rows: rows})
	}
	return model.FlattenLevels(levels), nil
}

func buildFees(lotFile *config.LotFile) (service.FeeStructure, error) {
	fees := make(service.FeeStructure, len(lotFile.Fees))
	for rawType, fee := range lotFile.Fees {
		spotType, err := model.ParseSpotType(rawType)
		if err != nil {
			return nil, err
		}
		fees[spotType] = service.FeePolicy{BaseFee: fee.BaseFee, PerMinute: fee.PerMinute}
	}
	return fees, nil
}

func buildGates(lotFile *config.LotFile) []service.Gate {
	gates := make([]service.Gate, 0, len(lotFile.Gates))
	for _, gate := range lotFile.Gates {
		gates = append(gates, service.Gate{
			ID:        gate.ID,
			Direction: service.GateDirection(gate.Direction),
		})
	}
	return gates
}

func buildOperators(lotFile *config.LotFile) ([]service.Operator, error) {
	operators := make([]service.Operator, 0, len(lotFile.Operators))
	for _, op := range lotFile.Operators {
		role := model.OperatorRole(op.Role)
		if role != model.OperatorRoleAttendant && role != model.OperatorRoleSupervisor {
			return nil, fmt.Errorf("operator %q: unknown role %q", op.Username, op.Role)
		}
		operators = append(operators, service.Operator{
			Username:     op.Username,
			PasswordHash: op.PasswordHash,
			Role:         role,
		})
	}
	return operators, nil
}
