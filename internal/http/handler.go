package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parking-service/internal/model"
	"parking-service/internal/repository"
	"parking-service/internal/service"
)

// A freshly vacated spot can be snatched between allocation and booking;
// the entry flow retries allocation a few times before giving up.
const allocateAttempts = 3

type Handler struct {
	tickets     service.TicketService
	lot         *service.ParkingLot
	index       *repository.AvailableSpotsIndex
	history     *repository.HistoryStore
	authService *service.AuthService
	log         zerolog.Logger
}

func NewHandler(
	tickets service.TicketService,
	lot *service.ParkingLot,
	index *repository.AvailableSpotsIndex,
	history *repository.HistoryStore,
	authService *service.AuthService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		tickets:     tickets,
		lot:         lot,
		index:       index,
		history:     history,
		authService: authService,
		log:         log,
	}
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"access_token": token}))
}

// driveIn is the entry-gate flow: allocate a spot, create the ticket, park.
func (h *Handler) driveIn(c *gin.Context) {
	gate, ok := h.lot.Gate(strings.TrimSpace(c.Param("gateID")))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("unknown gate"))
		return
	}
	if gate.Direction != service.GateDirectionEntry {
		c.JSON(http.StatusBadRequest, errorResponse("not an entry gate"))
		return
	}

	var req struct {
		Plate       string `json:"plate" binding:"required"`
		VehicleType string `json:"vehicle_type" binding:"required"`
		SpotType    string `json:"spot_type"`
		SpotName    string `json:"spot_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicleType, err := model.ParseSpotType(req.VehicleType)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	spotType := vehicleType
	if req.SpotType != "" {
		spotType, err = model.ParseSpotType(req.SpotType)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	vehicle := model.Vehicle{Plate: req.Plate, Type: vehicleType}

	var ticket *model.Ticket
	for attempt := 0; attempt < allocateAttempts; attempt++ {
		spot, allocErr := h.lot.Allocate(spotType, strings.TrimSpace(req.SpotName))
		if allocErr != nil {
			err = allocErr
			break
		}
		ticket, err = h.tickets.CreateTicket(c.Request.Context(), vehicle, spot)
		if err == nil || !errors.Is(err, service.ErrSpotUnavailable) || req.SpotName != "" {
			break
		}
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	ticket, err = h.tickets.Park(c.Request.Context(), ticket.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log.Info().
		Str("gate", gate.ID).
		Str("plate", ticket.Vehicle.Plate).
		Str("spot", ticket.Spot.Name).
		Msg("vehicle parked")

	c.JSON(http.StatusCreated, successResponse(ticketDTO(ticket, gate.ID)))
}

// driveOut is the exit-gate flow: close the ticket and return the receipt.
func (h *Handler) driveOut(c *gin.Context) {
	gate, ok := h.lot.Gate(strings.TrimSpace(c.Param("gateID")))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("unknown gate"))
		return
	}
	if gate.Direction != service.GateDirectionExit {
		c.JSON(http.StatusBadRequest, errorResponse("not an exit gate"))
		return
	}

	ticketID, err := uuid.Parse(strings.TrimSpace(c.Param("ticketID")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	ticket, fee, err := h.tickets.Exit(c.Request.Context(), ticketID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log.Info().
		Str("gate", gate.ID).
		Str("plate", ticket.Vehicle.Plate).
		Str("spot", ticket.Spot.Name).
		Float64("fee", fee).
		Msg("vehicle exited")

	c.JSON(http.StatusOK, successResponse(receiptDTO(ticket, gate.ID, fee)))
}

func (h *Handler) findActiveTicket(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("plate is required"))
		return
	}

	ticket, err := h.tickets.FindActive(plate)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticketDTO(ticket, "")))
}

func (h *Handler) availability(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(gin.H{"by_type": h.index.CountByType()}))
}

func (h *Handler) availabilityByType(c *gin.Context) {
	spotType, err := model.ParseSpotType(c.Param("spotType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	spots := h.index.SpotsByType(spotType)
	names := make([]string, 0, len(spots))
	for _, spot := range spots {
		names = append(names, spot.Name)
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"type":  spotType,
		"count": len(names),
		"spots": names,
	}))
}

func (h *Handler) listHistory(c *gin.Context) {
	filter, err := parseHistoryQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	records := h.history.List(filter)

	c.JSON(http.StatusOK, successResponse(gin.H{"items": records}))
}

func (h *Handler) lotStatus(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.lot.Status()))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrTypeMismatch):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrSpotUnavailable),
		errors.Is(err, service.ErrVehicleAlreadyParked):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func parseHistoryQuery(c *gin.Context) (repository.HistoryFilter, error) {
	var filter repository.HistoryFilter

	filter.Plate = strings.TrimSpace(c.Query("plate"))

	if typeParam := strings.TrimSpace(c.Query("spot_type")); typeParam != "" {
		spotType, err := model.ParseSpotType(typeParam)
		if err != nil {
			return filter, err
		}
		filter.SpotType = spotType
	}
	if openParam := strings.TrimSpace(c.Query("open")); openParam != "" {
		open, err := strconv.ParseBool(openParam)
		if err != nil {
			return filter, err
		}
		filter.OpenOnly = open
	}
	if dateFrom := strings.TrimSpace(c.Query("date_from")); dateFrom != "" {
		ts, err := time.Parse(time.RFC3339, dateFrom)
		if err != nil {
			return filter, err
		}
		filter.From = &ts
	}
	if dateTo := strings.TrimSpace(c.Query("date_to")); dateTo != "" {
		ts, err := time.Parse(time.RFC3339, dateTo)
		if err != nil {
			return filter, err
		}
		filter.To = &ts
	}
	if limit := strings.TrimSpace(c.Query("limit")); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			return filter, err
		}
		filter.Limit = v
	}
	if offset := strings.TrimSpace(c.Query("offset")); offset != "" {
		v, err := strconv.Atoi(offset)
		if err != nil {
			return filter, err
		}
		filter.Offset = v
	}

	return filter, nil
}

func ticketDTO(ticket *model.Ticket, gateID string) model.TicketDTO {
	return model.TicketDTO{
		ID:        ticket.ID,
		Plate:     ticket.Vehicle.Plate,
		SpotName:  ticket.Spot.Name,
		SpotType:  ticket.Spot.Type,
		Level:     ticket.Spot.Level,
		Row:       ticket.Spot.Row,
		GateID:    gateID,
		CreatedAt: ticket.CreatedAt,
		ParkedAt:  ticket.ParkedAt,
	}
}

func receiptDTO(ticket *model.Ticket, gateID string, fee float64) model.ReceiptDTO {
	return model.ReceiptDTO{
		TicketID:        ticket.ID,
		Plate:           ticket.Vehicle.Plate,
		SpotName:        ticket.Spot.Name,
		SpotType:        ticket.Spot.Type,
		GateID:          gateID,
		FromTime:        *ticket.ParkedAt,
		ToTime:          *ticket.ExitedAt,
		DurationSeconds: int64(ticket.ExitedAt.Sub(*ticket.ParkedAt).Seconds()),
		Fee:             fee,
	}
}

type responseEnvelope struct {
	Data interface{} `json:"data"`
}

func successResponse(data interface{}) responseEnvelope {
	return responseEnvelope{Data: data}
}

func errorResponse(msg string) gin.H {
	return gin.H{"error": msg}
}
