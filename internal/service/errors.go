package service

import (
	"errors"

	"parking-service/internal/model"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTypeMismatch         = errors.New("vehicle type does not match spot type")
	ErrVehicleAlreadyParked = errors.New("vehicle already has an active ticket")
	ErrMissingFeePolicy     = errors.New("missing fee policy")
	ErrTicketStillParked    = errors.New("ticket is still parked")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPermissionDenied     = errors.New("permission denied")

	// Spot transition failures surface under the model's sentinels.
	ErrSpotUnavailable = model.ErrSpotUnavailable
	ErrInvalidState    = model.ErrInvalidState
)
