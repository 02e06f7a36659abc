package service

import (
	"math"
	"time"

	"parking-service/internal/model"
)

// FeePolicy is one parameterized pricing rule. Every spot type gets its own
// instance through the fee structure; there is no policy subtype hierarchy.
type FeePolicy struct {
	BaseFee   float64 `mapstructure:"base_fee" json:"base_fee"`
	PerMinute float64 `mapstructure:"per_minute" json:"per_minute"`
}

// Amount charges the closed interval [from, to]: elapsed seconds at the
// per-minute rate plus the base fee, rounded to cents.
func (p FeePolicy) Amount(from, to time.Time) float64 {
	elapsed := to.Sub(from).Seconds()
	return round2(elapsed*p.PerMinute/60 + p.BaseFee)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type FeeStructure map[model.SpotType]FeePolicy

func (f FeeStructure) PolicyFor(spotType model.SpotType) (FeePolicy, bool) {
	policy, ok := f[spotType]
	return policy, ok
}

// CalculateFee prices a ticket's stay. The interval must be closed: asking
// for the fee before exit fails with ErrTicketStillParked.
func (f FeeStructure) CalculateFee(ticket *model.Ticket) (float64, error) {
	if ticket.ParkedAt == nil || ticket.ExitedAt == nil {
		return 0, ErrTicketStillParked
	}
	policy, ok := f.PolicyFor(ticket.Spot.Type)
	if !ok {
		return 0, ErrMissingFeePolicy
	}
	return policy.Amount(*ticket.ParkedAt, *ticket.ExitedAt), nil
}
