package model

import "strings"

// Vehicle is an immutable identity: a normalized licence plate plus the spot
// type it needs.
type Vehicle struct {
	Plate string   `json:"plate"`
	Type  SpotType `json:"type"`
}

// NormalizePlate strips spaces and dashes and uppercases the plate, so the
// same physical plate always maps to the same active-stay key.
func NormalizePlate(plate string) string {
	plate = strings.ReplaceAll(plate, " ", "")
	plate = strings.ReplaceAll(plate, "-", "")
	return strings.ToUpper(plate)
}
