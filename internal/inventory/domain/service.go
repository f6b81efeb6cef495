package domain

import (
	"context"
	"errors"
)

// ClaimRequest identifies the order a unit is being claimed for.
type ClaimRequest struct {
	OrderID int64
	ItemID  int64
	Actor   string
}

// ClaimResult is what gets delivered. Unlimited items carry no unit.
type ClaimResult struct {
	UnitID  *int64 `json:"unit_id,omitempty"`
	Payload string `json:"payload"`
}

type AddUnitsRequest struct {
	ItemID int64
	Lines  []string
	Actor  string
}

type StockView struct {
	Summary   Summary `json:"summary"`
	Available []Unit  `json:"available"`
}

type Service interface {
	// Claim assigns the oldest available unit to the order. Re-claiming
	// an order that already holds a unit returns that unit unchanged.
	Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error)
	// ClaimSpecific assigns the named unit. Losing the race for it is
	// ErrUnitConflict, not ErrOutOfStock.
	ClaimSpecific(ctx context.Context, req ClaimRequest, unitID int64) (*ClaimResult, error)
	AddUnits(ctx context.Context, req AddUnitsRequest) ([]Unit, error)
	DeleteUnit(ctx context.Context, itemID, unitID int64) error
	Stock(ctx context.Context, itemID int64) (*StockView, error)
}

var (
	ErrOutOfStock   = errors.New("out_of_stock")
	ErrUnitConflict = errors.New("unit_conflict")
	ErrUnitNotFound = errors.New("unit_not_found")
	ErrUnitAssigned = errors.New("unit_assigned")
	ErrEmptyBatch   = errors.New("empty_batch")
	ErrItemNotFound = errors.New("item_not_found")
)
