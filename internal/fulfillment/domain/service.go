package domain

import (
	"context"
	"errors"
)

type Service interface {
	// HandlePaid drives a paid order through risk scoring and, when the
	// verdict allows, allocation and delivery. Safe to call repeatedly.
	HandlePaid(ctx context.Context, orderID int64) (*Delivery, error)

	// Approve releases a held or pending delivery with a FIFO claim.
	// BLOCKED orders require an override note.
	Approve(ctx context.Context, orderID int64, actor, note string) (*Delivery, error)

	// AssignUnit delivers a specific available unit chosen by the admin.
	AssignUnit(ctx context.Context, orderID, unitID int64, actor string) (*Delivery, error)

	// Refund cancels the delivery and marks the order refunded. It
	// never returns an assigned unit to the pool.
	Refund(ctx context.Context, orderID int64, reason, actor string) (*Delivery, error)

	// VerifyHighValue resolves a verification hold: approve resumes the
	// normal risk and claim path, reject cancels and refunds.
	VerifyHighValue(ctx context.Context, orderID int64, approve bool, actor string) (*Delivery, error)

	// RetryPending re-runs fulfillment for pending deliveries of paid
	// orders, typically after a restock. Returns how many delivered.
	RetryPending(ctx context.Context, limit int) (int, error)
}

var (
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrOrderNotPaid      = errors.New("order_not_paid")
	ErrDeliveryNotFound  = errors.New("delivery_not_found")
	ErrAlreadyDelivered  = errors.New("already_delivered")
	ErrDeliveryCancelled = errors.New("delivery_cancelled")
	ErrNotHeld           = errors.New("not_held")
	ErrNotVerification   = errors.New("not_verification_hold")
	ErrInvalidTransition = errors.New("invalid_transition")

	// ErrPolicy is the fail-closed rejection: auto-delivering a BLOCKED
	// order, approving one without an override note, or letting a
	// test-mode verdict gate a live decision.
	ErrPolicy = errors.New("policy_violation")
)
