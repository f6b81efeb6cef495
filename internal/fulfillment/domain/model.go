package domain

import "time"

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryHold      DeliveryStatus = "hold"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

type HoldReason string

const (
	HoldRiskBlocked          HoldReason = "risk_blocked"
	HoldRiskFlagged          HoldReason = "risk_flagged"
	HoldRiskSuspicious       HoldReason = "risk_suspicious"
	HoldVerificationRequired HoldReason = "verification_required"
)

// Delivery tracks fulfillment of one paid order.
type Delivery struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	OrderID    int64          `json:"order_id" gorm:"column:order_id;not null;uniqueIndex"`
	Status     DeliveryStatus `json:"status" gorm:"type:text;not null;default:'pending';index"`
	HoldReason string         `json:"hold_reason,omitempty" gorm:"column:hold_reason"`
	Message    string         `json:"message,omitempty" gorm:"type:text"`

	UnitID      *int64     `json:"unit_id,omitempty" gorm:"column:unit_id"`
	Payload     *string    `json:"payload,omitempty" gorm:"type:text"`
	AssignedBy  string     `json:"assigned_by,omitempty" gorm:"column:assigned_by"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" gorm:"column:delivered_at"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Delivery) TableName() string { return "deliveries" }

// validNext encodes the delivery lifecycle. Delivered and cancelled
// are terminal.
var validNext = map[DeliveryStatus]map[DeliveryStatus]bool{
	DeliveryPending: {
		DeliveryHold:      true,
		DeliveryDelivered: true,
		DeliveryCancelled: true,
	},
	DeliveryHold: {
		DeliveryPending:   true,
		DeliveryDelivered: true,
		DeliveryCancelled: true,
	},
	DeliveryDelivered: {},
	DeliveryCancelled: {},
}

func CanTransition(from, to DeliveryStatus) bool {
	return validNext[from][to]
}

func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled
}
