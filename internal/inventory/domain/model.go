package domain

import "time"

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusAssigned  UnitStatus = "assigned"
)

// Unit is a single deliverable credential or code. Once assigned it
// never returns to the pool.
type Unit struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	ItemID     int64      `json:"item_id" gorm:"column:item_id;not null;index"`
	Payload    string     `json:"payload" gorm:"type:text;not null"`
	Status     UnitStatus `json:"status" gorm:"type:text;not null;default:'available';index"`
	OrderID    *int64     `json:"order_id,omitempty" gorm:"column:order_id;uniqueIndex"`
	AssignedAt *time.Time `json:"assigned_at,omitempty" gorm:"column:assigned_at"`
	AssignedBy string     `json:"assigned_by,omitempty" gorm:"column:assigned_by"`
	CreatedBy  string     `json:"created_by,omitempty" gorm:"column:created_by"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Unit) TableName() string { return "stock_units" }

type Summary struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Assigned  int64 `json:"assigned"`
}
