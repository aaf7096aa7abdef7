package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rangolink/merchant-bridge/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of accepted status
// transitions. Rows are never mutated or deleted and are not used to
// re-derive the current status.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName implements the GORM naming override.
func (OrderStatusHistory) TableName() string { return "order_status_history" }
