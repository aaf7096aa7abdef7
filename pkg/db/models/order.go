package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rangolink/merchant-bridge/pkg/enums"
)

// Order is the normalized projection of a marketplace order. UpstreamID is
// the marketplace's identifier and the idempotency key for upserts: one row
// per (tenant_id, upstream_id), however many times its events are delivered.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID   string            `gorm:"column:tenant_id;not null;uniqueIndex:idx_orders_tenant_upstream"`
	UpstreamID string            `gorm:"column:upstream_id;not null;uniqueIndex:idx_orders_tenant_upstream"`
	DisplayID  string            `gorm:"column:display_id;not null"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'RECEIVED'"`
	ValueTotal decimal.Decimal   `gorm:"column:value_total;type:numeric(12,2);not null"`
	History    []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at"`
}

// TableName implements the GORM naming override.
func (Order) TableName() string { return "orders" }
