package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rangolink/merchant-bridge/pkg/db"
	"github.com/rangolink/merchant-bridge/pkg/db/models"
	"github.com/rangolink/merchant-bridge/pkg/enums"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

// Upsert carries the fields an event contributes to an order row. Status is
// always applied; the remaining fields only matter on first sight of the
// upstream id.
type Upsert struct {
	TenantID   string
	UpstreamID string
	DisplayID  string
	Status     enums.OrderStatus
	// EventTime stamps created_at on first sight; zero means "now".
	EventTime time.Time
}

// Repository persists normalized orders keyed by (tenant_id, upstream_id)
// and their append-only status history.
type Repository interface {
	// UpsertByUpstreamID creates or updates the order row for the upstream
	// id and returns the row plus the status it held before this write
	// (nil when the row was created).
	UpsertByUpstreamID(ctx context.Context, up Upsert) (*models.Order, *enums.OrderStatus, error)
	AppendHistory(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByUpstreamID(ctx context.Context, tenantID, upstreamID string) (*models.Order, error)
	HistoryForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	List(ctx context.Context, tenantID string) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertByUpstreamID(ctx context.Context, up Upsert) (*models.Order, *enums.OrderStatus, error) {
	existing, err := r.findByUpstreamID(ctx, up.TenantID, up.UpstreamID)
	if err == nil {
		return r.applyStatus(ctx, existing, up.Status)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order for upsert")
	}

	order := &models.Order{
		ID:         uuid.New(),
		TenantID:   up.TenantID,
		UpstreamID: up.UpstreamID,
		DisplayID:  up.DisplayID,
		Status:     up.Status,
	}
	if !up.EventTime.IsZero() {
		order.CreatedAt = up.EventTime
	}
	createErr := r.db.WithContext(ctx).Create(order).Error
	if createErr == nil {
		return order, nil, nil
	}
	// A concurrent sweep may have created the row between the lookup and
	// the insert; fall back to updating the winner.
	if db.IsUniqueViolation(createErr, "idx_orders_tenant_upstream") {
		existing, err = r.findByUpstreamID(ctx, up.TenantID, up.UpstreamID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-loading order after duplicate insert")
		}
		return r.applyStatus(ctx, existing, up.Status)
	}
	return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "creating order")
}

func (r *repository) applyStatus(ctx context.Context, order *models.Order, status enums.OrderStatus) (*models.Order, *enums.OrderStatus, error) {
	previous := order.Status
	if order.Status != status {
		err := r.db.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", status).Error
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		order.Status = status
	}
	return order, &previous, nil
}

func (r *repository) AppendHistory(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	entry := &models.OrderStatusHistory{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  status,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status history")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

func (r *repository) FindByUpstreamID(ctx context.Context, tenantID, upstreamID string) (*models.Order, error) {
	order, err := r.findByUpstreamID(ctx, tenantID, upstreamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (r *repository) findByUpstreamID(ctx context.Context, tenantID, upstreamID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND upstream_id = ?", tenantID, upstreamID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HistoryForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading status history")
	}
	return entries, nil
}

func (r *repository) List(ctx context.Context, tenantID string) ([]models.Order, error) {
	var result []models.Order
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return result, nil
}
