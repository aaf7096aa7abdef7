package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

// Repository is the credential store: per-tenant OAuth client credentials
// plus the cached bearer token pair. The token manager only ever touches
// access_token/token_expires_at; client id and secret are immutable here.
type Repository interface {
	FindByTenantID(ctx context.Context, tenantID string) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	UpdateToken(ctx context.Context, companyID uuid.UUID, accessToken string, expiresAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a credentials repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByTenantID(ctx context.Context, tenantID string) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading tenant credential")
	}
	return &company, nil
}

func (r *repository) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.WithContext(ctx).
		Order("tenant_id ASC").
		Find(&companies).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing tenants")
	}
	return companies, nil
}

// UpdateToken persists the renewed token pair in one write, leaving every
// other credential field untouched.
func (r *repository) UpdateToken(ctx context.Context, companyID uuid.UUID, accessToken string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ?", companyID).
		Updates(map[string]any{
			"access_token":     accessToken,
			"token_expires_at": expiresAt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting renewed token")
	}
	return nil
}
