package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant of the bridge: one merchant backend account holding
// its own marketplace OAuth credentials and cached bearer token.
//
// client_id/client_secret are immutable once issued. access_token and
// token_expires_at are written together by the token manager or not at all.
type Company struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	RegistrationNumber string     `gorm:"column:registration_number"`
	TenantID           string     `gorm:"column:tenant_id;not null;uniqueIndex"`
	ClientID           string     `gorm:"column:client_id;not null"`
	ClientSecret       string     `gorm:"column:client_secret;not null"`
	AccessToken        *string    `gorm:"column:access_token"`
	TokenExpiresAt     *time.Time `gorm:"column:token_expires_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName implements the GORM naming override.
func (Company) TableName() string { return "companies" }
