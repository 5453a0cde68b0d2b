// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"time"
)

// EncryptionContext stores the per-auction HPKE context needed to decrypt a
// server auction response, keyed by (context id, key type). Rows age out by
// creation instant, not by key expiry.
type EncryptionContext struct {
	ContextID           int64     `gorm:"column:context_id;primaryKey;autoIncrement:false" json:"context_id" validate:"required"`
	KeyType             int       `gorm:"column:key_type;primaryKey;autoIncrement:false" json:"key_type"`
	KeyConfig           string    `gorm:"column:key_config;type:text;not null" json:"key_config"`
	SharedSecret        []byte    `gorm:"column:shared_secret;type:blob" json:"shared_secret,omitempty"`
	HasMediaTypeChanged bool      `gorm:"column:has_media_type_changed" json:"has_media_type_changed"`
	CreationInstant     time.Time `gorm:"column:creation_instant;not null;index:idx_encryption_context_creation" json:"creation_instant"`
}

func (EncryptionContext) TableName() string {
	return "encryption_context"
}

// EncryptionContextFilter represents filter criteria for encryption context queries
type EncryptionContextFilter struct {
	ContextID     *int64
	KeyType       *int
	CreatedBefore *time.Time
}
