// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"time"
)

// Encryption key types provisioned by server auction coordinators.
const (
	EncryptionKeyTypeAuction = 1
	EncryptionKeyTypeJoin    = 2
	EncryptionKeyTypeQuery   = 3
)

// EncryptionKey is per-coordinator, per-type server auction key material.
// Coordinators partition the key space completely: a key fetched from one
// coordinator URL is never served for another. The natural key
// (coordinator_url, key_type, key_identifier) replaces on conflict.
type EncryptionKey struct {
	RowID            uint      `gorm:"column:row_id;primaryKey;autoIncrement" json:"row_id"`
	KeyType          int       `gorm:"column:key_type;not null;uniqueIndex:idx_encryption_keys_natural" json:"key_type"`
	CoordinatorURL   string    `gorm:"column:coordinator_url;size:400;not null;uniqueIndex:idx_encryption_keys_natural" json:"coordinator_url" validate:"required"`
	KeyIdentifier    string    `gorm:"column:key_identifier;size:255;not null;uniqueIndex:idx_encryption_keys_natural" json:"key_identifier" validate:"required"`
	PublicKey        string    `gorm:"column:public_key;type:text;not null" json:"public_key"`
	CreationInstant  time.Time `gorm:"column:creation_instant;not null" json:"creation_instant"`
	ExpiryTTLSeconds int64     `gorm:"column:expiry_ttl_seconds;not null" json:"expiry_ttl_seconds"`
	ExpiryInstant    time.Time `gorm:"column:expiry_instant;not null;index:idx_encryption_keys_expiry" json:"expiry_instant"`
}

func (EncryptionKey) TableName() string {
	return "encryption_keys"
}

// ComputeExpiry derives expiry_instant from creation_instant plus the TTL.
// Called before every insert so the stored instant never drifts from the TTL.
func (k *EncryptionKey) ComputeExpiry() {
	k.ExpiryInstant = k.CreationInstant.Add(time.Duration(k.ExpiryTTLSeconds) * time.Second)
}

// IsExpiredAt reports whether the key is expired as of the given instant.
func (k *EncryptionKey) IsExpiredAt(asOf time.Time) bool {
	return !k.ExpiryInstant.After(asOf)
}

// EncryptionKeyFilter represents filter criteria for encryption key queries
type EncryptionKeyFilter struct {
	KeyType        *int
	CoordinatorURL *string
	ExpiresBefore  *time.Time
	ExpiresAfter   *time.Time
}
