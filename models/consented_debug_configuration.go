// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"time"
)

// ConsentedDebugConfiguration records a developer's consent to attach a debug
// token to server auction payloads. At most one configuration is meant to be
// active at a time; persisting a new one deletes whatever was there before.
type ConsentedDebugConfiguration struct {
	ID                uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	IsConsentProvided *bool     `gorm:"column:is_consent_provided;default:false" json:"is_consent_provided"`
	DebugToken        string    `gorm:"column:debug_token;size:255;not null" json:"debug_token" validate:"required"`
	CreationTimestamp time.Time `gorm:"column:creation_timestamp;not null;index:idx_consented_debug_creation" json:"creation_timestamp"`
	ExpiryTimestamp   time.Time `gorm:"column:expiry_timestamp;not null;index:idx_consented_debug_expiry" json:"expiry_timestamp"`
}

func (ConsentedDebugConfiguration) TableName() string {
	return "consented_debug_configuration"
}

// IsActiveAt reports whether consent is provided and unexpired as of the
// given instant.
func (c *ConsentedDebugConfiguration) IsActiveAt(asOf time.Time) bool {
	return c.IsConsentProvided != nil && *c.IsConsentProvided && c.ExpiryTimestamp.After(asOf)
}

// ConsentedDebugConfigurationFilter represents filter criteria for consented debug queries
type ConsentedDebugConfigurationFilter struct {
	DebugToken    *string
	ExpiresAfter  *time.Time
	CreatedBefore *time.Time
}
