// Package models contains domain entities and persistence models for the ad selection storage system
package models

// Reporting destinations for registered ad interactions.
const (
	ReportingDestinationSeller          = 1
	ReportingDestinationBuyer           = 2
	ReportingDestinationComponentSeller = 3
)

// RegisteredAdInteraction is a post-auction UI event callback registration
// (click, hover, ...) keyed by (ad selection id, interaction key,
// destination). Last insert wins on key collision.
type RegisteredAdInteraction struct {
	AdSelectionID           int64  `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id" validate:"required"`
	InteractionKey          string `gorm:"column:interaction_key;primaryKey;size:255" json:"interaction_key" validate:"required"`
	Destination             int    `gorm:"column:destination;primaryKey;autoIncrement:false" json:"destination"`
	InteractionReportingURI string `gorm:"column:interaction_reporting_uri;size:400;not null" json:"interaction_reporting_uri" validate:"required"`
}

func (RegisteredAdInteraction) TableName() string {
	return "registered_ad_interactions"
}

// RegisteredAdInteractionFilter represents filter criteria for interaction queries
type RegisteredAdInteractionFilter struct {
	AdSelectionID *int64
	Destination   *int
}
