// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"time"
)

// AdSelectionInitialization is the parent row of the unified schema. Result,
// reporting and reporting-computation rows all foreign-key onto it, so
// expiring an initialization row cascades the whole chain.
type AdSelectionInitialization struct {
	AdSelectionID     int64     `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id" validate:"required"`
	CreationInstant   time.Time `gorm:"column:creation_instant;not null;index:idx_ad_selection_initialization_creation" json:"creation_instant"`
	Seller            string    `gorm:"column:seller;size:255;not null" json:"seller" validate:"required"`
	CallerPackageName string    `gorm:"column:caller_package_name;size:255;not null;index:idx_ad_selection_initialization_caller" json:"caller_package_name" validate:"required"`
}

func (AdSelectionInitialization) TableName() string {
	return "ad_selection_initialization"
}

// AdSelectionResult is the winning-ad row of the unified schema.
type AdSelectionResult struct {
	AdSelectionID      int64                      `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id"`
	Initialization     *AdSelectionInitialization `gorm:"belongsTo;foreignKey:AdSelectionID;references:AdSelectionID;constraint:OnDelete:CASCADE" json:"-"`
	WinningBuyer       string                     `gorm:"column:winning_buyer;size:255;not null" json:"winning_buyer"`
	WinningAdBid       float64                    `gorm:"column:winning_ad_bid" json:"winning_ad_bid"`
	WinningAdRenderURI string                     `gorm:"column:winning_ad_render_uri;size:400" json:"winning_ad_render_uri"`

	// Winning custom audience payload, embedded in the result row.
	WinningCustomAudienceName  *string `gorm:"column:winning_ca_name;size:255" json:"winning_ca_name,omitempty"`
	WinningCustomAudienceOwner *string `gorm:"column:winning_ca_owner;size:255" json:"winning_ca_owner,omitempty"`
	AdCounterIntKeys           *string `gorm:"column:ad_counter_int_keys;type:text" json:"ad_counter_int_keys,omitempty"`
}

func (AdSelectionResult) TableName() string {
	return "ad_selection_result"
}

// ReportingData is the unified-schema row holding the win reporting URIs.
// Absent URIs stay NULL; an empty string is never written as a placeholder.
type ReportingData struct {
	AdSelectionID               int64                      `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id"`
	Initialization              *AdSelectionInitialization `gorm:"belongsTo;foreignKey:AdSelectionID;references:AdSelectionID;constraint:OnDelete:CASCADE" json:"-"`
	BuyerReportingURI           *string                    `gorm:"column:buyer_reporting_uri;size:400" json:"buyer_reporting_uri,omitempty"`
	SellerReportingURI          *string                    `gorm:"column:seller_reporting_uri;size:400" json:"seller_reporting_uri,omitempty"`
	ComponentSellerReportingURI *string                    `gorm:"column:component_seller_reporting_uri;size:400" json:"component_seller_reporting_uri,omitempty"`
}

func (ReportingData) TableName() string {
	return "reporting_data"
}

// ReportingComputationInfo carries the raw decision logic and signals needed
// to compute reporting URIs after the fact, for auctions whose reporting URIs
// were not resolved at selection time.
type ReportingComputationInfo struct {
	AdSelectionID           int64                      `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id"`
	Initialization          *AdSelectionInitialization `gorm:"belongsTo;foreignKey:AdSelectionID;references:AdSelectionID;constraint:OnDelete:CASCADE" json:"-"`
	BiddingLogicURI         string                     `gorm:"column:bidding_logic_uri;size:400;not null" json:"bidding_logic_uri"`
	BuyerDecisionLogicJS    string                     `gorm:"column:buyer_decision_logic_js;type:text" json:"buyer_decision_logic_js"`
	SellerContextualSignals *string                    `gorm:"column:seller_contextual_signals;type:text" json:"seller_contextual_signals,omitempty"`
	BuyerContextualSignals  *string                    `gorm:"column:buyer_contextual_signals;type:text" json:"buyer_contextual_signals,omitempty"`
	CustomAudienceSignals   *string                    `gorm:"column:custom_audience_signals;type:text" json:"custom_audience_signals,omitempty"`
	WinningAdBid            float64                    `gorm:"column:winning_ad_bid" json:"winning_ad_bid"`
	WinningAdRenderURI      string                     `gorm:"column:winning_ad_render_uri;size:400" json:"winning_ad_render_uri"`
}

func (ReportingComputationInfo) TableName() string {
	return "reporting_computation_info"
}

// ReportingPayload is the read model returned for reporting lookups: either
// the direct win reporting URIs or the computation variant, never both.
type ReportingPayload struct {
	BuyerReportingURI           *string
	SellerReportingURI          *string
	ComponentSellerReportingURI *string
	Computation                 *ReportingComputation
}

// ReportingComputation mirrors ReportingComputationInfo without the storage
// concerns; it is assembled from either the unified or the legacy schema.
type ReportingComputation struct {
	BuyerDecisionLogicJS    string
	BiddingLogicURI         string
	SellerContextualSignals *string
	BuyerContextualSignals  *string
	CustomAudienceSignals   *string
	WinningAdRenderURI      string
	WinningAdBid            float64
}

// WinningBidAndURI pairs the winning bid with its render URI for one id.
type WinningBidAndURI struct {
	AdSelectionID      int64   `gorm:"column:ad_selection_id"`
	WinningAdBid       float64 `gorm:"column:winning_ad_bid"`
	WinningAdRenderURI string  `gorm:"column:winning_ad_render_uri"`
}

// WinningCustomAudience is the read model of the winning custom audience
// payload stored on the result row.
type WinningCustomAudience struct {
	Name             *string
	Owner            *string
	AdCounterIntKeys *string
}

// ValidateReportingPayload rejects a payload that has neither reporting URIs
// nor a computation variant.
func ValidateReportingPayload(payload *ReportingPayload) error {
	if payload == nil {
		return ErrMissingReportingURIs
	}
	if payload.BuyerReportingURI == nil && payload.SellerReportingURI == nil &&
		payload.ComponentSellerReportingURI == nil && payload.Computation == nil {
		return ErrMissingReportingURIs
	}
	return nil
}
